// Copyright 2018 Google LLC
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//      http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package scene stores the entities created by loading RT objects: volumes, plans, beams,
// segmentations, fiducials and display models. Each entity carries exactly one payload whose kind
// is fixed when the entity is added.
package scene

import (
	"fmt"
	"sort"

	"github.com/GoogleCloudPlatform/go-dicom-rt/geom"
	"github.com/GoogleCloudPlatform/go-dicom-rt/segmentation"
	"github.com/GoogleCloudPlatform/go-dicom-rt/volume"
)

// ID identifies an entity within a Store. The zero ID is never assigned.
type ID int64

// InvalidID is returned by lookups that find nothing.
const InvalidID ID = 0

// Kind is the type of payload an entity carries.
type Kind int

const (
	KindScalarVolume Kind = iota + 1
	KindDoseVolume
	KindRTImage
	KindPlan
	KindBeam
	KindSegmentation
	KindFiducials
	KindPlanarImageModel
)

var kindNames = map[Kind]string{
	KindScalarVolume:     "ScalarVolume",
	KindDoseVolume:       "DoseVolume",
	KindRTImage:          "RTImage",
	KindPlan:             "Plan",
	KindBeam:             "Beam",
	KindSegmentation:     "Segmentation",
	KindFiducials:        "Fiducials",
	KindPlanarImageModel: "PlanarImageModel",
}

func (k Kind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return fmt.Sprintf("Kind(%d)", int(k))
}

// Payload is the data of an entity. The set of payload types is closed.
type Payload interface {
	Kind() Kind
	payload()
}

// VolumeDisplay holds how a volume is presented.
type VolumeDisplay struct {
	AutoWindowLevel bool
	WindowMin       float64
	WindowMax       float64
	WindowCenter    float64
	WindowWidth     float64

	ApplyThreshold bool
	LowerThreshold float64

	ColorTable string
	Visible    bool
}

// Volume is the payload of scalar, dose and RT image entities.
type Volume struct {
	kind    Kind
	Image   *volume.Volume
	Display VolumeDisplay
	// SliceInstanceUIDs lists the SOP Instance UID of every slice, in slice order, when the volume
	// was read from a DICOM series.
	SliceInstanceUIDs []string
}

// NewVolume wraps an image as a payload of the given kind, which must be one of the volume kinds.
func NewVolume(kind Kind, image *volume.Volume) *Volume {
	switch kind {
	case KindScalarVolume, KindDoseVolume, KindRTImage:
	default:
		panic(fmt.Sprintf("scene: %v is not a volume kind", kind))
	}
	return &Volume{kind: kind, Image: image}
}

func (v *Volume) Kind() Kind { return v.kind }
func (*Volume) payload()     {}

// Plan is the payload of an RT plan entity.
type Plan struct {
	SOPInstanceUID string
	Isocenter      geom.Vec3
	HasIsocenter   bool
	Beams          []ID
}

func (*Plan) Kind() Kind { return KindPlan }
func (*Plan) payload()   {}

// Beam is the payload of a treatment beam entity. Parameters are kept as read from the plan.
type Beam struct {
	Plan   ID
	Number int
	Name   string

	X1Jaw, X2Jaw, Y1Jaw, Y2Jaw float64

	GantryAngle     float64
	CollimatorAngle float64
	CouchAngle      float64
	SAD             float64
	Isocenter       geom.Vec3
}

func (*Beam) Kind() Kind { return KindBeam }
func (*Beam) payload()   {}

// Segmentation is the payload of a segmentation entity.
type Segmentation struct {
	*segmentation.Segmentation
	PreferredDisplay segmentation.Representation
	Visible          bool
}

func (*Segmentation) Kind() Kind { return KindSegmentation }
func (*Segmentation) payload()   {}

// Fiducials is the payload of a point list entity.
type Fiducials struct {
	Points  []geom.Vec3
	Labels  []string
	Color   [3]float64
	Locked  bool
	Visible bool
}

func (*Fiducials) Kind() Kind { return KindFiducials }
func (*Fiducials) payload()   {}

// PlanarImageModel is a textured rectangle showing an RT image at its placement in world space.
type PlanarImageModel struct {
	Image   ID
	Corners [4]geom.Vec3
	Visible bool
}

func (*PlanarImageModel) Kind() Kind { return KindPlanarImageModel }
func (*PlanarImageModel) payload()   {}

// Reference roles between entities.
const (
	RolePlanarImageDisplayedModel = "planarImageDisplayedModel"
	RolePlanarImageTexture        = "planarImageTexture"
)

// Entity is a named payload with references to other entities.
type Entity struct {
	ID      ID
	Name    string
	Payload Payload

	references map[string]ID
}

// Kind is the kind of the payload.
func (e *Entity) Kind() Kind {
	return e.Payload.Kind()
}

// Volume returns the volume payload of volume entities.
func (e *Entity) Volume() (*Volume, bool) {
	v, ok := e.Payload.(*Volume)
	return v, ok
}

// Reference returns the entity referenced under role.
func (e *Entity) Reference(role string) (ID, bool) {
	id, ok := e.references[role]
	return id, ok
}

// SetReference links the entity to another one under role.
func (e *Entity) SetReference(role string, id ID) {
	if e.references == nil {
		e.references = map[string]ID{}
	}
	e.references[role] = id
}

// Store owns the entities of a scene.
type Store struct {
	entities map[ID]*Entity
	next     ID
}

// NewStore returns an empty store.
func NewStore() *Store {
	return &Store{entities: map[ID]*Entity{}}
}

// Add stores a new entity and returns it.
func (s *Store) Add(name string, p Payload) *Entity {
	s.next++
	e := &Entity{ID: s.next, Name: name, Payload: p}
	s.entities[e.ID] = e
	return e
}

// Get returns the entity with the given ID.
func (s *Store) Get(id ID) (*Entity, bool) {
	e, ok := s.entities[id]
	return e, ok
}

// Remove deletes an entity. References to it held by other entities are left dangling.
func (s *Store) Remove(id ID) {
	delete(s.entities, id)
}

// Len is the number of entities.
func (s *Store) Len() int {
	return len(s.entities)
}

// Entities returns the entities in creation order.
func (s *Store) Entities() []*Entity {
	out := make([]*Entity, 0, len(s.entities))
	for _, e := range s.entities {
		out = append(out, e)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// OfKind returns the entities of kind k in creation order.
func (s *Store) OfKind(k Kind) []*Entity {
	var out []*Entity
	for _, e := range s.Entities() {
		if e.Kind() == k {
			out = append(out, e)
		}
	}
	return out
}

// UniqueName returns base, or base with the smallest numeric suffix that no entity uses yet.
func (s *Store) UniqueName(base string) string {
	used := map[string]bool{}
	for _, e := range s.entities {
		used[e.Name] = true
	}
	if !used[base] {
		return base
	}
	for n := 1; ; n++ {
		name := fmt.Sprintf("%s_%d", base, n)
		if !used[name] {
			return name
		}
	}
}
