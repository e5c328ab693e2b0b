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

// Package geometry places RT images (portal images and DRRs) in world space from the parameters of
// the treatment beam they were acquired for. An image and its beam can be loaded in either order;
// whichever arrives second completes the placement.
package geometry

import (
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strconv"
	"strings"

	"github.com/GoogleCloudPlatform/go-dicom-rt/geom"
	"github.com/GoogleCloudPlatform/go-dicom-rt/hierarchy"
	"github.com/GoogleCloudPlatform/go-dicom-rt/scene"
)

// PlanarImageModelPrefix starts the name of the display model created for a placed RT image.
const PlanarImageModelPrefix = "PlanarImage_"

var (
	// ErrNotRTImage is returned when the entity passed as an image is not an RT image.
	ErrNotRTImage = errors.New("entity is not an RT image")
	// ErrNotBeam is returned when the entity passed as a beam is not a beam.
	ErrNotBeam = errors.New("entity is not a beam")
)

// Outcome tells what a resolution attempt did.
type Outcome int

const (
	// Deferred means the counterpart is not loaded yet. The image is placed once it is.
	Deferred Outcome = iota
	// Applied means the image was placed by this call.
	Applied
	// AlreadyApplied means the image had been placed before and was left untouched.
	AlreadyApplied
)

func (o Outcome) String() string {
	switch o {
	case Deferred:
		return "Deferred"
	case Applied:
		return "Applied"
	case AlreadyApplied:
		return "AlreadyApplied"
	}
	return fmt.Sprintf("Outcome(%d)", int(o))
}

// Params are the acquisition parameters of an RT image, in millimetres and degrees with IEC 61217
// signs.
type Params struct {
	Isocenter   geom.Vec3
	CouchAngle  float64
	GantryAngle float64
	// SAD is the source to axis (isocenter) distance.
	SAD float64
	// SID is the source to image receptor distance.
	SID float64
	// Position is the x and y coordinate of the upper left hand corner of the image in the IEC
	// X-RAY IMAGE RECEPTOR system.
	Position [2]float64
}

// RTImageTransform returns the IJK to world matrix of an RT image acquired with p, whose
// unplaced IJK to world matrix is ijkToWorld.
func RTImageTransform(p Params, ijkToWorld geom.Mat4) geom.Mat4 {
	return geom.Concatenate(
		geom.Translation(p.Isocenter),
		geom.RotationY(-p.CouchAngle),
		geom.RotationZ(p.GantryAngle),
		geom.Translation(geom.Vec3{0, p.SAD, 0}),
		geom.Translation(geom.Vec3{0, -p.SID, 0}),
		geom.Translation(geom.Vec3{-p.Position[0], 0, p.Position[1]}),
		// IEC patient to DICOM patient
		geom.RotationX(90),
		ijkToWorld,
	)
}

type linkKey struct {
	planUID    string
	beamNumber int
}

// Option configures an Engine.
type Option func(*Engine)

// WithLogger overrides the logger used by the engine.
func WithLogger(logger *slog.Logger) Option {
	return func(e *Engine) {
		e.Logger = logger
	}
}

// Engine resolves RT images against the beams of loaded plans.
//
// RT image hierarchy items carry the referenced plan SOP Instance UID in
// hierarchy.AttrReferencedInstanceUIDs, the beam number, SID and image position as attributes.
// Plans are found by SOP Instance UID in hierarchy.UIDNamespaceInstance.
type Engine struct {
	Logger *slog.Logger

	h     *hierarchy.Hierarchy
	store *scene.Store
	// images waiting for their beam
	pending map[linkKey][]scene.ID
}

// New returns an Engine working on the given hierarchy and entity store.
func New(h *hierarchy.Hierarchy, store *scene.Store, opts ...Option) *Engine {
	e := &Engine{h: h, store: store, pending: map[linkKey][]scene.ID{}}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

func (e *Engine) logger() *slog.Logger {
	if e.Logger != nil {
		return e.Logger
	}
	return slog.Default()
}

// Pending is the number of images waiting for their beam.
func (e *Engine) Pending() int {
	n := 0
	for _, images := range e.pending {
		n += len(images)
	}
	return n
}

// ResolveFromImage places the RT image entity if the beam it references is loaded, and records it
// as pending otherwise. When the referenced plan has a single beam, that beam is used whatever the
// referenced beam number.
func (e *Engine) ResolveFromImage(image scene.ID) (Outcome, error) {
	imageEntity, item, err := e.rtImage(image)
	if err != nil {
		return Deferred, err
	}
	if placed(imageEntity) {
		return AlreadyApplied, nil
	}

	planUID, ok := e.h.Attribute(item, hierarchy.AttrReferencedInstanceUIDs)
	if !ok || planUID == "" {
		return Deferred, fmt.Errorf("RT image %q has no referenced plan", imageEntity.Name)
	}
	beamNumber, err := e.intAttribute(item, hierarchy.AttrBeamNumber)
	if err != nil {
		return Deferred, fmt.Errorf("RT image %q: %v", imageEntity.Name, err)
	}

	beam, found := e.beamFor(planUID, beamNumber)
	if !found {
		e.addPending(linkKey{planUID, beamNumber}, image)
		e.logger().Debug("Plan or beam of RT image not loaded yet, deferring geometry",
			"op", "SetupRtImageGeometry", "image", imageEntity.Name, "plan", planUID, "beam", beamNumber)
		return Deferred, nil
	}
	if err := e.place(imageEntity, item, beam); err != nil {
		return Deferred, err
	}
	e.forget(image)
	return Applied, nil
}

// ResolveFromBeam places the RT images waiting for the beam entity. Images referencing another beam
// number of the same plan are placed too when the plan has a single beam.
func (e *Engine) ResolveFromBeam(beam scene.ID) (Outcome, error) {
	beamEntity, ok := e.store.Get(beam)
	if !ok {
		return Deferred, fmt.Errorf("beam %d: %w", beam, ErrNotBeam)
	}
	b, ok := beamEntity.Payload.(*scene.Beam)
	if !ok {
		return Deferred, fmt.Errorf("entity %q: %w", beamEntity.Name, ErrNotBeam)
	}
	plan, ok := e.plan(b.Plan)
	if !ok {
		return Deferred, fmt.Errorf("beam %q has no plan", beamEntity.Name)
	}
	oneBeam := len(plan.Beams) == 1

	var images []scene.ID
	for key, waiting := range e.pending {
		if key.planUID == plan.SOPInstanceUID && (key.beamNumber == b.Number || oneBeam) {
			images = append(images, waiting...)
		}
	}
	if len(images) == 0 {
		e.logger().Debug("RT image of beam not loaded yet, deferring geometry",
			"op", "SetupRtImageGeometry", "beam", beamEntity.Name, "plan", plan.SOPInstanceUID)
		return Deferred, nil
	}

	outcome := Deferred
	for _, image := range sortIDs(images) {
		imageEntity, item, err := e.rtImage(image)
		if err != nil {
			// the image was removed while waiting
			e.forget(image)
			continue
		}
		if placed(imageEntity) {
			e.forget(image)
			if outcome == Deferred {
				outcome = AlreadyApplied
			}
			continue
		}
		if err := e.place(imageEntity, item, beamEntity); err != nil {
			return outcome, err
		}
		e.forget(image)
		outcome = Applied
	}
	return outcome, nil
}

func (e *Engine) rtImage(id scene.ID) (*scene.Entity, hierarchy.ItemID, error) {
	entity, ok := e.store.Get(id)
	if !ok {
		return nil, hierarchy.InvalidItemID, fmt.Errorf("image %d: %w", id, ErrNotRTImage)
	}
	if entity.Kind() != scene.KindRTImage {
		return nil, hierarchy.InvalidItemID, fmt.Errorf("entity %q: %w", entity.Name, ErrNotRTImage)
	}
	item := e.h.ItemByEntity(id)
	if item == hierarchy.InvalidItemID {
		return nil, hierarchy.InvalidItemID, fmt.Errorf("RT image %q is not in the hierarchy", entity.Name)
	}
	return entity, item, nil
}

func placed(image *scene.Entity) bool {
	_, ok := image.Reference(scene.RolePlanarImageDisplayedModel)
	return ok
}

func (e *Engine) plan(id scene.ID) (*scene.Plan, bool) {
	entity, ok := e.store.Get(id)
	if !ok {
		return nil, false
	}
	plan, ok := entity.Payload.(*scene.Plan)
	return plan, ok
}

// beamFor returns the beam of the plan with the given SOP Instance UID that an image referencing
// beamNumber belongs to.
func (e *Engine) beamFor(planUID string, beamNumber int) (*scene.Entity, bool) {
	planItem := e.h.FindByUID(hierarchy.UIDNamespaceInstance, planUID)
	if planItem == hierarchy.InvalidItemID {
		return nil, false
	}
	plan, ok := e.plan(e.h.Entity(planItem))
	if !ok {
		return nil, false
	}
	var only *scene.Entity
	for _, id := range plan.Beams {
		entity, ok := e.store.Get(id)
		if !ok {
			continue
		}
		b := entity.Payload.(*scene.Beam)
		if b.Number == beamNumber {
			return entity, true
		}
		only = entity
	}
	if len(plan.Beams) == 1 && only != nil {
		return only, true
	}
	return nil, false
}

func (e *Engine) addPending(key linkKey, image scene.ID) {
	for _, id := range e.pending[key] {
		if id == image {
			return
		}
	}
	e.pending[key] = append(e.pending[key], image)
}

func (e *Engine) forget(image scene.ID) {
	for key, waiting := range e.pending {
		kept := waiting[:0]
		for _, id := range waiting {
			if id != image {
				kept = append(kept, id)
			}
		}
		if len(kept) == 0 {
			delete(e.pending, key)
		} else {
			e.pending[key] = kept
		}
	}
}

// place moves the image to its acquisition position and adds its hidden display model.
func (e *Engine) place(image *scene.Entity, item hierarchy.ItemID, beamEntity *scene.Entity) error {
	vol, ok := image.Volume()
	if !ok || vol.Image == nil {
		return fmt.Errorf("RT image %q has no image data", image.Name)
	}
	b := beamEntity.Payload.(*scene.Beam)
	plan, ok := e.plan(b.Plan)
	if !ok {
		return fmt.Errorf("beam %q has no plan", beamEntity.Name)
	}
	if !plan.HasIsocenter {
		return fmt.Errorf("plan of beam %q has no isocenter", beamEntity.Name)
	}

	p := Params{
		Isocenter:   plan.Isocenter,
		CouchAngle:  b.CouchAngle,
		GantryAngle: b.GantryAngle,
		SAD:         b.SAD,
	}
	if sid, ok := e.h.Attribute(item, hierarchy.AttrRTImageSID); ok && sid != "" {
		v, err := strconv.ParseFloat(sid, 64)
		if err != nil {
			return fmt.Errorf("RT image %q: invalid SID %q: %v", image.Name, sid, err)
		}
		p.SID = v
	}
	if pos, ok := e.h.Attribute(item, hierarchy.AttrRTImagePosition); ok && pos != "" {
		fields := strings.Fields(pos)
		if len(fields) != 2 {
			return fmt.Errorf("RT image %q: invalid image position %q", image.Name, pos)
		}
		for i, f := range fields {
			v, err := strconv.ParseFloat(f, 64)
			if err != nil {
				return fmt.Errorf("RT image %q: invalid image position %q: %v", image.Name, pos, err)
			}
			p.Position[i] = v
		}
	}

	vol.Image.IJKToWorld = RTImageTransform(p, vol.Image.IJKToWorld)

	model := &scene.PlanarImageModel{Image: image.ID, Corners: corners(vol.Image.IJKToWorld, vol.Image.Dims)}
	modelEntity := e.store.Add(e.store.UniqueName(PlanarImageModelPrefix+image.Name), model)
	modelEntity.SetReference(scene.RolePlanarImageTexture, image.ID)
	image.SetReference(scene.RolePlanarImageDisplayedModel, modelEntity.ID)

	e.logger().Debug("RT image geometry set up", "op", "SetupRtImageGeometry",
		"image", image.Name, "beam", beamEntity.Name, "gantry", p.GantryAngle, "sid", p.SID)
	return nil
}

// corners are the world positions of the four corner pixel centers, in row major order around the
// image.
func corners(ijkToWorld geom.Mat4, dims [3]int) [4]geom.Vec3 {
	maxI, maxJ := float64(dims[0]-1), float64(dims[1]-1)
	return [4]geom.Vec3{
		ijkToWorld.Point(geom.Vec3{0, 0, 0}),
		ijkToWorld.Point(geom.Vec3{maxI, 0, 0}),
		ijkToWorld.Point(geom.Vec3{maxI, maxJ, 0}),
		ijkToWorld.Point(geom.Vec3{0, maxJ, 0}),
	}
}

func (e *Engine) intAttribute(item hierarchy.ItemID, key string) (int, error) {
	s, ok := e.h.Attribute(item, key)
	if !ok || s == "" {
		return 0, fmt.Errorf("missing attribute %s", key)
	}
	v, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil {
		return 0, fmt.Errorf("invalid attribute %s %q: %v", key, s, err)
	}
	return v, nil
}

func sortIDs(ids []scene.ID) []scene.ID {
	out := append([]scene.ID(nil), ids...)
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}
