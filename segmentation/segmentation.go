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

// Package segmentation holds structures (segments) in one of several interchangeable
// representations and converts between them.
package segmentation

import (
	"errors"
	"fmt"

	"github.com/GoogleCloudPlatform/go-dicom-rt/geom"
	"github.com/GoogleCloudPlatform/go-dicom-rt/volume"
)

// Representation names a way of storing the shape of a segment.
type Representation string

const (
	// PlanarContours are closed polygons lying in parallel planes.
	PlanarContours Representation = "Planar contour"
	// BinaryLabelmap is a voxel mask where non-zero voxels are inside.
	BinaryLabelmap Representation = "Binary labelmap"
	// ClosedSurface is a closed triangle mesh.
	ClosedSurface Representation = "Closed surface"
)

// ErrUnsupportedConversion is returned by converters that cannot produce a representation.
var ErrUnsupportedConversion = errors.New("unsupported representation conversion")

// Contour is one closed planar polygon in world coordinates. The last point connects to the
// first.
type Contour struct {
	Points []geom.Vec3
	// ReferencedSOPInstanceUID is the image slice the contour was drawn on, when known.
	ReferencedSOPInstanceUID string
}

// Mesh is a triangle mesh in world coordinates.
type Mesh struct {
	Vertices  []geom.Vec3
	Triangles [][3]int
}

// Empty reports whether the mesh has no triangles.
func (m *Mesh) Empty() bool {
	return m == nil || len(m.Triangles) == 0
}

// Transformed returns a copy of the mesh with every vertex moved by t.
func (m *Mesh) Transformed(t geom.Mat4) *Mesh {
	out := &Mesh{Vertices: make([]geom.Vec3, len(m.Vertices)), Triangles: append([][3]int(nil), m.Triangles...)}
	for i, v := range m.Vertices {
		out.Vertices[i] = t.Point(v)
	}
	return out
}

// Bounds is the box around the vertices.
func (m *Mesh) Bounds() geom.Bounds {
	var b geom.Bounds
	for _, v := range m.Vertices {
		b.Extend(v)
	}
	return b
}

// Segment is a named, colored structure.
type Segment struct {
	ID    string
	Name  string
	Color [3]float64

	Contours []Contour
	Labelmap *volume.Volume
	Surface  *Mesh
}

// Has reports whether the segment holds a non-empty representation r.
func (s *Segment) Has(r Representation) bool {
	switch r {
	case PlanarContours:
		return len(s.Contours) > 0
	case BinaryLabelmap:
		return !s.Labelmap.Empty()
	case ClosedSurface:
		return !s.Surface.Empty()
	}
	return false
}

// PointCount is the number of contour points of the segment.
func (s *Segment) PointCount() int {
	n := 0
	for _, c := range s.Contours {
		n += len(c.Points)
	}
	return n
}

// Converter derives a representation of a segment from the representations it already holds.
type Converter interface {
	Convert(seg *Segment, target Representation, reference *volume.Geometry) error
}

// Segmentation is an ordered collection of segments sharing a master representation.
type Segmentation struct {
	Name string

	// MasterRepresentation is the representation segments were created in; other representations
	// are derived from it.
	MasterRepresentation Representation

	// ReferenceGeometry is the grid labelmaps are created on, usually the anatomical image the
	// structures were drawn on.
	ReferenceGeometry *volume.Geometry

	// ParentTransform moves the segmentation into world space.
	ParentTransform geom.Mat4

	segments []*Segment
	nextID   int
}

// New returns an empty segmentation.
func New(name string, master Representation) *Segmentation {
	return &Segmentation{Name: name, MasterRepresentation: master, ParentTransform: geom.Identity()}
}

// AddSegment appends seg, assigning an ID when it has none, and returns the ID.
func (s *Segmentation) AddSegment(seg *Segment) string {
	if seg.ID == "" {
		s.nextID++
		seg.ID = fmt.Sprintf("%s_%d", seg.Name, s.nextID)
	}
	s.segments = append(s.segments, seg)
	return seg.ID
}

// Segments returns the segments in insertion order.
func (s *Segmentation) Segments() []*Segment {
	return s.segments
}

// Segment returns the segment with the given ID.
func (s *Segmentation) Segment(id string) (*Segment, bool) {
	for _, seg := range s.segments {
		if seg.ID == id {
			return seg, true
		}
	}
	return nil, false
}

// Len is the number of segments.
func (s *Segmentation) Len() int {
	return len(s.segments)
}

// PointCounts returns the largest contour point count of a single segment and the total over all
// segments.
func (s *Segmentation) PointCounts() (max, total int) {
	for _, seg := range s.segments {
		n := seg.PointCount()
		total += n
		if n > max {
			max = n
		}
	}
	return max, total
}

// CreateRepresentation makes sure every segment holds representation r, converting with conv
// where needed.
func (s *Segmentation) CreateRepresentation(conv Converter, r Representation) error {
	for _, seg := range s.segments {
		if seg.Has(r) {
			continue
		}
		if conv == nil {
			return fmt.Errorf("segment %q: %w", seg.Name, ErrUnsupportedConversion)
		}
		if err := conv.Convert(seg, r, s.ReferenceGeometry); err != nil {
			return fmt.Errorf("segment %q: converting to %v: %w", seg.Name, r, err)
		}
	}
	return nil
}
