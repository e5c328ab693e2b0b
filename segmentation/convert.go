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

package segmentation

import (
	"errors"
	"fmt"
	"math"
	"sort"

	"github.com/GoogleCloudPlatform/go-dicom-rt/geom"
	"github.com/GoogleCloudPlatform/go-dicom-rt/volume"
)

// DefaultSpacing is the in-plane voxel size used when contours are rasterized without a reference
// geometry.
const DefaultSpacing = 1.0

// DefaultConverter converts planar contours to binary labelmaps, binary labelmaps to closed
// surfaces and binary labelmaps back to planar contours on their own slices.
type DefaultConverter struct{}

// Convert implements Converter.
func (DefaultConverter) Convert(seg *Segment, target Representation, reference *volume.Geometry) error {
	switch target {
	case BinaryLabelmap:
		if !seg.Has(PlanarContours) {
			return ErrUnsupportedConversion
		}
		g := reference
		if g == nil {
			derived, err := ContourGeometry(seg.Contours)
			if err != nil {
				return err
			}
			g = &derived
		}
		mask, err := RasterizeContours(seg.Contours, *g)
		if err != nil {
			return err
		}
		seg.Labelmap = mask
		return nil
	case ClosedSurface:
		if !seg.Has(BinaryLabelmap) {
			if err := (DefaultConverter{}).Convert(seg, BinaryLabelmap, reference); err != nil {
				return err
			}
		}
		seg.Surface = LabelmapSurface(seg.Labelmap)
		if seg.Surface.Empty() {
			return errors.New("labelmap is empty")
		}
		return nil
	case PlanarContours:
		if !seg.Has(BinaryLabelmap) {
			return ErrUnsupportedConversion
		}
		seg.Contours = LabelmapContours(seg.Labelmap)
		return nil
	}
	return ErrUnsupportedConversion
}

// ContourGeometry derives an axis aligned grid around axial contours. The slice spacing is the
// smallest distance between distinct contour planes.
func ContourGeometry(contours []Contour) (volume.Geometry, error) {
	var b geom.Bounds
	zs := map[float64]bool{}
	for _, c := range contours {
		for _, p := range c.Points {
			b.Extend(p)
			zs[math.Round(p[2]*1000)/1000] = true
		}
	}
	if b.Empty() {
		return volume.Geometry{}, errors.New("no contour points")
	}

	planes := make([]float64, 0, len(zs))
	for z := range zs {
		planes = append(planes, z)
	}
	sort.Float64s(planes)
	sliceSpacing := 0.0
	for i := 1; i < len(planes); i++ {
		if d := planes[i] - planes[i-1]; d > 1e-3 && (sliceSpacing == 0 || d < sliceSpacing) {
			sliceSpacing = d
		}
	}
	if sliceSpacing == 0 {
		sliceSpacing = DefaultSpacing
	}

	spacing := geom.Vec3{DefaultSpacing, DefaultSpacing, sliceSpacing}
	origin := b.Min.Sub(geom.Vec3{DefaultSpacing, DefaultSpacing, 0})
	var dims [3]int
	for axis := 0; axis < 3; axis++ {
		dims[axis] = int(math.Round((b.Max[axis]-origin[axis])/spacing[axis])) + 1
	}
	dims[0]++
	dims[1]++
	return volume.Geometry{Dims: dims, IJKToWorld: geom.Translation(origin).Mul(geom.Scaling(spacing))}, nil
}

// RasterizeContours fills the voxels of g whose centers are inside the contours. Each contour is
// assigned to the slice nearest to its plane; contours on the same slice combine with the even-odd
// rule so that inner contours make holes.
func RasterizeContours(contours []Contour, g volume.Geometry) (*volume.Volume, error) {
	worldToIJK, err := g.IJKToWorld.Inverse()
	if err != nil {
		return nil, fmt.Errorf("inverting reference geometry: %v", err)
	}
	mask := volume.NewFromGeometry(g)

	bySlice := map[int][][]geom.Vec3{}
	for _, c := range contours {
		if len(c.Points) < 3 {
			continue
		}
		poly := make([]geom.Vec3, len(c.Points))
		var z float64
		for i, p := range c.Points {
			poly[i] = worldToIJK.Point(p)
			z += poly[i][2]
		}
		k := int(math.Round(z / float64(len(poly))))
		if k < 0 || k >= g.Dims[2] {
			continue
		}
		bySlice[k] = append(bySlice[k], poly)
	}

	for k, polys := range bySlice {
		for j := 0; j < g.Dims[1]; j++ {
			for i := 0; i < g.Dims[0]; i++ {
				inside := false
				for _, poly := range polys {
					if containsPoint(poly, float64(i), float64(j)) {
						inside = !inside
					}
				}
				if inside {
					mask.Set(i, j, k, 1)
				}
			}
		}
	}
	return mask, nil
}

// containsPoint is the even-odd ray casting test in the IJ plane.
func containsPoint(poly []geom.Vec3, x, y float64) bool {
	inside := false
	for i, j := 0, len(poly)-1; i < len(poly); j, i = i, i+1 {
		xi, yi := poly[i][0], poly[i][1]
		xj, yj := poly[j][0], poly[j][1]
		if (yi > y) != (yj > y) && x < (xj-xi)*(y-yi)/(yj-yi)+xi {
			inside = !inside
		}
	}
	return inside
}

type faceVertex [3]int

// LabelmapSurface builds a closed mesh from the boundary faces between inside and outside voxels.
func LabelmapSurface(mask *volume.Volume) *Mesh {
	mesh := &Mesh{}
	if mask.Empty() {
		return mesh
	}

	index := map[faceVertex]int{}
	vertex := func(v faceVertex) int {
		if id, ok := index[v]; ok {
			return id
		}
		id := len(mesh.Vertices)
		index[v] = id
		p := geom.Vec3{float64(v[0]) / 2, float64(v[1]) / 2, float64(v[2]) / 2}
		mesh.Vertices = append(mesh.Vertices, mask.IJKToWorld.Point(p))
		return id
	}

	inside := func(i, j, k int) bool {
		return mask.Contains(i, j, k) && mask.At(i, j, k) > 0.5
	}

	for k := 0; k < mask.Dims[2]; k++ {
		for j := 0; j < mask.Dims[1]; j++ {
			for i := 0; i < mask.Dims[0]; i++ {
				if !inside(i, j, k) {
					continue
				}
				center := [3]int{2 * i, 2 * j, 2 * k}
				for axis := 0; axis < 3; axis++ {
					for _, dir := range []int{-1, 1} {
						n := [3]int{i, j, k}
						n[axis] += dir
						if inside(n[0], n[1], n[2]) {
							continue
						}
						u, w := (axis+1)%3, (axis+2)%3
						var corners [4]int
						for c, d := range [4][2]int{{-1, -1}, {1, -1}, {1, 1}, {-1, 1}} {
							fv := faceVertex(center)
							fv[axis] += dir
							fv[u] += d[0]
							fv[w] += d[1]
							corners[c] = vertex(fv)
						}
						if dir < 0 {
							corners[1], corners[3] = corners[3], corners[1]
						}
						mesh.Triangles = append(mesh.Triangles,
							[3]int{corners[0], corners[1], corners[2]},
							[3]int{corners[0], corners[2], corners[3]})
					}
				}
			}
		}
	}
	return mesh
}

type squareEdge struct {
	i, j     int
	vertical bool
}

// LabelmapContours traces the outline of every slice of a mask with marching squares. Points lie
// halfway between inside and outside voxel centers.
func LabelmapContours(mask *volume.Volume) []Contour {
	var contours []Contour
	if mask.Empty() {
		return nil
	}
	for k := 0; k < mask.Dims[2]; k++ {
		for _, loop := range SliceOutline(mask, k) {
			contours = append(contours, Contour{Points: loop})
		}
	}
	return contours
}

// SliceOutline returns the closed outlines of slice k of mask in world coordinates.
func SliceOutline(mask *volume.Volume, k int) [][]geom.Vec3 {
	inside := func(i, j int) bool {
		return mask.Contains(i, j, k) && mask.At(i, j, k) > 0.5
	}

	var segments [][2]squareEdge
	for j := -1; j < mask.Dims[1]; j++ {
		for i := -1; i < mask.Dims[0]; i++ {
			c := [4]bool{inside(i, j), inside(i+1, j), inside(i+1, j+1), inside(i, j+1)}
			edges := [4]squareEdge{
				{i, j, false},     // between corners 0 and 1
				{i + 1, j, true},  // between corners 1 and 2
				{i, j + 1, false}, // between corners 3 and 2
				{i, j, true},      // between corners 0 and 3
			}
			var crossed []squareEdge
			for e, pair := range [4][2]int{{0, 1}, {1, 2}, {3, 2}, {0, 3}} {
				if c[pair[0]] != c[pair[1]] {
					crossed = append(crossed, edges[e])
				}
			}
			switch len(crossed) {
			case 2:
				segments = append(segments, [2]squareEdge{crossed[0], crossed[1]})
			case 4:
				// saddle: keep the inside corners apart
				if c[0] {
					segments = append(segments, [2]squareEdge{edges[0], edges[3]}, [2]squareEdge{edges[1], edges[2]})
				} else {
					segments = append(segments, [2]squareEdge{edges[0], edges[1]}, [2]squareEdge{edges[2], edges[3]})
				}
			}
		}
	}

	point := func(e squareEdge) geom.Vec3 {
		p := geom.Vec3{float64(e.i), float64(e.j), float64(k)}
		if e.vertical {
			p[1] += 0.5
		} else {
			p[0] += 0.5
		}
		return mask.IJKToWorld.Point(p)
	}
	return StitchLoops(segments, point)
}
