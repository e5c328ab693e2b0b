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

package rtexport

import (
	"math"

	"github.com/GoogleCloudPlatform/go-dicom-rt/geom"
	"github.com/GoogleCloudPlatform/go-dicom-rt/segmentation"
	"github.com/GoogleCloudPlatform/go-dicom-rt/volume"
)

// meshEdge identifies an edge of a mesh by its vertex indices, smallest first.
type meshEdge struct {
	a, b int
}

func newMeshEdge(a, b int) meshEdge {
	if a > b {
		a, b = b, a
	}
	return meshEdge{a, b}
}

// SliceSurface cuts a closed mesh with the slice planes of image and returns the closed polygons
// of every slice the mesh crosses. Planes go through the voxel centers of each slice and are
// normal to the slice axis. Slices outside the extent of the mesh along the normal are skipped.
// sliceUIDs, when long enough, names the instance of every slice.
func SliceSurface(mesh *segmentation.Mesh, image *volume.Volume, sliceUIDs []string) []SliceContours {
	if mesh.Empty() || image.Empty() {
		return nil
	}
	normal := image.IJKToWorld.Column(0).Cross(image.IJKToWorld.Column(1)).Normalize()

	lo, hi := math.Inf(1), math.Inf(-1)
	for _, c := range mesh.Bounds().Corners() {
		d := c.Dot(normal)
		lo, hi = math.Min(lo, d), math.Max(hi, d)
	}

	var out []SliceContours
	for k := 0; k < image.Dims[2]; k++ {
		origin := image.IJKToWorld.Point(geom.Vec3{0, 0, float64(k)})
		d := origin.Dot(normal)
		if d < lo || d > hi {
			continue
		}
		polygons := cut(mesh, geom.Plane{Origin: origin, Normal: normal}, d-lo <= hi-d)
		if len(polygons) == 0 {
			continue
		}
		s := SliceContours{Index: k, Polygons: polygons}
		if k < len(sliceUIDs) {
			s.SOPInstanceUID = sliceUIDs[k]
		}
		out = append(out, s)
	}
	return out
}

// cut intersects the triangles of mesh with plane and stitches the crossing segments into
// polygons. Vertices on the plane count as lying on the side away from the bulk of the mesh:
// below when lowerHalf is set, above otherwise. Faces lying on the lowest or highest plane of
// the mesh are then cut like any other slice.
func cut(mesh *segmentation.Mesh, plane geom.Plane, lowerHalf bool) [][]geom.Vec3 {
	dist := make([]float64, len(mesh.Vertices))
	for i, v := range mesh.Vertices {
		dist[i] = plane.SignedDistance(v)
	}
	below := func(i int) bool {
		if dist[i] == 0 {
			return lowerHalf
		}
		return dist[i] < 0
	}

	var segments [][2]meshEdge
	for _, t := range mesh.Triangles {
		var crossed []meshEdge
		for e := 0; e < 3; e++ {
			a, b := t[e], t[(e+1)%3]
			if below(a) != below(b) {
				crossed = append(crossed, newMeshEdge(a, b))
			}
		}
		if len(crossed) == 2 {
			segments = append(segments, [2]meshEdge{crossed[0], crossed[1]})
		}
	}

	point := func(e meshEdge) geom.Vec3 {
		pa, pb := mesh.Vertices[e.a], mesh.Vertices[e.b]
		da, db := dist[e.a], dist[e.b]
		return pa.Add(pb.Sub(pa).Scale(da / (da - db)))
	}
	var polygons [][]geom.Vec3
	for _, loop := range segmentation.StitchLoops(segments, point) {
		if loop = withoutRepeats(loop); len(loop) >= 3 {
			polygons = append(polygons, loop)
		}
	}
	return polygons
}

// withoutRepeats drops points equal to their predecessor. Edges ending on the plane all meet at
// the same vertex.
func withoutRepeats(loop []geom.Vec3) []geom.Vec3 {
	out := loop[:0:0]
	for i, p := range loop {
		if i > 0 && p == loop[i-1] {
			continue
		}
		out = append(out, p)
	}
	for len(out) > 1 && out[len(out)-1] == out[0] {
		out = out[:len(out)-1]
	}
	return out
}
