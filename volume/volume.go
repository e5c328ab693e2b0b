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

// Package volume models scalar voxel grids positioned in world space by an IJK to world
// transform, with the resampling operations needed when grids have to be compared or exported.
package volume

import (
	"errors"
	"fmt"
	"math"

	"github.com/GoogleCloudPlatform/go-dicom-rt/geom"
)

// Volume is a scalar grid. Voxel (i, j, k) is stored at i + j*Dims[0] + k*Dims[0]*Dims[1] and
// its center is at IJKToWorld·(i, j, k).
type Volume struct {
	Dims       [3]int
	IJKToWorld geom.Mat4
	Scalars    []float64
}

// New allocates a zero filled volume.
func New(dims [3]int, ijkToWorld geom.Mat4) *Volume {
	n := dims[0] * dims[1] * dims[2]
	if n < 0 {
		n = 0
	}
	return &Volume{Dims: dims, IJKToWorld: ijkToWorld, Scalars: make([]float64, n)}
}

// Len is the number of voxels.
func (v *Volume) Len() int {
	return v.Dims[0] * v.Dims[1] * v.Dims[2]
}

// Empty reports whether the grid has no voxels.
func (v *Volume) Empty() bool {
	return v == nil || v.Dims[0] <= 0 || v.Dims[1] <= 0 || v.Dims[2] <= 0 || len(v.Scalars) == 0
}

// Index returns the offset of voxel (i, j, k) in Scalars.
func (v *Volume) Index(i, j, k int) int {
	return i + j*v.Dims[0] + k*v.Dims[0]*v.Dims[1]
}

// Contains reports whether (i, j, k) is inside the grid.
func (v *Volume) Contains(i, j, k int) bool {
	return i >= 0 && j >= 0 && k >= 0 && i < v.Dims[0] && j < v.Dims[1] && k < v.Dims[2]
}

// At returns the value of voxel (i, j, k).
func (v *Volume) At(i, j, k int) float64 {
	return v.Scalars[v.Index(i, j, k)]
}

// Set stores the value of voxel (i, j, k).
func (v *Volume) Set(i, j, k int, value float64) {
	v.Scalars[v.Index(i, j, k)] = value
}

// Clone returns a deep copy.
func (v *Volume) Clone() *Volume {
	c := *v
	c.Scalars = append([]float64(nil), v.Scalars...)
	return &c
}

// Origin is the world position of voxel (0, 0, 0).
func (v *Volume) Origin() geom.Vec3 {
	return v.IJKToWorld.Column(3)
}

// Spacing is the length of one voxel step along each grid axis.
func (v *Volume) Spacing() geom.Vec3 {
	return geom.Vec3{v.IJKToWorld.Column(0).Norm(), v.IJKToWorld.Column(1).Norm(), v.IJKToWorld.Column(2).Norm()}
}

// Directions are the unit vectors of the grid axes in world space.
func (v *Volume) Directions() [3]geom.Vec3 {
	return [3]geom.Vec3{
		v.IJKToWorld.Column(0).Normalize(),
		v.IJKToWorld.Column(1).Normalize(),
		v.IJKToWorld.Column(2).Normalize(),
	}
}

// WorldBounds is the axis aligned box around the voxel centers.
func (v *Volume) WorldBounds() geom.Bounds {
	var b geom.Bounds
	for _, c := range v.ijkCorners() {
		b.Extend(v.IJKToWorld.Point(c))
	}
	return b
}

func (v *Volume) ijkCorners() [8]geom.Vec3 {
	ijk := geom.Bounds{}
	ijk.Extend(geom.Vec3{0, 0, 0})
	ijk.Extend(geom.Vec3{float64(v.Dims[0] - 1), float64(v.Dims[1] - 1), float64(v.Dims[2] - 1)})
	return ijk.Corners()
}

// Range returns the smallest and largest voxel values.
func (v *Volume) Range() (min, max float64) {
	if len(v.Scalars) == 0 {
		return 0, 0
	}
	min, max = v.Scalars[0], v.Scalars[0]
	for _, s := range v.Scalars[1:] {
		min = math.Min(min, s)
		max = math.Max(max, s)
	}
	return min, max
}

// Scale multiplies every voxel by s.
func (v *Volume) Scale(s float64) {
	for i := range v.Scalars {
		v.Scalars[i] *= s
	}
}

// ApplyTransform moves the grid by m, which is applied after the current placement.
func (v *Volume) ApplyTransform(m geom.Mat4) {
	v.IJKToWorld = m.Mul(v.IJKToWorld)
}

// SameGeometry reports whether both grids have the same dimensions and placement within tol.
func (v *Volume) SameGeometry(o *Volume, tol float64) bool {
	return v.Dims == o.Dims && v.IJKToWorld.Near(o.IJKToWorld, tol)
}

// ContainsShear reports whether the grid axes of m are not mutually orthogonal. Axis pairs whose
// normalized scalar product exceeds eps in magnitude count as sheared; rotations and reflections
// do not.
func ContainsShear(m geom.Mat4, eps float64) bool {
	cols := [3]geom.Vec3{m.Column(0).Normalize(), m.Column(1).Normalize(), m.Column(2).Normalize()}
	for a := 0; a < 3; a++ {
		for b := a + 1; b < 3; b++ {
			if math.Abs(cols[a].Dot(cols[b])) > eps {
				return true
			}
		}
	}
	return false
}

// Interpolation selects how values between voxel centers are computed.
type Interpolation int

const (
	// Nearest takes the value of the closest voxel; used for masks.
	Nearest Interpolation = iota
	// Linear interpolates trilinearly between the eight neighbouring voxels.
	Linear
)

// Sample returns the value at a continuous grid position. Positions outside the grid report false.
func (v *Volume) Sample(p geom.Vec3, interp Interpolation) (float64, bool) {
	const slack = 1e-6
	for axis := 0; axis < 3; axis++ {
		if p[axis] < -0.5-slack || p[axis] > float64(v.Dims[axis])-0.5+slack {
			return 0, false
		}
	}

	if interp == Nearest {
		i, j, k := clamp(round(p[0]), v.Dims[0]), clamp(round(p[1]), v.Dims[1]), clamp(round(p[2]), v.Dims[2])
		return v.At(i, j, k), true
	}

	var base [3]int
	var frac [3]float64
	for axis := 0; axis < 3; axis++ {
		x := math.Max(0, math.Min(p[axis], float64(v.Dims[axis]-1)))
		base[axis] = int(math.Floor(x))
		if base[axis] >= v.Dims[axis]-1 {
			base[axis] = v.Dims[axis] - 1
		}
		frac[axis] = x - float64(base[axis])
	}

	var sum float64
	for corner := 0; corner < 8; corner++ {
		w := 1.0
		var idx [3]int
		for axis := 0; axis < 3; axis++ {
			idx[axis] = base[axis]
			if corner&(1<<axis) != 0 {
				idx[axis]++
				w *= frac[axis]
			} else {
				w *= 1 - frac[axis]
			}
		}
		if w == 0 {
			continue
		}
		sum += w * v.At(clamp(idx[0], v.Dims[0]), clamp(idx[1], v.Dims[1]), clamp(idx[2], v.Dims[2]))
	}
	return sum, true
}

func round(x float64) int {
	return int(math.Floor(x + 0.5))
}

func clamp(i, n int) int {
	if i < 0 {
		return 0
	}
	if i >= n {
		return n - 1
	}
	return i
}

// ErrEmptyVolume is returned when an operation needs at least one voxel.
var ErrEmptyVolume = errors.New("volume has no voxels")

// Resample computes a new grid with the given dimensions and placement whose values are sampled
// from src. Voxels outside of src are zero.
func Resample(src *Volume, dims [3]int, ijkToWorld geom.Mat4, interp Interpolation) (*Volume, error) {
	if src.Empty() {
		return nil, ErrEmptyVolume
	}
	worldToSrc, err := src.IJKToWorld.Inverse()
	if err != nil {
		return nil, fmt.Errorf("inverting source geometry: %v", err)
	}

	dst := New(dims, ijkToWorld)
	toSrc := worldToSrc.Mul(ijkToWorld)
	for k := 0; k < dims[2]; k++ {
		for j := 0; j < dims[1]; j++ {
			for i := 0; i < dims[0]; i++ {
				p := toSrc.Point(geom.Vec3{float64(i), float64(j), float64(k)})
				if value, ok := src.Sample(p, interp); ok {
					dst.Set(i, j, k, value)
				}
			}
		}
	}
	return dst, nil
}

// ResampleLike resamples src onto the grid of ref.
func ResampleLike(src, ref *Volume, interp Interpolation) (*Volume, error) {
	return Resample(src, ref.Dims, ref.IJKToWorld, interp)
}

// ResampleAxisAligned resamples src onto a grid whose axes are the world axes, covering the world
// bounds of src with the spacing of src. The grid directions of the result are the identity.
func ResampleAxisAligned(src *Volume, interp Interpolation) (*Volume, error) {
	if src.Empty() {
		return nil, ErrEmptyVolume
	}
	bounds := src.WorldBounds()
	spacing := src.Spacing()

	var dims [3]int
	for axis := 0; axis < 3; axis++ {
		if spacing[axis] <= 0 {
			return nil, fmt.Errorf("invalid spacing %v", spacing)
		}
		dims[axis] = int(math.Ceil((bounds.Max[axis]-bounds.Min[axis])/spacing[axis]-1e-9)) + 1
	}
	ijkToWorld := geom.Translation(bounds.Min).Mul(geom.Scaling(spacing))
	return Resample(src, dims, ijkToWorld, interp)
}

// Geometry is the placement of a grid without its values.
type Geometry struct {
	Dims       [3]int
	IJKToWorld geom.Mat4
}

// Geometry returns the placement of v.
func (v *Volume) Geometry() Geometry {
	return Geometry{Dims: v.Dims, IJKToWorld: v.IJKToWorld}
}

// NewFromGeometry allocates a zero filled volume placed like g.
func NewFromGeometry(g Geometry) *Volume {
	return New(g.Dims, g.IJKToWorld)
}
