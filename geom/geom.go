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

// Package geom holds the small amount of 3D linear algebra used to place volumes, beams and
// contours in the patient coordinate system. Angles are in degrees and lengths in millimetres.
package geom

import (
	"fmt"
	"math"
)

// Vec3 is a point or direction in 3D space.
type Vec3 [3]float64

// Add returns v + w.
func (v Vec3) Add(w Vec3) Vec3 {
	return Vec3{v[0] + w[0], v[1] + w[1], v[2] + w[2]}
}

// Sub returns v - w.
func (v Vec3) Sub(w Vec3) Vec3 {
	return Vec3{v[0] - w[0], v[1] - w[1], v[2] - w[2]}
}

// Scale returns s * v.
func (v Vec3) Scale(s float64) Vec3 {
	return Vec3{s * v[0], s * v[1], s * v[2]}
}

// Dot returns the scalar product of v and w.
func (v Vec3) Dot(w Vec3) float64 {
	return v[0]*w[0] + v[1]*w[1] + v[2]*w[2]
}

// Cross returns the vector product v × w.
func (v Vec3) Cross(w Vec3) Vec3 {
	return Vec3{
		v[1]*w[2] - v[2]*w[1],
		v[2]*w[0] - v[0]*w[2],
		v[0]*w[1] - v[1]*w[0],
	}
}

// Norm is the euclidean length of v.
func (v Vec3) Norm() float64 {
	return math.Sqrt(v.Dot(v))
}

// Normalize returns v scaled to unit length. The zero vector is returned unchanged.
func (v Vec3) Normalize() Vec3 {
	n := v.Norm()
	if n == 0 {
		return v
	}
	return v.Scale(1 / n)
}

// Near reports whether every component of v and w differs by at most tol.
func (v Vec3) Near(w Vec3, tol float64) bool {
	for i := range v {
		if math.Abs(v[i]-w[i]) > tol {
			return false
		}
	}
	return true
}

// LPSToRAS converts a DICOM patient (LPS) coordinate into the RAS world frame and back.
func LPSToRAS(v Vec3) Vec3 {
	return Vec3{-v[0], -v[1], v[2]}
}

// Mat4 is a row-major homogeneous transform. Points are column vectors, so in a.Mul(b) the
// transform b is applied first.
type Mat4 [4][4]float64

// Identity returns the identity transform.
func Identity() Mat4 {
	return Mat4{{1, 0, 0, 0}, {0, 1, 0, 0}, {0, 0, 1, 0}, {0, 0, 0, 1}}
}

// Translation returns a transform moving points by t.
func Translation(t Vec3) Mat4 {
	m := Identity()
	m[0][3], m[1][3], m[2][3] = t[0], t[1], t[2]
	return m
}

// Scaling returns a transform scaling each axis independently.
func Scaling(s Vec3) Mat4 {
	m := Identity()
	m[0][0], m[1][1], m[2][2] = s[0], s[1], s[2]
	return m
}

// LPSToRASMatrix flips the first two axes.
func LPSToRASMatrix() Mat4 {
	return Scaling(Vec3{-1, -1, 1})
}

// RotationX returns a right handed rotation about the x axis.
func RotationX(degrees float64) Mat4 {
	s, c := math.Sincos(degrees * math.Pi / 180)
	m := Identity()
	m[1][1], m[1][2] = c, -s
	m[2][1], m[2][2] = s, c
	return m
}

// RotationY returns a right handed rotation about the y axis.
func RotationY(degrees float64) Mat4 {
	s, c := math.Sincos(degrees * math.Pi / 180)
	m := Identity()
	m[0][0], m[0][2] = c, s
	m[2][0], m[2][2] = -s, c
	return m
}

// RotationZ returns a right handed rotation about the z axis.
func RotationZ(degrees float64) Mat4 {
	s, c := math.Sincos(degrees * math.Pi / 180)
	m := Identity()
	m[0][0], m[0][1] = c, -s
	m[1][0], m[1][1] = s, c
	return m
}

// Mul returns the product m·n.
func (m Mat4) Mul(n Mat4) Mat4 {
	var r Mat4
	for i := 0; i < 4; i++ {
		for j := 0; j < 4; j++ {
			for k := 0; k < 4; k++ {
				r[i][j] += m[i][k] * n[k][j]
			}
		}
	}
	return r
}

// Concatenate multiplies the transforms left to right, so the last one is applied to a point
// first.
func Concatenate(ms ...Mat4) Mat4 {
	r := Identity()
	for _, m := range ms {
		r = r.Mul(m)
	}
	return r
}

// Point transforms a position.
func (m Mat4) Point(p Vec3) Vec3 {
	var r Vec3
	for i := 0; i < 3; i++ {
		r[i] = m[i][0]*p[0] + m[i][1]*p[1] + m[i][2]*p[2] + m[i][3]
	}
	return r
}

// Direction transforms a vector, ignoring the translation.
func (m Mat4) Direction(d Vec3) Vec3 {
	var r Vec3
	for i := 0; i < 3; i++ {
		r[i] = m[i][0]*d[0] + m[i][1]*d[1] + m[i][2]*d[2]
	}
	return r
}

// Column returns the upper three entries of column j.
func (m Mat4) Column(j int) Vec3 {
	return Vec3{m[0][j], m[1][j], m[2][j]}
}

// SetColumn replaces the upper three entries of column j.
func (m *Mat4) SetColumn(j int, v Vec3) {
	m[0][j], m[1][j], m[2][j] = v[0], v[1], v[2]
}

// Inverse returns the inverse of m using Gauss-Jordan elimination with partial pivoting.
func (m Mat4) Inverse() (Mat4, error) {
	a := m
	inv := Identity()
	for col := 0; col < 4; col++ {
		pivot := col
		for r := col + 1; r < 4; r++ {
			if math.Abs(a[r][col]) > math.Abs(a[pivot][col]) {
				pivot = r
			}
		}
		if math.Abs(a[pivot][col]) < 1e-12 {
			return Mat4{}, fmt.Errorf("singular matrix %v", m)
		}
		a[col], a[pivot] = a[pivot], a[col]
		inv[col], inv[pivot] = inv[pivot], inv[col]

		d := a[col][col]
		for j := 0; j < 4; j++ {
			a[col][j] /= d
			inv[col][j] /= d
		}
		for r := 0; r < 4; r++ {
			if r == col {
				continue
			}
			f := a[r][col]
			for j := 0; j < 4; j++ {
				a[r][j] -= f * a[col][j]
				inv[r][j] -= f * inv[col][j]
			}
		}
	}
	return inv, nil
}

// Near reports whether every entry of m and n differs by at most tol.
func (m Mat4) Near(n Mat4, tol float64) bool {
	for i := 0; i < 4; i++ {
		for j := 0; j < 4; j++ {
			if math.Abs(m[i][j]-n[i][j]) > tol {
				return false
			}
		}
	}
	return true
}

// Plane is an oriented plane through Origin.
type Plane struct {
	Origin Vec3
	Normal Vec3
}

// SignedDistance is the distance of p from the plane along its normal, assuming a unit normal.
func (pl Plane) SignedDistance(p Vec3) float64 {
	return p.Sub(pl.Origin).Dot(pl.Normal)
}

// Bounds is an axis aligned box. The zero value is empty.
type Bounds struct {
	Min, Max Vec3
	valid    bool
}

// Extend grows b to contain p.
func (b *Bounds) Extend(p Vec3) {
	if !b.valid {
		b.Min, b.Max, b.valid = p, p, true
		return
	}
	for i := 0; i < 3; i++ {
		b.Min[i] = math.Min(b.Min[i], p[i])
		b.Max[i] = math.Max(b.Max[i], p[i])
	}
}

// Empty reports whether no point was added.
func (b Bounds) Empty() bool {
	return !b.valid
}

// Corners returns the eight corners of the box.
func (b Bounds) Corners() [8]Vec3 {
	var c [8]Vec3
	for i := 0; i < 8; i++ {
		for axis := 0; axis < 3; axis++ {
			if i&(1<<axis) != 0 {
				c[i][axis] = b.Max[axis]
			} else {
				c[i][axis] = b.Min[axis]
			}
		}
	}
	return c
}
