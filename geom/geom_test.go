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

package geom

import (
	"testing"
)

const tol = 1e-9

func TestRotations(t *testing.T) {
	tests := []struct {
		name string
		m    Mat4
		in   Vec3
		want Vec3
	}{
		{"x by 90 maps y onto z", RotationX(90), Vec3{0, 1, 0}, Vec3{0, 0, 1}},
		{"y by 90 maps z onto x", RotationY(90), Vec3{0, 0, 1}, Vec3{1, 0, 0}},
		{"z by 90 maps x onto y", RotationZ(90), Vec3{1, 0, 0}, Vec3{0, 1, 0}},
		{"z by -90 maps x onto -y", RotationZ(-90), Vec3{1, 0, 0}, Vec3{0, -1, 0}},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if got := tc.m.Point(tc.in); !got.Near(tc.want, tol) {
				t.Fatalf("got %v, want %v", got, tc.want)
			}
		})
	}
}

func TestConcatenate_AppliesLastFirst(t *testing.T) {
	m := Concatenate(Translation(Vec3{10, 0, 0}), Scaling(Vec3{2, 2, 2}))
	if got, want := m.Point(Vec3{1, 1, 1}), (Vec3{12, 2, 2}); !got.Near(want, tol) {
		t.Fatalf("got %v, want %v", got, want)
	}
}

func TestInverse(t *testing.T) {
	m := Concatenate(Translation(Vec3{5, -3, 2}), RotationZ(30), Scaling(Vec3{0.5, 2, 3}))
	inv, err := m.Inverse()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := m.Mul(inv); !got.Near(Identity(), tol) {
		t.Fatalf("m·m⁻¹ = %v, want identity", got)
	}

	if _, err := Scaling(Vec3{1, 0, 1}).Inverse(); err == nil {
		t.Fatalf("expected a singular matrix error")
	}
}

func TestPlane_SignedDistance(t *testing.T) {
	pl := Plane{Origin: Vec3{0, 0, 5}, Normal: Vec3{0, 0, 1}}
	if got := pl.SignedDistance(Vec3{3, 4, 2}); got != -3 {
		t.Fatalf("got %v, want -3", got)
	}
}

func TestBounds(t *testing.T) {
	var b Bounds
	if !b.Empty() {
		t.Fatalf("expected zero bounds to be empty")
	}
	b.Extend(Vec3{1, 2, 3})
	b.Extend(Vec3{-1, 5, 0})
	if b.Min != (Vec3{-1, 2, 0}) || b.Max != (Vec3{1, 5, 3}) {
		t.Fatalf("got %v..%v", b.Min, b.Max)
	}
	if c := b.Corners(); c[7] != b.Max || c[0] != b.Min {
		t.Fatalf("got corners %v", c)
	}
}

func TestLPSToRAS(t *testing.T) {
	if got := LPSToRAS(Vec3{1, 2, 3}); got != (Vec3{-1, -2, 3}) {
		t.Fatalf("got %v", got)
	}
	if got := LPSToRASMatrix().Point(Vec3{1, 2, 3}); got != (Vec3{-1, -2, 3}) {
		t.Fatalf("got %v", got)
	}
}
