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

package volume

import (
	"testing"

	"github.com/GoogleCloudPlatform/go-dicom-rt/geom"
)

func TestContainsShear(t *testing.T) {
	sheared := geom.Scaling(geom.Vec3{1, 2, 3})
	sheared[0][1] = 0.5

	tests := []struct {
		name string
		m    geom.Mat4
		want bool
	}{
		{"identity", geom.Identity(), false},
		{"anisotropic spacing", geom.Scaling(geom.Vec3{0.5, 0.5, 2.5}), false},
		{"LPS to RAS flip", geom.LPSToRASMatrix(), false},
		{"rotation", geom.RotationZ(30).Mul(geom.Scaling(geom.Vec3{2, 2, 2})), false},
		{"off-diagonal shear term", sheared, true},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if got := ContainsShear(tc.m, 1e-4); got != tc.want {
				t.Fatalf("got %v, want %v", got, tc.want)
			}
		})
	}
}

func TestScale_IsExact(t *testing.T) {
	raw := []float64{0, 1, 3, 65535, 123456}
	v := New([3]int{len(raw), 1, 1}, geom.Identity())
	copy(v.Scalars, raw)

	const s = 0.01
	v.Scale(s)
	for i, r := range raw {
		if v.Scalars[i] != r*s {
			t.Fatalf("voxel %d: got %v, want %v", i, v.Scalars[i], r*s)
		}
	}
}

func TestSample(t *testing.T) {
	v := New([3]int{2, 1, 1}, geom.Identity())
	v.Scalars = []float64{10, 20}

	tests := []struct {
		name   string
		p      geom.Vec3
		interp Interpolation
		want   float64
		ok     bool
	}{
		{"linear midpoint", geom.Vec3{0.5, 0, 0}, Linear, 15, true},
		{"nearest", geom.Vec3{0.6, 0, 0}, Nearest, 20, true},
		{"outside", geom.Vec3{3, 0, 0}, Linear, 0, false},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got, ok := v.Sample(tc.p, tc.interp)
			if got != tc.want || ok != tc.ok {
				t.Fatalf("got (%v, %v), want (%v, %v)", got, ok, tc.want, tc.ok)
			}
		})
	}
}

func TestResampleLike_SameGeometryIsCopy(t *testing.T) {
	m := geom.Translation(geom.Vec3{-10, 5, 2}).Mul(geom.Scaling(geom.Vec3{2, 2, 3}))
	src := New([3]int{3, 2, 2}, m)
	for i := range src.Scalars {
		src.Scalars[i] = float64(i)
	}

	got, err := ResampleLike(src, src, Nearest)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !got.SameGeometry(src, 0) {
		t.Fatalf("geometry changed")
	}
	for i := range src.Scalars {
		if got.Scalars[i] != src.Scalars[i] {
			t.Fatalf("voxel %d: got %v, want %v", i, got.Scalars[i], src.Scalars[i])
		}
	}
}

func TestResampleAxisAligned(t *testing.T) {
	m := geom.Identity()
	m[0][2] = 1 // each slice shifts one voxel along x
	src := New([3]int{2, 2, 2}, m)
	for i := range src.Scalars {
		src.Scalars[i] = 1
	}
	if !ContainsShear(src.IJKToWorld, 1e-4) {
		t.Fatalf("expected the source to be sheared")
	}

	got, err := ResampleAxisAligned(src, Nearest)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if ContainsShear(got.IJKToWorld, 1e-4) {
		t.Fatalf("expected an axis aligned result, got %v", got.IJKToWorld)
	}
	if got.Dims != [3]int{3, 2, 2} {
		t.Fatalf("got dims %v, want [3 2 2]", got.Dims)
	}
	// slice 0 covers x in {0, 1}, slice 1 covers x in {1, 2}
	if got.At(0, 0, 0) != 1 || got.At(2, 0, 0) != 0 || got.At(2, 0, 1) != 1 || got.At(0, 0, 1) != 0 {
		t.Fatalf("unexpected values %v", got.Scalars)
	}
}

func TestResample_EmptySource(t *testing.T) {
	if _, err := ResampleAxisAligned(New([3]int{0, 1, 1}, geom.Identity()), Linear); err != ErrEmptyVolume {
		t.Fatalf("got %v, want %v", err, ErrEmptyVolume)
	}
}
