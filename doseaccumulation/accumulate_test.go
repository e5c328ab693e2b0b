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

package doseaccumulation

import (
	"errors"
	"math"
	"testing"

	"github.com/GoogleCloudPlatform/go-dicom-rt/geom"
	"github.com/GoogleCloudPlatform/go-dicom-rt/hierarchy"
	"github.com/GoogleCloudPlatform/go-dicom-rt/scene"
	"github.com/GoogleCloudPlatform/go-dicom-rt/volume"
)

func constant(dims [3]int, m geom.Mat4, value float64) *volume.Volume {
	v := volume.New(dims, m)
	for i := range v.Scalars {
		v.Scalars[i] = value
	}
	return v
}

func addSeries(t *testing.T, h *hierarchy.Hierarchy, store *scene.Store, uid string, p scene.Payload) hierarchy.ItemID {
	t.Helper()
	e := store.Add(uid, p)
	item, err := h.InsertSeries(hierarchy.Series{
		Patient:     hierarchy.Patient{ID: "P1"},
		Study:       hierarchy.Study{InstanceUID: "1.2"},
		InstanceUID: uid,
		Modality:    "RTDOSE",
	})
	if err != nil {
		t.Fatalf("unexpected error %v", err)
	}
	h.SetEntity(item, e.ID)
	return item
}

func TestAccumulate(t *testing.T) {
	h := hierarchy.New()
	store := scene.NewStore()
	ref := addSeries(t, h, store, "1.2.1", scene.NewVolume(scene.KindDoseVolume, constant([3]int{4, 4, 2}, geom.Identity(), 2)))
	// A coarse single slice grid covering the first slice of the reference only.
	coarse := addSeries(t, h, store, "1.2.2", scene.NewVolume(scene.KindDoseVolume, constant([3]int{2, 2, 1}, geom.Scaling(geom.Vec3{3, 3, 1}), 4)))

	a := New(h, store)
	item, id, err := a.Accumulate(ref, []Input{{Item: ref, Weight: 1}, {Item: coarse, Weight: 0.5}})
	if err != nil {
		t.Fatalf("unexpected error %v", err)
	}

	e, ok := store.Get(id)
	if !ok || e.Name != DefaultName || e.Kind() != scene.KindDoseVolume {
		t.Fatalf("got entity %+v, want an accumulated dose volume", e)
	}
	v, _ := e.Volume()
	if v.Image.Dims != [3]int{4, 4, 2} || v.Image.IJKToWorld != geom.Identity() {
		t.Fatalf("got grid %v %v, want the reference grid", v.Image.Dims, v.Image.IJKToWorld)
	}
	tests := []struct {
		k    int
		want float64
	}{
		{0, 4},
		{1, 2},
	}
	for _, tc := range tests {
		for j := 0; j < 4; j++ {
			for i := 0; i < 4; i++ {
				if got := v.Image.At(i, j, tc.k); math.Abs(got-tc.want) > 1e-9 {
					t.Fatalf("voxel (%d, %d, %d): got %v, want %v", i, j, tc.k, got, tc.want)
				}
			}
		}
	}

	if h.Entity(item) != id || h.Parent(item) != h.Parent(ref) {
		t.Fatalf("accumulated dose is not filed under the reference study")
	}
	for _, attr := range []string{hierarchy.AttrDoseVolume, hierarchy.AttrAccumulatedDoseVolume} {
		if got, _ := h.Attribute(item, attr); got != "1" {
			t.Fatalf("%s: got %q, want %q", attr, got, "1")
		}
	}
	if h.UID(item, hierarchy.UIDNamespaceDICOM) == "" {
		t.Fatalf("accumulated dose has no series UID")
	}

	if _, id2, err := a.Accumulate(ref, []Input{{Item: ref, Weight: 1}}); err != nil {
		t.Fatalf("unexpected error %v", err)
	} else if e, _ := store.Get(id2); e.Name != DefaultName+"_1" {
		t.Fatalf("got %q, want %q", e.Name, DefaultName+"_1")
	}
}

func TestAccumulate_Errors(t *testing.T) {
	h := hierarchy.New()
	store := scene.NewStore()
	dose := addSeries(t, h, store, "1.2.1", scene.NewVolume(scene.KindDoseVolume, constant([3]int{2, 2, 2}, geom.Identity(), 1)))
	ct := addSeries(t, h, store, "1.2.2", scene.NewVolume(scene.KindScalarVolume, constant([3]int{2, 2, 2}, geom.Identity(), 1)))
	a := New(h, store)

	tests := []struct {
		name      string
		reference hierarchy.ItemID
		inputs    []Input
		want      error
	}{
		{"no inputs", dose, nil, ErrNoInputs},
		{"reference is not a dose", ct, []Input{{Item: dose, Weight: 1}}, ErrNotDose},
		{"input is not a dose", dose, []Input{{Item: ct, Weight: 1}}, ErrNotDose},
		{"missing item", dose, []Input{{Item: hierarchy.ItemID(999), Weight: 1}}, ErrNotDose},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if _, _, err := a.Accumulate(tc.reference, tc.inputs); !errors.Is(err, tc.want) {
				t.Fatalf("got %v, want %v", err, tc.want)
			}
		})
	}
	if store.Len() != 2 {
		t.Fatalf("got %d entities, want 2", store.Len())
	}
}
