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

package registry

import (
	"fmt"
	"os"
	"path/filepath"
	"reflect"
	"testing"

	"github.com/GoogleCloudPlatform/go-dicom-rt/dicom"
	"github.com/GoogleCloudPlatform/go-dicom-rt/geom"
	"github.com/GoogleCloudPlatform/go-dicom-rt/rtobject/rttest"
)

func openTestRegistry(t *testing.T) *Registry {
	t.Helper()
	r, err := OpenMem()
	if err != nil {
		t.Fatalf("unexpected error %v", err)
	}
	t.Cleanup(func() { r.Close() })
	return r
}

func TestRegistry_PutLookup(t *testing.T) {
	r := openTestRegistry(t)
	rec := Record{
		Path:              "/data/plan.dcm",
		SOPClassUID:       dicom.RTPlanStorage,
		SOPInstanceUID:    "1.2.3",
		SeriesInstanceUID: "1.2",
		Values:            map[string]string{dicom.RTPlanLabelTag.String(): "Prostate"},
	}
	if err := r.Put(rec); err != nil {
		t.Fatalf("unexpected error %v", err)
	}

	got, ok, err := r.Lookup("1.2.3")
	if err != nil || !ok {
		t.Fatalf("got ok=%v err=%v, want a record", ok, err)
	}
	if !reflect.DeepEqual(got, rec) {
		t.Fatalf("got %+v, want %+v", got, rec)
	}
	if got := r.FileForInstance("1.2.3"); got != rec.Path {
		t.Fatalf("got %q, want %q", got, rec.Path)
	}
	if got := r.FileValue(rec.Path, dicom.RTPlanLabelTag); got != "Prostate" {
		t.Fatalf("got %q, want %q", got, "Prostate")
	}
}

func TestRegistry_Missing(t *testing.T) {
	r := openTestRegistry(t)
	tests := []struct {
		name string
		got  string
	}{
		{"unknown instance", r.FileForInstance("9.9")},
		{"unknown path", r.FileValue("/nowhere", dicom.RTPlanLabelTag)},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if tc.got != "" {
				t.Fatalf("got %q, want empty", tc.got)
			}
		})
	}
	if _, ok, err := r.Lookup("9.9"); ok || err != nil {
		t.Fatalf("got ok=%v err=%v, want not found", ok, err)
	}
}

func TestRegistry_PutMovesFile(t *testing.T) {
	r := openTestRegistry(t)
	rec := Record{Path: "/a.dcm", SOPInstanceUID: "1", SeriesInstanceUID: "s"}
	if err := r.Put(rec); err != nil {
		t.Fatalf("unexpected error %v", err)
	}
	rec.Path = "/b.dcm"
	if err := r.Put(rec); err != nil {
		t.Fatalf("unexpected error %v", err)
	}
	if _, ok, _ := r.LookupPath("/a.dcm"); ok {
		t.Fatalf("old path still indexed")
	}
	files, err := r.SeriesFiles("s")
	if err != nil {
		t.Fatalf("unexpected error %v", err)
	}
	if want := []string{"/b.dcm"}; !reflect.DeepEqual(files, want) {
		t.Fatalf("got %v, want %v", files, want)
	}
}

func TestRegistry_PutRequiresUID(t *testing.T) {
	r := openTestRegistry(t)
	if err := r.Put(Record{Path: "/x"}); err == nil {
		t.Fatalf("expected error for a record without SOP Instance UID")
	}
}

func TestRegistry_IndexDirectory(t *testing.T) {
	dir := t.TempDir()
	id := rttest.Identity{PatientID: "P1", StudyInstanceUID: "1.2", SeriesInstanceUID: "1.2.5", SOPInstanceUID: "1.2.5.1"}
	plan := rttest.Plan(id, "Prostate", "Prostate VMAT", rttest.Beam{Number: 1, Isocenter: geom.Vec3{0, 0, 0}})
	planPath := filepath.Join(dir, "plan.dcm")
	if err := dicom.WriteFile(planPath, plan); err != nil {
		t.Fatalf("unexpected error %v", err)
	}

	ctID := id
	ctID.SeriesInstanceUID = "1.2.6"
	g := rttest.Grid{Columns: 2, Rows: 2, Frames: 2, Spacing: geom.Vec3{1, 1, 1}}
	if err := os.MkdirAll(filepath.Join(dir, "ct"), 0o755); err != nil {
		t.Fatalf("unexpected error %v", err)
	}
	for i, ds := range rttest.CTSeries(ctID, "f", g, func(i, j, k int) uint16 { return 0 }) {
		if err := dicom.WriteFile(filepath.Join(dir, "ct", fmt.Sprintf("slice%d.dcm", i)), ds); err != nil {
			t.Fatalf("unexpected error %v", err)
		}
	}
	if err := os.WriteFile(filepath.Join(dir, "README"), []byte("x"), 0o644); err != nil {
		t.Fatalf("unexpected error %v", err)
	}

	r := openTestRegistry(t)
	n, err := r.IndexDirectory(dir)
	if err != nil {
		t.Fatalf("unexpected error %v", err)
	}
	if n != 3 {
		t.Fatalf("got %d files, want 3", n)
	}
	if got := r.FileForInstance("1.2.5.1"); got != planPath {
		t.Fatalf("got %q, want %q", got, planPath)
	}
	if got := r.FileValue(planPath, dicom.RTPlanNameTag); got != "Prostate VMAT" {
		t.Fatalf("got %q, want %q", got, "Prostate VMAT")
	}
	files, err := r.SeriesFiles("1.2.6")
	if err != nil {
		t.Fatalf("unexpected error %v", err)
	}
	if len(files) != 2 {
		t.Fatalf("got %v, want 2 files", files)
	}
}
