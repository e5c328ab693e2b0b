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

package hierarchy

import (
	"errors"
	"reflect"
	"testing"

	"github.com/GoogleCloudPlatform/go-dicom-rt/scene"
)

func testSeries(patientID, studyUID, seriesUID string) Series {
	return Series{
		Patient: Patient{Name: "Doe^Jane", ID: patientID, BirthDate: "19700101"},
		Study:   Study{InstanceUID: studyUID, ID: "S1", Description: "Pelvis", Date: "20200202"},

		InstanceUID:     seriesUID,
		Modality:        "RTDOSE",
		SeriesNumber:    "3",
		Name:            "RTDOSE: Plan dose",
		SOPInstanceUIDs: []string{seriesUID + ".1"},
	}
}

func TestInsert_ReusesPatientAndStudy(t *testing.T) {
	h := New()
	s1, newPatient, newStudy, err := h.Insert("P1", "1.2.1", "1.2.1.1")
	if err != nil {
		t.Fatalf("unexpected error %v", err)
	}
	if !newPatient || !newStudy {
		t.Fatalf("got newPatient=%v newStudy=%v, want true true", newPatient, newStudy)
	}
	s2, newPatient, newStudy, err := h.Insert("P1", "1.2.1", "1.2.1.2")
	if err != nil {
		t.Fatalf("unexpected error %v", err)
	}
	if newPatient || newStudy {
		t.Fatalf("got newPatient=%v newStudy=%v, want false false", newPatient, newStudy)
	}
	if h.Parent(s1) != h.Parent(s2) {
		t.Fatalf("series filed under different studies %v and %v", h.Parent(s1), h.Parent(s2))
	}
	again, _, _, err := h.Insert("P1", "1.2.1", "1.2.1.1")
	if err != nil {
		t.Fatalf("unexpected error %v", err)
	}
	if again != s1 {
		t.Fatalf("got %v, want %v", again, s1)
	}
	if got := h.AncestorAtLevel(s2, LevelPatient); got != h.FindByUID(UIDNamespaceDICOM, "P1") {
		t.Fatalf("got patient %v, want %v", got, h.FindByUID(UIDNamespaceDICOM, "P1"))
	}
}

func TestInsert_EmptySeriesUID(t *testing.T) {
	h := New()
	if _, _, _, err := h.Insert("P1", "1.2", ""); err == nil {
		t.Fatalf("expected error for empty series UID")
	}
}

func TestInsert_RollsBackOnUIDConflict(t *testing.T) {
	h := New()
	if _, _, _, err := h.Insert("P1", "1.2", "1.2.1"); err != nil {
		t.Fatalf("unexpected error %v", err)
	}
	before := h.Len()

	// Series UID "1.2" is already held by a study.
	if _, _, _, err := h.Insert("P2", "1.3", "1.2"); !errors.Is(err, ErrUIDInUse) {
		t.Fatalf("got %v, want %v", err, ErrUIDInUse)
	}
	if got := h.Len(); got != before {
		t.Fatalf("got %d items, want %d", got, before)
	}
	for _, uid := range []string{"P2", "1.3"} {
		if got := h.FindByUID(UIDNamespaceDICOM, uid); got != InvalidItemID {
			t.Fatalf("got item %v for %q, want %v", got, uid, InvalidItemID)
		}
	}

	// A new study under an existing patient leaves the patient in place.
	if _, _, _, err := h.Insert("P1", "1.4", "1.2"); !errors.Is(err, ErrUIDInUse) {
		t.Fatalf("got %v, want %v", err, ErrUIDInUse)
	}
	if got := h.Len(); got != before {
		t.Fatalf("got %d items, want %d", got, before)
	}
	if got := h.FindByUID(UIDNamespaceDICOM, "P1"); got == InvalidItemID {
		t.Fatalf("existing patient was removed")
	}
}

func TestFindByUID_NotFound(t *testing.T) {
	h := New()
	if got := h.FindByUID(UIDNamespaceDICOM, "1.2.3"); got != InvalidItemID {
		t.Fatalf("got %v, want %v", got, InvalidItemID)
	}
}

func TestSetUID_InUse(t *testing.T) {
	h := New()
	a := h.CreateItem(h.SceneItem(), "a", LevelFolder)
	b := h.CreateItem(h.SceneItem(), "b", LevelFolder)
	if err := h.SetUID(a, UIDNamespaceInstance, "1.2.3"); err != nil {
		t.Fatalf("unexpected error %v", err)
	}
	if err := h.SetUID(b, UIDNamespaceInstance, "1.2.3"); !errors.Is(err, ErrUIDInUse) {
		t.Fatalf("got %v, want %v", err, ErrUIDInUse)
	}
	if err := h.SetUID(b, UIDNamespaceDICOM, "1.2.3"); err != nil {
		t.Fatalf("UIDs of different namespaces must not collide: %v", err)
	}
	if got := h.FindByUID(UIDNamespaceInstance, "1.2.3"); got != a {
		t.Fatalf("got %v, want %v", got, a)
	}
}

func TestSetUIDs_ReplacesIndex(t *testing.T) {
	h := New()
	a := h.CreateItem(h.SceneItem(), "a", LevelSeries)
	if err := h.SetUIDs(a, UIDNamespaceInstance, []string{"1", "2"}); err != nil {
		t.Fatalf("unexpected error %v", err)
	}
	if err := h.SetUIDs(a, UIDNamespaceInstance, []string{"3"}); err != nil {
		t.Fatalf("unexpected error %v", err)
	}
	if got := h.FindByUID(UIDNamespaceInstance, "1"); got != InvalidItemID {
		t.Fatalf("got %v, want %v", got, InvalidItemID)
	}
	if got := h.UID(a, UIDNamespaceInstance); got != "3" {
		t.Fatalf("got %q, want %q", got, "3")
	}
}

func TestInsertSeries_FirstCreationBackfill(t *testing.T) {
	h := New(WithNameOptions(NameOptions{DisplayStudyDate: true}))
	first, err := h.InsertSeries(testSeries("P1", "1.2", "1.2.1"))
	if err != nil {
		t.Fatalf("unexpected error %v", err)
	}

	later := testSeries("P1", "1.2", "1.2.2")
	later.Patient.Name = "Other^Name"
	later.Study.Description = "Head"
	second, err := h.InsertSeries(later)
	if err != nil {
		t.Fatalf("unexpected error %v", err)
	}

	study := h.Parent(first)
	patient := h.Parent(study)
	if h.Parent(second) != study {
		t.Fatalf("got study %v, want %v", h.Parent(second), study)
	}
	if got, _ := h.Attribute(patient, AttrPatientName); got != "Doe^Jane" {
		t.Fatalf("got %q, want %q", got, "Doe^Jane")
	}
	if got := h.Name(patient); got != "Doe^Jane" {
		t.Fatalf("got %q, want %q", got, "Doe^Jane")
	}
	if got := h.Name(study); got != "Pelvis (20200202)" {
		t.Fatalf("got %q, want %q", got, "Pelvis (20200202)")
	}
	if got := h.Name(first); got != "RTDOSE: Plan dose" {
		t.Fatalf("got %q, want %q", got, "RTDOSE: Plan dose")
	}
	if got, _ := h.Attribute(second, AttrSeriesModality); got != "RTDOSE" {
		t.Fatalf("got %q, want %q", got, "RTDOSE")
	}
	if got := h.FindByUID(UIDNamespaceInstance, "1.2.2.1"); got != second {
		t.Fatalf("got %v, want %v", got, second)
	}
}

func TestInsertSeries_Placeholders(t *testing.T) {
	h := New(WithNameOptions(NameOptions{DisplayPatientID: true}))
	s := testSeries("P9", "9.9", "9.9.1")
	s.Patient.Name = ""
	s.Study.Description = ""
	s.Name = ""
	series, err := h.InsertSeries(s)
	if err != nil {
		t.Fatalf("unexpected error %v", err)
	}
	study := h.Parent(series)
	tests := []struct {
		name string
		item ItemID
		want string
	}{
		{"series", series, DefaultSeriesName},
		{"study", study, DefaultStudyDescription},
		{"patient", h.Parent(study), DefaultPatientName + " (P9)"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if got := h.Name(tc.item); got != tc.want {
				t.Fatalf("got %q, want %q", got, tc.want)
			}
		})
	}
}

func TestBatch_SuppressesEvents(t *testing.T) {
	var events []EventType
	h := New(WithListener(func(e Event) { events = append(events, e.Type) }))

	h.StartBatch()
	h.StartBatch()
	id := h.CreateItem(h.SceneItem(), "x", LevelFolder)
	h.SetAttribute(id, "k", "v")
	h.EndBatch()
	if len(events) != 0 {
		t.Fatalf("got %v events inside batch, want none", events)
	}
	h.EndBatch()
	if want := []EventType{BatchProcessed}; !reflect.DeepEqual(events, want) {
		t.Fatalf("got %v, want %v", events, want)
	}

	events = nil
	h.SetAttribute(id, "k", "v")
	if len(events) != 0 {
		t.Fatalf("setting an unchanged attribute sent %v", events)
	}
	h.SetAttribute(id, "k", "w")
	if want := []EventType{AttributeModified}; !reflect.DeepEqual(events, want) {
		t.Fatalf("got %v, want %v", events, want)
	}
}

func TestReferencedItems_ForwardReferences(t *testing.T) {
	h := New()
	dose := h.CreateItem(h.SceneItem(), "dose", LevelSeries)
	h.SetAttribute(dose, AttrReferencedInstanceUIDs, "1.2.plan 1.2.missing")
	if got := h.ReferencedItems(dose); len(got) != 0 {
		t.Fatalf("got %v before the plan is loaded, want none", got)
	}

	plan := h.CreateItem(h.SceneItem(), "plan", LevelSeries)
	if err := h.SetUID(plan, UIDNamespaceInstance, "1.2.plan"); err != nil {
		t.Fatalf("unexpected error %v", err)
	}
	if got, want := h.ReferencedItems(dose), []ItemID{plan}; !reflect.DeepEqual(got, want) {
		t.Fatalf("got %v, want %v", got, want)
	}
	if got, want := h.ReferencingItems(plan), []ItemID{dose}; !reflect.DeepEqual(got, want) {
		t.Fatalf("got %v, want %v", got, want)
	}
}

func TestEntityLinks(t *testing.T) {
	h := New()
	id := h.CreateEntityItem(h.SceneItem(), "vol", scene.ID(7))
	if got := h.ItemByEntity(7); got != id {
		t.Fatalf("got %v, want %v", got, id)
	}
	h.RemoveItem(id)
	if got := h.ItemByEntity(7); got != InvalidItemID {
		t.Fatalf("got %v, want %v", got, InvalidItemID)
	}
	if h.Exists(id) {
		t.Fatalf("item %v still exists", id)
	}
}

func TestSetParent_RejectsCycles(t *testing.T) {
	h := New()
	a := h.CreateItem(h.SceneItem(), "a", LevelFolder)
	b := h.CreateItem(a, "b", LevelFolder)
	if err := h.SetParent(a, b); err == nil {
		t.Fatalf("expected error moving an item under its descendant")
	}
	if err := h.SetParent(b, h.SceneItem()); err != nil {
		t.Fatalf("unexpected error %v", err)
	}
	if got, want := h.Children(h.SceneItem()), []ItemID{a, b}; !reflect.DeepEqual(got, want) {
		t.Fatalf("got %v, want %v", got, want)
	}
}
