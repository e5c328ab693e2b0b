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

package dicom

import (
	"reflect"
	"testing"
)

func TestDataSet_FindString(t *testing.T) {
	ds := NewDataSet()
	ds.SetStrings(SeriesDescriptionTag)
	ds.SetStrings(ModalityTag, "RTPLAN")

	tests := []struct {
		name      string
		tag       DataElementTag
		want      string
		wantFound bool
	}{
		{"present with value", ModalityTag, "RTPLAN", true},
		{"present without value", SeriesDescriptionTag, "", true},
		{"missing", StudyDescriptionTag, "", false},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got, found := ds.FindString(tc.tag)
			if got != tc.want || found != tc.wantFound {
				t.Fatalf("got (%q, %v), want (%q, %v)", got, found, tc.want, tc.wantFound)
			}
		})
	}
}

func TestDataSet_FindFloat64s(t *testing.T) {
	ds := NewDataSet()
	ds.SetStrings(PixelSpacingTag, "2.5", " 3 ")
	ds.SetStrings(SliceThicknessTag, "abc")
	ds.SetElement(&DataElement{Tag: RowsTag, VR: USVR, ValueField: []uint16{64}})

	if got, ok := ds.FindFloat64s(PixelSpacingTag); !ok || !reflect.DeepEqual(got, []float64{2.5, 3}) {
		t.Fatalf("got (%v, %v), want [2.5 3]", got, ok)
	}
	if _, ok := ds.FindFloat64s(SliceThicknessTag); ok {
		t.Fatalf("expected an unparsable decimal string to be reported")
	}
	if got, ok := ds.FindFloat64(RowsTag); !ok || got != 64 {
		t.Fatalf("got (%v, %v), want 64", got, ok)
	}
	if got, ok := ds.FindInt(RowsTag); !ok || got != 64 {
		t.Fatalf("got (%v, %v), want 64", got, ok)
	}
}

func TestCursor(t *testing.T) {
	ds := NewDataSet()
	var items []*DataSet
	for i := 1; i <= 3; i++ {
		item := NewDataSet()
		item.SetInts(BeamNumberTag, i)
		items = append(items, item)
	}
	ds.SetSequence(BeamSequenceTag, items...)

	var got []int
	for c := ds.FirstItemOf(BeamSequenceTag); c.Valid(); c.Next() {
		n, _ := c.Item().FindInt(BeamNumberTag)
		got = append(got, n)
	}
	if want := []int{1, 2, 3}; !reflect.DeepEqual(got, want) {
		t.Fatalf("got %v, want %v", got, want)
	}

	missing := ds.FirstItemOf(ControlPointSequenceTag)
	if missing.Valid() || missing.Next() || missing.Item() != nil {
		t.Fatalf("expected a cursor over a missing sequence to be invalid")
	}
}

func TestCollectItems(t *testing.T) {
	ds := NewDataSet()
	var items []*DataSet
	for _, name := range []string{"Body", "", "PTV"} {
		item := NewDataSet()
		if name != "" {
			item.SetStrings(ROINameTag, name)
		}
		items = append(items, item)
	}
	ds.SetSequence(StructureSetROISequenceTag, items...)

	names := CollectItems(ds, StructureSetROISequenceTag, func(item *DataSet) (string, bool) {
		return item.FindString(ROINameTag)
	})
	if names.Len() != 2 {
		t.Fatalf("got %d records, want 2", names.Len())
	}

	first, _ := names.First()
	second, _ := names.Next()
	if first != "Body" || second != "PTV" {
		t.Fatalf("got %q, %q, want Body, PTV", first, second)
	}
	if _, ok := names.Next(); ok {
		t.Fatalf("expected the cursor to be exhausted")
	}

	if !names.Set(1, "CTV") {
		t.Fatalf("expected Set to succeed")
	}
	names.Append("GTV")
	if want := []string{"Body", "CTV", "GTV"}; !reflect.DeepEqual(names.All(), want) {
		t.Fatalf("got %v, want %v", names.All(), want)
	}
	if _, ok := names.At(5); ok {
		t.Fatalf("expected At out of range to fail")
	}
}
