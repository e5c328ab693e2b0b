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

func TestDataElementTag(t *testing.T) {
	tests := []struct {
		tag     DataElementTag
		str     string
		group   uint16
		element uint16
		private bool
	}{
		{BeamSequenceTag, "(300A,00B0)", 0x300A, 0x00B0, false},
		{ItemTag, "(FFFE,E000)", 0xFFFE, 0xE000, false},
		{NewTag(0x3007, 0x0010), "(3007,0010)", 0x3007, 0x0010, true},
	}
	for _, tc := range tests {
		t.Run(tc.str, func(t *testing.T) {
			if got := tc.tag.String(); got != tc.str {
				t.Fatalf("got %v, want %v", got, tc.str)
			}
			if got := NewTag(tc.group, tc.element); got != tc.tag {
				t.Fatalf("got %v, want %v", got, tc.tag)
			}
			if tc.tag.GroupNumber() != tc.group || tc.tag.ElementNumber() != tc.element {
				t.Fatalf("got (%04X,%04X), want (%04X,%04X)", tc.tag.GroupNumber(), tc.tag.ElementNumber(), tc.group, tc.element)
			}
			if got := tc.tag.IsPrivate(); got != tc.private {
				t.Fatalf("got private %v, want %v", got, tc.private)
			}
		})
	}
}

func TestDataElementTag_DictionaryVR(t *testing.T) {
	tests := []struct {
		name string
		tag  DataElementTag
		want *VR
	}{
		{"group length", DataElementTag(0x30060000), ULVR},
		{"sequence", ROIContourSequenceTag, SQVR},
		{"decimal string", DoseGridScalingTag, DSVR},
		{"unique identifier", SOPInstanceUIDTag, UIVR},
		{"unknown tag", DataElementTag(0x00431001), UNVR},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if got := tc.tag.DictionaryVR(); got != tc.want {
				t.Fatalf("got %v, want %v", got, tc.want)
			}
		})
	}
}

func TestDataSet_SortedTags(t *testing.T) {
	ds := NewDataSet()
	ds.SetStrings(SOPInstanceUIDTag, "1.2")
	ds.SetStrings(ModalityTag, "RTDOSE")
	ds.SetStrings(TransferSyntaxUIDTag, ExplicitVRLittleEndianUID)

	want := []DataElementTag{TransferSyntaxUIDTag, SOPInstanceUIDTag, ModalityTag}
	if got := ds.SortedTags(); !reflect.DeepEqual(got, want) {
		t.Fatalf("got %v, want %v", got, want)
	}

	meta := ds.MetaElements()
	if len(meta.Elements) != 1 {
		t.Fatalf("got %d meta elements, want 1", len(meta.Elements))
	}
}
