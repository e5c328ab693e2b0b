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
	"bytes"
	"encoding/binary"
	"reflect"
	"testing"
)

func TestReadDataElement(t *testing.T) {
	// see http://dicom.nema.org/medical/dicom/current/output/html/part05.html#sect_7.1.2 for byte
	// structure
	testCases := []struct {
		name     string
		bytes    []byte
		syntax   transferSyntax
		expected *DataElement
		err      error
	}{
		{
			"unsigned long ExplicitVRLittleEndian",
			[]byte{0x02, 0x00, 0x00, 0x00, 'U', 'L', 0x04, 0x00, 0xCA, 0x00, 0x00, 0x00},
			explicitVRLittleEndian,
			&DataElement{0x00020000, ULVR, []uint32{202}, 4},
			nil,
		},
		{
			"unsigned short ImplicitVRLittleEndian uses the dictionary VR",
			[]byte{0x28, 0x00, 0x10, 0x00, 0x02, 0x00, 0x00, 0x00, 0x00, 0x02},
			implicitVRLittleEndian,
			&DataElement{RowsTag, USVR, []uint16{512}, 2},
			nil,
		},
		{
			"decimal string ExplicitVRBigEndian",
			[]byte{0x30, 0x04, 0x00, 0x0E, 'D', 'S', 0x00, 0x04, '0', '.', '5', ' '},
			explicitVRBigEndian,
			&DataElement{DoseGridScalingTag, DSVR, []string{"0.5"}, 4},
			nil,
		},
		{
			"Item Delimination Item",
			[]byte{0xFE, 0xFF, 0x0D, 0xE0, 0x00, 0x00, 0x00, 0x00},
			explicitVRLittleEndian,
			nil,
			errItemDelimiter,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			p := &parser{}
			element, err := p.readDataElement(dcmReaderFromBytes(tc.bytes), tc.syntax, nil, 0)
			if err != tc.err {
				t.Fatalf("readDataElement(_, _) => (%v, %v), want (%v, %v)",
					element, err, tc.expected, tc.err)
			}

			if tc.expected != nil && !reflect.DeepEqual(*element, *tc.expected) {
				t.Fatalf("readDataElement(_, _) => (%v, %v) want (%v, %v)",
					*element, err, *tc.expected, tc.err)
			}
		})
	}
}

func TestReadValueLength(t *testing.T) {
	// testing format outlined in Table 7.1-1 and 7.1-2 is respected
	// http://dicom.nema.org/medical/dicom/current/output/html/part05.html#sect_6.2
	testCases := []struct {
		name     string
		bytes    []byte
		vr       *VR
		syntax   transferSyntax
		expected uint32
	}{
		{
			"Sequence explicitVRLittleEndian",
			[]byte{0x00, 0x00, 0x11, 0x22, 0x33, 0x44},
			SQVR,
			explicitVRLittleEndian,
			0x44332211,
		},
		{
			"Sequence explicitVRBigEndian",
			[]byte{0x00, 0x00, 0x11, 0x22, 0x33, 0x44},
			SQVR,
			explicitVRBigEndian,
			0x11223344,
		},
		{
			"unsigned short explicitVRLittleEndian",
			[]byte{0x11, 0x22},
			USVR,
			explicitVRLittleEndian,
			0x2211,
		},
		{
			"unsigned short implicitVRLittleEndian",
			[]byte{0x11, 0x22, 0x00, 0x00},
			USVR,
			implicitVRLittleEndian,
			0x2211,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := tc.syntax.readValueLength(dcmReaderFromBytes(tc.bytes), tc.vr)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tc.expected {
				t.Fatalf("got %x, want %x", got, tc.expected)
			}
		})
	}
}

func doseFileBody() [][]byte {
	le := binary.LittleEndian
	return [][]byte{
		elementBytes(le, SOPClassUIDTag, "UI", paddedText(RTDoseStorage, 0x00)),
		elementBytes(le, SOPInstanceUIDTag, "UI", paddedText("1.2.3.10", 0x00)),
		elementBytes(le, DoseGridScalingTag, "DS", paddedText("0.01", ' ')),
		headerBytes(le, ReferencedRTPlanSequenceTag, "SQ", UndefinedLength),
		delimiterBytes(le, ItemTag, UndefinedLength),
		elementBytes(le, ReferencedSOPInstanceUIDTag, "UI", paddedText("1.2.3.4", 0x00)),
		delimiterBytes(le, ItemDelimitationItemTag, 0),
		delimiterBytes(le, SequenceDelimitationItemTag, 0),
		elementBytes(le, PixelDataTag, "OW", []byte{0x01, 0x00, 0x02, 0x00}),
	}
}

func TestParse_UndefinedLengthSequence(t *testing.T) {
	ds, err := ParseBytes(part10(ExplicitVRLittleEndianUID, doseFileBody()...))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if got, _ := ds.FindString(SOPClassUIDTag); got != RTDoseStorage {
		t.Fatalf("got SOP class %q, want %q", got, RTDoseStorage)
	}
	if got, _ := ds.FindFloat64(DoseGridScalingTag); got != 0.01 {
		t.Fatalf("got scaling %v, want %v", got, 0.01)
	}

	c := ds.FirstItemOf(ReferencedRTPlanSequenceTag)
	if !c.Valid() {
		t.Fatalf("expected a referenced plan item")
	}
	if got, _ := c.Item().FindString(ReferencedSOPInstanceUIDTag); got != "1.2.3.4" {
		t.Fatalf("got referenced UID %q, want %q", got, "1.2.3.4")
	}
	if c.Next() {
		t.Fatalf("expected a single referenced plan item")
	}

	want := []byte{0x01, 0x00, 0x02, 0x00}
	if got, _ := ds.FindBytes(PixelDataTag); !bytes.Equal(got, want) {
		t.Fatalf("got pixel data %v, want %v", got, want)
	}
}

func TestParse_DefinedLengthSequence(t *testing.T) {
	le := binary.LittleEndian
	roiName := elementBytes(le, ROINameTag, "LO", paddedText("PTV", ' '))
	item := append(delimiterBytes(le, ItemTag, uint32(len(roiName))), roiName...)
	seq := append(headerBytes(le, StructureSetROISequenceTag, "SQ", uint32(len(item)*2)), item...)
	seq = append(seq, item...)

	ds, err := ParseBytes(part10(ExplicitVRLittleEndianUID, seq,
		elementBytes(le, StructureSetLabelTag, "SH", paddedText("RS1", ' '))))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	s, ok := ds.FindSequence(StructureSetROISequenceTag)
	if !ok || len(s.Items) != 2 {
		t.Fatalf("got %v, want 2 items", s)
	}
	if got, _ := ds.FindString(StructureSetLabelTag); got != "RS1" {
		t.Fatalf("got label %q, want %q", got, "RS1")
	}
}

func TestParse_SkipPixelData(t *testing.T) {
	ds, err := ParseBytes(part10(ExplicitVRLittleEndianUID, doseFileBody()...), SkipPixelData)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, ok := ds.Find(PixelDataTag); ok {
		t.Fatalf("expected pixel data to be skipped")
	}
	if _, ok := ds.Find(SOPInstanceUIDTag); !ok {
		t.Fatalf("expected elements before pixel data to be kept")
	}
}

func TestParse_DropGroupLengths(t *testing.T) {
	ds, err := ParseBytes(part10(ExplicitVRLittleEndianUID, doseFileBody()...), DropGroupLengths)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, ok := ds.Find(FileMetaInformationGroupLengthTag); ok {
		t.Fatalf("expected group length to be dropped")
	}
}

func TestParse_NoPreambleIsImplicitLittleEndian(t *testing.T) {
	data := []byte{
		0x28, 0x00, 0x10, 0x00, 0x02, 0x00, 0x00, 0x00, 0x00, 0x02, // Rows 512
		0x28, 0x00, 0x11, 0x00, 0x02, 0x00, 0x00, 0x00, 0x00, 0x01, // Columns 256
	}
	ds, err := ParseBytes(data)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	rows, _ := ds.FindInt(RowsTag)
	cols, _ := ds.FindInt(ColumnsTag)
	if rows != 512 || cols != 256 {
		t.Fatalf("got %dx%d, want 512x256", rows, cols)
	}
}

func TestParse_SpecificCharacterSet(t *testing.T) {
	le := binary.LittleEndian
	ds, err := ParseBytes(part10(ExplicitVRLittleEndianUID,
		elementBytes(le, SpecificCharacterSetTag, "CS", paddedText("ISO_IR 100", ' ')),
		elementBytes(le, PatientNameTag, "PN", []byte("M\xfcller")),
	))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got, _ := ds.FindString(PatientNameTag); got != "Müller" {
		t.Fatalf("got %q, want %q", got, "Müller")
	}
}

func TestParse_Truncated(t *testing.T) {
	data := part10(ExplicitVRLittleEndianUID, doseFileBody()...)
	if _, err := ParseBytes(data[:len(data)-3]); err == nil {
		t.Fatalf("expected an error for a truncated stream")
	}
}

func TestParse_BadHeader(t *testing.T) {
	var missingSyntax bytes.Buffer
	missingSyntax.Write(make([]byte, preambleLength))
	missingSyntax.WriteString(magicWord)
	missingSyntax.Write(elementBytes(binary.LittleEndian, MediaStorageSOPClassUIDTag, "UI", paddedText(RTDoseStorage, 0x00)))

	tests := []struct {
		name string
		data []byte
	}{
		{"empty stream", nil},
		{"preamble only", append(make([]byte, preambleLength), magicWord...)},
		{"meta group without transfer syntax", missingSyntax.Bytes()},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := ParseBytes(tc.data); err == nil {
				t.Fatalf("expected an error")
			}
		})
	}
}
