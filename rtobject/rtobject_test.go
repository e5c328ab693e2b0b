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

package rtobject

import (
	"errors"
	"reflect"
	"testing"

	"github.com/GoogleCloudPlatform/go-dicom-rt/dicom"
	"github.com/GoogleCloudPlatform/go-dicom-rt/geom"
	"github.com/GoogleCloudPlatform/go-dicom-rt/rtobject/rttest"
)

var testID = rttest.Identity{
	PatientName:       "Doe^Jane",
	PatientID:         "P1",
	StudyInstanceUID:  "1.2.3",
	SeriesInstanceUID: "1.2.3.4",
	SOPInstanceUID:    "1.2.3.4.5",
}

func TestReadDose(t *testing.T) {
	g := rttest.Grid{Columns: 2, Rows: 3, Frames: 2, Origin: geom.Vec3{10, 20, 30}, Spacing: geom.Vec3{1.5, 2, 2.5}}
	values := make([]uint16, 12)
	for i := range values {
		values[i] = uint16(i)
	}
	d, err := ReadDose(rttest.Dose(testID, g, values, 0.001, "GY", "1.2.3.9"))
	if err != nil {
		t.Fatalf("unexpected error %v", err)
	}

	if d.Grid.Dims != [3]int{2, 3, 2} {
		t.Fatalf("got dims %v, want %v", d.Grid.Dims, [3]int{2, 3, 2})
	}
	for i, v := range d.Grid.Scalars {
		if v != float64(i) {
			t.Fatalf("voxel %d: got %v, want %v", i, v, float64(i))
		}
	}
	if got, want := d.Grid.IJKToWorld.Point(geom.Vec3{1, 1, 1}), (geom.Vec3{-11.5, -22, 32.5}); !got.Near(want, 1e-9) {
		t.Fatalf("got %v, want %v", got, want)
	}
	if !d.HasGridScaling || d.GridScaling != 0.001 {
		t.Fatalf("got scaling %v (%v), want 0.001", d.GridScaling, d.HasGridScaling)
	}
	if d.Units != "GY" {
		t.Fatalf("got %q, want %q", d.Units, "GY")
	}
	if d.ReferencedPlanSOPInstanceUID != "1.2.3.9" {
		t.Fatalf("got %q, want %q", d.ReferencedPlanSOPInstanceUID, "1.2.3.9")
	}
	if d.PatientID != "P1" || d.SeriesInstanceUID != "1.2.3.4" {
		t.Fatalf("got header %+v", d.Header)
	}
}

func TestReadDose_CompressedPixelData(t *testing.T) {
	g := rttest.Grid{Columns: 1, Rows: 1, Frames: 1, Spacing: geom.Vec3{1, 1, 1}}
	ds := rttest.Dose(testID, g, []uint16{1}, 1, "GY", "")
	ds.SetElement(&dicom.DataElement{Tag: dicom.PixelDataTag, VR: dicom.OBVR, ValueField: [][]byte{{}, {1, 2}}})
	if _, err := ReadDose(ds); !errors.Is(err, ErrCompressedPixelData) {
		t.Fatalf("got %v, want %v", err, ErrCompressedPixelData)
	}
}

func TestReadPlan(t *testing.T) {
	ds := rttest.Plan(testID, "Prostate", "Prostate VMAT",
		rttest.Beam{Number: 2, Name: "B2", GantryAngle: 90, CouchAngle: 10, CollimatorAngle: 5, SAD: 1000, Isocenter: geom.Vec3{1, 2, 3}, X1: -50, X2: 50, Y1: -40, Y2: 45},
		rttest.Beam{Number: 1, Name: "B1", GantryAngle: 180, Isocenter: geom.Vec3{1, 2, 3}},
	)
	p, err := ReadPlan(ds)
	if err != nil {
		t.Fatalf("unexpected error %v", err)
	}
	if p.Label != "Prostate" || p.Name != "Prostate VMAT" {
		t.Fatalf("got label %q name %q", p.Label, p.Name)
	}
	if p.Beams.Len() != 2 {
		t.Fatalf("got %d beams, want 2", p.Beams.Len())
	}
	first, _ := p.Beams.First()
	want := Beam{
		Number: 2, Name: "B2",
		X1Jaw: -50, X2Jaw: 50, Y1Jaw: -40, Y2Jaw: 45,
		GantryAngle: 90, CollimatorAngle: 5, CouchAngle: 10, SAD: 1000,
		Isocenter: geom.Vec3{-1, -2, 3}, HasIsocenter: true,
	}
	if !reflect.DeepEqual(first, want) {
		t.Fatalf("got %+v, want %+v", first, want)
	}
	second, ok := p.Beams.Next()
	if !ok || second.Number != 1 {
		t.Fatalf("got %+v, want beam 1", second)
	}
	if second.SAD != DefaultSourceAxisDistance {
		t.Fatalf("got SAD %v, want %v", second.SAD, DefaultSourceAxisDistance)
	}
	if b, ok := p.BeamByNumber(1); !ok || b.GantryAngle != 180 {
		t.Fatalf("got %+v, want gantry 180", b)
	}
	if _, ok := p.Beams.Next(); ok {
		t.Fatalf("cursor must be exhausted after the last beam")
	}
}

func TestReadPlan_ReferencedInstances(t *testing.T) {
	ds := rttest.Plan(testID, "L", "")
	ref := func(uid string) *dicom.DataSet {
		item := dicom.NewDataSet()
		item.SetStrings(dicom.ReferencedSOPInstanceUIDTag, uid)
		return item
	}
	ds.SetSequence(dicom.ReferencedStructureSetSequenceTag, ref("ss"))
	ds.SetSequence(dicom.ReferencedDoseSequenceTag, ref("d1"), ref("d2"))
	p, err := ReadPlan(ds)
	if err != nil {
		t.Fatalf("unexpected error %v", err)
	}
	if got, want := p.ReferencedInstanceUIDs(), []string{"ss", "d1", "d2"}; !reflect.DeepEqual(got, want) {
		t.Fatalf("got %v, want %v", got, want)
	}
}

func square(z float64) []geom.Vec3 {
	return []geom.Vec3{{0, 0, z}, {10, 0, z}, {10, 10, z}, {0, 10, z}}
}

func TestReadStructureSet(t *testing.T) {
	ds := rttest.StructureSet(testID, "Contours", "1.9", "1.2.3.100",
		rttest.ROI{Number: 1, Name: "PTV", Color: [3]int{255, 0, 0}, Contours: [][]geom.Vec3{square(0), square(2)}, ImageUIDs: []string{"img1", "img2"}},
		rttest.ROI{Number: 2, Name: "Marker", Color: [3]int{0, 255, 0}, Contours: [][]geom.Vec3{{{1, 2, 3}}}, ImageUIDs: []string{"img1"}},
		rttest.ROI{Number: 3, Name: "Empty"},
	)
	s, err := ReadStructureSet(ds)
	if err != nil {
		t.Fatalf("unexpected error %v", err)
	}
	if s.Label != "Contours" {
		t.Fatalf("got %q, want %q", s.Label, "Contours")
	}

	tests := []struct {
		index  int
		name   string
		points int
		color  [3]float64
	}{
		{0, "PTV", 8, [3]float64{1, 0, 0}},
		{1, "Marker", 1, [3]float64{0, 1, 0}},
		{2, "Empty", 0, [3]float64{0, 0, 0}},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			r, ok := s.ROIs.At(tc.index)
			if !ok {
				t.Fatalf("missing ROI %d", tc.index)
			}
			if r.Name != tc.name || r.PointCount() != tc.points || r.Color != tc.color {
				t.Fatalf("got %q with %d points and color %v, want %q with %d points and color %v",
					r.Name, r.PointCount(), r.Color, tc.name, tc.points, tc.color)
			}
			if r.ReferencedSeriesUID != "1.2.3.100" {
				t.Fatalf("got %q, want %q", r.ReferencedSeriesUID, "1.2.3.100")
			}
		})
	}

	marker, _ := s.ROIs.At(1)
	if got, want := marker.Contours[0].Points[0], (geom.Vec3{-1, -2, 3}); got != want {
		t.Fatalf("got %v, want %v", got, want)
	}
	if got, want := s.ReferencedInstanceUIDs, []string{"img1", "img2"}; !reflect.DeepEqual(got, want) {
		t.Fatalf("got %v, want %v", got, want)
	}
}

func TestReferencedImageInstanceUIDs_FrameOfReferenceFallback(t *testing.T) {
	ds := rttest.StructureSet(testID, "", "1.9", "1.2.3.100",
		rttest.ROI{Number: 1, Name: "PTV", Contours: [][]geom.Vec3{square(0)}})
	frame := ds.FirstItemOf(dicom.ReferencedFrameOfReferenceSequenceTag).Item()
	series := frame.FirstItemOf(dicom.RTReferencedStudySequenceTag).Item().FirstItemOf(dicom.RTReferencedSeriesSequenceTag).Item()
	var images []*dicom.DataSet
	for _, uid := range []string{"a", "b", "a"} {
		item := dicom.NewDataSet()
		item.SetStrings(dicom.ReferencedSOPInstanceUIDTag, uid)
		images = append(images, item)
	}
	series.SetSequence(dicom.ContourImageSequenceTag, images...)

	if got, want := ReferencedImageInstanceUIDs(ds), []string{"a", "b"}; !reflect.DeepEqual(got, want) {
		t.Fatalf("got %v, want %v", got, want)
	}
}

func TestReadRTImage(t *testing.T) {
	ds := rttest.RTImage(testID, rttest.RTImageParams{
		Columns: 4, Rows: 3, Spacing: [2]float64{0.5, 0.25}, SID: 1500, Position: [2]float64{-200, 150},
		GantryAngle: 90, PlanUID: "plan", ReferencedBeamNumber: 3, Label: "DRR",
	})
	r, err := ReadRTImage(ds)
	if err != nil {
		t.Fatalf("unexpected error %v", err)
	}
	if r.SID != 1500 || r.SAD != DefaultSourceAxisDistance || r.Position != [2]float64{-200, 150} {
		t.Fatalf("got SID %v SAD %v position %v", r.SID, r.SAD, r.Position)
	}
	if r.ReferencedPlanSOPInstanceUID != "plan" || r.ReferencedBeamNumber != 3 || r.GantryAngle != 90 {
		t.Fatalf("got plan %q beam %d gantry %v", r.ReferencedPlanSOPInstanceUID, r.ReferencedBeamNumber, r.GantryAngle)
	}
	want := geom.Scaling(geom.Vec3{-0.5, -0.25, 1})
	if !r.Image.IJKToWorld.Near(want, 1e-12) {
		t.Fatalf("got %v, want %v", r.Image.IJKToWorld, want)
	}
	if r.Image.Dims != [3]int{4, 3, 1} {
		t.Fatalf("got %v, want %v", r.Image.Dims, [3]int{4, 3, 1})
	}
}

func TestReadImageSeries(t *testing.T) {
	id := testID
	id.SeriesInstanceUID = "1.2.3.100"
	g := rttest.Grid{Columns: 2, Rows: 2, Frames: 3, Origin: geom.Vec3{0, 0, -5}, Spacing: geom.Vec3{1, 1, 2.5}}
	slices := rttest.CTSeries(id, "1.9", g, func(i, j, k int) uint16 { return uint16(100 * k) })
	shuffled := []*dicom.DataSet{slices[2], slices[0], slices[1]}

	s, err := ReadImageSeries(shuffled)
	if err != nil {
		t.Fatalf("unexpected error %v", err)
	}
	if got, want := s.SliceInstanceUIDs, []string{"1.2.3.100.1", "1.2.3.100.2", "1.2.3.100.3"}; !reflect.DeepEqual(got, want) {
		t.Fatalf("got %v, want %v", got, want)
	}
	if got := s.Image.At(1, 1, 2); got != 200 {
		t.Fatalf("got %v, want %v", got, 200)
	}
	if got, want := s.Image.Spacing(), (geom.Vec3{1, 1, 2.5}); !got.Near(want, 1e-9) {
		t.Fatalf("got %v, want %v", got, want)
	}
	if got, want := s.Image.Origin(), (geom.Vec3{0, 0, -5}); !got.Near(want, 1e-9) {
		t.Fatalf("got %v, want %v", got, want)
	}
}

func TestRead_Dispatch(t *testing.T) {
	tests := []struct {
		name string
		ds   *dicom.DataSet
		want interface{}
	}{
		{"plan", rttest.Plan(testID, "L", ""), &Plan{}},
		{"structure set", rttest.StructureSet(testID, "", "f", "s"), &StructureSet{}},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			obj, err := Read(tc.ds)
			if err != nil {
				t.Fatalf("unexpected error %v", err)
			}
			if reflect.TypeOf(obj) != reflect.TypeOf(tc.want) {
				t.Fatalf("got %T, want %T", obj, tc.want)
			}
			if obj.ObjectHeader().SOPInstanceUID != testID.SOPInstanceUID {
				t.Fatalf("got %q, want %q", obj.ObjectHeader().SOPInstanceUID, testID.SOPInstanceUID)
			}
		})
	}

	ct := rttest.Base(dicom.CTImageStorage, "CT", testID)
	if _, err := Read(ct); !errors.Is(err, ErrUnsupportedSOPClass) {
		t.Fatalf("got %v, want %v", err, ErrUnsupportedSOPClass)
	}
}
