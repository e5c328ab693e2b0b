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

// Package rttest builds RT data sets for tests.
package rttest

import (
	"encoding/binary"
	"fmt"

	"github.com/GoogleCloudPlatform/go-dicom-rt/dicom"
	"github.com/GoogleCloudPlatform/go-dicom-rt/geom"
)

// Identity names the patient, study, series and instance a data set belongs to.
type Identity struct {
	PatientName       string
	PatientID         string
	StudyInstanceUID  string
	StudyDescription  string
	SeriesInstanceUID string
	SeriesNumber      string
	SOPInstanceUID    string
}

func must(err error) {
	if err != nil {
		panic(fmt.Sprintf("rttest: %v", err))
	}
}

// Base returns a data set holding the identity of an object of the given SOP class.
func Base(sopClassUID, modality string, id Identity) *dicom.DataSet {
	ds := dicom.NewDataSet()
	ds.SetStrings(dicom.SOPClassUIDTag, sopClassUID)
	ds.SetStrings(dicom.SOPInstanceUIDTag, id.SOPInstanceUID)
	ds.SetStrings(dicom.ModalityTag, modality)
	ds.SetStrings(dicom.PatientNameTag, id.PatientName)
	ds.SetStrings(dicom.PatientIDTag, id.PatientID)
	ds.SetStrings(dicom.StudyInstanceUIDTag, id.StudyInstanceUID)
	ds.SetStrings(dicom.StudyDescriptionTag, id.StudyDescription)
	ds.SetStrings(dicom.SeriesInstanceUIDTag, id.SeriesInstanceUID)
	if id.SeriesNumber != "" {
		ds.SetStrings(dicom.SeriesNumberTag, id.SeriesNumber)
	}
	return ds
}

func reference(uid string) *dicom.DataSet {
	item := dicom.NewDataSet()
	item.SetStrings(dicom.ReferencedSOPInstanceUIDTag, uid)
	return item
}

// SetPixels stores 16 bit unsigned native pixel data with its image pixel attributes.
func SetPixels(ds *dicom.DataSet, columns, rows, frames int, values []uint16) {
	must(ds.SetInts(dicom.RowsTag, rows))
	must(ds.SetInts(dicom.ColumnsTag, columns))
	must(ds.SetInts(dicom.SamplesPerPixelTag, 1))
	must(ds.SetInts(dicom.BitsAllocatedTag, 16))
	must(ds.SetInts(dicom.BitsStoredTag, 16))
	must(ds.SetInts(dicom.HighBitTag, 15))
	must(ds.SetInts(dicom.PixelRepresentationTag, 0))
	ds.SetStrings(dicom.PhotometricInterpretationTag, "MONOCHROME2")
	if frames > 1 {
		must(ds.SetInts(dicom.NumberOfFramesTag, frames))
	}
	b := make([]byte, 2*len(values))
	for i, v := range values {
		binary.LittleEndian.PutUint16(b[2*i:], v)
	}
	ds.SetBytes(dicom.PixelDataTag, dicom.OWVR, b)
}

// Grid describes an axis aligned voxel grid in the patient frame (LPS).
type Grid struct {
	Columns, Rows, Frames int
	Origin                geom.Vec3
	Spacing               geom.Vec3
}

// Dose returns an RT dose data set. Frame offsets are relative to the origin.
func Dose(id Identity, g Grid, values []uint16, scaling float64, units, planUID string) *dicom.DataSet {
	ds := Base(dicom.RTDoseStorage, "RTDOSE", id)
	must(ds.SetFloat64s(dicom.ImagePositionPatientTag, g.Origin[0], g.Origin[1], g.Origin[2]))
	must(ds.SetFloat64s(dicom.ImageOrientationPatientTag, 1, 0, 0, 0, 1, 0))
	must(ds.SetFloat64s(dicom.PixelSpacingTag, g.Spacing[1], g.Spacing[0]))
	offsets := make([]float64, g.Frames)
	for k := range offsets {
		offsets[k] = float64(k) * g.Spacing[2]
	}
	must(ds.SetFloat64s(dicom.GridFrameOffsetVectorTag, offsets...))
	must(ds.SetFloat64s(dicom.DoseGridScalingTag, scaling))
	ds.SetStrings(dicom.DoseUnitsTag, units)
	ds.SetStrings(dicom.DoseTypeTag, "PHYSICAL")
	ds.SetStrings(dicom.DoseSummationTypeTag, "PLAN")
	if planUID != "" {
		ds.SetSequence(dicom.ReferencedRTPlanSequenceTag, reference(planUID))
	}
	SetPixels(ds, g.Columns, g.Rows, g.Frames, values)
	return ds
}

// Beam describes a beam of a plan. The isocenter is in the patient frame (LPS).
type Beam struct {
	Number          int
	Name            string
	GantryAngle     float64
	CollimatorAngle float64
	CouchAngle      float64
	SAD             float64
	Isocenter       geom.Vec3
	X1, X2, Y1, Y2  float64
}

// Plan returns an RT plan data set.
func Plan(id Identity, label, name string, beams ...Beam) *dicom.DataSet {
	ds := Base(dicom.RTPlanStorage, "RTPLAN", id)
	if label != "" {
		ds.SetStrings(dicom.RTPlanLabelTag, label)
	}
	if name != "" {
		ds.SetStrings(dicom.RTPlanNameTag, name)
	}
	items := make([]*dicom.DataSet, 0, len(beams))
	for _, b := range beams {
		item := dicom.NewDataSet()
		must(item.SetInts(dicom.BeamNumberTag, b.Number))
		item.SetStrings(dicom.BeamNameTag, b.Name)
		if b.SAD != 0 {
			must(item.SetFloat64s(dicom.SourceAxisDistanceTag, b.SAD))
		}

		x := dicom.NewDataSet()
		x.SetStrings(dicom.RTBeamLimitingDeviceTypeTag, "ASYMX")
		must(x.SetFloat64s(dicom.LeafJawPositionsTag, b.X1, b.X2))
		y := dicom.NewDataSet()
		y.SetStrings(dicom.RTBeamLimitingDeviceTypeTag, "ASYMY")
		must(y.SetFloat64s(dicom.LeafJawPositionsTag, b.Y1, b.Y2))

		cp := dicom.NewDataSet()
		must(cp.SetInts(dicom.ControlPointIndexTag, 0))
		must(cp.SetFloat64s(dicom.GantryAngleTag, b.GantryAngle))
		must(cp.SetFloat64s(dicom.BeamLimitingDeviceAngleTag, b.CollimatorAngle))
		must(cp.SetFloat64s(dicom.PatientSupportAngleTag, b.CouchAngle))
		must(cp.SetFloat64s(dicom.IsocenterPositionTag, b.Isocenter[0], b.Isocenter[1], b.Isocenter[2]))
		cp.SetSequence(dicom.BeamLimitingDevicePositionSequenceTag, x, y)
		item.SetSequence(dicom.ControlPointSequenceTag, cp)
		items = append(items, item)
	}
	ds.SetSequence(dicom.BeamSequenceTag, items...)
	return ds
}

// ROI describes a structure of a structure set. Contours are in the patient frame (LPS).
type ROI struct {
	Number   int
	Name     string
	Color    [3]int
	Contours [][]geom.Vec3
	// ImageUIDs are referenced by the contours in turn, when set.
	ImageUIDs []string
}

// StructureSet returns an RT structure set whose ROIs all lie in frame, drawn on the series
// referencedSeriesUID.
func StructureSet(id Identity, label, frame, referencedSeriesUID string, rois ...ROI) *dicom.DataSet {
	ds := Base(dicom.RTStructureSetStorage, "RTSTRUCT", id)
	if label != "" {
		ds.SetStrings(dicom.StructureSetLabelTag, label)
	}

	series := dicom.NewDataSet()
	series.SetStrings(dicom.SeriesInstanceUIDTag, referencedSeriesUID)
	study := dicom.NewDataSet()
	study.SetStrings(dicom.ReferencedSOPInstanceUIDTag, id.StudyInstanceUID)
	study.SetSequence(dicom.RTReferencedSeriesSequenceTag, series)
	frameItem := dicom.NewDataSet()
	frameItem.SetStrings(dicom.FrameOfReferenceUIDTag, frame)
	frameItem.SetSequence(dicom.RTReferencedStudySequenceTag, study)
	ds.SetSequence(dicom.ReferencedFrameOfReferenceSequenceTag, frameItem)

	var roiItems, contourItems, observations []*dicom.DataSet
	for _, r := range rois {
		item := dicom.NewDataSet()
		must(item.SetInts(dicom.ROINumberTag, r.Number))
		item.SetStrings(dicom.ReferencedFrameOfReferenceUIDTag, frame)
		item.SetStrings(dicom.ROINameTag, r.Name)
		roiItems = append(roiItems, item)

		var contours []*dicom.DataSet
		for i, points := range r.Contours {
			c := dicom.NewDataSet()
			geometricType := "CLOSED_PLANAR"
			if len(points) == 1 {
				geometricType = "POINT"
			}
			c.SetStrings(dicom.ContourGeometricTypeTag, geometricType)
			must(c.SetInts(dicom.NumberOfContourPointsTag, len(points)))
			coords := make([]float64, 0, 3*len(points))
			for _, p := range points {
				coords = append(coords, p[0], p[1], p[2])
			}
			must(c.SetFloat64s(dicom.ContourDataTag, coords...))
			if i < len(r.ImageUIDs) {
				c.SetSequence(dicom.ContourImageSequenceTag, reference(r.ImageUIDs[i]))
			}
			contours = append(contours, c)
		}
		rc := dicom.NewDataSet()
		must(rc.SetInts(dicom.ReferencedROINumberTag, r.Number))
		must(rc.SetInts(dicom.ROIDisplayColorTag, r.Color[0], r.Color[1], r.Color[2]))
		rc.SetSequence(dicom.ContourSequenceTag, contours...)
		contourItems = append(contourItems, rc)

		obs := dicom.NewDataSet()
		must(obs.SetInts(dicom.ObservationNumberTag, r.Number))
		must(obs.SetInts(dicom.ReferencedROINumberTag, r.Number))
		obs.SetStrings(dicom.RTROIInterpretedTypeTag, "ORGAN")
		observations = append(observations, obs)
	}
	ds.SetSequence(dicom.StructureSetROISequenceTag, roiItems...)
	ds.SetSequence(dicom.ROIContourSequenceTag, contourItems...)
	ds.SetSequence(dicom.RTROIObservationsSequenceTag, observations...)
	return ds
}

// RTImageParams describes an RT image.
type RTImageParams struct {
	Columns, Rows        int
	Spacing              [2]float64
	SID                  float64
	SAD                  float64
	Position             [2]float64
	GantryAngle          float64
	PlanUID              string
	ReferencedBeamNumber int
	Label                string
}

// RTImage returns an RT image data set with all pixels set to 1.
func RTImage(id Identity, p RTImageParams) *dicom.DataSet {
	ds := Base(dicom.RTImageStorage, "RTIMAGE", id)
	if p.Label != "" {
		ds.SetStrings(dicom.RTImageLabelTag, p.Label)
	}
	must(ds.SetFloat64s(dicom.ImagePlanePixelSpacingTag, p.Spacing[1], p.Spacing[0]))
	must(ds.SetFloat64s(dicom.RTImageSIDTag, p.SID))
	if p.SAD != 0 {
		must(ds.SetFloat64s(dicom.RadiationMachineSADTag, p.SAD))
	}
	must(ds.SetFloat64s(dicom.RTImagePositionTag, p.Position[0], p.Position[1]))
	must(ds.SetFloat64s(dicom.GantryAngleTag, p.GantryAngle))
	if p.PlanUID != "" {
		ds.SetSequence(dicom.ReferencedRTPlanSequenceTag, reference(p.PlanUID))
	}
	must(ds.SetInts(dicom.ReferencedBeamNumberTag, p.ReferencedBeamNumber))
	values := make([]uint16, p.Columns*p.Rows)
	for i := range values {
		values[i] = 1
	}
	SetPixels(ds, p.Columns, p.Rows, 1, values)
	return ds
}

// CTSeries returns one CT slice data set per frame of g. Slice k holds value(i, j, k) at column i
// and row j. Slice SOP Instance UIDs are the series UID followed by ".<k+1>".
func CTSeries(id Identity, frame string, g Grid, value func(i, j, k int) uint16) []*dicom.DataSet {
	slices := make([]*dicom.DataSet, 0, g.Frames)
	for k := 0; k < g.Frames; k++ {
		sid := id
		sid.SOPInstanceUID = fmt.Sprintf("%s.%d", id.SeriesInstanceUID, k+1)
		ds := Base(dicom.CTImageStorage, "CT", sid)
		ds.SetStrings(dicom.FrameOfReferenceUIDTag, frame)
		must(ds.SetFloat64s(dicom.ImagePositionPatientTag, g.Origin[0], g.Origin[1], g.Origin[2]+float64(k)*g.Spacing[2]))
		must(ds.SetFloat64s(dicom.ImageOrientationPatientTag, 1, 0, 0, 0, 1, 0))
		must(ds.SetFloat64s(dicom.PixelSpacingTag, g.Spacing[1], g.Spacing[0]))
		must(ds.SetFloat64s(dicom.SliceThicknessTag, g.Spacing[2]))
		must(ds.SetFloat64s(dicom.RescaleSlopeTag, 1))
		must(ds.SetFloat64s(dicom.RescaleInterceptTag, 0))
		values := make([]uint16, g.Columns*g.Rows)
		for j := 0; j < g.Rows; j++ {
			for i := 0; i < g.Columns; i++ {
				values[i+j*g.Columns] = value(i, j, k)
			}
		}
		SetPixels(ds, g.Columns, g.Rows, 1, values)
		slices = append(slices, ds)
	}
	return slices
}
