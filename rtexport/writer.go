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

package rtexport

import (
	"encoding/binary"
	"fmt"
	"log/slog"
	"math"
	"os"
	"path/filepath"

	"github.com/GoogleCloudPlatform/go-dicom-rt/dicom"
	"github.com/GoogleCloudPlatform/go-dicom-rt/geom"
	"github.com/GoogleCloudPlatform/go-dicom-rt/segmentation"
	"github.com/GoogleCloudPlatform/go-dicom-rt/volume"
)

// Writer stores an exported study.
type Writer interface {
	Write(dir string, s *Study) error
}

// File names written by DICOMWriter. Image slices are numbered from 1.
const (
	ImageFileFormat    = "image%04d.dcm"
	DoseFileName       = "dose.dcm"
	StructureFileName  = "rtss.dcm"
	studyComponentUID  = "1.2.840.10008.3.1.2.3.1"
	maxStoredDoseValue = math.MaxUint32
)

// DICOMWriter writes the anatomical image as single-frame slices, the dose as a multi-frame RT
// dose and the structures as an RT structure set into one directory. Coordinates are written in
// the patient frame (LPS).
type DICOMWriter struct {
	Logger *slog.Logger
}

func (w *DICOMWriter) logger() *slog.Logger {
	if w.Logger != nil {
		return w.Logger
	}
	return slog.Default()
}

// exportContext holds the UIDs shared by the files of one export.
type exportContext struct {
	study       *Study
	studyUID    string
	frameUID    string
	imageSeries string
	imageClass  string
	sliceUIDs   []string
}

// Write implements Writer.
func (w *DICOMWriter) Write(dir string, s *Study) error {
	if s.Image.Empty() {
		return ErrNoAnatomicalImage
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("creating output directory: %v", err)
	}

	ctx := &exportContext{
		study:       s,
		studyUID:    s.StudyInstanceUID,
		frameUID:    dicom.NewUID(),
		imageSeries: dicom.NewUID(),
		imageClass:  dicom.CTImageStorage,
	}
	if ctx.studyUID == "" {
		ctx.studyUID = dicom.NewUID()
	}
	if s.ImageSeries.Modality == "MR" {
		ctx.imageClass = dicom.MRImageStorage
	}
	// Slice UIDs are kept so that references to the loaded slices stay valid.
	ctx.sliceUIDs = s.ImageSliceUIDs
	if len(ctx.sliceUIDs) != s.Image.Dims[2] {
		ctx.sliceUIDs = make([]string, s.Image.Dims[2])
		for k := range ctx.sliceUIDs {
			ctx.sliceUIDs[k] = dicom.NewUID()
		}
	}

	log := w.logger().With("op", "WriteDicomRT", "dir", dir)
	for k := 0; k < s.Image.Dims[2]; k++ {
		ds, err := ctx.imageSlice(k)
		if err != nil {
			return fmt.Errorf("encoding image slice %d: %v", k, err)
		}
		if err := dicom.WriteFile(filepath.Join(dir, fmt.Sprintf(ImageFileFormat, k+1)), ds); err != nil {
			return err
		}
	}
	log.Debug("Image slices written", "count", s.Image.Dims[2])

	if !s.Dose.Empty() {
		ds, err := ctx.dose()
		if err != nil {
			return fmt.Errorf("encoding dose: %v", err)
		}
		if err := dicom.WriteFile(filepath.Join(dir, DoseFileName), ds); err != nil {
			return err
		}
		log.Debug("Dose written")
	}

	if len(s.Structures) > 0 {
		ds, err := ctx.structureSet()
		if err != nil {
			return fmt.Errorf("encoding structure set: %v", err)
		}
		if err := dicom.WriteFile(filepath.Join(dir, StructureFileName), ds); err != nil {
			return err
		}
		log.Debug("Structure set written", "structures", len(s.Structures))
	}
	return nil
}

// base returns a data set with the patient, study and series tags of one object.
func (ctx *exportContext) base(sopClass, sopInstance, seriesUID string, series Series, modality string) *dicom.DataSet {
	s := ctx.study
	ds := dicom.NewDataSet()
	ds.SetStrings(dicom.SpecificCharacterSetTag, "ISO_IR 192")
	ds.SetStrings(dicom.SOPClassUIDTag, sopClass)
	ds.SetStrings(dicom.SOPInstanceUIDTag, sopInstance)
	ds.SetStrings(dicom.ModalityTag, modality)
	ds.SetStrings(dicom.StudyInstanceUIDTag, ctx.studyUID)
	ds.SetStrings(dicom.SeriesInstanceUIDTag, seriesUID)
	ds.SetStrings(dicom.FrameOfReferenceUIDTag, ctx.frameUID)
	for tag, value := range map[dicom.DataElementTag]string{
		dicom.PatientNameTag:       s.PatientName,
		dicom.PatientIDTag:         s.PatientID,
		dicom.PatientSexTag:        s.PatientSex,
		dicom.StudyIDTag:           s.StudyID,
		dicom.StudyDateTag:         s.StudyDate,
		dicom.StudyTimeTag:         s.StudyTime,
		dicom.StudyDescriptionTag:  s.StudyDescription,
		dicom.SeriesDescriptionTag: series.Description,
		dicom.SeriesNumberTag:      series.Number,
	} {
		if value != "" {
			ds.SetStrings(tag, value)
		}
	}
	return ds
}

// lpsGeometry is the placement of a grid in the patient frame.
type lpsGeometry struct {
	origin      geom.Vec3
	row, column geom.Vec3
	sliceStep   geom.Vec3
	spacing     geom.Vec3
}

func newLPSGeometry(v *volume.Volume) lpsGeometry {
	m := geom.LPSToRASMatrix().Mul(v.IJKToWorld)
	return lpsGeometry{
		origin:    m.Column(3),
		row:       m.Column(0).Normalize(),
		column:    m.Column(1).Normalize(),
		sliceStep: m.Column(2),
		spacing:   geom.Vec3{m.Column(0).Norm(), m.Column(1).Norm(), m.Column(2).Norm()},
	}
}

// set stores the image plane module of a plane whose first voxel is at position.
func (g lpsGeometry) set(ds *dicom.DataSet, position geom.Vec3) error {
	if err := ds.SetFloat64s(dicom.ImagePositionPatientTag, position[0], position[1], position[2]); err != nil {
		return err
	}
	if err := ds.SetFloat64s(dicom.ImageOrientationPatientTag,
		g.row[0], g.row[1], g.row[2], g.column[0], g.column[1], g.column[2]); err != nil {
		return err
	}
	// Pixel Spacing is the row spacing followed by the column spacing.
	return ds.SetFloat64s(dicom.PixelSpacingTag, g.spacing[1], g.spacing[0])
}

func setPixelModule(ds *dicom.DataSet, columns, rows, bits int, signed bool) error {
	rep := 0
	if signed {
		rep = 1
	}
	for _, e := range []struct {
		tag   dicom.DataElementTag
		value int
	}{
		{dicom.SamplesPerPixelTag, 1},
		{dicom.RowsTag, rows},
		{dicom.ColumnsTag, columns},
		{dicom.BitsAllocatedTag, bits},
		{dicom.BitsStoredTag, bits},
		{dicom.HighBitTag, bits - 1},
		{dicom.PixelRepresentationTag, rep},
	} {
		if err := ds.SetInts(e.tag, e.value); err != nil {
			return err
		}
	}
	ds.SetStrings(dicom.PhotometricInterpretationTag, "MONOCHROME2")
	return nil
}

// imageSlice encodes slice k of the image as signed 16 bit values.
func (ctx *exportContext) imageSlice(k int) (*dicom.DataSet, error) {
	img := ctx.study.Image
	modality := ctx.study.ImageSeries.Modality
	if modality == "" {
		modality = "CT"
	}
	ds := ctx.base(ctx.imageClass, ctx.sliceUIDs[k], ctx.imageSeries, ctx.study.ImageSeries, modality)
	g := newLPSGeometry(img)
	if err := ds.SetInts(dicom.InstanceNumberTag, k+1); err != nil {
		return nil, err
	}
	if err := g.set(ds, g.origin.Add(g.sliceStep.Scale(float64(k)))); err != nil {
		return nil, err
	}
	if err := ds.SetFloat64s(dicom.SliceThicknessTag, g.spacing[2]); err != nil {
		return nil, err
	}
	if err := ds.SetFloat64s(dicom.RescaleInterceptTag, 0); err != nil {
		return nil, err
	}
	if err := ds.SetFloat64s(dicom.RescaleSlopeTag, 1); err != nil {
		return nil, err
	}
	if err := setPixelModule(ds, img.Dims[0], img.Dims[1], 16, true); err != nil {
		return nil, err
	}

	n := img.Dims[0] * img.Dims[1]
	b := make([]byte, 2*n)
	for i := 0; i < n; i++ {
		v := math.Round(img.Scalars[k*n+i])
		v = math.Max(math.MinInt16, math.Min(math.MaxInt16, v))
		binary.LittleEndian.PutUint16(b[2*i:], uint16(int16(v)))
	}
	ds.SetBytes(dicom.PixelDataTag, dicom.OWVR, b)
	return ds, nil
}

// dose encodes the dose grid as unsigned 32 bit values scaled by the dose grid scaling.
func (ctx *exportContext) dose() (*dicom.DataSet, error) {
	d := ctx.study.Dose
	ds := ctx.base(dicom.RTDoseStorage, dicom.NewUID(), dicom.NewUID(), ctx.study.DoseSeries, "RTDOSE")
	g := newLPSGeometry(d)
	if err := g.set(ds, g.origin); err != nil {
		return nil, err
	}
	normal := g.row.Cross(g.column).Normalize()
	offsets := make([]float64, d.Dims[2])
	for k := range offsets {
		offsets[k] = g.sliceStep.Scale(float64(k)).Dot(normal)
	}
	if err := ds.SetFloat64s(dicom.GridFrameOffsetVectorTag, offsets...); err != nil {
		return nil, err
	}

	_, max := d.Range()
	scaling := 1.0
	if max > 0 {
		scaling = max / maxStoredDoseValue
	}
	if err := ds.SetFloat64s(dicom.DoseGridScalingTag, scaling); err != nil {
		return nil, err
	}
	ds.SetStrings(dicom.DoseUnitsTag, "GY")
	ds.SetStrings(dicom.DoseTypeTag, "PHYSICAL")
	ds.SetStrings(dicom.DoseSummationTypeTag, "PLAN")
	if err := ds.SetInts(dicom.NumberOfFramesTag, d.Dims[2]); err != nil {
		return nil, err
	}
	if err := setPixelModule(ds, d.Dims[0], d.Dims[1], 32, false); err != nil {
		return nil, err
	}

	b := make([]byte, 4*len(d.Scalars))
	for i, v := range d.Scalars {
		stored := math.Round(math.Max(0, v) / scaling)
		binary.LittleEndian.PutUint32(b[4*i:], uint32(math.Min(stored, maxStoredDoseValue)))
	}
	ds.SetBytes(dicom.PixelDataTag, dicom.OWVR, b)
	return ds, nil
}

func (ctx *exportContext) sliceReference(k int) *dicom.DataSet {
	item := dicom.NewDataSet()
	item.SetStrings(dicom.ReferencedSOPClassUIDTag, ctx.imageClass)
	item.SetStrings(dicom.ReferencedSOPInstanceUIDTag, ctx.sliceUIDs[k])
	return item
}

// structureSet encodes the structures as closed planar contours. Masks are outlined slice by
// slice.
func (ctx *exportContext) structureSet() (*dicom.DataSet, error) {
	s := ctx.study
	ds := ctx.base(dicom.RTStructureSetStorage, dicom.NewUID(), dicom.NewUID(), s.StructureSeries, "RTSTRUCT")
	label := s.StructureSeries.Description
	if label == "" {
		label = "RTSTRUCT"
	}
	ds.SetStrings(dicom.StructureSetLabelTag, label)

	images := make([]*dicom.DataSet, len(ctx.sliceUIDs))
	for k := range images {
		images[k] = ctx.sliceReference(k)
	}
	series := dicom.NewDataSet()
	series.SetStrings(dicom.SeriesInstanceUIDTag, ctx.imageSeries)
	series.SetSequence(dicom.ContourImageSequenceTag, images...)
	study := dicom.NewDataSet()
	study.SetStrings(dicom.ReferencedSOPClassUIDTag, studyComponentUID)
	study.SetStrings(dicom.ReferencedSOPInstanceUIDTag, ctx.studyUID)
	study.SetSequence(dicom.RTReferencedSeriesSequenceTag, series)
	frame := dicom.NewDataSet()
	frame.SetStrings(dicom.FrameOfReferenceUIDTag, ctx.frameUID)
	frame.SetSequence(dicom.RTReferencedStudySequenceTag, study)
	ds.SetSequence(dicom.ReferencedFrameOfReferenceSequenceTag, frame)

	var rois, roiContours, observations []*dicom.DataSet
	for i, st := range s.Structures {
		number := i + 1
		roi := dicom.NewDataSet()
		if err := roi.SetInts(dicom.ROINumberTag, number); err != nil {
			return nil, err
		}
		roi.SetStrings(dicom.ReferencedFrameOfReferenceUIDTag, ctx.frameUID)
		roi.SetStrings(dicom.ROINameTag, st.Name)
		roi.SetStrings(dicom.ROIGenerationAlgorithmTag, "AUTOMATIC")
		rois = append(rois, roi)

		slices := st.Slices
		if st.Mask != nil {
			slices = outline(st.Mask)
		}
		var contours []*dicom.DataSet
		for _, sl := range slices {
			for _, poly := range sl.Polygons {
				c, err := ctx.contour(sl.Index, poly)
				if err != nil {
					return nil, fmt.Errorf("structure %q: %v", st.Name, err)
				}
				contours = append(contours, c)
			}
		}
		rc := dicom.NewDataSet()
		if err := rc.SetInts(dicom.ReferencedROINumberTag, number); err != nil {
			return nil, err
		}
		color := make([]int, 3)
		for c := range color {
			color[c] = int(math.Round(255 * math.Max(0, math.Min(1, st.Color[c]))))
		}
		if err := rc.SetInts(dicom.ROIDisplayColorTag, color...); err != nil {
			return nil, err
		}
		rc.SetSequence(dicom.ContourSequenceTag, contours...)
		roiContours = append(roiContours, rc)

		obs := dicom.NewDataSet()
		if err := obs.SetInts(dicom.ObservationNumberTag, number); err != nil {
			return nil, err
		}
		if err := obs.SetInts(dicom.ReferencedROINumberTag, number); err != nil {
			return nil, err
		}
		obs.SetStrings(dicom.RTROIInterpretedTypeTag, "")
		observations = append(observations, obs)
	}
	ds.SetSequence(dicom.StructureSetROISequenceTag, rois...)
	ds.SetSequence(dicom.ROIContourSequenceTag, roiContours...)
	ds.SetSequence(dicom.RTROIObservationsSequenceTag, observations...)
	return ds, nil
}

// contour encodes a RAS polygon lying on slice k.
func (ctx *exportContext) contour(k int, poly []geom.Vec3) (*dicom.DataSet, error) {
	c := dicom.NewDataSet()
	if k >= 0 && k < len(ctx.sliceUIDs) {
		c.SetSequence(dicom.ContourImageSequenceTag, ctx.sliceReference(k))
	}
	c.SetStrings(dicom.ContourGeometricTypeTag, "CLOSED_PLANAR")
	if err := c.SetInts(dicom.NumberOfContourPointsTag, len(poly)); err != nil {
		return nil, err
	}
	coords := make([]float64, 0, 3*len(poly))
	for _, p := range poly {
		// the RAS and LPS conversions are the same reflection
		lps := geom.LPSToRAS(p)
		coords = append(coords, lps[0], lps[1], lps[2])
	}
	if err := c.SetFloat64s(dicom.ContourDataTag, coords...); err != nil {
		return nil, err
	}
	return c, nil
}

// outline contours every slice of a mask lying on the image grid.
func outline(mask *volume.Volume) []SliceContours {
	var out []SliceContours
	for k := 0; k < mask.Dims[2]; k++ {
		var polygons [][]geom.Vec3
		for _, loop := range segmentation.SliceOutline(mask, k) {
			if len(loop) >= 3 {
				polygons = append(polygons, loop)
			}
		}
		if len(polygons) > 0 {
			out = append(out, SliceContours{Index: k, Polygons: polygons})
		}
	}
	return out
}
