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

// Package rtexport turns loaded entities back into DICOM-RT objects. An export needs an
// anatomical image and optionally takes one dose volume and one segmentation; structures are
// converted to planar contours on the slices of the image or to masks on its grid.
package rtexport

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/GoogleCloudPlatform/go-dicom-rt/geom"
	"github.com/GoogleCloudPlatform/go-dicom-rt/hierarchy"
	"github.com/GoogleCloudPlatform/go-dicom-rt/scene"
	"github.com/GoogleCloudPlatform/go-dicom-rt/segmentation"
	"github.com/GoogleCloudPlatform/go-dicom-rt/volume"
)

// Exportable tag names. Patient and study tags are taken from the first exportable, series tags
// from the exportable of each role.
const (
	TagPatientName       = "PatientName"
	TagPatientID         = "PatientID"
	TagPatientSex        = "PatientSex"
	TagStudyDate         = "StudyDate"
	TagStudyTime         = "StudyTime"
	TagStudyDescription  = "StudyDescription"
	TagSeriesDescription = "SeriesDescription"
	TagSeriesNumber      = "SeriesNumber"
	TagModality          = "Modality"
)

var (
	// ErrNoExportables is returned for an empty exportable list.
	ErrNoExportables = errors.New("exportable list contains no exportables")
	// ErrNoAnatomicalImage is returned when no exportable holds an anatomical volume.
	ErrNoAnatomicalImage = errors.New("must export the primary anatomical (CT/MR) image")
	// ErrUnsupportedRepresentation is returned for segmentations whose master representation
	// cannot be exported.
	ErrUnsupportedRepresentation = errors.New("structure set contains unsupported master representation")
)

// Exportable is one hierarchy item selected for export with the DICOM tag values to write for it.
type Exportable struct {
	Item hierarchy.ItemID
	Tags map[string]string
}

// Option configures an Exporter.
type Option func(*Exporter)

// WithLogger sets the logger of the exporter.
func WithLogger(logger *slog.Logger) Option {
	return func(e *Exporter) {
		e.Logger = logger
	}
}

// WithWriter sets the writer that stores the exported study.
func WithWriter(w Writer) Option {
	return func(e *Exporter) {
		e.Writer = w
	}
}

// WithConverter sets the converter used to derive the exported representations.
func WithConverter(c segmentation.Converter) Option {
	return func(e *Exporter) {
		e.Converter = c
	}
}

// WithShearEpsilon sets the tolerance of the shear check on image axes.
func WithShearEpsilon(eps float64) Option {
	return func(e *Exporter) {
		e.ShearEpsilon = eps
	}
}

// Exporter collects exportables into a Study and hands it to a Writer.
type Exporter struct {
	Hierarchy    *hierarchy.Hierarchy
	Store        *scene.Store
	Writer       Writer
	Converter    segmentation.Converter
	ShearEpsilon float64
	Logger       *slog.Logger
}

// DefaultShearEpsilon is the largest magnitude of the scalar product of two normalized image axes
// that still counts as orthogonal.
const DefaultShearEpsilon = 1e-4

const geometryTolerance = 1e-6

// New returns an exporter writing DICOM files.
func New(h *hierarchy.Hierarchy, store *scene.Store, opts ...Option) *Exporter {
	e := &Exporter{
		Hierarchy:    h,
		Store:        store,
		Writer:       &DICOMWriter{},
		Converter:    segmentation.DefaultConverter{},
		ShearEpsilon: DefaultShearEpsilon,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

func (e *Exporter) logger() *slog.Logger {
	if e.Logger != nil {
		return e.Logger
	}
	return slog.Default()
}

// ExportStudy exports the exportables into outputDir. It returns an empty string on success and
// a human readable error message otherwise.
func (e *Exporter) ExportStudy(exportables []Exportable, outputDir string) string {
	log := e.logger().With("op", "ExportDicomRTStudy")
	study, err := e.Export(exportables)
	if err != nil {
		log.Error("Export failed", "error", err)
		return err.Error()
	}
	if err := e.Writer.Write(outputDir, study); err != nil {
		log.Error("Writing study failed", "outputDir", outputDir, "error", err)
		return err.Error()
	}
	log.Info("Study exported", "outputDir", outputDir, "structures", len(study.Structures))
	return ""
}

// Export assigns a role to every exportable and converts the entities into their exported form.
func (e *Exporter) Export(exportables []Exportable) (*Study, error) {
	if len(exportables) == 0 {
		return nil, ErrNoExportables
	}
	log := e.logger().With("op", "ExportDicomRTStudy")
	h := e.Hierarchy

	first := exportables[0]
	study := &Study{
		PatientName:      first.Tags[TagPatientName],
		PatientID:        first.Tags[TagPatientID],
		PatientSex:       first.Tags[TagPatientSex],
		StudyDate:        first.Tags[TagStudyDate],
		StudyTime:        first.Tags[TagStudyTime],
		StudyDescription: withoutPlaceholder(first.Tags[TagStudyDescription], hierarchy.DefaultStudyDescription),
	}
	if item := h.AncestorAtLevel(first.Item, hierarchy.LevelStudy); item != hierarchy.InvalidItemID {
		study.StudyInstanceUID = h.UID(item, hierarchy.UIDNamespaceDICOM)
		study.StudyID, _ = h.Attribute(item, hierarchy.AttrStudyID)
	} else {
		log.Warn("Failed to get ancestor study of first exportable", "item", first.Item)
	}

	var (
		image, dose  *scene.Volume
		seg          *scene.Segmentation
		segName      string
		sliceUIDs    []string
		imageSeries  Series
		doseSeries   Series
		structSeries Series
	)
	for _, x := range exportables {
		entity, ok := e.Store.Get(h.Entity(x.Item))
		if !ok {
			log.Warn("Failed to get entity of exportable", "item", x.Item)
			continue
		}
		switch entity.Kind() {
		case scene.KindDoseVolume:
			dose, _ = entity.Volume()
			doseSeries = seriesOf(x)
		case scene.KindSegmentation:
			seg = entity.Payload.(*scene.Segmentation)
			segName = entity.Name
			structSeries = seriesOf(x)
		case scene.KindScalarVolume:
			image, _ = entity.Volume()
			imageSeries = seriesOf(x)
			imageSeries.Modality = x.Tags[TagModality]
			sliceUIDs = h.UIDs(x.Item, hierarchy.UIDNamespaceInstance)
		default:
			log.Warn("Unable to assign supported RT role to exported item", "item", h.Name(x.Item), "kind", entity.Kind())
		}
	}
	if image == nil {
		return nil, ErrNoAnatomicalImage
	}

	img, resampled, err := e.axisAligned(image.Image)
	if err != nil {
		return nil, fmt.Errorf("failed to convert anatomical image: %w", err)
	}
	if resampled {
		// The source slices no longer exist on the new grid.
		sliceUIDs = nil
	}
	study.Image = img
	study.ImageSeries = imageSeries
	study.ImageSliceUIDs = sliceUIDs

	if dose != nil {
		d, _, err := e.axisAligned(dose.Image)
		if err != nil {
			return nil, fmt.Errorf("failed to convert dose volume: %w", err)
		}
		study.Dose = d
		study.DoseSeries = doseSeries
	}

	if seg != nil {
		study.StructureSeries = structSeries
		structures, err := e.structures(segName, seg, img, sliceUIDs)
		if err != nil {
			return nil, err
		}
		study.Structures = structures
	}
	return study, nil
}

func seriesOf(x Exportable) Series {
	return Series{
		Description: withoutPlaceholder(x.Tags[TagSeriesDescription], hierarchy.DefaultSeriesName),
		Number:      x.Tags[TagSeriesNumber],
	}
}

func withoutPlaceholder(value, placeholder string) string {
	if value == placeholder {
		return ""
	}
	return value
}

// axisAligned returns a copy of v. Sheared grids are resampled onto a grid along the world axes,
// in which case resampled is set.
func (e *Exporter) axisAligned(v *volume.Volume) (out *volume.Volume, resampled bool, err error) {
	if v.Empty() {
		return nil, false, volume.ErrEmptyVolume
	}
	if !volume.ContainsShear(v.IJKToWorld, e.ShearEpsilon) {
		return v.Clone(), false, nil
	}
	e.logger().Debug("Resampling sheared volume", "op", "ExportDicomRTStudy", "dims", v.Dims)
	out, err = volume.ResampleAxisAligned(v, volume.Linear)
	return out, err == nil, err
}

// structures converts the segments of seg for export on the grid of image.
func (e *Exporter) structures(name string, seg *scene.Segmentation, image *volume.Volume, sliceUIDs []string) ([]Structure, error) {
	switch seg.MasterRepresentation {
	case segmentation.BinaryLabelmap:
		if err := seg.CreateRepresentation(e.Converter, segmentation.BinaryLabelmap); err != nil {
			return nil, fmt.Errorf("failed to get binary labelmap representation from segmentation %q: %w", name, err)
		}
		var out []Structure
		for _, s := range seg.Segments() {
			mask, err := maskOnImage(s, seg.ParentTransform, image)
			if err != nil {
				return nil, err
			}
			out = append(out, Structure{Name: s.Name, Color: s.Color, Mask: mask})
		}
		return out, nil

	case segmentation.ClosedSurface, segmentation.PlanarContours:
		if err := seg.CreateRepresentation(e.Converter, segmentation.ClosedSurface); err != nil {
			return nil, fmt.Errorf("failed to get closed surface representation from segmentation %q: %w", name, err)
		}
		var out []Structure
		for _, s := range seg.Segments() {
			if s.Surface.Empty() {
				return nil, fmt.Errorf("failed to get closed surface representation from segment %q", s.Name)
			}
			slices := SliceSurface(s.Surface.Transformed(seg.ParentTransform), image, sliceUIDs)
			out = append(out, Structure{Name: s.Name, Color: s.Color, Slices: slices})
		}
		return out, nil
	}
	return nil, fmt.Errorf("%w: %v", ErrUnsupportedRepresentation, seg.MasterRepresentation)
}

// maskOnImage moves the labelmap of s into world space and resamples it onto the image grid when
// the grids differ.
func maskOnImage(s *segmentation.Segment, parent geom.Mat4, image *volume.Volume) (*volume.Volume, error) {
	if s.Labelmap.Empty() {
		return nil, fmt.Errorf("failed to get binary labelmap representation from segment %q", s.Name)
	}
	mask := s.Labelmap.Clone()
	mask.ApplyTransform(parent)
	if mask.SameGeometry(image, geometryTolerance) {
		return mask, nil
	}
	resampled, err := volume.ResampleLike(mask, image, volume.Nearest)
	if err != nil {
		return nil, fmt.Errorf("failed to resample segment %q to match anatomical image geometry: %w", s.Name, err)
	}
	return resampled, nil
}

// Exportable returns an exportable for item whose tags are read from the attributes of the item
// and its patient and study ancestors.
func (e *Exporter) Exportable(item hierarchy.ItemID) Exportable {
	h := e.Hierarchy
	tags := map[string]string{}
	copyAttr := func(from hierarchy.ItemID, key, tag string) {
		if from == hierarchy.InvalidItemID {
			return
		}
		if v, ok := h.Attribute(from, key); ok && v != "" {
			tags[tag] = v
		}
	}
	patient := h.AncestorAtLevel(item, hierarchy.LevelPatient)
	copyAttr(patient, hierarchy.AttrPatientName, TagPatientName)
	copyAttr(patient, hierarchy.AttrPatientID, TagPatientID)
	copyAttr(patient, hierarchy.AttrPatientSex, TagPatientSex)
	study := h.AncestorAtLevel(item, hierarchy.LevelStudy)
	copyAttr(study, hierarchy.AttrStudyDate, TagStudyDate)
	copyAttr(study, hierarchy.AttrStudyTime, TagStudyTime)
	copyAttr(study, hierarchy.AttrStudyDescription, TagStudyDescription)
	copyAttr(item, hierarchy.AttrSeriesModality, TagModality)
	copyAttr(item, hierarchy.AttrSeriesNumber, TagSeriesNumber)
	tags[TagSeriesDescription] = h.Name(item)
	return Exportable{Item: item, Tags: tags}
}
