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
	"fmt"

	"github.com/GoogleCloudPlatform/go-dicom-rt/dicom"
	"github.com/GoogleCloudPlatform/go-dicom-rt/geom"
	"github.com/GoogleCloudPlatform/go-dicom-rt/segmentation"
)

// ROI is a region of interest of a structure set with its contours in RAS.
type ROI struct {
	Number          int
	Name            string
	Color           [3]float64
	InterpretedType string

	FrameOfReferenceUID string
	// ReferencedSeriesUID is the image series the ROI was drawn on, found through its frame of
	// reference.
	ReferencedSeriesUID string

	Contours []segmentation.Contour
}

// PointCount is the number of contour points of the ROI.
func (r ROI) PointCount() int {
	n := 0
	for _, c := range r.Contours {
		n += len(c.Points)
	}
	return n
}

// StructureSet is an RT structure set.
type StructureSet struct {
	Header

	Label string
	Name  string

	ROIs *dicom.Items[ROI]

	// ReferencedInstanceUIDs are the images the contours were drawn on.
	ReferencedInstanceUIDs []string
}

// defaultROIColor is used for ROIs without a display color.
var defaultROIColor = [3]float64{0.5, 0.5, 0.5}

// ReadStructureSet reads an RT structure set object. ROIs keep the order of the Structure Set ROI
// Sequence.
func ReadStructureSet(ds *dicom.DataSet) (*StructureSet, error) {
	s := &StructureSet{Header: readHeader(ds)}
	if s.SOPClassUID != dicom.RTStructureSetStorage {
		return nil, fmt.Errorf("SOP class %q: %w", s.SOPClassUID, ErrUnsupportedSOPClass)
	}
	s.Label, _ = ds.FindString(dicom.StructureSetLabelTag)
	s.Name, _ = ds.FindString(dicom.StructureSetNameTag)
	s.ReferencedInstanceUIDs = ReferencedImageInstanceUIDs(ds)

	seriesByFrame := referencedSeriesByFrame(ds)
	s.ROIs = dicom.CollectItems(ds, dicom.StructureSetROISequenceTag, func(item *dicom.DataSet) (ROI, bool) {
		number, ok := item.FindInt(dicom.ROINumberTag)
		if !ok {
			return ROI{}, false
		}
		r := ROI{Number: number, Color: defaultROIColor}
		r.Name, _ = item.FindString(dicom.ROINameTag)
		r.FrameOfReferenceUID, _ = item.FindString(dicom.ReferencedFrameOfReferenceUIDTag)
		r.ReferencedSeriesUID = seriesByFrame[r.FrameOfReferenceUID]
		return r, true
	})

	index := map[int]int{}
	for i, r := range s.ROIs.All() {
		index[r.Number] = i
	}
	for c := ds.FirstItemOf(dicom.ROIContourSequenceTag); c.Valid(); c.Next() {
		item := c.Item()
		number, ok := item.FindInt(dicom.ReferencedROINumberTag)
		if !ok {
			continue
		}
		i, ok := index[number]
		if !ok {
			continue
		}
		r, _ := s.ROIs.At(i)
		if rgb, ok := item.FindFloat64s(dicom.ROIDisplayColorTag); ok && len(rgb) == 3 {
			r.Color = [3]float64{rgb[0] / 255, rgb[1] / 255, rgb[2] / 255}
		}
		contours, err := readContours(item)
		if err != nil {
			return nil, fmt.Errorf("ROI %d: %v", number, err)
		}
		r.Contours = contours
		s.ROIs.Set(i, r)
	}

	for c := ds.FirstItemOf(dicom.RTROIObservationsSequenceTag); c.Valid(); c.Next() {
		number, ok := c.Item().FindInt(dicom.ReferencedROINumberTag)
		if !ok {
			continue
		}
		if i, ok := index[number]; ok {
			r, _ := s.ROIs.At(i)
			r.InterpretedType, _ = c.Item().FindString(dicom.RTROIInterpretedTypeTag)
			s.ROIs.Set(i, r)
		}
	}
	return s, nil
}

func readContours(roi *dicom.DataSet) ([]segmentation.Contour, error) {
	var contours []segmentation.Contour
	for c := roi.FirstItemOf(dicom.ContourSequenceTag); c.Valid(); c.Next() {
		data, ok := c.Item().FindFloat64s(dicom.ContourDataTag)
		if !ok || len(data) == 0 {
			continue
		}
		if len(data)%3 != 0 {
			return nil, fmt.Errorf("contour %d has %d coordinates, want a multiple of 3", c.Index(), len(data))
		}
		contour := segmentation.Contour{
			Points:                   make([]geom.Vec3, 0, len(data)/3),
			ReferencedSOPInstanceUID: firstReferencedInstance(c.Item(), dicom.ContourImageSequenceTag),
		}
		for i := 0; i < len(data); i += 3 {
			contour.Points = append(contour.Points, geom.LPSToRAS(geom.Vec3{data[i], data[i+1], data[i+2]}))
		}
		contours = append(contours, contour)
	}
	return contours, nil
}

// referencedSeriesByFrame maps each referenced frame of reference to the first series listed for
// it.
func referencedSeriesByFrame(ds *dicom.DataSet) map[string]string {
	out := map[string]string{}
	for f := ds.FirstItemOf(dicom.ReferencedFrameOfReferenceSequenceTag); f.Valid(); f.Next() {
		frame, _ := f.Item().FindString(dicom.FrameOfReferenceUIDTag)
		if _, ok := out[frame]; ok {
			continue
		}
		for st := f.Item().FirstItemOf(dicom.RTReferencedStudySequenceTag); st.Valid(); st.Next() {
			se := st.Item().FirstItemOf(dicom.RTReferencedSeriesSequenceTag)
			if !se.Valid() {
				continue
			}
			if uid, ok := se.Item().FindString(dicom.SeriesInstanceUIDTag); ok && uid != "" {
				out[frame] = uid
				break
			}
		}
	}
	return out
}

// ReferencedImageInstanceUIDs returns the distinct SOP Instance UIDs of the images the contours of
// a structure set were drawn on. When no contour references an image, the contour images of the
// first series of the first study of the first referenced frame of reference are returned.
func ReferencedImageInstanceUIDs(ds *dicom.DataSet) []string {
	var uids []string
	seen := map[string]bool{}
	add := func(uid string) {
		if uid != "" && !seen[uid] {
			seen[uid] = true
			uids = append(uids, uid)
		}
	}
	for roi := ds.FirstItemOf(dicom.ROIContourSequenceTag); roi.Valid(); roi.Next() {
		for c := roi.Item().FirstItemOf(dicom.ContourSequenceTag); c.Valid(); c.Next() {
			add(firstReferencedInstance(c.Item(), dicom.ContourImageSequenceTag))
		}
	}
	if len(uids) > 0 {
		return uids
	}

	frame := ds.FirstItemOf(dicom.ReferencedFrameOfReferenceSequenceTag).Item()
	if frame == nil {
		return nil
	}
	study := frame.FirstItemOf(dicom.RTReferencedStudySequenceTag).Item()
	if study == nil {
		return nil
	}
	series := study.FirstItemOf(dicom.RTReferencedSeriesSequenceTag).Item()
	if series == nil {
		return nil
	}
	for _, uid := range referencedInstances(series, dicom.ContourImageSequenceTag) {
		add(uid)
	}
	return uids
}
