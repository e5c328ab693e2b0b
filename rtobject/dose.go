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
	"github.com/GoogleCloudPlatform/go-dicom-rt/volume"
)

// Dose is an RT dose grid. Grid values are the stored integers; multiplying them by GridScaling
// gives dose in Units.
type Dose struct {
	Header

	Grid        *volume.Volume
	GridScaling float64
	// HasGridScaling is false when the Dose Grid Scaling element is missing.
	HasGridScaling bool
	Units          string
	Type           string
	SummationType  string

	// ReferencedPlanSOPInstanceUID is the plan of the first Referenced RT Plan item.
	ReferencedPlanSOPInstanceUID string
}

// ReadDose reads an RT dose object.
func ReadDose(ds *dicom.DataSet) (*Dose, error) {
	d := &Dose{Header: readHeader(ds)}
	if d.SOPClassUID != dicom.RTDoseStorage {
		return nil, fmt.Errorf("SOP class %q: %w", d.SOPClassUID, ErrUnsupportedSOPClass)
	}
	d.GridScaling, d.HasGridScaling = ds.FindFloat64(dicom.DoseGridScalingTag)
	d.Units, _ = ds.FindString(dicom.DoseUnitsTag)
	d.Type, _ = ds.FindString(dicom.DoseTypeTag)
	d.SummationType, _ = ds.FindString(dicom.DoseSummationTypeTag)
	d.ReferencedPlanSOPInstanceUID = firstReferencedInstance(ds, dicom.ReferencedRTPlanSequenceTag)

	grid, err := readGrid(ds)
	if err != nil {
		return nil, fmt.Errorf("reading dose grid: %w", err)
	}
	d.Grid = grid
	return d, nil
}

// readGrid reads a multi-frame grid whose frame positions are given by the Grid Frame Offset
// Vector relative to the Image Position (Patient).
func readGrid(ds *dicom.DataSet) (*volume.Volume, error) {
	f, err := readPixelFormat(ds)
	if err != nil {
		return nil, err
	}
	values, err := decodePixels(ds, f)
	if err != nil {
		return nil, err
	}

	plane := readPlaneGeometry(ds)
	sliceSpacing := 1.0
	if offsets, ok := ds.FindFloat64s(dicom.GridFrameOffsetVectorTag); ok && len(offsets) > 0 {
		if len(offsets) != f.frames {
			return nil, fmt.Errorf("grid frame offset vector has %d values for %d frames", len(offsets), f.frames)
		}
		// Offsets are relative to the image position unless the first one is non-zero, in which
		// case they are positions along the normal.
		plane.origin = plane.origin.Add(plane.normal().Scale(offsets[0] - firstOffsetBase(offsets, plane)))
		if len(offsets) > 1 {
			sliceSpacing = offsets[1] - offsets[0]
		}
	} else if t, ok := ds.FindFloat64(dicom.SliceThicknessTag); ok && t > 0 {
		sliceSpacing = t
	}
	if sliceSpacing == 0 {
		return nil, fmt.Errorf("zero spacing between dose frames")
	}

	grid := volume.New([3]int{f.columns, f.rows, f.frames}, plane.ijkToRAS(sliceSpacing))
	copy(grid.Scalars, values)
	return grid, nil
}

// firstOffsetBase returns the normal coordinate the first offset is measured from. For relative
// offsets (first value 0) that is 0; absolute offsets are positions along the normal and are
// measured from the projection of the image position.
func firstOffsetBase(offsets []float64, plane planeGeometry) float64 {
	if offsets[0] == 0 {
		return 0
	}
	return plane.origin.Dot(plane.normal())
}
