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
	"math"
	"sort"

	"github.com/GoogleCloudPlatform/go-dicom-rt/dicom"
	"github.com/GoogleCloudPlatform/go-dicom-rt/volume"
)

// ImageSeries is an anatomical volume assembled from single-frame slices of one series.
type ImageSeries struct {
	Header

	Image *volume.Volume
	// SliceInstanceUIDs is the SOP Instance UID of every slice, in the order of the volume's third
	// axis.
	SliceInstanceUIDs []string

	WindowCenter float64
	WindowWidth  float64
}

type slice struct {
	ds       *dicom.DataSet
	plane    planeGeometry
	position float64
}

// ReadImageSeries stacks the slices of a CT, MR or PET series. Slices are sorted along the normal
// of the first slice and must share size and orientation. Rescale slope and intercept are applied.
func ReadImageSeries(slices []*dicom.DataSet) (*ImageSeries, error) {
	if len(slices) == 0 {
		return nil, fmt.Errorf("no slices")
	}
	s := &ImageSeries{Header: readHeader(slices[0])}
	if !dicom.IsVolumetricImageStorage(s.SOPClassUID) {
		return nil, fmt.Errorf("SOP class %q: %w", s.SOPClassUID, ErrUnsupportedSOPClass)
	}
	s.WindowCenter, _ = slices[0].FindFloat64(dicom.WindowCenterTag)
	s.WindowWidth, _ = slices[0].FindFloat64(dicom.WindowWidthTag)

	first := readPlaneGeometry(slices[0])
	normal := first.normal()
	sorted := make([]slice, 0, len(slices))
	for _, ds := range slices {
		if uid, _ := ds.FindString(dicom.SeriesInstanceUIDTag); uid != s.SeriesInstanceUID {
			return nil, fmt.Errorf("slice of series %q in series %q", uid, s.SeriesInstanceUID)
		}
		p := readPlaneGeometry(ds)
		if !p.row.Near(first.row, 1e-4) || !p.column.Near(first.column, 1e-4) {
			return nil, fmt.Errorf("slices have different orientations")
		}
		sorted = append(sorted, slice{ds: ds, plane: p, position: p.origin.Dot(normal)})
	}
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].position < sorted[j].position })

	f, err := readPixelFormat(sorted[0].ds)
	if err != nil {
		return nil, err
	}
	f.frames = 1

	spacing := 1.0
	if len(sorted) > 1 {
		spacing = sorted[1].position - sorted[0].position
		if spacing <= 0 {
			return nil, fmt.Errorf("slices %d and %d are at the same position", 0, 1)
		}
		for i := 2; i < len(sorted); i++ {
			if d := sorted[i].position - sorted[i-1].position; math.Abs(d-spacing) > 1e-3*spacing {
				return nil, fmt.Errorf("slice spacing %v differs from %v", d, spacing)
			}
		}
	} else if t, ok := sorted[0].ds.FindFloat64(dicom.SliceThicknessTag); ok && t > 0 {
		spacing = t
	}

	s.Image = volume.New([3]int{f.columns, f.rows, len(sorted)}, sorted[0].plane.ijkToRAS(spacing))
	n := f.rows * f.columns
	for k, sl := range sorted {
		sf, err := readPixelFormat(sl.ds)
		if err != nil {
			return nil, fmt.Errorf("slice %d: %v", k, err)
		}
		if sf.rows != f.rows || sf.columns != f.columns {
			return nil, fmt.Errorf("slice %d is %dx%d, want %dx%d", k, sf.columns, sf.rows, f.columns, f.rows)
		}
		sf.frames = 1
		values, err := decodePixels(sl.ds, sf)
		if err != nil {
			return nil, fmt.Errorf("slice %d: %w", k, err)
		}
		slope, ok := sl.ds.FindFloat64(dicom.RescaleSlopeTag)
		if !ok {
			slope = 1
		}
		intercept, _ := sl.ds.FindFloat64(dicom.RescaleInterceptTag)
		for i, v := range values {
			s.Image.Scalars[k*n+i] = v*slope + intercept
		}
		uid, _ := sl.ds.FindString(dicom.SOPInstanceUIDTag)
		s.SliceInstanceUIDs = append(s.SliceInstanceUIDs, uid)
	}
	return s, nil
}
