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
	"encoding/binary"
	"fmt"

	"github.com/GoogleCloudPlatform/go-dicom-rt/dicom"
	"github.com/GoogleCloudPlatform/go-dicom-rt/geom"
)

type pixelFormat struct {
	rows, columns, frames int
	bitsAllocated         int
	signed                bool
}

func (f pixelFormat) len() int {
	return f.rows * f.columns * f.frames
}

func readPixelFormat(ds *dicom.DataSet) (pixelFormat, error) {
	f := pixelFormat{frames: 1, bitsAllocated: 16}
	var ok bool
	if f.rows, ok = ds.FindInt(dicom.RowsTag); !ok || f.rows <= 0 {
		return f, fmt.Errorf("missing or invalid rows")
	}
	if f.columns, ok = ds.FindInt(dicom.ColumnsTag); !ok || f.columns <= 0 {
		return f, fmt.Errorf("missing or invalid columns")
	}
	if n, ok := ds.FindInt(dicom.NumberOfFramesTag); ok && n > 0 {
		f.frames = n
	}
	if n, ok := ds.FindInt(dicom.BitsAllocatedTag); ok {
		f.bitsAllocated = n
	}
	if n, ok := ds.FindInt(dicom.SamplesPerPixelTag); ok && n != 1 {
		return f, fmt.Errorf("%d samples per pixel, want 1", n)
	}
	rep, _ := ds.FindInt(dicom.PixelRepresentationTag)
	f.signed = rep == 1
	return f, nil
}

// decodePixels returns the stored values of native pixel data in frame, row, column order.
func decodePixels(ds *dicom.DataSet, f pixelFormat) ([]float64, error) {
	e, ok := ds.Find(dicom.PixelDataTag)
	if !ok {
		return nil, fmt.Errorf("missing pixel data")
	}
	var b []byte
	switch v := e.ValueField.(type) {
	case [][]byte:
		return nil, ErrCompressedPixelData
	case []byte:
		b = v
	default:
		return nil, fmt.Errorf("unexpected pixel data value %T", e.ValueField)
	}

	n := f.len()
	size := f.bitsAllocated / 8
	if size == 0 || f.bitsAllocated%8 != 0 {
		return nil, fmt.Errorf("%d bits allocated is not supported", f.bitsAllocated)
	}
	if len(b) < n*size {
		return nil, fmt.Errorf("pixel data holds %d bytes, want %d", len(b), n*size)
	}

	out := make([]float64, n)
	for i := range out {
		switch {
		case size == 1 && f.signed:
			out[i] = float64(int8(b[i]))
		case size == 1:
			out[i] = float64(b[i])
		case size == 2 && f.signed:
			out[i] = float64(int16(binary.LittleEndian.Uint16(b[2*i:])))
		case size == 2:
			out[i] = float64(binary.LittleEndian.Uint16(b[2*i:]))
		case size == 4 && f.signed:
			out[i] = float64(int32(binary.LittleEndian.Uint32(b[4*i:])))
		case size == 4:
			out[i] = float64(binary.LittleEndian.Uint32(b[4*i:]))
		default:
			return nil, fmt.Errorf("%d bits allocated is not supported", f.bitsAllocated)
		}
	}
	return out, nil
}

// planeGeometry is the placement of one image plane in the patient frame (LPS).
type planeGeometry struct {
	origin      geom.Vec3
	row, column geom.Vec3
	// rowSpacing is the distance between rows, columnSpacing between columns.
	rowSpacing, columnSpacing float64
}

func (p planeGeometry) normal() geom.Vec3 {
	return p.row.Cross(p.column).Normalize()
}

func readPlaneGeometry(ds *dicom.DataSet) planeGeometry {
	p := planeGeometry{
		row:           geom.Vec3{1, 0, 0},
		column:        geom.Vec3{0, 1, 0},
		rowSpacing:    1,
		columnSpacing: 1,
	}
	if v, ok := ds.FindFloat64s(dicom.ImagePositionPatientTag); ok && len(v) == 3 {
		p.origin = geom.Vec3{v[0], v[1], v[2]}
	}
	if v, ok := ds.FindFloat64s(dicom.ImageOrientationPatientTag); ok && len(v) == 6 {
		p.row = geom.Vec3{v[0], v[1], v[2]}.Normalize()
		p.column = geom.Vec3{v[3], v[4], v[5]}.Normalize()
	}
	if v, ok := ds.FindFloat64s(dicom.PixelSpacingTag); ok && len(v) == 2 && v[0] > 0 && v[1] > 0 {
		p.rowSpacing, p.columnSpacing = v[0], v[1]
	}
	return p
}

// ijkToRAS builds the voxel to RAS matrix of a grid whose slices are sliceSpacing apart along the
// plane normal.
func (p planeGeometry) ijkToRAS(sliceSpacing float64) geom.Mat4 {
	lps := geom.Identity()
	lps.SetColumn(0, p.row.Scale(p.columnSpacing))
	lps.SetColumn(1, p.column.Scale(p.rowSpacing))
	lps.SetColumn(2, p.normal().Scale(sliceSpacing))
	lps.SetColumn(3, p.origin)
	return geom.LPSToRASMatrix().Mul(lps)
}
