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
	"github.com/GoogleCloudPlatform/go-dicom-rt/geom"
	"github.com/GoogleCloudPlatform/go-dicom-rt/volume"
)

// Series holds the series level tags of one exported object.
type Series struct {
	Description string
	Number      string
	Modality    string
}

// SliceContours are the closed polygons of a structure on one slice of the anatomical image.
type SliceContours struct {
	// Index is the slice number along the third axis of the image.
	Index int
	// SOPInstanceUID is the instance the slice was loaded from, empty when unknown.
	SOPInstanceUID string
	Polygons       [][]geom.Vec3
}

// Structure is an exported segment. Exactly one of Mask and Slices is set: Mask lies on the grid
// of the anatomical image and Slices hold world coordinate (RAS) polygons.
type Structure struct {
	Name   string
	Color  [3]float64
	Mask   *volume.Volume
	Slices []SliceContours
}

// Study is everything an export writes. Volumes are in RAS and their axes are orthogonal.
type Study struct {
	PatientName      string
	PatientID        string
	PatientSex       string
	StudyInstanceUID string
	StudyID          string
	StudyDate        string
	StudyTime        string
	StudyDescription string

	Image          *volume.Volume
	ImageSeries    Series
	ImageSliceUIDs []string

	Dose       *volume.Volume
	DoseSeries Series

	Structures      []Structure
	StructureSeries Series
}
