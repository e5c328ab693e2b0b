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
)

// Read reads the RT object held by ds: a *Dose, *Plan, *StructureSet or *RTImage.
func Read(ds *dicom.DataSet) (Object, error) {
	if ds == nil {
		return nil, fmt.Errorf("nil data set")
	}
	sopClass, _ := ds.FindString(dicom.SOPClassUIDTag)
	switch sopClass {
	case dicom.RTDoseStorage:
		return ReadDose(ds)
	case dicom.RTPlanStorage, dicom.RTIonPlanStorage:
		return ReadPlan(ds)
	case dicom.RTStructureSetStorage:
		return ReadStructureSet(ds)
	case dicom.RTImageStorage:
		return ReadRTImage(ds)
	}
	return nil, fmt.Errorf("SOP class %q: %w", sopClass, ErrUnsupportedSOPClass)
}

// ReadFile parses the file at path and reads the RT object it holds.
func ReadFile(path string) (Object, error) {
	ds, err := dicom.ParseFile(path)
	if err != nil {
		return nil, fmt.Errorf("parsing %s: %v", path, err)
	}
	obj, err := Read(ds)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return obj, nil
}

// ReadImageSeriesFiles parses the slice files of one series and stacks them.
func ReadImageSeriesFiles(paths []string) (*ImageSeries, error) {
	slices := make([]*dicom.DataSet, 0, len(paths))
	for _, path := range paths {
		ds, err := dicom.ParseFile(path)
		if err != nil {
			return nil, fmt.Errorf("parsing %s: %v", path, err)
		}
		slices = append(slices, ds)
	}
	return ReadImageSeries(slices)
}
