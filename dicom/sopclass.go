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

package dicom

// SOP Class UIDs of the storage objects read and written by this module.
// http://dicom.nema.org/medical/dicom/current/output/html/part04.html#sect_B.5
const (
	CTImageStorage         = "1.2.840.10008.5.1.4.1.1.2"
	EnhancedCTImageStorage = "1.2.840.10008.5.1.4.1.1.2.1"
	MRImageStorage         = "1.2.840.10008.5.1.4.1.1.4"
	EnhancedMRImageStorage = "1.2.840.10008.5.1.4.1.1.4.1"
	PETImageStorage        = "1.2.840.10008.5.1.4.1.1.128"

	RTImageStorage        = "1.2.840.10008.5.1.4.1.1.481.1"
	RTDoseStorage         = "1.2.840.10008.5.1.4.1.1.481.2"
	RTStructureSetStorage = "1.2.840.10008.5.1.4.1.1.481.3"
	RTPlanStorage         = "1.2.840.10008.5.1.4.1.1.481.5"
	RTIonPlanStorage      = "1.2.840.10008.5.1.4.1.1.481.8"
)

// IsRTStorage reports whether the SOP class is one of the radiotherapy objects (RT image, dose,
// structure set, plan).
func IsRTStorage(sopClassUID string) bool {
	switch sopClassUID {
	case RTImageStorage, RTDoseStorage, RTStructureSetStorage, RTPlanStorage:
		return true
	}
	return false
}

// IsVolumetricImageStorage reports whether the SOP class holds slices of an anatomical image
// series that can be stacked into a volume.
func IsVolumetricImageStorage(sopClassUID string) bool {
	switch sopClassUID {
	case CTImageStorage, MRImageStorage, PETImageStorage:
		return true
	}
	return false
}
