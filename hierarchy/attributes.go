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

package hierarchy

// Namespaces of item UIDs.
const (
	// UIDNamespaceDICOM holds patient IDs, study and series instance UIDs.
	UIDNamespaceDICOM = "DICOM"
	// UIDNamespaceInstance holds SOP Instance UIDs of the objects an item was loaded from.
	UIDNamespaceInstance = "DICOMInstanceUID"
)

// Attribute names. They are persisted with the scene and form the durable linkage between items,
// so their spelling must not change.
const (
	AttrPatientName            = "DICOM.PatientName"
	AttrPatientID              = "DICOM.PatientID"
	AttrPatientSex             = "DICOM.PatientSex"
	AttrPatientBirthDate       = "DICOM.PatientBirthDate"
	AttrPatientComments        = "DICOM.PatientComments"
	AttrStudyInstanceUID       = "DICOM.StudyInstanceUID"
	AttrStudyID                = "DICOM.StudyID"
	AttrStudyDescription       = "DICOM.StudyDescription"
	AttrStudyDate              = "DICOM.StudyDate"
	AttrStudyTime              = "DICOM.StudyTime"
	AttrSeriesModality         = "DICOM.Modality"
	AttrSeriesNumber           = "DICOM.SeriesNumber"
	AttrReferencedInstanceUIDs = "DICOM.ReferencedInstanceUIDs"

	AttrDoseVolume             = "DicomRtImport.DoseVolume"
	AttrDoseUnitName           = "DicomRtImport.DoseUnitName"
	AttrDoseUnitValue          = "DicomRtImport.DoseUnitValue"
	AttrRTImage                = "DicomRtImport.RtImage"
	AttrSourceAxisDistance     = "DicomRtImport.SourceAxisDistance"
	AttrGantryAngle            = "DicomRtImport.GantryAngle"
	AttrCouchAngle             = "DicomRtImport.CouchAngle"
	AttrCollimatorAngle        = "DicomRtImport.CollimatorAngle"
	AttrBeamNumber             = "DicomRtImport.BeamNumber"
	AttrRTImageSID             = "DicomRtImport.RtImageSid"
	AttrRTImagePosition        = "DicomRtImport.RtImagePosition"
	AttrRoiReferencedSeriesUID = "DicomRtImport.RoiReferencedSeriesUid"
	AttrAccumulatedDoseVolume  = "DicomRtImport.AccumulatedDose"
)

// Placeholder labels for items whose identifying text is missing.
const (
	DefaultPatientName      = "No name"
	DefaultStudyDescription = "No study description"
	DefaultSeriesName       = "No series description"
)
