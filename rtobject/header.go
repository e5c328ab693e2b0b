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

// Package rtobject reads radiotherapy objects (RT dose, RT plan, RT structure set, RT image) and
// anatomical image series out of parsed DICOM data sets. Objects hold the values as they are
// encoded in the file; positions are converted from the DICOM patient frame (LPS) to RAS.
package rtobject

import (
	"errors"

	"github.com/GoogleCloudPlatform/go-dicom-rt/dicom"
)

var (
	// ErrUnsupportedSOPClass is returned for data sets that are not one of the supported objects.
	ErrUnsupportedSOPClass = errors.New("unsupported SOP class")
	// ErrCompressedPixelData is returned when pixel data is encapsulated.
	ErrCompressedPixelData = errors.New("encapsulated pixel data is not supported")
)

// Header holds the patient, study, series and instance identity common to all objects.
type Header struct {
	SOPClassUID    string
	SOPInstanceUID string
	InstanceNumber string

	PatientName      string
	PatientID        string
	PatientSex       string
	PatientBirthDate string
	PatientComments  string

	StudyInstanceUID string
	StudyID          string
	StudyDescription string
	StudyDate        string
	StudyTime        string

	SeriesInstanceUID string
	SeriesDescription string
	SeriesNumber      string
	Modality          string

	FrameOfReferenceUID string
}

// ObjectHeader returns the header itself, so every object embedding a Header is an Object.
func (h *Header) ObjectHeader() *Header {
	return h
}

// Object is any object read by this package.
type Object interface {
	ObjectHeader() *Header
}

func readHeader(ds *dicom.DataSet) Header {
	str := func(tag dicom.DataElementTag) string {
		s, _ := ds.FindString(tag)
		return s
	}
	return Header{
		SOPClassUID:    str(dicom.SOPClassUIDTag),
		SOPInstanceUID: str(dicom.SOPInstanceUIDTag),
		InstanceNumber: str(dicom.InstanceNumberTag),

		PatientName:      str(dicom.PatientNameTag),
		PatientID:        str(dicom.PatientIDTag),
		PatientSex:       str(dicom.PatientSexTag),
		PatientBirthDate: str(dicom.PatientBirthDateTag),
		PatientComments:  str(dicom.PatientCommentsTag),

		StudyInstanceUID: str(dicom.StudyInstanceUIDTag),
		StudyID:          str(dicom.StudyIDTag),
		StudyDescription: str(dicom.StudyDescriptionTag),
		StudyDate:        str(dicom.StudyDateTag),
		StudyTime:        str(dicom.StudyTimeTag),

		SeriesInstanceUID: str(dicom.SeriesInstanceUIDTag),
		SeriesDescription: str(dicom.SeriesDescriptionTag),
		SeriesNumber:      str(dicom.SeriesNumberTag),
		Modality:          str(dicom.ModalityTag),

		FrameOfReferenceUID: str(dicom.FrameOfReferenceUIDTag),
	}
}

// firstReferencedInstance returns the Referenced SOP Instance UID of the first item of the
// sequence stored under tag.
func firstReferencedInstance(ds *dicom.DataSet, tag dicom.DataElementTag) string {
	c := ds.FirstItemOf(tag)
	if !c.Valid() {
		return ""
	}
	uid, _ := c.Item().FindString(dicom.ReferencedSOPInstanceUIDTag)
	return uid
}

// referencedInstances returns the Referenced SOP Instance UIDs of all items of the sequence stored
// under tag.
func referencedInstances(ds *dicom.DataSet, tag dicom.DataElementTag) []string {
	var uids []string
	for c := ds.FirstItemOf(tag); c.Valid(); c.Next() {
		if uid, ok := c.Item().FindString(dicom.ReferencedSOPInstanceUIDTag); ok && uid != "" {
			uids = append(uids, uid)
		}
	}
	return uids
}
