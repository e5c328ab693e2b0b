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

// Tags used by the RT objects handled in this module. Names follow the keywords of
// http://dicom.nema.org/medical/dicom/current/output/html/part06.html#chapter_6
const (
	ItemTag                     DataElementTag = 0xFFFEE000
	ItemDelimitationItemTag     DataElementTag = 0xFFFEE00D
	SequenceDelimitationItemTag DataElementTag = 0xFFFEE0DD

	FileMetaInformationGroupLengthTag DataElementTag = 0x00020000
	FileMetaInformationVersionTag     DataElementTag = 0x00020001
	MediaStorageSOPClassUIDTag        DataElementTag = 0x00020002
	MediaStorageSOPInstanceUIDTag     DataElementTag = 0x00020003
	TransferSyntaxUIDTag              DataElementTag = 0x00020010
	ImplementationClassUIDTag         DataElementTag = 0x00020012
	ImplementationVersionNameTag      DataElementTag = 0x00020013

	SpecificCharacterSetTag     DataElementTag = 0x00080005
	ImageTypeTag                DataElementTag = 0x00080008
	InstanceCreationDateTag     DataElementTag = 0x00080012
	InstanceCreationTimeTag     DataElementTag = 0x00080013
	SOPClassUIDTag              DataElementTag = 0x00080016
	SOPInstanceUIDTag           DataElementTag = 0x00080018
	StudyDateTag                DataElementTag = 0x00080020
	SeriesDateTag               DataElementTag = 0x00080021
	StudyTimeTag                DataElementTag = 0x00080030
	SeriesTimeTag               DataElementTag = 0x00080031
	AccessionNumberTag          DataElementTag = 0x00080050
	ModalityTag                 DataElementTag = 0x00080060
	ManufacturerTag             DataElementTag = 0x00080070
	ReferringPhysicianNameTag   DataElementTag = 0x00080090
	StudyDescriptionTag         DataElementTag = 0x00081030
	SeriesDescriptionTag        DataElementTag = 0x0008103E
	ReferencedSOPClassUIDTag    DataElementTag = 0x00081150
	ReferencedSOPInstanceUIDTag DataElementTag = 0x00081155

	PatientNameTag      DataElementTag = 0x00100010
	PatientIDTag        DataElementTag = 0x00100020
	PatientBirthDateTag DataElementTag = 0x00100030
	PatientSexTag       DataElementTag = 0x00100040
	PatientCommentsTag  DataElementTag = 0x00104000

	SliceThicknessTag DataElementTag = 0x00180050

	StudyInstanceUIDTag           DataElementTag = 0x0020000D
	SeriesInstanceUIDTag          DataElementTag = 0x0020000E
	StudyIDTag                    DataElementTag = 0x00200010
	SeriesNumberTag               DataElementTag = 0x00200011
	InstanceNumberTag             DataElementTag = 0x00200013
	ImagePositionPatientTag       DataElementTag = 0x00200032
	ImageOrientationPatientTag    DataElementTag = 0x00200037
	FrameOfReferenceUIDTag        DataElementTag = 0x00200052
	PositionReferenceIndicatorTag DataElementTag = 0x00201040

	SamplesPerPixelTag           DataElementTag = 0x00280002
	PhotometricInterpretationTag DataElementTag = 0x00280004
	NumberOfFramesTag            DataElementTag = 0x00280008
	FrameIncrementPointerTag     DataElementTag = 0x00280009
	RowsTag                      DataElementTag = 0x00280010
	ColumnsTag                   DataElementTag = 0x00280011
	PixelSpacingTag              DataElementTag = 0x00280030
	BitsAllocatedTag             DataElementTag = 0x00280100
	BitsStoredTag                DataElementTag = 0x00280101
	HighBitTag                   DataElementTag = 0x00280102
	PixelRepresentationTag       DataElementTag = 0x00280103
	WindowCenterTag              DataElementTag = 0x00281050
	WindowWidthTag               DataElementTag = 0x00281051
	RescaleInterceptTag          DataElementTag = 0x00281052
	RescaleSlopeTag              DataElementTag = 0x00281053

	RTImageLabelTag                       DataElementTag = 0x30020002
	RTImageNameTag                        DataElementTag = 0x30020003
	RTImageDescriptionTag                 DataElementTag = 0x30020004
	RTImagePlaneTag                       DataElementTag = 0x3002000C
	XRayImageReceptorTranslationTag       DataElementTag = 0x3002000D
	XRayImageReceptorAngleTag             DataElementTag = 0x3002000E
	ImagePlanePixelSpacingTag             DataElementTag = 0x30020011
	RTImagePositionTag                    DataElementTag = 0x30020012
	RadiationMachineNameTag               DataElementTag = 0x30020020
	RadiationMachineSADTag                DataElementTag = 0x30020022
	RTImageSIDTag                         DataElementTag = 0x30020026
	DoseUnitsTag                          DataElementTag = 0x30040002
	DoseTypeTag                           DataElementTag = 0x30040004
	DoseSummationTypeTag                  DataElementTag = 0x3004000A
	GridFrameOffsetVectorTag              DataElementTag = 0x3004000C
	DoseGridScalingTag                    DataElementTag = 0x3004000E
	StructureSetLabelTag                  DataElementTag = 0x30060002
	StructureSetNameTag                   DataElementTag = 0x30060004
	StructureSetDateTag                   DataElementTag = 0x30060008
	StructureSetTimeTag                   DataElementTag = 0x30060009
	ReferencedFrameOfReferenceSequenceTag DataElementTag = 0x30060010
	RTReferencedStudySequenceTag          DataElementTag = 0x30060012
	RTReferencedSeriesSequenceTag         DataElementTag = 0x30060014
	ContourImageSequenceTag               DataElementTag = 0x30060016
	StructureSetROISequenceTag            DataElementTag = 0x30060020
	ROINumberTag                          DataElementTag = 0x30060022
	ReferencedFrameOfReferenceUIDTag      DataElementTag = 0x30060024
	ROINameTag                            DataElementTag = 0x30060026
	ROIDisplayColorTag                    DataElementTag = 0x3006002A
	ROIGenerationAlgorithmTag             DataElementTag = 0x30060036
	ROIContourSequenceTag                 DataElementTag = 0x30060039
	ContourSequenceTag                    DataElementTag = 0x30060040
	ContourGeometricTypeTag               DataElementTag = 0x30060042
	NumberOfContourPointsTag              DataElementTag = 0x30060046
	ContourDataTag                        DataElementTag = 0x30060050
	RTROIObservationsSequenceTag          DataElementTag = 0x30060080
	ObservationNumberTag                  DataElementTag = 0x30060082
	ReferencedROINumberTag                DataElementTag = 0x30060084
	RTROIInterpretedTypeTag               DataElementTag = 0x300600A4
	ROIInterpreterTag                     DataElementTag = 0x300600A6

	RTPlanLabelTag                        DataElementTag = 0x300A0002
	RTPlanNameTag                         DataElementTag = 0x300A0003
	RTPlanDescriptionTag                  DataElementTag = 0x300A0004
	RTPlanDateTag                         DataElementTag = 0x300A0006
	RTPlanTimeTag                         DataElementTag = 0x300A0007
	RTPlanGeometryTag                     DataElementTag = 0x300A000C
	BeamSequenceTag                       DataElementTag = 0x300A00B0
	TreatmentMachineNameTag               DataElementTag = 0x300A00B2
	SourceAxisDistanceTag                 DataElementTag = 0x300A00B4
	BeamLimitingDeviceSequenceTag         DataElementTag = 0x300A00B6
	RTBeamLimitingDeviceTypeTag           DataElementTag = 0x300A00B8
	BeamNumberTag                         DataElementTag = 0x300A00C0
	BeamNameTag                           DataElementTag = 0x300A00C2
	BeamDescriptionTag                    DataElementTag = 0x300A00C3
	BeamTypeTag                           DataElementTag = 0x300A00C4
	RadiationTypeTag                      DataElementTag = 0x300A00C6
	NumberOfControlPointsTag              DataElementTag = 0x300A0110
	ControlPointSequenceTag               DataElementTag = 0x300A0111
	ControlPointIndexTag                  DataElementTag = 0x300A0112
	BeamLimitingDevicePositionSequenceTag DataElementTag = 0x300A011A
	LeafJawPositionsTag                   DataElementTag = 0x300A011C
	GantryAngleTag                        DataElementTag = 0x300A011E
	BeamLimitingDeviceAngleTag            DataElementTag = 0x300A0120
	PatientSupportAngleTag                DataElementTag = 0x300A0122
	IsocenterPositionTag                  DataElementTag = 0x300A012C

	ReferencedRTPlanSequenceTag       DataElementTag = 0x300C0002
	ReferencedBeamNumberTag           DataElementTag = 0x300C0006
	ReferencedFractionGroupNumberTag  DataElementTag = 0x300C0022
	ReferencedStructureSetSequenceTag DataElementTag = 0x300C0060
	ReferencedDoseSequenceTag         DataElementTag = 0x300C0080

	PixelDataTag DataElementTag = 0x7FE00010
)

var dictionary = map[DataElementTag]*VR{
	FileMetaInformationVersionTag: OBVR,
	MediaStorageSOPClassUIDTag:    UIVR,
	MediaStorageSOPInstanceUIDTag: UIVR,
	TransferSyntaxUIDTag:          UIVR,
	ImplementationClassUIDTag:     UIVR,
	ImplementationVersionNameTag:  SHVR,

	SpecificCharacterSetTag:     CSVR,
	ImageTypeTag:                CSVR,
	InstanceCreationDateTag:     DAVR,
	InstanceCreationTimeTag:     TMVR,
	SOPClassUIDTag:              UIVR,
	SOPInstanceUIDTag:           UIVR,
	StudyDateTag:                DAVR,
	SeriesDateTag:               DAVR,
	StudyTimeTag:                TMVR,
	SeriesTimeTag:               TMVR,
	AccessionNumberTag:          SHVR,
	ModalityTag:                 CSVR,
	ManufacturerTag:             LOVR,
	ReferringPhysicianNameTag:   PNVR,
	StudyDescriptionTag:         LOVR,
	SeriesDescriptionTag:        LOVR,
	ReferencedSOPClassUIDTag:    UIVR,
	ReferencedSOPInstanceUIDTag: UIVR,

	PatientNameTag:      PNVR,
	PatientIDTag:        LOVR,
	PatientBirthDateTag: DAVR,
	PatientSexTag:       CSVR,
	PatientCommentsTag:  LTVR,

	SliceThicknessTag: DSVR,

	StudyInstanceUIDTag:           UIVR,
	SeriesInstanceUIDTag:          UIVR,
	StudyIDTag:                    SHVR,
	SeriesNumberTag:               ISVR,
	InstanceNumberTag:             ISVR,
	ImagePositionPatientTag:       DSVR,
	ImageOrientationPatientTag:    DSVR,
	FrameOfReferenceUIDTag:        UIVR,
	PositionReferenceIndicatorTag: LOVR,

	SamplesPerPixelTag:           USVR,
	PhotometricInterpretationTag: CSVR,
	NumberOfFramesTag:            ISVR,
	FrameIncrementPointerTag:     ATVR,
	RowsTag:                      USVR,
	ColumnsTag:                   USVR,
	PixelSpacingTag:              DSVR,
	BitsAllocatedTag:             USVR,
	BitsStoredTag:                USVR,
	HighBitTag:                   USVR,
	PixelRepresentationTag:       USVR,
	WindowCenterTag:              DSVR,
	WindowWidthTag:               DSVR,
	RescaleInterceptTag:          DSVR,
	RescaleSlopeTag:              DSVR,

	RTImageLabelTag:                       SHVR,
	RTImageNameTag:                        LOVR,
	RTImageDescriptionTag:                 STVR,
	RTImagePlaneTag:                       CSVR,
	XRayImageReceptorTranslationTag:       DSVR,
	XRayImageReceptorAngleTag:             DSVR,
	ImagePlanePixelSpacingTag:             DSVR,
	RTImagePositionTag:                    DSVR,
	RadiationMachineNameTag:               SHVR,
	RadiationMachineSADTag:                DSVR,
	RTImageSIDTag:                         DSVR,
	DoseUnitsTag:                          CSVR,
	DoseTypeTag:                           CSVR,
	DoseSummationTypeTag:                  CSVR,
	GridFrameOffsetVectorTag:              DSVR,
	DoseGridScalingTag:                    DSVR,
	StructureSetLabelTag:                  SHVR,
	StructureSetNameTag:                   LOVR,
	StructureSetDateTag:                   DAVR,
	StructureSetTimeTag:                   TMVR,
	ReferencedFrameOfReferenceSequenceTag: SQVR,
	RTReferencedStudySequenceTag:          SQVR,
	RTReferencedSeriesSequenceTag:         SQVR,
	ContourImageSequenceTag:               SQVR,
	StructureSetROISequenceTag:            SQVR,
	ROINumberTag:                          ISVR,
	ReferencedFrameOfReferenceUIDTag:      UIVR,
	ROINameTag:                            LOVR,
	ROIDisplayColorTag:                    ISVR,
	ROIGenerationAlgorithmTag:             CSVR,
	ROIContourSequenceTag:                 SQVR,
	ContourSequenceTag:                    SQVR,
	ContourGeometricTypeTag:               CSVR,
	NumberOfContourPointsTag:              ISVR,
	ContourDataTag:                        DSVR,
	RTROIObservationsSequenceTag:          SQVR,
	ObservationNumberTag:                  ISVR,
	ReferencedROINumberTag:                ISVR,
	RTROIInterpretedTypeTag:               CSVR,
	ROIInterpreterTag:                     PNVR,

	RTPlanLabelTag:                        SHVR,
	RTPlanNameTag:                         LOVR,
	RTPlanDescriptionTag:                  STVR,
	RTPlanDateTag:                         DAVR,
	RTPlanTimeTag:                         TMVR,
	RTPlanGeometryTag:                     CSVR,
	BeamSequenceTag:                       SQVR,
	TreatmentMachineNameTag:               SHVR,
	SourceAxisDistanceTag:                 DSVR,
	BeamLimitingDeviceSequenceTag:         SQVR,
	RTBeamLimitingDeviceTypeTag:           CSVR,
	BeamNumberTag:                         ISVR,
	BeamNameTag:                           LOVR,
	BeamDescriptionTag:                    STVR,
	BeamTypeTag:                           CSVR,
	RadiationTypeTag:                      CSVR,
	NumberOfControlPointsTag:              ISVR,
	ControlPointSequenceTag:               SQVR,
	ControlPointIndexTag:                  ISVR,
	BeamLimitingDevicePositionSequenceTag: SQVR,
	LeafJawPositionsTag:                   DSVR,
	GantryAngleTag:                        DSVR,
	BeamLimitingDeviceAngleTag:            DSVR,
	PatientSupportAngleTag:                DSVR,
	IsocenterPositionTag:                  DSVR,

	ReferencedRTPlanSequenceTag:       SQVR,
	ReferencedBeamNumberTag:           ISVR,
	ReferencedFractionGroupNumberTag:  ISVR,
	ReferencedStructureSetSequenceTag: SQVR,
	ReferencedDoseSequenceTag:         SQVR,

	PixelDataTag: OWVR,
}

// DictionaryVR returns the VR registered for the tag in the data dictionary. Group length
// elements (gggg,0000) are UL. Tags missing from the dictionary are reported as UN.
func (t DataElementTag) DictionaryVR() *VR {
	if t.ElementNumber() == 0x0000 {
		return ULVR
	}
	if vr, ok := dictionary[t]; ok {
		return vr
	}
	return UNVR
}
