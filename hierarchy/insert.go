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

import (
	"fmt"
	"strings"
)

// Patient holds the identity attributes of a patient.
type Patient struct {
	Name      string
	ID        string
	Sex       string
	BirthDate string
	Comments  string
}

// Study holds the identity attributes of a study.
type Study struct {
	InstanceUID string
	ID          string
	Description string
	Date        string
	Time        string
}

// Series describes a loaded object to file under its patient and study.
type Series struct {
	Patient Patient
	Study   Study

	InstanceUID  string
	Modality     string
	SeriesNumber string
	// Name is used for a newly created series item. Empty means DefaultSeriesName.
	Name string
	// SOPInstanceUIDs are the instances the series item was loaded from.
	SOPInstanceUIDs []string
}

// Insert returns the series item keyed by seriesUID, creating it and its study and patient as
// needed. Items that already exist are returned as they are. The boolean results report which of
// patient and study were created by this call. On error, items created by the call are removed.
func (h *Hierarchy) Insert(patientUID, studyUID, seriesUID string) (series ItemID, newPatient, newStudy bool, err error) {
	if seriesUID == "" {
		return InvalidItemID, false, false, fmt.Errorf("series instance UID is empty")
	}
	if id := h.findAtLevel(seriesUID, LevelSeries); id != InvalidItemID {
		return id, false, false, nil
	}

	patient := h.findAtLevel(patientUID, LevelPatient)
	if patient == InvalidItemID {
		patient = h.CreateItem(h.root, DefaultPatientName, LevelPatient)
		if err := h.SetUID(patient, UIDNamespaceDICOM, patientUID); err != nil {
			h.RemoveItem(patient)
			return InvalidItemID, false, false, fmt.Errorf("patient %q: %w", patientUID, err)
		}
		newPatient = true
	}

	study := h.findAtLevel(studyUID, LevelStudy)
	if study == InvalidItemID {
		study = h.CreateItem(patient, DefaultStudyDescription, LevelStudy)
		if err := h.SetUID(study, UIDNamespaceDICOM, studyUID); err != nil {
			h.RemoveItem(study)
			if newPatient {
				h.RemoveItem(patient)
			}
			return InvalidItemID, false, false, fmt.Errorf("study %q: %w", studyUID, err)
		}
		newStudy = true
	} else if h.Parent(study) != patient {
		h.logger().Warn("Study is filed under a different patient", "op", "Insert",
			"studyInstanceUID", studyUID, "patientID", patientUID)
	}

	series = h.CreateItem(study, DefaultSeriesName, LevelSeries)
	if err := h.SetUID(series, UIDNamespaceDICOM, seriesUID); err != nil {
		// Drop everything this call created so a failed insert leaves no empty parents.
		switch {
		case newPatient:
			h.RemoveItem(patient)
		case newStudy:
			h.RemoveItem(study)
		default:
			h.RemoveItem(series)
		}
		return InvalidItemID, false, false, fmt.Errorf("series %q: %w", seriesUID, err)
	}
	return series, newPatient, newStudy, nil
}

func (h *Hierarchy) findAtLevel(uid string, level Level) ItemID {
	id := h.FindByUID(UIDNamespaceDICOM, uid)
	if id != InvalidItemID && h.Level(id) == level {
		return id
	}
	return InvalidItemID
}

// InsertSeries files s under its patient and study. Identity attributes and labels of patient
// and study are written only when this call creates them, so the first object loaded for a
// patient or study decides them. The series item gets its modality, series number and instance
// UIDs on every call.
func (h *Hierarchy) InsertSeries(s Series) (ItemID, error) {
	h.StartBatch()
	defer h.EndBatch()

	series, newPatient, newStudy, err := h.Insert(s.Patient.ID, s.Study.InstanceUID, s.InstanceUID)
	if err != nil {
		return InvalidItemID, err
	}
	study := h.Parent(series)
	patient := h.Parent(study)

	if newPatient {
		p := s.Patient
		h.SetAttribute(patient, AttrPatientName, p.Name)
		h.SetAttribute(patient, AttrPatientID, p.ID)
		h.SetAttribute(patient, AttrPatientSex, p.Sex)
		h.SetAttribute(patient, AttrPatientBirthDate, p.BirthDate)
		h.SetAttribute(patient, AttrPatientComments, p.Comments)
		h.SetName(patient, h.patientLabel(p))
	}
	if newStudy {
		st := s.Study
		h.SetAttribute(study, AttrStudyInstanceUID, st.InstanceUID)
		h.SetAttribute(study, AttrStudyID, st.ID)
		h.SetAttribute(study, AttrStudyDescription, st.Description)
		h.SetAttribute(study, AttrStudyDate, st.Date)
		h.SetAttribute(study, AttrStudyTime, st.Time)
		h.SetName(study, h.studyLabel(st))
	}

	if s.Name != "" && h.Name(series) == DefaultSeriesName {
		h.SetName(series, s.Name)
	}
	h.SetAttribute(series, AttrSeriesModality, s.Modality)
	h.SetAttribute(series, AttrSeriesNumber, s.SeriesNumber)
	if len(s.SOPInstanceUIDs) > 0 {
		if err := h.SetUIDs(series, UIDNamespaceInstance, s.SOPInstanceUIDs); err != nil {
			h.logger().Warn("Instance UID already loaded", "op", "InsertSeries",
				"seriesInstanceUID", s.InstanceUID, "error", err)
		}
	}
	return series, nil
}

func (h *Hierarchy) patientLabel(p Patient) string {
	label := strings.TrimSpace(p.Name)
	if label == "" {
		label = DefaultPatientName
	}
	if h.names.DisplayPatientID && p.ID != "" {
		label += " (" + p.ID + ")"
	}
	if h.names.DisplayPatientBirthDate && p.BirthDate != "" {
		label += " (" + p.BirthDate + ")"
	}
	return label
}

func (h *Hierarchy) studyLabel(s Study) string {
	label := strings.TrimSpace(s.Description)
	if label == "" {
		label = DefaultStudyDescription
	}
	if h.names.DisplayStudyID && s.ID != "" {
		label += " (" + s.ID + ")"
	}
	if h.names.DisplayStudyDate && s.Date != "" {
		label += " (" + s.Date + ")"
	}
	return label
}
