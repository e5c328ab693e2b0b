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

// Package examine classifies DICOM files and describes the RT objects they hold as loadables,
// the candidates a user picks from before anything is loaded.
package examine

import (
	"log/slog"
	"sort"

	"github.com/GoogleCloudPlatform/go-dicom-rt/dicom"
	"github.com/GoogleCloudPlatform/go-dicom-rt/rtobject"
)

// Loadable describes an object that can be loaded.
type Loadable struct {
	Name  string
	Files []string
	// Confidence that the loader handles the object, from 0 to 1.
	Confidence float64
	Selected   bool
	// ReferencedInstanceUIDs are the SOP instances the object refers to.
	ReferencedInstanceUIDs []string

	SOPClassUID       string
	SOPInstanceUID    string
	SeriesInstanceUID string
}

// InstanceIndex locates indexed files. A registry.Registry satisfies it.
type InstanceIndex interface {
	// FileForInstance returns the file holding a SOP instance, or "".
	FileForInstance(sopInstanceUID string) string
	// FileValue returns the value of tag in the file at path, or "".
	FileValue(path string, tag dicom.DataElementTag) string
}

// Option configures an Examiner.
type Option func(*Examiner)

// WithIndex sets the index used to look up referenced objects.
func WithIndex(index InstanceIndex) Option {
	return func(e *Examiner) {
		e.Index = index
	}
}

// WithLogger overrides the logger used by the examiner.
func WithLogger(logger *slog.Logger) Option {
	return func(e *Examiner) {
		e.Logger = logger
	}
}

// Examiner builds loadables from files.
type Examiner struct {
	// Index is optional. Without it, dose names do not include the plan label.
	Index  InstanceIndex
	Logger *slog.Logger
}

// New returns an Examiner.
func New(opts ...Option) *Examiner {
	e := &Examiner{}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

func (e *Examiner) logger() *slog.Logger {
	if e.Logger != nil {
		return e.Logger
	}
	return slog.Default()
}

// ExamineForLoad returns a loadable for every file of paths holding an RT dose, plan, structure
// set or image, in the order of paths. Files that do not parse or hold other objects are skipped.
func (e *Examiner) ExamineForLoad(paths []string) []Loadable {
	var loadables []Loadable
	for _, path := range paths {
		ds, err := dicom.ParseFile(path, dicom.SkipPixelData)
		if err != nil {
			e.logger().Debug("Skipping unparsable file", "op", "ExamineForLoad", "path", path, "error", err)
			continue
		}
		sopClass, _ := ds.FindString(dicom.SOPClassUIDTag)
		if !dicom.IsRTStorage(sopClass) {
			continue
		}
		name, refs, ok := e.ExamineDataset(ds)
		if !ok {
			continue
		}
		if number, _ := ds.FindString(dicom.SeriesNumberTag); number != "" {
			name = number + ": " + name
		}
		sopInstance, _ := ds.FindString(dicom.SOPInstanceUIDTag)
		series, _ := ds.FindString(dicom.SeriesInstanceUIDTag)
		loadables = append(loadables, Loadable{
			Name:                   name,
			Files:                  []string{path},
			Confidence:             1.0,
			Selected:               true,
			ReferencedInstanceUIDs: refs,
			SOPClassUID:            sopClass,
			SOPInstanceUID:         sopInstance,
			SeriesInstanceUID:      series,
		})
	}
	return loadables
}

// ExamineDataset returns the display name of the RT object held by ds and the SOP Instance UIDs
// it refers to. It reports false for a nil data set or one that holds no RT object.
func (e *Examiner) ExamineDataset(ds *dicom.DataSet) (name string, refs []string, ok bool) {
	if ds == nil {
		return "", nil, false
	}
	sopClass, _ := ds.FindString(dicom.SOPClassUIDTag)
	switch sopClass {
	case dicom.RTDoseStorage:
		name, refs = e.examineDose(ds)
	case dicom.RTPlanStorage:
		name = examinePlan(ds)
	case dicom.RTStructureSetStorage:
		name, refs = examineStructureSet(ds)
	case dicom.RTImageStorage:
		name, refs = examineRTImage(ds)
	default:
		return "", nil, false
	}
	return name, refs, true
}

func (e *Examiner) examineDose(ds *dicom.DataSet) (string, []string) {
	name := "RTDOSE"
	if desc, _ := ds.FindString(dicom.SeriesDescriptionTag); desc != "" {
		name += ": " + desc
	}
	if number, _ := ds.FindString(dicom.InstanceNumberTag); number != "" {
		name += " [" + number + "]"
	}

	plan := ds.FirstItemOf(dicom.ReferencedRTPlanSequenceTag).Item()
	if plan == nil {
		return name, nil
	}
	uid, ok := plan.FindString(dicom.ReferencedSOPInstanceUIDTag)
	if !ok {
		return name, nil
	}
	refs := []string{uid}
	if e.Index != nil {
		if path := e.Index.FileForInstance(uid); path != "" {
			name += ": " + e.Index.FileValue(path, dicom.RTPlanLabelTag)
		}
	}
	return name, refs
}

func examinePlan(ds *dicom.DataSet) string {
	name := "RTPLAN"
	label, _ := ds.FindString(dicom.RTPlanLabelTag)
	planName, _ := ds.FindString(dicom.RTPlanNameTag)
	switch {
	case label != "" && planName != "" && label != planName:
		name += ": " + label + " (" + planName + ")"
	case label != "":
		name += ": " + label
	case planName != "":
		name += ": " + planName
	}
	return name
}

func examineStructureSet(ds *dicom.DataSet) (string, []string) {
	name := "RTSTRUCT"
	if label, _ := ds.FindString(dicom.StructureSetLabelTag); label != "" {
		name += ": " + label
	}
	return name, rtobject.ReferencedImageInstanceUIDs(ds)
}

func examineRTImage(ds *dicom.DataSet) (string, []string) {
	name := "RTIMAGE"
	if label, _ := ds.FindString(dicom.RTImageLabelTag); label != "" {
		name += ": " + label
	}
	plan := ds.FirstItemOf(dicom.ReferencedRTPlanSequenceTag).Item()
	if plan == nil {
		return name, nil
	}
	if uid, ok := plan.FindString(dicom.ReferencedSOPInstanceUIDTag); ok {
		return name, []string{uid}
	}
	return name, nil
}

// ExamineImageSeries groups the CT, MR and PET slices among paths by series and returns one
// loadable per series, ordered by series number and then series instance UID.
func (e *Examiner) ExamineImageSeries(paths []string) []Loadable {
	type series struct {
		loadable Loadable
		number   string
	}
	bySeries := map[string]*series{}
	for _, path := range paths {
		ds, err := dicom.ParseFile(path, dicom.SkipPixelData)
		if err != nil {
			e.logger().Debug("Skipping unparsable file", "op", "ExamineImageSeries", "path", path, "error", err)
			continue
		}
		sopClass, _ := ds.FindString(dicom.SOPClassUIDTag)
		if !dicom.IsVolumetricImageStorage(sopClass) {
			continue
		}
		uid, _ := ds.FindString(dicom.SeriesInstanceUIDTag)
		s, ok := bySeries[uid]
		if !ok {
			number, _ := ds.FindString(dicom.SeriesNumberTag)
			name, _ := ds.FindString(dicom.SeriesDescriptionTag)
			if name == "" {
				name, _ = ds.FindString(dicom.ModalityTag)
			}
			if number != "" {
				name = number + ": " + name
			}
			s = &series{
				number: number,
				loadable: Loadable{
					Name:              name,
					Confidence:        1.0,
					Selected:          true,
					SOPClassUID:       sopClass,
					SeriesInstanceUID: uid,
				},
			}
			bySeries[uid] = s
		}
		s.loadable.Files = append(s.loadable.Files, path)
	}

	out := make([]*series, 0, len(bySeries))
	for _, s := range bySeries {
		out = append(out, s)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].number != out[j].number {
			return out[i].number < out[j].number
		}
		return out[i].loadable.SeriesInstanceUID < out[j].loadable.SeriesInstanceUID
	})
	loadables := make([]Loadable, len(out))
	for i, s := range out {
		loadables[i] = s.loadable
	}
	return loadables
}
