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

// Package loader turns RT objects into scene entities filed in the patient hierarchy. Each loader
// reports the entities it created and whether loading succeeded; failures are logged and never
// leave an object half linked.
package loader

import (
	"fmt"
	"log/slog"
	"strconv"

	"github.com/GoogleCloudPlatform/go-dicom-rt/config"
	"github.com/GoogleCloudPlatform/go-dicom-rt/dicom"
	"github.com/GoogleCloudPlatform/go-dicom-rt/examine"
	"github.com/GoogleCloudPlatform/go-dicom-rt/geometry"
	"github.com/GoogleCloudPlatform/go-dicom-rt/hierarchy"
	"github.com/GoogleCloudPlatform/go-dicom-rt/rtobject"
	"github.com/GoogleCloudPlatform/go-dicom-rt/scene"
	"github.com/GoogleCloudPlatform/go-dicom-rt/segmentation"
)

// Option configures a Logic.
type Option func(*Logic)

// WithLogger overrides the logger used by the loaders and the geometry engine.
func WithLogger(logger *slog.Logger) Option {
	return func(l *Logic) {
		l.Logger = logger
	}
}

// WithConfig sets the configuration. config.Default() is used otherwise.
func WithConfig(c *config.Config) Option {
	return func(l *Logic) {
		l.Config = c
	}
}

// WithConverter sets the converter deriving closed surfaces from contours.
func WithConverter(c segmentation.Converter) Option {
	return func(l *Logic) {
		l.Converter = c
	}
}

// Logic loads RT objects into a hierarchy and an entity store.
type Logic struct {
	Hierarchy *hierarchy.Hierarchy
	Store     *scene.Store
	Geometry  *geometry.Engine

	Config    *config.Config
	Converter segmentation.Converter
	Logger    *slog.Logger
}

// New returns a Logic loading into h and store.
func New(h *hierarchy.Hierarchy, store *scene.Store, opts ...Option) *Logic {
	l := &Logic{
		Hierarchy: h,
		Store:     store,
		Config:    config.Default(),
		Converter: segmentation.DefaultConverter{},
	}
	for _, opt := range opts {
		opt(l)
	}
	l.Geometry = geometry.New(h, store, geometry.WithLogger(l.logger()))
	return l
}

func (l *Logic) logger() *slog.Logger {
	if l.Logger != nil {
		return l.Logger
	}
	return slog.Default()
}

// Load reads the files of a loadable returned by the examiner and loads the object they hold.
func (l *Logic) Load(loadable examine.Loadable) ([]scene.ID, bool) {
	if len(loadable.Files) < 1 || loadable.Confidence == 0 {
		l.logger().Error("Unable to load DICOM-RT data due to invalid loadable information",
			"op", "LoadDicomRT", "name", loadable.Name)
		return nil, false
	}
	l.logger().Info("Loading series", "op", "LoadDicomRT", "name", loadable.Name, "file", loadable.Files[0])

	if dicom.IsVolumetricImageStorage(loadable.SOPClassUID) {
		series, err := rtobject.ReadImageSeriesFiles(loadable.Files)
		if err != nil {
			l.logger().Error("Failed to read image series", "op", "LoadDicomRT", "name", loadable.Name, "error", err)
			return nil, false
		}
		return l.LoadImageSeries(series, loadable.Name)
	}

	obj, err := rtobject.ReadFile(loadable.Files[0])
	if err != nil {
		l.logger().Error("Failed to read RT object", "op", "LoadDicomRT", "name", loadable.Name, "error", err)
		return nil, false
	}
	return l.LoadObject(obj, loadable.Name)
}

// LoadObject loads an object read by rtobject.Read. An empty name is replaced by a name derived
// from the object header.
func (l *Logic) LoadObject(obj rtobject.Object, name string) ([]scene.ID, bool) {
	switch o := obj.(type) {
	case *rtobject.Dose:
		return l.LoadDose(o, name)
	case *rtobject.Plan:
		return l.LoadPlan(o, name)
	case *rtobject.StructureSet:
		return l.LoadStructureSet(o, name)
	case *rtobject.RTImage:
		return l.LoadRTImage(o, name)
	case *rtobject.ImageSeries:
		return l.LoadImageSeries(o, name)
	}
	l.logger().Error("Unsupported object", "op", "LoadDicomRT", "type", fmt.Sprintf("%T", obj))
	return nil, false
}

func seriesName(hdr *rtobject.Header, name string) string {
	switch {
	case name != "":
		return name
	case hdr.SeriesDescription != "":
		return hdr.SeriesDescription
	case hdr.Modality != "":
		return hdr.Modality
	}
	return hierarchy.DefaultSeriesName
}

// fileSeries files entity under the patient and study of hdr. The series item of hdr represents
// the entity unless it already represents another one, in which case the entity gets an item of
// its own under the study.
func (l *Logic) fileSeries(hdr *rtobject.Header, name string, entity scene.ID, instanceUIDs []string) (hierarchy.ItemID, error) {
	h := l.Hierarchy
	series, err := h.InsertSeries(hierarchy.Series{
		Patient: hierarchy.Patient{
			Name:      hdr.PatientName,
			ID:        hdr.PatientID,
			Sex:       hdr.PatientSex,
			BirthDate: hdr.PatientBirthDate,
			Comments:  hdr.PatientComments,
		},
		Study: hierarchy.Study{
			InstanceUID: hdr.StudyInstanceUID,
			ID:          hdr.StudyID,
			Description: hdr.StudyDescription,
			Date:        hdr.StudyDate,
			Time:        hdr.StudyTime,
		},
		InstanceUID:  hdr.SeriesInstanceUID,
		Modality:     hdr.Modality,
		SeriesNumber: hdr.SeriesNumber,
		Name:         name,
	})
	if err != nil {
		return hierarchy.InvalidItemID, err
	}

	item := series
	switch {
	case entity == scene.InvalidID:
	case h.Entity(series) == scene.InvalidID:
		h.SetEntity(series, entity)
	default:
		item = h.CreateEntityItem(h.Parent(series), name, entity)
		h.SetAttribute(item, hierarchy.AttrSeriesModality, hdr.Modality)
		h.SetAttribute(item, hierarchy.AttrSeriesNumber, hdr.SeriesNumber)
	}

	if len(instanceUIDs) == 0 && hdr.SOPInstanceUID != "" {
		instanceUIDs = []string{hdr.SOPInstanceUID}
	}
	if len(instanceUIDs) > 0 {
		if err := h.SetUIDs(item, hierarchy.UIDNamespaceInstance, instanceUIDs); err != nil {
			l.logger().Warn("Instance already loaded", "op", "InsertSeries",
				"seriesInstanceUID", hdr.SeriesInstanceUID, "error", err)
		}
	}
	return item, nil
}

// addEntity stores p under a unique name derived from name.
func (l *Logic) addEntity(name string, p scene.Payload) *scene.Entity {
	return l.Store.Add(l.Store.UniqueName(name), p)
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'g', -1, 64)
}

// volumeBySeries returns the anatomical volume loaded from the series with the given Series
// Instance UID.
func (l *Logic) volumeBySeries(seriesUID string) (*scene.Entity, bool) {
	if seriesUID == "" {
		return nil, false
	}
	item := l.Hierarchy.FindByUID(hierarchy.UIDNamespaceDICOM, seriesUID)
	if item == hierarchy.InvalidItemID {
		return nil, false
	}
	e, ok := l.Store.Get(l.Hierarchy.Entity(item))
	if !ok || e.Kind() != scene.KindScalarVolume {
		return nil, false
	}
	return e, true
}

// ReferencedVolumeForSegmentation returns the anatomical volume a loaded segmentation was drawn
// on, found through the referenced series UID of its item.
func (l *Logic) ReferencedVolumeForSegmentation(seg scene.ID) (scene.ID, bool) {
	item := l.Hierarchy.ItemByEntity(seg)
	if item == hierarchy.InvalidItemID {
		return scene.InvalidID, false
	}
	uid, ok := l.Hierarchy.Attribute(item, hierarchy.AttrRoiReferencedSeriesUID)
	if !ok || uid == "" {
		l.logger().Error("No referenced series UID found for segmentation",
			"op", "GetReferencedVolumeForSegmentation", "item", l.Hierarchy.Name(item))
		return scene.InvalidID, false
	}
	e, ok := l.volumeBySeries(uid)
	if !ok {
		return scene.InvalidID, false
	}
	return e.ID, true
}
