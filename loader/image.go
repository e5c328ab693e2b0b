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

package loader

import (
	"strconv"

	"github.com/GoogleCloudPlatform/go-dicom-rt/hierarchy"
	"github.com/GoogleCloudPlatform/go-dicom-rt/rtobject"
	"github.com/GoogleCloudPlatform/go-dicom-rt/scene"
)

// LoadRTImage adds an RT image volume and places it in the treatment room if the beam it was
// acquired for is loaded. Otherwise the image is placed when the plan is loaded.
func (l *Logic) LoadRTImage(r *rtobject.RTImage, name string) ([]scene.ID, bool) {
	name = seriesName(&r.Header, name)
	log := l.logger().With("op", "LoadRtImage", "seriesInstanceUID", r.SeriesInstanceUID, "name", name)
	if r.Image.Empty() {
		log.Error("RT image has no pixels")
		return nil, false
	}

	vol := scene.NewVolume(scene.KindRTImage, r.Image)
	vol.Display = windowLevel(r.WindowCenter, r.WindowWidth)

	h := l.Hierarchy
	h.StartBatch()
	entity := l.addEntity(name, vol)
	item, err := l.fileSeries(&r.Header, name, entity.ID, nil)
	if err != nil {
		h.EndBatch()
		l.Store.Remove(entity.ID)
		log.Error("Failed to insert RT image in hierarchy", "error", err)
		return nil, false
	}
	h.SetAttribute(item, hierarchy.AttrRTImage, "1")
	h.SetAttribute(item, hierarchy.AttrReferencedInstanceUIDs, r.ReferencedPlanSOPInstanceUID)
	h.SetAttribute(item, hierarchy.AttrSourceAxisDistance, formatFloat(r.SAD))
	h.SetAttribute(item, hierarchy.AttrGantryAngle, formatFloat(r.GantryAngle))
	h.SetAttribute(item, hierarchy.AttrCouchAngle, formatFloat(r.CouchAngle))
	h.SetAttribute(item, hierarchy.AttrCollimatorAngle, formatFloat(r.CollimatorAngle))
	h.SetAttribute(item, hierarchy.AttrBeamNumber, strconv.Itoa(r.ReferencedBeamNumber))
	h.SetAttribute(item, hierarchy.AttrRTImageSID, formatFloat(r.SID))
	h.SetAttribute(item, hierarchy.AttrRTImagePosition, formatFloat(r.Position[0])+" "+formatFloat(r.Position[1]))
	h.EndBatch()

	if _, err := l.Geometry.ResolveFromImage(entity.ID); err != nil {
		log.Warn("Failed to set up RT image geometry", "error", err)
	}
	return []scene.ID{entity.ID}, true
}

// LoadImageSeries adds an anatomical volume. Segmentations drawn on the series that were loaded
// before it get its geometry as their reference geometry.
func (l *Logic) LoadImageSeries(s *rtobject.ImageSeries, name string) ([]scene.ID, bool) {
	name = seriesName(&s.Header, name)
	log := l.logger().With("op", "LoadImageSeries", "seriesInstanceUID", s.SeriesInstanceUID, "name", name)
	if s.Image.Empty() {
		log.Error("Image series has no voxels")
		return nil, false
	}

	vol := scene.NewVolume(scene.KindScalarVolume, s.Image)
	vol.Display = windowLevel(s.WindowCenter, s.WindowWidth)
	vol.SliceInstanceUIDs = s.SliceInstanceUIDs

	h := l.Hierarchy
	h.StartBatch()
	defer h.EndBatch()

	entity := l.addEntity(name, vol)
	if _, err := l.fileSeries(&s.Header, name, entity.ID, s.SliceInstanceUIDs); err != nil {
		l.Store.Remove(entity.ID)
		log.Error("Failed to insert image series in hierarchy", "error", err)
		return nil, false
	}

	g := s.Image.Geometry()
	for _, e := range l.Store.OfKind(scene.KindSegmentation) {
		seg := e.Payload.(*scene.Segmentation)
		if seg.ReferenceGeometry != nil {
			continue
		}
		item := h.ItemByEntity(e.ID)
		if uid, _ := h.Attribute(item, hierarchy.AttrRoiReferencedSeriesUID); uid == s.SeriesInstanceUID {
			seg.ReferenceGeometry = &g
			log.Debug("Reference geometry set for segmentation", "segmentation", e.Name)
		}
	}
	return []scene.ID{entity.ID}, true
}

// windowLevel returns an automatic window when both center and width are zero.
func windowLevel(center, width float64) scene.VolumeDisplay {
	if center == 0 && width == 0 {
		return scene.VolumeDisplay{AutoWindowLevel: true, ColorTable: "Grey", Visible: true}
	}
	return scene.VolumeDisplay{
		WindowCenter: center,
		WindowWidth:  width,
		WindowMin:    center - width/2,
		WindowMax:    center + width/2,
		ColorTable:   "Grey",
		Visible:      true,
	}
}
