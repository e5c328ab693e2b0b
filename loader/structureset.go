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
	"log/slog"
	"strings"

	"github.com/GoogleCloudPlatform/go-dicom-rt/geom"
	"github.com/GoogleCloudPlatform/go-dicom-rt/hierarchy"
	"github.com/GoogleCloudPlatform/go-dicom-rt/rtobject"
	"github.com/GoogleCloudPlatform/go-dicom-rt/scene"
	"github.com/GoogleCloudPlatform/go-dicom-rt/segmentation"
)

// FiducialsFolderSuffix ends the name of the folder holding the point ROIs of a structure set.
const FiducialsFolderSuffix = "_Fiducials"

// LoadStructureSet adds the ROIs of a structure set. Single point ROIs become locked, hidden
// fiducials; ROIs with more points become segments of one segmentation whose master
// representation is planar contours. ROIs without points are skipped.
func (l *Logic) LoadStructureSet(s *rtobject.StructureSet, name string) ([]scene.ID, bool) {
	name = seriesName(&s.Header, name)
	log := l.logger().With("op", "LoadRtStructureSet", "seriesInstanceUID", s.SeriesInstanceUID, "name", name)

	h := l.Hierarchy
	h.StartBatch()
	defer h.EndBatch()

	series, err := l.fileSeries(&s.Header, name, scene.InvalidID, nil)
	if err != nil {
		log.Error("Failed to insert structure set in hierarchy", "error", err)
		return nil, false
	}

	var (
		created          []scene.ID
		referencedSeries string
		fiducials        = hierarchy.InvalidItemID
		seg              *scene.Segmentation
	)
	for i, roi := range s.ROIs.All() {
		n := roi.PointCount()
		if n == 0 {
			log.Warn("Structure ROI data does not contain any points", "roi", roi.Name, "index", i)
			continue
		}
		if referencedSeries == "" {
			referencedSeries = roi.ReferencedSeriesUID
		} else if roi.ReferencedSeriesUID != "" && !strings.EqualFold(roi.ReferencedSeriesUID, referencedSeries) {
			log.Warn("ROIs in structure set have different referenced series UIDs",
				"roi", roi.Name, "referencedSeriesUID", roi.ReferencedSeriesUID, "first", referencedSeries)
		}

		if n == 1 {
			if fiducials == hierarchy.InvalidItemID {
				fiducials = h.CreateItem(series, name+FiducialsFolderSuffix, hierarchy.LevelFolder)
			}
			var point geom.Vec3
			for _, c := range roi.Contours {
				if len(c.Points) > 0 {
					point = c.Points[0]
					break
				}
			}
			e := l.addEntity(roi.Name, &scene.Fiducials{
				Points: []geom.Vec3{point},
				Labels: []string{roi.Name},
				Color:  roi.Color,
				Locked: true,
			})
			fiducialItem := h.CreateEntityItem(fiducials, e.Name, e.ID)
			h.SetAttribute(fiducialItem, hierarchy.AttrRoiReferencedSeriesUID, roi.ReferencedSeriesUID)
			created = append(created, e.ID)
			continue
		}

		if seg == nil {
			seg = &scene.Segmentation{
				Segmentation:     segmentation.New(l.Store.UniqueName(name), segmentation.PlanarContours),
				PreferredDisplay: segmentation.PlanarContours,
				Visible:          true,
			}
			if ref, ok := l.volumeBySeries(roi.ReferencedSeriesUID); ok {
				v, _ := ref.Volume()
				g := v.Image.Geometry()
				seg.ReferenceGeometry = &g
			}
			e := l.Store.Add(seg.Name, seg)
			item := series
			if h.Entity(series) == scene.InvalidID {
				h.SetEntity(series, e.ID)
			} else {
				item = h.CreateEntityItem(h.Parent(series), seg.Name, e.ID)
			}
			h.SetAttribute(item, hierarchy.AttrRoiReferencedSeriesUID, referencedSeries)
			if len(s.ReferencedInstanceUIDs) > 0 {
				h.SetAttribute(item, hierarchy.AttrReferencedInstanceUIDs, strings.Join(s.ReferencedInstanceUIDs, " "))
			}
			created = append(created, e.ID)
		}
		seg.AddSegment(&segmentation.Segment{Name: roi.Name, Color: roi.Color, Contours: roi.Contours})
	}

	if seg != nil {
		l.setSegmentationDisplay(seg, log)
	}
	return created, true
}

// setSegmentationDisplay derives closed surfaces for display unless the contours are so large
// that the conversion would take unreasonably long.
func (l *Logic) setSegmentationDisplay(seg *scene.Segmentation, log *slog.Logger) {
	max, total := seg.PointCounts()
	limits := l.Config.StructureSet
	log.Debug("Segmentation point counts", "maxSegmentPoints", max, "totalPoints", total)
	if max >= limits.MaxSegmentPoints || total >= limits.MaxTotalPoints {
		log.Warn("Structure set contains extremely large contours, planar contours are shown instead of closed surfaces",
			"maxSegmentPoints", max, "totalPoints", total)
		return
	}
	if err := seg.CreateRepresentation(l.Converter, segmentation.ClosedSurface); err != nil {
		log.Warn("Failed to create closed surfaces, planar contours are shown", "error", err)
		return
	}
	seg.PreferredDisplay = segmentation.ClosedSurface
}
