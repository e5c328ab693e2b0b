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
	"math"
	"strconv"

	"github.com/GoogleCloudPlatform/go-dicom-rt/hierarchy"
	"github.com/GoogleCloudPlatform/go-dicom-rt/rtobject"
	"github.com/GoogleCloudPlatform/go-dicom-rt/scene"
)

// DoseColorTable names the color table of dose volumes.
const DoseColorTable = "Dose"

const doseUnitValueTolerance = 1e-5

// LoadDose adds a dose volume holding the grid values multiplied by the dose grid scaling. The
// study of the dose records the dose unit name and value of the first dose loaded into it.
func (l *Logic) LoadDose(d *rtobject.Dose, name string) ([]scene.ID, bool) {
	name = seriesName(&d.Header, name)
	log := l.logger().With("op", "LoadRtDose", "seriesInstanceUID", d.SeriesInstanceUID, "name", name)
	if d.Grid.Empty() {
		log.Error("Dose volume has no voxels")
		return nil, false
	}

	scaling := d.GridScaling
	if !d.HasGridScaling {
		log.Warn("Empty dose unit value found for dose volume, grid values are used unscaled")
		scaling = 1
	}
	image := d.Grid.Clone()
	image.Scale(scaling)

	vol := scene.NewVolume(scene.KindDoseVolume, image)
	vol.Display = scene.VolumeDisplay{
		ColorTable:     DoseColorTable,
		ApplyThreshold: true,
		LowerThreshold: 0.5 * scaling,
		Visible:        true,
	}
	if min, max, ok := l.Config.IsodoseRange(); ok {
		vol.Display.WindowMin, vol.Display.WindowMax = min, max
		vol.Display.WindowCenter, vol.Display.WindowWidth = (min+max)/2, max-min
	} else {
		vol.Display.AutoWindowLevel = true
	}

	h := l.Hierarchy
	h.StartBatch()
	defer h.EndBatch()

	entity := l.addEntity(name, vol)
	item, err := l.fileSeries(&d.Header, name, entity.ID, nil)
	if err != nil {
		l.Store.Remove(entity.ID)
		log.Error("Failed to insert dose in hierarchy", "error", err)
		return nil, false
	}
	h.SetAttribute(item, hierarchy.AttrDoseVolume, "1")
	if d.ReferencedPlanSOPInstanceUID != "" {
		h.SetAttribute(item, hierarchy.AttrReferencedInstanceUIDs, d.ReferencedPlanSOPInstanceUID)
	} else {
		log.Warn("Referenced RT plan SOP Instance UID not found for dose volume")
	}

	study := h.AncestorAtLevel(item, hierarchy.LevelStudy)
	if study == hierarchy.InvalidItemID {
		log.Error("Unable to get parent study of dose volume")
		return []scene.ID{entity.ID}, true
	}
	l.setDoseUnit(study, d, log)
	return []scene.ID{entity.ID}, true
}

// setDoseUnit records the dose unit of d on the study unless the study has one already.
func (l *Logic) setDoseUnit(study hierarchy.ItemID, d *rtobject.Dose, log *slog.Logger) {
	h := l.Hierarchy
	existing, _ := h.Attribute(study, hierarchy.AttrDoseUnitName)
	switch {
	case d.Units == "":
		log.Warn("Empty dose unit name found for dose volume")
	case existing != "" && existing != d.Units:
		log.Warn("Dose unit name already exists for study and differs from current one",
			"existing", existing, "current", d.Units)
	default:
		h.SetAttribute(study, hierarchy.AttrDoseUnitName, d.Units)
	}

	if !d.HasGridScaling {
		return
	}
	existingValue, _ := h.Attribute(study, hierarchy.AttrDoseUnitValue)
	if existingValue == "" {
		h.SetAttribute(study, hierarchy.AttrDoseUnitValue, formatFloat(d.GridScaling))
		return
	}
	v, err := strconv.ParseFloat(existingValue, 64)
	if err != nil || math.Abs(v-d.GridScaling) > doseUnitValueTolerance {
		log.Warn("Dose unit value already exists for study and differs from current one",
			"existing", existingValue, "current", d.GridScaling)
	}
}
