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
	"fmt"
	"strconv"
	"strings"

	"github.com/GoogleCloudPlatform/go-dicom-rt/hierarchy"
	"github.com/GoogleCloudPlatform/go-dicom-rt/rtobject"
	"github.com/GoogleCloudPlatform/go-dicom-rt/scene"
)

// LoadPlan adds a plan entity and one beam entity per beam. The first isocenter found is the
// isocenter of the whole plan. RT images waiting for one of the beams are placed once the plan is
// loaded.
func (l *Logic) LoadPlan(p *rtobject.Plan, name string) ([]scene.ID, bool) {
	name = seriesName(&p.Header, name)
	log := l.logger().With("op", "LoadRtPlan", "seriesInstanceUID", p.SeriesInstanceUID, "name", name)

	h := l.Hierarchy
	h.StartBatch()
	defer h.EndBatch()

	plan := &scene.Plan{SOPInstanceUID: p.SOPInstanceUID}
	planEntity := l.addEntity(name, plan)
	item, err := l.fileSeries(&p.Header, name, planEntity.ID, nil)
	if err != nil {
		l.Store.Remove(planEntity.ID)
		log.Error("Failed to insert plan in hierarchy", "error", err)
		return nil, false
	}
	if refs := p.ReferencedInstanceUIDs(); len(refs) > 0 {
		h.SetAttribute(item, hierarchy.AttrReferencedInstanceUIDs, strings.Join(refs, " "))
	}

	created := []scene.ID{planEntity.ID}
	tolerance := l.Config.Plan.IsocenterTolerance
	for _, b := range p.Beams.All() {
		switch {
		case !b.HasIsocenter:
		case !plan.HasIsocenter:
			plan.Isocenter, plan.HasIsocenter = b.Isocenter, true
		case !b.Isocenter.Near(plan.Isocenter, tolerance):
			log.Warn("Different isocenters for each beam are not supported, the first isocenter is used for the whole plan",
				"beam", b.Number, "planIsocenter", plan.Isocenter, "beamIsocenter", b.Isocenter)
		}

		beamName := b.Name
		if beamName == "" {
			beamName = fmt.Sprintf("Beam %d", b.Number)
		}
		beamEntity := l.addEntity(beamName, &scene.Beam{
			Plan:            planEntity.ID,
			Number:          b.Number,
			Name:            b.Name,
			X1Jaw:           b.X1Jaw,
			X2Jaw:           b.X2Jaw,
			Y1Jaw:           b.Y1Jaw,
			Y2Jaw:           b.Y2Jaw,
			GantryAngle:     b.GantryAngle,
			CollimatorAngle: b.CollimatorAngle,
			CouchAngle:      b.CouchAngle,
			SAD:             b.SAD,
			Isocenter:       b.Isocenter,
		})
		plan.Beams = append(plan.Beams, beamEntity.ID)
		beamItem := h.CreateEntityItem(item, beamEntity.Name, beamEntity.ID)
		h.SetAttribute(beamItem, hierarchy.AttrBeamNumber, strconv.Itoa(b.Number))
		created = append(created, beamEntity.ID)
	}
	if len(plan.Beams) > 0 && !plan.HasIsocenter {
		log.Warn("No beam of the plan has an isocenter")
	}

	for _, beam := range plan.Beams {
		if _, err := l.Geometry.ResolveFromBeam(beam); err != nil {
			log.Warn("Failed to set up RT image geometry", "error", err)
		}
	}
	return created, true
}
