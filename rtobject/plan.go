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

package rtobject

import (
	"fmt"
	"strings"

	"github.com/GoogleCloudPlatform/go-dicom-rt/dicom"
	"github.com/GoogleCloudPlatform/go-dicom-rt/geom"
)

// DefaultSourceAxisDistance is used for beams that do not specify one, in millimetres.
const DefaultSourceAxisDistance = 1000.0

// Beam is a treatment beam of a plan, described by its first control point.
type Beam struct {
	Number      int
	Name        string
	Description string

	X1Jaw, X2Jaw float64
	Y1Jaw, Y2Jaw float64

	GantryAngle     float64
	CollimatorAngle float64
	CouchAngle      float64
	SAD             float64

	// Isocenter is in RAS. HasIsocenter is false when the first control point has none.
	Isocenter    geom.Vec3
	HasIsocenter bool
}

// Plan is an RT plan.
type Plan struct {
	Header

	Label       string
	Name        string
	Description string

	Beams *dicom.Items[Beam]

	ReferencedStructureSetSOPInstanceUID string
	ReferencedDoseSOPInstanceUIDs        []string
}

// ReferencedInstanceUIDs lists the structure set and dose instances the plan refers to.
func (p *Plan) ReferencedInstanceUIDs() []string {
	var uids []string
	if p.ReferencedStructureSetSOPInstanceUID != "" {
		uids = append(uids, p.ReferencedStructureSetSOPInstanceUID)
	}
	return append(uids, p.ReferencedDoseSOPInstanceUIDs...)
}

// BeamByNumber returns the beam with the given Beam Number.
func (p *Plan) BeamByNumber(number int) (Beam, bool) {
	for _, b := range p.Beams.All() {
		if b.Number == number {
			return b, true
		}
	}
	return Beam{}, false
}

// ReadPlan reads an RT plan object.
func ReadPlan(ds *dicom.DataSet) (*Plan, error) {
	p := &Plan{Header: readHeader(ds)}
	if p.SOPClassUID != dicom.RTPlanStorage && p.SOPClassUID != dicom.RTIonPlanStorage {
		return nil, fmt.Errorf("SOP class %q: %w", p.SOPClassUID, ErrUnsupportedSOPClass)
	}
	p.Label, _ = ds.FindString(dicom.RTPlanLabelTag)
	p.Name, _ = ds.FindString(dicom.RTPlanNameTag)
	p.Description, _ = ds.FindString(dicom.RTPlanDescriptionTag)
	p.ReferencedStructureSetSOPInstanceUID = firstReferencedInstance(ds, dicom.ReferencedStructureSetSequenceTag)
	p.ReferencedDoseSOPInstanceUIDs = referencedInstances(ds, dicom.ReferencedDoseSequenceTag)
	p.Beams = dicom.CollectItems(ds, dicom.BeamSequenceTag, readBeam)
	return p, nil
}

func readBeam(item *dicom.DataSet) (Beam, bool) {
	number, ok := item.FindInt(dicom.BeamNumberTag)
	if !ok {
		return Beam{}, false
	}
	b := Beam{Number: number, SAD: DefaultSourceAxisDistance}
	b.Name, _ = item.FindString(dicom.BeamNameTag)
	b.Description, _ = item.FindString(dicom.BeamDescriptionTag)
	if sad, ok := item.FindFloat64(dicom.SourceAxisDistanceTag); ok {
		b.SAD = sad
	}

	cp := item.FirstItemOf(dicom.ControlPointSequenceTag).Item()
	if cp == nil {
		return b, true
	}
	b.GantryAngle, _ = cp.FindFloat64(dicom.GantryAngleTag)
	b.CollimatorAngle, _ = cp.FindFloat64(dicom.BeamLimitingDeviceAngleTag)
	b.CouchAngle, _ = cp.FindFloat64(dicom.PatientSupportAngleTag)
	if v, ok := cp.FindFloat64s(dicom.IsocenterPositionTag); ok && len(v) == 3 {
		b.Isocenter = geom.LPSToRAS(geom.Vec3{v[0], v[1], v[2]})
		b.HasIsocenter = true
	}

	for c := cp.FirstItemOf(dicom.BeamLimitingDevicePositionSequenceTag); c.Valid(); c.Next() {
		device, _ := c.Item().FindString(dicom.RTBeamLimitingDeviceTypeTag)
		jaws, ok := c.Item().FindFloat64s(dicom.LeafJawPositionsTag)
		if !ok || len(jaws) != 2 {
			continue
		}
		switch strings.ToUpper(device) {
		case "X", "ASYMX":
			b.X1Jaw, b.X2Jaw = jaws[0], jaws[1]
		case "Y", "ASYMY":
			b.Y1Jaw, b.Y2Jaw = jaws[0], jaws[1]
		}
	}
	return b, true
}
