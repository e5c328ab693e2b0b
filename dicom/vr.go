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

// vrKind groups VRs that share an encoding
type vrKind int

const (
	// textVR is for value fields that are interpreted as backslash separated text with space
	// padding
	textVR vrKind = iota

	// unlimitedTextVR holds a single text value (UT, UR) that is never split on backslash
	unlimitedTextVR

	// numberBinaryVR is for value fields that are parsed as binary numbers
	numberBinaryVR

	// bulkDataVR groups opaque byte buffers (OB, OW, UN, ...)
	bulkDataVR

	// uniqueIdentifierVR is for VR: UI. It has null padding
	uniqueIdentifierVR

	// sequenceVR is for VR: SQ
	sequenceVR

	// tagVR is for VR: AT
	tagVR
)

// UndefinedLength as specified
// http://dicom.nema.org/medical/dicom/current/output/html/part05.html#sect_7.1.1
const UndefinedLength = 0xffffffff

// VR models the DICOM Value representations (VR)
// http://dicom.nema.org/medical/dicom/current/output/html/part05.html#sect_6.2
type VR struct {
	// Name represents the 2-character VR Code
	Name string

	kind vrKind

	// encoded marks text VRs whose values are subject to the Specific Character Set
	encoded bool
}

func (vr *VR) String() string {
	return vr.Name
}

// longLength reports whether the explicit VR encoding stores the value length in a 32-bit field
// preceded by two reserved bytes. See
// http://dicom.nema.org/medical/dicom/current/output/html/part05.html#sect_7.1.2
func (vr *VR) longLength() bool {
	switch vr {
	case OBVR, ODVR, OFVR, OLVR, OWVR, SQVR, UCVR, URVR, UTVR, UNVR:
		return true
	default:
		return false
	}
}

// padding is the byte appended to odd length values of this VR
func (vr *VR) padding() byte {
	switch vr.kind {
	case textVR, unlimitedTextVR:
		return ' '
	default:
		return 0x00
	}
}

var vrLookupMap = map[string]*VR{}

func newVR(name string, kind vrKind, encoded bool) *VR {
	vr := &VR{name, kind, encoded}
	vrLookupMap[vr.Name] = vr
	return vr
}

// lookupVRByName returns the VR for a 2-character code. Unknown codes are reported as UN so that
// the element can still be skipped.
func lookupVRByName(name string) (*VR, bool) {
	r, ok := vrLookupMap[name]
	if !ok {
		return UNVR, false
	}
	return r, true
}

// VR list obtained from
// http://dicom.nema.org/medical/dicom/current/output/html/part05.html#sect_6.2
var (
	// textual VRs
	CSVR = newVR("CS", textVR, false)
	SHVR = newVR("SH", textVR, true)
	LOVR = newVR("LO", textVR, true)
	STVR = newVR("ST", textVR, true)
	LTVR = newVR("LT", textVR, true)
	ASVR = newVR("AS", textVR, false)
	PNVR = newVR("PN", textVR, true)
	AEVR = newVR("AE", textVR, false)
	DAVR = newVR("DA", textVR, false)
	TMVR = newVR("TM", textVR, false)
	DTVR = newVR("DT", textVR, false)
	UCVR = newVR("UC", textVR, true)

	// textual numbers
	ISVR = newVR("IS", textVR, false)
	DSVR = newVR("DS", textVR, false)

	// unlimited text
	UTVR = newVR("UT", unlimitedTextVR, true)
	URVR = newVR("UR", unlimitedTextVR, false)

	// binary numbers
	SSVR = newVR("SS", numberBinaryVR, false)
	USVR = newVR("US", numberBinaryVR, false)
	SLVR = newVR("SL", numberBinaryVR, false)
	ULVR = newVR("UL", numberBinaryVR, false)
	FLVR = newVR("FL", numberBinaryVR, false)
	FDVR = newVR("FD", numberBinaryVR, false)

	// large binary sequences
	OBVR = newVR("OB", bulkDataVR, false)
	ODVR = newVR("OD", bulkDataVR, false)
	OLVR = newVR("OL", bulkDataVR, false)
	OWVR = newVR("OW", bulkDataVR, false)
	OFVR = newVR("OF", bulkDataVR, false)
	UNVR = newVR("UN", bulkDataVR, false)

	// attribute tag
	ATVR = newVR("AT", tagVR, false)

	// unique identifier
	UIVR = newVR("UI", uniqueIdentifierVR, false)

	// sequence
	SQVR = newVR("SQ", sequenceVR, false)
)
