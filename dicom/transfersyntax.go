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

import (
	"encoding/binary"
	"fmt"
	"math"
)

// Transfer syntaxes of PS3.5 A.1 to A.5 whose data sets the codec reads and writes.
const (
	ImplicitVRLittleEndianUID         = "1.2.840.10008.1.2"
	ExplicitVRLittleEndianUID         = "1.2.840.10008.1.2.1"
	ExplicitVRBigEndianUID            = "1.2.840.10008.1.2.2"
	DeflatedExplicitVRLittleEndianUID = "1.2.840.10008.1.2.1.99"
)

const (
	vrSize  = 2
	tagSize = 4
)

// transferSyntax describes how elements of a data set are laid out after the meta group.
type transferSyntax struct {
	id       string
	order    binary.ByteOrder
	implicit bool
	deflated bool
}

var (
	implicitVRLittleEndian         = transferSyntax{id: ImplicitVRLittleEndianUID, order: binary.LittleEndian, implicit: true}
	explicitVRLittleEndian         = transferSyntax{id: ExplicitVRLittleEndianUID, order: binary.LittleEndian}
	explicitVRBigEndian            = transferSyntax{id: ExplicitVRBigEndianUID, order: binary.BigEndian}
	deflatedExplicitVRLittleEndian = transferSyntax{id: DeflatedExplicitVRLittleEndianUID, order: binary.LittleEndian, deflated: true}
)

var transferSyntaxes = map[string]transferSyntax{
	ImplicitVRLittleEndianUID:         implicitVRLittleEndian,
	ExplicitVRLittleEndianUID:         explicitVRLittleEndian,
	ExplicitVRBigEndianUID:            explicitVRBigEndian,
	DeflatedExplicitVRLittleEndianUID: deflatedExplicitVRLittleEndian,
}

// lookupTransferSyntax returns the syntax of uid. Unknown syntaxes, which include every
// encapsulated pixel data syntax, are encoded as explicit VR little endian (PS3.5 A.4).
func lookupTransferSyntax(uid string) transferSyntax {
	if s, ok := transferSyntaxes[uid]; ok {
		return s
	}
	return explicitVRLittleEndian
}

func (s transferSyntax) String() string {
	return s.id
}

func (s transferSyntax) uid() string {
	return s.id
}

func (s transferSyntax) byteOrder() binary.ByteOrder {
	return s.order
}

func (s transferSyntax) isDeflated() bool {
	return s.deflated
}

// headerSize is the number of bytes between the start of an element and its value.
func (s transferSyntax) headerSize(vr *VR) uint32 {
	switch {
	case s.implicit:
		return tagSize + 4
	case vr.longLength():
		return tagSize + vrSize + 2 + 4
	}
	return tagSize + vrSize + 2
}

func (s transferSyntax) readVR(dr *dcmReader, tag DataElementTag) (*VR, error) {
	if s.implicit {
		return tag.DictionaryVR(), nil
	}
	name, err := dr.String(vrSize)
	if err != nil {
		return nil, fmt.Errorf("reading vr of %v: %v", tag, err)
	}
	// unknown VR codes carry a 32-bit length like UN
	vr, _ := lookupVRByName(name)
	return vr, nil
}

func (s transferSyntax) readValueLength(dr *dcmReader, vr *VR) (uint32, error) {
	if s.implicit {
		return dr.UInt32(s.order)
	}
	if !vr.longLength() {
		length, err := dr.UInt16(s.order)
		if err != nil {
			return 0, fmt.Errorf("reading 16 bit length: %v", err)
		}
		return uint32(length), nil
	}
	if _, err := dr.UInt16(s.order); err != nil {
		return 0, fmt.Errorf("reading reserved field: %v", err)
	}
	length, err := dr.UInt32(s.order)
	if err != nil {
		return 0, fmt.Errorf("reading 32 bit length: %v", err)
	}
	return length, nil
}

func (s transferSyntax) writeVR(dw *dcmWriter, vr *VR) error {
	if s.implicit {
		return nil
	}
	return dw.String(vr.Name)
}

func (s transferSyntax) writeValueLength(dw *dcmWriter, vr *VR, length uint32) error {
	switch {
	case s.implicit:
		return dw.UInt32(s.order, length)
	case vr.longLength():
		if err := dw.UInt16(s.order, 0); err != nil {
			return fmt.Errorf("writing reserved field: %v", err)
		}
		return dw.UInt32(s.order, length)
	case length > math.MaxUint16:
		return fmt.Errorf("%s value of %d bytes does not fit a 16 bit length", vr.Name, length)
	}
	return dw.UInt16(s.order, uint16(length))
}
