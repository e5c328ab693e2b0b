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
	"bytes"
	"encoding/binary"
)

func dcmReaderFromBytes(data []byte) *dcmReader {
	return newDcmReader(bytes.NewBuffer(data))
}

// elementBytes encodes an explicit VR element header followed by value.
func elementBytes(order binary.ByteOrder, tag DataElementTag, vr string, value []byte) []byte {
	return append(headerBytes(order, tag, vr, uint32(len(value))), value...)
}

func headerBytes(order binary.ByteOrder, tag DataElementTag, vr string, length uint32) []byte {
	var b bytes.Buffer
	dw := &dcmWriter{&b}
	dw.Tag(order, tag)
	dw.String(vr)
	if v, _ := lookupVRByName(vr); v.longLength() {
		dw.UInt16(order, 0)
		dw.UInt32(order, length)
	} else {
		dw.UInt16(order, uint16(length))
	}
	return b.Bytes()
}

// delimiterBytes encodes an item, item delimitation or sequence delimitation item header.
func delimiterBytes(order binary.ByteOrder, tag DataElementTag, length uint32) []byte {
	var b bytes.Buffer
	dw := &dcmWriter{&b}
	dw.Tag(order, tag)
	dw.UInt32(order, length)
	return b.Bytes()
}

// paddedText pads s to an even length with pad.
func paddedText(s string, pad byte) []byte {
	b := []byte(s)
	if len(b)%2 != 0 {
		b = append(b, pad)
	}
	return b
}

// part10 prefixes body with a preamble and a meta group naming the transfer syntax.
func part10(syntaxUID string, body ...[]byte) []byte {
	ts := elementBytes(binary.LittleEndian, TransferSyntaxUIDTag, "UI", paddedText(syntaxUID, 0x00))
	groupLength := make([]byte, 4)
	binary.LittleEndian.PutUint32(groupLength, uint32(len(ts)))

	var b bytes.Buffer
	b.Write(make([]byte, preambleLength))
	b.WriteString(magicWord)
	b.Write(elementBytes(binary.LittleEndian, FileMetaInformationGroupLengthTag, "UL", groupLength))
	b.Write(ts)
	for _, part := range body {
		b.Write(part)
	}
	return b.Bytes()
}
