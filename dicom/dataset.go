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
	"fmt"
	"sort"
	"strings"
)

// DataElementTag is a unique identifier for a Data Element composed of an unordered pair
// of numbers called the group number and the element number as specified in
// http://dicom.nema.org/medical/dicom/current/output/html/part05.html#sect_3.10.
//
// The least significant 16 bits is the element number. The most significant 16 bits is the group
// number.
type DataElementTag uint32

// NewTag builds a DataElementTag from its group and element numbers.
func NewTag(group, element uint16) DataElementTag {
	return DataElementTag(uint32(group)<<16 | uint32(element))
}

// GroupNumber returns the group number component of the DataElementTag
func (t DataElementTag) GroupNumber() uint16 {
	return uint16(t >> 16)
}

// ElementNumber returns the element number component of the DataElementTag
func (t DataElementTag) ElementNumber() uint16 {
	return uint16(t & 0xFFFF)
}

// IsMetaElement is true if and only if the Data Element belongs to the File Meta Information group
func (t DataElementTag) IsMetaElement() bool {
	return t.GroupNumber() == 0x0002
}

// IsPrivate is true if and only if the group number is odd
func (t DataElementTag) IsPrivate() bool {
	return t.GroupNumber()%2 == 1
}

func (t DataElementTag) String() string {
	return fmt.Sprintf("(%04X,%04X)", t.GroupNumber(), t.ElementNumber())
}

// DataElement models a DICOM Data Element as defined in
// http://dicom.nema.org/medical/dicom/current/output/html/part05.html#sect_3.10
type DataElement struct {
	Tag DataElementTag

	// Value Representation
	VR *VR

	// ValueField represents the field within a Data Element that contains its value(s)
	// Can be any of of the following types:
	// []string,
	// []byte (native OB, OW, OF, OD, OL, UN; OW is stored little endian),
	// [][]byte (encapsulated pixel data fragments, offset table first),
	// []int16,
	// []uint16,
	// []int32,
	// []uint32 (UL and AT),
	// []float32,
	// []float64,
	// *Sequence
	ValueField interface{}

	// ValueLength is the length of the ValueField in bytes as read from the stream.
	// Can be equal to 0xFFFFFFFF to represent an undefined length:
	// http://dicom.nema.org/medical/dicom/current/output/html/part05.html#sect_7.1.1
	ValueLength uint32
}

func (e *DataElement) String() string {
	return e.string(0)
}

func (e *DataElement) string(indentLvl int) string {
	indent := strings.Repeat("  ", indentLvl)
	if seq, ok := e.ValueField.(*Sequence); ok {
		return fmt.Sprintf("%s%v %v %v", indent, e.Tag, e.VR.Name, seq.string(indentLvl))
	}
	switch v := e.ValueField.(type) {
	case []byte:
		return fmt.Sprintf("%s%v %v <%d bytes>", indent, e.Tag, e.VR.Name, len(v))
	case [][]byte:
		return fmt.Sprintf("%s%v %v <%d fragments>", indent, e.Tag, e.VR.Name, len(v))
	}
	return fmt.Sprintf("%s%v %v %v", indent, e.Tag, e.VR.Name, e.ValueField)
}

// DataSet models a DICOM Data Set as defined
// http://dicom.nema.org/medical/dicom/current/output/html/part05.html#sect_3.10
type DataSet struct {
	// Elements is a map of DataElement tags to *DataElement
	Elements map[DataElementTag]*DataElement
}

// NewDataSet returns an empty DataSet ready to be populated.
func NewDataSet() *DataSet {
	return &DataSet{Elements: map[DataElementTag]*DataElement{}}
}

// SortedTags returns the tags of the DataSet in ascending order, which is the order elements are
// encoded in.
func (ds *DataSet) SortedTags() []DataElementTag {
	tags := make([]DataElementTag, 0, len(ds.Elements))
	for t := range ds.Elements {
		tags = append(tags, t)
	}
	sort.Slice(tags, func(i, j int) bool { return tags[i] < tags[j] })
	return tags
}

// SortedElements returns the elements of the DataSet in ascending tag order.
func (ds *DataSet) SortedElements() []*DataElement {
	tags := ds.SortedTags()
	elems := make([]*DataElement, len(tags))
	for i, t := range tags {
		elems[i] = ds.Elements[t]
	}
	return elems
}

// MetaElements returns a new DataSet holding only the File Meta Information group.
func (ds *DataSet) MetaElements() *DataSet {
	meta := NewDataSet()
	for t, e := range ds.Elements {
		if t.IsMetaElement() {
			meta.Elements[t] = e
		}
	}
	return meta
}

func (ds *DataSet) String() string {
	return ds.string(0)
}

func (ds *DataSet) string(indentLvl int) string {
	lines := make([]string, 0, len(ds.Elements))
	for _, e := range ds.SortedElements() {
		lines = append(lines, e.string(indentLvl))
	}
	return strings.Join(lines, "\n")
}
