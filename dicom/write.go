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
	"bufio"
	"bytes"
	"encoding/binary"
	"fmt"
	"io"
	"math"
	"os"
	"strings"

	"github.com/klauspost/compress/flate"
)

const (
	// ImplementationClassUID identifies files written by this package
	ImplementationClassUID = "2.25.229371285947120982340958670264321875432"
	// ImplementationVersionName is written next to ImplementationClassUID
	ImplementationVersionName = "GO_DICOM_RT_1"
)

// Write encodes ds as a DICOM Part 10 stream: a zeroed preamble, the magic word, the File Meta
// Information and the data set in the transfer syntax named by the meta group (Explicit VR Little
// Endian when absent). Missing meta elements are derived from the data set and the group length
// is always recomputed. ds is not modified.
func Write(w io.Writer, ds *DataSet, opts ...WriteOption) error {
	var wo writeSettings
	for _, opt := range opts {
		opt(&wo)
	}

	meta := fileMetaInformation(ds)
	uid, _ := meta.FindString(TransferSyntaxUIDTag)
	syntax := lookupTransferSyntax(uid)

	dw := &dcmWriter{w}
	if err := dw.Bytes(make([]byte, preambleLength)); err != nil {
		return fmt.Errorf("writing preamble: %v", err)
	}
	if err := dw.String(magicWord); err != nil {
		return fmt.Errorf("writing magic word: %v", err)
	}
	if err := writeMeta(dw, meta); err != nil {
		return fmt.Errorf("writing file meta information: %v", err)
	}

	if !syntax.isDeflated() {
		return writeDataSet(dw, syntax, ds, wo)
	}

	fw, err := flate.NewWriter(w, flate.DefaultCompression)
	if err != nil {
		return fmt.Errorf("creating deflate writer: %v", err)
	}
	if err := writeDataSet(&dcmWriter{fw}, syntax, ds, wo); err != nil {
		return err
	}
	return fw.Close()
}

// WriteFile writes ds to the named file with Write, creating or truncating it.
func WriteFile(path string, ds *DataSet, opts ...WriteOption) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	bw := bufio.NewWriter(f)
	if err := Write(bw, ds, opts...); err != nil {
		f.Close()
		return fmt.Errorf("writing %v: %v", path, err)
	}
	if err := bw.Flush(); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

func fileMetaInformation(ds *DataSet) *DataSet {
	meta := ds.MetaElements()
	delete(meta.Elements, FileMetaInformationGroupLengthTag)

	setDefault := func(tag DataElementTag, value interface{}) {
		if _, ok := meta.Elements[tag]; !ok {
			meta.Elements[tag] = &DataElement{Tag: tag, VR: tag.DictionaryVR(), ValueField: value}
		}
	}
	setDefault(FileMetaInformationVersionTag, []byte{0x00, 0x01})
	if v, ok := ds.FindString(SOPClassUIDTag); ok {
		setDefault(MediaStorageSOPClassUIDTag, []string{v})
	}
	if v, ok := ds.FindString(SOPInstanceUIDTag); ok {
		setDefault(MediaStorageSOPInstanceUIDTag, []string{v})
	}
	setDefault(TransferSyntaxUIDTag, []string{ExplicitVRLittleEndianUID})
	setDefault(ImplementationClassUIDTag, []string{ImplementationClassUID})
	setDefault(ImplementationVersionNameTag, []string{ImplementationVersionName})
	return meta
}

// writeMeta writes the meta group in Explicit VR Little Endian, preceded by its group length.
func writeMeta(dw *dcmWriter, meta *DataSet) error {
	var buf bytes.Buffer
	for _, e := range meta.SortedElements() {
		if err := writeDataElement(&dcmWriter{&buf}, explicitVRLittleEndian, e, writeSettings{}); err != nil {
			return err
		}
	}

	groupLength := &DataElement{
		Tag:        FileMetaInformationGroupLengthTag,
		VR:         ULVR,
		ValueField: []uint32{uint32(buf.Len())},
	}
	if err := writeDataElement(dw, explicitVRLittleEndian, groupLength, writeSettings{}); err != nil {
		return err
	}
	return dw.Bytes(buf.Bytes())
}

// writeDataSet writes every non meta element of ds in ascending tag order. Group length elements
// are dropped since their value would be stale.
func writeDataSet(dw *dcmWriter, syntax transferSyntax, ds *DataSet, wo writeSettings) error {
	for _, e := range ds.SortedElements() {
		if e.Tag.IsMetaElement() || e.Tag.ElementNumber() == 0x0000 {
			continue
		}
		if err := writeDataElement(dw, syntax, e, wo); err != nil {
			return err
		}
	}
	return nil
}

func writeHeader(dw *dcmWriter, syntax transferSyntax, tag DataElementTag, vr *VR, length uint32) error {
	if err := dw.Tag(syntax.byteOrder(), tag); err != nil {
		return fmt.Errorf("writing tag: %v", err)
	}
	if err := syntax.writeVR(dw, vr); err != nil {
		return fmt.Errorf("writing VR: %v", err)
	}
	if err := syntax.writeValueLength(dw, vr, length); err != nil {
		return fmt.Errorf("writing length: %v", err)
	}
	return nil
}

func writeDataElement(dw *dcmWriter, syntax transferSyntax, e *DataElement, wo writeSettings) error {
	vr := e.VR
	if vr == nil {
		vr = e.Tag.DictionaryVR()
	}
	order := syntax.byteOrder()

	switch v := e.ValueField.(type) {
	case *Sequence:
		if wo.undefinedLengths {
			if err := writeHeader(dw, syntax, e.Tag, SQVR, UndefinedLength); err != nil {
				return fmt.Errorf("writing %v: %v", e.Tag, err)
			}
			return writeSequence(dw, syntax, v, wo)
		}
		var buf bytes.Buffer
		if err := writeSequence(&dcmWriter{&buf}, syntax, v, wo); err != nil {
			return fmt.Errorf("writing %v: %v", e.Tag, err)
		}
		if err := writeHeader(dw, syntax, e.Tag, SQVR, uint32(buf.Len())); err != nil {
			return fmt.Errorf("writing %v: %v", e.Tag, err)
		}
		return dw.Bytes(buf.Bytes())
	case [][]byte:
		if err := writeHeader(dw, syntax, e.Tag, vr, UndefinedLength); err != nil {
			return fmt.Errorf("writing %v: %v", e.Tag, err)
		}
		return writeFragments(dw, v)
	}

	b, err := encodeValue(vr, e.ValueField, order)
	if err != nil {
		return fmt.Errorf("encoding %v: %v", e.Tag, err)
	}
	if len(b)%2 != 0 {
		b = append(b, vr.padding())
	}
	if len(b) >= math.MaxUint32 {
		return fmt.Errorf("value of %v is too large: %d bytes", e.Tag, len(b))
	}
	if err := writeHeader(dw, syntax, e.Tag, vr, uint32(len(b))); err != nil {
		return fmt.Errorf("writing %v: %v", e.Tag, err)
	}
	return dw.Bytes(b)
}

// writeSequence writes the items of seq. With explicit lengths every item is encoded to a buffer
// first so its length is known.
func writeSequence(dw *dcmWriter, syntax transferSyntax, seq *Sequence, wo writeSettings) error {
	order := syntax.byteOrder()
	for _, item := range seq.Items {
		if wo.undefinedLengths {
			if err := dw.Item(order, UndefinedLength); err != nil {
				return err
			}
			if err := writeDataSet(dw, syntax, item, wo); err != nil {
				return fmt.Errorf("writing sequence item: %v", err)
			}
			if err := dw.Delimiter(order, ItemDelimitationItemTag); err != nil {
				return err
			}
			continue
		}

		var buf bytes.Buffer
		if err := writeDataSet(&dcmWriter{&buf}, syntax, item, wo); err != nil {
			return fmt.Errorf("writing sequence item: %v", err)
		}
		if err := dw.Item(order, uint32(buf.Len())); err != nil {
			return err
		}
		if err := dw.Bytes(buf.Bytes()); err != nil {
			return err
		}
	}

	if wo.undefinedLengths {
		return dw.Delimiter(order, SequenceDelimitationItemTag)
	}
	return nil
}

// writeFragments writes encapsulated pixel data. Fragments are always little endian.
func writeFragments(dw *dcmWriter, fragments [][]byte) error {
	for _, f := range fragments {
		if err := dw.Item(binary.LittleEndian, uint32(len(f)+len(f)%2)); err != nil {
			return fmt.Errorf("writing fragment header: %v", err)
		}
		if err := dw.Bytes(f); err != nil {
			return fmt.Errorf("writing fragment: %v", err)
		}
		if len(f)%2 != 0 {
			if err := dw.Bytes([]byte{0x00}); err != nil {
				return err
			}
		}
	}
	return dw.Delimiter(binary.LittleEndian, SequenceDelimitationItemTag)
}

func encodeValue(vr *VR, value interface{}, order binary.ByteOrder) ([]byte, error) {
	switch v := value.(type) {
	case nil:
		return nil, nil
	case []string:
		return []byte(strings.Join(v, "\\")), nil
	case []byte:
		if order == binary.BigEndian {
			b := append([]byte(nil), v...)
			switch vr {
			case OWVR:
				swapWords(b, 2)
			case OFVR, OLVR:
				swapWords(b, 4)
			case ODVR:
				swapWords(b, 8)
			}
			return b, nil
		}
		return v, nil
	case []int16:
		b := make([]byte, 2*len(v))
		for i, n := range v {
			order.PutUint16(b[2*i:], uint16(n))
		}
		return b, nil
	case []uint16:
		b := make([]byte, 2*len(v))
		for i, n := range v {
			order.PutUint16(b[2*i:], n)
		}
		return b, nil
	case []int32:
		b := make([]byte, 4*len(v))
		for i, n := range v {
			order.PutUint32(b[4*i:], uint32(n))
		}
		return b, nil
	case []uint32:
		b := make([]byte, 4*len(v))
		for i, n := range v {
			if vr == ATVR {
				t := DataElementTag(n)
				order.PutUint16(b[4*i:], t.GroupNumber())
				order.PutUint16(b[4*i+2:], t.ElementNumber())
				continue
			}
			order.PutUint32(b[4*i:], n)
		}
		return b, nil
	case []float32:
		b := make([]byte, 4*len(v))
		for i, n := range v {
			order.PutUint32(b[4*i:], math.Float32bits(n))
		}
		return b, nil
	case []float64:
		b := make([]byte, 8*len(v))
		for i, n := range v {
			order.PutUint64(b[8*i:], math.Float64bits(n))
		}
		return b, nil
	default:
		return nil, fmt.Errorf("unexpected ValueField type %T", value)
	}
}
