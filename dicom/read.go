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
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"strings"

	"github.com/klauspost/compress/flate"
	"golang.org/x/text/encoding"
)

const (
	preambleLength = 128
	magicWord      = "DICM"
)

// errItemDelimiter is returned by readDataElement when the end of an undefined length item is
// reached
var errItemDelimiter = errors.New("item delimitation item")

// Parse reads a DICOM Part 10 stream into a DataSet. The File Meta Information group is kept in
// the returned DataSet and decides the transfer syntax of the rest of the stream. Streams without
// the 128 byte preamble are accepted: a stream starting with a group 0002 element is read as a
// meta group followed by the data set, anything else as an Implicit VR Little Endian data set.
func Parse(r io.Reader, opts ...ParseOption) (*DataSet, error) {
	p := &parser{}
	for _, opt := range opts {
		opt(p)
	}

	br := bufio.NewReader(r)
	ds := NewDataSet()

	syntax, err := p.readHeader(br, ds)
	if err != nil {
		return nil, err
	}

	body := io.Reader(br)
	if syntax.isDeflated() {
		fr := flate.NewReader(br)
		defer fr.Close()
		body = fr
	}

	if err := p.readElements(newDcmReader(body), syntax, defaultCharacterRepertoire, ds, 0, false); err != nil {
		return nil, fmt.Errorf("reading data set: %v", err)
	}
	return ds, nil
}

// ParseFile opens the named file and parses it with Parse.
func ParseFile(path string, opts ...ParseOption) (*DataSet, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	ds, err := Parse(f, opts...)
	if err != nil {
		return nil, fmt.Errorf("parsing %v: %v", path, err)
	}
	return ds, nil
}

type parser struct {
	transforms    []Transform
	skipPixelData bool
}

// readHeader consumes the preamble and the File Meta Information and returns the transfer syntax of
// the data set that follows.
func (p *parser) readHeader(br *bufio.Reader, ds *DataSet) (transferSyntax, error) {
	head, err := br.Peek(preambleLength + len(magicWord))
	if err == nil && string(head[preambleLength:]) == magicWord {
		if _, err := br.Discard(preambleLength + len(magicWord)); err != nil {
			return transferSyntax{}, fmt.Errorf("skipping preamble: %v", err)
		}
	}

	group, err := br.Peek(2)
	if err != nil {
		if err == io.EOF {
			return transferSyntax{}, errors.New("empty DICOM stream")
		}
		return transferSyntax{}, fmt.Errorf("reading first tag: %v", err)
	}
	if binary.LittleEndian.Uint16(group) != 0x0002 {
		return implicitVRLittleEndian, nil
	}

	if err := p.readMetaElements(br, ds); err != nil {
		return transferSyntax{}, fmt.Errorf("reading file meta information: %v", err)
	}

	uid, ok := ds.FindString(TransferSyntaxUIDTag)
	if !ok {
		return transferSyntax{}, errors.New("file meta information is missing the transfer syntax UID")
	}
	return lookupTransferSyntax(uid), nil
}

// readMetaElements reads group 0002 elements, which are always encoded in Explicit VR Little
// Endian, until the next element belongs to another group.
func (p *parser) readMetaElements(br *bufio.Reader, ds *DataSet) error {
	dr := newDcmReader(br)
	for {
		next, err := br.Peek(2)
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return err
		}
		if binary.LittleEndian.Uint16(next) != 0x0002 {
			return nil
		}

		elem, err := p.readDataElement(dr, explicitVRLittleEndian, nil, 0)
		if err != nil {
			return err
		}
		if elem, err = p.transform(elem); err != nil {
			return err
		}
		if elem != nil {
			ds.Elements[elem.Tag] = elem
		}
	}
}

// readElements reads data elements into ds until the stream ends. Undefined length items
// end with an item delimiter instead.
func (p *parser) readElements(dr *dcmReader, syntax transferSyntax, enc encoding.Encoding, ds *DataSet, depth int, untilDelimiter bool) error {
	for {
		elem, err := p.readDataElement(dr, syntax, enc, depth)
		if err == io.EOF {
			if untilDelimiter {
				return io.ErrUnexpectedEOF
			}
			return nil
		}
		if err == errItemDelimiter {
			if !untilDelimiter {
				return fmt.Errorf("unexpected item delimiter at offset %d", dr.Offset())
			}
			return nil
		}
		if err != nil {
			return err
		}
		if elem == nil {
			continue
		}

		if elem.Tag == SpecificCharacterSetTag {
			terms, _ := elem.ValueField.([]string)
			if enc, err = encodingForTerms(terms); err != nil {
				return err
			}
		}

		if elem, err = p.transform(elem); err != nil {
			return err
		}
		if elem != nil {
			ds.Elements[elem.Tag] = elem
		}
	}
}

func (p *parser) transform(elem *DataElement) (*DataElement, error) {
	for _, t := range p.transforms {
		if elem == nil {
			return nil, nil
		}
		out, err := t(elem)
		if err != nil {
			return nil, fmt.Errorf("transforming %v: %v", elem.Tag, err)
		}
		elem = out
	}
	return elem, nil
}

func (p *parser) readDataElement(dr *dcmReader, syntax transferSyntax, enc encoding.Encoding, depth int) (*DataElement, error) {
	order := syntax.byteOrder()
	tag, err := dr.Tag(order)
	if err == io.EOF {
		return nil, io.EOF
	}
	if err != nil {
		return nil, fmt.Errorf("getting tag: %v", err)
	}

	if tag == ItemDelimitationItemTag {
		length, err := dr.UInt32(order)
		if err != nil {
			return nil, fmt.Errorf("reading 32 bit length of item delimitation: %v", err)
		}
		if length != 0 {
			return nil, fmt.Errorf("wrong length for item delimiter. got %v, want %v", length, 0)
		}
		return nil, errItemDelimiter
	}

	vr, err := syntax.readVR(dr, tag)
	if err != nil {
		return nil, err
	}

	length, err := syntax.readValueLength(dr, vr)
	if err != nil {
		return nil, fmt.Errorf("getting length of %v: %v", tag, err)
	}

	// an unknown element of undefined length is a sequence encoded in Implicit VR Little Endian
	// http://dicom.nema.org/medical/dicom/current/output/html/part05.html#sect_6.2.2
	if vr == UNVR && length == UndefinedLength && tag != PixelDataTag {
		seq, err := p.readSequence(dr, length, implicitVRLittleEndian, enc, depth+1)
		if err != nil {
			return nil, fmt.Errorf("parsing %v: %v", tag, err)
		}
		return &DataElement{tag, SQVR, seq, length}, nil
	}

	if p.skipPixelData && tag == PixelDataTag && depth == 0 {
		if length == UndefinedLength {
			_, err = readFragments(dr)
		} else {
			err = dr.Skip(int64(length))
		}
		if err != nil {
			return nil, fmt.Errorf("skipping pixel data: %v", err)
		}
		return nil, nil
	}

	value, err := p.readValue(dr, tag, vr, length, syntax, enc, depth)
	if err != nil {
		return nil, fmt.Errorf("parsing value of %v: %v", tag, err)
	}
	return &DataElement{tag, vr, value, length}, nil
}

func (p *parser) readValue(dr *dcmReader, tag DataElementTag, vr *VR, length uint32, syntax transferSyntax, enc encoding.Encoding, depth int) (interface{}, error) {
	if length == UndefinedLength && vr.kind != sequenceVR && vr.kind != bulkDataVR {
		return nil, fmt.Errorf("undefined length is not allowed for vr %v", vr)
	}

	switch vr.kind {
	case textVR:
		strs, err := readText(dr, length, vr)
		if err != nil || !vr.encoded {
			return strs, err
		}
		return decodeText(enc, strs)
	case unlimitedTextVR:
		s, err := dr.String(int64(length))
		if err != nil {
			return nil, fmt.Errorf("reading text field value: %v", err)
		}
		strs := []string{strings.TrimRight(s, " \x00")}
		if !vr.encoded {
			return strs, nil
		}
		return decodeText(enc, strs)
	case uniqueIdentifierVR:
		return readText(dr, length, vr)
	case numberBinaryVR:
		b, err := dr.Bytes(int64(length))
		if err != nil {
			return nil, err
		}
		return decodeNumbers(b, vr, syntax.byteOrder())
	case tagVR:
		b, err := dr.Bytes(int64(length))
		if err != nil {
			return nil, err
		}
		return decodeTags(b, syntax.byteOrder())
	case bulkDataVR:
		return readBulkData(dr, tag, vr, length, syntax.byteOrder())
	case sequenceVR:
		return p.readSequence(dr, length, syntax, enc, depth+1)
	default:
		return nil, fmt.Errorf("unknown vr kind found: %v", vr.kind)
	}
}

func readText(dr *dcmReader, length uint32, vr *VR) ([]string, error) {
	if length == 0 {
		return []string{}, nil
	}

	valueField, err := dr.String(int64(length))
	if err != nil {
		return nil, fmt.Errorf("reading text field value: %v", err)
	}

	isPadding := func(r rune) bool { return r == ' ' || r == 0x00 }

	// deal with value multiplicity
	strs := strings.Split(valueField, "\\")
	for i, s := range strs {
		if vr == STVR || vr == LTVR {
			strs[i] = strings.TrimRightFunc(s, isPadding)
		} else {
			strs[i] = strings.TrimFunc(s, isPadding)
		}
	}
	return strs, nil
}

func decodeNumbers(b []byte, vr *VR, order binary.ByteOrder) (interface{}, error) {
	size := 2
	switch vr {
	case SLVR, ULVR, FLVR:
		size = 4
	case FDVR:
		size = 8
	}
	if len(b)%size != 0 {
		return nil, fmt.Errorf("length %d of %v is not a multiple of %d", len(b), vr, size)
	}
	n := len(b) / size

	switch vr {
	case SSVR:
		v := make([]int16, n)
		for i := range v {
			v[i] = int16(order.Uint16(b[2*i:]))
		}
		return v, nil
	case USVR:
		v := make([]uint16, n)
		for i := range v {
			v[i] = order.Uint16(b[2*i:])
		}
		return v, nil
	case SLVR:
		v := make([]int32, n)
		for i := range v {
			v[i] = int32(order.Uint32(b[4*i:]))
		}
		return v, nil
	case ULVR:
		v := make([]uint32, n)
		for i := range v {
			v[i] = order.Uint32(b[4*i:])
		}
		return v, nil
	case FLVR:
		v := make([]float32, n)
		for i := range v {
			v[i] = math.Float32frombits(order.Uint32(b[4*i:]))
		}
		return v, nil
	case FDVR:
		v := make([]float64, n)
		for i := range v {
			v[i] = math.Float64frombits(order.Uint64(b[8*i:]))
		}
		return v, nil
	}
	return nil, fmt.Errorf("unknown vr: %v", vr)
}

func decodeTags(b []byte, order binary.ByteOrder) ([]uint32, error) {
	if len(b)%4 != 0 {
		return nil, fmt.Errorf("length %d of AT is not a multiple of 4", len(b))
	}
	tags := make([]uint32, len(b)/4)
	for i := range tags {
		group := order.Uint16(b[4*i:])
		element := order.Uint16(b[4*i+2:])
		tags[i] = uint32(NewTag(group, element))
	}
	return tags, nil
}

// readBulkData buffers native bulk data. Words of OW, OF, OL and OD values are normalized to little
// endian so that consumers do not depend on the transfer syntax.
func readBulkData(dr *dcmReader, tag DataElementTag, vr *VR, length uint32, order binary.ByteOrder) (interface{}, error) {
	if length == UndefinedLength {
		if tag == PixelDataTag {
			// Specified in http://dicom.nema.org/medical/dicom/current/output/html/part05.html#sect_A.4
			// (7FE0,0010) and undefined length means pixel data in encapsulated (compressed) format
			return readFragments(dr)
		}
		return nil, errors.New("undefined length in non-pixel data bulk data not supported")
	}

	b, err := dr.Bytes(int64(length))
	if err != nil {
		return nil, err
	}
	if order == binary.BigEndian {
		switch vr {
		case OWVR:
			swapWords(b, 2)
		case OFVR, OLVR:
			swapWords(b, 4)
		case ODVR:
			swapWords(b, 8)
		}
	}
	return b, nil
}

func swapWords(b []byte, size int) {
	for i := 0; i+size <= len(b); i += size {
		for lo, hi := i, i+size-1; lo < hi; lo, hi = lo+1, hi-1 {
			b[lo], b[hi] = b[hi], b[lo]
		}
	}
}

// readFragments reads the items of encapsulated pixel data up to the sequence delimiter. The basic
// offset table is kept as the first fragment.
func readFragments(dr *dcmReader) ([][]byte, error) {
	var fragments [][]byte
	for {
		tag, err := dr.Tag(binary.LittleEndian)
		if err != nil {
			return nil, fmt.Errorf("reading fragment tag: %v", err)
		}
		length, err := dr.UInt32(binary.LittleEndian)
		if err != nil {
			return nil, fmt.Errorf("reading fragment length: %v", err)
		}
		switch tag {
		case SequenceDelimitationItemTag:
			return fragments, nil
		case ItemTag:
			b, err := dr.Bytes(int64(length))
			if err != nil {
				return nil, fmt.Errorf("reading fragment: %v", err)
			}
			fragments = append(fragments, b)
		default:
			return nil, fmt.Errorf("unexpected tag %v in encapsulated pixel data", tag)
		}
	}
}

func (p *parser) readSequence(dr *dcmReader, length uint32, syntax transferSyntax, enc encoding.Encoding, depth int) (*Sequence, error) {
	seq := &Sequence{}
	sr := dr
	if length != UndefinedLength {
		sr = dr.Limit(int64(length))
	}
	order := syntax.byteOrder()

	for {
		tag, err := sr.Tag(order)
		if err == io.EOF && length != UndefinedLength {
			return seq, nil
		}
		if err != nil {
			return nil, fmt.Errorf("reading item tag: %v", err)
		}
		itemLength, err := sr.UInt32(order)
		if err != nil {
			return nil, fmt.Errorf("reading item length: %v", err)
		}

		switch tag {
		case SequenceDelimitationItemTag:
			return seq, nil
		case ItemTag:
			item := NewDataSet()
			if itemLength == UndefinedLength {
				err = p.readElements(sr, syntax, enc, item, depth, true)
			} else {
				err = p.readElements(sr.Limit(int64(itemLength)), syntax, enc, item, depth, false)
			}
			if err != nil {
				return nil, fmt.Errorf("reading item %d: %v", len(seq.Items), err)
			}
			seq.Items = append(seq.Items, item)
		default:
			return nil, fmt.Errorf("unexpected tag %v in sequence", tag)
		}
	}
}

// ParseBytes is a convenience wrapper around Parse for in-memory data.
func ParseBytes(b []byte, opts ...ParseOption) (*DataSet, error) {
	return Parse(bytes.NewReader(b), opts...)
}
