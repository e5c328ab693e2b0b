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
	"io"
)

// counter counts the bytes read through it into a total shared by every dcmReader limited from
// the same stream.
type counter struct {
	r     io.Reader
	total *int64
}

func (c counter) Read(p []byte) (int, error) {
	n, err := c.r.Read(p)
	*c.total += int64(n)
	return n, err
}

// dcmReader reads the fixed size fields of an encoded data set.
type dcmReader struct {
	r      io.Reader
	offset *int64
	buf    [4]byte
}

func newDcmReader(r io.Reader) *dcmReader {
	offset := new(int64)
	return &dcmReader{r: counter{r, offset}, offset: offset}
}

// Offset is the number of bytes consumed from the stream the reader was created for.
func (dr *dcmReader) Offset() int64 {
	return *dr.offset
}

// Limit returns a reader of the next n bytes. Reading from it advances dr.
func (dr *dcmReader) Limit(n int64) *dcmReader {
	return &dcmReader{r: io.LimitReader(dr.r, n), offset: dr.offset}
}

func (dr *dcmReader) fill(n int) ([]byte, error) {
	if _, err := io.ReadFull(dr.r, dr.buf[:n]); err != nil {
		return nil, err
	}
	return dr.buf[:n], nil
}

func (dr *dcmReader) UInt16(order binary.ByteOrder) (uint16, error) {
	b, err := dr.fill(2)
	if err != nil {
		return 0, err
	}
	return order.Uint16(b), nil
}

func (dr *dcmReader) UInt32(order binary.ByteOrder) (uint32, error) {
	b, err := dr.fill(4)
	if err != nil {
		return 0, err
	}
	return order.Uint32(b), nil
}

// Tag reads a group and element number. A stream ending between them is an unexpected EOF.
func (dr *dcmReader) Tag(order binary.ByteOrder) (DataElementTag, error) {
	b, err := dr.fill(4)
	if err != nil {
		return 0, err
	}
	return NewTag(order.Uint16(b), order.Uint16(b[2:])), nil
}

func (dr *dcmReader) Bytes(n int64) ([]byte, error) {
	if n < 0 {
		return nil, fmt.Errorf("negative read length %d", n)
	}
	b := make([]byte, n)
	if _, err := io.ReadFull(dr.r, b); err != nil {
		return nil, err
	}
	return b, nil
}

func (dr *dcmReader) String(n int64) (string, error) {
	b, err := dr.Bytes(n)
	return string(b), err
}

// Skip discards the next n bytes.
func (dr *dcmReader) Skip(n int64) error {
	skipped, err := io.CopyN(io.Discard, dr.r, n)
	if err == io.EOF && skipped < n {
		return io.ErrUnexpectedEOF
	}
	return err
}

// dcmWriter writes the fixed size fields of an encoded data set.
type dcmWriter struct {
	io.Writer
}

func (dw *dcmWriter) Bytes(b []byte) error {
	_, err := dw.Write(b)
	return err
}

func (dw *dcmWriter) String(s string) error {
	_, err := io.WriteString(dw.Writer, s)
	return err
}

func (dw *dcmWriter) UInt16(order binary.ByteOrder, v uint16) error {
	b := make([]byte, 2)
	order.PutUint16(b, v)
	return dw.Bytes(b)
}

func (dw *dcmWriter) UInt32(order binary.ByteOrder, v uint32) error {
	b := make([]byte, 4)
	order.PutUint32(b, v)
	return dw.Bytes(b)
}

func (dw *dcmWriter) Tag(order binary.ByteOrder, tag DataElementTag) error {
	b := make([]byte, 4)
	order.PutUint16(b, tag.GroupNumber())
	order.PutUint16(b[2:], tag.ElementNumber())
	return dw.Bytes(b)
}

// Item writes an item tag and its length, which may be UndefinedLength.
func (dw *dcmWriter) Item(order binary.ByteOrder, length uint32) error {
	if err := dw.Tag(order, ItemTag); err != nil {
		return fmt.Errorf("writing item tag: %v", err)
	}
	return dw.UInt32(order, length)
}

// Delimiter writes an item or sequence delimitation item.
func (dw *dcmWriter) Delimiter(order binary.ByteOrder, tag DataElementTag) error {
	if err := dw.Tag(order, tag); err != nil {
		return fmt.Errorf("writing delimiter %v: %v", tag, err)
	}
	return dw.UInt32(order, 0)
}
