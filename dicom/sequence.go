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
	"strings"
)

// Sequence models a DICOM sequence
type Sequence struct {
	Items []*DataSet
}

// NewSequence returns a Sequence holding the given items in order.
func NewSequence(items ...*DataSet) *Sequence {
	return &Sequence{Items: items}
}

func (seq *Sequence) String() string {
	return seq.string(0)
}

func (seq *Sequence) string(indentLvl int) string {
	lines := make([]string, 0, len(seq.Items))
	for _, obj := range seq.Items {
		lines = append(lines, obj.string(indentLvl+1))
	}
	return "\n" + strings.Join(lines, "\n")
}

// Cursor walks the items of a sequence forward. A Cursor obtained for a missing or empty sequence
// is never valid.
//
//	for c := ds.FirstItemOf(BeamSequenceTag); c.Valid(); c.Next() {
//		beam := c.Item()
//	}
type Cursor struct {
	seq *Sequence
	pos int
}

// Valid reports whether the cursor points at an item.
func (c *Cursor) Valid() bool {
	return c.seq != nil && c.pos < len(c.seq.Items)
}

// Item returns the current item, or nil when the cursor is not valid.
func (c *Cursor) Item() *DataSet {
	if !c.Valid() {
		return nil
	}
	return c.seq.Items[c.pos]
}

// Index is the position of the current item within the sequence.
func (c *Cursor) Index() int {
	return c.pos
}

// Next advances the cursor and reports whether it points at an item afterwards.
func (c *Cursor) Next() bool {
	if c.seq == nil {
		return false
	}
	if c.pos < len(c.seq.Items) {
		c.pos++
	}
	return c.Valid()
}

// FirstItemOf returns a cursor positioned at the first item of the sequence stored under tag.
func (ds *DataSet) FirstItemOf(tag DataElementTag) *Cursor {
	seq, _ := ds.FindSequence(tag)
	return &Cursor{seq: seq}
}

// Items is an ordered list of typed records decoded from the items of a sequence, with
// positional access and a forward cursor.
type Items[T any] struct {
	records []T
	pos     int
}

// CollectItems decodes every item of the sequence stored under tag with decode. Items for which
// decode reports false are left out.
func CollectItems[T any](ds *DataSet, tag DataElementTag, decode func(*DataSet) (T, bool)) *Items[T] {
	items := &Items[T]{}
	for c := ds.FirstItemOf(tag); c.Valid(); c.Next() {
		if r, ok := decode(c.Item()); ok {
			items.records = append(items.records, r)
		}
	}
	return items
}

// Len is the number of records.
func (it *Items[T]) Len() int {
	return len(it.records)
}

// At returns the record at index i.
func (it *Items[T]) At(i int) (T, bool) {
	if i < 0 || i >= len(it.records) {
		var zero T
		return zero, false
	}
	return it.records[i], true
}

// Set replaces the record at index i and reports whether i was in range.
func (it *Items[T]) Set(i int, r T) bool {
	if i < 0 || i >= len(it.records) {
		return false
	}
	it.records[i] = r
	return true
}

// Append adds a record at the end.
func (it *Items[T]) Append(r T) {
	it.records = append(it.records, r)
}

// First rewinds the cursor and returns the first record.
func (it *Items[T]) First() (T, bool) {
	it.pos = 0
	return it.At(0)
}

// Next advances the cursor and returns the record it then points at.
func (it *Items[T]) Next() (T, bool) {
	if it.pos < len(it.records) {
		it.pos++
	}
	return it.At(it.pos)
}

// All returns the records in order.
func (it *Items[T]) All() []T {
	return it.records
}
