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

// Transform rewrites a DataElement as it is parsed. Returning a nil element drops it.
type Transform func(*DataElement) (*DataElement, error)

// ParseOption configures Parse.
type ParseOption func(*parser)

// WithTransform applies t to every element in the order the elements are read. Elements of a
// sequence item are transformed before the sequence holding them. An error stops parsing.
func WithTransform(t Transform) ParseOption {
	return func(p *parser) {
		p.transforms = append(p.transforms, t)
	}
}

// DropGroupLengths leaves the group length elements (gggg,0000) out of the parsed DataSet.
var DropGroupLengths = WithTransform(func(e *DataElement) (*DataElement, error) {
	if e.Tag.ElementNumber() == 0 {
		return nil, nil
	}
	return e, nil
})

// SkipPixelData discards the top level Pixel Data value without buffering it. The examiner and
// the registry only need the header of each file.
var SkipPixelData ParseOption = func(p *parser) {
	p.skipPixelData = true
}

type writeSettings struct {
	undefinedLengths bool
}

// WriteOption configures Write.
type WriteOption func(*writeSettings)

// UndefinedLengths encodes sequences and their items with undefined lengths closed by
// delimitation items.
var UndefinedLengths WriteOption = func(s *writeSettings) {
	s.undefinedLengths = true
}
