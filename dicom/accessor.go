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
	"strconv"
	"strings"
)

// Find returns the element stored under tag.
func (ds *DataSet) Find(tag DataElementTag) (*DataElement, bool) {
	if ds == nil {
		return nil, false
	}
	e, ok := ds.Elements[tag]
	return e, ok
}

// FindStrings returns the values of a text element. A present element without values yields an
// empty slice and true.
func (ds *DataSet) FindStrings(tag DataElementTag) ([]string, bool) {
	e, ok := ds.Find(tag)
	if !ok {
		return nil, false
	}
	strs, ok := e.ValueField.([]string)
	return strs, ok
}

// FindString returns the first value of a text element. The boolean distinguishes a missing element
// from one whose value is empty.
func (ds *DataSet) FindString(tag DataElementTag) (string, bool) {
	strs, ok := ds.FindStrings(tag)
	if !ok {
		return "", false
	}
	if len(strs) == 0 {
		return "", true
	}
	return strs[0], true
}

// FindFloat64s returns the numeric values of an element encoded either as decimal strings (DS, IS)
// or as binary numbers. It reports false when the element is missing or a value does not parse.
func (ds *DataSet) FindFloat64s(tag DataElementTag) ([]float64, bool) {
	e, ok := ds.Find(tag)
	if !ok {
		return nil, false
	}

	switch v := e.ValueField.(type) {
	case []string:
		vals := make([]float64, 0, len(v))
		for _, s := range v {
			s = strings.TrimSpace(s)
			if s == "" {
				continue
			}
			f, err := strconv.ParseFloat(s, 64)
			if err != nil {
				return nil, false
			}
			vals = append(vals, f)
		}
		return vals, true
	case []float64:
		return v, true
	case []float32:
		return convert(v), true
	case []int16:
		return convert(v), true
	case []uint16:
		return convert(v), true
	case []int32:
		return convert(v), true
	case []uint32:
		return convert(v), true
	}
	return nil, false
}

func convert[N int16 | uint16 | int32 | uint32 | float32](v []N) []float64 {
	vals := make([]float64, len(v))
	for i, n := range v {
		vals[i] = float64(n)
	}
	return vals
}

// FindFloat64 returns the first numeric value of an element.
func (ds *DataSet) FindFloat64(tag DataElementTag) (float64, bool) {
	vals, ok := ds.FindFloat64s(tag)
	if !ok || len(vals) == 0 {
		return 0, false
	}
	return vals[0], true
}

// FindInts returns the integer values of an element encoded as IS strings or binary integers.
func (ds *DataSet) FindInts(tag DataElementTag) ([]int, bool) {
	e, ok := ds.Find(tag)
	if !ok {
		return nil, false
	}

	if strs, ok := e.ValueField.([]string); ok {
		vals := make([]int, 0, len(strs))
		for _, s := range strs {
			s = strings.TrimSpace(s)
			if s == "" {
				continue
			}
			n, err := strconv.Atoi(s)
			if err != nil {
				return nil, false
			}
			vals = append(vals, n)
		}
		return vals, true
	}

	floats, ok := ds.FindFloat64s(tag)
	if !ok {
		return nil, false
	}
	vals := make([]int, len(floats))
	for i, f := range floats {
		vals[i] = int(f)
	}
	return vals, true
}

// FindInt returns the first integer value of an element.
func (ds *DataSet) FindInt(tag DataElementTag) (int, bool) {
	vals, ok := ds.FindInts(tag)
	if !ok || len(vals) == 0 {
		return 0, false
	}
	return vals[0], true
}

// FindSequence returns the sequence stored under tag.
func (ds *DataSet) FindSequence(tag DataElementTag) (*Sequence, bool) {
	e, ok := ds.Find(tag)
	if !ok {
		return nil, false
	}
	seq, ok := e.ValueField.(*Sequence)
	return seq, ok
}

// FindBytes returns the value of a native bulk data element.
func (ds *DataSet) FindBytes(tag DataElementTag) ([]byte, bool) {
	e, ok := ds.Find(tag)
	if !ok {
		return nil, false
	}
	b, ok := e.ValueField.([]byte)
	return b, ok
}

// SetElement stores e, replacing any element with the same tag.
func (ds *DataSet) SetElement(e *DataElement) {
	if ds.Elements == nil {
		ds.Elements = map[DataElementTag]*DataElement{}
	}
	if e.VR == nil {
		e.VR = e.Tag.DictionaryVR()
	}
	ds.Elements[e.Tag] = e
}

// SetStrings stores text values under tag with the dictionary VR.
func (ds *DataSet) SetStrings(tag DataElementTag, values ...string) {
	if values == nil {
		values = []string{}
	}
	ds.SetElement(&DataElement{Tag: tag, ValueField: values})
}

// SetFloat64s stores numeric values under tag, encoded according to the dictionary VR.
func (ds *DataSet) SetFloat64s(tag DataElementTag, values ...float64) error {
	vr := tag.DictionaryVR()
	var field interface{}
	switch vr {
	case DSVR:
		strs := make([]string, len(values))
		for i, v := range values {
			strs[i] = FormatDecimalString(v)
		}
		field = strs
	case FDVR:
		field = values
	case FLVR:
		f := make([]float32, len(values))
		for i, v := range values {
			f[i] = float32(v)
		}
		field = f
	default:
		return fmt.Errorf("%v has vr %v, want a decimal vr", tag, vr)
	}
	ds.SetElement(&DataElement{Tag: tag, VR: vr, ValueField: field})
	return nil
}

// SetInts stores integer values under tag, encoded according to the dictionary VR.
func (ds *DataSet) SetInts(tag DataElementTag, values ...int) error {
	vr := tag.DictionaryVR()
	var field interface{}
	switch vr {
	case ISVR:
		strs := make([]string, len(values))
		for i, v := range values {
			strs[i] = strconv.Itoa(v)
		}
		field = strs
	case USVR:
		u := make([]uint16, len(values))
		for i, v := range values {
			u[i] = uint16(v)
		}
		field = u
	case SSVR:
		s := make([]int16, len(values))
		for i, v := range values {
			s[i] = int16(v)
		}
		field = s
	case ULVR:
		u := make([]uint32, len(values))
		for i, v := range values {
			u[i] = uint32(v)
		}
		field = u
	case SLVR:
		s := make([]int32, len(values))
		for i, v := range values {
			s[i] = int32(v)
		}
		field = s
	default:
		return fmt.Errorf("%v has vr %v, want an integer vr", tag, vr)
	}
	ds.SetElement(&DataElement{Tag: tag, VR: vr, ValueField: field})
	return nil
}

// SetSequence stores a sequence made of items under tag.
func (ds *DataSet) SetSequence(tag DataElementTag, items ...*DataSet) {
	ds.SetElement(&DataElement{Tag: tag, VR: SQVR, ValueField: NewSequence(items...)})
}

// SetBytes stores a bulk data value under tag.
func (ds *DataSet) SetBytes(tag DataElementTag, vr *VR, b []byte) {
	ds.SetElement(&DataElement{Tag: tag, VR: vr, ValueField: b})
}

// FormatDecimalString renders v as a Decimal String value, which is limited to 16 characters.
func FormatDecimalString(v float64) string {
	s := strconv.FormatFloat(v, 'g', -1, 64)
	for prec := 15; len(s) > 16 && prec > 0; prec-- {
		s = strconv.FormatFloat(v, 'g', prec, 64)
	}
	return s
}
