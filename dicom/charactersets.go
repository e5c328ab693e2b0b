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
	"strings"

	"golang.org/x/net/html/charset"
	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/charmap"
)

// defaultCharacterRepertoire decodes text of data sets without a Specific Character Set. It is
// a superset of ISO-IR 6 that also accepts the Latin-1 bytes many RT planning systems write.
var defaultCharacterRepertoire encoding.Encoding = charmap.Windows1252

// singleByteRepertoires maps the ISO-IR registration number of the single byte character sets
// of PS3.3 C.12.1.1.2 to their charset label. They appear both as "ISO_IR n" and, with code
// extensions, as "ISO 2022 IR n".
var singleByteRepertoires = map[string]string{
	"6":   "us-ascii",
	"100": "iso-ir-100",
	"101": "iso-ir-101",
	"109": "iso-ir-109",
	"110": "iso-ir-110",
	"126": "iso-ir-126",
	"127": "iso-ir-127",
	"138": "iso-ir-138",
	"144": "iso-ir-144",
	"148": "iso-ir-148",
	"13":  "shift-jis",
	"166": "tis-620",
}

// multiByteExtensions are only defined with code extensions. Text is decoded with the repertoire
// of the first escape sequence only.
var multiByteExtensions = map[string]string{
	"87":  "iso-2022-jp",
	"159": "iso-2022-jp",
	"149": "iso-ir-149",
}

// unextendedTerms cannot be combined with code extensions.
var unextendedTerms = map[string]string{
	"ISO_IR 192": "utf-8",
	"GB18030":    "gb18030",
	"GBK":        "gbk",
}

// charsetLabel returns the charset label of a Specific Character Set defined term.
func charsetLabel(term string) (string, bool) {
	if label, ok := unextendedTerms[term]; ok {
		return label, true
	}
	if ir, ok := strings.CutPrefix(term, "ISO_IR "); ok {
		label, ok := singleByteRepertoires[ir]
		return label, ok
	}
	if ir, ok := strings.CutPrefix(term, "ISO 2022 IR "); ok {
		if label, ok := singleByteRepertoires[ir]; ok {
			return label, true
		}
		label, ok := multiByteExtensions[ir]
		return label, ok
	}
	return "", false
}

func lookupEncoding(term string) (encoding.Encoding, error) {
	label, ok := charsetLabel(term)
	if !ok {
		return nil, fmt.Errorf("unknown specific character set %q", term)
	}
	enc, _ := charset.Lookup(label)
	if enc == nil {
		return nil, fmt.Errorf("no decoder for charset %q of %q", label, term)
	}
	return enc, nil
}

// encodingForTerms picks the encoding of the values of a Specific Character Set element. An
// empty first value selects the default repertoire for the first code extension, so the first
// non-empty value decides.
func encodingForTerms(terms []string) (encoding.Encoding, error) {
	for _, term := range terms {
		if term != "" {
			return lookupEncoding(term)
		}
	}
	return defaultCharacterRepertoire, nil
}

// decodeText transcodes text values into UTF-8 in place. ASCII values are left as they are.
func decodeText(enc encoding.Encoding, values []string) ([]string, error) {
	if enc == nil {
		return values, nil
	}
	dec := enc.NewDecoder()
	for i, v := range values {
		if isASCII(v) {
			continue
		}
		s, err := dec.String(v)
		if err != nil {
			return nil, fmt.Errorf("decoding %q: %v", v, err)
		}
		values[i] = s
	}
	return values, nil
}

func isASCII(s string) bool {
	for _, c := range []byte(s) {
		if c >= 0x80 {
			return false
		}
	}
	return true
}
