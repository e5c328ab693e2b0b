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

// Package dicom provides functions and data structures for reading and writing the DICOM file
// format as specified in [http://dicom.nema.org/medical/dicom/current/output/pdf/part05.pdf].
//
// Parse buffers a Part 10 stream into a DataSet: a map of DataElements keyed by tag, with nested
// Sequences of DataSets. Write encodes a DataSet back into a Part 10 stream, deriving the File Meta
// Information from the data set when it is incomplete.
//
// Element values are read through the accessor methods of DataSet (FindString, FindFloat64s,
// FindSequence, ...), which report a missing element separately from an empty one. Sequences are
// walked with a Cursor or decoded into typed records with CollectItems.
//
// Only the part of the data dictionary needed by radiotherapy objects is known to the package.
// Elements outside of it keep the VR found in explicit VR streams and read as UN in implicit VR
// streams.
package dicom
