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

// Package registry keeps an index of DICOM files on disk keyed by SOP Instance UID, so that objects
// referenced by a data set can be located and inspected without loading them.
//
// Records are stored as JSON in a LevelDB database under the keys
//
//	sop_<SOPInstanceUID>                 the record
//	path_<file path>                     the SOP Instance UID of the file
//	series_<SeriesInstanceUID>_<SOP UID> the file path, for listing a series
package registry

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"path/filepath"
	"sort"
	"strings"

	"github.com/GoogleCloudPlatform/go-dicom-rt/dicom"
	"github.com/syndtr/goleveldb/leveldb"
	"github.com/syndtr/goleveldb/leveldb/storage"
	"github.com/syndtr/goleveldb/leveldb/util"
)

// IndexedTags are the elements whose values are kept in the registry.
var IndexedTags = []dicom.DataElementTag{
	dicom.PatientNameTag,
	dicom.StudyDescriptionTag,
	dicom.SeriesDescriptionTag,
	dicom.SeriesNumberTag,
	dicom.InstanceNumberTag,
	dicom.RTPlanLabelTag,
	dicom.RTPlanNameTag,
	dicom.StructureSetLabelTag,
	dicom.RTImageLabelTag,
}

// Record describes one indexed file.
type Record struct {
	Path              string            `json:"path"`
	SOPClassUID       string            `json:"sop_class_uid"`
	SOPInstanceUID    string            `json:"sop_instance_uid"`
	SeriesInstanceUID string            `json:"series_instance_uid"`
	StudyInstanceUID  string            `json:"study_instance_uid"`
	PatientID         string            `json:"patient_id"`
	Modality          string            `json:"modality"`
	Values            map[string]string `json:"values,omitempty"`
}

// Value returns the indexed value of tag.
func (r Record) Value(tag dicom.DataElementTag) (string, bool) {
	v, ok := r.Values[tag.String()]
	return v, ok
}

// Option configures a Registry.
type Option func(*Registry)

// WithLogger overrides the logger used by the registry.
func WithLogger(logger *slog.Logger) Option {
	return func(r *Registry) {
		r.Logger = logger
	}
}

// Registry is a file index backed by LevelDB.
type Registry struct {
	Logger *slog.Logger

	db *leveldb.DB
}

// Open opens or creates a registry in the directory path.
func Open(path string, opts ...Option) (*Registry, error) {
	db, err := leveldb.OpenFile(path, nil)
	if err != nil {
		return nil, fmt.Errorf("opening registry %s: %v", path, err)
	}
	return newRegistry(db, opts), nil
}

// OpenMem opens a registry that lives in memory only.
func OpenMem(opts ...Option) (*Registry, error) {
	db, err := leveldb.Open(storage.NewMemStorage(), nil)
	if err != nil {
		return nil, fmt.Errorf("opening in-memory registry: %v", err)
	}
	return newRegistry(db, opts), nil
}

func newRegistry(db *leveldb.DB, opts []Option) *Registry {
	r := &Registry{db: db}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

func (r *Registry) logger() *slog.Logger {
	if r.Logger != nil {
		return r.Logger
	}
	return slog.Default()
}

// Close releases the database.
func (r *Registry) Close() error {
	return r.db.Close()
}

func sopKey(uid string) []byte {
	return []byte("sop_" + uid)
}

func pathKey(path string) []byte {
	return []byte("path_" + path)
}

func seriesPrefix(seriesUID string) []byte {
	return []byte("series_" + seriesUID + "_")
}

// Put stores rec, replacing any record with the same SOP Instance UID.
func (r *Registry) Put(rec Record) error {
	if rec.SOPInstanceUID == "" {
		return fmt.Errorf("record for %s has no SOP Instance UID", rec.Path)
	}
	data, err := json.Marshal(rec)
	if err != nil {
		return err
	}

	batch := new(leveldb.Batch)
	if old, ok, err := r.Lookup(rec.SOPInstanceUID); err != nil {
		return err
	} else if ok {
		batch.Delete(pathKey(old.Path))
		batch.Delete(append(seriesPrefix(old.SeriesInstanceUID), old.SOPInstanceUID...))
	}
	batch.Put(sopKey(rec.SOPInstanceUID), data)
	batch.Put(pathKey(rec.Path), []byte(rec.SOPInstanceUID))
	batch.Put(append(seriesPrefix(rec.SeriesInstanceUID), rec.SOPInstanceUID...), []byte(rec.Path))
	return r.db.Write(batch, nil)
}

// Lookup returns the record of a SOP instance.
func (r *Registry) Lookup(sopInstanceUID string) (Record, bool, error) {
	data, err := r.db.Get(sopKey(sopInstanceUID), nil)
	if errors.Is(err, leveldb.ErrNotFound) {
		return Record{}, false, nil
	}
	if err != nil {
		return Record{}, false, err
	}
	var rec Record
	if err := json.Unmarshal(data, &rec); err != nil {
		return Record{}, false, fmt.Errorf("decoding record of %s: %v", sopInstanceUID, err)
	}
	return rec, true, nil
}

// LookupPath returns the record of the file at path.
func (r *Registry) LookupPath(path string) (Record, bool, error) {
	uid, err := r.db.Get(pathKey(path), nil)
	if errors.Is(err, leveldb.ErrNotFound) {
		return Record{}, false, nil
	}
	if err != nil {
		return Record{}, false, err
	}
	return r.Lookup(string(uid))
}

// FileForInstance returns the path of the file holding a SOP instance, or "" when the instance is
// not indexed.
func (r *Registry) FileForInstance(sopInstanceUID string) string {
	rec, ok, err := r.Lookup(sopInstanceUID)
	if err != nil {
		r.logger().Warn("Registry lookup failed", "op", "FileForInstance", "sopInstanceUID", sopInstanceUID, "error", err)
		return ""
	}
	if !ok {
		return ""
	}
	return rec.Path
}

// FileValue returns the indexed value of tag for the file at path, or "" when either is unknown.
func (r *Registry) FileValue(path string, tag dicom.DataElementTag) string {
	rec, ok, err := r.LookupPath(path)
	if err != nil {
		r.logger().Warn("Registry lookup failed", "op", "FileValue", "path", path, "error", err)
		return ""
	}
	if !ok {
		return ""
	}
	v, _ := rec.Value(tag)
	return v
}

// SeriesFiles returns the paths of the indexed files of a series, ordered by SOP Instance UID.
func (r *Registry) SeriesFiles(seriesInstanceUID string) ([]string, error) {
	iter := r.db.NewIterator(util.BytesPrefix(seriesPrefix(seriesInstanceUID)), nil)
	defer iter.Release()
	var paths []string
	for iter.Next() {
		paths = append(paths, string(iter.Value()))
	}
	return paths, iter.Error()
}

// Records returns all records ordered by SOP Instance UID.
func (r *Registry) Records() ([]Record, error) {
	iter := r.db.NewIterator(util.BytesPrefix([]byte("sop_")), nil)
	defer iter.Release()
	var out []Record
	for iter.Next() {
		var rec Record
		if err := json.Unmarshal(iter.Value(), &rec); err != nil {
			return nil, fmt.Errorf("decoding record %s: %v", iter.Key(), err)
		}
		out = append(out, rec)
	}
	return out, iter.Error()
}

// RecordOf builds the record of a parsed data set read from path.
func RecordOf(path string, ds *dicom.DataSet) Record {
	str := func(tag dicom.DataElementTag) string {
		s, _ := ds.FindString(tag)
		return s
	}
	rec := Record{
		Path:              path,
		SOPClassUID:       str(dicom.SOPClassUIDTag),
		SOPInstanceUID:    str(dicom.SOPInstanceUIDTag),
		SeriesInstanceUID: str(dicom.SeriesInstanceUIDTag),
		StudyInstanceUID:  str(dicom.StudyInstanceUIDTag),
		PatientID:         str(dicom.PatientIDTag),
		Modality:          str(dicom.ModalityTag),
		Values:            map[string]string{},
	}
	for _, tag := range IndexedTags {
		if strs, ok := ds.FindStrings(tag); ok {
			rec.Values[tag.String()] = strings.Join(strs, `\`)
		}
	}
	return rec
}

// IndexFile parses the file at path, without its pixel data, and stores its record.
func (r *Registry) IndexFile(path string) (Record, error) {
	ds, err := dicom.ParseFile(path, dicom.SkipPixelData)
	if err != nil {
		return Record{}, err
	}
	rec := RecordOf(path, ds)
	if err := r.Put(rec); err != nil {
		return Record{}, fmt.Errorf("indexing %s: %v", path, err)
	}
	return rec, nil
}

// IndexDirectory indexes every DICOM file below root and returns the number of files indexed.
// Files that do not parse are skipped.
func (r *Registry) IndexDirectory(root string) (int, error) {
	var paths []string
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			paths = append(paths, path)
		}
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("walking %s: %v", root, err)
	}
	sort.Strings(paths)

	n := 0
	for _, path := range paths {
		if _, err := r.IndexFile(path); err != nil {
			r.logger().Debug("Skipping file", "op", "IndexDirectory", "path", path, "error", err)
			continue
		}
		n++
	}
	r.logger().Info("Indexed directory", "root", root, "files", n)
	return n, nil
}
