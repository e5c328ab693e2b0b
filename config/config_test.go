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

package config

import (
	"log/slog"
	"os"
	"path/filepath"
	"reflect"
	"testing"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("unexpected error %v", err)
	}
	return path
}

func TestReadConfig(t *testing.T) {
	path := writeConfig(t, `
registry_path: /var/lib/dicomrt
log_level: debug
names:
  display_patient_id: true
  display_study_date: true
structure_set:
  max_segment_points: 1000
isodose:
  - value: 10
    color: "#00ff00"
  - value: 50
    color: "#ff0000"
`)
	got, err := ReadConfig(path)
	if err != nil {
		t.Fatalf("unexpected error %v", err)
	}

	want := Default()
	want.RegistryPath = "/var/lib/dicomrt"
	want.LogLevel = "debug"
	want.Names = Names{DisplayPatientID: true, DisplayStudyDate: true}
	want.StructureSet.MaxSegmentPoints = 1000
	want.Isodose = []IsodoseLevel{{10, "#00ff00"}, {50, "#ff0000"}}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("got %+v, want %+v", got, want)
	}

	level, err := got.Level()
	if err != nil || level != slog.LevelDebug {
		t.Fatalf("got %v, %v, want %v", level, err, slog.LevelDebug)
	}
	min, max, ok := got.IsodoseRange()
	if !ok || min != 10 || max != 50 {
		t.Fatalf("got %v, %v, %v, want 10, 50, true", min, max, ok)
	}
}

func TestReadConfig_Invalid(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{"malformed yaml", "names: [\n"},
		{"negative limit", "structure_set:\n  max_total_points: -1\n"},
		{"decreasing isodose", "isodose:\n  - value: 50\n  - value: 10\n"},
		{"unknown log level", "log_level: loud\n"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := ReadConfig(writeConfig(t, tc.content)); err == nil {
				t.Fatalf("expected error")
			}
		})
	}
}

func TestReadConfig_Missing(t *testing.T) {
	if _, err := ReadConfig(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Fatalf("expected error")
	}
}

func TestDefault(t *testing.T) {
	c := Default()
	if err := c.Validate(); err != nil {
		t.Fatalf("unexpected error %v", err)
	}
	min, max, ok := c.IsodoseRange()
	if !ok || min != 5 || max != 100 {
		t.Fatalf("got %v, %v, %v, want 5, 100, true", min, max, ok)
	}
}
