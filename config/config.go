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

// Package config reads the YAML configuration of the importer.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"

	"gopkg.in/yaml.v2"

	"github.com/GoogleCloudPlatform/go-dicom-rt/hierarchy"
)

// Names controls how patient and study labels are built.
type Names struct {
	DisplayPatientID        bool `yaml:"display_patient_id"`
	DisplayPatientBirthDate bool `yaml:"display_patient_birth_date"`
	DisplayStudyID          bool `yaml:"display_study_id"`
	DisplayStudyDate        bool `yaml:"display_study_date"`
}

// StructureSet holds the limits above which closed surfaces are not derived from contours.
type StructureSet struct {
	MaxSegmentPoints int `yaml:"max_segment_points"`
	MaxTotalPoints   int `yaml:"max_total_points"`
}

// Plan holds plan loading options.
type Plan struct {
	// IsocenterTolerance is the distance in millimetres under which two beam isocenters are
	// considered the same.
	IsocenterTolerance float64 `yaml:"isocenter_tolerance"`
}

// Export holds export options.
type Export struct {
	// ShearEpsilon is the largest scalar product of two normalized grid axes that still counts as
	// orthogonal.
	ShearEpsilon float64 `yaml:"shear_epsilon"`
}

// IsodoseLevel is one level of the isodose scale.
type IsodoseLevel struct {
	Value float64 `yaml:"value"`
	Color string  `yaml:"color"`
}

// Config is the importer configuration.
type Config struct {
	RegistryPath string         `yaml:"registry_path"`
	LogLevel     string         `yaml:"log_level"`
	Names        Names          `yaml:"names"`
	StructureSet StructureSet   `yaml:"structure_set"`
	Plan         Plan           `yaml:"plan"`
	Export       Export         `yaml:"export"`
	Isodose      []IsodoseLevel `yaml:"isodose"`
}

// Default returns the configuration used when no file is given.
func Default() *Config {
	return &Config{
		LogLevel: "info",
		StructureSet: StructureSet{
			MaxSegmentPoints: 800000,
			MaxTotalPoints:   3000000,
		},
		Plan:    Plan{IsocenterTolerance: 1e-3},
		Export:  Export{ShearEpsilon: 1e-4},
		Isodose: defaultIsodose(),
	}
}

var isodoseColors = []string{
	"#00ffff", "#00d4ff", "#00aaff", "#0080ff", "#0055ff",
	"#002aff", "#0000ff", "#2a00ff", "#5500ff", "#8000ff",
	"#aa00ff", "#d400ff", "#ff00ff", "#ff00d4", "#ff00aa",
	"#ff0080", "#ff0055", "#ff002a", "#ff0000", "#ff8000",
}

func defaultIsodose() []IsodoseLevel {
	levels := make([]IsodoseLevel, len(isodoseColors))
	for i, c := range isodoseColors {
		levels[i] = IsodoseLevel{Value: float64(5 * (i + 1)), Color: c}
	}
	return levels
}

// ReadConfig reads the YAML file at filePath. Keys missing from the file keep their default value.
func ReadConfig(filePath string) (*Config, error) {
	file, err := os.ReadFile(filePath)
	if err != nil {
		return nil, err
	}

	config := Default()
	if err := yaml.Unmarshal(file, config); err != nil {
		return nil, fmt.Errorf("parsing %v: %v", filePath, err)
	}
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("%v: %v", filePath, err)
	}
	return config, nil
}

// Validate checks the values that would make loading misbehave.
func (c *Config) Validate() error {
	if c.StructureSet.MaxSegmentPoints <= 0 || c.StructureSet.MaxTotalPoints <= 0 {
		return errors.New("structure_set limits must be positive")
	}
	if c.Plan.IsocenterTolerance < 0 {
		return errors.New("plan.isocenter_tolerance must not be negative")
	}
	if c.Export.ShearEpsilon <= 0 {
		return errors.New("export.shear_epsilon must be positive")
	}
	for i := 1; i < len(c.Isodose); i++ {
		if c.Isodose[i].Value <= c.Isodose[i-1].Value {
			return fmt.Errorf("isodose levels must increase, got %v after %v", c.Isodose[i].Value, c.Isodose[i-1].Value)
		}
	}
	if _, err := c.Level(); err != nil {
		return err
	}
	return nil
}

// NameOptions returns the label options of the hierarchy.
func (c *Config) NameOptions() hierarchy.NameOptions {
	return hierarchy.NameOptions{
		DisplayPatientID:        c.Names.DisplayPatientID,
		DisplayPatientBirthDate: c.Names.DisplayPatientBirthDate,
		DisplayStudyID:          c.Names.DisplayStudyID,
		DisplayStudyDate:        c.Names.DisplayStudyDate,
	}
}

// Level parses LogLevel. An empty value is Info.
func (c *Config) Level() (slog.Level, error) {
	var level slog.Level
	if c.LogLevel == "" {
		return slog.LevelInfo, nil
	}
	if err := level.UnmarshalText([]byte(c.LogLevel)); err != nil {
		return slog.LevelInfo, fmt.Errorf("log_level: %v", err)
	}
	return level, nil
}

// IsodoseRange returns the first and last isodose level values.
func (c *Config) IsodoseRange() (min, max float64, ok bool) {
	if len(c.Isodose) == 0 {
		return 0, 0, false
	}
	return c.Isodose[0].Value, c.Isodose[len(c.Isodose)-1].Value, true
}
