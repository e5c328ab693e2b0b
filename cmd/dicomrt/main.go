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

// Command dicomrt indexes a directory of DICOM files, loads every RT object and image series it
// finds and prints the resulting patient hierarchy. The loaded study can be exported again.
package main

import (
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"

	"github.com/GoogleCloudPlatform/go-dicom-rt/config"
	"github.com/GoogleCloudPlatform/go-dicom-rt/doseaccumulation"
	"github.com/GoogleCloudPlatform/go-dicom-rt/examine"
	"github.com/GoogleCloudPlatform/go-dicom-rt/hierarchy"
	"github.com/GoogleCloudPlatform/go-dicom-rt/loader"
	"github.com/GoogleCloudPlatform/go-dicom-rt/registry"
	"github.com/GoogleCloudPlatform/go-dicom-rt/rtexport"
	"github.com/GoogleCloudPlatform/go-dicom-rt/scene"
)

func main() {
	dir := flag.String("dir", "", "Directory holding the DICOM files to load")
	configPath := flag.String("config", "", "Path to a YAML configuration file (optional)")
	registryPath := flag.String("registry", "", "LevelDB directory of the file registry; overrides registry_path")
	logLevel := flag.String("log_level", "", "Log level (debug, info, warn, error); overrides log_level")
	exportDir := flag.String("export", "", "Directory to export the loaded study to (optional)")
	accumulate := flag.Bool("accumulate", false, "Add the sum of all loaded dose volumes before exporting")
	flag.Parse()

	if err := run(*dir, *configPath, *registryPath, *logLevel, *exportDir, *accumulate); err != nil {
		fmt.Fprintln(os.Stderr, "dicomrt:", err)
		os.Exit(1)
	}
}

func run(dir, configPath, registryPath, logLevel, exportDir string, accumulate bool) error {
	if dir == "" {
		return errors.New("-dir is required")
	}
	cfg := config.Default()
	if configPath != "" {
		var err error
		if cfg, err = config.ReadConfig(configPath); err != nil {
			return err
		}
	}
	if registryPath != "" {
		cfg.RegistryPath = registryPath
	}
	if logLevel != "" {
		cfg.LogLevel = logLevel
	}
	level, err := cfg.Level()
	if err != nil {
		return err
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)

	reg, err := openRegistry(cfg.RegistryPath, logger)
	if err != nil {
		return err
	}
	defer reg.Close()
	if _, err := reg.IndexDirectory(dir); err != nil {
		return err
	}
	records, err := reg.Records()
	if err != nil {
		return err
	}
	paths := make([]string, 0, len(records))
	for _, rec := range records {
		paths = append(paths, rec.Path)
	}

	h := hierarchy.New(hierarchy.WithLogger(logger), hierarchy.WithNameOptions(cfg.NameOptions()))
	store := scene.NewStore()
	l := loader.New(h, store, loader.WithLogger(logger), loader.WithConfig(cfg))

	ex := examine.New(examine.WithIndex(reg), examine.WithLogger(logger))
	// Image series first so structure sets find the volume they were drawn on.
	loadables := append(ex.ExamineImageSeries(paths), ex.ExamineForLoad(paths)...)
	failed := 0
	for _, loadable := range loadables {
		if !loadable.Selected {
			continue
		}
		if _, ok := l.Load(loadable); !ok {
			failed++
		}
	}
	logger.Info("Loading finished", "loadables", len(loadables), "failed", failed, "pendingRTImages", l.Geometry.Pending())

	if accumulate {
		if err := accumulateDoses(h, store, logger); err != nil {
			return err
		}
	}
	fmt.Print(h.String())

	if exportDir == "" {
		return nil
	}
	e := rtexport.New(h, store, rtexport.WithLogger(logger), rtexport.WithShearEpsilon(cfg.Export.ShearEpsilon))
	if msg := e.ExportStudy(exportables(e, h, store), exportDir); msg != "" {
		return errors.New(msg)
	}
	return nil
}

func openRegistry(path string, logger *slog.Logger) (*registry.Registry, error) {
	if path == "" {
		return registry.OpenMem(registry.WithLogger(logger))
	}
	return registry.Open(path, registry.WithLogger(logger))
}

// exportables returns the first anatomical volume followed by the first dose and segmentation
// of the store, in load order.
func exportables(e *rtexport.Exporter, h *hierarchy.Hierarchy, store *scene.Store) []rtexport.Exportable {
	var out []rtexport.Exportable
	for _, kind := range []scene.Kind{scene.KindScalarVolume, scene.KindDoseVolume, scene.KindSegmentation} {
		entities := store.OfKind(kind)
		if len(entities) == 0 {
			continue
		}
		if item := h.ItemByEntity(entities[0].ID); item != hierarchy.InvalidItemID {
			out = append(out, e.Exportable(item))
		}
	}
	return out
}

// accumulateDoses sums every loaded dose volume with unit weight on the grid of the first one.
func accumulateDoses(h *hierarchy.Hierarchy, store *scene.Store, logger *slog.Logger) error {
	var inputs []doseaccumulation.Input
	for _, e := range store.OfKind(scene.KindDoseVolume) {
		if item := h.ItemByEntity(e.ID); item != hierarchy.InvalidItemID {
			inputs = append(inputs, doseaccumulation.Input{Item: item, Weight: 1})
		}
	}
	if len(inputs) < 2 {
		logger.Info("Nothing to accumulate", "doses", len(inputs))
		return nil
	}
	a := doseaccumulation.New(h, store, doseaccumulation.WithLogger(logger))
	_, _, err := a.Accumulate(inputs[0].Item, inputs)
	return err
}
