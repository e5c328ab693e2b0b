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

// Package doseaccumulation sums weighted dose volumes on the grid of a reference dose.
package doseaccumulation

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/GoogleCloudPlatform/go-dicom-rt/dicom"
	"github.com/GoogleCloudPlatform/go-dicom-rt/hierarchy"
	"github.com/GoogleCloudPlatform/go-dicom-rt/scene"
	"github.com/GoogleCloudPlatform/go-dicom-rt/volume"
)

// DefaultName is the base name of accumulated dose volumes.
const DefaultName = "Accumulated dose"

const geometryTolerance = 1e-6

var (
	// ErrNoInputs is returned when there is nothing to accumulate.
	ErrNoInputs = errors.New("no dose volumes to accumulate")
	// ErrNotDose is returned for items that are not loaded dose volumes.
	ErrNotDose = errors.New("item is not a dose volume")
)

// Input is a dose volume item and the weight its values are multiplied with.
type Input struct {
	Item   hierarchy.ItemID
	Weight float64
}

// Option configures an Accumulator.
type Option func(*Accumulator)

// WithLogger overrides the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(a *Accumulator) {
		a.Logger = logger
	}
}

// Accumulator adds accumulated dose volumes to a hierarchy and an entity store.
type Accumulator struct {
	Hierarchy *hierarchy.Hierarchy
	Store     *scene.Store
	Logger    *slog.Logger
}

// New returns an Accumulator working on h and store.
func New(h *hierarchy.Hierarchy, store *scene.Store, opts ...Option) *Accumulator {
	a := &Accumulator{Hierarchy: h, Store: store}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

func (a *Accumulator) logger() *slog.Logger {
	if a.Logger == nil {
		return slog.Default()
	}
	return a.Logger
}

// Accumulate computes the weighted sum of the input doses on the grid of reference. Inputs on
// other grids are resampled with linear interpolation and count as zero outside their extent.
// The result is filed as a new dose series of the reference study.
func (a *Accumulator) Accumulate(reference hierarchy.ItemID, inputs []Input) (hierarchy.ItemID, scene.ID, error) {
	if len(inputs) == 0 {
		return hierarchy.InvalidItemID, scene.InvalidID, ErrNoInputs
	}
	log := a.logger().With("op", "AccumulateDoses", "reference", reference)
	ref, err := a.dose(reference)
	if err != nil {
		return hierarchy.InvalidItemID, scene.InvalidID, err
	}

	sum := volume.NewFromGeometry(ref.Image.Geometry())
	for _, in := range inputs {
		d, err := a.dose(in.Item)
		if err != nil {
			return hierarchy.InvalidItemID, scene.InvalidID, err
		}
		grid := d.Image
		if !grid.SameGeometry(sum, geometryTolerance) {
			log.Debug("Resampling dose onto reference grid", "item", in.Item, "dims", grid.Dims)
			if grid, err = volume.ResampleLike(grid, sum, volume.Linear); err != nil {
				return hierarchy.InvalidItemID, scene.InvalidID, fmt.Errorf("resampling dose %d: %w", in.Item, err)
			}
		}
		for i, v := range grid.Scalars {
			sum.Scalars[i] += in.Weight * v
		}
	}

	h := a.Hierarchy
	study := h.AncestorAtLevel(reference, hierarchy.LevelStudy)
	if study == hierarchy.InvalidItemID {
		return hierarchy.InvalidItemID, scene.InvalidID, fmt.Errorf("reference dose %d has no study", reference)
	}

	vol := scene.NewVolume(scene.KindDoseVolume, sum)
	vol.Display = ref.Display
	vol.Display.AutoWindowLevel = true

	h.StartBatch()
	defer h.EndBatch()
	name := a.Store.UniqueName(DefaultName)
	entity := a.Store.Add(name, vol)
	item := h.CreateItem(study, name, hierarchy.LevelSeries)
	if err := h.SetUID(item, hierarchy.UIDNamespaceDICOM, dicom.NewUID()); err != nil {
		h.RemoveItem(item)
		a.Store.Remove(entity.ID)
		return hierarchy.InvalidItemID, scene.InvalidID, err
	}
	h.SetEntity(item, entity.ID)
	h.SetAttribute(item, hierarchy.AttrSeriesModality, "RTDOSE")
	h.SetAttribute(item, hierarchy.AttrDoseVolume, "1")
	h.SetAttribute(item, hierarchy.AttrAccumulatedDoseVolume, "1")
	log.Info("Doses accumulated", "name", name, "inputs", len(inputs))
	return item, entity.ID, nil
}

// dose returns the dose volume of item.
func (a *Accumulator) dose(item hierarchy.ItemID) (*scene.Volume, error) {
	e, ok := a.Store.Get(a.Hierarchy.Entity(item))
	if !ok || e.Kind() != scene.KindDoseVolume {
		return nil, fmt.Errorf("item %d: %w", item, ErrNotDose)
	}
	v, _ := e.Volume()
	if v.Image.Empty() {
		return nil, fmt.Errorf("item %d: %w", item, volume.ErrEmptyVolume)
	}
	return v, nil
}
