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

package rtexport

import (
	"math"
	"testing"

	"github.com/GoogleCloudPlatform/go-dicom-rt/geom"
	"github.com/GoogleCloudPlatform/go-dicom-rt/segmentation"
	"github.com/GoogleCloudPlatform/go-dicom-rt/volume"
)

func TestOutline(t *testing.T) {
	mask := volume.New([3]int{6, 6, 3}, geom.Identity())
	for j := 1; j <= 2; j++ {
		for i := 1; i <= 3; i++ {
			mask.Set(i, j, 0, 1)
			mask.Set(i, j, 2, 1)
		}
	}
	slices := outline(mask)
	if len(slices) != 2 || slices[0].Index != 0 || slices[1].Index != 2 {
		t.Fatalf("got %+v, want outlines on slices 0 and 2", slices)
	}
	for _, s := range slices {
		// 3x2 voxels give a 3x2 rectangle with cut corners.
		if area := segmentation.PolygonArea(s.Polygons[0]); math.Abs(area-5.5) > 1e-9 {
			t.Fatalf("got area %v, want 5.5", area)
		}
	}
}
