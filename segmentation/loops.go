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

package segmentation

import (
	"github.com/GoogleCloudPlatform/go-dicom-rt/geom"
)

// StitchLoops joins line segments whose end points are identified by keys into polylines. On a
// closed manifold every key is shared by exactly two segments and every polyline is a closed
// loop; the closing point is not repeated. Chains that end in a key used once are returned open.
func StitchLoops[K comparable](segments [][2]K, point func(K) geom.Vec3) [][]geom.Vec3 {
	adjacent := make(map[K][]K, 2*len(segments))
	var order []K
	for _, s := range segments {
		if s[0] == s[1] {
			continue
		}
		for _, k := range s {
			if _, ok := adjacent[k]; !ok {
				order = append(order, k)
			}
		}
		adjacent[s[0]] = append(adjacent[s[0]], s[1])
		adjacent[s[1]] = append(adjacent[s[1]], s[0])
	}

	visited := make(map[K]bool, len(adjacent))
	var loops [][]geom.Vec3

	// open chains first, starting from their ends
	for _, start := range order {
		if !visited[start] && len(adjacent[start]) == 1 {
			loops = append(loops, walk(start, adjacent, visited, point))
		}
	}
	for _, start := range order {
		if !visited[start] {
			loops = append(loops, walk(start, adjacent, visited, point))
		}
	}
	return loops
}

func walk[K comparable](start K, adjacent map[K][]K, visited map[K]bool, point func(K) geom.Vec3) []geom.Vec3 {
	var loop []geom.Vec3
	current := start
	for {
		visited[current] = true
		loop = append(loop, point(current))

		next, found := current, false
		for _, n := range adjacent[current] {
			if !visited[n] {
				next, found = n, true
				break
			}
		}
		if !found {
			return loop
		}
		current = next
	}
}

// PolygonArea is the area enclosed by a planar polygon, computed with Newell's method so that it
// works for any plane orientation.
func PolygonArea(points []geom.Vec3) float64 {
	var n geom.Vec3
	for i := range points {
		p, q := points[i], points[(i+1)%len(points)]
		n = n.Add(p.Cross(q))
	}
	return n.Norm() / 2
}
