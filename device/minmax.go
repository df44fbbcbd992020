// Copyright 2026 The frontend-digitizers-calibration Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package device

import (
	"sort"

	"gonum.org/v1/gonum/floats"
)

// MinMaxWindow is the default window size of MinMax.
const MinMaxWindow = 21

// MinMax returns the smallest and largest median of the consecutive
// windows of w samples of vs. The last window is aligned on the end of vs.
//
// The "median" is the element of rank w/2+1 of the sorted window.
func MinMax(vs []float32, w int) (min, max float64) {
	n := len(vs)
	if n == 0 || w <= 0 {
		return 0, 0
	}
	if w > n {
		w = n
	}

	var (
		buf     = make([]float64, w)
		medians = make([]float64, 0, (n+w-1)/w)
		rank    = w/2 + 1
	)
	if rank >= w {
		rank = w - 1
	}

	for i := 0; i < n; i += w {
		beg := i
		if i+w >= n {
			beg = n - w
		}
		for j := range buf {
			buf[j] = float64(vs[beg+j])
		}
		sort.Float64s(buf)
		medians = append(medians, buf[rank])
	}

	return floats.Min(medians), floats.Max(medians)
}
