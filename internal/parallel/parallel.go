// Copyright 2026 The Kiln Authors. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

// Package parallel provides chunked parallel iteration for CPU kernels.
package parallel

import (
	"runtime"
	"sync"
)

// minChunk is the smallest per-goroutine work size worth the scheduling
// overhead for the element-wise and im2col loops that use this package.
const minChunk = 64

// For runs f(i) for i in [0, n), splitting the range across GOMAXPROCS
// goroutines. Small ranges run sequentially.
func For(n int, f func(i int)) {
	workers := runtime.GOMAXPROCS(0)
	if workers <= 1 || n < minChunk*2 {
		for i := 0; i < n; i++ {
			f(i)
		}
		return
	}

	chunk := (n + workers - 1) / workers
	if chunk < minChunk {
		chunk = minChunk
	}

	var wg sync.WaitGroup
	for start := 0; start < n; start += chunk {
		end := start + chunk
		if end > n {
			end = n
		}
		wg.Add(1)
		go func(s, e int) {
			defer wg.Done()
			for i := s; i < e; i++ {
				f(i)
			}
		}(start, end)
	}
	wg.Wait()
}

// For2D runs f(i, j) over the [0, rows) x [0, cols) grid, parallelizing the
// flattened index. Used by conv/pool kernels for the batch x channel plane.
func For2D(rows, cols int, f func(i, j int)) {
	For(rows*cols, func(k int) {
		f(k/cols, k%cols)
	})
}
