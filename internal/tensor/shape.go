// Copyright 2026 The Kiln Authors. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

package tensor

import "fmt"

// Shape holds the dimensions of a tensor. A zero-length shape is a scalar.
type Shape []int

// NumElements returns the total element count.
func (s Shape) NumElements() int {
	n := 1
	for _, d := range s {
		n *= d
	}
	return n
}

// Validate reports an error if any dimension is not positive.
func (s Shape) Validate() error {
	for i, d := range s {
		if d <= 0 {
			return fmt.Errorf("dimension %d is %d, must be > 0", i, d)
		}
	}
	return nil
}

// Equal reports whether two shapes have identical dimensions.
func (s Shape) Equal(other Shape) bool {
	if len(s) != len(other) {
		return false
	}
	for i := range s {
		if s[i] != other[i] {
			return false
		}
	}
	return true
}

// Clone returns an independent copy.
func (s Shape) Clone() Shape {
	out := make(Shape, len(s))
	copy(out, s)
	return out
}

// Strides returns row-major strides for the shape.
func (s Shape) Strides() []int {
	st := make([]int, len(s))
	if len(s) == 0 {
		return st
	}
	st[len(s)-1] = 1
	for i := len(s) - 2; i >= 0; i-- {
		st[i] = st[i+1] * s[i+1]
	}
	return st
}

// Broadcast resolves two shapes under NumPy broadcasting rules: dimensions
// are compared right to left and are compatible when equal or when one is 1.
// Missing leading dimensions are treated as 1.
//
// Returns the result shape and whether any expansion is actually required.
func Broadcast(a, b Shape) (Shape, bool, error) {
	n := len(a)
	if len(b) > n {
		n = len(b)
	}
	out := make(Shape, n)
	expand := false

	for i := 0; i < n; i++ {
		da, db := 1, 1
		if j := len(a) - 1 - i; j >= 0 {
			da = a[j]
		}
		if j := len(b) - 1 - i; j >= 0 {
			db = b[j]
		}
		switch {
		case da == db:
			out[n-1-i] = da
		case da == 1:
			out[n-1-i] = db
			expand = true
		case db == 1:
			out[n-1-i] = da
			expand = true
		default:
			return nil, false, fmt.Errorf("shapes %v and %v are not broadcastable", a, b)
		}
	}
	if len(a) != len(b) {
		expand = true
	}
	return out, expand, nil
}
