package models

import (
	"fmt"
	"sort"
)

// ClassNames maps a class index returned by the model to its label.
type ClassNames map[int]string

// Name returns the label for a class index, or a generated placeholder when
// the index is unknown.
func (c ClassNames) Name(idx int) string {
	if name, ok := c[idx]; ok {
		return name
	}
	return fmt.Sprintf("class_%d", idx)
}

// Indices returns the known class indices in ascending order.
func (c ClassNames) Indices() []int {
	out := make([]int, 0, len(c))
	for idx := range c {
		out = append(out, idx)
	}
	sort.Ints(out)
	return out
}

// Clone returns an independent copy of the mapping.
func (c ClassNames) Clone() ClassNames {
	if c == nil {
		return nil
	}
	out := make(ClassNames, len(c))
	for k, v := range c {
		out[k] = v
	}
	return out
}
