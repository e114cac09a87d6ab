// Copyright (c) 2023, Intel Corporation.
// SPDX-License-Identifier: BSD-3-Clause

package huffman

import "sort"

// nodeHeap is a min-heap of tree nodes ordered by frequency, then by depth.
type nodeHeap struct {
	b     *HeapBuilder
	items []int32
}

func (h *nodeHeap) Len() int { return len(h.items) }

func (h *nodeHeap) Less(i, j int) bool {
	n, m := h.items[i], h.items[j]
	fn, fm := h.b.freq[n], h.b.freq[m]
	return fn < fm || (fn == fm && h.b.depth[n] <= h.b.depth[m])
}

func (h *nodeHeap) Swap(i, j int) { h.items[i], h.items[j] = h.items[j], h.items[i] }

func (h *nodeHeap) Push(x interface{}) { h.items = append(h.items, x.(int32)) }

func (h *nodeHeap) Pop() interface{} {
	old := h.items
	n := len(old)
	x := old[n-1]
	h.items = old[:n-1]
	return x
}

type leaf struct {
	sym  int32
	freq uint32
	len  uint32
}

// sortLeaves orders leaves so that the most frequent come first; they will
// receive the shortest codes.
func sortLeaves(l []leaf) {
	sort.Slice(l, func(i, j int) bool {
		if l[i].freq != l[j].freq {
			return l[i].freq > l[j].freq
		}
		if l[i].len != l[j].len {
			return l[i].len < l[j].len
		}
		return l[i].sym < l[j].sym
	})
}
