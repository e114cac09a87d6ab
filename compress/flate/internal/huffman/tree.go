// Copyright (c) 2023, Intel Corporation.
// SPDX-License-Identifier: BSD-3-Clause

package huffman

import "container/heap"

// TreeGenerator generate code's lengths from the histogram
// A huffman tree generator must be reused
// due to memory allocation overhead.
type TreeGenerator interface {
	// Generate computes code lengths no longer than maxLen for every symbol
	// of histogram and writes them into codeLens. It returns the largest
	// symbol that received a code.
	Generate(maxLen int, histogram []uint32, codeLens []uint32) (maxCode int)
}

// HeapBuilder builds Huffman trees with a binary heap. Nodes of equal
// frequency are ordered by the depth of their subtree so that merges prefer
// shallow subtrees, which keeps the tree balanced and the lengths short.
type HeapBuilder struct {
	freq    []uint32
	depth   []uint16
	dad     []int32
	nodeLen []uint32
	order   []int32
	heap    nodeHeap
	leaves  []leaf
}

var _ TreeGenerator = &HeapBuilder{}

// NewHeapBuilder creates a builder for alphabets of up to n symbols.
func NewHeapBuilder(n int) *HeapBuilder {
	b := &HeapBuilder{}
	b.grow(n)
	return b
}

func (b *HeapBuilder) grow(n int) {
	nodes := 2*n + 1
	if cap(b.freq) >= nodes {
		return
	}
	b.freq = make([]uint32, nodes)
	b.depth = make([]uint16, nodes)
	b.dad = make([]int32, nodes)
	b.nodeLen = make([]uint32, nodes)
	b.order = make([]int32, 0, nodes)
	b.heap.items = make([]int32, 0, n+2)
	b.leaves = make([]leaf, 0, n)
}

// Generate implements TreeGenerator.
func (b *HeapBuilder) Generate(maxLen int, histogram []uint32, codeLens []uint32) (maxCode int) {
	n := len(histogram)
	if n < 2 {
		// the forced second node below needs room for symbol 1
		n = 2
	}
	b.grow(n)
	h := &b.heap
	h.b = b
	h.items = h.items[:0]
	b.order = b.order[:0]

	maxCode = -1
	for i := range codeLens {
		codeLens[i] = 0
	}
	for i := 0; i < n; i++ {
		b.freq[i] = 0
		if i < len(histogram) && histogram[i] != 0 {
			b.freq[i] = histogram[i]
			b.depth[i] = 0
			h.items = append(h.items, int32(i))
			maxCode = i
		}
	}

	// The deflate format cannot describe a code with a single symbol of
	// length zero, so at least two symbols always get a code.
	for len(h.items) < 2 {
		node := 0
		if maxCode < 2 {
			maxCode++
			node = maxCode
		}
		b.freq[node] = 1
		b.depth[node] = 0
		h.items = append(h.items, int32(node))
	}
	heap.Init(h)

	node := int32(n)
	for h.Len() >= 2 {
		least := heap.Pop(h).(int32)
		next := h.items[0]
		b.order = append(b.order, least, next)

		b.freq[node] = b.freq[least] + b.freq[next]
		d := b.depth[least]
		if b.depth[next] > d {
			d = b.depth[next]
		}
		b.depth[node] = d + 1
		b.dad[least] = node
		b.dad[next] = node

		h.items[0] = node
		heap.Fix(h, 0)
		node++
	}
	b.order = append(b.order, h.items[0])

	b.assignLengths(n, maxLen, codeLens)
	return maxCode
}

// assignLengths walks the merge order from the root down. Lengths longer than
// maxLen are clamped and fixed afterwards.
func (b *HeapBuilder) assignLengths(n, maxLen int, codeLens []uint32) {
	var lenCounts [maxBitsLimit + 1]int
	overflow := 0
	last := len(b.order) - 1
	b.nodeLen[b.order[last]] = 0
	for i := last - 1; i >= 0; i-- {
		nd := b.order[i]
		bits := b.nodeLen[b.dad[nd]] + 1
		if bits > uint32(maxLen) {
			bits = uint32(maxLen)
			overflow++
		}
		b.nodeLen[nd] = bits
		if int(nd) < n {
			lenCounts[bits]++
		}
	}

	if overflow == 0 {
		for i := 0; i < n && i < len(codeLens); i++ {
			if b.freq[i] != 0 {
				codeLens[i] = b.nodeLen[i]
			}
		}
		return
	}

	enforceMaxLen(lenCounts[:maxLen+1], maxLen)
	b.leaves = b.leaves[:0]
	for i := 0; i < n; i++ {
		if b.freq[i] != 0 {
			b.leaves = append(b.leaves, leaf{sym: int32(i), freq: b.freq[i], len: b.nodeLen[i]})
		}
	}
	sortLeaves(b.leaves)
	idx := 0
	for length := 1; length <= maxLen; length++ {
		for j := 0; j < lenCounts[length]; j++ {
			if sym := b.leaves[idx].sym; int(sym) < len(codeLens) {
				codeLens[sym] = uint32(length)
			}
			idx++
		}
	}
}
