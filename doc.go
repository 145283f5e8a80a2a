// {{{ Copyright (c) Paul R. Tagliamonte <paultag@gmail.com> 2020-2021
//
// Permission is hereby granted, free of charge, to any person obtaining a copy
// of this software and associated documentation files (the "Software"), to deal
// in the Software without restriction, including without limitation the rights
// to use, copy, modify, merge, publish, distribute, sublicense, and/or sell
// copies of the Software, and to permit persons to whom the Software is
// furnished to do so, subject to the following conditions:
//
// The above copyright notice and this permission notice shall be included in
// all copies or substantial portions of the Software.
//
// THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
// IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
// FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL THE
// AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER
// LIABILITY, WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM,
// OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN
// THE SOFTWARE. }}}

// Package mman implements a sliding-window memory-mapped file cache.
//
// Callers read arbitrary byte ranges from many files as if each file were a
// flat byte array, while the Manager transparently maintains a bounded pool
// of OS memory mappings and file descriptors. It is meant as an I/O layer
// for tools that perform many small, non-sequential reads across files far
// larger than what can reasonably be mapped at once on a 32-bit address
// space, without paying the cost of opening, mapping and releasing a
// mapping on every read.
//
// Two Manager flavors are provided: Tiling, which partitions each file into
// many disjoint windowed Regions, and Greedy, which maps each file in a
// single Region covering the whole file.
//
// mman is not safe for concurrent use from multiple goroutines against the
// same Manager. Callers wishing to share a Manager must serialize access
// externally. Byte slices returned by SlidingBuffer are independent owned
// copies and are safe to share; views obtained directly from a live Cursor
// are not and must not outlive the Cursor.
package mman

// vim: foldmethod=marker
