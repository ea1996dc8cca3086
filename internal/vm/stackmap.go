/*
 * Copyright 2022 CloudWeGo Authors
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *     http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

package vm

import (
	"sort"

	"github.com/bytedance/gopkg/lang/dirtmake"

	"github.com/csvm/codeswitch/internal/defs"
)

// mapEntry is one row of a StackPointerMap's sorted entry table: the
// pc-offset of a safe point, and the locals region it owns within the packed
// bitmap (spec §3).
type mapEntry struct {
	PcOffset  int
	MapOffset int
	MapCount  int
}

// StackPointerMap is the immutable, queryable result of building a function
// (spec §3, §4.F): a parameters region followed by one locals region per
// safe point, packed into a single bit-per-slot bitmap and indexed by a
// pcOffset-sorted entry table.
type StackPointerMap struct {
	parameterCount int
	bitmapLength   int
	entries        []mapEntry
	bits           []byte
}

// safePointEntry is what the abstract interpreter collects per safe point
// while walking a function: the pc-offset the entry belongs to and the
// snapshot of live reference-typed slots at that point (parameters excluded;
// those are recorded separately, once, by the builder).
type safePointEntry struct {
	PcOffset int
	Refs     []bool // one flag per locals-region slot, in typeMap order
}

// buildStackPointerMap assembles a StackPointerMap from the parameters
// region (one bit per parameter, set for object-kind types) and the raw
// safe-point snapshots collected during the walk (spec §4.E "Emission").
// Entries are stable-sorted by pcOffset first, so scenario S5's "any DFS
// order yields a bitwise-identical map" property holds regardless of the
// order blocks were actually visited in.
func buildStackPointerMap(paramRefs []bool, raw []safePointEntry) *StackPointerMap {
	sort.SliceStable(raw, func(i, j int) bool { return raw[i].PcOffset < raw[j].PcOffset })

	parameterCount := len(paramRefs)
	bitmapLength := parameterCount
	entries := make([]mapEntry, len(raw))
	offset := parameterCount
	for i, e := range raw {
		entries[i] = mapEntry{PcOffset: e.PcOffset, MapOffset: offset, MapCount: len(e.Refs)}
		offset += len(e.Refs)
	}
	bitmapLength = offset

	// dirtmake skips the runtime's zero-fill, since most of its callers are
	// about to overwrite every byte anyway; a bitmap is the opposite case
	// (unset means "not a reference"), so the saved work has to be paid back
	// here with an explicit clear before the OR-based fill pass below.
	nBytes := defs.Align(bitmapLength, defs.BitsInWord) / 8
	bits := dirtmake.Bytes(nBytes, nBytes)
	for i := range bits {
		bits[i] = 0
	}

	m := &StackPointerMap{
		parameterCount: parameterCount,
		bitmapLength:   bitmapLength,
		entries:        entries,
		bits:           bits,
	}

	for i, ref := range paramRefs {
		if ref {
			m.setBit(i)
		}
	}
	for i, e := range raw {
		base := entries[i].MapOffset
		for j, ref := range e.Refs {
			if ref {
				m.setBit(base + j)
			}
		}
	}

	return m
}

func (m *StackPointerMap) setBit(bit int) {
	m.bits[bit/8] |= 1 << uint(bit%8)
}

// IsSet reports whether bit is within a live reference slot.
func (m *StackPointerMap) IsSet(bit int) bool {
	return m.bits[bit/8]&(1<<uint(bit%8)) != 0
}

// Bitmap returns the packed bit-per-slot backing store: the parameters
// region followed by every locals region in entry-table order.
func (m *StackPointerMap) Bitmap() []byte {
	return m.bits
}

// BitmapLength returns the total number of live bit positions (spec §3
// header field); the backing store may be padded beyond this to a word
// boundary.
func (m *StackPointerMap) BitmapLength() int {
	return m.bitmapLength
}

// EntryCount returns the number of safe-point entries in the table.
func (m *StackPointerMap) EntryCount() int {
	return len(m.entries)
}

// GetParametersRegion returns the bit offset and count of the parameters
// region: [0, mapOffset(0)) if any entry exists, else the whole bitmap
// (spec §4.F).
func (m *StackPointerMap) GetParametersRegion() (offset, count int) {
	if len(m.entries) > 0 {
		return 0, m.entries[0].MapOffset
	}
	return 0, m.bitmapLength
}

// SearchLocalsRegion binary-searches the entry table for pc and returns its
// index, or defs.NotSet if no entry starts exactly at pc.
func (m *StackPointerMap) SearchLocalsRegion(pc int) int {
	lo, hi := 0, len(m.entries)
	for lo < hi {
		mid := (lo + hi) / 2
		switch {
		case m.entries[mid].PcOffset == pc:
			return mid
		case m.entries[mid].PcOffset < pc:
			lo = mid + 1
		default:
			hi = mid
		}
	}
	return defs.NotSet
}

// GetLocalsRegion returns the bit offset and count of the locals region at
// pc. If no entry starts exactly at pc it returns (0, 0), which is not a
// region — callers are expected to check HasLocalsRegion first.
func (m *StackPointerMap) GetLocalsRegion(pc int) (offset, count int) {
	i := m.SearchLocalsRegion(pc)
	if i == defs.NotSet {
		return 0, 0
	}
	return m.entries[i].MapOffset, m.entries[i].MapCount
}

// HasLocalsRegion reports whether a safe-point entry starts exactly at pc.
func (m *StackPointerMap) HasLocalsRegion(pc int) bool {
	return m.SearchLocalsRegion(pc) != defs.NotSet
}
