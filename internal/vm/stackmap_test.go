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
	"testing"

	"github.com/csvm/codeswitch/internal/defs"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildStackPointerMapEmpty(t *testing.T) {
	m := buildStackPointerMap(nil, nil)
	assert.Equal(t, 0, m.EntryCount())
	assert.Equal(t, 0, m.BitmapLength())
	off, count := m.GetParametersRegion()
	assert.Equal(t, 0, off)
	assert.Equal(t, 0, count)
}

func TestBuildStackPointerMapParametersOnly(t *testing.T) {
	m := buildStackPointerMap([]bool{true, false, true}, nil)
	off, count := m.GetParametersRegion()
	assert.Equal(t, 0, off)
	assert.Equal(t, 3, count)
	assert.True(t, m.IsSet(0))
	assert.False(t, m.IsSet(1))
	assert.True(t, m.IsSet(2))
}

func TestBuildStackPointerMapEntriesSortedByPc(t *testing.T) {
	raw := []safePointEntry{
		{PcOffset: 20, Refs: []bool{true}},
		{PcOffset: 5, Refs: []bool{false, true}},
	}
	m := buildStackPointerMap(nil, raw)
	require.Equal(t, 2, m.EntryCount())

	// Entry table is sorted by pc-offset ascending regardless of input order.
	require.True(t, m.HasLocalsRegion(5))
	require.True(t, m.HasLocalsRegion(20))

	off5, count5 := m.GetLocalsRegion(5)
	assert.Equal(t, 2, count5)
	assert.False(t, m.IsSet(off5))
	assert.True(t, m.IsSet(off5+1))

	off20, count20 := m.GetLocalsRegion(20)
	assert.Equal(t, 1, count20)
	assert.True(t, m.IsSet(off20))
}

func TestSearchLocalsRegionNotFound(t *testing.T) {
	m := buildStackPointerMap(nil, []safePointEntry{{PcOffset: 10, Refs: []bool{true}}})
	assert.Equal(t, defs.NotSet, m.SearchLocalsRegion(11))
	assert.False(t, m.HasLocalsRegion(11))

	off, count := m.GetLocalsRegion(11)
	assert.Equal(t, 0, off)
	assert.Equal(t, 0, count)
}

func TestBitmapPaddedToWordBoundary(t *testing.T) {
	raw := []safePointEntry{{PcOffset: 0, Refs: make([]bool, 3)}}
	m := buildStackPointerMap(nil, raw)
	assert.Equal(t, 3, m.BitmapLength())
	// Backing store is word-aligned even though only 3 bits are live.
	assert.Equal(t, defs.WordSize, len(m.Bitmap()))
}

func TestLocalsRegionCanExceedLocalsSize(t *testing.T) {
	// A region covers locals plus whatever is still on the operand stack,
	// so mapCount can exceed localsSize/wordSize.
	raw := []safePointEntry{{PcOffset: 0, Refs: []bool{true, false, true}}}
	m := buildStackPointerMap([]bool{}, raw)
	_, count := m.GetLocalsRegion(0)
	assert.Equal(t, 3, count)
}
