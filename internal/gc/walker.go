/*
 * Copyright 2021 ByteDance Inc.
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

// Package gc implements the collector-facing half of spec §6: given a
// function, the pc-offset execution stopped at, and a frame, walk exactly
// the slots a StackPointerMap marks live. It does not implement a collector
// (tracing, allocation, sweeping are all non-goals per spec §1) — only the
// root-scanning step a real one would call at every safe point.
package gc

import (
	"fmt"
	"unsafe"

	"github.com/csvm/codeswitch/internal/vm"
)

// Frame is the flat, word-addressed view of one activation a collector
// would scan: ParametersSize()/wordSize words for the parameters region
// followed by LocalsSize/wordSize words for the locals region, each either
// holding a pointer or not per the attached StackPointerMap. Constructing a
// real one from native register/stack state is the embedder's job — out of
// scope here per spec §1's "native-call glue".
type Frame struct {
	Slots []unsafe.Pointer
}

// ErrNoMap is returned by WalkRoots when fn has no attached StackPointerMap
// yet (native function, or BuildStackPointerMap was never called).
var ErrNoMap = fmt.Errorf("gc: function has no stack pointer map")

// ErrNotASafePoint is returned when pc does not name a safe point: the
// collector should never be asked to scan there (spec §6, "the collector
// queries the map at runtime", which presumes GC only ever happens at a
// cooperative safe point).
var ErrNotASafePoint = fmt.Errorf("gc: pc-offset is not a safe point")

// WalkRoots calls visit once for every live slot in frame at pc: first the
// parameters region (always present), then, if pc names a safe point, that
// entry's locals region. visit receives the address of the slot so the
// caller can read, clear, or relocate it in place.
func WalkRoots(fn *vm.Function, pc int, frame Frame, visit func(slot *unsafe.Pointer)) error {
	m := fn.Map
	if m == nil {
		return ErrNoMap
	}

	paramOffset, paramCount := m.GetParametersRegion()
	walkRegion(m, frame, paramOffset, paramCount, 0, visit)

	if pc < 0 {
		// Called between safe points (e.g. a conservative root scan of the
		// whole frame before entering a callee) — only the parameters region
		// is well-defined then.
		return nil
	}

	if !m.HasLocalsRegion(pc) {
		return ErrNotASafePoint
	}
	localsOffset, localsCount := m.GetLocalsRegion(pc)
	walkRegion(m, frame, localsOffset, localsCount, paramCount, visit)
	return nil
}

// walkRegion scans count consecutive bitmap bits starting at bitOffset,
// visiting frame.Slots[frameBase+i] for every set bit.
func walkRegion(m *vm.StackPointerMap, frame Frame, bitOffset, count, frameBase int, visit func(slot *unsafe.Pointer)) {
	for i := 0; i < count; i++ {
		if !m.IsSet(bitOffset + i) {
			continue
		}
		idx := frameBase + i
		if idx >= len(frame.Slots) {
			continue
		}
		visit(&frame.Slots[idx])
	}
}
