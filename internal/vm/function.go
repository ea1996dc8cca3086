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

// Package vm implements the stack pointer map builder's core object model:
// Function, the build-time FrameState abstraction, the abstract interpreter
// that walks a function's bytecode, and the StackPointerMap the result is
// packed into.
package vm

import (
	"fmt"
	"strings"

	"github.com/csvm/codeswitch/internal/defs"
	"github.com/csvm/codeswitch/internal/pkgmodel"
	"github.com/csvm/codeswitch/internal/types"
)

// Function is an immutable record of one method, per spec §3. Everything but
// Map and the cached native pointer is set at construction and never mutated
// again; Map is written at most once, by BuildStackPointerMap.
type Function struct {
	Id      pkgmodel.DefnId
	Name    pkgmodel.Name
	SrcName string // optional source-level name; "" if none
	Flags   defs.Flags
	Builtin defs.BuiltinId // defs.BuiltinNone if this is not a well-known function

	TypeParamCount int
	ReturnType     *types.Type
	ParameterTypes []*types.Type
	DefiningClass  *types.Class // nil if this function has none

	LocalsSize   int // bytes, always a multiple of defs.WordSize
	Instructions []byte
	BlockOffsets []int // ascending; BlockOffsets[0] == 0

	Package   *Package
	Overrides []*Function // directly overridden functions; nil if none

	InstTypes []*types.Type // instantiation-type pool referenced by TYS/TYD

	Map *StackPointerMap // nil until BuildStackPointerMap attaches it

	nativeAddr     uintptr
	nativeResolved bool
}

// ParametersSize returns the total size in bytes of the parameter list, each
// parameter's size rounded up to a word multiple.
func (f *Function) ParametersSize() int {
	total := 0
	for _, t := range f.ParameterTypes {
		total += defs.Align(t.TypeSize(), defs.WordSize)
	}
	return total
}

// ParameterOffset returns the byte offset of parameter i from the frame
// anchor. Parameters are laid out right-to-left: offset(i) sums the aligned
// sizes of every parameter after i.
func (f *Function) ParameterOffset(i int) int {
	offset := 0
	for j := i + 1; j < len(f.ParameterTypes); j++ {
		offset += defs.Align(f.ParameterTypes[j].TypeSize(), defs.WordSize)
	}
	return offset
}

// HasPointerMapAtPcOffset reports whether a safe-point locals region exists
// at pc, delegating to the attached StackPointerMap. False (not a panic) if
// no map has been attached yet.
func (f *Function) HasPointerMapAtPcOffset(pc int) bool {
	if f.Map == nil {
		return false
	}
	return f.Map.HasLocalsRegion(pc)
}

// IsNative reports whether this function's body is a native call rather than
// bytecode.
func (f *Function) IsNative() bool {
	return f.Flags.IsNative()
}

// EnsureNativeFunction idempotently resolves and caches this function's
// native entry point by asking the owning package to resolve a symbol named
// after its internal Name. Per spec §7, failure to resolve is not fatal to
// package load: it's returned as a typed error so the caller can surface a
// link error only if the native function is actually invoked.
func (f *Function) EnsureNativeFunction() (uintptr, error) {
	if f.nativeResolved {
		return f.nativeAddr, nil
	}

	addr := f.Package.LoadNativeFunction(f.Name.String())
	f.nativeResolved = true
	f.nativeAddr = addr

	if addr == 0 {
		return 0, &NativeSymbolError{Name: f.Name}
	}
	return addr, nil
}

// FindOverriddenMethodId walks the single-inheritance override chain (always
// following Overrides[0]) to its root and returns the root's id.
func (f *Function) FindOverriddenMethodId() pkgmodel.DefnId {
	cur := f
	for len(cur.Overrides) > 0 {
		cur = cur.Overrides[0]
	}
	return cur.Id
}

// FindOverriddenMethodIds returns the set of every root id reachable by
// transitively following all of Overrides (not just the first), for
// multi-parent interface dispatch. If f overrides nothing, the result is the
// singleton {f.Id}.
func (f *Function) FindOverriddenMethodIds() []pkgmodel.DefnId {
	if len(f.Overrides) == 0 {
		return []pkgmodel.DefnId{f.Id}
	}

	seen := make(map[pkgmodel.DefnId]struct{})
	var roots []pkgmodel.DefnId
	var visit func(fn *Function)

	visit = func(fn *Function) {
		if len(fn.Overrides) == 0 {
			if _, ok := seen[fn.Id]; !ok {
				seen[fn.Id] = struct{}{}
				roots = append(roots, fn.Id)
			}
			return
		}
		for _, parent := range fn.Overrides {
			visit(parent)
		}
	}

	visit(f)
	return roots
}

// String renders a diagnostic summary of the function, in the style of the
// original's operator<< dump: used by cmd/csvmdump and test failure messages.
func (f *Function) String() string {
	params := make([]string, len(f.ParameterTypes))
	for i, t := range f.ParameterTypes {
		params[i] = t.String()
	}

	entries := 0
	if f.Map != nil {
		entries = f.Map.EntryCount()
	}

	return fmt.Sprintf(
		"%s(%s) -> %s [locals=%dB, instrs=%dB, blocks=%d, mapEntries=%d]",
		f.Name, strings.Join(params, ", "), f.ReturnType, f.LocalsSize,
		len(f.Instructions), len(f.BlockOffsets), entries,
	)
}
