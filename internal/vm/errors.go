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
	"errors"
	"fmt"

	"github.com/csvm/codeswitch/internal/pkgmodel"
)

// ErrKind classifies a malformed-bytecode failure (spec §7).
type ErrKind uint8

const (
	ErrMalformedBytecode ErrKind = iota
	ErrUnknownOpcode
	ErrTruncatedImmediate
	ErrBadBlockIndex
	ErrStackUnderflow
	ErrJoinDisagreement
)

func (k ErrKind) String() string {
	switch k {
	case ErrUnknownOpcode:
		return "unknown opcode"
	case ErrTruncatedImmediate:
		return "truncated immediate"
	case ErrBadBlockIndex:
		return "out-of-range block index"
	case ErrStackUnderflow:
		return "stack underflow"
	case ErrJoinDisagreement:
		return "predecessors disagree at join"
	default:
		return "malformed bytecode"
	}
}

// BuildError is returned by BuildStackPointerMap when a function's bytecode
// cannot be walked: an unknown opcode, a truncated immediate, an out-of-range
// block index, or a stack-underflow. Per spec §7, this is a fatal decode
// error — the enclosing package load is expected to abort.
type BuildError struct {
	Kind     ErrKind
	Function pkgmodel.DefnId
	PcOffset int
	Detail   string
}

func (e *BuildError) Error() string {
	if e.Detail != "" {
		return fmt.Sprintf("build %s: function %s at pc %d: %s", e.Kind, e.Function, e.PcOffset, e.Detail)
	}
	return fmt.Sprintf("build %s: function %s at pc %d", e.Kind, e.Function, e.PcOffset)
}

// ErrOutOfMemory is raised by an allocation site inside the builder (the
// checkAlloc hook interpretAlloc consults before constructing an ALLOC*
// result type) to unwind to BuildStackPointerMap's retry-with-GC loop
// described in spec §5.
var ErrOutOfMemory = errors.New("vm: allocation failed during map build")

// FatalAllocationError is returned by BuildStackPointerMap once every GC
// retry (up to gcRetryLimit) has also failed.
type FatalAllocationError struct {
	Function pkgmodel.DefnId
}

func (e *FatalAllocationError) Error() string {
	return fmt.Sprintf("vm: out of memory building stack pointer map for function %s after GC retry", e.Function)
}

// NativeSymbolError is returned by Function.EnsureNativeFunction when the
// owning package cannot resolve the function's internal name to a native
// symbol. Per spec §7 this does not abort package load; the caller surfaces
// it at call time instead.
type NativeSymbolError struct {
	Name pkgmodel.Name
}

func (e *NativeSymbolError) Error() string {
	return fmt.Sprintf("vm: no native symbol for %s", e.Name)
}
