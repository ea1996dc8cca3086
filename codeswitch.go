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

// Package codeswitch is the public face of the stack-pointer-map builder: an
// abstract interpreter that walks a loaded function's bytecode once, offline,
// and produces a StackPointerMap a collector queries at runtime to find every
// live reference in a frame (spec §1). internal/vm holds the actual object
// model and interpreter; this package re-exports just enough of it that an
// embedder never needs its own import of internal/vm.
package codeswitch

import (
	"unsafe"

	"github.com/csvm/codeswitch/internal/gc"
	"github.com/csvm/codeswitch/internal/pkgmodel"
	"github.com/csvm/codeswitch/internal/types"
	"github.com/csvm/codeswitch/internal/vm"
)

type (
	// Function is one loaded method (spec §3).
	Function = vm.Function
	// Package is the load-time collaborator a Function belongs to (spec §6).
	Package = vm.Package
	// Dependency links one Package to another, resolved at load time.
	Dependency = vm.Dependency
	// Global is one package-level variable.
	Global = vm.Global
	// StackPointerMap is the packed, queryable result of a build (spec §6).
	StackPointerMap = vm.StackPointerMap
	// Frame is the flat, word-addressed view of one activation WalkRoots scans.
	Frame = gc.Frame
	// DefnId is a process-wide unique definition identity (spec §3).
	DefnId = pkgmodel.DefnId
	// Name is a package-qualified hierarchical identifier (spec §3).
	Name = pkgmodel.Name
	// Type describes one value's shape for the purposes of this subsystem
	// (spec §2): whether it's object-kind (a reference a collector must
	// trace) and how many words it occupies in a frame.
	Type = types.Type
	// Class is a loaded class/interface definition, including its override
	// chain and generic parameter count.
	Class = types.Class
	// Roots is the process-wide roots table (spec §6): singleton primitive
	// types, builtin classes, and builtin function identities.
	Roots = pkgmodel.Roots
)

// NewPackage constructs an empty package ready to have classes, globals, and
// functions appended before any of its Functions are built.
func NewPackage(name string) *Package {
	return vm.NewPackage(name)
}

// NewRoots constructs the process-wide roots table an embedder initializes
// once at startup, before loading any package.
func NewRoots() *Roots {
	return pkgmodel.NewRoots()
}

// BuildStackPointerMap runs the abstract interpreter over fn's bytecode and
// attaches the resulting StackPointerMap to fn.Map (spec §4-§6). Calling it
// on a native function or one with no instructions is a harmless no-op.
//
// On an allocation failure it invokes the installed GC hook (SetGCHook) and
// retries, up to Configure's GCRetryLimit; a build that still cannot proceed
// returns a *FatalAllocationError instead of panicking. Anything else wrong
// with the bytecode (an unknown opcode, a truncated immediate, a bad block
// index, a stack underflow) is returned as a *BuildError and never retried —
// per spec §7 these are presumed un-recoverable by GC and fatal to loading
// the function's owning package. Use IsFatal to tell the two apart generically.
func BuildStackPointerMap(fn *Function) error {
	return vm.BuildStackPointerMap(fn)
}

// WalkRoots scans frame for exactly the slots fn's StackPointerMap marks
// live at pc, calling visit once per live slot (spec §6's runtime query
// surface). It does not implement a collector; see internal/gc's package
// doc for what's deliberately left to the embedder.
func WalkRoots(fn *Function, pc int, frame Frame, visit func(slot *unsafe.Pointer)) error {
	return gc.WalkRoots(fn, pc, frame, visit)
}
