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
	"github.com/csvm/codeswitch/internal/pkgmodel"
	"github.com/csvm/codeswitch/internal/types"
)

// Global is one package-level variable, as read by LDG/STG and, cross-package,
// LDGF/STGF.
type Global struct {
	Name pkgmodel.Name
	Type *types.Type
}

// Dependency is a link to another Package, resolved once at load time. Only
// the subset of indices a Function's bytecode actually references need be
// populated by a real loader; this subsystem only reads through it.
type Dependency struct {
	Package *Package

	linkedGlobals   []*Global
	linkedClasses   []*types.Class
	linkedFunctions []*Function
}

func (d *Dependency) LinkedGlobals() []*Global      { return d.linkedGlobals }
func (d *Dependency) LinkedClasses() []*types.Class { return d.linkedClasses }
func (d *Dependency) LinkedFunctions() []*Function  { return d.linkedFunctions }

// Package is the load-time collaborator Function and the map builder consume
// (spec §6 "consumed from the package"). The loader and name resolver that
// populate one are out of scope for this subsystem; this is a concrete,
// in-memory implementation sufficient to construct and exercise Functions in
// tests and in cmd/csvmdump.
type Package struct {
	Name         string
	Globals      []*Global
	Classes      []*types.Class
	Functions    []*Function
	Names        []pkgmodel.Name
	Dependencies []*Dependency

	natives map[string]uintptr
}

// NewPackage constructs an empty package ready to have classes, globals, and
// functions appended to it before any Function belonging to it is built.
func NewPackage(name string) *Package {
	return &Package{Name: name, natives: make(map[string]uintptr)}
}

func (p *Package) GetGlobal(i int) *Global      { return p.Globals[i] }
func (p *Package) GetClass(i int) *types.Class  { return p.Classes[i] }
func (p *Package) GetName(i int) pkgmodel.Name  { return p.Names[i] }
func (p *Package) GetFunction(i int) *Function  { return p.Functions[i] }
func (p *Package) Dependency(i int) *Dependency { return p.Dependencies[i] }

// RegisterNative makes a symbol resolvable by LoadNativeFunction, standing in
// for whatever dynamic-linking mechanism a real loader would use.
func (p *Package) RegisterNative(name string, addr uintptr) {
	p.natives[name] = addr
}

// LoadNativeFunction resolves name to an opaque function pointer, or returns
// 0 if unresolved — spec §6's "returns an opaque function pointer or null".
func (p *Package) LoadNativeFunction(name string) uintptr {
	return p.natives[name]
}
