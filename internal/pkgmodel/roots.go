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

package pkgmodel

import (
	"github.com/csvm/codeswitch/internal/defs"
	"github.com/csvm/codeswitch/internal/types"
)

// Roots is the process-wide roots table: singleton primitive types, builtin
// classes, and builtin function identities, per spec §6 "consumed from the
// roots table". Intentionally thin — this subsystem only ever reads it.
type Roots struct {
	builtinFuncs map[defs.BuiltinId]DefnId
}

// NewRoots constructs the roots table. Builtin function identities are
// allocated once at process start, matching the identity-allocation scheme
// used for loaded functions.
func NewRoots() *Roots {
	return &Roots{builtinFuncs: make(map[defs.BuiltinId]DefnId)}
}

// PrimitiveType returns the singleton primitive type for kind, or nil if kind
// does not name a primitive (e.g. KindObject, which has no singleton).
func (r *Roots) PrimitiveType(kind types.Kind) *types.Type {
	switch kind {
	case types.KindUnit:
		return types.Unit
	case types.KindBool:
		return types.Bool
	case types.KindI8:
		return types.I8
	case types.KindI16:
		return types.I16
	case types.KindI32:
		return types.I32
	case types.KindI64:
		return types.I64
	case types.KindF32:
		return types.F32
	case types.KindF64:
		return types.F64
	case types.KindNull:
		return types.Null
	case types.KindLabel:
		return types.Label
	default:
		return nil
	}
}

// BuiltinClass returns the roots-table class for id, or nil.
func (r *Roots) BuiltinClass(id defs.BuiltinId) *types.Class {
	return types.BuiltinClass(id)
}

// RegisterBuiltinFunction assigns a DefnId to a builtin function id, called
// once during roots-table initialization.
func (r *Roots) RegisterBuiltinFunction(id defs.BuiltinId) DefnId {
	defnID := NewDefnId()
	r.builtinFuncs[id] = defnID
	return defnID
}

// BuiltinFunction returns the DefnId registered for a builtin function id.
func (r *Roots) BuiltinFunction(id defs.BuiltinId) (DefnId, bool) {
	d, ok := r.builtinFuncs[id]
	return d, ok
}
