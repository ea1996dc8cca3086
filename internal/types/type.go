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

// Package types implements the small type algebra the stack pointer map
// builder consumes: primitive and reference type values, the isObject
// predicate that ultimately decides every bit in a StackPointerMap, and
// substitution across type-parameter bindings and inheritance. Class lives
// here too, rather than in pkgmodel, because effectiveClass/substitution need
// it and pkgmodel needs *Type for fields and globals — putting Class in
// pkgmodel would make the two packages import each other.
package types

import (
	"fmt"

	"github.com/csvm/codeswitch/internal/defs"
)

// Kind discriminates a Type's representation. Primitive kinds are never
// object-kind; Null, Label, and Object always are, per the "null as a
// reference" design note.
type Kind uint8

const (
	KindUnit Kind = iota
	KindBool
	KindI8
	KindI16
	KindI32
	KindI64
	KindF32
	KindF64
	KindNull
	KindLabel
	KindObject
	KindTypeParam
)

func (k Kind) String() string {
	switch k {
	case KindUnit:
		return "unit"
	case KindBool:
		return "boolean"
	case KindI8:
		return "i8"
	case KindI16:
		return "i16"
	case KindI32:
		return "i32"
	case KindI64:
		return "i64"
	case KindF32:
		return "f32"
	case KindF64:
		return "f64"
	case KindNull:
		return "null"
	case KindLabel:
		return "label"
	case KindObject:
		return "object"
	case KindTypeParam:
		return "typeparam"
	default:
		return fmt.Sprintf("Kind(%d)", k)
	}
}

// Type is a single type value: either a primitive scalar, one of the two
// singleton reference kinds (null, label), an instantiated class reference,
// or an unbound type parameter awaiting substitution.
type Type struct {
	Kind Kind

	// Class is set iff Kind == KindObject: the class this value is an instance
	// of, after any generic instantiation.
	Class *Class

	// TypeArgs holds the type arguments bound to Class's type parameters, in
	// declaration order. Empty for non-generic classes.
	TypeArgs []*Type

	// Index is set iff Kind == KindTypeParam: the type parameter's ordinal
	// position in whichever type-parameter list declared it.
	Index int
}

// IsObject reports whether a value of this type is a reference for GC
// purposes. True for null and label (the two reference singletons) and for
// every class-bound object type; false for every primitive scalar.
func (t *Type) IsObject() bool {
	switch t.Kind {
	case KindNull, KindLabel, KindObject:
		return true
	default:
		return false
	}
}

// TypeSize returns the unaligned size in bytes this type occupies in a
// parameter slot. References (including null and label) are one machine word;
// primitives use their natural width.
func (t *Type) TypeSize() int {
	switch t.Kind {
	case KindUnit:
		return 0
	case KindBool, KindI8:
		return 1
	case KindI16:
		return 2
	case KindI32, KindF32:
		return 4
	case KindI64, KindF64:
		return 8
	default:
		return defs.WordSize
	}
}

// EffectiveClass returns the class this value is an instance of. Only
// meaningful (non-nil) for object-kind types backed by a class; primitives,
// null, and label have no class.
func (t *Type) EffectiveClass() *Class {
	if t.Kind == KindObject {
		return t.Class
	}
	return nil
}

// GetTypeArgumentBindings returns the type arguments bound to this value's
// class, in declaration order. Empty (not nil-panicking) for non-object types.
func (t *Type) GetTypeArgumentBindings() []*Type {
	return t.TypeArgs
}

func (t *Type) String() string {
	switch t.Kind {
	case KindObject:
		if len(t.TypeArgs) == 0 {
			return t.Class.Name
		}
		args := make([]string, len(t.TypeArgs))
		for i, a := range t.TypeArgs {
			args[i] = a.String()
		}
		return fmt.Sprintf("%s<%v>", t.Class.Name, args)
	case KindTypeParam:
		return fmt.Sprintf("T%d", t.Index)
	default:
		return t.Kind.String()
	}
}

// Singleton primitive and reference type values, matching the roots table's
// "singleton primitive types" per spec §6: unit, boolean, i8..i64, f32, f64,
// null, and label. These are immutable and safe to share across every Function
// that references them.
var (
	Unit  = &Type{Kind: KindUnit}
	Bool  = &Type{Kind: KindBool}
	I8    = &Type{Kind: KindI8}
	I16   = &Type{Kind: KindI16}
	I32   = &Type{Kind: KindI32}
	I64   = &Type{Kind: KindI64}
	F32   = &Type{Kind: KindF32}
	F64   = &Type{Kind: KindF64}
	Null  = &Type{Kind: KindNull}
	Label = &Type{Kind: KindLabel}
)

// TypeParam returns the unbound type-parameter placeholder at ordinal index.
// Class and Function type-parameter lists are represented this way before
// Substitute binds them to concrete arguments.
func TypeParam(index int) *Type {
	return &Type{Kind: KindTypeParam, Index: index}
}
