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

package types

import "github.com/csvm/codeswitch/internal/defs"

// Field is one declared field of a Class, as consumed by the LDF/STF/LDFF/STFF
// opcodes: DeclaredType may itself contain KindTypeParam values bound by the
// owning class's type parameters, resolved through Substitute at field access
// time.
type Field struct {
	Name          string
	DeclaredType  *Type
	DeclaringName string // the class that originally declared this field, for substituteForInheritance
}

// Class is the minimal class-model surface the type algebra and the map
// builder need: enough to compute effectiveClass(), field/element types, and
// generic substitution across an inheritance chain. Everything else a real
// loader would attach to a class (methods, vtables, layout) is out of scope.
type Class struct {
	Name           string
	Builtin        defs.BuiltinId
	SuperClass     *Class
	TypeParamCount int
	Fields         []Field

	// SuperTypeArgs records how this class instantiates SuperClass's type
	// parameters, expressed in terms of this class's own type parameters
	// (KindTypeParam values indexed 0..TypeParamCount-1). Empty if SuperClass
	// is nil or non-generic.
	SuperTypeArgs []*Type

	// ElementType is set for array-like classes; LDE/STE read it directly
	// rather than through a field lookup.
	ElementType *Type
}

// IsBuiltin reports whether this class is one of the roots table's well-known
// classes rather than one loaded from a package.
func (c *Class) IsBuiltin() bool {
	return c.Builtin != defs.BuiltinNone
}

// FieldByName looks up a declared field by name, walking up the superclass
// chain if it's not declared directly on c. Returns the field and the class
// that declared it (needed by substituteForInheritance), or ok=false.
func (c *Class) FieldByName(name string) (Field, *Class, bool) {
	for cls := c; cls != nil; cls = cls.SuperClass {
		for _, f := range cls.Fields {
			if f.Name == name {
				return f, cls, true
			}
		}
	}
	return Field{}, nil, false
}

// IsSubclassOf reports whether c is base or a transitive subclass of base,
// walking the single-inheritance SuperClass chain.
func (c *Class) IsSubclassOf(base *Class) bool {
	for cls := c; cls != nil; cls = cls.SuperClass {
		if cls == base {
			return true
		}
	}
	return false
}
