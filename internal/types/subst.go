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

// Substitute binds every KindTypeParam appearing in t (recursively, through
// TypeArgs) to the corresponding entry of bindings and returns the result. t
// itself is never mutated; object types with no type parameter anywhere
// underneath are returned unchanged.
func Substitute(t *Type, bindings []*Type) *Type {
	switch t.Kind {
	case KindTypeParam:
		if t.Index < 0 || t.Index >= len(bindings) {
			panic("types: type parameter index out of range during substitution")
		}
		return bindings[t.Index]
	case KindObject:
		if len(t.TypeArgs) == 0 {
			return t
		}
		args := make([]*Type, len(t.TypeArgs))
		changed := false
		for i, a := range t.TypeArgs {
			args[i] = Substitute(a, bindings)
			changed = changed || args[i] != a
		}
		if !changed {
			return t
		}
		return &Type{Kind: KindObject, Class: t.Class, TypeArgs: args}
	default:
		return t
	}
}

// SubstituteForInheritance rewrites fieldType — declared on declaringClass, so
// every type parameter in it refers to declaringClass's own type-parameter
// list — into the equivalent expression in terms of derivedClass's type
// parameters. declaringClass must be derivedClass or a (transitive) ancestor
// of it. The result still contains unbound KindTypeParam values (now indexed
// against derivedClass); the caller substitutes those against the receiver's
// actual type-argument bindings separately, per spec §4.E's LDF rule.
func SubstituteForInheritance(fieldType *Type, derivedClass, declaringClass *Class) *Type {
	if derivedClass == declaringClass {
		return fieldType
	}
	return Substitute(fieldType, ancestorBindings(derivedClass, declaringClass))
}

// ancestorBindings returns, for each type parameter of ancestor, the
// KindTypeParam-valued expression (indexed against derived's own parameter
// list) that instantiates it — computed by composing each class's
// SuperTypeArgs down the inheritance chain from derived to ancestor.
func ancestorBindings(derived, ancestor *Class) []*Type {
	identity := make([]*Type, derived.TypeParamCount)
	for i := range identity {
		identity[i] = TypeParam(i)
	}

	cls := derived
	current := identity

	for cls != ancestor {
		if cls == nil {
			panic("types: declaringClass is not an ancestor of derivedClass")
		}

		next := make([]*Type, len(cls.SuperTypeArgs))
		for i, a := range cls.SuperTypeArgs {
			next[i] = Substitute(a, current)
		}

		cls = cls.SuperClass
		current = next
	}

	return current
}

// Create constructs an instantiated object type for class with the given
// bound type arguments, drawing the *Type from the build-time pool.
func Create(class *Class, typeArgs []*Type) *Type {
	t := newInstType()
	t.Kind = KindObject
	t.Class = class
	t.TypeArgs = typeArgs
	return t
}

// ReleaseType returns a Create-allocated type to the build-time pool once
// nothing reads it any more. The map builder itself never calls it, so types
// it creates are left to the garbage collector. Must never be called on a roots-table
// singleton (Unit, Bool, Null, Label, ...) — those are shared forever.
func ReleaseType(t *Type) {
	if t != nil && t.Kind == KindObject {
		freeInstType(t)
	}
}
