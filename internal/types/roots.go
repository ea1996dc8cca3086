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

// Builtin classes from the roots table (spec §6), by BuiltinId. A Function's
// ALLOCOBJ/ALLOCARR/LDF et al. take a class id that may name one of these
// instead of an entry in the owning package's class table; defs.IsBuiltinId
// distinguishes the two id spaces.
var (
	StringClass    = &Class{Name: "String", Builtin: defs.BuiltinStringClassId}
	ExceptionClass = &Class{Name: "Exception", Builtin: defs.BuiltinExceptionClassId}
	PackageClass   = &Class{Name: "Package", Builtin: defs.BuiltinPackageClassId}
	TypeClass      = &Class{Name: "Type", Builtin: defs.BuiltinTypeClassId}
	LabelClass     = &Class{Name: "Label", Builtin: defs.BuiltinLabelClassId}
)

var builtinClasses = map[defs.BuiltinId]*Class{
	defs.BuiltinStringClassId:    StringClass,
	defs.BuiltinExceptionClassId: ExceptionClass,
	defs.BuiltinPackageClassId:   PackageClass,
	defs.BuiltinTypeClassId:      TypeClass,
	defs.BuiltinLabelClassId:     LabelClass,
}

// BuiltinClass returns the roots-table class for id, or nil if id does not
// name a builtin class.
func BuiltinClass(id defs.BuiltinId) *Class {
	return builtinClasses[id]
}

// String is the object type pushed by the STRING opcode: an instance of the
// builtin String class.
var String = &Type{Kind: KindObject, Class: StringClass}

// TypeValue is the object type TYD additionally pushes onto typeMap: an
// instance of the builtin Type class (spec §4.E, TYD bullet).
var TypeValue = &Type{Kind: KindObject, Class: TypeClass}

// Exception is the object type PUSHTRY's safe point snapshots with the
// catch-exception value on top of the stack (spec §4.E, scenario S6).
var Exception = &Type{Kind: KindObject, Class: ExceptionClass}
