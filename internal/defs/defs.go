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

// Package defs holds constants shared across the bytecode, type, and VM layers.
package defs

const (
	// WordSize is the machine word width in bytes that localsSize, parameter
	// offsets, and stack-pointer-map bitmaps are all measured in.
	WordSize = 8

	// BitsInWord is the number of bits packed per backing word of a StackPointerMap.
	BitsInWord = WordSize * 8

	// MaxInstructionsLength bounds a function's instruction stream.
	MaxInstructionsLength = 1 << 24

	// NotSet is the sentinel returned by StackPointerMap.SearchLocalsRegion when no
	// entry matches.
	NotSet = -1
)

// Flags is the Function flags bitfield. Only the native bit is interpreted by this
// subsystem; the rest are opaque and preserved as-is.
type Flags uint32

const (
	FlagNative Flags = 1 << 0
)

func (f Flags) IsNative() bool {
	return f&FlagNative != 0
}

// BuiltinId identifies a well-known function or class owned by the VM's roots
// table rather than a loaded package. Zero means "not a builtin".
type BuiltinId int64

const (
	BuiltinNone BuiltinId = 0

	BuiltinStringClassId    BuiltinId = 1
	BuiltinExceptionClassId BuiltinId = 2
	BuiltinPackageClassId   BuiltinId = 3
	BuiltinTypeClassId      BuiltinId = 4
	BuiltinLabelClassId     BuiltinId = 5
)

// IsBuiltinId reports whether id names a builtin class or function rather than an
// index into the owning package's class/function table. Builtins and
// package-local ids share one numeric namespace in the bytecode; by convention
// builtin ids are small positive values reserved by the roots table and never
// allocated to a loaded package's own classes.
func IsBuiltinId(id int64) bool {
	return id > 0 && id <= int64(BuiltinLabelClassId)
}

// Align rounds size up to the next multiple of align, which must be a power of two.
func Align(size, align int) int {
	return (size + align - 1) &^ (align - 1)
}
