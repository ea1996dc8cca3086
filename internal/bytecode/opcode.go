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

// Package bytecode catalogues the opcode set of the bytecode language: opcode
// identities, the shape of their immediate operands, and the variable-byte-signed
// integer codec used by every immediate that isn't a fixed-width float.
package bytecode

import "fmt"

// OpCode identifies one bytecode instruction.
type OpCode byte

// Family groups opcodes by how the abstract interpreter must treat them. Every
// member of FamilyArith shares one stack effect (pop Arity operands, push one
// primitive of ResultKind) regardless of which of the ~100 width/operator
// combinations it names, so the interpreter never needs a per-opcode case for them.
type Family byte

const (
	FamilyStack Family = iota
	FamilyConst
	FamilyLocal
	FamilyGlobal
	FamilyField
	FamilyElement
	FamilyAlloc
	FamilyTypeOp
	FamilyControl
	FamilyCall
	FamilyArith
	FamilyPkg
)

// OperandShape describes how many, and what kind of, immediate bytes follow an
// opcode in the instruction stream.
type OperandShape byte

const (
	OperandNone OperandShape = iota
	OperandVbn1
	OperandVbn2
	OperandVbn3
	OperandF32
	OperandF64
	OperandBranchTable // BRANCHL: vbn count n, followed by n vbn block indices.
)

// ResultKind names the primitive width or kind an arithmetic/compare/convert
// opcode leaves on the stack. Never object-kind: FamilyArith opcodes can only ever
// clear bits in a stack pointer map, never set them.
type ResultKind byte

const (
	ResultI8 ResultKind = iota
	ResultI16
	ResultI32
	ResultI64
	ResultF32
	ResultF64
	ResultBool
)

// Info is the catalogue entry for one opcode.
type Info struct {
	Code     OpCode
	Mnemonic string
	Family   Family
	Operands OperandShape

	// Arity and ResultKind are only meaningful for FamilyArith: Arity is how many
	// stack operands the opcode pops, ResultKind is the single primitive value it
	// pushes in their place.
	Arity      int
	ResultKind ResultKind
}

const (
	OpNOP OpCode = iota
	OpDROP
	OpDROPI
	OpDUP
	OpDUPI
	OpSWAP
	OpSWAP2

	OpUNIT
	OpTRUE
	OpFALSE
	OpNUL
	OpUNINITIALIZED
	OpI8
	OpI16
	OpI32
	OpI64
	OpF32
	OpF64
	OpSTRING

	OpLDLOCAL
	OpSTLOCAL
	OpLDG
	OpLDGF
	OpSTG
	OpSTGF

	OpLDF
	OpLDFF
	OpSTF
	OpSTFF

	OpLDE
	OpSTE

	OpALLOCOBJ
	OpALLOCOBJF
	OpALLOCARR
	OpALLOCARRF

	OpTYS
	OpTYD
	OpCAST
	OpCASTC
	OpCASTCBR

	OpBRANCH
	OpBRANCHIF
	OpBRANCHL
	OpLABEL
	OpPUSHTRY
	OpPOPTRY
	OpTHROW
	OpRET

	OpCALLG
	OpCALLV
	OpCALLGF
	OpCALLVF

	OpPKG

	// opArithBase marks the start of the generated arithmetic/logic/compare/convert
	// opcode space; see register() below.
	opArithBase
)

var (
	table    = make(map[OpCode]*Info, 256)
	byName   = make(map[string]*Info, 256)
	nextCode = opArithBase
)

func define(code OpCode, mnemonic string, family Family, operands OperandShape) {
	info := &Info{Code: code, Mnemonic: mnemonic, Family: family, Operands: operands}
	table[code] = info
	byName[mnemonic] = info
}

// register allocates the next free opcode value for a generated arithmetic,
// compare, or convert instruction. Over a hundred width/operator combinations
// (ADD.i8 .. GE.f64, TRUNC.i8 .. FTOI.f64) share one stack effect, so rather than
// hand-listing each as a named Go constant, they're assigned byte values
// programmatically here and looked up by mnemonic everywhere else.
func register(mnemonic string, arity int, result ResultKind) OpCode {
	code := nextCode
	nextCode++

	if code == 0 {
		panic("bytecode: opcode space exhausted")
	}

	info := &Info{
		Code:       code,
		Mnemonic:   mnemonic,
		Family:     FamilyArith,
		Operands:   OperandNone,
		Arity:      arity,
		ResultKind: result,
	}

	table[code] = info
	byName[mnemonic] = info
	return code
}

func init() {
	define(OpNOP, "nop", FamilyStack, OperandNone)
	define(OpDROP, "drop", FamilyStack, OperandNone)
	define(OpDROPI, "dropi", FamilyStack, OperandVbn1)
	define(OpDUP, "dup", FamilyStack, OperandNone)
	define(OpDUPI, "dupi", FamilyStack, OperandVbn1)
	define(OpSWAP, "swap", FamilyStack, OperandNone)
	define(OpSWAP2, "swap2", FamilyStack, OperandNone)

	define(OpUNIT, "unit", FamilyConst, OperandNone)
	define(OpTRUE, "true", FamilyConst, OperandNone)
	define(OpFALSE, "false", FamilyConst, OperandNone)
	define(OpNUL, "nul", FamilyConst, OperandNone)
	define(OpUNINITIALIZED, "uninitialized", FamilyConst, OperandNone)
	define(OpI8, "i8", FamilyConst, OperandVbn1)
	define(OpI16, "i16", FamilyConst, OperandVbn1)
	define(OpI32, "i32", FamilyConst, OperandVbn1)
	define(OpI64, "i64", FamilyConst, OperandVbn1)
	define(OpF32, "f32", FamilyConst, OperandF32)
	define(OpF64, "f64", FamilyConst, OperandF64)
	define(OpSTRING, "string", FamilyConst, OperandVbn1)

	define(OpLDLOCAL, "ldlocal", FamilyLocal, OperandVbn1)
	define(OpSTLOCAL, "stlocal", FamilyLocal, OperandVbn1)
	define(OpLDG, "ldg", FamilyGlobal, OperandVbn1)
	define(OpLDGF, "ldgf", FamilyGlobal, OperandVbn2)
	define(OpSTG, "stg", FamilyGlobal, OperandVbn1)
	define(OpSTGF, "stgf", FamilyGlobal, OperandVbn2)

	define(OpLDF, "ldf", FamilyField, OperandVbn2)
	define(OpLDFF, "ldff", FamilyField, OperandVbn3)
	define(OpSTF, "stf", FamilyField, OperandVbn2)
	define(OpSTFF, "stff", FamilyField, OperandVbn3)

	define(OpLDE, "lde", FamilyElement, OperandNone)
	define(OpSTE, "ste", FamilyElement, OperandNone)

	define(OpALLOCOBJ, "allocobj", FamilyAlloc, OperandVbn1)
	define(OpALLOCOBJF, "allocobjf", FamilyAlloc, OperandVbn2)
	define(OpALLOCARR, "allocarr", FamilyAlloc, OperandVbn1)
	define(OpALLOCARRF, "allocarrf", FamilyAlloc, OperandVbn2)

	define(OpTYS, "tys", FamilyTypeOp, OperandVbn1)
	define(OpTYD, "tyd", FamilyTypeOp, OperandVbn1)
	define(OpCAST, "cast", FamilyTypeOp, OperandNone)
	define(OpCASTC, "castc", FamilyTypeOp, OperandNone)
	define(OpCASTCBR, "castcbr", FamilyTypeOp, OperandVbn2)

	define(OpBRANCH, "branch", FamilyControl, OperandVbn1)
	define(OpBRANCHIF, "branchif", FamilyControl, OperandVbn2)
	define(OpBRANCHL, "branchl", FamilyControl, OperandBranchTable)
	define(OpLABEL, "label", FamilyControl, OperandVbn1)
	define(OpPUSHTRY, "pushtry", FamilyControl, OperandVbn2)
	define(OpPOPTRY, "poptry", FamilyControl, OperandVbn1)
	define(OpTHROW, "throw", FamilyControl, OperandNone)
	define(OpRET, "ret", FamilyControl, OperandNone)

	define(OpCALLG, "callg", FamilyCall, OperandVbn1)
	define(OpCALLV, "callv", FamilyCall, OperandVbn1)
	define(OpCALLGF, "callgf", FamilyCall, OperandVbn2)
	define(OpCALLVF, "callvf", FamilyCall, OperandVbn2)

	define(OpPKG, "pkg", FamilyPkg, OperandVbn1)

	registerArithFamily()
}

// intWidths enumerates the integer result kinds arithmetic opcodes are generated
// for; float ops are registered separately since they only support a subset of
// operators (no shifts, no bitwise ops).
var intWidths = []ResultKind{ResultI8, ResultI16, ResultI32, ResultI64}
var floatWidths = []ResultKind{ResultF32, ResultF64}

var widthSuffix = map[ResultKind]string{
	ResultI8:   "i8",
	ResultI16:  "i16",
	ResultI32:  "i32",
	ResultI64:  "i64",
	ResultF32:  "f32",
	ResultF64:  "f64",
	ResultBool: "bool",
}

// arithOpCodes is filled in by registerArithFamily and indexed by mnemonic so that
// assemblers can resolve "add.i32"-style names through ArithOpCode without a giant
// switch statement.
var arithOpCodes = map[string]OpCode{}

func registerArithFamily() {
	binaryIntOps := []string{"add", "sub", "mul", "div", "mod", "and", "or", "xor", "shl", "shr", "ashr"}
	unaryIntOps := []string{"neg", "inv"}
	binaryFloatOps := []string{"add", "sub", "mul", "div"}
	unaryFloatOps := []string{"neg"}
	compareOps := []string{"eq", "ne", "lt", "le", "gt", "ge"}
	convertOps := []struct {
		name   string
		arity  int
		result ResultKind
	}{
		{"trunc.i8", 1, ResultI8}, {"trunc.i16", 1, ResultI16}, {"trunc.i32", 1, ResultI32},
		{"sext.i16", 1, ResultI16}, {"sext.i32", 1, ResultI32}, {"sext.i64", 1, ResultI64},
		{"zext.i16", 1, ResultI16}, {"zext.i32", 1, ResultI32}, {"zext.i64", 1, ResultI64},
		{"itof.f32", 1, ResultF32}, {"itof.f64", 1, ResultF64},
		{"ftoi.i32", 1, ResultI32}, {"ftoi.i64", 1, ResultI64},
		{"fext.f64", 1, ResultF64}, {"ftrunc.f32", 1, ResultF32},
	}

	for _, w := range intWidths {
		for _, op := range binaryIntOps {
			mnemonic := op + "." + widthSuffix[w]
			arithOpCodes[mnemonic] = register(mnemonic, 2, w)
		}
		for _, op := range unaryIntOps {
			mnemonic := op + "." + widthSuffix[w]
			arithOpCodes[mnemonic] = register(mnemonic, 1, w)
		}
		for _, op := range compareOps {
			mnemonic := op + "." + widthSuffix[w]
			arithOpCodes[mnemonic] = register(mnemonic, 2, ResultBool)
		}
	}

	for _, w := range floatWidths {
		for _, op := range binaryFloatOps {
			mnemonic := op + "." + widthSuffix[w]
			arithOpCodes[mnemonic] = register(mnemonic, 2, w)
		}
		for _, op := range unaryFloatOps {
			mnemonic := op + "." + widthSuffix[w]
			arithOpCodes[mnemonic] = register(mnemonic, 1, w)
		}
		for _, op := range compareOps {
			mnemonic := op + "." + widthSuffix[w]
			arithOpCodes[mnemonic] = register(mnemonic, 2, ResultBool)
		}
	}

	arithOpCodes["not.bool"] = register("not.bool", 1, ResultBool)

	for _, c := range convertOps {
		arithOpCodes[c.name] = register(c.name, c.arity, c.result)
	}
}

// Lookup returns the catalogue entry for code, or nil if code is unassigned.
func Lookup(code OpCode) *Info {
	return table[code]
}

// ByName returns the catalogue entry registered under mnemonic, or nil.
func ByName(mnemonic string) *Info {
	return byName[mnemonic]
}

// ArithOpCode returns the opcode registered for a FamilyArith mnemonic such as
// "add.i32" or "ftoi.i64", or false if mnemonic is unknown.
func ArithOpCode(mnemonic string) (OpCode, bool) {
	code, ok := arithOpCodes[mnemonic]
	return code, ok
}

func (c OpCode) String() string {
	if info := table[c]; info != nil {
		return info.Mnemonic
	}
	return fmt.Sprintf("op(0x%02x)", byte(c))
}

// IsSafePoint reports whether an instruction of this opcode is a safe point per
// spec §4.E: exactly the allocation, call, and pushtry opcodes.
func (c OpCode) IsSafePoint() bool {
	switch c {
	case OpALLOCOBJ, OpALLOCOBJF, OpALLOCARR, OpALLOCARRF,
		OpCALLG, OpCALLV, OpCALLGF, OpCALLVF,
		OpPUSHTRY:
		return true
	default:
		return false
	}
}

// IsBlockTerminator reports whether an instruction of this opcode ends a basic
// block: branches, returns, throws, and the try/catch bracketing opcodes.
func (c OpCode) IsBlockTerminator() bool {
	switch c {
	case OpBRANCH, OpBRANCHIF, OpBRANCHL, OpCASTCBR,
		OpPUSHTRY, OpPOPTRY, OpTHROW, OpRET:
		return true
	default:
		return false
	}
}
