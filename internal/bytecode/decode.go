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

package bytecode

import "fmt"

// ErrTruncatedOperand is returned when a fixed-width float immediate runs off
// the end of the instruction stream.
var ErrTruncatedOperand = fmt.Errorf("bytecode: truncated operand")

// Instruction is one decoded instruction: its opcode, the pc-offset it starts
// at, its decoded vbn operands (in encoding order; empty for fixed-width float
// and no-operand opcodes), and the pc-offset immediately following it.
type Instruction struct {
	Op       OpCode
	PcOffset int
	Operands []int64
	NextPc   int
}

// Decode reads one instruction starting at code[offset]: the opcode byte,
// then its immediate operands per the catalogue's OperandShape. For
// OperandBranchTable, Operands is [n, block0, block1, ..., block(n-1)].
func Decode(code []byte, offset int) (Instruction, error) {
	if offset >= len(code) {
		return Instruction{}, ErrTruncatedOperand
	}

	op := OpCode(code[offset])
	info := Lookup(op)
	if info == nil {
		return Instruction{}, fmt.Errorf("bytecode: unknown opcode 0x%02x at offset %d", code[offset], offset)
	}

	pc := offset + 1
	var operands []int64
	var err error

	switch info.Operands {
	case OperandNone:
		// no operands

	case OperandVbn1:
		operands, pc, err = readVbns(code, pc, 1)

	case OperandVbn2:
		operands, pc, err = readVbns(code, pc, 2)

	case OperandVbn3:
		operands, pc, err = readVbns(code, pc, 3)

	case OperandF32:
		if pc+4 > len(code) {
			return Instruction{}, ErrTruncatedOperand
		}
		pc += 4

	case OperandF64:
		if pc+8 > len(code) {
			return Instruction{}, ErrTruncatedOperand
		}
		pc += 8

	case OperandBranchTable:
		var n int64
		n, pc, err = ReadVbn(code, pc)
		if err != nil {
			return Instruction{}, err
		}
		var rest []int64
		rest, pc, err = readVbns(code, pc, int(n))
		operands = append([]int64{n}, rest...)

	default:
		return Instruction{}, fmt.Errorf("bytecode: opcode %s has unrecognized operand shape", op)
	}

	if err != nil {
		return Instruction{}, err
	}

	return Instruction{Op: op, PcOffset: offset, Operands: operands, NextPc: pc}, nil
}

func readVbns(code []byte, offset int, n int) ([]int64, int, error) {
	if n == 0 {
		return nil, offset, nil
	}
	out := make([]int64, n)
	for i := 0; i < n; i++ {
		v, next, err := ReadVbn(code, offset)
		if err != nil {
			return nil, offset, err
		}
		out[i] = v
		offset = next
	}
	return out, offset, nil
}
