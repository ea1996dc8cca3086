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

// Command csvmdump assembles a tiny demo function by hand, builds its stack
// pointer map, and prints both the function's disassembly and the resulting
// map — a worked example of the builder's public API, in the spirit of the
// teacher's own encoder/decoder demo commands.
package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/csvm/codeswitch"
	"github.com/csvm/codeswitch/internal/bytecode"
	"github.com/csvm/codeswitch/internal/pkgmodel"
	"github.com/csvm/codeswitch/internal/types"
	"github.com/csvm/codeswitch/internal/vm"
)

func main() {
	trace := flag.Bool("trace", false, "trace safe points as they're recorded")
	assertJoin := flag.Bool("assert-join", false, "panic if a block's predecessors disagree on frame shape")
	flag.Parse()

	if err := codeswitch.Configure("",
		codeswitch.WithTraceSafePoints(*trace),
		codeswitch.WithAssertJoinAgreement(*assertJoin),
	); err != nil {
		fmt.Fprintln(os.Stderr, "csvmdump: configure:", err)
		os.Exit(1)
	}

	pkg, fn := buildDemoPackage()

	fmt.Println("function:", fn.String())
	fmt.Println()
	fmt.Println("disassembly:")
	disassemble(fn)
	fmt.Println()

	if err := codeswitch.BuildStackPointerMap(fn); err != nil {
		fmt.Fprintln(os.Stderr, "csvmdump: build:", err)
		os.Exit(1)
	}

	fmt.Println("stack pointer map:")
	dumpMap(fn.Map)

	_ = pkg
}

// buildDemoPackage assembles a two-function package: makeNode allocates a
// Node and stores it in local 0 (a safe point with one live reference
// afterward), does some unrelated integer arithmetic, then calls helper
// (a second safe point) before returning the node.
func buildDemoPackage() (*codeswitch.Package, *codeswitch.Function) {
	pkg := codeswitch.NewPackage("demo")

	node := &types.Class{Name: "Node"}
	pkg.Classes = append(pkg.Classes, node)

	helper := &vm.Function{
		Id:           pkgmodel.NewDefnId(),
		Name:         pkgmodel.NewName("demo", "helper"),
		ReturnType:   types.Unit,
		LocalsSize:   0,
		Package:      pkg,
		BlockOffsets: []int{0},
	}
	ha := newAsm()
	ha.op0("unit")
	ha.op0("ret")
	helper.Instructions = ha.bytes()
	pkg.Functions = append(pkg.Functions, helper)

	a := newAsm()
	a.op1("allocobj", 0) // push Node
	a.op1("stlocal", -1) // store into local 0
	a.op1("i32", 2)      // push 2
	a.op1("i32", 3)      // push 3
	a.arith("add.i32")   // push 2+3, drop below
	a.op0("drop")        // discard the arithmetic result
	a.op1("callg", 0)    // call helper(); safe point; pushes unit
	a.op0("drop")        // discard helper's unit result
	a.op1("ldlocal", -1) // push the node back
	a.op0("ret")

	makeNode := &vm.Function{
		Id:           pkgmodel.NewDefnId(),
		Name:         pkgmodel.NewName("demo", "makeNode"),
		ReturnType:   types.Create(node, nil),
		LocalsSize:   8, // one word-sized local: the Node reference
		Package:      pkg,
		BlockOffsets: a.blocks(),
		Instructions: a.bytes(),
	}
	pkg.Functions = append(pkg.Functions, makeNode)

	return pkg, makeNode
}

func disassemble(fn *codeswitch.Function) {
	pc := 0
	for pc < len(fn.Instructions) {
		instr, err := bytecode.Decode(fn.Instructions, pc)
		if err != nil {
			fmt.Printf("  %4d: <decode error: %s>\n", pc, err)
			return
		}
		fmt.Printf("  %4d: %s %v\n", pc, instr.Op, instr.Operands)
		pc = instr.NextPc
	}
}

func dumpMap(m *codeswitch.StackPointerMap) {
	if m == nil {
		fmt.Println("  <nil>")
		return
	}
	paramOff, paramCount := m.GetParametersRegion()
	fmt.Printf("  parameters: offset=%d count=%d\n", paramOff, paramCount)
	for i := 0; i < m.EntryCount(); i++ {
		fmt.Printf("  entry %d\n", i)
	}
	fmt.Printf("  bitmap length: %d bits\n", m.BitmapLength())
}
