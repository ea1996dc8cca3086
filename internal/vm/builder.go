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
	"fmt"

	"github.com/oleiade/lane"

	"github.com/csvm/codeswitch/internal/bytecode"
	"github.com/csvm/codeswitch/internal/defs"
	"github.com/csvm/codeswitch/internal/types"
)

// workItem is one pending block to interpret: which basic block, and the
// frame state to interpret it with (one independent copy per predecessor
// that reached it, per spec §4.E).
type workItem struct {
	block int
	fs    *FrameState
}

// gcHook lets BuildStackPointerMap's retry-with-GC discipline (spec §5)
// trigger a real collection without this package depending on internal/gc;
// the root facade re-exports SetGCHook so an embedder can point it at its
// collector.
var gcHook = func() {}

// SetGCHook installs the callback BuildStackPointerMap invokes after an
// allocation failure during a build, before each retry.
func SetGCHook(f func()) {
	if f == nil {
		f = func() {}
	}
	gcHook = f
}

// gcRetryLimit is how many times BuildStackPointerMap retries after an OOM,
// wired from config.Config.GCRetryLimit. Spec §5 describes exactly one
// retry; this is that count, made tunable.
var gcRetryLimit = 1

// SetGCRetryLimit overrides gcRetryLimit.
func SetGCRetryLimit(n int) {
	if n < 0 {
		n = 0
	}
	gcRetryLimit = n
}

// checkAlloc is consulted by interpretAlloc just before constructing the
// instantiated type for ALLOCOBJ/ALLOCARR, the allocation site spec §5 names
// as able to trigger the retry-with-GC discipline. Go's own allocator cannot
// be made to fail on demand, so this is the seam a host VM's real allocator —
// or a test — hooks to simulate it; it defaults to always succeeding.
var checkAlloc = func() error { return nil }

// assertJoinAgreement wires config.Config.AssertJoinAgreement: when set, a
// block reached a second time with a frame shape that disagrees with its
// first-visited shape panics instead of silently keeping the first arrival
// (spec §9's join-soundness note is only safe under verified bytecode; this
// is the debug-build check the spec says implementers "may" add).
var assertJoinAgreement = false

// SetAssertJoinAgreement overrides assertJoinAgreement.
func SetAssertJoinAgreement(v bool) {
	assertJoinAgreement = v
}

// BuildStackPointerMap walks fn's bytecode with the abstract interpreter and
// attaches the resulting StackPointerMap to fn.Map. Per spec §3, a native
// function or one with no bytecode never gets a map — BuildStackPointerMap
// is simply a no-op for those. On OOM it retries up to gcRetryLimit times,
// running gcHook before each attempt (spec §5); exhausting the retries is
// fatal.
func BuildStackPointerMap(fn *Function) error {
	if fn.IsNative() || len(fn.Instructions) == 0 {
		return nil
	}

	m, err := build(fn)
	for attempt := 0; err == ErrOutOfMemory && attempt < gcRetryLimit; attempt++ {
		gcHook()
		m, err = build(fn)
	}
	if err == ErrOutOfMemory {
		return &FatalAllocationError{Function: fn.Id}
	}
	if err != nil {
		return err
	}

	fn.Map = m
	return nil
}

// build runs one complete attempt at walking fn from its entry block to
// every reachable safe point, worklist-driven and DFS-ordered (spec §4.E).
// Each block is interpreted at most once, at its first-visited frame shape —
// sound under the "bytecode is verified" assumption spec §9 documents. Later
// arrivals are compared against the first only when assertJoinAgreement is
// set; otherwise they are dropped unchecked.
func build(fn *Function) (*StackPointerMap, error) {
	if len(fn.BlockOffsets) == 0 {
		return nil, &BuildError{Kind: ErrBadBlockIndex, Function: fn.Id, Detail: "function has no basic blocks"}
	}
	if err := validateOverrideDAG(fn); err != nil {
		return nil, err
	}

	graph, err := buildBlockGraph(fn)
	if err != nil {
		return nil, err
	}
	defer graph[0].Free()

	localsCount := fn.LocalsSize / defs.WordSize
	paramRefs := make([]bool, len(fn.ParameterTypes))
	for i, t := range fn.ParameterTypes {
		paramRefs[i] = t.IsObject()
	}

	var entries []safePointEntry
	visited := make(map[int]bool, len(fn.BlockOffsets))
	var shapes map[int][]types.Kind
	if assertJoinAgreement {
		shapes = make(map[int][]types.Kind, len(fn.BlockOffsets))
	}

	worklist := lane.NewStack()
	worklist.Push(workItem{block: 0, fs: newFrameState(fn.Id, localsCount)})

	for !worklist.Empty() {
		item := worklist.Pop().(workItem)
		if visited[item.block] {
			if assertJoinAgreement {
				checkJoinAgreement(fn, item.block, item.fs, shapes)
			}
			freePooledFrameState(item.fs)
			continue
		}
		visited[item.block] = true
		if assertJoinAgreement {
			shapes[item.block] = frameShape(item.fs)
		}

		succs, err := interpretBlock(fn, item.block, item.fs, &entries)
		if err != nil {
			return nil, err
		}
		for _, s := range succs {
			worklist.Push(s)
		}
	}

	return buildStackPointerMap(paramRefs, entries), nil
}

// interpretBlock decodes and applies every instruction in blockIdx, in
// order, until it reaches the block's terminator, then hands off to
// interpretTerminator for the branch/return/throw/pushtry/poptry/castcbr
// divergence. fs is consumed: it is always freed back to the pool before
// this returns, successor frames being independent clones.
func interpretBlock(fn *Function, blockIdx int, fs *FrameState, entries *[]safePointEntry) ([]workItem, error) {
	pc := fn.BlockOffsets[blockIdx]

	for {
		instr, err := bytecode.Decode(fn.Instructions, pc)
		if err != nil {
			freePooledFrameState(fs)
			return nil, &BuildError{Kind: ErrMalformedBytecode, Function: fn.Id, PcOffset: pc, Detail: err.Error()}
		}
		fs.pcOffset = pc

		if instr.Op.IsBlockTerminator() {
			succs, err := interpretTerminator(fn, instr, fs, entries)
			freePooledFrameState(fs)
			return succs, err
		}

		if err := interpretOp(fn, instr, fs, entries); err != nil {
			freePooledFrameState(fs)
			return nil, err
		}
		pc = instr.NextPc
	}
}

// snapshot records one safe-point entry: the locals-and-operand-stack region
// live at pc, captured from fs's typeMap after the opcode's effect has been
// applied up to (but not including) pushing its result — spec §4.E. A
// region can hold more bits than localsSize/wordSize alone since it also
// covers whatever is still on the operand stack at that point (testable
// property "every entry's mapCount >= localsSize/wordSize").
func snapshot(fn *Function, fs *FrameState, pc int, entries *[]safePointEntry) {
	refs := make([]bool, len(fs.typeMap))
	for i, t := range fs.typeMap {
		refs[i] = t.IsObject()
	}
	e := safePointEntry{PcOffset: pc, Refs: refs}
	*entries = append(*entries, e)
	traceSafePoint(fn, e)
}

// interpretTerminator applies a block-ending opcode's stack effect and
// returns one workItem per control-flow successor, each with its own cloned
// frame state.
func interpretTerminator(fn *Function, instr bytecode.Instruction, fs *FrameState, entries *[]safePointEntry) ([]workItem, error) {
	switch instr.Op {
	case bytecode.OpBRANCH:
		target := int(instr.Operands[0])
		return []workItem{{block: target, fs: fs.clone()}}, nil

	case bytecode.OpBRANCHIF:
		if _, err := fs.pop(); err != nil {
			return nil, err
		}
		t, f := int(instr.Operands[0]), int(instr.Operands[1])
		return []workItem{{block: t, fs: fs.clone()}, {block: f, fs: fs.clone()}}, nil

	case bytecode.OpBRANCHL:
		if _, err := fs.pop(); err != nil { // selector
			return nil, err
		}
		n := int(instr.Operands[0])
		out := make([]workItem, n)
		for i := 0; i < n; i++ {
			out[i] = workItem{block: int(instr.Operands[1+i]), fs: fs.clone()}
		}
		return out, nil

	case bytecode.OpCASTCBR:
		// The value under test is consumed unconditionally. Only the TRUE
		// successor gets a value back, with the checked type refined; the
		// FALSE successor sees it "still popped" — nothing is pushed back.
		refined, err := fs.popTypeArg()
		if err != nil {
			return nil, err
		}
		if _, err := fs.pop(); err != nil {
			return nil, err
		}
		t, f := int(instr.Operands[0]), int(instr.Operands[1])
		trueFs := fs.clone()
		trueFs.push(refined)
		falseFs := fs.clone()
		return []workItem{{block: t, fs: trueFs}, {block: f, fs: falseFs}}, nil

	case bytecode.OpPUSHTRY:
		// The entry recorded here is the frame as the catch handler sees it
		// (exception value already on top), not the frame at the try block's
		// entry — scenario S6.
		tryBlk, catchBlk := int(instr.Operands[0]), int(instr.Operands[1])
		catchFs := fs.clone()
		catchFs.push(types.Exception)
		snapshot(fn, catchFs, instr.NextPc, entries)
		return []workItem{{block: tryBlk, fs: fs.clone()}, {block: catchBlk, fs: catchFs}}, nil

	case bytecode.OpPOPTRY:
		target := int(instr.Operands[0])
		return []workItem{{block: target, fs: fs.clone()}}, nil

	case bytecode.OpTHROW:
		if _, err := fs.pop(); err != nil {
			return nil, err
		}
		return nil, nil

	case bytecode.OpRET:
		if _, err := fs.pop(); err != nil {
			return nil, err
		}
		return nil, nil

	default:
		return nil, &BuildError{Kind: ErrUnknownOpcode, Function: fn.Id, PcOffset: instr.PcOffset, Detail: instr.Op.String()}
	}
}

// interpretOp applies the stack effect of one non-terminating instruction.
func interpretOp(fn *Function, instr bytecode.Instruction, fs *FrameState, entries *[]safePointEntry) error {
	info := bytecode.Lookup(instr.Op)
	if info == nil {
		return &BuildError{Kind: ErrUnknownOpcode, Function: fn.Id, PcOffset: instr.PcOffset}
	}

	if info.Family == bytecode.FamilyArith {
		if _, err := fs.popN(info.Arity); err != nil {
			return err
		}
		fs.push(resultType(info.ResultKind))
		return nil
	}

	switch instr.Op {
	case bytecode.OpNOP:
		// no effect

	case bytecode.OpDROP:
		if _, err := fs.pop(); err != nil {
			return err
		}
	case bytecode.OpDROPI:
		if _, err := removeAt(fs, int(instr.Operands[0])); err != nil {
			return err
		}
	case bytecode.OpDUP:
		t, err := fs.top()
		if err != nil {
			return err
		}
		fs.push(t)
	case bytecode.OpDUPI:
		t, err := peekAt(fs, int(instr.Operands[0]))
		if err != nil {
			return err
		}
		fs.push(t)
	case bytecode.OpSWAP:
		if err := swapAt(fs, 0, 1); err != nil {
			return err
		}
	case bytecode.OpSWAP2:
		// Swap top with the third-from-top element, leaving depth 1 alone.
		// The original decoder's SWAP2 case has a duplicated break after its
		// first swap; implemented once here rather than twice.
		if err := swapAt(fs, 0, 2); err != nil {
			return err
		}

	case bytecode.OpUNIT:
		fs.push(types.Unit)
	case bytecode.OpTRUE, bytecode.OpFALSE:
		fs.push(types.Bool)
	case bytecode.OpNUL, bytecode.OpUNINITIALIZED:
		// Both push the null type: treated as a reference in the bitmap.
		fs.push(types.Null)
	case bytecode.OpI8:
		fs.push(types.I8)
	case bytecode.OpI16:
		fs.push(types.I16)
	case bytecode.OpI32:
		fs.push(types.I32)
	case bytecode.OpI64:
		fs.push(types.I64)
	case bytecode.OpF32:
		fs.push(types.F32)
	case bytecode.OpF64:
		fs.push(types.F64)
	case bytecode.OpSTRING:
		fs.push(types.String)

	case bytecode.OpLDLOCAL:
		s := int(instr.Operands[0])
		if s >= 0 {
			fs.push(fn.ParameterTypes[s])
		} else {
			fs.push(fs.getLocal(s))
		}
	case bytecode.OpSTLOCAL:
		v, err := fs.pop()
		if err != nil {
			return err
		}
		if s := int(instr.Operands[0]); s < 0 {
			fs.setLocal(s, v)
		}
		// Non-negative slots name a parameter, which keeps its declared type
		// for the life of the frame: the popped value is simply discarded.

	case bytecode.OpLDG:
		fs.push(fn.Package.GetGlobal(int(instr.Operands[0])).Type)
	case bytecode.OpLDGF:
		dep := fn.Package.Dependency(int(instr.Operands[0]))
		fs.push(dep.LinkedGlobals()[instr.Operands[1]].Type)
	case bytecode.OpSTG:
		if _, err := fs.pop(); err != nil {
			return err
		}
	case bytecode.OpSTGF:
		// Pop one value only. The upstream decoder's STGF case falls
		// through into LDF's body without a break; treated as a defect and
		// not replicated here.
		if _, err := fs.pop(); err != nil {
			return err
		}

	case bytecode.OpLDF:
		declClass := resolveClassRef(fn, instr.Operands[0])
		field, declaredOn, ok := declClass.FieldByName(fieldName(fn, instr.Operands[1]))
		if !ok {
			return unknownFieldError(fn, instr, fieldName(fn, instr.Operands[1]))
		}
		receiver, err := fs.pop()
		if err != nil {
			return err
		}
		fs.push(resolveFieldType(field, receiver, declaredOn))
	case bytecode.OpLDFF:
		declClass := resolveDependencyClassRef(fn, instr.Operands[0], instr.Operands[1])
		field, declaredOn, ok := declClass.FieldByName(fieldName(fn, instr.Operands[2]))
		if !ok {
			return unknownFieldError(fn, instr, fieldName(fn, instr.Operands[2]))
		}
		receiver, err := fs.pop()
		if err != nil {
			return err
		}
		fs.push(resolveFieldType(field, receiver, declaredOn))
	case bytecode.OpSTF, bytecode.OpSTFF:
		if _, err := fs.pop(); err != nil { // value
			return err
		}
		if _, err := fs.pop(); err != nil { // receiver
			return err
		}

	case bytecode.OpLDE:
		if _, err := fs.pop(); err != nil { // index
			return err
		}
		receiver, err := fs.pop()
		if err != nil {
			return err
		}
		fs.push(receiver.EffectiveClass().ElementType)
	case bytecode.OpSTE:
		if _, err := fs.popN(3); err != nil { // value, index, receiver
			return err
		}

	case bytecode.OpALLOCOBJ, bytecode.OpALLOCOBJF, bytecode.OpALLOCARR, bytecode.OpALLOCARRF:
		return interpretAlloc(fn, instr, fs, entries)

	case bytecode.OpTYS:
		fs.pushTypeArg(fn.InstTypes[instr.Operands[0]])
	case bytecode.OpTYD:
		fs.pushTypeArg(fn.InstTypes[instr.Operands[0]])
		fs.push(types.TypeValue)
	case bytecode.OpCAST:
		refined, err := fs.popTypeArg()
		if err != nil {
			return err
		}
		if _, err := fs.pop(); err != nil {
			return err
		}
		fs.push(refined)
	case bytecode.OpCASTC:
		refined, err := fs.popTypeArg()
		if err != nil {
			return err
		}
		if _, err := fs.pop(); err != nil { // class operand
			return err
		}
		if _, err := fs.pop(); err != nil { // value
			return err
		}
		fs.push(refined)

	case bytecode.OpLABEL:
		fs.push(types.Label)

	case bytecode.OpCALLG, bytecode.OpCALLV, bytecode.OpCALLGF, bytecode.OpCALLVF:
		return interpretCall(fn, instr, fs, entries)

	case bytecode.OpPKG:
		fs.push(types.Create(types.PackageClass, nil))

	default:
		return &BuildError{Kind: ErrUnknownOpcode, Function: fn.Id, PcOffset: instr.PcOffset, Detail: instr.Op.String()}
	}
	return nil
}

// interpretAlloc applies ALLOCOBJ/ALLOCOBJF/ALLOCARR/ALLOCARRF: pop the
// array length for the ARR forms, record the safe point, pop the class's
// type arguments (skipped entirely for a builtin class id, which has none
// on the stack to pop), then construct and push the instantiated type.
func interpretAlloc(fn *Function, instr bytecode.Instruction, fs *FrameState, entries *[]safePointEntry) error {
	isArr := instr.Op == bytecode.OpALLOCARR || instr.Op == bytecode.OpALLOCARRF
	isDep := instr.Op == bytecode.OpALLOCOBJF || instr.Op == bytecode.OpALLOCARRF

	var class *types.Class
	isBuiltin := false
	if isDep {
		class = resolveDependencyClassRef(fn, instr.Operands[0], instr.Operands[1])
	} else {
		clsId := instr.Operands[0]
		isBuiltin = defs.IsBuiltinId(clsId)
		class = resolveClassRef(fn, clsId)
	}

	if isArr {
		if _, err := fs.pop(); err != nil {
			return err
		}
	}

	snapshot(fn, fs, instr.NextPc, entries)

	var typeArgs []*types.Type
	if !isBuiltin {
		args, err := fs.popTypeArgsExpect(class.TypeParamCount)
		if err != nil {
			return err
		}
		typeArgs = args
	}

	if err := checkAlloc(); err != nil {
		return err
	}

	fs.push(types.Create(class, typeArgs))
	return nil
}

// interpretCall applies CALLG/CALLV/CALLGF/CALLVF: pop the callee's
// argument values, record the safe point, then substitute and push its
// return type. This orders the safe point after the arguments are consumed
// and before the return value is pushed, matching the general framing this
// subsystem uses for every other safe-point opcode (spec §4.E; the call
// bullet's literal wording reads as popping after the snapshot, which would
// make calls the only exception to that pattern — resolved here in favor of
// consistency with ALLOC* and PUSHTRY).
func interpretCall(fn *Function, instr bytecode.Instruction, fs *FrameState, entries *[]safePointEntry) error {
	var callee *Function
	switch instr.Op {
	case bytecode.OpCALLG, bytecode.OpCALLV:
		callee = fn.Package.GetFunction(int(instr.Operands[0]))
	default: // CALLGF, CALLVF
		dep := fn.Package.Dependency(int(instr.Operands[0]))
		callee = dep.LinkedFunctions()[instr.Operands[1]]
	}

	if _, err := fs.popN(len(callee.ParameterTypes)); err != nil {
		return err
	}

	snapshot(fn, fs, instr.NextPc, entries)

	ret, err := fs.substituteReturnType(callee.TypeParamCount, callee.ReturnType)
	if err != nil {
		return err
	}
	fs.push(ret)
	return nil
}

// resolveFieldType computes a field's type as seen through receiver,
// substituting for inheritance (from the class that declared the field up
// to receiver's actual class) and then for the receiver's own bound type
// arguments — spec §4.E's LDF rule. Primitive field types pass through
// unchanged; only object-kind fields carry type parameters worth resolving.
func resolveFieldType(field types.Field, receiver *types.Type, declaredOn *types.Class) *types.Type {
	t := field.DeclaredType
	if !t.IsObject() {
		return t
	}
	t = types.SubstituteForInheritance(t, receiver.EffectiveClass(), declaredOn)
	return types.Substitute(t, receiver.GetTypeArgumentBindings())
}

func resolveClassRef(fn *Function, clsId int64) *types.Class {
	if defs.IsBuiltinId(clsId) {
		return types.BuiltinClass(defs.BuiltinId(clsId))
	}
	return fn.Package.GetClass(int(clsId))
}

func resolveDependencyClassRef(fn *Function, d, e int64) *types.Class {
	return fn.Package.Dependency(int(d)).LinkedClasses()[e]
}

func fieldName(fn *Function, idx int64) string {
	return fn.Package.GetName(int(idx)).String()
}

func unknownFieldError(fn *Function, instr bytecode.Instruction, name string) error {
	return &BuildError{
		Kind:     ErrMalformedBytecode,
		Function: fn.Id,
		PcOffset: instr.PcOffset,
		Detail:   "unknown field " + name,
	}
}

// resultType maps a FamilyArith opcode's declared result width to the
// primitive type it leaves on the stack. Never object-kind: arithmetic can
// only clear bits in a stack pointer map, never set them.
func resultType(rk bytecode.ResultKind) *types.Type {
	switch rk {
	case bytecode.ResultI8:
		return types.I8
	case bytecode.ResultI16:
		return types.I16
	case bytecode.ResultI32:
		return types.I32
	case bytecode.ResultI64:
		return types.I64
	case bytecode.ResultF32:
		return types.F32
	case bytecode.ResultF64:
		return types.F64
	default:
		return types.Bool
	}
}

// peekAt returns the operand-stack value at depth below the top (0 is the
// top itself) without removing it.
func peekAt(fs *FrameState, depth int) (*types.Type, error) {
	idx := len(fs.typeMap) - 1 - depth
	if idx < fs.localsCount {
		return nil, fs.underflow()
	}
	return fs.typeMap[idx], nil
}

// removeAt deletes and returns the operand-stack value at depth below the
// top, shifting everything above it down by one slot.
func removeAt(fs *FrameState, depth int) (*types.Type, error) {
	idx := len(fs.typeMap) - 1 - depth
	if idx < fs.localsCount {
		return nil, fs.underflow()
	}
	t := fs.typeMap[idx]
	fs.typeMap = append(fs.typeMap[:idx], fs.typeMap[idx+1:]...)
	return t, nil
}

// swapAt exchanges the operand-stack values at depths d1 and d2 below the
// top.
func swapAt(fs *FrameState, d1, d2 int) error {
	i1 := len(fs.typeMap) - 1 - d1
	i2 := len(fs.typeMap) - 1 - d2
	if i1 < fs.localsCount || i2 < fs.localsCount {
		return fs.underflow()
	}
	fs.typeMap[i1], fs.typeMap[i2] = fs.typeMap[i2], fs.typeMap[i1]
	return nil
}

// frameShape captures fs's typeMap shape for the join-agreement debug check:
// only each slot's Kind, since that's all two predecessors could ever
// legitimately disagree on.
func frameShape(fs *FrameState) []types.Kind {
	shape := make([]types.Kind, len(fs.typeMap))
	for i, t := range fs.typeMap {
		shape[i] = t.Kind
	}
	return shape
}

// checkJoinAgreement panics if block's frame shape on this arrival differs
// from the shape recorded on its first visit — only called when
// assertJoinAgreement is enabled, since verified bytecode guarantees
// agreement and a mismatch here means either malformed input or a bug in
// the interpreter itself, neither of which this subsystem's normal error
// path (BuildError) is meant to model.
func checkJoinAgreement(fn *Function, block int, fs *FrameState, shapes map[int][]types.Kind) {
	want := shapes[block]
	got := frameShape(fs)
	if len(want) != len(got) {
		panic(fmt.Sprintf("vm: join disagreement in %s at block %d: frame height %d vs %d", fn.Name, block, len(want), len(got)))
	}
	for i := range want {
		if want[i] != got[i] {
			panic(fmt.Sprintf("vm: join disagreement in %s at block %d, slot %d: %s vs %s", fn.Name, block, i, want[i], got[i]))
		}
	}
}
