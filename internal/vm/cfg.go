/*
 * Copyright 2021 ByteDance Inc.
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
	"gonum.org/v1/gonum/graph/simple"
	"gonum.org/v1/gonum/graph/topo"

	"github.com/csvm/codeswitch/internal/bytecode"
)

// BasicBlock is one node of a function's control-flow graph: its entry block
// index and the blocks it may transfer control to. The map builder builds
// this graph to validate block indices before its walk; the worklist
// (§4.E) itself re-decodes each block's terminator to find successors.
type BasicBlock struct {
	Id   int
	Link []*BasicBlock
}

// Free releases b and every block reachable from it back to the pool, BFS
// over Link exactly like the teacher's own BasicBlock teardown — a function's
// graph is only needed for the duration of one build, so it's recycled
// afterward rather than left for the GC.
func (b *BasicBlock) Free() {
	q := lane.NewQueue()
	seen := make(map[*BasicBlock]struct{})

	for q.Enqueue(b); !q.Empty(); {
		p := q.Dequeue().(*BasicBlock)
		if _, ok := seen[p]; ok {
			continue
		}
		seen[p] = struct{}{}

		for _, link := range p.Link {
			if _, ok := seen[link]; !ok {
				q.Enqueue(link)
			}
		}
	}

	for p := range seen {
		p.Link = nil
		freePooledBasicBlock(p)
	}
}

// buildBlockGraph decodes every basic block of fn just far enough to find its
// terminating instruction, validating that every control-flow opcode targets
// an in-range block index (spec §3) and linking each block to its
// successors.
func buildBlockGraph(fn *Function) ([]*BasicBlock, error) {
	nodes := make([]*BasicBlock, len(fn.BlockOffsets))
	for i := range nodes {
		nodes[i] = newPooledBasicBlock()
		nodes[i].Id = i
	}

	for i, start := range fn.BlockOffsets {
		successors, err := scanTerminator(fn, start)
		if err != nil {
			return nil, err
		}
		for _, s := range successors {
			if s < 0 || s >= len(nodes) {
				return nil, &BuildError{
					Kind:     ErrBadBlockIndex,
					Function: fn.Id,
					PcOffset: start,
					Detail:   fmt.Sprintf("block index %d out of range (%d blocks)", s, len(nodes)),
				}
			}
			nodes[i].Link = append(nodes[i].Link, nodes[s])
		}
	}

	return nodes, nil
}

// scanTerminator decodes instructions sequentially from pc until it reaches
// this block's terminating opcode, then returns the block indices it may
// transfer control to (empty for RET/THROW).
func scanTerminator(fn *Function, pc int) ([]int, error) {
	for {
		instr, err := bytecode.Decode(fn.Instructions, pc)
		if err != nil {
			return nil, &BuildError{Kind: ErrMalformedBytecode, Function: fn.Id, PcOffset: pc, Detail: err.Error()}
		}

		if !instr.Op.IsBlockTerminator() {
			pc = instr.NextPc
			continue
		}

		switch instr.Op {
		case bytecode.OpBRANCH:
			return []int{int(instr.Operands[0])}, nil
		case bytecode.OpBRANCHIF, bytecode.OpCASTCBR:
			return []int{int(instr.Operands[0]), int(instr.Operands[1])}, nil
		case bytecode.OpBRANCHL:
			n := int(instr.Operands[0])
			out := make([]int, n)
			for i := 0; i < n; i++ {
				out[i] = int(instr.Operands[1+i])
			}
			return out, nil
		case bytecode.OpPUSHTRY:
			return []int{int(instr.Operands[0]), int(instr.Operands[1])}, nil
		case bytecode.OpPOPTRY:
			return []int{int(instr.Operands[0])}, nil
		default: // THROW, RET
			return nil, nil
		}
	}
}

// validateOverrideDAG checks that fn's override chain (spec §3, "overrides
// form a DAG with a unique least override") is acyclic, walking every
// Function transitively reachable through Overrides.
func validateOverrideDAG(fn *Function) error {
	g := simple.NewDirectedGraph()
	ids := make(map[*Function]int64)

	var nodeID func(f *Function) int64
	nodeID = func(f *Function) int64 {
		if id, ok := ids[f]; ok {
			return id
		}
		id := int64(len(ids))
		ids[f] = id
		g.AddNode(simple.Node(id))
		return id
	}

	visited := make(map[*Function]bool)
	var visit func(f *Function)
	visit = func(f *Function) {
		if visited[f] {
			return
		}
		visited[f] = true
		from := nodeID(f)
		for _, parent := range f.Overrides {
			to := nodeID(parent)
			g.SetEdge(simple.Edge{F: simple.Node(from), T: simple.Node(to)})
			visit(parent)
		}
	}
	visit(fn)

	if _, err := topo.Sort(g); err != nil {
		return &BuildError{
			Kind:     ErrMalformedBytecode,
			Function: fn.Id,
			Detail:   "override chain is not a DAG: " + err.Error(),
		}
	}
	return nil
}
