// Package nn compiles a genome's node/connection graph into a
// slice-indexed phenotype that can be activated repeatedly without
// re-walking the genome's maps on every call, trading compile cost once
// for faster repeated evaluation during a fitness run.
package nn

import (
	"sort"

	"github.com/pkg/errors"

	"github.com/halvorsen-ml/neatgo/neat"
)

// inputEdge is one precomputed incoming connection to a compiled node.
type inputEdge struct {
	sourceIndex int
	weight      float64
}

type compiledNode struct {
	key        int
	kind       neat.NodeKind
	bias       float64
	activation neat.ActivationFunc
	inputs     []inputEdge
}

// FeedForwardNetwork is a compiled, slice-indexed phenotype built once
// from a genome's current structure. Mutating the source genome does not
// update an already-compiled network; recompile after mutation.
type FeedForwardNetwork struct {
	nodes         []compiledNode
	inputIndices  []int
	outputIndices []int
	evalOrder     []int // node indices in topological order, inputs excluded
	numInputs     int
}

// CreateFeedForwardNetwork builds a FeedForwardNetwork from g's current
// enabled connections, assigning each node a slice index (by ascending
// node key, so input ids sort before output ids, which sort before any
// hidden id allocated later) and computing a topological evaluation order
// with Kahn's algorithm over the enabled-connection subgraph.
func CreateFeedForwardNetwork(g *neat.Genome) (*FeedForwardNetwork, error) {
	keys := make([]int, 0, len(g.Nodes))
	for k := range g.Nodes {
		keys = append(keys, k)
	}
	sort.Ints(keys)

	indexOf := make(map[int]int, len(keys))
	for i, k := range keys {
		indexOf[k] = i
	}

	nodes := make([]compiledNode, len(keys))
	var inputIndices, outputIndices []int
	for i, k := range keys {
		ng := g.Nodes[k]
		fn, err := neat.GetActivation(ng.Activation)
		if err != nil {
			return nil, errors.Wrapf(err, "node %d", k)
		}
		nodes[i] = compiledNode{key: k, kind: ng.Kind, bias: ng.Bias, activation: fn}
		switch ng.Kind {
		case neat.NodeInput:
			inputIndices = append(inputIndices, i)
		case neat.NodeOutput:
			outputIndices = append(outputIndices, i)
		}
	}

	indegree := make([]int, len(nodes))
	adjacency := make([][]int, len(nodes))
	for _, conn := range g.Connections {
		if !conn.Enabled {
			continue
		}
		srcIdx := indexOf[conn.Key.InNodeID]
		tgtIdx := indexOf[conn.Key.OutNodeID]
		nodes[tgtIdx].inputs = append(nodes[tgtIdx].inputs, inputEdge{sourceIndex: srcIdx, weight: conn.Weight})
		adjacency[srcIdx] = append(adjacency[srcIdx], tgtIdx)
		indegree[tgtIdx]++
	}

	queue := make([]int, 0, len(nodes))
	queued := make([]bool, len(nodes))
	for i, n := range nodes {
		if n.kind == neat.NodeInput || indegree[i] == 0 {
			queue = append(queue, i)
			queued[i] = true
		}
	}
	evalOrder := make([]int, 0, len(nodes))
	for len(queue) > 0 {
		idx := queue[0]
		queue = queue[1:]
		if nodes[idx].kind != neat.NodeInput {
			evalOrder = append(evalOrder, idx)
		}
		for _, next := range adjacency[idx] {
			indegree[next]--
			if indegree[next] == 0 && !queued[next] {
				queue = append(queue, next)
				queued[next] = true
			}
		}
	}

	return &FeedForwardNetwork{
		nodes:         nodes,
		inputIndices:  inputIndices,
		outputIndices: outputIndices,
		evalOrder:     evalOrder,
		numInputs:     len(inputIndices),
	}, nil
}

// Activate runs one forward pass over the compiled network. A node with
// no incoming edges still activates on its bias, matching
// neat.Genome.Activate's contract.
func (n *FeedForwardNetwork) Activate(inputs []float64) ([]float64, error) {
	if len(inputs) != n.numInputs {
		return nil, errors.Wrapf(neat.ErrInvalidInputShape, "expected %d inputs, got %d", n.numInputs, len(inputs))
	}

	values := make([]float64, len(n.nodes))
	for i, idx := range n.inputIndices {
		values[idx] = inputs[i]
	}

	for _, idx := range n.evalOrder {
		node := n.nodes[idx]
		sum := node.bias
		for _, e := range node.inputs {
			sum += e.weight * values[e.sourceIndex]
		}
		values[idx] = node.activation(sum)
	}

	outputs := make([]float64, len(n.outputIndices))
	for i, idx := range n.outputIndices {
		outputs[i] = values[idx]
	}
	return outputs, nil
}
