package neat

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testConfig() *Config {
	cfg := DefaultConfig()
	cfg.NeuralNetwork.NumInputs = 2
	cfg.NeuralNetwork.NumOutputs = 1
	cfg.NeuralNetwork.InputActivation = "linear"
	cfg.NeuralNetwork.OutputActivation = "linear"
	return cfg
}

func newTestGenome(t *testing.T, seed int64) *Genome {
	cfg := testConfig()
	rnd := rand.New(rand.NewSource(seed))
	g := NewGenome(1, cfg, NewInnovationRegistry(), NewNodeKeyAllocator(cfg.NeuralNetwork.NumInputs+cfg.NeuralNetwork.NumOutputs), rnd)
	require.NoError(t, g.ConfigureNew())
	return g
}

func TestConfigureNewWiresOneConnection(t *testing.T) {
	g := newTestGenome(t, 1)
	assert.Len(t, g.Nodes, 3)
	assert.Len(t, g.Connections, 1)
}

func TestAddConnectionRejectsSelfLoop(t *testing.T) {
	g := newTestGenome(t, 1)
	err := g.AddConnection(1, 1)
	assert.ErrorIs(t, err, ErrStructuralViolation)
}

func TestAddConnectionRejectsDuplicate(t *testing.T) {
	g := newTestGenome(t, 1)
	for key := range g.Connections {
		err := g.AddConnection(key.InNodeID, key.OutNodeID)
		assert.ErrorIs(t, err, ErrStructuralViolation)
	}
}

func TestAddConnectionRejectsOutputAsSource(t *testing.T) {
	g := newTestGenome(t, 1)
	err := g.AddConnection(3, 1)
	assert.ErrorIs(t, err, ErrStructuralViolation)
}

func TestAddConnectionRejectsInputAsTarget(t *testing.T) {
	g := newTestGenome(t, 1)
	err := g.AddConnection(1, 2)
	assert.ErrorIs(t, err, ErrStructuralViolation)
}

// TestCycleRejection builds a 3-node hidden chain A(4)->B(5)->C(6) and
// asserts that wiring C back to A is rejected by the cycle check (neither
// node is an input or output, so no other violation would fire first)
// without mutating the connection list.
func TestCycleRejection(t *testing.T) {
	g := newTestGenome(t, 1)
	g.Nodes[4] = &NodeGene{Key: 4, Kind: NodeHidden, Activation: "linear"}
	g.Nodes[5] = &NodeGene{Key: 5, Kind: NodeHidden, Activation: "linear"}
	g.Nodes[6] = &NodeGene{Key: 6, Kind: NodeHidden, Activation: "linear"}
	require.NoError(t, g.AddConnection(4, 5))
	require.NoError(t, g.AddConnection(5, 6))

	before := len(g.Connections)
	err := g.AddConnection(6, 4)
	assert.ErrorIs(t, err, ErrStructuralViolation)
	assert.True(t, g.WouldCreateCycle(6, 4))
	assert.Len(t, g.Connections, before)
}

func TestInnovationReuseAcrossIndependentGenomes(t *testing.T) {
	registry := NewInnovationRegistry()
	cfg := testConfig()

	g1 := NewGenome(1, cfg, registry, NewNodeKeyAllocator(3), rand.New(rand.NewSource(1)))
	g1.Nodes[1] = &NodeGene{Key: 1, Kind: NodeInput, Activation: "linear"}
	g1.Nodes[2] = &NodeGene{Key: 2, Kind: NodeOutput, Activation: "linear"}
	require.NoError(t, g1.AddConnection(1, 2))

	g2 := NewGenome(2, cfg, registry, NewNodeKeyAllocator(3), rand.New(rand.NewSource(2)))
	g2.Nodes[1] = &NodeGene{Key: 1, Kind: NodeInput, Activation: "linear"}
	g2.Nodes[2] = &NodeGene{Key: 2, Kind: NodeOutput, Activation: "linear"}
	require.NoError(t, g2.AddConnection(1, 2))

	assert.Equal(t, g1.Connections[ConnectionKey{InNodeID: 1, OutNodeID: 2}].Innovation,
		g2.Connections[ConnectionKey{InNodeID: 1, OutNodeID: 2}].Innovation)
}

// TestSingleNodeEvaluation constructs a single enabled connection of
// weight 2.0, output bias 0.5, linear activations throughout, and asserts
// feed_forward([3.0]) == [6.5].
func TestSingleNodeEvaluation(t *testing.T) {
	cfg := testConfig()
	cfg.NeuralNetwork.NumInputs = 1
	cfg.NeuralNetwork.NumOutputs = 1
	rnd := rand.New(rand.NewSource(1))
	g := NewGenome(1, cfg, NewInnovationRegistry(), NewNodeKeyAllocator(2), rnd)
	g.Nodes[1] = &NodeGene{Key: 1, Kind: NodeInput, Activation: "linear"}
	g.Nodes[2] = &NodeGene{Key: 2, Kind: NodeOutput, Activation: "linear", Bias: 0.5}
	g.Connections[ConnectionKey{InNodeID: 1, OutNodeID: 2}] = &ConnectionGene{
		Key:        ConnectionKey{InNodeID: 1, OutNodeID: 2},
		Innovation: 1,
		Weight:     2.0,
		Enabled:    true,
	}

	outputs, err := g.Activate([]float64{3.0})
	require.NoError(t, err)
	require.Len(t, outputs, 1)
	assert.InDelta(t, 6.5, outputs[0], 1e-9)
}

// TestSingleNodeEvaluationWithNoIncomingEdges verifies that a node with
// zero enabled incoming connections still activates on its bias rather
// than on a bare 0, per feed_forward's "agg_input + bias" contract.
func TestSingleNodeEvaluationWithNoIncomingEdges(t *testing.T) {
	cfg := testConfig()
	cfg.NeuralNetwork.NumInputs = 1
	cfg.NeuralNetwork.NumOutputs = 1
	rnd := rand.New(rand.NewSource(1))
	g := NewGenome(1, cfg, NewInnovationRegistry(), NewNodeKeyAllocator(2), rnd)
	g.Nodes[1] = &NodeGene{Key: 1, Kind: NodeInput, Activation: "linear"}
	g.Nodes[2] = &NodeGene{Key: 2, Kind: NodeOutput, Activation: "linear", Bias: 0.75}

	outputs, err := g.Activate([]float64{3.0})
	require.NoError(t, err)
	require.Len(t, outputs, 1)
	assert.InDelta(t, 0.75, outputs[0], 1e-9)
}

func TestActivateRejectsWrongInputShape(t *testing.T) {
	g := newTestGenome(t, 1)
	_, err := g.Activate([]float64{1.0})
	assert.ErrorIs(t, err, ErrInvalidInputShape)
}

func TestActivateReturnsFiniteOutputs(t *testing.T) {
	g := newTestGenome(t, 1)
	for i := 0; i < 20; i++ {
		g.Mutate()
	}
	outputs, err := g.Activate([]float64{0.5, -0.3})
	require.NoError(t, err)
	require.Len(t, outputs, g.Config.NeuralNetwork.NumOutputs)
	for _, v := range outputs {
		assert.False(t, isNaNOrInf(v))
	}
}

func isNaNOrInf(v float64) bool {
	return v != v || v > 1e308 || v < -1e308
}

func TestCloneRoundTrip(t *testing.T) {
	g := newTestGenome(t, 1)
	for i := 0; i < 5; i++ {
		g.Mutate()
	}
	clone := g.Clone()

	assert.Equal(t, len(g.Nodes), len(clone.Nodes))
	assert.Equal(t, len(g.Connections), len(clone.Connections))

	inputs := []float64{0.2, 0.7}
	out1, err := g.Activate(inputs)
	require.NoError(t, err)
	out2, err := clone.Activate(inputs)
	require.NoError(t, err)
	assert.Equal(t, out1, out2)
}

func TestDistanceSelfIsZeroAndSymmetric(t *testing.T) {
	g1 := newTestGenome(t, 1)
	g2 := newTestGenome(t, 2)

	assert.Equal(t, 0.0, g1.Distance(g1))
	assert.InDelta(t, g1.Distance(g2), g2.Distance(g1), 1e-12)
}

func TestCrossoverOfIdenticalParentsCollapsesToClone(t *testing.T) {
	g := newTestGenome(t, 1)
	g.Fitness = 1.0

	rnd := rand.New(rand.NewSource(5))
	child := NewGenome(99, g.Config, g.Innovations, g.NodeKeys, rnd)
	child.ConfigureCrossover(g, g)

	assert.Equal(t, len(g.Nodes), len(child.Nodes))
	assert.Equal(t, len(g.Connections), len(child.Connections))
	for key, node := range g.Nodes {
		assert.Equal(t, node.Bias, child.Nodes[key].Bias)
		assert.Equal(t, node.Activation, child.Nodes[key].Activation)
	}
	for key, conn := range g.Connections {
		assert.Equal(t, conn.Weight, child.Connections[key].Weight)
	}
}

func TestMutateAddRandomNodeIncreasesNodeCount(t *testing.T) {
	g := newTestGenome(t, 1)
	before := len(g.Nodes)
	g.mutateAddRandomNode()
	assert.Greater(t, len(g.Nodes), before)
}

func TestMutateIsNoOpSafeWithZeroRates(t *testing.T) {
	g := newTestGenome(t, 1)
	g.Config.MutationRates = MutationRatesConfig{}
	assert.NotPanics(t, func() { g.Mutate() })
}
