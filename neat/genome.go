package neat

import (
	"math"
	"math/rand"
	"sort"

	"github.com/pkg/errors"
)

// Genetic distance coefficients from the source: disjoint and excess genes
// weigh equally (c1, c2); matching-connection weight difference is damped
// by c3.
const (
	distanceDisjointCoefficient = 1.0
	distanceExcessCoefficient   = 1.0
	distanceWeightCoefficient   = 0.6
)

// Genome wraps a network (nodes and connections, stored by value in this
// genome's own arena) with fitness bookkeeping and the shared population
// context needed for structural mutation: an innovation registry, a node
// key allocator, and a random source. Config/Innovations/NodeKeys/Rand are
// borrowed pointers, shared across every genome in a population, and are
// never serialized with the genome itself.
type Genome struct {
	Key               int
	Nodes             map[int]*NodeGene
	Connections       map[ConnectionKey]*ConnectionGene
	Fitness           float64
	NormalizedFitness float64
	AdjustedFitness   float64
	Normalizer        *Normalizer

	Config      *Config             `yaml:"-"`
	Innovations *InnovationRegistry `yaml:"-"`
	NodeKeys    *NodeKeyAllocator   `yaml:"-"`
	Rand        *rand.Rand          `yaml:"-"`
}

// NewGenome allocates an empty genome bound to the given shared context.
// Callers follow with ConfigureNew or ConfigureCrossover to populate it.
func NewGenome(key int, cfg *Config, innovations *InnovationRegistry, nodeKeys *NodeKeyAllocator, rnd *rand.Rand) *Genome {
	g := &Genome{
		Key:         key,
		Nodes:       make(map[int]*NodeGene),
		Connections: make(map[ConnectionKey]*ConnectionGene),
		Config:      cfg,
		Innovations: innovations,
		NodeKeys:    nodeKeys,
		Rand:        rnd,
	}
	if cfg.NeuralNetwork.UseNormalizer {
		g.Normalizer = NewNormalizer(cfg.NeuralNetwork.NumInputs)
	}
	return g
}

// ConfigureNew allocates num_inputs + num_outputs nodes with fixed ids
// (1..num_inputs for inputs, num_inputs+1..num_inputs+num_outputs for
// outputs) and wires a single random input->output connection.
func (g *Genome) ConfigureNew() error {
	numIn := g.Config.NeuralNetwork.NumInputs
	numOut := g.Config.NeuralNetwork.NumOutputs
	if numIn == 0 || numOut == 0 {
		return errors.Wrap(ErrInvalidInputShape, "genome: num_inputs and num_outputs must both be >= 1")
	}

	for key := 1; key <= numIn; key++ {
		g.Nodes[key] = &NodeGene{Key: key, Kind: NodeInput, Activation: g.Config.NeuralNetwork.InputActivation, Bias: g.Rand.Float64()*2 - 1}
	}
	for i := 0; i < numOut; i++ {
		key := numIn + 1 + i
		g.Nodes[key] = &NodeGene{Key: key, Kind: NodeOutput, Activation: g.Config.NeuralNetwork.OutputActivation, Bias: g.Rand.Float64()*2 - 1}
	}

	src := 1 + g.Rand.Intn(numIn)
	tgt := numIn + 1 + g.Rand.Intn(numOut)
	return g.AddConnection(src, tgt)
}

// AddConnection wires src->tgt, rejecting duplicates, cycles, and illegal
// endpoints (self-loops, sourcing from an output, targeting an input).
func (g *Genome) AddConnection(src, tgt int) error {
	if src == tgt {
		return errors.Wrapf(ErrStructuralViolation, "node %d cannot connect to itself", src)
	}
	srcNode, ok := g.Nodes[src]
	if !ok {
		return errors.Wrapf(ErrStructuralViolation, "source node %d does not exist", src)
	}
	tgtNode, ok := g.Nodes[tgt]
	if !ok {
		return errors.Wrapf(ErrStructuralViolation, "target node %d does not exist", tgt)
	}
	if srcNode.Kind == NodeOutput {
		return errors.Wrapf(ErrStructuralViolation, "node %d is an output and cannot source a connection", src)
	}
	if tgtNode.Kind == NodeInput {
		return errors.Wrapf(ErrStructuralViolation, "node %d is an input and cannot be targeted", tgt)
	}
	key := ConnectionKey{InNodeID: src, OutNodeID: tgt}
	if _, exists := g.Connections[key]; exists {
		return errors.Wrapf(ErrStructuralViolation, "connection %d->%d already exists", src, tgt)
	}
	if g.WouldCreateCycle(src, tgt) {
		return errors.Wrapf(ErrStructuralViolation, "connection %d->%d would create a cycle", src, tgt)
	}
	g.Connections[key] = &ConnectionGene{
		Key:        key,
		Innovation: g.Innovations.FindOrCreate(src, tgt),
		Weight:     g.Rand.Float64()*2 - 1,
		Enabled:    true,
	}
	return nil
}

// WouldCreateCycle reports whether adding src->tgt to the enabled-connection
// subgraph would introduce a cycle: true iff tgt can already reach src.
func (g *Genome) WouldCreateCycle(src, tgt int) bool {
	if src == tgt {
		return true
	}
	visited := make(map[int]bool)
	stack := []int{tgt}
	for len(stack) > 0 {
		n := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if n == src {
			return true
		}
		if visited[n] {
			continue
		}
		visited[n] = true
		for key, conn := range g.Connections {
			if conn.Enabled && key.InNodeID == n {
				stack = append(stack, key.OutNodeID)
			}
		}
	}
	return false
}

// Activate runs a topologically-ordered forward pass: reset every node,
// mark inputs ready, then repeatedly resolve any non-ready node whose
// enabled incoming edges all originate at ready nodes. Every non-input
// node sums its bias with its weighted inputs, so a node with no enabled
// incoming edges is activated on its bias alone.
func (g *Genome) Activate(inputs []float64) ([]float64, error) {
	numIn := g.Config.NeuralNetwork.NumInputs
	if len(inputs) != numIn {
		return nil, errors.Wrapf(ErrInvalidInputShape, "expected %d inputs, got %d", numIn, len(inputs))
	}
	if g.Normalizer != nil {
		g.Normalizer.Observe(inputs)
		inputs = g.Normalizer.Normalize(inputs)
	}

	ready := make(map[int]bool, len(g.Nodes))
	values := make(map[int]float64, len(g.Nodes))
	for key := range g.Nodes {
		ready[key] = false
		values[key] = 0
	}
	for i := 0; i < numIn; i++ {
		key := i + 1
		values[key] = inputs[i]
		ready[key] = true
	}

	incoming := make(map[int][]*ConnectionGene)
	for _, conn := range g.Connections {
		if conn.Enabled {
			incoming[conn.Key.OutNodeID] = append(incoming[conn.Key.OutNodeID], conn)
		}
	}

	pending := len(g.Nodes) - numIn
	for pending > 0 {
		progressed := false
		for key, node := range g.Nodes {
			if ready[key] {
				continue
			}
			edges := incoming[key]
			allReady := true
			for _, e := range edges {
				if !ready[e.Key.InNodeID] {
					allReady = false
					break
				}
			}
			if !allReady {
				continue
			}
			sum := node.Bias
			for _, e := range edges {
				sum += e.Weight * values[e.Key.InNodeID]
			}
			fn, err := GetActivation(node.Activation)
			if err != nil {
				return nil, errors.Wrapf(err, "node %d", key)
			}
			values[key] = fn(sum)
			ready[key] = true
			pending--
			progressed = true
		}
		if !progressed {
			return nil, errors.Wrap(ErrStructuralViolation, "feed_forward: enabled connections form a cycle")
		}
	}

	outputKeys := g.nodeKeysByKind(NodeOutput)
	sort.Ints(outputKeys)
	outputs := make([]float64, len(outputKeys))
	for i, key := range outputKeys {
		outputs[i] = values[key]
	}
	return outputs, nil
}

// mutateAddRandomNode splits a uniformly random enabled connection,
// inserting a new hidden node between its endpoints and disabling the
// original. Rolls back to a no-op if either replacement connection fails.
func (g *Genome) mutateAddRandomNode() {
	enabled := g.enabledConnectionKeys()
	if len(enabled) == 0 {
		return
	}
	splitKey := enabled[g.Rand.Intn(len(enabled))]
	original := g.Connections[splitKey]
	wasEnabled := original.Enabled
	original.Enabled = false

	newKey := g.NodeKeys.Next()
	names := ActivationNames()
	newNode := &NodeGene{Key: newKey, Kind: NodeHidden, Activation: names[g.Rand.Intn(len(names))], Bias: g.Rand.Float64()*2 - 1}
	g.Nodes[newKey] = newNode

	if err := g.AddConnection(splitKey.InNodeID, newKey); err != nil {
		delete(g.Nodes, newKey)
		original.Enabled = wasEnabled
		return
	}
	if err := g.AddConnection(newKey, splitKey.OutNodeID); err != nil {
		delete(g.Connections, ConnectionKey{InNodeID: splitKey.InNodeID, OutNodeID: newKey})
		delete(g.Nodes, newKey)
		original.Enabled = wasEnabled
		return
	}
}

// mutateAddRandomConnection tries up to 10 random (non-output source,
// non-input target) pairs, stopping at the first one AddConnection
// accepts. No-op if every attempt fails.
func (g *Genome) mutateAddRandomConnection() {
	sources := g.nodeKeysNotOfKind(NodeOutput)
	targets := g.nodeKeysNotOfKind(NodeInput)
	if len(sources) == 0 || len(targets) == 0 {
		return
	}
	for attempt := 0; attempt < 10; attempt++ {
		src := sources[g.Rand.Intn(len(sources))]
		tgt := targets[g.Rand.Intn(len(targets))]
		if err := g.AddConnection(src, tgt); err == nil {
			return
		}
	}
}

// mutateRemoveRandomNode removes a uniformly random hidden node along with
// every connection incident to it. No-op if there are no hidden nodes.
func (g *Genome) mutateRemoveRandomNode() {
	hidden := g.nodeKeysByKind(NodeHidden)
	if len(hidden) == 0 {
		return
	}
	key := hidden[g.Rand.Intn(len(hidden))]
	delete(g.Nodes, key)
	for ck := range g.Connections {
		if ck.InNodeID == key || ck.OutNodeID == key {
			delete(g.Connections, ck)
		}
	}
}

// mutateChangeRandomWeight perturbs a uniformly random enabled connection's
// weight by Gaussian noise (mean -0.1, stddev 0.1).
func (g *Genome) mutateChangeRandomWeight() {
	enabled := g.enabledConnectionKeys()
	if len(enabled) == 0 {
		return
	}
	key := enabled[g.Rand.Intn(len(enabled))]
	g.Connections[key].Weight += g.Rand.NormFloat64()*0.1 - 0.1
}

// mutateChangeRandomBias perturbs a uniformly random non-input node's bias
// by Gaussian noise (mean -0.1, stddev 0.1).
func (g *Genome) mutateChangeRandomBias() {
	candidates := g.nodeKeysNotOfKind(NodeInput)
	if len(candidates) == 0 {
		return
	}
	key := candidates[g.Rand.Intn(len(candidates))]
	g.Nodes[key].Bias += g.Rand.NormFloat64()*0.1 - 0.1
}

// mutateChangeRandomActivation reassigns a uniformly random non-input
// node's activation to a uniformly random registry entry.
func (g *Genome) mutateChangeRandomActivation() {
	candidates := g.nodeKeysNotOfKind(NodeInput)
	if len(candidates) == 0 {
		return
	}
	key := candidates[g.Rand.Intn(len(candidates))]
	names := ActivationNames()
	g.Nodes[key].Activation = names[g.Rand.Intn(len(names))]
}

// mutateToggleRandomConnection flips the enabled flag of a uniformly
// random enabled connection.
func (g *Genome) mutateToggleRandomConnection() {
	enabled := g.enabledConnectionKeys()
	if len(enabled) == 0 {
		return
	}
	key := enabled[g.Rand.Intn(len(enabled))]
	g.Connections[key].Enabled = !g.Connections[key].Enabled
}

type mutationCategory struct {
	rate float64
	fn   func(*Genome)
}

// Mutate samples exactly one of the seven mutation categories, weighted
// by the configured rates normalized into a probability distribution, and
// applies it.
func (g *Genome) Mutate() {
	categories := [...]mutationCategory{
		{g.Config.MutationRates.AddNode, (*Genome).mutateAddRandomNode},
		{g.Config.MutationRates.AddConnection, (*Genome).mutateAddRandomConnection},
		{g.Config.MutationRates.ChangeWeight, (*Genome).mutateChangeRandomWeight},
		{g.Config.MutationRates.ChangeActivation, (*Genome).mutateChangeRandomActivation},
		{g.Config.MutationRates.ToggleConnection, (*Genome).mutateToggleRandomConnection},
		{g.Config.MutationRates.ChangeBias, (*Genome).mutateChangeRandomBias},
		{g.Config.MutationRates.RemoveNode, (*Genome).mutateRemoveRandomNode},
	}
	total := 0.0
	for _, c := range categories {
		total += c.rate
	}
	if total <= 0 {
		return
	}
	pick := g.Rand.Float64() * total
	cumulative := 0.0
	for _, c := range categories {
		cumulative += c.rate
		if pick < cumulative {
			c.fn(g)
			return
		}
	}
	categories[len(categories)-1].fn(g)
}

// ConfigureCrossover builds g as the offspring of parent1 and parent2. The
// fitter parent supplies every disjoint/excess gene outright. For a
// connection shared by both parents, the child's weight is taken from
// either parent with equal probability. For a node shared by both, the
// child's bias is taken from either parent with equal probability, and its
// activation is always taken from the less-fit parent (an intentional
// asymmetry, preserved from the source).
func (g *Genome) ConfigureCrossover(parent1, parent2 *Genome) {
	fitter, other := parent1, parent2
	if other.Fitness > fitter.Fitness {
		fitter, other = other, fitter
	}

	g.Config = fitter.Config
	g.Innovations = fitter.Innovations
	g.NodeKeys = fitter.NodeKeys
	g.Rand = fitter.Rand
	if fitter.Normalizer != nil {
		g.Normalizer = fitter.Normalizer.Clone()
	}

	for key, node := range fitter.Nodes {
		child := node.Copy()
		if otherNode, ok := other.Nodes[key]; ok {
			if g.Rand.Float64() < 0.5 {
				child.Bias = otherNode.Bias
			}
			child.Activation = otherNode.Activation
		}
		g.Nodes[key] = child
	}

	for key, conn := range fitter.Connections {
		child := conn.Copy()
		if otherConn, ok := other.Connections[key]; ok && g.Rand.Float64() < 0.5 {
			child.Weight = otherConn.Weight
		}
		g.Connections[key] = child
	}
}

// Distance returns the genetic distance between g and other: the sum of a
// node term and a connection term, each combining disjoint/excess gene
// counts with coefficients 1.0/1.0 and (for connections) the 0.6-weighted
// sum of absolute weight differences over matching genes, each term
// divided by the larger of the two genomes' gene counts. Because this
// implementation's excess count coincides with its disjoint count, the
// effective coefficient on the symmetric difference is 2.0 in both
// terms — the source's behavior, preserved for reproducibility.
func (g *Genome) Distance(other *Genome) float64 {
	return g.nodeDistance(other) + g.connectionDistance(other)
}

func (g *Genome) nodeDistance(other *Genome) float64 {
	maxSize := maxInt(len(g.Nodes), len(other.Nodes))
	if maxSize == 0 {
		return 0
	}
	disjoint, excess := setDifference(nodeKeySet(g.Nodes), nodeKeySet(other.Nodes))
	return (distanceExcessCoefficient*float64(excess) + distanceDisjointCoefficient*float64(disjoint)) / float64(maxSize)
}

func (g *Genome) connectionDistance(other *Genome) float64 {
	maxSize := maxInt(len(g.Connections), len(other.Connections))
	if maxSize == 0 {
		return 0
	}
	innovA := make(map[int]float64, len(g.Connections))
	for _, c := range g.Connections {
		innovA[c.Innovation] = c.Weight
	}
	innovB := make(map[int]float64, len(other.Connections))
	for _, c := range other.Connections {
		innovB[c.Innovation] = c.Weight
	}
	setA := make(map[int]bool, len(innovA))
	for k := range innovA {
		setA[k] = true
	}
	setB := make(map[int]bool, len(innovB))
	for k := range innovB {
		setB[k] = true
	}
	disjoint, excess := setDifference(setA, setB)

	weightDiff := 0.0
	for k, wa := range innovA {
		if wb, ok := innovB[k]; ok {
			weightDiff += math.Abs(wa - wb)
		}
	}

	return (distanceExcessCoefficient*float64(excess) + distanceDisjointCoefficient*float64(disjoint) + distanceWeightCoefficient*weightDiff) / float64(maxSize)
}

// setDifference returns (disjoint, excess) for two id sets, where
// disjoint is the symmetric difference size and excess is
// |union| - |intersection| (numerically identical here, kept as two
// return values to mirror spec.md's formula shape).
func setDifference(a, b map[int]bool) (disjoint, excess int) {
	union := make(map[int]bool, len(a)+len(b))
	intersection := 0
	for k := range a {
		union[k] = true
		if b[k] {
			intersection++
		}
	}
	for k := range b {
		union[k] = true
	}
	for k := range union {
		if a[k] != b[k] {
			disjoint++
		}
	}
	excess = len(union) - intersection
	return disjoint, excess
}

func nodeKeySet(nodes map[int]*NodeGene) map[int]bool {
	set := make(map[int]bool, len(nodes))
	for k := range nodes {
		set[k] = true
	}
	return set
}

// Clone returns a deep copy of g, including its network and normalizer
// state. The shared population context (config, innovation registry, node
// key allocator, random source) is carried by reference, not copied.
func (g *Genome) Clone() *Genome {
	clone := &Genome{
		Key:               g.Key,
		Nodes:             make(map[int]*NodeGene, len(g.Nodes)),
		Connections:       make(map[ConnectionKey]*ConnectionGene, len(g.Connections)),
		Fitness:           g.Fitness,
		NormalizedFitness: g.NormalizedFitness,
		AdjustedFitness:   g.AdjustedFitness,
		Config:            g.Config,
		Innovations:       g.Innovations,
		NodeKeys:          g.NodeKeys,
		Rand:              g.Rand,
	}
	for k, v := range g.Nodes {
		clone.Nodes[k] = v.Copy()
	}
	for k, v := range g.Connections {
		clone.Connections[k] = v.Copy()
	}
	if g.Normalizer != nil {
		clone.Normalizer = g.Normalizer.Clone()
	}
	return clone
}

func (g *Genome) enabledConnectionKeys() []ConnectionKey {
	keys := make([]ConnectionKey, 0, len(g.Connections))
	for k, c := range g.Connections {
		if c.Enabled {
			keys = append(keys, k)
		}
	}
	return keys
}

func (g *Genome) nodeKeysByKind(kind NodeKind) []int {
	keys := make([]int, 0, len(g.Nodes))
	for k, n := range g.Nodes {
		if n.Kind == kind {
			keys = append(keys, k)
		}
	}
	return keys
}

func (g *Genome) nodeKeysNotOfKind(kind NodeKind) []int {
	keys := make([]int, 0, len(g.Nodes))
	for k, n := range g.Nodes {
		if n.Kind != kind {
			keys = append(keys, k)
		}
	}
	return keys
}

// genomeWire is the on-wire form of a Genome: Connections cannot
// serialize cleanly as a YAML mapping keyed by ConnectionKey, so it
// (de)serializes as a flat slice instead, same as InnovationRegistry.
type genomeWire struct {
	Key               int               `yaml:"key"`
	Nodes             map[int]*NodeGene `yaml:"nodes"`
	Connections       []*ConnectionGene `yaml:"connections"`
	Fitness           float64           `yaml:"fitness"`
	NormalizedFitness float64           `yaml:"normalized_fitness"`
	AdjustedFitness   float64           `yaml:"adjusted_fitness"`
	Normalizer        *Normalizer       `yaml:"normalizer,omitempty"`
}

// MarshalYAML implements yaml.Marshaler.
func (g *Genome) MarshalYAML() (interface{}, error) {
	wire := genomeWire{
		Key:               g.Key,
		Nodes:             g.Nodes,
		Fitness:           g.Fitness,
		NormalizedFitness: g.NormalizedFitness,
		AdjustedFitness:   g.AdjustedFitness,
		Normalizer:        g.Normalizer,
	}
	wire.Connections = make([]*ConnectionGene, 0, len(g.Connections))
	for _, c := range g.Connections {
		wire.Connections = append(wire.Connections, c)
	}
	return wire, nil
}

// UnmarshalYAML implements yaml.Unmarshaler. The shared population
// context (Config, Innovations, NodeKeys, Rand) is left nil and must be
// rewired by the caller (checkpoint.go) after load.
func (g *Genome) UnmarshalYAML(unmarshal func(interface{}) error) error {
	var wire genomeWire
	if err := unmarshal(&wire); err != nil {
		return err
	}
	g.Key = wire.Key
	g.Nodes = wire.Nodes
	g.Connections = make(map[ConnectionKey]*ConnectionGene, len(wire.Connections))
	for _, c := range wire.Connections {
		g.Connections[c.Key] = c
	}
	g.Fitness = wire.Fitness
	g.NormalizedFitness = wire.NormalizedFitness
	g.AdjustedFitness = wire.AdjustedFitness
	g.Normalizer = wire.Normalizer
	return nil
}
