package neat

// InnovationRegistry assigns and memoizes innovation numbers for structural
// edges (source node id, target node id). Any two genomes that
// independently form the same structural edge receive the same innovation
// number from a shared registry.
//
// The registry is owned by a Population and mutated only during
// reproduction, which runs single-threaded after the parallel evaluation
// barrier; it is never written concurrently.
type InnovationRegistry struct {
	next   int
	lookup map[ConnectionKey]int
}

// NewInnovationRegistry creates an empty registry. Innovation numbers are
// assigned starting at 1.
func NewInnovationRegistry() *InnovationRegistry {
	return &InnovationRegistry{
		next:   1,
		lookup: make(map[ConnectionKey]int),
	}
}

// FindOrCreate returns the innovation number for the structural edge
// (sourceID, targetID), creating one with the next sequential number if
// this edge has never been seen by this registry.
func (r *InnovationRegistry) FindOrCreate(sourceID, targetID int) int {
	key := ConnectionKey{InNodeID: sourceID, OutNodeID: targetID}
	if num, ok := r.lookup[key]; ok {
		return num
	}
	num := r.next
	r.next++
	r.lookup[key] = num
	return num
}

// Clone returns a deep copy of the registry; the copy's counter and
// lookup table advance independently of the original's.
func (r *InnovationRegistry) Clone() *InnovationRegistry {
	clone := &InnovationRegistry{
		next:   r.next,
		lookup: make(map[ConnectionKey]int, len(r.lookup)),
	}
	for k, v := range r.lookup {
		clone.lookup[k] = v
	}
	return clone
}

// innovationEntry is the on-wire form of one registry entry; ConnectionKey
// cannot serialize cleanly as a YAML mapping key, so the registry
// (de)serializes as a flat slice of entries instead.
type innovationEntry struct {
	InNodeID  int `yaml:"in_node_id"`
	OutNodeID int `yaml:"out_node_id"`
	Number    int `yaml:"number"`
}

type innovationRegistryWire struct {
	Next    int               `yaml:"next"`
	Entries []innovationEntry `yaml:"entries"`
}

// MarshalYAML implements yaml.Marshaler.
func (r *InnovationRegistry) MarshalYAML() (interface{}, error) {
	wire := innovationRegistryWire{Next: r.next}
	for k, v := range r.lookup {
		wire.Entries = append(wire.Entries, innovationEntry{InNodeID: k.InNodeID, OutNodeID: k.OutNodeID, Number: v})
	}
	return wire, nil
}

// UnmarshalYAML implements yaml.Unmarshaler.
func (r *InnovationRegistry) UnmarshalYAML(unmarshal func(interface{}) error) error {
	var wire innovationRegistryWire
	if err := unmarshal(&wire); err != nil {
		return err
	}
	r.next = wire.Next
	r.lookup = make(map[ConnectionKey]int, len(wire.Entries))
	for _, e := range wire.Entries {
		r.lookup[ConnectionKey{InNodeID: e.InNodeID, OutNodeID: e.OutNodeID}] = e.Number
	}
	return nil
}
