package neat

import (
	"compress/gzip"
	"math/rand"
	"os"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

// checkpointWire is the on-wire form of a Population. Config is not
// saved; the caller supplies the config path used to re-load it so the
// checkpoint file only carries evolved state.
type checkpointWire struct {
	Population             map[int]*Genome    `yaml:"population"`
	SpeciesSet             *SpeciesSet        `yaml:"species_set"`
	Reproduction           *Reproduction      `yaml:"reproduction"`
	Innovations            *InnovationRegistry `yaml:"innovations"`
	NodeKeys               *NodeKeyAllocator  `yaml:"node_keys"`
	Generation             int                `yaml:"generation"`
	CompatibilityThreshold float64            `yaml:"compatibility_threshold"`
	BestGenome             *Genome            `yaml:"best_genome"`
	RandSeed               int64              `yaml:"rand_seed"`
}

// SaveCheckpoint writes the population's evolved state to filePath as
// gzip-compressed YAML. The config used to create the population is not
// included; LoadCheckpoint re-reads it from a separate config file so a
// checkpoint can be replayed against an edited config.
func (p *Population) SaveCheckpoint(filePath string) error {
	file, err := os.Create(filePath)
	if err != nil {
		return errors.Wrapf(err, "checkpoint: create %q", filePath)
	}
	defer file.Close()

	gzWriter := gzip.NewWriter(file)
	defer gzWriter.Close()

	wire := checkpointWire{
		Population:             p.Population,
		SpeciesSet:             p.SpeciesSet,
		Reproduction:           p.Reproduction,
		Innovations:            p.Innovations,
		NodeKeys:               p.NodeKeys,
		Generation:             p.Generation,
		CompatibilityThreshold: p.CompatibilityThreshold,
		BestGenome:             p.BestGenome,
		RandSeed:               p.checkpointRandSeed,
	}

	enc := yaml.NewEncoder(gzWriter)
	defer enc.Close()
	if err := enc.Encode(&wire); err != nil {
		return errors.Wrap(err, "checkpoint: encode population")
	}
	return nil
}

// LoadCheckpoint restores a Population from a checkpoint written by
// SaveCheckpoint, re-loading configPath to rebuild the Config and
// rewiring every genome's borrowed Config/Innovations/NodeKeys/Rand
// pointers, which are never part of the YAML encoding.
func LoadCheckpoint(checkpointPath string, configPath string) (*Population, error) {
	cfg, err := LoadConfig(configPath)
	if err != nil {
		return nil, errors.Wrapf(err, "checkpoint: load config %q", configPath)
	}

	file, err := os.Open(checkpointPath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.Wrapf(ErrCheckpointMissing, "checkpoint: %q", checkpointPath)
		}
		return nil, errors.Wrapf(err, "checkpoint: open %q", checkpointPath)
	}
	defer file.Close()

	gzReader, err := gzip.NewReader(file)
	if err != nil {
		return nil, errors.Wrap(err, "checkpoint: open gzip stream")
	}
	defer gzReader.Close()

	var wire checkpointWire
	if err := yaml.NewDecoder(gzReader).Decode(&wire); err != nil {
		return nil, errors.Wrap(err, "checkpoint: decode population")
	}

	rnd := rand.New(rand.NewSource(wire.RandSeed))

	p := &Population{
		Config:                 cfg,
		Population:             wire.Population,
		SpeciesSet:             wire.SpeciesSet,
		Reproduction:           wire.Reproduction,
		Innovations:            wire.Innovations,
		NodeKeys:               wire.NodeKeys,
		Rand:                   rnd,
		Generation:             wire.Generation,
		CompatibilityThreshold: wire.CompatibilityThreshold,
		BestGenome:             wire.BestGenome,
		checkpointRandSeed:     wire.RandSeed,
	}

	for _, g := range p.Population {
		rewireGenome(g, p)
	}
	if p.BestGenome != nil {
		rewireGenome(p.BestGenome, p)
	}

	// YAML decoding gives every occurrence of a genome its own object,
	// so a species' Members/Representative no longer point at the same
	// Genome as p.Population after a round trip. Re-link them to the
	// canonical, already-rewired copies living in p.Population.
	for _, sp := range p.SpeciesSet.Species {
		for key := range sp.Members {
			if canonical, ok := p.Population[key]; ok {
				sp.Members[key] = canonical
			}
		}
		if sp.Representative != nil {
			if canonical, ok := p.Population[sp.Representative.Key]; ok {
				sp.Representative = canonical
			} else {
				rewireGenome(sp.Representative, p)
			}
		}
	}

	return p, nil
}

// rewireGenome reattaches the shared population-owned pointers a
// genome needs after a YAML round trip, since Config, Innovations,
// NodeKeys, and Rand are excluded from its wire encoding.
func rewireGenome(g *Genome, p *Population) {
	g.Config = p.Config
	g.Innovations = p.Innovations
	g.NodeKeys = p.NodeKeys
	g.Rand = p.Rand
}
