package evolve

import (
	"compress/gzip"
	"os"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"

	"github.com/halvorsen-ml/neatgo/neat"
)

// writeWinner serializes a single genome to path as gzip-compressed
// YAML, the same on-disk shape checkpoint.go uses for whole
// populations, so a winner file can be inspected with the same
// tooling.
func writeWinner(g *neat.Genome, path string) error {
	file, err := os.Create(path)
	if err != nil {
		return errors.Wrapf(err, "evolve: create winner file %q", path)
	}
	defer file.Close()

	gzWriter := gzip.NewWriter(file)
	defer gzWriter.Close()

	enc := yaml.NewEncoder(gzWriter)
	defer enc.Close()
	if err := enc.Encode(g); err != nil {
		return errors.Wrap(err, "evolve: encode winner genome")
	}
	return nil
}

// LoadWinner reads a genome previously written by Evolve's termination
// path and attaches cfg so the genome's Activate can validate input
// shape. Innovations/NodeKeys/Rand are left nil; a genome loaded this
// way is meant for inference, not further mutation or breeding.
func LoadWinner(path string, cfg *neat.Config) (*neat.Genome, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrapf(err, "evolve: open winner file %q", path)
	}
	defer file.Close()

	gzReader, err := gzip.NewReader(file)
	if err != nil {
		return nil, errors.Wrap(err, "evolve: open gzip stream")
	}
	defer gzReader.Close()

	var g neat.Genome
	if err := yaml.NewDecoder(gzReader).Decode(&g); err != nil {
		return nil, errors.Wrap(err, "evolve: decode winner genome")
	}
	g.Config = cfg
	return &g, nil
}
