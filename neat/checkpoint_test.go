package neat

import (
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// writeIniConfig serializes the fields LoadConfig understands, letting
// tests round-trip a Config built in memory through the same ini loader
// the package ships.
func writeIniConfig(path string, cfg *Config) error {
	contents := fmt.Sprintf(`[NeuralNetwork]
num_inputs = %d
num_outputs = %d
input_activation = %s
output_activation = %s
use_normalizer = %t

[Population]
population_size = %d
compatibility_threshold = %f
elite_size = %d
min_species_size = %d
survival_threshold = %f

[Evolution]
max_generations = %d
max_fitness = %f
min_species = %d
target_species = %d
max_stagnation = %d
seed = %d

[MutationRates]
add_node = %f
add_connection = %f
change_weight = %f
change_activation = %f
toggle_connection = %f
change_bias = %f
remove_node = %f
`,
		cfg.NeuralNetwork.NumInputs, cfg.NeuralNetwork.NumOutputs,
		cfg.NeuralNetwork.InputActivation, cfg.NeuralNetwork.OutputActivation, cfg.NeuralNetwork.UseNormalizer,
		cfg.Population.PopulationSize, cfg.Population.CompatibilityThreshold, cfg.Population.EliteSize,
		cfg.Population.MinSpeciesSize, cfg.Population.SurvivalThreshold,
		cfg.Evolution.MaxGenerations, cfg.Evolution.MaxFitness, cfg.Evolution.MinSpecies,
		cfg.Evolution.TargetSpecies, cfg.Evolution.MaxStagnation, cfg.Evolution.Seed,
		cfg.MutationRates.AddNode, cfg.MutationRates.AddConnection, cfg.MutationRates.ChangeWeight,
		cfg.MutationRates.ChangeActivation, cfg.MutationRates.ToggleConnection, cfg.MutationRates.ChangeBias,
		cfg.MutationRates.RemoveNode,
	)
	return os.WriteFile(path, []byte(contents), 0o644)
}

func TestCheckpointRoundTrip(t *testing.T) {
	cfg := smallPopConfig()
	cfg.Population.PopulationSize = 12
	pop, err := NewPopulation(cfg, 42)
	require.NoError(t, err)

	for _, g := range pop.Population {
		g.Fitness = g.Rand.Float64()
	}
	pop.UpdateBestEver()
	require.NoError(t, pop.Reproduce())

	dir := t.TempDir()
	configPath := filepath.Join(dir, "config.ini")
	checkpointPath := filepath.Join(dir, "checkpoint.yaml.gz")

	require.NoError(t, writeIniConfig(configPath, cfg))
	require.NoError(t, pop.SaveCheckpoint(checkpointPath))

	loaded, err := LoadCheckpoint(checkpointPath, configPath)
	require.NoError(t, err)

	assert.Equal(t, pop.Generation, loaded.Generation)
	assert.Len(t, loaded.Population, len(pop.Population))
	require.NotNil(t, loaded.BestGenome)
	assert.Equal(t, pop.BestGenome.Key, loaded.BestGenome.Key)

	for key, g := range loaded.Population {
		require.NotNil(t, g.Config, "genome %d missing rewired config", key)
		require.NotNil(t, g.Innovations, "genome %d missing rewired innovations", key)
		require.NotNil(t, g.NodeKeys, "genome %d missing rewired node keys", key)
		require.NotNil(t, g.Rand, "genome %d missing rewired rand", key)
	}

	// The reloaded population's genomes must still evaluate.
	for _, g := range loaded.Population {
		_, err := g.Activate([]float64{0.1, -0.4})
		require.NoError(t, err)
	}
}

func TestLoadCheckpointMissingFile(t *testing.T) {
	cfg := smallPopConfig()
	dir := t.TempDir()
	configPath := filepath.Join(dir, "config.ini")
	require.NoError(t, writeIniConfig(configPath, cfg))

	_, err := LoadCheckpoint(filepath.Join(dir, "does-not-exist.yaml.gz"), configPath)
	assert.ErrorIs(t, err, ErrCheckpointMissing)
}
