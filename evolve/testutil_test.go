package evolve

import (
	"fmt"
	"os"

	"github.com/halvorsen-ml/neatgo/neat"
)

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

// writeIniConfig serializes the fields neat.LoadConfig understands, so
// tests can drive the driver against a Config built in memory.
func writeIniConfig(path string, cfg *neat.Config) error {
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
