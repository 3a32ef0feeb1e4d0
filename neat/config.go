package neat

import (
	"github.com/pkg/errors"
	"github.com/spf13/cast"
	"gopkg.in/ini.v1"
)

// NeuralNetworkConfig holds parameters governing genome/network shape.
type NeuralNetworkConfig struct {
	NumInputs        int
	NumOutputs       int
	InputActivation  string
	OutputActivation string
	UseNormalizer    bool
}

// PopulationConfig holds parameters governing population size and speciation.
type PopulationConfig struct {
	PopulationSize         int
	CompatibilityThreshold float64
	EliteSize              int
	MinSpeciesSize         int
	SurvivalThreshold      float64
}

// EvolutionConfig holds parameters governing the generation loop and
// speciation dynamics.
type EvolutionConfig struct {
	MaxGenerations int
	MaxFitness     float64
	MinSpecies     int
	TargetSpecies  int
	MaxStagnation  int
	Seed           int64
}

// MutationRatesConfig holds the seven raw mutation-rate weights. They are
// normalized into a probability distribution by Genome.Mutate.
type MutationRatesConfig struct {
	AddNode          float64
	AddConnection    float64
	ChangeWeight     float64
	ChangeActivation float64
	ToggleConnection float64
	ChangeBias       float64
	RemoveNode       float64
}

// Config is the full set of evolution parameters, read from a flat
// key/value provider (an ini file) with in-package defaults.
type Config struct {
	NeuralNetwork NeuralNetworkConfig
	Population    PopulationConfig
	Evolution     EvolutionConfig
	MutationRates MutationRatesConfig
}

// DefaultConfig returns the package's baseline parameters, suitable for
// XOR-scale problems. Callers typically load
// an override file on top of this with LoadConfig.
func DefaultConfig() *Config {
	return &Config{
		NeuralNetwork: NeuralNetworkConfig{
			NumInputs:        2,
			NumOutputs:       1,
			InputActivation:  "linear",
			OutputActivation: "sigmoid",
			UseNormalizer:    false,
		},
		Population: PopulationConfig{
			PopulationSize:         150,
			CompatibilityThreshold: 3.0,
			EliteSize:              2,
			MinSpeciesSize:         2,
			SurvivalThreshold:      0.2,
		},
		Evolution: EvolutionConfig{
			MaxGenerations: 100,
			MaxFitness:     0,
			MinSpecies:     1,
			TargetSpecies:  15,
			MaxStagnation:  15,
			Seed:           0,
		},
		MutationRates: MutationRatesConfig{
			AddNode:          0.1,
			AddConnection:    0.2,
			ChangeWeight:     0.6,
			ChangeActivation: 0.1,
			ToggleConnection: 0.05,
			ChangeBias:       0.3,
			RemoveNode:       0.02,
		},
	}
}

// LoadConfig reads overrides from an ini file on top of DefaultConfig and
// validates the result.
func LoadConfig(filePath string) (*Config, error) {
	cfg := DefaultConfig()

	src, err := ini.LoadSources(ini.LoadOptions{
		IgnoreInlineComment:         true,
		UnescapeValueCommentSymbols: true,
	}, filePath)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to load config file %q", filePath)
	}

	if sec, err := src.GetSection("NeuralNetwork"); err == nil {
		applyNeuralNetworkOverrides(&cfg.NeuralNetwork, sec)
	}
	if sec, err := src.GetSection("Population"); err == nil {
		applyPopulationOverrides(&cfg.Population, sec)
	}
	if sec, err := src.GetSection("Evolution"); err == nil {
		applyEvolutionOverrides(&cfg.Evolution, sec)
	}
	if sec, err := src.GetSection("MutationRates"); err == nil {
		applyMutationRatesOverrides(&cfg.MutationRates, sec)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func applyNeuralNetworkOverrides(c *NeuralNetworkConfig, sec *ini.Section) {
	if k, err := sec.GetKey("num_inputs"); err == nil {
		c.NumInputs = cast.ToInt(k.Value())
	}
	if k, err := sec.GetKey("num_outputs"); err == nil {
		c.NumOutputs = cast.ToInt(k.Value())
	}
	if k, err := sec.GetKey("input_activation"); err == nil {
		c.InputActivation = k.Value()
	}
	if k, err := sec.GetKey("output_activation"); err == nil {
		c.OutputActivation = k.Value()
	}
	if k, err := sec.GetKey("use_normalizer"); err == nil {
		c.UseNormalizer = cast.ToBool(k.Value())
	}
}

func applyPopulationOverrides(c *PopulationConfig, sec *ini.Section) {
	if k, err := sec.GetKey("population_size"); err == nil {
		c.PopulationSize = cast.ToInt(k.Value())
	}
	if k, err := sec.GetKey("compatibility_threshold"); err == nil {
		c.CompatibilityThreshold = cast.ToFloat64(k.Value())
	}
	if k, err := sec.GetKey("elite_size"); err == nil {
		c.EliteSize = cast.ToInt(k.Value())
	}
	if k, err := sec.GetKey("min_species_size"); err == nil {
		c.MinSpeciesSize = cast.ToInt(k.Value())
	}
	if k, err := sec.GetKey("survival_threshold"); err == nil {
		c.SurvivalThreshold = cast.ToFloat64(k.Value())
	}
}

func applyEvolutionOverrides(c *EvolutionConfig, sec *ini.Section) {
	if k, err := sec.GetKey("max_generations"); err == nil {
		c.MaxGenerations = cast.ToInt(k.Value())
	}
	if k, err := sec.GetKey("max_fitness"); err == nil {
		c.MaxFitness = cast.ToFloat64(k.Value())
	}
	if k, err := sec.GetKey("min_species"); err == nil {
		c.MinSpecies = cast.ToInt(k.Value())
	}
	if k, err := sec.GetKey("target_species"); err == nil {
		c.TargetSpecies = cast.ToInt(k.Value())
	}
	if k, err := sec.GetKey("max_stagnation"); err == nil {
		c.MaxStagnation = cast.ToInt(k.Value())
	}
	if k, err := sec.GetKey("seed"); err == nil {
		c.Seed = cast.ToInt64(k.Value())
	}
}

func applyMutationRatesOverrides(c *MutationRatesConfig, sec *ini.Section) {
	if k, err := sec.GetKey("add_node"); err == nil {
		c.AddNode = cast.ToFloat64(k.Value())
	}
	if k, err := sec.GetKey("add_connection"); err == nil {
		c.AddConnection = cast.ToFloat64(k.Value())
	}
	if k, err := sec.GetKey("change_weight"); err == nil {
		c.ChangeWeight = cast.ToFloat64(k.Value())
	}
	if k, err := sec.GetKey("change_activation"); err == nil {
		c.ChangeActivation = cast.ToFloat64(k.Value())
	}
	if k, err := sec.GetKey("toggle_connection"); err == nil {
		c.ToggleConnection = cast.ToFloat64(k.Value())
	}
	if k, err := sec.GetKey("change_bias"); err == nil {
		c.ChangeBias = cast.ToFloat64(k.Value())
	}
	if k, err := sec.GetKey("remove_node"); err == nil {
		c.RemoveNode = cast.ToFloat64(k.Value())
	}
}

// Validate checks the config for required values and internal consistency,
// returning an error wrapping ErrConfigMissing on the first problem found.
func (c *Config) Validate() error {
	if c.NeuralNetwork.NumInputs < 1 {
		return errors.Wrap(ErrConfigMissing, "NeuralNetwork.num_inputs must be >= 1")
	}
	if c.NeuralNetwork.NumOutputs < 1 {
		return errors.Wrap(ErrConfigMissing, "NeuralNetwork.num_outputs must be >= 1")
	}
	if _, err := GetActivation(c.NeuralNetwork.InputActivation); err != nil {
		return errors.Wrapf(ErrConfigMissing, "NeuralNetwork.input_activation: %v", err)
	}
	if _, err := GetActivation(c.NeuralNetwork.OutputActivation); err != nil {
		return errors.Wrapf(ErrConfigMissing, "NeuralNetwork.output_activation: %v", err)
	}
	if c.Population.PopulationSize < 2 {
		return errors.Wrap(ErrConfigMissing, "Population.population_size must be >= 2")
	}
	if c.Population.SurvivalThreshold <= 0 || c.Population.SurvivalThreshold > 1 {
		return errors.Wrap(ErrConfigMissing, "Population.survival_threshold must be in (0, 1]")
	}
	if c.Population.EliteSize < 0 || c.Population.MinSpeciesSize < 0 {
		return errors.Wrap(ErrConfigMissing, "Population.elite_size/min_species_size must be >= 0")
	}
	if c.Evolution.MinSpecies < 1 {
		return errors.Wrap(ErrConfigMissing, "Evolution.min_species must be >= 1")
	}
	if c.Evolution.TargetSpecies < 1 {
		return errors.Wrap(ErrConfigMissing, "Evolution.target_species must be >= 1")
	}
	if c.Evolution.MaxStagnation < 1 {
		return errors.Wrap(ErrConfigMissing, "Evolution.max_stagnation must be >= 1")
	}
	rates := []float64{
		c.MutationRates.AddNode, c.MutationRates.AddConnection, c.MutationRates.ChangeWeight,
		c.MutationRates.ChangeActivation, c.MutationRates.ToggleConnection, c.MutationRates.ChangeBias,
		c.MutationRates.RemoveNode,
	}
	sum := 0.0
	for _, r := range rates {
		if r < 0 {
			return errors.Wrap(ErrConfigMissing, "MutationRates.* must be non-negative")
		}
		sum += r
	}
	if sum <= 0 {
		return errors.Wrap(ErrConfigMissing, "MutationRates.* must sum to a positive value")
	}
	return nil
}
