package neat

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func smallPopConfig() *Config {
	cfg := testConfig()
	cfg.Population.PopulationSize = 20
	cfg.Population.EliteSize = 1
	cfg.Population.MinSpeciesSize = 2
	cfg.Evolution.MinSpecies = 1
	cfg.Evolution.MaxStagnation = 3
	cfg.Evolution.TargetSpecies = 1
	return cfg
}

func TestNewPopulationSpeciatesImmediately(t *testing.T) {
	cfg := smallPopConfig()
	pop, err := NewPopulation(cfg, 1)
	require.NoError(t, err)
	assert.Len(t, pop.Population, cfg.Population.PopulationSize)
	assert.NotEmpty(t, pop.SpeciesSet.Species)
}

func TestReproduceProducesUniqueGenomeIDs(t *testing.T) {
	cfg := smallPopConfig()
	pop, err := NewPopulation(cfg, 1)
	require.NoError(t, err)

	for _, g := range pop.Population {
		g.Fitness = pop.Rand.Float64()
	}
	require.NoError(t, pop.Reproduce())

	seen := make(map[int]bool)
	for key := range pop.Population {
		require.False(t, seen[key], "duplicate genome id %d after reproduction", key)
		seen[key] = true
	}

	for sid, sp := range pop.SpeciesSet.Species {
		for key := range sp.Members {
			_, ok := pop.Population[key]
			assert.True(t, ok, "species %d member %d not present in population", sid, key)
		}
	}
}

// TestStagnationExtinctionByFourthReproduction holds two species under
// min_species=1, max_stagnation=3: one whose best fitness never improves,
// one that keeps improving every generation. The stagnant species is
// extinguished by the 4th call to Reproduce (its stagnation counter
// crosses max_stagnation on the 4th UpdateStagnation), since the healthy
// species keeps the population above min_species throughout.
func TestStagnationExtinctionByFourthReproduction(t *testing.T) {
	cfg := smallPopConfig()
	cfg.Population.PopulationSize = 10
	pop, err := NewPopulation(cfg, 1)
	require.NoError(t, err)

	keys := make([]int, 0, len(pop.Population))
	for k := range pop.Population {
		keys = append(keys, k)
	}
	half := len(keys) / 2

	stagnantMembers := make(map[int]*Genome)
	healthyMembers := make(map[int]*Genome)
	for i, k := range keys {
		if i < half {
			stagnantMembers[k] = pop.Population[k]
		} else {
			healthyMembers[k] = pop.Population[k]
		}
	}

	stagnantSpecies := NewSpecies(100, stagnantMembers[keys[0]])
	stagnantSpecies.Members = stagnantMembers
	healthySpecies := NewSpecies(200, healthyMembers[keys[half]])
	healthySpecies.Members = healthyMembers

	pop.SpeciesSet.Species = map[int]*Species{100: stagnantSpecies, 200: healthySpecies}
	pop.SpeciesSet.NextKey = 201

	healthyFitness := 1.0
	for gen := 1; gen <= 4; gen++ {
		// Reproduce replaces the population with offspring under fresh
		// keys, so fitness is assigned through each species' current
		// members rather than through the keys captured above.
		for _, g := range pop.SpeciesSet.Species[100].Members {
			g.Fitness = 1.0
		}
		healthyFitness++
		for _, g := range pop.SpeciesSet.Species[200].Members {
			g.Fitness = healthyFitness
		}
		require.NoError(t, pop.Reproduce())
	}

	_, stillPresent := pop.SpeciesSet.Species[100]
	assert.False(t, stillPresent, "stagnant species should have gone extinct by the 4th reproduction")
}

func TestWeightedChoiceFallsBackToUniformWhenSumIsZero(t *testing.T) {
	g1 := newTestGenome(t, 1)
	g2 := newTestGenome(t, 2)
	candidates := []*Genome{g1, g2}
	weights := []float64{0, 0}
	pick := weightedChoice(g1.Rand, candidates, weights, 0)
	assert.Contains(t, candidates, pick)
}
