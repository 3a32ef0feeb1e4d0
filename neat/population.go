package neat

import (
	"math"
	"math/rand"
	"sort"

	"github.com/pkg/errors"
)

// FitnessFunc is the shape of a whole-generation evaluator, such as the
// evalGenomes callback in the package example, that writes each genome's
// Fitness field exactly once. Nothing in this module takes a FitnessFunc:
// the evolve driver uses its own per-genome evolve.GenomeFitnessFunc.
type FitnessFunc func(genomes map[int]*Genome) error

// Reproduction owns genome id allocation and parent-lineage tracking
// across generations.
type Reproduction struct {
	NextGenomeKey int
	Ancestors     map[int][]int
}

// NewReproduction creates a reproduction tracker; genome keys start at 1.
func NewReproduction() *Reproduction {
	return &Reproduction{NextGenomeKey: 1, Ancestors: make(map[int][]int)}
}

func (r *Reproduction) nextKey() int {
	key := r.NextGenomeKey
	r.NextGenomeKey++
	return key
}

// Population orchestrates speciation, reproduction, and compatibility
// threshold adaptation across generations.
type Population struct {
	Config                 *Config
	Population             map[int]*Genome
	SpeciesSet             *SpeciesSet
	Reproduction           *Reproduction
	Innovations            *InnovationRegistry
	NodeKeys               *NodeKeyAllocator
	Rand                   *rand.Rand
	Generation             int
	CompatibilityThreshold float64
	BestGenome             *Genome

	// checkpointRandSeed is the seed the population's Rand source was
	// built from, carried along so a checkpoint can recreate an
	// equivalent (not identical, since stream position isn't saved)
	// generator on load.
	checkpointRandSeed int64
}

// NewPopulation creates population_size fresh minimal genomes (each with
// a single random input->output connection) and speciates them with no
// pre-existing species, per spec.md §4.7 initialize(). seed drives the
// population's single shared random source, used for every mutation,
// crossover coin flip, and selection draw across the run.
func NewPopulation(cfg *Config, seed int64) (*Population, error) {
	p := &Population{
		Config:                 cfg,
		Population:             make(map[int]*Genome),
		SpeciesSet:             NewSpeciesSet(),
		Reproduction:           NewReproduction(),
		Innovations:            NewInnovationRegistry(),
		NodeKeys:               NewNodeKeyAllocator(cfg.NeuralNetwork.NumInputs + cfg.NeuralNetwork.NumOutputs),
		Rand:                   rand.New(rand.NewSource(seed)),
		CompatibilityThreshold: cfg.Population.CompatibilityThreshold,
		checkpointRandSeed:     seed,
	}
	for i := 0; i < cfg.Population.PopulationSize; i++ {
		key := p.Reproduction.nextKey()
		g := NewGenome(key, p.Config, p.Innovations, p.NodeKeys, p.Rand)
		if err := g.ConfigureNew(); err != nil {
			return nil, errors.Wrap(err, "population: failed to initialize genome")
		}
		p.Population[key] = g
		p.Reproduction.Ancestors[key] = nil
	}
	p.CompatibilityThreshold = p.SpeciesSet.Speciate(p.Population, p.CompatibilityThreshold, cfg.Population.CompatibilityThreshold, cfg.Evolution.TargetSpecies)
	return p, nil
}

// FindBestGenome returns the highest-fitness genome in the current
// population, or nil if the population is empty.
func (p *Population) FindBestGenome() *Genome {
	var best *Genome
	bestFitness := math.Inf(-1)
	for _, g := range p.Population {
		if g.Fitness > bestFitness {
			bestFitness = g.Fitness
			best = g
		}
	}
	return best
}

// UpdateBestEver records a clone of the current generation's best genome
// if it beats the all-time best seen so far.
func (p *Population) UpdateBestEver() {
	current := p.FindBestGenome()
	if current == nil {
		return
	}
	if p.BestGenome == nil || current.Fitness > p.BestGenome.Fitness {
		p.BestGenome = current.Clone()
	}
}

// Reproduce runs spec.md §4.7's reproduce() algorithm in order: fitness
// normalization, per-species stagnation update and adjusted fitness, an
// extinction pass dropping the single lowest-best stagnant species per
// iteration while the species count exceeds min_species, per-species
// elitism/survival-truncation/breeding, a generation increment, and
// re-speciation of the resulting offspring pool.
func (p *Population) Reproduce() error {
	if len(p.Population) == 0 {
		return errors.Wrap(ErrPopulationExtinct, "population: reproduce called on an empty population")
	}

	// 1. Fitness normalization.
	minFitness, maxFitness := math.Inf(1), math.Inf(-1)
	for _, g := range p.Population {
		if g.Fitness < minFitness {
			minFitness = g.Fitness
		}
		if g.Fitness > maxFitness {
			maxFitness = g.Fitness
		}
	}
	if maxFitness == minFitness {
		maxFitness += 1e-4
	}
	for _, g := range p.Population {
		g.NormalizedFitness = (g.Fitness - minFitness) / (maxFitness - minFitness)
	}

	// 2. Stagnation update and adjusted fitness.
	UpdateStagnation(p.SpeciesSet.Species)
	for _, sp := range p.SpeciesSet.Species {
		size := len(sp.Members)
		for _, g := range sp.Members {
			g.AdjustedFitness = math.Max(g.NormalizedFitness/float64(size), 1e-4)
		}
	}

	// 3. Extinction pass.
	minSpecies := p.Config.Evolution.MinSpecies
	maxStagnation := p.Config.Evolution.MaxStagnation
	eliteSize := p.Config.Population.EliteSize
	offspring := make(map[int]*Genome)

	for len(p.SpeciesSet.Species) > minSpecies {
		stagnant := make([]*Species, 0)
		for _, sp := range p.SpeciesSet.Species {
			if sp.IsExtinctionEligible(maxStagnation) {
				stagnant = append(stagnant, sp)
			}
		}
		if len(stagnant) == 0 {
			break
		}
		sort.Slice(stagnant, func(i, j int) bool { return stagnant[i].BestFitness > stagnant[j].BestFitness })
		doomed := stagnant[len(stagnant)-1]

		elites := doomed.SortedMembers()
		take := eliteSize
		if take > len(elites) {
			take = len(elites)
		}
		for i := 0; i < take; i++ {
			clone := elites[i].Clone()
			offspring[clone.Key] = clone
		}
		delete(p.SpeciesSet.Species, doomed.Key)
	}

	// 4. Per-species reproduction.
	totalAdjusted := 0.0
	for _, sp := range p.SpeciesSet.Species {
		totalAdjusted += sp.TotalAdjustedFitness()
	}
	popSize := p.Config.Population.PopulationSize
	minSpeciesSize := p.Config.Population.MinSpeciesSize
	survivalThreshold := p.Config.Population.SurvivalThreshold

	for _, sp := range p.SpeciesSet.Species {
		members := sp.SortedMembers()

		eliteCount := eliteSize
		if eliteCount > len(members) {
			eliteCount = len(members)
		}
		for i := 0; i < eliteCount; i++ {
			clone := members[i].Clone()
			offspring[clone.Key] = clone
		}

		breedPool := members
		if len(members) > minSpeciesSize+eliteSize {
			cutoff := int(math.Floor(float64(len(members))*survivalThreshold)) + 1
			if cutoff < len(breedPool) {
				breedPool = breedPool[:cutoff]
			}
		}

		allowedOffspring := minSpeciesSize
		if totalAdjusted > 0 {
			proportional := int(math.Floor(sp.TotalAdjustedFitness() / totalAdjusted * float64(popSize)))
			if proportional > allowedOffspring {
				allowedOffspring = proportional
			}
		}

		if len(breedPool) <= 1 {
			continue
		}

		weights := make([]float64, len(breedPool))
		weightSum := 0.0
		for i, m := range breedPool {
			weights[i] = m.AdjustedFitness
			weightSum += m.AdjustedFitness
		}

		for bred := eliteCount; bred < allowedOffspring; bred++ {
			parent1 := weightedChoice(p.Rand, breedPool, weights, weightSum)
			parent2 := weightedChoice(p.Rand, breedPool, weights, weightSum)

			childKey := p.Reproduction.nextKey()
			child := NewGenome(childKey, p.Config, p.Innovations, p.NodeKeys, p.Rand)
			child.ConfigureCrossover(parent1, parent2)
			child.Mutate()

			offspring[childKey] = child
			p.Reproduction.Ancestors[childKey] = []int{parent1.Key, parent2.Key}
		}
	}

	// 5. Advance generation counter.
	p.Generation++

	if len(offspring) == 0 {
		return errors.Wrap(ErrPopulationExtinct, "population: reproduction produced no offspring")
	}

	// 6. Re-speciation.
	p.Population = offspring
	p.CompatibilityThreshold = p.SpeciesSet.Speciate(p.Population, p.CompatibilityThreshold, p.Config.Population.CompatibilityThreshold, p.Config.Evolution.TargetSpecies)
	return nil
}

// weightedChoice samples one genome from candidates with probability
// proportional to its entry in weights; falls back to a uniform pick when
// the total weight is non-positive.
func weightedChoice(rnd *rand.Rand, candidates []*Genome, weights []float64, sum float64) *Genome {
	if sum <= 0 {
		return candidates[rnd.Intn(len(candidates))]
	}
	pick := rnd.Float64() * sum
	cumulative := 0.0
	for i, w := range weights {
		cumulative += w
		if pick < cumulative {
			return candidates[i]
		}
	}
	return candidates[len(candidates)-1]
}
