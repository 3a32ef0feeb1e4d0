package neat

import (
	"math"
	"sort"
)

// Species is a group of genomes considered compatible by genetic distance,
// tracked by a representative snapshot and a stagnation counter measuring
// generations since its best-ever fitness improved.
type Species struct {
	Key             int
	Representative  *Genome
	Members         map[int]*Genome
	BestFitness     float64
	StagnationCount int
}

// NewSpecies creates a species seeded by a single representative member,
// with stagnation 0 and best_fitness -Inf as spec.md §4.6 requires.
func NewSpecies(key int, representative *Genome) *Species {
	return &Species{
		Key:            key,
		Representative: representative,
		Members:        map[int]*Genome{representative.Key: representative},
		BestFitness:    math.Inf(-1),
	}
}

// UpdateStagnation runs the per-generation state machine: if this
// generation's top member fitness exceeds the all-time best, record it and
// reset the stagnation counter; otherwise increment the counter.
func (s *Species) UpdateStagnation() {
	top := math.Inf(-1)
	for _, g := range s.Members {
		if g.Fitness > top {
			top = g.Fitness
		}
	}
	if top > s.BestFitness {
		s.BestFitness = top
		s.StagnationCount = 0
	} else {
		s.StagnationCount++
	}
}

// IsExtinctionEligible reports whether this species has been stagnant long
// enough to be a candidate for the population's extinction pass.
func (s *Species) IsExtinctionEligible(maxStagnation int) bool {
	return s.StagnationCount >= maxStagnation
}

// SortedMembers returns the species' members ordered by fitness, highest
// first.
func (s *Species) SortedMembers() []*Genome {
	members := make([]*Genome, 0, len(s.Members))
	for _, g := range s.Members {
		members = append(members, g)
	}
	sort.Slice(members, func(i, j int) bool { return members[i].Fitness > members[j].Fitness })
	return members
}

// TotalAdjustedFitness sums the adjusted fitness of every member.
func (s *Species) TotalAdjustedFitness() float64 {
	total := 0.0
	for _, g := range s.Members {
		total += g.AdjustedFitness
	}
	return total
}

// SpeciesSet owns the population's species, keyed by an id assigned at
// creation (1, 2, 3, ...).
type SpeciesSet struct {
	Species map[int]*Species
	NextKey int
}

// NewSpeciesSet creates an empty species set; the first species created
// gets key 1.
func NewSpeciesSet() *SpeciesSet {
	return &SpeciesSet{Species: make(map[int]*Species), NextKey: 1}
}

// Speciate partitions candidates into species per spec.md §4.7: every
// existing species first claims the single closest remaining candidate as
// its new representative; every other candidate (processed in reverse
// insertion order) then joins the closest representative within
// threshold, or seeds a new species. The compatibility threshold is then
// adapted toward targetSpecies and returned: multiplied by 0.97 if the
// resulting species count is below target, reset to baselineThreshold
// otherwise.
func (ss *SpeciesSet) Speciate(candidates map[int]*Genome, threshold, baselineThreshold float64, targetSpecies int) float64 {
	unspeciated := make(map[int]*Genome, len(candidates))
	order := make([]int, 0, len(candidates))
	for k, g := range candidates {
		unspeciated[k] = g
		order = append(order, k)
	}
	sort.Ints(order)

	representatives := make(map[int]*Genome, len(ss.Species))
	members := make(map[int][]*Genome, len(ss.Species))

	existingKeys := make([]int, 0, len(ss.Species))
	for k := range ss.Species {
		existingKeys = append(existingKeys, k)
	}
	sort.Ints(existingKeys)

	for _, sid := range existingKeys {
		sp := ss.Species[sid]
		if len(unspeciated) == 0 {
			break
		}
		var best *Genome
		bestDist := math.Inf(1)
		for _, key := range order {
			g, ok := unspeciated[key]
			if !ok {
				continue
			}
			d := sp.Representative.Distance(g)
			if d < bestDist {
				bestDist = d
				best = g
			}
		}
		if best == nil {
			continue
		}
		representatives[sid] = best
		members[sid] = []*Genome{best}
		delete(unspeciated, best.Key)
	}

	remaining := make([]int, 0, len(unspeciated))
	for _, key := range order {
		if _, ok := unspeciated[key]; ok {
			remaining = append(remaining, key)
		}
	}
	for i := len(remaining) - 1; i >= 0; i-- {
		g := unspeciated[remaining[i]]
		bestSID := -1
		bestDist := math.Inf(1)
		for sid, rep := range representatives {
			d := rep.Distance(g)
			if d < bestDist {
				bestDist = d
				bestSID = sid
			}
		}
		if bestSID != -1 && bestDist < threshold {
			members[bestSID] = append(members[bestSID], g)
		} else {
			newSID := ss.NextKey
			ss.NextKey++
			representatives[newSID] = g
			members[newSID] = []*Genome{g}
		}
	}

	newSpecies := make(map[int]*Species, len(representatives))
	for sid, rep := range representatives {
		memberMap := make(map[int]*Genome, len(members[sid]))
		for _, g := range members[sid] {
			memberMap[g.Key] = g
		}
		sp, existed := ss.Species[sid]
		if !existed {
			sp = NewSpecies(sid, rep)
		}
		sp.Representative = rep
		sp.Members = memberMap
		newSpecies[sid] = sp
	}
	ss.Species = newSpecies

	if len(ss.Species) < targetSpecies {
		return threshold * 0.97
	}
	return baselineThreshold
}
