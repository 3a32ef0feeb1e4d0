package neat

// UpdateStagnation runs every species' per-generation stagnation state
// machine (Species.UpdateStagnation): sort is implicit in the per-species
// fitness comparison, comparing this generation's top member fitness
// against the species' all-time best and resetting or incrementing its
// stagnation counter accordingly.
func UpdateStagnation(species map[int]*Species) {
	for _, s := range species {
		s.UpdateStagnation()
	}
}
