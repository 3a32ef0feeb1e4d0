// Package neat provides a Go implementation of NeuroEvolution of
// Augmenting Topologies (NEAT): genomes made of node and connection
// genes, structural mutation with cycle prevention, innovation-number
// tracking for crossover alignment, genetic-distance speciation with an
// adaptive compatibility threshold, and stagnation-driven reproduction.
//
// This implementation is based on the original paper by Kenneth O.
// Stanley and Risto Miikkulainen.
//
// Basic usage:
//
//	config, err := neat.LoadConfig("path/to/config")
//	if err != nil {
//		log.Fatalf("error loading config: %v", err)
//	}
//
//	pop, err := neat.NewPopulation(config, config.Evolution.Seed)
//	if err != nil {
//		log.Fatalf("error creating population: %v", err)
//	}
//
//	for i := 0; i < config.Evolution.MaxGenerations; i++ {
//		if err := evalGenomes(pop.Population); err != nil {
//			log.Fatalf("error evaluating generation: %v", err)
//		}
//		pop.UpdateBestEver()
//		if err := pop.Reproduce(); err != nil {
//			log.Fatalf("error reproducing: %v", err)
//		}
//	}
//
// The evolve package wraps this loop with parallel fitness evaluation,
// checkpointing, and termination handling.
package neat
