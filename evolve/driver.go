// Package evolve runs the generation loop around a neat.Population:
// parallel fitness evaluation over a worker pool, stats reporting,
// reproduction, periodic checkpointing, and termination.
package evolve

import (
	"context"
	stderrors "errors"
	"fmt"
	"runtime"
	"sync"

	"github.com/pkg/errors"

	"github.com/halvorsen-ml/neatgo/neat"
)

// GenomeFitnessFunc is the user-supplied fitness callable. The worker
// pool invokes it once per genome per generation, reentrantly and
// concurrently across genomes; the genome itself is never mutated
// concurrently with its own evaluation, but nothing prevents it being
// evaluated concurrently with a sibling genome's evaluation.
type GenomeFitnessFunc func(g *neat.Genome) (float64, error)

// Driver owns the generation loop's configuration: where to read/write
// checkpoints, how many workers to run fitness evaluation with, and the
// config describing the population itself.
type Driver struct {
	Config          *neat.Config
	CheckpointPath  string
	WinnerPath      string
	CheckpointEvery int
	MaxWorkers      int
}

// NewDriver creates a Driver with the teacher-style default of leaving
// one logical processor free for the main loop and checkpoint I/O.
func NewDriver(cfg *neat.Config, checkpointPath, winnerPath string) *Driver {
	workers := runtime.NumCPU() - 1
	if workers < 1 {
		workers = 1
	}
	return &Driver{
		Config:          cfg,
		CheckpointPath:  checkpointPath,
		WinnerPath:      winnerPath,
		CheckpointEvery: 10,
		MaxWorkers:      workers,
	}
}

type evaluationJob struct {
	key    int
	genome *neat.Genome
}

type evaluationResult struct {
	key     int
	fitness float64
	err     error
}

func worker(fitnessFn GenomeFitnessFunc, jobs <-chan evaluationJob, results chan<- evaluationResult, wg *sync.WaitGroup) {
	defer wg.Done()
	for job := range jobs {
		fitness, err := fitnessFn(job.genome)
		results <- evaluationResult{key: job.key, fitness: fitness, err: err}
	}
}

// evaluateGeneration runs fitnessFn over every genome in the population
// using d.MaxWorkers concurrent workers, writing each genome's Fitness
// field once all evaluations have completed. This is the run's only
// suspension point: reproduction and speciation never block.
func (d *Driver) evaluateGeneration(genomes map[int]*neat.Genome, fitnessFn GenomeFitnessFunc) error {
	jobs := make(chan evaluationJob, len(genomes))
	results := make(chan evaluationResult, len(genomes))

	var wg sync.WaitGroup
	workers := d.MaxWorkers
	if workers > len(genomes) {
		workers = len(genomes)
	}
	if workers < 1 {
		workers = 1
	}
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go worker(fitnessFn, jobs, results, &wg)
	}

	for key, g := range genomes {
		jobs <- evaluationJob{key: key, genome: g}
	}
	close(jobs)

	wg.Wait()
	close(results)

	for res := range results {
		if res.err != nil {
			return errors.Wrapf(res.err, "evolve: fitness evaluation failed for genome %d", res.key)
		}
		genomes[res.key].Fitness = res.fitness
	}
	return nil
}

// Evolve runs the generation loop described by spec.md §4.8: load an
// existing checkpoint or start a fresh population, evaluate, report,
// reproduce, checkpoint every CheckpointEvery generations, and track
// the best-ever genome (always via population.BestGenome, never a
// loop-local variable) until a termination condition is met or ctx is
// canceled. On any exit path the best-ever genome, if one exists, is
// written to WinnerPath before returning.
func (d *Driver) Evolve(ctx context.Context, configPath string, fitnessFn GenomeFitnessFunc) (*neat.Genome, error) {
	pop, err := d.loadOrCreatePopulation(configPath)
	if err != nil {
		return nil, err
	}

	for {
		select {
		case <-ctx.Done():
			return d.finish(pop, ctx.Err())
		default:
		}

		if err := d.evaluateGeneration(pop.Population, fitnessFn); err != nil {
			return d.finish(pop, err)
		}

		d.reportGeneration(pop)
		pop.UpdateBestEver()

		best := pop.FindBestGenome()
		if d.Config.Evolution.MaxFitness > 0 && best != nil && best.Fitness >= d.Config.Evolution.MaxFitness {
			neat.InfoLog(fmt.Sprintf("evolve: termination condition met at generation %d (fitness %.6f)", pop.Generation, best.Fitness))
			return d.finish(pop, nil)
		}
		if d.Config.Evolution.MaxGenerations > 0 && pop.Generation >= d.Config.Evolution.MaxGenerations {
			neat.InfoLog(fmt.Sprintf("evolve: reached max_generations (%d)", d.Config.Evolution.MaxGenerations))
			return d.finish(pop, nil)
		}

		if err := pop.Reproduce(); err != nil {
			return d.finish(pop, err)
		}

		if pop.Generation%d.CheckpointEvery == 0 {
			if err := pop.SaveCheckpoint(d.CheckpointPath); err != nil {
				neat.ErrorLog(fmt.Sprintf("evolve: failed to write checkpoint: %v", err))
			}
		}
	}
}

func (d *Driver) loadOrCreatePopulation(configPath string) (*neat.Population, error) {
	pop, err := neat.LoadCheckpoint(d.CheckpointPath, configPath)
	if err == nil {
		neat.InfoLog(fmt.Sprintf("evolve: resumed from checkpoint at generation %d", pop.Generation))
		return pop, nil
	}
	if !stderrors.Is(err, neat.ErrCheckpointMissing) {
		return nil, errors.Wrap(err, "evolve: failed to load checkpoint")
	}

	neat.InfoLog("evolve: no checkpoint found, spawning fresh population")
	pop, err = neat.NewPopulation(d.Config, d.Config.Evolution.Seed)
	if err != nil {
		return nil, errors.Wrap(err, "evolve: failed to create population")
	}
	return pop, nil
}

// reportGeneration prints a one-line summary of this generation's
// fitness distribution and species count.
func (d *Driver) reportGeneration(pop *neat.Population) {
	fitnesses := make([]float64, 0, len(pop.Population))
	for _, g := range pop.Population {
		fitnesses = append(fitnesses, g.Fitness)
	}
	mean, stddev := neat.Mean(fitnesses), neat.Stdev(fitnesses)
	best := pop.FindBestGenome()
	bestFitness := 0.0
	if best != nil {
		bestFitness = best.Fitness
	}
	neat.InfoLog(fmt.Sprintf("evolve: generation %d best=%.6f mean=%.6f stddev=%.6f species=%d",
		pop.Generation, bestFitness, mean, stddev, len(pop.SpeciesSet.Species)))
}

// finish writes the best-ever genome to WinnerPath, if one has been
// recorded, and returns it alongside the triggering error (nil on a
// clean termination).
func (d *Driver) finish(pop *neat.Population, cause error) (*neat.Genome, error) {
	if pop.BestGenome != nil {
		if err := writeWinner(pop.BestGenome, d.WinnerPath); err != nil {
			neat.ErrorLog(fmt.Sprintf("evolve: failed to write winner file: %v", err))
		}
	}
	return pop.BestGenome, cause
}
