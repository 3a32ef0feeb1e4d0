package neat

import (
	"math"

	"github.com/pkg/errors"
)

// ActivationFunc is a named scalar activation function.
type ActivationFunc func(x float64) float64

// activationClamp bounds inputs to sigmoid/gaussian before the exponential,
// matching the source's overflow guard.
const activationClamp = 20.0

// activationRegistry maps stable, serializable names to activation
// functions. Names are referenced from NodeGene.Activation and from
// configuration.
var activationRegistry = map[string]ActivationFunc{
	"sigmoid":    sigmoidActivation,
	"tanh":       math.Tanh,
	"relu":       reluActivation,
	"leaky_relu": leakyReLUActivation,
	"linear":     linearActivation,
	"gaussian":   gaussianActivation,
	"sin":        math.Sin,
	"cos":        math.Cos,
}

// GetActivation retrieves an activation function by name.
func GetActivation(name string) (ActivationFunc, error) {
	fn, ok := activationRegistry[name]
	if !ok {
		return nil, errors.Errorf("unknown activation function: %q", name)
	}
	return fn, nil
}

// ActivationNames returns the registry's keys, used by mutation to pick a
// uniformly random activation.
func ActivationNames() []string {
	names := make([]string, 0, len(activationRegistry))
	for name := range activationRegistry {
		names = append(names, name)
	}
	return names
}

func sigmoidActivation(x float64) float64 {
	x = clampFloat(x, -activationClamp, activationClamp)
	return 1.0 / (1.0 + math.Exp(-x))
}

func reluActivation(x float64) float64 {
	return math.Max(0, x)
}

func leakyReLUActivation(x float64) float64 {
	if x >= 0 {
		return x
	}
	return 0.01 * x
}

func linearActivation(x float64) float64 {
	return x
}

func gaussianActivation(x float64) float64 {
	x = clampFloat(x, -activationClamp, activationClamp)
	return math.Exp(-x * x)
}

func clampFloat(value, minVal, maxVal float64) float64 {
	return math.Max(minVal, math.Min(value, maxVal))
}
