package neat

import "github.com/pkg/errors"

// Sentinel errors forming the error taxonomy described by the package docs.
// Wrap these with github.com/pkg/errors when adding call-site context so
// callers can still match with errors.Is.
var (
	// ErrInvalidInputShape is returned by Genome.Activate / the compiled
	// feed-forward network when the supplied input slice does not have
	// exactly NumInputs elements.
	ErrInvalidInputShape = errors.New("neat: invalid input shape")

	// ErrStructuralViolation is returned by AddConnection when the
	// requested edge would duplicate an existing connection, create a
	// cycle, or touch an input/output node illegally. Mutation operators
	// treat it as a no-op.
	ErrStructuralViolation = errors.New("neat: structural violation")

	// ErrConfigMissing is returned by Config.Validate (and so by
	// LoadConfig) when a configuration value is missing or out of range.
	// Keys absent from a loaded ini file keep their DefaultConfig value.
	ErrConfigMissing = errors.New("neat: required configuration missing")

	// ErrCheckpointMissing is returned by LoadCheckpoint when the
	// checkpoint file does not exist. Callers should treat this as
	// non-fatal and proceed with a fresh population.
	ErrCheckpointMissing = errors.New("neat: checkpoint file not found")

	// ErrPopulationExtinct is returned when every species has gone
	// extinct and no offspring could be produced.
	ErrPopulationExtinct = errors.New("neat: population extinct")
)
