package scheduler

import (
	"github.com/rs/zerolog"

	"github.com/aristath/walletcore/internal/database"
	"github.com/aristath/walletcore/internal/events"
)

// IntegrityCheckJob runs the cross-database integrity validator on a slow
// schedule. Ledger rows reference wallet.db entities across a file
// boundary SQLite cannot enforce, so orphans and broken balance chains
// would otherwise only surface as wrong numbers in a tree.
type IntegrityCheckJob struct {
	validator *database.IntegrityValidator
	bus       *events.Bus
	log       zerolog.Logger
}

func NewIntegrityCheckJob(validator *database.IntegrityValidator, bus *events.Bus, log zerolog.Logger) *IntegrityCheckJob {
	return &IntegrityCheckJob{
		validator: validator,
		bus:       bus,
		log:       log.With().Str("job", "integrity_check").Logger(),
	}
}

func (j *IntegrityCheckJob) Run() error {
	result, err := j.validator.ValidateAll()
	if err != nil {
		return err
	}

	if !result.Valid {
		j.log.Warn().Int("issues", len(result.Issues)).Msg(result.FormatIssues())
		j.bus.Emit(events.HealthFlagChanged, "integrity_check", map[string]interface{}{
			"issues": len(result.Issues),
		})
		return nil
	}

	j.log.Info().Msg("integrity check passed")
	return nil
}

func (j *IntegrityCheckJob) Name() string {
	return "integrity_check"
}
