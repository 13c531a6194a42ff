package scheduler

import (
	"github.com/aristath/bullbear/internal/database"
	"github.com/rs/zerolog"
)

// CheckWALCheckpointsJob truncates the WAL of the cache database so it does
// not grow unbounded between restarts.
type CheckWALCheckpointsJob struct {
	db  *database.DB
	log zerolog.Logger
}

// NewCheckWALCheckpointsJob creates a new CheckWALCheckpointsJob
func NewCheckWALCheckpointsJob(db *database.DB, log zerolog.Logger) *CheckWALCheckpointsJob {
	return &CheckWALCheckpointsJob{
		db:  db,
		log: log.With().Str("job", "check_wal_checkpoints").Logger(),
	}
}

// Name returns the job name
func (j *CheckWALCheckpointsJob) Name() string {
	return "check_wal_checkpoints"
}

// Run checkpoints the database
func (j *CheckWALCheckpointsJob) Run() error {
	stats, err := j.db.GetStats()
	if err != nil {
		j.log.Warn().Err(err).Str("database", j.db.Name()).Msg("Failed to read database stats")
	} else {
		j.log.Debug().
			Str("database", j.db.Name()).
			Int64("wal_bytes", stats.WALSizeBytes).
			Msg("WAL size before checkpoint")
	}

	if err := j.db.WALCheckpoint("TRUNCATE"); err != nil {
		j.log.Error().Err(err).Str("database", j.db.Name()).Msg("WAL checkpoint failed")
		return err
	}
	return nil
}
