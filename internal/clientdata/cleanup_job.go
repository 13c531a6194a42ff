package clientdata

import (
	"github.com/rs/zerolog"
)

// CleanupJobName is the scheduler name of the cache cleanup job
const CleanupJobName = "client_data_cleanup"

// CleanupJob purges expired API responses so the cache file does not grow
// with every ticker that ever left the universe.
type CleanupJob struct {
	repo *Repository
	log  zerolog.Logger
}

func NewCleanupJob(repo *Repository, log zerolog.Logger) *CleanupJob {
	return &CleanupJob{repo: repo, log: log.With().Str("job", CleanupJobName).Logger()}
}

func (j *CleanupJob) Name() string { return CleanupJobName }

func (j *CleanupJob) Run() error {
	deleted, err := j.repo.DeleteAllExpired()
	if err != nil {
		j.log.Error().Err(err).Msg("Cache cleanup aborted")
		return err
	}

	perTable := zerolog.Dict()
	var total int64
	for _, table := range AllTables {
		if n := deleted[table]; n > 0 {
			perTable.Int64(table, n)
			total += n
		}
	}
	if total == 0 {
		j.log.Debug().Msg("No expired cache entries")
		return nil
	}
	j.log.Info().Int64("deleted", total).Dict("tables", perTable).Msg("Purged expired cache entries")
	return nil
}
