package di

import (
	"fmt"

	"github.com/aristath/bullbear/internal/clientdata"
	"github.com/aristath/bullbear/internal/config"
	"github.com/aristath/bullbear/internal/database"
	"github.com/rs/zerolog"
)

// InitializeDatabases opens the API response cache, applies its schema and
// returns a container holding it.
func InitializeDatabases(cfg *config.Config, log zerolog.Logger) (*Container, error) {
	container := &Container{Config: cfg}

	cacheDB, err := database.New(database.Config{
		Path:    cfg.CachePath(),
		Profile: database.ProfileCache,
		Name:    "client_data",
	})
	if err != nil {
		return nil, fmt.Errorf("failed to initialize cache database: %w", err)
	}
	if err := cacheDB.Migrate(); err != nil {
		cacheDB.Close()
		return nil, fmt.Errorf("failed to migrate cache database: %w", err)
	}

	container.CacheDB = cacheDB
	container.ClientData = clientdata.NewRepository(cacheDB.Conn())

	log.Info().Str("path", cacheDB.Path()).Msg("Cache database ready")
	return container, nil
}
