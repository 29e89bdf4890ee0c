package internal

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
	log "github.com/sirupsen/logrus"

	"github.com/2beens/fitnesstracker/internal/config"
	"github.com/2beens/fitnesstracker/internal/db"
	"github.com/2beens/fitnesstracker/internal/docstore"
	"github.com/2beens/fitnesstracker/pkg"
)

type OpenStoreParams struct {
	Config           *config.Config
	PostgresPassword string
	TracingEnabled   bool
}

// OpenStore opens the document store backend named in the config. The
// returned pool is nil unless the postgres backend is used, and is owned by
// the caller.
func OpenStore(ctx context.Context, params OpenStoreParams) (docstore.Store, *pgxpool.Pool, error) {
	cfg := params.Config
	switch cfg.StoreBackend {
	case config.StoreBackendMemory:
		log.Warnln("using in-memory document store, data will not survive a restart")
		return docstore.NewMemory(), nil, nil

	case config.StoreBackendPostgres:
		poolParams := db.NewDBPoolParams{
			DBHost:         cfg.PostgresHost,
			DBPort:         cfg.PostgresPort,
			DBName:         cfg.PostgresDBName,
			DBUser:         cfg.PostgresUser,
			DBPassword:     params.PostgresPassword,
			TracingEnabled: params.TracingEnabled,
		}
		if path := cfg.PostgresMigrationsPath; path != "" {
			exists, err := pkg.PathExists(path, true)
			if err != nil {
				return nil, nil, fmt.Errorf("check migrations dir: %w", err)
			}
			if !exists {
				return nil, nil, fmt.Errorf("migrations dir not found: %s", path)
			}
		}
		if err := db.RunMigrations(db.ConnString(poolParams), cfg.PostgresMigrationsPath); err != nil {
			return nil, nil, fmt.Errorf("migrate db: %w", err)
		}
		dbPool, err := db.NewDBPool(ctx, poolParams)
		if err != nil {
			return nil, nil, fmt.Errorf("new db pool: %w", err)
		}
		if err := dbPool.Ping(ctx); err != nil {
			log.Warnf("failed to ping db: %s", err)
		}
		return docstore.NewPostgres(dbPool), dbPool, nil

	case config.StoreBackendFirestore:
		store, err := docstore.NewFirestore(ctx, docstore.NewFirestoreParams{
			ProjectID:       cfg.FirestoreProjectID,
			CredentialsFile: cfg.FirestoreCredentialsFile,
		})
		if err != nil {
			return nil, nil, err
		}
		return store, nil, nil

	default:
		return nil, nil, fmt.Errorf("unknown store backend: %s", cfg.StoreBackend)
	}
}
