package main

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/rs/zerolog/log"

	"github.com/mcdev12/fairroulette/go/internal/archive"
	"github.com/mcdev12/fairroulette/go/internal/dbconfig"
)

func setupArchive(ctx context.Context) (*sql.DB, *archive.Repository, error) {
	dbCfg := dbconfig.NewConfigFromEnv()

	database, err := dbconfig.Open(ctx, dbCfg)
	if err != nil {
		return nil, nil, err
	}

	repo := archive.NewRepository(database)
	if err := repo.EnsureSchema(ctx); err != nil {
		database.Close()
		return nil, nil, fmt.Errorf("failed to prepare archive: %w", err)
	}

	log.Info().
		Str("database", dbCfg.Database).
		Str("host", dbCfg.Host).
		Msg("connected to round archive")
	return database, repo, nil
}
