//cmd/seeder/main.go
package main

import (
	"context"
	"database/sql"
	"os"

	"go.uber.org/zap"

	"github.com/unclebandit/campaign-monitor/internal/config"
	"github.com/unclebandit/campaign-monitor/internal/db"
	"github.com/unclebandit/campaign-monitor/internal/logging"
	"github.com/unclebandit/campaign-monitor/internal/repository"
)

const (
	schemaFile       = "seed/schema.sql"
	sourceSchemaFile = "seed/source_schema.sql"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}
	log, err := logging.New(cfg.LogLevel, cfg.LogFormat)
	if err != nil {
		panic(err)
	}
	defer log.Sync()

	ctx := context.Background()

	store, err := db.Open(ctx, cfg.DSN())
	if err != nil {
		log.Fatal("failed to connect to consolidated store", zap.Error(err))
	}
	defer store.Close()

	if err := apply(ctx, store, schemaFile); err != nil {
		log.Fatal("failed to seed consolidated store", zap.Error(err))
	}
	log.Info("seeded", zap.String("file", schemaFile))

	// every routed tenant gets the source schema in its own database
	tenants, err := (&repository.TenantRepository{DB: store}).ListActive(ctx)
	if err != nil {
		log.Fatal("failed to list tenants", zap.Error(err))
	}

	sources := db.NewDSNRegistry(cfg.SourceDSN)
	defer sources.Close()

	for _, t := range tenants {
		if !t.HasRouting() {
			log.Info("tenant has no source routing, skipping", zap.String("tenant", t.Name))
			continue
		}
		conn, err := sources.Get(ctx, t.RoutingKey())
		if err != nil {
			log.Error("failed to connect to source database", zap.String("tenant", t.Name), zap.Error(err))
			continue
		}
		if err := apply(ctx, conn, sourceSchemaFile); err != nil {
			log.Error("failed to seed source database", zap.String("tenant", t.Name), zap.Error(err))
			continue
		}
		log.Info("seeded", zap.String("file", sourceSchemaFile), zap.String("tenant", t.Name))
	}

	log.Info("Database seeding completed successfully!")
}

func apply(ctx context.Context, conn *sql.DB, file string) error {
	content, err := os.ReadFile(file)
	if err != nil {
		return err
	}
	_, err = conn.ExecContext(ctx, string(content))
	return err
}
