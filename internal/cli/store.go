package cli

import (
	"context"
	"fmt"
	"log"
	"time"

	"gorm.io/gorm"

	"taskflow/internal/config"
	"taskflow/internal/repository"
	"taskflow/internal/service"
)

// startTimeout bounds the wait for the first task snapshot.
const startTimeout = 10 * time.Second

// store is an opened database with a running task service.
type store struct {
	db  *gorm.DB
	svc *service.TaskService
}

func openStore(ctx context.Context, cfg config.Config) (*store, error) {
	db, err := repository.NewDB(cfg.DatabaseURL)
	if err != nil {
		return nil, fmt.Errorf("db: %w", err)
	}

	svc := service.NewTaskService(repository.NewTaskRepository(db), cfg.Location)

	startCtx, cancel := context.WithTimeout(ctx, startTimeout)
	defer cancel()
	if err := svc.Start(startCtx); err != nil {
		_ = repository.Close(db)
		return nil, fmt.Errorf("load tasks: %w", err)
	}
	return &store{db: db, svc: svc}, nil
}

func (s *store) Close() {
	s.svc.Close()
	if err := repository.Close(s.db); err != nil {
		log.Printf("close db: %v", err)
	}
}

// openStoreFromEnv reads configuration without requiring a surface.
func openStoreFromEnv(ctx context.Context) (*store, error) {
	cfg, err := config.Parse()
	if err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	return openStore(ctx, cfg)
}
