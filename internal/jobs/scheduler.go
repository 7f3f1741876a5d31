package jobs

import (
	"fmt"
	"log"

	"RoyaltyDesk/internal/logger"
	"RoyaltyDesk/internal/serviceiface"

	"github.com/jackc/pgx/v5/pgxpool"
)

type CronService struct {
	config map[string]interface{}
	db     *pgxpool.Pool
}

func NewCronService(cfg map[string]interface{}, db *pgxpool.Pool) serviceiface.Service {
	return &CronService{
		config: cfg,
		db:     db,
	}
}

func (s *CronService) Name() string {
	return "cron"
}

func (s *CronService) Start() error {
	log.Println("Starting cron service...")

	rematchConfig := NewDefaultRematchConfig()

	// Override rematch config from services.yaml if provided
	if s.config != nil {
		if schedule, ok := s.config["rematch_schedule"].(string); ok && schedule != "" {
			rematchConfig.Schedule = schedule
		}
		if batchSize, ok := s.config["rematch_batch_size"].(int); ok && batchSize > 0 {
			rematchConfig.BatchSize = batchSize
		}
	}

	err := RunRematchScheduler(rematchConfig, s.db)
	if err != nil {
		return fmt.Errorf("failed to start rematch scheduler: %v", err)
	}

	logger.GlobalLogger.LogAudit("Cron service started with rematch scheduler")
	log.Println("Cron service started — Rematch Scheduler scheduled")

	return nil
}

func (s *CronService) Stop() error {
	log.Println("Cron service stopped.")
	return nil
}
