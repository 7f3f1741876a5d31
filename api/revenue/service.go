package revenue

import (
	"RoyaltyDesk/internal/serviceiface"

	"github.com/jackc/pgx/v5/pgxpool"
)

type RevenueService struct {
	config  map[string]interface{}
	pgxPool *pgxpool.Pool
}

func NewRevenueService(cfg map[string]interface{}, pgxPool *pgxpool.Pool) serviceiface.Service {
	return &RevenueService{config: cfg, pgxPool: pgxPool}
}

func (s *RevenueService) Name() string {
	return "revenue"
}

func (s *RevenueService) Start() error {
	go StartRevenueService(s.pgxPool)
	return nil
}

func (s *RevenueService) Stop() error {
	return nil
}
