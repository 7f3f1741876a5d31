package payout

import (
	"RoyaltyDesk/internal/serviceiface"

	"github.com/jackc/pgx/v5/pgxpool"
)

type PayoutService struct {
	config  map[string]interface{}
	pgxPool *pgxpool.Pool
}

func NewPayoutService(cfg map[string]interface{}, pgxPool *pgxpool.Pool) serviceiface.Service {
	return &PayoutService{config: cfg, pgxPool: pgxPool}
}

func (s *PayoutService) Name() string {
	return "payout"
}

func (s *PayoutService) Start() error {
	go StartPayoutService(s.pgxPool)
	return nil
}

func (s *PayoutService) Stop() error {
	return nil
}
