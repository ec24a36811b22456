package service

import (
	"context"
	"time"

	"github.com/andresuchdata/ecoagent/backend-go/internal/wasterisk"
	"github.com/rs/zerolog/log"
)

type WasteRiskService struct {
	engine *wasterisk.Engine
}

func NewWasteRiskService(engine *wasterisk.Engine) *WasteRiskService {
	return &WasteRiskService{engine: engine}
}

// Evaluate scores one product, or every product when productID is empty.
func (s *WasteRiskService) Evaluate(ctx context.Context, productID string) wasterisk.Result {
	start := time.Now()
	res := s.engine.Run(ctx, productID)

	event := log.Info()
	if res.Status == wasterisk.StatusError {
		event = log.Warn().Str("error", res.Message)
	}
	event.
		Str("scope", res.Scope).
		Str("status", string(res.Status)).
		Int("assumptions", len(res.Assumptions)).
		Dur("duration", time.Since(start)).
		Msg("waste risk evaluated")
	return res
}
