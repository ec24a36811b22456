package service

import (
	"context"

	"github.com/andresuchdata/ecoagent/backend-go/internal/impact"
	"github.com/rs/zerolog/log"
)

// FootprintEstimator is satisfied by impact.FootprintClient.
type FootprintEstimator interface {
	ForUsage(u *impact.Usage) impact.FootprintRequest
	Estimate(ctx context.Context, req impact.FootprintRequest) (*impact.Estimate, error)
}

type UsageEntry struct {
	Agent  string `json:"agent" binding:"required"`
	Tokens int64  `json:"tokens" binding:"gte=0"`
}

type UsageReport struct {
	RequestID      string              `json:"request_id,omitempty"`
	Agents         []impact.AgentUsage `json:"agents"`
	TotalTokens    int64               `json:"total_tokens"`
	Queries        int                 `json:"queries"`
	Footprint      *impact.Estimate    `json:"footprint,omitempty"`
	FootprintError string              `json:"footprint_error,omitempty"`
}

type ImpactService struct {
	footprint FootprintEstimator
}

// NewImpactService accepts a nil estimator when no footprint service is configured.
func NewImpactService(footprint FootprintEstimator) *ImpactService {
	return &ImpactService{footprint: footprint}
}

// Record accumulates the entries of one request and, when possible, asks the
// footprint service for an estimate. A failing estimate does not fail the call.
func (s *ImpactService) Record(ctx context.Context, requestID string, entries []UsageEntry) (*UsageReport, error) {
	usage := impact.NewUsage()
	for _, e := range entries {
		if err := usage.Record(e.Agent, e.Tokens); err != nil {
			return nil, err
		}
	}

	tokens, calls := usage.Total()
	report := &UsageReport{
		RequestID:   requestID,
		Agents:      usage.Agents(),
		TotalTokens: tokens,
		Queries:     calls,
	}
	for _, a := range report.Agents {
		log.Info().
			Str("request_id", requestID).
			Str("agent", a.Agent).
			Int64("tokens", a.Tokens).
			Msg("usage impact recorded")
	}

	if s.footprint == nil || calls == 0 {
		return report, nil
	}
	est, err := s.footprint.Estimate(ctx, s.footprint.ForUsage(usage))
	if err != nil {
		log.Warn().Err(err).Str("request_id", requestID).Msg("footprint estimate failed")
		report.FootprintError = err.Error()
		return report, nil
	}
	report.Footprint = est
	return report, nil
}
