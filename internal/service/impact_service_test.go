package service

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/andresuchdata/ecoagent/backend-go/internal/impact"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeEstimator struct {
	err  error
	seen impact.FootprintRequest
}

func (f *fakeEstimator) ForUsage(u *impact.Usage) impact.FootprintRequest {
	tokens, calls := u.Total()
	return impact.FootprintRequest{Provider: "Google", AvgTokensPerQuery: tokens / int64(calls), Queries: calls}
}

func (f *fakeEstimator) Estimate(ctx context.Context, req impact.FootprintRequest) (*impact.Estimate, error) {
	f.seen = req
	if f.err != nil {
		return nil, f.err
	}
	return &impact.Estimate{Request: req, Data: json.RawMessage(`{"co2e":0.4}`)}, nil
}

func TestImpactService_RecordWithoutFootprint(t *testing.T) {
	report, err := NewImpactService(nil).Record(context.Background(), "req-1", []UsageEntry{
		{Agent: "waste_risk", Tokens: 120},
		{Agent: "waste_risk", Tokens: 80},
	})
	require.NoError(t, err)
	assert.Equal(t, int64(200), report.TotalTokens)
	assert.Equal(t, 2, report.Queries)
	assert.Nil(t, report.Footprint)
}

func TestImpactService_RecordWithFootprint(t *testing.T) {
	est := &fakeEstimator{}
	report, err := NewImpactService(est).Record(context.Background(), "req-2", []UsageEntry{
		{Agent: "orchestrator", Tokens: 300},
		{Agent: "procurement", Tokens: 100},
	})
	require.NoError(t, err)
	require.NotNil(t, report.Footprint)
	assert.JSONEq(t, `{"co2e":0.4}`, string(report.Footprint.Data))
	assert.Equal(t, int64(200), est.seen.AvgTokensPerQuery)
	assert.Equal(t, 2, est.seen.Queries)
}

func TestImpactService_FootprintFailureIsReported(t *testing.T) {
	report, err := NewImpactService(&fakeEstimator{err: errors.New("boom")}).
		Record(context.Background(), "req-3", []UsageEntry{{Agent: "a", Tokens: 1}})
	require.NoError(t, err)
	assert.Equal(t, "boom", report.FootprintError)
}

func TestImpactService_RejectsInvalidEntries(t *testing.T) {
	_, err := NewImpactService(nil).Record(context.Background(), "", []UsageEntry{{Agent: "a", Tokens: -5}})
	assert.Error(t, err)
}
