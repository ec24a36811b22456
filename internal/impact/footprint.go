package impact

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/andresuchdata/ecoagent/backend-go/internal/config"
	"github.com/andresuchdata/ecoagent/backend-go/internal/metrics"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
)

const maxResponseSize = 1 << 20

// ErrNotConfigured is returned when no footprint endpoint is set.
var ErrNotConfigured = errors.New("footprint service not configured")

// FootprintRequest describes the usage to estimate.
type FootprintRequest struct {
	Provider          string `json:"ai_service_provider"`
	LLM               string `json:"llm"`
	AvgTokensPerQuery int64  `json:"avg_tokens_per_query"`
	Queries           int    `json:"queries"`
	Region            string `json:"region"`
}

// Estimate is the calculator's answer, kept as raw JSON since its shape is
// owned by the remote service.
type Estimate struct {
	Request FootprintRequest `json:"request"`
	Data    json.RawMessage  `json:"data"`
}

// FootprintClient calls the footprint calculator over HTTP.
type FootprintClient struct {
	endpoint string
	apiKey   string
	email    string
	defaults FootprintRequest
	client   *http.Client
}

func NewFootprintClient(cfg config.ImpactConfig) (*FootprintClient, error) {
	if cfg.Endpoint == "" {
		return nil, ErrNotConfigured
	}
	if _, err := url.ParseRequestURI(cfg.Endpoint); err != nil {
		return nil, errors.Wrap(err, "invalid footprint endpoint")
	}

	timeout := time.Duration(cfg.TimeoutSeconds) * time.Second
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &FootprintClient{
		endpoint: cfg.Endpoint,
		apiKey:   cfg.APIKey,
		email:    cfg.Email,
		defaults: FootprintRequest{
			Provider: cfg.Provider,
			LLM:      cfg.LLM,
			Region:   cfg.Region,
		},
		client: &http.Client{Timeout: timeout},
	}, nil
}

// ForUsage builds a request from accumulated usage, filling provider, model
// and region from configuration.
func (c *FootprintClient) ForUsage(u *Usage) FootprintRequest {
	req := c.defaults
	_, calls := u.Total()
	req.AvgTokensPerQuery = u.AverageTokens()
	req.Queries = calls
	return req
}

// Estimate queries the calculator. Any status other than 200 is an error.
func (c *FootprintClient) Estimate(ctx context.Context, in FootprintRequest) (*Estimate, error) {
	u, err := url.Parse(c.endpoint)
	if err != nil {
		return nil, errors.Wrap(err, "invalid footprint endpoint")
	}
	q := u.Query()
	q.Set("AIServiceProvider", in.Provider)
	q.Set("LLM", in.LLM)
	q.Set("AvgNoOfTokensPerQuery", strconv.FormatInt(in.AvgTokensPerQuery, 10))
	q.Set("NoOfQueries", strconv.Itoa(in.Queries))
	q.Set("region", in.Region)
	u.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, errors.Wrap(err, "failed to create footprint request")
	}
	req.Header.Set("API_KEY", c.apiKey)
	req.Header.Set("email", c.email)
	req.Header.Set("Content-Type", "application/json")

	start := time.Now()
	resp, err := c.client.Do(req)
	if err != nil {
		metrics.FootprintRequestsTotal.WithLabelValues("error").Inc()
		return nil, errors.Wrap(err, "footprint request failed")
	}
	defer resp.Body.Close()
	metrics.FootprintRequestsTotal.WithLabelValues(strconv.Itoa(resp.StatusCode)).Inc()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	if err != nil {
		return nil, errors.Wrap(err, "failed to read footprint response")
	}

	log.Debug().
		Int("status", resp.StatusCode).
		Dur("duration", time.Since(start)).
		Int64("avg_tokens", in.AvgTokensPerQuery).
		Int("queries", in.Queries).
		Msg("footprint estimate requested")

	if resp.StatusCode != http.StatusOK {
		return nil, errors.Errorf("footprint service returned %d: %s", resp.StatusCode, truncate(string(body), 200))
	}
	if !json.Valid(body) {
		return nil, errors.New("footprint service returned invalid JSON")
	}
	return &Estimate{Request: in, Data: json.RawMessage(body)}, nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
