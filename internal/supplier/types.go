package supplier

import (
	"fmt"
	"math"
	"time"

	"github.com/andresuchdata/ecoagent/backend-go/internal/domain"
)

// Component names.
const (
	ComponentESG           = "esg_component"
	ComponentEmissions     = "emissions_component"
	ComponentCertification = "certification_component"
	ComponentAudit         = "audit_component"
)

// Weights of the four components; they must sum to 1.
type Weights struct {
	ESG           float64
	Emissions     float64
	Certification float64
	Audit         float64
}

func (w Weights) Sum() float64 {
	return w.ESG + w.Emissions + w.Certification + w.Audit
}

type Config struct {
	Weights        Weights
	StalenessYears int
	Workers        int
	// Now supplies the as-of date; defaults to time.Now.
	Now func() time.Time
}

func DefaultConfig() Config {
	return Config{
		Weights: Weights{
			ESG:           0.50,
			Emissions:     0.15,
			Certification: 0.15,
			Audit:         0.20,
		},
		StalenessYears: 2,
		Workers:        4,
		Now:            time.Now,
	}
}

func (c Config) Validate() error {
	if sum := c.Weights.Sum(); math.Abs(sum-1) > 1e-9 {
		return fmt.Errorf("supplier weights must sum to 1.0, got %v", sum)
	}
	if c.StalenessYears < 1 {
		return fmt.Errorf("staleness window must be at least one year")
	}
	return nil
}

// ScoreStatus tells scored suppliers from those with no usable input.
type ScoreStatus string

const (
	StatusScored   ScoreStatus = "scored"
	StatusUnscored ScoreStatus = "unscored"
)

// SupplierScoreReport holds the components and composite for one supplier.
// A nil component had no usable (non-stale, valid) input.
type SupplierScoreReport struct {
	SupplierID string `json:"supplier_id"`
	AsOf       string `json:"as_of"`

	ESGComponent           *float64 `json:"esg_component"`
	ESGProvider            string   `json:"esg_provider,omitempty"`
	EmissionsComponent     *float64 `json:"emissions_component"`
	CertificationComponent *float64 `json:"certification_component"`
	AuditComponent         *float64 `json:"audit_component"`

	NormalizedScore *float64    `json:"normalized_score"`
	Status          ScoreStatus `json:"status"`

	StaleFlag   bool     `json:"stale_flag"`
	StaleInputs []string `json:"stale_inputs,omitempty"`

	Warnings        []string              `json:"warnings,omitempty"`
	ComponentErrors []*domain.ErrorDetail `json:"component_errors,omitempty"`
	Malformed       []domain.RowIssue     `json:"malformed_rows,omitempty"`
	Error           *domain.ErrorDetail   `json:"error,omitempty"`
}

// RankedSupplier is one entry of a ranking.
type RankedSupplier struct {
	SupplierID      string              `json:"supplier_id"`
	NormalizedScore *float64            `json:"normalized_score"`
	StaleFlag       bool                `json:"stale_flag"`
	Status          ScoreStatus         `json:"status"`
	Error           *domain.ErrorDetail `json:"error,omitempty"`
}

// RankStatus is the outcome of a ranking run.
type RankStatus string

const (
	RankSuccess RankStatus = "success"
	RankPartial RankStatus = "partial"
	RankError   RankStatus = "error"
)

// Ranking is the ordered result of RankSuppliers.
type Ranking struct {
	Status    RankStatus            `json:"status"`
	ProductID string                `json:"product_id,omitempty"`
	Location  string                `json:"location,omitempty"`
	Ranked    []RankedSupplier      `json:"ranked"`
	Reports   []SupplierScoreReport `json:"reports,omitempty"`
	Error     *domain.ErrorDetail   `json:"error,omitempty"`
	Message   string                `json:"message,omitempty"`
}
