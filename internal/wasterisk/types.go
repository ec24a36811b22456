package wasterisk

import (
	"github.com/andresuchdata/ecoagent/backend-go/internal/domain"
)

// Component names, as reported in MissingComponents.
const (
	ComponentExpiry     = "expiry_score"
	ComponentVolatility = "volatility_score"
	ComponentWeather    = "weather_score"
	ComponentSurplus    = "surplus_score"
)

// WeatherPolicy describes how per-location weather scores are combined.
const WeatherPolicy = "mean_across_locations"

// Assumption records a default applied in place of missing data.
type Assumption struct {
	Field  string  `json:"field"`
	Value  float64 `json:"value"`
	Reason string  `json:"reason"`
}

// LocationWeather is the weather breakdown for one store.
type LocationWeather struct {
	StoreID          string              `json:"store_id"`
	Date             string              `json:"date"`
	ForecastTemp     float64             `json:"forecast_temp"`
	Precipitation    float64             `json:"precipitation"`
	MaxPrecipitation float64             `json:"max_precipitation"`
	SpecialEvent     domain.SpecialEvent `json:"special_event"`
	TempEffect       float64             `json:"temp_effect"`
	PrecipEffect     float64             `json:"precip_effect"`
	EventEffect      float64             `json:"event_effect"`
	Score            float64             `json:"score"`
}

// WeatherBreakdown explains how weather_score was produced.
type WeatherBreakdown struct {
	Policy        string            `json:"policy"`
	OptimalTemp   float64           `json:"optimal_temp"`
	Locations     []LocationWeather `json:"locations"`
	MissingStores []string          `json:"missing_stores,omitempty"`
}

// WasteHistory totals the product's historical waste records.
type WasteHistory struct {
	Records  int     `json:"records"`
	Quantity float64 `json:"quantity"`
	Cost     float64 `json:"cost"`
}

// Order actions.
const (
	ActionOrder = "order"
	ActionHold  = "hold"
)

// OrderRecommendation is the replenishment advice for the expiry horizon.
type OrderRecommendation struct {
	Action       string  `json:"action"`
	Quantity     float64 `json:"quantity"`
	CoverageDays int     `json:"coverage_days"`
	Threshold    float64 `json:"risk_threshold"`
	Reason       string  `json:"reason"`
}

// RiskScoreReport is the per-product output. Nil score pointers are N/A and
// are listed in MissingComponents.
type RiskScoreReport struct {
	ProductID string   `json:"product_id"`
	Stores    []string `json:"stores,omitempty"`

	AverageSales    float64 `json:"average_sales"`
	SalesDays       int     `json:"sales_days"`
	SalesStdDev     float64 `json:"sales_stddev"`
	VolatilityScore float64 `json:"volatility_score"`

	WeatherScore *float64          `json:"weather_score"`
	Weather      *WeatherBreakdown `json:"weather,omitempty"`

	DaysToExpiry    int     `json:"days_to_expiry"`
	MaxDaysToExpiry float64 `json:"max_days_to_expiry"`
	ExpiryScore     float64 `json:"expiry_score"`

	CurrentInventory float64  `json:"current_inventory"`
	UnitCost         float64  `json:"unit_cost"`
	ForecastedSales  float64  `json:"forecasted_sales"`
	SurplusScore     *float64 `json:"surplus_score"`

	WasteRiskScore    *float64 `json:"waste_risk_score"`
	MissingComponents []string `json:"missing_components,omitempty"`

	ProjectedWasteQuantity float64 `json:"projected_waste_quantity"`
	DisposalCost           float64 `json:"disposal_cost"`
	SalvageValue           float64 `json:"salvage_value"`
	WasteCostImpact        float64 `json:"waste_cost_impact"`

	Recommendation *OrderRecommendation `json:"order_recommendation,omitempty"`

	HistoricalWaste WasteHistory          `json:"historical_waste"`
	Assumptions     []Assumption          `json:"assumptions_used"`
	Malformed       []domain.RowIssue     `json:"malformed_rows,omitempty"`
	Insufficient    []*domain.ErrorDetail `json:"insufficient_data,omitempty"`

	// Error is set on batch entries that could not be scored.
	Error *domain.ErrorDetail `json:"error,omitempty"`
}

// Complete reports whether every component, and so the composite, is defined.
func (r *RiskScoreReport) Complete() bool {
	return r.Error == nil && r.WasteRiskScore != nil
}

// Status is the outcome of a run.
type Status string

const (
	StatusSuccess Status = "success"
	StatusPartial Status = "partial"
	StatusError   Status = "error"
)

// ScopeAll is the Scope of a batch run.
const ScopeAll = "all"

// Result is what the engine hands back to callers for a single product or a batch.
type Result struct {
	Status      Status              `json:"status"`
	Scope       string              `json:"product_id_or_all"`
	Report      *RiskScoreReport    `json:"report,omitempty"`
	Reports     []RiskScoreReport   `json:"reports,omitempty"`
	Assumptions []Assumption        `json:"assumptions_used"`
	Error       *domain.ErrorDetail `json:"error,omitempty"`
	Message     string              `json:"message,omitempty"`
}

func mergeAssumptions(reports []RiskScoreReport) []Assumption {
	seen := make(map[string]bool)
	out := make([]Assumption, 0)
	for _, r := range reports {
		for _, a := range r.Assumptions {
			if seen[a.Field] {
				continue
			}
			seen[a.Field] = true
			out = append(out, a)
		}
	}
	return out
}
