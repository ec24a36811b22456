package wasterisk

import (
	"math"
	"sort"

	"github.com/andresuchdata/ecoagent/backend-go/internal/domain"
)

// Input is everything known about one product, already scoped to it.
type Input struct {
	ProductID string
	Inventory []domain.InventoryRecord
	Sales     []domain.SalesRecord
	Waste     []domain.WasteRecord
	// Weather holds the rows of each associated store.
	Weather   map[string][]domain.WeatherRecord
	Malformed []domain.RowIssue
}

// Calculator turns an Input into a RiskScoreReport. It holds no state beyond
// its configuration, so the same Input always yields the same report.
type Calculator struct {
	cfg Config
}

func NewCalculator(cfg Config) *Calculator {
	return &Calculator{cfg: cfg}
}

// Stores returns the sorted union of inventory locations and sales stores.
func Stores(inventory []domain.InventoryRecord, sales []domain.SalesRecord) []string {
	set := make(map[string]struct{})
	for _, r := range inventory {
		if r.LocationID != "" {
			set[r.LocationID] = struct{}{}
		}
	}
	for _, r := range sales {
		if r.StoreID != "" {
			set[r.StoreID] = struct{}{}
		}
	}
	out := make([]string, 0, len(set))
	for s := range set {
		out = append(out, s)
	}
	sort.Strings(out)
	return out
}

// Calculate computes every score for the product. It fails with NoData when
// there is no valid inventory or sales row.
func (c *Calculator) Calculate(in Input) (*RiskScoreReport, error) {
	if len(in.Inventory) == 0 {
		return nil, domain.NoData(in.ProductID, domain.DatasetInventory)
	}
	if len(in.Sales) == 0 {
		return nil, domain.NoData(in.ProductID, domain.DatasetSales)
	}

	report := &RiskScoreReport{
		ProductID:   in.ProductID,
		Stores:      Stores(in.Inventory, in.Sales),
		Assumptions: make([]Assumption, 0),
		Malformed:   in.Malformed,
	}
	optimalTemp, shelfLife := c.profile(in.ProductID, report)

	// 1. Average sales = mean of units_sold over every row
	var total float64
	for _, s := range in.Sales {
		total += s.UnitsSold
	}
	report.SalesDays = len(in.Sales)
	report.AverageSales = total / float64(len(in.Sales))

	// 2. Volatility = population stddev / average sales, 0 when average is 0
	var sq float64
	for _, s := range in.Sales {
		d := s.UnitsSold - report.AverageSales
		sq += d * d
	}
	report.SalesStdDev = math.Sqrt(sq / float64(len(in.Sales)))
	if report.AverageSales > 0 {
		report.VolatilityScore = report.SalesStdDev / report.AverageSales
		if c.cfg.ClampVolatility {
			report.VolatilityScore = math.Min(1, report.VolatilityScore)
		}
	}

	// 3. Weather impact, mean across the product's stores
	report.Weather = c.weather(report.Stores, in.Weather, optimalTemp, report)
	if len(report.Weather.Locations) > 0 {
		var sum float64
		for _, loc := range report.Weather.Locations {
			sum += loc.Score
		}
		score := sum / float64(len(report.Weather.Locations))
		report.WeatherScore = &score
	} else {
		report.Insufficient = append(report.Insufficient, domain.DetailOf(domain.InsufficientData(ComponentWeather)))
	}

	// 4. Expiry score = 1 - days_to_expiry / shelf life, clamped to [0,1]
	inv := aggregateInventory(in.Inventory)
	report.CurrentInventory = inv.quantity
	report.DaysToExpiry = inv.daysToExpiry
	report.UnitCost = inv.unitCost
	report.MaxDaysToExpiry = shelfLife
	report.ExpiryScore = clamp01(1 - float64(inv.daysToExpiry)/shelfLife)

	// 5. Surplus = max(0, inventory - average sales * days_to_expiry)
	report.ForecastedSales = report.AverageSales * float64(inv.daysToExpiry)
	surplus := math.Max(0, inv.quantity-report.ForecastedSales)
	if inv.quantity > 0 {
		score := surplus / inv.quantity
		report.SurplusScore = &score
	} else {
		report.Insufficient = append(report.Insufficient, domain.DetailOf(domain.InsufficientData(ComponentSurplus)))
	}

	// 6. Composite, only when every component is defined
	if report.WeatherScore == nil {
		report.MissingComponents = append(report.MissingComponents, ComponentWeather)
	}
	if report.SurplusScore == nil {
		report.MissingComponents = append(report.MissingComponents, ComponentSurplus)
	}
	if len(report.MissingComponents) == 0 {
		w := c.cfg.Weights
		composite := w.Expiry*report.ExpiryScore +
			w.Volatility*report.VolatilityScore +
			w.Weather*(*report.WeatherScore) +
			w.Surplus*(*report.SurplusScore)
		report.WasteRiskScore = &composite
	}

	// 7. Projected waste quantity is the surplus itself
	report.ProjectedWasteQuantity = surplus

	// 8. Waste cost impact
	report.HistoricalWaste = wasteHistory(in.Waste)
	cost := c.costImpact(surplus, inv.unitCost, in.Waste, report)
	report.DisposalCost = cost.disposal
	report.SalvageValue = cost.salvage
	report.WasteCostImpact = cost.impact

	// 9. Order recommendation, only with a defined composite
	report.Recommendation = c.recommend(report)

	return report, nil
}

// recommend covers the forecast demand left unmet by the stock expected to
// sell, i.e. max(0, forecasted_sales - (current_inventory - projected_waste)),
// rounded up to whole units. Products at or above the risk threshold hold.
func (c *Calculator) recommend(report *RiskScoreReport) *OrderRecommendation {
	if report.WasteRiskScore == nil {
		return nil
	}
	rec := &OrderRecommendation{
		Action:       ActionHold,
		CoverageDays: report.DaysToExpiry,
		Threshold:    c.cfg.OrderRiskThreshold,
	}
	if *report.WasteRiskScore >= c.cfg.OrderRiskThreshold {
		rec.Reason = "waste risk at or above threshold"
		return rec
	}

	sellable := report.CurrentInventory - report.ProjectedWasteQuantity
	shortfall := math.Max(0, report.ForecastedSales-sellable)
	if shortfall == 0 {
		rec.Reason = "current stock covers forecast demand"
		return rec
	}
	rec.Action = ActionOrder
	rec.Quantity = math.Ceil(shortfall)
	rec.Reason = "forecast demand exceeds current stock"
	return rec
}

func (c *Calculator) profile(productID string, report *RiskScoreReport) (optimalTemp, shelfLife float64) {
	if c.cfg.Knowledge != nil {
		optimalTemp, shelfLife = c.cfg.Knowledge.Resolve(productID)
	}
	if optimalTemp <= 0 {
		optimalTemp = c.cfg.DefaultOptimalTemp
		report.Assumptions = append(report.Assumptions, Assumption{
			Field:  "optimal_temp",
			Value:  optimalTemp,
			Reason: "no optimal temperature known for product",
		})
	}
	if shelfLife <= 0 {
		shelfLife = c.cfg.DefaultShelfLifeDays
		report.Assumptions = append(report.Assumptions, Assumption{
			Field:  "max_days_to_expiry",
			Value:  shelfLife,
			Reason: "no shelf life known for product",
		})
	}
	return optimalTemp, shelfLife
}

type inventoryTotals struct {
	quantity     float64
	daysToExpiry int
	unitCost     float64
}

// aggregateInventory sums quantity, keeps the earliest expiry and takes the
// quantity-weighted unit cost (plain mean when nothing is in stock).
func aggregateInventory(records []domain.InventoryRecord) inventoryTotals {
	t := inventoryTotals{daysToExpiry: records[0].DaysToExpiry}
	var weighted, plain float64
	for _, r := range records {
		t.quantity += r.Quantity
		weighted += r.Quantity * r.UnitCost
		plain += r.UnitCost
		if r.DaysToExpiry < t.daysToExpiry {
			t.daysToExpiry = r.DaysToExpiry
		}
	}
	if t.quantity > 0 {
		t.unitCost = weighted / t.quantity
	} else {
		t.unitCost = plain / float64(len(records))
	}
	return t
}

func wasteHistory(records []domain.WasteRecord) WasteHistory {
	h := WasteHistory{Records: len(records)}
	for _, r := range records {
		h.Quantity += r.WasteQuantity
		h.Cost += r.WasteCost
	}
	return h
}

func clamp01(v float64) float64 {
	return math.Max(0, math.Min(1, v))
}
