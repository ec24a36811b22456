package wasterisk

import (
	"github.com/andresuchdata/ecoagent/backend-go/internal/domain"
	"github.com/shopspring/decimal"
)

type costBreakdown struct {
	disposal float64
	salvage  float64
	impact   float64
}

// costImpact computes projected_waste * (unit_cost + disposal_cost - salvage_value)
// in decimal arithmetic so the result does not pick up binary rounding noise.
func (c *Calculator) costImpact(projected, unitCost float64, waste []domain.WasteRecord, report *RiskScoreReport) costBreakdown {
	qty := decimal.NewFromFloat(projected)
	cost := decimal.NewFromFloat(unitCost)

	var disposal decimal.Decimal
	if explicit := latestWasteField(waste, func(r domain.WasteRecord) *float64 { return r.DisposalCost }); explicit != nil {
		disposal = decimal.NewFromFloat(*explicit)
	} else {
		// base fee + projected waste * rate per unit
		disposal = decimal.NewFromFloat(c.cfg.BaseDisposalFee).
			Add(qty.Mul(decimal.NewFromFloat(c.cfg.DisposalRatePerUnit)))
		report.Assumptions = append(report.Assumptions, Assumption{
			Field:  "disposal_cost",
			Value:  disposal.InexactFloat64(),
			Reason: "no disposal_cost recorded; base fee plus per-unit rate applied",
		})
	}

	var salvage decimal.Decimal
	if explicit := latestWasteField(waste, func(r domain.WasteRecord) *float64 { return r.SalvageValue }); explicit != nil {
		salvage = decimal.NewFromFloat(*explicit)
	} else {
		// resale price per unit * salvage probability
		salvage = cost.
			Mul(decimal.NewFromFloat(c.cfg.ResalePriceFactor)).
			Mul(decimal.NewFromFloat(c.cfg.SalvageProbability))
		report.Assumptions = append(report.Assumptions, Assumption{
			Field:  "salvage_value",
			Value:  salvage.InexactFloat64(),
			Reason: "no salvage_value recorded; resale factor times salvage probability applied",
		})
	}

	impact := qty.Mul(cost.Add(disposal).Sub(salvage))
	if impact.IsNegative() {
		impact = decimal.Zero
	}

	return costBreakdown{
		disposal: disposal.InexactFloat64(),
		salvage:  salvage.InexactFloat64(),
		impact:   impact.InexactFloat64(),
	}
}

// latestWasteField returns the field from the most recent waste row that has it.
func latestWasteField(waste []domain.WasteRecord, field func(domain.WasteRecord) *float64) *float64 {
	var (
		found  *float64
		latest domain.WasteRecord
	)
	for _, r := range waste {
		v := field(r)
		if v == nil {
			continue
		}
		if found == nil || !r.Date.Before(latest.Date) {
			found, latest = v, r
		}
	}
	return found
}
