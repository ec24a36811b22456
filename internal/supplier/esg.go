package supplier

import (
	"fmt"
	"math"
	"strings"

	"github.com/andresuchdata/ecoagent/backend-go/internal/domain"
)

// Provider names as they appear in the ESG dataset, compared case-insensitively.
const (
	ProviderEcoVadis       = "EcoVadis"
	ProviderSustainalytics = "Sustainalytics"
	ProviderMSCI           = "MSCI"
)

var msciGrades = map[string]float64{
	"AAA": 100,
	"AA":  90,
	"A":   80,
	"BBB": 70,
	"BB":  60,
	"B":   40,
	"CCC": 20,
}

// EcoVadis scores are already on a 0-100 scale.
func EcoVadis(overallScore float64) float64 {
	return overallScore
}

// Sustainalytics inverts a risk score: lower risk is more sustainable.
func Sustainalytics(riskScore float64) float64 {
	return math.Max(0, math.Min(100, 100-riskScore))
}

// MSCI maps a letter grade to a score. Unknown grades score 0 and report ok=false.
func MSCI(grade string) (score float64, ok bool) {
	score, ok = msciGrades[strings.ToUpper(strings.TrimSpace(grade))]
	return score, ok
}

// NormalizeESG converts one provider row to a 0-100 score. Unknown providers
// are an error; an unknown MSCI grade scores 0 with a warning.
func NormalizeESG(rec domain.ESGRecord) (score float64, warning string, err error) {
	switch strings.ToLower(strings.TrimSpace(rec.Provider)) {
	case strings.ToLower(ProviderEcoVadis):
		if rec.OverallScore == nil {
			return 0, "", domain.Malformed("overall_score", "")
		}
		return EcoVadis(*rec.OverallScore), "", nil
	case strings.ToLower(ProviderSustainalytics):
		if rec.RiskScore == nil {
			return 0, "", domain.Malformed("risk_score", "")
		}
		return Sustainalytics(*rec.RiskScore), "", nil
	case strings.ToLower(ProviderMSCI):
		score, ok := MSCI(rec.Rating)
		if !ok {
			warning = fmt.Sprintf("unrecognised MSCI rating %q scored as 0", rec.Rating)
		}
		return score, warning, nil
	default:
		return 0, "", domain.UnknownProvider(rec.Provider)
	}
}
