package wasterisk

import (
	"fmt"
	"math"
)

// Weights are the composite weights; they must sum to 1.
type Weights struct {
	Expiry     float64
	Volatility float64
	Weather    float64
	Surplus    float64
}

func (w Weights) Sum() float64 {
	return w.Expiry + w.Volatility + w.Weather + w.Surplus
}

// WeatherWeights weight the three weather effects.
type WeatherWeights struct {
	Temp   float64
	Precip float64
	Event  float64
}

// Knowledge resolves per-product constants. Zero means unknown.
type Knowledge interface {
	Resolve(productID string) (optimalTemp, shelfLifeDays float64)
}

// Config holds every tunable of the engine.
type Config struct {
	Weights        Weights
	WeatherWeights WeatherWeights

	BaseDisposalFee     float64
	DisposalRatePerUnit float64
	ResalePriceFactor   float64
	SalvageProbability  float64

	DefaultOptimalTemp   float64
	DefaultShelfLifeDays float64
	// MaxPrecipitationCeiling replaces the observed window maximum when > 0.
	MaxPrecipitationCeiling float64
	ClampVolatility         bool
	// OrderRiskThreshold is the composite score at or above which no
	// replenishment is recommended.
	OrderRiskThreshold float64

	Workers   int
	Knowledge Knowledge
}

// DefaultConfig returns the stock weights and cost constants.
func DefaultConfig() Config {
	return Config{
		Weights: Weights{
			Expiry:     0.30,
			Volatility: 0.30,
			Weather:    0.20,
			Surplus:    0.20,
		},
		WeatherWeights: WeatherWeights{
			Temp:   0.5,
			Precip: 0.3,
			Event:  0.2,
		},
		BaseDisposalFee:      50,
		DisposalRatePerUnit:  2,
		ResalePriceFactor:    0.3,
		SalvageProbability:   0.3,
		DefaultOptimalTemp:   20,
		DefaultShelfLifeDays: 30,
		OrderRiskThreshold:   0.5,
		Workers:              4,
	}
}

const weightTolerance = 1e-9

// Validate guards the weight-sum invariant and the constants used as divisors.
func (c Config) Validate() error {
	if sum := c.Weights.Sum(); math.Abs(sum-1) > weightTolerance {
		return fmt.Errorf("composite weights must sum to 1.0, got %v", sum)
	}
	for name, v := range map[string]float64{
		"expiry weight":     c.Weights.Expiry,
		"volatility weight": c.Weights.Volatility,
		"weather weight":    c.Weights.Weather,
		"surplus weight":    c.Weights.Surplus,
	} {
		if v < 0 {
			return fmt.Errorf("%s must be non-negative", name)
		}
	}
	if c.DefaultOptimalTemp <= 0 {
		return fmt.Errorf("default optimal temperature must be positive")
	}
	if c.OrderRiskThreshold < 0 || c.OrderRiskThreshold > 1 {
		return fmt.Errorf("order risk threshold must be within [0,1]")
	}
	if c.DefaultShelfLifeDays <= 0 {
		return fmt.Errorf("default shelf life must be positive")
	}
	return nil
}
