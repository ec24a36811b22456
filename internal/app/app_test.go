package app

import (
	"context"
	"testing"

	"github.com/andresuchdata/ecoagent/backend-go/internal/config"
	"github.com/andresuchdata/ecoagent/backend-go/internal/domain"
	"github.com/andresuchdata/ecoagent/backend-go/internal/wasterisk"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	v := viper.New()
	config.SetDefaults(v)
	v.Set("STORAGE_LOCAL_DIR", t.TempDir())
	return config.FromViper(v)
}

func TestNew_LocalObjectStore(t *testing.T) {
	ctx := context.Background()
	a, err := New(ctx, testConfig(t))
	require.NoError(t, err)
	defer a.Close()

	assert.Nil(t, a.Drive)
	assert.Same(t, a.Objects, a.Store)

	for d, data := range map[domain.Dataset]string{
		domain.DatasetInventory: "product_id,location_id,quantity,days_to_expiry,unit_cost\nA,S1,100,5,10\n",
		domain.DatasetSales:     "product_id,store_id,date,units_sold\nA,S1,2024-06-01,10\nA,S1,2024-06-02,20\nA,S1,2024-06-03,15\n",
		domain.DatasetWaste:     "store_id,date,product_id,waste_quantity,waste_cost\n",
		domain.DatasetWeather:   "store_id,date,temp_high,temp_low,precipitation,special_event\nS1,2024-06-02,12,8,2,negative\n",
	} {
		_, err := a.Datasets.Upload(ctx, d, d.DefaultFile(), []byte(data))
		require.NoError(t, err)
	}

	res := a.WasteRisk.Evaluate(ctx, "A")
	require.Equal(t, wasterisk.StatusSuccess, res.Status, res.Message)
	assert.Equal(t, 2727.5, res.Report.WasteCostImpact)
}

func TestNew_RejectsInvalidConfig(t *testing.T) {
	cfg := testConfig(t)
	cfg.Scoring.SurplusWeight = 0.5
	_, err := New(context.Background(), cfg)
	assert.Error(t, err)
}

func TestWasteRiskConfig_MatchesEngineDefaults(t *testing.T) {
	cfg, err := WasteRiskConfig(testConfig(t).Scoring)
	require.NoError(t, err)
	assert.Equal(t, wasterisk.DefaultConfig(), cfg)
}

func TestSupplierConfig(t *testing.T) {
	cfg := SupplierConfig(testConfig(t).Scoring)
	assert.Equal(t, 1.0, cfg.Weights.Sum())
	assert.Equal(t, 2, cfg.StalenessYears)
	assert.NoError(t, cfg.Validate())
}
