package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fromDefaults(overrides map[string]any) *Config {
	v := viper.New()
	SetDefaults(v)
	for k, val := range overrides {
		v.Set(k, val)
	}
	return FromViper(v)
}

func TestDefaultsAreValid(t *testing.T) {
	cfg := fromDefaults(nil)
	require.NoError(t, cfg.Validate())

	assert.Equal(t, "8080", cfg.Server.Port)
	assert.Equal(t, "local", cfg.Storage.Backend)
	assert.Equal(t, "object", cfg.RecordStore.Source)
	assert.Equal(t, 0.30, cfg.Scoring.ExpiryWeight)
	assert.Equal(t, 0.50, cfg.Scoring.ESGWeight)
	assert.Equal(t, 2, cfg.Scoring.StalenessYears)
	assert.Empty(t, cfg.RecordStore.Files)
}

func TestValidate_WeightSums(t *testing.T) {
	cfg := fromDefaults(map[string]any{"SCORING_SURPLUS_WEIGHT": 0.25})
	assert.ErrorContains(t, cfg.Validate(), "waste risk weights")

	cfg = fromDefaults(map[string]any{"SCORING_AUDIT_WEIGHT": 0.1})
	assert.ErrorContains(t, cfg.Validate(), "supplier weights")
}

func TestValidate_StorageBackendRequirements(t *testing.T) {
	cfg := fromDefaults(map[string]any{"STORAGE_BACKEND": "MINIO"})
	assert.Equal(t, "minio", cfg.Storage.Backend)
	assert.Error(t, cfg.Validate())

	cfg = fromDefaults(map[string]any{
		"STORAGE_BACKEND":  "minio",
		"STORAGE_ENDPOINT": "localhost:9000",
		"STORAGE_BUCKET":   "ecoagent",
	})
	assert.NoError(t, cfg.Validate())

	cfg = fromDefaults(map[string]any{"STORAGE_BACKEND": "ftp"})
	assert.Error(t, cfg.Validate())
}

func TestDatasetFileOverrides(t *testing.T) {
	cfg := fromDefaults(map[string]any{"DATASET_SALES_FILE": "sales_2024.csv"})
	assert.Equal(t, map[string]string{"sales": "sales_2024.csv"}, cfg.RecordStore.Files)
}

func TestLoadKnowledge(t *testing.T) {
	path := filepath.Join(t.TempDir(), "knowledge.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`products:
  P001:
    optimal_temp: 4
    shelf_life_days: 10
  P002:
    shelf_life_days: 365
`), 0o644))

	kb, err := LoadKnowledge(path)
	require.NoError(t, err)
	assert.Equal(t, 2, kb.Len())

	temp, shelf := kb.Resolve("P001")
	assert.Equal(t, 4.0, temp)
	assert.Equal(t, 10.0, shelf)

	temp, shelf = kb.Resolve("p002")
	assert.Equal(t, 0.0, temp)
	assert.Equal(t, 365.0, shelf)

	temp, shelf = kb.Resolve("unknown")
	assert.Zero(t, temp)
	assert.Zero(t, shelf)

	var nilKB *KnowledgeBase
	temp, _ = nilKB.Resolve("P001")
	assert.Zero(t, temp)
}

func TestLoadKnowledge_Errors(t *testing.T) {
	_, err := LoadKnowledge(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)

	path := filepath.Join(t.TempDir(), "bad.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"products":{"P1":{"optimal_temp":-3}}}`), 0o644))
	_, err = LoadKnowledge(path)
	assert.ErrorContains(t, err, "negative")
}
