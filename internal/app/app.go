// Package app builds the record store, engines and services from configuration.
package app

import (
	"context"
	"time"

	"github.com/andresuchdata/ecoagent/backend-go/internal/cache"
	"github.com/andresuchdata/ecoagent/backend-go/internal/config"
	"github.com/andresuchdata/ecoagent/backend-go/internal/drive"
	"github.com/andresuchdata/ecoagent/backend-go/internal/impact"
	"github.com/andresuchdata/ecoagent/backend-go/internal/recordstore"
	"github.com/andresuchdata/ecoagent/backend-go/internal/repository/postgres"
	"github.com/andresuchdata/ecoagent/backend-go/internal/service"
	"github.com/andresuchdata/ecoagent/backend-go/internal/storage"
	"github.com/andresuchdata/ecoagent/backend-go/internal/supplier"
	"github.com/andresuchdata/ecoagent/backend-go/internal/wasterisk"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
)

type App struct {
	Config *config.Config

	Store   recordstore.Fetcher
	Objects *recordstore.CSVStore
	Drive   *drive.Service

	WasteRisk *service.WasteRiskService
	Suppliers *service.SupplierService
	Datasets  *service.DatasetService
	Impact    *service.ImpactService

	closers []func() error
}

// New validates cfg and wires every component.
func New(ctx context.Context, cfg *config.Config) (*App, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	a := &App{Config: cfg}

	objects, err := storage.New(ctx, cfg.Storage)
	if err != nil {
		return nil, errors.Wrap(err, "failed to initialize object storage")
	}

	datasetCache, err := cache.NewDatasetCache(ctx, cfg.Cache)
	if err != nil {
		log.Warn().Err(err).Msg("dataset cache unavailable, continuing without it")
		datasetCache = cache.NewNoopDatasetCache()
	}

	fetchTimeout := time.Duration(cfg.RecordStore.FetchTimeoutSeconds) * time.Second
	a.Objects = recordstore.NewCSVStore(objects, datasetCache, recordstore.CSVOptions{
		Prefix:       cfg.Storage.Prefix,
		Files:        cfg.RecordStore.Files,
		FetchTimeout: fetchTimeout,
		Attempts:     cfg.RecordStore.RetryAttempts,
		Backoff:      time.Duration(cfg.RecordStore.RetryBackoffMillis) * time.Millisecond,
	})
	a.Store = a.Objects
	a.Datasets = service.NewDatasetService(a.Store, a.Objects)

	if cfg.RecordStore.Source == "postgres" {
		db, err := postgres.NewDB(&cfg.Database)
		if err != nil {
			return nil, errors.Wrap(err, "failed to connect to database")
		}
		a.closers = append(a.closers, db.Close)

		repo := postgres.NewDatasetRepository(db, cfg.Database.TablePrefix)
		a.Store = recordstore.NewSQLStore(repo, fetchTimeout)
		a.Datasets = service.NewDatasetService(a.Store, a.Objects).WithImporter(repo)
	}

	if cfg.Storage.GoogleCredentialsJSON != "" {
		a.Drive, err = drive.NewService(ctx, cfg.Storage.GoogleCredentialsJSON)
		if err != nil {
			return nil, errors.Wrap(err, "failed to initialize Google Drive service")
		}
		a.Datasets.WithDrive(drive.NewPuller(a.Drive), cfg.Storage.DriveFolder)
	}

	wasteCfg, err := WasteRiskConfig(cfg.Scoring)
	if err != nil {
		return nil, err
	}
	a.WasteRisk = service.NewWasteRiskService(wasterisk.NewEngine(a.Store, wasteCfg))
	a.Suppliers = service.NewSupplierService(supplier.NewScorer(a.Store, SupplierConfig(cfg.Scoring)), a.Store)

	var estimator service.FootprintEstimator
	client, err := impact.NewFootprintClient(cfg.Impact)
	switch {
	case err == nil:
		estimator = client
	case errors.Is(err, impact.ErrNotConfigured):
		log.Debug().Msg("footprint service not configured")
	default:
		return nil, err
	}
	a.Impact = service.NewImpactService(estimator)

	log.Info().
		Str("storage", cfg.Storage.Backend).
		Str("source", cfg.RecordStore.Source).
		Bool("cache", cfg.Cache.Enabled).
		Bool("drive", a.Drive != nil).
		Msg("application initialized")
	return a, nil
}

// Close releases database connections.
func (a *App) Close() error {
	var first error
	for _, c := range a.closers {
		if err := c(); err != nil && first == nil {
			first = err
		}
	}
	return first
}

// WasteRiskConfig maps scoring settings onto the engine, loading the
// knowledge file when one is set.
func WasteRiskConfig(s config.ScoringConfig) (wasterisk.Config, error) {
	cfg := wasterisk.Config{
		Weights: wasterisk.Weights{
			Expiry:     s.ExpiryWeight,
			Volatility: s.VolatilityWeight,
			Weather:    s.WeatherWeight,
			Surplus:    s.SurplusWeight,
		},
		WeatherWeights: wasterisk.WeatherWeights{
			Temp:   s.TempEffectWeight,
			Precip: s.PrecipEffectWeight,
			Event:  s.EventEffectWeight,
		},
		BaseDisposalFee:         s.BaseDisposalFee,
		DisposalRatePerUnit:     s.DisposalRatePerUnit,
		ResalePriceFactor:       s.ResalePriceFactor,
		SalvageProbability:      s.SalvageProbability,
		DefaultOptimalTemp:      s.DefaultOptimalTemp,
		DefaultShelfLifeDays:    s.DefaultShelfLifeDays,
		MaxPrecipitationCeiling: s.MaxPrecipitationCeiling,
		ClampVolatility:         s.ClampVolatility,
		OrderRiskThreshold:      s.OrderRiskThreshold,
		Workers:                 s.BatchWorkers,
	}
	if s.KnowledgeFile != "" {
		kb, err := config.LoadKnowledge(s.KnowledgeFile)
		if err != nil {
			return cfg, err
		}
		log.Info().Int("products", kb.Len()).Str("file", s.KnowledgeFile).Msg("knowledge base loaded")
		cfg.Knowledge = kb
	}
	return cfg, cfg.Validate()
}

func SupplierConfig(s config.ScoringConfig) supplier.Config {
	return supplier.Config{
		Weights: supplier.Weights{
			ESG:           s.ESGWeight,
			Emissions:     s.EmissionsWeight,
			Certification: s.CertificationWeight,
			Audit:         s.AuditWeight,
		},
		StalenessYears: s.StalenessYears,
		Workers:        s.SupplierWorkers,
		Now:            time.Now,
	}
}
