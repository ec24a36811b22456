package service

import (
	"context"
	"strings"

	"github.com/andresuchdata/ecoagent/backend-go/internal/domain"
	"github.com/andresuchdata/ecoagent/backend-go/internal/recordstore"
	"github.com/andresuchdata/ecoagent/backend-go/internal/supplier"
	"github.com/rs/zerolog/log"
)

type SupplierService struct {
	scorer *supplier.Scorer
	store  recordstore.Fetcher
}

func NewSupplierService(scorer *supplier.Scorer, store recordstore.Fetcher) *SupplierService {
	return &SupplierService{scorer: scorer, store: store}
}

func (s *SupplierService) Score(ctx context.Context, supplierID string) (*supplier.SupplierScoreReport, error) {
	report, err := s.scorer.ScoreSupplier(ctx, supplierID)
	if err != nil {
		log.Warn().Err(err).Str("supplier_id", supplierID).Msg("supplier scoring failed")
		return nil, err
	}
	log.Info().
		Str("supplier_id", supplierID).
		Str("status", string(report.Status)).
		Bool("stale", report.StaleFlag).
		Msg("supplier scored")
	return report, nil
}

func (s *SupplierService) Rank(ctx context.Context, productID, location string) supplier.Ranking {
	return s.scorer.RankSuppliers(ctx, productID, location)
}

// Purchases returns the purchase history of a supplier, optionally for one product.
func (s *SupplierService) Purchases(ctx context.Context, supplierID, productID string) ([]domain.Row, error) {
	rows, err := s.store.Fetch(ctx, domain.DatasetSupplierPurchases, supplierID)
	if err != nil {
		return nil, err
	}
	if productID != "" {
		filtered := make([]domain.Row, 0, len(rows))
		for _, row := range rows {
			if strings.EqualFold(row.Get("product_id"), productID) {
				filtered = append(filtered, row)
			}
		}
		rows = filtered
	}
	if len(rows) == 0 {
		return nil, domain.NoData(supplierID, domain.DatasetSupplierPurchases)
	}
	return rows, nil
}
