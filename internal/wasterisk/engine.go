package wasterisk

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/andresuchdata/ecoagent/backend-go/internal/domain"
	"github.com/andresuchdata/ecoagent/backend-go/internal/metrics"
	"github.com/andresuchdata/ecoagent/backend-go/internal/recordstore"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"
)

const weatherFetchConcurrency = 4

// Engine fetches records for a product and runs the Calculator over them.
type Engine struct {
	store recordstore.Fetcher
	calc  *Calculator
	cfg   Config
}

func NewEngine(store recordstore.Fetcher, cfg Config) *Engine {
	return &Engine{
		store: store,
		calc:  NewCalculator(cfg),
		cfg:   cfg,
	}
}

// Run scores one product, or every product in inventory when productID is empty.
func (e *Engine) Run(ctx context.Context, productID string) Result {
	if productID == "" {
		return e.EvaluateAll(ctx)
	}

	start := time.Now()
	report, err := e.Evaluate(ctx, productID)
	metrics.WasteRiskDuration.WithLabelValues("single").Observe(time.Since(start).Seconds())
	if err != nil {
		metrics.WasteRiskEvaluationsTotal.WithLabelValues("single", string(StatusError)).Inc()
		return Result{
			Status:      StatusError,
			Scope:       productID,
			Assumptions: []Assumption{},
			Error:       domain.DetailOf(err),
			Message:     err.Error(),
		}
	}

	status := StatusSuccess
	if !report.Complete() {
		status = StatusPartial
	}
	metrics.WasteRiskEvaluationsTotal.WithLabelValues("single", string(status)).Inc()
	return Result{
		Status:      status,
		Scope:       productID,
		Report:      report,
		Assumptions: report.Assumptions,
	}
}

// Evaluate fetches the product's records and computes its report.
func (e *Engine) Evaluate(ctx context.Context, productID string) (*RiskScoreReport, error) {
	in, err := e.load(ctx, e.store, productID)
	if err != nil {
		return nil, err
	}
	return e.calc.Calculate(*in)
}

func (e *Engine) load(ctx context.Context, store recordstore.Fetcher, productID string) (*Input, error) {
	var invRows, salesRows, wasteRows []domain.Row

	g, gctx := errgroup.WithContext(ctx)
	for _, f := range []struct {
		d   domain.Dataset
		dst *[]domain.Row
	}{
		{domain.DatasetInventory, &invRows},
		{domain.DatasetSales, &salesRows},
		{domain.DatasetWaste, &wasteRows},
	} {
		f := f
		g.Go(func() error {
			rows, err := store.Fetch(gctx, f.d, productID)
			if err != nil {
				return err
			}
			*f.dst = rows
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	in := &Input{ProductID: productID}
	var issues []domain.RowIssue
	in.Inventory, issues = domain.ParseInventory(invRows)
	in.Malformed = append(in.Malformed, issues...)
	in.Sales, issues = domain.ParseSales(salesRows)
	in.Malformed = append(in.Malformed, issues...)
	in.Waste, issues = domain.ParseWaste(wasteRows)
	in.Malformed = append(in.Malformed, issues...)

	if len(in.Inventory) == 0 {
		return nil, domain.NoData(productID, domain.DatasetInventory)
	}
	if len(in.Sales) == 0 {
		return nil, domain.NoData(productID, domain.DatasetSales)
	}

	weather, weatherIssues, err := e.loadWeather(ctx, store, Stores(in.Inventory, in.Sales))
	if err != nil {
		return nil, err
	}
	in.Weather = weather
	in.Malformed = append(in.Malformed, weatherIssues...)

	for _, issue := range in.Malformed {
		metrics.MalformedRowsTotal.WithLabelValues(issue.Dataset.String()).Inc()
		log.Debug().
			Str("product_id", productID).
			Str("dataset", issue.Dataset.String()).
			Int("row", issue.Row).
			Str("field", issue.Field).
			Msg("dropped malformed row")
	}
	return in, nil
}

func (e *Engine) loadWeather(ctx context.Context, store recordstore.Fetcher, stores []string) (map[string][]domain.WeatherRecord, []domain.RowIssue, error) {
	records := make([][]domain.WeatherRecord, len(stores))
	issues := make([][]domain.RowIssue, len(stores))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(weatherFetchConcurrency)
	for i, s := range stores {
		i, s := i, s
		g.Go(func() error {
			rows, err := store.Fetch(gctx, domain.DatasetWeather, s)
			if err != nil {
				return err
			}
			records[i], issues[i] = domain.ParseWeather(rows)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, nil, err
	}

	byStore := make(map[string][]domain.WeatherRecord, len(stores))
	var all []domain.RowIssue
	for i, s := range stores {
		byStore[s] = records[i]
		all = append(all, issues[i]...)
	}
	return byStore, all, nil
}

// EvaluateAll scores every product found in inventory against one snapshot of
// the four datasets. A product that fails is reported with its error and does
// not stop the others.
func (e *Engine) EvaluateAll(ctx context.Context) Result {
	start := time.Now()
	defer func() {
		metrics.WasteRiskDuration.WithLabelValues("batch").Observe(time.Since(start).Seconds())
	}()

	fail := func(err error) Result {
		metrics.WasteRiskEvaluationsTotal.WithLabelValues("batch", string(StatusError)).Inc()
		return Result{
			Status:      StatusError,
			Scope:       ScopeAll,
			Assumptions: []Assumption{},
			Error:       domain.DetailOf(err),
			Message:     err.Error(),
		}
	}

	snapshot, err := recordstore.Snapshot(ctx, e.store,
		domain.DatasetInventory, domain.DatasetSales, domain.DatasetWaste, domain.DatasetWeather)
	if err != nil {
		return fail(err)
	}

	products, err := productIDs(ctx, snapshot)
	if err != nil {
		return fail(err)
	}
	if len(products) == 0 {
		return fail(domain.NoData(ScopeAll, domain.DatasetInventory))
	}

	reports := e.evaluateParallel(ctx, snapshot, products)

	ok := 0
	for _, r := range reports {
		if r.Error == nil {
			ok++
		}
	}
	status := StatusSuccess
	switch {
	case ok == 0:
		status = StatusError
	case ok < len(reports):
		status = StatusPartial
	}

	log.Info().
		Int("products", len(reports)).
		Int("scored", ok).
		Str("status", string(status)).
		Dur("duration", time.Since(start)).
		Msg("waste risk batch completed")
	metrics.WasteRiskEvaluationsTotal.WithLabelValues("batch", string(status)).Inc()

	return Result{
		Status:      status,
		Scope:       ScopeAll,
		Reports:     reports,
		Assumptions: mergeAssumptions(reports),
	}
}

// evaluateParallel runs products through a fixed worker pool and returns the
// reports ordered by product id.
func (e *Engine) evaluateParallel(ctx context.Context, snapshot recordstore.Fetcher, products []string) []RiskScoreReport {
	workerCount := e.cfg.Workers
	if workerCount < 1 {
		workerCount = 1
	}

	type job struct {
		index     int
		productID string
	}

	results := make([]RiskScoreReport, len(products))
	jobChan := make(chan job, len(products))
	var wg sync.WaitGroup

	// Start workers
	for i := 0; i < workerCount; i++ {
		wg.Add(1)
		go func(workerID int) {
			defer wg.Done()
			for j := range jobChan {
				results[j.index] = e.evaluateOne(ctx, snapshot, j.productID, workerID)
			}
		}(i)
	}

	// Enqueue jobs
	for i, p := range products {
		jobChan <- job{index: i, productID: p}
	}
	close(jobChan)

	wg.Wait()
	return results
}

func (e *Engine) evaluateOne(ctx context.Context, snapshot recordstore.Fetcher, productID string, workerID int) RiskScoreReport {
	failed := func(err error) RiskScoreReport {
		log.Warn().Err(err).Int("worker", workerID).Str("product_id", productID).Msg("product not scored")
		return RiskScoreReport{
			ProductID:   productID,
			Assumptions: []Assumption{},
			Error:       domain.DetailOf(err),
		}
	}

	if err := ctx.Err(); err != nil {
		return failed(err)
	}
	in, err := e.load(ctx, snapshot, productID)
	if err != nil {
		return failed(err)
	}
	report, err := e.calc.Calculate(*in)
	if err != nil {
		return failed(err)
	}
	return *report
}

func productIDs(ctx context.Context, store recordstore.Fetcher) ([]string, error) {
	rows, err := store.Fetch(ctx, domain.DatasetInventory, "")
	if err != nil {
		return nil, err
	}
	set := make(map[string]struct{})
	for _, row := range rows {
		if id := row.Get("product_id"); id != "" {
			set[id] = struct{}{}
		}
	}
	out := make([]string, 0, len(set))
	for id := range set {
		out = append(out, id)
	}
	sort.Strings(out)
	return out, nil
}
