// Package supplier scores suppliers on sustainability from ESG ratings,
// emissions, certifications and audits, and ranks the suppliers of a product.
package supplier

import (
	"context"
	"sort"
	"strings"
	"time"

	"github.com/andresuchdata/ecoagent/backend-go/internal/domain"
	"github.com/andresuchdata/ecoagent/backend-go/internal/metrics"
	"github.com/andresuchdata/ecoagent/backend-go/internal/recordstore"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"
)

type Scorer struct {
	store recordstore.Fetcher
	cfg   Config
}

func NewScorer(store recordstore.Fetcher, cfg Config) *Scorer {
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	if cfg.StalenessYears < 1 {
		cfg.StalenessYears = 2
	}
	return &Scorer{store: store, cfg: cfg}
}

// ScoreSupplier computes the report for one supplier. A supplier without a
// single row in any dataset is domain.NoData.
func (s *Scorer) ScoreSupplier(ctx context.Context, supplierID string) (*SupplierScoreReport, error) {
	asOf := s.cfg.Now()

	b, err := s.bounds(ctx, s.store, asOf)
	if err != nil {
		metrics.SupplierScoresTotal.WithLabelValues("error").Inc()
		return nil, err
	}
	report, err := s.score(ctx, s.store, supplierID, asOf, b)
	if err != nil {
		metrics.SupplierScoresTotal.WithLabelValues("error").Inc()
		return nil, err
	}
	metrics.SupplierScoresTotal.WithLabelValues(string(report.Status)).Inc()
	return report, nil
}

// RankSuppliers scores every supplier listed for productID (all suppliers when
// empty), optionally restricted to a location, and orders them by score.
func (s *Scorer) RankSuppliers(ctx context.Context, productID, location string) Ranking {
	asOf := s.cfg.Now()
	ranking := Ranking{ProductID: productID, Location: location, Ranked: []RankedSupplier{}}

	fail := func(err error) Ranking {
		ranking.Status = RankError
		ranking.Error = domain.DetailOf(err)
		ranking.Message = err.Error()
		return ranking
	}

	ids, err := s.listed(ctx, productID, location)
	if err != nil {
		return fail(err)
	}
	if len(ids) == 0 {
		entity := productID
		if entity == "" {
			entity = "all"
		}
		return fail(domain.NoData(entity, domain.DatasetSuppliers))
	}

	snapshot, err := s.snapshot(ctx)
	if err != nil {
		return fail(err)
	}
	b, err := s.bounds(ctx, snapshot, asOf)
	if err != nil {
		return fail(err)
	}

	reports := make([]SupplierScoreReport, len(ids))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(max(s.cfg.Workers, 1))
	for i, id := range ids {
		i, id := i, id
		g.Go(func() error {
			report, err := s.score(gctx, snapshot, id, asOf, b)
			if err != nil {
				log.Warn().Err(err).Str("supplier_id", id).Msg("supplier not scored")
				metrics.SupplierScoresTotal.WithLabelValues("error").Inc()
				reports[i] = SupplierScoreReport{
					SupplierID: id,
					AsOf:       asOf.Format(time.DateOnly),
					Status:     StatusUnscored,
					Error:      domain.DetailOf(err),
				}
				return nil
			}
			metrics.SupplierScoresTotal.WithLabelValues(string(report.Status)).Inc()
			reports[i] = *report
			return nil
		})
	}
	_ = g.Wait()

	ranking.Reports = reports
	ranking.Ranked = Rank(reports)

	scored := 0
	for _, r := range reports {
		if r.Status == StatusScored {
			scored++
		}
	}
	switch {
	case scored == 0:
		ranking.Status = RankError
		ranking.Message = "no supplier could be scored"
	case scored < len(reports):
		ranking.Status = RankPartial
	default:
		ranking.Status = RankSuccess
	}

	log.Info().
		Str("product_id", productID).
		Str("location", location).
		Int("suppliers", len(reports)).
		Int("scored", scored).
		Msg("supplier ranking completed")
	return ranking
}

// Rank orders reports by score descending with ties broken by supplier id.
// Unscored suppliers come last, by supplier id.
func Rank(reports []SupplierScoreReport) []RankedSupplier {
	out := make([]RankedSupplier, 0, len(reports))
	for _, r := range reports {
		out = append(out, RankedSupplier{
			SupplierID:      r.SupplierID,
			NormalizedScore: r.NormalizedScore,
			StaleFlag:       r.StaleFlag,
			Status:          r.Status,
			Error:           r.Error,
		})
	}
	sort.SliceStable(out, func(i, j int) bool {
		a, b := out[i].NormalizedScore, out[j].NormalizedScore
		if (a == nil) != (b == nil) {
			return a != nil
		}
		if a != nil && *a != *b {
			return *a > *b
		}
		return out[i].SupplierID < out[j].SupplierID
	})
	return out
}

func (s *Scorer) listed(ctx context.Context, productID, location string) ([]string, error) {
	rows, err := s.store.Fetch(ctx, domain.DatasetSuppliers, "")
	if err != nil {
		return nil, err
	}
	seen := make(map[string]struct{})
	var ids []string
	for _, l := range domain.ParseSupplierListings(rows) {
		if l.SupplierID == "" {
			continue
		}
		if productID != "" && !strings.EqualFold(l.ProductID, productID) {
			continue
		}
		if location != "" && !strings.EqualFold(strings.TrimSpace(l.Location), strings.TrimSpace(location)) {
			continue
		}
		if _, ok := seen[l.SupplierID]; ok {
			continue
		}
		seen[l.SupplierID] = struct{}{}
		ids = append(ids, l.SupplierID)
	}
	sort.Strings(ids)
	return ids, nil
}

// snapshot loads the scoring datasets once for a ranking run. Certifications
// are optional and left out of the snapshot when unavailable.
func (s *Scorer) snapshot(ctx context.Context) (*recordstore.MemoryStore, error) {
	snap, err := recordstore.Snapshot(ctx, s.store,
		domain.DatasetSupplierESG, domain.DatasetSupplierEmissions, domain.DatasetSupplierAudits)
	if err != nil {
		return nil, err
	}
	certs, err := s.store.Fetch(ctx, domain.DatasetSupplierCertifications, "")
	switch {
	case err == nil:
		snap.Put(domain.DatasetSupplierCertifications, certs)
	case domain.KindOf(err) == domain.KindDataUnavailable:
		log.Warn().Err(err).Msg("certifications unavailable, scoring without them")
	default:
		return nil, err
	}
	return snap, nil
}

type emissionBounds struct {
	ok                   bool
	minCarbon, maxCarbon float64
	minWater, maxWater   float64
}

// bounds computes the min and max of the emission figures over every
// non-stale row of the pool.
func (s *Scorer) bounds(ctx context.Context, store recordstore.Fetcher, asOf time.Time) (emissionBounds, error) {
	rows, err := store.Fetch(ctx, domain.DatasetSupplierEmissions, "")
	if err != nil {
		return emissionBounds{}, err
	}
	records, _ := domain.ParseEmissions(rows)

	var b emissionBounds
	for _, r := range records {
		if s.staleYear(asOf, r.ReportingYear) {
			continue
		}
		carbon := r.Scope1 + r.Scope2
		if !b.ok {
			b = emissionBounds{ok: true, minCarbon: carbon, maxCarbon: carbon, minWater: r.WaterUsageM3, maxWater: r.WaterUsageM3}
			continue
		}
		b.minCarbon = min(b.minCarbon, carbon)
		b.maxCarbon = max(b.maxCarbon, carbon)
		b.minWater = min(b.minWater, r.WaterUsageM3)
		b.maxWater = max(b.maxWater, r.WaterUsageM3)
	}
	return b, nil
}

// invert maps v onto [0,1] so the pool minimum scores 1 and the maximum 0.
func invert(v, lo, hi float64) float64 {
	if hi == lo {
		return 1
	}
	return max(0, min(1, (hi-v)/(hi-lo)))
}

type supplierRecords struct {
	esg       []domain.ESGRecord
	emissions []domain.EmissionsRecord
	audits    []domain.AuditRecord
	certs     []domain.CertificationRecord
	malformed []domain.RowIssue
}

func (r *supplierRecords) rows() int {
	return len(r.esg) + len(r.emissions) + len(r.audits) + len(r.certs)
}

func (s *Scorer) load(ctx context.Context, store recordstore.Fetcher, supplierID string) (*supplierRecords, []string, error) {
	var esgRows, emissionRows, auditRows, certRows []domain.Row
	var warnings []string

	g, gctx := errgroup.WithContext(ctx)
	for _, f := range []struct {
		d   domain.Dataset
		dst *[]domain.Row
	}{
		{domain.DatasetSupplierESG, &esgRows},
		{domain.DatasetSupplierEmissions, &emissionRows},
		{domain.DatasetSupplierAudits, &auditRows},
	} {
		f := f
		g.Go(func() error {
			rows, err := store.Fetch(gctx, f.d, supplierID)
			if err != nil {
				return err
			}
			*f.dst = rows
			return nil
		})
	}
	g.Go(func() error {
		rows, err := store.Fetch(gctx, domain.DatasetSupplierCertifications, supplierID)
		if domain.KindOf(err) == domain.KindDataUnavailable && gctx.Err() == nil {
			warnings = append(warnings, "certification data unavailable")
			return nil
		}
		certRows = rows
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, nil, err
	}

	rec := &supplierRecords{}
	var issues []domain.RowIssue
	rec.esg, issues = domain.ParseESG(esgRows)
	rec.malformed = append(rec.malformed, issues...)
	rec.emissions, issues = domain.ParseEmissions(emissionRows)
	rec.malformed = append(rec.malformed, issues...)
	rec.audits, issues = domain.ParseAudits(auditRows)
	rec.malformed = append(rec.malformed, issues...)
	rec.certs, issues = domain.ParseCertifications(certRows)
	rec.malformed = append(rec.malformed, issues...)

	for _, issue := range rec.malformed {
		metrics.MalformedRowsTotal.WithLabelValues(issue.Dataset.String()).Inc()
	}
	return rec, warnings, nil
}

func (s *Scorer) score(ctx context.Context, store recordstore.Fetcher, supplierID string, asOf time.Time, b emissionBounds) (*SupplierScoreReport, error) {
	rec, warnings, err := s.load(ctx, store, supplierID)
	if err != nil {
		return nil, err
	}
	if rec.rows() == 0 && len(rec.malformed) == 0 {
		return nil, domain.NoData(supplierID, "")
	}

	report := &SupplierScoreReport{
		SupplierID: supplierID,
		AsOf:       asOf.Format(time.DateOnly),
		Warnings:   warnings,
		Malformed:  rec.malformed,
	}
	stale := 0
	markStale := func(component string) {
		stale++
		for _, c := range report.StaleInputs {
			if c == component {
				return
			}
		}
		report.StaleInputs = append(report.StaleInputs, component)
	}

	// 1. ESG: latest non-stale rating, normalized per provider
	sort.SliceStable(rec.esg, func(i, j int) bool { return rec.esg[i].ReportingYear > rec.esg[j].ReportingYear })
	var latestESG *domain.ESGRecord
	for i := range rec.esg {
		if s.staleYear(asOf, rec.esg[i].ReportingYear) {
			markStale(ComponentESG)
			continue
		}
		if latestESG == nil {
			latestESG = &rec.esg[i]
		}
	}
	if latestESG != nil {
		v, warning, err := NormalizeESG(*latestESG)
		if err != nil {
			report.ComponentErrors = append(report.ComponentErrors, domain.DetailOf(err))
		} else {
			report.ESGComponent = &v
			report.ESGProvider = latestESG.Provider
		}
		if warning != "" {
			report.Warnings = append(report.Warnings, warning)
		}
	}

	// 2. Emissions: latest non-stale row, inverted against the pool
	sort.SliceStable(rec.emissions, func(i, j int) bool {
		return rec.emissions[i].ReportingYear > rec.emissions[j].ReportingYear
	})
	var latestEmissions *domain.EmissionsRecord
	for i := range rec.emissions {
		if s.staleYear(asOf, rec.emissions[i].ReportingYear) {
			markStale(ComponentEmissions)
			continue
		}
		if latestEmissions == nil {
			latestEmissions = &rec.emissions[i]
		}
	}
	if latestEmissions != nil && b.ok {
		carbon := invert(latestEmissions.Scope1+latestEmissions.Scope2, b.minCarbon, b.maxCarbon)
		water := invert(latestEmissions.WaterUsageM3, b.minWater, b.maxWater)
		v := (carbon + water) / 2 * 100
		report.EmissionsComponent = &v
	}

	// 3. Certifications: share of held certificates still valid at asOf
	var held, valid int
	for _, c := range rec.certs {
		if s.staleCertification(asOf, c) {
			markStale(ComponentCertification)
			continue
		}
		held++
		if c.ExpiryDate.IsZero() || !c.ExpiryDate.Before(asOf) {
			valid++
		}
	}
	if held > 0 {
		v := 100 * float64(valid) / float64(held)
		report.CertificationComponent = &v
	}

	// 4. Audits: latest non-stale audit score
	sort.SliceStable(rec.audits, func(i, j int) bool {
		a, b := rec.audits[i], rec.audits[j]
		if !a.AuditDate.Equal(b.AuditDate) {
			return a.AuditDate.After(b.AuditDate)
		}
		return a.ReportingYear > b.ReportingYear
	})
	for _, a := range rec.audits {
		if s.staleAudit(asOf, a) {
			markStale(ComponentAudit)
			continue
		}
		v := max(0, min(100, a.Score))
		report.AuditComponent = &v
		break
	}

	// 5. Composite over the available components, weights renormalized
	w := s.cfg.Weights
	parts := []struct {
		v *float64
		w float64
	}{
		{report.ESGComponent, w.ESG},
		{report.EmissionsComponent, w.Emissions},
		{report.CertificationComponent, w.Certification},
		{report.AuditComponent, w.Audit},
	}
	var sum, weight float64
	available := 0
	for _, p := range parts {
		if p.v == nil {
			continue
		}
		sum += p.w * *p.v
		weight += p.w
		available++
	}

	report.StaleFlag = stale > 0
	switch {
	case available == 0 || weight == 0:
		report.Status = StatusUnscored
		if rec.rows() > 0 && stale == rec.rows() {
			report.Error = domain.DetailOf(domain.StaleData(supplierID))
		}
	case available == len(parts):
		report.Status = StatusScored
		report.NormalizedScore = &sum
	default:
		score := sum / weight
		report.Status = StatusScored
		report.NormalizedScore = &score
	}
	return report, nil
}

func (s *Scorer) staleYear(asOf time.Time, year int) bool {
	return year != 0 && asOf.Year()-year > s.cfg.StalenessYears
}

func (s *Scorer) staleDate(asOf, t time.Time) bool {
	return t.Before(asOf.AddDate(-s.cfg.StalenessYears, 0, 0))
}

func (s *Scorer) staleAudit(asOf time.Time, a domain.AuditRecord) bool {
	if !a.AuditDate.IsZero() {
		return s.staleDate(asOf, a.AuditDate)
	}
	return s.staleYear(asOf, a.ReportingYear)
}

func (s *Scorer) staleCertification(asOf time.Time, c domain.CertificationRecord) bool {
	if !c.IssueDate.IsZero() {
		return s.staleDate(asOf, c.IssueDate)
	}
	return s.staleYear(asOf, c.ReportingYear)
}
