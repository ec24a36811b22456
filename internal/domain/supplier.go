package domain

import (
	"math"
	"strings"
	"time"
)

// SupplierListing links a supplier to a product it can provide.
type SupplierListing struct {
	ProductID    string `json:"product_id"`
	SupplierID   string `json:"supplier_id"`
	SupplierName string `json:"supplier_name,omitempty"`
	Location     string `json:"location,omitempty"`
}

// ESGRecord is one provider rating for a supplier. Only the field matching the
// provider is expected to be set.
type ESGRecord struct {
	SupplierID    string   `json:"supplier_id"`
	Provider      string   `json:"provider"`
	OverallScore  *float64 `json:"overall_score,omitempty"`
	RiskScore     *float64 `json:"risk_score,omitempty"`
	Rating        string   `json:"rating,omitempty"`
	ReportingYear int      `json:"reporting_year,omitempty"`
}

// EmissionsRecord holds scope 1/2 emissions and water usage for a reporting year.
type EmissionsRecord struct {
	SupplierID    string  `json:"supplier_id"`
	Scope1        float64 `json:"scope1_emissions"`
	Scope2        float64 `json:"scope2_emissions"`
	WaterUsageM3  float64 `json:"water_usage_m3"`
	ReportingYear int     `json:"reporting_year,omitempty"`
}

// AuditRecord is a social audit result on a 0–100 scale.
type AuditRecord struct {
	SupplierID    string    `json:"supplier_id"`
	Score         float64   `json:"score"`
	AuditDate     time.Time `json:"audit_date,omitempty"`
	ReportingYear int       `json:"reporting_year,omitempty"`
}

// CertificationRecord is a sustainability certificate held by a supplier.
type CertificationRecord struct {
	SupplierID    string    `json:"supplier_id"`
	Name          string    `json:"certification"`
	IssueDate     time.Time `json:"issue_date,omitempty"`
	ExpiryDate    time.Time `json:"expiry_date,omitempty"`
	ReportingYear int       `json:"reporting_year,omitempty"`
}

func (p *rowParser) year(field string) int {
	raw := p.row.Get(field)
	if raw == "" {
		return 0
	}
	f, ok := parseNumber(raw)
	if !ok || f != math.Trunc(f) || f < 1900 || f > 9999 {
		p.fail(field, raw)
		return 0
	}
	return int(f)
}

// ParseSupplierListings converts the vendor list rows. Nothing numeric, so no issues.
func ParseSupplierListings(rows []Row) []SupplierListing {
	out := make([]SupplierListing, 0, len(rows))
	for _, row := range rows {
		out = append(out, SupplierListing{
			ProductID:    row.Get("product_id"),
			SupplierID:   row.Get("supplier_id"),
			SupplierName: row.Get("supplier_name", "name"),
			Location:     row.Get("location", "country"),
		})
	}
	return out
}

// ParseESG converts rows of the provider-tagged ESG dataset.
func ParseESG(rows []Row) ([]ESGRecord, []RowIssue) {
	var (
		out    = make([]ESGRecord, 0, len(rows))
		issues []RowIssue
	)
	for i, row := range rows {
		p := &rowParser{row: row}
		rec := ESGRecord{
			SupplierID:    row.Get("supplier_id"),
			Provider:      strings.TrimSpace(row.Get("provider")),
			OverallScore:  p.optional("overall_score", true),
			RiskScore:     p.optional("risk_score", true),
			Rating:        strings.TrimSpace(row.Get("rating")),
			ReportingYear: p.year("reporting_year"),
		}
		if p.issue != nil {
			issues = append(issues, withPosition(*p.issue, DatasetSupplierESG, i))
			continue
		}
		out = append(out, rec)
	}
	return out, issues
}

// ParseEmissions converts supplier emissions rows.
func ParseEmissions(rows []Row) ([]EmissionsRecord, []RowIssue) {
	var (
		out    = make([]EmissionsRecord, 0, len(rows))
		issues []RowIssue
	)
	for i, row := range rows {
		p := &rowParser{row: row}
		rec := EmissionsRecord{
			SupplierID:    row.Get("supplier_id"),
			Scope1:        p.number("scope1_emissions", true, "scope_1_emissions"),
			Scope2:        p.number("scope2_emissions", true, "scope_2_emissions"),
			WaterUsageM3:  p.number("water_usage_m3", true, "water_usage"),
			ReportingYear: p.year("reporting_year"),
		}
		if p.issue != nil {
			issues = append(issues, withPosition(*p.issue, DatasetSupplierEmissions, i))
			continue
		}
		out = append(out, rec)
	}
	return out, issues
}

// ParseAudits converts supplier audit rows.
func ParseAudits(rows []Row) ([]AuditRecord, []RowIssue) {
	var (
		out    = make([]AuditRecord, 0, len(rows))
		issues []RowIssue
	)
	for i, row := range rows {
		p := &rowParser{row: row}
		rec := AuditRecord{
			SupplierID:    row.Get("supplier_id"),
			Score:         p.number("score", true, "audit_score"),
			ReportingYear: p.year("reporting_year"),
		}
		if raw := row.Get("audit_date", "date"); raw != "" {
			if t, ok := ParseDate(raw); ok {
				rec.AuditDate = t
			} else {
				p.fail("audit_date", raw)
			}
		}
		if p.issue != nil {
			issues = append(issues, withPosition(*p.issue, DatasetSupplierAudits, i))
			continue
		}
		out = append(out, rec)
	}
	return out, issues
}

// ParseCertifications converts supplier certification rows.
func ParseCertifications(rows []Row) ([]CertificationRecord, []RowIssue) {
	var (
		out    = make([]CertificationRecord, 0, len(rows))
		issues []RowIssue
	)
	for i, row := range rows {
		p := &rowParser{row: row}
		rec := CertificationRecord{
			SupplierID:    row.Get("supplier_id"),
			Name:          row.Get("certification", "certification_name", "name"),
			ReportingYear: p.year("reporting_year"),
		}
		for _, f := range []struct {
			dst     *time.Time
			field   string
			aliases []string
		}{
			{&rec.IssueDate, "issue_date", []string{"issued", "certified_date"}},
			{&rec.ExpiryDate, "expiry_date", []string{"valid_until", "validity"}},
		} {
			raw := row.Get(append([]string{f.field}, f.aliases...)...)
			if raw == "" {
				continue
			}
			t, ok := ParseDate(raw)
			if !ok {
				p.fail(f.field, raw)
				continue
			}
			*f.dst = t
		}
		if p.issue != nil {
			issues = append(issues, withPosition(*p.issue, DatasetSupplierCertifications, i))
			continue
		}
		out = append(out, rec)
	}
	return out, issues
}
