package domain

import (
	"math"
	"strconv"
	"strings"
	"time"
)

// InventoryRecord is a periodic stock snapshot for one product at one location.
type InventoryRecord struct {
	ProductID    string    `json:"product_id"`
	LocationID   string    `json:"location_id"`
	Quantity     float64   `json:"quantity"`
	ExpiryDate   time.Time `json:"expiry_date"`
	DaysToExpiry int       `json:"days_to_expiry"`
	UnitCost     float64   `json:"unit_cost"`
	TotalValue   float64   `json:"total_value"`
}

// SalesRecord is one product/store/day sales observation.
type SalesRecord struct {
	ProductID       string    `json:"product_id"`
	StoreID         string    `json:"store_id"`
	Date            time.Time `json:"date"`
	UnitsSold       float64   `json:"units_sold"`
	Price           float64   `json:"price"`
	PromotionActive bool      `json:"promotion_active"`
	DayOfWeek       string    `json:"day_of_week"`
	Temperature     *float64  `json:"temperature,omitempty"`
}

// WasteRecord is a historical waste event. DisposalCost and SalvageValue are
// nil when the source row leaves them empty.
type WasteRecord struct {
	StoreID        string    `json:"store_id"`
	ProductID      string    `json:"product_id"`
	Date           time.Time `json:"date"`
	WasteQuantity  float64   `json:"waste_quantity"`
	Reason         string    `json:"reason"`
	DisposalMethod string    `json:"disposal_method"`
	WasteCost      float64   `json:"waste_cost"`
	DisposalCost   *float64  `json:"disposal_cost,omitempty"`
	SalvageValue   *float64  `json:"salvage_value,omitempty"`
}

// SpecialEvent classifies the sales effect of a local event.
type SpecialEvent string

const (
	EventNone     SpecialEvent = "none"
	EventPositive SpecialEvent = "positive"
	EventNegative SpecialEvent = "negative"
)

// WeatherRecord is a daily weather observation for a store.
type WeatherRecord struct {
	StoreID       string       `json:"store_id"`
	Date          time.Time    `json:"date"`
	TempHigh      float64      `json:"temp_high"`
	TempLow       float64      `json:"temp_low"`
	Precipitation float64      `json:"precipitation"`
	Humidity      *float64     `json:"humidity,omitempty"`
	SpecialEvent  SpecialEvent `json:"special_event"`
}

// RowIssue records a row dropped during parsing. Row is the 1-based position
// within the rows fetched for the entity.
type RowIssue struct {
	Dataset  Dataset `json:"dataset"`
	Row      int     `json:"row"`
	Field    string  `json:"field"`
	RawValue string  `json:"raw_value"`
}

// Err returns the issue as a Malformed domain error.
func (i RowIssue) Err() *Error {
	e := Malformed(i.Field, i.RawValue)
	e.Dataset = i.Dataset
	return e
}

var dateLayouts = []string{
	"2006-01-02",
	"2006/01/02",
	"2006-01-02 15:04:05",
	time.RFC3339,
	"02-01-2006",
	"20060102",
}

// ParseDate accepts the date layouts found in the source CSV exports.
func ParseDate(v string) (time.Time, bool) {
	v = strings.TrimSpace(v)
	if v == "" {
		return time.Time{}, false
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, v); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// rowParser accumulates the first malformed field of a row.
type rowParser struct {
	row   Row
	issue *RowIssue
}

func (p *rowParser) fail(field, raw string) {
	if p.issue == nil {
		p.issue = &RowIssue{Field: field, RawValue: raw}
	}
}

func parseNumber(raw string) (float64, bool) {
	raw = strings.ReplaceAll(strings.TrimSpace(raw), ",", "")
	f, err := strconv.ParseFloat(raw, 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	return f, true
}

// number parses a required numeric column.
func (p *rowParser) number(field string, nonNegative bool, aliases ...string) float64 {
	raw := p.row.Get(append([]string{field}, aliases...)...)
	f, ok := parseNumber(raw)
	if !ok || (nonNegative && f < 0) {
		p.fail(field, raw)
		return 0
	}
	return f
}

// optional parses a numeric column that may be empty.
func (p *rowParser) optional(field string, nonNegative bool, aliases ...string) *float64 {
	raw := p.row.Get(append([]string{field}, aliases...)...)
	if raw == "" {
		return nil
	}
	f, ok := parseNumber(raw)
	if !ok || (nonNegative && f < 0) {
		p.fail(field, raw)
		return nil
	}
	return &f
}

func (p *rowParser) date(field string, required bool) time.Time {
	raw := p.row.Get(field)
	t, ok := ParseDate(raw)
	if !ok && required {
		p.fail(field, raw)
	}
	return t
}

func parseBool(v string) bool {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "1", "true", "yes", "y", "t":
		return true
	}
	return false
}

// ParseInventory converts raw rows, dropping and reporting malformed ones.
func ParseInventory(rows []Row) ([]InventoryRecord, []RowIssue) {
	var (
		out    = make([]InventoryRecord, 0, len(rows))
		issues []RowIssue
	)
	for i, row := range rows {
		p := &rowParser{row: row}
		rec := InventoryRecord{
			ProductID:  row.Get("product_id"),
			LocationID: row.Get("location_id", "store_id"),
			Quantity:   p.number("quantity", true),
			UnitCost:   p.number("unit_cost", true),
			ExpiryDate: p.date("expiry_date", false),
		}
		days := p.number("days_to_expiry", true)
		if days != math.Trunc(days) {
			p.fail("days_to_expiry", row.Get("days_to_expiry"))
		}
		rec.DaysToExpiry = int(days)
		if tv := p.optional("total_value", true); tv != nil {
			rec.TotalValue = *tv
		} else {
			rec.TotalValue = rec.Quantity * rec.UnitCost
		}
		if p.issue != nil {
			issues = append(issues, withPosition(*p.issue, DatasetInventory, i))
			continue
		}
		out = append(out, rec)
	}
	return out, issues
}

// ParseSales converts raw sales rows.
func ParseSales(rows []Row) ([]SalesRecord, []RowIssue) {
	var (
		out    = make([]SalesRecord, 0, len(rows))
		issues []RowIssue
	)
	for i, row := range rows {
		p := &rowParser{row: row}
		rec := SalesRecord{
			ProductID:       row.Get("product_id"),
			StoreID:         row.Get("store_id", "location_id"),
			Date:            p.date("date", false),
			UnitsSold:       p.number("units_sold", true),
			PromotionActive: parseBool(row.Get("promotion_active")),
			DayOfWeek:       row.Get("day_of_week"),
			Temperature:     p.optional("temperature", false),
		}
		if price := p.optional("price", true); price != nil {
			rec.Price = *price
		}
		if p.issue != nil {
			issues = append(issues, withPosition(*p.issue, DatasetSales, i))
			continue
		}
		out = append(out, rec)
	}
	return out, issues
}

// ParseWaste converts raw waste rows.
func ParseWaste(rows []Row) ([]WasteRecord, []RowIssue) {
	var (
		out    = make([]WasteRecord, 0, len(rows))
		issues []RowIssue
	)
	for i, row := range rows {
		p := &rowParser{row: row}
		rec := WasteRecord{
			StoreID:        row.Get("store_id"),
			ProductID:      row.Get("product_id"),
			Date:           p.date("date", false),
			WasteQuantity:  p.number("waste_quantity", true),
			Reason:         row.Get("reason"),
			DisposalMethod: row.Get("disposal_method"),
			DisposalCost:   p.optional("disposal_cost", true),
			SalvageValue:   p.optional("salvage_value", true),
		}
		if wc := p.optional("waste_cost", true); wc != nil {
			rec.WasteCost = *wc
		}
		if p.issue != nil {
			issues = append(issues, withPosition(*p.issue, DatasetWaste, i))
			continue
		}
		out = append(out, rec)
	}
	return out, issues
}

// ParseSpecialEvent maps the special_event column onto the enum.
func ParseSpecialEvent(v string) (SpecialEvent, bool) {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "", "none", "no", "0":
		return EventNone, true
	case "positive":
		return EventPositive, true
	case "negative":
		return EventNegative, true
	}
	return "", false
}

// ParseWeather converts raw weather rows. Date is required since the latest
// observation per store is used as the forecast.
func ParseWeather(rows []Row) ([]WeatherRecord, []RowIssue) {
	var (
		out    = make([]WeatherRecord, 0, len(rows))
		issues []RowIssue
	)
	for i, row := range rows {
		p := &rowParser{row: row}
		rec := WeatherRecord{
			StoreID:       row.Get("store_id"),
			Date:          p.date("date", true),
			TempHigh:      p.number("temp_high", false),
			TempLow:       p.number("temp_low", false),
			Precipitation: p.number("precipitation", true),
			Humidity:      p.optional("humidity", true),
		}
		event, ok := ParseSpecialEvent(row.Get("special_event"))
		if !ok {
			p.fail("special_event", row.Get("special_event"))
		}
		rec.SpecialEvent = event
		if p.issue != nil {
			issues = append(issues, withPosition(*p.issue, DatasetWeather, i))
			continue
		}
		out = append(out, rec)
	}
	return out, issues
}

func withPosition(issue RowIssue, d Dataset, index int) RowIssue {
	issue.Dataset = d
	issue.Row = index + 1
	return issue
}
