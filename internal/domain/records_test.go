package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func rowsOf(header []string, records ...[]string) []Row {
	out := make([]Row, 0, len(records))
	for _, r := range records {
		out = append(out, NewRow(header, r))
	}
	return out
}

func TestNormalizeColumnName(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"Supplier Id", "supplierid"},
		{"supplier_id", "supplierid"},
		{"SUPPLIER-ID", "supplierid"},
		{" Water_Usage_m3 ", "waterusagem3"},
		{"Reporting Year", "reportingyear"},
		{"unit/cost", "unitcost"},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, NormalizeColumnName(tt.in))
		})
	}
}

func TestRow_GetAndMatchesKey(t *testing.T) {
	row := NewRow([]string{"Supplier Id", "Location", "Name"}, []string{" S1 ", "", "Acme"})

	assert.Equal(t, "S1", row.Get("supplier_id"))
	assert.Equal(t, "Acme", row.Get("location", "name"))
	assert.False(t, row.Has("location"))
	assert.True(t, row.MatchesKey(DatasetSupplierESG, "S1"))
	assert.False(t, row.MatchesKey(DatasetSupplierESG, "S2"))
	assert.True(t, row.MatchesKey(DatasetSupplierESG, ""))

	short := NewRow([]string{"a", "b"}, []string{"1"})
	assert.Equal(t, "", short.Get("b"))
}

func TestParseDate(t *testing.T) {
	want := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)
	tests := []struct {
		in string
		ok bool
	}{
		{"2024-06-01", true},
		{"2024/06/01", true},
		{"01-06-2024", true},
		{"20240601", true},
		{" 2024-06-01 ", true},
		{"", false},
		{"06/01/2024", false},
		{"yesterday", false},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, ok := ParseDate(tt.in)
			require.Equal(t, tt.ok, ok)
			if ok {
				assert.True(t, want.Equal(got), got)
			}
		})
	}

	got, ok := ParseDate("2024-06-01 10:30:00")
	require.True(t, ok)
	assert.Equal(t, 10, got.Hour())

	got, ok = ParseDate("2024-06-01T08:00:00Z")
	require.True(t, ok)
	assert.Equal(t, 8, got.Hour())
}

func TestParseInventory_DropsAndFlagsInvalidRows(t *testing.T) {
	header := []string{"product_id", "location_id", "quantity", "expiry_date", "days_to_expiry", "unit_cost", "total_value"}
	rows := rowsOf(header,
		[]string{"P1", "S1", "100", "2024-06-10", "5", "10", ""},
		[]string{"P1", "S2", "20", "2024-06-10", "-3", "10", ""},
		[]string{"P1", "S3", "20", "2024-06-10", "4", "-1", ""},
		[]string{"P1", "S4", "oops", "2024-06-10", "4", "2", ""},
		[]string{"P1", "S5", "-5", "2024-06-10", "4", "2", ""},
		[]string{"P1", "S6", "5", "2024-06-10", "2.5", "2", ""},
		[]string{"P1", "S7", "1,200", "", "7", "3", "99"},
	)

	records, issues := ParseInventory(rows)
	require.Len(t, records, 2)
	assert.Equal(t, "S1", records[0].LocationID)
	assert.Equal(t, 1000.0, records[0].TotalValue)
	assert.Equal(t, 1200.0, records[1].Quantity)
	assert.Equal(t, 99.0, records[1].TotalValue)
	assert.True(t, records[1].ExpiryDate.IsZero())

	want := []RowIssue{
		{Dataset: DatasetInventory, Row: 2, Field: "days_to_expiry", RawValue: "-3"},
		{Dataset: DatasetInventory, Row: 3, Field: "unit_cost", RawValue: "-1"},
		{Dataset: DatasetInventory, Row: 4, Field: "quantity", RawValue: "oops"},
		{Dataset: DatasetInventory, Row: 5, Field: "quantity", RawValue: "-5"},
		{Dataset: DatasetInventory, Row: 6, Field: "days_to_expiry", RawValue: "2.5"},
	}
	assert.Equal(t, want, issues)
}

func TestParseInventory_AllRowsMalformed(t *testing.T) {
	header := []string{"product_id", "quantity", "days_to_expiry", "unit_cost"}
	records, issues := ParseInventory(rowsOf(header,
		[]string{"B", "-5", "3", "1"},
		[]string{"B", "", "3", "1"},
	))
	assert.Empty(t, records)
	require.Len(t, issues, 2)
	assert.Equal(t, KindMalformed, issues[1].Err().Kind)
	assert.Equal(t, DatasetInventory, issues[1].Err().Dataset)
}

func TestParseSales(t *testing.T) {
	header := []string{"product_id", "store_id", "date", "units_sold", "price", "promotion_active", "temperature"}
	records, issues := ParseSales(rowsOf(header,
		[]string{"P1", "S1", "2024-06-01", "10", "2.5", "Yes", "-4"},
		[]string{"P1", "S1", "2024-06-02", "-1", "2.5", "no", ""},
		[]string{"P1", "S1", "2024-06-03", "3", "-2", "no", ""},
	))
	require.Len(t, records, 1)
	assert.True(t, records[0].PromotionActive)
	require.NotNil(t, records[0].Temperature)
	assert.Equal(t, -4.0, *records[0].Temperature)

	require.Len(t, issues, 2)
	assert.Equal(t, "units_sold", issues[0].Field)
	assert.Equal(t, "price", issues[1].Field)
	assert.Equal(t, DatasetSales, issues[1].Dataset)
}

func TestParseWaste_OptionalCosts(t *testing.T) {
	header := []string{"product_id", "date", "waste_quantity", "waste_cost", "disposal_cost", "salvage_value"}
	records, issues := ParseWaste(rowsOf(header,
		[]string{"P1", "2024-05-01", "4", "40", "", ""},
		[]string{"P1", "2024-05-02", "2", "20", "7.5", "1"},
		[]string{"P1", "2024-05-03", "2", "20", "abc", ""},
	))
	require.Len(t, records, 2)
	assert.Nil(t, records[0].DisposalCost)
	assert.Nil(t, records[0].SalvageValue)
	require.NotNil(t, records[1].DisposalCost)
	assert.Equal(t, 7.5, *records[1].DisposalCost)

	require.Len(t, issues, 1)
	assert.Equal(t, RowIssue{Dataset: DatasetWaste, Row: 3, Field: "disposal_cost", RawValue: "abc"}, issues[0])
}

func TestParseSpecialEvent(t *testing.T) {
	tests := []struct {
		in   string
		want SpecialEvent
		ok   bool
	}{
		{"", EventNone, true},
		{"None", EventNone, true},
		{"0", EventNone, true},
		{" POSITIVE ", EventPositive, true},
		{"negative", EventNegative, true},
		{"festival", "", false},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, ok := ParseSpecialEvent(tt.in)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParseWeather(t *testing.T) {
	header := []string{"store_id", "date", "temp_high", "temp_low", "precipitation", "humidity", "special_event"}
	records, issues := ParseWeather(rowsOf(header,
		[]string{"S1", "2024-06-01", "14", "-2", "5", "", "none"},
		[]string{"S1", "", "14", "6", "5", "60", "none"},
		[]string{"S1", "2024-06-03", "14", "6", "-1", "60", "none"},
		[]string{"S1", "2024-06-04", "14", "6", "1", "60", "festival"},
	))
	require.Len(t, records, 1)
	assert.Equal(t, -2.0, records[0].TempLow)
	assert.Nil(t, records[0].Humidity)

	fields := make([]string, 0, len(issues))
	for _, issue := range issues {
		fields = append(fields, issue.Field)
	}
	assert.Equal(t, []string{"date", "precipitation", "special_event"}, fields)
}
