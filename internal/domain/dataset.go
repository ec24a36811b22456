package domain

import (
	"sort"
	"strings"
)

// Dataset names a CSV-backed record collection.
type Dataset string

const (
	DatasetInventory              Dataset = "inventory"
	DatasetSales                  Dataset = "sales"
	DatasetWaste                  Dataset = "waste"
	DatasetWeather                Dataset = "weather"
	DatasetSuppliers              Dataset = "suppliers"
	DatasetSupplierCertifications Dataset = "supplier_certifications"
	DatasetSupplierEmissions      Dataset = "supplier_emissions"
	DatasetSupplierESG            Dataset = "supplier_esg"
	DatasetSupplierAudits         Dataset = "supplier_audits"
	DatasetSupplierPurchases      Dataset = "supplier_product_purchases"
)

// datasetKeyFields holds the column each dataset is filtered on.
var datasetKeyFields = map[Dataset]string{
	DatasetInventory:              "product_id",
	DatasetSales:                  "product_id",
	DatasetWaste:                  "product_id",
	DatasetWeather:                "store_id",
	DatasetSuppliers:              "product_id",
	DatasetSupplierCertifications: "supplier_id",
	DatasetSupplierEmissions:      "supplier_id",
	DatasetSupplierESG:            "supplier_id",
	DatasetSupplierAudits:         "supplier_id",
	DatasetSupplierPurchases:      "supplier_id",
}

var datasetFiles = map[Dataset]string{
	DatasetInventory:              "inventory_data.csv",
	DatasetSales:                  "sales_data.csv",
	DatasetWaste:                  "waste_data.csv",
	DatasetWeather:                "weather_data.csv",
	DatasetSuppliers:              "suppliers.csv",
	DatasetSupplierCertifications: "Supplier_Certifications.csv",
	DatasetSupplierEmissions:      "supplier_emissions.csv",
	DatasetSupplierESG:            "suppliers_esg_data.csv",
	DatasetSupplierAudits:         "supplier_audits.csv",
	DatasetSupplierPurchases:      "supplier_product_purchase_data.csv",
}

// ParseDataset returns the dataset for a name (case-insensitive).
func ParseDataset(name string) (Dataset, bool) {
	d := Dataset(strings.ToLower(strings.TrimSpace(name)))
	_, ok := datasetKeyFields[d]
	return d, ok
}

// Datasets lists every known dataset in name order.
func Datasets() []Dataset {
	out := make([]Dataset, 0, len(datasetKeyFields))
	for d := range datasetKeyFields {
		out = append(out, d)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// KeyField returns the column used to filter the dataset, as written in the CSV.
func (d Dataset) KeyField() string {
	return datasetKeyFields[d]
}

// KeyColumn returns KeyField in normalized form.
func (d Dataset) KeyColumn() string {
	return NormalizeColumnName(datasetKeyFields[d])
}

// DefaultFile returns the object name the dataset is stored under.
func (d Dataset) DefaultFile() string {
	return datasetFiles[d]
}

func (d Dataset) String() string {
	return string(d)
}

// Row is a single string-typed record keyed by normalized column name.
type Row map[string]string

var columnNameSanitizer = strings.NewReplacer(" ", "", "_", "", ".", "", "-", "", "/", "")

// NormalizeColumnName folds a header so that "Supplier Id", "supplier_id" and
// "SUPPLIER-ID" all resolve to the same key.
func NormalizeColumnName(name string) string {
	name = strings.TrimSpace(strings.ToLower(name))
	return columnNameSanitizer.Replace(name)
}

// NewRow builds a Row from a header and a record, trimming values.
func NewRow(header, record []string) Row {
	row := make(Row, len(header))
	for i, h := range header {
		if i >= len(record) {
			break
		}
		row[NormalizeColumnName(h)] = strings.TrimSpace(record[i])
	}
	return row
}

// Get returns the first non-empty value among the candidate column names.
func (r Row) Get(names ...string) string {
	for _, name := range names {
		if v, ok := r[NormalizeColumnName(name)]; ok && v != "" {
			return v
		}
	}
	return ""
}

// Has reports whether any of the candidate columns carries a value.
func (r Row) Has(names ...string) bool {
	return r.Get(names...) != ""
}

// MatchesKey reports whether the row belongs to the given entity key for dataset d.
// An empty key matches everything.
func (r Row) MatchesKey(d Dataset, key string) bool {
	if key == "" {
		return true
	}
	return r[d.KeyColumn()] == key
}
