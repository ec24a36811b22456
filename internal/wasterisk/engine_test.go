package wasterisk

import (
	"context"
	"testing"

	"github.com/andresuchdata/ecoagent/backend-go/internal/domain"
	"github.com/andresuchdata/ecoagent/backend-go/internal/recordstore"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	inventoryCSV = `product_id,location_id,quantity,expiry_date,days_to_expiry,unit_cost,total_value
A,S1,100,2024-06-10,5,10,1000
B,S1,40,2024-06-20,15,2,80
C,S2,10,2024-06-08,3,4,40
C,S2,oops,2024-06-08,3,4,40
`
	salesCSV = `product_id,store_id,date,units_sold,price,promotion_active,day_of_week,temperature
A,S1,2024-06-01,10,12,false,Saturday,21
A,S1,2024-06-02,20,12,false,Sunday,22
A,S1,2024-06-03,15,12,true,Monday,20
C,S2,2024-06-01,4,5,false,Saturday,25
C,S2,2024-06-02,6,5,false,Sunday,26
`
	wasteCSV = `store_id,date,product_id,waste_quantity,reason,disposal_method,waste_cost
S1,2024-05-01,A,4,expired,landfill,40
`
	weatherCSV = `store_id,date,temp_high,temp_low,precipitation,humidity,special_event
S1,2024-06-01,14,6,5,60,none
S1,2024-06-02,12,8,2,65,negative
S2,2024-06-02,24,16,0,40,positive
`
)

func fixture() *recordstore.MemoryStore {
	return recordstore.NewMemoryStore().
		PutCSV(domain.DatasetInventory, inventoryCSV).
		PutCSV(domain.DatasetSales, salesCSV).
		PutCSV(domain.DatasetWaste, wasteCSV).
		PutCSV(domain.DatasetWeather, weatherCSV)
}

func TestEngine_SingleProduct(t *testing.T) {
	engine := NewEngine(fixture(), DefaultConfig())

	res := engine.Run(context.Background(), "A")
	require.Equal(t, StatusSuccess, res.Status, res.Message)
	require.NotNil(t, res.Report)
	assert.Equal(t, "A", res.Scope)
	assert.Equal(t, 2727.5, res.Report.WasteCostImpact)
	assert.Equal(t, 1, res.Report.HistoricalWaste.Records)
	assert.NotEmpty(t, res.Assumptions)
}

func TestEngine_MalformedRowsAreDroppedAndReported(t *testing.T) {
	engine := NewEngine(fixture(), DefaultConfig())

	report, err := engine.Evaluate(context.Background(), "C")
	require.NoError(t, err)
	assert.Equal(t, 10.0, report.CurrentInventory)
	require.Len(t, report.Malformed, 1)
	assert.Equal(t, domain.DatasetInventory, report.Malformed[0].Dataset)
	assert.Equal(t, "quantity", report.Malformed[0].Field)
	assert.Equal(t, "oops", report.Malformed[0].RawValue)
	assert.Equal(t, 2, report.Malformed[0].Row)
}

func TestEngine_UnknownProductIsNoData(t *testing.T) {
	res := NewEngine(fixture(), DefaultConfig()).Run(context.Background(), "Z")
	assert.Equal(t, StatusError, res.Status)
	require.NotNil(t, res.Error)
	assert.Equal(t, domain.KindNoData, res.Error.Kind)
}

func TestEngine_MissingDatasetIsUnavailable(t *testing.T) {
	store := recordstore.NewMemoryStore().
		PutCSV(domain.DatasetInventory, inventoryCSV).
		PutCSV(domain.DatasetSales, salesCSV).
		PutCSV(domain.DatasetWaste, wasteCSV)

	res := NewEngine(store, DefaultConfig()).Run(context.Background(), "A")
	assert.Equal(t, StatusError, res.Status)
	assert.Equal(t, domain.KindDataUnavailable, res.Error.Kind)
	assert.Equal(t, domain.DatasetWeather, res.Error.Dataset)

	res = NewEngine(store, DefaultConfig()).Run(context.Background(), "")
	assert.Equal(t, StatusError, res.Status)
	assert.Equal(t, domain.KindDataUnavailable, res.Error.Kind)
}

func TestEngine_BatchIsolatesFailures(t *testing.T) {
	engine := NewEngine(fixture(), DefaultConfig())

	res := engine.Run(context.Background(), "")
	assert.Equal(t, StatusPartial, res.Status)
	assert.Equal(t, ScopeAll, res.Scope)
	require.Len(t, res.Reports, 3)

	assert.Equal(t, "A", res.Reports[0].ProductID)
	assert.Nil(t, res.Reports[0].Error)
	assert.Equal(t, 2727.5, res.Reports[0].WasteCostImpact)

	assert.Equal(t, "B", res.Reports[1].ProductID)
	require.NotNil(t, res.Reports[1].Error)
	assert.Equal(t, domain.KindNoData, res.Reports[1].Error.Kind)

	assert.Equal(t, "C", res.Reports[2].ProductID)
	assert.Nil(t, res.Reports[2].Error)
}

func TestEngine_BatchMatchesSingleRuns(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Workers = 3
	engine := NewEngine(fixture(), cfg)

	batch := engine.Run(context.Background(), "")
	single, err := engine.Evaluate(context.Background(), "C")
	require.NoError(t, err)
	assert.Equal(t, *single, batch.Reports[2])
}

func TestEngine_AllRowsMalformedIsNoData(t *testing.T) {
	store := recordstore.NewMemoryStore().
		PutCSV(domain.DatasetInventory, inventoryCSV+"D,S1,-5,2024-06-10,5,10,50\nD,S1,8,2024-06-10,-3,10,80\n").
		PutCSV(domain.DatasetSales, salesCSV+"D,S1,2024-06-01,3,5,false,Saturday,21\n").
		PutCSV(domain.DatasetWaste, wasteCSV).
		PutCSV(domain.DatasetWeather, weatherCSV)

	res := NewEngine(store, DefaultConfig()).Run(context.Background(), "D")
	assert.Equal(t, StatusError, res.Status)
	require.NotNil(t, res.Error)
	assert.Equal(t, domain.KindNoData, res.Error.Kind)
	assert.Equal(t, domain.DatasetInventory, res.Error.Dataset)
}
