package sales

import (
	"testing"
	"time"

	"github.com/cmlabs-hris/cast-backoffice/internal/domain/cast"
	"github.com/cmlabs-hris/cast-backoffice/internal/domain/compensation"
	"github.com/cmlabs-hris/cast-backoffice/internal/domain/dailystat"
	"github.com/cmlabs-hris/cast-backoffice/internal/domain/externalorder"
	"github.com/cmlabs-hris/cast-backoffice/internal/domain/order"
	"github.com/cmlabs-hris/cast-backoffice/internal/domain/product"
	"github.com/cmlabs-hris/cast-backoffice/internal/domain/store"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testRoster() cast.Roster {
	return cast.NewRoster([]cast.Cast{
		{ID: "a", Name: "Aoi"},
		{ID: "b", Name: "Mika"},
		{ID: "c", Name: "Rin"},
	})
}

func findCast(t *testing.T, res Result, id string) CastResult {
	t.Helper()
	for _, c := range res.Casts {
		if c.CastID == id {
			return c
		}
	}
	t.Fatalf("cast %s not in result", id)
	return CastResult{}
}

func sampleOrder() order.Order {
	return order.Order{
		ID:         "o1",
		CheckoutAt: time.Date(2024, 3, 10, 22, 0, 0, 0, time.UTC),
		StaffNames: []string{"Aoi"},
		Items: []order.OrderItem{
			{ProductName: "Set", Quantity: 1, Subtotal: 10000, CastNames: []string{"Aoi"}},
			{ProductName: "Drink", Quantity: 2, Subtotal: 3000, CastNames: []string{"Aoi", "Mika"}},
			{ProductName: "Champagne", Quantity: 1, Subtotal: 6000},
		},
	}
}

func TestAggregate_ItemBased(t *testing.T) {
	res := Aggregate(Input{
		Orders: []order.Order{sampleOrder()},
		Roster: testRoster(),
		Config: Config{Policy: store.AttributionItemBased},
	})

	a := findCast(t, res, "a")
	b := findCast(t, res, "b")
	assert.Equal(t, Split{Self: 11500, Help: 0, Total: 11500}, a.ItemBased)
	assert.Equal(t, Split{Self: 0, Help: 1500, Total: 1500}, b.ItemBased)
	assert.Equal(t, int64(6000), res.Unattributed, "untagged item is not credited under item-based")
}

func TestAggregate_ReceiptBased(t *testing.T) {
	res := Aggregate(Input{
		Orders: []order.Order{sampleOrder()},
		Roster: testRoster(),
		Config: Config{Policy: store.AttributionReceiptBased},
	})

	a := findCast(t, res, "a")
	b := findCast(t, res, "b")
	// whole ticket 19000 split across staff Aoi plus tagged Mika
	assert.Equal(t, Split{Self: 9500, Help: 0, Total: 9500}, a.ReceiptBased)
	assert.Equal(t, Split{Self: 0, Help: 9500, Total: 9500}, b.ReceiptBased)
	assert.Equal(t, int64(0), res.Unattributed)

	// item-based figures are still produced for the stats row
	assert.Equal(t, int64(11500), a.ItemBased.Total)
}

func TestAggregate_HelpWhenNotStaff(t *testing.T) {
	o := order.Order{
		StaffNames: []string{"Rin"},
		Items:      []order.OrderItem{{ProductName: "Set", Quantity: 1, Subtotal: 8000, CastNames: []string{"Aoi"}}},
	}
	res := Aggregate(Input{Orders: []order.Order{o}, Roster: testRoster(), Config: Config{Policy: store.AttributionItemBased}})

	a := findCast(t, res, "a")
	assert.Equal(t, int64(0), a.ItemBased.Self)
	assert.Equal(t, int64(8000), a.ItemBased.Help)

	c := findCast(t, res, "c")
	assert.Equal(t, int64(4000), c.ReceiptBased.Self)
	assert.Equal(t, int64(4000), a.ReceiptBased.Help)
}

func TestAggregate_UnknownNamesAreIgnored(t *testing.T) {
	o := order.Order{
		StaffNames: []string{"Ghost"},
		Items:      []order.OrderItem{{ProductName: "Set", Quantity: 1, Subtotal: 5000, CastNames: []string{"Ghost", "Aoi"}}},
	}
	res := Aggregate(Input{Orders: []order.Order{o}, Roster: testRoster(), Config: Config{Policy: store.AttributionItemBased}})

	require.Len(t, res.Casts, 1)
	assert.Equal(t, int64(5000), res.Casts[0].ItemBased.Help)
}

func TestAggregate_TaxAndServiceFeeNormalization(t *testing.T) {
	o := order.Order{
		StaffNames: []string{"Aoi"},
		Items:      []order.OrderItem{{ProductName: "Set", Quantity: 1, Subtotal: 11000, CastNames: []string{"Aoi"}}},
	}

	res := Aggregate(Input{Orders: []order.Order{o}, Roster: testRoster(), Config: Config{
		Policy: store.AttributionItemBased, TaxRate: decimal.NewFromInt(10), ExcludeTax: true,
	}})
	assert.Equal(t, int64(10000), findCast(t, res, "a").ItemBased.Self)

	res = Aggregate(Input{Orders: []order.Order{o}, Roster: testRoster(), Config: Config{
		Policy: store.AttributionItemBased, TaxRate: decimal.NewFromInt(10), ExcludeTax: true,
		ServiceFeeRate: decimal.NewFromInt(20), IncludeServiceFee: true,
	}})
	assert.Equal(t, int64(12000), findCast(t, res, "a").ItemBased.Self)

	// rates are ignored unless the flags are on
	res = Aggregate(Input{Orders: []order.Order{o}, Roster: testRoster(), Config: Config{
		Policy: store.AttributionItemBased, TaxRate: decimal.NewFromInt(10),
	}})
	assert.Equal(t, int64(11000), findCast(t, res, "a").ItemBased.Self)
}

func TestAggregate_RoundsOncePerCast(t *testing.T) {
	tagged := []string{"Aoi", "Mika", "Rin"}
	o := order.Order{
		StaffNames: []string{"Aoi"},
		Items: []order.OrderItem{
			{ProductName: "Drink", Quantity: 1, Subtotal: 1000, CastNames: tagged},
			{ProductName: "Drink", Quantity: 1, Subtotal: 1000, CastNames: tagged},
		},
	}
	res := Aggregate(Input{Orders: []order.Order{o}, Roster: testRoster(), Config: Config{Policy: store.AttributionItemBased}})

	// 2 * 333.33.. = 666.66.. rounds to 667, not 333 + 333
	assert.Equal(t, int64(667), findCast(t, res, "a").ItemBased.Self)
	assert.Equal(t, int64(667), findCast(t, res, "b").ItemBased.Help)
}

func TestAggregate_ProductBackAndItemRows(t *testing.T) {
	products := []product.Product{
		{Name: "Set", BackType: product.BackTypeFixed, BackAmount: 500},
		{Name: "Drink", BackType: product.BackTypeRatio, BackRatio: decimal.NewFromInt(10)},
		{Name: "Nomination", Category: product.CategoryNomination, BackType: product.BackTypeFixed, BackAmount: 1000},
	}
	o := sampleOrder()
	o.Items = append(o.Items, order.OrderItem{ProductName: "Nomination", Quantity: 1, Subtotal: 2000, CastNames: []string{"Aoi"}})

	res := Aggregate(Input{
		Orders:   []order.Order{o},
		Roster:   testRoster(),
		Products: products,
		Config:   Config{Policy: store.AttributionItemBased},
	})

	a := findCast(t, res, "a")
	b := findCast(t, res, "b")
	assert.Equal(t, int64(500+150+1000), a.SelfProductBack)
	assert.Equal(t, int64(150), b.HelpProductBack)
	assert.Equal(t, 1, a.NominationCount)
	assert.Equal(t, 0, b.NominationCount)

	assert.Equal(t, []ItemRow{
		{CastID: "a", ProductName: "Drink", Attribution: dailystat.AttributionSelf, Quantity: 2, Subtotal: 1500, BackAmount: 150},
		{CastID: "a", ProductName: "Nomination", Attribution: dailystat.AttributionSelf, Category: product.CategoryNomination, Quantity: 1, Subtotal: 2000, BackAmount: 1000},
		{CastID: "a", ProductName: "Set", Attribution: dailystat.AttributionSelf, Quantity: 1, Subtotal: 10000, BackAmount: 500},
		{CastID: "b", ProductName: "Drink", Attribution: dailystat.AttributionHelp, Quantity: 2, Subtotal: 1500, BackAmount: 150},
	}, res.Items)
}

func TestAggregate_FixedBackSplitAcrossRecipients(t *testing.T) {
	products := []product.Product{{Name: "Bottle", BackType: product.BackTypeFixed, BackAmount: 3000}}
	o := order.Order{
		StaffNames: []string{"Aoi"},
		Items:      []order.OrderItem{{ProductName: "Bottle", Quantity: 2, Subtotal: 40000, CastNames: []string{"Aoi", "Mika"}}},
	}
	res := Aggregate(Input{Orders: []order.Order{o}, Roster: testRoster(), Products: products, Config: Config{Policy: store.AttributionItemBased}})

	assert.Equal(t, int64(3000), findCast(t, res, "a").SelfProductBack)
	assert.Equal(t, int64(3000), findCast(t, res, "b").HelpProductBack)
}

func TestAggregate_ExternalRecordsBecomeSelfSales(t *testing.T) {
	castID := "b"
	res := Aggregate(Input{
		External: []externalorder.Record{
			{ProductName: "Cheki", CastID: &castID, Quantity: 2, UnitPrice: 1500},
			{ProductName: "Cheki", Quantity: 1, UnitPrice: 1500},
		},
		Roster: testRoster(),
		Config: Config{Policy: store.AttributionReceiptBased},
	})

	require.Len(t, res.Casts, 1)
	b := res.Casts[0]
	assert.Equal(t, Split{Self: 3000, Total: 3000}, b.ItemBased)
	assert.Equal(t, Split{Self: 3000, Total: 3000}, b.ReceiptBased)
}

func TestAggregate_Deterministic(t *testing.T) {
	in := Input{Orders: []order.Order{sampleOrder()}, Roster: testRoster(), Config: Config{Policy: store.AttributionReceiptBased}}
	assert.Equal(t, Aggregate(in), Aggregate(in))
}

func TestCommission_SlidingTierSelection(t *testing.T) {
	rule := compensation.SalesBackRule{
		Mode: compensation.CommissionSliding,
		Tiers: []compensation.RateTier{
			{Min: 0, Max: 300000, Rate: decimal.NewFromInt(10)},
			{Min: 300001, Max: 0, Rate: decimal.NewFromInt(15)},
		},
	}

	tier, ok := compensation.SelectRateTier(rule.Tiers, 500000)
	require.True(t, ok)
	assert.True(t, decimal.NewFromInt(15).Equal(tier.Rate))
	assert.Equal(t, int64(75000), Commission(rule, 500000), "rate applies to the whole total")
	assert.Equal(t, int64(30000), Commission(rule, 300000))
}

func TestCommission_SlidingNoTierMatches(t *testing.T) {
	rule := compensation.SalesBackRule{
		Mode:  compensation.CommissionSliding,
		Tiers: []compensation.RateTier{{Min: 100000, Max: 200000, Rate: decimal.NewFromInt(10)}},
	}
	assert.Equal(t, int64(0), Commission(rule, 50000))
}

func TestCommission_Flat(t *testing.T) {
	rule := compensation.SalesBackRule{Mode: compensation.CommissionFlat, Rate: decimal.NewFromInt(12)}
	assert.Equal(t, int64(1476), Commission(rule, 12300))
}

func TestSummarize_SalesTarget(t *testing.T) {
	split := Split{Self: 100000, Help: 50000, Total: 150000}
	flat := compensation.SalesBackRule{Mode: compensation.CommissionFlat, Rate: decimal.NewFromInt(10)}

	total := Summarize(split, flat)
	assert.Equal(t, Summary{SelfSales: 100000, HelpSales: 50000, TotalSales: 150000, TotalBack: 15000}, total)

	flat.Target = compensation.SalesTargetSelfOnly
	assert.Equal(t, int64(10000), Summarize(split, flat).TotalBack)
}
