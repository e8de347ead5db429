package sales

import (
	"sort"

	"github.com/cmlabs-hris/cast-backoffice/internal/domain/cast"
	"github.com/cmlabs-hris/cast-backoffice/internal/domain/compensation"
	"github.com/cmlabs-hris/cast-backoffice/internal/domain/dailystat"
	"github.com/cmlabs-hris/cast-backoffice/internal/domain/externalorder"
	"github.com/cmlabs-hris/cast-backoffice/internal/domain/order"
	"github.com/cmlabs-hris/cast-backoffice/internal/domain/product"
	"github.com/cmlabs-hris/cast-backoffice/internal/domain/store"
	"github.com/cmlabs-hris/cast-backoffice/internal/pkg/money"
	"github.com/shopspring/decimal"
)

// Config selects the attribution policy for item rows and how gross
// amounts are normalized before they are split.
type Config struct {
	Policy            store.AttributionPolicy
	TaxRate           decimal.Decimal
	ServiceFeeRate    decimal.Decimal
	ExcludeTax        bool
	IncludeServiceFee bool
}

func ConfigFromStore(s store.Store) Config {
	policy := s.AttributionPolicy
	if !policy.IsValid() {
		policy = store.AttributionItemBased
	}
	return Config{
		Policy:            policy,
		TaxRate:           s.TaxRate,
		ServiceFeeRate:    s.ServiceFeeRate,
		ExcludeTax:        s.ExcludeTax,
		IncludeServiceFee: s.IncludeServiceFee,
	}
}

// Normalize removes tax and/or adds the service fee to a gross amount.
func (c Config) Normalize(amount int64) decimal.Decimal {
	d := decimal.NewFromInt(amount)
	if c.ExcludeTax && c.TaxRate.IsPositive() {
		d = d.Div(money.Multiplier(c.TaxRate))
	}
	if c.IncludeServiceFee && c.ServiceFeeRate.IsPositive() {
		d = d.Mul(money.Multiplier(c.ServiceFeeRate))
	}
	return d
}

type Input struct {
	Orders   []order.Order
	External []externalorder.Record
	Roster   cast.Roster
	Products []product.Product
	Config   Config
}

// Split is a cast's sales under one attribution policy.
type Split struct {
	Self  int64 `json:"self"`
	Help  int64 `json:"help"`
	Total int64 `json:"total"`
}

type CastResult struct {
	CastID          string `json:"cast_id"`
	ItemBased       Split  `json:"item_based"`
	ReceiptBased    Split  `json:"receipt_based"`
	SelfProductBack int64  `json:"self_product_back"`
	HelpProductBack int64  `json:"help_product_back"`
	NominationCount int    `json:"nomination_count"`
}

// Split returns the sales under policy.
func (r CastResult) Split(policy store.AttributionPolicy) Split {
	if policy == store.AttributionReceiptBased {
		return r.ReceiptBased
	}
	return r.ItemBased
}

// ItemRow is a cast's per product and attribution line for the day.
type ItemRow struct {
	CastID      string
	ProductName string
	Attribution dailystat.Attribution
	Category    string
	Quantity    int
	Subtotal    int64
	BackAmount  int64
}

type Result struct {
	// Casts is sorted by cast id.
	Casts []CastResult
	// Items follow Config.Policy and are sorted by cast, product, attribution.
	Items []ItemRow
	// Unattributed is the normalized amount no roster cast could be credited with.
	Unattributed int64
}

type ticket struct {
	staff map[string]bool
	items []ticketItem
}

type ticketItem struct {
	productName string
	category    string
	quantity    int
	subtotal    int64
	casts       []string
}

type accum struct {
	itemSelf, itemHelp       decimal.Decimal
	receiptSelf, receiptHelp decimal.Decimal
	selfBack, helpBack       decimal.Decimal
	nominations              int
}

type itemKey struct {
	castID      string
	productName string
	attribution dailystat.Attribution
}

type itemAccum struct {
	category string
	quantity int
	subtotal decimal.Decimal
	back     decimal.Decimal
}

// Aggregate attributes a business day's tickets to casts. Shares are kept
// at full precision and rounded once per cast total and once per item row.
func Aggregate(in Input) Result {
	products := make(map[string]product.Product, len(in.Products))
	for _, p := range in.Products {
		products[p.Name] = p
	}

	tickets := buildTickets(in)
	casts := make(map[string]*accum)
	items := make(map[itemKey]*itemAccum)
	unattributed := decimal.Zero

	get := func(id string) *accum {
		a, ok := casts[id]
		if !ok {
			a = &accum{}
			casts[id] = a
		}
		return a
	}

	for _, t := range tickets {
		receiptRecipients := t.receiptRecipients()
		for _, it := range t.items {
			amount := in.Config.Normalize(it.subtotal)
			p, hasProduct := products[it.productName]
			category := it.category
			if category == "" && hasProduct {
				category = p.Category
			}

			itemRecipients := uniqueIDs(it.casts)
			if len(itemRecipients) == 0 {
				if in.Config.Policy == store.AttributionItemBased || len(receiptRecipients) == 0 {
					unattributed = unattributed.Add(amount)
				}
			}

			distribute := func(recipients []string, policy store.AttributionPolicy) {
				if len(recipients) == 0 {
					return
				}
				n := decimal.NewFromInt(int64(len(recipients)))
				share := amount.Div(n)
				for _, id := range recipients {
					a := get(id)
					self := t.staff[id]
					switch {
					case policy == store.AttributionItemBased && self:
						a.itemSelf = a.itemSelf.Add(share)
					case policy == store.AttributionItemBased:
						a.itemHelp = a.itemHelp.Add(share)
					case self:
						a.receiptSelf = a.receiptSelf.Add(share)
					default:
						a.receiptHelp = a.receiptHelp.Add(share)
					}

					if policy != in.Config.Policy {
						continue
					}

					back := decimal.Zero
					if hasProduct {
						back = productBack(p, share, it.quantity, len(recipients))
					}
					attribution := dailystat.AttributionHelp
					if self {
						attribution = dailystat.AttributionSelf
						a.selfBack = a.selfBack.Add(back)
						if category == product.CategoryNomination {
							a.nominations += it.quantity
						}
					} else {
						a.helpBack = a.helpBack.Add(back)
					}

					key := itemKey{castID: id, productName: it.productName, attribution: attribution}
					row, ok := items[key]
					if !ok {
						row = &itemAccum{category: category}
						items[key] = row
					}
					row.quantity += it.quantity
					row.subtotal = row.subtotal.Add(share)
					row.back = row.back.Add(back)
				}
			}

			distribute(itemRecipients, store.AttributionItemBased)
			distribute(receiptRecipients, store.AttributionReceiptBased)
		}
	}

	return Result{
		Casts:        castResults(casts),
		Items:        itemRows(items),
		Unattributed: money.Round(unattributed),
	}
}

func productBack(p product.Product, share decimal.Decimal, quantity, recipients int) decimal.Decimal {
	switch p.BackType {
	case product.BackTypeRatio:
		return share.Mul(p.BackRatio).Div(decimal.NewFromInt(100))
	case product.BackTypeFixed:
		return decimal.NewFromInt(p.BackAmount * int64(quantity)).Div(decimal.NewFromInt(int64(recipients)))
	}
	return decimal.Zero
}

func buildTickets(in Input) []ticket {
	tickets := make([]ticket, 0, len(in.Orders)+len(in.External))
	for _, o := range in.Orders {
		t := ticket{staff: make(map[string]bool)}
		for _, name := range o.StaffNames {
			if id, ok := in.Roster.Lookup(name); ok {
				t.staff[id] = true
			}
		}
		for _, it := range o.Items {
			ti := ticketItem{
				productName: it.ProductName,
				category:    it.Category,
				quantity:    it.Quantity,
				subtotal:    it.Subtotal,
			}
			for _, name := range it.CastNames {
				if id, ok := in.Roster.Lookup(name); ok {
					ti.casts = append(ti.casts, id)
				}
			}
			t.items = append(t.items, ti)
		}
		tickets = append(tickets, t)
	}

	// Marketplace lines with a resolved cast become single-item tickets
	// staffed by that cast.
	for _, r := range in.External {
		if r.CastID == nil {
			continue
		}
		tickets = append(tickets, ticket{
			staff: map[string]bool{*r.CastID: true},
			items: []ticketItem{{
				productName: r.ProductName,
				quantity:    r.Quantity,
				subtotal:    r.Subtotal(),
				casts:       []string{*r.CastID},
			}},
		})
	}
	return tickets
}

// receiptRecipients is the union of the ticket staff and every tagged cast.
func (t ticket) receiptRecipients() []string {
	var ids []string
	for id := range t.staff {
		ids = append(ids, id)
	}
	for _, it := range t.items {
		ids = append(ids, it.casts...)
	}
	return uniqueIDs(ids)
}

func uniqueIDs(ids []string) []string {
	if len(ids) == 0 {
		return nil
	}
	seen := make(map[string]bool, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if seen[id] {
			continue
		}
		seen[id] = true
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}

func castResults(casts map[string]*accum) []CastResult {
	out := make([]CastResult, 0, len(casts))
	for id, a := range casts {
		itemSelf, itemHelp := money.Round(a.itemSelf), money.Round(a.itemHelp)
		receiptSelf, receiptHelp := money.Round(a.receiptSelf), money.Round(a.receiptHelp)
		out = append(out, CastResult{
			CastID:          id,
			ItemBased:       Split{Self: itemSelf, Help: itemHelp, Total: money.Round(a.itemSelf.Add(a.itemHelp))},
			ReceiptBased:    Split{Self: receiptSelf, Help: receiptHelp, Total: money.Round(a.receiptSelf.Add(a.receiptHelp))},
			SelfProductBack: money.Round(a.selfBack),
			HelpProductBack: money.Round(a.helpBack),
			NominationCount: a.nominations,
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CastID < out[j].CastID })
	return out
}

func itemRows(items map[itemKey]*itemAccum) []ItemRow {
	out := make([]ItemRow, 0, len(items))
	for k, v := range items {
		out = append(out, ItemRow{
			CastID:      k.castID,
			ProductName: k.productName,
			Attribution: k.attribution,
			Category:    v.category,
			Quantity:    v.quantity,
			Subtotal:    money.Round(v.subtotal),
			BackAmount:  money.Round(v.back),
		})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CastID != out[j].CastID {
			return out[i].CastID < out[j].CastID
		}
		if out[i].ProductName != out[j].ProductName {
			return out[i].ProductName < out[j].ProductName
		}
		return out[i].Attribution < out[j].Attribution
	})
	return out
}

// Summary is a cast's sales with commission under one rule.
type Summary struct {
	SelfSales  int64 `json:"self_sales"`
	HelpSales  int64 `json:"help_sales"`
	TotalSales int64 `json:"total_sales"`
	TotalBack  int64 `json:"total_back"`
}

// Summarize applies rule to split. The commission base is self sales when
// the rule targets self_only and total sales otherwise.
func Summarize(split Split, rule compensation.SalesBackRule) Summary {
	base := split.Total
	if rule.Target == compensation.SalesTargetSelfOnly {
		base = split.Self
	}
	return Summary{
		SelfSales:  split.Self,
		HelpSales:  split.Help,
		TotalSales: split.Total,
		TotalBack:  Commission(rule, base),
	}
}

// Commission is flat round(sales*rate/100) or, for sliding rules, the rate
// of the first tier containing sales applied to the whole amount.
func Commission(rule compensation.SalesBackRule, sales int64) int64 {
	switch rule.Mode {
	case compensation.CommissionSliding:
		tier, ok := compensation.SelectRateTier(rule.Tiers, sales)
		if !ok {
			return 0
		}
		return money.ApplyRate(sales, tier.Rate)
	default:
		return money.ApplyRate(sales, rule.Rate)
	}
}

// ToDailyItems stamps rows with their store and date.
func ToDailyItems(rows []ItemRow, storeID, date string) []dailystat.Item {
	out := make([]dailystat.Item, 0, len(rows))
	for _, r := range rows {
		out = append(out, dailystat.Item{
			CastID:      r.CastID,
			StoreID:     storeID,
			Date:        date,
			ProductName: r.ProductName,
			Attribution: r.Attribution,
			Category:    r.Category,
			Quantity:    r.Quantity,
			Subtotal:    r.Subtotal,
			BackAmount:  r.BackAmount,
		})
	}
	return out
}
