package domain

import (
	"slices"

	"github.com/shopspring/decimal"
)

// LineSpec is the fixed cost and timing table entry for a line type.
type LineSpec struct {
	Name               string          `json:"name"`
	PurchasePrice      decimal.Decimal `json:"purchasePrice"`
	InstallationPeriod int             `json:"installationPeriod"`
	ProductionPeriod   int             `json:"productionPeriod"`
	ConversionPeriod   int             `json:"conversionPeriod"`
	ConversionCost     decimal.Decimal `json:"conversionCost"`
	MaintenanceCost    decimal.Decimal `json:"maintenanceCost"`
	SalvageValue       decimal.Decimal `json:"salvageValue"`
	Life               int             `json:"life"`
}

// MaterialRequirement is one row of a bill of materials.
type MaterialRequirement struct {
	Material MaterialCode `json:"material"`
	Quantity int          `json:"quantity"`
}

// DevelopmentSpec is the cost and duration of a market or certification.
type DevelopmentSpec struct {
	Cost     decimal.Decimal `json:"cost"`
	Quarters int             `json:"quarters"`
}

// Rulebook carries every constant the operations and the quarter engine read.
type Rulebook struct {
	Lines           map[LineType]LineSpec                 `json:"lines"`
	LineLimit       int                                   `json:"lineLimit"`
	BillOfMaterials map[ProductCode][]MaterialRequirement `json:"billOfMaterials"`
	Markets         map[MarketType]DevelopmentSpec        `json:"markets"`
	ISO             map[ISOType]DevelopmentSpec           `json:"iso"`
	RDQuarters      int                                   `json:"rdQuarters"`

	LoanIncrement         decimal.Decimal `json:"loanIncrement"`
	LongTermLoanQuarters  []int           `json:"longTermLoanQuarters"`
	ShortTermLoanQuarters []int           `json:"shortTermLoanQuarters"`

	AdminFee        decimal.Decimal `json:"adminFee"`
	AdminFeeQuarter int             `json:"adminFeeQuarter"`
	TaxRate         decimal.Decimal `json:"taxRate"`
	FinalYear       int             `json:"finalYear"`

	AdvertisementMarkets  []MarketType  `json:"advertisementMarkets"`
	AdvertisementProducts []ProductCode `json:"advertisementProducts"`
}

func d(v int64) decimal.Decimal { return decimal.NewFromInt(v) }

// DefaultRulebook returns the standard tables.
func DefaultRulebook() Rulebook {
	return Rulebook{
		Lines: map[LineType]LineSpec{
			LineAutomatic:     {Name: "Automatic Line", PurchasePrice: d(16), InstallationPeriod: 4, ProductionPeriod: 1, ConversionPeriod: 2, ConversionCost: d(4), MaintenanceCost: d(1), SalvageValue: d(4), Life: 15},
			LineSemiAutomatic: {Name: "Semi-automatic Line", PurchasePrice: d(8), InstallationPeriod: 2, ProductionPeriod: 2, ConversionPeriod: 1, ConversionCost: d(1), MaintenanceCost: d(1), SalvageValue: d(2), Life: 12},
			LineManual:        {Name: "Manual Line", PurchasePrice: d(5), InstallationPeriod: 0, ProductionPeriod: 3, ConversionPeriod: 0, ConversionCost: d(0), MaintenanceCost: d(1), SalvageValue: d(1), Life: 10},
			LineFlexible:      {Name: "Flexible Line", PurchasePrice: d(24), InstallationPeriod: 4, ProductionPeriod: 1, ConversionPeriod: 0, ConversionCost: d(0), MaintenanceCost: d(1), SalvageValue: d(6), Life: 15},
		},
		LineLimit: 2,
		BillOfMaterials: map[ProductCode][]MaterialRequirement{
			ProductP1: {{MaterialR1, 1}},
			ProductP2: {{MaterialR1, 1}, {MaterialR2, 1}},
			ProductP3: {{MaterialR2, 2}, {MaterialR3, 1}},
			ProductP4: {{MaterialR2, 1}, {MaterialR3, 1}, {MaterialR4, 2}},
		},
		Markets: map[MarketType]DevelopmentSpec{
			MarketLocal:         {Cost: d(1), Quarters: 4},
			MarketRegional:      {Cost: d(1), Quarters: 4},
			MarketDomestic:      {Cost: d(2), Quarters: 8},
			MarketAsian:         {Cost: d(3), Quarters: 12},
			MarketInternational: {Cost: d(4), Quarters: 16},
		},
		ISO: map[ISOType]DevelopmentSpec{
			ISO9000:  {Cost: d(3), Quarters: 3},
			ISO14000: {Cost: d(4), Quarters: 4},
		},
		RDQuarters:            6,
		LoanIncrement:         d(20),
		LongTermLoanQuarters:  []int{4},
		ShortTermLoanQuarters: []int{1, 3},
		AdminFee:              d(1),
		AdminFeeQuarter:       4,
		TaxRate:               decimal.RequireFromString("0.25"),
		FinalYear:             4,
		AdvertisementMarkets:  []MarketType{MarketLocal, MarketRegional},
		AdvertisementProducts: []ProductCode{ProductP1, ProductP2},
	}
}

// LineSpec returns the table entry for t.
func (rb Rulebook) LineSpec(t LineType) (LineSpec, bool) {
	spec, ok := rb.Lines[t]
	return spec, ok
}

// BOM returns the bill of materials for p, or nil when p has none.
func (rb Rulebook) BOM(p ProductCode) []MaterialRequirement {
	return rb.BillOfMaterials[p]
}

// LongTermLoanAllowed reports whether quarter opens the long-term facility.
func (rb Rulebook) LongTermLoanAllowed(quarter int) bool {
	return slices.Contains(rb.LongTermLoanQuarters, quarter)
}

// ShortTermLoanAllowed reports whether quarter opens the short-term facility.
func (rb Rulebook) ShortTermLoanAllowed(quarter int) bool {
	return slices.Contains(rb.ShortTermLoanQuarters, quarter)
}

// ShouldProduce reports whether a running line completes work when entering
// quarter. A line with production period n completes in quarters divisible by n.
func ShouldProduce(line ProductionLine, quarter int) bool {
	if line.ProductionPeriod <= 1 {
		return true
	}
	return quarter%line.ProductionPeriod == 0
}

// Clone returns a rulebook that shares no maps or slices with rb.
func (rb Rulebook) Clone() Rulebook {
	cp := rb
	cp.Lines = make(map[LineType]LineSpec, len(rb.Lines))
	for k, v := range rb.Lines {
		cp.Lines[k] = v
	}
	cp.BillOfMaterials = make(map[ProductCode][]MaterialRequirement, len(rb.BillOfMaterials))
	for k, v := range rb.BillOfMaterials {
		cp.BillOfMaterials[k] = slices.Clone(v)
	}
	cp.Markets = make(map[MarketType]DevelopmentSpec, len(rb.Markets))
	for k, v := range rb.Markets {
		cp.Markets[k] = v
	}
	cp.ISO = make(map[ISOType]DevelopmentSpec, len(rb.ISO))
	for k, v := range rb.ISO {
		cp.ISO[k] = v
	}
	cp.LongTermLoanQuarters = slices.Clone(rb.LongTermLoanQuarters)
	cp.ShortTermLoanQuarters = slices.Clone(rb.ShortTermLoanQuarters)
	cp.AdvertisementMarkets = slices.Clone(rb.AdvertisementMarkets)
	cp.AdvertisementProducts = slices.Clone(rb.AdvertisementProducts)
	return cp
}
