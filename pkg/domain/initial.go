package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// OperatorSystem marks logs written by the quarter engine.
const OperatorSystem = "system"

// Manager returns the operator name recorded for user actions.
func Manager(enterprise string) string { return enterprise + " manager" }

// StartingCash is the opening cash balance.
var StartingCash = decimal.NewFromInt(40)

var (
	materialNames = map[MaterialCode]string{MaterialR1: "Raw Material 1", MaterialR2: "Raw Material 2", MaterialR3: "Raw Material 3", MaterialR4: "Raw Material 4"}
	materialLead  = map[MaterialCode]int{MaterialR1: 1, MaterialR2: 1, MaterialR3: 2, MaterialR4: 2}
	productNames  = map[ProductCode]string{ProductP1: "Product 1", ProductP2: "Product 2", ProductP3: "Product 3", ProductP4: "Product 4"}
	productPrices = map[ProductCode]int64{ProductP1: 2, ProductP2: 4, ProductP3: 6, ProductP4: 8}
	marketNames   = map[MarketType]string{
		MarketLocal:         "Local Market",
		MarketRegional:      "Regional Market",
		MarketDomestic:      "Domestic Market",
		MarketAsian:         "Asian Market",
		MarketInternational: "International Market",
	}
)

// NewLine builds a production line from the rulebook table. Lines without an
// installation period start running with one unit in progress.
func NewLine(id, name string, t LineType, product ProductCode, spec LineSpec) ProductionLine {
	line := ProductionLine{
		ID:                 id,
		Name:               name,
		Type:               t,
		Status:             LineInstalling,
		Product:            product,
		PurchasePrice:      spec.PurchasePrice,
		InstallationPeriod: spec.InstallationPeriod,
		ProductionPeriod:   spec.ProductionPeriod,
		ConversionPeriod:   spec.ConversionPeriod,
		ConversionCost:     spec.ConversionCost,
		MaintenanceCost:    spec.MaintenanceCost,
		SalvageValue:       spec.SalvageValue,
		RemainingLife:      spec.Life,
	}
	if spec.InstallationPeriod <= 0 {
		line.Status = LineRunning
		line.InProgressProducts = 1
	}
	return line
}

// NewEnterpriseState returns the opening position of a fresh game: two
// factories each running one automatic P1 line, an empty warehouse and only
// the local market open.
func NewEnterpriseState(rb Rulebook, enterprise string, now time.Time) EnterpriseState {
	auto := rb.Lines[LineAutomatic]
	running := func(id, name string) ProductionLine {
		l := NewLine(id, name, LineAutomatic, ProductP1, auto)
		l.Status = LineRunning
		l.InProgressProducts = 0
		l.InstallationProgress = auto.InstallationPeriod
		return l
	}

	limits := make(map[LineType]int, len(LineTypes))
	for _, t := range LineTypes {
		limits[t] = rb.LineLimit
	}

	rd := map[ProductCode]ProductRD{ProductP1: {Completed: true}}
	for _, p := range ProductCodes[1:] {
		rd[p] = ProductRD{}
	}

	var materials []RawMaterial
	for _, m := range MaterialCodes {
		materials = append(materials, RawMaterial{Type: m, Name: materialNames[m], Price: decimal.NewFromInt(1), LeadTime: materialLead[m]})
	}
	var products []FinishedProduct
	for _, p := range ProductCodes {
		products = append(products, FinishedProduct{Type: p, Name: productNames[p], Price: decimal.NewFromInt(productPrices[p])})
	}
	var markets []Market
	for _, m := range MarketTypes {
		market := Market{Type: m, Name: marketNames[m], Status: MarketUnavailable, AnnualMaintenanceCost: decimal.NewFromInt(1)}
		if m == MarketLocal {
			market.Status = MarketAvailable
			market.DevelopmentProgress = rb.Markets[MarketLocal].Quarters
		}
		markets = append(markets, market)
	}
	var certs []ISOCertification
	for _, t := range ISOTypes {
		certs = append(certs, ISOCertification{Type: t, Name: string(t) + " Certification", Status: ISOUncertified})
	}

	loan := func(term int, rate string) Loan {
		return Loan{
			RemainingTerm: term,
			InterestRate:  decimal.RequireFromString(rate),
			MaxAmount:     decimal.NewFromInt(40),
			MinAmount:     decimal.NewFromInt(20),
		}
	}

	return EnterpriseState{
		Finance: Finance{
			Cash:           StartingCash,
			LongTermLoan:   loan(12, "0.10"),
			ShortTermLoan:  loan(4, "0.05"),
			Equity:         decimal.NewFromInt(36),
			RetainedProfit: decimal.NewFromInt(7),
		},
		ProductionLineLimits: limits,
		Production: Production{
			Factories: []Factory{
				{
					ID: "factory-1", Name: enterprise + " Large Factory", Type: FactoryLarge,
					PurchasePrice: decimal.NewFromInt(40), Capacity: 6,
					ProductionLines: []ProductionLine{running("line-1", auto.Name+" 1")},
				},
				{
					ID: "factory-2", Name: enterprise + " Small Factory", Type: FactorySmall,
					PurchasePrice: decimal.NewFromInt(20), Capacity: 4,
					ProductionLines: []ProductionLine{running("line-2", auto.Name+" 2")},
				},
			},
			ProductRD: rd,
		},
		Logistics: Logistics{
			RawMaterials:      materials,
			FinishedProducts:  products,
			RawMaterialOrders: []RawMaterialOrder{},
		},
		Marketing: Marketing{
			Markets:           markets,
			ISOCertifications: certs,
			Advertisements:    []Advertisement{},
			AvailableOrders:   []Order{},
			SelectedOrders:    []Order{},
		},
		Operation: Operation{
			CurrentYear:    1,
			CurrentQuarter: 1,
			OperationLogs:  []OperationLog{},
			FinancialLogs: []FinancialLogRecord{{
				ID:          uuid.NewString(),
				Kind:        LogInitialCash,
				Year:        1,
				Quarter:     1,
				Timestamp:   now,
				Description: "initial cash",
				CashChange:  StartingCash,
				NewCash:     StartingCash,
				Operator:    OperatorSystem,
			}},
			AnnualPlan:      AnnualPlan{MarketDevelopment: []MarketType{}, ProductRD: []ProductCode{}},
			CashFlowHistory: []CashFlowRecord{{Year: 1, Quarter: 1, Cash: StartingCash, Description: "opening balance"}},
		},
	}
}
