package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// ReceivableSlots is the length of the receivables ladder. Slot 0 is collected
// at the next quarter end.
const ReceivableSlots = 4

// EnterpriseState is the root aggregate of one simulated enterprise. It is
// only mutated through transactions and is always snapshotted whole.
type EnterpriseState struct {
	Finance              Finance          `json:"finance"`
	ProductionLineLimits map[LineType]int `json:"productionLineLimits"`
	Production           Production       `json:"production"`
	Logistics            Logistics        `json:"logistics"`
	Marketing            Marketing        `json:"marketing"`
	Operation            Operation        `json:"operation"`
}

// Loan describes one credit facility.
type Loan struct {
	Amount        decimal.Decimal `json:"amount"`
	RemainingTerm int             `json:"remainingTerm"`
	InterestRate  decimal.Decimal `json:"interestRate"`
	MaxAmount     decimal.Decimal `json:"maxAmount"`
	MinAmount     decimal.Decimal `json:"minAmount"`
}

// Finance holds the ledger balances.
type Finance struct {
	Cash               decimal.Decimal                  `json:"cash"`
	LongTermLoan       Loan                             `json:"longTermLoan"`
	ShortTermLoan      Loan                             `json:"shortTermLoan"`
	AccountsReceivable [ReceivableSlots]decimal.Decimal `json:"accountsReceivable"`
	AccountsPayable    decimal.Decimal                  `json:"accountsPayable"`
	TaxesPayable       decimal.Decimal                  `json:"taxesPayable"`
	Equity             decimal.Decimal                  `json:"equity"`
	RetainedProfit     decimal.Decimal                  `json:"retainedProfit"`
	AnnualNetProfit    decimal.Decimal                  `json:"annualNetProfit"`
}

// ReceivablesTotal sums every slot of the receivables ladder.
func (f Finance) ReceivablesTotal() decimal.Decimal {
	total := decimal.Zero
	for _, v := range f.AccountsReceivable {
		total = total.Add(v)
	}
	return total
}

// ProductionLine is a single line installed in a factory.
type ProductionLine struct {
	ID                   string          `json:"id"`
	Name                 string          `json:"name"`
	Type                 LineType        `json:"type"`
	Status               LineStatus      `json:"status"`
	Product              ProductCode     `json:"product,omitempty"`
	PurchasePrice        decimal.Decimal `json:"purchasePrice"`
	InstallationPeriod   int             `json:"installationPeriod"`
	ProductionPeriod     int             `json:"productionPeriod"`
	ConversionPeriod     int             `json:"conversionPeriod"`
	ConversionCost       decimal.Decimal `json:"conversionCost"`
	MaintenanceCost      decimal.Decimal `json:"maintenanceCost"`
	SalvageValue         decimal.Decimal `json:"salvageValue"`
	RemainingLife        int             `json:"remainingLife"`
	InProgressProducts   int             `json:"inProgressProducts"`
	InstallationProgress int             `json:"installationProgress"`
	ConversionProgress   int             `json:"conversionProgress"`
}

// Factory owns production lines up to its capacity.
type Factory struct {
	ID              string           `json:"id"`
	Name            string           `json:"name"`
	Type            FactoryType      `json:"type"`
	PurchasePrice   decimal.Decimal  `json:"purchasePrice"`
	Capacity        int              `json:"capacity"`
	ProductionLines []ProductionLine `json:"productionLines"`
}

// ProductRD tracks the development of one product.
type ProductRD struct {
	Completed       bool            `json:"completed"`
	Progress        int             `json:"progress"`
	TotalInvestment decimal.Decimal `json:"totalInvestment"`
}

// Production groups factories and product development.
type Production struct {
	Factories []Factory                 `json:"factories"`
	ProductRD map[ProductCode]ProductRD `json:"productRD"`
}

// RawMaterial is stock of one raw material type.
type RawMaterial struct {
	Type     MaterialCode    `json:"type"`
	Name     string          `json:"name"`
	Quantity int             `json:"quantity"`
	Price    decimal.Decimal `json:"price"`
	LeadTime int             `json:"leadTime"`
}

// FinishedProduct is stock of one product.
type FinishedProduct struct {
	Type     ProductCode     `json:"type"`
	Name     string          `json:"name"`
	Quantity int             `json:"quantity"`
	Price    decimal.Decimal `json:"price"`
}

// RawMaterialOrder is an open purchase order. ArrivalPeriod is a quarter of
// the year, compared against the quarter being entered.
type RawMaterialOrder struct {
	ID            string          `json:"id"`
	MaterialType  MaterialCode    `json:"materialType"`
	Quantity      int             `json:"quantity"`
	Price         decimal.Decimal `json:"price"`
	OrderPeriod   int             `json:"orderPeriod"`
	ArrivalPeriod int             `json:"arrivalPeriod"`
}

// Logistics groups inventories and open purchase orders.
type Logistics struct {
	RawMaterials      []RawMaterial      `json:"rawMaterials"`
	FinishedProducts  []FinishedProduct  `json:"finishedProducts"`
	RawMaterialOrders []RawMaterialOrder `json:"rawMaterialOrders"`
}

// Market is one sales region.
type Market struct {
	Type                  MarketType      `json:"type"`
	Name                  string          `json:"name"`
	Status                MarketStatus    `json:"status"`
	DevelopmentProgress   int             `json:"developmentProgress"`
	AnnualMaintenanceCost decimal.Decimal `json:"annualMaintenanceCost"`
}

// ISOCertification tracks one quality certification.
type ISOCertification struct {
	Type                  ISOType         `json:"type"`
	Name                  string          `json:"name"`
	Status                ISOStatus       `json:"status"`
	CertificationProgress int             `json:"certificationProgress"`
	TotalCost             decimal.Decimal `json:"totalCost"`
}

// Advertisement is an audit record of an advertising spend.
type Advertisement struct {
	ID       string          `json:"id"`
	Amount   decimal.Decimal `json:"amount"`
	Period   int             `json:"period"`
	Markets  []MarketType    `json:"markets"`
	Products []ProductCode   `json:"products"`
}

// Order is a customer order moving from available to selected to delivered.
type Order struct {
	ID            string          `json:"id"`
	ProductType   ProductCode     `json:"productType"`
	Quantity      int             `json:"quantity"`
	UnitPrice     decimal.Decimal `json:"unitPrice"`
	TotalAmount   decimal.Decimal `json:"totalAmount"`
	PaymentPeriod int             `json:"paymentPeriod"`
	Market        MarketType      `json:"market"`
	IsSelected    bool            `json:"isSelected"`
	IsDelivered   bool            `json:"isDelivered"`
}

// Marketing groups markets, certifications, advertising and orders.
type Marketing struct {
	Markets           []Market           `json:"markets"`
	ISOCertifications []ISOCertification `json:"isoCertifications"`
	Advertisements    []Advertisement    `json:"advertisements"`
	AvailableOrders   []Order            `json:"availableOrders"`
	SelectedOrders    []Order            `json:"selectedOrders"`
}

// OperationLog records a user or engine action.
type OperationLog struct {
	ID         string    `json:"id"`
	Time       time.Time `json:"time"`
	Operator   string    `json:"operator"`
	Kind       LogKind   `json:"kind"`
	Action     string    `json:"action"`
	DataChange string    `json:"dataChange"`
}

// FinancialLogRecord is one entry of the running cash ledger.
type FinancialLogRecord struct {
	ID          string          `json:"id"`
	Kind        LogKind         `json:"kind"`
	Year        int             `json:"year"`
	Quarter     int             `json:"quarter"`
	Timestamp   time.Time       `json:"timestamp"`
	Description string          `json:"description"`
	CashChange  decimal.Decimal `json:"cashChange"`
	NewCash     decimal.Decimal `json:"newCash"`
	Operator    string          `json:"operator"`
}

// CashFlowRecord is the closing cash of a quarter.
type CashFlowRecord struct {
	Year        int             `json:"year"`
	Quarter     int             `json:"quarter"`
	Cash        decimal.Decimal `json:"cash"`
	Description string          `json:"description,omitempty"`
}

// AnnualPlan holds free-form planning notes for the current year.
type AnnualPlan struct {
	MarketDevelopment []MarketType  `json:"marketDevelopment"`
	ProductRD         []ProductCode `json:"productRD"`
	ProductionPlan    string        `json:"productionPlan"`
	MarketingPlan     string        `json:"marketingPlan"`
}

// Operation holds the clock and the log trails. Logs are kept newest first.
type Operation struct {
	CurrentYear     int                  `json:"currentYear"`
	CurrentQuarter  int                  `json:"currentQuarter"`
	IsGameOver      bool                 `json:"isGameOver"`
	OperationLogs   []OperationLog       `json:"operationLogs"`
	FinancialLogs   []FinancialLogRecord `json:"financialLogs"`
	AnnualPlan      AnnualPlan           `json:"annualPlan"`
	CashFlowHistory []CashFlowRecord     `json:"cashFlowHistory"`
}

// AbsolutePeriod returns (year-1)*4+quarter.
func (o Operation) AbsolutePeriod() int {
	return (o.CurrentYear-1)*4 + o.CurrentQuarter
}

// RawMaterial returns the stock entry for code.
func (s *EnterpriseState) RawMaterial(code MaterialCode) (*RawMaterial, bool) {
	for i := range s.Logistics.RawMaterials {
		if s.Logistics.RawMaterials[i].Type == code {
			return &s.Logistics.RawMaterials[i], true
		}
	}
	return nil, false
}

// FinishedProduct returns the stock entry for code.
func (s *EnterpriseState) FinishedProduct(code ProductCode) (*FinishedProduct, bool) {
	for i := range s.Logistics.FinishedProducts {
		if s.Logistics.FinishedProducts[i].Type == code {
			return &s.Logistics.FinishedProducts[i], true
		}
	}
	return nil, false
}

// Market returns the market entry for t.
func (s *EnterpriseState) Market(t MarketType) (*Market, bool) {
	for i := range s.Marketing.Markets {
		if s.Marketing.Markets[i].Type == t {
			return &s.Marketing.Markets[i], true
		}
	}
	return nil, false
}

// ISOCertification returns the certification entry for t.
func (s *EnterpriseState) ISOCertification(t ISOType) (*ISOCertification, bool) {
	for i := range s.Marketing.ISOCertifications {
		if s.Marketing.ISOCertifications[i].Type == t {
			return &s.Marketing.ISOCertifications[i], true
		}
	}
	return nil, false
}

// Factory returns the factory with the given id.
func (s *EnterpriseState) Factory(id string) (*Factory, bool) {
	for i := range s.Production.Factories {
		if s.Production.Factories[i].ID == id {
			return &s.Production.Factories[i], true
		}
	}
	return nil, false
}

// Line returns the production line with the given id and its owning factory.
func (s *EnterpriseState) Line(id string) (*ProductionLine, *Factory, bool) {
	for fi := range s.Production.Factories {
		f := &s.Production.Factories[fi]
		for li := range f.ProductionLines {
			if f.ProductionLines[li].ID == id {
				return &f.ProductionLines[li], f, true
			}
		}
	}
	return nil, nil, false
}

// Lines returns pointers to every production line in factory order.
func (s *EnterpriseState) Lines() []*ProductionLine {
	var out []*ProductionLine
	for fi := range s.Production.Factories {
		f := &s.Production.Factories[fi]
		for li := range f.ProductionLines {
			out = append(out, &f.ProductionLines[li])
		}
	}
	return out
}

// CountLines returns how many lines of type t exist across all factories.
func (s *EnterpriseState) CountLines(t LineType) int {
	n := 0
	for _, f := range s.Production.Factories {
		for _, l := range f.ProductionLines {
			if l.Type == t {
				n++
			}
		}
	}
	return n
}
