// Package domain defines the enterprise state model, the fixed rulebook
// tables, status transitions and the rule evaluation primitives used by erpsim.
package domain

// EntityType identifies the kind of record touched by a change.
type EntityType string

// Supported entity identifiers used in Change records and violations.
const (
	EntityFinance          EntityType = "finance"
	EntityLoan             EntityType = "loan"
	EntityFactory          EntityType = "factory"
	EntityProductionLine   EntityType = "production_line"
	EntityProductRD        EntityType = "product_rd"
	EntityRawMaterial      EntityType = "raw_material"
	EntityFinishedProduct  EntityType = "finished_product"
	EntityMaterialOrder    EntityType = "raw_material_order"
	EntityMarket           EntityType = "market"
	EntityISOCertification EntityType = "iso_certification"
	EntityAdvertisement    EntityType = "advertisement"
	EntityOrder            EntityType = "order"
	EntityOperation        EntityType = "operation"
	EntitySave             EntityType = "save"
)

// Action describes the type of modification performed on an entity.
type Action string

const (
	ActionCreate Action = "create"
	ActionUpdate Action = "update"
	ActionDelete Action = "delete"
)

// Severity captures rule outcomes.
type Severity string

// Rule evaluation severities determine commit behavior and logging.
const (
	// SeverityBlock blocks transaction commit.
	SeverityBlock Severity = "block"
	// SeverityWarn logs a warning but allows commit.
	SeverityWarn Severity = "warn"
	SeverityLog  Severity = "log"
)

// LineType enumerates production line kinds.
type LineType string

const (
	LineAutomatic     LineType = "automatic"
	LineSemiAutomatic LineType = "semi-automatic"
	LineManual        LineType = "manual"
	LineFlexible      LineType = "flexible"
)

// LineTypes lists every line kind in display order.
var LineTypes = []LineType{LineAutomatic, LineSemiAutomatic, LineManual, LineFlexible}

// LineStatus is the lifecycle state of a production line.
type LineStatus string

const (
	LineInstalling LineStatus = "installing"
	LineRunning    LineStatus = "running"
	LineConverting LineStatus = "converting"
	LineStopped    LineStatus = "stopped"
	LineIdle       LineStatus = "idle"
	LineSelling    LineStatus = "selling"
)

// ProductCode identifies a finished product. The empty code means "no product".
type ProductCode string

const (
	ProductNone ProductCode = ""
	ProductP1   ProductCode = "P1"
	ProductP2   ProductCode = "P2"
	ProductP3   ProductCode = "P3"
	ProductP4   ProductCode = "P4"
)

// ProductCodes lists the finished products in catalogue order.
var ProductCodes = []ProductCode{ProductP1, ProductP2, ProductP3, ProductP4}

// Valid reports whether p names a catalogued product.
func (p ProductCode) Valid() bool {
	switch p {
	case ProductP1, ProductP2, ProductP3, ProductP4:
		return true
	}
	return false
}

// MaterialCode identifies a raw material.
type MaterialCode string

const (
	MaterialR1 MaterialCode = "R1"
	MaterialR2 MaterialCode = "R2"
	MaterialR3 MaterialCode = "R3"
	MaterialR4 MaterialCode = "R4"
)

// MaterialCodes lists the raw materials in catalogue order.
var MaterialCodes = []MaterialCode{MaterialR1, MaterialR2, MaterialR3, MaterialR4}

// MarketType identifies a sales market.
type MarketType string

const (
	MarketLocal         MarketType = "local"
	MarketRegional      MarketType = "regional"
	MarketDomestic      MarketType = "domestic"
	MarketAsian         MarketType = "asian"
	MarketInternational MarketType = "international"
)

// MarketTypes lists the markets from nearest to farthest.
var MarketTypes = []MarketType{MarketLocal, MarketRegional, MarketDomestic, MarketAsian, MarketInternational}

// MarketStatus is the development state of a market.
type MarketStatus string

const (
	MarketUnavailable MarketStatus = "unavailable"
	MarketDeveloping  MarketStatus = "developing"
	MarketAvailable   MarketStatus = "available"
)

// ISOType identifies a quality certification.
type ISOType string

const (
	ISO9000  ISOType = "ISO9000"
	ISO14000 ISOType = "ISO14000"
)

// ISOTypes lists the certifications.
var ISOTypes = []ISOType{ISO9000, ISO14000}

// ISOStatus is the certification state.
type ISOStatus string

const (
	ISOUncertified ISOStatus = "uncertified"
	ISOCertifying  ISOStatus = "certifying"
	ISOCertified   ISOStatus = "certified"
)

// FactoryType identifies factory sizes.
type FactoryType string

const (
	FactoryLarge FactoryType = "large"
	FactorySmall FactoryType = "small"
)

// LogKind tags every operation and financial log so reports can be built
// without parsing descriptions.
type LogKind string

const (
	LogInitialCash           LogKind = "initial_cash"
	LogLongTermLoan          LogKind = "loan_long_term"
	LogShortTermLoan         LogKind = "loan_short_term"
	LogMaterialOrder         LogKind = "material_order"
	LogMaterialOrderCancel   LogKind = "material_order_cancel"
	LogLinePurchase          LogKind = "line_purchase"
	LogLineSale              LogKind = "line_sale"
	LogLineConversion        LogKind = "line_conversion"
	LogProductionStart       LogKind = "production_start"
	LogProductionCancel      LogKind = "production_cancel"
	LogProductionStartFailed LogKind = "production_start_failed"
	LogProductionResumed     LogKind = "production_resumed"
	LogProductionStopped     LogKind = "production_stopped"
	LogRDInvestment          LogKind = "rd_investment"
	LogRDCompleted           LogKind = "rd_completed"
	LogAdvertisement         LogKind = "advertisement"
	LogMarketInvestment      LogKind = "market_investment"
	LogISOInvestment         LogKind = "iso_investment"
	LogOrderAdded            LogKind = "order_added"
	LogOrderRemoved          LogKind = "order_removed"
	LogOrderSelected         LogKind = "order_selected"
	LogOrderDelivered        LogKind = "order_delivered"
	LogQuarterStart          LogKind = "quarter_start"
	LogReceivables           LogKind = "receivables"
	LogRDPeriod              LogKind = "rd_period"
	LogMaterialArrival       LogKind = "material_arrival"
	LogProductionReport      LogKind = "production_report"
	LogQuarterEnd            LogKind = "quarter_end"
	LogYearEnd               LogKind = "year_end"
	LogSaveManual            LogKind = "save_manual"
	LogSaveAuto              LogKind = "save_auto"
	LogSaveLoaded            LogKind = "save_loaded"
	LogGameReset             LogKind = "game_reset"
	LogAnnualPlan            LogKind = "annual_plan"
	LogNote                  LogKind = "note"
)
