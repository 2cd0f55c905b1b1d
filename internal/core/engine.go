package core

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"erpsim/pkg/domain"
)

// QuarterSummary reports what one quarter advance did.
type QuarterSummary struct {
	Year              int
	Quarter           int
	CashCollected     decimal.Decimal
	MaterialsArrived  map[domain.MaterialCode]int
	UnitsProduced     int
	Produced          map[domain.ProductCode]int
	Maintenance       decimal.Decimal
	LongTermInterest  decimal.Decimal
	ShortTermInterest decimal.Decimal
	AdminFee          decimal.Decimal
	RDInvestment      decimal.Decimal
	Tax               decimal.Decimal
	CashChange        decimal.Decimal
	ResumedLines      []string
	StoppedLines      []string
	CompletedRD       []domain.ProductCode
	GameOver          bool
}

// TotalCosts is the sum of the period costs, tax excluded.
func (q QuarterSummary) TotalCosts() decimal.Decimal {
	return q.Maintenance.Add(q.LongTermInterest).Add(q.ShortTermInterest).Add(q.AdminFee).Add(q.RDInvestment)
}

// AdvanceQuarter returns the state one quarter after state. The input is not
// modified.
func AdvanceQuarter(state EnterpriseState, rb Rulebook, now time.Time) (EnterpriseState, QuarterSummary) {
	tx := newTransaction(state.Clone(), rb, domain.OperatorSystem, now)
	summary := tx.AdvanceQuarter()
	return tx.state, summary
}

func nextPeriod(year, quarter int) (int, int) {
	if quarter >= 4 {
		return year + 1, 1
	}
	return year, quarter + 1
}

// AdvanceQuarter moves the transaction's state forward by one quarter. The
// steps run in a fixed order and never fail; cash and stock may go negative.
func (tx *Transaction) AdvanceQuarter() QuarterSummary {
	s := &tx.state
	prevYear, prevQuarter := s.Operation.CurrentYear, s.Operation.CurrentQuarter
	newYear, newQuarter := nextPeriod(prevYear, prevQuarter)
	initialCash := s.Finance.Cash

	sum := QuarterSummary{
		Year:             newYear,
		Quarter:          newQuarter,
		MaterialsArrived: map[domain.MaterialCode]int{},
		Produced:         map[domain.ProductCode]int{},
		RDInvestment:     decimal.Zero,
		Tax:              decimal.Zero,
	}

	sum.CashCollected = tx.rollReceivables()
	tx.advanceRD(&sum)
	tx.receiveMaterials(newQuarter, &sum)
	startStock := inventoryLine(s)
	finishedBefore := finishedLine(s)
	tx.runProduction(newQuarter, &sum)
	tx.advanceMarkets()
	tx.advanceISO()
	tx.periodCosts(newQuarter, &sum)

	openingCash := initialCash.Add(sum.CashCollected).Sub(sum.RDInvestment)
	cash := initialCash.Add(sum.CashCollected).Sub(sum.TotalCosts())
	if prevQuarter == 4 {
		if profit := s.Finance.AnnualNetProfit; profit.IsPositive() {
			sum.Tax = profit.Mul(tx.rulebook.TaxRate).Round(2)
		}
	}
	finalCash := cash.Sub(sum.Tax)
	sum.CashChange = finalCash.Sub(initialCash)
	s.Finance.Cash = finalCash
	if newYear > prevYear {
		s.Finance.AnnualNetProfit = decimal.Zero
	}
	tx.recordChange(domain.EntityFinance, ActionUpdate, "cash")

	s.Operation.CurrentYear = newYear
	s.Operation.CurrentQuarter = newQuarter
	s.Operation.IsGameOver = newYear > tx.rulebook.FinalYear
	sum.GameOver = s.Operation.IsGameOver
	s.Operation.CashFlowHistory = append(s.Operation.CashFlowHistory, domain.CashFlowRecord{
		Year:        newYear,
		Quarter:     newQuarter,
		Cash:        finalCash,
		Description: fmt.Sprintf("Y%dQ%d closing cash", newYear, newQuarter),
	})
	tx.recordChange(domain.EntityOperation, ActionUpdate, "clock")

	record := func(kind domain.LogKind, desc string, change, newCash decimal.Decimal) domain.FinancialLogRecord {
		return domain.FinancialLogRecord{
			ID:          newID("finlog"),
			Kind:        kind,
			Year:        newYear,
			Quarter:     newQuarter,
			Timestamp:   tx.now,
			Description: desc,
			CashChange:  change,
			NewCash:     newCash,
			Operator:    domain.OperatorSystem,
		}
	}
	logs := []domain.FinancialLogRecord{
		record(domain.LogQuarterStart,
			fmt.Sprintf("Y%dQ%d opening count: cash %s, finished %s, raw %s", newYear, newQuarter, money(openingCash), finishedBefore, startStock),
			decimal.Zero, openingCash),
		record(domain.LogReceivables,
			fmt.Sprintf("receivables rolled, collected %s", money(sum.CashCollected)),
			sum.CashCollected, initialCash.Add(sum.CashCollected)),
	}
	if sum.RDInvestment.IsPositive() {
		logs = append(logs, record(domain.LogRDPeriod,
			fmt.Sprintf("R&D spend %s", money(sum.RDInvestment)), sum.RDInvestment.Neg(), openingCash))
	}
	logs = append(logs,
		record(domain.LogMaterialArrival,
			fmt.Sprintf("raw materials received, stock %s", startStock), decimal.Zero, openingCash),
		record(domain.LogProductionReport,
			fmt.Sprintf("production completed %d units, finished stock %s", sum.UnitsProduced, finishedLine(s)), decimal.Zero, openingCash),
		record(domain.LogQuarterEnd, quarterEndDescription(sum), sum.CashChange, finalCash),
	)
	if prevQuarter == 4 {
		logs = append(logs, record(domain.LogYearEnd,
			fmt.Sprintf("year %d closed, income tax %s", prevYear, money(sum.Tax)), sum.Tax.Neg(), finalCash))
	}
	tx.prependFinancial(logs...)

	for _, p := range sum.CompletedRD {
		rd := s.Production.ProductRD[p]
		tx.logOperationAs(domain.OperatorSystem, domain.LogRDCompleted, "product R&D completed",
			fmt.Sprintf("%s completed, total investment %s over %d quarters", p, money(rd.TotalInvestment), tx.rulebook.RDQuarters))
	}
	return sum
}

// rollReceivables shifts the ladder one slot toward collection and returns
// the amount that fell due.
func (tx *Transaction) rollReceivables() decimal.Decimal {
	ar := &tx.state.Finance.AccountsReceivable
	due := ar[0]
	for i := 0; i < len(ar)-1; i++ {
		ar[i] = ar[i+1]
	}
	ar[len(ar)-1] = decimal.Zero
	tx.recordChange(domain.EntityFinance, ActionUpdate, "accounts_receivable")
	return due
}

func (tx *Transaction) advanceRD(sum *QuarterSummary) {
	required := tx.rulebook.RDQuarters
	for _, p := range domain.ProductCodes {
		rd, ok := tx.state.Production.ProductRD[p]
		if !ok || rd.Completed || !rd.TotalInvestment.IsPositive() {
			continue
		}
		next := rd.Progress + 1
		rd.Progress = min(next, required)
		rd.Completed = next >= required
		tx.state.Production.ProductRD[p] = rd
		tx.recordChange(domain.EntityProductRD, ActionUpdate, string(p))
		if rd.Completed {
			sum.CompletedRD = append(sum.CompletedRD, p)
		}
	}
}

// receiveMaterials books every order whose arrival period equals quarter.
func (tx *Transaction) receiveMaterials(quarter int, sum *QuarterSummary) {
	logistics := &tx.state.Logistics
	remaining := logistics.RawMaterialOrders[:0]
	for _, order := range logistics.RawMaterialOrders {
		if order.ArrivalPeriod != quarter {
			remaining = append(remaining, order)
			continue
		}
		if m, ok := tx.state.RawMaterial(order.MaterialType); ok {
			m.Quantity += order.Quantity
		}
		sum.MaterialsArrived[order.MaterialType] += order.Quantity
		tx.recordChange(domain.EntityMaterialOrder, ActionDelete, order.ID)
	}
	logistics.RawMaterialOrders = remaining
}

func (tx *Transaction) runProduction(quarter int, sum *QuarterSummary) {
	s := &tx.state
	rb := tx.rulebook

	// Stopped lines resume first and then take part in this quarter's run.
	for _, line := range s.Lines() {
		if line.Status != domain.LineStopped || line.Product == domain.ProductNone {
			continue
		}
		if !bomSatisfiable(s, rb.BOM(line.Product)) {
			continue
		}
		if err := line.Transition(domain.LineRunning); err != nil {
			tx.refused(domain.EntityProductionLine, line.ID, err)
			continue
		}
		line.InProgressProducts = 1
		sum.ResumedLines = append(sum.ResumedLines, line.ID)
		tx.recordChange(domain.EntityProductionLine, ActionUpdate, line.ID)
		tx.logOperationAs(domain.OperatorSystem, domain.LogProductionResumed, "production resumed",
			fmt.Sprintf("%s has the materials for %s again and resumed", line.Name, line.Product))
	}

	for _, line := range s.Lines() {
		switch line.Status {
		case domain.LineInstalling:
			line.InstallationProgress++
			if line.InstallationProgress >= line.InstallationPeriod {
				tx.startLine(line)
			}
		case domain.LineConverting:
			line.ConversionProgress++
			if line.ConversionProgress >= line.ConversionPeriod {
				tx.startLine(line)
			}
		case domain.LineRunning:
			bom := rb.BOM(line.Product)
			if domain.ShouldProduce(*line, quarter) && line.InProgressProducts > 0 {
				if bomSatisfiable(s, bom) {
					consumeBOM(s, bom)
					if fp, ok := s.FinishedProduct(line.Product); ok {
						fp.Quantity += line.InProgressProducts
						sum.UnitsProduced += line.InProgressProducts
						sum.Produced[line.Product] += line.InProgressProducts
					}
				}
				line.InProgressProducts = 0
			}
			if line.InProgressProducts == 0 && bomSatisfiable(s, bom) {
				line.InProgressProducts = 1
			}
		default:
			continue
		}
		tx.recordChange(domain.EntityProductionLine, ActionUpdate, line.ID)
	}

	for _, line := range s.Lines() {
		if line.Status != domain.LineRunning || line.Product == domain.ProductNone {
			continue
		}
		bom := rb.BOM(line.Product)
		if !bomExhausted(s, bom) {
			continue
		}
		if err := line.Transition(domain.LineStopped); err != nil {
			tx.refused(domain.EntityProductionLine, line.ID, err)
			continue
		}
		line.InProgressProducts = 0
		sum.StoppedLines = append(sum.StoppedLines, line.ID)
		tx.recordChange(domain.EntityProductionLine, ActionUpdate, line.ID)
		tx.logOperationAs(domain.OperatorSystem, domain.LogProductionStopped, "production stopped",
			fmt.Sprintf("%s ran out of %s for %s and stopped", line.Name, bomMaterials(bom), line.Product))
	}
}

// startLine puts an installed or converted line into production with one
// unit loaded.
func (tx *Transaction) startLine(line *domain.ProductionLine) {
	if err := line.Transition(domain.LineRunning); err != nil {
		tx.refused(domain.EntityProductionLine, line.ID, err)
		return
	}
	line.InProgressProducts = 1
}

// RuleEngineTransition names the warning raised when the quarter engine
// meets a status change the state machine refuses. The entity keeps its
// status and nothing else about it is changed.
const RuleEngineTransition = "engine_transition"

func (tx *Transaction) refused(entity EntityType, id string, err error) {
	tx.warn(RuleEngineTransition, entity, id, err.Error())
}

func (tx *Transaction) advanceMarkets() {
	for i := range tx.state.Marketing.Markets {
		m := &tx.state.Marketing.Markets[i]
		if m.Status != domain.MarketDeveloping {
			continue
		}
		m.DevelopmentProgress++
		if m.DevelopmentProgress >= tx.rulebook.Markets[m.Type].Quarters {
			if err := m.Transition(domain.MarketAvailable); err != nil {
				tx.refused(domain.EntityMarket, string(m.Type), err)
			}
		}
		tx.recordChange(domain.EntityMarket, ActionUpdate, string(m.Type))
	}
}

func (tx *Transaction) advanceISO() {
	for i := range tx.state.Marketing.ISOCertifications {
		c := &tx.state.Marketing.ISOCertifications[i]
		if c.Status != domain.ISOCertifying {
			continue
		}
		c.CertificationProgress++
		if c.CertificationProgress >= tx.rulebook.ISO[c.Type].Quarters {
			if err := c.Transition(domain.ISOCertified); err != nil {
				tx.refused(domain.EntityISOCertification, string(c.Type), err)
			}
		}
		tx.recordChange(domain.EntityISOCertification, ActionUpdate, string(c.Type))
	}
}

// periodCosts fills the cost lines of the summary. Maintenance and
// long-term interest fall due in the first quarter of a year, short-term
// interest every quarter, the admin fee in the rulebook's admin quarter. R&D
// is debited when invested, so its share here is always zero.
func (tx *Transaction) periodCosts(quarter int, sum *QuarterSummary) {
	fin := tx.state.Finance
	sum.Maintenance = decimal.Zero
	sum.LongTermInterest = decimal.Zero
	sum.AdminFee = decimal.Zero
	if quarter == 1 {
		for _, line := range tx.state.Lines() {
			sum.Maintenance = sum.Maintenance.Add(line.MaintenanceCost)
		}
		sum.LongTermInterest = fin.LongTermLoan.Amount.Mul(fin.LongTermLoan.InterestRate)
	}
	sum.ShortTermInterest = fin.ShortTermLoan.Amount.Mul(fin.ShortTermLoan.InterestRate)
	if quarter == tx.rulebook.AdminFeeQuarter {
		sum.AdminFee = tx.rulebook.AdminFee
	}
}

func quarterEndDescription(sum QuarterSummary) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Y%dQ%d closing cash change:", sum.Year, sum.Quarter)
	items := []struct {
		label string
		v     decimal.Decimal
		sign  string
	}{
		{"receivables collected", sum.CashCollected, "+"},
		{"maintenance", sum.Maintenance, "-"},
		{"long-term interest", sum.LongTermInterest, "-"},
		{"short-term interest", sum.ShortTermInterest, "-"},
		{"admin fee", sum.AdminFee, "-"},
		{"R&D", sum.RDInvestment, "-"},
		{"income tax", sum.Tax, "-"},
	}
	for _, it := range items {
		if it.v.IsPositive() {
			fmt.Fprintf(&b, " %s %s %s", it.sign, it.label, money(it.v))
		}
	}
	return b.String()
}

func inventoryLine(s *domain.EnterpriseState) string {
	parts := make([]string, 0, len(s.Logistics.RawMaterials))
	for _, m := range s.Logistics.RawMaterials {
		parts = append(parts, fmt.Sprintf("%s: %d", m.Type, m.Quantity))
	}
	return strings.Join(parts, ", ")
}

func finishedLine(s *domain.EnterpriseState) string {
	parts := make([]string, 0, len(s.Logistics.FinishedProducts))
	for _, p := range s.Logistics.FinishedProducts {
		parts = append(parts, fmt.Sprintf("%s: %d", p.Type, p.Quantity))
	}
	return strings.Join(parts, ", ")
}
