package core

import (
	"strings"
	"testing"

	"github.com/shopspring/decimal"

	"erpsim/pkg/domain"
)

func advance(state EnterpriseState) (EnterpriseState, QuarterSummary) {
	return AdvanceQuarter(state, domain.DefaultRulebook(), testNow)
}

func advanceN(state EnterpriseState, n int) EnterpriseState {
	for i := 0; i < n; i++ {
		state, _ = advance(state)
	}
	return state
}

func TestAdvanceQuarterIsPure(t *testing.T) {
	s := setStock(freshState(), domain.MaterialR1, 4)
	logs := len(s.Operation.FinancialLogs)
	next, sum := advance(s)
	if s.Operation.CurrentQuarter != 1 || len(s.Operation.FinancialLogs) != logs {
		t.Fatalf("input state was modified")
	}
	if r1, _ := s.RawMaterial(domain.MaterialR1); r1.Quantity != 4 {
		t.Fatalf("input stock was modified")
	}
	if next.Operation.CurrentYear != 1 || next.Operation.CurrentQuarter != 2 || sum.Year != 1 || sum.Quarter != 2 {
		t.Fatalf("expected Y1Q2, got %+v", next.Operation)
	}
	again, _ := advance(s)
	if !again.Finance.Cash.Equal(next.Finance.Cash) {
		t.Fatalf("advance is not deterministic")
	}
}

func TestAdvanceQuarterRollsReceivables(t *testing.T) {
	s := freshState()
	s.Finance.AccountsReceivable = [domain.ReceivableSlots]decimal.Decimal{dec("5"), dec("3"), decimal.Zero, dec("2")}
	next, sum := advance(s)
	if !sum.CashCollected.Equal(dec("5")) {
		t.Fatalf("expected 5 collected, got %s", sum.CashCollected)
	}
	want := []string{"3", "0", "2", "0"}
	for i, w := range want {
		if !next.Finance.AccountsReceivable[i].Equal(dec(w)) {
			t.Fatalf("slot %d: got %s want %s", i, next.Finance.AccountsReceivable[i], w)
		}
	}
	assertCash(t, next, "45")
}

func TestAdvanceQuarterConservesReceivables(t *testing.T) {
	ladders := [][domain.ReceivableSlots]string{
		{"0", "0", "0", "0"},
		{"5", "3", "0", "2"},
		{"0", "7.5", "1", "0"},
		{"12", "0", "0", "9"},
	}
	sum := func(slots [domain.ReceivableSlots]decimal.Decimal) decimal.Decimal {
		total := decimal.Zero
		for _, v := range slots {
			total = total.Add(v)
		}
		return total
	}
	for _, ladder := range ladders {
		s := freshState()
		for i, v := range ladder {
			s.Finance.AccountsReceivable[i] = dec(v)
		}
		before := sum(s.Finance.AccountsReceivable)
		next, qs := advance(s)
		after := sum(next.Finance.AccountsReceivable)
		if !before.Equal(after.Add(qs.CashCollected)) {
			t.Fatalf("ladder %v: before %s != after %s + collected %s", ladder, before, after, qs.CashCollected)
		}
		if !qs.CashCollected.Equal(dec(ladder[0])) {
			t.Fatalf("ladder %v: collected %s, want slot 0", ladder, qs.CashCollected)
		}
	}
}

func TestAdvanceQuarterYearEnd(t *testing.T) {
	s := setQuarter(freshState(), 1, 4)
	s.Finance.LongTermLoan.Amount = dec("20")
	s.Finance.ShortTermLoan.Amount = dec("20")
	s.Finance.AnnualNetProfit = dec("10")

	next, sum := advance(s)
	if sum.Year != 2 || sum.Quarter != 1 || next.Operation.CurrentYear != 2 {
		t.Fatalf("expected rollover to Y2Q1, got Y%dQ%d", sum.Year, sum.Quarter)
	}
	checks := map[string][2]decimal.Decimal{
		"maintenance":         {sum.Maintenance, dec("2")},
		"long-term interest":  {sum.LongTermInterest, dec("2")},
		"short-term interest": {sum.ShortTermInterest, dec("1")},
		"admin fee":           {sum.AdminFee, decimal.Zero},
		"tax":                 {sum.Tax, dec("2.5")},
		"cash change":         {sum.CashChange, dec("-7.5")},
	}
	for name, c := range checks {
		if !c[0].Equal(c[1]) {
			t.Errorf("%s: got %s want %s", name, c[0], c[1])
		}
	}
	assertCash(t, next, "32.5")
	if !next.Finance.AnnualNetProfit.IsZero() {
		t.Fatalf("annual profit should reset on a new year")
	}

	var kinds []domain.LogKind
	for _, l := range next.Operation.FinancialLogs[:6] {
		kinds = append(kinds, l.Kind)
	}
	want := []domain.LogKind{domain.LogQuarterStart, domain.LogReceivables, domain.LogMaterialArrival, domain.LogProductionReport, domain.LogQuarterEnd, domain.LogYearEnd}
	for i := range want {
		if kinds[i] != want[i] {
			t.Fatalf("financial log order: got %v want %v", kinds, want)
		}
	}
	yearEnd := next.Operation.FinancialLogs[5]
	if !strings.Contains(yearEnd.Description, "year 1 closed") || !yearEnd.CashChange.Equal(dec("-2.5")) || yearEnd.Operator != domain.OperatorSystem {
		t.Fatalf("unexpected year-end log %+v", yearEnd)
	}
	end := next.Operation.FinancialLogs[4]
	if !end.NewCash.Equal(dec("32.5")) || !strings.Contains(end.Description, "income tax 2.5M") {
		t.Fatalf("unexpected quarter-end log %+v", end)
	}
	last := next.Operation.CashFlowHistory[len(next.Operation.CashFlowHistory)-1]
	if last.Year != 2 || last.Quarter != 1 || !last.Cash.Equal(dec("32.5")) {
		t.Fatalf("unexpected cash flow record %+v", last)
	}
}

func TestAdvanceQuarterNoTaxOnLoss(t *testing.T) {
	s := setQuarter(freshState(), 2, 4)
	s.Finance.AnnualNetProfit = dec("-3")
	_, sum := advance(s)
	if !sum.Tax.IsZero() {
		t.Fatalf("expected no tax on a loss, got %s", sum.Tax)
	}
}

func TestAdvanceQuarterAdminFee(t *testing.T) {
	s := setQuarter(freshState(), 1, 3)
	next, sum := advance(s)
	if !sum.AdminFee.Equal(dec("1")) || !sum.Maintenance.IsZero() {
		t.Fatalf("expected admin fee only, got %+v", sum)
	}
	assertCash(t, next, "39")
	if !sum.TotalCosts().Equal(dec("1")) {
		t.Fatalf("unexpected total costs %s", sum.TotalCosts())
	}
}

func TestAdvanceQuarterGameOver(t *testing.T) {
	s := setQuarter(freshState(), 4, 3)
	next, sum := advance(s)
	if sum.GameOver || next.Operation.IsGameOver {
		t.Fatalf("game continues through the final year")
	}
	next, sum = advance(next)
	if !sum.GameOver || !next.Operation.IsGameOver || next.Operation.CurrentYear != 5 {
		t.Fatalf("expected game over after the final year, got %+v", next.Operation)
	}
}

func TestAdvanceQuarterCompletesRD(t *testing.T) {
	s := freshState()
	s.Production.ProductRD[domain.ProductP2] = domain.ProductRD{Progress: 5, TotalInvestment: dec("6")}
	s.Production.ProductRD[domain.ProductP3] = domain.ProductRD{Progress: 1, TotalInvestment: dec("6")}
	next, sum := advance(s)
	p2 := next.Production.ProductRD[domain.ProductP2]
	if !p2.Completed || p2.Progress != 6 {
		t.Fatalf("expected P2 completed, got %+v", p2)
	}
	if p3 := next.Production.ProductRD[domain.ProductP3]; p3.Completed || p3.Progress != 2 {
		t.Fatalf("expected P3 in progress, got %+v", p3)
	}
	if p4 := next.Production.ProductRD[domain.ProductP4]; p4.Progress != 0 {
		t.Fatalf("unfunded product must not progress, got %+v", p4)
	}
	if len(sum.CompletedRD) != 1 || sum.CompletedRD[0] != domain.ProductP2 {
		t.Fatalf("unexpected completed list %v", sum.CompletedRD)
	}
	if !sum.RDInvestment.IsZero() {
		t.Fatalf("R&D is paid at investment time")
	}
	found := false
	for _, l := range next.Operation.OperationLogs {
		if l.Kind == domain.LogRDCompleted && strings.HasPrefix(l.DataChange, "P2 completed") {
			found = true
		}
	}
	if !found {
		t.Fatalf("expected an rd_completed log")
	}
}

func TestAdvanceQuarterReceivesMaterials(t *testing.T) {
	s, _ := apply(t, freshState(), func(tx *Transaction) error {
		if _, err := tx.PlaceRawMaterialOrder(domain.MaterialR1, 3); err != nil {
			return err
		}
		_, err := tx.PlaceRawMaterialOrder(domain.MaterialR3, 1)
		return err
	})
	next, sum := advance(s)
	if r1, _ := next.RawMaterial(domain.MaterialR1); r1.Quantity != 3 {
		t.Fatalf("expected R1 to arrive, got %d", r1.Quantity)
	}
	if sum.MaterialsArrived[domain.MaterialR1] != 3 || len(next.Logistics.RawMaterialOrders) != 1 {
		t.Fatalf("expected one order left open, got %+v", next.Logistics.RawMaterialOrders)
	}
	next, _ = advance(next)
	if r3, _ := next.RawMaterial(domain.MaterialR3); r3.Quantity != 1 || len(next.Logistics.RawMaterialOrders) != 0 {
		t.Fatalf("expected R3 to arrive in Q3, got %d", r3.Quantity)
	}
}

func TestAdvanceQuarterProduces(t *testing.T) {
	s := setStock(freshState(), domain.MaterialR1, 5)
	next, sum := advance(s)
	if sum.UnitsProduced != 0 {
		t.Fatalf("lines start with nothing in progress, got %d units", sum.UnitsProduced)
	}
	if l := lineByID(t, next, "line-1"); l.InProgressProducts != 1 || l.Status != domain.LineRunning {
		t.Fatalf("expected a unit loaded, got %+v", l)
	}
	next, sum = advance(next)
	if sum.UnitsProduced != 2 || sum.Produced[domain.ProductP1] != 2 {
		t.Fatalf("expected two units, got %+v", sum)
	}
	p1, _ := next.FinishedProduct(domain.ProductP1)
	r1, _ := next.RawMaterial(domain.MaterialR1)
	if p1.Quantity != 2 || r1.Quantity != 3 {
		t.Fatalf("unexpected stock P1=%d R1=%d", p1.Quantity, r1.Quantity)
	}
}

func TestProductionPeriodCadence(t *testing.T) {
	var manual domain.ProductionLine
	s, _ := apply(t, setStock(freshState(), domain.MaterialR1, 50), func(tx *Transaction) error {
		var err error
		manual, err = tx.AddProductionLine("factory-1", domain.LineManual, domain.ProductP1)
		return err
	})
	produced := 0
	for q := 2; q <= 4; q++ {
		var sum QuarterSummary
		s, sum = advance(s)
		produced += sum.UnitsProduced
		line := lineByID(t, s, manual.ID)
		if q < 3 && line.InProgressProducts != 1 {
			t.Fatalf("Q%d: manual line should still be working", q)
		}
	}
	// The automatic lines deliver in Q3 and Q4, the manual line only in Q3.
	if produced != 5 {
		t.Fatalf("expected 5 units over Q2..Q4, got %d", produced)
	}
}

func TestAdvanceQuarterStopsAndResumesLines(t *testing.T) {
	next, sum := advance(freshState())
	if len(sum.StoppedLines) != 2 || lineByID(t, next, "line-1").Status != domain.LineStopped {
		t.Fatalf("lines without materials should stop, got %+v", sum.StoppedLines)
	}
	if lastOperationLog(next).Kind != domain.LogProductionStopped || lastOperationLog(next).Operator != domain.OperatorSystem {
		t.Fatalf("expected a system production_stopped log")
	}

	next = setStock(next, domain.MaterialR1, 1)
	next, sum = advance(next)
	if len(sum.ResumedLines) != 2 {
		t.Fatalf("both lines see stock and resume, got %v", sum.ResumedLines)
	}
	if sum.UnitsProduced != 1 {
		t.Fatalf("only one unit can be built, got %d", sum.UnitsProduced)
	}
	if len(sum.StoppedLines) != 2 {
		t.Fatalf("stock is exhausted again, got %v", sum.StoppedLines)
	}
}

func TestAdvanceQuarterInstallsAndConverts(t *testing.T) {
	var semi domain.ProductionLine
	s, _ := apply(t, setStock(freshState(), domain.MaterialR1, 100), func(tx *Transaction) error {
		var err error
		semi, err = tx.AddProductionLine("factory-1", domain.LineSemiAutomatic, domain.ProductP1)
		if err != nil {
			return err
		}
		if err := tx.CancelProduction("line-2"); err != nil {
			return err
		}
		return tx.ConvertProductionLine("line-2", domain.ProductP2)
	})
	s, _ = advance(s)
	if l := lineByID(t, s, semi.ID); l.Status != domain.LineInstalling || l.InstallationProgress != 1 {
		t.Fatalf("expected installation in progress, got %+v", l)
	}
	if l := lineByID(t, s, "line-2"); l.Status != domain.LineConverting || l.ConversionProgress != 1 {
		t.Fatalf("expected conversion in progress, got %+v", l)
	}
	s, _ = advance(s)
	if l := lineByID(t, s, semi.ID); l.Status != domain.LineRunning || l.InProgressProducts != 1 {
		t.Fatalf("expected installed line running, got %+v", l)
	}
	if l := lineByID(t, s, "line-2"); l.Product != domain.ProductP2 || l.InProgressProducts != 1 {
		t.Fatalf("expected converted line loaded with P2, got %+v", l)
	}
}

func TestAdvanceQuarterDevelopsMarketsAndISO(t *testing.T) {
	s, _ := apply(t, freshState(), func(tx *Transaction) error {
		if err := tx.InvestMarketDevelopment(domain.MarketRegional); err != nil {
			return err
		}
		return tx.InvestISOCertification(domain.ISO9000)
	})
	s = advanceN(s, 3)
	if c, _ := s.ISOCertification(domain.ISO9000); c.Status != domain.ISOCertified {
		t.Fatalf("ISO9000 should certify after 3 quarters, got %+v", c)
	}
	if m, _ := s.Market(domain.MarketRegional); m.Status != domain.MarketDeveloping || m.DevelopmentProgress != 3 {
		t.Fatalf("regional market still developing, got %+v", m)
	}
	s = advanceN(s, 1)
	if m, _ := s.Market(domain.MarketRegional); m.Status != domain.MarketAvailable || m.DevelopmentProgress != 4 {
		t.Fatalf("regional market should open with 4 quarters of progress, got %+v", m)
	}
}

func TestArrivalPastQuarterFourNeverArrives(t *testing.T) {
	s, _ := apply(t, setQuarter(freshState(), 1, 3), func(tx *Transaction) error {
		_, err := tx.PlaceRawMaterialOrder(domain.MaterialR4, 1)
		return err
	})
	s = advanceN(s, 4)
	if len(s.Logistics.RawMaterialOrders) != 1 {
		t.Fatalf("order due in Q5 should stay open, got %+v", s.Logistics.RawMaterialOrders)
	}
}

func TestEngineStatusChangesAreLegal(t *testing.T) {
	lines := []struct{ from, to domain.LineStatus }{
		{domain.LineInstalling, domain.LineRunning},
		{domain.LineConverting, domain.LineRunning},
		{domain.LineStopped, domain.LineRunning},
		{domain.LineRunning, domain.LineStopped},
	}
	for _, c := range lines {
		if !c.from.CanTransition(c.to) {
			t.Fatalf("line %s -> %s should be legal", c.from, c.to)
		}
	}
	if !domain.MarketDeveloping.CanTransition(domain.MarketAvailable) {
		t.Fatalf("market developing -> available should be legal")
	}
	if !domain.ISOCertifying.CanTransition(domain.ISOCertified) {
		t.Fatalf("iso certifying -> certified should be legal")
	}
}

func TestEngineWarnsOnRefusedTransition(t *testing.T) {
	tx := newTransaction(freshState(), domain.DefaultRulebook(), domain.OperatorSystem, testNow)
	line := &domain.ProductionLine{ID: "line-x", Status: domain.LineSelling}
	tx.startLine(line)
	if line.Status != domain.LineSelling || line.InProgressProducts != 0 {
		t.Fatalf("refused line should be left alone, got %+v", line)
	}
	if len(tx.notes.Violations) != 1 {
		t.Fatalf("expected one warning, got %+v", tx.notes.Violations)
	}
	v := tx.notes.Violations[0]
	if v.Rule != RuleEngineTransition || v.Severity != SeverityWarn || v.EntityID != "line-x" {
		t.Fatalf("unexpected warning %+v", v)
	}
	if !strings.Contains(v.Message, "selling -> running") {
		t.Fatalf("warning should name the refused change, got %q", v.Message)
	}
}
