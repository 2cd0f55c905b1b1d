package core

import (
	"testing"

	"erpsim/pkg/domain"
)

func TestApplyLongTermLoan(t *testing.T) {
	s := freshState()
	expectReject(t, s, domain.RejectLoanQuarter, func(tx *Transaction) error { return tx.ApplyLongTermLoan() })

	s = setQuarter(s, 1, 4)
	s, _ = apply(t, s, func(tx *Transaction) error { return tx.ApplyLongTermLoan() })
	assertCash(t, s, "60")
	s, _ = apply(t, s, func(tx *Transaction) error { return tx.ApplyLongTermLoan() })
	assertCash(t, s, "80")
	if !s.Finance.LongTermLoan.Amount.Equal(dec("40")) {
		t.Fatalf("expected long-term balance 40, got %s", s.Finance.LongTermLoan.Amount)
	}
	expectReject(t, s, domain.RejectLoanCap, func(tx *Transaction) error { return tx.ApplyLongTermLoan() })

	fin := s.Operation.FinancialLogs[0]
	if fin.Kind != domain.LogLongTermLoan || !fin.CashChange.Equal(dec("20")) || !fin.NewCash.Equal(dec("80")) || fin.Operator != testOperator {
		t.Fatalf("unexpected ledger entry %+v", fin)
	}
}

func TestApplyShortTermLoan(t *testing.T) {
	s := setQuarter(freshState(), 1, 2)
	expectReject(t, s, domain.RejectLoanQuarter, func(tx *Transaction) error { return tx.ApplyShortTermLoan() })
	s = setQuarter(s, 1, 3)
	s, _ = apply(t, s, func(tx *Transaction) error { return tx.ApplyShortTermLoan() })
	assertCash(t, s, "60")
	if !s.Finance.ShortTermLoan.Amount.Equal(dec("20")) || !s.Finance.LongTermLoan.Amount.IsZero() {
		t.Fatalf("unexpected loan balances %+v", s.Finance)
	}
}

func TestLoanQuarterSweep(t *testing.T) {
	cases := []struct {
		name    string
		open    map[int]bool
		draw    func(tx *Transaction) error
		balance func(s EnterpriseState) domain.Loan
	}{
		{"long-term", map[int]bool{4: true},
			func(tx *Transaction) error { return tx.ApplyLongTermLoan() },
			func(s EnterpriseState) domain.Loan { return s.Finance.LongTermLoan }},
		{"short-term", map[int]bool{1: true, 3: true},
			func(tx *Transaction) error { return tx.ApplyShortTermLoan() },
			func(s EnterpriseState) domain.Loan { return s.Finance.ShortTermLoan }},
	}
	for _, c := range cases {
		for quarter := 1; quarter <= 4; quarter++ {
			s := setQuarter(freshState(), 1, quarter)
			if !c.open[quarter] {
				expectReject(t, s, domain.RejectLoanQuarter, c.draw)
				if !c.balance(s).Amount.IsZero() {
					t.Fatalf("%s Q%d: closed quarter changed the balance", c.name, quarter)
				}
				continue
			}
			for _, want := range []string{"20", "40"} {
				s, _ = apply(t, s, c.draw)
				if got := c.balance(s).Amount; !got.Equal(dec(want)) {
					t.Fatalf("%s Q%d: balance %s, want %s", c.name, quarter, got, want)
				}
			}
			expectReject(t, s, domain.RejectLoanCap, c.draw)
			if got := c.balance(s).Amount; got.GreaterThan(dec("40")) {
				t.Fatalf("%s Q%d: balance %s above the 40 cap", c.name, quarter, got)
			}
		}
	}
}

func TestPlaceAndCancelRawMaterialOrder(t *testing.T) {
	s := freshState()
	var order domain.RawMaterialOrder
	s, _ = apply(t, s, func(tx *Transaction) error {
		var err error
		order, err = tx.PlaceRawMaterialOrder(domain.MaterialR3, 2)
		return err
	})
	if order.ArrivalPeriod != 3 || order.OrderPeriod != 1 || order.Quantity != 2 {
		t.Fatalf("unexpected order %+v", order)
	}
	assertCash(t, s, "38")
	if len(s.Logistics.RawMaterialOrders) != 1 || lastOperationLog(s).Kind != domain.LogMaterialOrder {
		t.Fatalf("expected open order and log")
	}

	expectReject(t, s, domain.RejectInvalidQuantity, func(tx *Transaction) error {
		_, err := tx.PlaceRawMaterialOrder(domain.MaterialR1, 0)
		return err
	})
	expectNotFound(t, s, func(tx *Transaction) error {
		_, err := tx.PlaceRawMaterialOrder("R9", 1)
		return err
	})

	s, _ = apply(t, s, func(tx *Transaction) error { return tx.CancelRawMaterialOrder(order.ID) })
	assertCash(t, s, "40")
	if len(s.Logistics.RawMaterialOrders) != 0 {
		t.Fatalf("expected order removed")
	}
	expectNotFound(t, s, func(tx *Transaction) error { return tx.CancelRawMaterialOrder(order.ID) })
}

func TestAddProductionLine(t *testing.T) {
	s := freshState()
	var manual domain.ProductionLine
	s, _ = apply(t, s, func(tx *Transaction) error {
		var err error
		manual, err = tx.AddProductionLine("factory-2", domain.LineManual, domain.ProductP2)
		return err
	})
	if manual.Status != domain.LineRunning || manual.InProgressProducts != 1 || manual.Product != domain.ProductP2 {
		t.Fatalf("manual line should run immediately, got %+v", manual)
	}
	assertCash(t, s, "35")

	var semi domain.ProductionLine
	s, _ = apply(t, s, func(tx *Transaction) error {
		var err error
		semi, err = tx.AddProductionLine("factory-1", domain.LineSemiAutomatic, domain.ProductP1)
		return err
	})
	if semi.Status != domain.LineInstalling || semi.InProgressProducts != 0 {
		t.Fatalf("semi-automatic line should install, got %+v", semi)
	}

	expectReject(t, s, domain.RejectLineTypeLimit, func(tx *Transaction) error {
		_, err := tx.AddProductionLine("factory-1", domain.LineAutomatic, domain.ProductP1)
		return err
	})
	expectReject(t, s, domain.RejectUnknownLineType, func(tx *Transaction) error {
		_, err := tx.AddProductionLine("factory-1", "robotic", domain.ProductP1)
		return err
	})
	expectReject(t, s, domain.RejectInvalidProduct, func(tx *Transaction) error {
		_, err := tx.AddProductionLine("factory-1", domain.LineManual, domain.ProductNone)
		return err
	})
	expectNotFound(t, s, func(tx *Transaction) error {
		_, err := tx.AddProductionLine("factory-9", domain.LineManual, domain.ProductP1)
		return err
	})
}

func TestAddProductionLineFactoryCapacity(t *testing.T) {
	s := freshState()
	s, _ = apply(t, s, func(tx *Transaction) error {
		for _, lt := range []domain.LineType{domain.LineManual, domain.LineManual, domain.LineSemiAutomatic} {
			if _, err := tx.AddProductionLine("factory-2", lt, domain.ProductP1); err != nil {
				return err
			}
		}
		return nil
	})
	expectReject(t, s, domain.RejectFactoryCapacity, func(tx *Transaction) error {
		_, err := tx.AddProductionLine("factory-2", domain.LineSemiAutomatic, domain.ProductP1)
		return err
	})
}

func TestRemoveProductionLine(t *testing.T) {
	s, _ := apply(t, freshState(), func(tx *Transaction) error { return tx.RemoveProductionLine("factory-1", "line-1") })
	assertCash(t, s, "44")
	if _, _, ok := s.Line("line-1"); ok {
		t.Fatalf("expected line removed")
	}
	expectNotFound(t, s, func(tx *Transaction) error { return tx.RemoveProductionLine("factory-1", "line-1") })
	expectNotFound(t, s, func(tx *Transaction) error { return tx.RemoveProductionLine("nowhere", "line-2") })
}

func TestCancelAndStartProduction(t *testing.T) {
	s := setStock(freshState(), domain.MaterialR1, 1)
	s, _ = apply(t, s, func(tx *Transaction) error { return tx.CancelProduction("line-1") })
	if line := lineByID(t, s, "line-1"); line.Status != domain.LineIdle || line.InProgressProducts != 0 {
		t.Fatalf("expected idle line, got %+v", line)
	}
	if lastOperationLog(s).Kind != domain.LogProductionCancel {
		t.Fatalf("expected cancel log")
	}

	s, res := apply(t, s, func(tx *Transaction) error { return tx.StartProduction("line-1") })
	if len(res.Violations) != 0 {
		t.Fatalf("unexpected warnings %+v", res.Violations)
	}
	if line := lineByID(t, s, "line-1"); line.Status != domain.LineRunning || line.InProgressProducts != 1 {
		t.Fatalf("expected running line, got %+v", line)
	}
	expectNotFound(t, s, func(tx *Transaction) error { return tx.StartProduction("line-9") })
}

func TestStartProductionShortOfMaterials(t *testing.T) {
	s, _ := apply(t, freshState(), func(tx *Transaction) error { return tx.CancelProduction("line-2") })
	s, res := apply(t, s, func(tx *Transaction) error { return tx.StartProduction("line-2") })
	if !res.Has(domain.RejectInsufficientMaterial) || res.HasBlocking() {
		t.Fatalf("expected a shortage warning, got %+v", res.Violations)
	}
	if line := lineByID(t, s, "line-2"); line.Status != domain.LineIdle {
		t.Fatalf("line should stay idle, got %s", line.Status)
	}
	if lastOperationLog(s).Kind != domain.LogProductionStartFailed {
		t.Fatalf("expected start-failed log, got %+v", lastOperationLog(s))
	}
}

func TestLifecycleRejections(t *testing.T) {
	s, _ := apply(t, freshState(), func(tx *Transaction) error {
		_, err := tx.AddProductionLine("factory-1", domain.LineSemiAutomatic, domain.ProductP1)
		return err
	})
	installing := s.Production.Factories[0].ProductionLines[1].ID
	expectReject(t, s, domain.RejectLineNotRunning, func(tx *Transaction) error { return tx.CancelProduction(installing) })
	expectReject(t, s, domain.RejectLineNotIdle, func(tx *Transaction) error { return tx.StartProduction(installing) })
	expectReject(t, s, domain.RejectLineNotIdle, func(tx *Transaction) error { return tx.ConvertProductionLine("line-1", domain.ProductP2) })
}

func TestConvertProductionLine(t *testing.T) {
	s, _ := apply(t, freshState(), func(tx *Transaction) error { return tx.CancelProduction("line-1") })
	expectReject(t, s, domain.RejectInvalidProduct, func(tx *Transaction) error { return tx.ConvertProductionLine("line-1", "P7") })
	s, _ = apply(t, s, func(tx *Transaction) error { return tx.ConvertProductionLine("line-1", domain.ProductP2) })
	line := lineByID(t, s, "line-1")
	if line.Status != domain.LineConverting || line.Product != domain.ProductP2 || line.ConversionProgress != 0 {
		t.Fatalf("unexpected converted line %+v", line)
	}
	assertCash(t, s, "36")
}

func TestConvertLineWithoutConversionPeriod(t *testing.T) {
	var manual domain.ProductionLine
	s, _ := apply(t, freshState(), func(tx *Transaction) error {
		var err error
		manual, err = tx.AddProductionLine("factory-1", domain.LineManual, domain.ProductP1)
		if err != nil {
			return err
		}
		if err := tx.CancelProduction(manual.ID); err != nil {
			return err
		}
		return tx.ConvertProductionLine(manual.ID, domain.ProductP3)
	})
	line := lineByID(t, s, manual.ID)
	if line.Status != domain.LineIdle || line.Product != domain.ProductP3 {
		t.Fatalf("manual conversion should be immediate, got %+v", line)
	}
}

func TestInvestProductRD(t *testing.T) {
	s := freshState()
	expectReject(t, s, domain.RejectRDBaseProduct, func(tx *Transaction) error { return tx.InvestProductRD(domain.ProductP1, dec("1")) })
	expectReject(t, s, domain.RejectInvalidProduct, func(tx *Transaction) error { return tx.InvestProductRD("P9", dec("1")) })
	expectReject(t, s, domain.RejectInvalidAmount, func(tx *Transaction) error { return tx.InvestProductRD(domain.ProductP2, dec("0")) })

	s, _ = apply(t, s, func(tx *Transaction) error { return tx.InvestProductRD(domain.ProductP2, dec("6")) })
	assertCash(t, s, "34")
	rd := s.Production.ProductRD[domain.ProductP2]
	if !rd.TotalInvestment.Equal(dec("6")) || rd.Progress != 0 || rd.Completed {
		t.Fatalf("unexpected R&D record %+v", rd)
	}
	expectReject(t, s, domain.RejectRDOneShot, func(tx *Transaction) error { return tx.InvestProductRD(domain.ProductP2, dec("1")) })
}

func TestPlaceAdvertisement(t *testing.T) {
	s := freshState()
	expectReject(t, s, domain.RejectInvalidAmount, func(tx *Transaction) error {
		_, err := tx.PlaceAdvertisement(dec("-1"))
		return err
	})
	var ad domain.Advertisement
	s, _ = apply(t, s, func(tx *Transaction) error {
		var err error
		ad, err = tx.PlaceAdvertisement(dec("3"))
		return err
	})
	assertCash(t, s, "37")
	if len(ad.Markets) != 2 || ad.Markets[0] != domain.MarketLocal || len(ad.Products) != 2 || ad.Period != 1 {
		t.Fatalf("unexpected advertisement %+v", ad)
	}
	if len(s.Marketing.Advertisements) != 1 {
		t.Fatalf("expected advertisement recorded")
	}
}

func TestInvestMarketDevelopment(t *testing.T) {
	s := freshState()
	expectReject(t, s, domain.RejectMarketNotUnavailable, func(tx *Transaction) error { return tx.InvestMarketDevelopment(domain.MarketLocal) })
	expectNotFound(t, s, func(tx *Transaction) error { return tx.InvestMarketDevelopment("lunar") })
	s, _ = apply(t, s, func(tx *Transaction) error { return tx.InvestMarketDevelopment(domain.MarketDomestic) })
	assertCash(t, s, "38")
	m, _ := s.Market(domain.MarketDomestic)
	if m.Status != domain.MarketDeveloping || m.DevelopmentProgress != 0 {
		t.Fatalf("unexpected market %+v", m)
	}
	expectReject(t, s, domain.RejectMarketNotUnavailable, func(tx *Transaction) error { return tx.InvestMarketDevelopment(domain.MarketDomestic) })
}

func TestInvestISOCertification(t *testing.T) {
	s := freshState()
	expectNotFound(t, s, func(tx *Transaction) error { return tx.InvestISOCertification("ISO1") })
	s, _ = apply(t, s, func(tx *Transaction) error { return tx.InvestISOCertification(domain.ISO14000) })
	assertCash(t, s, "36")
	c, _ := s.ISOCertification(domain.ISO14000)
	if c.Status != domain.ISOCertifying || !c.TotalCost.Equal(dec("4")) {
		t.Fatalf("unexpected certification %+v", c)
	}
	expectReject(t, s, domain.RejectISONotUncertified, func(tx *Transaction) error { return tx.InvestISOCertification(domain.ISO14000) })
}

func TestOrderLifecycle(t *testing.T) {
	s := freshState()
	offer := domain.Order{ProductType: domain.ProductP1, Quantity: 3, UnitPrice: dec("5"), PaymentPeriod: 2, Market: domain.MarketLocal}
	for _, tc := range []struct {
		rule  string
		order domain.Order
	}{
		{domain.RejectInvalidQuantity, domain.Order{ProductType: domain.ProductP1, PaymentPeriod: 1}},
		{domain.RejectInvalidProduct, domain.Order{ProductType: "P0", Quantity: 1, PaymentPeriod: 1}},
		{domain.RejectInvalidPaymentPeriod, domain.Order{ProductType: domain.ProductP1, Quantity: 1, PaymentPeriod: 5}},
	} {
		expectReject(t, s, tc.rule, func(tx *Transaction) error {
			_, err := tx.AddAvailableOrder(tc.order)
			return err
		})
	}

	var added domain.Order
	s, _ = apply(t, s, func(tx *Transaction) error {
		var err error
		added, err = tx.AddAvailableOrder(offer)
		return err
	})
	if added.ID == "" || !added.TotalAmount.Equal(dec("15")) || added.IsSelected {
		t.Fatalf("unexpected order %+v", added)
	}

	s, _ = apply(t, s, func(tx *Transaction) error { return tx.MoveOrderToSelected(added.ID) })
	if len(s.Marketing.AvailableOrders) != 0 || len(s.Marketing.SelectedOrders) != 1 || !s.Marketing.SelectedOrders[0].IsSelected {
		t.Fatalf("expected order moved to selected: %+v", s.Marketing)
	}
	expectNotFound(t, s, func(tx *Transaction) error { return tx.MoveOrderToSelected(added.ID) })

	s, _ = apply(t, s, func(tx *Transaction) error { return tx.DeliverOrder(added.ID) })
	p1, _ := s.FinishedProduct(domain.ProductP1)
	if p1.Quantity != -3 {
		t.Fatalf("delivery decrements stock without a check, got %d", p1.Quantity)
	}
	if !s.Finance.AccountsReceivable[1].Equal(dec("15")) || !s.Finance.Cash.Equal(dec("40")) {
		t.Fatalf("expected receivable in slot 1, got %+v", s.Finance.AccountsReceivable)
	}
	expectReject(t, s, domain.RejectOrderDelivered, func(tx *Transaction) error { return tx.DeliverOrder(added.ID) })
	expectNotFound(t, s, func(tx *Transaction) error { return tx.DeliverOrder("order-x") })
}

func TestSelectOrderKeepsOffer(t *testing.T) {
	var added domain.Order
	s, _ := apply(t, freshState(), func(tx *Transaction) error {
		var err error
		added, err = tx.AddAvailableOrder(domain.Order{ProductType: domain.ProductP2, Quantity: 1, UnitPrice: dec("7"), PaymentPeriod: 1})
		if err != nil {
			return err
		}
		return tx.SelectOrder(added.ID)
	})
	if len(s.Marketing.AvailableOrders) != 1 || !s.Marketing.AvailableOrders[0].IsSelected || len(s.Marketing.SelectedOrders) != 1 {
		t.Fatalf("unexpected marketing after select: %+v", s.Marketing)
	}
	s, _ = apply(t, s, func(tx *Transaction) error { return tx.RemoveAvailableOrder(added.ID) })
	if len(s.Marketing.AvailableOrders) != 0 || len(s.Marketing.SelectedOrders) != 1 {
		t.Fatalf("remove should only touch the offers")
	}
	expectNotFound(t, s, func(tx *Transaction) error { return tx.RemoveAvailableOrder(added.ID) })
	expectNotFound(t, s, func(tx *Transaction) error { return tx.SelectOrder(added.ID) })
}

func TestAnnualPlanAndNotes(t *testing.T) {
	plan := domain.AnnualPlan{MarketDevelopment: []domain.MarketType{domain.MarketAsian}, ProductionPlan: "two lines of P2"}
	s, _ := apply(t, freshState(), func(tx *Transaction) error {
		tx.SetAnnualPlan(plan)
		tx.AddOperationLog("review", "checked the books")
		return nil
	})
	plan.MarketDevelopment[0] = domain.MarketLocal
	if got := s.Operation.AnnualPlan; got.ProductionPlan != "two lines of P2" || got.MarketDevelopment[0] != domain.MarketAsian {
		t.Fatalf("plan should be copied, got %+v", got)
	}
	note := lastOperationLog(s)
	if note.Kind != domain.LogNote || note.Action != "review" || note.Operator != testOperator || !note.Time.Equal(testNow) {
		t.Fatalf("unexpected note %+v", note)
	}
	if s.Operation.OperationLogs[1].Kind != domain.LogAnnualPlan {
		t.Fatalf("expected annual plan log before the note")
	}
}

func TestApplyLeavesInputUntouched(t *testing.T) {
	s := freshState()
	_, _ = apply(t, s, func(tx *Transaction) error {
		_, err := tx.PlaceRawMaterialOrder(domain.MaterialR1, 4)
		return err
	})
	if !s.Finance.Cash.Equal(dec("40")) || len(s.Logistics.RawMaterialOrders) != 0 {
		t.Fatalf("Apply mutated its input")
	}
}
