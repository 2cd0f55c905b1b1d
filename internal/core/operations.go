package core

import (
	"fmt"
	"slices"

	"github.com/shopspring/decimal"

	"erpsim/pkg/domain"
)

func money(v decimal.Decimal) string { return v.String() + "M" }

// ApplyLongTermLoan draws one increment of the long-term facility. It is only
// open in the rulebook's long-term quarters and never exceeds the loan cap.
func (tx *Transaction) ApplyLongTermLoan() error {
	return tx.applyLoan(&tx.state.Finance.LongTermLoan, tx.rulebook.LongTermLoanAllowed(tx.state.Operation.CurrentQuarter), domain.LogLongTermLoan, "long-term")
}

// ApplyShortTermLoan draws one increment of the short-term facility.
func (tx *Transaction) ApplyShortTermLoan() error {
	return tx.applyLoan(&tx.state.Finance.ShortTermLoan, tx.rulebook.ShortTermLoanAllowed(tx.state.Operation.CurrentQuarter), domain.LogShortTermLoan, "short-term")
}

func (tx *Transaction) applyLoan(loan *domain.Loan, open bool, kind domain.LogKind, label string) error {
	if !open {
		return domain.Reject(domain.RejectLoanQuarter, domain.EntityLoan, label,
			fmt.Sprintf("%s loans are not offered in quarter %d", label, tx.state.Operation.CurrentQuarter))
	}
	inc := tx.rulebook.LoanIncrement
	if loan.Amount.Add(inc).GreaterThan(loan.MaxAmount) {
		return domain.Reject(domain.RejectLoanCap, domain.EntityLoan, label,
			fmt.Sprintf("%s loan already at %s of %s", label, money(loan.Amount), money(loan.MaxAmount)))
	}
	loan.Amount = loan.Amount.Add(inc)
	tx.recordChange(domain.EntityLoan, ActionUpdate, label)
	tx.addCash(kind, inc, fmt.Sprintf("%s loan %s, term %d quarters, rate %s%%",
		label, money(inc), loan.RemainingTerm, loan.InterestRate.Shift(2).String()))
	return nil
}

// PlaceRawMaterialOrder buys quantity units of a raw material. The arrival
// period is the current quarter of the year plus the material's lead time.
func (tx *Transaction) PlaceRawMaterialOrder(material domain.MaterialCode, quantity int) (domain.RawMaterialOrder, error) {
	if quantity <= 0 {
		return domain.RawMaterialOrder{}, domain.Reject(domain.RejectInvalidQuantity, domain.EntityMaterialOrder, string(material), "order quantity must be positive")
	}
	m, ok := tx.state.RawMaterial(material)
	if !ok {
		return domain.RawMaterialOrder{}, ErrNotFound{Entity: domain.EntityRawMaterial, ID: string(material)}
	}
	quarter := tx.state.Operation.CurrentQuarter
	order := domain.RawMaterialOrder{
		ID:            newID("order"),
		MaterialType:  material,
		Quantity:      quantity,
		Price:         m.Price,
		OrderPeriod:   quarter,
		ArrivalPeriod: quarter + m.LeadTime,
	}
	cost := m.Price.Mul(decimal.NewFromInt(int64(quantity)))
	tx.state.Logistics.RawMaterialOrders = append(tx.state.Logistics.RawMaterialOrders, order)
	tx.recordChange(domain.EntityMaterialOrder, ActionCreate, order.ID)
	tx.addCash(domain.LogMaterialOrder, cost.Neg(), fmt.Sprintf("ordered %d %s for %s, arriving Q%d", quantity, material, money(cost), order.ArrivalPeriod))
	tx.logOperation(domain.LogMaterialOrder, "place raw material order", fmt.Sprintf("%d %s, arriving Q%d, total %s", quantity, material, order.ArrivalPeriod, money(cost)))
	return order, nil
}

// CancelRawMaterialOrder removes an open order and refunds it in full.
func (tx *Transaction) CancelRawMaterialOrder(id string) error {
	orders := tx.state.Logistics.RawMaterialOrders
	idx := slices.IndexFunc(orders, func(o domain.RawMaterialOrder) bool { return o.ID == id })
	if idx < 0 {
		return ErrNotFound{Entity: domain.EntityMaterialOrder, ID: id}
	}
	order := orders[idx]
	tx.state.Logistics.RawMaterialOrders = slices.Delete(orders, idx, idx+1)
	refund := order.Price.Mul(decimal.NewFromInt(int64(order.Quantity)))
	tx.recordChange(domain.EntityMaterialOrder, ActionDelete, id)
	tx.addCash(domain.LogMaterialOrderCancel, refund, fmt.Sprintf("cancelled order of %d %s, refunded %s", order.Quantity, order.MaterialType, money(refund)))
	tx.logOperation(domain.LogMaterialOrderCancel, "cancel raw material order", fmt.Sprintf("%d %s, refund %s", order.Quantity, order.MaterialType, money(refund)))
	return nil
}

// AddProductionLine buys a line for a factory. Lines with an installation
// period start installing; the others run immediately with one unit in progress.
func (tx *Transaction) AddProductionLine(factoryID string, lineType domain.LineType, product domain.ProductCode) (domain.ProductionLine, error) {
	f, ok := tx.state.Factory(factoryID)
	if !ok {
		return domain.ProductionLine{}, ErrNotFound{Entity: domain.EntityFactory, ID: factoryID}
	}
	spec, ok := tx.rulebook.LineSpec(lineType)
	if !ok {
		return domain.ProductionLine{}, domain.Reject(domain.RejectUnknownLineType, domain.EntityProductionLine, string(lineType), "unknown line type")
	}
	if !product.Valid() {
		return domain.ProductionLine{}, domain.Reject(domain.RejectInvalidProduct, domain.EntityProductionLine, string(product), "line needs a catalogued product")
	}
	if len(f.ProductionLines) >= f.Capacity {
		return domain.ProductionLine{}, domain.Reject(domain.RejectFactoryCapacity, domain.EntityFactory, f.ID,
			fmt.Sprintf("%s is full (%d lines)", f.Name, f.Capacity))
	}
	if limit := tx.state.ProductionLineLimits[lineType]; tx.state.CountLines(lineType) >= limit {
		return domain.ProductionLine{}, domain.Reject(domain.RejectLineTypeLimit, domain.EntityProductionLine, string(lineType),
			fmt.Sprintf("%s lines limited to %d", lineType, limit))
	}

	name := fmt.Sprintf("%s %s %d", f.Name, spec.Name, len(f.ProductionLines)+1)
	line := domain.NewLine(newID("line"), name, lineType, product, spec)
	f.ProductionLines = append(f.ProductionLines, line)
	tx.recordChange(domain.EntityProductionLine, ActionCreate, line.ID)
	tx.addCash(domain.LogLinePurchase, spec.PurchasePrice.Neg(), fmt.Sprintf("bought %s for %s", spec.Name, money(spec.PurchasePrice)))
	tx.logOperation(domain.LogLinePurchase, "add production line", fmt.Sprintf("added %s for %s in %s, cost %s", spec.Name, product, f.Name, money(spec.PurchasePrice)))
	return line, nil
}

// RemoveProductionLine sells a line for its salvage value.
func (tx *Transaction) RemoveProductionLine(factoryID, lineID string) error {
	f, ok := tx.state.Factory(factoryID)
	if !ok {
		return ErrNotFound{Entity: domain.EntityFactory, ID: factoryID}
	}
	idx := slices.IndexFunc(f.ProductionLines, func(l domain.ProductionLine) bool { return l.ID == lineID })
	if idx < 0 {
		return ErrNotFound{Entity: domain.EntityProductionLine, ID: lineID}
	}
	line := f.ProductionLines[idx]
	f.ProductionLines = slices.Delete(f.ProductionLines, idx, idx+1)
	tx.recordChange(domain.EntityProductionLine, ActionDelete, lineID)
	tx.addCash(domain.LogLineSale, line.SalvageValue, fmt.Sprintf("sold %s, salvage %s", line.Name, money(line.SalvageValue)))
	tx.logOperation(domain.LogLineSale, "remove production line", fmt.Sprintf("removed %s from %s, salvage %s", line.Name, f.Name, money(line.SalvageValue)))
	return nil
}

func (tx *Transaction) line(id string) (*domain.ProductionLine, error) {
	line, _, ok := tx.state.Line(id)
	if !ok {
		return nil, ErrNotFound{Entity: domain.EntityProductionLine, ID: id}
	}
	return line, nil
}

// CancelProduction idles a running or stopped line and discards its work in progress.
func (tx *Transaction) CancelProduction(lineID string) error {
	line, err := tx.line(lineID)
	if err != nil {
		return err
	}
	if err := line.Transition(domain.LineIdle); err != nil {
		return domain.Reject(domain.RejectLineNotRunning, domain.EntityProductionLine, lineID, err.Error())
	}
	line.InProgressProducts = 0
	tx.recordChange(domain.EntityProductionLine, ActionUpdate, lineID)
	tx.logOperation(domain.LogProductionCancel, "cancel production", fmt.Sprintf("stopped %s, product %s", line.Name, productLabel(line.Product)))
	return nil
}

// StartProduction sets an idle or stopped line running with one unit in
// progress when stock covers its bill of materials. A shortage is logged and
// reported as a warning in the transaction result; the line is left untouched.
func (tx *Transaction) StartProduction(lineID string) error {
	line, err := tx.line(lineID)
	if err != nil {
		return err
	}
	switch line.Status {
	case domain.LineIdle, domain.LineStopped, domain.LineRunning:
	default:
		return domain.Reject(domain.RejectLineNotIdle, domain.EntityProductionLine, lineID,
			fmt.Sprintf("%s cannot start while %s", line.Name, line.Status))
	}
	bom := tx.rulebook.BOM(line.Product)
	if !bomSatisfiable(&tx.state, bom) {
		tx.logOperation(domain.LogProductionStartFailed, "start production",
			fmt.Sprintf("tried to start %s for %s but raw materials are short", line.Name, productLabel(line.Product)))
		tx.warn(domain.RejectInsufficientMaterial, domain.EntityProductionLine, lineID, "raw materials do not cover one unit")
		return nil
	}
	if err := line.Transition(domain.LineRunning); err != nil {
		return err
	}
	line.InProgressProducts = 1
	tx.recordChange(domain.EntityProductionLine, ActionUpdate, lineID)
	tx.logOperation(domain.LogProductionStart, "start production",
		fmt.Sprintf("started %s for %s, needs %s", line.Name, line.Product, describeBOM(bom)))
	return nil
}

// ConvertProductionLine retools an idle line for another product.
func (tx *Transaction) ConvertProductionLine(lineID string, product domain.ProductCode) error {
	line, err := tx.line(lineID)
	if err != nil {
		return err
	}
	if !product.Valid() {
		return domain.Reject(domain.RejectInvalidProduct, domain.EntityProductionLine, lineID, "unknown product "+string(product))
	}
	if line.Status != domain.LineIdle {
		return domain.Reject(domain.RejectLineNotIdle, domain.EntityProductionLine, lineID,
			fmt.Sprintf("%s must be idle to convert, is %s", line.Name, line.Status))
	}
	old := line.Product
	if line.ConversionPeriod > 0 {
		if err := line.Transition(domain.LineConverting); err != nil {
			return err
		}
		line.ConversionProgress = 0
	}
	line.Product = product
	tx.recordChange(domain.EntityProductionLine, ActionUpdate, lineID)
	tx.addCash(domain.LogLineConversion, line.ConversionCost.Neg(),
		fmt.Sprintf("converted %s from %s to %s for %s", line.Name, productLabel(old), product, money(line.ConversionCost)))
	tx.logOperation(domain.LogLineConversion, "convert production line",
		fmt.Sprintf("%s from %s to %s, cost %s, %d quarters", line.Name, productLabel(old), product, money(line.ConversionCost), line.ConversionPeriod))
	return nil
}

// InvestProductRD funds development of a product. Each product accepts one
// investment; the engine completes it after the rulebook's R&D duration.
func (tx *Transaction) InvestProductRD(product domain.ProductCode, amount decimal.Decimal) error {
	if product == domain.ProductP1 {
		return domain.Reject(domain.RejectRDBaseProduct, domain.EntityProductRD, string(product), "P1 needs no development")
	}
	rd, ok := tx.state.Production.ProductRD[product]
	if !ok || !product.Valid() {
		return domain.Reject(domain.RejectInvalidProduct, domain.EntityProductRD, string(product), "unknown product")
	}
	if !amount.IsPositive() {
		return domain.Reject(domain.RejectInvalidAmount, domain.EntityProductRD, string(product), "investment must be positive")
	}
	if rd.TotalInvestment.IsPositive() {
		return domain.Reject(domain.RejectRDOneShot, domain.EntityProductRD, string(product),
			fmt.Sprintf("%s already funded with %s", product, money(rd.TotalInvestment)))
	}
	rd.TotalInvestment = amount
	rd.Progress = 0
	tx.state.Production.ProductRD[product] = rd
	tx.recordChange(domain.EntityProductRD, ActionUpdate, string(product))
	tx.addCash(domain.LogRDInvestment, amount.Neg(), fmt.Sprintf("R&D for %s, %s", product, money(amount)))
	tx.logOperation(domain.LogRDInvestment, "invest product R&D",
		fmt.Sprintf("%s funded with %s, %d quarters to complete", product, money(amount), tx.rulebook.RDQuarters))
	return nil
}

// PlaceAdvertisement records an advertising spend over the fixed coverage.
func (tx *Transaction) PlaceAdvertisement(amount decimal.Decimal) (domain.Advertisement, error) {
	if !amount.IsPositive() {
		return domain.Advertisement{}, domain.Reject(domain.RejectInvalidAmount, domain.EntityAdvertisement, "", "advertising spend must be positive")
	}
	ad := domain.Advertisement{
		ID:       newID("ad"),
		Amount:   amount,
		Period:   tx.state.Operation.CurrentQuarter,
		Markets:  slices.Clone(tx.rulebook.AdvertisementMarkets),
		Products: slices.Clone(tx.rulebook.AdvertisementProducts),
	}
	tx.state.Marketing.Advertisements = append(tx.state.Marketing.Advertisements, ad)
	tx.recordChange(domain.EntityAdvertisement, ActionCreate, ad.ID)
	coverage := fmt.Sprintf("markets %v, products %v", ad.Markets, ad.Products)
	tx.addCash(domain.LogAdvertisement, amount.Neg(), fmt.Sprintf("advertising %s, %s", money(amount), coverage))
	tx.logOperation(domain.LogAdvertisement, "place advertisement", fmt.Sprintf("%s covering %s", money(amount), coverage))
	return ad, nil
}

// InvestMarketDevelopment starts developing an unavailable market.
func (tx *Transaction) InvestMarketDevelopment(market domain.MarketType) error {
	m, ok := tx.state.Market(market)
	if !ok {
		return ErrNotFound{Entity: domain.EntityMarket, ID: string(market)}
	}
	if m.Status != domain.MarketUnavailable {
		return domain.Reject(domain.RejectMarketNotUnavailable, domain.EntityMarket, string(market),
			fmt.Sprintf("%s is already %s", m.Name, m.Status))
	}
	spec := tx.rulebook.Markets[market]
	if err := m.Transition(domain.MarketDeveloping); err != nil {
		return err
	}
	m.DevelopmentProgress = 0
	tx.recordChange(domain.EntityMarket, ActionUpdate, string(market))
	tx.addCash(domain.LogMarketInvestment, spec.Cost.Neg(), fmt.Sprintf("developing %s for %s", m.Name, money(spec.Cost)))
	tx.logOperation(domain.LogMarketInvestment, "invest market development",
		fmt.Sprintf("%s, cost %s, %d quarters", m.Name, money(spec.Cost), spec.Quarters))
	return nil
}

// InvestISOCertification starts an uncertified certification.
func (tx *Transaction) InvestISOCertification(iso domain.ISOType) error {
	c, ok := tx.state.ISOCertification(iso)
	if !ok {
		return ErrNotFound{Entity: domain.EntityISOCertification, ID: string(iso)}
	}
	if c.Status != domain.ISOUncertified {
		return domain.Reject(domain.RejectISONotUncertified, domain.EntityISOCertification, string(iso),
			fmt.Sprintf("%s is already %s", c.Name, c.Status))
	}
	spec := tx.rulebook.ISO[iso]
	if err := c.Transition(domain.ISOCertifying); err != nil {
		return err
	}
	c.CertificationProgress = 0
	c.TotalCost = spec.Cost
	tx.recordChange(domain.EntityISOCertification, ActionUpdate, string(iso))
	tx.addCash(domain.LogISOInvestment, spec.Cost.Neg(), fmt.Sprintf("%s certification for %s", iso, money(spec.Cost)))
	tx.logOperation(domain.LogISOInvestment, "invest ISO certification",
		fmt.Sprintf("%s, cost %s, %d quarters", iso, money(spec.Cost), spec.Quarters))
	return nil
}

// AddAvailableOrder offers a customer order. The id and total are assigned here.
func (tx *Transaction) AddAvailableOrder(order domain.Order) (domain.Order, error) {
	if order.Quantity <= 0 {
		return domain.Order{}, domain.Reject(domain.RejectInvalidQuantity, domain.EntityOrder, "", "order quantity must be positive")
	}
	if !order.ProductType.Valid() {
		return domain.Order{}, domain.Reject(domain.RejectInvalidProduct, domain.EntityOrder, "", "unknown product "+string(order.ProductType))
	}
	if order.PaymentPeriod < 1 || order.PaymentPeriod > domain.ReceivableSlots {
		return domain.Order{}, domain.Reject(domain.RejectInvalidPaymentPeriod, domain.EntityOrder, "",
			fmt.Sprintf("payment period %d outside 1..%d", order.PaymentPeriod, domain.ReceivableSlots))
	}
	order.ID = newID("order")
	order.TotalAmount = order.UnitPrice.Mul(decimal.NewFromInt(int64(order.Quantity)))
	order.IsSelected = false
	order.IsDelivered = false
	tx.state.Marketing.AvailableOrders = append(tx.state.Marketing.AvailableOrders, order)
	tx.recordChange(domain.EntityOrder, ActionCreate, order.ID)
	return order, nil
}

func indexOrder(orders []domain.Order, id string) int {
	return slices.IndexFunc(orders, func(o domain.Order) bool { return o.ID == id })
}

// RemoveAvailableOrder drops an offered order.
func (tx *Transaction) RemoveAvailableOrder(id string) error {
	orders := tx.state.Marketing.AvailableOrders
	idx := indexOrder(orders, id)
	if idx < 0 {
		return ErrNotFound{Entity: domain.EntityOrder, ID: id}
	}
	tx.state.Marketing.AvailableOrders = slices.Delete(orders, idx, idx+1)
	tx.recordChange(domain.EntityOrder, ActionDelete, id)
	return nil
}

// MoveOrderToSelected takes an offered order out of the available list and
// appends it to the selected orders.
func (tx *Transaction) MoveOrderToSelected(id string) error {
	mk := &tx.state.Marketing
	idx := indexOrder(mk.AvailableOrders, id)
	if idx < 0 {
		return ErrNotFound{Entity: domain.EntityOrder, ID: id}
	}
	order := mk.AvailableOrders[idx]
	order.IsSelected = true
	mk.AvailableOrders = slices.Delete(mk.AvailableOrders, idx, idx+1)
	mk.SelectedOrders = append(mk.SelectedOrders, order)
	tx.recordChange(domain.EntityOrder, ActionUpdate, id)
	tx.logOperation(domain.LogOrderSelected, "select order", fmt.Sprintf("%d %s for %s", order.Quantity, order.ProductType, money(order.TotalAmount)))
	return nil
}

// SelectOrder marks an offered order selected and appends a copy to the
// selected orders, leaving the offer in place.
func (tx *Transaction) SelectOrder(id string) error {
	mk := &tx.state.Marketing
	idx := indexOrder(mk.AvailableOrders, id)
	if idx < 0 {
		return ErrNotFound{Entity: domain.EntityOrder, ID: id}
	}
	mk.AvailableOrders[idx].IsSelected = true
	mk.SelectedOrders = append(mk.SelectedOrders, mk.AvailableOrders[idx])
	tx.recordChange(domain.EntityOrder, ActionUpdate, id)
	return nil
}

// DeliverOrder ships a selected order. Finished stock is decremented without
// a sufficiency check and the total is booked on the receivables ladder.
func (tx *Transaction) DeliverOrder(id string) error {
	mk := &tx.state.Marketing
	idx := indexOrder(mk.SelectedOrders, id)
	if idx < 0 {
		return ErrNotFound{Entity: domain.EntityOrder, ID: id}
	}
	order := &mk.SelectedOrders[idx]
	if order.IsDelivered {
		return domain.Reject(domain.RejectOrderDelivered, domain.EntityOrder, id, "order already delivered")
	}
	if order.PaymentPeriod < 1 || order.PaymentPeriod > domain.ReceivableSlots {
		return domain.Reject(domain.RejectInvalidPaymentPeriod, domain.EntityOrder, id,
			fmt.Sprintf("payment period %d outside 1..%d", order.PaymentPeriod, domain.ReceivableSlots))
	}
	product, ok := tx.state.FinishedProduct(order.ProductType)
	if !ok {
		return ErrNotFound{Entity: domain.EntityFinishedProduct, ID: string(order.ProductType)}
	}
	product.Quantity -= order.Quantity
	slot := order.PaymentPeriod - 1
	tx.state.Finance.AccountsReceivable[slot] = tx.state.Finance.AccountsReceivable[slot].Add(order.TotalAmount)
	order.IsDelivered = true
	tx.recordChange(domain.EntityOrder, ActionUpdate, id)
	tx.recordChange(domain.EntityFinishedProduct, ActionUpdate, string(order.ProductType))
	tx.logOperation(domain.LogOrderDelivered, "deliver order",
		fmt.Sprintf("delivered %d %s, %s due in %d quarters", order.Quantity, order.ProductType, money(order.TotalAmount), order.PaymentPeriod))
	return nil
}

// SetAnnualPlan replaces the planning notes for the year.
func (tx *Transaction) SetAnnualPlan(plan domain.AnnualPlan) {
	plan.MarketDevelopment = slices.Clone(plan.MarketDevelopment)
	plan.ProductRD = slices.Clone(plan.ProductRD)
	tx.state.Operation.AnnualPlan = plan
	tx.recordChange(domain.EntityOperation, ActionUpdate, "annual_plan")
	tx.logOperation(domain.LogAnnualPlan, "update annual plan", fmt.Sprintf("year %d plan updated", tx.state.Operation.CurrentYear))
}

// AddOperationLog appends a free-form note to the operation log.
func (tx *Transaction) AddOperationLog(action, change string) {
	tx.logOperation(domain.LogNote, action, change)
}
