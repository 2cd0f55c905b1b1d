package core

import (
	"context"
	"fmt"

	"erpsim/pkg/domain"
)

// NewNegativeCashRule reports a negative cash balance without blocking the commit.
func NewNegativeCashRule() domain.Rule {
	return negativeCashRule{}
}

type negativeCashRule struct{}

func (negativeCashRule) Name() string { return "negative_cash" }

func (negativeCashRule) Evaluate(_ context.Context, view domain.RuleView, _ []domain.Change) (domain.Result, error) {
	cash := view.State().Finance.Cash
	if !cash.IsNegative() {
		return domain.Result{}, nil
	}
	return domain.Result{Violations: []domain.Violation{{
		Rule:     "negative_cash",
		Severity: domain.SeverityWarn,
		Message:  fmt.Sprintf("cash balance is %s", cash.StringFixed(2)),
		Entity:   domain.EntityFinance,
		EntityID: "cash",
	}}}, nil
}

// NewNegativeInventoryRule reports raw material or finished product stock below zero.
func NewNegativeInventoryRule() domain.Rule {
	return negativeInventoryRule{}
}

type negativeInventoryRule struct{}

func (negativeInventoryRule) Name() string { return "negative_inventory" }

func (negativeInventoryRule) Evaluate(_ context.Context, view domain.RuleView, _ []domain.Change) (domain.Result, error) {
	state := view.State()
	res := domain.Result{}
	for _, m := range state.Logistics.RawMaterials {
		if m.Quantity < 0 {
			res.Violations = append(res.Violations, domain.Violation{
				Rule:     "negative_inventory",
				Severity: domain.SeverityWarn,
				Message:  fmt.Sprintf("raw material %s stock is %d", m.Type, m.Quantity),
				Entity:   domain.EntityRawMaterial,
				EntityID: string(m.Type),
			})
		}
	}
	for _, p := range state.Logistics.FinishedProducts {
		if p.Quantity < 0 {
			res.Violations = append(res.Violations, domain.Violation{
				Rule:     "negative_inventory",
				Severity: domain.SeverityWarn,
				Message:  fmt.Sprintf("finished product %s stock is %d", p.Type, p.Quantity),
				Entity:   domain.EntityFinishedProduct,
				EntityID: string(p.Type),
			})
		}
	}
	return res, nil
}

// NewStrandedMaterialOrderRule reports a newly placed order whose arrival
// quarter lies past quarter 4. Arrivals match the quarter of the year, so
// such orders never arrive. Orders already on the books are not reported
// again by later transactions.
func NewStrandedMaterialOrderRule() domain.Rule {
	return strandedMaterialOrderRule{}
}

type strandedMaterialOrderRule struct{}

func (strandedMaterialOrderRule) Name() string { return "stranded_material_order" }

func (strandedMaterialOrderRule) Evaluate(_ context.Context, view domain.RuleView, changes []domain.Change) (domain.Result, error) {
	placed := map[string]bool{}
	for _, c := range changes {
		if c.Entity == domain.EntityMaterialOrder && c.Action == domain.ActionCreate {
			placed[c.EntityID] = true
		}
	}
	res := domain.Result{}
	if len(placed) == 0 {
		return res, nil
	}
	for _, o := range view.State().Logistics.RawMaterialOrders {
		if !placed[o.ID] || o.ArrivalPeriod <= 4 {
			continue
		}
		res.Violations = append(res.Violations, domain.Violation{
			Rule:     "stranded_material_order",
			Severity: domain.SeverityWarn,
			Message:  fmt.Sprintf("order %s of %d %s is due in Q%d and will not arrive", o.ID, o.Quantity, o.MaterialType, o.ArrivalPeriod),
			Entity:   domain.EntityMaterialOrder,
			EntityID: o.ID,
		})
	}
	return res, nil
}
