package core

import (
	"context"
	"fmt"

	"erpsim/pkg/domain"
)

// NewLineTypeLimitRule blocks enterprises holding more lines of one type
// than the rulebook allows.
func NewLineTypeLimitRule() domain.Rule {
	return lineTypeLimitRule{}
}

type lineTypeLimitRule struct{}

func (lineTypeLimitRule) Name() string { return "line_type_limit" }

func (lineTypeLimitRule) Evaluate(_ context.Context, view domain.RuleView, _ []domain.Change) (domain.Result, error) {
	state := view.State()
	limit := view.Rulebook().LineLimit
	res := domain.Result{}
	for _, t := range domain.LineTypes {
		allowed := limit
		if override, ok := state.ProductionLineLimits[t]; ok {
			allowed = override
		}
		if count := state.CountLines(t); count > allowed {
			res.Violations = append(res.Violations, domain.Violation{
				Rule:     "line_type_limit",
				Severity: domain.SeverityBlock,
				Message:  fmt.Sprintf("%d %s lines exceed limit %d", count, t, allowed),
				Entity:   domain.EntityProductionLine,
				EntityID: string(t),
			})
		}
	}
	return res, nil
}

// NewFactoryCapacityRule blocks factories holding more lines than their capacity.
func NewFactoryCapacityRule() domain.Rule {
	return factoryCapacityRule{}
}

type factoryCapacityRule struct{}

func (factoryCapacityRule) Name() string { return "factory_capacity" }

func (factoryCapacityRule) Evaluate(_ context.Context, view domain.RuleView, _ []domain.Change) (domain.Result, error) {
	res := domain.Result{}
	for _, f := range view.State().Production.Factories {
		if n := len(f.ProductionLines); n > f.Capacity {
			res.Violations = append(res.Violations, domain.Violation{
				Rule:     "factory_capacity",
				Severity: domain.SeverityBlock,
				Message:  fmt.Sprintf("factory %s (%s) over capacity: %d/%d lines", f.Name, f.ID, n, f.Capacity),
				Entity:   domain.EntityFactory,
				EntityID: f.ID,
			})
		}
	}
	return res, nil
}
