package core

import (
	"context"
	"fmt"

	"erpsim/pkg/domain"
)

// NewRDProgressBoundsRule blocks R&D progress outside [0, development quarters].
func NewRDProgressBoundsRule() domain.Rule {
	return rdProgressBoundsRule{}
}

type rdProgressBoundsRule struct{}

func (rdProgressBoundsRule) Name() string { return "rd_progress_bounds" }

func (rdProgressBoundsRule) Evaluate(_ context.Context, view domain.RuleView, _ []domain.Change) (domain.Result, error) {
	state := view.State()
	quarters := view.Rulebook().RDQuarters
	res := domain.Result{}
	for _, p := range domain.ProductCodes {
		rd, ok := state.Production.ProductRD[p]
		if !ok || (rd.Progress >= 0 && rd.Progress <= quarters) {
			continue
		}
		res.Violations = append(res.Violations, domain.Violation{
			Rule:     "rd_progress_bounds",
			Severity: domain.SeverityBlock,
			Message:  fmt.Sprintf("%s R&D progress %d outside 0..%d", p, rd.Progress, quarters),
			Entity:   domain.EntityProductRD,
			EntityID: string(p),
		})
	}
	return res, nil
}
