package core

import (
	"context"
	"fmt"

	"erpsim/pkg/domain"
)

// NewLoanCapRule blocks loan balances that leave the [0, max] band or are not
// whole increments.
func NewLoanCapRule() domain.Rule {
	return loanCapRule{}
}

type loanCapRule struct{}

func (loanCapRule) Name() string { return "loan_cap" }

func (loanCapRule) Evaluate(_ context.Context, view domain.RuleView, _ []domain.Change) (domain.Result, error) {
	state := view.State()
	rb := view.Rulebook()
	res := domain.Result{}
	check := func(id string, loan domain.Loan) {
		var problem string
		switch {
		case loan.Amount.IsNegative():
			problem = "is negative"
		case loan.Amount.GreaterThan(loan.MaxAmount):
			problem = fmt.Sprintf("exceeds cap %s", loan.MaxAmount.StringFixed(2))
		case rb.LoanIncrement.IsPositive() && !loan.Amount.Mod(rb.LoanIncrement).IsZero():
			problem = fmt.Sprintf("is not a multiple of %s", rb.LoanIncrement.String())
		default:
			return
		}
		res.Violations = append(res.Violations, domain.Violation{
			Rule:     "loan_cap",
			Severity: domain.SeverityBlock,
			Message:  fmt.Sprintf("%s loan balance %s %s", id, loan.Amount.StringFixed(2), problem),
			Entity:   domain.EntityLoan,
			EntityID: id,
		})
	}
	check("long_term", state.Finance.LongTermLoan)
	check("short_term", state.Finance.ShortTermLoan)
	return res, nil
}
