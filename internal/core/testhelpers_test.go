package core

import (
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"erpsim/pkg/domain"
)

var testNow = time.Date(2024, 1, 15, 10, 0, 0, 0, time.UTC)

const testOperator = "Acme manager"

func freshState() EnterpriseState {
	return domain.NewEnterpriseState(domain.DefaultRulebook(), "Acme", testNow)
}

func dec(v string) decimal.Decimal { return decimal.RequireFromString(v) }

// apply runs fn against state with the default rulebook and fails the test on error.
func apply(t *testing.T, state EnterpriseState, fn func(tx *Transaction) error) (EnterpriseState, Result) {
	t.Helper()
	next, res, err := Apply(state, domain.DefaultRulebook(), testOperator, testNow, fn)
	if err != nil {
		t.Fatalf("apply: %v", err)
	}
	return next, res
}

// expectReject runs fn and asserts it is rejected with rule, leaving state untouched.
func expectReject(t *testing.T, state EnterpriseState, rule string, fn func(tx *Transaction) error) {
	t.Helper()
	next, res, err := Apply(state, domain.DefaultRulebook(), testOperator, testNow, fn)
	var rv RuleViolationError
	if !errors.As(err, &rv) {
		t.Fatalf("expected rule violation %s, got %v", rule, err)
	}
	if !res.Has(rule) || !rv.Result.Has(rule) {
		t.Fatalf("expected rule %s, got %+v", rule, rv.Result.Violations)
	}
	if !next.Finance.Cash.Equal(state.Finance.Cash) || len(next.Operation.OperationLogs) != len(state.Operation.OperationLogs) {
		t.Fatalf("rejected operation must not change state")
	}
}

func expectNotFound(t *testing.T, state EnterpriseState, fn func(tx *Transaction) error) {
	t.Helper()
	_, _, err := Apply(state, domain.DefaultRulebook(), testOperator, testNow, fn)
	var nf ErrNotFound
	if !errors.As(err, &nf) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func assertCash(t *testing.T, state EnterpriseState, want string) {
	t.Helper()
	if !state.Finance.Cash.Equal(dec(want)) {
		t.Fatalf("expected cash %s, got %s", want, state.Finance.Cash)
	}
}

func setQuarter(state EnterpriseState, year, quarter int) EnterpriseState {
	state.Operation.CurrentYear = year
	state.Operation.CurrentQuarter = quarter
	return state
}

func setStock(state EnterpriseState, material domain.MaterialCode, qty int) EnterpriseState {
	state = state.Clone()
	m, _ := state.RawMaterial(material)
	m.Quantity = qty
	return state
}

func lineByID(t *testing.T, state EnterpriseState, id string) domain.ProductionLine {
	t.Helper()
	line, _, ok := state.Line(id)
	if !ok {
		t.Fatalf("line %s not found", id)
	}
	return *line
}

func lastOperationLog(state EnterpriseState) domain.OperationLog {
	return state.Operation.OperationLogs[0]
}
