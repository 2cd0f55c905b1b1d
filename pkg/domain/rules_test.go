package domain

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
)

func TestResultMergeAndBlocking(t *testing.T) {
	var result Result
	result.Merge(Result{Violations: []Violation{{Rule: "warn", Severity: SeverityWarn}}})
	if result.HasBlocking() {
		t.Fatalf("expected no blocking violations")
	}
	result.Merge(Result{Violations: []Violation{{Rule: "block", Severity: SeverityBlock}}})
	if !result.HasBlocking() {
		t.Fatalf("expected blocking violation")
	}
	if !result.Has("warn") || result.Has("missing") {
		t.Fatalf("unexpected Has results for %+v", result.Violations)
	}
	err := RuleViolationError{Result: result}
	if got := err.Error(); got != "transaction blocked by rules: block" {
		t.Fatalf("unexpected error string %q", got)
	}
}

func TestResultMergeEmptyInput(t *testing.T) {
	original := Result{Violations: []Violation{{Rule: "existing", Severity: SeverityWarn}}}
	original.Merge(Result{})
	if len(original.Violations) != 1 || original.Violations[0].Rule != "existing" {
		t.Fatalf("expected original violations to remain, got %+v", original.Violations)
	}
}

func TestRuleViolationErrorWithoutBlockingRules(t *testing.T) {
	err := RuleViolationError{Result: Result{Violations: []Violation{{Rule: "w", Severity: SeverityWarn}}}}
	if err.Error() != "transaction blocked by rules" {
		t.Fatalf("unexpected message %q", err.Error())
	}
}

func TestReject(t *testing.T) {
	var err error = Reject(RejectLoanCap, EntityLoan, "long_term", "over the cap")
	var rve RuleViolationError
	if !errors.As(err, &rve) {
		t.Fatalf("expected RuleViolationError, got %T", err)
	}
	v := rve.Result.Violations
	if len(v) != 1 || v[0].Severity != SeverityBlock || v[0].Entity != EntityLoan || v[0].EntityID != "long_term" {
		t.Fatalf("unexpected violation %+v", v)
	}
	if !strings.Contains(err.Error(), RejectLoanCap) {
		t.Fatalf("expected rule name in %q", err.Error())
	}
}

type staticRule struct{ name string }

func (r staticRule) Name() string { return r.name }

func (r staticRule) Evaluate(context.Context, RuleView, []Change) (Result, error) {
	return Result{Violations: []Violation{{Rule: r.name, Severity: SeverityWarn}}}, nil
}

type errorRule struct{}

func (errorRule) Name() string { return "error" }

func (errorRule) Evaluate(context.Context, RuleView, []Change) (Result, error) {
	return Result{}, fmt.Errorf("boom")
}

type stateView struct{ state EnterpriseState }

func (v stateView) State() EnterpriseState { return v.state }
func (v stateView) Rulebook() Rulebook     { return DefaultRulebook() }

func TestRulesEngineEvaluate(t *testing.T) {
	engine := NewRulesEngine()
	engine.Register(staticRule{"a"})
	engine.Register(staticRule{"b"})
	if got := engine.Rules(); len(got) != 2 || got[0] != "a" || got[1] != "b" {
		t.Fatalf("unexpected rule order %v", got)
	}
	res, err := engine.Evaluate(context.Background(), stateView{}, nil)
	if err != nil {
		t.Fatalf("evaluate: %v", err)
	}
	if len(res.Violations) != 2 {
		t.Fatalf("expected two violations, got %+v", res.Violations)
	}
}

func TestRulesEngineEvaluateError(t *testing.T) {
	engine := NewRulesEngine()
	engine.Register(errorRule{})
	if _, err := engine.Evaluate(context.Background(), stateView{}, nil); err == nil {
		t.Fatalf("expected evaluation error")
	}
}
