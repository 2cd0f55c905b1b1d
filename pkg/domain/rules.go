package domain

import (
	"context"
	"strings"
)

// RuleView provides read-only access to the transactional state for rule evaluation.
type RuleView interface {
	State() EnterpriseState
	Rulebook() Rulebook
}

// Change records a single entity modification made inside a transaction.
type Change struct {
	Entity   EntityType
	Action   Action
	EntityID string
}

// Rule defines an evaluation executed within a transaction boundary.
type Rule interface {
	Name() string
	Evaluate(ctx context.Context, view RuleView, changes []Change) (Result, error)
}

// RulesEngine orchestrates rule evaluation.
type RulesEngine struct {
	rules []Rule
}

// NewRulesEngine constructs an engine instance.
func NewRulesEngine() *RulesEngine {
	return &RulesEngine{}
}

// Register appends a rule to the engine.
func (e *RulesEngine) Register(rule Rule) {
	e.rules = append(e.rules, rule)
}

// Rules returns the registered rule names in evaluation order.
func (e *RulesEngine) Rules() []string {
	out := make([]string, 0, len(e.rules))
	for _, r := range e.rules {
		out = append(out, r.Name())
	}
	return out
}

// Evaluate executes all registered rules and aggregates their results.
func (e *RulesEngine) Evaluate(ctx context.Context, view RuleView, changes []Change) (Result, error) {
	var combined Result
	for _, rule := range e.rules {
		res, err := rule.Evaluate(ctx, view, changes)
		if err != nil {
			return Result{}, err
		}
		combined.Merge(res)
	}
	return combined, nil
}

// Violation reports a failed rule evaluation or a rejected operation.
type Violation struct {
	Rule     string
	Severity Severity
	Message  string
	Entity   EntityType
	EntityID string
}

// Result aggregates violations from the rules engine and the operations.
type Result struct {
	Violations []Violation
}

// Merge appends violations from another result.
func (r *Result) Merge(other Result) {
	if len(other.Violations) == 0 {
		return
	}
	r.Violations = append(r.Violations, other.Violations...)
}

// HasBlocking returns true if the result contains blocking violations.
func (r Result) HasBlocking() bool {
	for _, v := range r.Violations {
		if v.Severity == SeverityBlock {
			return true
		}
	}
	return false
}

// Has reports whether a violation with the given rule name is present.
func (r Result) Has(rule string) bool {
	for _, v := range r.Violations {
		if v.Rule == rule {
			return true
		}
	}
	return false
}

// RuleViolationError is returned when blocking violations are present. The
// transaction that produced it was discarded.
type RuleViolationError struct {
	Result Result
}

func (e RuleViolationError) Error() string {
	var names []string
	for _, v := range e.Result.Violations {
		if v.Severity == SeverityBlock {
			names = append(names, v.Rule)
		}
	}
	if len(names) == 0 {
		return "transaction blocked by rules"
	}
	return "transaction blocked by rules: " + strings.Join(names, ", ")
}

// Reject builds a blocking RuleViolationError for a single rejected operation.
func Reject(rule string, entity EntityType, id, message string) RuleViolationError {
	return RuleViolationError{Result: Result{Violations: []Violation{{
		Rule:     rule,
		Severity: SeverityBlock,
		Message:  message,
		Entity:   entity,
		EntityID: id,
	}}}}
}

// Rule names reported when an operation is rejected.
const (
	RejectLoanQuarter          = "loan_quarter"
	RejectLoanCap              = "loan_cap"
	RejectFactoryCapacity      = "factory_capacity"
	RejectLineTypeLimit        = "line_type_limit"
	RejectUnknownLineType      = "unknown_line_type"
	RejectLineNotIdle          = "line_not_idle"
	RejectLineNotRunning       = "line_not_running"
	RejectInvalidProduct       = "invalid_product"
	RejectRDOneShot            = "rd_one_shot"
	RejectRDBaseProduct        = "rd_base_product"
	RejectMarketNotUnavailable = "market_not_unavailable"
	RejectISONotUncertified    = "iso_not_uncertified"
	RejectInsufficientMaterial = "insufficient_materials"
	RejectInvalidQuantity      = "invalid_quantity"
	RejectInvalidAmount        = "invalid_amount"
	RejectInvalidPaymentPeriod = "invalid_payment_period"
	RejectOrderDelivered       = "order_delivered"
	RejectGameOver             = "game_over"
)
