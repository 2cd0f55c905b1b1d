package core

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"erpsim/pkg/domain"
)

// ErrNotFound is returned when an operation references an id that does not exist.
type ErrNotFound struct {
	Entity EntityType
	ID     string
}

func (e ErrNotFound) Error() string {
	return fmt.Sprintf("%s %s not found", e.Entity, e.ID)
}

// MemoryStore owns the live enterprise state and applies transactions to it.
type MemoryStore struct {
	mu         sync.RWMutex
	state      domain.EnterpriseState
	rulebook   domain.Rulebook
	engine     *RulesEngine
	nowFn      func() time.Time
	enterprise string
}

// NewMemoryStore constructs a store holding a fresh enterprise state.
func NewMemoryStore(engine *RulesEngine, rb Rulebook, enterprise string) *MemoryStore {
	s := &MemoryStore{
		rulebook:   rb.Clone(),
		engine:     engine,
		nowFn:      func() time.Time { return time.Now().UTC() },
		enterprise: enterprise,
	}
	s.state = domain.NewEnterpriseState(s.rulebook, enterprise, s.nowFn())
	return s
}

// Transaction is a mutation set applied to a private copy of the state. It
// is committed only when the callback returns nil and no blocking rule fires.
type Transaction struct {
	state    domain.EnterpriseState
	rulebook domain.Rulebook
	changes  []Change
	notes    Result
	now      time.Time
	operator string
}

func newTransaction(state EnterpriseState, rb Rulebook, operator string, now time.Time) *Transaction {
	return &Transaction{state: state, rulebook: rb, operator: operator, now: now}
}

// State returns a deep copy of the transaction's working state.
func (tx *Transaction) State() EnterpriseState { return tx.state.Clone() }

// TransactionView exposes a read-only snapshot of the transactional state to rules.
type TransactionView struct {
	state    *domain.EnterpriseState
	rulebook domain.Rulebook
}

func newTransactionView(state *domain.EnterpriseState, rb Rulebook) TransactionView {
	return TransactionView{state: state, rulebook: rb}
}

// State returns a copy of the snapshot.
func (v TransactionView) State() EnterpriseState { return v.state.Clone() }

// Rulebook returns the tables in force.
func (v TransactionView) Rulebook() Rulebook { return v.rulebook }

// RunInTransaction executes fn within a transactional copy of the store state.
// Rejections raised by fn and blocking rule violations discard the copy.
func (s *MemoryStore) RunInTransaction(ctx context.Context, fn func(tx *Transaction) error) (Result, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx := newTransaction(s.state.Clone(), s.rulebook, domain.Manager(s.enterprise), s.nowFn())
	if err := fn(tx); err != nil {
		var rv RuleViolationError
		if errors.As(err, &rv) {
			return rv.Result, err
		}
		return Result{}, err
	}

	result := tx.notes
	if s.engine != nil {
		res, err := s.engine.Evaluate(ctx, newTransactionView(&tx.state, s.rulebook), tx.changes)
		if err != nil {
			return Result{}, err
		}
		result.Merge(res)
		if res.HasBlocking() {
			return result, RuleViolationError{Result: result}
		}
	}

	s.state = tx.state
	return result, nil
}

// View executes fn against a read-only snapshot of the store state.
func (s *MemoryStore) View(_ context.Context, fn func(TransactionView) error) error {
	s.mu.RLock()
	snapshot := s.state.Clone()
	s.mu.RUnlock()
	return fn(newTransactionView(&snapshot, s.rulebook))
}

// Snapshot returns a deep copy of the live state.
func (s *MemoryStore) Snapshot() EnterpriseState {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state.Clone()
}

// Replace swaps the live state wholesale for a deep copy of state.
func (s *MemoryStore) Replace(state EnterpriseState) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state = state.Clone()
}

// Enterprise returns the name of the enterprise being played.
func (s *MemoryStore) Enterprise() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.enterprise
}

// enterpriseLocked is Enterprise for callers running inside a transaction.
func (s *MemoryStore) enterpriseLocked() string { return s.enterprise }

func (s *MemoryStore) setEnterprise(name string) {
	s.mu.Lock()
	s.enterprise = name
	s.mu.Unlock()
}

func (s *MemoryStore) setClock(now func() time.Time) {
	s.mu.Lock()
	s.nowFn = now
	s.mu.Unlock()
}

// Rulebook returns the tables the store was built with.
func (s *MemoryStore) Rulebook() Rulebook { return s.rulebook.Clone() }

// Apply runs fn against a copy of state and returns the resulting state. The
// input is never modified and rules are not evaluated. On error the input is
// returned unchanged together with the rejection, if any.
func Apply(state EnterpriseState, rb Rulebook, operator string, now time.Time, fn func(tx *Transaction) error) (EnterpriseState, Result, error) {
	tx := newTransaction(state.Clone(), rb, operator, now)
	if err := fn(tx); err != nil {
		var rv RuleViolationError
		if errors.As(err, &rv) {
			return state, rv.Result, err
		}
		return state, Result{}, err
	}
	return tx.state, tx.notes, nil
}

func (tx *Transaction) recordChange(entity EntityType, action Action, id string) {
	tx.changes = append(tx.changes, Change{Entity: entity, Action: action, EntityID: id})
}

func (tx *Transaction) warn(rule string, entity EntityType, id, message string) {
	tx.notes.Violations = append(tx.notes.Violations, Violation{
		Rule:     rule,
		Severity: SeverityWarn,
		Message:  message,
		Entity:   entity,
		EntityID: id,
	})
}

func newID(prefix string) string { return prefix + "-" + uuid.NewString() }

// addCash applies delta to cash and writes the ledger entry for it.
func (tx *Transaction) addCash(kind domain.LogKind, delta decimal.Decimal, description string) {
	tx.state.Finance.Cash = tx.state.Finance.Cash.Add(delta)
	tx.recordChange(domain.EntityFinance, ActionUpdate, "cash")
	tx.prependFinancial(domain.FinancialLogRecord{
		ID:          newID("finlog"),
		Kind:        kind,
		Year:        tx.state.Operation.CurrentYear,
		Quarter:     tx.state.Operation.CurrentQuarter,
		Timestamp:   tx.now,
		Description: description,
		CashChange:  delta,
		NewCash:     tx.state.Finance.Cash,
		Operator:    tx.operator,
	})
}

func (tx *Transaction) prependFinancial(records ...domain.FinancialLogRecord) {
	op := &tx.state.Operation
	op.FinancialLogs = append(append(make([]domain.FinancialLogRecord, 0, len(records)+len(op.FinancialLogs)), records...), op.FinancialLogs...)
}

func (tx *Transaction) logOperation(kind domain.LogKind, action, change string) {
	tx.logOperationAs(tx.operator, kind, action, change)
}

func (tx *Transaction) logOperationAs(operator string, kind domain.LogKind, action, change string) {
	op := &tx.state.Operation
	entry := domain.OperationLog{
		ID:         newID("log"),
		Time:       tx.now,
		Operator:   operator,
		Kind:       kind,
		Action:     action,
		DataChange: change,
	}
	op.OperationLogs = append([]domain.OperationLog{entry}, op.OperationLogs...)
	tx.recordChange(domain.EntityOperation, ActionCreate, entry.ID)
}
