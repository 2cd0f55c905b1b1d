package domain

import "fmt"

// Legal status transitions. Every status change made by the operations or
// the quarter engine goes through one of the Transition helpers below.
var (
	lineTransitions = map[LineStatus][]LineStatus{
		LineInstalling: {LineRunning},
		LineConverting: {LineRunning},
		LineRunning:    {LineIdle, LineStopped},
		LineIdle:       {LineRunning, LineConverting, LineSelling},
		LineStopped:    {LineRunning, LineIdle},
		LineSelling:    nil,
	}
	marketTransitions = map[MarketStatus][]MarketStatus{
		MarketUnavailable: {MarketDeveloping},
		MarketDeveloping:  {MarketAvailable},
		MarketAvailable:   nil,
	}
	isoTransitions = map[ISOStatus][]ISOStatus{
		ISOUncertified: {ISOCertifying},
		ISOCertifying:  {ISOCertified},
		ISOCertified:   nil,
	}
)

// ErrIllegalTransition reports a status change that the state machine forbids.
type ErrIllegalTransition struct {
	Entity EntityType
	From   string
	To     string
}

func (e ErrIllegalTransition) Error() string {
	return fmt.Sprintf("%s: illegal status transition %s -> %s", e.Entity, e.From, e.To)
}

func allowed[S comparable](table map[S][]S, from, to S) bool {
	if from == to {
		return true
	}
	for _, next := range table[from] {
		if next == to {
			return true
		}
	}
	return false
}

// CanTransition reports whether a line may move from s to next.
func (s LineStatus) CanTransition(next LineStatus) bool { return allowed(lineTransitions, s, next) }

// CanTransition reports whether a market may move from s to next.
func (s MarketStatus) CanTransition(next MarketStatus) bool {
	return allowed(marketTransitions, s, next)
}

// CanTransition reports whether a certification may move from s to next.
func (s ISOStatus) CanTransition(next ISOStatus) bool { return allowed(isoTransitions, s, next) }

// Transition moves the line to next when the move is legal.
func (l *ProductionLine) Transition(next LineStatus) error {
	if !l.Status.CanTransition(next) {
		return ErrIllegalTransition{Entity: EntityProductionLine, From: string(l.Status), To: string(next)}
	}
	l.Status = next
	return nil
}

// Transition moves the market to next when the move is legal.
func (m *Market) Transition(next MarketStatus) error {
	if !m.Status.CanTransition(next) {
		return ErrIllegalTransition{Entity: EntityMarket, From: string(m.Status), To: string(next)}
	}
	m.Status = next
	return nil
}

// Transition moves the certification to next when the move is legal.
func (c *ISOCertification) Transition(next ISOStatus) error {
	if !c.Status.CanTransition(next) {
		return ErrIllegalTransition{Entity: EntityISOCertification, From: string(c.Status), To: string(next)}
	}
	c.Status = next
	return nil
}
