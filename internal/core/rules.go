package core

import "erpsim/pkg/domain"

// NewRulesEngine constructs an empty engine instance.
func NewRulesEngine() *RulesEngine {
	return domain.NewRulesEngine()
}

// NewDefaultRulesEngine builds a rules engine with the built-in policy set.
func NewDefaultRulesEngine() *RulesEngine {
	engine := NewRulesEngine()
	engine.Register(NewLoanCapRule())
	engine.Register(NewLineTypeLimitRule())
	engine.Register(NewFactoryCapacityRule())
	engine.Register(NewRDProgressBoundsRule())
	engine.Register(NewNegativeCashRule())
	engine.Register(NewNegativeInventoryRule())
	engine.Register(NewStrandedMaterialOrderRule())
	return engine
}
