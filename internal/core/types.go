package core

import "erpsim/pkg/domain"

type (
	EntityType         = domain.EntityType
	Severity           = domain.Severity
	EnterpriseState    = domain.EnterpriseState
	Rulebook           = domain.Rulebook
	SaveFile           = domain.SaveFile
	SaveStore          = domain.SaveStore
	Change             = domain.Change
	Action             = domain.Action
	Violation          = domain.Violation
	Result             = domain.Result
	RuleViolationError = domain.RuleViolationError
	Rule               = domain.Rule
	RulesEngine        = domain.RulesEngine
)

const (
	SeverityBlock = domain.SeverityBlock
	SeverityWarn  = domain.SeverityWarn
	SeverityLog   = domain.SeverityLog
)

const (
	ActionCreate = domain.ActionCreate
	ActionUpdate = domain.ActionUpdate
	ActionDelete = domain.ActionDelete
)
