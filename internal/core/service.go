package core

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strconv"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	blobcore "erpsim/internal/blob/core"
	"erpsim/pkg/domain"
)

// DefaultEnterpriseName is used when no enterprise name is configured.
const DefaultEnterpriseName = "Enterprise 1"

// ArchivePrefix is the blob key prefix of exported save files.
const ArchivePrefix = "saves/"

// Archive stores exported save files.
type Archive = blobcore.Store

// ErrNoSaveStore is returned by save operations when no SaveStore is configured.
var ErrNoSaveStore = errors.New("no save store configured")

// ErrNoArchive is returned by export and import when no Archive is configured.
var ErrNoArchive = errors.New("no save archive configured")

// Service is the session facade: it owns the live state, the reset counter
// and the save slots, and wraps every operation with tracing, metrics,
// audit and logging.
type Service struct {
	store *MemoryStore
	opts  serviceOptions

	mu         sync.Mutex
	resetCount int
	// highest reset number issued this session; loading a save never lowers it
	maxReset int

	autosaves sync.WaitGroup
}

// NewService constructs a service backed by the supplied store.
func NewService(store *MemoryStore, opts ...ServiceOption) *Service {
	options := defaultServiceOptions()
	for _, opt := range opts {
		opt(&options)
	}
	store.setClock(options.clock.Now)
	return &Service{store: store, opts: options}
}

// NewInMemoryService creates a service and a fresh in-memory store with the
// given rules engine. WithRulebook and WithEnterpriseName shape the store.
func NewInMemoryService(engine *RulesEngine, opts ...ServiceOption) *Service {
	options := defaultServiceOptions()
	for _, opt := range opts {
		opt(&options)
	}
	rb := domain.DefaultRulebook()
	if options.rulebook != nil {
		rb = *options.rulebook
	}
	store := NewMemoryStore(engine, rb, options.enterprise)
	store.setClock(options.clock.Now)
	store.Replace(domain.NewEnterpriseState(rb, options.enterprise, options.clock.Now()))
	return &Service{store: store, opts: options}
}

// Store returns the underlying state store.
func (s *Service) Store() *MemoryStore { return s.store }

// State returns a deep copy of the live state.
func (s *Service) State() EnterpriseState { return s.store.Snapshot() }

// Rulebook returns the tables in force.
func (s *Service) Rulebook() Rulebook { return s.store.Rulebook() }

// Enterprise returns the enterprise being played.
func (s *Service) Enterprise() string { return s.store.Enterprise() }

// ResetCount returns how many times the session has been reset.
func (s *Service) ResetCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.resetCount
}

type operationMeta struct {
	entity EntityType
	action Action
}

var operationMetadata = map[string]operationMeta{
	"apply_long_term_loan":      {domain.EntityLoan, ActionUpdate},
	"apply_short_term_loan":     {domain.EntityLoan, ActionUpdate},
	"place_raw_material_order":  {domain.EntityMaterialOrder, ActionCreate},
	"cancel_raw_material_order": {domain.EntityMaterialOrder, ActionDelete},
	"add_production_line":       {domain.EntityProductionLine, ActionCreate},
	"remove_production_line":    {domain.EntityProductionLine, ActionDelete},
	"cancel_production":         {domain.EntityProductionLine, ActionUpdate},
	"start_production":          {domain.EntityProductionLine, ActionUpdate},
	"convert_production_line":   {domain.EntityProductionLine, ActionUpdate},
	"invest_product_rd":         {domain.EntityProductRD, ActionUpdate},
	"place_advertisement":       {domain.EntityAdvertisement, ActionCreate},
	"invest_market_development": {domain.EntityMarket, ActionUpdate},
	"invest_iso_certification":  {domain.EntityISOCertification, ActionUpdate},
	"add_available_order":       {domain.EntityOrder, ActionCreate},
	"remove_available_order":    {domain.EntityOrder, ActionDelete},
	"move_order_to_selected":    {domain.EntityOrder, ActionUpdate},
	"select_order":              {domain.EntityOrder, ActionUpdate},
	"deliver_order":             {domain.EntityOrder, ActionUpdate},
	"set_annual_plan":           {domain.EntityOperation, ActionUpdate},
	"add_operation_log":         {domain.EntityOperation, ActionCreate},
	"advance_quarter":           {domain.EntityOperation, ActionUpdate},
	"save_game":                 {domain.EntitySave, ActionCreate},
	"load_game":                 {domain.EntitySave, ActionUpdate},
	"reset_game":                {domain.EntityOperation, ActionUpdate},
	"delete_save":               {domain.EntitySave, ActionDelete},
	"export_save":               {domain.EntitySave, ActionUpdate},
	"import_save":               {domain.EntitySave, ActionCreate},
}

// run executes fn in a transaction and reports the outcome to the tracer,
// metrics, audit trail and logger. fn returns the id of the entity it touched.
func (s *Service) run(ctx context.Context, op string, fn func(tx *Transaction) (string, error)) (Result, error) {
	ctx, span := s.opts.tracer.Start(ctx, op)
	started := time.Now()
	var entityID string
	res, err := s.store.RunInTransaction(ctx, func(tx *Transaction) error {
		id, err := fn(tx)
		entityID = id
		return err
	})
	s.finish(ctx, op, entityID, span, started, res, err)
	return res, err
}

// observe reports an operation that does not go through a transaction.
func (s *Service) observe(ctx context.Context, op string, fn func(ctx context.Context) (string, error)) error {
	ctx, span := s.opts.tracer.Start(ctx, op)
	started := time.Now()
	entityID, err := fn(ctx)
	s.finish(ctx, op, entityID, span, started, Result{}, err)
	return err
}

func (s *Service) finish(ctx context.Context, op, entityID string, span TraceSpan, started time.Time, res Result, err error) {
	duration := time.Since(started)
	span.End(err)
	s.opts.metrics.Observe(ctx, op, err == nil, duration)
	if err != nil {
		s.recordAuditError(ctx, op, entityID, duration, err)
		var rv RuleViolationError
		var nf ErrNotFound
		switch {
		case errors.As(err, &rv), errors.As(err, &nf), errors.Is(err, domain.ErrSaveNotFound):
			s.opts.logger.Info("operation rejected", "operation", op, "entity_id", entityID, "error", err)
		default:
			s.opts.logger.Error("operation failed", "operation", op, "entity_id", entityID, "error", err)
		}
		return
	}
	s.recordAuditSuccess(ctx, op, entityID, duration)
	for _, v := range res.Violations {
		s.opts.logger.Warn("rule warning", "operation", op, "rule", v.Rule, "entity", v.Entity, "entity_id", v.EntityID, "message", v.Message)
	}
	s.opts.logger.Debug("operation committed", "operation", op, "entity_id", entityID, "duration", duration)
}

func (s *Service) recordAuditSuccess(ctx context.Context, op, entityID string, duration time.Duration) {
	s.recordAudit(ctx, op, entityID, AuditStatusSuccess, "", duration)
}

func (s *Service) recordAuditError(ctx context.Context, op, entityID string, duration time.Duration, err error) {
	s.recordAudit(ctx, op, entityID, AuditStatusError, err.Error(), duration)
}

func (s *Service) recordAudit(ctx context.Context, op, entityID string, status AuditStatus, msg string, duration time.Duration) {
	meta, ok := operationMetadata[op]
	if !ok {
		return
	}
	s.opts.audit.Record(ctx, AuditEntry{
		Operation: op,
		Entity:    meta.entity,
		Action:    meta.action,
		EntityID:  entityID,
		Status:    status,
		Error:     msg,
		Duration:  duration,
		Timestamp: s.opts.clock.Now(),
	})
}

// ApplyLongTermLoan draws one long-term loan increment.
func (s *Service) ApplyLongTermLoan(ctx context.Context) (Result, error) {
	return s.run(ctx, "apply_long_term_loan", func(tx *Transaction) (string, error) {
		return "long_term", tx.ApplyLongTermLoan()
	})
}

// ApplyShortTermLoan draws one short-term loan increment.
func (s *Service) ApplyShortTermLoan(ctx context.Context) (Result, error) {
	return s.run(ctx, "apply_short_term_loan", func(tx *Transaction) (string, error) {
		return "short_term", tx.ApplyShortTermLoan()
	})
}

// PlaceRawMaterialOrder buys raw material for later delivery.
func (s *Service) PlaceRawMaterialOrder(ctx context.Context, material domain.MaterialCode, quantity int) (domain.RawMaterialOrder, Result, error) {
	var placed domain.RawMaterialOrder
	res, err := s.run(ctx, "place_raw_material_order", func(tx *Transaction) (string, error) {
		var err error
		placed, err = tx.PlaceRawMaterialOrder(material, quantity)
		return placed.ID, err
	})
	return placed, res, err
}

// CancelRawMaterialOrder withdraws a pending order and refunds it.
func (s *Service) CancelRawMaterialOrder(ctx context.Context, id string) (Result, error) {
	return s.run(ctx, "cancel_raw_material_order", func(tx *Transaction) (string, error) {
		return id, tx.CancelRawMaterialOrder(id)
	})
}

// AddProductionLine buys a line for a factory.
func (s *Service) AddProductionLine(ctx context.Context, factoryID string, lineType domain.LineType, product domain.ProductCode) (domain.ProductionLine, Result, error) {
	var added domain.ProductionLine
	res, err := s.run(ctx, "add_production_line", func(tx *Transaction) (string, error) {
		var err error
		added, err = tx.AddProductionLine(factoryID, lineType, product)
		return added.ID, err
	})
	return added, res, err
}

// RemoveProductionLine sells a line for its salvage value.
func (s *Service) RemoveProductionLine(ctx context.Context, factoryID, lineID string) (Result, error) {
	return s.run(ctx, "remove_production_line", func(tx *Transaction) (string, error) {
		return lineID, tx.RemoveProductionLine(factoryID, lineID)
	})
}

// CancelProduction idles a line.
func (s *Service) CancelProduction(ctx context.Context, lineID string) (Result, error) {
	return s.run(ctx, "cancel_production", func(tx *Transaction) (string, error) {
		return lineID, tx.CancelProduction(lineID)
	})
}

// StartProduction starts a line. A material shortage commits the attempt log
// and shows up as an insufficient_materials warning in the result.
func (s *Service) StartProduction(ctx context.Context, lineID string) (Result, error) {
	return s.run(ctx, "start_production", func(tx *Transaction) (string, error) {
		return lineID, tx.StartProduction(lineID)
	})
}

// ConvertProductionLine retools an idle line for another product.
func (s *Service) ConvertProductionLine(ctx context.Context, lineID string, product domain.ProductCode) (Result, error) {
	return s.run(ctx, "convert_production_line", func(tx *Transaction) (string, error) {
		return lineID, tx.ConvertProductionLine(lineID, product)
	})
}

// InvestProductRD funds development of a product.
func (s *Service) InvestProductRD(ctx context.Context, product domain.ProductCode, amount decimal.Decimal) (Result, error) {
	return s.run(ctx, "invest_product_rd", func(tx *Transaction) (string, error) {
		return string(product), tx.InvestProductRD(product, amount)
	})
}

// PlaceAdvertisement buys an advertisement.
func (s *Service) PlaceAdvertisement(ctx context.Context, amount decimal.Decimal) (domain.Advertisement, Result, error) {
	var ad domain.Advertisement
	res, err := s.run(ctx, "place_advertisement", func(tx *Transaction) (string, error) {
		var err error
		ad, err = tx.PlaceAdvertisement(amount)
		return ad.ID, err
	})
	return ad, res, err
}

// InvestMarketDevelopment starts developing a market.
func (s *Service) InvestMarketDevelopment(ctx context.Context, market domain.MarketType) (Result, error) {
	return s.run(ctx, "invest_market_development", func(tx *Transaction) (string, error) {
		return string(market), tx.InvestMarketDevelopment(market)
	})
}

// InvestISOCertification starts a certification.
func (s *Service) InvestISOCertification(ctx context.Context, iso domain.ISOType) (Result, error) {
	return s.run(ctx, "invest_iso_certification", func(tx *Transaction) (string, error) {
		return string(iso), tx.InvestISOCertification(iso)
	})
}

// AddAvailableOrder publishes a customer order.
func (s *Service) AddAvailableOrder(ctx context.Context, order domain.Order) (domain.Order, Result, error) {
	var added domain.Order
	res, err := s.run(ctx, "add_available_order", func(tx *Transaction) (string, error) {
		var err error
		added, err = tx.AddAvailableOrder(order)
		return added.ID, err
	})
	return added, res, err
}

// RemoveAvailableOrder withdraws a published order.
func (s *Service) RemoveAvailableOrder(ctx context.Context, id string) (Result, error) {
	return s.run(ctx, "remove_available_order", func(tx *Transaction) (string, error) {
		return id, tx.RemoveAvailableOrder(id)
	})
}

// MoveOrderToSelected moves an available order to the selected list.
func (s *Service) MoveOrderToSelected(ctx context.Context, id string) (Result, error) {
	return s.run(ctx, "move_order_to_selected", func(tx *Transaction) (string, error) {
		return id, tx.MoveOrderToSelected(id)
	})
}

// SelectOrder marks an available order selected and copies it to the selected list.
func (s *Service) SelectOrder(ctx context.Context, id string) (Result, error) {
	return s.run(ctx, "select_order", func(tx *Transaction) (string, error) {
		return id, tx.SelectOrder(id)
	})
}

// DeliverOrder ships a selected order.
func (s *Service) DeliverOrder(ctx context.Context, id string) (Result, error) {
	return s.run(ctx, "deliver_order", func(tx *Transaction) (string, error) {
		return id, tx.DeliverOrder(id)
	})
}

// SetAnnualPlan replaces the annual plan.
func (s *Service) SetAnnualPlan(ctx context.Context, plan domain.AnnualPlan) (Result, error) {
	return s.run(ctx, "set_annual_plan", func(tx *Transaction) (string, error) {
		tx.SetAnnualPlan(plan)
		return "annual_plan", nil
	})
}

// AddOperationLog appends a free-form note to the operation log.
func (s *Service) AddOperationLog(ctx context.Context, action, change string) (Result, error) {
	return s.run(ctx, "add_operation_log", func(tx *Transaction) (string, error) {
		tx.AddOperationLog(action, change)
		return action, nil
	})
}

// AdvanceQuarter runs the quarter engine against the live state. With
// auto-save enabled the committed state is written to a new save slot in the
// background; WaitAutoSaves blocks until those writes finish.
func (s *Service) AdvanceQuarter(ctx context.Context) (QuarterSummary, Result, error) {
	var (
		summary  QuarterSummary
		cash     decimal.Decimal
		snapshot *domain.SaveFile
	)
	res, err := s.run(ctx, "advance_quarter", func(tx *Transaction) (string, error) {
		if tx.state.Operation.IsGameOver {
			return "", domain.Reject(domain.RejectGameOver, domain.EntityOperation, "clock", "the final year is over")
		}
		summary = tx.AdvanceQuarter()
		cash = tx.state.Finance.Cash
		period := fmt.Sprintf("Y%dQ%d", summary.Year, summary.Quarter)
		if s.opts.autoSave && s.opts.saves != nil {
			save := s.newSave(tx, domain.SavePrefixAuto)
			snapshot = &save
			tx.logOperationAs(domain.OperatorSystem, domain.LogSaveAuto, "auto save",
				fmt.Sprintf("saved %s as %s", period, save.Name))
		}
		return period, nil
	})
	if err != nil {
		return QuarterSummary{}, res, err
	}
	s.opts.logger.Info("quarter advanced",
		"year", summary.Year,
		"quarter", summary.Quarter,
		"cash_change", summary.CashChange.String(),
		"units_produced", summary.UnitsProduced,
		"tax", summary.Tax.String(),
		"game_over", summary.GameOver,
	)
	if qo, ok := s.opts.metrics.(QuarterObserver); ok {
		qo.ObserveQuarter(ctx, summary, cash.InexactFloat64())
	}
	if snapshot != nil {
		s.autoSave(ctx, *snapshot)
	}
	return summary, res, nil
}

func (s *Service) autoSave(ctx context.Context, save domain.SaveFile) {
	ctx = context.WithoutCancel(ctx)
	s.autosaves.Add(1)
	go func() {
		defer s.autosaves.Done()
		if err := s.opts.saves.PutSave(ctx, save); err != nil {
			s.opts.logger.Warn("auto save failed", "save_id", save.ID, "error", err)
			return
		}
		s.opts.logger.Debug("auto save written", "save_id", save.ID, "name", save.Name)
	}()
}

// WaitAutoSaves blocks until every pending background save has finished.
func (s *Service) WaitAutoSaves() { s.autosaves.Wait() }

// newSave snapshots the transaction state into a save file. It must run
// before the save's own log entry is added.
func (s *Service) newSave(tx *Transaction, prefix string) domain.SaveFile {
	enterprise := s.store.enterpriseLocked()
	resets := s.ResetCount()
	return domain.SaveFile{
		ID:             prefix + uuid.NewString(),
		Name:           domain.SaveName(enterprise, tx.now, resets),
		EnterpriseName: enterprise,
		Timestamp:      tx.now.UnixMilli(),
		ResetCount:     resets,
		State:          tx.State(),
		CreatedAt:      tx.now.Format(domain.SaveCreatedAtLayout),
	}
}

// SaveGame writes the live state to a new manual save slot.
func (s *Service) SaveGame(ctx context.Context) (domain.SaveFile, error) {
	var saved domain.SaveFile
	_, err := s.run(ctx, "save_game", func(tx *Transaction) (string, error) {
		if s.opts.saves == nil {
			return "", ErrNoSaveStore
		}
		save := s.newSave(tx, domain.SavePrefixManual)
		if err := s.opts.saves.PutSave(ctx, save); err != nil {
			return save.ID, fmt.Errorf("put save: %w", err)
		}
		tx.logOperation(domain.LogSaveManual, "save game", fmt.Sprintf("saved as %s", save.Name))
		saved = save
		return save.ID, nil
	})
	return saved, err
}

// LoadGame replaces the live state with the one stored in a save slot and
// restores the slot's enterprise name and reset count.
func (s *Service) LoadGame(ctx context.Context, id string) (domain.SaveFile, error) {
	var loaded domain.SaveFile
	_, err := s.run(ctx, "load_game", func(tx *Transaction) (string, error) {
		if s.opts.saves == nil {
			return id, ErrNoSaveStore
		}
		save, err := s.opts.saves.GetSave(ctx, id)
		if err != nil {
			return id, fmt.Errorf("get save %s: %w", id, err)
		}
		tx.state = save.State.Clone()
		tx.operator = domain.Manager(save.EnterpriseName)
		tx.recordChange(domain.EntitySave, ActionUpdate, id)
		tx.logOperation(domain.LogSaveLoaded, "load game", fmt.Sprintf("loaded %s", save.Name))
		loaded = save
		return id, nil
	})
	if err != nil {
		return domain.SaveFile{}, err
	}
	s.store.setEnterprise(loaded.EnterpriseName)
	s.mu.Lock()
	s.resetCount = loaded.ResetCount
	s.maxReset = max(s.maxReset, loaded.ResetCount)
	s.mu.Unlock()
	return loaded, nil
}

// ResetGame starts the enterprise over from the opening position and bumps
// the reset counter. The new number is above every reset number seen this
// session, including those restored by LoadGame.
func (s *Service) ResetGame(ctx context.Context) error {
	s.mu.Lock()
	next := max(s.resetCount, s.maxReset) + 1
	s.mu.Unlock()
	_, err := s.run(ctx, "reset_game", func(tx *Transaction) (string, error) {
		tx.state = domain.NewEnterpriseState(tx.rulebook, s.store.enterpriseLocked(), tx.now)
		tx.recordChange(domain.EntityOperation, ActionUpdate, "reset")
		tx.logOperation(domain.LogGameReset, "reset game", "reset #"+strconv.Itoa(next))
		return strconv.Itoa(next), nil
	})
	if err != nil {
		return err
	}
	s.mu.Lock()
	s.resetCount = next
	s.maxReset = max(s.maxReset, next)
	s.mu.Unlock()
	return nil
}

// ListSaves returns every save slot, newest first.
func (s *Service) ListSaves(ctx context.Context) ([]domain.SaveFile, error) {
	if s.opts.saves == nil {
		return nil, ErrNoSaveStore
	}
	saves, err := s.opts.saves.ListSaves(ctx)
	if err != nil {
		return nil, fmt.Errorf("list saves: %w", err)
	}
	return saves, nil
}

// DeleteSave removes a save slot.
func (s *Service) DeleteSave(ctx context.Context, id string) error {
	return s.observe(ctx, "delete_save", func(ctx context.Context) (string, error) {
		if s.opts.saves == nil {
			return id, ErrNoSaveStore
		}
		return id, s.opts.saves.DeleteSave(ctx, id)
	})
}

// ArchiveKey returns the blob key a save is exported under.
func ArchiveKey(id string) string { return ArchivePrefix + id + ".json" }

// ExportSave copies a save slot into the archive as JSON.
func (s *Service) ExportSave(ctx context.Context, id string) (blobcore.Info, error) {
	var info blobcore.Info
	err := s.observe(ctx, "export_save", func(ctx context.Context) (string, error) {
		if s.opts.saves == nil {
			return id, ErrNoSaveStore
		}
		if s.opts.archive == nil {
			return id, ErrNoArchive
		}
		save, err := s.opts.saves.GetSave(ctx, id)
		if err != nil {
			return id, fmt.Errorf("get save %s: %w", id, err)
		}
		payload, err := json.MarshalIndent(save, "", "  ")
		if err != nil {
			return id, fmt.Errorf("encode save: %w", err)
		}
		info, err = s.opts.archive.Put(ctx, ArchiveKey(id), bytes.NewReader(payload), blobcore.PutOptions{
			ContentType: "application/json",
			Metadata: map[string]string{
				"enterprise":  save.EnterpriseName,
				"reset-count": strconv.Itoa(save.ResetCount),
			},
		})
		if err != nil {
			return id, fmt.Errorf("archive save: %w", err)
		}
		return id, nil
	})
	return info, err
}

// ImportSave reads an exported save from the archive and stores it as a slot.
func (s *Service) ImportSave(ctx context.Context, key string) (domain.SaveFile, error) {
	var imported domain.SaveFile
	err := s.observe(ctx, "import_save", func(ctx context.Context) (string, error) {
		if s.opts.saves == nil {
			return key, ErrNoSaveStore
		}
		if s.opts.archive == nil {
			return key, ErrNoArchive
		}
		_, body, err := s.opts.archive.Get(ctx, key)
		if err != nil {
			return key, fmt.Errorf("read archive %s: %w", key, err)
		}
		defer func() { _ = body.Close() }()
		data, err := io.ReadAll(body)
		if err != nil {
			return key, fmt.Errorf("read archive %s: %w", key, err)
		}
		var save domain.SaveFile
		if err := json.Unmarshal(data, &save); err != nil {
			return key, fmt.Errorf("decode save: %w", err)
		}
		if save.ID == "" {
			return key, fmt.Errorf("archive %s holds a save without id", key)
		}
		if err := s.opts.saves.PutSave(ctx, save); err != nil {
			return save.ID, fmt.Errorf("put save: %w", err)
		}
		imported = save
		return save.ID, nil
	})
	return imported, err
}

// ArchivedSaves lists the exported saves in the archive.
func (s *Service) ArchivedSaves(ctx context.Context) ([]blobcore.Info, error) {
	if s.opts.archive == nil {
		return nil, ErrNoArchive
	}
	return s.opts.archive.List(ctx, ArchivePrefix)
}

// ArchiveURL returns a time-limited download link for an exported save.
// Backends without signing return blobcore.ErrUnsupported.
func (s *Service) ArchiveURL(ctx context.Context, id string, expiry time.Duration) (string, error) {
	if s.opts.archive == nil {
		return "", ErrNoArchive
	}
	return s.opts.archive.PresignURL(ctx, ArchiveKey(id), blobcore.SignedURLOptions{Expiry: expiry})
}
