// Package purchasing raises purchase orders for ingredient shortfalls and
// keeps the set of already-raised POs in step with their supplier status.
package purchasing

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"production_queue/internal/apperr"
	"production_queue/internal/model"
	"production_queue/internal/production"
	"production_queue/internal/queue"
	"production_queue/internal/store"
	rediskey "production_queue/pkg/redis"

	rd "github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

// Repository is the persistence the service needs.
type Repository interface {
	Ingredient(ctx context.Context, id string) (model.Ingredient, error)
	VendorByName(ctx context.Context, name string) (model.Vendor, error)
	ActivePOFor(ctx context.Context, vendorID, ingredientID string) (*model.PurchaseOrder, error)
	CreatePurchaseOrder(ctx context.Context, in store.NewPurchaseOrder) (model.PurchaseOrder, bool, error)
	PurchaseOrdersByID(ctx context.Context, ids []string) (map[string]model.PurchaseOrder, error)
	ActiveOrderLines(ctx context.Context, statuses []model.OrderStatus) ([]production.Line, error)
	PlanInputs(ctx context.Context, lines []production.Line) (map[string][]production.RecipeLine, map[string]production.Stock, error)
}

// Outbox receives PO events for asynchronous delivery.
type Outbox interface {
	Append(ctx context.Context, ev queue.POEvent) (queue.POEvent, error)
}

// Service is the purchase order trigger.
type Service struct {
	repo    Repository
	rdb     *rd.Client
	outbox  Outbox
	lockTTL time.Duration
	opts    production.Options
	log     zerolog.Logger
}

func NewService(repo Repository, rdb *rd.Client, outbox Outbox, lockTTL time.Duration, opts production.Options, log zerolog.Logger) *Service {
	return &Service{
		repo:    repo,
		rdb:     rdb,
		outbox:  outbox,
		lockTTL: lockTTL,
		opts:    opts,
		log:     log.With().Str("component", "po_trigger").Logger(),
	}
}

// CreateRequest asks for a PO covering one ingredient. VendorName defaults
// to the ingredient's supplier; Quantity (display units) defaults to the
// suggested quantity of the ingredient's current requirement.
type CreateRequest struct {
	IngredientID  string
	VendorName    string
	Quantity      decimal.NullDecimal
	SourceOrderID *string
}

// CreateResult reports the PO covering the ingredient. AlreadyExists is set
// when an active PO was found and no new one was written.
type CreateResult struct {
	PurchaseOrder model.PurchaseOrder
	Vendor        model.Vendor
	Quantity      decimal.Decimal
	AlreadyExists bool
}

// CreateForShortfall raises a draft PO unless an active one already covers
// the vendor and ingredient.
func (s *Service) CreateForShortfall(ctx context.Context, req CreateRequest) (CreateResult, error) {
	var res CreateResult
	if strings.TrimSpace(req.IngredientID) == "" {
		return res, apperr.Validationf("ingredient_id is required")
	}

	ing, err := s.repo.Ingredient(ctx, req.IngredientID)
	if err != nil {
		return res, err
	}

	vendorName := strings.TrimSpace(req.VendorName)
	if vendorName == "" {
		if ing.Vendor == nil {
			return res, apperr.Validationf("ingredient %s has no supplier; vendor_name is required", ing.Name)
		}
		vendorName = ing.Vendor.Name
	}
	vendor, err := s.repo.VendorByName(ctx, vendorName)
	if err != nil {
		return res, err
	}
	res.Vendor = vendor

	quantity, err := s.quantity(ctx, ing, req.Quantity)
	if err != nil {
		return res, err
	}
	res.Quantity = quantity

	lock, err := rediskey.AcquirePOLock(ctx, s.rdb, vendor.ID, ing.ID, s.lockTTL)
	if err != nil {
		if errors.Is(err, rediskey.ErrLockHeld) {
			return res, apperr.New(apperr.Conflict, "purchase order creation already in progress").
				WithDetails(map[string]string{"ingredient_id": ing.ID, "vendor_id": vendor.ID})
		}
		return res, fmt.Errorf("acquire po lock: %w", err)
	}
	defer func() {
		// the lock expires on its own if release fails
		if err := lock.Release(context.WithoutCancel(ctx)); err != nil {
			s.log.Warn().Err(err).Str("ingredient_id", ing.ID).Msg("release po lock")
		}
	}()

	existing, err := s.repo.ActivePOFor(ctx, vendor.ID, ing.ID)
	if err != nil {
		return res, err
	}
	if existing != nil {
		res.PurchaseOrder = *existing
		res.AlreadyExists = true
		s.markCreated(ctx, vendor.ID, ing.ID, existing.ID)
		s.log.Info().Str("po_number", existing.PONumber).Str("ingredient_id", ing.ID).Msg("active purchase order already exists")
		return res, nil
	}

	po, created, err := s.repo.CreatePurchaseOrder(ctx, store.NewPurchaseOrder{
		VendorID:      vendor.ID,
		IngredientID:  ing.ID,
		Quantity:      quantity,
		Notes:         fmt.Sprintf("Auto-generated for ingredient shortfall: %s", ing.Name),
		SourceOrderID: req.SourceOrderID,
	})
	if err != nil {
		return res, err
	}
	res.PurchaseOrder = po
	res.AlreadyExists = !created
	s.markCreated(ctx, vendor.ID, ing.ID, po.ID)
	if !created {
		return res, nil
	}

	s.log.Info().
		Str("po_number", po.PONumber).
		Str("vendor", vendor.Name).
		Str("ingredient_id", ing.ID).
		Str("quantity", quantity.String()).
		Msg("purchase order created")

	s.emit(ctx, queue.POEvent{
		Type:         queue.EventPOCreated,
		POID:         po.ID,
		PONumber:     po.PONumber,
		VendorID:     vendor.ID,
		IngredientID: ing.ID,
		Status:       po.Status,
		Quantity:     quantity,
		Amount:       po.TotalAmount,
	})
	return res, nil
}

func (s *Service) quantity(ctx context.Context, ing model.Ingredient, custom decimal.NullDecimal) (decimal.Decimal, error) {
	if custom.Valid {
		if !custom.Decimal.IsPositive() {
			return decimal.Zero, apperr.Validationf("quantity must be > 0")
		}
		return custom.Decimal, nil
	}

	lines, err := s.repo.ActiveOrderLines(ctx, model.ActiveOrderStatuses)
	if err != nil {
		return decimal.Zero, err
	}
	recipes, stock, err := s.repo.PlanInputs(ctx, lines)
	if err != nil {
		return decimal.Zero, err
	}
	for _, r := range production.Aggregate(lines, recipes, stock, s.opts) {
		if r.IngredientID == ing.ID {
			return production.SuggestedOrderQuantity(r), nil
		}
	}
	return decimal.Zero, apperr.Validationf("no open demand for %s; quantity is required", ing.Name)
}

// markCreated is best effort: the PO row is the source of truth and the
// next duplicate check still finds it.
func (s *Service) markCreated(ctx context.Context, vendorID, ingredientID, poID string) {
	if err := rediskey.MarkPOCreated(ctx, s.rdb, vendorID, ingredientID, poID); err != nil {
		s.log.Warn().Err(err).Str("ingredient_id", ingredientID).Msg("record created purchase order")
	}
}

func (s *Service) emit(ctx context.Context, ev queue.POEvent) {
	if s.outbox == nil {
		return
	}
	if _, err := s.outbox.Append(ctx, ev); err != nil {
		s.log.Warn().Err(err).Str("po_number", ev.PONumber).Str("type", ev.Type).Msg("append po event")
	}
}

// Created returns the created set by ingredient: ingredient id -> PO id.
// When several vendors cover one ingredient the first entry by vendor id wins.
func (s *Service) Created(ctx context.Context) (map[string]string, error) {
	entries, err := rediskey.CreatedPOs(ctx, s.rdb)
	if err != nil {
		return nil, fmt.Errorf("load created purchase orders: %w", err)
	}
	set := make(map[string]string, len(entries))
	for _, e := range entries {
		if _, ok := set[e.IngredientID]; !ok {
			set[e.IngredientID] = e.POID
		}
	}
	return set, nil
}
