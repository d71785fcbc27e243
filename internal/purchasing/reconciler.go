package purchasing

import (
	"context"
	"fmt"
	"time"

	"production_queue/internal/model"
	"production_queue/internal/queue"
	rediskey "production_queue/pkg/redis"

	rd "github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

// POReader loads purchase orders by id.
type POReader interface {
	PurchaseOrdersByID(ctx context.Context, ids []string) (map[string]model.PurchaseOrder, error)
}

// Reconciler releases created-set entries whose PO is closed or gone, so the
// ingredient can be ordered again.
type Reconciler struct {
	repo     POReader
	rdb      *rd.Client
	outbox   Outbox
	interval time.Duration
	log      zerolog.Logger
}

func NewReconciler(repo POReader, rdb *rd.Client, outbox Outbox, interval time.Duration, log zerolog.Logger) *Reconciler {
	return &Reconciler{
		repo:     repo,
		rdb:      rdb,
		outbox:   outbox,
		interval: interval,
		log:      log.With().Str("component", "po_reconciler").Logger(),
	}
}

// ReconcileResult lists the ingredients released by one pass.
type ReconcileResult struct {
	Checked  int      `json:"checked"`
	Released []string `json:"released"`
}

// Run reconciles once immediately and then on every tick until ctx ends.
func (r *Reconciler) Run(ctx context.Context) {
	r.pass(ctx)
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			r.pass(ctx)
		}
	}
}

func (r *Reconciler) pass(ctx context.Context) {
	res, err := r.ReconcileOnce(ctx)
	if err != nil {
		if ctx.Err() == nil {
			r.log.Warn().Err(err).Msg("reconcile pass failed")
		}
		return
	}
	if len(res.Released) > 0 {
		r.log.Info().Int("checked", res.Checked).Strs("released", res.Released).Msg("reconciled purchase orders")
	}
}

// ReconcileOnce performs one pass. Entries are matched by PO id and the
// item's ingredient id.
func (r *Reconciler) ReconcileOnce(ctx context.Context) (ReconcileResult, error) {
	res := ReconcileResult{Released: []string{}}
	entries, err := rediskey.CreatedPOs(ctx, r.rdb)
	if err != nil {
		return res, fmt.Errorf("load created purchase orders: %w", err)
	}
	res.Checked = len(entries)
	if len(entries) == 0 {
		return res, nil
	}

	ids := make([]string, 0, len(entries))
	for _, e := range entries {
		ids = append(ids, e.POID)
	}
	pos, err := r.repo.PurchaseOrdersByID(ctx, ids)
	if err != nil {
		return res, err
	}

	for _, e := range entries {
		po, found := pos[e.POID]
		if found && !closedFor(po, e.IngredientID) {
			continue
		}
		removed, err := rediskey.UnmarkPOCreated(ctx, r.rdb, e)
		if err != nil {
			return res, fmt.Errorf("release %s: %w", e.IngredientID, err)
		}
		if !removed {
			continue
		}
		res.Released = append(res.Released, e.IngredientID)
		if !found {
			r.log.Info().Str("ingredient_id", e.IngredientID).Str("po_id", e.POID).Msg("purchase order missing, released")
			continue
		}
		r.emit(ctx, po, e.IngredientID)
	}
	return res, nil
}

// closedFor reports whether po no longer covers ingredientID: it was
// cancelled or has been received.
func closedFor(po model.PurchaseOrder, ingredientID string) bool {
	if po.Status != model.POCancelled && po.Status != model.POReceived {
		return false
	}
	for _, it := range po.Items {
		if it.IngredientID == ingredientID {
			return true
		}
	}
	return false
}

func (r *Reconciler) emit(ctx context.Context, po model.PurchaseOrder, ingredientID string) {
	if r.outbox == nil {
		return
	}
	ev := queue.POEvent{
		Type:         queue.EventPOReconciled,
		POID:         po.ID,
		PONumber:     po.PONumber,
		VendorID:     po.VendorID,
		IngredientID: ingredientID,
		Status:       po.Status,
		Amount:       po.TotalAmount,
	}
	for _, it := range po.Items {
		if it.IngredientID == ingredientID {
			ev.Quantity = it.Quantity
		}
	}
	if _, err := r.outbox.Append(ctx, ev); err != nil {
		r.log.Warn().Err(err).Str("po_number", po.PONumber).Msg("append reconcile event")
	}
}
