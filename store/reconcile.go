package store

import (
	"context"
	"io"
	"log/slog"
	"time"

	"github.com/MrPsycho237/digimarketstore/gateway"
	"github.com/MrPsycho237/digimarketstore/models"
)

// ReconcileReport summarizes one reconciliation pass.
type ReconcileReport struct {
	OrdersScanned  int `json:"orders_scanned"`
	OrdersRepaired int `json:"orders_repaired"`
	RecordsCreated int `json:"records_created"`
}

// Reconciler re-creates purchase records missing from completed orders, e.g. after
// a checkout whose entitlement insert failed.
type Reconciler struct {
	gw     gateway.Gateway
	logger *slog.Logger
}

func NewReconciler(gw gateway.Gateway, logger *slog.Logger) *Reconciler {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Reconciler{gw: gw, logger: logger}
}

func (r *Reconciler) Run(ctx context.Context) (ReconcileReport, error) {
	var report ReconcileReport

	orders, err := r.gw.Orders().List(ctx, gateway.OrderFilter{Status: models.OrderStatusCompleted})
	if err != nil {
		return report, err
	}

	for _, order := range orders {
		report.OrdersScanned++

		existing, err := r.gw.Purchases().List(ctx, gateway.PurchaseFilter{OrderID: order.ID})
		if err != nil {
			return report, err
		}
		have := make(map[string]bool, len(existing))
		for _, rec := range existing {
			have[rec.ProductID] = true
		}

		var missing []models.PurchaseRecord
		for _, rec := range purchaseRecordsFor(order) {
			if !have[rec.ProductID] {
				have[rec.ProductID] = true
				missing = append(missing, rec)
			}
		}
		if len(missing) == 0 {
			continue
		}

		if err := r.gw.Purchases().Insert(ctx, missing); err != nil {
			r.logger.Error("purchase reconciliation failed", "order_id", order.ID, "error", err)
			return report, err
		}
		report.OrdersRepaired++
		report.RecordsCreated += len(missing)
		r.logger.Info("purchase records restored", "order_id", order.ID, "count", len(missing))
	}
	return report, nil
}

// nextRunAt is the next occurrence of hour:min strictly after now.
func nextRunAt(now time.Time, hour, min int) time.Time {
	next := time.Date(now.Year(), now.Month(), now.Day(), hour, min, 0, 0, now.Location())
	if !next.After(now) {
		next = next.Add(24 * time.Hour)
	}
	return next
}

// StartDaily runs the reconciler every day at hour:min until ctx is done.
func (r *Reconciler) StartDaily(ctx context.Context, hour, min int) {
	for {
		next := nextRunAt(time.Now(), hour, min)
		r.logger.Info("next purchase reconciliation scheduled", "at", next.Format("2006-01-02 15:04:05"))

		timer := time.NewTimer(time.Until(next))
		select {
		case <-ctx.Done():
			timer.Stop()
			return
		case <-timer.C:
		}

		report, err := r.Run(ctx)
		if err != nil {
			r.logger.Error("purchase reconciliation pass failed", "error", err)
			continue
		}
		r.logger.Info("purchase reconciliation pass done",
			"scanned", report.OrdersScanned,
			"repaired", report.OrdersRepaired,
			"created", report.RecordsCreated)
	}
}
