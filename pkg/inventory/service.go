// Package inventory is the application layer over the store for items, categories,
// suppliers and manual alerts.
package inventory

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/jonboulle/clockwork"

	"github.com/miiguelriios/WasteLessApp/pkg/alerts"
	"github.com/miiguelriios/WasteLessApp/pkg/model"
	"github.com/miiguelriios/WasteLessApp/pkg/reconciler"
	"github.com/miiguelriios/WasteLessApp/pkg/storage"
)

// ErrInvalid is returned when input fails validation.
var ErrInvalid = errors.New("invalid input")

// Service validates and logs inventory changes before handing them to the store.
type Service struct {
	storage    storage.Storage
	clock      clockwork.Clock
	windowDays int
	logger     *slog.Logger
}

// NewService creates a Service. windowDays is the expiring-soon lookahead used for
// dashboard stats and previews.
func NewService(store storage.Storage, clk clockwork.Clock, windowDays int, logger *slog.Logger) *Service {
	return &Service{
		storage:    store,
		clock:      clk,
		windowDays: windowDays,
		logger:     logger,
	}
}

// WindowDays returns the configured lookahead.
func (s *Service) WindowDays() int { return s.windowDays }

func validateItem(item *model.Item) error {
	item.Name = strings.TrimSpace(item.Name)
	if item.Name == "" {
		return fmt.Errorf("%w: name is required", ErrInvalid)
	}
	if item.Quantity.IsNegative() {
		return fmt.Errorf("%w: quantity must not be negative", ErrInvalid)
	}
	if item.ReorderLevel.Valid && item.ReorderLevel.Decimal.IsNegative() {
		return fmt.Errorf("%w: reorder_level must not be negative", ErrInvalid)
	}
	return nil
}

// CreateItem validates and stores a new item.
func (s *Service) CreateItem(ctx context.Context, item *model.Item) error {
	if err := validateItem(item); err != nil {
		return err
	}
	if err := s.storage.CreateItem(ctx, item); err != nil {
		return fmt.Errorf("store item: %w", err)
	}

	s.logger.Info("item created", "item_id", item.ID, "name", item.Name)
	return nil
}

// UpdateItem replaces an existing item.
func (s *Service) UpdateItem(ctx context.Context, item *model.Item) error {
	if err := validateItem(item); err != nil {
		return err
	}
	if err := s.storage.UpdateItem(ctx, item); err != nil {
		return fmt.Errorf("store item: %w", err)
	}

	s.logger.Info("item updated", "item_id", item.ID)
	return nil
}

func (s *Service) GetItem(ctx context.Context, id int64) (*model.Item, error) {
	return s.storage.GetItem(ctx, id)
}

func (s *Service) ListItems(ctx context.Context) ([]model.Item, error) {
	return s.storage.ListItems(ctx)
}

// DeleteItem removes an item and its alerts.
func (s *Service) DeleteItem(ctx context.Context, id int64) error {
	if err := s.storage.DeleteItem(ctx, id); err != nil {
		return err
	}
	s.logger.Info("item deleted", "item_id", id)
	return nil
}

func (s *Service) CreateCategory(ctx context.Context, c *model.Category) error {
	c.Name = strings.TrimSpace(c.Name)
	if c.Name == "" {
		return fmt.Errorf("%w: name is required", ErrInvalid)
	}
	return s.storage.CreateCategory(ctx, c)
}

func (s *Service) ListCategories(ctx context.Context) ([]model.Category, error) {
	return s.storage.ListCategories(ctx)
}

func (s *Service) CreateSupplier(ctx context.Context, sup *model.Supplier) error {
	sup.Name = strings.TrimSpace(sup.Name)
	if sup.Name == "" {
		return fmt.Errorf("%w: name is required", ErrInvalid)
	}
	return s.storage.CreateSupplier(ctx, sup)
}

func (s *Service) ListSuppliers(ctx context.Context) ([]model.Supplier, error) {
	return s.storage.ListSuppliers(ctx)
}

func (s *Service) ListAlerts(ctx context.Context) ([]model.Alert, error) {
	return s.storage.ListAlerts(ctx)
}

// CreateAlert stores a manual alert. Manual alerts are never deduplicated, but a
// later reconciler pass on the same day will not add another alert of that type
// for the item. An empty message is rendered from the item's current state.
func (s *Service) CreateAlert(ctx context.Context, a *model.Alert) error {
	if !a.Type.Valid() {
		return fmt.Errorf("%w: unknown alert type %q", ErrInvalid, a.Type)
	}

	item, err := s.storage.GetItem(ctx, a.ItemID)
	if err != nil {
		return err
	}
	if strings.TrimSpace(a.Message) == "" {
		a.Message = alerts.Message(a.Type, *item)
	}
	now := s.clock.Now()
	a.CreatedAt = now.UTC()
	a.CreatedOn = model.DateOf(now)

	if err := s.storage.CreateAlert(ctx, a); err != nil {
		return fmt.Errorf("store alert: %w", err)
	}
	a.ItemName = item.Name

	s.logger.Info("manual alert created", "alert_id", a.ID, "item_id", a.ItemID, "alert_type", a.Type)
	return nil
}

// Stats returns dashboard aggregates relative to today.
func (s *Service) Stats(ctx context.Context) (*model.Stats, error) {
	today := model.DateOf(s.clock.Now())
	return s.storage.Stats(ctx, alerts.Horizon(today, s.windowDays))
}

// Preview evaluates every item in memory against both alert conditions without
// writing anything. A negative window is rejected as it is for a real pass.
func (s *Service) Preview(ctx context.Context, windowDays int) (alerts.Candidates, error) {
	if windowDays < 0 {
		return alerts.Candidates{}, fmt.Errorf("%w: %d", reconciler.ErrInvalidWindow, windowDays)
	}
	items, err := s.storage.ListItems(ctx)
	if err != nil {
		return alerts.Candidates{}, fmt.Errorf("list items: %w", err)
	}
	return alerts.Evaluate(items, model.DateOf(s.clock.Now()), windowDays), nil
}
