package server

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/miiguelriios/WasteLessApp/pkg/inventory"
	"github.com/miiguelriios/WasteLessApp/pkg/model"
)

// itemRequest is the body of POST and PUT /items. Blank expiry dates from form
// inputs are treated as absent.
type itemRequest struct {
	Name         string              `json:"name"`
	CategoryID   *int64              `json:"category_id"`
	SupplierID   *int64              `json:"supplier_id"`
	Quantity     decimal.Decimal     `json:"quantity"`
	Unit         *string             `json:"unit"`
	ExpiryDate   *string             `json:"expiry_date"`
	ReorderLevel decimal.NullDecimal `json:"reorder_level"`
}

func (req itemRequest) toItem() (*model.Item, error) {
	item := &model.Item{
		Name:         req.Name,
		CategoryID:   req.CategoryID,
		SupplierID:   req.SupplierID,
		Quantity:     req.Quantity,
		Unit:         req.Unit,
		ReorderLevel: req.ReorderLevel,
	}
	if req.ExpiryDate != nil && strings.TrimSpace(*req.ExpiryDate) != "" {
		d, err := model.ParseDate(strings.TrimSpace(*req.ExpiryDate))
		if err != nil {
			return nil, fmt.Errorf("%w: expiry_date must be YYYY-MM-DD", inventory.ErrInvalid)
		}
		item.ExpiryDate = &d
	}
	return item, nil
}

func parseID(r *http.Request) (int64, error) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: invalid item id", inventory.ErrInvalid)
	}
	return id, nil
}

func (s *Server) handleListItems(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()

	items, err := s.inventory.ListItems(ctx)
	if err != nil {
		s.writeError(w, r, err, "Failed to fetch items")
		return
	}
	writeJSON(w, http.StatusOK, items)
}

func (s *Server) handleGetItem(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(r)
	if err != nil {
		s.writeError(w, r, err, "")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()

	item, err := s.inventory.GetItem(ctx, id)
	if err != nil {
		s.writeError(w, r, err, "Failed to fetch item")
		return
	}
	writeJSON(w, http.StatusOK, item)
}

func (s *Server) handleCreateItem(w http.ResponseWriter, r *http.Request) {
	var req itemRequest
	if err := decodeJSON(w, r, &req); err != nil {
		s.writeError(w, r, err, "")
		return
	}
	item, err := req.toItem()
	if err != nil {
		s.writeError(w, r, err, "")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()

	if err := s.inventory.CreateItem(ctx, item); err != nil {
		s.writeError(w, r, err, "Failed to add item")
		return
	}
	writeJSON(w, http.StatusCreated, item)
}

func (s *Server) handleUpdateItem(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(r)
	if err != nil {
		s.writeError(w, r, err, "")
		return
	}
	var req itemRequest
	if err := decodeJSON(w, r, &req); err != nil {
		s.writeError(w, r, err, "")
		return
	}
	item, err := req.toItem()
	if err != nil {
		s.writeError(w, r, err, "")
		return
	}
	item.ID = id

	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()

	if err := s.inventory.UpdateItem(ctx, item); err != nil {
		s.writeError(w, r, err, "Failed to update item")
		return
	}
	writeJSON(w, http.StatusOK, item)
}

func (s *Server) handleDeleteItem(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(r)
	if err != nil {
		s.writeError(w, r, err, "")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()

	if err := s.inventory.DeleteItem(ctx, id); err != nil {
		s.writeError(w, r, err, "Failed to delete item")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()

	stats, err := s.inventory.Stats(ctx)
	if err != nil {
		s.writeError(w, r, err, "Failed to compute stats")
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

func (s *Server) handleListCategories(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()

	categories, err := s.inventory.ListCategories(ctx)
	if err != nil {
		s.writeError(w, r, err, "Failed to fetch categories")
		return
	}
	writeJSON(w, http.StatusOK, categories)
}

func (s *Server) handleCreateCategory(w http.ResponseWriter, r *http.Request) {
	var c model.Category
	if err := decodeJSON(w, r, &c); err != nil {
		s.writeError(w, r, err, "")
		return
	}
	c.ID = 0

	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()

	if err := s.inventory.CreateCategory(ctx, &c); err != nil {
		s.writeError(w, r, err, "Error adding category")
		return
	}
	writeJSON(w, http.StatusCreated, c)
}

func (s *Server) handleListSuppliers(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()

	suppliers, err := s.inventory.ListSuppliers(ctx)
	if err != nil {
		s.writeError(w, r, err, "Failed to fetch suppliers")
		return
	}
	writeJSON(w, http.StatusOK, suppliers)
}

func (s *Server) handleCreateSupplier(w http.ResponseWriter, r *http.Request) {
	var sup model.Supplier
	if err := decodeJSON(w, r, &sup); err != nil {
		s.writeError(w, r, err, "")
		return
	}
	sup.ID = 0

	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()

	if err := s.inventory.CreateSupplier(ctx, &sup); err != nil {
		s.writeError(w, r, err, "Error adding supplier")
		return
	}
	writeJSON(w, http.StatusCreated, sup)
}
