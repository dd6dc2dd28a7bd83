// Package catalog loads reference data and starting stock from YAML seed files.
package catalog

import (
	"context"
	"fmt"
	"os"

	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"

	"github.com/miiguelriios/WasteLessApp/pkg/model"
)

// CategorySeed describes one category in a seed file.
type CategorySeed struct {
	Name        string  `yaml:"name"`
	Description *string `yaml:"description,omitempty"`
}

// SupplierSeed describes one supplier in a seed file.
type SupplierSeed struct {
	Name        string  `yaml:"name"`
	ContactInfo *string `yaml:"contact_info,omitempty"`
	Address     *string `yaml:"address,omitempty"`
}

// ItemSeed describes one item. Category and supplier are referenced by name.
type ItemSeed struct {
	Name         string           `yaml:"name"`
	Category     string           `yaml:"category,omitempty"`
	Supplier     string           `yaml:"supplier,omitempty"`
	Quantity     decimal.Decimal  `yaml:"quantity"`
	Unit         *string          `yaml:"unit,omitempty"`
	ExpiryDate   *model.Date      `yaml:"expiry_date,omitempty"`
	ReorderLevel *decimal.Decimal `yaml:"reorder_level,omitempty"`
}

// Seed is the content of a seed file.
type Seed struct {
	Categories []CategorySeed `yaml:"categories"`
	Suppliers  []SupplierSeed `yaml:"suppliers"`
	Items      []ItemSeed     `yaml:"items"`
}

// Load reads a YAML seed file.
func Load(path string) (*Seed, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read seed file %s: %w", path, err)
	}

	seed, err := LoadFromBytes(data)
	if err != nil {
		return nil, fmt.Errorf("seed file %s: %w", path, err)
	}
	return seed, nil
}

// LoadFromBytes parses and validates YAML seed data.
func LoadFromBytes(data []byte) (*Seed, error) {
	var seed Seed
	if err := yaml.Unmarshal(data, &seed); err != nil {
		return nil, fmt.Errorf("parse seed data: %w", err)
	}
	if err := seed.validate(); err != nil {
		return nil, err
	}
	return &seed, nil
}

func (s *Seed) validate() error {
	categories := make(map[string]bool, len(s.Categories))
	for i, c := range s.Categories {
		if c.Name == "" {
			return fmt.Errorf("category %d: missing name", i+1)
		}
		categories[c.Name] = true
	}
	suppliers := make(map[string]bool, len(s.Suppliers))
	for i, sup := range s.Suppliers {
		if sup.Name == "" {
			return fmt.Errorf("supplier %d: missing name", i+1)
		}
		suppliers[sup.Name] = true
	}
	for i, it := range s.Items {
		if it.Name == "" {
			return fmt.Errorf("item %d: missing name", i+1)
		}
		if it.Category != "" && !categories[it.Category] {
			return fmt.Errorf("item %q: unknown category %q", it.Name, it.Category)
		}
		if it.Supplier != "" && !suppliers[it.Supplier] {
			return fmt.Errorf("item %q: unknown supplier %q", it.Name, it.Supplier)
		}
	}
	return nil
}

// Store is the subset of storage.Storage that seeding requires.
type Store interface {
	CreateCategory(ctx context.Context, c *model.Category) error
	ListCategories(ctx context.Context) ([]model.Category, error)
	CreateSupplier(ctx context.Context, s *model.Supplier) error
	ListSuppliers(ctx context.Context) ([]model.Supplier, error)
	CreateItem(ctx context.Context, item *model.Item) error
}

// Result counts the rows Apply created.
type Result struct {
	Categories int
	Suppliers  int
	Items      int
}

// Apply writes the seed into store. Categories and suppliers that already exist by
// name are reused; items are always inserted.
func Apply(ctx context.Context, store Store, seed *Seed) (*Result, error) {
	res := &Result{}

	existingCategories, err := store.ListCategories(ctx)
	if err != nil {
		return nil, fmt.Errorf("list categories: %w", err)
	}
	categoryIDs := make(map[string]int64, len(existingCategories))
	for _, c := range existingCategories {
		categoryIDs[c.Name] = c.ID
	}
	for _, cs := range seed.Categories {
		if _, ok := categoryIDs[cs.Name]; ok {
			continue
		}
		c := &model.Category{Name: cs.Name, Description: cs.Description}
		if err := store.CreateCategory(ctx, c); err != nil {
			return res, fmt.Errorf("create category %q: %w", cs.Name, err)
		}
		categoryIDs[c.Name] = c.ID
		res.Categories++
	}

	existingSuppliers, err := store.ListSuppliers(ctx)
	if err != nil {
		return nil, fmt.Errorf("list suppliers: %w", err)
	}
	supplierIDs := make(map[string]int64, len(existingSuppliers))
	for _, sup := range existingSuppliers {
		supplierIDs[sup.Name] = sup.ID
	}
	for _, ss := range seed.Suppliers {
		if _, ok := supplierIDs[ss.Name]; ok {
			continue
		}
		sup := &model.Supplier{Name: ss.Name, ContactInfo: ss.ContactInfo, Address: ss.Address}
		if err := store.CreateSupplier(ctx, sup); err != nil {
			return res, fmt.Errorf("create supplier %q: %w", ss.Name, err)
		}
		supplierIDs[sup.Name] = sup.ID
		res.Suppliers++
	}

	for _, is := range seed.Items {
		item := &model.Item{
			Name:       is.Name,
			Quantity:   is.Quantity,
			Unit:       is.Unit,
			ExpiryDate: is.ExpiryDate,
		}
		if is.ReorderLevel != nil {
			item.ReorderLevel = decimal.NewNullDecimal(*is.ReorderLevel)
		}
		if id, ok := categoryIDs[is.Category]; ok {
			item.CategoryID = &id
		}
		if id, ok := supplierIDs[is.Supplier]; ok {
			item.SupplierID = &id
		}
		if err := store.CreateItem(ctx, item); err != nil {
			return res, fmt.Errorf("create item %q: %w", is.Name, err)
		}
		res.Items++
	}

	return res, nil
}
