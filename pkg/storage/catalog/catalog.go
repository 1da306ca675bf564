// Package catalog persists and loads table schemas (spec.md §3.2, §4.4).
package catalog

import (
	"fmt"

	"github.com/cuemby/ruzudb/pkg/storeerr"
	"github.com/cuemby/ruzudb/pkg/types"
)

// Catalog is the registry of all node and relationship table schemas.
type Catalog struct {
	nodeSchemas map[string]*types.NodeSchema
	relSchemas  map[string]*types.RelSchema
	// order preserves table-registration order for deterministic encoding
	// and listing, matching the pack's convention of stable iteration order
	// for anything persisted to disk.
	nodeOrder []string
	relOrder  []string
}

// New returns an empty catalog.
func New() *Catalog {
	return &Catalog{
		nodeSchemas: make(map[string]*types.NodeSchema),
		relSchemas:  make(map[string]*types.RelSchema),
	}
}

// NodeSchema looks up a node schema by name, returning the catalog's own
// pointer rather than a copy. nodetable.Table holds this same pointer, so a
// NextRowID bump from an insert is already visible here with no separate
// write-back step.
func (c *Catalog) NodeSchema(name string) (*types.NodeSchema, bool) {
	s, ok := c.nodeSchemas[name]
	return s, ok
}

// RelSchema looks up a relationship schema by name, returning the catalog's
// own pointer rather than a copy, the same way NodeSchema does.
func (c *Catalog) RelSchema(name string) (*types.RelSchema, bool) {
	s, ok := c.relSchemas[name]
	return s, ok
}

// NodeSchemas returns all node schemas in registration order.
func (c *Catalog) NodeSchemas() []*types.NodeSchema {
	out := make([]*types.NodeSchema, 0, len(c.nodeOrder))
	for _, n := range c.nodeOrder {
		out = append(out, c.nodeSchemas[n])
	}
	return out
}

// RelSchemas returns all relationship schemas in registration order.
func (c *Catalog) RelSchemas() []*types.RelSchema {
	out := make([]*types.RelSchema, 0, len(c.relOrder))
	for _, n := range c.relOrder {
		out = append(out, c.relSchemas[n])
	}
	return out
}

func validColumns(cols []types.Column) error {
	if len(cols) == 0 {
		return storeerr.New(storeerr.Schema, "table must declare at least one column")
	}
	seen := make(map[string]bool, len(cols))
	for _, c := range cols {
		if c.Name == "" {
			return storeerr.New(storeerr.Schema, "column name must not be empty")
		}
		if seen[c.Name] {
			return storeerr.New(storeerr.Schema, fmt.Sprintf("duplicate column name %q", c.Name)).WithColumn(c.Name)
		}
		seen[c.Name] = true
	}
	return nil
}

// CanCreateNodeTable checks spec.md §4.4's invariants for a new node schema
// (unique table name, non-empty valid columns, non-empty primary key that is
// a subset of the columns) without mutating the catalog. The database
// orchestrator calls this before logging the operation to the WAL, so a
// schema that would fail validation never reaches the log (spec.md §4.7:
// "mutates in-memory state only after the WAL flush succeeds").
func (c *Catalog) CanCreateNodeTable(s *types.NodeSchema) error {
	if s.Name == "" {
		return storeerr.New(storeerr.Schema, "table name must not be empty")
	}
	if _, exists := c.nodeSchemas[s.Name]; exists {
		return storeerr.New(storeerr.Schema, fmt.Sprintf("node table %q already exists", s.Name)).WithTable(s.Name)
	}
	if err := validColumns(s.Columns); err != nil {
		return err.(*storeerr.Error).WithTable(s.Name)
	}
	if len(s.PrimaryKey) == 0 {
		return storeerr.New(storeerr.Schema, "primary key must not be empty").WithTable(s.Name)
	}
	for _, pk := range s.PrimaryKey {
		if s.ColumnIndex(pk) < 0 {
			return storeerr.New(storeerr.Schema, fmt.Sprintf("primary key column %q not declared", pk)).WithTable(s.Name).WithColumn(pk)
		}
	}
	return nil
}

// CreateNodeTable registers a new node schema, validating via
// CanCreateNodeTable first.
func (c *Catalog) CreateNodeTable(s *types.NodeSchema) error {
	if err := c.CanCreateNodeTable(s); err != nil {
		return err
	}
	clone := s.Clone()
	c.nodeSchemas[clone.Name] = clone
	c.nodeOrder = append(c.nodeOrder, clone.Name)
	return nil
}

// CanCreateRelTable checks spec.md §4.4's invariants for a new relationship
// schema (unique table name, both endpoint node tables already exist, valid
// properties) without mutating the catalog.
func (c *Catalog) CanCreateRelTable(s *types.RelSchema) error {
	if s.Name == "" {
		return storeerr.New(storeerr.Schema, "table name must not be empty")
	}
	if _, exists := c.relSchemas[s.Name]; exists {
		return storeerr.New(storeerr.Schema, fmt.Sprintf("relationship table %q already exists", s.Name)).WithTable(s.Name)
	}
	if _, ok := c.nodeSchemas[s.FromTable]; !ok {
		return storeerr.New(storeerr.Schema, fmt.Sprintf("source node table %q does not exist", s.FromTable)).WithTable(s.Name)
	}
	if _, ok := c.nodeSchemas[s.ToTable]; !ok {
		return storeerr.New(storeerr.Schema, fmt.Sprintf("destination node table %q does not exist", s.ToTable)).WithTable(s.Name)
	}
	if len(s.Properties) > 0 {
		if err := validColumns(s.Properties); err != nil {
			return err.(*storeerr.Error).WithTable(s.Name)
		}
	}
	return nil
}

// CreateRelTable registers a new relationship schema, validating via
// CanCreateRelTable first.
func (c *Catalog) CreateRelTable(s *types.RelSchema) error {
	if err := c.CanCreateRelTable(s); err != nil {
		return err
	}
	clone := s.Clone()
	c.relSchemas[clone.Name] = clone
	c.relOrder = append(c.relOrder, clone.Name)
	return nil
}

// Validate re-checks the invariants spec.md §4.4 requires "on save": every
// relationship schema references existing node schemas, table names unique
// (guaranteed by map keys), columns non-empty and valid.
func (c *Catalog) Validate() error {
	for _, s := range c.nodeSchemas {
		if err := validColumns(s.Columns); err != nil {
			return err.(*storeerr.Error).WithTable(s.Name)
		}
	}
	for _, s := range c.relSchemas {
		if _, ok := c.nodeSchemas[s.FromTable]; !ok {
			return storeerr.New(storeerr.Schema, fmt.Sprintf("source node table %q does not exist", s.FromTable)).WithTable(s.Name)
		}
		if _, ok := c.nodeSchemas[s.ToTable]; !ok {
			return storeerr.New(storeerr.Schema, fmt.Sprintf("destination node table %q does not exist", s.ToTable)).WithTable(s.Name)
		}
	}
	return nil
}
