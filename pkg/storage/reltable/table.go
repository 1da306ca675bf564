// Package reltable implements the CSR (Compressed Sparse Row) relationship
// table with bidirectional adjacency and per-edge properties (spec.md §3.2,
// §4.6).
package reltable

import (
	"fmt"
	"sort"

	"github.com/cuemby/ruzudb/pkg/storage/nodetable"
	"github.com/cuemby/ruzudb/pkg/storeerr"
	"github.com/cuemby/ruzudb/pkg/types"
)

// Group is one CSR adjacency group: all edges incident to GroupID on one
// side (source for a forward group, destination for a backward group).
// Offsets always has length 2 ([0, edge_count]) per spec.md §3.2 — Phase 2
// never splits a group across multiple offset runs.
type Group struct {
	GroupID   int
	Offsets   [2]int
	Neighbors []int
	RelIDs    []uint64
}

func newGroup(id int) *Group {
	return &Group{GroupID: id, Offsets: [2]int{0, 0}}
}

func (g *Group) append(neighbor int, relID uint64) {
	g.Neighbors = append(g.Neighbors, neighbor)
	g.RelIDs = append(g.RelIDs, relID)
	g.Offsets[1] = len(g.Neighbors)
}

// checkInvariant asserts the per-group CSR shape invariant (spec.md §4.6,
// §8 property 4): offsets[1]-offsets[0] == len(neighbors) == len(rel_ids).
func (g *Group) checkInvariant() error {
	span := g.Offsets[1] - g.Offsets[0]
	if span != len(g.Neighbors) || span != len(g.RelIDs) {
		return storeerr.New(storeerr.Internal, fmt.Sprintf("CSR group %d shape invariant violated", g.GroupID))
	}
	return nil
}

// Edge is one traversal result: the neighbor's node offset and the edge's
// relationship id.
type Edge struct {
	Neighbor int
	RelID    uint64
}

// Table is the runtime CSR relationship table for one relationship schema.
type Table struct {
	Schema *types.RelSchema

	forward  map[int]*Group
	backward map[int]*Group

	properties map[uint64][]types.Value
}

// New creates an empty relationship table for the given schema.
func New(schema *types.RelSchema) *Table {
	return &Table{
		Schema:     schema,
		forward:    make(map[int]*Group),
		backward:   make(map[int]*Group),
		properties: make(map[uint64][]types.Value),
	}
}

func (t *Table) maintainsForward() bool {
	return t.Schema.Direction == types.DirForward || t.Schema.Direction == types.DirBoth
}

func (t *Table) maintainsBackward() bool {
	return t.Schema.Direction == types.DirBackward || t.Schema.Direction == types.DirBoth
}

func (t *Table) validateProperties(props []types.Value) error {
	if len(props) != len(t.Schema.Properties) {
		return storeerr.New(storeerr.Schema, "property count does not match schema").WithTable(t.Schema.Name)
	}
	for i, col := range t.Schema.Properties {
		if props[i].IsNull() {
			continue // properties may be omitted via Null in Phase 2's relaxed property typing
		}
		if props[i].Kind() != col.Type {
			return storeerr.New(storeerr.Type, fmt.Sprintf("property %q expects %s, got %s", col.Name, col.Type, props[i].Kind())).WithTable(t.Schema.Name).WithColumn(col.Name)
		}
	}
	return nil
}

// CanInsert checks that an edge (src_offset, dst_offset, properties) would
// be accepted by Insert, without mutating the table or allocating a rel id.
// The database orchestrator calls this before logging the edge to the WAL.
func (t *Table) CanInsert(srcTable, dstTable *nodetable.Table, src, dst int, properties []types.Value) error {
	if !srcTable.HasOffset(src) {
		return storeerr.New(storeerr.Constraint, "source node offset does not exist").WithTable(t.Schema.Name).WithRow(src)
	}
	if !dstTable.HasOffset(dst) {
		return storeerr.New(storeerr.Constraint, "destination node offset does not exist").WithTable(t.Schema.Name).WithRow(dst)
	}
	return t.validateProperties(properties)
}

// Insert adds an edge (src_offset, dst_offset, properties), validating
// referential integrity against the endpoint node tables before allocating a
// rel id, so a failed insert leaves no partial state (spec.md §4.6, §7).
func (t *Table) Insert(srcTable, dstTable *nodetable.Table, src, dst int, properties []types.Value) (uint64, error) {
	if !srcTable.HasOffset(src) {
		return 0, storeerr.New(storeerr.Constraint, "source node offset does not exist").WithTable(t.Schema.Name).WithRow(src)
	}
	if !dstTable.HasOffset(dst) {
		return 0, storeerr.New(storeerr.Constraint, "destination node offset does not exist").WithTable(t.Schema.Name).WithRow(dst)
	}
	if err := t.validateProperties(properties); err != nil {
		return 0, err
	}

	relID := t.Schema.NextRelID
	t.Schema.NextRelID++

	if t.maintainsForward() {
		g, ok := t.forward[src]
		if !ok {
			g = newGroup(src)
			t.forward[src] = g
		}
		g.append(dst, relID)
	}
	if t.maintainsBackward() {
		g, ok := t.backward[dst]
		if !ok {
			g = newGroup(dst)
			t.backward[dst] = g
		}
		g.append(src, relID)
	}

	t.properties[relID] = append([]types.Value(nil), properties...)
	return relID, nil
}

// ForwardNeighbors returns (destination offset, rel id) pairs for srcOffset,
// sorted by destination offset (spec.md §3.2: "a sorted list of (destination
// offset, rel_id)").
func (t *Table) ForwardNeighbors(srcOffset int) []Edge {
	g, ok := t.forward[srcOffset]
	if !ok {
		return nil
	}
	return sortedEdges(g)
}

// BackwardNeighbors returns (source offset, rel id) pairs for dstOffset,
// sorted by source offset.
func (t *Table) BackwardNeighbors(dstOffset int) []Edge {
	g, ok := t.backward[dstOffset]
	if !ok {
		return nil
	}
	return sortedEdges(g)
}

func sortedEdges(g *Group) []Edge {
	out := make([]Edge, len(g.Neighbors))
	for i := range g.Neighbors {
		out[i] = Edge{Neighbor: g.Neighbors[i], RelID: g.RelIDs[i]}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Neighbor != out[j].Neighbor {
			return out[i].Neighbor < out[j].Neighbor
		}
		return out[i].RelID < out[j].RelID
	})
	return out
}

// GetProperties returns the property values stored for a rel id.
func (t *Table) GetProperties(relID uint64) ([]types.Value, bool) {
	p, ok := t.properties[relID]
	return p, ok
}

// EdgeCount returns the total number of edges recorded (counted from the
// maintained forward groups if any, else the backward groups).
func (t *Table) EdgeCount() int {
	n := 0
	if t.maintainsForward() {
		for _, g := range t.forward {
			n += len(g.Neighbors)
		}
		return n
	}
	for _, g := range t.backward {
		n += len(g.Neighbors)
	}
	return n
}

// CheckInvariants verifies the universal CSR invariants (spec.md §8,
// properties 2-5) against this table alone (properties 2 and 5 need catalog
// context and are checked by the caller). decodeTable runs it on every table
// it loads, in every build.
func (t *Table) CheckInvariants() error {
	for _, g := range t.forward {
		if err := g.checkInvariant(); err != nil {
			return err
		}
	}
	for _, g := range t.backward {
		if err := g.checkInvariant(); err != nil {
			return err
		}
	}
	if t.maintainsForward() && t.maintainsBackward() {
		for src, g := range t.forward {
			for i, dst := range g.Neighbors {
				relID := g.RelIDs[i]
				if !hasBackwardEntry(t.backward[dst], src, relID) {
					return storeerr.New(storeerr.Internal, "bidirectional symmetry violated: missing backward entry").WithTable(t.Schema.Name)
				}
			}
		}
		for dst, g := range t.backward {
			for i, src := range g.Neighbors {
				relID := g.RelIDs[i]
				if !hasBackwardEntry(t.forward[src], dst, relID) {
					return storeerr.New(storeerr.Internal, "bidirectional symmetry violated: missing forward entry").WithTable(t.Schema.Name)
				}
			}
		}
	}
	var maxRelID uint64
	haveAny := false
	for _, g := range t.forward {
		for _, r := range g.RelIDs {
			if !haveAny || r > maxRelID {
				maxRelID, haveAny = r, true
			}
		}
	}
	for _, g := range t.backward {
		for _, r := range g.RelIDs {
			if !haveAny || r > maxRelID {
				maxRelID, haveAny = r, true
			}
		}
	}
	if haveAny && t.Schema.NextRelID <= maxRelID {
		return storeerr.New(storeerr.Internal, "next_rel_id is not greater than the maximum rel id").WithTable(t.Schema.Name)
	}
	return nil
}

func hasBackwardEntry(g *Group, neighbor int, relID uint64) bool {
	if g == nil {
		return false
	}
	for i, n := range g.Neighbors {
		if n == neighbor && g.RelIDs[i] == relID {
			return true
		}
	}
	return false
}
