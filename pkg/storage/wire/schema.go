package wire

import "github.com/cuemby/ruzudb/pkg/types"

// WriteColumn appends a Column (name, type kind).
func (w *Writer) WriteColumn(c types.Column) {
	w.WriteString(c.Name)
	w.WriteUint64(uint64(c.Type))
}

// ReadColumn consumes a Column written by WriteColumn.
func (r *Reader) ReadColumn() types.Column {
	name := r.ReadString()
	kind := types.Kind(r.ReadUint64())
	return types.Column{Name: name, Type: kind}
}

// WriteNodeSchema appends a full NodeSchema.
func (w *Writer) WriteNodeSchema(s *types.NodeSchema) {
	w.WriteString(s.Name)
	w.WriteUint64(uint64(len(s.Columns)))
	for _, c := range s.Columns {
		w.WriteColumn(c)
	}
	w.WriteUint64(uint64(len(s.PrimaryKey)))
	for _, pk := range s.PrimaryKey {
		w.WriteString(pk)
	}
	w.WriteUint64(uint64(s.NextRowID))
}

// ReadNodeSchema consumes a NodeSchema written by WriteNodeSchema.
func (r *Reader) ReadNodeSchema() *types.NodeSchema {
	s := &types.NodeSchema{}
	s.Name = r.ReadString()
	n := r.ReadUint64()
	s.Columns = make([]types.Column, 0, n)
	for i := uint64(0); i < n; i++ {
		s.Columns = append(s.Columns, r.ReadColumn())
	}
	n = r.ReadUint64()
	s.PrimaryKey = make([]string, 0, n)
	for i := uint64(0); i < n; i++ {
		s.PrimaryKey = append(s.PrimaryKey, r.ReadString())
	}
	s.NextRowID = int(r.ReadUint64())
	return s
}

// WriteRelSchema appends a full RelSchema.
func (w *Writer) WriteRelSchema(s *types.RelSchema) {
	w.WriteString(s.Name)
	w.WriteString(s.FromTable)
	w.WriteString(s.ToTable)
	w.WriteUint64(uint64(len(s.Properties)))
	for _, c := range s.Properties {
		w.WriteColumn(c)
	}
	w.WriteUint64(uint64(s.Direction))
	w.WriteUint64(s.NextRelID)
}

// ReadRelSchema consumes a RelSchema written by WriteRelSchema.
func (r *Reader) ReadRelSchema() *types.RelSchema {
	s := &types.RelSchema{}
	s.Name = r.ReadString()
	s.FromTable = r.ReadString()
	s.ToTable = r.ReadString()
	n := r.ReadUint64()
	s.Properties = make([]types.Column, 0, n)
	for i := uint64(0); i < n; i++ {
		s.Properties = append(s.Properties, r.ReadColumn())
	}
	s.Direction = types.Direction(r.ReadUint64())
	s.NextRelID = r.ReadUint64()
	return s
}
