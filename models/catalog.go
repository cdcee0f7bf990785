// models/catalog.go
package models

import (
	"fmt"
	"reflect"
	"strings"

	"github.com/jszwec/csvutil"
)

// TableKind names a record table by its ULS record code.
type TableKind string

const (
	KindHD TableKind = "HD" // license header
	KindEN TableKind = "EN" // entity
	KindAM TableKind = "AM" // amateur
	KindHS TableKind = "HS" // history
	KindCO TableKind = "CO" // comments
	KindLA TableKind = "LA" // attachments
	KindSC TableKind = "SC" // special conditions
	KindSF TableKind = "SF" // free-form conditions
)

// Column names shared by several tables.
const (
	ColumnKey           = "unique_system_identifier"
	ColumnCallSign      = "call_sign"
	ColumnLicenseStatus = "license_status"
	ColumnState         = "state"
)

// AllTableKinds returns every table kind in load order: the primary table first.
func AllTableKinds() []TableKind {
	return []TableKind{KindHD, KindEN, KindAM, KindHS, KindCO, KindLA, KindSC, KindSF}
}

// ParseTableKind accepts a table code in any case.
func ParseTableKind(s string) (TableKind, bool) {
	k := TableKind(strings.ToUpper(strings.TrimSpace(s)))
	_, ok := catalog[k]
	return k, ok
}

// MemberName is the archive member holding this table's rows.
func (k TableKind) MemberName() string { return string(k) + ".dat" }

type ColumnType int

const (
	TypeText ColumnType = iota
	TypeInteger
	TypeDate
	TypeFlag
)

func (t ColumnType) String() string {
	switch t {
	case TypeInteger:
		return "integer"
	case TypeDate:
		return "date"
	case TypeFlag:
		return "flag"
	default:
		return "text"
	}
}

type Column struct {
	Name string
	Type ColumnType
	// NoCase marks text compared case-insensitively (call signs, state codes).
	NoCase bool
}

// MergeMode decides how incoming rows replace persisted ones.
type MergeMode int

const (
	// MergeUnique keeps at most one row per key value.
	MergeUnique MergeMode = iota
	// MergeGroup replaces all persisted rows of a key with the incoming rows of that key.
	MergeGroup
	// MergeReplace replaces the whole table.
	MergeReplace
)

func (m MergeMode) String() string {
	switch m {
	case MergeUnique:
		return "unique"
	case MergeGroup:
		return "grouped"
	default:
		return "replace"
	}
}

type IndexDef struct {
	Name    string
	Columns []string
}

// TableSchema describes one table kind. Schemas are built once at init and
// never modified.
type TableSchema struct {
	Kind    TableKind
	Columns []Column
	// KeyColumn is the merge key, empty for replace-mode tables.
	KeyColumn string
	Merge     MergeMode
	// UniqueColumn carries a UNIQUE constraint in the table definition.
	UniqueColumn string
	Indexes      []IndexDef

	newRecord func() Record
}

// NewRecord returns an empty record of this table's type.
func (s *TableSchema) NewRecord() Record { return s.newRecord() }

func (s *TableSchema) HasKey() bool { return s.KeyColumn != "" }

func (s *TableSchema) ColumnNames() []string {
	names := make([]string, len(s.Columns))
	for i, c := range s.Columns {
		names[i] = c.Name
	}
	return names
}

func (s *TableSchema) Column(name string) (Column, bool) {
	for _, c := range s.Columns {
		if c.Name == name {
			return c, true
		}
	}
	return Column{}, false
}

// Values returns the record's column values in column order, ready to be
// bound to an INSERT.
func (s *TableSchema) Values(r Record) []any {
	v := reflect.ValueOf(r).Elem()
	out := make([]any, len(s.Columns))
	for i := range s.Columns {
		out[i] = v.Field(i).Interface()
	}
	return out
}

var catalog = map[TableKind]*TableSchema{}

// Schema returns the schema for kind. It panics on an unknown kind, which
// can only come from a programming error since kinds are parsed up front.
func Schema(kind TableKind) *TableSchema {
	s, ok := catalog[kind]
	if !ok {
		panic(fmt.Sprintf("models: unknown table kind %q", kind))
	}
	return s
}

// Catalog returns all schemas in load order.
func Catalog() []*TableSchema {
	out := make([]*TableSchema, 0, len(catalog))
	for _, k := range AllTableKinds() {
		out = append(out, catalog[k])
	}
	return out
}

func idx(kind TableKind, suffix string, cols ...string) IndexDef {
	return IndexDef{Name: fmt.Sprintf("idx_%s_%s", kind, suffix), Columns: cols}
}

// keyIndexes are the two lookup indexes every dependent table carries.
func keyIndexes(kind TableKind) []IndexDef {
	return []IndexDef{
		idx(kind, "call_sign", ColumnCallSign),
		idx(kind, "unique_sys_id", ColumnKey),
	}
}

func register(kind TableKind, proto func() Record, merge MergeMode, indexes []IndexDef) {
	s := &TableSchema{
		Kind:      kind,
		Merge:     merge,
		Indexes:   indexes,
		newRecord: proto,
	}
	if merge != MergeReplace {
		s.KeyColumn = ColumnKey
	}
	rec := proto()
	names, err := csvutil.Header(rec, "csv")
	if err != nil {
		panic(fmt.Sprintf("models: header for %s: %v", kind, err))
	}
	t := reflect.TypeOf(rec).Elem()
	if t.NumField() != len(names) {
		panic(fmt.Sprintf("models: %s has %d fields but %d tagged columns", kind, t.NumField(), len(names)))
	}
	for i, name := range names {
		s.Columns = append(s.Columns, Column{
			Name:   name,
			Type:   columnType(t.Field(i).Type),
			NoCase: name == ColumnCallSign || name == ColumnState,
		})
	}
	catalog[kind] = s
}

var (
	dateType    = reflect.TypeOf(Date{})
	nullIntType = reflect.TypeOf(NullInt{})
	flagType    = reflect.TypeOf(Flag{})
)

func columnType(t reflect.Type) ColumnType {
	switch {
	case t == dateType:
		return TypeDate
	case t == flagType:
		return TypeFlag
	case t == nullIntType, t.Kind() == reflect.Int64:
		return TypeInteger
	default:
		return TypeText
	}
}

func init() {
	register(KindHD, func() Record { return new(License) }, MergeUnique, []IndexDef{
		idx(KindHD, "call_sign", ColumnCallSign, ColumnLicenseStatus),
		idx(KindHD, "unique_sys_id", ColumnKey),
		idx(KindHD, "license_status", ColumnLicenseStatus),
	})
	catalog[KindHD].UniqueColumn = ColumnCallSign

	register(KindEN, func() Record { return new(Entity) }, MergeGroup, append(keyIndexes(KindEN),
		idx(KindEN, "entity_name", "entity_name"),
		idx(KindEN, "first_name", "first_name"),
		idx(KindEN, "last_name", "last_name"),
		idx(KindEN, "state", ColumnState),
		idx(KindEN, "state_unique_sys_id", ColumnState, ColumnKey),
	))
	register(KindAM, func() Record { return new(Amateur) }, MergeUnique, keyIndexes(KindAM))
	register(KindHS, func() Record { return new(History) }, MergeGroup, keyIndexes(KindHS))
	register(KindCO, func() Record { return new(Comment) }, MergeGroup, keyIndexes(KindCO))
	register(KindLA, func() Record { return new(Attachment) }, MergeReplace, keyIndexes(KindLA))
	register(KindSC, func() Record { return new(SpecialCondition) }, MergeGroup, keyIndexes(KindSC))
	register(KindSF, func() Record { return new(FreeFormCondition) }, MergeGroup, keyIndexes(KindSF))
}
