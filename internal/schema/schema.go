// Package schema describes the fixed dataset the pipeline is allowed to
// query: its tables, columns, and the span of calendar dates it covers.
//
// The schema is the single allow-list consulted by the SQL builder and the
// safety gate. Identifiers never come from free text.
package schema

import (
	"context"
	"fmt"
	"strings"
	"time"
)

// Column is a single column in an allow-listed table.
type Column struct {
	Name string
	Type string
}

// Table is an allow-listed table.
type Table struct {
	Name    string
	Columns []Column
}

// DateSpan is the half-open interval [Min, Max) of dates covered by the
// dataset. Resolved date ranges must fall inside it.
type DateSpan struct {
	Min time.Time
	Max time.Time
}

// Contains reports whether the half-open range [start, end) lies within the span.
func (s DateSpan) Contains(start, end time.Time) bool {
	return !start.Before(s.Min) && !end.After(s.Max)
}

// Years returns the calendar years the span touches, in ascending order.
func (s DateSpan) Years() []int {
	if s.Max.IsZero() || !s.Min.Before(s.Max) {
		return nil
	}
	var years []int
	last := s.Max.AddDate(0, 0, -1).Year() // Max is exclusive
	for y := s.Min.Year(); y <= last; y++ {
		years = append(years, y)
	}
	return years
}

// String renders the span as "2022-01-01 to 2023-01-01 (end exclusive)".
func (s DateSpan) String() string {
	return fmt.Sprintf("%s to %s (end exclusive)", s.Min.Format("2006-01-02"), s.Max.Format("2006-01-02"))
}

// Schema is the dataset allow-list plus its covered date span.
type Schema struct {
	Tables []Table
	Span   DateSpan

	identifiers map[string]struct{}
}

// New builds a Schema and precomputes its identifier set.
func New(tables []Table, span DateSpan) *Schema {
	s := &Schema{Tables: tables, Span: span}
	s.identifiers = make(map[string]struct{})
	for _, t := range tables {
		s.identifiers[strings.ToLower(t.Name)] = struct{}{}
		for _, c := range t.Columns {
			s.identifiers[strings.ToLower(c.Name)] = struct{}{}
		}
	}
	return s
}

// HasTable reports whether the named table is allow-listed.
func (s *Schema) HasTable(name string) bool {
	for _, t := range s.Tables {
		if strings.EqualFold(t.Name, name) {
			return true
		}
	}
	return false
}

// HasIdentifier reports whether name is an allow-listed table or column.
func (s *Schema) HasIdentifier(name string) bool {
	_, ok := s.identifiers[strings.ToLower(name)]
	return ok
}

// Columns returns the columns of the named table, or nil if unknown.
func (s *Schema) Columns(table string) []Column {
	for _, t := range s.Tables {
		if strings.EqualFold(t.Name, table) {
			return t.Columns
		}
	}
	return nil
}

// MetadataFunc reads the column list of a table from a live database
// connection. Declared as a func type so this package does not depend on a
// concrete adapter implementation.
type MetadataFunc func(ctx context.Context, table string) ([]Column, error)

// Discover builds a Schema by reading column metadata for the given tables.
// The span cannot be discovered generically and must be supplied by the caller.
func Discover(ctx context.Context, fn MetadataFunc, tables []string, span DateSpan) (*Schema, error) {
	out := make([]Table, 0, len(tables))
	for _, name := range tables {
		cols, err := fn(ctx, name)
		if err != nil {
			return nil, fmt.Errorf("failed to discover table %s: %w", name, err)
		}
		out = append(out, Table{Name: name, Columns: cols})
	}
	return New(out, span), nil
}

// Default returns the built-in NYC taxi dataset schema covering 2022.
func Default() *Schema {
	return New([]Table{
		{
			Name: "taxi_trips",
			Columns: []Column{
				{Name: "id", Type: "INTEGER"},
				{Name: "pickup_datetime", Type: "TIMESTAMP"},
				{Name: "dropoff_datetime", Type: "TIMESTAMP"},
				{Name: "vendor_id", Type: "TEXT"},
				{Name: "fare_amount", Type: "DOUBLE"},
				{Name: "tip_amount", Type: "DOUBLE"},
				{Name: "total_amount", Type: "DOUBLE"},
			},
		},
	}, DateSpan{
		Min: time.Date(2022, 1, 1, 0, 0, 0, 0, time.UTC),
		Max: time.Date(2023, 1, 1, 0, 0, 0, 0, time.UTC),
	})
}
