package adapter

import (
	"fmt"
	"strings"
)

// columnDefs builds a CREATE TABLE column list from CSV headers, inferring
// types from the naming conventions of the seed data.
func columnDefs(headers []string, dialect string) string {
	defs := make([]string, 0, len(headers))
	for _, h := range headers {
		name := sanitizeIdentifier(h)
		defs = append(defs, fmt.Sprintf("%s %s", name, inferType(name, dialect)))
	}
	return strings.Join(defs, ", ")
}

func inferType(name, dialect string) string {
	lower := strings.ToLower(name)
	switch {
	case lower == "id":
		return "INTEGER"
	case strings.HasSuffix(lower, "_datetime"), strings.HasSuffix(lower, "_date"):
		if dialect == "sqlite" {
			return "TEXT" // sqlite stores timestamps as ISO strings
		}
		return "TIMESTAMP"
	case strings.HasSuffix(lower, "_amount"), strings.HasSuffix(lower, "_count"):
		if dialect == "postgres" {
			return "DOUBLE PRECISION"
		}
		return "DOUBLE"
	default:
		return "TEXT"
	}
}

// sanitizeIdentifier makes a CSV header safe to use as a column name.
func sanitizeIdentifier(name string) string {
	safe := strings.TrimSpace(name)
	safe = strings.ReplaceAll(safe, " ", "_")
	safe = strings.ReplaceAll(safe, "-", "_")
	return safe
}
