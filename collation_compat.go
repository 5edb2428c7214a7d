package main

import (
	"fmt"
	"sort"
	"strings"
)

// collectCollationWarnings reports collation information found in the parsed
// schema. Case-insensitive (_ci) collations become case-sensitive text in
// PostgreSQL; unique indexes over such columns can change meaning, so those
// get a dedicated warning naming the affected columns.
func collectCollationWarnings(model *SchemaModel) []Warning {
	collations := make(map[string]bool)
	ciCounts := make(map[string]int)
	ciUniqueRefs := make(map[string][]string)

	for _, t := range model.Tables {
		uniqueCols := make(map[string]bool)
		for _, c := range t.PrimaryKey {
			uniqueCols[c] = true
		}
		for _, idx := range t.Indexes {
			if idx.Unique {
				for _, c := range idx.Columns {
					uniqueCols[c] = true
				}
			}
		}

		for _, col := range t.Columns {
			if col.Collation == "" {
				continue
			}
			collations[col.Collation] = true
			if strings.HasSuffix(strings.ToLower(col.Collation), "_ci") {
				ciCounts[col.Collation]++
				if uniqueCols[col.Name] {
					ciUniqueRefs[col.Collation] = append(ciUniqueRefs[col.Collation],
						fmt.Sprintf("%s.%s", t.Name, col.Name))
				}
			}
		}
	}

	var warnings []Warning
	if len(collations) > 0 {
		warnings = append(warnings, Warning{
			Construct: "collation",
			Message:   fmt.Sprintf("source collations found: %s", strings.Join(sortedKeys(collations), ", ")),
		})
	}
	for _, coll := range sortedKeys(ciCounts) {
		warnings = append(warnings, Warning{
			Construct: "collation",
			Message: fmt.Sprintf("%d column(s) use %s (case-insensitive); PostgreSQL text comparisons are case-sensitive by default",
				ciCounts[coll], coll),
		})
	}
	for _, coll := range sortedKeys(ciUniqueRefs) {
		warnings = append(warnings, Warning{
			Construct: "collation",
			Message: fmt.Sprintf("unique index or primary key on %s column(s), uniqueness semantics may differ: %s",
				coll, strings.Join(ciUniqueRefs[coll], ", ")),
		})
	}
	return warnings
}

// binCollationClause returns a COLLATE clause for binary-collated text
// columns. MySQL _bin collations compare byte-wise; the deterministic "C"
// collation preserves that in PostgreSQL. Other collations emit no clause.
func binCollationClause(col Column) string {
	if col.Collation == "" || !isTextLikePGType(col.PGType) {
		return ""
	}
	if strings.HasSuffix(strings.ToLower(col.Collation), "_bin") {
		return ` COLLATE "C"`
	}
	return ""
}

// isTextLikePGType reports whether a PostgreSQL type is text-like and can
// accept a COLLATE clause.
func isTextLikePGType(pgType string) bool {
	lower := strings.ToLower(pgType)
	switch {
	case lower == "text":
		return true
	case strings.HasPrefix(lower, "varchar"):
		return true
	case strings.HasPrefix(lower, "char"):
		return true
	default:
		return false
	}
}

// sortedKeys returns the keys of a map in sorted order.
func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
