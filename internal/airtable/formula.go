package airtable

import (
	"fmt"
	"strings"
	"time"
)

// Formula builders for the handful of filterByFormula expressions the flows
// need. Values are embedded as single-quoted strings with any single quotes
// backslash-escaped.

func quote(v string) string {
	return "'" + strings.ReplaceAll(v, "'", "\\'") + "'"
}

func field(name string) string {
	return "{" + name + "}"
}

func eq(name, value string) string {
	return fmt.Sprintf("%s = %s", field(name), quote(value))
}

// findIn matches needle as a case-insensitive substring of the field.
func findIn(needle, name string) string {
	return fmt.Sprintf("FIND(%s, LOWER(%s))", quote(strings.ToLower(needle)), field(name))
}

func since(name string, t time.Time) string {
	return fmt.Sprintf("%s >= %s", field(name), quote(t.UTC().Format(time.RFC3339)))
}

func anyOf(parts ...string) string {
	if len(parts) == 1 {
		return parts[0]
	}
	return "OR(" + strings.Join(parts, ", ") + ")"
}

func allOf(parts ...string) string {
	if len(parts) == 1 {
		return parts[0]
	}
	return "AND(" + strings.Join(parts, ", ") + ")"
}

// ownerFormula selects projects owned by the given Telegram user.
func ownerFormula(ownerID string) string {
	return eq(FieldOwnerID, ownerID)
}

// searchFormula renders the criteria into one ANDed expression, or "" when
// no criterion is set.
func searchFormula(c SearchCriteria) string {
	var parts []string

	if kw := strings.TrimSpace(c.Keyword); kw != "" {
		parts = append(parts, anyOf(
			findIn(kw, FieldProjectName),
			findIn(kw, FieldOneLiner),
			findIn(kw, FieldProblem),
		))
	}
	if st := strings.TrimSpace(c.Stack); st != "" {
		parts = append(parts, findIn(st, FieldStack))
	}
	if status := strings.TrimSpace(c.Status); status != "" {
		parts = append(parts, eq(FieldStatus, status))
	}

	if len(parts) == 0 {
		return ""
	}
	return allOf(parts...)
}

// linkedToFormula selects update records linked to the given parent project.
// The link field renders as a comma separated list of primary values, so a
// FIND on the joined record id is the reliable match.
func linkedToFormula(projectID string) string {
	return fmt.Sprintf("FIND(%s, ARRAYJOIN(%s))", quote(projectID), field(FieldProject))
}
