// Package airtable is the durable record store and query collaborator: it
// persists finished conversations and answers the owner/search lookups the
// flows need. All calls are treated as atomic by the caller.
package airtable

// Field names of the Projects table.
const (
	FieldProjectName = "Project Name"
	FieldOwnerID     = "Owner Telegram ID"
	FieldOneLiner    = "One-liner"
	FieldProblem     = "Problem Statement"
	FieldStack       = "Stack"
	FieldGitHubDemo  = "GitHub/Demo"
	FieldStatus      = "Status"
	FieldHelpNeeded  = "Help Needed"
	FieldLastUpdated = "Last Updated"
)

// Field names of the Updates table. A project update references its parent
// through FieldProject as a single-element list of the parent record id.
const (
	FieldProject    = "Project"
	FieldUpdateText = "Update Text"
	FieldBlockers   = "Blockers"
	FieldUpdatedBy  = "Updated By"
	FieldTimestamp  = "Timestamp"
)

// StatusOptions are the allowed values of the Status field.
var StatusOptions = []string{"Idea", "MVP", "Launched"}

// Record is one Airtable row.
type Record struct {
	ID          string         `json:"id"`
	Fields      map[string]any `json:"fields"`
	CreatedTime string         `json:"createdTime,omitempty"`
}

// Str returns a string field value, or "" when absent or differently typed.
func (r Record) Str(field string) string {
	if r.Fields == nil {
		return ""
	}
	if v, ok := r.Fields[field].(string); ok {
		return v
	}
	return ""
}

// SearchCriteria filters the project search. Empty values are skipped;
// non-empty ones are ANDed.
type SearchCriteria struct {
	Keyword string
	Stack   string
	Status  string
}

// Empty reports whether no filter is set at all.
func (c SearchCriteria) Empty() bool {
	return c.Keyword == "" && c.Stack == "" && c.Status == ""
}
