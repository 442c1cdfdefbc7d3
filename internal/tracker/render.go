package tracker

import (
	"fmt"
	"strings"

	"github.com/loopline/trackbot/internal/airtable"
)

// md escapes the markdown control characters of user-supplied text so a
// stray underscore in a project name cannot break the whole message.
func md(s string) string {
	r := strings.NewReplacer("*", "\\*", "_", "\\_", "`", "\\`", "[", "\\[")
	return r.Replace(s)
}

func fieldOr(rec airtable.Record, field, fallback string) string {
	if v := rec.Str(field); v != "" {
		return v
	}
	return fallback
}

func renderSearchResults(results []airtable.Record) string {
	var b strings.Builder
	b.WriteString("*Search Results:*\n\n")
	shown := results
	if len(shown) > maxSearchResults {
		shown = shown[:maxSearchResults]
	}
	for _, p := range shown {
		fmt.Fprintf(&b, "- *%s* (%s)\n", md(fieldOr(p, airtable.FieldProjectName, "N/A")), md(fieldOr(p, airtable.FieldStatus, "N/A")))
		fmt.Fprintf(&b, "  _Stack:_ %s\n", md(fieldOr(p, airtable.FieldStack, "N/A")))
		fmt.Fprintf(&b, "  _Tagline:_ %s\n\n", md(p.Str(airtable.FieldOneLiner)))
	}
	if extra := len(results) - maxSearchResults; extra > 0 {
		fmt.Fprintf(&b, "\n...and %d more. Consider refining your search.", extra)
	}
	return b.String()
}

func renderProjectList(projects []airtable.Record) string {
	var b strings.Builder
	b.WriteString("Here are your projects:\n\n")
	for i, p := range projects {
		fmt.Fprintf(&b, "%d. %s\n   Status: %s\n   %s\n\n",
			i+1,
			fieldOr(p, airtable.FieldProjectName, "Unnamed Project"),
			fieldOr(p, airtable.FieldStatus, "N/A"),
			p.Str(airtable.FieldOneLiner))
	}
	return b.String()
}

func renderProjectSummary(p airtable.Record) string {
	return fmt.Sprintf(
		"📋 *%s*\n_%s_\n\n*Status:* %s\n*Tech Stack:* %s\n*Help Needed:* %s\n*GitHub/Demo Link:* %s",
		md(fieldOr(p, airtable.FieldProjectName, "N/A")),
		md(fieldOr(p, airtable.FieldOneLiner, "No tagline provided.")),
		md(fieldOr(p, airtable.FieldStatus, "N/A")),
		md(fieldOr(p, airtable.FieldStack, "Not specified.")),
		md(fieldOr(p, airtable.FieldHelpNeeded, "None specified.")),
		md(fieldOr(p, airtable.FieldGitHubDemo, "No link provided.")))
}

// renderRecentUpdates renders up to three of a project's update records.
func renderRecentUpdates(updates []airtable.Record) string {
	var b strings.Builder
	b.WriteString("\n\n*Recent Updates:*\n")
	if len(updates) == 0 {
		b.WriteString("\nNo updates yet.")
		return b.String()
	}
	if len(updates) > 3 {
		updates = updates[:3]
	}
	for _, u := range updates {
		fmt.Fprintf(&b, "\n📅 %s\nProgress: %s\n",
			fieldOr(u, airtable.FieldTimestamp, "No date"),
			md(fieldOr(u, airtable.FieldUpdateText, "No update")))
		if blockers := u.Str(airtable.FieldBlockers); blockers != "" {
			fmt.Fprintf(&b, "Blockers: %s\n", md(blockers))
		}
	}
	return b.String()
}
