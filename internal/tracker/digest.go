package tracker

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/loopline/trackbot/internal/airtable"
	"github.com/loopline/trackbot/internal/logger"
)

const digestSummaryLimit = 150

// BuildDigest assembles the weekly digest: projects with activity in the
// window plus their logged updates, grouped per project. The returned text
// is markdown.
func (s *Service) BuildDigest(ctx context.Context, days int) (string, error) {
	since := time.Now().UTC().AddDate(0, 0, -days)

	projects, err := s.records.ProjectsSince(ctx, since)
	if err != nil {
		return "", fmt.Errorf("tracker: digest projects: %w", err)
	}
	updates, err := s.records.UpdatesSince(ctx, since)
	if err != nil {
		return "", fmt.Errorf("tracker: digest updates: %w", err)
	}
	logger.Info(ctx, "digest", "digest.build",
		slog.Int("projects", len(projects)),
		slog.Int("updates", len(updates)),
		slog.Time("since", since))

	return s.formatDigest(ctx, projects, updates), nil
}

func (s *Service) formatDigest(ctx context.Context, projects, updates []airtable.Record) string {
	var b strings.Builder
	b.WriteString("*Weekly Project Digest!*\n\n")

	if len(projects) > 0 {
		b.WriteString("*New Projects This Week:*\n")
		for _, p := range projects {
			fmt.Fprintf(&b, "- *%s*: %s\n",
				md(fieldOr(p, airtable.FieldProjectName, "N/A")),
				md(p.Str(airtable.FieldOneLiner)))
		}
		b.WriteString("\n")
	} else {
		b.WriteString("No new projects this week.\n\n")
	}

	grouped, order := s.groupUpdates(ctx, updates)
	if len(order) > 0 {
		b.WriteString("*Recent Updates:*\n")
		for _, name := range order {
			fmt.Fprintf(&b, "*%s:*\n", md(name))
			for _, text := range grouped[name] {
				fmt.Fprintf(&b, "  - %s\n", md(truncate(text, digestSummaryLimit)))
			}
			b.WriteString("\n")
		}
	} else {
		b.WriteString("No specific project updates logged this week.\n")
	}

	b.WriteString("Remember to update your progress via the bot! `/updateproject`")
	return b.String()
}

// groupUpdates buckets update texts under their parent project's name,
// preserving first-seen project order. Parent names are resolved once each.
func (s *Service) groupUpdates(ctx context.Context, updates []airtable.Record) (map[string][]string, []string) {
	grouped := make(map[string][]string)
	names := make(map[string]string)
	var order []string

	for _, u := range updates {
		text := u.Str(airtable.FieldUpdateText)
		if text == "" {
			continue
		}
		name := s.parentName(ctx, u, names)
		if _, seen := grouped[name]; !seen {
			order = append(order, name)
		}
		grouped[name] = append(grouped[name], text)
	}
	return grouped, order
}

func (s *Service) parentName(ctx context.Context, update airtable.Record, cache map[string]string) string {
	const unknown = "Unknown Project"
	links, ok := update.Fields[airtable.FieldProject].([]any)
	if !ok || len(links) == 0 {
		return unknown
	}
	id, ok := links[0].(string)
	if !ok || id == "" {
		return unknown
	}
	if name, hit := cache[id]; hit {
		return name
	}
	name := unknown
	if parent, err := s.records.Project(ctx, id); err == nil {
		if n := parent.Str(airtable.FieldProjectName); n != "" {
			name = n
		}
	} else {
		logger.Warn(ctx, "digest", "digest.parent.fail",
			slog.String("record_id", id),
			slog.String("error", err.Error()))
	}
	cache[id] = name
	return name
}

func truncate(s string, limit int) string {
	runes := []rune(s)
	if len(runes) <= limit {
		return s
	}
	return string(runes[:limit]) + "..."
}
