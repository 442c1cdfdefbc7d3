package tracker

import (
	"context"
	"fmt"
	"strconv"

	"github.com/loopline/trackbot/internal/airtable"
	"github.com/loopline/trackbot/internal/flow"
)

// Greeting is the /start reply.
func Greeting(firstName string) string {
	name := firstName
	if name == "" {
		name = "there"
	}
	return fmt.Sprintf(
		"👋 Hello %s!\n\n"+
			"I'm your Project Tracker Bot.\n\n"+
			"Commands:\n"+
			"  ✨ /newproject - Log a new project.\n"+
			"  📂 /myprojects - View & manage your projects.\n"+
			"  ❌ /cancel - Stop current operation.\n\n"+
			"Let's track! 🚀", name)
}

// HelpText is the /help reply.
func HelpText() string {
	return "*Available Commands:*\n\n" +
		"/newproject - Create a new project\n" +
		"/updateproject - Update an existing project\n" +
		"/myprojects - View your projects\n" +
		"/searchprojects - Search for projects\n" +
		"/help - Show this help message\n" +
		"/cancel - Cancel current operation"
}

// MyProjects returns the caller's projects and the rendered listing. An
// empty list yields the pointer to /newproject instead.
func (s *Service) MyProjects(ctx context.Context, userID int64) ([]airtable.Record, string, error) {
	projects, err := s.records.ProjectsByOwner(ctx, strconv.FormatInt(userID, 10))
	if err != nil {
		return nil, "", fmt.Errorf("tracker: list projects: %w", err)
	}
	if len(projects) == 0 {
		return nil, "You don't have any projects yet. Use /newproject to create one!", nil
	}
	return projects, renderProjectList(projects), nil
}

// ProjectCard renders one project's summary plus its most recent updates
// for the view callback. The ownership check mirrors the update flow: a
// record id not belonging to the caller is rejected.
func (s *Service) ProjectCard(ctx context.Context, userID int64, recordID string) (flow.Prompt, error) {
	projects, err := s.records.ProjectsByOwner(ctx, strconv.FormatInt(userID, 10))
	if err != nil {
		return flow.Prompt{}, fmt.Errorf("tracker: list projects: %w", err)
	}
	var selected *airtable.Record
	for i := range projects {
		if projects[i].ID == recordID {
			selected = &projects[i]
			break
		}
	}
	if selected == nil {
		return flow.Prompt{Text: "❌ Error: Project not found. Please try /myprojects again."}, nil
	}
	updates, err := s.records.ProjectUpdates(ctx, recordID)
	if err != nil {
		return flow.Prompt{}, fmt.Errorf("tracker: list updates: %w", err)
	}
	return flow.Prompt{
		Text:     renderProjectSummary(*selected) + renderRecentUpdates(updates),
		Markdown: true,
	}, nil
}
