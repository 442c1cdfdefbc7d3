package tracker

import (
	"context"
	"fmt"
	"strconv"

	"github.com/loopline/trackbot/internal/airtable"
	"github.com/loopline/trackbot/internal/flow"
	"github.com/loopline/trackbot/internal/session"
)

// States of the update-project conversation.
const (
	stSelect   session.StateID = "select"
	stProgress session.StateID = "progress"
	stBlockers session.StateID = "blockers"
)

func (s *Service) updateProjectDefinition() *flow.Definition {
	return &flow.Definition{
		Kind:  session.KindUpdateProject,
		Entry: stSelect,
		States: map[session.StateID]flow.StateSpec{
			stSelect: {
				Field:    ansProject,
				Input:    flow.InputChoice,
				Prompt:   s.promptSelectProject,
				Validate: s.validateOwnedProject,
				Next:     flow.To(stProgress),
			},
			stProgress: {
				Field:    ansProgress,
				Input:    flow.InputText,
				Prompt:   ask("Updating project. What progress have you made this week?"),
				Validate: textField("Progress update", maxProgressLen),
				Next:     flow.To(stBlockers),
			},
			stBlockers: {
				Field:    ansBlockers,
				Input:    flow.InputText,
				Prompt:   ask("Are there any blockers or challenges you're facing?\nType 'skip' if there are none."),
				Validate: optionalTextField("Blockers", maxBlockersLen),
				Next:     flow.To(session.StateDone),
			},
		},
		OnDone: s.saveProjectUpdate,
	}
}

// promptSelectProject offers the caller's own projects as the option menu.
// Having no projects ends the conversation with a pointer to /newproject.
func (s *Service) promptSelectProject(ctx context.Context, sess *session.Session) (flow.Prompt, error) {
	projects, err := s.records.ProjectsByOwner(ctx, strconv.FormatInt(sess.UserID, 10))
	if err != nil {
		return flow.Prompt{}, fmt.Errorf("tracker: list projects: %w", err)
	}
	if len(projects) == 0 {
		return flow.Prompt{}, flow.Endf("You don't have any projects yet. Use /newproject to create one!")
	}
	choices := make([]flow.Choice, 0, len(projects))
	for _, p := range projects {
		name := p.Str(airtable.FieldProjectName)
		if name == "" {
			name = "Unnamed Project"
		}
		choices = append(choices, flow.Choice{Token: p.ID, Label: name})
	}
	return flow.Prompt{
		Text:    "Which project would you like to update?",
		Choices: choices,
	}, nil
}

// validateOwnedProject re-checks ownership of the selected record. The
// selection arrives as a record id and may come from a stale or forged
// button, so membership in the caller's own projects is verified before
// anything is written.
func (s *Service) validateOwnedProject(ctx context.Context, sess *session.Session, raw string) (string, error) {
	projects, err := s.records.ProjectsByOwner(ctx, strconv.FormatInt(sess.UserID, 10))
	if err != nil {
		return "", fmt.Errorf("tracker: verify ownership: %w", err)
	}
	for _, p := range projects {
		if p.ID == raw {
			return raw, nil
		}
	}
	return "", flow.Endf("❌ Error: Project not found. Please try /myprojects again.")
}

func (s *Service) saveProjectUpdate(ctx context.Context, sess *session.Session) (flow.Prompt, error) {
	fields := map[string]any{
		airtable.FieldUpdateText: sess.Answers[ansProgress],
		airtable.FieldUpdatedBy:  strconv.FormatInt(sess.UserID, 10),
	}
	if blockers := sess.Answers[ansBlockers]; blockers != "" {
		fields[airtable.FieldBlockers] = blockers
	}
	if _, err := s.records.CreateProjectUpdate(ctx, sess.Answers[ansProject], fields); err != nil {
		return flow.Prompt{}, fmt.Errorf("tracker: save update: %w", err)
	}
	return flow.Prompt{
		Text: "✅ Your project update has been saved successfully!\n\nYou can use /myprojects to view your projects or log another update.",
	}, nil
}
