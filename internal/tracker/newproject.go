package tracker

import (
	"context"
	"fmt"
	"strconv"

	"github.com/loopline/trackbot/internal/airtable"
	"github.com/loopline/trackbot/internal/flow"
	"github.com/loopline/trackbot/internal/session"
)

// States of the new-project conversation.
const (
	stName    session.StateID = "name"
	stTagline session.StateID = "tagline"
	stProblem session.StateID = "problem"
	stStack   session.StateID = "stack"
	stLink    session.StateID = "link"
	stStatus  session.StateID = "status"
	stHelp    session.StateID = "help"
)

func ask(text string) flow.PromptFunc {
	return func(context.Context, *session.Session) (flow.Prompt, error) {
		return flow.Prompt{Text: text}, nil
	}
}

func statusChoices() []flow.Choice {
	choices := make([]flow.Choice, 0, len(airtable.StatusOptions))
	for _, s := range airtable.StatusOptions {
		choices = append(choices, flow.Choice{Token: s, Label: s})
	}
	return choices
}

func (s *Service) newProjectDefinition() *flow.Definition {
	return &flow.Definition{
		Kind:  session.KindNewProject,
		Entry: stName,
		States: map[session.StateID]flow.StateSpec{
			stName: {
				Field:    ansName,
				Input:    flow.InputText,
				Prompt:   ask("Let's create a new project! 🚀\n\nWhat's the name of your project?"),
				Validate: textField("Project name", maxNameLen),
				Next:     flow.To(stTagline),
			},
			stTagline: {
				Field:    ansTagline,
				Input:    flow.InputText,
				Prompt:   ask("Great! Now, give me a one-liner tagline for your project:"),
				Validate: textField("Tagline", maxTaglineLen),
				Next:     flow.To(stProblem),
			},
			stProblem: {
				Field:    ansProblem,
				Input:    flow.InputText,
				Prompt:   ask("What problem does your project solve? Please provide a brief problem statement:"),
				Validate: textField("Problem statement", maxProblemLen),
				Next:     flow.To(stStack),
			},
			stStack: {
				Field:    ansStack,
				Input:    flow.InputText,
				Prompt:   ask("What technologies are you using? List your tech stack:"),
				Validate: textField("Tech stack", maxStackLen),
				Next:     flow.To(stLink),
			},
			stLink: {
				Field:    ansLink,
				Input:    flow.InputText,
				Prompt:   ask("Do you have a GitHub repository or demo link? Please share it.\nYou can also type 'skip' to continue without a link."),
				Validate: optionalTextField("GitHub/Demo link", maxLinkLen),
				Next:     flow.To(stStatus),
			},
			stStatus: {
				Field: ansStatus,
				Input: flow.InputChoice,
				Prompt: func(context.Context, *session.Session) (flow.Prompt, error) {
					return flow.Prompt{
						Text:    "What's the current status of your project?",
						Choices: statusChoices(),
					}, nil
				},
				Validate: oneOf(airtable.StatusOptions...),
				Next:     flow.To(stHelp),
			},
			stHelp: {
				Field:    ansHelp,
				Input:    flow.InputText,
				Prompt:   ask("Finally, what kind of help do you need? (e.g., technical expertise, design, marketing)"),
				Validate: textField("Help needed", maxHelpLen),
				Next:     flow.To(session.StateDone),
			},
		},
		OnDone: s.saveNewProject,
	}
}

// saveNewProject builds the record payload from the collected answers and
// persists it. The link field is omitted when the user skipped it.
func (s *Service) saveNewProject(ctx context.Context, sess *session.Session) (flow.Prompt, error) {
	fields := map[string]any{
		airtable.FieldProjectName: sess.Answers[ansName],
		airtable.FieldOwnerID:     strconv.FormatInt(sess.UserID, 10),
		airtable.FieldOneLiner:    sess.Answers[ansTagline],
		airtable.FieldProblem:     sess.Answers[ansProblem],
		airtable.FieldStack:       sess.Answers[ansStack],
		airtable.FieldStatus:      sess.Answers[ansStatus],
		airtable.FieldHelpNeeded:  sess.Answers[ansHelp],
	}
	if link := sess.Answers[ansLink]; link != "" {
		fields[airtable.FieldGitHubDemo] = link
	}
	if _, err := s.records.CreateProject(ctx, fields); err != nil {
		return flow.Prompt{}, fmt.Errorf("tracker: save project: %w", err)
	}
	return flow.Prompt{
		Text: "🎉 Your project has been created successfully!\n\nYou can use /myprojects to view your projects.",
	}, nil
}
