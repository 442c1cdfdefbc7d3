package tracker

import (
	"context"
	"fmt"

	"github.com/loopline/trackbot/internal/airtable"
	"github.com/loopline/trackbot/internal/flow"
	"github.com/loopline/trackbot/internal/session"
)

// States of the search conversation.
const (
	stSearchKeyword session.StateID = "keyword"
	stSearchStack   session.StateID = "stack"
	stSearchStatus  session.StateID = "status"
)

// anyStatus is the choice token for searching regardless of status.
const anyStatus = "any"

const maxSearchResults = 10

func (s *Service) searchDefinition() *flow.Definition {
	return &flow.Definition{
		Kind:  session.KindSearch,
		Entry: stSearchKeyword,
		States: map[session.StateID]flow.StateSpec{
			stSearchKeyword: {
				Field:    ansKeyword,
				Input:    flow.InputText,
				Prompt:   ask("Let's find some projects! Enter a keyword to search in name, tagline, or problem statement (or type 'skip'):"),
				Validate: optionalTextField("Keyword", maxNameLen),
				Next:     flow.To(stSearchStack),
			},
			stSearchStack: {
				Field:    ansStack,
				Input:    flow.InputText,
				Prompt:   ask("Enter a tech stack to filter by (e.g., Python, React), or type 'skip':"),
				Validate: optionalTextField("Tech stack", maxStackLen),
				Next:     flow.To(stSearchStatus),
			},
			stSearchStatus: {
				Field: ansStatus,
				Input: flow.InputChoice,
				Prompt: func(context.Context, *session.Session) (flow.Prompt, error) {
					choices := statusChoices()
					choices = append(choices, flow.Choice{Token: anyStatus, Label: "Any Status"})
					return flow.Prompt{
						Text:    "Filter by project status?",
						Choices: choices,
					}, nil
				},
				Validate: oneOf(append(append([]string{}, airtable.StatusOptions...), anyStatus)...),
				Next:     flow.To(session.StateDone),
			},
		},
		OnDone: s.runSearch,
	}
}

// runSearch is the terminal step: it executes the query and renders the
// results. Nothing is persisted by a search.
func (s *Service) runSearch(ctx context.Context, sess *session.Session) (flow.Prompt, error) {
	crit := airtable.SearchCriteria{
		Keyword: sess.Answers[ansKeyword],
		Stack:   sess.Answers[ansStack],
		Status:  sess.Answers[ansStatus],
	}
	if crit.Status == anyStatus {
		crit.Status = ""
	}
	if crit.Empty() {
		return flow.Prompt{
			Text: "No search criteria provided. Please try again with at least one filter.",
		}, nil
	}

	results, err := s.records.SearchProjects(ctx, crit)
	if err != nil {
		return flow.Prompt{}, fmt.Errorf("tracker: search: %w", err)
	}
	if len(results) == 0 {
		return flow.Prompt{Text: "No projects found matching your criteria."}, nil
	}
	return flow.Prompt{Text: renderSearchResults(results), Markdown: true}, nil
}
