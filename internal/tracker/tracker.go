// Package tracker defines the product-facing conversations and commands:
// project creation, progress updates, search, listing, and the weekly
// digest. It builds declarative flow definitions on top of the Airtable
// collaborator; the transport glue lives in internal/telegram.
package tracker

import (
	"github.com/loopline/trackbot/internal/airtable"
	"github.com/loopline/trackbot/internal/flow"
)

// Answer keys used across the conversation definitions.
const (
	ansName     = "name"
	ansTagline  = "tagline"
	ansProblem  = "problem"
	ansStack    = "stack"
	ansLink     = "link"
	ansStatus   = "status"
	ansHelp     = "help"
	ansProject  = "project_id"
	ansProgress = "progress"
	ansBlockers = "blockers"
	ansKeyword  = "keyword"
)

// SkipWord is the literal a user types to leave an optional field empty.
const SkipWord = "skip"

// Service wires the conversations to the record store.
type Service struct {
	records *airtable.Client
}

// NewService creates the tracker service over the given Airtable client.
func NewService(records *airtable.Client) *Service {
	return &Service{records: records}
}

// Register installs all conversation definitions into the registry.
func (s *Service) Register(reg *flow.Registry) error {
	for _, def := range []*flow.Definition{
		s.newProjectDefinition(),
		s.updateProjectDefinition(),
		s.searchDefinition(),
	} {
		if err := reg.Register(def); err != nil {
			return err
		}
	}
	return nil
}
