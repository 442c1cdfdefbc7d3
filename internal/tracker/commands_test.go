package tracker

import (
	"context"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/loopline/trackbot/internal/airtable"
	"github.com/loopline/trackbot/internal/config"
)

func newTestService(t *testing.T) (*stubAirtable, *Service) {
	t.Helper()
	stub := &stubAirtable{t: t, replies: map[string][]string{}}
	srv := httptest.NewServer(stub)
	t.Cleanup(srv.Close)

	client := airtable.New(config.AirtableConfig{
		APIKey:        "key",
		BaseID:        "appTest",
		ProjectsTable: "Projects",
		UpdatesTable:  "Updates",
	}, airtable.WithBaseURL(srv.URL), airtable.WithHTTPClient(srv.Client()))
	return stub, NewService(client)
}

func TestGreeting(t *testing.T) {
	assert.Contains(t, Greeting("Ada"), "Hello Ada!")
	assert.Contains(t, Greeting(""), "Hello there!")
	assert.Contains(t, Greeting("Ada"), "/newproject")
}

func TestHelpTextListsCommands(t *testing.T) {
	help := HelpText()
	for _, cmd := range []string{"/newproject", "/updateproject", "/myprojects", "/searchprojects", "/help", "/cancel"} {
		assert.Contains(t, help, cmd)
	}
}

func TestMyProjectsEmpty(t *testing.T) {
	stub, svc := newTestService(t)
	stub.on("GET /appTest/Projects", `{"records":[]}`)

	projects, listing, err := svc.MyProjects(context.Background(), 42)
	require.NoError(t, err)
	assert.Nil(t, projects)
	assert.Equal(t, "You don't have any projects yet. Use /newproject to create one!", listing)
}

func TestMyProjectsListing(t *testing.T) {
	stub, svc := newTestService(t)
	stub.on("GET /appTest/Projects", `{"records":[
		{"id":"rec1","fields":{"Project Name":"Loopline","Status":"MVP","One-liner":"tracker bot"}},
		{"id":"rec2","fields":{"Project Name":"Sidecar","Status":"Idea"}}
	]}`)

	projects, listing, err := svc.MyProjects(context.Background(), 42)
	require.NoError(t, err)
	require.Len(t, projects, 2)
	assert.Contains(t, listing, "Here are your projects:")
	assert.Contains(t, listing, "1. Loopline")
	assert.Contains(t, listing, "2. Sidecar")
	assert.Contains(t, listing, "Status: MVP")
}

func TestProjectCard(t *testing.T) {
	stub, svc := newTestService(t)
	stub.on("GET /appTest/Projects", ownedProjects)
	stub.on("GET /appTest/Updates", `{"records":[
		{"id":"recU1","fields":{"Timestamp":"2026-08-25T10:00:00Z","Update Text":"shipped auth","Blockers":"ci is slow"}}
	]}`)

	prompt, err := svc.ProjectCard(context.Background(), 42, "recMine")
	require.NoError(t, err)
	require.True(t, prompt.Markdown)
	assert.Contains(t, prompt.Text, "📋 *Loopline*")
	assert.Contains(t, prompt.Text, "*Recent Updates:*")
	assert.Contains(t, prompt.Text, "Progress: shipped auth")
	assert.Contains(t, prompt.Text, "Blockers: ci is slow")
}

func TestProjectCardRejectsForeignRecord(t *testing.T) {
	stub, svc := newTestService(t)
	stub.on("GET /appTest/Projects", ownedProjects)

	prompt, err := svc.ProjectCard(context.Background(), 42, "recSomeoneElses")
	require.NoError(t, err)
	assert.Equal(t, "❌ Error: Project not found. Please try /myprojects again.", prompt.Text)
}
