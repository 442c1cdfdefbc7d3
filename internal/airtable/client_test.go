package airtable

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/loopline/trackbot/internal/config"
)

type capturedRequest struct {
	Method string
	Path   string
	Query  map[string]string
	Auth   string
	Body   map[string]any
}

type fakeReply struct {
	status int
	body   string
}

// fakeAirtable records every request and replies from a per-path queue.
type fakeAirtable struct {
	t        *testing.T
	requests []capturedRequest
	replies  map[string][]fakeReply
}

func newFakeAirtable(t *testing.T) (*fakeAirtable, *Client) {
	t.Helper()
	f := &fakeAirtable{t: t, replies: map[string][]fakeReply{}}
	srv := httptest.NewServer(f)
	t.Cleanup(srv.Close)

	client := New(config.AirtableConfig{
		APIKey:        "key-secret",
		BaseID:        "appBase",
		ProjectsTable: "Projects",
		UpdatesTable:  "Updates",
	}, WithBaseURL(srv.URL), WithHTTPClient(srv.Client()))
	return f, client
}

func (f *fakeAirtable) reply(pathAndMethod string, bodies ...string) {
	for _, b := range bodies {
		f.replies[pathAndMethod] = append(f.replies[pathAndMethod], fakeReply{status: http.StatusOK, body: b})
	}
}

func (f *fakeAirtable) failWith(pathAndMethod string, status int, body string) {
	f.replies[pathAndMethod] = append(f.replies[pathAndMethod], fakeReply{status: status, body: body})
}

func (f *fakeAirtable) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	cr := capturedRequest{
		Method: r.Method,
		Path:   r.URL.Path,
		Query:  map[string]string{},
		Auth:   r.Header.Get("Authorization"),
	}
	for k, vs := range r.URL.Query() {
		cr.Query[k] = vs[0]
	}
	if r.Body != nil {
		_ = json.NewDecoder(r.Body).Decode(&cr.Body)
	}
	f.requests = append(f.requests, cr)

	key := r.Method + " " + r.URL.Path
	queue := f.replies[key]
	if len(queue) == 0 {
		f.t.Errorf("unexpected request %s", key)
		w.WriteHeader(http.StatusInternalServerError)
		return
	}
	rep := queue[0]
	f.replies[key] = queue[1:]
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(rep.status)
	_, _ = w.Write([]byte(rep.body))
}

func TestCreateProjectStampsLastUpdated(t *testing.T) {
	f, client := newFakeAirtable(t)
	f.reply("POST /appBase/Projects", `{"id":"recNew","fields":{}}`)

	before := time.Now().UTC().Add(-time.Second)
	id, err := client.CreateProject(context.Background(), map[string]any{
		FieldProjectName: "loopline",
		FieldOwnerID:     "42",
	})
	require.NoError(t, err)
	require.Equal(t, "recNew", id)

	require.Len(t, f.requests, 1)
	req := f.requests[0]
	assert.Equal(t, "Bearer key-secret", req.Auth)

	fields, ok := req.Body["fields"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "loopline", fields[FieldProjectName])

	stamp, ok := fields[FieldLastUpdated].(string)
	require.True(t, ok)
	parsed, err := time.Parse(time.RFC3339, stamp)
	require.NoError(t, err)
	assert.False(t, parsed.Before(before))
}

func TestCreateProjectUpdateLinksAndTouchesParent(t *testing.T) {
	f, client := newFakeAirtable(t)
	f.reply("POST /appBase/Updates", `{"id":"recUpd","fields":{}}`)
	f.reply("PATCH /appBase/Projects/recParent", `{"id":"recParent","fields":{}}`)

	id, err := client.CreateProjectUpdate(context.Background(), "recParent", map[string]any{
		FieldUpdateText: "shipped auth",
		FieldUpdatedBy:  "42",
	})
	require.NoError(t, err)
	require.Equal(t, "recUpd", id)

	require.Len(t, f.requests, 2)

	createFields := f.requests[0].Body["fields"].(map[string]any)
	assert.Equal(t, []any{"recParent"}, createFields[FieldProject])
	assert.Equal(t, "shipped auth", createFields[FieldUpdateText])
	_, hasStamp := createFields[FieldTimestamp].(string)
	assert.True(t, hasStamp)

	patchFields := f.requests[1].Body["fields"].(map[string]any)
	assert.Contains(t, patchFields, FieldLastUpdated)
}

func TestCreateProjectUpdateToleratesParentPatchFailure(t *testing.T) {
	f, client := newFakeAirtable(t)
	f.reply("POST /appBase/Updates", `{"id":"recUpd","fields":{}}`)
	f.failWith("PATCH /appBase/Projects/recGone", http.StatusNotFound, `{"error":"NOT_FOUND"}`)

	id, err := client.CreateProjectUpdate(context.Background(), "recGone", map[string]any{
		FieldUpdateText: "still counts",
	})
	require.NoError(t, err)
	require.Equal(t, "recUpd", id)
}

func TestProjectsByOwnerFiltersByOwner(t *testing.T) {
	f, client := newFakeAirtable(t)
	f.reply("GET /appBase/Projects", `{"records":[{"id":"rec1","fields":{"Project Name":"one"}}]}`)

	recs, err := client.ProjectsByOwner(context.Background(), "42")
	require.NoError(t, err)
	require.Len(t, recs, 1)
	assert.Equal(t, "one", recs[0].Str(FieldProjectName))

	require.Len(t, f.requests, 1)
	assert.Equal(t, "{Owner Telegram ID} = '42'", f.requests[0].Query["filterByFormula"])
}

func TestSearchProjectsEmptyCriteriaSkipsRequest(t *testing.T) {
	f, client := newFakeAirtable(t)

	recs, err := client.SearchProjects(context.Background(), SearchCriteria{})
	require.NoError(t, err)
	require.Nil(t, recs)
	require.Empty(t, f.requests)
}

func TestSearchProjectsSortsByActivity(t *testing.T) {
	f, client := newFakeAirtable(t)
	f.reply("GET /appBase/Projects", `{"records":[]}`)

	_, err := client.SearchProjects(context.Background(), SearchCriteria{Status: "MVP"})
	require.NoError(t, err)

	require.Len(t, f.requests, 1)
	q := f.requests[0].Query
	assert.Equal(t, "{Status} = 'MVP'", q["filterByFormula"])
	assert.Equal(t, FieldLastUpdated, q["sort[0][field]"])
	assert.Equal(t, "desc", q["sort[0][direction]"])
}

func TestListFollowsPagination(t *testing.T) {
	f, client := newFakeAirtable(t)
	f.reply("GET /appBase/Projects",
		`{"records":[{"id":"rec1","fields":{}}],"offset":"page2"}`,
		`{"records":[{"id":"rec2","fields":{}}]}`,
	)

	recs, err := client.ProjectsByOwner(context.Background(), "42")
	require.NoError(t, err)
	require.Len(t, recs, 2)
	assert.Equal(t, "rec1", recs[0].ID)
	assert.Equal(t, "rec2", recs[1].ID)

	require.Len(t, f.requests, 2)
	assert.Empty(t, f.requests[0].Query["offset"])
	assert.Equal(t, "page2", f.requests[1].Query["offset"])
}

func TestErrorStatusSurfacesCode(t *testing.T) {
	f, client := newFakeAirtable(t)
	f.failWith("POST /appBase/Projects", http.StatusUnprocessableEntity, `{"error":{"type":"INVALID_REQUEST_BODY"}}`)

	_, err := client.CreateProject(context.Background(), map[string]any{FieldProjectName: "x"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "422")
}
