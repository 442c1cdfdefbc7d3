package airtable

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/loopline/trackbot/internal/config"
	"github.com/loopline/trackbot/internal/logger"
	"github.com/loopline/trackbot/internal/netutil"
)

const defaultBaseURL = "https://api.airtable.com/v0"

// Client talks to the Airtable REST API for one base.
type Client struct {
	http     *http.Client
	baseURL  string
	apiKey   string
	baseID   string
	projects string
	updates  string
}

// Option customises a Client.
type Option func(*Client)

// WithBaseURL overrides the API root, which is how tests point the client at
// an httptest server.
func WithBaseURL(u string) Option {
	return func(c *Client) { c.baseURL = u }
}

// WithHTTPClient overrides the underlying HTTP client.
func WithHTTPClient(h *http.Client) Option {
	return func(c *Client) { c.http = h }
}

// New builds a client from configuration.
func New(cfg config.AirtableConfig, opts ...Option) *Client {
	c := &Client{
		http:     netutil.BuildHTTPClient(),
		baseURL:  defaultBaseURL,
		apiKey:   cfg.APIKey,
		baseID:   cfg.BaseID,
		projects: cfg.ProjectsTable,
		updates:  cfg.UpdatesTable,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// CreateProject persists a finished new-project conversation and returns the
// record id. The Last Updated stamp is set here so every creation carries it.
func (c *Client) CreateProject(ctx context.Context, fields map[string]any) (string, error) {
	fields[FieldLastUpdated] = time.Now().UTC().Format(time.RFC3339)
	rec, err := c.create(ctx, c.projects, fields)
	if err != nil {
		return "", fmt.Errorf("airtable: create project: %w", err)
	}
	return rec.ID, nil
}

// CreateProjectUpdate persists a progress update linked to its parent
// project, then touches the parent's Last Updated stamp. The link is a
// single-element list of the parent record id under the Project field.
func (c *Client) CreateProjectUpdate(ctx context.Context, projectID string, fields map[string]any) (string, error) {
	now := time.Now().UTC().Format(time.RFC3339)
	fields[FieldProject] = []string{projectID}
	fields[FieldTimestamp] = now

	rec, err := c.create(ctx, c.updates, fields)
	if err != nil {
		return "", fmt.Errorf("airtable: create update: %w", err)
	}

	if err := c.patch(ctx, c.projects, projectID, map[string]any{FieldLastUpdated: now}); err != nil {
		// The update record exists; a stale parent stamp is tolerable.
		logger.Warn(ctx, "airtable", "project.touch.fail",
			slog.String("project_id", projectID),
			slog.String("err", err.Error()),
		)
	}
	return rec.ID, nil
}

// Project fetches one project by record id.
func (c *Client) Project(ctx context.Context, recordID string) (*Record, error) {
	rec, err := c.get(ctx, c.projects, recordID)
	if err != nil {
		return nil, fmt.Errorf("airtable: get project: %w", err)
	}
	return rec, nil
}

// ProjectsByOwner lists projects owned by the given Telegram user.
func (c *Client) ProjectsByOwner(ctx context.Context, ownerID string) ([]Record, error) {
	recs, err := c.list(ctx, c.projects, ownerFormula(ownerID), "", "")
	if err != nil {
		return nil, fmt.Errorf("airtable: projects by owner: %w", err)
	}
	return recs, nil
}

// SearchProjects runs the ANDed criteria search, newest activity first.
// Empty criteria yield no records rather than the whole table.
func (c *Client) SearchProjects(ctx context.Context, crit SearchCriteria) ([]Record, error) {
	formula := searchFormula(crit)
	if formula == "" {
		return nil, nil
	}
	recs, err := c.list(ctx, c.projects, formula, FieldLastUpdated, "desc")
	if err != nil {
		return nil, fmt.Errorf("airtable: search projects: %w", err)
	}
	return recs, nil
}

// ProjectsSince lists projects with activity on or after t, newest first.
func (c *Client) ProjectsSince(ctx context.Context, t time.Time) ([]Record, error) {
	recs, err := c.list(ctx, c.projects, since(FieldLastUpdated, t), FieldLastUpdated, "desc")
	if err != nil {
		return nil, fmt.Errorf("airtable: projects since: %w", err)
	}
	return recs, nil
}

// UpdatesSince lists update records created on or after t, newest first.
func (c *Client) UpdatesSince(ctx context.Context, t time.Time) ([]Record, error) {
	recs, err := c.list(ctx, c.updates, since(FieldTimestamp, t), FieldTimestamp, "desc")
	if err != nil {
		return nil, fmt.Errorf("airtable: updates since: %w", err)
	}
	return recs, nil
}

// ProjectUpdates lists the update records linked to a project, newest first.
func (c *Client) ProjectUpdates(ctx context.Context, projectID string) ([]Record, error) {
	recs, err := c.list(ctx, c.updates, linkedToFormula(projectID), FieldTimestamp, "desc")
	if err != nil {
		return nil, fmt.Errorf("airtable: project updates: %w", err)
	}
	return recs, nil
}

type listResponse struct {
	Records []Record `json:"records"`
	Offset  string   `json:"offset,omitempty"`
}

func (c *Client) list(ctx context.Context, table, formula, sortField, sortDir string) ([]Record, error) {
	var all []Record
	offset := ""
	for {
		q := url.Values{}
		if formula != "" {
			q.Set("filterByFormula", formula)
		}
		if sortField != "" {
			q.Set("sort[0][field]", sortField)
			if sortDir == "" {
				sortDir = "asc"
			}
			q.Set("sort[0][direction]", sortDir)
		}
		if offset != "" {
			q.Set("offset", offset)
		}

		var page listResponse
		if err := c.do(ctx, http.MethodGet, c.tableURL(table)+"?"+q.Encode(), nil, &page); err != nil {
			return nil, err
		}
		all = append(all, page.Records...)
		if page.Offset == "" {
			return all, nil
		}
		offset = page.Offset
	}
}

func (c *Client) get(ctx context.Context, table, recordID string) (*Record, error) {
	var rec Record
	if err := c.do(ctx, http.MethodGet, c.recordURL(table, recordID), nil, &rec); err != nil {
		return nil, err
	}
	return &rec, nil
}

func (c *Client) create(ctx context.Context, table string, fields map[string]any) (*Record, error) {
	body := map[string]any{"fields": fields}
	var rec Record
	if err := c.do(ctx, http.MethodPost, c.tableURL(table), body, &rec); err != nil {
		return nil, err
	}
	return &rec, nil
}

func (c *Client) patch(ctx context.Context, table, recordID string, fields map[string]any) error {
	body := map[string]any{"fields": fields}
	return c.do(ctx, http.MethodPatch, c.recordURL(table, recordID), body, nil)
}

func (c *Client) tableURL(table string) string {
	return c.baseURL + "/" + c.baseID + "/" + url.PathEscape(table)
}

func (c *Client) recordURL(table, recordID string) string {
	return c.tableURL(table) + "/" + url.PathEscape(recordID)
}

func (c *Client) do(ctx context.Context, method, rawURL string, body any, out any) error {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, rawURL, reader)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		logger.Error(ctx, "airtable", "request.fail",
			slog.String("method", method),
			slog.String("err", err.Error()),
			slog.Duration("duration", logger.Took(start)),
		)
		return fmt.Errorf("request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		excerpt, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		logger.Error(ctx, "airtable", "request.fail",
			slog.String("method", method),
			slog.Int("http_code", resp.StatusCode),
			slog.String("body", logger.SanitizeLimit(string(excerpt), 256)),
			slog.Duration("duration", logger.Took(start)),
		)
		return fmt.Errorf("airtable status %d: %s", resp.StatusCode, strconv.Quote(logger.SanitizeLimit(string(excerpt), 128)))
	}

	logger.Debug(ctx, "airtable", "request.ok",
		slog.String("method", method),
		slog.Int("http_code", resp.StatusCode),
		slog.Duration("duration", logger.Took(start)),
	)

	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}
