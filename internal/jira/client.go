package jira

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// ErrNotFound is returned when the issue key does not exist.
var ErrNotFound = errors.New("jira issue not found")

// ErrUnauthorized is returned when Jira rejects the credentials. Callers
// treat this differently from a missing issue: it means the bot is
// misconfigured, not that the user typed a bad key.
var ErrUnauthorized = errors.New("jira authentication failed")

// Issue is the flattened view of a Jira issue used in task payloads and
// agent prompts.
type Issue struct {
	Key         string    `json:"key"`
	Summary     string    `json:"summary"`
	Description string    `json:"description"`
	Status      string    `json:"status"`
	Priority    string    `json:"priority"`
	Assignee    string    `json:"assignee"`
	Reporter    string    `json:"reporter"`
	IssueType   string    `json:"issue_type"`
	Created     string    `json:"created"`
	Updated     string    `json:"updated"`
	Labels      []string  `json:"labels"`
	Components  []string  `json:"components"`
	URL         string    `json:"url"`
	Comments    []Comment `json:"comments,omitempty"`
}

type Comment struct {
	Author  string `json:"author"`
	Created string `json:"created"`
	Body    string `json:"body"`
}

// Client talks to the Jira Cloud REST API v3 with basic auth.
type Client struct {
	baseURL    string
	authHeader string
	httpClient *http.Client
}

func NewClient(jiraURL, email, apiToken string) *Client {
	credentials := base64.StdEncoding.EncodeToString([]byte(email + ":" + apiToken))
	return &Client{
		baseURL:    strings.TrimSuffix(jiraURL, "/"),
		authHeader: "Basic " + credentials,
		httpClient: &http.Client{Timeout: 30 * time.Second},
	}
}

const issueFields = "summary,description,status,priority,assignee,reporter,created,updated,issuetype,labels,components"

// GetIssue fetches a single issue without comments.
func (c *Client) GetIssue(ctx context.Context, issueKey string) (*Issue, error) {
	endpoint := fmt.Sprintf("%s/rest/api/3/issue/%s?fields=%s", c.baseURL, url.PathEscape(issueKey), url.QueryEscape(issueFields))

	var raw rawIssue
	if err := c.getJSON(ctx, endpoint, &raw); err != nil {
		return nil, err
	}
	return c.formatIssue(&raw), nil
}

// GetIssueWithComments fetches an issue and its comment thread. A failure
// fetching comments is not fatal: the issue is returned without them.
func (c *Client) GetIssueWithComments(ctx context.Context, issueKey string) (*Issue, error) {
	issue, err := c.GetIssue(ctx, issueKey)
	if err != nil {
		return nil, err
	}

	endpoint := fmt.Sprintf("%s/rest/api/3/issue/%s/comment", c.baseURL, url.PathEscape(issueKey))
	var raw rawComments
	if err := c.getJSON(ctx, endpoint, &raw); err != nil {
		issue.Comments = []Comment{}
		return issue, nil
	}

	comments := make([]Comment, 0, len(raw.Comments))
	for _, rc := range raw.Comments {
		comments = append(comments, Comment{
			Author:  displayName(rc.Author, "Unknown"),
			Created: rc.Created,
			Body:    extractText(rc.Body),
		})
	}
	issue.Comments = comments
	return issue, nil
}

func (c *Client) getJSON(ctx context.Context, endpoint string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return fmt.Errorf("failed to build jira request: %w", err)
	}
	req.Header.Set("Authorization", c.authHeader)
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("jira request failed: %w", err)
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK:
		return json.NewDecoder(resp.Body).Decode(out)
	case http.StatusNotFound:
		return ErrNotFound
	case http.StatusUnauthorized, http.StatusForbidden:
		return ErrUnauthorized
	default:
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("jira returned status %d: %s", resp.StatusCode, string(body))
	}
}

type rawUser struct {
	DisplayName string `json:"displayName"`
}

type rawIssue struct {
	Key    string `json:"key"`
	Fields struct {
		Summary     string          `json:"summary"`
		Description json.RawMessage `json:"description"`
		Status      struct {
			Name string `json:"name"`
		} `json:"status"`
		Priority struct {
			Name string `json:"name"`
		} `json:"priority"`
		Assignee  *rawUser `json:"assignee"`
		Reporter  *rawUser `json:"reporter"`
		IssueType struct {
			Name string `json:"name"`
		} `json:"issuetype"`
		Created    string   `json:"created"`
		Updated    string   `json:"updated"`
		Labels     []string `json:"labels"`
		Components []struct {
			Name string `json:"name"`
		} `json:"components"`
	} `json:"fields"`
}

type rawComments struct {
	Comments []struct {
		Author  *rawUser        `json:"author"`
		Created string          `json:"created"`
		Body    json.RawMessage `json:"body"`
	} `json:"comments"`
}

func (c *Client) formatIssue(raw *rawIssue) *Issue {
	components := make([]string, 0, len(raw.Fields.Components))
	for _, comp := range raw.Fields.Components {
		components = append(components, comp.Name)
	}

	issueType := raw.Fields.IssueType.Name
	if issueType == "" {
		issueType = "Unknown"
	}
	status := raw.Fields.Status.Name
	if status == "" {
		status = "Unknown"
	}
	priority := raw.Fields.Priority.Name
	if priority == "" {
		priority = "None"
	}

	return &Issue{
		Key:         raw.Key,
		Summary:     raw.Fields.Summary,
		Description: extractText(raw.Fields.Description),
		Status:      status,
		Priority:    priority,
		Assignee:    displayName(raw.Fields.Assignee, "Unassigned"),
		Reporter:    displayName(raw.Fields.Reporter, "Unknown"),
		IssueType:   issueType,
		Created:     raw.Fields.Created,
		Updated:     raw.Fields.Updated,
		Labels:      raw.Fields.Labels,
		Components:  components,
		URL:         fmt.Sprintf("%s/browse/%s", c.baseURL, raw.Key),
	}
}

func displayName(u *rawUser, fallback string) string {
	if u == nil || u.DisplayName == "" {
		return fallback
	}
	return u.DisplayName
}
