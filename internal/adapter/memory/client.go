// Package memory provides a typed client for the external MemMachine
// memory service. The service is a ranked-retrieval oracle: results come
// back pre-sorted by relevance and this client makes no assumptions about
// the scoring algorithm.
package memory

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// Client is the MemMachine HTTP client.
type Client struct {
	baseURL     string
	groupPrefix string
	agentID     string
	httpClient  *http.Client
}

// NewClient creates a new MemMachine client. Every call is bounded by
// timeout; a hung memory service must never block a chat turn.
func NewClient(baseURL, groupPrefix, agentID string, timeout time.Duration) *Client {
	return &Client{
		baseURL:     strings.TrimSuffix(baseURL, "/"),
		groupPrefix: groupPrefix,
		agentID:     agentID,
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

// Scope identifies the memory partition a call operates on.
type Scope struct {
	GroupScope string
	UserID     string
	SessionID  string
}

// sessionPayload is the wire form of a Scope.
type sessionPayload struct {
	GroupID   string   `json:"group_id"`
	AgentID   []string `json:"agent_id"`
	UserID    []string `json:"user_id"`
	SessionID string   `json:"session_id"`
}

func (c *Client) sessionPayload(scope Scope) sessionPayload {
	sid := scope.SessionID
	if sid == "" {
		sid = "sess-" + scope.UserID
	}
	return sessionPayload{
		GroupID:   c.groupPrefix + "-" + scope.GroupScope,
		AgentID:   []string{c.agentID},
		UserID:    []string{scope.UserID},
		SessionID: sid,
	}
}

// SearchRequest is a scoped retrieval request.
type SearchRequest struct {
	Scope           Scope
	Query           string
	Limit           int
	IncludeEpisodic bool
	IncludeProfile  bool
}

// Result is a single ranked memory item.
type Result struct {
	Content  string                 `json:"episode_content"`
	Metadata map[string]interface{} `json:"metadata,omitempty"`
	Score    float64                `json:"score,omitempty"`
}

// SearchResponse carries ranked results per memory kind. Either set may
// be empty; that is not an error.
type SearchResponse struct {
	EpisodicResults []Result `json:"episodic_results"`
	ProfileResults  []Result `json:"profile_results"`
}

type searchPayload struct {
	Session sessionPayload         `json:"session"`
	Query   string                 `json:"query"`
	Filter  map[string]interface{} `json:"filter"`
	Limit   int                    `json:"limit"`
}

// Search issues a scoped retrieval request. A memory kind excluded by the
// request flags comes back empty.
func (c *Client) Search(ctx context.Context, req SearchRequest) (*SearchResponse, error) {
	payload := searchPayload{
		Session: c.sessionPayload(req.Scope),
		Query:   req.Query,
		Filter:  map[string]interface{}{},
		Limit:   req.Limit,
	}

	var resp SearchResponse
	if err := c.post(ctx, "/v1/memories/search", payload, &resp); err != nil {
		return nil, err
	}
	if !req.IncludeEpisodic {
		resp.EpisodicResults = nil
	}
	if !req.IncludeProfile {
		resp.ProfileResults = nil
	}
	return &resp, nil
}

type writePayload struct {
	Session        sessionPayload         `json:"session"`
	Producer       string                 `json:"producer"`
	ProducedFor    string                 `json:"produced_for"`
	EpisodeContent string                 `json:"episode_content"`
	EpisodeType    string                 `json:"episode_type"`
	Metadata       map[string]interface{} `json:"metadata"`
}

func (c *Client) writePayload(scope Scope, text, episodeType string, metadata map[string]interface{}) writePayload {
	if metadata == nil {
		metadata = map[string]interface{}{}
	}
	return writePayload{
		Session:        c.sessionPayload(scope),
		Producer:       c.agentID,
		ProducedFor:    scope.UserID,
		EpisodeContent: text,
		EpisodeType:    episodeType,
		Metadata:       metadata,
	}
}

// AddEpisodic records a single durable event for episodic retrieval.
func (c *Client) AddEpisodic(ctx context.Context, scope Scope, text, episodeType string, metadata map[string]interface{}) error {
	return c.post(ctx, "/v1/memories/episodic", c.writePayload(scope, text, episodeType, metadata), nil)
}

// AddProfile records a durable fact for semantic (profile) retrieval.
func (c *Client) AddProfile(ctx context.Context, scope Scope, text, episodeType string, metadata map[string]interface{}) error {
	return c.post(ctx, "/v1/memories/profile", c.writePayload(scope, text, episodeType, metadata), nil)
}

func (c *Client) post(ctx context.Context, path string, payload interface{}, out interface{}) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("memory service error [%d]: %s", resp.StatusCode, string(respBody))
	}

	if out != nil {
		if err := json.Unmarshal(respBody, out); err != nil {
			return fmt.Errorf("failed to unmarshal response: %w", err)
		}
	}
	return nil
}
