package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/cpcoders/codetrack/internal/convert"
)

// apiClient is a thin JSON client over the server's REST API.
type apiClient struct {
	base   string
	token  string
	client *http.Client
}

func newClient(base, token string) *apiClient {
	return &apiClient{
		base:   base,
		token:  token,
		client: &http.Client{Timeout: 30 * time.Second},
	}
}

type apiError struct {
	Status int
	Msg    string
}

func (e *apiError) Error() string {
	return fmt.Sprintf("server: %d %s", e.Status, e.Msg)
}

// doJSON performs one request; in decodes from the response body into out
// when out is non-nil.
func (c *apiClient) doJSON(ctx context.Context, method, path string, in, out any) error {
	var body io.Reader
	if in != nil {
		b, err := json.Marshal(in)
		if err != nil {
			return err
		}
		body = bytes.NewReader(b)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.base+path, body)
	if err != nil {
		return err
	}
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		var eb struct {
			Error string `json:"error"`
		}
		_ = json.NewDecoder(resp.Body).Decode(&eb)
		return &apiError{Status: resp.StatusCode, Msg: eb.Error}
	}
	if out == nil {
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

// --- auth ---

type loginResult struct {
	AccessToken string          `json:"accessToken"`
	ExpiresAt   string          `json:"expiresAt"`
	User        convert.UserDTO `json:"user"`
}

func (c *apiClient) register(ctx context.Context, username, name, email, password string) (string, error) {
	var out struct {
		UserID string `json:"userId"`
	}
	err := c.doJSON(ctx, http.MethodPost, "/api/auth/register", map[string]string{
		"username": username, "name": name, "email": email, "password": password,
	}, &out)
	return out.UserID, err
}

func (c *apiClient) login(ctx context.Context, email, password string) (loginResult, error) {
	var out loginResult
	err := c.doJSON(ctx, http.MethodPost, "/api/auth/login", map[string]string{
		"email": email, "password": password,
	}, &out)
	return out, err
}

func (c *apiClient) loginGoogle(ctx context.Context, idToken string) (loginResult, error) {
	var out loginResult
	err := c.doJSON(ctx, http.MethodPost, "/api/auth/google", map[string]string{
		"idToken": idToken,
	}, &out)
	return out, err
}

func (c *apiClient) profile(ctx context.Context) (convert.UserDTO, error) {
	var out convert.UserDTO
	err := c.doJSON(ctx, http.MethodGet, "/api/profile", nil, &out)
	return out, err
}

// --- questions ---

type upsertResult struct {
	Quest   convert.QuestionDTO `json:"quest"`
	Created bool                `json:"created"`
}

func (c *apiClient) upsertQuest(ctx context.Context, in convert.QuestionInputDTO) (upsertResult, error) {
	var out upsertResult
	err := c.doJSON(ctx, http.MethodPost, "/api/quests/upsert", in, &out)
	return out, err
}

type listResult struct {
	Quests     []convert.QuestionDTO `json:"quests"`
	Pagination convert.PaginationDTO `json:"pagination"`
}

func (c *apiClient) listQuests(ctx context.Context, query url.Values) (listResult, error) {
	path := "/api/quests"
	if len(query) > 0 {
		path += "?" + query.Encode()
	}
	var out listResult
	err := c.doJSON(ctx, http.MethodGet, path, nil, &out)
	return out, err
}

func (c *apiClient) getQuest(ctx context.Context, id string) (convert.QuestionDTO, error) {
	var out convert.QuestionDTO
	err := c.doJSON(ctx, http.MethodGet, "/api/quests/"+id, nil, &out)
	return out, err
}

func (c *apiClient) setStatus(ctx context.Context, id, status string) (convert.QuestionDTO, error) {
	var out convert.QuestionDTO
	err := c.doJSON(ctx, http.MethodPatch, "/api/quests/"+id+"/status", map[string]string{"status": status}, &out)
	return out, err
}

func (c *apiClient) toggleBookmark(ctx context.Context, id string) (convert.QuestionDTO, error) {
	var out convert.QuestionDTO
	err := c.doJSON(ctx, http.MethodPatch, "/api/quests/"+id+"/bookmark", nil, &out)
	return out, err
}

func (c *apiClient) markRevised(ctx context.Context, id string) (convert.QuestionDTO, error) {
	var out convert.QuestionDTO
	err := c.doJSON(ctx, http.MethodPatch, "/api/quests/"+id+"/revise", nil, &out)
	return out, err
}

func (c *apiClient) deleteQuest(ctx context.Context, id string) error {
	return c.doJSON(ctx, http.MethodDelete, "/api/quests/"+id, nil, nil)
}

func (c *apiClient) stats(ctx context.Context) (json.RawMessage, error) {
	var out json.RawMessage
	err := c.doJSON(ctx, http.MethodGet, "/api/quests/stats", nil, &out)
	return out, err
}

func (c *apiClient) topics(ctx context.Context) (json.RawMessage, error) {
	var out json.RawMessage
	err := c.doJSON(ctx, http.MethodGet, "/api/quests/topics", nil, &out)
	return out, err
}

func (c *apiClient) heatmap(ctx context.Context, year int) (json.RawMessage, error) {
	path := "/api/quests/heatmap"
	if year > 0 {
		path += fmt.Sprintf("?year=%d", year)
	}
	var out json.RawMessage
	err := c.doJSON(ctx, http.MethodGet, path, nil, &out)
	return out, err
}
