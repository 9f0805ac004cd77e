// Package identity talks to the card identity server.
package identity

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/Real-Games-Studio/FIRJAN-SeteErros/internal/model"
)

const defaultTimeout = 10 * time.Second

// ScorePayload is the body of a score submission.
type ScorePayload struct {
	NfcID  string `json:"nfcId"`
	GameID int    `json:"gameId"`
	Skill1 int    `json:"skill1"`
	Skill2 int    `json:"skill2"`
	Skill3 int    `json:"skill3"`
}

// NewScorePayload builds the submission body for a card and score.
func NewScorePayload(id string, gameID int, score model.ScoreTriple) ScorePayload {
	return ScorePayload{
		NfcID:  id,
		GameID: gameID,
		Skill1: score.Empathy,
		Skill2: score.Creativity,
		Skill3: score.ProblemSolving,
	}
}

// Attributes holds the skill totals of a card as sent by the server.
type Attributes struct {
	Empathy        int `json:"empathy"`
	Creativity     int `json:"creativity"`
	ProblemSolving int `json:"problem_solving"`
}

// UserResponse is the attribute document returned for a card.
type UserResponse struct {
	NfcID      string      `json:"nfcId"`
	Attributes *Attributes `json:"attributes"`
}

// Client performs identity server calls.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// BaseURL builds the server URL from host and port.
func BaseURL(ip string, port int) string {
	return "http://" + net.JoinHostPort(ip, strconv.Itoa(port))
}

// New creates a client. A non-positive timeout selects the default.
func New(baseURL string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: timeout},
	}
}

// Register announces a card to the server. The returned status code is
// meaningful only when err is nil.
func (c *Client) Register(ctx context.Context, id string) (int, error) {
	return c.post(ctx, id, []byte("{}"))
}

// SubmitScore posts a score for the card in payload.
func (c *Client) SubmitScore(ctx context.Context, payload ScorePayload) (int, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return 0, fmt.Errorf("failed to encode score: %w", err)
	}
	return c.post(ctx, payload.NfcID, body)
}

// FetchAttributes returns the accumulated attributes of a card. A card the
// server does not know yields nil without error.
func (c *Client) FetchAttributes(ctx context.Context, id string) (*model.CardAttributes, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.userURL(id), http.NoBody)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("attribute request failed: %w", err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	if resp.StatusCode == http.StatusNotFound {
		return nil, nil
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("attribute request returned status %d", resp.StatusCode)
	}
	var payload UserResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, fmt.Errorf("failed to decode attributes: %w", err)
	}
	if payload.Attributes == nil {
		return nil, nil
	}
	nfcID := payload.NfcID
	if nfcID == "" {
		nfcID = id
	}
	return &model.CardAttributes{
		NfcID:          nfcID,
		Empathy:        payload.Attributes.Empathy,
		Creativity:     payload.Attributes.Creativity,
		ProblemSolving: payload.Attributes.ProblemSolving,
	}, nil
}

func (c *Client) post(ctx context.Context, id string, body []byte) (int, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.userURL(id), bytes.NewReader(body))
	if err != nil {
		return 0, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return 0, fmt.Errorf("request failed: %w", err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()
	_, _ = io.Copy(io.Discard, resp.Body)
	return resp.StatusCode, nil
}

func (c *Client) userURL(id string) string {
	return c.baseURL + "/users/" + url.PathEscape(id)
}
