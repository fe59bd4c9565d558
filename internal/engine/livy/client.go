package livy

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
)

// Session states reported by Livy.
const (
	stateNotStarted   = "not_started"
	stateStarting     = "starting"
	stateIdle         = "idle"
	stateBusy         = "busy"
	stateShuttingDown = "shutting_down"
	stateError        = "error"
	stateDead         = "dead"
	stateKilled       = "killed"
	stateSuccess      = "success"
)

// Statement states reported by Livy.
const (
	statementWaiting    = "waiting"
	statementRunning    = "running"
	statementAvailable  = "available"
	statementError      = "error"
	statementCancelling = "cancelling"
	statementCancelled  = "cancelled"
)

type createSessionRequest struct {
	Kind string            `json:"kind,omitempty"`
	Name string            `json:"name,omitempty"`
	Conf map[string]string `json:"conf,omitempty"`
}

type session struct {
	ID    int    `json:"id"`
	Name  string `json:"name"`
	State string `json:"state"`
}

type submitStatementRequest struct {
	Code string `json:"code"`
	Kind string `json:"kind,omitempty"`
}

type statement struct {
	ID     int              `json:"id"`
	State  string           `json:"state"`
	Output *statementOutput `json:"output"`
}

type statementOutput struct {
	Status    string                     `json:"status"`
	Data      map[string]json.RawMessage `json:"data"`
	EName     string                     `json:"ename"`
	EValue    string                     `json:"evalue"`
	Traceback []string                   `json:"traceback"`
}

// sqlResult is the application/json payload of a sql statement.
type sqlResult struct {
	Data [][]json.RawMessage `json:"data"`
}

// client speaks the Livy REST API.
type client struct {
	baseURL  string
	http     *http.Client
	username string
	password string
}

func newClient(baseURL, username, password string, httpClient *http.Client) *client {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &client{
		baseURL:  strings.TrimRight(baseURL, "/"),
		http:     httpClient,
		username: username,
		password: password,
	}
}

func (c *client) createSession(ctx context.Context, req createSessionRequest) (*session, error) {
	var s session
	if err := c.do(ctx, http.MethodPost, "/sessions", req, &s); err != nil {
		return nil, err
	}
	return &s, nil
}

func (c *client) getSession(ctx context.Context, id int) (*session, error) {
	var s session
	if err := c.do(ctx, http.MethodGet, fmt.Sprintf("/sessions/%d", id), nil, &s); err != nil {
		return nil, err
	}
	return &s, nil
}

func (c *client) deleteSession(ctx context.Context, id int) error {
	return c.do(ctx, http.MethodDelete, fmt.Sprintf("/sessions/%d", id), nil, nil)
}

func (c *client) submitStatement(ctx context.Context, sessionID int, code string) (*statement, error) {
	var st statement
	req := submitStatementRequest{Code: code, Kind: "sql"}
	if err := c.do(ctx, http.MethodPost, fmt.Sprintf("/sessions/%d/statements", sessionID), req, &st); err != nil {
		return nil, err
	}
	return &st, nil
}

func (c *client) getStatement(ctx context.Context, sessionID, statementID int) (*statement, error) {
	var st statement
	if err := c.do(ctx, http.MethodGet, fmt.Sprintf("/sessions/%d/statements/%d", sessionID, statementID), nil, &st); err != nil {
		return nil, err
	}
	return &st, nil
}

// httpError is a non-2xx Livy response.
type httpError struct {
	Method string
	Path   string
	Status int
	Body   string
}

func (e *httpError) Error() string {
	msg := fmt.Sprintf("livy %s %s: HTTP %d", e.Method, e.Path, e.Status)
	if e.Body != "" {
		msg += ": " + e.Body
	}
	return msg
}

func (c *client) do(ctx context.Context, method, path string, in, out any) error {
	var body io.Reader
	if in != nil {
		data, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("encode livy request: %w", err)
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("build livy request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Content-Type", "application/json")
	// Required by Livy servers running with CSRF protection.
	req.Header.Set("X-Requested-By", "hiveseed")
	if c.username != "" {
		req.SetBasicAuth(c.username, c.password)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return &httpError{Method: method, Path: path, Status: resp.StatusCode, Body: strings.TrimSpace(string(msg))}
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode livy %s %s response: %w", method, path, err)
	}
	return nil
}
