package bookreview

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
)

// APIClient wraps outbound calls to the book-review service. Every request
// carries the fixed client timeout, a request id, and the bearer token when
// one is set. The client never touches the cache; it only reports a typed
// result.
type APIClient struct {
	base  string
	http  *http.Client
	token string
}

// NewAPIClient builds a client for the given base URL. A trailing slash on
// the base is tolerated.
func NewAPIClient(base string, timeout time.Duration) *APIClient {
	return &APIClient{
		base: strings.TrimRight(base, "/"),
		http: &http.Client{Timeout: timeout},
	}
}

// SetToken installs (or clears, with "") the session token sent on
// subsequent requests.
func (c *APIClient) SetToken(token string) { c.token = token }

// Token returns the currently installed session token.
func (c *APIClient) Token() string { return c.token }

// detailReply is the error body shape the service uses.
type detailReply struct {
	Detail json.RawMessage `json:"detail"`
}

// Do issues one request and decodes a 2xx response body into out (which may
// be nil). Failures come back as *Failure: no response at all is
// FailUnreachable, an elapsed deadline is FailTimeout, a 403 is
// FailPermission, and any other non-2xx status is FailServer carrying the
// status and the service's detail message. There is no retry.
func (c *APIClient) Do(ctx context.Context, method, path string, body, out any) error {
	var payload []byte
	if body != nil {
		var err error
		payload, err = json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode request body: %w", err)
		}
	}

	req, err := http.NewRequestWithContext(ctx, method, c.base+path, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Request-ID", uuid.NewString())
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return classifyTransport(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return classifyStatus(resp)
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return &Failure{
			Kind:    FailServer,
			Status:  resp.StatusCode,
			Message: fmt.Sprintf("malformed response body: %v", err),
		}
	}
	return nil
}

// Get is shorthand for a body-less GET.
func (c *APIClient) Get(ctx context.Context, path string, out any) error {
	return c.Do(ctx, http.MethodGet, path, nil, out)
}

func classifyTransport(err error) error {
	var nerr net.Error
	if errors.Is(err, context.DeadlineExceeded) || (errors.As(err, &nerr) && nerr.Timeout()) {
		return &Failure{Kind: FailTimeout, Message: "request timed out"}
	}
	return &Failure{Kind: FailUnreachable, Message: err.Error()}
}

func classifyStatus(resp *http.Response) error {
	msg := serverDetail(resp)
	if resp.StatusCode == http.StatusForbidden {
		return &Failure{Kind: FailPermission, Status: resp.StatusCode, Message: msg}
	}
	return &Failure{Kind: FailServer, Status: resp.StatusCode, Message: msg}
}

// serverDetail pulls the human-readable message out of an error response.
// The service answers {"detail": "..."}; anything else is reported verbatim.
func serverDetail(resp *http.Response) string {
	var reply detailReply
	dec := json.NewDecoder(resp.Body)
	if err := dec.Decode(&reply); err == nil && len(reply.Detail) > 0 {
		var s string
		if json.Unmarshal(reply.Detail, &s) == nil {
			return s
		}
		return string(reply.Detail)
	}
	return resp.Status
}
