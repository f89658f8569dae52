package smoke

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/okian/halloffame/internal/domain/model"
)

// Route paths on the service under test.
const (
	readyPath   = "/readyz"
	listPath    = "/api/v1/persons"
	personPath  = "/api/v1/person"
	contentType = "application/json"
)

// client wraps http.Client with the service base URL.
type client struct {
	http    *http.Client
	baseURL string
}

func newClient(baseURL string, timeout time.Duration) *client {
	return &client{
		http:    &http.Client{Timeout: timeout},
		baseURL: baseURL,
	}
}

func personURL(id int64) string {
	return personPath + "/" + strconv.FormatInt(id, 10)
}

// do sends body (JSON encoded unless nil or raw bytes) and returns the status
// code and the drained response body.
func (c *client) do(ctx context.Context, method, path string, body any) (int, []byte, error) {
	var reader io.Reader
	switch b := body.(type) {
	case nil:
	case []byte:
		reader = bytes.NewReader(b)
	default:
		data, err := json.Marshal(b)
		if err != nil {
			return 0, nil, fmt.Errorf("failed to marshal request body: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return 0, nil, fmt.Errorf("failed to create request: %w", err)
	}
	if reader != nil {
		req.Header.Set("Content-Type", contentType)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return 0, nil, err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return resp.StatusCode, nil, fmt.Errorf("failed to read response: %w", err)
	}
	return resp.StatusCode, data, nil
}

// expect runs do and fails unless the answer carries want.
func (c *client) expect(ctx context.Context, want int, method, path string, body any) ([]byte, error) {
	code, data, err := c.do(ctx, method, path, body)
	if err != nil {
		return nil, err
	}
	if code != want {
		return nil, fmt.Errorf("%w: %s %s: got %d, want %d", ErrUnexpected, method, path, code, want)
	}
	return data, nil
}

func (c *client) list(ctx context.Context) ([]model.Person, error) {
	data, err := c.expect(ctx, http.StatusOK, http.MethodGet, listPath, nil)
	if err != nil {
		return nil, err
	}
	var people []model.Person
	if err := json.Unmarshal(data, &people); err != nil {
		return nil, fmt.Errorf("failed to decode list: %w", err)
	}
	return people, nil
}

func (c *client) get(ctx context.Context, id int64) (model.Person, error) {
	data, err := c.expect(ctx, http.StatusOK, http.MethodGet, personURL(id), nil)
	if err != nil {
		return model.Person{}, err
	}
	var p model.Person
	if err := json.Unmarshal(data, &p); err != nil {
		return model.Person{}, fmt.Errorf("failed to decode person %d: %w", id, err)
	}
	return p, nil
}
