package extract

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/stretchr/testify/mock"
)

// Model turns free-form record text into a raw JSON object matching the
// schema descriptor. Implementations are opaque: the pipeline treats the
// output as untrusted until Normalize accepts it.
type Model interface {
	Extract(ctx context.Context, text string, schema json.RawMessage) (json.RawMessage, error)
}

// HTTPModel calls an extraction endpoint that accepts {"text", "schema"}
// and returns the extracted object as its JSON response body.
type HTTPModel struct {
	Endpoint string
	Client   *http.Client
}

// NewHTTPModel creates an HTTPModel with a default timeout.
func NewHTTPModel(endpoint string, timeout time.Duration) *HTTPModel {
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	return &HTTPModel{
		Endpoint: endpoint,
		Client:   &http.Client{Timeout: timeout},
	}
}

type modelRequest struct {
	Text   string          `json:"text"`
	Schema json.RawMessage `json:"schema"`
}

// Extract posts the record text and schema to the endpoint and returns the
// response body verbatim.
func (m *HTTPModel) Extract(ctx context.Context, text string, schema json.RawMessage) (json.RawMessage, error) {
	body, err := json.Marshal(modelRequest{Text: text, Schema: schema})
	if err != nil {
		return nil, fmt.Errorf("marshal model request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, m.Endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create model request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := m.Client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("call model endpoint: %w", err)
	}
	defer resp.Body.Close() //nolint:errcheck

	out, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read model response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("model endpoint returned status %d", resp.StatusCode)
	}
	return out, nil
}

// MockModel is a mock implementation of the Model interface for testing.
type MockModel struct {
	mock.Mock
}

// Extract is the mock implementation of the Extract method.
func (m *MockModel) Extract(ctx context.Context, text string, schema json.RawMessage) (json.RawMessage, error) {
	args := m.Called(ctx, text, schema)
	var out json.RawMessage
	if v := args.Get(0); v != nil {
		out = v.(json.RawMessage)
	}
	return out, args.Error(1) //nolint:wrapcheck
}
