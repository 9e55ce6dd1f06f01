package kafka

import (
	"encoding/json"
	"time"
)

// ExecutionRequest asks the worker to run a stored mapping against Data.
// When Data is a JSON array every item is executed on its own.
type ExecutionRequest struct {
	RequestID string          `json:"request_id"`
	TenantID  string          `json:"tenant_id"`
	MappingID string          `json:"mapping_id"`
	Data      json.RawMessage `json:"data"`
}

// ParseExecutionRequest parses a raw Kafka value.
func ParseExecutionRequest(data []byte) (*ExecutionRequest, error) {
	var req ExecutionRequest
	if err := json.Unmarshal(data, &req); err != nil {
		return nil, err
	}
	return &req, nil
}

// Items splits the request data into execution inputs. A JSON array yields
// one input per item; anything else is a single input.
func (r *ExecutionRequest) Items() ([]any, bool, error) {
	if len(r.Data) == 0 {
		return []any{nil}, false, nil
	}

	var value any
	if err := json.Unmarshal(r.Data, &value); err != nil {
		return nil, false, err
	}

	if items, ok := value.([]any); ok {
		return items, true, nil
	}
	return []any{value}, false, nil
}

type ExecutionError struct {
	Stage   string         `json:"stage"`
	Message string         `json:"message"`
	Meta    map[string]any `json:"meta,omitempty"`
}

// ExecutionResult is published for every executed input. ItemIndex is set
// when the request data was an array.
type ExecutionResult struct {
	RequestID      string          `json:"request_id"`
	TenantID       string          `json:"tenant_id"`
	MappingID      string          `json:"mapping_id"`
	MappingVersion int             `json:"mapping_version"`
	ItemIndex      *int            `json:"item_index,omitempty"`
	Timestamp      time.Time       `json:"timestamp"`
	Data           map[string]any  `json:"data,omitempty"`
	Error          *ExecutionError `json:"error,omitempty"`

	TraceParent string `json:"-"`
}

func (m *ExecutionResult) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

func (m *ExecutionResult) Failed() bool {
	return m.Error != nil
}

// MessageHeaders are copied onto every message so consumers can route
// without decoding the body.
type MessageHeaders struct {
	TenantID    string
	RequestID   string
	MappingID   string
	TraceParent string
}

func (h *MessageHeaders) ToKafkaHeaders() []Header {
	headers := make([]Header, 0, 4)

	if h.TenantID != "" {
		headers = append(headers, Header{Key: "tenant_id", Value: []byte(h.TenantID)})
	}
	if h.RequestID != "" {
		headers = append(headers, Header{Key: "request_id", Value: []byte(h.RequestID)})
	}
	if h.MappingID != "" {
		headers = append(headers, Header{Key: "mapping_id", Value: []byte(h.MappingID)})
	}
	if h.TraceParent != "" {
		headers = append(headers, Header{Key: "traceparent", Value: []byte(h.TraceParent)})
	}

	return headers
}

type Header struct {
	Key   string
	Value []byte
}

func ExtractHeaders(headers []Header) MessageHeaders {
	var mh MessageHeaders
	for _, h := range headers {
		switch h.Key {
		case "tenant_id":
			mh.TenantID = string(h.Value)
		case "request_id":
			mh.RequestID = string(h.Value)
		case "mapping_id":
			mh.MappingID = string(h.Value)
		case "traceparent":
			mh.TraceParent = string(h.Value)
		}
	}
	return mh
}
