package ask

import (
	"encoding/json"
	"errors"
	"fmt"
)

// Response is a decoded /ask reply.
type Response struct {
	DebugInfo *DebugInfo `json:"debug_info,omitempty"` // Query diagnostics, when the server sends them
	Result    *Result    `json:"response,omitempty"`   // The answer payload
}

// DebugInfo carries the server's view of how the query was processed.
type DebugInfo struct {
	UserQuery  string         `json:"user_query,omitempty"`
	ParsedData map[string]any `json:"parsed_data,omitempty"`
	SQLQuery   string         `json:"sql_query,omitempty"`
}

// Result is the nested "response" object.
type Result struct {
	RawResults []map[string]any `json:"raw_results,omitempty"` // Rows the server's query produced
	Summary    string           `json:"summary,omitempty"`     // Natural language reply, usually markdown
}

// ErrMalformedResponse is returned by DecodeResponse when the body is not a
// JSON object.
var ErrMalformedResponse = errors.New("malformed response body")

// DecodeResponse parses an /ask body. The top level must be a JSON object;
// nested fields whose shape is unexpected are treated as absent rather than
// failing the whole reply.
func DecodeResponse(body []byte) (*Response, error) {
	var envelope map[string]json.RawMessage
	if err := json.Unmarshal(body, &envelope); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedResponse, err)
	}
	if envelope == nil {
		return nil, fmt.Errorf("%w: null body", ErrMalformedResponse)
	}

	resp := &Response{}

	if raw, ok := envelope["debug_info"]; ok {
		var info DebugInfo
		if json.Unmarshal(raw, &info) == nil {
			resp.DebugInfo = &info
		}
	}

	if raw, ok := envelope["response"]; ok {
		resp.Result = decodeResult(raw)
	}

	return resp, nil
}

func decodeResult(raw json.RawMessage) *Result {
	var fields map[string]json.RawMessage
	if json.Unmarshal(raw, &fields) != nil || fields == nil {
		return nil
	}

	result := &Result{}
	if s, ok := fields["summary"]; ok {
		_ = json.Unmarshal(s, &result.Summary)
	}
	if rows, ok := fields["raw_results"]; ok {
		_ = json.Unmarshal(rows, &result.RawResults)
	}
	return result
}

// Summary returns the reply text and whether the server actually provided one.
func (r *Response) Summary() (string, bool) {
	if r == nil || r.Result == nil || r.Result.Summary == "" {
		return "", false
	}
	return r.Result.Summary, true
}

// RowCount is the number of raw result rows the server reported.
func (r *Response) RowCount() int {
	if r == nil || r.Result == nil {
		return 0
	}
	return len(r.Result.RawResults)
}
