package transport

import (
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
)

// JSON-RPC 2.0 messages. Requests carry a unique correlation id; responses
// echo it with either a result or an error object.
type rpcRequest struct {
	JSONRPC string                 `json:"jsonrpc"`
	ID      string                 `json:"id"`
	Method  string                 `json:"method"`
	Params  map[string]interface{} `json:"params"`
}

type rpcResponse struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      interface{}     `json:"id"`
	Result  json.RawMessage `json:"result,omitempty"`
	Error   *rpcError       `json:"error,omitempty"`
}

type rpcError struct {
	Code    int         `json:"code"`
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
}

// newRequest builds a request with a fresh correlation id.
func newRequest(method string, params map[string]interface{}) rpcRequest {
	if params == nil {
		params = map[string]interface{}{}
	}
	return rpcRequest{
		JSONRPC: "2.0",
		ID:      uuid.NewString(),
		Method:  method,
		Params:  params,
	}
}

// encodeRequest serializes a request as one self-contained message.
func encodeRequest(req rpcRequest) ([]byte, error) {
	data, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("failed to encode request: %w", err)
	}
	return data, nil
}

// decodeRequest parses a request on the peer side.
func decodeRequest(data []byte) (rpcRequest, error) {
	var req rpcRequest
	if err := json.Unmarshal(data, &req); err != nil {
		return rpcRequest{}, fmt.Errorf("failed to decode request: %w", err)
	}
	return req, nil
}

// decodeResponse parses a response message and unwraps its result object. An
// empty message, unparseable payload, or explicit error envelope yields a
// *ProtocolError.
func decodeResponse(serverID string, data []byte) (*rpcResponse, map[string]interface{}, error) {
	if len(data) == 0 {
		return nil, nil, &ProtocolError{ServerID: serverID, Message: "empty response"}
	}

	var resp rpcResponse
	if err := json.Unmarshal(data, &resp); err != nil {
		return nil, nil, &ProtocolError{ServerID: serverID, Message: fmt.Sprintf("malformed response: %v", err)}
	}

	if resp.Error != nil {
		return &resp, nil, &ProtocolError{ServerID: serverID, Code: resp.Error.Code, Message: resp.Error.Message}
	}

	result := map[string]interface{}{}
	if len(resp.Result) > 0 {
		if err := json.Unmarshal(resp.Result, &result); err != nil {
			return &resp, nil, &ProtocolError{ServerID: serverID, Message: fmt.Sprintf("malformed result: %v", err)}
		}
	}

	return &resp, result, nil
}

// responseID normalizes the echoed id for correlation checks.
func responseID(resp *rpcResponse) string {
	if resp == nil {
		return ""
	}
	if s, ok := resp.ID.(string); ok {
		return s
	}
	return fmt.Sprintf("%v", resp.ID)
}
