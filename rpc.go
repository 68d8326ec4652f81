package multiprovider

import (
	"encoding/json"
	"errors"
	"fmt"
	"sync/atomic"
)

const jsonrpcVersion = "2.0"

// Request is a single JSON-RPC request payload.
type Request struct {
	JSONRPC string `json:"jsonrpc"`
	ID      uint64 `json:"id"`
	Method  string `json:"method"`
	Params  []any  `json:"params"`
}

// RPCError is the error member of a JSON-RPC response. A response carrying
// one is still a successful transport outcome and is returned to the caller
// without failover.
type RPCError struct {
	Code    int             `json:"code"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data,omitempty"`
}

func (e *RPCError) Error() string {
	return fmt.Sprintf("rpc error %d: %s", e.Code, e.Message)
}

// Response is a decoded JSON-RPC response.
type Response struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      uint64          `json:"id"`
	Result  json.RawMessage `json:"result,omitempty"`
	Error   *RPCError       `json:"error,omitempty"`
}

// BatchElem is one call inside a batch request. Response is filled in when
// the batch exchange succeeds as a whole; a call answered with a JSON-RPC
// error carries it in Response.Error and is not retried.
type BatchElem struct {
	Method   string
	Params   []any
	Response *Response
}

var requestCounter atomic.Uint64

func nextRequestID() uint64 {
	return requestCounter.Add(1)
}

func encodeRequest(method string, params []any) ([]byte, uint64, error) {
	if method == "" {
		return nil, 0, errors.New("empty method name")
	}
	if params == nil {
		params = []any{}
	}
	id := nextRequestID()
	body, err := json.Marshal(Request{
		JSONRPC: jsonrpcVersion,
		ID:      id,
		Method:  method,
		Params:  params,
	})
	if err != nil {
		return nil, 0, err
	}
	return body, id, nil
}

func encodeBatch(batch []BatchElem) ([]byte, []uint64, error) {
	requests := make([]Request, len(batch))
	ids := make([]uint64, len(batch))
	for i, elem := range batch {
		if elem.Method == "" {
			return nil, nil, fmt.Errorf("empty method name in batch element %d", i)
		}
		params := elem.Params
		if params == nil {
			params = []any{}
		}
		ids[i] = nextRequestID()
		requests[i] = Request{
			JSONRPC: jsonrpcVersion,
			ID:      ids[i],
			Method:  elem.Method,
			Params:  params,
		}
	}
	body, err := json.Marshal(requests)
	if err != nil {
		return nil, nil, err
	}
	return body, ids, nil
}

func decodeResponse(raw []byte) (*Response, error) {
	resp := new(Response)
	if err := json.Unmarshal(raw, resp); err != nil {
		return nil, fmt.Errorf("undecodable response body: %w", err)
	}
	return resp, nil
}

// decodeBatchResponse matches responses back to batch elements by request
// id. Batch elements are only filled in when the whole body decodes and
// every element was answered.
func decodeBatchResponse(raw []byte, ids []uint64, batch []BatchElem) error {
	var responses []*Response
	if err := json.Unmarshal(raw, &responses); err != nil {
		return fmt.Errorf("undecodable batch response body: %w", err)
	}
	byID := make(map[uint64]*Response, len(responses))
	for _, resp := range responses {
		if resp == nil {
			return errors.New("batch response contains a null element")
		}
		byID[resp.ID] = resp
	}
	matched := make([]*Response, len(batch))
	for i := range batch {
		resp, ok := byID[ids[i]]
		if !ok {
			return fmt.Errorf("batch response is missing id %d", ids[i])
		}
		matched[i] = resp
	}
	for i := range batch {
		batch[i].Response = matched[i]
	}
	return nil
}
