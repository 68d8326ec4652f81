package multiprovider

import (
	"encoding/json"
	"testing"
)

func TestEncodeRequest(t *testing.T) {
	body, id, err := encodeRequest("eth_getBalance", []any{"0xabc", "latest"})
	if err != nil {
		t.Fatalf("encodeRequest() returned error: %v", err)
	}

	var req Request
	if err := json.Unmarshal(body, &req); err != nil {
		t.Fatalf("encoded body does not decode: %v", err)
	}
	if req.JSONRPC != jsonrpcVersion {
		t.Errorf("jsonrpc = %q, want %q", req.JSONRPC, jsonrpcVersion)
	}
	if req.ID != id {
		t.Errorf("id mismatch: body %d, returned %d", req.ID, id)
	}
	if req.Method != "eth_getBalance" {
		t.Errorf("method = %q", req.Method)
	}
	if len(req.Params) != 2 {
		t.Errorf("params length = %d, want 2", len(req.Params))
	}
}

func TestEncodeRequestNilParamsBecomeEmptyArray(t *testing.T) {
	body, _, err := encodeRequest("eth_blockNumber", nil)
	if err != nil {
		t.Fatalf("encodeRequest() returned error: %v", err)
	}
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(body, &raw); err != nil {
		t.Fatalf("encoded body does not decode: %v", err)
	}
	if string(raw["params"]) != "[]" {
		t.Errorf("params = %s, want []", raw["params"])
	}
}

func TestEncodeRequestRejectsEmptyMethod(t *testing.T) {
	if _, _, err := encodeRequest("", nil); err == nil {
		t.Fatal("expected an error for an empty method")
	}
}

func TestEncodeRequestIDsAreUnique(t *testing.T) {
	_, first, err := encodeRequest("eth_blockNumber", nil)
	if err != nil {
		t.Fatal(err)
	}
	_, second, err := encodeRequest("eth_blockNumber", nil)
	if err != nil {
		t.Fatal(err)
	}
	if first == second {
		t.Errorf("consecutive request ids collide: %d", first)
	}
}

func TestDecodeBatchResponseMatchesByID(t *testing.T) {
	batch := []BatchElem{
		{Method: "eth_blockNumber"},
		{Method: "eth_chainId"},
	}
	body, ids, err := encodeBatch(batch)
	if err != nil {
		t.Fatalf("encodeBatch() returned error: %v", err)
	}
	var requests []Request
	if err := json.Unmarshal(body, &requests); err != nil {
		t.Fatalf("encoded batch does not decode: %v", err)
	}

	// Answer in reverse order; matching must go by id, not position.
	responses := []Response{
		{JSONRPC: jsonrpcVersion, ID: ids[1], Result: json.RawMessage(`"0x1"`)},
		{JSONRPC: jsonrpcVersion, ID: ids[0], Result: json.RawMessage(`"0x10"`)},
	}
	raw, err := json.Marshal(responses)
	if err != nil {
		t.Fatal(err)
	}

	if err := decodeBatchResponse(raw, ids, batch); err != nil {
		t.Fatalf("decodeBatchResponse() returned error: %v", err)
	}
	if string(batch[0].Response.Result) != `"0x10"` {
		t.Errorf("element 0 result = %s, want \"0x10\"", batch[0].Response.Result)
	}
	if string(batch[1].Response.Result) != `"0x1"` {
		t.Errorf("element 1 result = %s, want \"0x1\"", batch[1].Response.Result)
	}
}

func TestDecodeBatchResponseMissingIDLeavesBatchUntouched(t *testing.T) {
	batch := []BatchElem{
		{Method: "eth_blockNumber"},
		{Method: "eth_chainId"},
	}
	_, ids, err := encodeBatch(batch)
	if err != nil {
		t.Fatal(err)
	}

	raw, err := json.Marshal([]Response{
		{JSONRPC: jsonrpcVersion, ID: ids[0], Result: json.RawMessage(`"0x10"`)},
	})
	if err != nil {
		t.Fatal(err)
	}

	if err := decodeBatchResponse(raw, ids, batch); err == nil {
		t.Fatal("expected an error for an incomplete batch response")
	}
	for i := range batch {
		if batch[i].Response != nil {
			t.Errorf("element %d was filled in despite the failure", i)
		}
	}
}

func TestDecodeBatchResponseRejectsNullElements(t *testing.T) {
	batch := []BatchElem{
		{Method: "eth_blockNumber"},
		{Method: "eth_chainId"},
	}
	_, ids, err := encodeBatch(batch)
	if err != nil {
		t.Fatal(err)
	}

	if err := decodeBatchResponse([]byte(`[null, null]`), ids, batch); err == nil {
		t.Fatal("expected an error for null batch response elements")
	}
	for i := range batch {
		if batch[i].Response != nil {
			t.Errorf("element %d was filled in despite the failure", i)
		}
	}
}

func TestEncodeBatchRejectsEmptyMethod(t *testing.T) {
	if _, _, err := encodeBatch([]BatchElem{{Method: ""}}); err == nil {
		t.Fatal("expected an error for an empty method in a batch")
	}
}
