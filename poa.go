package multiprovider

import (
	"encoding/json"
	"strings"

	"go.uber.org/zap"
)

// Block-returning methods whose responses may carry PoA extra data.
var poaSanitizedMethods = map[string]struct{}{
	"eth_getBlockByHash":   {},
	"eth_getBlockByNumber": {},
}

// A conformant block carries at most 32 bytes of extra data, hex encoded
// with a 0x prefix.
const maxExtraDataLen = 2 + 2*32

// sanitizePoAResponse rewrites proof-of-authority blocks whose extraData
// field exceeds the protocol limit, moving the value to proofOfAuthorityData
// the way PoA-aware tooling expects. It is a no-op for every other method
// and leaves the response untouched on any parse trouble.
func sanitizePoAResponse(method string, resp *Response, logger *zap.Logger) {
	if _, ok := poaSanitizedMethods[method]; !ok {
		return
	}
	if resp == nil || resp.Error != nil || len(resp.Result) == 0 {
		return
	}

	var block map[string]json.RawMessage
	if err := json.Unmarshal(resp.Result, &block); err != nil {
		return
	}
	extraData, ok := block["extraData"]
	if !ok {
		return
	}
	if _, ok := block["proofOfAuthorityData"]; ok {
		return
	}

	var value string
	if err := json.Unmarshal(extraData, &value); err != nil {
		return
	}
	if !strings.HasPrefix(value, "0x") || len(value) <= maxExtraDataLen {
		return
	}

	block["proofOfAuthorityData"] = extraData
	delete(block, "extraData")
	cleaned, err := json.Marshal(block)
	if err != nil {
		return
	}

	logger.Debug("PoA blockchain cleanup response")
	resp.Result = cleaned
}
