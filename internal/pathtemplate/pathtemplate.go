// Package pathtemplate collapses REST paths with embedded identifiers into
// stable, bounded-cardinality template strings for metric labels.
package pathtemplate

import "strings"

// rule templates a path segment based on its one or two preceding literal
// segments. Rules are evaluated in priority order, most specific first.
type rule struct {
	// prev2 additionally constrains the segment two positions back.
	prev2 string
	// prev lists the admissible immediately preceding segments.
	prev []string
	// hexOnly restricts the rule to >=32-byte hex segments.
	hexOnly bool
	// always applies the rule to any segment value, identifier-shaped or
	// not.
	always   bool
	template string
}

var rules = []rule{
	{prev2: "validator", prev: []string{"blocks"}, template: "{slot}"},
	{prev: []string{"blocks", "blinded_blocks", "blob_sidecars"}, template: "{block_id}"},
	{prev: []string{"states"}, template: "{state_id}"},
	{prev: []string{"validators"}, template: "{validator_id}"},
	{prev: []string{"duties", "attester", "proposer", "sync", "liveness", "attestations"}, template: "{epoch}"},
	{prev: []string{"committees"}, template: "{committee_index}"},
	{prev: []string{"peers"}, always: true, template: "{peer_id}"},
	{prev: []string{"bootstrap"}, hexOnly: true, template: "{block_root}"},
}

// Template collapses identifier segments of path into placeholders. The
// second return value is false when the path cannot be classified; callers
// must then omit the metric dimension rather than fail.
func Template(path string) (string, bool) {
	if path == "" || !strings.HasPrefix(path, "/") {
		return "", false
	}

	segments := strings.Split(path[1:], "/")
	templated := make([]string, len(segments))
	for i, segment := range segments {
		templated[i] = classify(segment, preceding(segments, i-1), preceding(segments, i-2))
	}
	return "/" + strings.Join(templated, "/"), true
}

func preceding(segments []string, i int) string {
	if i < 0 {
		return ""
	}
	return segments[i]
}

func classify(segment, prev, prev2 string) string {
	if segment == "" || isTemplated(segment) {
		return segment
	}

	identifier := isNumeric(segment) || isLongHex(segment)
	for _, r := range rules {
		if r.prev2 != "" && r.prev2 != prev2 {
			continue
		}
		if !matches(r.prev, prev) {
			continue
		}
		if r.hexOnly {
			if !isLongHex(segment) {
				continue
			}
			return r.template
		}
		if !r.always && !identifier {
			continue
		}
		return r.template
	}

	if isNumeric(segment) {
		return "{id}"
	}
	if isLongHex(segment) {
		return "{root}"
	}
	return segment
}

func matches(candidates []string, prev string) bool {
	for _, c := range candidates {
		if c == prev {
			return true
		}
	}
	return false
}

func isTemplated(segment string) bool {
	return len(segment) >= 2 && segment[0] == '{' && segment[len(segment)-1] == '}'
}

func isNumeric(segment string) bool {
	for _, c := range segment {
		if c < '0' || c > '9' {
			return false
		}
	}
	return segment != ""
}

// isLongHex reports whether segment is a 0x-prefixed hex value of at least
// 32 bytes, the shape of roots and block hashes.
func isLongHex(segment string) bool {
	if len(segment) < 2+64 || !strings.HasPrefix(segment, "0x") {
		return false
	}
	for _, c := range segment[2:] {
		switch {
		case c >= '0' && c <= '9':
		case c >= 'a' && c <= 'f':
		case c >= 'A' && c <= 'F':
		default:
			return false
		}
	}
	return true
}
