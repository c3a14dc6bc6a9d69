// Package report normalizes error messages into stable fingerprints and
// reports deduplicated failures to an issue tracker.
package report

import (
	"regexp"
)

// Replacement order matters: timestamps and UUIDs contain digits, so the
// digit collapse must run last or it would destroy the more specific
// patterns first.
var (
	uuidPattern = regexp.MustCompile(`[0-9a-fA-F]{8}-[0-9a-fA-F]{4}-[0-9a-fA-F]{4}-[0-9a-fA-F]{4}-[0-9a-fA-F]{12}`)
	timePattern = regexp.MustCompile(`\d{4}-\d{2}-\d{2}T\d{2}:\d{2}:\d{2}(\.\d+)?(Z|[+-]\d{2}:?\d{2})?`)
	hexPattern  = regexp.MustCompile(`\b[0-9a-fA-F]{8,}\b`)
	numPattern  = regexp.MustCompile(`\d+`)
)

// Fingerprint normalizes an error message into a stable signature.
// Messages differing only in dynamic values (request IDs, timestamps,
// retry counts) normalize to the same fingerprint.
func Fingerprint(message string) string {
	s := uuidPattern.ReplaceAllString(message, "<uuid>")
	s = timePattern.ReplaceAllString(s, "<time>")
	s = hexPattern.ReplaceAllString(s, "<hex>")
	s = numPattern.ReplaceAllString(s, "<num>")
	return s
}
