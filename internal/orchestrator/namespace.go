package orchestrator

import (
	"strings"
	"unicode"

	"ingest-api/cmd/defines"
)

const namespaceSeparator = "-"

// DeriveNamespace maps a source location onto a stable vector-store namespace.
// s3://bucket/clients/acme/ becomes "clients-acme"; a location with nothing
// below the bucket becomes defines.DefaultNamespace.
func DeriveNamespace(sourceLocation string) string {
	loc := strings.TrimSpace(sourceLocation)
	if i := strings.Index(loc, "://"); i >= 0 {
		loc = loc[i+3:]
	}

	parts := strings.Split(loc, "/")
	if len(parts) <= 1 {
		return defines.DefaultNamespace
	}

	var segments []string
	for _, p := range parts[1:] {
		if strings.TrimSpace(p) != "" {
			segments = append(segments, strings.TrimSpace(p))
		}
	}
	if len(segments) == 0 {
		return defines.DefaultNamespace
	}

	joined := strings.ToLower(strings.Join(segments, namespaceSeparator))
	return strings.Map(func(r rune) rune {
		if r == '_' || unicode.IsSpace(r) {
			return '-'
		}
		return r
	}, joined)
}
