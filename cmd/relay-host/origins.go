package main

import (
	_ "embed"
	"strings"
)

// originsDelimited is the newline-delimited set of extension origins that
// may launch the host.  Lines starting with '#' are comments.
//
//go:embed origins.txt
var originsDelimited string

// allowedOrigins parses a newline-delimited origin list.
func allowedOrigins(delimited string) map[string]struct{} {
	origins := make(map[string]struct{})
	for _, s := range strings.Split(delimited, "\n") {
		trimmed := strings.TrimSpace(s)
		if trimmed == "" || strings.HasPrefix(trimmed, "#") {
			continue
		}
		origins[trimmed] = struct{}{}
	}
	return origins
}

var origins = allowedOrigins(originsDelimited)

// IsValidOrigin returns true if s matches a line in origins.txt.
func IsValidOrigin(s string) bool {
	_, ok := origins[s]
	return ok
}
