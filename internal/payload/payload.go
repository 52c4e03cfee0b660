// Package payload pulls the error message and code out of backend JSON bodies.
package payload

import (
	"strings"

	"github.com/tidwall/gjson"
)

var (
	messagePaths = []string{"message", "error.message", "error_description", "msg", "error"}
	codePaths    = []string{"code", "error.code", "errorCode"}
)

// Message returns the first string message found in body, or "".
func Message(body []byte) string {
	return first(body, messagePaths)
}

// Code returns the structured error code, upper-cased, or "".
func Code(body []byte) string {
	return strings.ToUpper(first(body, codePaths))
}

func first(body []byte, paths []string) string {
	if !gjson.ValidBytes(body) {
		return ""
	}
	for _, r := range gjson.GetManyBytes(body, paths...) {
		if r.Type == gjson.String && r.Str != "" {
			return strings.TrimSpace(r.Str)
		}
	}
	return ""
}

// MatchesAny reports whether msg equals one of phrases, ignoring case
func MatchesAny(msg string, phrases ...string) bool {
	msg = strings.TrimSpace(msg)
	for _, p := range phrases {
		if strings.EqualFold(msg, p) {
			return true
		}
	}
	return false
}

// ContainsAny reports whether msg contains one of words, ignoring case
func ContainsAny(msg string, words ...string) bool {
	msg = strings.ToLower(msg)
	for _, w := range words {
		if strings.Contains(msg, strings.ToLower(w)) {
			return true
		}
	}
	return false
}
