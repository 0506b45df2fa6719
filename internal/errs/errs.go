// Package errs defines the typed error kinds shared by every chessmate
// component, and a sanitizer that strips secrets before an error leaves
// the process boundary.
package errs

import (
	"errors"
	"fmt"
	"regexp"
)

// Kind identifies which family of error occurred, per spec §7.
type Kind string

const (
	KindInvalidFEN    Kind = "invalid_fen"
	KindPgnParse      Kind = "pgn_parse"
	KindSanResolution Kind = "san_resolution"
	KindTransport     Kind = "transport"
	KindDbError       Kind = "db_error"
	KindConfig        Kind = "config"
)

// Error is the concrete error type returned by every domain operation.
// Pure modules (fen, pgn, chessengine, metadata, queryfilter) never panic
// on malformed input; they return an *Error instead.
type Error struct {
	Kind      Kind
	Reason    string
	Context   string
	Retryable bool
	Cause     error
}

func (e *Error) Error() string {
	if e.Context != "" {
		return fmt.Sprintf("%s: %s (%s)", e.Kind, e.Reason, e.Context)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Reason)
}

func (e *Error) Unwrap() error { return e.Cause }

// InvalidFen builds a KindInvalidFEN error. context is typically the
// offending rank/field description, e.g. "rank 3: 'z'".
func InvalidFen(reason, context string) *Error {
	return &Error{Kind: KindInvalidFEN, Reason: reason, Context: context}
}

// PgnParse builds a KindPgnParse error. gameIndex is 1-based, 0 when not
// applicable (e.g. a tokenizer-level failure before any game boundary).
func PgnParse(reason string, gameIndex int) *Error {
	ctx := ""
	if gameIndex > 0 {
		ctx = fmt.Sprintf("game %d", gameIndex)
	}
	return &Error{Kind: KindPgnParse, Reason: reason, Context: ctx}
}

// SanResolution builds a KindSanResolution error for ply-level replay
// failures: "no source", "ambiguous", "illegal capture target".
func SanResolution(reason string, ply int) *Error {
	return &Error{Kind: KindSanResolution, Reason: reason, Context: fmt.Sprintf("ply %d", ply)}
}

// Transport builds a KindTransport error for embedder/vector-store HTTP
// failures. retryable marks whether the caller should retry (429, 5xx,
// connection errors per spec §6/§7).
func Transport(reason string, retryable bool, cause error) *Error {
	return &Error{Kind: KindTransport, Reason: reason, Retryable: retryable, Cause: cause}
}

// DbError builds a KindDbError error. message must already be sanitized.
func DbError(message string, cause error) *Error {
	return &Error{Kind: KindDbError, Reason: message, Cause: cause}
}

// Config builds a KindConfig error for a missing required environment
// variable. Fatal at startup per spec §7.
func Config(missingVar string) *Error {
	return &Error{Kind: KindConfig, Reason: "missing required configuration", Context: missingVar}
}

// IsRetryable reports whether err (or any error it wraps) is a Transport
// error flagged retryable.
func IsRetryable(err error) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind == KindTransport && e.Retryable
	}
	return false
}

var (
	dsnPattern    = regexp.MustCompile(`(?i)(postgres(?:ql)?|mysql)://[^\s]+`)
	bearerPattern = regexp.MustCompile(`(?i)(bearer|basic)\s+[A-Za-z0-9\-._~+/]+=*`)
	pwPattern     = regexp.MustCompile(`(?i)(password|pwd|secret|api[_-]?key)\s*=\s*\S+`)
)

// Sanitize strips DSNs, bearer/basic auth headers, and key=value secrets
// from message before it is safe to log or return to a caller (spec §7).
// It is applied to every driver/transport error before it leaves C6/C7/C9.
func Sanitize(message string) string {
	message = dsnPattern.ReplaceAllString(message, "$1://[redacted]")
	message = bearerPattern.ReplaceAllString(message, "$1 [redacted]")
	message = pwPattern.ReplaceAllString(message, "$1=[redacted]")
	return message
}

// SanitizeErr wraps Sanitize for convenience when only an error is at hand.
func SanitizeErr(err error) string {
	if err == nil {
		return ""
	}
	return Sanitize(err.Error())
}
