// Copyright © 2026 Groups.io, Inc.
// SPDX-License-Identifier: Apache-2.0

// Package apierr maps failures from the backend API onto a closed set of
// kinds that the UI can act on.
package apierr

import (
	"context"
	"encoding/json"
	"errors"
	"net"
	"net/http"
	"net/url"
	"strings"
	"syscall"

	"github.com/wingedpig/winnertrade/pkg/client"
)

// Kind is the category of a classified error.
type Kind string

const (
	KindUnknown            Kind = "unknown"
	KindNetworkUnreachable Kind = "network-unreachable"
	KindAuthentication     Kind = "authentication"
	KindValidation         Kind = "validation"
	KindUpstreamFailure    Kind = "upstream-failure"
)

// GenericMessage is used when a failure carries no text at all.
const GenericMessage = "An error occurred."

// Error is a classified failure.
type Error struct {
	Kind Kind `json:"kind"`

	// Message is the backend's detail when it sent one, else the raw error
	// text, else GenericMessage.
	Message string `json:"message"`

	// Err is the underlying failure.
	Err error `json:"-"`
}

func (e *Error) Error() string {
	return string(e.Kind) + ": " + e.Message
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is matches another *Error of the same kind, so callers can write
// errors.Is(err, &apierr.Error{Kind: apierr.KindAuthentication}).
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && t.Message == "" && t.Err == nil && t.Kind == e.Kind
}

// Validation builds a validation error raised before anything is sent.
func Validation(message string, err error) *Error {
	return &Error{Kind: KindValidation, Message: message, Err: err}
}

// KindOf returns the kind of err after classification.
func KindOf(err error) Kind {
	if c := Classify(err); c != nil {
		return c.Kind
	}
	return ""
}

var networkMarkers = []string{
	"failed to fetch",
	"load failed",
	"networkerror",
	"network request failed",
	"connection refused",
	"no such host",
}

var authMarkers = []string{"401", "403", "unauthorized", "authentication", "signature"}

var upstreamMarkers = []string{"502", "connection", "bağlantı testi başarısız"}

// Classify maps err to a kind. It is deterministic and has no side effects.
// A nil err yields nil; an already classified error is returned unchanged.
//
// Rules, first match wins:
//  1. the request never got a response: network-unreachable
//  2. the backend's detail string (or the raw text) becomes the message
//  3. authentication markers (401/403, unauthorized, signature, invalid
//     or api next to key/secret): authentication
//  4. connectivity markers (502, connection): upstream-failure
//  5. anything else: unknown
func Classify(err error) *Error {
	if err == nil {
		return nil
	}
	var classified *Error
	if errors.As(err, &classified) {
		return classified
	}

	if isTransport(err) {
		return &Error{Kind: KindNetworkUnreachable, Message: err.Error(), Err: err}
	}

	text, status := basis(err)
	lower := strings.ToLower(text)

	kind := KindUnknown
	switch {
	case status == http.StatusUnauthorized || status == http.StatusForbidden || isAuthText(lower):
		kind = KindAuthentication
	case status == http.StatusBadGateway || containsAny(lower, upstreamMarkers):
		kind = KindUpstreamFailure
	}

	if strings.TrimSpace(text) == "" {
		text = GenericMessage
	}
	return &Error{Kind: kind, Message: text, Err: err}
}

// isTransport reports whether err means no HTTP response was received.
func isTransport(err error) bool {
	var apiErr *client.APIError
	if errors.As(err, &apiErr) {
		return false
	}

	var te *client.TransportError
	var ue *url.Error
	var ne net.Error
	switch {
	case errors.As(err, &te), errors.As(err, &ue), errors.As(err, &ne):
		return true
	case errors.Is(err, syscall.ECONNREFUSED), errors.Is(err, syscall.ECONNRESET):
		return true
	case errors.Is(err, context.DeadlineExceeded), errors.Is(err, context.Canceled):
		return true
	}
	return containsAny(strings.ToLower(err.Error()), networkMarkers)
}

// basis returns the text to classify and the HTTP status, if any.
func basis(err error) (string, int) {
	var apiErr *client.APIError
	if errors.As(err, &apiErr) {
		if apiErr.Detail != "" {
			return apiErr.Detail, apiErr.StatusCode
		}
		return detailOr(apiErr.Body), apiErr.StatusCode
	}
	return detailOr(err.Error()), 0
}

// detailOr extracts a string "detail" from a JSON object in msg, else
// returns msg.
func detailOr(msg string) string {
	var payload struct {
		Detail *string `json:"detail"`
	}
	if err := json.Unmarshal([]byte(msg), &payload); err == nil && payload.Detail != nil {
		return *payload.Detail
	}
	return msg
}

func isAuthText(lower string) bool {
	if containsAny(lower, authMarkers) {
		return true
	}
	credential := strings.Contains(lower, "key") || strings.Contains(lower, "secret")
	return credential && (strings.Contains(lower, "invalid") || strings.Contains(lower, "api"))
}

func containsAny(s string, markers []string) bool {
	for _, m := range markers {
		if strings.Contains(s, m) {
			return true
		}
	}
	return false
}
