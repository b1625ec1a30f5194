// Copyright © 2026 Groups.io, Inc.
// SPDX-License-Identifier: Apache-2.0

package apierr

// User-facing texts.
const (
	MsgBackendUnreachable    = "Cannot reach the backend. Make sure it is running (for example: uvicorn api.main:app --port 8000)."
	MsgBackendUnreachableCfg = "Cannot reach the backend. Make sure it is running."
	MsgAuthentication        = "API key or secret is invalid. Check your keys and their permissions in the exchange panel."
	MsgUpstream              = "Exchange connection failed. Check the API key, secret and testnet setting."
	MsgConnectionFailed      = "Connection failed."
)

// Friendly returns the text shown for a general API failure.
func Friendly(err error) string {
	c := Classify(err)
	if c == nil {
		return ""
	}
	if c.Kind == KindNetworkUnreachable {
		return MsgBackendUnreachable
	}
	return c.Message
}

// FriendlyConnection returns the text shown for a failed connection test or
// configuration save. Credential problems always get specific guidance.
func FriendlyConnection(err error) string {
	c := Classify(err)
	if c == nil {
		return ""
	}
	switch c.Kind {
	case KindNetworkUnreachable:
		return MsgBackendUnreachableCfg
	case KindAuthentication:
		return MsgAuthentication
	case KindUpstreamFailure:
		return MsgUpstream
	}
	if c.Message == GenericMessage {
		return MsgConnectionFailed
	}
	return c.Message
}
