// Package client talks to the identity boundary over REST/JSON.
//
// # Overview
//
// The package provides:
//  1. The Client contract covering password and face sign-in, session
//     refresh, registration, password reset and biometric enrolment.
//  2. HTTPClient, a net/http implementation whose transport attaches the
//     stored bearer token and recovers expired sessions once per request
//     (see package transport).
//
// # Error Handling
//
// Non-2xx answers come back as *BoundaryError, which carries the HTTP status
// and the decoded "detail"/"message" fields. Network failures wrap
// ErrUnavailable. A 401 matches ErrUnauthorized via errors.Is.
//
// Credential exchanges (login, refresh, face and PIN verification) never go
// through the refresh cycle: their 401 is a wrong credential.
package client
