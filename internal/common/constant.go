// Package common holds header names and byte helpers shared by the client
// packages.
package common

const (
	// AuthorizationHeader carries the bearer access token.
	AuthorizationHeader = "Authorization"
	// BearerPrefix precedes the access token in AuthorizationHeader.
	BearerPrefix = "Bearer "
	// RequestIDHeader correlates a request and its resubmission after refresh.
	RequestIDHeader = "X-Request-ID"
)
