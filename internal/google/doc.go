// Package google builds authorized HTTP clients for Google APIs from a
// long-lived OAuth2 refresh token supplied through configuration.
//
// The refresh token is exchanged for an access token on first use and again
// whenever the access token expires. Nothing is cached on disk.
package google
