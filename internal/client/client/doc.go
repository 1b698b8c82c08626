// Package client is the transport layer of the flashboard CLI: a typed HTTP
// client for the JSON API that keeps the current access/refresh token pair
// and maps failures to ErrUnavailable, ErrUnauthorized or *APIError.
package client
