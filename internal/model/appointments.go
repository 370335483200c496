// Package model defines shared types for the proxy.
package model

// UpstreamResponse is a fully read getBusinessAppointments response, relayed to
// the browser without re-encoding.
type UpstreamResponse struct {
	StatusCode  int
	ContentType string
	Body        []byte
}

// ErrorResponse is the JSON body of locally generated errors.
type ErrorResponse struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}
