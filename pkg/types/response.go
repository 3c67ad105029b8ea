package types

// Every JSON body is either {"data": ...} or {"error": {...}}.

type SuccessEnvelope struct {
	Data     any       `json:"data"`
	Warnings []Warning `json:"warnings,omitempty"`
}

type ErrorEnvelope struct {
	Error APIError `json:"error"`
}

// APIError is the public face of a coded failure. Retryable tells clients
// the same request may succeed later.
type APIError struct {
	Code      string `json:"code"`
	Message   string `json:"message"`
	Retryable bool   `json:"retryable"`
	Details   any    `json:"details,omitempty"`
}

// Warning rides on a success envelope; it has the shape of an APIError minus
// the retry hint.
type Warning struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Details any    `json:"details,omitempty"`
}
