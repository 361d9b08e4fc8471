package types

type SuccessEnvelope struct {
	Data any `json:"data"`
}

type APIError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Details any    `json:"details,omitempty"`
}

type ErrorEnvelope struct {
	Error APIError `json:"error"`
}

// BatchOutcome is returned by bulk review actions.
type BatchOutcome struct {
	Updated int    `json:"updated"`
	Message string `json:"message"`
}
