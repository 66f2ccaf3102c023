package repertoiredto

// Error codes returned by the HTTP API.
const (
	CodeBadRequest    = "bad_request"
	CodeInvalidFEN    = "invalid_fen"
	CodeInvalidPGN    = "invalid_pgn"
	CodeIllegalMove   = "illegal_move"
	CodeTooManyLines  = "too_many_lines"
	CodeEngineFailure = "engine_failure"
	CodeUnavailable   = "unavailable"
	CodeNotFound      = "not_found"
)

type Error struct {
	Code      string `json:"code"`
	Message   string `json:"message"`
	Retryable bool   `json:"retryable,omitempty"`
}

func (e Error) Error() string {
	if e.Message != "" {
		return e.Message
	}
	if e.Code != "" {
		return e.Code
	}
	return "repertoire service error"
}
