package errors

// ErrorResponse is the failure envelope returned by every endpoint
type ErrorResponse struct {
	OK      bool           `json:"ok"`
	Error   string         `json:"error"`
	Details map[string]any `json:"details,omitempty"`
}

// NewErrorResponse builds the failure envelope for err
func NewErrorResponse(err error) ErrorResponse {
	details := ReportableDetails(err)
	if len(details) == 0 {
		details = nil
	}
	return ErrorResponse{
		OK:      false,
		Error:   DisplayMessage(err),
		Details: details,
	}
}
