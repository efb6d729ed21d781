package supabase

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
)

// codeNoRows is the PostgREST code for a single-object request matching zero rows
const codeNoRows = "PGRST116"

// APIError is a non-2xx response from GoTrue or PostgREST
type APIError struct {
	Status  int
	Code    string
	Message string
	Details string
	Hint    string
}

func (e *APIError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("supabase: %d %s: %s", e.Status, e.Code, e.Message)
	}
	return fmt.Sprintf("supabase: %d: %s", e.Status, e.Message)
}

// ProviderMessage is the human-readable message reported by Supabase
func (e *APIError) ProviderMessage() string {
	return e.Message
}

// IsNotFound reports whether err says the requested row does not exist
func IsNotFound(err error) bool {
	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		return false
	}
	return apiErr.Code == codeNoRows
}

// errorBody covers both error layouts. GoTrue uses msg/error_description/error
// and a numeric code; PostgREST uses code/message/details/hint.
type errorBody struct {
	Msg              string          `json:"msg"`
	ErrorDescription string          `json:"error_description"`
	Message          string          `json:"message"`
	Error            string          `json:"error"`
	ErrorCode        string          `json:"error_code"`
	Code             json.RawMessage `json:"code"`
	Details          string          `json:"details"`
	Hint             string          `json:"hint"`
}

func parseAPIError(status int, data []byte) *APIError {
	apiErr := &APIError{Status: status}

	var body errorBody
	if err := json.Unmarshal(data, &body); err != nil {
		apiErr.Message = http.StatusText(status)
		return apiErr
	}

	for _, m := range []string{body.Msg, body.ErrorDescription, body.Message, body.Error} {
		if m != "" {
			apiErr.Message = m
			break
		}
	}
	if apiErr.Message == "" {
		apiErr.Message = http.StatusText(status)
	}

	apiErr.Code = body.ErrorCode
	if apiErr.Code == "" && len(body.Code) > 0 {
		var code string
		if err := json.Unmarshal(body.Code, &code); err == nil {
			apiErr.Code = code
		}
	}
	apiErr.Details = body.Details
	apiErr.Hint = body.Hint
	return apiErr
}
