package catalog

import (
	"encoding/json"
	"fmt"
	"html"
	"io"
	"net/http"
	"strings"
	"sync"

	"github.com/microcosm-cc/bluemonday"
)

const maxErrorBody = 64 << 10

// APIError is returned when the shop API answered with a non-2xx status.
// Failures that never produced a response are plain wrapped errors.
type APIError struct {
	Status  int
	Message string
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("catalog api: status %d", e.Status)
	}
	return fmt.Sprintf("catalog api: status %d: %s", e.Status, e.Message)
}

var (
	textPolicyOnce sync.Once
	textPolicy     *bluemonday.Policy
)

func textSanitizer() *bluemonday.Policy {
	textPolicyOnce.Do(func() {
		textPolicy = bluemonday.StrictPolicy()
	})
	return textPolicy
}

// newAPIError reads the body of a failed response. Only a JSON body with a
// "message" member yields a message; anything else leaves it empty so the
// caller shows its own fallback.
func newAPIError(resp *http.Response) *APIError {
	apiErr := &APIError{Status: resp.StatusCode}
	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	if err != nil || len(raw) == 0 {
		return apiErr
	}
	var body struct {
		Message any `json:"message"`
	}
	if err := json.Unmarshal(raw, &body); err != nil {
		return apiErr
	}
	msg, ok := body.Message.(string)
	if !ok {
		return apiErr
	}
	apiErr.Message = strings.TrimSpace(html.UnescapeString(textSanitizer().Sanitize(msg)))
	return apiErr
}
