package elasticsearch

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/elastic/go-elasticsearch/v8/esapi"
)

// ResponseError is a non-2xx answer from the cluster.
type ResponseError struct {
	Op     string
	Status int
	Type   string
	Reason string
}

func (e *ResponseError) Error() string {
	if e.Type != "" {
		return fmt.Sprintf("elasticsearch %s: status %d: %s: %s", e.Op, e.Status, e.Type, e.Reason)
	}
	return fmt.Sprintf("elasticsearch %s: status %d: %s", e.Op, e.Status, e.Reason)
}

// esErrorResponse decodes the error body. "error" is an object for most
// APIs and a plain string for a few.
type esErrorResponse struct {
	Error json.RawMessage `json:"error"`
}

type esErrorCause struct {
	Type      string `json:"type"`
	Reason    string `json:"reason"`
	RootCause []struct {
		Reason string `json:"reason"`
	} `json:"root_cause"`
}

// responseError builds a ResponseError from res. The caller closes res.Body.
func responseError(op string, res *esapi.Response) error {
	body, _ := io.ReadAll(io.LimitReader(res.Body, 1<<20))
	rerr := &ResponseError{Op: op, Status: res.StatusCode}

	var envelope esErrorResponse
	if json.Unmarshal(body, &envelope) == nil && len(envelope.Error) > 0 {
		var cause esErrorCause
		if json.Unmarshal(envelope.Error, &cause) == nil && cause.Type != "" {
			rerr.Type, rerr.Reason = cause.Type, cause.Reason
			if rerr.Reason == "" && len(cause.RootCause) > 0 {
				rerr.Reason = cause.RootCause[0].Reason
			}
			return rerr
		}
		var msg string
		if json.Unmarshal(envelope.Error, &msg) == nil {
			rerr.Reason = msg
			return rerr
		}
	}

	rerr.Reason = strings.TrimSpace(string(body))
	if rerr.Reason == "" {
		rerr.Reason = res.Status()
	}
	return rerr
}
