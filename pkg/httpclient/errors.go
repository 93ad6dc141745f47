package httpclient

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	apperrors "github.com/najeemsuhail/ecommerce-store-sub000/pkg/errors"
)

// upstreamError matches the {"error":{"code","message"}} envelope many
// upstreams (including this service) answer with.
type upstreamError struct {
	Error *struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

// ParseResponseError consumes and closes a non-2xx response and converts it
// into an error. 4xx answers become InvalidInput/NotFound app errors, anything
// else is reported as an infrastructure failure of upstream.
func ParseResponseError(resp *http.Response, upstream string) error {
	defer func() { _ = resp.Body.Close() }()

	body, _ := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	msg := string(body)
	var parsed upstreamError
	if json.Unmarshal(body, &parsed) == nil && parsed.Error != nil {
		msg = parsed.Error.Message
	}

	switch {
	case resp.StatusCode == http.StatusNotFound:
		path := ""
		if resp.Request != nil {
			path = resp.Request.URL.Path
		}
		return apperrors.NotFound(upstream, path)
	case resp.StatusCode >= 400 && resp.StatusCode < 500:
		return apperrors.InvalidInput(fmt.Sprintf("%s: %s", upstream, msg))
	default:
		return apperrors.Infrastructure(upstream, fmt.Errorf("status %d: %s", resp.StatusCode, msg))
	}
}
