// Package httputil holds small helpers shared by the resty-backed backend
// clients.
package httputil

import (
	"fmt"

	"github.com/go-resty/resty/v2"
)

// HandleError is a generic error handler for failing responses (>399 status
// code). Without this, failing responses would have nil error.
func HandleError(res *resty.Response, err error) (*resty.Response, error) {
	if err != nil {
		return res, err
	}
	if res.IsError() {
		return res, fmt.Errorf("request failed: %s %s (status: %d)", res.Request.Method, res.Request.URL, res.StatusCode())
	}

	return res, nil
}
