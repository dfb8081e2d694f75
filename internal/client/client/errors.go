package client

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
)

var (
	ErrUnavailable  = errors.New("server unavailable")
	ErrUnauthorized = errors.New("unauthorized")
)

// BoundaryError is a non-2xx answer from the identity boundary.
type BoundaryError struct {
	Status  int
	Detail  string
	Message string
}

func (e *BoundaryError) Error() string {
	return fmt.Sprintf("request failed with status code %d", e.Status)
}

func (e *BoundaryError) StatusCode() int     { return e.Status }
func (e *BoundaryError) DetailText() string  { return e.Detail }
func (e *BoundaryError) MessageText() string { return e.Message }

func (e *BoundaryError) Is(target error) bool {
	return target == ErrUnauthorized && e.Status == http.StatusUnauthorized
}

type errorBody struct {
	Detail  json.RawMessage `json:"detail"`
	Message string          `json:"message"`
}

// decodeBoundaryError reads at most 64KiB of resp.Body. The body may be a
// string detail, a list of validation items, or not JSON at all.
func decodeBoundaryError(resp *http.Response) *BoundaryError {
	out := &BoundaryError{Status: resp.StatusCode}

	data, err := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	if err != nil || len(data) == 0 {
		return out
	}

	var body errorBody
	if err := json.Unmarshal(data, &body); err != nil {
		return out
	}
	out.Message = body.Message
	out.Detail = detailText(body.Detail)
	return out
}

func detailText(raw json.RawMessage) string {
	if len(raw) == 0 || string(raw) == "null" {
		return ""
	}

	var s string
	if json.Unmarshal(raw, &s) == nil {
		return s
	}

	var items []struct {
		Msg string `json:"msg"`
	}
	if json.Unmarshal(raw, &items) == nil {
		msgs := make([]string, 0, len(items))
		for _, it := range items {
			if it.Msg != "" {
				msgs = append(msgs, it.Msg)
			}
		}
		return strings.Join(msgs, "; ")
	}

	var obj struct {
		Msg     string `json:"msg"`
		Message string `json:"message"`
	}
	if json.Unmarshal(raw, &obj) == nil {
		if obj.Msg != "" {
			return obj.Msg
		}
		return obj.Message
	}
	return ""
}
