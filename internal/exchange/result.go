package exchange

import (
	"fmt"
	"net/http"
	"strconv"
	"strings"
)

type Kind string

const (
	KindSuccess           Kind = "success"
	KindHTTPFailure       Kind = "http_failure"
	KindNetworkFailure    Kind = "network_failure"
	KindMalformedResponse Kind = "malformed_response"
)

// Result is the outcome of one exchange: exactly one of Success,
// HTTPFailure, NetworkFailure or MalformedResponse.
type Result interface {
	Kind() Kind
	isResult()
}

type Success struct {
	Text string `json:"text"`
}

// HTTPFailure means the webhook answered with a non-2xx status.
type HTTPFailure struct {
	Status     int    `json:"status"`
	StatusText string `json:"status_text"`
	RawBody    string `json:"raw_body"`
}

// NetworkFailure means no response was received at all.
type NetworkFailure struct {
	Reason string `json:"reason"`
}

// MalformedResponse is a 2xx whose body none of the configured
// extractors could interpret.
type MalformedResponse struct {
	RawBody string `json:"raw_body"`
}

func (Success) Kind() Kind           { return KindSuccess }
func (HTTPFailure) Kind() Kind       { return KindHTTPFailure }
func (NetworkFailure) Kind() Kind    { return KindNetworkFailure }
func (MalformedResponse) Kind() Kind { return KindMalformedResponse }

func (Success) isResult()           {}
func (HTTPFailure) isResult()       {}
func (NetworkFailure) isResult()    {}
func (MalformedResponse) isResult() {}

func (f HTTPFailure) Error() string {
	return fmt.Sprintf("HTTP %d: %s", f.Status, f.StatusText)
}

func (f NetworkFailure) Error() string {
	return "network error: " + f.Reason
}

func (f MalformedResponse) Error() string {
	return "malformed webhook response"
}

// newHTTPFailure keeps the reason phrase the server sent; statusLine is
// http.Response.Status, e.g. "503 Service Unavailable".
func newHTTPFailure(status int, statusLine, body string) HTTPFailure {
	return HTTPFailure{Status: status, StatusText: reasonPhrase(status, statusLine), RawBody: body}
}

func reasonPhrase(status int, statusLine string) string {
	phrase := strings.TrimSpace(strings.TrimPrefix(statusLine, strconv.Itoa(status)))
	if phrase == "" {
		phrase = http.StatusText(status)
	}
	return phrase
}

// AsError returns nil for Success and the failure value otherwise.
func AsError(r Result) error {
	switch v := r.(type) {
	case HTTPFailure:
		return v
	case NetworkFailure:
		return v
	case MalformedResponse:
		return v
	}
	return nil
}
