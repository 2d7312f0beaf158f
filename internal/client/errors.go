package client

import (
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
)

// ErrMissingRoomID is returned by SendChat before any I/O when roomID is empty.
var ErrMissingRoomID = errors.New("room id is required")

// Kind classifies a failed call.
type Kind int

const (
	// KindNetwork means no HTTP response was obtained.
	KindNetwork Kind = iota + 1
	// KindInterface means the backend answered with a non-2xx status.
	KindInterface
)

func (k Kind) String() string {
	switch k {
	case KindNetwork:
		return "network"
	case KindInterface:
		return "interface"
	default:
		return "unknown"
	}
}

// Error is the single normalized failure of a call. Error() is the whole
// message; the transport error it was built from is not retained.
type Error struct {
	Kind Kind

	// StatusCode and StatusText are set for KindInterface only.
	StatusCode int
	StatusText string

	msg string
}

func (e *Error) Error() string {
	if e == nil {
		return "<nil>"
	}
	return e.msg
}

// AsError extracts *Error.
func AsError(err error) (*Error, bool) {
	var ce *Error
	if errors.As(err, &ce) {
		return ce, true
	}
	return nil, false
}

// IsNetworkError reports whether err is a normalized network error.
func IsNetworkError(err error) bool {
	ce, ok := AsError(err)
	return ok && ce.Kind == KindNetwork
}

// IsInterfaceError reports whether err is a normalized interface error.
func IsInterfaceError(err error) bool {
	ce, ok := AsError(err)
	return ok && ce.Kind == KindInterface
}

func interfaceError(resp *http.Response) *Error {
	text := statusText(resp)
	msg := "interface error: " + strconv.Itoa(resp.StatusCode)
	if text != "" {
		msg += " " + text
	}
	return &Error{
		Kind:       KindInterface,
		StatusCode: resp.StatusCode,
		StatusText: text,
		msg:        msg,
	}
}

func networkError(err error) *Error {
	return &Error{
		Kind: KindNetwork,
		msg:  fmt.Sprintf("network error: %s", causeMessage(err)),
	}
}

// statusText prefers the reason phrase the server sent.
func statusText(resp *http.Response) string {
	text := strings.TrimSpace(strings.TrimPrefix(resp.Status, strconv.Itoa(resp.StatusCode)))
	if text == "" {
		text = http.StatusText(resp.StatusCode)
	}
	return text
}

// causeMessage drops the "Get \"url\":" decoration net/http adds.
func causeMessage(err error) string {
	var ue *url.Error
	if errors.As(err, &ue) && ue.Err != nil {
		return ue.Err.Error()
	}
	return err.Error()
}
