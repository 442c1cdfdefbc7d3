package telegram

import (
	"context"
	"errors"
	"net"
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	tele "gopkg.in/telebot.v4"
)

type timeoutError struct{}

func (timeoutError) Error() string   { return "i/o timeout" }
func (timeoutError) Timeout() bool   { return true }
func (timeoutError) Temporary() bool { return true }

func TestClassifySendError(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want string
	}{
		{"nil", nil, ""},
		{"deadline", context.DeadlineExceeded, "timeout"},
		{"net timeout", timeoutError{}, "timeout"},
		{"dns", &net.DNSError{Err: "no such host", Name: "api.telegram.org"}, "dns"},
		{"dns timeout", &net.DNSError{Err: "lookup timeout", IsTimeout: true}, "timeout"},
		{"dial refused", &net.OpError{Op: "dial", Err: errors.New("connection refused")}, "dial"},
		{"wrapped in url.Error", &url.Error{Op: "Post", URL: "https://api.telegram.org", Err: timeoutError{}}, "timeout"},
		{"api 502", &tele.Error{Code: 502, Description: "Bad Gateway"}, "http_5xx"},
		{"api 403", &tele.Error{Code: 403, Description: "Forbidden: bot was blocked by the user"}, "http_4xx"},
		{"flood", tele.FloodError{Error: &tele.Error{Code: 429}, RetryAfter: 30}, "http_4xx"},
		{"code in message", errors.New("telegram: Bad Request (400)"), "http_4xx"},
		{"plain", errors.New("something else"), "unknown"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, classifySendError(tc.err))
		})
	}
}

func TestHTTPStatusFromError(t *testing.T) {
	assert.Equal(t, 0, httpStatusFromError(nil))
	assert.Equal(t, 502, httpStatusFromError(&tele.Error{Code: 502}))
	assert.Equal(t, 429, httpStatusFromError(tele.FloodError{Error: &tele.Error{Code: 429}, RetryAfter: 5}))
	assert.Equal(t, 400, httpStatusFromError(errors.New("api error (400)")))
	assert.Equal(t, 0, httpStatusFromError(errors.New("no code here")))
}

func TestRedactToken(t *testing.T) {
	err := errors.New("Post \"https://api.telegram.org/bot12345:AAbbCCdd-ee_ff/sendMessage\": EOF")
	got := redactToken(err)
	assert.NotContains(t, got, "12345:AAbbCCdd")
	assert.Contains(t, got, "bot<redacted>")
	assert.Empty(t, redactToken(nil))
}
