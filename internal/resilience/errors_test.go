package resilience

import (
	"testing"

	"github.com/rotisserie/eris"
	"github.com/stretchr/testify/assert"
)

func TestHTTPError_Message(t *testing.T) {
	err := &HTTPError{StatusCode: 502, URL: "https://api.example/v2/gebouwen/1", Snippet: "bad gateway"}
	assert.Equal(t, "Request to https://api.example/v2/gebouwen/1 failed with HTTP 502: bad gateway", err.Error())
}

func TestIsTransient(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"nil", nil, false},
		{"server error", &HTTPError{StatusCode: 500}, true},
		{"bad gateway", &HTTPError{StatusCode: 502}, true},
		{"client error", &HTTPError{StatusCode: 404}, false},
		{"bad request", &HTTPError{StatusCode: 400}, false},
		{"transport failure", eris.New("connection refused"), true},
		{"wrapped server error", eris.Wrap(&HTTPError{StatusCode: 503}, "call failed"), true},
		{"wrapped client error", eris.Wrap(&HTTPError{StatusCode: 403}, "call failed"), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, IsTransient(tt.err))
		})
	}
}
