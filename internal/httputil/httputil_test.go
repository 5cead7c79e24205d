package httputil

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestEnsureSuccessStatusCode(t *testing.T) {
	tests := []struct {
		code int
		ok   bool
	}{
		{200, true},
		{204, true},
		{299, true},
		{102, false},
		{301, false},
		{404, false},
		{500, false},
	}

	for _, tt := range tests {
		resp := &http.Response{StatusCode: tt.code, Status: http.StatusText(tt.code)}
		err := EnsureSuccessStatusCode(resp)
		require.Equal(t, tt.ok, err == nil, "status %d", tt.code)
	}
}
