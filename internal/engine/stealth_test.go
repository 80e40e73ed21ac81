package engine

import (
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSetBrowserHeaders(t *testing.T) {
	req := httptest.NewRequest("GET", "https://www.youtube.com/watch?v=abc12345678", nil)
	SetBrowserHeaders(req)
	assert.NotEmpty(t, req.Header.Get("User-Agent"))
	assert.Equal(t, "en-US,en;q=0.9", req.Header.Get("Accept-Language"))
}
