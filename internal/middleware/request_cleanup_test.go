package middleware

import (
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type trackingBody struct {
	io.Reader
	closed bool
}

func (b *trackingBody) Close() error {
	b.closed = true
	return nil
}

func TestLimitAndDrainBody_DrainsAndCloses(t *testing.T) {
	body := &trackingBody{Reader: strings.NewReader(`{"name":"bench"}`)}
	req := httptest.NewRequest(http.MethodPost, "/createWorkout", nil)
	req.Body = body

	handler := LimitAndDrainBody(1024)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		buf := make([]byte, 4)
		_, err := r.Body.Read(buf)
		require.NoError(t, err)
		w.WriteHeader(http.StatusOK)
	}))

	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)

	assert.Equal(t, http.StatusOK, rr.Code)
	assert.True(t, body.closed)
	n, _ := body.Read(make([]byte, 1))
	assert.Zero(t, n)
}

func TestLimitAndDrainBody_CapsBody(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/createUser", strings.NewReader(strings.Repeat("x", 64)))

	var readErr error
	handler := LimitAndDrainBody(16)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, readErr = io.ReadAll(r.Body)
		w.WriteHeader(http.StatusRequestEntityTooLarge)
	}))
	handler.ServeHTTP(httptest.NewRecorder(), req)

	var maxBytesErr *http.MaxBytesError
	require.True(t, errors.As(readErr, &maxBytesErr))
	assert.Equal(t, int64(16), maxBytesErr.Limit)
}

func TestLimitAndDrainBody_NoCap(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/createUser", strings.NewReader(strings.Repeat("x", 64)))

	var read []byte
	handler := LimitAndDrainBody(0)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		read, _ = io.ReadAll(r.Body)
	}))
	handler.ServeHTTP(httptest.NewRecorder(), req)

	assert.Len(t, read, 64)
}
