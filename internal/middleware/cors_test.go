package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCorsMiddleware(t *testing.T) {
	allowedOrigins := []string{"https://fitness.example.com/", "http://localhost:3000"}

	testCases := []struct {
		name           string
		origin         string
		method         string
		path           string
		expectCors     bool
		expectNext     bool
		expectedStatus int
	}{
		{
			name:           "AllowedOrigin",
			origin:         "https://fitness.example.com",
			expectCors:     true,
			expectNext:     true,
			expectedStatus: http.StatusOK,
		},
		{
			name:           "AllowedLocalOrigin",
			origin:         "http://localhost:3000",
			expectCors:     true,
			expectNext:     true,
			expectedStatus: http.StatusOK,
		},
		{
			name:           "NotAllowedOrigin",
			origin:         "https://www.notallowed.com",
			expectedStatus: http.StatusForbidden,
		},
		{
			name:           "NoOriginMobileClient",
			expectNext:     true,
			expectedStatus: http.StatusOK,
		},
		{
			name:           "MCPFromAnyOrigin",
			origin:         "https://agent.example.org",
			path:           "/mcp",
			expectCors:     true,
			expectNext:     true,
			expectedStatus: http.StatusOK,
		},
		{
			name:           "PreflightAllowed",
			origin:         "https://fitness.example.com",
			method:         http.MethodOptions,
			expectCors:     true,
			expectedStatus: http.StatusOK,
		},
		{
			name:           "PreflightNotAllowed",
			origin:         "https://www.notallowed.com",
			method:         http.MethodOptions,
			expectedStatus: http.StatusForbidden,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			method := tc.method
			if method == "" {
				method = http.MethodGet
			}
			path := tc.path
			if path == "" {
				path = "/getUsers"
			}

			rr := httptest.NewRecorder()
			req, err := http.NewRequest(method, path, nil)
			require.NoError(t, err)
			if tc.origin != "" {
				req.Header.Set("Origin", tc.origin)
			}

			nextCalled := false
			nextHandler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				nextCalled = true
			})
			Cors(allowedOrigins)(nextHandler).ServeHTTP(rr, req)

			assert.Equal(t, tc.expectedStatus, rr.Code)
			assert.Equal(t, tc.expectNext, nextCalled)
			if tc.expectCors {
				assert.Equal(t, tc.origin, rr.Header().Get("Access-Control-Allow-Origin"))
				assert.Contains(t, rr.Header().Get("Access-Control-Allow-Methods"), "DELETE")
			} else {
				assert.Empty(t, rr.Header().Get("Access-Control-Allow-Origin"))
			}
		})
	}
}

func TestCorsMiddleware_Wildcard(t *testing.T) {
	rr := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/getUsers", nil)
	req.Header.Set("Origin", "https://anything.example")

	Cors([]string{"*"})(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {})).ServeHTTP(rr, req)

	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "https://anything.example", rr.Header().Get("Access-Control-Allow-Origin"))
}
