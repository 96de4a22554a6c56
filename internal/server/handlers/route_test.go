package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iudanet/meshsync/internal/models"
	"github.com/iudanet/meshsync/internal/router"
	"github.com/iudanet/meshsync/pkg/api"
)

// mockResolver is a mock implementation of EndpointResolver for testing
type mockResolver struct {
	candidates []models.Candidate
	err        error
	gotService string
	gotPolicy  models.PolicyTag
}

func (m *mockResolver) Resolve(service string, tag models.PolicyTag) ([]models.Candidate, error) {
	m.gotService = service
	m.gotPolicy = tag
	if m.err != nil {
		return nil, m.err
	}
	return m.candidates, nil
}

func resolveRequest(service, policy string) *http.Request {
	target := "/api/v1/route/" + service
	if policy != "" {
		target += "?policy=" + policy
	}
	req := httptest.NewRequest(http.MethodGet, target, nil)
	req.SetPathValue("service", service)
	return req
}

func TestRouteHandler_Resolve_Success(t *testing.T) {
	resolver := &mockResolver{
		candidates: []models.Candidate{
			{NodeID: "local-1", Addr: "http://localhost:8081", Role: models.RoleClient},
			{NodeID: "edge-1", Addr: "http://edge-1:8081", Role: models.RoleEdge},
		},
	}
	h := NewRouteHandler(testLogger(), resolver)

	w := httptest.NewRecorder()
	h.Resolve(w, resolveRequest("thumbnails", "local_first"))

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "thumbnails", resolver.gotService)
	assert.Equal(t, models.PolicyLocalFirst, resolver.gotPolicy)

	var resp api.ResolveResponse
	require.NoError(t, json.NewDecoder(w.Body).Decode(&resp))
	assert.Equal(t, "thumbnails", resp.Service)
	require.Len(t, resp.Candidates, 2)
	assert.Equal(t, "local-1", resp.Candidates[0].NodeID)
	assert.Equal(t, "client", resp.Candidates[0].Role)
	assert.Equal(t, "edge-1", resp.Candidates[1].NodeID)
}

func TestRouteHandler_Resolve_InvalidServiceName(t *testing.T) {
	h := NewRouteHandler(testLogger(), &mockResolver{})

	w := httptest.NewRecorder()
	h.Resolve(w, resolveRequest("bad.name", ""))

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestRouteHandler_Resolve_ErrorMapping(t *testing.T) {
	tests := []struct {
		name           string
		err            error
		expectedStatus int
	}{
		{
			name:           "unknown service",
			err:            router.ErrUnknownService,
			expectedStatus: http.StatusNotFound,
		},
		{
			name:           "unknown policy",
			err:            router.ErrUnknownPolicy,
			expectedStatus: http.StatusBadRequest,
		},
		{
			name:           "no candidates",
			err:            router.ErrNoCandidates,
			expectedStatus: http.StatusServiceUnavailable,
		},
		{
			name:           "internal error",
			err:            errors.New("boom"),
			expectedStatus: http.StatusInternalServerError,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := NewRouteHandler(testLogger(), &mockResolver{err: tt.err})

			w := httptest.NewRecorder()
			h.Resolve(w, resolveRequest("thumbnails", ""))

			assert.Equal(t, tt.expectedStatus, w.Code)
		})
	}
}
