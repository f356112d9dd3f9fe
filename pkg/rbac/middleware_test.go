package rbac

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/lopanhq/gatekeeper/pkg/identity"
)

func TestPermissionMiddleware(t *testing.T) {
	engine := newTestEngine(nil, nil)
	mw := NewPermissionMiddleware(engine)

	var reached bool
	handler := mw.Require(ResourceBatch, ActionApprove)(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		reached = true
	}))

	// Holder of the permission passes through.
	req := httptest.NewRequest("GET", "/batches/approve", nil)
	req = req.WithContext(identity.WithUser(req.Context(), testUser("sup1", RoleSupervisor)))
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	assert.True(t, reached)
	assert.Equal(t, http.StatusOK, rec.Code)

	// Authenticated but not granted: 403.
	reached = false
	req = httptest.NewRequest("GET", "/batches/approve", nil)
	req = req.WithContext(identity.WithUser(req.Context(), testUser("op1", RoleOperator)))
	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	assert.False(t, reached)
	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Contains(t, rec.Body.String(), ReasonNoPermission)

	// No identity at all: 401.
	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest("GET", "/batches/approve", nil))
	assert.False(t, reached)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}
