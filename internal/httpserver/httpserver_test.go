package httpserver

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Zimam07/Sonjog/internal/domain"
)

func TestStatusFor(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{fmt.Errorf("get user: %w", domain.ErrNotFound), http.StatusNotFound},
		{domain.ErrUnauthorized, http.StatusUnauthorized},
		{fmt.Errorf("wrap: %w", domain.ErrForbidden), http.StatusForbidden},
		{domain.ErrConflict, http.StatusConflict},
		{fmt.Errorf("%w: bad", domain.ErrInvalidInput), http.StatusBadRequest},
		{fmt.Errorf("disk on fire"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, statusFor(tt.err), tt.err.Error())
	}
}

func TestWriteErrorHidesInternalDetails(t *testing.T) {
	rec := httptest.NewRecorder()
	writeError(rec, httptest.NewRequest(http.MethodGet, "/", nil), fmt.Errorf("dial tcp 10.0.0.1: refused"))

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	var body errorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "internal server error", body.Error)
}

func TestDecodeJSONValidates(t *testing.T) {
	newReq := func(body string) *http.Request {
		return httptest.NewRequest(http.MethodPost, "/", strings.NewReader(body))
	}

	var ok groupMemberRequest
	require.NoError(t, decodeJSON(newReq(`{"groupId":1,"userId":2}`), &ok))
	assert.Equal(t, int64(2), ok.UserID)

	var missing groupMemberRequest
	assert.ErrorIs(t, decodeJSON(newReq(`{"groupId":1}`), &missing), domain.ErrInvalidInput)

	var broken sendMessageRequest
	assert.ErrorIs(t, decodeJSON(newReq(`{"message":`), &broken), domain.ErrInvalidInput)

	var badEmail registerRequest
	assert.ErrorIs(t, decodeJSON(newReq(`{"username":"alice","email":"nope","password":"secret-pass"}`), &badEmail), domain.ErrInvalidInput)
}

func TestPathID(t *testing.T) {
	route := func(value string) *http.Request {
		r := httptest.NewRequest(http.MethodGet, "/", nil)
		rctx := chi.NewRouteContext()
		rctx.URLParams.Add("groupID", value)
		return r.WithContext(context.WithValue(r.Context(), chi.RouteCtxKey, rctx))
	}

	id, err := pathID(route("42"), "groupID")
	require.NoError(t, err)
	assert.Equal(t, int64(42), id)

	for _, bad := range []string{"", "abc", "0", "-3"} {
		_, err := pathID(route(bad), "groupID")
		assert.ErrorIs(t, err, domain.ErrInvalidInput, bad)
	}
}

type stubAuth map[string]*domain.User

func (s stubAuth) Authenticate(_ context.Context, token string) (*domain.User, error) {
	if u, ok := s[token]; ok {
		return u, nil
	}
	return nil, domain.ErrUnauthorized
}

func TestAuthMiddleware(t *testing.T) {
	alice := &domain.User{ID: 1, Username: "alice"}
	h := AuthMiddleware(stubAuth{"good": alice})(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, CurrentUser(r))
	}))

	tests := []struct {
		name   string
		setup  func(r *http.Request)
		status int
	}{
		{"no credentials", func(*http.Request) {}, http.StatusUnauthorized},
		{"bad bearer", func(r *http.Request) { r.Header.Set("Authorization", "Bearer bad") }, http.StatusUnauthorized},
		{"bearer", func(r *http.Request) { r.Header.Set("Authorization", "Bearer good") }, http.StatusOK},
		{"cookie", func(r *http.Request) { r.AddCookie(&http.Cookie{Name: "token", Value: "good"}) }, http.StatusOK},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := httptest.NewRequest(http.MethodGet, "/", nil)
			tt.setup(r)
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, r)
			assert.Equal(t, tt.status, rec.Code)
			if tt.status == http.StatusOK {
				var u domain.User
				require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &u))
				assert.Equal(t, alice.ID, u.ID)
			}
		})
	}
}
