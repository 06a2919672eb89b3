package http

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/YahyaBCR/car-rental-BO-sub002/services/api/internal/auth"
	"github.com/YahyaBCR/car-rental-BO-sub002/services/api/internal/domain"
)

var testSecret = []byte("test-secret")

func TestAuthenticate(t *testing.T) {
	t.Parallel()

	valid, err := auth.Issue(testSecret, ownerActor, time.Now(), time.Hour)
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	expired, err := auth.Issue(testSecret, ownerActor, time.Now().Add(-2*time.Hour), time.Hour)
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	forged, err := auth.Issue([]byte("other-secret"), ownerActor, time.Now(), time.Hour)
	if err != nil {
		t.Fatalf("issue: %v", err)
	}

	tests := []struct {
		name           string
		header         string
		expectedStatus int
	}{
		{name: "valid token", header: "Bearer " + valid, expectedStatus: http.StatusNoContent},
		{name: "lowercase scheme", header: "bearer " + valid, expectedStatus: http.StatusNoContent},
		{name: "missing header", expectedStatus: http.StatusUnauthorized},
		{name: "basic scheme", header: "Basic abc", expectedStatus: http.StatusUnauthorized},
		{name: "expired", header: "Bearer " + expired, expectedStatus: http.StatusUnauthorized},
		{name: "wrong secret", header: "Bearer " + forged, expectedStatus: http.StatusUnauthorized},
		{name: "garbage", header: "Bearer not.a.jwt", expectedStatus: http.StatusUnauthorized},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			var seen domain.Actor
			next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				seen, _ = actorFrom(r)
				w.WriteHeader(http.StatusNoContent)
			})

			req := httptest.NewRequest(http.MethodGet, "/bookings/x", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			rec := httptest.NewRecorder()
			Authenticate(testSecret, next).ServeHTTP(rec, req)

			if rec.Code != tt.expectedStatus {
				t.Fatalf("expected status %d, got %d", tt.expectedStatus, rec.Code)
			}
			if tt.expectedStatus == http.StatusNoContent && seen != ownerActor {
				t.Fatalf("expected actor %+v, got %+v", ownerActor, seen)
			}
		})
	}
}

func TestRequireAdmin(t *testing.T) {
	t.Parallel()

	h := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if requireAdmin(w, r) {
			w.WriteHeader(http.StatusNoContent)
		}
	})

	for _, tc := range []struct {
		actor  *domain.Actor
		status int
	}{
		{nil, http.StatusUnauthorized},
		{&clientActor, http.StatusForbidden},
		{&ownerActor, http.StatusForbidden},
		{&adminActor, http.StatusNoContent},
	} {
		rec := serve(h, http.MethodGet, "/admin/cars", tc.actor, "")
		if rec.Code != tc.status {
			t.Fatalf("actor %v: expected %d, got %d", tc.actor, tc.status, rec.Code)
		}
	}
}
