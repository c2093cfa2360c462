package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"

	"beacon/internal/cases"
	"beacon/internal/jwttoken"
	"beacon/internal/location"
	"beacon/internal/notify"
	"beacon/internal/notify/outbox"
	"beacon/internal/ratelimit"
	"beacon/internal/responders"
	"beacon/internal/timeline"
	"beacon/internal/verification"
	"beacon/internal/verification/noncestore"
	"beacon/pkg/domain"
)

type testEnv struct {
	router     http.Handler
	jwt        *jwttoken.Service
	responders *responders.InMemoryStore
}

func newCaseRouter(t *testing.T) *testEnv {
	t.Helper()

	responderStore := responders.NewInMemoryStore()
	protocol, err := verification.New([]byte("handler-test-hmac-key-32-bytes!!"), noncestore.NewMemory())
	if err != nil {
		t.Fatalf("failed to build protocol: %v", err)
	}

	logger := slog.New(slog.NewTextHandler(&bytes.Buffer{}, nil))
	svc := cases.NewService(
		cases.NewInMemoryStore(),
		cases.NewInMemoryVerificationStore(),
		responderStore,
		timeline.NewPublisher(timeline.NewInMemoryStore()),
		location.NewMemoryLocator(responderStore),
		notify.NewOutboxDispatcher(outbox.NewInMemoryStore()),
		protocol,
		logger,
		cases.WithAutoAssign(false),
	)

	jwtService := jwttoken.NewService("handler-test-signing-key", "beacon", "beacon-api")
	limiter := ratelimit.NewMiddleware(ratelimit.New(100, time.Minute), logger)

	h := New(svc, logger, jwttoken.NewServiceAdapter(jwtService), WithRateLimit(limiter.Limit))
	r := chi.NewRouter()
	h.Register(r)
	return &testEnv{router: r, jwt: jwtService, responders: responderStore}
}

func (e *testEnv) token(t *testing.T, role domain.Role, responderID *domain.ResponderID) string {
	t.Helper()
	token, err := e.jwt.GenerateAccessToken(domain.NewUserID(), role, responderID, time.Hour)
	if err != nil {
		t.Fatalf("failed to mint token: %v", err)
	}
	return token
}

func (e *testEnv) do(t *testing.T, method, path, token string, payload any) *httptest.ResponseRecorder {
	t.Helper()
	var body *bytes.Reader
	if payload != nil {
		raw, err := json.Marshal(payload)
		if err != nil {
			t.Fatalf("failed to marshal payload: %v", err)
		}
		body = bytes.NewReader(raw)
	} else {
		body = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, body)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	e.router.ServeHTTP(rec, req)
	return rec
}

func TestAuthRequired(t *testing.T) {
	env := newCaseRouter(t)
	rec := env.do(t, http.MethodGet, "/cases", "", nil)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 without token, got %d", rec.Code)
	}
}

func TestCreateAndFetchCase(t *testing.T) {
	env := newCaseRouter(t)
	token := env.token(t, domain.RoleReporter, nil)

	rec := env.do(t, http.MethodPost, "/cases", token, map[string]any{
		"incident_type": "medical",
		"title":         "collapsed pedestrian",
		"description":   "person is unconscious on the platform",
		"location":      map[string]float64{"lat": 52.52, "lng": 13.405},
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201 creating case, got %d: %s", rec.Code, rec.Body.String())
	}

	var created struct {
		ID       string `json:"id"`
		CaseUID  string `json:"case_uid"`
		Priority string `json:"priority"`
		Status   string `json:"status"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&created); err != nil {
		t.Fatalf("failed to decode create response: %v", err)
	}
	if created.Priority != "critical" {
		t.Fatalf("expected critical priority for unconscious patient, got %q", created.Priority)
	}
	if created.Status != "pending" {
		t.Fatalf("expected pending status with auto-assign off, got %q", created.Status)
	}
	if _, err := domain.ParseCaseUID(created.CaseUID); err != nil {
		t.Fatalf("invalid case uid %q: %v", created.CaseUID, err)
	}

	getRec := env.do(t, http.MethodGet, "/cases/"+created.ID, token, nil)
	if getRec.Code != http.StatusOK {
		t.Fatalf("expected 200 fetching own case, got %d", getRec.Code)
	}

	// Another reporter cannot see it.
	otherRec := env.do(t, http.MethodGet, "/cases/"+created.ID, env.token(t, domain.RoleReporter, nil), nil)
	if otherRec.Code != http.StatusNotFound {
		t.Fatalf("expected 404 for foreign reporter, got %d", otherRec.Code)
	}
}

func TestAssignRequiresDispatcher(t *testing.T) {
	env := newCaseRouter(t)
	reporter := env.token(t, domain.RoleReporter, nil)

	rec := env.do(t, http.MethodPost, "/cases", reporter, map[string]any{
		"incident_type": "general", "title": "t", "description": "d",
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d", rec.Code)
	}
	var created struct {
		ID string `json:"id"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&created); err != nil {
		t.Fatalf("failed to decode: %v", err)
	}

	assignRec := env.do(t, http.MethodPost, "/cases/"+created.ID+"/assign", reporter, map[string]any{
		"responder_id": domain.NewResponderID().String(),
	})
	if assignRec.Code != http.StatusForbidden {
		t.Fatalf("expected 403 for reporter assigning, got %d", assignRec.Code)
	}
}

func TestLifecycleViaHandlers(t *testing.T) {
	env := newCaseRouter(t)
	dispatcher := env.token(t, domain.RoleDispatcher, nil)

	r := responders.Responder{
		ID:        domain.NewResponderID(),
		UserID:    domain.NewUserID(),
		Name:      "Unit 7",
		Role:      domain.RoleResponder,
		Active:    true,
		AgencyID:  domain.NewAgencyID(),
		StationID: domain.NewStationID(),
	}
	if err := env.responders.Save(context.Background(), r); err != nil {
		t.Fatalf("failed to seed responder: %v", err)
	}

	rec := env.do(t, http.MethodPost, "/cases", dispatcher, map[string]any{
		"incident_type": "fire", "title": "kitchen fire", "description": "smoke visible",
	})
	var created struct {
		ID string `json:"id"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&created); err != nil {
		t.Fatalf("failed to decode: %v", err)
	}

	assignRec := env.do(t, http.MethodPost, "/cases/"+created.ID+"/assign", dispatcher, map[string]any{
		"responder_id": r.ID.String(),
	})
	if assignRec.Code != http.StatusOK {
		t.Fatalf("expected 200 assigning, got %d: %s", assignRec.Code, assignRec.Body.String())
	}

	for _, status := range []string{"en_route", "on_scene", "resolved"} {
		statusRec := env.do(t, http.MethodPost, "/cases/"+created.ID+"/status", dispatcher, map[string]any{
			"status": status,
		})
		if statusRec.Code != http.StatusOK {
			t.Fatalf("expected 200 moving to %s, got %d: %s", status, statusRec.Code, statusRec.Body.String())
		}
	}

	// Terminal case rejects further transitions with 400.
	badRec := env.do(t, http.MethodPost, "/cases/"+created.ID+"/status", dispatcher, map[string]any{
		"status": "assigned",
	})
	if badRec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for transition out of terminal state, got %d", badRec.Code)
	}

	timelineRec := env.do(t, http.MethodGet, "/cases/"+created.ID+"/timeline", dispatcher, nil)
	if timelineRec.Code != http.StatusOK {
		t.Fatalf("expected 200 fetching timeline, got %d", timelineRec.Code)
	}
	var tl struct {
		Timeline []struct {
			Action string `json:"action"`
		} `json:"timeline"`
	}
	if err := json.NewDecoder(timelineRec.Body).Decode(&tl); err != nil {
		t.Fatalf("failed to decode timeline: %v", err)
	}
	// created + assigned + three status updates.
	if len(tl.Timeline) != 5 {
		t.Fatalf("expected 5 timeline entries, got %d", len(tl.Timeline))
	}
}

func TestMintTokenRequiresResponderRole(t *testing.T) {
	env := newCaseRouter(t)
	reporter := env.token(t, domain.RoleReporter, nil)

	rec := env.do(t, http.MethodPost, "/cases", reporter, map[string]any{
		"incident_type": "general", "title": "t", "description": "d",
	})
	var created struct {
		ID string `json:"id"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&created); err != nil {
		t.Fatalf("failed to decode: %v", err)
	}

	mintRec := env.do(t, http.MethodPost, "/cases/"+created.ID+"/verification-token", reporter, nil)
	if mintRec.Code != http.StatusForbidden {
		t.Fatalf("expected 403 minting without responder role, got %d", mintRec.Code)
	}
}

func TestInvalidBodyRejected(t *testing.T) {
	env := newCaseRouter(t)
	token := env.token(t, domain.RoleReporter, nil)

	req := httptest.NewRequest(http.MethodPost, "/cases", bytes.NewReader([]byte("{not json")))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()
	env.router.ServeHTTP(rec, req)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for malformed body, got %d", rec.Code)
	}
}
