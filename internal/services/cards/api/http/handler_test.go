package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"image/color"
	"image/png"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/disintegration/imaging"
	"github.com/prometheus/client_golang/prometheus"
	"golang.org/x/crypto/bcrypt"

	"github.com/louisbranch/cardpress/internal/services/cards/artifacts"
	"github.com/louisbranch/cardpress/internal/services/cards/domain"
	"github.com/louisbranch/cardpress/internal/services/cards/intake"
	"github.com/louisbranch/cardpress/internal/services/cards/issuance"
	"github.com/louisbranch/cardpress/internal/services/cards/metrics"
	"github.com/louisbranch/cardpress/internal/services/cards/storage/sqlite"
)

const (
	testAdmin    = "registrar"
	testPassword = "correct horse"
	testSecret   = "0123456789abcdef0123"
)

type pngRenderer struct {
	dir string
}

func (r pngRenderer) Render(_ context.Context, institutionID string, fields domain.CardFields, _, photoPath string) (string, error) {
	f, err := os.CreateTemp(r.dir, "id_card_"+institutionID+"_*.png")
	if err != nil {
		return "", err
	}
	defer f.Close()
	if err := png.Encode(f, imaging.New(4, 4, color.White)); err != nil {
		return "", err
	}
	return f.Name(), nil
}

type zeroRand struct{}

func (zeroRand) IntN(int) int { return 0 }

type testServer struct {
	*httptest.Server
	store *sqlite.Store
	dirs  artifacts.Dirs
}

func newTestServer(t *testing.T, withAuth bool) *testServer {
	t.Helper()
	root := t.TempDir()
	dirs := artifacts.Dirs{Cards: filepath.Join(root, "cards"), Photos: filepath.Join(root, "photos")}
	if err := dirs.Ensure(); err != nil {
		t.Fatalf("ensure dirs: %v", err)
	}
	store, err := sqlite.Open(filepath.Join(root, "cards.db"))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })

	registry, err := domain.DefaultRegistry()
	if err != nil {
		t.Fatalf("registry: %v", err)
	}
	reg := prometheus.NewRegistry()
	m := metrics.New(reg)
	issuer, err := issuance.NewIssuer(store, store, registry, pngRenderer{dir: dirs.Cards},
		issuance.WithRand(zeroRand{}), issuance.WithMetrics(m), issuance.WithSubjects(store))
	if err != nil {
		t.Fatalf("issuer: %v", err)
	}
	tokens, err := issuance.NewTokenGenerator(store, m)
	if err != nil {
		t.Fatalf("tokens: %v", err)
	}

	deps := Deps{
		Issuer:   issuer,
		Tokens:   tokens,
		Reporter: issuance.NewReporter(store, store, store),
		Sessions: intake.NewSessions(issuer, m),
		Photos:   dirs,
		Gatherer: reg,
	}
	if withAuth {
		hash, err := bcrypt.GenerateFromPassword([]byte(testPassword), bcrypt.MinCost)
		if err != nil {
			t.Fatalf("hash: %v", err)
		}
		auth, err := NewAuthenticator(AuthConfig{Username: testAdmin, PasswordHash: string(hash), Secret: testSecret})
		if err != nil {
			t.Fatalf("authenticator: %v", err)
		}
		deps.Auth = auth
	}
	handler, err := NewHandler(deps)
	if err != nil {
		t.Fatalf("handler: %v", err)
	}
	server := httptest.NewServer(handler.Routes())
	t.Cleanup(server.Close)
	return &testServer{Server: server, store: store, dirs: dirs}
}

func (s *testServer) do(t *testing.T, method, path, bearer string, body any) (*http.Response, []byte) {
	t.Helper()
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal: %v", err)
		}
		reader = bytes.NewReader(data)
	}
	req, err := http.NewRequest(method, s.URL+path, reader)
	if err != nil {
		t.Fatalf("new request: %v", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}
	return s.send(t, req)
}

func (s *testServer) send(t *testing.T, req *http.Request) (*http.Response, []byte) {
	t.Helper()
	resp, err := s.Client().Do(req)
	if err != nil {
		t.Fatalf("%s %s: %v", req.Method, req.URL.Path, err)
	}
	defer resp.Body.Close()
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("read body: %v", err)
	}
	return resp, data
}

func (s *testServer) login(t *testing.T) string {
	t.Helper()
	resp, body := s.do(t, http.MethodPost, "/api/admin/login", "", loginRequest{Username: testAdmin, Password: testPassword})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("login status %d: %s", resp.StatusCode, body)
	}
	var out loginResponse
	decodeBody(t, body, &out)
	if out.Token == "" || out.ExpiresAt.Before(time.Now()) {
		t.Fatalf("unexpected login response %+v", out)
	}
	return out.Token
}

func decodeBody(t *testing.T, body []byte, target any) {
	t.Helper()
	if err := json.Unmarshal(body, target); err != nil {
		t.Fatalf("decode %s: %v", body, err)
	}
}

func TestAdminRoutesRequireToken(t *testing.T) {
	srv := newTestServer(t, true)
	for _, path := range []string{"/api/admin/stats", "/api/admin/tokens/unused", "/api/admin/cards"} {
		resp, body := srv.do(t, http.MethodGet, path, "", nil)
		if resp.StatusCode != http.StatusUnauthorized {
			t.Fatalf("%s: expected 401, got %d", path, resp.StatusCode)
		}
		var errBody errorResponse
		decodeBody(t, body, &errBody)
		if errBody.Error != "UNAUTHENTICATED" {
			t.Fatalf("%s: unexpected error body %+v", path, errBody)
		}
	}
	resp, _ := srv.do(t, http.MethodGet, "/api/admin/stats", "not-a-jwt", nil)
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("expected 401 for bad token, got %d", resp.StatusCode)
	}
}

func TestLoginRejectsBadPassword(t *testing.T) {
	srv := newTestServer(t, true)
	resp, _ := srv.do(t, http.MethodPost, "/api/admin/login", "", loginRequest{Username: testAdmin, Password: "nope"})
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", resp.StatusCode)
	}
	resp, _ = srv.do(t, http.MethodPost, "/api/admin/login", "", map[string]string{"user": "x"})
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400 for unknown fields, got %d", resp.StatusCode)
	}
}

func TestAdminDisabledWithoutAuth(t *testing.T) {
	srv := newTestServer(t, false)
	resp, _ := srv.do(t, http.MethodPost, "/api/admin/login", "", loginRequest{Username: testAdmin, Password: testPassword})
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", resp.StatusCode)
	}
	resp, _ = srv.do(t, http.MethodGet, "/api/institutions", "", nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected public institutions, got %d", resp.StatusCode)
	}
}

func TestGenerateTokensAndStats(t *testing.T) {
	srv := newTestServer(t, true)
	token := srv.login(t)

	resp, body := srv.do(t, http.MethodPost, "/api/admin/tokens", token, generateRequest{Count: 3})
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("generate status %d: %s", resp.StatusCode, body)
	}
	var generated generateResponse
	decodeBody(t, body, &generated)
	if len(generated.Codes) != 3 {
		t.Fatalf("expected 3 codes, got %v", generated.Codes)
	}
	created, err := srv.store.GetToken(context.Background(), generated.Codes[0])
	if err != nil {
		t.Fatalf("get token: %v", err)
	}
	if created.CreatedBy != testAdmin {
		t.Fatalf("expected creator %q, got %q", testAdmin, created.CreatedBy)
	}

	resp, _ = srv.do(t, http.MethodPost, "/api/admin/tokens", token, generateRequest{Count: 101})
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400 for oversized batch, got %d", resp.StatusCode)
	}

	resp, body = srv.do(t, http.MethodGet, "/api/admin/tokens/unused?limit=2", token, nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("unused status %d", resp.StatusCode)
	}
	var unused struct {
		Tokens []tokenView `json:"tokens"`
	}
	decodeBody(t, body, &unused)
	if len(unused.Tokens) != 2 || unused.Tokens[0].Used {
		t.Fatalf("unexpected unused tokens %+v", unused.Tokens)
	}
	resp, _ = srv.do(t, http.MethodGet, "/api/admin/tokens/unused?limit=abc", token, nil)
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400 for bad limit, got %d", resp.StatusCode)
	}

	resp, body = srv.do(t, http.MethodGet, "/api/admin/stats", token, nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("stats status %d", resp.StatusCode)
	}
	var stats statsView
	decodeBody(t, body, &stats)
	if stats.Tokens.Total != 3 || stats.Tokens.Available != 3 || stats.Cards.Total != 0 || stats.Subjects.Total != 0 {
		t.Fatalf("unexpected stats %+v", stats)
	}
}

func TestIntakeFlowIssuesCard(t *testing.T) {
	srv := newTestServer(t, true)
	if err := srv.store.CreateToken(context.Background(), "FLOW0001", testAdmin); err != nil {
		t.Fatalf("create token: %v", err)
	}

	steps := []struct {
		event intake.Event
		state string
	}{
		{intake.Event{Kind: intake.EventStart}, "collecting_name"},
		{intake.Event{Kind: intake.EventText, Text: "Asha Rao"}, "collecting_father"},
		{intake.Event{Kind: intake.EventText, Text: "Vikram Rao"}, "collecting_phone"},
		{intake.Event{Kind: intake.EventText, Text: "98765 43210"}, "awaiting_photo"},
	}
	for _, step := range steps {
		resp, body := srv.do(t, http.MethodPost, "/api/intake/u1/events", "", step.event)
		if resp.StatusCode != http.StatusOK {
			t.Fatalf("%s: status %d: %s", step.event.Kind, resp.StatusCode, body)
		}
		var reply replyView
		decodeBody(t, body, &reply)
		if reply.State != step.state {
			t.Fatalf("%s: expected %s, got %s", step.event.Kind, step.state, reply.State)
		}
	}

	resp, body := srv.uploadPhoto(t, "u1", pngBytes(t))
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("photo status %d: %s", resp.StatusCode, body)
	}
	var reply replyView
	decodeBody(t, body, &reply)
	if reply.State != "selecting_institution" || len(reply.Institutions) != 5 {
		t.Fatalf("unexpected photo reply %+v", reply)
	}
	photos, _ := os.ReadDir(srv.dirs.Photos)
	if len(photos) != 1 || !strings.HasPrefix(photos[0].Name(), "user_u1_") {
		t.Fatalf("expected stored photo, got %v", photos)
	}

	resp, body = srv.do(t, http.MethodPost, "/api/intake/u1/events", "", intake.Event{Kind: intake.EventSelectInstitution, InstitutionID: "9"})
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400 for unknown institution, got %d", resp.StatusCode)
	}
	var errBody errorResponse
	decodeBody(t, body, &errBody)
	if errBody.Error != "INVALID_INSTITUTION" || errBody.State != "selecting_institution" {
		t.Fatalf("unexpected error body %+v", errBody)
	}

	resp, _ = srv.do(t, http.MethodPost, "/api/intake/u1/events", "", intake.Event{Kind: intake.EventSelectInstitution, InstitutionID: "4"})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("select status %d", resp.StatusCode)
	}

	resp, body = srv.do(t, http.MethodPost, "/api/intake/u1/events", "", intake.Event{Kind: intake.EventText, Text: "WRONG001"})
	if resp.StatusCode != http.StatusConflict {
		t.Fatalf("expected 409 for bad token, got %d", resp.StatusCode)
	}
	decodeBody(t, body, &errBody)
	if errBody.Error != "REDEMPTION_FAILED" || errBody.State != "awaiting_token" {
		t.Fatalf("unexpected redemption error %+v", errBody)
	}

	resp, body = srv.do(t, http.MethodPost, "/api/intake/u1/events", "", intake.Event{Kind: intake.EventText, Text: "flow0001"})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("token status %d: %s", resp.StatusCode, body)
	}
	decodeBody(t, body, &reply)
	if reply.State != "done" || reply.Card == nil || reply.Card.InstitutionID != "4" || reply.Card.TokenCode != "FLOW0001" {
		t.Fatalf("unexpected final reply %+v", reply)
	}

	resp, body = srv.do(t, http.MethodGet, "/api/intake/u1/card", "", nil)
	if resp.StatusCode != http.StatusOK || resp.Header.Get("Content-Type") != "image/png" {
		t.Fatalf("card status %d type %q", resp.StatusCode, resp.Header.Get("Content-Type"))
	}
	if _, err := png.Decode(bytes.NewReader(body)); err != nil {
		t.Fatalf("decode card: %v", err)
	}

	token := srv.login(t)
	resp, body = srv.do(t, http.MethodGet, "/api/admin/subjects/u1/cards", token, nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("subject cards status %d", resp.StatusCode)
	}
	var cards struct {
		Cards []cardView `json:"cards"`
	}
	decodeBody(t, body, &cards)
	if len(cards.Cards) != 1 {
		t.Fatalf("expected one card, got %d", len(cards.Cards))
	}

	resp, body = srv.do(t, http.MethodGet, "/api/admin/cards?page=1&per_page=10", token, nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("list cards status %d", resp.StatusCode)
	}
	decodeBody(t, body, &cards)
	if len(cards.Cards) != 1 {
		t.Fatalf("expected one listed card, got %d", len(cards.Cards))
	}

	cardID := cards.Cards[0].ID
	resp, _ = srv.do(t, http.MethodDelete, "/api/admin/cards/"+itoa(cardID), token, nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("delete status %d", resp.StatusCode)
	}
	if _, err := os.Stat(cards.Cards[0].ArtifactPath); !os.IsNotExist(err) {
		t.Fatalf("expected card file removed, got %v", err)
	}
	resp, _ = srv.do(t, http.MethodDelete, "/api/admin/cards/"+itoa(cardID), token, nil)
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("expected 404 on second delete, got %d", resp.StatusCode)
	}
	resp, _ = srv.do(t, http.MethodDelete, "/api/admin/cards/abc", token, nil)
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400 for bad id, got %d", resp.StatusCode)
	}
	resp, _ = srv.do(t, http.MethodGet, "/api/intake/u1/card", "", nil)
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("expected 404 card after delete, got %d", resp.StatusCode)
	}
}

func TestAdminListsSubjectsWithCardCounts(t *testing.T) {
	srv := newTestServer(t, true)
	if err := srv.store.CreateToken(context.Background(), "SUBJ0001", testAdmin); err != nil {
		t.Fatalf("create token: %v", err)
	}
	script := []intake.Event{
		{Kind: intake.EventStart},
		{Kind: intake.EventText, Text: "Asha Rao"},
		{Kind: intake.EventText, Text: "Vikram Rao"},
		{Kind: intake.EventText, Text: "9876543210"},
		{Kind: intake.EventSkipPhoto},
		{Kind: intake.EventSelectInstitution, InstitutionID: "1"},
		{Kind: intake.EventText, Text: "SUBJ0001"},
	}
	for _, event := range script {
		if resp, body := srv.do(t, http.MethodPost, "/api/intake/s1/events", "", event); resp.StatusCode != http.StatusOK {
			t.Fatalf("%s: status %d: %s", event.Kind, resp.StatusCode, body)
		}
	}
	if resp, _ := srv.do(t, http.MethodPost, "/api/intake/s2/events", "", intake.Event{Kind: intake.EventStart}); resp.StatusCode != http.StatusOK {
		t.Fatalf("start s2: %d", resp.StatusCode)
	}

	token := srv.login(t)
	resp, body := srv.do(t, http.MethodGet, "/api/admin/subjects", token, nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("subjects status %d", resp.StatusCode)
	}
	var listing struct {
		Subjects []subjectView `json:"subjects"`
	}
	decodeBody(t, body, &listing)
	counts := make(map[string]int)
	for _, subject := range listing.Subjects {
		if subject.FirstSeen.IsZero() || subject.LastSeen.IsZero() {
			t.Fatalf("expected seen times on %+v", subject)
		}
		counts[subject.ID] = subject.CardCount
	}
	if len(counts) != 2 || counts["s1"] != 1 || counts["s2"] != 0 {
		t.Fatalf("unexpected subject listing %+v", listing.Subjects)
	}

	resp, body = srv.do(t, http.MethodGet, "/api/admin/subjects?page=2&per_page=1", token, nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("paged subjects status %d", resp.StatusCode)
	}
	decodeBody(t, body, &listing)
	if len(listing.Subjects) != 1 {
		t.Fatalf("expected one subject on page 2, got %d", len(listing.Subjects))
	}

	resp, body = srv.do(t, http.MethodGet, "/api/admin/stats", token, nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("stats status %d", resp.StatusCode)
	}
	var stats statsView
	decodeBody(t, body, &stats)
	if stats.Subjects.Total != 2 || stats.Cards.Total != 1 {
		t.Fatalf("unexpected stats %+v", stats)
	}

	if resp, _ := srv.do(t, http.MethodGet, "/api/admin/subjects", "", nil); resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("expected 401 without token, got %d", resp.StatusCode)
	}
}

func TestIntakeStateIncludesPrompt(t *testing.T) {
	srv := newTestServer(t, false)
	resp, body := srv.do(t, http.MethodGet, "/api/intake/p1", "", nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("idle state status %d", resp.StatusCode)
	}
	var reply replyView
	decodeBody(t, body, &reply)
	if reply.State != "idle" || reply.Prompt == "" {
		t.Fatalf("unexpected idle reply %+v", reply)
	}

	srv.do(t, http.MethodPost, "/api/intake/p1/events", "", intake.Event{Kind: intake.EventStart})
	resp, body = srv.do(t, http.MethodGet, "/api/intake/p1", "", nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("state status %d", resp.StatusCode)
	}
	decodeBody(t, body, &reply)
	if reply.State != "collecting_name" || reply.Prompt != "Please enter your full name as it should appear on the card:" {
		t.Fatalf("unexpected state reply %+v", reply)
	}
}

func TestPhotoUploadRequiresAwaitingSession(t *testing.T) {
	srv := newTestServer(t, false)
	resp, body := srv.uploadPhoto(t, "nobody", pngBytes(t))
	if resp.StatusCode != http.StatusConflict {
		t.Fatalf("expected 409, got %d: %s", resp.StatusCode, body)
	}
	photos, _ := os.ReadDir(srv.dirs.Photos)
	if len(photos) != 0 {
		t.Fatalf("expected no stored photos, got %d", len(photos))
	}
}

func TestPhotoUploadGarbageContinuesWithoutPhoto(t *testing.T) {
	srv := newTestServer(t, false)
	for _, event := range []intake.Event{
		{Kind: intake.EventStart},
		{Kind: intake.EventText, Text: "A"},
		{Kind: intake.EventText, Text: "B"},
		{Kind: intake.EventText, Text: "123"},
	} {
		if resp, body := srv.do(t, http.MethodPost, "/api/intake/u2/events", "", event); resp.StatusCode != http.StatusOK {
			t.Fatalf("%s: %d %s", event.Kind, resp.StatusCode, body)
		}
	}
	resp, body := srv.uploadPhoto(t, "u2", []byte("not an image"))
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected flow to continue, got %d: %s", resp.StatusCode, body)
	}
	var reply replyView
	decodeBody(t, body, &reply)
	if reply.State != "selecting_institution" || !strings.Contains(reply.Prompt, "without a photo") {
		t.Fatalf("unexpected reply %+v", reply)
	}
}

func TestIntakeRejectsPhotoEventAndBadOrder(t *testing.T) {
	srv := newTestServer(t, false)
	resp, _ := srv.do(t, http.MethodPost, "/api/intake/u3/events", "", intake.Event{Kind: intake.EventPhoto})
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400 for photo event, got %d", resp.StatusCode)
	}
	resp, body := srv.do(t, http.MethodPost, "/api/intake/u3/events", "", intake.Event{Kind: intake.EventText, Text: "hi"})
	if resp.StatusCode != http.StatusConflict {
		t.Fatalf("expected 409 before start, got %d", resp.StatusCode)
	}
	var errBody errorResponse
	decodeBody(t, body, &errBody)
	if errBody.Error != "INTAKE_INVALID_TRANSITION" || errBody.Metadata["state"] != "idle" {
		t.Fatalf("unexpected error %+v", errBody)
	}
}

func TestMetricsAndHealthAndRequestID(t *testing.T) {
	srv := newTestServer(t, false)
	resp, _ := srv.do(t, http.MethodGet, "/healthz", "", nil)
	if resp.StatusCode != http.StatusOK || resp.Header.Get(requestIDHeader) == "" {
		t.Fatalf("health: %d id=%q", resp.StatusCode, resp.Header.Get(requestIDHeader))
	}

	req, _ := http.NewRequest(http.MethodGet, srv.URL+"/healthz", nil)
	req.Header.Set(requestIDHeader, "trace-123")
	resp, _ = srv.send(t, req)
	if got := resp.Header.Get(requestIDHeader); got != "trace-123" {
		t.Fatalf("expected propagated request id, got %q", got)
	}

	srv.do(t, http.MethodPost, "/api/intake/m1/events", "", intake.Event{Kind: intake.EventStart})
	resp, body := srv.do(t, http.MethodGet, "/metrics", "", nil)
	if resp.StatusCode != http.StatusOK || !strings.Contains(string(body), "cardpress_intake_transitions_total") {
		t.Fatalf("unexpected metrics response %d", resp.StatusCode)
	}
}

func TestRecoverPanics(t *testing.T) {
	handler := baseChain().ThenFunc(func(http.ResponseWriter, *http.Request) { panic("boom") })
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", rec.Code)
	}
}

func (s *testServer) uploadPhoto(t *testing.T, subject string, data []byte) (*http.Response, []byte) {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	part, err := mw.CreateFormFile("photo", "me.png")
	if err != nil {
		t.Fatalf("form file: %v", err)
	}
	if _, err := part.Write(data); err != nil {
		t.Fatalf("write part: %v", err)
	}
	if err := mw.Close(); err != nil {
		t.Fatalf("close multipart: %v", err)
	}
	req, err := http.NewRequest(http.MethodPost, s.URL+"/api/intake/"+subject+"/photo", &buf)
	if err != nil {
		t.Fatalf("new request: %v", err)
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return s.send(t, req)
}

func pngBytes(t *testing.T) []byte {
	t.Helper()
	var buf bytes.Buffer
	if err := png.Encode(&buf, imaging.New(300, 200, color.NRGBA{B: 200, A: 255})); err != nil {
		t.Fatalf("encode png: %v", err)
	}
	return buf.Bytes()
}

func itoa(v int64) string {
	return strconv.FormatInt(v, 10)
}
