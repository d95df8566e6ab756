// Package httpapi serves the card issuance HTTP API: administrator token and
// card management plus a transport for the intake flow.
package httpapi

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	apperrors "github.com/louisbranch/cardpress/internal/platform/errors"
	"github.com/louisbranch/cardpress/internal/services/cards/artifacts"
	"github.com/louisbranch/cardpress/internal/services/cards/intake"
	"github.com/louisbranch/cardpress/internal/services/cards/issuance"
)

const defaultMaxUploadBytes = 10 << 20

// Deps are the services behind the API.
type Deps struct {
	Issuer   *issuance.Issuer
	Tokens   *issuance.TokenGenerator
	Reporter *issuance.Reporter
	Sessions *intake.Sessions
	Photos   artifacts.Dirs
	// Auth may be nil, which disables the administrator routes.
	Auth *Authenticator
	// Gatherer backs /metrics when set.
	Gatherer       prometheus.Gatherer
	MaxUploadBytes int64
}

// Handler routes API requests.
type Handler struct {
	issuer         *issuance.Issuer
	tokens         *issuance.TokenGenerator
	reporter       *issuance.Reporter
	sessions       *intake.Sessions
	photos         artifacts.Dirs
	auth           *Authenticator
	gatherer       prometheus.Gatherer
	maxUploadBytes int64
}

// NewHandler validates deps and builds a handler.
func NewHandler(deps Deps) (*Handler, error) {
	if deps.Issuer == nil || deps.Tokens == nil || deps.Reporter == nil || deps.Sessions == nil {
		return nil, errors.New("issuer, tokens, reporter and sessions are required")
	}
	maxUpload := deps.MaxUploadBytes
	if maxUpload <= 0 {
		maxUpload = defaultMaxUploadBytes
	}
	return &Handler{
		issuer:         deps.Issuer,
		tokens:         deps.Tokens,
		reporter:       deps.Reporter,
		sessions:       deps.Sessions,
		photos:         deps.Photos,
		auth:           deps.Auth,
		gatherer:       deps.Gatherer,
		maxUploadBytes: maxUpload,
	}, nil
}

// Routes returns the API wrapped in the request middleware chain.
func (h *Handler) Routes() http.Handler {
	mux := http.NewServeMux()
	admin := func(fn http.HandlerFunc) http.Handler { return h.requireAdmin(fn) }

	mux.HandleFunc("POST /api/admin/login", h.handleLogin)
	mux.Handle("GET /api/admin/stats", admin(h.handleStats))
	mux.Handle("POST /api/admin/tokens", admin(h.handleGenerateTokens))
	mux.Handle("GET /api/admin/tokens/unused", admin(h.handleUnusedTokens))
	mux.Handle("GET /api/admin/cards", admin(h.handleListCards))
	mux.Handle("DELETE /api/admin/cards/{id}", admin(h.handleDeleteCard))
	mux.Handle("GET /api/admin/subjects", admin(h.handleListSubjects))
	mux.Handle("GET /api/admin/subjects/{subject}/cards", admin(h.handleSubjectCards))

	mux.HandleFunc("GET /api/institutions", h.handleInstitutions)
	mux.HandleFunc("GET /api/intake/{subject}", h.handleIntakeState)
	mux.HandleFunc("POST /api/intake/{subject}/events", h.handleIntakeEvent)
	mux.HandleFunc("POST /api/intake/{subject}/photo", h.handleIntakePhoto)
	mux.HandleFunc("GET /api/intake/{subject}/card", h.handleIntakeCard)

	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	if h.gatherer != nil {
		mux.Handle("GET /metrics", promhttp.HandlerFor(h.gatherer, promhttp.HandlerOpts{}))
	}

	return baseChain().Then(mux)
}

type errorResponse struct {
	Error    string            `json:"error"`
	Message  string            `json:"message"`
	Metadata map[string]string `json:"metadata,omitempty"`
	State    string            `json:"state,omitempty"`
	Prompt   string            `json:"prompt,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	encoder := json.NewEncoder(w)
	_ = encoder.Encode(payload)
}

func errorBody(err error) (int, errorResponse) {
	code := apperrors.CodeOf(err)
	status := code.HTTPStatus()
	if status == http.StatusInternalServerError {
		log.Printf("http internal error: %v", err)
	}
	body := errorResponse{Error: string(code), Message: apperrors.PublicMessage(err)}
	var domainErr *apperrors.Error
	if errors.As(err, &domainErr) {
		body.Metadata = domainErr.Metadata
	}
	return status, body
}

func writeError(w http.ResponseWriter, err error) {
	status, body := errorBody(err)
	writeJSON(w, status, body)
}

func decodeJSON(w http.ResponseWriter, r *http.Request, target any) error {
	decoder := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<20))
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(target); err != nil {
		return apperrors.Wrap(apperrors.CodeInvalidArgument, "invalid JSON body", err)
	}
	return nil
}
