package httpapi

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	apperrors "github.com/louisbranch/cardpress/internal/platform/errors"
	"github.com/louisbranch/cardpress/internal/platform/requestctx"
	"github.com/louisbranch/cardpress/internal/services/cards/storage"
)

const (
	defaultUnusedLimit = 50
	maxUnusedLimit     = 500
	defaultPerPage     = 20
	maxPerPage         = 100
)

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type loginResponse struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
}

func (h *Handler) handleLogin(w http.ResponseWriter, r *http.Request) {
	if h.auth == nil {
		writeError(w, apperrors.New(apperrors.CodeUnauthenticated, "admin access is not configured"))
		return
	}
	var req loginRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, err)
		return
	}
	token, expires, err := h.auth.Login(req.Username, req.Password)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, loginResponse{Token: token, ExpiresAt: expires})
}

func (h *Handler) handleStats(w http.ResponseWriter, r *http.Request) {
	report, err := h.reporter.Report(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, newStatsView(report))
}

type generateRequest struct {
	Count int `json:"count"`
}

type generateResponse struct {
	Codes []string `json:"codes"`
}

func (h *Handler) handleGenerateTokens(w http.ResponseWriter, r *http.Request) {
	var req generateRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, err)
		return
	}
	creator := requestctx.AdminFromContext(r.Context())
	codes, err := h.tokens.Generate(r.Context(), req.Count, creator)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, generateResponse{Codes: codes})
}

func (h *Handler) handleUnusedTokens(w http.ResponseWriter, r *http.Request) {
	limit, err := queryInt(r, "limit", defaultUnusedLimit)
	if err != nil {
		writeError(w, err)
		return
	}
	limit = min(max(limit, 1), maxUnusedLimit)
	tokens, err := h.tokens.Unused(r.Context(), limit)
	if err != nil {
		writeError(w, err)
		return
	}
	views := make([]tokenView, 0, len(tokens))
	for _, token := range tokens {
		views = append(views, newTokenView(token))
	}
	writeJSON(w, http.StatusOK, map[string]any{"tokens": views})
}

func (h *Handler) handleListCards(w http.ResponseWriter, r *http.Request) {
	p, err := queryPage(r)
	if err != nil {
		writeError(w, err)
		return
	}
	records, err := h.issuer.List(r.Context(), p)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"page":     p.Number,
		"per_page": p.PerPage,
		"cards":    newCardViews(records),
	})
}

func (h *Handler) handleListSubjects(w http.ResponseWriter, r *http.Request) {
	p, err := queryPage(r)
	if err != nil {
		writeError(w, err)
		return
	}
	subjects, err := h.issuer.ListSubjects(r.Context(), p)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"page":     p.Number,
		"per_page": p.PerPage,
		"subjects": newSubjectViews(subjects),
	})
}

func queryPage(r *http.Request) (storage.Page, error) {
	page, err := queryInt(r, "page", 1)
	if err != nil {
		return storage.Page{}, err
	}
	perPage, err := queryInt(r, "per_page", defaultPerPage)
	if err != nil {
		return storage.Page{}, err
	}
	return storage.Page{Number: max(page, 1), PerPage: min(max(perPage, 1), maxPerPage)}, nil
}

func (h *Handler) handleDeleteCard(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil || id <= 0 {
		writeError(w, apperrors.New(apperrors.CodeInvalidArgument, "card id must be a positive integer"))
		return
	}
	record, err := h.issuer.Delete(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, newCardView(record))
}

func (h *Handler) handleSubjectCards(w http.ResponseWriter, r *http.Request) {
	records, err := h.issuer.ListBySubject(r.Context(), r.PathValue("subject"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"cards": newCardViews(records)})
}

func queryInt(r *http.Request, key string, fallback int) (int, error) {
	raw := strings.TrimSpace(r.URL.Query().Get(key))
	if raw == "" {
		return fallback, nil
	}
	value, err := strconv.Atoi(raw)
	if err != nil {
		return 0, apperrors.New(apperrors.CodeInvalidArgument, key+" must be an integer")
	}
	return value, nil
}
