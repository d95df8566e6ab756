package httpapi

import (
	"log"
	"net/http"
	"runtime/debug"
	"strings"
	"time"

	"github.com/justinas/alice"

	apperrors "github.com/louisbranch/cardpress/internal/platform/errors"
	"github.com/louisbranch/cardpress/internal/platform/id"
	"github.com/louisbranch/cardpress/internal/platform/requestctx"
)

const requestIDHeader = "X-Request-Id"

func baseChain() alice.Chain {
	return alice.New(withRequestID, logRequests, recoverPanics)
}

func withRequestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requestID := strings.TrimSpace(r.Header.Get(requestIDHeader))
		if requestID == "" || len(requestID) > 64 {
			generated, err := id.Short(12)
			if err == nil {
				requestID = generated
			}
		}
		w.Header().Set(requestIDHeader, requestID)
		next.ServeHTTP(w, r.WithContext(requestctx.WithRequestID(r.Context(), requestID)))
	})
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

func logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		started := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		log.Printf("http %s %s status=%d duration=%s request_id=%s",
			r.Method, r.URL.Path, rec.status, time.Since(started).Round(time.Microsecond),
			requestctx.RequestIDFromContext(r.Context()))
	})
}

func recoverPanics(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if rec := recover(); rec != nil {
				log.Printf("http panic %s %s: %v\n%s", r.Method, r.URL.Path, rec, debug.Stack())
				writeJSON(w, http.StatusInternalServerError, errorResponse{
					Error:   string(apperrors.CodeUnknown),
					Message: "internal error",
				})
			}
		}()
		next.ServeHTTP(w, r)
	})
}

// requireAdmin rejects requests without a valid bearer token and stores the
// administrator in the request context.
func (h *Handler) requireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if h.auth == nil {
			writeError(w, apperrors.New(apperrors.CodeUnauthenticated, "admin access is not configured"))
			return
		}
		header := r.Header.Get("Authorization")
		bearer, ok := strings.CutPrefix(header, "Bearer ")
		if !ok || strings.TrimSpace(bearer) == "" {
			writeError(w, apperrors.New(apperrors.CodeUnauthenticated, "bearer token required"))
			return
		}
		admin, err := h.auth.Verify(strings.TrimSpace(bearer))
		if err != nil {
			writeError(w, err)
			return
		}
		next.ServeHTTP(w, r.WithContext(requestctx.WithAdmin(r.Context(), admin)))
	})
}
