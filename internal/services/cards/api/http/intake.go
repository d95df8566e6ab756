package httpapi

import (
	"log"
	"net/http"
	"strings"

	apperrors "github.com/louisbranch/cardpress/internal/platform/errors"
	"github.com/louisbranch/cardpress/internal/services/cards/artifacts"
	"github.com/louisbranch/cardpress/internal/services/cards/intake"
)

func (h *Handler) handleInstitutions(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"institutions": newInstitutionViews(h.issuer.Registry().List()),
	})
}

func (h *Handler) handleIntakeState(w http.ResponseWriter, r *http.Request) {
	session, ok := h.sessions.Get(r.PathValue("subject"))
	if !ok {
		writeJSON(w, http.StatusOK, replyView{State: intake.StateIdle.String(), Prompt: "Start a new card request."})
		return
	}
	writeJSON(w, http.StatusOK, newReplyView(session.Reply()))
}

func (h *Handler) handleIntakeEvent(w http.ResponseWriter, r *http.Request) {
	var event intake.Event
	if err := decodeJSON(w, r, &event); err != nil {
		writeError(w, err)
		return
	}
	if event.Kind == intake.EventPhoto {
		writeError(w, apperrors.New(apperrors.CodeInvalidArgument, "photos are uploaded to the photo endpoint"))
		return
	}
	h.applyIntake(w, r, event)
}

// handleIntakePhoto stores an uploaded photo and advances the session. An
// unreadable image continues the flow without a photo.
func (h *Handler) handleIntakePhoto(w http.ResponseWriter, r *http.Request) {
	subject := strings.TrimSpace(r.PathValue("subject"))
	session, ok := h.sessions.Get(subject)
	if !ok || session.State() != intake.StateAwaitingPhoto {
		writeError(w, apperrors.New(apperrors.CodeIntakeInvalidTransition, "no session is waiting for a photo"))
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, h.maxUploadBytes)
	file, _, err := r.FormFile("photo")
	if err != nil {
		writeError(w, apperrors.Wrap(apperrors.CodeInvalidArgument, "multipart field \"photo\" is required", err))
		return
	}
	defer file.Close()

	path, err := h.photos.SavePhoto(subject, file)
	if err != nil {
		log.Printf("save photo for %s: %v", subject, err)
		path = ""
	}
	event := intake.Event{Kind: intake.EventPhoto, PhotoPath: path}
	if !h.applyIntake(w, r, event) && path != "" {
		if err := artifacts.Remove(path); err != nil {
			log.Printf("remove rejected photo %s: %v", path, err)
		}
	}
}

func (h *Handler) applyIntake(w http.ResponseWriter, r *http.Request, event intake.Event) bool {
	reply, err := h.sessions.Apply(r.Context(), r.PathValue("subject"), event)
	if err != nil {
		status, body := errorBody(err)
		if reply.State != intake.StateIdle || reply.Prompt != "" {
			body.State = reply.State.String()
			body.Prompt = reply.Prompt
		}
		writeJSON(w, status, body)
		return false
	}
	writeJSON(w, http.StatusOK, newReplyView(reply))
	return true
}

// handleIntakeCard serves the subject's newest card image.
func (h *Handler) handleIntakeCard(w http.ResponseWriter, r *http.Request) {
	records, err := h.issuer.ListBySubject(r.Context(), r.PathValue("subject"))
	if err != nil {
		writeError(w, err)
		return
	}
	if len(records) == 0 {
		writeError(w, apperrors.New(apperrors.CodeNotFound, "no card issued for subject"))
		return
	}
	w.Header().Set("Content-Type", "image/png")
	http.ServeFile(w, r, records[0].ArtifactPath)
}
