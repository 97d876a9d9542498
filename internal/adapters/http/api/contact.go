package api

import (
	"net/http"
	"strings"

	"github.com/google/uuid"

	"github.com/okian/vivaran/internal/domain/model"
)

type contactRequest struct {
	Name    string `json:"name"`
	Email   string `json:"email"`
	Subject string `json:"subject"`
	Message string `json:"message"`
}

// handleContact handles POST /api/contact.
func (s *Server) handleContact(w http.ResponseWriter, r *http.Request) {
	var req contactRequest
	if err := decodeJSON(r, &req); err != nil {
		s.writeFailure(w, r, err)
		return
	}
	msg := model.ContactMessage{
		Name:      strings.TrimSpace(req.Name),
		Email:     strings.TrimSpace(req.Email),
		Subject:   strings.TrimSpace(req.Subject),
		Message:   strings.TrimSpace(req.Message),
		CreatedAt: s.now().UTC(),
	}
	if err := msg.Validate(); err != nil {
		s.writeFailure(w, r, err)
		return
	}
	id := uuid.NewString()
	if err := s.db.WriteRecord(r.Context(), model.Path(model.CollectionMessages, id), msg); err != nil {
		s.writeFailure(w, r, err)
		return
	}
	writeJSON(w, http.StatusAccepted, map[string]string{"id": id})
}
