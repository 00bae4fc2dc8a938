// internal/reservation/handler.go
package reservation

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
)

type Handler struct {
	service Service
}

func NewHandler(service Service) *Handler {
	return &Handler{service: service}
}

func (h *Handler) HandleReserve(w http.ResponseWriter, r *http.Request) {
	var req struct {
		BookID   uuid.UUID  `json:"book_id"`
		MemberID uuid.UUID  `json:"member_id"`
		StaffID  *uuid.UUID `json:"staff_id,omitempty"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	res, err := h.service.Reserve(r.Context(), req.BookID, req.MemberID, req.StaffID)
	if err != nil {
		writeError(w, err)
		return
	}

	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(res)
}

func (h *Handler) HandleCancel(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		http.Error(w, "invalid reservation ID", http.StatusBadRequest)
		return
	}

	if err := h.service.Cancel(r.Context(), id, staffIDFromRequest(r)); err != nil {
		writeError(w, err)
		return
	}

	json.NewEncoder(w).Encode(map[string]string{"message": "reservation cancelled"})
}

func (h *Handler) HandleFulfill(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		http.Error(w, "invalid reservation ID", http.StatusBadRequest)
		return
	}

	heldCopy, err := h.service.Fulfill(r.Context(), id, staffIDFromRequest(r))
	if err != nil {
		writeError(w, err)
		return
	}

	resp := map[string]string{"message": "reservation fulfilled"}
	if heldCopy != uuid.Nil {
		resp["held_copy_id"] = heldCopy.String()
	}
	json.NewEncoder(w).Encode(resp)
}

func staffIDFromRequest(r *http.Request) *uuid.UUID {
	if v := r.Header.Get("X-Staff-ID"); v != "" {
		if id, err := uuid.Parse(v); err == nil {
			return &id
		}
	}
	return nil
}

func writeError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ErrBookNotFound),
		errors.Is(err, ErrMemberNotFound),
		errors.Is(err, ErrReservationNotFound):
		http.Error(w, err.Error(), http.StatusNotFound)
	case errors.Is(err, ErrMemberBlocked),
		errors.Is(err, ErrDuplicateReservation),
		errors.Is(err, ErrAlreadyTerminal),
		errors.Is(err, ErrNotNotified):
		http.Error(w, err.Error(), http.StatusConflict)
	default:
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}
