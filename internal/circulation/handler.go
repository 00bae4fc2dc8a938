// internal/circulation/handler.go
package circulation

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/google/uuid"
)

type Handler struct {
	service Service
}

func NewHandler(service Service) *Handler {
	return &Handler{service: service}
}

func (h *Handler) HandleIssue(w http.ResponseWriter, r *http.Request) {
	var req struct {
		CopyID   uuid.UUID  `json:"copy_id"`
		MemberID uuid.UUID  `json:"member_id"`
		StaffID  *uuid.UUID `json:"staff_id,omitempty"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	loan, err := h.service.Issue(r.Context(), req.CopyID, req.MemberID, req.StaffID)
	if err != nil {
		writeError(w, err)
		return
	}

	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(loan)
}

func (h *Handler) HandleReturn(w http.ResponseWriter, r *http.Request) {
	var req struct {
		LoanID  uuid.UUID  `json:"loan_id"`
		StaffID *uuid.UUID `json:"staff_id,omitempty"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	result, err := h.service.Return(r.Context(), req.LoanID, req.StaffID)
	if err != nil {
		writeError(w, err)
		return
	}

	json.NewEncoder(w).Encode(result)
}

func (h *Handler) HandleExtend(w http.ResponseWriter, r *http.Request) {
	var req struct {
		LoanID  uuid.UUID  `json:"loan_id"`
		StaffID *uuid.UUID `json:"staff_id,omitempty"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	newDue, err := h.service.Extend(r.Context(), req.LoanID, req.StaffID)
	if err != nil {
		writeError(w, err)
		return
	}

	json.NewEncoder(w).Encode(map[string]string{
		"new_due_date": newDue.Format("2006-01-02"),
	})
}

// writeError maps the error taxonomy onto HTTP statuses: NotFound
// kinds to 404, precondition rejections to 409.
func writeError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ErrCopyNotFound),
		errors.Is(err, ErrMemberNotFound),
		errors.Is(err, ErrLoanNotFound):
		http.Error(w, err.Error(), http.StatusNotFound)
	case errors.Is(err, ErrCopyUnavailable),
		errors.Is(err, ErrMemberBlocked),
		errors.Is(err, ErrMemberInactive),
		errors.Is(err, ErrAlreadyReturned),
		errors.Is(err, ErrLoanNotActive),
		errors.Is(err, ErrExtensionLimitReached),
		errors.Is(err, ErrReservationBlocksExtension):
		http.Error(w, err.Error(), http.StatusConflict)
	default:
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}
