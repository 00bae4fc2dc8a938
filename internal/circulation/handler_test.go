// internal/circulation/handler_test.go
package circulation

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"biblios/internal/store"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func postJSON(t *testing.T, handlerFunc http.HandlerFunc, body any) *httptest.ResponseRecorder {
	t.Helper()
	payload, err := json.Marshal(body)
	require.NoError(t, err)
	req := httptest.NewRequest(http.MethodPost, "/", bytes.NewReader(payload))
	rec := httptest.NewRecorder()
	handlerFunc(rec, req)
	return rec
}

func TestHandleIssue(t *testing.T) {
	at := time.Date(2026, 3, 10, 14, 30, 0, 0, time.UTC)
	db := setupTestDB(t)
	svc := newTestService(t, db, at)
	handler := NewHandler(svc)

	_, copy := seedBookWithCopy(t, db, store.CopyAvailable)
	member := seedMember(t, db)

	rec := postJSON(t, handler.HandleIssue, map[string]any{
		"copy_id":   copy.ID,
		"member_id": member.ID,
	})
	require.Equal(t, http.StatusCreated, rec.Code)

	var loan store.Loan
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&loan))
	assert.Equal(t, store.LoanActive, loan.Status)
	assert.Equal(t, copy.ID, loan.CopyID)

	t.Run("conflict when copy is taken", func(t *testing.T) {
		rec := postJSON(t, handler.HandleIssue, map[string]any{
			"copy_id":   copy.ID,
			"member_id": member.ID,
		})
		assert.Equal(t, http.StatusConflict, rec.Code)
	})

	t.Run("not found for unknown copy", func(t *testing.T) {
		rec := postJSON(t, handler.HandleIssue, map[string]any{
			"copy_id":   uuid.New(),
			"member_id": member.ID,
		})
		assert.Equal(t, http.StatusNotFound, rec.Code)
	})

	t.Run("bad payload", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/", bytes.NewReader([]byte("{")))
		rec := httptest.NewRecorder()
		handler.HandleIssue(rec, req)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})
}

func TestHandleReturnAndExtend(t *testing.T) {
	ctx := context.Background()
	at := time.Date(2026, 3, 10, 14, 30, 0, 0, time.UTC)
	db := setupTestDB(t)
	svc := newTestService(t, db, at)
	handler := NewHandler(svc)

	_, copy := seedBookWithCopy(t, db, store.CopyAvailable)
	member := seedMember(t, db)
	loan, err := svc.Issue(ctx, copy.ID, member.ID, nil)
	require.NoError(t, err)

	rec := postJSON(t, handler.HandleExtend, map[string]any{"loan_id": loan.ID})
	require.Equal(t, http.StatusOK, rec.Code)
	var extendResp map[string]string
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&extendResp))
	assert.Equal(t, loan.DueDate.AddDate(0, 0, 30).Format("2006-01-02"), extendResp["new_due_date"])

	rec = postJSON(t, handler.HandleReturn, map[string]any{"loan_id": loan.ID})
	require.Equal(t, http.StatusOK, rec.Code)
	var result ReturnResult
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&result))
	assert.Equal(t, loan.ID, result.LoanID)
	assert.Nil(t, result.NotifiedReservationID)

	rec = postJSON(t, handler.HandleReturn, map[string]any{"loan_id": loan.ID})
	assert.Equal(t, http.StatusConflict, rec.Code)
}
