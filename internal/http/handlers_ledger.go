package http

import (
	"net/http"
	"time"

	"moneta/internal/core"
	"moneta/internal/services"
)

type transactionRequest struct {
	Direction   string `json:"direction"`
	AmountCents int64  `json:"amount_cents"`
	Category    string `json:"category"`
	Description string `json:"description"`
	Shared      bool   `json:"shared"`
	Date        string `json:"date"` // "YYYY-MM-DD", defaults to today
}

type transactionPatchRequest struct {
	Direction   *string `json:"direction"`
	AmountCents *int64  `json:"amount_cents"`
	Category    *string `json:"category"`
	Description *string `json:"description"`
	Shared      *bool   `json:"shared"`
	Date        *string `json:"date"`
}

type transactionResponse struct {
	ID          int64  `json:"id"`
	Owner       string `json:"owner"`
	Direction   string `json:"direction"`
	AmountCents int64  `json:"amount_cents"`
	Category    string `json:"category"`
	Description string `json:"description,omitempty"`
	Shared      bool   `json:"shared"`
	Date        string `json:"date"`
	CreatedAt   string `json:"created_at"`
}

func toTransactionResponse(t core.Transaction) transactionResponse {
	return transactionResponse{
		ID:          t.ID,
		Owner:       t.Owner,
		Direction:   string(t.Direction),
		AmountCents: t.Amount.Cents,
		Category:    t.Category,
		Description: t.Description,
		Shared:      t.Shared,
		Date:        t.Date.Format("2006-01-02"),
		CreatedAt:   t.CreatedAt.UTC().Format(time.RFC3339),
	}
}

func (s *Server) handleCreateTransaction(w http.ResponseWriter, r *http.Request) {
	owner := ownerID(r)
	if owner == "" {
		writeError(w, http.StatusUnauthorized, "missing owner header")
		return
	}

	var req transactionRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	date := time.Now()
	if req.Date != "" {
		var err error
		if date, err = parseDate(req.Date); err != nil {
			writeError(w, http.StatusBadRequest, "invalid date, want YYYY-MM-DD")
			return
		}
	}

	created, err := s.ledger.Create(r.Context(), core.Transaction{
		Owner:       owner,
		Direction:   core.Direction(req.Direction),
		Amount:      core.Money{Cents: req.AmountCents},
		Category:    req.Category,
		Description: req.Description,
		Shared:      req.Shared,
		Date:        date,
	})
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, toTransactionResponse(created))
}

func (s *Server) handleGetTransaction(w http.ResponseWriter, r *http.Request) {
	owner := ownerID(r)
	if owner == "" {
		writeError(w, http.StatusUnauthorized, "missing owner header")
		return
	}
	id, err := pathID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid transaction id")
		return
	}

	tx, err := s.ledger.Get(r.Context(), owner, id)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toTransactionResponse(tx))
}

func (s *Server) handleListTransactions(w http.ResponseWriter, r *http.Request) {
	owner := ownerID(r)
	if owner == "" {
		writeError(w, http.StatusUnauthorized, "missing owner header")
		return
	}

	from, to, err := monthRange(r, time.Now())
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	txs, err := s.ledger.List(r.Context(), owner, from, to)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	out := make([]transactionResponse, len(txs))
	for i, tx := range txs {
		out[i] = toTransactionResponse(tx)
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleUpdateTransaction(w http.ResponseWriter, r *http.Request) {
	owner := ownerID(r)
	if owner == "" {
		writeError(w, http.StatusUnauthorized, "missing owner header")
		return
	}
	id, err := pathID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid transaction id")
		return
	}

	var req transactionPatchRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	patch := services.TransactionPatch{
		Amount:      req.AmountCents,
		Category:    req.Category,
		Description: req.Description,
		Shared:      req.Shared,
	}
	if req.Direction != nil {
		d := core.Direction(*req.Direction)
		patch.Direction = &d
	}
	if req.Date != nil {
		date, err := parseDate(*req.Date)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid date, want YYYY-MM-DD")
			return
		}
		patch.Date = &date
	}

	updated, err := s.ledger.Update(r.Context(), owner, id, patch)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toTransactionResponse(updated))
}

func (s *Server) handleDeleteTransaction(w http.ResponseWriter, r *http.Request) {
	owner := ownerID(r)
	if owner == "" {
		writeError(w, http.StatusUnauthorized, "missing owner header")
		return
	}
	id, err := pathID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid transaction id")
		return
	}

	if err := s.ledger.Delete(r.Context(), owner, id); err != nil {
		writeServiceError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
