package http

import (
	"net/http"

	"moneta/internal/core"
)

type dueRequest struct {
	Counterparty string `json:"counterparty"`
	Direction    string `json:"direction"` // "owed_to_me" or "owed_by_me"
	AmountCents  int64  `json:"amount_cents"`
	DueDate      string `json:"due_date"` // "YYYY-MM-DD"
}

type dueResponse struct {
	ID           int64  `json:"id"`
	Owner        string `json:"owner"`
	Counterparty string `json:"counterparty"`
	Direction    string `json:"direction"`
	AmountCents  int64  `json:"amount_cents"`
	DueDate      string `json:"due_date"`
	Status       string `json:"status"`
}

func toDueResponse(d core.DueItem) dueResponse {
	return dueResponse{
		ID:           d.ID,
		Owner:        d.Owner,
		Counterparty: d.Counterparty,
		Direction:    string(d.Direction),
		AmountCents:  d.Amount.Cents,
		DueDate:      d.DueDate.Format("2006-01-02"),
		Status:       string(d.Status),
	}
}

func (s *Server) handleCreateDue(w http.ResponseWriter, r *http.Request) {
	owner := ownerID(r)
	if owner == "" {
		writeError(w, http.StatusUnauthorized, "missing owner header")
		return
	}

	var req dueRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	dueDate, err := parseDate(req.DueDate)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid due_date, want YYYY-MM-DD")
		return
	}

	d := core.DueItem{
		Owner:        owner,
		Counterparty: req.Counterparty,
		Direction:    core.DueDirection(req.Direction),
		Amount:       core.Money{Cents: req.AmountCents},
		DueDate:      dueDate,
		Status:       core.DuePending,
	}
	if err := d.Validate(); err != nil {
		writeServiceError(w, r, err)
		return
	}

	id, err := s.repo.CreateDueItem(r.Context(), d)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	d.ID = id
	writeJSON(w, http.StatusCreated, toDueResponse(d))
}

func (s *Server) handleListDues(w http.ResponseWriter, r *http.Request) {
	owner := ownerID(r)
	if owner == "" {
		writeError(w, http.StatusUnauthorized, "missing owner header")
		return
	}

	dues, err := s.repo.ListDueItems(r.Context(), owner)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	out := make([]dueResponse, len(dues))
	for i, d := range dues {
		out[i] = toDueResponse(d)
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleSettleDue(w http.ResponseWriter, r *http.Request) {
	owner := ownerID(r)
	if owner == "" {
		writeError(w, http.StatusUnauthorized, "missing owner header")
		return
	}
	id, err := pathID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid due id")
		return
	}

	if err := s.repo.SettleDueItem(r.Context(), owner, id); err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": string(core.DueSettled)})
}
