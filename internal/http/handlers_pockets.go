package http

import (
	"context"
	"net/http"
	"time"

	"moneta/internal/core"
)

type pocketRequest struct {
	Name string `json:"name"`
	Kind string `json:"kind"`
}

type amountRequest struct {
	AmountCents int64 `json:"amount_cents"`
}

type transferRequest struct {
	FromPocket  int64  `json:"from_pocket"`
	ToPocket    int64  `json:"to_pocket"`
	AmountCents int64  `json:"amount_cents"`
	Note        string `json:"note"`
}

type pocketResponse struct {
	ID           int64  `json:"id"`
	Owner        string `json:"owner"`
	Name         string `json:"name"`
	Kind         string `json:"kind,omitempty"`
	BalanceCents int64  `json:"balance_cents"`
	SpentCents   int64  `json:"spent_cents"`
}

type transferResponse struct {
	ID          int64  `json:"id"`
	Owner       string `json:"owner"`
	FromPocket  int64  `json:"from_pocket"`
	ToPocket    int64  `json:"to_pocket"`
	AmountCents int64  `json:"amount_cents"`
	Note        string `json:"note,omitempty"`
	CreatedAt   string `json:"created_at"`
}

func toPocketResponse(p core.Pocket) pocketResponse {
	return pocketResponse{
		ID:           p.ID,
		Owner:        p.Owner,
		Name:         p.Name,
		Kind:         p.Kind,
		BalanceCents: p.Balance.Cents,
		SpentCents:   p.Spent.Cents,
	}
}

func toTransferResponse(t core.PocketTransfer) transferResponse {
	return transferResponse{
		ID:          t.ID,
		Owner:       t.Owner,
		FromPocket:  t.FromPocket,
		ToPocket:    t.ToPocket,
		AmountCents: t.Amount.Cents,
		Note:        t.Note,
		CreatedAt:   t.CreatedAt.UTC().Format(time.RFC3339),
	}
}

func (s *Server) handleCreatePocket(w http.ResponseWriter, r *http.Request) {
	owner := ownerID(r)
	if owner == "" {
		writeError(w, http.StatusUnauthorized, "missing owner header")
		return
	}

	var req pocketRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Name == "" {
		writeError(w, http.StatusBadRequest, "pocket name is required")
		return
	}

	created, err := s.pockets.CreatePocket(r.Context(), core.Pocket{
		Owner: owner,
		Name:  req.Name,
		Kind:  req.Kind,
	})
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, toPocketResponse(created))
}

func (s *Server) handleGetPocket(w http.ResponseWriter, r *http.Request) {
	owner := ownerID(r)
	if owner == "" {
		writeError(w, http.StatusUnauthorized, "missing owner header")
		return
	}
	id, err := pathID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid pocket id")
		return
	}

	p, err := s.pockets.Get(r.Context(), owner, id)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toPocketResponse(p))
}

func (s *Server) handleListPockets(w http.ResponseWriter, r *http.Request) {
	owner := ownerID(r)
	if owner == "" {
		writeError(w, http.StatusUnauthorized, "missing owner header")
		return
	}

	pockets, err := s.pockets.List(r.Context(), owner)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	out := make([]pocketResponse, len(pockets))
	for i, p := range pockets {
		out[i] = toPocketResponse(p)
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handlePocketAdd(w http.ResponseWriter, r *http.Request) {
	s.handlePocketAmount(w, r, s.pockets.AddMoney)
}

func (s *Server) handlePocketSpend(w http.ResponseWriter, r *http.Request) {
	s.handlePocketAmount(w, r, s.pockets.RecordSpend)
}

func (s *Server) handlePocketAmount(w http.ResponseWriter, r *http.Request, op func(ctx context.Context, owner string, pocket int64, amount core.Money) error) {
	owner := ownerID(r)
	if owner == "" {
		writeError(w, http.StatusUnauthorized, "missing owner header")
		return
	}
	id, err := pathID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid pocket id")
		return
	}

	var req amountRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if err := op(r.Context(), owner, id, core.Money{Cents: req.AmountCents}); err != nil {
		writeServiceError(w, r, err)
		return
	}

	p, err := s.pockets.Get(r.Context(), owner, id)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toPocketResponse(p))
}

func (s *Server) handleTransfer(w http.ResponseWriter, r *http.Request) {
	owner := ownerID(r)
	if owner == "" {
		writeError(w, http.StatusUnauthorized, "missing owner header")
		return
	}

	var req transferRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	transfer, err := s.pockets.Transfer(r.Context(), owner, req.FromPocket, req.ToPocket,
		core.Money{Cents: req.AmountCents}, req.Note)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, toTransferResponse(transfer))
}

func (s *Server) handleListTransfers(w http.ResponseWriter, r *http.Request) {
	owner := ownerID(r)
	if owner == "" {
		writeError(w, http.StatusUnauthorized, "missing owner header")
		return
	}

	transfers, err := s.pockets.Transfers(r.Context(), owner)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	out := make([]transferResponse, len(transfers))
	for i, t := range transfers {
		out[i] = toTransferResponse(t)
	}
	writeJSON(w, http.StatusOK, out)
}
