package http

import (
	"fmt"
	"net/http"

	"messbook/internal/core"
	"messbook/internal/ledger"
)

func (s *Server) handleCreateIncome(w http.ResponseWriter, r *http.Request) {
	actor, err := actorID(r)
	if err != nil {
		respondError(r.Context(), w, err)
		return
	}
	var req struct {
		PayerID     string `json:"payer_id"`
		Description string `json:"description"`
		Amount      string `json:"amount"`
	}
	if err := decodeJSON(r, &req); err != nil {
		respondError(r.Context(), w, err)
		return
	}
	amount, err := core.ParseAmount(req.Amount)
	if err != nil {
		respondError(r.Context(), w, err)
		return
	}
	t, err := s.engine.CreateIncome(r.Context(), r.PathValue("id"), actor, req.PayerID, req.Description, amount)
	if err != nil {
		respondError(r.Context(), w, err)
		return
	}
	respondJSON(w, http.StatusCreated, toIncomeView(t, ledger.UserSummary{ID: t.PayerID}))
}

func (s *Server) handleListIncome(w http.ResponseWriter, r *http.Request) {
	page, pageSize := parsePage(r)
	messID := r.PathValue("id")

	var (
		result *ledger.Page[ledger.IncomeEntry]
		err    error
	)
	if payerID := r.URL.Query().Get("payer_id"); payerID != "" {
		result, err = s.queries.ListIncomeByPayer(r.Context(), messID, payerID, page, pageSize)
	} else {
		result, err = s.queries.ListIncome(r.Context(), messID, page, pageSize)
	}
	if err != nil {
		respondError(r.Context(), w, err)
		return
	}
	respondJSON(w, http.StatusOK, toIncomePage(result))
}

func (s *Server) handleUpdateIncome(w http.ResponseWriter, r *http.Request) {
	actor, err := actorID(r)
	if err != nil {
		respondError(r.Context(), w, err)
		return
	}
	var req struct {
		PayerID     *string `json:"payer_id"`
		Description *string `json:"description"`
		Amount      *string `json:"amount"`
	}
	if err := decodeJSON(r, &req); err != nil {
		respondError(r.Context(), w, err)
		return
	}
	amount, err := optAmount(req.Amount)
	if err != nil {
		respondError(r.Context(), w, err)
		return
	}
	patch := ledger.IncomePatch{
		PayerID:     optString(req.PayerID),
		Description: optString(req.Description),
		Amount:      amount,
	}
	if patch.IsEmpty() {
		respondError(r.Context(), w, fmt.Errorf("%w: empty patch", core.ErrNoChange))
		return
	}
	t, err := s.engine.UpdateIncome(r.Context(), r.PathValue("id"), actor, patch)
	if err != nil {
		respondError(r.Context(), w, err)
		return
	}
	respondJSON(w, http.StatusOK, toIncomeView(t, ledger.UserSummary{ID: t.PayerID}))
}

func (s *Server) handleDeleteIncome(w http.ResponseWriter, r *http.Request) {
	actor, err := actorID(r)
	if err != nil {
		respondError(r.Context(), w, err)
		return
	}
	if err := s.engine.DeleteIncome(r.Context(), r.PathValue("id"), actor); err != nil {
		respondError(r.Context(), w, err)
		return
	}
	respondJSON(w, http.StatusNoContent, nil)
}

func (s *Server) handleCreateExpense(w http.ResponseWriter, r *http.Request) {
	actor, err := actorID(r)
	if err != nil {
		respondError(r.Context(), w, err)
		return
	}
	var req struct {
		Reason      string `json:"reason"`
		Description string `json:"description"`
		Amount      string `json:"amount"`
	}
	if err := decodeJSON(r, &req); err != nil {
		respondError(r.Context(), w, err)
		return
	}
	amount, err := core.ParseAmount(req.Amount)
	if err != nil {
		respondError(r.Context(), w, err)
		return
	}
	t, err := s.engine.CreateExpense(r.Context(), r.PathValue("id"), actor, req.Reason, req.Description, amount)
	if err != nil {
		respondError(r.Context(), w, err)
		return
	}
	respondJSON(w, http.StatusCreated, toExpenseView(t, "", ""))
}

func (s *Server) handleListExpense(w http.ResponseWriter, r *http.Request) {
	page, pageSize := parsePage(r)
	result, err := s.queries.ListExpense(r.Context(), r.PathValue("id"), page, pageSize)
	if err != nil {
		respondError(r.Context(), w, err)
		return
	}
	respondJSON(w, http.StatusOK, toExpensePage(result))
}

func (s *Server) handleUpdateExpense(w http.ResponseWriter, r *http.Request) {
	actor, err := actorID(r)
	if err != nil {
		respondError(r.Context(), w, err)
		return
	}
	var req struct {
		Reason      *string `json:"reason"`
		Description *string `json:"description"`
		Amount      *string `json:"amount"`
	}
	if err := decodeJSON(r, &req); err != nil {
		respondError(r.Context(), w, err)
		return
	}
	amount, err := optAmount(req.Amount)
	if err != nil {
		respondError(r.Context(), w, err)
		return
	}
	patch := ledger.ExpensePatch{
		Reason:      optString(req.Reason),
		Description: optString(req.Description),
		Amount:      amount,
	}
	if patch.IsEmpty() {
		respondError(r.Context(), w, fmt.Errorf("%w: empty patch", core.ErrNoChange))
		return
	}
	t, err := s.engine.UpdateExpense(r.Context(), r.PathValue("id"), actor, patch)
	if err != nil {
		respondError(r.Context(), w, err)
		return
	}
	respondJSON(w, http.StatusOK, toExpenseView(t, "", ""))
}

func (s *Server) handleDeleteExpense(w http.ResponseWriter, r *http.Request) {
	actor, err := actorID(r)
	if err != nil {
		respondError(r.Context(), w, err)
		return
	}
	if err := s.engine.DeleteExpense(r.Context(), r.PathValue("id"), actor); err != nil {
		respondError(r.Context(), w, err)
		return
	}
	respondJSON(w, http.StatusNoContent, nil)
}

func (s *Server) handleReconcile(w http.ResponseWriter, r *http.Request) {
	rec, err := s.engine.Reconcile(r.Context(), r.PathValue("id"))
	if err != nil {
		respondError(r.Context(), w, err)
		return
	}
	respondJSON(w, http.StatusOK, toReconcileView(rec))
}
