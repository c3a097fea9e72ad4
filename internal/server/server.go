// Package server exposes the ledger engine over HTTP. Authentication happens
// upstream; the actor identity arrives in the X-User-ID header and is
// trusted as-is.
package server

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/shopspring/decimal"

	"github.com/finbook/ledger/internal/apperr"
	"github.com/finbook/ledger/internal/ledger"
	"github.com/finbook/ledger/internal/models"
	"github.com/finbook/ledger/internal/rates"
)

type createTransactionRequest struct {
	AccountID   int64                  `json:"account_id"`
	CategoryID  int64                  `json:"category_id"`
	Type        models.TransactionType `json:"type"`
	Amount      decimal.Decimal        `json:"amount"`
	Currency    models.Currency        `json:"currency"`
	Date        *time.Time             `json:"date,omitempty"`
	Description string                 `json:"description"`
}

type updateTransactionRequest struct {
	Amount      decimal.Decimal `json:"amount"`
	CategoryID  int64           `json:"category_id"`
	Date        *time.Time      `json:"date,omitempty"`
	Description *string         `json:"description,omitempty"`
}

type createTransferRequest struct {
	AccountID          int64           `json:"account_id"`
	RecipientAccountID int64           `json:"account_recipient_id"`
	CategoryID         int64           `json:"category_id"`
	Amount             decimal.Decimal `json:"amount"`
	Date               *time.Time      `json:"date,omitempty"`
	Description        string          `json:"description"`
	GroupID            *int64          `json:"group_id,omitempty"`
}

type Server struct {
	engine *ledger.Engine
	rates  rates.Source
	log    *slog.Logger
}

func New(engine *ledger.Engine, rateSource rates.Source, log *slog.Logger) *Server {
	if log == nil {
		log = slog.Default()
	}
	return &Server{engine: engine, rates: rateSource, log: log}
}

func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)

	r.Get("/healthz", s.handleHealth)
	r.Get("/currency", s.handleRates)

	r.Route("/transactions", func(r chi.Router) {
		r.Get("/", s.handleListTransactions)
		r.Post("/", s.handleCreateTransaction)
		r.Put("/{id}", s.handleUpdateTransaction)
		r.Delete("/{id}", s.handleDeleteTransaction)
	})
	r.Post("/transfers", s.handleCreateTransfer)
	r.Get("/accounts/{id}", s.handleGetAccount)

	return r
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleRates(w http.ResponseWriter, r *http.Request) {
	snap, err := s.rates.GetRates(r.Context())
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, snap)
}

func (s *Server) handleCreateTransaction(w http.ResponseWriter, r *http.Request) {
	actorID, ok := s.actor(w, r)
	if !ok {
		return
	}
	var req createTransactionRequest
	if !s.decode(w, r, &req) {
		return
	}
	in := ledger.CreateTransactionInput{
		AccountID:   req.AccountID,
		CategoryID:  req.CategoryID,
		Type:        req.Type,
		Amount:      req.Amount,
		Currency:    req.Currency,
		Description: req.Description,
	}
	if req.Date != nil {
		in.Date = *req.Date
	}
	created, err := s.engine.CreateTransaction(r.Context(), actorID, in)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, created)
}

func (s *Server) handleUpdateTransaction(w http.ResponseWriter, r *http.Request) {
	actorID, ok := s.actor(w, r)
	if !ok {
		return
	}
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		s.writeError(w, apperr.New(apperr.Validation, "invalid transaction id"))
		return
	}
	var req updateTransactionRequest
	if !s.decode(w, r, &req) {
		return
	}
	in := ledger.UpdateTransactionInput{
		Amount:      req.Amount,
		CategoryID:  req.CategoryID,
		Date:        req.Date,
		Description: req.Description,
	}
	updated, err := s.engine.UpdateTransaction(r.Context(), actorID, id, in)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, updated)
}

func (s *Server) handleDeleteTransaction(w http.ResponseWriter, r *http.Request) {
	actorID, ok := s.actor(w, r)
	if !ok {
		return
	}
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		s.writeError(w, apperr.New(apperr.Validation, "invalid transaction id"))
		return
	}
	if err := s.engine.DeleteTransaction(r.Context(), actorID, id); err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}

func (s *Server) handleListTransactions(w http.ResponseWriter, r *http.Request) {
	actorID, ok := s.actor(w, r)
	if !ok {
		return
	}
	rows, err := s.engine.ListTransactions(r.Context(), actorID)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, rows)
}

func (s *Server) handleCreateTransfer(w http.ResponseWriter, r *http.Request) {
	actorID, ok := s.actor(w, r)
	if !ok {
		return
	}
	var req createTransferRequest
	if !s.decode(w, r, &req) {
		return
	}
	in := ledger.CreateTransferInput{
		SourceAccountID: req.AccountID,
		DestAccountID:   req.RecipientAccountID,
		CategoryID:      req.CategoryID,
		Amount:          req.Amount,
		Description:     req.Description,
		GroupID:         req.GroupID,
		IdempotencyKey:  r.Header.Get("Idempotency-Key"),
	}
	if req.Date != nil {
		in.Date = *req.Date
	}
	result, err := s.engine.CreateTransfer(r.Context(), actorID, in)
	if err != nil {
		s.writeError(w, err)
		return
	}
	status := http.StatusCreated
	if result.Replayed {
		status = http.StatusOK
	}
	writeJSON(w, status, result)
}

func (s *Server) handleGetAccount(w http.ResponseWriter, r *http.Request) {
	actorID, ok := s.actor(w, r)
	if !ok {
		return
	}
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		s.writeError(w, apperr.New(apperr.Validation, "invalid account id"))
		return
	}
	account, err := s.engine.GetAccount(r.Context(), actorID, id)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, account)
}

func (s *Server) actor(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(r.Header.Get("X-User-ID"), 10, 64)
	if err != nil || id <= 0 {
		s.writeError(w, apperr.New(apperr.Validation, "missing or invalid X-User-ID header"))
		return 0, false
	}
	return id, true
}

func (s *Server) decode(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		s.writeError(w, apperr.New(apperr.Validation, "invalid request body"))
		return false
	}
	return true
}

type errorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

func (s *Server) writeError(w http.ResponseWriter, err error) {
	kind := apperr.KindOf(err)
	status := statusFor(kind)
	msg := err.Error()
	if status == http.StatusInternalServerError {
		// Internal causes must not leak to clients.
		s.log.Error("request failed", "error", err)
		msg = "internal error"
	}
	writeJSON(w, status, errorResponse{Error: kind.String(), Message: msg})
}

func statusFor(kind apperr.Kind) int {
	switch kind {
	case apperr.NotFound:
		return http.StatusNotFound
	case apperr.Unauthorized:
		return http.StatusForbidden
	case apperr.Validation:
		return http.StatusBadRequest
	case apperr.Conflict:
		return http.StatusConflict
	}
	return http.StatusInternalServerError
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
