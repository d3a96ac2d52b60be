// Package http exposes the directory and ledger over a JSON API. Handlers
// stay thin: parse, call the service, map the error taxonomy to a status.
package http

import (
	"context"
	"net/http"
	"time"

	"messbook/internal/directory"
	"messbook/internal/ledger"
	applog "messbook/internal/log"
	"messbook/internal/middleware/trace"
)

type Server struct {
	httpServer *http.Server
	directory  *directory.Service
	engine     *ledger.Engine
	queries    *ledger.Queries
	log        *applog.Logger
}

func NewServer(addr string, dir *directory.Service, engine *ledger.Engine, queries *ledger.Queries) *Server {
	s := &Server{
		directory: dir,
		engine:    engine,
		queries:   queries,
		log:       applog.ForComponent(applog.ComponentHTTP),
	}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /healthz", handleHealth)

	mux.HandleFunc("POST /users", s.handleCreateUser)
	mux.HandleFunc("GET /users/{id}", s.handleGetUser)

	mux.HandleFunc("POST /messes", s.handleCreateMess)
	mux.HandleFunc("GET /messes/{id}", s.handleGetMess)
	mux.HandleFunc("PATCH /messes/{id}", s.handleUpdateMess)
	mux.HandleFunc("DELETE /messes/{id}", s.handleDeleteMess)
	mux.HandleFunc("PUT /messes/{id}/logo", s.handleUpdateLogo)

	mux.HandleFunc("GET /messes/{id}/members", s.handleListMembers)
	mux.HandleFunc("POST /messes/{id}/members", s.handleAddMember)
	mux.HandleFunc("DELETE /messes/{id}/members/{userID}", s.handleRemoveMember)
	mux.HandleFunc("PUT /messes/{id}/admin", s.handleTransferAdmin)

	mux.HandleFunc("POST /messes/{id}/menu", s.handleAddMenuItem)
	mux.HandleFunc("DELETE /messes/{id}/menu", s.handleRemoveMenuItem)

	mux.HandleFunc("POST /messes/{id}/income", s.handleCreateIncome)
	mux.HandleFunc("GET /messes/{id}/income", s.handleListIncome)
	mux.HandleFunc("PATCH /income/{id}", s.handleUpdateIncome)
	mux.HandleFunc("DELETE /income/{id}", s.handleDeleteIncome)

	mux.HandleFunc("POST /messes/{id}/expenses", s.handleCreateExpense)
	mux.HandleFunc("GET /messes/{id}/expenses", s.handleListExpense)
	mux.HandleFunc("PATCH /expenses/{id}", s.handleUpdateExpense)
	mux.HandleFunc("DELETE /expenses/{id}", s.handleDeleteExpense)

	mux.HandleFunc("GET /messes/{id}/reconcile", s.handleReconcile)

	tracer := trace.NewMiddleware()
	s.httpServer = &http.Server{
		Addr:              addr,
		Handler:           tracer.Middleware(mux),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
	return s
}

// ListenAndServe blocks until the server stops.
func (s *Server) ListenAndServe() error {
	s.log.Info("HTTP server listening", "addr", s.httpServer.Addr)
	return s.httpServer.ListenAndServe()
}

// Shutdown drains in-flight requests until ctx expires.
func (s *Server) Shutdown(ctx context.Context) error {
	s.log.InfoContext(ctx, "HTTP server shutting down")
	return s.httpServer.Shutdown(ctx)
}

func handleHealth(w http.ResponseWriter, _ *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
