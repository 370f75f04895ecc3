package api

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/rs/cors"
	"github.com/susu3304/settlerelay/internal/config"
	"github.com/susu3304/settlerelay/internal/replay"
	"github.com/susu3304/settlerelay/internal/settlement"
)

// BalanceApplier applies a balance adjustment upstream.
type BalanceApplier interface {
	Apply(ctx context.Context, adj settlement.Adjustment) (json.RawMessage, error)
}

type API struct {
	router *mux.Router
	config *config.Config
	guard  *replay.Guard
	ledger BalanceApplier
	now    func() time.Time
}

func New(cfg *config.Config, guard *replay.Guard, ledger BalanceApplier) *API {
	api := &API{
		router: mux.NewRouter(),
		config: cfg,
		guard:  guard,
		ledger: ledger,
		now:    time.Now,
	}

	api.setupRoutes()
	return api
}

func (a *API) setupRoutes() {
	a.router.Use(a.requestLogger)

	a.router.HandleFunc("/credit-currency", a.handleCreditCurrency).Methods("POST")
	a.router.HandleFunc("/healthz", a.handleHealth).Methods("GET")

	a.router.NotFoundHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, http.StatusNotFound, "Not found")
	})
	a.router.MethodNotAllowedHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, http.StatusMethodNotAllowed, "Method not allowed")
	})
}

// Handler returns the router wrapped with CORS.
func (a *API) Handler() http.Handler {
	corsOptions := cors.Options{
		AllowedOrigins: a.config.CORSAllowedOrigins,
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"Content-Type", requestIDHeader},
		ExposedHeaders: []string{requestIDHeader},
		// Settlement calls are authenticated by signature, not cookies.
		AllowCredentials: false,
	}

	return cors.New(corsOptions).Handler(a.router)
}

// Start serves until ctx is cancelled, then shuts down gracefully.
func (a *API) Start(ctx context.Context) error {
	server := &http.Server{
		Addr:              a.config.Addr(),
		Handler:           a.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = server.Shutdown(shutdownCtx)
	}()

	slog.Info("Settlement relay listening", "url", "http://localhost"+a.config.Addr())
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (a *API) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
