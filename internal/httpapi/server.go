// Package httpapi exposes health probes and a read-only rotation snapshot.
package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/bulatfbi/coffee-bot/internal/domain"
	"github.com/bulatfbi/coffee-bot/internal/store"
)

// Store is the part of store.Repo the HTTP handlers read.
type Store interface {
	Ping(ctx context.Context) error
	RotationEnabled(ctx context.Context) (bool, error)
	GetOnDuty(ctx context.Context) (*domain.User, error)
	ListEligible(ctx context.Context) ([]domain.User, error)
}

type rotationView struct {
	Enabled  bool        `json:"enabled"`
	OnDuty   *holderView `json:"on_duty"`
	Eligible int         `json:"eligible"`
}

type holderView struct {
	ID    int64  `json:"id"`
	Name  string `json:"name"`
	Score int    `json:"score"`
}

// NewRouter builds the chi router.
func NewRouter(st Store, log *zap.Logger) *chi.Mux {
	r := chi.NewRouter()
	r.Use(
		middleware.RequestID,
		middleware.RealIP,
		middleware.Recoverer,
		middleware.Timeout(5*time.Second),
	)

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	r.Get("/readyz", func(w http.ResponseWriter, req *http.Request) {
		if err := st.Ping(req.Context()); err != nil {
			log.Warn("readiness check failed", zap.Error(err))
			http.Error(w, "store unavailable", http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusOK)
	})

	r.Get("/rotation", func(w http.ResponseWriter, req *http.Request) {
		ctx := req.Context()
		var view rotationView

		enabled, err := st.RotationEnabled(ctx)
		if err != nil && !errors.Is(err, store.ErrNotFound) {
			writeError(w, log, err)
			return
		}
		view.Enabled = enabled

		holder, err := st.GetOnDuty(ctx)
		switch {
		case err == nil:
			view.OnDuty = &holderView{ID: holder.ID, Name: holder.DisplayName(), Score: holder.Score}
		case !errors.Is(err, store.ErrNotFound):
			writeError(w, log, err)
			return
		}

		eligible, err := st.ListEligible(ctx)
		if err != nil {
			writeError(w, log, err)
			return
		}
		view.Eligible = len(eligible)

		w.Header().Set("Content-Type", "application/json")
		if err := json.NewEncoder(w).Encode(view); err != nil {
			log.Warn("encode rotation view failed", zap.Error(err))
		}
	})

	return r
}

func writeError(w http.ResponseWriter, log *zap.Logger, err error) {
	log.Error("rotation snapshot failed", zap.Error(err))
	http.Error(w, "internal error", http.StatusInternalServerError)
}

// NewServer wraps the router in an http.Server listening on addr.
func NewServer(addr string, st Store, log *zap.Logger) *http.Server {
	return &http.Server{
		Addr:         addr,
		Handler:      NewRouter(st, log),
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 10 * time.Second,
	}
}
