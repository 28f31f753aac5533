package handler

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/airo-bot/airo/internal/repo"
	"github.com/airo-bot/airo/pkg/respond"
)

// StatsProvider отдаёт агрегированную статистику бота.
// *service.TaskService реализует этот интерфейс.
type StatsProvider interface {
	GetStats(ctx context.Context) (repo.Stats, error)
}

// OpsHandler - операционный HTTP-интерфейс бота: health-check и статистика.
type OpsHandler struct {
	stats  StatsProvider
	logger *zap.Logger
}

func NewOpsHandler(stats StatsProvider, logger *zap.Logger) *OpsHandler {
	return &OpsHandler{
		stats:  stats,
		logger: logger,
	}
}

// Router собирает chi-роутер со стандартным набором middleware.
func (h *OpsHandler) Router() chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	r.Get("/health", h.Health)
	r.Get("/api/stats", h.Stats)
	return r
}

func (h *OpsHandler) Health(w http.ResponseWriter, r *http.Request) {
	respond.JSON(w, r, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *OpsHandler) Stats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.stats.GetStats(r.Context())
	if err != nil {
		h.logger.Error("failed to collect stats", zap.Error(err))
		respond.Error(w, r, http.StatusInternalServerError, "internal error")
		return
	}
	respond.JSON(w, r, http.StatusOK, stats)
}
