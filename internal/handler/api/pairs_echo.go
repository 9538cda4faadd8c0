package api

import (
	"fmt"
	"net/http"
	"time"

	"PairFlow/internal/domain/models"
	domrepo "PairFlow/internal/domain/repository"
	"PairFlow/internal/services/analytics"
	"PairFlow/internal/usecase"
	"PairFlow/pkg/cache"
	xhttp "PairFlow/pkg/http"
	applogger "PairFlow/pkg/logger"
	"PairFlow/pkg/util"

	"github.com/labstack/echo/v4"
)

// ConnStatus reports the tick source connection state for health checks.
type ConnStatus interface {
	IsConnected() bool
}

// PairsEchoHandler exposes the pair analytics API over Echo.
type PairsEchoHandler struct {
	logger    *applogger.Logger
	snapshots *usecase.SnapshotService
	engine    *analytics.Engine
	store     domrepo.BarStore
	source    ConnStatus
	cache     *cache.Memory
	cacheTTL  time.Duration
}

func NewPairsEchoHandler(logger *applogger.Logger, snapshots *usecase.SnapshotService, engine *analytics.Engine, store domrepo.BarStore, source ConnStatus, c *cache.Memory, cacheTTL time.Duration) *PairsEchoHandler {
	return &PairsEchoHandler{
		logger:    logger,
		snapshots: snapshots,
		engine:    engine,
		store:     store,
		source:    source,
		cache:     c,
		cacheTTL:  cacheTTL,
	}
}

func (h *PairsEchoHandler) RegisterRoutes(e *echo.Echo) {
	g := e.Group("/api")
	g.GET("/snapshot", h.Snapshot)
	g.GET("/pair", h.Pair)
	g.POST("/adf", h.ADF)
	g.GET("/bars", h.Bars)
	e.GET("/health", h.Health)
}

// Snapshot returns the latest periodic snapshot of the monitored pair.
func (h *PairsEchoHandler) Snapshot(c echo.Context) error {
	snap := h.snapshots.Latest()
	if snap == nil {
		return xhttp.AppErrorResponse(c, xhttp.UnavailableError("no snapshot computed yet"))
	}
	return xhttp.SuccessResponse(c, snap)
}

// Pair computes a snapshot for an arbitrary pair on demand. Results are
// cached briefly so dashboard refreshes reuse one computation.
func (h *PairsEchoHandler) Pair(c echo.Context) error {
	req := &models.PairRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	tf := models.NormalizeTimeframe(req.TF)

	key := pairCacheKey(req.X, req.Y, tf, req.Window)
	if v, ok := h.cache.Get(key); ok {
		return xhttp.SuccessResponse(c, v)
	}

	snap, err := h.engine.ComputeSnapshot(c.Request().Context(), req.X, req.Y, tf, req.Window, analytics.SnapshotOptions{})
	if err != nil {
		h.logger.Error("pair snapshot error", applogger.Error(err))
		return xhttp.AppErrorResponse(c, err)
	}

	h.cache.Set(key, snap, h.cacheTTL)
	return xhttp.SuccessResponse(c, snap)
}

// ADF runs the stationarity test on demand. A request for the monitored pair
// goes through the snapshot service so the published snapshot picks up the
// result.
func (h *PairsEchoHandler) ADF(c echo.Context) error {
	req := &models.ADFRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	tf := models.NormalizeTimeframe(req.TF)
	ctx := c.Request().Context()

	var (
		snap *models.PairSnapshot
		err  error
	)
	cfg := h.snapshots.Config()
	if req.X == cfg.PairX && req.Y == cfg.PairY && tf == cfg.Timeframe && req.Window == cfg.Window {
		snap, err = h.snapshots.TriggerADF(ctx, req.Lag)
	} else {
		snap, err = h.engine.ComputeSnapshot(ctx, req.X, req.Y, tf, req.Window,
			analytics.SnapshotOptions{RunADF: true, LagOrder: req.Lag})
	}
	if err != nil {
		h.logger.Error("adf error", applogger.Error(err))
		return xhttp.AppErrorResponse(c, err)
	}

	// invalidate the cached on-demand result so the next read sees the test
	h.cache.Delete(pairCacheKey(req.X, req.Y, tf, req.Window))
	return xhttp.SuccessResponse(c, snap)
}

// Bars returns stored bars, either a time range or the latest n.
func (h *PairsEchoHandler) Bars(c echo.Context) error {
	req := &models.BarsRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	tf := models.NormalizeTimeframe(req.TF)
	ctx := c.Request().Context()

	var (
		bars []models.Bar
		err  error
	)
	if req.From != "" || req.To != "" {
		now := time.Now().UTC()
		from := util.ParseTimeDefault(req.From, now.Add(-time.Hour))
		to := util.ParseTimeDefault(req.To, now)
		from, to = util.AlignFromTo(from, to, string(tf))
		bars, err = h.store.Query(ctx, req.Pair, tf, from, to)
	} else {
		bars, err = h.store.LatestN(ctx, req.Pair, tf, req.Limit)
	}
	if err != nil {
		h.logger.Error("bars query error", applogger.Error(err))
		return xhttp.AppErrorResponse(c, err)
	}

	return xhttp.ListResponse(c, bars, int64(len(bars)))
}

// Health reports the source connection and store reachability.
func (h *PairsEchoHandler) Health(c echo.Context) error {
	status := http.StatusOK
	body := map[string]interface{}{
		"status":           "ok",
		"source_connected": h.source.IsConnected(),
		"store":            "ok",
	}
	if err := h.store.Health(c.Request().Context()); err != nil {
		status = http.StatusServiceUnavailable
		body["status"] = "degraded"
		body["store"] = err.Error()
	}
	if !h.source.IsConnected() {
		body["status"] = "degraded"
	}
	return c.JSON(status, body)
}

func pairCacheKey(x, y string, tf models.Timeframe, window int) string {
	return fmt.Sprintf("pair:%s:%s:%s:%d", x, y, tf, window)
}
