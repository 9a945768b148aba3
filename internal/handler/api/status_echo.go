package api

import (
	"context"
	"errors"
	"fmt"
	"time"

	"FarePull/internal/domain/models"
	domrepo "FarePull/internal/domain/repository"
	"FarePull/internal/service/ratelimit"
	"FarePull/internal/services/alerts"
	"FarePull/internal/usecase"
	"FarePull/pkg/cache"
	xhttp "FarePull/pkg/http"
	xlogger "FarePull/pkg/logger"
	"FarePull/pkg/scheduler"
	"FarePull/pkg/util"

	"github.com/labstack/echo/v4"
	"github.com/shopspring/decimal"
)

// manual cycle triggers: a burst of 2, then one per minute per client
const (
	triggerBurst  = 2
	triggerRefill = 1.0 / 60
)

type CycleReader interface {
	LastSummary(ctx context.Context) (*models.CycleSummary, error)
}

type FlagReader interface {
	LastCheck(ctx context.Context) (*models.FlagCheckSummary, error)
}

type Trigger interface {
	RunNow(ctx context.Context, name string) error
}

// StatusEchoHandler serves cycle results, history and tier lookups.
type StatusEchoHandler struct {
	logger      *xlogger.Logger
	cycles      CycleReader
	flags       FlagReader
	trigger     Trigger
	history     domrepo.HistoryStore
	itineraries domrepo.ItineraryStore
	classifier  *alerts.Classifier
	limiter     *ratelimit.Limiter
}

func NewStatusEchoHandler(
	logger *xlogger.Logger,
	cycles CycleReader,
	flags FlagReader,
	trigger Trigger,
	history domrepo.HistoryStore,
	itineraries domrepo.ItineraryStore,
	classifier *alerts.Classifier,
	limiter *ratelimit.Limiter,
) *StatusEchoHandler {
	if limiter == nil {
		limiter = ratelimit.New()
	}
	return &StatusEchoHandler{
		logger:      logger.With("status_api"),
		cycles:      cycles,
		flags:       flags,
		trigger:     trigger,
		history:     history,
		itineraries: itineraries,
		classifier:  classifier,
		limiter:     limiter,
	}
}

func (h *StatusEchoHandler) RegisterRoutes(e *echo.Echo) {
	g := e.Group("/api")
	g.GET("/cycles/latest", h.LatestCycle)
	g.POST("/cycles", h.TriggerCycle)
	g.GET("/flags/latest", h.LatestFlags)
	g.GET("/history/:stream", h.History)
	g.GET("/tiers", h.Tier)
	g.GET("/itineraries", h.Itineraries)
}

func (h *StatusEchoHandler) LatestCycle(c echo.Context) error {
	s, err := h.cycles.LastSummary(c.Request().Context())
	if errors.Is(err, cache.ErrCacheMiss) {
		return xhttp.AppErrorResponse(c, xhttp.NotFoundError("no cycle has completed yet"))
	}
	if err != nil {
		h.logger.Error("read last cycle", xlogger.Error(err))
		return xhttp.AppErrorResponse(c, err)
	}
	return xhttp.SuccessResponse(c, s)
}

func (h *StatusEchoHandler) TriggerCycle(c echo.Context) error {
	if !h.limiter.Allow("cycles:"+c.RealIP(), triggerBurst, triggerRefill) {
		return xhttp.AppErrorResponse(c, xhttp.TooManyRequestsError("manual cycles are limited to one per minute"))
	}

	// the cycle outlives a dropped client so its results stay consistent
	ctx := context.WithoutCancel(c.Request().Context())
	err := h.trigger.RunNow(ctx, usecase.JobPrices)
	switch {
	case errors.Is(err, scheduler.ErrBusy):
		return xhttp.AppErrorResponse(c, xhttp.ConflictError("a cycle is already running"))
	case err != nil:
		h.logger.Warn("manual cycle finished with error", xlogger.Error(err))
	}

	s, rerr := h.cycles.LastSummary(ctx)
	if rerr != nil {
		h.logger.Error("read cycle after trigger", xlogger.Error(rerr))
		return xhttp.AppErrorResponse(c, xhttp.InternalError("cycle summary unavailable").WithError(rerr))
	}
	return xhttp.SuccessResponse(c, s)
}

func (h *StatusEchoHandler) LatestFlags(c echo.Context) error {
	s, err := h.flags.LastCheck(c.Request().Context())
	if errors.Is(err, cache.ErrCacheMiss) {
		return xhttp.AppErrorResponse(c, xhttp.NotFoundError("no flag check has completed yet"))
	}
	if err != nil {
		h.logger.Error("read last flag check", xlogger.Error(err))
		return xhttp.AppErrorResponse(c, err)
	}
	return xhttp.SuccessResponse(c, s)
}

func (h *StatusEchoHandler) History(c echo.Context) error {
	req := &models.HistoryRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	var since time.Time
	if req.Since != "" {
		t, ok := util.ParseTime(req.Since)
		if !ok {
			return xhttp.AppErrorResponse(c, xhttp.BadRequestErrorf("since: cannot parse %q", req.Since))
		}
		since = t
	}

	entries, err := h.history.RecentEntries(c.Request().Context(), models.Stream(req.Stream), req.Key, since)
	if err != nil {
		h.logger.Error("history query", xlogger.String("stream", req.Stream), xlogger.Error(err))
		return xhttp.AppErrorResponse(c, xhttp.UnavailableError("history store unavailable").WithError(err))
	}
	if entries == nil {
		entries = []models.HistoryEntry{}
	}
	return xhttp.ListResponse(c, entries, int64(len(entries)))
}

func (h *StatusEchoHandler) Tier(c echo.Context) error {
	req := &models.TierRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	price, err := decimal.NewFromString(req.Price)
	if err != nil {
		return xhttp.AppErrorResponse(c, xhttp.BadRequestErrorf("price: %v", err))
	}
	tier := h.classifier.Classify(price)
	return xhttp.SuccessResponse(c, models.TierResponse{
		Price:    price.String(),
		Tier:     tier,
		Notifies: alerts.TierNotifies(tier),
		Silent:   alerts.TierSilent(tier),
	})
}

func (h *StatusEchoHandler) Itineraries(c echo.Context) error {
	req := &models.ItinerariesRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	rows, err := h.itineraries.Recent(c.Request().Context(), req.Limit)
	if err != nil {
		h.logger.Error("itineraries query", xlogger.Error(err))
		return xhttp.AppErrorResponse(c, xhttp.UnavailableError(fmt.Sprintf("itinerary store: %v", err)))
	}
	if rows == nil {
		rows = []models.RoundTripCombo{}
	}
	return xhttp.ListResponse(c, rows, int64(len(rows)))
}
