package api

import (
	"errors"
	"net/http"

	"SilverScan/internal/domain/models"
	"SilverScan/internal/usecase"
	xhttp "SilverScan/pkg/http"
	xlogger "SilverScan/pkg/logger"

	"github.com/labstack/echo/v4"
)

// MarketDataHandler serves the chart frontend: one endpoint returning the
// analyzed candle window, typed alerts and the current suggestion for a symbol.
type MarketDataHandler struct {
	logger *xlogger.Logger
	uc     *usecase.MarketDataUseCase
}

func NewMarketDataHandler(logger *xlogger.Logger, uc *usecase.MarketDataUseCase) *MarketDataHandler {
	return &MarketDataHandler{logger: logger, uc: uc}
}

func (h *MarketDataHandler) RegisterRoutes(e *echo.Echo) {
	g := e.Group("/api")
	g.GET("/market-data", h.MarketData)
	e.GET("/health", h.Health)
}

// MarketData handles GET /api/market-data?interval=1m&symbol=^GSPC. The
// payload is served bare because the chart frontend consumes it directly;
// error responses keep the envelope.
func (h *MarketDataHandler) MarketData(c echo.Context) error {
	req := &models.MarketDataRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}

	res, err := h.uc.GetMarketData(c.Request().Context(), *req)
	if err != nil {
		switch {
		case errors.Is(err, usecase.ErrUnsupportedInterval):
			return xhttp.AppErrorResponse(c, xhttp.BadRequestError(err.Error()))
		case errors.Is(err, usecase.ErrUpstreamFetch):
			h.logger.Error("market data upstream error", xlogger.Error(err))
			return xhttp.AppErrorResponse(c, xhttp.BadGatewayError(err.Error()))
		default:
			h.logger.Error("market data usecase error", xlogger.Error(err))
			return xhttp.InternalServerErrorResponse(c)
		}
	}
	return c.JSON(http.StatusOK, res)
}

// Health reports liveness.
func (h *MarketDataHandler) Health(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
}
