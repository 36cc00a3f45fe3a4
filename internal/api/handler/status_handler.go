package handler

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/KurtDue/iono-pi-access-control/internal/core/ports"
)

// StatusHandler exposes the controller's runtime state and health probes.
type StatusHandler struct {
	engine           ports.AccessEngine
	door             ports.DoorController
	scannerEnabled   bool
	scannerConnected func() bool
	deviceID         string
	startedAt        time.Time
}

func NewStatusHandler(
	engine ports.AccessEngine,
	door ports.DoorController,
	scannerEnabled bool,
	scannerConnected func() bool,
	deviceID string,
) *StatusHandler {
	return &StatusHandler{
		engine:           engine,
		door:             door,
		scannerEnabled:   scannerEnabled,
		scannerConnected: scannerConnected,
		deviceID:         deviceID,
		startedAt:        time.Now(),
	}
}

type scannerStatus struct {
	Enabled   bool `json:"enabled"`
	Connected bool `json:"connected"`
}

type statusResponse struct {
	DeviceID      string             `json:"device_id"`
	Door          ports.DoorSnapshot `json:"door"`
	Scanner       scannerStatus      `json:"scanner"`
	LastAttempt   *attemptResponse   `json:"last_attempt,omitempty"`
	UptimeSeconds int64              `json:"uptime_seconds"`
}

// Status handles GET /status.
//
// @Summary      Current door, scanner, and last-attempt state
// @Tags         status
// @Produce      json
// @Security     BearerAuth
// @Success      200  {object}  statusResponse
// @Failure      401  {object}  map[string]string
// @Router       /status [get]
func (h *StatusHandler) Status(c echo.Context) error {
	resp := statusResponse{
		DeviceID: h.deviceID,
		Door:     h.door.Snapshot(),
		Scanner: scannerStatus{
			Enabled:   h.scannerEnabled,
			Connected: h.scannerEnabled && h.scannerConnected != nil && h.scannerConnected(),
		},
		UptimeSeconds: int64(time.Since(h.startedAt).Seconds()),
	}

	if att, ok := h.engine.LastAttempt(); ok {
		mapped := mapAttempt(att)
		resp.LastAttempt = &mapped
	}

	return c.JSON(http.StatusOK, resp)
}

// Health handles GET /health. No auth: liveness checks come from the local
// supervisor, not from operators.
func (h *StatusHandler) Health(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
}
