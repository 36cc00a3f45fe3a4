package handler

import (
	"errors"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/KurtDue/iono-pi-access-control/internal/core/domain"
	"github.com/KurtDue/iono-pi-access-control/internal/core/ports"
)

// AccessHandler handles HTTP requests for door actuation and credential
// verification.
type AccessHandler struct {
	engine ports.AccessEngine
}

func NewAccessHandler(engine ports.AccessEngine) *AccessHandler {
	return &AccessHandler{engine: engine}
}

// --- Request / Response types ---

type openRequest struct {
	Reason          string `json:"reason"`
	DurationSeconds int    `json:"duration_seconds" validate:"omitempty,gt=0,lte=60"`
}

type openResponse struct {
	Opened    bool   `json:"opened"`
	DoorState string `json:"door_state"`
	Message   string `json:"message"`
	Timestamp string `json:"timestamp"`
}

type verifyRequest struct {
	Barcode string `json:"barcode" validate:"required,min=3"`
}

type verifyResponse struct {
	AccessGranted bool     `json:"access_granted"`
	UserID        string   `json:"user_id,omitempty"`
	UserName      string   `json:"user_name,omitempty"`
	Permissions   []string `json:"permissions,omitempty"`
	ExpiresAt     string   `json:"expires_at,omitempty"`
	Reason        string   `json:"reason,omitempty"`
}

// Open handles POST /access/open.
//
// @Summary      Open the door as an authenticated operator
// @Tags         access
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        body  body      openRequest  false  "Open parameters"
// @Success      200   {object}  openResponse
// @Failure      400   {object}  map[string]string
// @Failure      401   {object}  map[string]string
// @Failure      409   {object}  openResponse
// @Failure      503   {object}  openResponse
// @Router       /access/open [post]
func (h *AccessHandler) Open(c echo.Context) error {
	operator, _, err := ctxOperator(c)
	if err != nil {
		return err
	}

	var req openRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid payload"})
	}
	if err := c.Validate(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": err.Error()})
	}

	result, err := h.engine.HandleManualOpen(c.Request().Context(), ports.ManualOpenInput{
		Operator: operator,
		Reason:   req.Reason,
		Duration: time.Duration(req.DurationSeconds) * time.Second,
	})

	resp := openResponse{
		Opened:    result.Opened,
		DoorState: string(result.DoorState),
		Message:   result.Message,
		Timestamp: result.Timestamp.UTC().Format(time.RFC3339),
	}

	if err != nil {
		status := http.StatusInternalServerError
		switch {
		case errors.Is(err, domain.ErrDoorBusy):
			status = http.StatusConflict
		case errors.Is(err, domain.ErrDoorFault):
			status = http.StatusServiceUnavailable
		}
		return c.JSON(status, resp)
	}

	return c.JSON(http.StatusOK, resp)
}

// Verify handles POST /access/verify. The credential is checked against the
// remote verification service and audited, but the door is not actuated.
//
// @Summary      Verify a barcode without opening the door
// @Tags         access
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        body  body      verifyRequest  true  "Barcode to verify"
// @Success      200   {object}  verifyResponse
// @Failure      400   {object}  map[string]string
// @Failure      401   {object}  map[string]string
// @Router       /access/verify [post]
func (h *AccessHandler) Verify(c echo.Context) error {
	operator, _, err := ctxOperator(c)
	if err != nil {
		return err
	}

	var req verifyRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid payload"})
	}
	if err := c.Validate(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": err.Error()})
	}

	decision, err := h.engine.HandleVerify(c.Request().Context(), operator, req.Barcode)
	if err != nil {
		return err
	}

	resp := verifyResponse{
		AccessGranted: decision.Granted,
		UserID:        decision.UserID,
		UserName:      decision.UserName,
		Permissions:   decision.Permissions,
		Reason:        decision.Reason,
	}
	if decision.ExpiresAt != nil {
		resp.ExpiresAt = decision.ExpiresAt.UTC().Format(time.RFC3339)
	}

	return c.JSON(http.StatusOK, resp)
}
