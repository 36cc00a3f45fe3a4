package handler

import (
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/KurtDue/iono-pi-access-control/internal/core/domain"
	"github.com/KurtDue/iono-pi-access-control/internal/core/ports"
)

// LogsHandler serves read access to the persisted audit trail.
type LogsHandler struct {
	audit ports.AuditStore
}

func NewLogsHandler(audit ports.AuditStore) *LogsHandler {
	return &LogsHandler{audit: audit}
}

type attemptResponse struct {
	ID         int64  `json:"id"`
	Timestamp  string `json:"timestamp"`
	Barcode    string `json:"barcode,omitempty"`
	Source     string `json:"source"`
	Granted    bool   `json:"granted"`
	UserID     string `json:"user_id,omitempty"`
	UserName   string `json:"user_name,omitempty"`
	Reason     string `json:"reason,omitempty"`
	Operator   string `json:"operator,omitempty"`
	Transition string `json:"transition,omitempty"`
}

type listAttemptsResponse struct {
	Attempts []attemptResponse `json:"attempts"`
	Count    int               `json:"count"`
}

func mapAttempt(att domain.AccessAttempt) attemptResponse {
	return attemptResponse{
		ID:         att.ID,
		Timestamp:  att.Timestamp.UTC().Format(time.RFC3339),
		Barcode:    att.Barcode,
		Source:     string(att.Source),
		Granted:    att.Granted,
		UserID:     att.UserID,
		UserName:   att.UserName,
		Reason:     att.Reason,
		Operator:   att.Operator,
		Transition: string(att.Transition),
	}
}

// List handles GET /logs/access.
//
// @Summary      Query the access audit log
// @Tags         logs
// @Produce      json
// @Security     BearerAuth
// @Param        limit    query     int     false  "Max records (default 50)"
// @Param        offset   query     int     false  "Records to skip"
// @Param        source   query     string  false  "Filter by source (scanner|api|override)"
// @Param        granted  query     bool    false  "Filter by decision outcome"
// @Param        since    query     string  false  "RFC3339 lower bound"
// @Param        until    query     string  false  "RFC3339 upper bound"
// @Success      200      {object}  listAttemptsResponse
// @Failure      400      {object}  map[string]string
// @Failure      401      {object}  map[string]string
// @Router       /logs/access [get]
func (h *LogsHandler) List(c echo.Context) error {
	filter, err := parseFilter(c)
	if err != nil {
		return err
	}

	attempts, err := h.audit.Query(c.Request().Context(), filter)
	if err != nil {
		return err
	}

	resp := listAttemptsResponse{
		Attempts: make([]attemptResponse, 0, len(attempts)),
	}
	for _, att := range attempts {
		resp.Attempts = append(resp.Attempts, mapAttempt(att))
	}
	resp.Count = len(resp.Attempts)

	return c.JSON(http.StatusOK, resp)
}

func parseFilter(c echo.Context) (ports.AttemptFilter, error) {
	filter := ports.AttemptFilter{Limit: 50}

	if v := c.QueryParam("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			return filter, echo.NewHTTPError(http.StatusBadRequest, "limit must be a positive integer")
		}
		filter.Limit = n
	}

	if v := c.QueryParam("offset"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			return filter, echo.NewHTTPError(http.StatusBadRequest, "offset must be a non-negative integer")
		}
		filter.Offset = n
	}

	switch v := c.QueryParam("source"); v {
	case "":
	case string(domain.SourceScanner), string(domain.SourceAPI), string(domain.SourceOverride):
		filter.Source = domain.Source(v)
	default:
		return filter, echo.NewHTTPError(http.StatusBadRequest, "source must be one of: scanner, api, override")
	}

	if v := c.QueryParam("granted"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return filter, echo.NewHTTPError(http.StatusBadRequest, "granted must be a boolean")
		}
		filter.Granted = &b
	}

	if v := c.QueryParam("since"); v != "" {
		t, err := time.Parse(time.RFC3339, v)
		if err != nil {
			return filter, echo.NewHTTPError(http.StatusBadRequest, "since must be RFC3339")
		}
		filter.Since = t
	}

	if v := c.QueryParam("until"); v != "" {
		t, err := time.Parse(time.RFC3339, v)
		if err != nil {
			return filter, echo.NewHTTPError(http.StatusBadRequest, "until must be RFC3339")
		}
		filter.Until = t
	}

	return filter, nil
}
