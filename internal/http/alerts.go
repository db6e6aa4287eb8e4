package http

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	echo "github.com/labstack/echo/v4"

	"github.com/jmehdipour/optica-notifier/internal/model"
	"github.com/jmehdipour/optica-notifier/internal/repository"
	"github.com/jmehdipour/optica-notifier/internal/service/alerts"
)

type createAlertReq struct {
	ClientID    int64  `json:"client_id"`
	Kind        string `json:"kind"`
	Channel     string `json:"channel"`
	Message     string `json:"message"`
	ScheduledAt string `json:"scheduled_at"` // RFC3339 or "2006-01-02 15:04"
}

type triggerResp struct {
	OK      bool   `json:"ok"`
	Message string `json:"message"`
	Count   int    `json:"count"`
}

// errorJSON maps service errors onto status codes.
func errorJSON(c echo.Context, err error) error {
	switch {
	case errors.Is(err, alerts.ErrInvalid):
		return c.JSON(http.StatusBadRequest, map[string]string{"error": err.Error()})
	case errors.Is(err, alerts.ErrNotFound):
		return c.JSON(http.StatusNotFound, map[string]string{"error": err.Error()})
	default:
		c.Logger().Errorf("%s %s: %v", c.Request().Method, c.Path(), err)
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "internal error"})
	}
}

// parseTime reads RFC3339, or a zone-less local time in loc (the clinic timezone).
func parseTime(raw string, loc *time.Location) (time.Time, error) {
	raw = strings.TrimSpace(raw)
	for _, layout := range []string{time.RFC3339, "2006-01-02 15:04", "2006-01-02"} {
		if t, err := time.ParseInLocation(layout, raw, loc); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("invalid time %q", raw)
}

func pathID(c echo.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	return id, err == nil && id > 0
}

func createAlertHandler(svc AlertService, loc *time.Location) echo.HandlerFunc {
	return func(c echo.Context) error {
		var req createAlertReq
		if err := c.Bind(&req); err != nil {
			return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid body"})
		}

		kind, ok := model.ParseKind(req.Kind)
		if !ok {
			return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid kind"})
		}
		ch, ok := model.ParseChannel(req.Channel)
		if !ok {
			return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid channel"})
		}
		at, err := parseTime(req.ScheduledAt, loc)
		if err != nil {
			return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid scheduled_at"})
		}

		a, err := svc.CreateAlert(c.Request().Context(), alerts.CreateInput{
			ClientID:    req.ClientID,
			Kind:        kind,
			Channel:     ch,
			Message:     req.Message,
			ScheduledAt: at,
		})
		if err != nil {
			return errorJSON(c, err)
		}
		return c.JSON(http.StatusCreated, a)
	}
}

func getAlertHandler(svc AlertService) echo.HandlerFunc {
	return func(c echo.Context) error {
		id, ok := pathID(c)
		if !ok {
			return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid id"})
		}
		a, err := svc.GetAlert(c.Request().Context(), id)
		if err != nil {
			return errorJSON(c, err)
		}
		return c.JSON(http.StatusOK, a)
	}
}

func deleteAlertHandler(svc AlertService) echo.HandlerFunc {
	return func(c echo.Context) error {
		id, ok := pathID(c)
		if !ok {
			return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid id"})
		}
		if err := svc.DeleteAlert(c.Request().Context(), id); err != nil {
			return errorJSON(c, err)
		}
		return c.NoContent(http.StatusNoContent)
	}
}

func parseAlertFilter(c echo.Context, loc *time.Location) (repository.AlertFilter, error) {
	var f repository.AlertFilter
	if v := c.QueryParam("client_id"); v != "" {
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil || n <= 0 {
			return f, errors.New("invalid client_id")
		}
		f.ClientID = n
	}
	if v := c.QueryParam("kind"); v != "" {
		k, ok := model.ParseKind(v)
		if !ok {
			return f, errors.New("invalid kind")
		}
		f.Kind = k
	}
	if v := c.QueryParam("channel"); v != "" {
		ch, ok := model.ParseChannel(v)
		if !ok {
			return f, errors.New("invalid channel")
		}
		f.Channel = ch
	}
	if v := c.QueryParam("sent"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return f, errors.New("invalid sent")
		}
		f.Sent = &b
	}
	if v := c.QueryParam("from"); v != "" {
		t, err := parseTime(v, loc)
		if err != nil {
			return f, errors.New("invalid from")
		}
		f.From = &t
	}
	if v := c.QueryParam("to"); v != "" {
		t, err := parseTime(v, loc)
		if err != nil {
			return f, errors.New("invalid to")
		}
		f.To = &t
	}
	if v := c.QueryParam("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 && n <= repository.MaxListAlerts {
			f.Limit = n
		}
	}
	return f, nil
}

func listAlertsHandler(svc AlertService, loc *time.Location) echo.HandlerFunc {
	return func(c echo.Context) error {
		f, err := parseAlertFilter(c, loc)
		if err != nil {
			return c.JSON(http.StatusBadRequest, map[string]string{"error": err.Error()})
		}

		rows, st, err := svc.ListAlerts(c.Request().Context(), f)
		if err != nil {
			return errorJSON(c, err)
		}
		if rows == nil {
			rows = []model.AlertWithClient{}
		}
		return c.JSON(http.StatusOK, map[string]any{
			"count":   len(rows),
			"stats":   st,
			"results": rows,
		})
	}
}

// runJobHandler triggers a scheduled job. A started batch runs to completion
// even if the client goes away.
func runJobHandler(jobs JobRunner, name, done string) echo.HandlerFunc {
	return func(c echo.Context) error {
		ctx := context.WithoutCancel(c.Request().Context())
		n, ran, err := jobs.RunNow(ctx, name)
		if err != nil {
			return errorJSON(c, err)
		}
		if !ran {
			return c.JSON(http.StatusConflict, triggerResp{OK: false,
				Message: fmt.Sprintf("%s job already running", name)})
		}
		return c.JSON(http.StatusOK, triggerResp{OK: true, Count: n,
			Message: fmt.Sprintf("%d %s", n, done)})
	}
}

func generateCampaignHandler(svc AlertService) echo.HandlerFunc {
	return func(c echo.Context) error {
		id, ok := pathID(c)
		if !ok {
			return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid id"})
		}
		n, err := svc.GenerateCampaignAlerts(context.WithoutCancel(c.Request().Context()), id)
		if err != nil {
			return errorJSON(c, err)
		}
		return c.JSON(http.StatusOK, triggerResp{OK: true, Count: n,
			Message: fmt.Sprintf("%d campaign alerts generated", n)})
	}
}
