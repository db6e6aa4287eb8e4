package http

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	echo "github.com/labstack/echo/v4"

	"github.com/jmehdipour/optica-notifier/internal/model"
	"github.com/jmehdipour/optica-notifier/internal/repository"
)

func listDeliveriesHandler(chRepo repository.CHDeliveriesRepository, loc *time.Location) echo.HandlerFunc {
	return func(c echo.Context) error {
		if chRepo == nil {
			return c.JSON(http.StatusServiceUnavailable, map[string]string{"error": "delivery audit disabled"})
		}

		f := repository.DeliveryFilter{Limit: 50}
		if v := c.QueryParam("limit"); v != "" {
			if n, err := strconv.Atoi(v); err == nil && n > 0 && n <= 1000 {
				f.Limit = n
			}
		}
		if v := c.QueryParam("offset"); v != "" {
			if n, err := strconv.Atoi(v); err == nil && n >= 0 {
				f.Offset = n
			}
		}
		if v := c.QueryParam("alert_id"); v != "" {
			if n, err := strconv.ParseInt(v, 10, 64); err == nil && n > 0 {
				f.AlertID = n
			}
		}
		if v := c.QueryParam("client_id"); v != "" {
			if n, err := strconv.ParseInt(v, 10, 64); err == nil && n > 0 {
				f.ClientID = n
			}
		}
		if raw := strings.TrimSpace(c.QueryParam("channel")); raw != "" {
			if ch, ok := model.ParseChannel(raw); ok {
				f.Channel = ch
			}
		}
		if raw := c.QueryParam("since"); raw != "" {
			t, err := parseTime(raw, loc)
			if err != nil {
				return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid since"})
			}
			f.Since = t
		}

		ds, err := chRepo.List(c.Request().Context(), f)
		if err != nil {
			c.Logger().Errorf("clickhouse list failed: %v", err)

			return c.JSON(http.StatusInternalServerError, map[string]string{"error": "query failed"})
		}

		return c.JSON(http.StatusOK, map[string]any{
			"limit":   f.Limit,
			"offset":  f.Offset,
			"count":   len(ds),
			"results": ds,
		})
	}
}
