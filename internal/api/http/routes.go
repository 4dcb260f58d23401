package httpapi

import (
	"context"
	"errors"
	"log/slog"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/google/uuid"

	"github.com/i474232898/airport-weather/internal/store"
	"github.com/i474232898/airport-weather/internal/weather"
)

var validate = validator.New()

// SnapshotSource serves the cached snapshot envelope.
type SnapshotSource interface {
	Get(ctx context.Context, force bool) weather.Envelope
}

// ForecastSource fetches the detail forecast of one airport.
type ForecastSource interface {
	Forecast(ctx context.Context, icao string) ([]weather.ForecastDay, error)
}

// Dependencies are the collaborators behind the API.
type Dependencies struct {
	Snapshots SnapshotSource
	Forecasts ForecastSource
	History   weather.HistoryStore
	Logger    *slog.Logger
}

// RegisterRoutes wires the HTTP handlers into the Fiber app.
func RegisterRoutes(app *fiber.App, deps Dependencies) {
	api := app.Group("/api", cors.New(cors.Config{
		AllowOrigins: "*",
		AllowMethods: "GET,POST,OPTIONS",
		AllowHeaders: "Content-Type",
	}))

	api.Get("/weather", func(c *fiber.Ctx) error {
		var q weatherQuery
		if err := c.QueryParser(&q); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}
		return c.JSON(deps.Snapshots.Get(c.UserContext(), q.forced()))
	})

	api.Get("/special-reports", func(c *fiber.Ctx) error {
		env := deps.Snapshots.Get(c.UserContext(), false)
		if env.SpecialReports == nil {
			return c.JSON([]weather.SpecialReportRecord{})
		}
		return c.JSON(env.SpecialReports)
	})

	api.Get("/forecast/:icao", func(c *fiber.Ctx) error {
		req := icaoParam{ICAO: strings.ToUpper(c.Params("icao"))}
		if err := validate.Struct(req); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "icao must be a 4-letter ICAO code")
		}

		days, err := deps.Forecasts.Forecast(c.UserContext(), req.ICAO)
		if err != nil {
			deps.Logger.Warn("forecast unavailable", "icao", req.ICAO, "error", err)
			return c.JSON([]weather.ForecastDay{})
		}
		return c.JSON(days)
	})

	history := api.Group("/history")

	history.Post("/save", func(c *fiber.Ctx) error {
		var airports []weather.AirportSnapshot
		if err := c.BodyParser(&airports); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "body must be a JSON array of airport records")
		}
		if len(airports) == 0 {
			return fiber.NewError(fiber.StatusBadRequest, "no airport records to save")
		}
		if err := validate.Var(airports, "dive"); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}

		id, err := deps.History.SaveSnapshot(c.UserContext(), uuid.NewString(), airports)
		if err != nil {
			deps.Logger.Error("history save failed", "error", err)
			return fiber.NewError(fiber.StatusInternalServerError, "failed to save snapshot")
		}
		return c.JSON(fiber.Map{"success": true, "snapshot_id": id})
	})

	history.Get("/snapshots", func(c *fiber.Ctx) error {
		snapshots, err := deps.History.ListSnapshots(c.UserContext())
		if err != nil {
			deps.Logger.Error("history list failed", "error", err)
			return fiber.NewError(fiber.StatusInternalServerError, "failed to list snapshots")
		}
		return c.JSON(snapshots)
	})

	history.Get("/snapshot/:id", func(c *fiber.Ctx) error {
		id, err := strconv.ParseInt(c.Params("id"), 10, 64)
		if err != nil || id <= 0 {
			return fiber.NewError(fiber.StatusBadRequest, "snapshot id must be a positive integer")
		}

		data, err := deps.History.SnapshotData(c.UserContext(), id)
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				return fiber.NewError(fiber.StatusNotFound, "snapshot not found")
			}
			deps.Logger.Error("history snapshot failed", "snapshot_id", id, "error", err)
			return fiber.NewError(fiber.StatusInternalServerError, "failed to fetch snapshot")
		}
		return c.JSON(data)
	})

	history.Get("/airport/:code", func(c *fiber.Ctx) error {
		req := icaoParam{ICAO: strings.ToUpper(c.Params("code"))}
		if err := validate.Struct(req); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "code must be a 4-letter ICAO code")
		}

		entries, err := deps.History.AirportHistory(c.UserContext(), req.ICAO)
		if err != nil {
			deps.Logger.Error("airport history failed", "icao", req.ICAO, "error", err)
			return fiber.NewError(fiber.StatusInternalServerError, "failed to fetch airport history")
		}
		return c.JSON(entries)
	})
}

// weatherQuery holds query parameters for the snapshot endpoint.
type weatherQuery struct {
	Force string `query:"force"`
}

func (q weatherQuery) forced() bool {
	switch strings.ToLower(q.Force) {
	case "1", "true", "yes":
		return true
	}
	return false
}

// icaoParam validates an airport path parameter.
type icaoParam struct {
	ICAO string `validate:"required,len=4,alpha"`
}
