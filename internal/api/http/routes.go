package httpapi

import (
	"errors"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"

	"github.com/i474232898/wxarchive/internal/importer"
	"github.com/i474232898/wxarchive/internal/store"
	"github.com/i474232898/wxarchive/internal/units"
	"github.com/i474232898/wxarchive/internal/weather"
)

var validate = validator.New()

// NewApp returns a Fiber app with the health endpoint, the API routes and a
// JSON error handler. loc is the station time zone used for calendar dates.
func NewApp(name string, service *importer.Service, loc *time.Location) *fiber.App {
	app := fiber.New(fiber.Config{
		AppName:               name,
		DisableStartupMessage: true,
		ReadTimeout:           10 * time.Second,
		WriteTimeout:          10 * time.Second,
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			// Centralized error response
			code := fiber.StatusInternalServerError
			var fe *fiber.Error
			if errors.As(err, &fe) {
				code = fe.Code
			}
			return c.Status(code).JSON(fiber.Map{
				"error":   true,
				"message": err.Error(),
			})
		},
	})

	app.Use(logger.New())
	app.Use(recover.New())

	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"status":  "ok",
			"service": name,
		})
	})

	RegisterRoutes(app, service, loc)
	return app
}

// RegisterRoutes wires the HTTP handlers into the Fiber app.
func RegisterRoutes(app *fiber.App, service *importer.Service, loc *time.Location) {
	if loc == nil {
		loc = time.UTC
	}
	v1 := app.Group("/api/v1")

	v1.Get("/archive/latest", func(c *fiber.Ctx) error {
		system, err := parseUnits(c.Query("units"))
		if err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}

		rec, err := service.GetLatest()
		if err != nil {
			return archiveError(err, "archive is empty")
		}
		if rec, err = convert(rec, system); err != nil {
			return err
		}
		return c.JSON(rec)
	})

	v1.Get("/archive/records", func(c *fiber.Ctx) error {
		var req rangeQuery
		if err := req.bind(c); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}
		if err := validate.Struct(req); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}

		records, err := service.GetRange(req.From, req.To)
		if err != nil {
			return archiveError(err, "no archive records for requested range")
		}
		for i, r := range records {
			if records[i], err = convert(r, req.Units); err != nil {
				return err
			}
		}

		return c.JSON(fiber.Map{
			"from":    req.From,
			"to":      req.To,
			"count":   len(records),
			"records": records,
		})
	})

	v1.Get("/archive/summary", func(c *fiber.Ctx) error {
		system, err := parseUnits(c.Query("units"))
		if err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}
		date, err := parseDate(c.Query("date"), loc)
		if err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}

		summary, err := service.GetDaySummary(date, system)
		if err != nil {
			return archiveError(err, "no archive records for requested day")
		}
		return c.JSON(summary)
	})

	v1.Post("/imports", func(c *fiber.Ctx) error {
		var body importBody
		if err := c.BodyParser(&body); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "invalid JSON body")
		}
		if err := validate.Struct(body); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}
		req, err := body.request(loc)
		if err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}

		job, err := service.Start(c.UserContext(), req)
		if err != nil {
			var ce *importer.ConfigError
			if errors.As(err, &ce) {
				return fiber.NewError(fiber.StatusBadRequest, err.Error())
			}
			return err
		}
		return c.Status(fiber.StatusAccepted).JSON(job)
	})

	v1.Get("/imports", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"jobs": service.Jobs()})
	})

	v1.Get("/imports/:id", func(c *fiber.Ctx) error {
		job, err := service.Job(c.Params("id"))
		if err != nil {
			if errors.Is(err, importer.ErrJobNotFound) {
				return fiber.NewError(fiber.StatusNotFound, err.Error())
			}
			return err
		}
		return c.JSON(job)
	})
}

func archiveError(err error, notFound string) error {
	if errors.Is(err, store.ErrNotFound) {
		return fiber.NewError(fiber.StatusNotFound, notFound)
	}
	return fiber.NewError(fiber.StatusInternalServerError, "failed to read archive")
}

func convert(rec weather.Record, system units.System) (weather.Record, error) {
	if system == 0 {
		return rec, nil
	}
	out, err := rec.ConvertTo(system)
	if err != nil {
		return weather.Record{}, fiber.NewError(fiber.StatusInternalServerError, err.Error())
	}
	return out, nil
}

// parseUnits reads an optional unit system; empty keeps the archive's units.
func parseUnits(s string) (units.System, error) {
	if s == "" {
		return 0, nil
	}
	return units.ParseSystem(s)
}

func parseDate(s string, loc *time.Location) (time.Time, error) {
	if s == "" {
		return time.Time{}, errors.New("date query parameter is required")
	}
	d, err := time.ParseInLocation("2006-01-02", s, loc)
	if err != nil {
		return time.Time{}, errors.New("invalid date; use YYYY-MM-DD")
	}
	return d, nil
}

// rangeQuery holds query parameters for the records endpoint.
type rangeQuery struct {
	From  time.Time `validate:"required"`
	To    time.Time `validate:"required,gtefield=From"`
	Units units.System
}

func (r *rangeQuery) bind(c *fiber.Ctx) error {
	fromStr := c.Query("from")
	toStr := c.Query("to")
	if fromStr == "" || toStr == "" {
		return errors.New("from and to query parameters are required")
	}

	from, err := parseTime(fromStr)
	if err != nil {
		return err
	}
	to, err := parseTime(toStr)
	if err != nil {
		return err
	}
	system, err := parseUnits(c.Query("units"))
	if err != nil {
		return err
	}

	r.From = from
	r.To = to
	r.Units = system
	return nil
}

// importBody is the JSON body of an import request. Date selects one
// calendar day and excludes From and To.
type importBody struct {
	Source string `json:"source" validate:"omitempty,oneof=csv wu cumulus openmeteo"`
	Date   string `json:"date" validate:"omitempty,datetime=2006-01-02"`
	From   string `json:"from" validate:"excluded_with=Date"`
	To     string `json:"to" validate:"excluded_with=Date"`
	DryRun bool   `json:"dryRun"`
	Update bool   `json:"update"`
}

func (b importBody) request(loc *time.Location) (importer.Request, error) {
	req := importer.Request{Source: b.Source, DryRun: b.DryRun, Update: b.Update}
	if b.Date != "" {
		day, err := parseDate(b.Date, loc)
		if err != nil {
			return req, err
		}
		req.From, req.To = importer.DayRange(day, loc)
		return req, nil
	}
	var err error
	if b.From != "" {
		if req.From, err = parseTime(b.From); err != nil {
			return req, err
		}
	}
	if b.To != "" {
		if req.To, err = parseTime(b.To); err != nil {
			return req, err
		}
	}
	return req, nil
}

// parseTime tries to parse either RFC3339 or Unix seconds.
func parseTime(s string) (time.Time, error) {
	if ts, err := time.Parse(time.RFC3339, s); err == nil {
		return ts.UTC(), nil
	}
	if unix, err := strconv.ParseInt(s, 10, 64); err == nil {
		return time.Unix(unix, 0).UTC(), nil
	}
	return time.Time{}, errors.New("invalid time format; use RFC3339 or unix seconds")
}
