package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/gofiber/fiber/v2/utils"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/i474232898/weather-gateway/internal/tools"
	"github.com/i474232898/weather-gateway/internal/weather"
)

// RequestIDHeader carries the request ID in both directions.
const RequestIDHeader = "X-Request-ID"

// Dispatcher runs tools. *tools.Registry satisfies it.
type Dispatcher interface {
	Dispatch(ctx context.Context, name string, params map[string]any) (json.RawMessage, error)
	Tools() []tools.Descriptor
	Tier() tools.Tier
}

// RegisterRoutes wires the HTTP handlers into the Fiber app. gatherer may be
// nil, in which case /metrics is not served.
func RegisterRoutes(app *fiber.App, d Dispatcher, gatherer prometheus.Gatherer) {
	app.Use(requestID)

	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"status":  "ok",
			"service": "weather-gateway",
			"tier":    d.Tier().String(),
		})
	})

	if gatherer != nil {
		app.Get("/metrics", adaptor.HTTPHandler(promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})))
	}

	v1 := app.Group("/api/v1")

	v1.Get("/tools", func(c *fiber.Ctx) error {
		descs := d.Tools()
		out := make([]toolView, 0, len(descs))
		for _, desc := range descs {
			out = append(out, newToolView(desc))
		}
		return c.JSON(fiber.Map{
			"tier":  d.Tier().String(),
			"tools": out,
		})
	})

	v1.Post("/tools/:name", func(c *fiber.Ctx) error {
		params, err := bindParams(c.Body())
		if err != nil {
			return err
		}
		// Params are only valid inside the handler; the name outlives it in
		// metric labels.
		payload, err := d.Dispatch(userContext(c), utils.CopyString(c.Params("name")), params)
		if err != nil {
			return err
		}
		c.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSON)
		return c.Send(payload)
	})

	v1.Get("/status", func(c *fiber.Ctx) error {
		payload, err := d.Dispatch(userContext(c), tools.ToolCheckServiceStatus, nil)
		if err != nil {
			return err
		}
		c.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSON)
		return c.Send(payload)
	})
}

func requestID(c *fiber.Ctx) error {
	id := strings.TrimSpace(c.Get(RequestIDHeader))
	if id == "" || len(id) > 128 {
		id = uuid.NewString()
	}
	id = utils.CopyString(id)
	c.Locals(RequestIDHeader, id)
	c.Set(RequestIDHeader, id)
	return c.Next()
}

func userContext(c *fiber.Ctx) context.Context {
	id, _ := c.Locals(RequestIDHeader).(string)
	return tools.WithRequestID(c.UserContext(), id)
}

// bindParams decodes a JSON object body. An empty body means no parameters.
func bindParams(body []byte) (map[string]any, error) {
	if len(bytes.TrimSpace(body)) == 0 {
		return map[string]any{}, nil
	}
	dec := json.NewDecoder(bytes.NewReader(body))
	dec.UseNumber()
	var params map[string]any
	if err := dec.Decode(&params); err != nil {
		return nil, weather.E(weather.KindInvalidParameter, "decode", "request body must be a JSON object of tool parameters: %v", err)
	}
	if params == nil {
		params = map[string]any{}
	}
	return params, nil
}

type paramView struct {
	Name        string   `json:"name"`
	Type        string   `json:"type"`
	Required    bool     `json:"required"`
	Default     any      `json:"default,omitempty"`
	Description string   `json:"description"`
	Minimum     *float64 `json:"minimum,omitempty"`
	Maximum     *float64 `json:"maximum,omitempty"`
	Format      string   `json:"format,omitempty"`
}

type toolView struct {
	Name        string      `json:"name"`
	Description string      `json:"description"`
	Tier        string      `json:"tier"`
	USOnly      bool        `json:"us_only"`
	CacheTTL    string      `json:"cache_ttl"`
	Params      []paramView `json:"params"`
}

func newToolView(d tools.Descriptor) toolView {
	v := toolView{
		Name:        d.Name,
		Description: d.Description,
		Tier:        d.Tier.String(),
		USOnly:      d.Region == tools.RegionUS,
		CacheTTL:    d.TTL.String(),
		Params:      []paramView{},
	}
	if d.TTL == 0 {
		v.CacheTTL = "none"
	}
	for _, p := range d.Params() {
		def, optional := d.Optional[p.Name]
		v.Params = append(v.Params, paramView{
			Name:        p.Name,
			Type:        p.Type,
			Required:    !optional,
			Default:     def,
			Description: p.Description,
			Minimum:     p.Minimum,
			Maximum:     p.Maximum,
			Format:      p.Format,
		})
	}
	return v
}

// StatusFor maps an error kind to an HTTP status code.
func StatusFor(kind weather.Kind) int {
	switch kind {
	case weather.KindInvalidParameter, weather.KindInvalidCoordinate, weather.KindInvalidRange, weather.KindInvalidDateRange:
		return fiber.StatusBadRequest
	case weather.KindToolDisabled:
		return fiber.StatusForbidden
	case weather.KindUnknownTool, weather.KindNoDataForRegion:
		return fiber.StatusNotFound
	case weather.KindUpstreamError, weather.KindMalformedResponse:
		return fiber.StatusBadGateway
	case weather.KindUpstreamUnavailable:
		return fiber.StatusServiceUnavailable
	default:
		return fiber.StatusInternalServerError
	}
}

// ErrorHandler is the centralized Fiber error handler.
func ErrorHandler(c *fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError
	body := fiber.Map{
		"error":   true,
		"message": err.Error(),
	}

	var fe *fiber.Error
	var we *weather.Error
	switch {
	case errors.As(err, &fe):
		code = fe.Code
	case errors.As(err, &we):
		code = StatusFor(we.Kind)
		body["kind"] = we.Kind
	}
	if code == fiber.StatusServiceUnavailable {
		c.Set(fiber.HeaderRetryAfter, "30")
	}
	return c.Status(code).JSON(body)
}

// NewApp returns a Fiber app configured with the gateway's error handling.
func NewApp() *fiber.App {
	return fiber.New(fiber.Config{
		AppName:               "weather-gateway",
		DisableStartupMessage: true,
		ReadTimeout:           10 * time.Second,
		WriteTimeout:          60 * time.Second,
		ErrorHandler:          ErrorHandler,
	})
}
