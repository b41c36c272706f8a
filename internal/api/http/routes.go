package httpapi

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/utils"
	"go.uber.org/zap"

	"github.com/forecast-widget/forecast-widget/internal/forecast"
	"github.com/forecast-widget/forecast-widget/internal/view"
)

var validate = validator.New()

// SessionCookie carries the UI session id.
const SessionCookie = "fw_session"

const fetchTimeout = 15 * time.Second

// Options configures the routes.
type Options struct {
	Title       string
	Locations   []forecast.Location
	Default     *forecast.Location
	DefaultUnit forecast.Unit
	Logger      *zap.Logger
}

type routes struct {
	service *forecast.Service
	opts    Options
	logger  *zap.Logger
}

// RegisterRoutes wires the HTTP handlers into the Fiber app.
func RegisterRoutes(app *fiber.App, service *forecast.Service, opts Options) {
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	if opts.Title == "" {
		opts.Title = "7-Day Weather Forecast"
	}
	if opts.DefaultUnit == "" {
		opts.DefaultUnit = forecast.Celsius
	}
	r := &routes{service: service, opts: opts, logger: opts.Logger}

	app.Get("/", r.index)
	app.Get("/cards", r.cards)
	app.Post("/select", r.selectLocation)
	app.Post("/toggle", r.toggleUnit)

	v1 := app.Group("/api/v1")
	v1.Get("/locations", r.locations)
	v1.Get("/forecast", r.forecast)
	v1.Get("/session", r.session)
}

// ErrorHandler renders errors as JSON, keeping fiber's status codes.
func ErrorHandler(logger *zap.Logger) fiber.ErrorHandler {
	return func(c *fiber.Ctx, err error) error {
		code := fiber.StatusInternalServerError
		var fe *fiber.Error
		if errors.As(err, &fe) {
			code = fe.Code
		}
		if code >= fiber.StatusInternalServerError {
			logger.Error("HTTP error",
				zap.String("method", c.Method()),
				zap.String("path", c.Path()),
				zap.Int("status", code),
				zap.Error(err))
		}
		return c.Status(code).JSON(fiber.Map{
			"error":   true,
			"message": err.Error(),
		})
	}
}

// sessionFor returns the caller's session, issuing a cookie for new ones.
func (r *routes) sessionFor(c *fiber.Ctx) (*forecast.Session, bool) {
	sess, created := r.service.Session(c.Cookies(SessionCookie), r.opts.DefaultUnit)
	if created {
		c.Cookie(&fiber.Cookie{
			Name:     SessionCookie,
			Value:    sess.ID,
			Path:     "/",
			HTTPOnly: true,
			SameSite: fiber.CookieSameSiteLaxMode,
		})
	}
	return sess, created
}

func (r *routes) index(c *fiber.Ctx) error {
	sess, _ := r.sessionFor(c)

	// First load fetches the default location, like the widget does on startup.
	if sess.Snapshot().Location == nil && r.opts.Default != nil {
		ctx, cancel := context.WithTimeout(c.UserContext(), fetchTimeout)
		defer cancel()
		_ = r.service.Select(ctx, sess, *r.opts.Default)
	}

	snap := sess.Snapshot()
	page := view.Page{
		Title:     r.opts.Title,
		Locations: r.opts.Locations,
		Unit:      snap.Unit,
		Cards:     r.service.Cards(sess),
		Loading:   snap.Loading,
		Error:     snap.Error,
	}
	if snap.Location != nil {
		page.Selected = snap.Location.ID()
	}

	c.Type("html", "utf-8")
	return view.RenderPage(c, page)
}

func (r *routes) cards(c *fiber.Ctx) error {
	sess, _ := r.sessionFor(c)
	c.Type("html", "utf-8")
	return view.RenderFragment(c, r.service.Cards(sess), sess.Snapshot().Loading)
}

// selectForm holds the body of POST /select.
type selectForm struct {
	Location string `validate:"required"`
	Name     string
}

func (r *routes) selectLocation(c *fiber.Ctx) error {
	// FormValue is backed by the request buffer; the name is kept on the session.
	form := selectForm{
		Location: utils.CopyString(c.FormValue("location")),
		Name:     utils.CopyString(c.FormValue("name")),
	}
	if err := validate.Struct(form); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, err.Error())
	}

	loc, err := r.lookupLocation(form)
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, err.Error())
	}

	sess, _ := r.sessionFor(c)
	ctx, cancel := context.WithTimeout(c.UserContext(), fetchTimeout)
	defer cancel()

	// Failures are recorded on the session and shown by the page.
	_ = r.service.Select(ctx, sess, loc)

	return c.Redirect("/", fiber.StatusSeeOther)
}

func (r *routes) lookupLocation(form selectForm) (forecast.Location, error) {
	lat, lon, err := forecast.ParseLocationID(form.Location)
	if err != nil {
		return forecast.Location{}, err
	}
	for _, loc := range r.opts.Locations {
		if loc.Lat == lat && loc.Lon == lon {
			return loc, nil
		}
	}

	name := form.Name
	if name == "" {
		name = form.Location
	}
	loc := forecast.Location{Name: name, Lat: lat, Lon: lon}
	if err := validate.Struct(loc); err != nil {
		return forecast.Location{}, err
	}
	return loc, nil
}

func (r *routes) toggleUnit(c *fiber.Ctx) error {
	sess, _ := r.sessionFor(c)
	r.service.ToggleUnit(sess)
	return c.Redirect("/", fiber.StatusSeeOther)
}

func (r *routes) locations(c *fiber.Ctx) error {
	resp := fiber.Map{"locations": r.opts.Locations}
	if r.opts.Default != nil {
		resp["default"] = r.opts.Default.ID()
	}
	return c.JSON(resp)
}

// forecastQuery holds query parameters for the stateless forecast endpoint.
type forecastQuery struct {
	Lat  string `validate:"required,latitude"`
	Lon  string `validate:"required,longitude"`
	Unit string `validate:"omitempty,oneof=C F c f"`
}

func (r *routes) forecast(c *fiber.Ctx) error {
	q := forecastQuery{
		Lat:  c.Query("lat"),
		Lon:  c.Query("lon"),
		Unit: c.Query("unit"),
	}
	if err := validate.Struct(q); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, err.Error())
	}

	lat, lon, err := forecast.ParseLocationID(q.Lat + "," + q.Lon)
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, err.Error())
	}
	unit, err := forecast.ParseUnit(q.Unit)
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, err.Error())
	}

	ctx, cancel := context.WithTimeout(c.UserContext(), fetchTimeout)
	defer cancel()

	series, err := r.service.Fetch(ctx, lat, lon)
	if err != nil {
		r.logger.Error("Error fetching weather data",
			zap.Float64("lat", lat),
			zap.Float64("lon", lon),
			zap.Error(err))
		return fiber.NewError(statusFor(err), forecast.UserMessage(err))
	}

	return c.JSON(fiber.Map{
		"unit":  unit,
		"cards": forecast.Render(series, unit, time.Now()),
	})
}

func (r *routes) session(c *fiber.Ctx) error {
	sess, _ := r.sessionFor(c)
	return c.JSON(fiber.Map{
		"session": sess.Snapshot(),
		"cards":   r.service.Cards(sess),
	})
}

// statusFor maps a fetch failure to the status returned to API callers.
func statusFor(err error) int {
	var statusErr *forecast.HTTPStatusError
	switch {
	case errors.Is(err, forecast.ErrEmptyData):
		return http.StatusNotFound
	case errors.As(err, &statusErr), errors.Is(err, forecast.ErrDecode):
		return http.StatusBadGateway
	case errors.Is(err, forecast.ErrTransport):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}
