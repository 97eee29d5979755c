package httpapi

import (
	"bufio"
	"context"
	"errors"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/i474232898/weather-forecast-qa/internal/qa"
	"github.com/i474232898/weather-forecast-qa/internal/store"
	"github.com/i474232898/weather-forecast-qa/internal/weather"
)

var validate = validator.New()

// answerTimeout bounds a single streamed answer.
const answerTimeout = 2 * time.Minute

// Deps are the collaborators the HTTP handlers need.
type Deps struct {
	Weather  *weather.Service
	Sessions *store.MemoryStore
	QA       *qa.Orchestrator
	Logger   *zap.SugaredLogger

	// Now defaults to time.Now; tests freeze it.
	Now func() time.Time
}

// RegisterRoutes wires the HTTP handlers into the Fiber app.
func RegisterRoutes(app *fiber.App, deps Deps) {
	h := &handlers{Deps: deps}
	if h.Now == nil {
		h.Now = time.Now
	}
	if h.Logger == nil {
		h.Logger = zap.NewNop().Sugar()
	}

	v1 := app.Group("/api/v1")

	v1.Post("/sessions", h.createSession)
	v1.Get("/sessions/:id", h.getSession)
	v1.Delete("/sessions/:id", h.deleteSession)
	v1.Get("/sessions/:id/forecast", h.reducedForecast)
	v1.Get("/sessions/:id/summary", h.summary)
	v1.Post("/sessions/:id/questions", h.ask)
}

// ErrorHandler renders handler errors as a JSON body with the matching status.
func ErrorHandler(c *fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError
	var e *fiber.Error
	if errors.As(err, &e) {
		code = e.Code
	}
	return c.Status(code).JSON(fiber.Map{
		"error":   true,
		"message": err.Error(),
	})
}

type handlers struct {
	Deps
}

// createSessionRequest holds the body of POST /sessions.
type createSessionRequest struct {
	Location string `json:"location" validate:"required,max=200"`
}

// questionRequest holds the body of POST /sessions/:id/questions.
type questionRequest struct {
	Question string `json:"question" validate:"required,max=2000"`
}

type sessionResponse struct {
	ID          string            `json:"id"`
	Location    string            `json:"location"`
	Latitude    float64           `json:"latitude"`
	Longitude   float64           `json:"longitude"`
	TimeZone    string            `json:"timeZone"`
	Office      string            `json:"office,omitempty"`
	GridX       int               `json:"gridX"`
	GridY       int               `json:"gridY"`
	FetchStatus map[string]string `json:"fetchStatus,omitempty"`
	History     []qa.Turn         `json:"history"`
	CreatedAt   time.Time         `json:"createdAt"`
}

func toSessionResponse(s store.Session) sessionResponse {
	ds := s.Forecast.Dataset
	history := s.History
	if history == nil {
		history = []qa.Turn{}
	}
	return sessionResponse{
		ID:          s.ID,
		Location:    s.Forecast.Query,
		Latitude:    s.Forecast.Coordinates.Latitude,
		Longitude:   s.Forecast.Coordinates.Longitude,
		TimeZone:    ds.TimeZone,
		Office:      ds.Metadata.Office,
		GridX:       ds.Metadata.GridX,
		GridY:       ds.Metadata.GridY,
		FetchStatus: ds.FetchStatus,
		History:     history,
		CreatedAt:   s.CreatedAt,
	}
}

func (h *handlers) createSession(c *fiber.Ctx) error {
	var req createSessionRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}
	req.Location = strings.TrimSpace(req.Location)
	if err := validate.Struct(req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, err.Error())
	}

	fc, err := h.Weather.Load(c.UserContext(), req.Location)
	if err != nil {
		if errors.Is(err, weather.ErrLocationNotFound) {
			return fiber.NewError(fiber.StatusNotFound, "could not resolve that location")
		}
		return fiber.NewError(fiber.StatusBadGateway, "unable to retrieve NWS weather data")
	}

	sess := h.Sessions.Create(fc)
	h.Logger.Infow("session created", "session", sess.ID, "location", req.Location)
	return c.Status(fiber.StatusCreated).JSON(toSessionResponse(sess))
}

func (h *handlers) getSession(c *fiber.Ctx) error {
	sess, err := h.lookup(c)
	if err != nil {
		return err
	}
	return c.JSON(toSessionResponse(sess))
}

func (h *handlers) deleteSession(c *fiber.Ctx) error {
	if err := h.Sessions.Delete(c.Params("id")); err != nil {
		return notFound(err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}

func (h *handlers) reducedForecast(c *fiber.Ctx) error {
	sess, err := h.lookup(c)
	if err != nil {
		return err
	}
	return c.JSON(h.Weather.Reduce(sess.Forecast.Dataset, h.Now()))
}

func (h *handlers) summary(c *fiber.Ctx) error {
	sess, err := h.lookup(c)
	if err != nil {
		return err
	}
	text, ok := h.Weather.Summary(sess.Forecast.Dataset, h.Now())
	if !ok {
		return fiber.NewError(fiber.StatusNotFound, "no forecast period starts tomorrow")
	}
	return c.JSON(fiber.Map{"summary": text})
}

func (h *handlers) ask(c *fiber.Ctx) error {
	sess, err := h.lookup(c)
	if err != nil {
		return err
	}

	var req questionRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}
	req.Question = strings.TrimSpace(req.Question)
	if err := validate.Struct(req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, err.Error())
	}

	// The window is recomputed on every turn so it follows the clock.
	now := h.Now()
	ds := sess.Forecast.Dataset
	reduced := h.Weather.Reduce(ds, now)
	today := now.In(h.Weather.Location(ds))
	window := h.Weather.WindowHours()
	history := sess.History
	question := req.Question

	c.Set(fiber.HeaderContentType, "text/plain; charset=utf-8")
	c.Set(fiber.HeaderCacheControl, "no-cache")
	c.Context().SetBodyStreamWriter(func(w *bufio.Writer) {
		ctx, cancel := context.WithTimeout(context.Background(), answerTimeout)
		defer cancel()

		answer, err := h.QA.Ask(ctx, reduced, history, question, today, window, func(chunk string) error {
			if _, err := w.WriteString(chunk); err != nil {
				return err
			}
			return w.Flush()
		})
		if err != nil {
			h.Logger.Warnw("question failed", "session", sess.ID, "error", err)
			_, _ = w.WriteString("\n[answer generation failed]")
			_ = w.Flush()
			return
		}

		if _, err := h.Sessions.AppendTurns(sess.ID,
			qa.Turn{Role: qa.RoleUser, Content: question},
			qa.Turn{Role: qa.RoleAssistant, Content: answer},
		); err != nil {
			h.Logger.Warnw("session ended before answer was recorded", "session", sess.ID)
		}
	})
	return nil
}

func (h *handlers) lookup(c *fiber.Ctx) (store.Session, error) {
	id := c.Params("id")
	sess, err := h.Sessions.Get(id)
	if err != nil {
		return store.Session{}, notFound(err)
	}
	_ = h.Sessions.Touch(id)
	return sess, nil
}

func notFound(err error) error {
	if errors.Is(err, store.ErrNotFound) {
		return fiber.NewError(fiber.StatusNotFound, "session not found")
	}
	return fiber.NewError(fiber.StatusInternalServerError, "session lookup failed")
}
