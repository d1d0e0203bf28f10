package httpapi

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/casualjim/latravels/conversation"
	"github.com/casualjim/latravels/pkg/slogx"
	"github.com/casualjim/latravels/session"
	"github.com/casualjim/latravels/transcript"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
)

// Sessions is the part of session.Manager the API serves.
type Sessions interface {
	Create(ctx context.Context) (session.Session, error)
	Chat(ctx context.Context, sessionID string, text string) (session.Reply, error)
	History(ctx context.Context, sessionID string) ([]transcript.Turn, error)
	Ready(ctx context.Context, sessionID string) (bool, error)
}

type handler struct {
	sessions Sessions
}

// New builds the HTTP server.
func New(sessions Sessions) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.JSONSerializer = jsonSerializer{}

	e.Use(middleware.Recover())
	e.Use(middleware.RequestID())
	e.Use(middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		LogMethod:    true,
		LogURI:       true,
		LogStatus:    true,
		LogLatency:   true,
		LogRequestID: true,
		LogError:     true,
		HandleError:  true,
		LogValuesFunc: func(c echo.Context, v middleware.RequestLoggerValues) error {
			attrs := []slog.Attr{
				slog.String("method", v.Method),
				slog.String("uri", v.URI),
				slog.Int("status", v.Status),
				slog.Duration("latency", v.Latency),
				slog.String("request_id", v.RequestID),
			}
			level := slog.LevelInfo
			if v.Error != nil {
				level = slog.LevelError
				attrs = append(attrs, slogx.Error(v.Error))
			}
			slog.LogAttrs(c.Request().Context(), level, "http request", attrs...)
			return nil
		},
	}))

	h := &handler{sessions: sessions}
	e.GET("/healthz", h.health)

	v1 := e.Group("/v1")
	v1.POST("/sessions", h.createSession)
	v1.POST("/sessions/:id/messages", h.sendMessage)
	v1.GET("/sessions/:id/history", h.history)
	v1.GET("/sessions/:id/ready", h.ready)
	return e
}

func (h *handler) health(c echo.Context) error {
	return c.String(http.StatusOK, "ok")
}

type createSessionResponse struct {
	Session session.Session `json:"session"`
	Welcome string          `json:"welcome"`
}

func (h *handler) createSession(c echo.Context) error {
	s, err := h.sessions.Create(c.Request().Context())
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, createSessionResponse{Session: s, Welcome: session.Welcome})
}

type messageRequest struct {
	Text string `json:"text"`
}

func (h *handler) sendMessage(c echo.Context) error {
	var req messageRequest
	if err := c.Bind(&req); err != nil {
		return err
	}
	if strings.TrimSpace(req.Text) == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "text is required")
	}

	reply, err := h.sessions.Chat(c.Request().Context(), c.Param("id"), req.Text)
	if err != nil {
		return toHTTPError(err)
	}
	return c.JSON(http.StatusOK, reply)
}

type historyResponse struct {
	Turns []transcript.Turn `json:"turns"`
}

func (h *handler) history(c echo.Context) error {
	all, _ := strconv.ParseBool(c.QueryParam("all"))

	turns, err := h.sessions.History(c.Request().Context(), c.Param("id"))
	if err != nil {
		return toHTTPError(err)
	}
	resp := historyResponse{Turns: make([]transcript.Turn, 0, len(turns))}
	for _, turn := range turns {
		if all || turn.Visible() {
			resp.Turns = append(resp.Turns, turn)
		}
	}
	return c.JSON(http.StatusOK, resp)
}

type readyResponse struct {
	Ready bool `json:"ready"`
}

func (h *handler) ready(c echo.Context) error {
	ready, err := h.sessions.Ready(c.Request().Context(), c.Param("id"))
	if err != nil {
		return toHTTPError(err)
	}
	return c.JSON(http.StatusOK, readyResponse{Ready: ready})
}

func toHTTPError(err error) error {
	switch {
	case errors.Is(err, session.ErrUnknownSession):
		return echo.NewHTTPError(http.StatusNotFound, err.Error()).SetInternal(err)
	case errors.Is(err, conversation.ErrEmptyMessage):
		return echo.NewHTTPError(http.StatusBadRequest, err.Error()).SetInternal(err)
	case errors.Is(err, session.ErrTurnTimeout):
		return echo.NewHTTPError(http.StatusGatewayTimeout, err.Error()).SetInternal(err)
	case errors.Is(err, context.Canceled):
		return echo.NewHTTPError(http.StatusServiceUnavailable, err.Error()).SetInternal(err)
	default:
		return err
	}
}
