package server

import (
	"context"
	"fmt"
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"pricetracker/config"
	"pricetracker/internal/tracker"
	"pricetracker/logger"
	"pricetracker/services/storage"
)

// Server is the HTTP API surface in front of the tracker
type Server struct {
	echo    *echo.Echo
	tracker *tracker.Tracker
	store   storage.Store
	cfg     config.Config
	log     *logger.Logger
}

type requestValidator struct {
	validate *validator.Validate
}

func (v *requestValidator) Validate(i interface{}) error {
	if err := v.validate.Struct(i); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	return nil
}

// New creates the HTTP server and registers all routes
func New(cfg config.Config, tr *tracker.Tracker, store storage.Store) *Server {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Validator = &requestValidator{validate: validator.New()}
	e.HTTPErrorHandler = errorHandler

	e.Use(middleware.Recover())
	e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins: []string{cfg.FrontendURL},
		AllowMethods: []string{http.MethodGet, http.MethodPost, http.MethodDelete, http.MethodOptions},
	}))

	s := &Server{
		echo:    e,
		tracker: tr,
		store:   store,
		cfg:     cfg,
		log:     logger.ForComponent("server"),
	}

	e.GET("/", s.handleRoot)
	e.GET("/test-db", s.handleTestDB)
	e.POST("/track-product", s.handleTrackProduct)
	e.GET("/products", s.handleListProducts)
	e.DELETE("/products/:id", s.handleDeleteProduct)
	e.POST("/api/alerts", s.handleCreateAlert)
	e.POST("/api/multiplatform/compare", s.handleCompare)

	return s
}

// errorHandler renders every error as the API's JSON envelope
func errorHandler(err error, c echo.Context) {
	if c.Response().Committed {
		return
	}

	code := http.StatusInternalServerError
	message := "Internal server error"
	if he, ok := err.(*echo.HTTPError); ok {
		code = he.Code
		if m, ok := he.Message.(string); ok {
			message = m
		}
	}

	c.JSON(code, echo.Map{
		"success": false,
		"message": message,
	})
}

// Start runs the server until it fails or is shut down
func (s *Server) Start() error {
	addr := fmt.Sprintf(":%d", s.cfg.Port)
	s.log.Info().Str("addr", addr).Msg("HTTP server listening")
	return s.echo.Start(addr)
}

// Shutdown stops the server gracefully
func (s *Server) Shutdown(ctx context.Context) error {
	return s.echo.Shutdown(ctx)
}
