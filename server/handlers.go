package server

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"

	apperrors "pricetracker/pkg/errors"
	"pricetracker/services/storage"
)

type trackRequest struct {
	URL string `json:"url" validate:"required,url"`
}

type alertRequest struct {
	ProductID int64   `json:"productId" validate:"required,gt=0"`
	Email     string  `json:"email" validate:"required,email"`
	Threshold float64 `json:"threshold" validate:"required,gt=0"`
}

type compareRequest struct {
	ProductName string   `json:"productName" validate:"required"`
	URLs        []string `json:"urls" validate:"required,min=1,dive,required,url"`
}

func (s *Server) handleRoot(c echo.Context) error {
	return c.JSON(http.StatusOK, echo.Map{
		"success":   true,
		"message":   "Price Tracker API is running",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	})
}

func (s *Server) handleTestDB(c echo.Context) error {
	ctx := c.Request().Context()

	if err := s.store.Ping(ctx); err != nil {
		s.log.WithError(err).Error().Msg("Database connectivity check failed")
		return c.JSON(http.StatusInternalServerError, echo.Map{
			"success":   false,
			"connected": false,
			"message":   "Database connection failed",
		})
	}

	count, err := s.store.CountProducts(ctx)
	if err != nil {
		return s.trackerError(c, err)
	}

	return c.JSON(http.StatusOK, echo.Map{
		"success":   true,
		"connected": true,
		"products":  count,
	})
}

func (s *Server) handleTrackProduct(c echo.Context) error {
	var req trackRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid request body")
	}
	if err := c.Validate(&req); err != nil {
		return err
	}

	product, err := s.tracker.Track(c.Request().Context(), req.URL)
	if err != nil {
		return s.trackerError(c, err)
	}

	return c.JSON(http.StatusCreated, echo.Map{
		"success": true,
		"product": product,
	})
}

func (s *Server) handleListProducts(c echo.Context) error {
	products, err := s.store.ListProducts(c.Request().Context())
	if err != nil {
		return s.trackerError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{
		"success":  true,
		"products": products,
	})
}

func (s *Server) handleDeleteProduct(c echo.Context) error {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid product id")
	}

	ctx := c.Request().Context()
	if _, err := s.store.GetProduct(ctx, id); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return echo.NewHTTPError(http.StatusNotFound, "Product not found")
		}
		return s.trackerError(c, err)
	}

	if err := s.store.DeleteProduct(ctx, id); err != nil {
		return s.trackerError(c, err)
	}

	return c.JSON(http.StatusOK, echo.Map{
		"success": true,
		"message": "Product deleted",
	})
}

func (s *Server) handleCreateAlert(c echo.Context) error {
	var req alertRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid request body")
	}
	if err := c.Validate(&req); err != nil {
		return err
	}

	ctx := c.Request().Context()
	if _, err := s.store.GetProduct(ctx, req.ProductID); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return echo.NewHTTPError(http.StatusNotFound, "Product not found")
		}
		return s.trackerError(c, err)
	}

	alert, err := s.store.CreateAlert(ctx, req.ProductID, req.Email, req.Threshold)
	if err != nil {
		return s.trackerError(c, err)
	}

	return c.JSON(http.StatusCreated, echo.Map{
		"success": true,
		"message": "Alert created",
		"alert":   alert,
	})
}

func (s *Server) handleCompare(c echo.Context) error {
	var req compareRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid request body")
	}
	if err := c.Validate(&req); err != nil {
		return err
	}

	results := s.tracker.Compare(c.Request().Context(), req.URLs)
	return c.JSON(http.StatusOK, echo.Map{
		"success":     true,
		"productName": req.ProductName,
		"results":     results,
	})
}

// trackerError translates a pipeline error into an HTTP response
func (s *Server) trackerError(c echo.Context, err error) error {
	s.log.WithError(err).Error().Str("path", c.Path()).Msg("Request failed")

	switch apperrors.TypeOf(err) {
	case apperrors.ErrorTypeValidation:
		return echo.NewHTTPError(http.StatusBadRequest, "Unsupported product URL. Only Amazon, Flipkart and Myntra are supported.")
	case apperrors.ErrorTypeExtraction:
		return echo.NewHTTPError(http.StatusUnprocessableEntity, "Failed to extract valid product data. The page may be unavailable or use an unsupported layout.")
	case apperrors.ErrorTypeAccessDenied:
		return echo.NewHTTPError(http.StatusBadGateway, "Access denied by the product page. Please try again later.")
	case apperrors.ErrorTypeRateLimit:
		return echo.NewHTTPError(http.StatusTooManyRequests, "The product page is rate limiting requests. Please try again later.")
	case apperrors.ErrorTypeNetwork, apperrors.ErrorTypeTimeout:
		return echo.NewHTTPError(http.StatusBadGateway, "Network error while fetching the product page. Please try again.")
	default:
		return echo.NewHTTPError(http.StatusInternalServerError, "Internal server error")
	}
}
