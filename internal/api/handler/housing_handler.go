package handler

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/staybook/booking-api/internal/core/ports"
)

// HousingHandler handles HTTP requests for housing listings and bookings.
type HousingHandler struct {
	service ports.HousingService
}

func NewHousingHandler(service ports.HousingService) *HousingHandler {
	return &HousingHandler{service: service}
}

// List handles GET /api/housing.
//
// @Summary      List housings
// @Tags         housing
// @Produce      json
// @Success      200  {array}   housingResponse
// @Failure      500  {object}  errorResponse
// @Router       /api/housing [get]
func (h *HousingHandler) List(c echo.Context) error {
	items, err := h.service.List(c.Request().Context())
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, toHousingResponses(items))
}

// Get handles GET /api/housing/:id.
//
// @Summary      Get a housing
// @Tags         housing
// @Produce      json
// @Param        id   path      string  true  "Housing ID (uuid)"
// @Success      200  {object}  housingResponse
// @Failure      400  {object}  errorResponse
// @Failure      404  {object}  errorResponse
// @Router       /api/housing/{id} [get]
func (h *HousingHandler) Get(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return err
	}
	item, err := h.service.Get(c.Request().Context(), id)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, toHousingResponse(item))
}

// Create handles POST /api/housing.
//
// @Summary      Create a housing
// @Tags         housing
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        body  body      housingRequest  true  "Housing details"
// @Success      201   {object}  housingResponse
// @Header       201   {string}  Location  "URL of the new housing"
// @Failure      400   {object}  errorResponse
// @Failure      403   {object}  errorResponse
// @Failure      422   {object}  errorResponse
// @Router       /api/housing [post]
func (h *HousingHandler) Create(c echo.Context) error {
	var req housingRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}

	item, err := h.service.Create(c.Request().Context(), req.toDetails())
	if err != nil {
		return err
	}

	c.Response().Header().Set(echo.HeaderLocation, "/api/housing/"+item.ID.String())
	return c.JSON(http.StatusCreated, toHousingResponse(item))
}

// Update handles PUT /api/housing/:id. Occupancy is never changed here.
//
// @Summary      Update a housing
// @Tags         housing
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id    path      string          true  "Housing ID (uuid)"
// @Param        body  body      housingRequest  true  "Housing details"
// @Success      200   {object}  housingResponse
// @Failure      400   {object}  errorResponse
// @Failure      404   {object}  errorResponse
// @Failure      422   {object}  errorResponse
// @Router       /api/housing/{id} [put]
func (h *HousingHandler) Update(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return err
	}
	var req housingRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}

	item, err := h.service.Update(c.Request().Context(), id, req.toDetails())
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, toHousingResponse(item))
}

// Delete handles DELETE /api/housing/:id.
//
// @Summary      Delete a housing
// @Tags         housing
// @Security     BearerAuth
// @Param        id   path  string  true  "Housing ID (uuid)"
// @Success      204
// @Failure      400  {object}  errorResponse
// @Failure      404  {object}  errorResponse
// @Failure      409  {object}  errorResponse
// @Router       /api/housing/{id} [delete]
func (h *HousingHandler) Delete(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return err
	}
	if err := h.service.Delete(c.Request().Context(), id); err != nil {
		return err
	}
	return c.NoContent(http.StatusNoContent)
}

// Book handles PUT /api/housing/:id/book for the authenticated user.
//
// @Summary      Book a housing
// @Tags         housing
// @Produce      json
// @Security     BearerAuth
// @Param        id   path      string  true  "Housing ID (uuid)"
// @Success      200  {object}  housingResponse
// @Failure      401  {object}  errorResponse
// @Failure      404  {object}  errorResponse
// @Failure      409  {object}  errorResponse
// @Router       /api/housing/{id}/book [put]
func (h *HousingHandler) Book(c echo.Context) error {
	identity, err := ctxIdentity(c)
	if err != nil {
		return err
	}
	id, err := pathID(c)
	if err != nil {
		return err
	}

	item, err := h.service.Book(c.Request().Context(), id, identity.UserID)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, toHousingResponse(item))
}

// UnBook handles PUT /api/housing/:id/unBook. Only the occupant may release.
//
// @Summary      Release a booking
// @Tags         housing
// @Produce      json
// @Security     BearerAuth
// @Param        id   path      string  true  "Housing ID (uuid)"
// @Success      200  {object}  housingResponse
// @Failure      401  {object}  errorResponse
// @Failure      403  {object}  errorResponse
// @Failure      404  {object}  errorResponse
// @Failure      409  {object}  errorResponse
// @Router       /api/housing/{id}/unBook [put]
func (h *HousingHandler) UnBook(c echo.Context) error {
	identity, err := ctxIdentity(c)
	if err != nil {
		return err
	}
	id, err := pathID(c)
	if err != nil {
		return err
	}

	item, err := h.service.UnBook(c.Request().Context(), id, identity.UserID)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, toHousingResponse(item))
}

// History handles GET /api/housing/:id/history.
//
// @Summary      Booking history of a housing
// @Tags         housing
// @Produce      json
// @Security     BearerAuth
// @Param        id     path      string  true   "Housing ID (uuid)"
// @Param        limit  query     int     false  "Max events (default 50, max 200)"
// @Success      200    {array}   bookingEventResponse
// @Failure      400    {object}  errorResponse
// @Failure      404    {object}  errorResponse
// @Router       /api/housing/{id}/history [get]
func (h *HousingHandler) History(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return err
	}

	limit := 0
	if raw := c.QueryParam("limit"); raw != "" {
		limit, err = strconv.Atoi(raw)
		if err != nil || limit < 0 {
			return echo.NewHTTPError(http.StatusBadRequest, "limit must be a non-negative integer")
		}
	}

	events, err := h.service.History(c.Request().Context(), id, limit)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, toBookingEventResponses(events))
}
