package handlers

import (
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
)

// intParam reads a path or query integer, falling back to def when absent.
func intParam(raw string, name string, def int) (int, error) {
	if raw == "" {
		return def, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return 0, echo.NewHTTPError(http.StatusBadRequest, name+" must be a number")
	}
	return v, nil
}

// period reads year and month from the path or query string. Missing values
// default to the current month.
func period(c echo.Context) (year, month int, err error) {
	now := time.Now()
	yearRaw, monthRaw := c.Param("year"), c.Param("month")
	if yearRaw == "" {
		yearRaw = c.QueryParam("year")
	}
	if monthRaw == "" {
		monthRaw = c.QueryParam("month")
	}
	if year, err = intParam(yearRaw, "year", now.Year()); err != nil {
		return 0, 0, err
	}
	if month, err = intParam(monthRaw, "month", int(now.Month())); err != nil {
		return 0, 0, err
	}
	return year, month, nil
}
