package http

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	domainErrors "github.com/clinicpay/payment-service/internal/domain/errors"
)

// respondError maps a service error onto the wire. Step-tagged checkout
// errors keep their HTTP class and shape; anything else is a bare 500.
func respondError(c echo.Context, err error) error {
	var cerr *domainErrors.CheckoutError
	if errors.As(err, &cerr) {
		return c.JSON(cerr.Status, cerr)
	}
	return c.JSON(http.StatusInternalServerError, echo.Map{
		"error": "internal error",
	})
}
