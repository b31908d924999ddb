package http

import (
	"net/http"
	"strconv"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/clinicpay/payment-service/internal/domain/repository"
	"github.com/clinicpay/payment-service/internal/middleware/auth"
)

// TransactionHandler reads the payment ledger
type TransactionHandler struct {
	transactionRepo repository.TransactionRepository
	logger          *zap.Logger
}

// NewTransactionHandler creates a new transaction handler
func NewTransactionHandler(transactionRepo repository.TransactionRepository, logger *zap.Logger) *TransactionHandler {
	return &TransactionHandler{
		transactionRepo: transactionRepo,
		logger:          logger,
	}
}

// List handles GET /transactions for the authenticated merchant
func (h *TransactionHandler) List(c echo.Context) error {
	merchantID, err := auth.GetMerchantID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{
			"error": "Authentication required",
		})
	}

	limit, _ := strconv.Atoi(c.QueryParam("limit"))
	if limit < 1 {
		limit = 20
	} else if limit > 100 {
		limit = 100
	}
	offset, _ := strconv.Atoi(c.QueryParam("offset"))

	transactions, total, err := h.transactionRepo.ListByMerchant(c.Request().Context(), merchantID, limit, offset)
	if err != nil {
		return respondError(c, err)
	}

	return c.JSON(http.StatusOK, echo.Map{
		"transactions": transactions,
		"total":        total,
	})
}

// Get handles GET /transactions/:id
func (h *TransactionHandler) Get(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{
			"error": "invalid transaction id",
		})
	}

	tx, err := h.transactionRepo.GetByID(c.Request().Context(), id)
	if err != nil {
		return respondError(c, err)
	}
	if tx == nil {
		return c.JSON(http.StatusNotFound, echo.Map{
			"error": "transaction not found",
		})
	}

	return c.JSON(http.StatusOK, tx)
}
