package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"

	apperrors "finsight/internal/errors"
	"finsight/internal/models"
	"finsight/internal/pagination"
	"finsight/internal/services"
)

// TransactionHandler handles transaction-related requests
type TransactionHandler struct {
	transactionService services.TransactionServicer
}

// NewTransactionHandler creates a new TransactionHandler
func NewTransactionHandler(transactionService services.TransactionServicer) *TransactionHandler {
	return &TransactionHandler{transactionService: transactionService}
}

// CreateTransactionRequest represents the transaction creation request payload
type CreateTransactionRequest struct {
	AccountID         string          `json:"account_id" binding:"required"`
	AssetName         string          `json:"asset_name" binding:"required,max=200"`
	Ticker            string          `json:"ticker" binding:"max=20"`
	Type              string          `json:"type" binding:"required,transaction_type"`
	TotalAmount       decimal.Decimal `json:"total_amount" binding:"required"`
	Quantity          decimal.Decimal `json:"quantity"`
	Description       string          `json:"description" binding:"max=500"`
	Date              *time.Time      `json:"date"`
	IsRecurring       bool            `json:"is_recurring"`
	RecurringInterval *string         `json:"recurring_interval" binding:"omitempty,recurring_interval"`
}

// CreateTransaction handles transaction creation
func (h *TransactionHandler) CreateTransaction(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	var req CreateTransactionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondWithError(c, apperrors.WithMessage(apperrors.ErrInvalidInput, err.Error()))
		return
	}

	input := services.CreateTransactionInput{
		AccountID:   req.AccountID,
		AssetName:   req.AssetName,
		Ticker:      req.Ticker,
		Type:        models.TransactionType(req.Type),
		TotalAmount: req.TotalAmount,
		Quantity:    req.Quantity,
		Description: req.Description,
		IsRecurring: req.IsRecurring,
	}
	if req.Date != nil {
		input.Date = *req.Date
	}
	if req.RecurringInterval != nil {
		interval := models.RecurringInterval(*req.RecurringInterval)
		input.RecurringInterval = &interval
	}

	transaction, err := h.transactionService.CreateTransaction(userID, input)
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"transaction": transaction})
}

// ListTransactions returns the user's transactions with optional filters
func (h *TransactionHandler) ListTransactions(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	var page pagination.PageRequest
	if err := c.ShouldBindQuery(&page); err != nil {
		respondWithError(c, apperrors.WithMessage(apperrors.ErrInvalidInput, err.Error()))
		return
	}

	filter, err := parseTransactionFilter(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	transactions, err := h.transactionService.GetUserTransactions(userID, page, filter)
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, transactions)
}

// ListAccountTransactions returns transactions for one account
func (h *TransactionHandler) ListAccountTransactions(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	var page pagination.PageRequest
	if err := c.ShouldBindQuery(&page); err != nil {
		respondWithError(c, apperrors.WithMessage(apperrors.ErrInvalidInput, err.Error()))
		return
	}

	filter, err := parseTransactionFilter(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	transactions, err := h.transactionService.GetAccountTransactions(userID, c.Param("id"), page, filter)
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, transactions)
}

// GetTransaction returns a single transaction by ID
func (h *TransactionHandler) GetTransaction(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	transaction, err := h.transactionService.GetTransactionByID(userID, c.Param("id"))
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"transaction": transaction})
}

// DeleteTransaction deletes a transaction and reverses its balance effect
func (h *TransactionHandler) DeleteTransaction(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	if err := h.transactionService.DeleteTransaction(userID, c.Param("id")); err != nil {
		respondWithError(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}

func parseTransactionFilter(c *gin.Context) (services.TransactionFilter, error) {
	var filter services.TransactionFilter

	from, err := parseDateQuery(c, "from")
	if err != nil {
		return filter, err
	}
	filter.FromDate = from

	to, err := parseDateQuery(c, "to")
	if err != nil {
		return filter, err
	}
	filter.ToDate = to

	if raw := c.Query("type"); raw != "" {
		txType := models.TransactionType(raw)
		if txType != models.TransactionTypeBuy && txType != models.TransactionTypeSell {
			return filter, apperrors.ErrInvalidTransactionType
		}
		filter.Type = &txType
	}
	if raw := c.Query("asset_name"); raw != "" {
		filter.AssetName = &raw
	}
	if raw := c.Query("recurring"); raw != "" {
		recurring := raw == "true"
		filter.Recurring = &recurring
	}

	return filter, nil
}
