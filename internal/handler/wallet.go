package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"ridehail/internal/domain"
	"ridehail/internal/service"
)

// WalletHandler handles HTTP requests for wallets and their ledgers.
type WalletHandler struct {
	ledger *service.Ledger
}

// NewWalletHandler creates a new WalletHandler.
func NewWalletHandler(ledger *service.Ledger) *WalletHandler {
	return &WalletHandler{ledger: ledger}
}

// WalletResponse is the HTTP representation of a wallet.
type WalletResponse struct {
	WalletID      string `json:"wallet_id"`
	OwnerID       string `json:"owner_id"`
	OwnerType     string `json:"owner_type"`
	Balance       int64  `json:"balance_cents"`
	LockedBalance int64  `json:"locked_balance_cents"`
	Currency      string `json:"currency"`
}

func toWalletResponse(w *domain.Wallet) WalletResponse {
	return WalletResponse{
		WalletID:      w.ID,
		OwnerID:       w.OwnerID,
		OwnerType:     string(w.OwnerType),
		Balance:       w.Balance,
		LockedBalance: w.LockedBalance,
		Currency:      w.Currency,
	}
}

// TransactionResponse is one ledger entry.
type TransactionResponse struct {
	ID           string `json:"id"`
	RideID       string `json:"ride_id,omitempty"`
	Type         string `json:"type"`
	Amount       int64  `json:"amount_cents"`
	BalanceDelta int64  `json:"balance_delta_cents"`
	LockedDelta  int64  `json:"locked_delta_cents"`
	Reference    string `json:"reference"`
	Description  string `json:"description,omitempty"`
	CreatedAt    string `json:"created_at"`
}

func ownerTypeFrom(c *gin.Context) (domain.OwnerType, bool) {
	switch t := domain.OwnerType(c.Param("owner_type")); t {
	case domain.OwnerTypeRider, domain.OwnerTypeDriver, domain.OwnerTypePlatform:
		return t, true
	default:
		return "", false
	}
}

// CreateWalletRequest is the body of a wallet creation.
type CreateWalletRequest struct {
	OwnerID   string `json:"owner_id"`
	OwnerType string `json:"owner_type"`
	Currency  string `json:"currency"`
}

// Create handles POST /v1/wallets
func (h *WalletHandler) Create(c *gin.Context) {
	var req CreateWalletRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, service.ErrValidation)
		return
	}

	ownerType := domain.OwnerType(req.OwnerType)
	switch ownerType {
	case domain.OwnerTypeRider, domain.OwnerTypeDriver, domain.OwnerTypePlatform:
	default:
		respondError(c, service.ErrValidation)
		return
	}

	wallet, err := h.ledger.CreateWallet(c.Request.Context(), req.OwnerID, ownerType, req.Currency)
	if err != nil {
		respondError(c, err)
		return
	}
	respondJSON(c, http.StatusCreated, toWalletResponse(wallet))
}

// Get handles GET /v1/wallets/:owner_type/:owner_id
func (h *WalletHandler) Get(c *gin.Context) {
	ownerType, ok := ownerTypeFrom(c)
	if !ok {
		respondError(c, service.ErrValidation)
		return
	}

	wallet, err := h.ledger.GetWallet(c.Request.Context(), c.Param("owner_id"), ownerType)
	if err != nil {
		respondError(c, err)
		return
	}
	respondJSON(c, http.StatusOK, toWalletResponse(wallet))
}

// Statement handles GET /v1/wallets/:owner_type/:owner_id/transactions
func (h *WalletHandler) Statement(c *gin.Context) {
	ownerType, ok := ownerTypeFrom(c)
	if !ok {
		respondError(c, service.ErrValidation)
		return
	}

	wallet, err := h.ledger.GetWallet(c.Request.Context(), c.Param("owner_id"), ownerType)
	if err != nil {
		respondError(c, err)
		return
	}

	txs, err := h.ledger.Statement(c.Request.Context(), wallet.ID)
	if err != nil {
		respondError(c, err)
		return
	}

	response := make([]TransactionResponse, 0, len(txs))
	for _, tx := range txs {
		response = append(response, TransactionResponse{
			ID:           tx.ID,
			RideID:       tx.RideID,
			Type:         string(tx.Type),
			Amount:       tx.Amount,
			BalanceDelta: tx.BalanceDelta,
			LockedDelta:  tx.LockedDelta,
			Reference:    tx.Reference,
			Description:  tx.Description,
			CreatedAt:    fmtTime(tx.CreatedAt),
		})
	}
	respondJSON(c, http.StatusOK, response)
}

// AmountRequest is the body of a credit or debit.
type AmountRequest struct {
	Amount    int64  `json:"amount_cents"`
	Reference string `json:"reference"`
}

// Credit handles POST /v1/wallets/:owner_type/:owner_id/credit
func (h *WalletHandler) Credit(c *gin.Context) {
	h.move(c, true)
}

// Debit handles POST /v1/wallets/:owner_type/:owner_id/debit
func (h *WalletHandler) Debit(c *gin.Context) {
	h.move(c, false)
}

func (h *WalletHandler) move(c *gin.Context, credit bool) {
	ownerType, ok := ownerTypeFrom(c)
	if !ok {
		respondError(c, service.ErrValidation)
		return
	}

	var req AmountRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.Reference == "" {
		respondError(c, service.ErrValidation)
		return
	}

	var (
		wallet *domain.Wallet
		err    error
	)
	if credit {
		wallet, err = h.ledger.Topup(c.Request.Context(), actorFrom(c), c.Param("owner_id"), ownerType, req.Amount, req.Reference)
	} else {
		wallet, err = h.ledger.Withdraw(c.Request.Context(), actorFrom(c), c.Param("owner_id"), ownerType, req.Amount, req.Reference)
	}
	if err != nil {
		respondError(c, err)
		return
	}
	respondJSON(c, http.StatusOK, toWalletResponse(wallet))
}
