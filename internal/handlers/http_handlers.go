package handlers

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"lottopot/internal/models"
	"lottopot/internal/services"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/logger"
)

// callerKey is the gin context key holding the authenticated caller identity.
const callerKey = "callerID"

// HTTPHandler holds the dependencies for the HTTP handlers.
type HTTPHandler struct {
	service   *services.RoundService
	jwtSecret []byte
}

// NewHTTPHandler creates a new HTTPHandler.
func NewHTTPHandler(service *services.RoundService, jwtSecret string) *HTTPHandler {
	return &HTTPHandler{
		service:   service,
		jwtSecret: []byte(jwtSecret),
	}
}

// AuthMiddleware validates the bearer token and stores its subject claim as
// the caller identity for downstream handlers.
func (h *HTTPHandler) AuthMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		const schema = "Bearer "
		header := c.GetHeader("Authorization")
		if !strings.HasPrefix(header, schema) {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "bearer token required"})
			return
		}

		token, err := jwt.Parse(header[len(schema):], func(t *jwt.Token) (interface{}, error) {
			if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
			}
			return h.jwtSecret, nil
		})
		if err != nil || !token.Valid {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
			return
		}

		claims, ok := token.Claims.(jwt.MapClaims)
		if !ok {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid token claims"})
			return
		}
		subject, err := claims.GetSubject()
		if err != nil || subject == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "token has no subject"})
			return
		}

		c.Set(callerKey, subject)
		c.Next()
	}
}

// RegisterPublicRoutes registers the read-only query routes.
func (h *HTTPHandler) RegisterPublicRoutes(router *gin.Engine) {
	router.GET("/api/round", h.GetRound)
	router.GET("/api/entries", h.GetEntries)
	router.GET("/api/escrow", h.GetEscrow)
	router.GET("/api/results/:round", h.GetResult)
}

// RegisterCallerRoutes registers the routes that require an authenticated
// caller identity.
func (h *HTTPHandler) RegisterCallerRoutes(group *gin.RouterGroup) {
	group.POST("/api/rounds", h.OpenRound)
	group.POST("/api/entries", h.BuyEntries)
	group.POST("/api/deposits", h.Deposit)
	group.POST("/api/draw", h.Draw)
}

// caller returns the authenticated identity set by AuthMiddleware.
func caller(c *gin.Context) string {
	return c.GetString(callerKey)
}

// fail maps service errors onto HTTP status codes.
func fail(c *gin.Context, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, models.ErrUnauthorized):
		status = http.StatusForbidden
	case errors.Is(err, models.ErrInvalidAmount):
		status = http.StatusBadRequest
	case errors.Is(err, models.ErrRoundStillActive),
		errors.Is(err, models.ErrRoundNotActive),
		errors.Is(err, models.ErrRoundNotEnded),
		errors.Is(err, models.ErrAlreadyDrawn),
		errors.Is(err, models.ErrNoPlayers):
		status = http.StatusConflict
	case errors.Is(err, models.ErrTransferFailed):
		status = http.StatusBadGateway
	}
	c.JSON(status, gin.H{"error": err.Error()})
}

// amountRequest carries a payment amount.
type amountRequest struct {
	Amount int64 `json:"amount" binding:"required"`
}

// OpenRound handles the operator's request to start the next round.
func (h *HTTPHandler) OpenRound(c *gin.Context) {
	round, err := h.service.OpenRound(caller(c))
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{
		"round":   round.Number,
		"endTime": round.EndTime.Format(time.RFC3339),
	})
}

// BuyEntries handles a ticket purchase.
func (h *HTTPHandler) BuyEntries(c *gin.Context) {
	var req amountRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "amount is required"})
		return
	}

	count, err := h.service.BuyEntries(caller(c), req.Amount)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"entries": count})
}

// Deposit handles an unsolicited payment into escrow. Funds received this
// way enlarge the prize pool without granting any entries.
func (h *HTTPHandler) Deposit(c *gin.Context) {
	var req amountRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "amount is required"})
		return
	}

	if err := h.service.Deposit(req.Amount); err != nil {
		fail(c, err)
		return
	}
	logger.Infof("accepted unsolicited deposit of %d from %s", req.Amount, caller(c))
	c.JSON(http.StatusCreated, gin.H{"escrow": h.service.EscrowBalance()})
}

// Draw handles the request to pick the winner of the ended round.
func (h *HTTPHandler) Draw(c *gin.Context) {
	result, err := h.service.PickWinner(caller(c))
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

// GetRound reports the current round state.
func (h *HTTPHandler) GetRound(c *gin.Context) {
	round := h.service.CurrentRound()
	c.JSON(http.StatusOK, gin.H{
		"round":            round.Number,
		"active":           h.service.IsActive(),
		"drawn":            round.Drawn,
		"secondsRemaining": int64(h.service.TimeRemaining() / time.Second),
	})
}

// GetEntries returns the ordered ledger snapshot and its size. The payload
// scales with the number of entries sold.
func (h *HTTPHandler) GetEntries(c *gin.Context) {
	entries := h.service.Entries()
	c.JSON(http.StatusOK, gin.H{
		"count":   len(entries),
		"entries": entries,
	})
}

// GetEscrow returns the total undistributed balance.
func (h *HTTPHandler) GetEscrow(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"escrow": h.service.EscrowBalance()})
}

// GetResult returns the winner and prize for a past round, or a null winner
// and zero prize when the round was never drawn or does not exist.
func (h *HTTPHandler) GetResult(c *gin.Context) {
	number, err := strconv.ParseUint(c.Param("round"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid round number"})
		return
	}

	record, ok := h.service.Result(number)
	if !ok {
		c.JSON(http.StatusOK, gin.H{"round": number, "winner": nil, "prize": 0})
		return
	}
	c.JSON(http.StatusOK, gin.H{"round": number, "winner": record.Winner, "prize": record.Prize})
}
