package check

import (
	"net/http"

	"github.com/gin-gonic/gin"

	apperrors "github.com/verisafe/humancheck/internal/common/errors"
	"github.com/verisafe/humancheck/internal/common/middleware"
)

// Handler handles HTTP requests for the verification engine
type Handler struct {
	service *Service
}

// NewHandler creates a new verification handler
func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

// RegisterRoutes registers verification routes on the router group.
// issueLimiter throttles nonce issuance per client IP.
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup, issueLimiter gin.HandlerFunc) {
	check := rg.Group("/check")
	{
		if issueLimiter != nil {
			check.GET("/nonce", issueLimiter, h.IssueNonce)
		} else {
			check.GET("/nonce", h.IssueNonce)
		}
		check.POST("/verify", h.Verify)
		check.GET("/stats", h.Stats)
	}
}

// IssueNonce godoc
// @Summary Issue a verification nonce
// @Description Issues a short-lived single-use challenge nonce bound to the caller's IP and user agent
// @Tags check
// @Produce json
// @Success 200 {object} IssueNonceResponse "Nonce issued"
// @Failure 429 {object} middleware.ErrorResponse "Issuance throttled"
// @Failure 503 {object} middleware.ErrorResponse "Store unavailable"
// @Router /api/v1/check/nonce [get]
func (h *Handler) IssueNonce(c *gin.Context) {
	resp, err := h.service.IssueNonce(c.Request.Context(), c.ClientIP(), c.Request.UserAgent())
	if err != nil {
		middleware.RespondError(c, err)
		return
	}
	middleware.RespondOK(c, resp)
}

// Verify godoc
// @Summary Verify a proof token
// @Description Verifies a client-submitted proof token against behavioral signals and the adaptive threshold
// @Tags check
// @Accept json
// @Produce json
// @Param request body VerifyRequest true "Proof token"
// @Success 200 {object} VerificationResult "Verification passed"
// @Failure 400 {object} middleware.ErrorResponse "Missing or malformed token"
// @Failure 403 {object} VerificationResult "Rejected or secondary challenge required"
// @Failure 404 {object} middleware.ErrorResponse "Nonce never issued"
// @Failure 410 {object} middleware.ErrorResponse "Nonce expired"
// @Failure 429 {object} middleware.ErrorResponse "Replay detected"
// @Failure 503 {object} middleware.ErrorResponse "Store unavailable"
// @Router /api/v1/check/verify [post]
func (h *Handler) Verify(c *gin.Context) {
	var req VerifyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		middleware.RespondError(c, apperrors.MissingToken())
		return
	}

	result, err := h.service.VerifyToken(c.Request.Context(), req.Token, c.ClientIP(), c.Request.UserAgent())
	if err != nil {
		middleware.RespondError(c, err)
		return
	}

	// PASS answers 200; FAIL and CHALLENGE_REQUIRED answer 403 with the
	// full result so the client can distinguish them by challengeRequired.
	if result.Success {
		middleware.RespondOK(c, result)
		return
	}
	middleware.RespondJSON(c, http.StatusForbidden, result)
}

// Stats godoc
// @Summary Engine statistics
// @Description Returns current nonce store size and pass-rate tracker summary
// @Tags check
// @Produce json
// @Success 200 {object} StatsResponse "Current statistics"
// @Failure 503 {object} middleware.ErrorResponse "Store unavailable"
// @Router /api/v1/check/stats [get]
func (h *Handler) Stats(c *gin.Context) {
	resp, err := h.service.Stats(c.Request.Context())
	if err != nil {
		middleware.RespondError(c, err)
		return
	}
	middleware.RespondOK(c, resp)
}
