package simulator

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"

	"github.com/wanel/kyxgate/internal/decision"
	"github.com/wanel/kyxgate/internal/logging"
	"github.com/wanel/kyxgate/internal/session"
	"github.com/wanel/kyxgate/pkg/chainalysis"
)

// Handler exposes the simulator over HTTP.
type Handler struct {
	service *Service
}

func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

// RegisterRoutes mounts the protocol endpoints plus the legacy synchronous
// surfaces.
func (h *Handler) RegisterRoutes(r *gin.Engine) {
	v2 := r.Group("/api/kyt/v2")
	{
		v2.POST("/users/:userId/withdrawal-attempts", h.registerAddress)
		v2.GET("/withdrawal-attempts/:externalId", h.addressStatus)
		v2.GET("/withdrawal-attempts/:externalId/alerts", h.addressAlerts)

		v2.POST("/users/:userId/transfers", h.registerTransfer)
		v2.GET("/transfers/:externalId", h.transferStatus)
		v2.GET("/transfers/:externalId/alerts", h.transferAlerts)
	}

	r.GET("/api/kyt/v1/alerts", h.monitorAlerts)

	// Pre-protocol surfaces kept for older integrations.
	r.POST("/check", h.checkNow)
	r.GET("/address/:address", h.addressReport)
}

func (h *Handler) registerAddress(c *gin.Context) {
	var req chainalysis.AddressRegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.bindingError(c, err)
		return
	}

	resp, err := h.service.RegisterAddress(c.Request.Context(), req)
	if err != nil {
		h.serverError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

func (h *Handler) registerTransfer(c *gin.Context) {
	var req chainalysis.TransferRegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.bindingError(c, err)
		return
	}

	resp, err := h.service.RegisterTransfer(c.Request.Context(), req)
	if err != nil {
		h.serverError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

func (h *Handler) addressStatus(c *gin.Context) {
	h.status(c, session.KindAddress)
}

func (h *Handler) transferStatus(c *gin.Context) {
	h.status(c, session.KindTransfer)
}

func (h *Handler) status(c *gin.Context, kind session.Kind) {
	resp, err := h.service.Status(c.Request.Context(), kind, c.Param("externalId"))
	if err != nil {
		h.lookupError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

func (h *Handler) addressAlerts(c *gin.Context) {
	h.alerts(c, session.KindAddress)
}

func (h *Handler) transferAlerts(c *gin.Context) {
	h.alerts(c, session.KindTransfer)
}

func (h *Handler) alerts(c *gin.Context, kind session.Kind) {
	resp, err := h.service.Alerts(c.Request.Context(), kind, c.Param("externalId"))
	if err != nil {
		h.lookupError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

func (h *Handler) monitorAlerts(c *gin.Context) {
	since, ok := h.timeQuery(c, "createdAt_gte")
	if !ok {
		return
	}
	until, ok := h.timeQuery(c, "createdAt_lte")
	if !ok {
		return
	}

	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "25"))
	offset, _ := strconv.Atoi(c.DefaultQuery("offset", "0"))

	resp, err := h.service.MonitorAlerts(c.Request.Context(), since, until, limit, offset)
	if err != nil {
		h.serverError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// CheckRequest is the legacy synchronous check payload.
type CheckRequest struct {
	RequestType   string          `json:"requestType" binding:"required,oneof=kya kyt"`
	TargetAddress string          `json:"targetAddress"`
	FromAddress   string          `json:"fromAddress"`
	ToAddress     string          `json:"toAddress"`
	TokenName     string          `json:"tokenName"`
	TokenAmount   decimal.Decimal `json:"tokenAmount"`
	Network       string          `json:"network"`
	ChainID       int64           `json:"chainId"`
	TxHash        string          `json:"txHash"`
}

// CheckResponse is the legacy envelope wrapping a synchronous verdict.
type CheckResponse struct {
	Status string      `json:"status"`
	Result CheckResult `json:"result"`
}

type CheckResult struct {
	RiskDetected bool   `json:"risk_detected"`
	RiskDetails  string `json:"risk_details"`
}

func (h *Handler) checkNow(c *gin.Context) {
	var req CheckRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.bindingError(c, err)
		return
	}

	verdict := h.service.CheckNow(c.Request.Context(), decision.Params{
		RequestType:   req.RequestType,
		TargetAddress: req.TargetAddress,
		FromAddress:   req.FromAddress,
		ToAddress:     req.ToAddress,
		TokenName:     req.TokenName,
		TokenAmount:   req.TokenAmount,
		Network:       req.Network,
		ChainID:       req.ChainID,
		TxHash:        req.TxHash,
	})
	c.JSON(http.StatusOK, CheckResponse{
		Status: "success",
		Result: CheckResult{
			RiskDetected: verdict.InRisk,
			RiskDetails:  verdict.Detail,
		},
	})
}

func (h *Handler) addressReport(c *gin.Context) {
	resp := h.service.AddressReport(c.Request.Context(), c.Param("address"))
	c.JSON(http.StatusOK, resp)
}

func (h *Handler) timeQuery(c *gin.Context, key string) (time.Time, bool) {
	raw := c.Query(key)
	if raw == "" {
		return time.Time{}, true
	}
	t, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "invalid_request",
			"message": key + " must be RFC 3339",
		})
		return time.Time{}, false
	}
	return t, true
}

// bindingError rejects a malformed payload with a per-field error map when
// the failure came from validation tags, or a plain message otherwise.
func (h *Handler) bindingError(c *gin.Context, err error) {
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) {
		fields := make(map[string]string, len(verrs))
		for _, fe := range verrs {
			fields[fe.Field()] = fe.Tag()
		}
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "invalid_request",
			"message": "request validation failed",
			"fields":  fields,
		})
		return
	}
	c.JSON(http.StatusBadRequest, gin.H{
		"error":   "invalid_request",
		"message": err.Error(),
	})
}

func (h *Handler) lookupError(c *gin.Context, err error) {
	if errors.Is(err, session.ErrNotFound) {
		c.JSON(http.StatusNotFound, gin.H{
			"error":   "not_found",
			"message": "no verification session for that external ID",
		})
		return
	}
	h.serverError(c, err)
}

func (h *Handler) serverError(c *gin.Context, err error) {
	logging.L(c.Request.Context()).Error("simulator request failed",
		"path", c.FullPath(),
		"error", err,
	)
	c.JSON(http.StatusInternalServerError, gin.H{
		"error":   "internal_error",
		"message": "internal error",
	})
}
