package status

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/kbukum/netguard/breaker"
	"github.com/kbukum/netguard/component"
	apperrors "github.com/kbukum/netguard/errors"
	"github.com/kbukum/netguard/logger"
	"github.com/kbukum/netguard/version"
)

// Payload is the JSON shape of the breaker status.
type Payload struct {
	State             string     `json:"state"`
	IsOnline          bool       `json:"is_online"`
	IsServerReachable bool       `json:"is_server_reachable"`
	FailureCount      int        `json:"failure_count"`
	LastFailureTime   *time.Time `json:"last_failure_time,omitempty"`
	RetryDelayMS      int64      `json:"retry_delay_ms"`
	CanMakeRequest    bool       `json:"can_make_request"`
	Enabled           bool       `json:"enabled"`
}

func payloadFromStatus(st breaker.Status) Payload {
	return Payload{
		State:             st.State.String(),
		IsOnline:          st.IsOnline,
		IsServerReachable: st.IsServerReachable,
		FailureCount:      st.FailureCount,
		LastFailureTime:   st.LastFailureTime,
		RetryDelayMS:      st.RetryDelay.Milliseconds(),
		CanMakeRequest:    st.CanMakeRequest,
		Enabled:           st.Enabled,
	}
}

// Handler serves the status routes for one breaker.
type Handler struct {
	b     *breaker.Breaker
	hub   *Hub
	flags *FlagStore
	reg   *component.Registry
	log   *logger.Logger
	unsub func()
}

// NewHandler wires a handler to the breaker. Every breaker notification is
// broadcast to stream subscribers until Close is called. The registry is
// optional and feeds the /health endpoint.
func NewHandler(b *breaker.Breaker, flags *FlagStore, reg *component.Registry) *Handler {
	h := &Handler{
		b:     b,
		hub:   NewHub(),
		flags: flags,
		reg:   reg,
		log:   logger.WithComponent("status"),
	}
	h.unsub = b.Subscribe(func(breaker.Snapshot) {
		data, err := json.Marshal(payloadFromStatus(b.Status()))
		if err != nil {
			return
		}
		h.hub.Broadcast(data)
	})
	return h
}

// Hub exposes the stream hub, mainly for tests and shutdown accounting.
func (h *Handler) Hub() *Hub { return h.hub }

// Close detaches from the breaker and disconnects stream clients.
func (h *Handler) Close() {
	if h.unsub != nil {
		h.unsub()
		h.unsub = nil
	}
	h.hub.Close()
}

// Register mounts the status routes. Operator endpoints go through auth.
func (h *Handler) Register(r gin.IRouter, auth gin.HandlerFunc) {
	r.GET("/status", h.getStatus)
	r.GET("/status/stream", h.streamStatus)
	r.GET("/health", h.getHealth)

	op := r.Group("/", auth)
	op.POST("/status/reset", h.reset)
	op.PUT("/status/toggle", h.toggle)
}

func (h *Handler) getStatus(c *gin.Context) {
	c.JSON(http.StatusOK, payloadFromStatus(h.b.Status()))
}

func (h *Handler) streamStatus(c *gin.Context) {
	initial, err := json.Marshal(payloadFromStatus(h.b.Status()))
	if err != nil {
		c.JSON(http.StatusInternalServerError, apperrors.Internal(err).ToResponse())
		return
	}
	h.hub.serveStream(c.Writer, c.Request, initial)
}

func (h *Handler) getHealth(c *gin.Context) {
	build := version.Get()
	if h.reg == nil {
		c.JSON(http.StatusOK, gin.H{"status": "healthy", "build": build})
		return
	}

	checks := h.reg.HealthAll(c.Request.Context())
	code := http.StatusOK
	overall := component.StatusHealthy
	for _, check := range checks {
		if check.Status == component.StatusUnhealthy {
			overall = component.StatusUnhealthy
			code = http.StatusServiceUnavailable
			break
		}
		if check.Status == component.StatusDegraded {
			overall = component.StatusDegraded
		}
	}
	c.JSON(code, gin.H{"status": overall, "build": build, "components": checks})
}

func (h *Handler) reset(c *gin.Context) {
	h.b.Reset()
	h.log.Info("breaker reset by operator")
	c.JSON(http.StatusOK, payloadFromStatus(h.b.Status()))
}

type toggleRequest struct {
	Enabled *bool `json:"enabled" binding:"required"`
}

func (h *Handler) toggle(c *gin.Context) {
	var req toggleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest,
			apperrors.Validation("body must be {\"enabled\": bool}").ToResponse())
		return
	}

	h.b.SetEnabled(*req.Enabled)
	if err := h.flags.Save(Flags{Enabled: *req.Enabled}); err != nil {
		h.log.Error("failed to persist toggle", logger.ErrorFields("toggle", err))
	}
	h.log.Info("guard toggled by operator", logger.Fields("enabled", *req.Enabled))
	c.JSON(http.StatusOK, payloadFromStatus(h.b.Status()))
}
