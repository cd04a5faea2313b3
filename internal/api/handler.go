package api

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/eugenenazirov/rmq-console/internal/config"
)

type contextKey string

const requestIDContextKey contextKey = "requestID"

// Handler exposes the resolved console configuration over HTTP.
type Handler struct {
	resolver *config.Resolver

	clock func() time.Time

	mu              sync.RWMutex
	configUpdatedAt time.Time
}

// HandlerOption configures Handler behaviour.
type HandlerOption func(*Handler)

// WithClock overrides the time source, primarily for tests.
func WithClock(clock func() time.Time) HandlerOption {
	return func(h *Handler) {
		h.clock = clock
	}
}

// NewHandler constructs a Handler backed by resolver.
func NewHandler(resolver *config.Resolver, opts ...HandlerOption) *Handler {
	h := &Handler{
		resolver: resolver,
		clock: func() time.Time {
			return time.Now().UTC()
		},
	}
	for _, opt := range opts {
		opt(h)
	}
	h.configUpdatedAt = h.clock()
	return h
}

func (h *Handler) handleHealth(w http.ResponseWriter, r *http.Request) {
	_ = r
	resp := healthResponse{
		Status:    "ok",
		Timestamp: h.clock(),
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *Handler) handleGetConfig(w http.ResponseWriter, r *http.Request) {
	_ = r
	writeJSON(w, http.StatusOK, h.snapshot())
}

func (h *Handler) handlePutNamesrvAddr(w http.ResponseWriter, r *http.Request) {
	var req namesrvAddrRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request", "unable to parse JSON payload")
		return
	}
	if req.NamesrvAddr == nil {
		writeError(w, http.StatusBadRequest, "Invalid request", "namesrvAddr is required",
			`send {"namesrvAddr": "host:9876;host2:9876"}`)
		return
	}

	result := h.resolver.SetNamesrvAddr(*req.NamesrvAddr)
	h.writeUpdate(w, "namesrvAddr", h.resolver.NamesrvAddr(), result)
}

func (h *Handler) handlePutVIPChannel(w http.ResponseWriter, r *http.Request) {
	var req vipChannelRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request", "unable to parse JSON payload")
		return
	}
	if req.IsVIPChannel == nil {
		writeError(w, http.StatusBadRequest, "Invalid request", "isVIPChannel is required",
			`send {"isVIPChannel": "true"} or {"isVIPChannel": "false"}`)
		return
	}

	result := h.resolver.SetIsVIPChannel(*req.IsVIPChannel)
	h.writeUpdate(w, "isVIPChannel", h.resolver.IsVIPChannel(), result)
}

func (h *Handler) writeUpdate(w http.ResponseWriter, field, value string, result config.SetResult) {
	resp := updateResponse{
		Field:  field,
		Value:  value,
		Result: result.String(),
	}
	if result == config.Accepted {
		h.markConfigUpdated()
		resp.Message = "Configuration updated successfully"
	} else {
		resp.Message = "Blank value ignored; previous value retained"
	}
	resp.UpdatedAt = h.currentConfigUpdatedAt()
	writeJSON(w, http.StatusOK, resp)
}

func (h *Handler) snapshot() configResponse {
	resp := configResponse{
		NamesrvAddr:            h.resolver.NamesrvAddr(),
		IsVIPChannel:           h.resolver.IsVIPChannel(),
		DataPath:               h.resolver.RocketMqDashboardDataPath(),
		DashboardCollectData:   h.resolver.DashboardCollectData(),
		EnableDashBoardCollect: h.resolver.EnableDashBoardCollect(),
		LoginRequired:          h.resolver.ResolveLoginRequired(),
		ACLEnabled:             h.resolver.IsACLEnabled(),
		UseTLS:                 h.resolver.UseTLS(),
		UpdatedAt:              h.currentConfigUpdatedAt(),
	}
	if ms, ok := h.resolver.TimeoutMillis(); ok {
		resp.TimeoutMillis = &ms
	}
	return resp
}

func (h *Handler) currentConfigUpdatedAt() time.Time {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.configUpdatedAt
}

func (h *Handler) markConfigUpdated() {
	h.mu.Lock()
	h.configUpdatedAt = h.clock()
	h.mu.Unlock()
}

func requestIDFromContext(ctx context.Context) string {
	if v := ctx.Value(requestIDContextKey); v != nil {
		if id, ok := v.(string); ok {
			return id
		}
	}
	return ""
}

type namesrvAddrRequest struct {
	NamesrvAddr *string `json:"namesrvAddr"`
}

type vipChannelRequest struct {
	IsVIPChannel *string `json:"isVIPChannel"`
}

// configResponse never carries the access or secret key.
type configResponse struct {
	NamesrvAddr            string    `json:"namesrvAddr"`
	IsVIPChannel           string    `json:"isVIPChannel"`
	DataPath               string    `json:"dataPath"`
	DashboardCollectData   string    `json:"dashboardCollectData"`
	EnableDashBoardCollect bool      `json:"enableDashBoardCollect"`
	LoginRequired          bool      `json:"loginRequired"`
	ACLEnabled             bool      `json:"aclEnabled"`
	UseTLS                 bool      `json:"useTLS"`
	TimeoutMillis          *int64    `json:"timeoutMillis,omitempty"`
	UpdatedAt              time.Time `json:"updatedAt"`
}

type updateResponse struct {
	Field     string    `json:"field"`
	Value     string    `json:"value"`
	Result    string    `json:"result"`
	UpdatedAt time.Time `json:"updatedAt"`
	Message   string    `json:"message,omitempty"`
}

type healthResponse struct {
	Status    string    `json:"status"`
	Timestamp time.Time `json:"timestamp"`
}

type errorResponse struct {
	Error      string `json:"error"`
	Field      string `json:"field,omitempty"`
	Details    string `json:"details,omitempty"`
	Suggestion string `json:"suggestion,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	if status != 0 {
		w.WriteHeader(status)
	}
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, message, details string, suggestion ...string) {
	resp := errorResponse{
		Error:   message,
		Details: details,
	}
	if len(suggestion) > 0 {
		resp.Suggestion = suggestion[0]
	}
	writeJSON(w, status, resp)
}
