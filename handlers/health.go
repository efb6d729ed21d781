package handlers

import (
	"net/http"
	"time"

	"github.com/joyofrisk/api/app"
	"github.com/joyofrisk/api/utils"
)

// ServiceName identifies the API in GET /health
const ServiceName = "Joy of Risk API"

// ServiceInfo is returned by GET /health
type ServiceInfo struct {
	Status      string `json:"status"`
	Service     string `json:"service"`
	Environment string `json:"environment"`
	Timestamp   string `json:"timestamp"`
}

// ServiceInfoHandler returns basic service information
func ServiceInfoHandler(deps *app.Dependencies) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		_ = utils.WriteOK(w, ServiceInfo{
			Status:      "ok",
			Service:     ServiceName,
			Environment: deps.Config.Environment,
			Timestamp:   time.Now().UTC().Format(time.RFC3339),
		})
	}
}

// NotFoundHandler answers unknown routes with the JSON error envelope
func NotFoundHandler(w http.ResponseWriter, r *http.Request) {
	_ = utils.WriteNotFound(w, "Route not found")
}

// MethodNotAllowedHandler answers unsupported methods with the JSON error envelope
func MethodNotAllowedHandler(w http.ResponseWriter, r *http.Request) {
	_ = utils.WriteError(w, http.StatusMethodNotAllowed, "Method not allowed", nil)
}
