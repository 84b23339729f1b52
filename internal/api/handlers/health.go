package handlers

import (
	"net/http"

	"github.com/asafarditi/Battlator/internal/api/response"
)

// Health handles GET /health.
func Health(w http.ResponseWriter, r *http.Request) {
	response.JSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
