package httpapi

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/sandevgo/recall/pkg/log"
)

type errorResponse struct {
	Error string `json:"error"`
}

func respondJSON(ctx context.Context, w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.FromCtx(ctx).Error().Err(err).Msg("failed to encode response")
	}
}

func respondError(ctx context.Context, w http.ResponseWriter, status int, message string) {
	respondJSON(ctx, w, status, errorResponse{Error: message})
}
