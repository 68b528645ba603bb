package handlers

import (
	"encoding/json"
	"net/http"

	"go.uber.org/zap"
)

type errorResponse struct {
	Error string `json:"error"`
}

func respondWithError(log *zap.Logger, w http.ResponseWriter, status int, userMsg, logMsg string, err error) {
	if err != nil {
		if logMsg == "" {
			logMsg = userMsg
		}
		if status >= http.StatusInternalServerError {
			log.Error(logMsg, zap.Int("status", status), zap.Error(err))
		} else {
			log.Warn(logMsg, zap.Int("status", status), zap.Error(err))
		}
	}

	respondWithJSON(log, w, status, errorResponse{Error: userMsg})
}

func respondWithJSON(log *zap.Logger, w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		log.Warn("Failed to write response", zap.Error(err))
	}
}
