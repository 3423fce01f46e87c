package handlers

import (
	"encoding/json"
	"net/http"

	"dreamreel/internal/admission"
	"dreamreel/internal/domain"
	"dreamreel/internal/infra"
	"dreamreel/internal/middleware"
)

type App struct {
	Jobs      domain.JobRepository
	Admission *admission.Controller
	Logger    infra.Logger
}

func NewApp(jobs domain.JobRepository, adm *admission.Controller, logger infra.Logger) *App {
	return &App{Jobs: jobs, Admission: adm, Logger: logger}
}

func (a *App) json(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func (a *App) error(w http.ResponseWriter, code int, errCode, message string) {
	a.json(w, code, map[string]any{
		"error":   errCode,
		"message": message,
	})
}

func (a *App) currentAccountID(r *http.Request) string {
	return middleware.AccountIDFromContext(r.Context())
}
