// Package api exposes the HTTP surface: garden lifecycle and care actions,
// and the knowing-you quiz game. All routes sit behind the identity
// middleware.
package api

import (
	"encoding/json"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/entwine-app/entwine/internal/apperr"
	"github.com/entwine-app/entwine/internal/logger"
	"github.com/entwine-app/entwine/internal/services"
)

// Deps bundles the services the handlers depend on.
type Deps struct {
	Users   *services.UserService
	Gardens *services.GardenService
	Quiz    *services.QuizService
}

// RegisterRoutes mounts the API. User registration is public (it mints the
// identity); everything else requires the identity middleware on authed.
func RegisterRoutes(public, authed *mux.Router, deps Deps) {
	log := logger.New()

	uh := &UserHandler{users: deps.Users, log: log}
	public.HandleFunc("/api/v1/users", uh.Create).Methods("POST")
	authed.HandleFunc("/api/v1/users/{id}", uh.Get).Methods("GET")

	gh := &GardenHandler{gardens: deps.Gardens, log: log}
	gh.RegisterRoutes(authed)

	qh := &QuizHandler{quiz: deps.Quiz, log: log}
	qh.RegisterRoutes(authed)
}

func respondJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if payload != nil {
		json.NewEncoder(w).Encode(payload)
	}
}

// respondError maps error kinds onto HTTP statuses. Unknown errors are
// treated as persistence failures and logged server-side only.
func respondError(w http.ResponseWriter, log *logger.Log, err error) {
	kind := apperr.KindOf(err)

	status := http.StatusInternalServerError
	switch kind {
	case apperr.KindNotFound:
		status = http.StatusNotFound
	case apperr.KindNotAParticipant, apperr.KindNotYourTurn:
		status = http.StatusForbidden
	case apperr.KindInvalidState, apperr.KindAlreadyActedToday:
		status = http.StatusBadRequest
	case apperr.KindQuestionPoolExhausted:
		status = http.StatusConflict
	}

	message := err.Error()
	if status == http.StatusInternalServerError {
		log.WithError(err).Error("request failed")
		message = "internal server error"
	}

	respondJSON(w, status, map[string]string{
		"error": message,
		"kind":  string(kind),
	})
}

func decodeJSON(r *http.Request, dst any) error {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		return apperr.New(apperr.KindInvalidState, "invalid request body")
	}
	return nil
}
