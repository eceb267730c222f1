package api

import (
	"net/http"
	"strings"

	"github.com/gorilla/mux"

	"github.com/entwine-app/entwine/internal/apperr"
	"github.com/entwine-app/entwine/internal/auth"
	"github.com/entwine-app/entwine/internal/logger"
	"github.com/entwine-app/entwine/internal/services"
)

type QuizHandler struct {
	quiz *services.QuizService
	log  *logger.Log
}

func (h *QuizHandler) RegisterRoutes(r *mux.Router) {
	r.HandleFunc("/api/v1/categories", h.ListCategories).Methods("GET")

	r.HandleFunc("/api/v1/games", h.Create).Methods("POST")
	r.HandleFunc("/api/v1/games/join", h.Join).Methods("POST")
	r.HandleFunc("/api/v1/games/{id}", h.Get).Methods("GET")
	r.HandleFunc("/api/v1/games/{id}/start", h.Start).Methods("POST")
	r.HandleFunc("/api/v1/games/{id}/pick-category", h.PickCategory).Methods("POST")
	r.HandleFunc("/api/v1/games/{id}/answer", h.SubmitAnswer).Methods("POST")
	r.HandleFunc("/api/v1/games/{id}/advance", h.AdvanceRound).Methods("POST")
	r.HandleFunc("/api/v1/games/{id}/scores", h.Scores).Methods("GET")
}

func (h *QuizHandler) ListCategories(w http.ResponseWriter, r *http.Request) {
	categories, err := h.quiz.ListCategories()
	if err != nil {
		respondError(w, h.log, err)
		return
	}
	respondJSON(w, http.StatusOK, categories)
}

func (h *QuizHandler) Create(w http.ResponseWriter, r *http.Request) {
	session, err := h.quiz.CreateSession(auth.UserID(r))
	if err != nil {
		respondError(w, h.log, err)
		return
	}
	respondJSON(w, http.StatusCreated, session)
}

func (h *QuizHandler) Join(w http.ResponseWriter, r *http.Request) {
	var req struct {
		JoinCode string `json:"join_code"`
	}
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, h.log, err)
		return
	}

	session, err := h.quiz.Join(strings.ToUpper(strings.TrimSpace(req.JoinCode)), auth.UserID(r))
	if err != nil {
		respondError(w, h.log, err)
		return
	}
	respondJSON(w, http.StatusOK, session)
}

func (h *QuizHandler) Get(w http.ResponseWriter, r *http.Request) {
	state, err := h.quiz.GetState(mux.Vars(r)["id"], auth.UserID(r))
	if err != nil {
		respondError(w, h.log, err)
		return
	}
	respondJSON(w, http.StatusOK, state)
}

func (h *QuizHandler) Start(w http.ResponseWriter, r *http.Request) {
	result, err := h.quiz.Start(mux.Vars(r)["id"], auth.UserID(r))
	if err != nil {
		respondError(w, h.log, err)
		return
	}
	respondJSON(w, http.StatusOK, result)
}

func (h *QuizHandler) PickCategory(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Category string `json:"category"`
	}
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, h.log, err)
		return
	}

	result, err := h.quiz.PickCategory(mux.Vars(r)["id"], auth.UserID(r), req.Category)
	if err != nil {
		respondError(w, h.log, err)
		return
	}
	respondJSON(w, http.StatusOK, result)
}

func (h *QuizHandler) SubmitAnswer(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Answer string `json:"answer"`
	}
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, h.log, err)
		return
	}
	if strings.TrimSpace(req.Answer) == "" {
		respondError(w, h.log, apperr.New(apperr.KindInvalidState, "answer is required"))
		return
	}

	result, err := h.quiz.SubmitAnswer(mux.Vars(r)["id"], auth.UserID(r), req.Answer)
	if err != nil {
		respondError(w, h.log, err)
		return
	}
	respondJSON(w, http.StatusOK, result)
}

func (h *QuizHandler) AdvanceRound(w http.ResponseWriter, r *http.Request) {
	result, err := h.quiz.AdvanceRound(mux.Vars(r)["id"], auth.UserID(r))
	if err != nil {
		respondError(w, h.log, err)
		return
	}
	respondJSON(w, http.StatusOK, result)
}

func (h *QuizHandler) Scores(w http.ResponseWriter, r *http.Request) {
	scores, err := h.quiz.Scores(mux.Vars(r)["id"])
	if err != nil {
		respondError(w, h.log, err)
		return
	}
	respondJSON(w, http.StatusOK, scores)
}
