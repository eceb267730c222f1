package api

import (
	"net/http"

	"github.com/gorilla/mux"

	"github.com/entwine-app/entwine/internal/auth"
	"github.com/entwine-app/entwine/internal/logger"
	"github.com/entwine-app/entwine/internal/models"
	"github.com/entwine-app/entwine/internal/services"
)

type GardenHandler struct {
	gardens *services.GardenService
	log     *logger.Log
}

func (h *GardenHandler) RegisterRoutes(r *mux.Router) {
	r.HandleFunc("/api/v1/plants", h.ListPlants).Methods("GET")

	r.HandleFunc("/api/v1/gardens", h.Create).Methods("POST")
	r.HandleFunc("/api/v1/gardens", h.List).Methods("GET")
	r.HandleFunc("/api/v1/gardens/{id}", h.Get).Methods("GET")
	r.HandleFunc("/api/v1/gardens/{id}/accept", h.Accept).Methods("PATCH")
	r.HandleFunc("/api/v1/gardens/{id}/plant", h.ConfirmPlant).Methods("POST")
	r.HandleFunc("/api/v1/gardens/{id}/water", h.Water).Methods("POST")
	r.HandleFunc("/api/v1/gardens/{id}/history", h.History).Methods("GET")
	r.HandleFunc("/api/v1/gardens/{id}/archive", h.Archive).Methods("POST")
}

func (h *GardenHandler) ListPlants(w http.ResponseWriter, r *http.Request) {
	plants, err := h.gardens.ListPlants()
	if err != nil {
		respondError(w, h.log, err)
		return
	}
	respondJSON(w, http.StatusOK, plants)
}

func (h *GardenHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req models.CreateGardenRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, h.log, err)
		return
	}

	garden, err := h.gardens.Invite(auth.UserID(r), req)
	if err != nil {
		respondError(w, h.log, err)
		return
	}
	respondJSON(w, http.StatusCreated, garden)
}

func (h *GardenHandler) List(w http.ResponseWriter, r *http.Request) {
	gardens, err := h.gardens.ListGardens(auth.UserID(r))
	if err != nil {
		respondError(w, h.log, err)
		return
	}
	respondJSON(w, http.StatusOK, gardens)
}

func (h *GardenHandler) Get(w http.ResponseWriter, r *http.Request) {
	detail, err := h.gardens.Get(mux.Vars(r)["id"], auth.UserID(r))
	if err != nil {
		respondError(w, h.log, err)
		return
	}
	respondJSON(w, http.StatusOK, detail)
}

func (h *GardenHandler) Accept(w http.ResponseWriter, r *http.Request) {
	garden, err := h.gardens.Accept(mux.Vars(r)["id"], auth.UserID(r))
	if err != nil {
		respondError(w, h.log, err)
		return
	}
	respondJSON(w, http.StatusOK, garden)
}

func (h *GardenHandler) ConfirmPlant(w http.ResponseWriter, r *http.Request) {
	result, err := h.gardens.ConfirmPlant(mux.Vars(r)["id"], auth.UserID(r))
	if err != nil {
		respondError(w, h.log, err)
		return
	}
	respondJSON(w, http.StatusOK, result)
}

func (h *GardenHandler) Water(w http.ResponseWriter, r *http.Request) {
	result, err := h.gardens.Water(mux.Vars(r)["id"], auth.UserID(r))
	if err != nil {
		respondError(w, h.log, err)
		return
	}
	respondJSON(w, http.StatusOK, result)
}

func (h *GardenHandler) History(w http.ResponseWriter, r *http.Request) {
	actions, err := h.gardens.History(mux.Vars(r)["id"], auth.UserID(r))
	if err != nil {
		respondError(w, h.log, err)
		return
	}
	respondJSON(w, http.StatusOK, actions)
}

func (h *GardenHandler) Archive(w http.ResponseWriter, r *http.Request) {
	if err := h.gardens.Archive(mux.Vars(r)["id"], auth.UserID(r)); err != nil {
		respondError(w, h.log, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"status": models.GardenStatusArchived})
}
