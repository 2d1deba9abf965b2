package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/emrgen/boxsync/internal/model"
	"github.com/emrgen/boxsync/internal/service"
	"github.com/emrgen/boxsync/internal/store"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/cors"
	"github.com/sirupsen/logrus"
)

type boxStatus struct {
	ID      uint   `json:"id"`
	Name    string `json:"name"`
	BaseURL string `json:"baseUrl"`
	Online  bool   `json:"online"`
	// Known is false until the first poll of the box completed.
	Known bool `json:"known"`
}

type deleteResponse struct {
	Level         model.Level `json:"level"`
	ID            uint        `json:"id"`
	RemovedImages int         `json:"removedImages"`
}

// Handler serves the read-only status API and hierarchy deletion.
func (n *Node) Handler() http.Handler {
	c := cors.New(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "DELETE"},
	})

	router := chi.NewRouter()
	router.Use(RequestTimeMiddleware, middleware.Recoverer, c.Handler)

	router.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	router.Route("/v1", func(r chi.Router) {
		r.Get("/boxes", n.listBoxes)
		r.Get("/inbox", n.listInbox)
		r.Get("/patients", n.listPatients)
		r.Delete("/hierarchy/{level}/{id}", n.deleteHierarchy)
	})

	return router
}

func (n *Node) listBoxes(w http.ResponseWriter, r *http.Request) {
	boxes, err := n.boxes.ListBoxes(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}

	out := make([]boxStatus, 0, len(boxes))
	for _, box := range boxes {
		online, known := n.tracker.Online(box.ID)
		if !known {
			online = box.Online
		}
		out = append(out, boxStatus{ID: box.ID, Name: box.Name, BaseURL: box.BaseURL, Online: online, Known: known})
	}
	writeJSON(w, out)
}

func (n *Node) listInbox(w http.ResponseWriter, r *http.Request) {
	inbox, err := n.inbox.ListTransactions(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, inbox)
}

func (n *Node) listPatients(w http.ResponseWriter, r *http.Request) {
	patients, err := n.store.ListPatients(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, patients)
}

func (n *Node) deleteHierarchy(w http.ResponseWriter, r *http.Request) {
	level := model.Level(chi.URLParam(r, "level"))
	id, err := strconv.ParseUint(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		http.Error(w, "invalid id", http.StatusBadRequest)
		return
	}

	refs, err := n.hierarchy.Delete(r.Context(), level, uint(id))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, deleteResponse{Level: level, ID: uint(id), RemovedImages: len(refs)})
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logrus.Errorf("failed to write response: %v", err)
	}
}

func writeError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, store.ErrNotFound):
		http.Error(w, err.Error(), http.StatusNotFound)
	case errors.Is(err, store.ErrUnknownLevel), errors.Is(err, service.ErrInvalidBox):
		http.Error(w, err.Error(), http.StatusBadRequest)
	default:
		logrus.Errorf("request failed: %v", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
	}
}
