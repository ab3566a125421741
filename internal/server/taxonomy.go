package server

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/voyagen/lulutv/internal/models"
)

func (s *Server) handleListLanguages(w http.ResponseWriter, r *http.Request) {
	refresh, err := boolParam(r, "refresh", false)
	if err != nil {
		writeErr(w, http.StatusBadRequest, err)
		return
	}
	items, err := s.taxonomy.Languages(r.Context(), r.URL.Query().Get("q"), refresh)
	if err != nil {
		writeServiceErr(w, r, err)
		return
	}
	if items == nil {
		items = []models.Language{}
	}
	writeJSON(w, http.StatusOK, items)
}

func (s *Server) handleGetLanguage(w http.ResponseWriter, r *http.Request) {
	lang, err := s.taxonomy.Language(r.Context(), chi.URLParam(r, "code"))
	if err != nil {
		writeServiceErr(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, lang)
}

func (s *Server) handleListCountries(w http.ResponseWriter, r *http.Request) {
	refresh, err := boolParam(r, "refresh", false)
	if err != nil {
		writeErr(w, http.StatusBadRequest, err)
		return
	}
	items, err := s.taxonomy.Countries(r.Context(), r.URL.Query().Get("q"), refresh)
	if err != nil {
		writeServiceErr(w, r, err)
		return
	}
	if items == nil {
		items = []models.Country{}
	}
	writeJSON(w, http.StatusOK, items)
}

func (s *Server) handleGetCountry(w http.ResponseWriter, r *http.Request) {
	c, err := s.taxonomy.Country(r.Context(), chi.URLParam(r, "country"))
	if err != nil {
		writeServiceErr(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, c)
}

func (s *Server) handleGetSubdivision(w http.ResponseWriter, r *http.Request) {
	sub, err := s.taxonomy.Subdivision(r.Context(), chi.URLParam(r, "country"), chi.URLParam(r, "sub"))
	if err != nil {
		writeServiceErr(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, sub)
}

func (s *Server) handleGetCity(w http.ResponseWriter, r *http.Request) {
	city, err := s.taxonomy.City(r.Context(), chi.URLParam(r, "city"))
	if err != nil {
		writeServiceErr(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, city)
}
