package server

import (
	"fmt"
	"net/http"

	"github.com/voyagen/lulutv/internal/models"
	"github.com/voyagen/lulutv/internal/service"
)

const defaultSampleSize = 5

func (s *Server) handleValidateAll(w http.ResponseWriter, r *http.Request) {
	force, err := boolParam(r, "force_refresh", false)
	if err != nil {
		writeErr(w, http.StatusBadRequest, err)
		return
	}
	state, err := s.jobs.Start(force)
	if err != nil {
		writeServiceErr(w, r, err)
		return
	}
	writeJSON(w, http.StatusAccepted, map[string]any{
		"started":    true,
		"started_at": state.StartedAt,
		"job_id":     state.JobID,
	})
}

func (s *Server) handleValidateStatus(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.jobs.Status())
}

func (s *Server) handleListChannels(w http.ResponseWriter, r *http.Request) {
	p := service.ListParams{Query: r.URL.Query().Get("q")}
	var err error
	if p.Page, err = intParam(r, "page", 1, 1, 0); err != nil {
		writeErr(w, http.StatusBadRequest, err)
		return
	}
	if p.Limit, err = intParam(r, "limit", service.DefaultPageSize, 1, s.cfg.MaxPageSize); err != nil {
		writeErr(w, http.StatusBadRequest, err)
		return
	}
	for _, b := range []struct {
		name string
		def  bool
		dst  *bool
	}{
		{"refresh", false, &p.Refresh},
		{"validate", false, &p.Validate},
		{"working_only", true, &p.WorkingOnly},
	} {
		if *b.dst, err = boolParam(r, b.name, b.def); err != nil {
			writeErr(w, http.StatusBadRequest, err)
			return
		}
	}

	channels, err := s.catalog.List(r.Context(), p)
	if err != nil {
		writeServiceErr(w, r, err)
		return
	}
	if channels == nil {
		channels = []models.ChannelView{}
	}
	writeJSON(w, http.StatusOK, channels)
}

func (s *Server) handleCountChannels(w http.ResponseWriter, r *http.Request) {
	n, err := s.catalog.Count(r.Context(), r.URL.Query().Get("q"))
	if err != nil {
		writeServiceErr(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]int{"total": n})
}

func (s *Server) handleSummary(w http.ResponseWriter, r *http.Request) {
	sum, err := s.catalog.Summary(r.Context())
	if err != nil {
		writeServiceErr(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, sum)
}

func (s *Server) handleDebugSample(w http.ResponseWriter, r *http.Request) {
	n, err := intParam(r, "n", defaultSampleSize, 1, service.MaxSampleSize)
	if err != nil {
		writeErr(w, http.StatusBadRequest, err)
		return
	}
	report, err := s.catalog.Sample(r.Context(), n)
	if err != nil {
		writeServiceErr(w, r, fmt.Errorf("sample: %w", err))
		return
	}
	writeJSON(w, http.StatusOK, report)
}
