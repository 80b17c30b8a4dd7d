package api

import (
	"net/http"
	"strconv"

	"fjacquet/teamkasse/internal/service"

	"github.com/go-chi/chi/v5"
)

func (s *Server) handleListMembers(w http.ResponseWriter, r *http.Request) {
	members, err := s.svc.ListMembers(r.Context(), queryBool(r, "includeDeleted"))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, members)
}

func (s *Server) handleCreateMember(w http.ResponseWriter, r *http.Request) {
	var in service.MemberInput
	if !decode(w, r, &in) {
		return
	}
	m, err := s.svc.CreateMember(r.Context(), in)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, m)
}

func (s *Server) handleGetMember(w http.ResponseWriter, r *http.Request) {
	m, err := s.svc.GetMember(r.Context(), chi.URLParam(r, "memberID"))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, m)
}

func (s *Server) handleDeleteMember(w http.ResponseWriter, r *http.Request) {
	m, err := s.svc.DeleteMember(r.Context(), chi.URLParam(r, "memberID"))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, m)
}

func (s *Server) handleBalance(w http.ResponseWriter, r *http.Request) {
	report, err := s.svc.RecomputeBalance(r.Context(), chi.URLParam(r, "memberID"))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, report)
}

type reconcileResponse struct {
	Member    interface{} `json:"member"`
	Drift     string      `json:"drift"`
	Corrected bool        `json:"corrected"`
}

func (s *Server) handleReconcile(w http.ResponseWriter, r *http.Request) {
	rec, err := s.svc.Reconcile(r.Context(), chi.URLParam(r, "memberID"))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, reconcileResponse{Member: rec.Member, Drift: rec.Drift.String(), Corrected: rec.Corrected})
}

func (s *Server) handleReconcileAll(w http.ResponseWriter, r *http.Request) {
	fixed, err := s.svc.ReconcileAll(r.Context())
	if err != nil {
		s.fail(w, r, err)
		return
	}
	out := make([]reconcileResponse, 0, len(fixed))
	for _, rec := range fixed {
		out = append(out, reconcileResponse{Member: rec.Member, Drift: rec.Drift.String(), Corrected: rec.Corrected})
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleLedger(w http.ResponseWriter, r *http.Request) {
	l, err := s.svc.Ledger(r.Context(), chi.URLParam(r, "memberID"))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, l)
}

func queryBool(r *http.Request, name string) bool {
	v, err := strconv.ParseBool(r.URL.Query().Get(name))
	return err == nil && v
}
