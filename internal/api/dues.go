package api

import (
	"errors"
	"io"
	"net/http"

	"fjacquet/teamkasse/internal/service"

	"github.com/go-chi/chi/v5"
)

func (s *Server) handleListDues(w http.ResponseWriter, r *http.Request) {
	dues, err := s.svc.ListDues(r.Context(), queryBool(r, "includeArchived"))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, dues)
}

func (s *Server) handleCreateDue(w http.ResponseWriter, r *http.Request) {
	var in service.DueInput
	if !decode(w, r, &in) {
		return
	}
	d, err := s.svc.CreateDue(r.Context(), in)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, d)
}

func (s *Server) handleAssignDue(w http.ResponseWriter, r *http.Request) {
	var in service.AssignInput
	// an empty body assigns the due to every active member
	if err := decodeOptional(r, &in); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body: "+err.Error())
		return
	}
	res, err := s.svc.AssignDue(r.Context(), chi.URLParam(r, "dueID"), in)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (s *Server) handleArchiveDue(w http.ResponseWriter, r *http.Request) {
	d, err := s.svc.ArchiveDue(r.Context(), chi.URLParam(r, "dueID"))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, d)
}

func decodeOptional(r *http.Request, v interface{}) error {
	err := jsonDecoder(r.Body).Decode(v)
	if errors.Is(err, io.EOF) {
		return nil
	}
	return err
}
