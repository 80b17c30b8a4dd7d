package api

import (
	"net/http"

	"fjacquet/teamkasse/internal/coordinator"
	"fjacquet/teamkasse/internal/models"
	"fjacquet/teamkasse/internal/service"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"
)

// entryResponse is the outcome of a ledger write.
type entryResponse struct {
	Entry   models.Entry    `json:"entry"`
	Member  *models.Member  `json:"member"`
	Delta   decimal.Decimal `json:"delta"`
	Balance decimal.Decimal `json:"balance"`
}

func writeResult(w http.ResponseWriter, status int, res *coordinator.Result) {
	writeJSON(w, status, entryResponse{
		Entry:   res.Entry,
		Member:  res.Member,
		Delta:   res.Delta,
		Balance: res.Member.Balance,
	})
}

// entryKey reads the member, kind and entry from the URL.
func (s *Server) entryKey(w http.ResponseWriter, r *http.Request) (models.EntryKey, bool) {
	kind, err := service.ParseKind(chi.URLParam(r, "kind"))
	if err != nil {
		s.fail(w, r, err)
		return models.EntryKey{}, false
	}
	return models.EntryKey{
		Kind:     kind,
		MemberID: chi.URLParam(r, "memberID"),
		ID:       chi.URLParam(r, "entryID"),
	}, true
}

func (s *Server) handleListEntries(w http.ResponseWriter, r *http.Request) {
	key, ok := s.entryKey(w, r)
	if !ok {
		return
	}
	entries, err := s.svc.ListEntries(r.Context(), key.MemberID, key.Kind, queryBool(r, "includeDeleted"))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, entries)
}

func (s *Server) handleCreateEntry(w http.ResponseWriter, r *http.Request) {
	key, ok := s.entryKey(w, r)
	if !ok {
		return
	}
	var in service.EntryInput
	if !decode(w, r, &in) {
		return
	}
	res, err := s.svc.CreateEntry(r.Context(), key.MemberID, key.Kind, in)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeResult(w, http.StatusCreated, res)
}

func (s *Server) handleGetEntry(w http.ResponseWriter, r *http.Request) {
	key, ok := s.entryKey(w, r)
	if !ok {
		return
	}
	e, err := s.svc.GetEntry(r.Context(), key)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, e)
}

func (s *Server) handleDeleteEntry(w http.ResponseWriter, r *http.Request) {
	key, ok := s.entryKey(w, r)
	if !ok {
		return
	}
	strategy, err := coordinator.ParseDeleteStrategy(r.URL.Query().Get("strategy"))
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	res, err := s.svc.DeleteEntry(r.Context(), key, strategy)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeResult(w, http.StatusOK, res)
}

type payRequest struct {
	Amount decimal.Decimal `json:"amount"`
}

func (s *Server) handleApplyPayment(w http.ResponseWriter, r *http.Request) {
	key, ok := s.entryKey(w, r)
	if !ok {
		return
	}
	var in payRequest
	if !decode(w, r, &in) {
		return
	}
	res, err := s.svc.ApplyPayment(r.Context(), key, in.Amount)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeResult(w, http.StatusOK, res)
}

type paidRequest struct {
	Paid bool `json:"paid"`
}

func (s *Server) handleSetPaid(w http.ResponseWriter, r *http.Request) {
	key, ok := s.entryKey(w, r)
	if !ok {
		return
	}
	var in paidRequest
	if !decode(w, r, &in) {
		return
	}
	res, err := s.svc.SetPaid(r.Context(), key, in.Paid)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeResult(w, http.StatusOK, res)
}
