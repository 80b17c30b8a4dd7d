package api

import (
	"io"
	"mime"
	"net/http"
	"strings"

	"fjacquet/teamkasse/internal/ingest"

	"github.com/go-chi/chi/v5"
)

// handleImport accepts a legacy export either as the raw request body or
// as the "file" field of a multipart form.
func (s *Server) handleImport(w http.ResponseWriter, r *http.Request) {
	schema, err := ingest.ParseSchema(chi.URLParam(r, "schema"))
	if err != nil {
		writeError(w, http.StatusNotFound, err.Error())
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, maxUploadBytes)
	var (
		in   io.Reader = r.Body
		name           = "upload.csv"
	)
	if mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type")); strings.HasPrefix(mediaType, "multipart/") {
		file, header, err := r.FormFile("file")
		if err != nil {
			writeError(w, http.StatusBadRequest, "missing file field: "+err.Error())
			return
		}
		defer file.Close()
		in, name = file, header.Filename
	}

	res, err := s.svc.RunIngestion(r.Context(), in, schema, ingest.Options{Source: name})
	if err != nil {
		if res != nil {
			writeJSON(w, statusFor(err), res)
			return
		}
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

type suggestRequest struct {
	Text string `json:"text"`
}

func (s *Server) handleSuggest(w http.ResponseWriter, r *http.Request) {
	var in suggestRequest
	if !decode(w, r, &in) {
		return
	}
	sug, err := s.svc.SuggestFine(r.Context(), in.Text)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, sug)
}
