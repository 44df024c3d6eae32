package api

import (
	"fmt"
	"net/http"
	"strconv"

	"form-connectors/internal/common/errors"
)

const defaultListLimit = 20

type submitFormRequest struct {
	FieldValues map[string]interface{} `json:"fieldValues"`
}

func (s *Server) handleListForms(w http.ResponseWriter, r *http.Request) {
	limit, err := queryInt(r, "limit", defaultListLimit)
	if err != nil {
		s.writeError(w, err)
		return
	}
	offset, err := queryInt(r, "offset", 0)
	if err != nil {
		s.writeError(w, err)
		return
	}
	objs, err := s.repo.List(r.Context(), limit, offset)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"savedObjects": objs})
}

func (s *Server) handleGetForm(w http.ResponseWriter, r *http.Request) {
	res, err := s.repo.Resolve(r.Context(), r.PathValue("id"))
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (s *Server) handleDeleteForm(w http.ResponseWriter, r *http.Request) {
	if err := s.repo.Delete(r.Context(), r.PathValue("id")); err != nil {
		s.writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleSubmitForm(w http.ResponseWriter, r *http.Request) {
	if s.runner == nil {
		s.writeError(w, errors.NewInternalError(fmt.Errorf("saved form submission is not configured")))
		return
	}
	var req submitFormRequest
	if err := decodeBody(w, r, &req); err != nil {
		s.writeError(w, err)
		return
	}
	out, err := s.runner.Run(r.Context(), r.PathValue("id"), req.FieldValues)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

func queryInt(r *http.Request, name string, def int) (int, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return def, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		return 0, errors.NewInvalidInputError(fmt.Sprintf("%s must be a non-negative integer", name))
	}
	return n, nil
}
