package api

import (
	"fmt"
	"net/http"

	"form-connectors/internal/common/errors"
	"form-connectors/internal/connectors"
	"form-connectors/internal/form"
	"form-connectors/internal/persistence"
	"form-connectors/internal/session"
	"form-connectors/internal/submission"
)

type openSessionRequest struct {
	FormID string `json:"formId"`
}

// Mutation is one store operation. Which fields apply depends on Op.
type Mutation struct {
	Op     string            `json:"op"`
	ID     string            `json:"id,omitempty"`
	Config *form.ConfigPatch `json:"config,omitempty"`
	Field  *form.FieldPatch  `json:"field,omitempty"`
	From   int               `json:"from,omitempty"`
	To     int               `json:"to,omitempty"`
	Value  string            `json:"value,omitempty"`
}

const (
	OpUpdateConfig            = "updateConfig"
	OpAddField                = "addField"
	OpUpdateField             = "updateField"
	OpRemoveField             = "removeField"
	OpReorderField            = "reorderField"
	OpAddConnector            = "addConnector"
	OpRemoveConnector         = "removeConnector"
	OpChangeConnectorType     = "changeConnectorType"
	OpChangeConnector         = "changeConnector"
	OpChangeConnectorLabel    = "changeConnectorLabel"
	OpChangeConnectorTemplate = "changeConnectorTemplate"
)

// valuesRequest sets values by field id, or prefills them from a row keyed by field key.
type valuesRequest struct {
	FieldValues form.FieldValues       `json:"fieldValues,omitempty"`
	Row         map[string]interface{} `json:"row,omitempty"`
}

type saveResponse struct {
	SavedObject persistence.SavedObject `json:"savedObject"`
	State       session.State           `json:"state"`
}

type submitResponse struct {
	Outcome *submission.Outcome `json:"outcome"`
	State   session.State       `json:"state"`
}

type sessionHandler func(w http.ResponseWriter, r *http.Request, sess *session.Session)

func (s *Server) withSession(h sessionHandler) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sess, err := s.sessions.Get(r.PathValue("id"))
		if err != nil {
			s.writeError(w, err)
			return
		}
		h(w, r, sess)
	}
}

func (s *Server) handleOpenSession(w http.ResponseWriter, r *http.Request) {
	var req openSessionRequest
	if err := decodeBody(w, r, &req); err != nil {
		s.writeError(w, err)
		return
	}
	sess, err := s.sessions.Open(r.Context(), req.FormID)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, sess.State())
}

func (s *Server) handleGetSession(w http.ResponseWriter, r *http.Request, sess *session.Session) {
	writeJSON(w, http.StatusOK, sess.State())
}

func (s *Server) handleCloseSession(w http.ResponseWriter, r *http.Request) {
	if err := s.sessions.Close(r.PathValue("id")); err != nil {
		s.writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handlePreview(w http.ResponseWriter, r *http.Request, sess *session.Session) {
	writeJSON(w, http.StatusOK, sess.Preview())
}

func (s *Server) handleMutation(w http.ResponseWriter, r *http.Request, sess *session.Session) {
	var m Mutation
	if err := decodeBody(w, r, &m); err != nil {
		s.writeError(w, err)
		return
	}
	if err := applyMutation(sess, m); err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, sess.State())
}

func applyMutation(sess *session.Session, m Mutation) error {
	switch m.Op {
	case OpUpdateConfig:
		if m.Config == nil {
			return errors.NewInvalidInputError("updateConfig requires config")
		}
		sess.UpdateConfig(*m.Config)
	case OpAddField:
		sess.AddField()
	case OpUpdateField:
		if m.Field == nil {
			return errors.NewInvalidInputError("updateField requires field")
		}
		sess.UpdateField(m.ID, *m.Field)
	case OpRemoveField:
		sess.RemoveField(m.ID)
	case OpReorderField:
		sess.ReorderField(m.From, m.To)
	case OpAddConnector:
		sess.AddConnector()
	case OpRemoveConnector:
		sess.RemoveConnector(m.ID)
	case OpChangeConnectorType:
		if m.Value != "" && !connectors.IsSupported(m.Value, nil) {
			return errors.NewConnectorUnsupportedError(m.Value)
		}
		sess.ChangeConnectorType(m.ID, m.Value)
	case OpChangeConnector:
		sess.ChangeConnector(m.ID, m.Value)
	case OpChangeConnectorLabel:
		sess.ChangeConnectorLabel(m.ID, m.Value)
	case OpChangeConnectorTemplate:
		sess.ChangeConnectorTemplate(m.ID, m.Value)
	default:
		return errors.NewInvalidInputError(fmt.Sprintf("unknown mutation op %q", m.Op))
	}
	return nil
}

func (s *Server) handleValues(w http.ResponseWriter, r *http.Request, sess *session.Session) {
	var req valuesRequest
	if err := decodeBody(w, r, &req); err != nil {
		s.writeError(w, err)
		return
	}
	if req.FieldValues != nil {
		sess.SetFieldValues(req.FieldValues)
	}
	if req.Row != nil {
		sess.PrefillFromRow(req.Row)
	}
	writeJSON(w, http.StatusOK, sess.State())
}

func (s *Server) handleSave(w http.ResponseWriter, r *http.Request, sess *session.Session) {
	obj, err := sess.Save(r.Context())
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, saveResponse{SavedObject: obj, State: sess.State()})
}

func (s *Server) handleSubmit(w http.ResponseWriter, r *http.Request, sess *session.Session) {
	out, err := sess.Submit(r.Context())
	s.writeSubmission(w, sess, out, err)
}

func (s *Server) handleConfirm(w http.ResponseWriter, r *http.Request, sess *session.Session) {
	out, err := sess.Confirm(r.Context())
	s.writeSubmission(w, sess, out, err)
}

// writeSubmission answers 202 while a submission awaits confirmation.
func (s *Server) writeSubmission(w http.ResponseWriter, sess *session.Session, out *submission.Outcome, err error) {
	if err != nil {
		s.writeError(w, err)
		return
	}
	status := http.StatusOK
	if out == nil {
		status = http.StatusAccepted
	}
	writeJSON(w, status, submitResponse{Outcome: out, State: sess.State()})
}

func (s *Server) handleCancel(w http.ResponseWriter, r *http.Request, sess *session.Session) {
	sess.Cancel(r.Context())
	writeJSON(w, http.StatusOK, sess.State())
}

func (s *Server) handleReloadCatalog(w http.ResponseWriter, r *http.Request, sess *session.Session) {
	if err := sess.ReloadCatalog(r.Context()); err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, sess.State())
}
