package http

import (
	"net/http"
	"strings"

	"tripledger/internal/core"
	"tripledger/internal/log"
	"tripledger/internal/reconcile"
)

// session resolves the session named in the path, writing a 404 when unknown.
func (s *Server) session(w http.ResponseWriter, r *http.Request) (*reconcile.Session, bool) {
	sess, err := s.sessions.get(strings.TrimSpace(r.PathValue("sessionID")))
	if err != nil {
		writeError(w, r, err)
		return nil, false
	}
	return sess, true
}

// writeSnapshot answers an edit with the session's current content.
func writeSnapshot(w http.ResponseWriter, status int, sess *reconcile.Session) {
	NewJSONResponse().Status(status).Data(sess.Snapshot()).Write(w)
}

func (s *Server) handleBeginSession(w http.ResponseWriter, r *http.Request) {
	sess, err := s.budget.BeginInstrumentEdit(r.Context(), tripID(r))
	if err != nil {
		writeError(w, r, err)
		return
	}
	s.sessions.put(sess)
	log.FromContext(r.Context()).WithComponent(log.ComponentReconcile).InfoContext(r.Context(), "Edit session opened",
		log.FieldSessionID, sess.ID(), log.FieldTripID, sess.TripID())
	NewJSONResponse().
		Status(http.StatusCreated).
		Header("Location", "/sessions/"+sess.ID()).
		Data(sess.Snapshot()).
		Write(w)
}

func (s *Server) handleGetSession(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.session(w, r)
	if !ok {
		return
	}
	writeSnapshot(w, http.StatusOK, sess)
}

// handleDiscardSession abandons staged edits and forgets the session.
func (s *Server) handleDiscardSession(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.session(w, r)
	if !ok {
		return
	}
	if sess.State() == reconcile.Committing {
		writeError(w, r, core.ErrSessionClosed)
		return
	}
	sess.Discard()
	s.sessions.remove(sess.ID())
	NewJSONResponse().Status(http.StatusNoContent).Write(w)
}

func (s *Server) handleAddInstrument(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.session(w, r)
	if !ok {
		return
	}
	if _, err := sess.AddInstrument(); err != nil {
		writeError(w, r, err)
		return
	}
	writeSnapshot(w, http.StatusCreated, sess)
}

func (s *Server) handleSetField(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.session(w, r)
	if !ok {
		return
	}
	index, err := pathIndex(r, "index")
	if err != nil {
		writeError(w, r, err)
		return
	}
	var req fieldRequest
	if err := decodeJSON(w, r, &req, false); err != nil {
		writeError(w, r, err)
		return
	}
	if err := sess.SetField(index, reconcile.Field(req.Field), sanitizeInput(req.Value)); err != nil {
		writeError(w, r, err)
		return
	}
	writeSnapshot(w, http.StatusOK, sess)
}

func (s *Server) handleRemoveInstrument(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.session(w, r)
	if !ok {
		return
	}
	index, err := pathIndex(r, "index")
	if err != nil {
		writeError(w, r, err)
		return
	}
	if err := sess.RemoveInstrument(index); err != nil {
		writeError(w, r, err)
		return
	}
	writeSnapshot(w, http.StatusOK, sess)
}

func (s *Server) handleReorder(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.session(w, r)
	if !ok {
		return
	}
	var req reorderRequest
	if err := decodeJSON(w, r, &req, false); err != nil {
		writeError(w, r, err)
		return
	}
	kind, err := req.kind()
	if err != nil {
		writeError(w, r, err)
		return
	}
	switch kind {
	case reorderPositions:
		err = sess.Reorder(*req.From, *req.To)
	case reorderStep:
		if req.Direction == "up" {
			err = sess.MoveUp(*req.Index)
		} else {
			err = sess.MoveDown(*req.Index)
		}
	case reorderDrag:
		err = sess.DragReorder(req.ActiveID, req.OverID)
	}
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeSnapshot(w, http.StatusOK, sess)
}

func (s *Server) handleSessionSettings(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.session(w, r)
	if !ok {
		return
	}
	var req settingsRequest
	if err := decodeJSON(w, r, &req, false); err != nil {
		writeError(w, r, err)
		return
	}
	rate, err := req.ExchangeRateLocalToHome.decimal("exchangeRateLocalToHome")
	if err != nil {
		writeError(w, r, err)
		return
	}
	if err := sess.SetSettings(req.HomeCurrencyCode, req.LocalCurrencyCode, rate); err != nil {
		writeError(w, r, err)
		return
	}
	if req.Info != nil {
		if err := sess.SetInfo(*req.Info); err != nil {
			writeError(w, r, err)
			return
		}
	}
	writeSnapshot(w, http.StatusOK, sess)
}

// handlePlan previews the writes a commit would perform.
func (s *Server) handlePlan(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.session(w, r)
	if !ok {
		return
	}
	plan := sess.Plan()
	NewJSONResponse().Data(map[string]any{
		"plan":  plan,
		"steps": plan.Steps(),
	}).Write(w)
}

// handleCommit persists the session. A committed session stays readable
// until it expires but rejects further edits.
func (s *Server) handleCommit(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.session(w, r)
	if !ok {
		return
	}
	plan, err := s.budget.CommitInstruments(r.Context(), sess)
	if err != nil {
		writeError(w, r, err)
		return
	}
	NewJSONResponse().Data(map[string]any{
		"session": sess.Snapshot(),
		"plan":    plan,
		"steps":   plan.Steps(),
	}).Write(w)
}
