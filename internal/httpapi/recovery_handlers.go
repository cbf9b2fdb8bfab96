package httpapi

import (
	"errors"
	"net/http"

	"retailhub/backend/internal/domain"
	"retailhub/backend/internal/session"
)

var errUnknownKind = errors.New("unknown record kind")

func pathKind(r *http.Request) (domain.Kind, bool) {
	return domain.ParseKind(r.PathValue("kind"))
}

// deleteRecord soft deletes a single record. Kinds without a trash column are
// removed permanently and the response carries the warning.
func (a *API) deleteRecord(w http.ResponseWriter, r *http.Request, sess *session.Session, kind domain.Kind, id string) {
	outcome, err := sess.Delete(r.Context(), kind, id)
	if err != nil {
		writeError(w, statusFor(err), err)
		return
	}
	writeJSON(w, http.StatusOK, outcome)
}

func (a *API) handleTrash(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeMethodNotAllowed(w)
		return
	}
	kind, ok := pathKind(r)
	if !ok {
		writeError(w, http.StatusBadRequest, errUnknownKind)
		return
	}
	a.withSession(w, r, func(sess *session.Session) {
		entries, err := sess.Trash(r.Context(), kind)
		if err != nil {
			writeError(w, statusFor(err), err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"kind": kind, "items": entries})
	})
}

func (a *API) handleRestore(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeMethodNotAllowed(w)
		return
	}
	kind, ok := pathKind(r)
	if !ok {
		writeError(w, http.StatusBadRequest, errUnknownKind)
		return
	}
	a.withSession(w, r, func(sess *session.Session) {
		outcome, err := sess.Restore(r.Context(), kind, r.PathValue("id"))
		if err != nil {
			writeError(w, statusFor(err), err)
			return
		}
		writeJSON(w, http.StatusOK, outcome)
	})
}

func (a *API) handleClearKind(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodDelete {
		writeMethodNotAllowed(w)
		return
	}
	kind, ok := pathKind(r)
	if !ok {
		writeError(w, http.StatusBadRequest, errUnknownKind)
		return
	}
	a.withSession(w, r, func(sess *session.Session) {
		outcome, err := sess.ClearKind(r.Context(), kind)
		if err != nil {
			writeError(w, statusFor(err), err)
			return
		}
		writeJSON(w, http.StatusOK, outcome)
	})
}

// handleSystemReset wipes every table. It requires the manager PIN and is
// rate limited per client.
func (a *API) handleSystemReset(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeMethodNotAllowed(w)
		return
	}
	if !a.pinLimiter.Allow(clientKey(r)) {
		writeError(w, http.StatusTooManyRequests, errors.New("too many PIN attempts"))
		return
	}

	var req domain.ResetRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	if !a.auth.ValidateManagerPIN(req.ManagerPIN) {
		writeError(w, http.StatusForbidden, errors.New("invalid manager PIN"))
		return
	}

	a.withSession(w, r, func(sess *session.Session) {
		result, err := sess.ResetSystem(r.Context())
		if err != nil {
			writeError(w, http.StatusInternalServerError, err)
			return
		}
		writeJSON(w, http.StatusOK, result)
	})
}
