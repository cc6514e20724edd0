// Package service provides the token/session table engine.
package service

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/yndnr/tokentables/internal/core/domain"
)

// ============================================================================
// Session Create Operation
// ============================================================================

// AddSession registers owner <-> session, stores the owner secret with the
// storage collaborator and installs an empty token set and a default timing
// record.
//
// A non-empty boundToken is bound to the session with the verifier as its
// stored value. When shared is true the timing record is mirrored to storage
// and the verifier is returned; otherwise the returned Hash is empty.
//
// All storage writes happen before any in-memory change. On failure the
// writes already made are rolled back and the tables are left untouched.
func (t *TokenTables) AddSession(ctx context.Context, session domain.SessionToken, owner domain.Ucwid, boundToken domain.TransitionToken, shared bool) (domain.Hash, error) {
	if session == "" {
		return "", domain.ErrMissingArgument.WithDetails("session token is required")
	}

	hash, err := t.db.SetSessionKeyValue(ctx, session, owner)
	if err != nil {
		return "", t.storageErr(ctx, "set_session_key_value", err)
	}

	if boundToken != "" {
		if err := t.db.SetKeyValue(ctx, string(boundToken), string(hash)); err != nil {
			t.rollbackSession(ctx, session, "")
			return "", t.storageErr(ctx, "set_key_value", err)
		}
	}

	timing := domain.NewSessionTimingInfo(t.sessionTimeout)
	if shared {
		timing.Shared = true
		data, err := json.Marshal(timing)
		if err != nil {
			t.rollbackSession(ctx, session, boundToken)
			return "", domain.ErrInternal.WithCause(err)
		}
		if err := t.db.SetKeyValue(ctx, string(session), string(data)); err != nil {
			t.rollbackSession(ctx, session, boundToken)
			return "", t.storageErr(ctx, "set_key_value", err)
		}
	}

	sets := t.linkOwner(session, owner, hash)

	if boundToken != "" {
		t.unbind(boundToken)
		delete(t.transferable, boundToken)
		sets.Bounded.Add(boundToken)
		t.tokenToSession[boundToken] = session
		t.tokenToOwner[domain.TransitionKey(boundToken)] = owner
		t.cacheToken(boundToken, string(hash))
		t.metrics.TokenAdded()
	}

	t.sessionTiming[session] = timing
	delete(t.detached, session)
	t.metrics.SessionAdded()

	t.log(ctx).Debug("session added",
		"session", session,
		"owner", owner,
		"bound_token", boundToken,
		"shared", shared)

	if shared {
		return hash, nil
	}
	return "", nil
}

// linkOwner records owner and verifier for session and returns its token
// sets. A re-linked session keeps its tokens; a previous owner loses the link.
func (t *TokenTables) linkOwner(session domain.SessionToken, owner domain.Ucwid, hash domain.Hash) *domain.SessionTokenSets {
	if prev, ok := t.sessionToOwner[session]; ok && prev != owner {
		if t.ownerToSession[prev] == session {
			delete(t.ownerToSession, prev)
		}
	}
	t.sessionToOwner[session] = owner
	t.ownerToSession[owner] = session
	t.verifiers[session] = hash
	t.tokenToOwner[domain.SessionKey(session)] = owner

	sets, ok := t.sessionTokens[session]
	if !ok {
		sets = domain.NewSessionTokenSets()
		t.sessionTokens[session] = sets
	}
	return sets
}

// rollbackSession undoes the storage writes of a failed AddSession.
func (t *TokenTables) rollbackSession(ctx context.Context, session domain.SessionToken, boundToken domain.TransitionToken) {
	if boundToken != "" {
		if err := t.db.DelKeyValue(ctx, string(boundToken)); err != nil {
			_ = t.storageErr(ctx, "del_key_value", err)
		}
	}
	if _, err := t.db.DelSessionKeyValue(ctx, session); err != nil {
		_ = t.storageErr(ctx, "del_session_key_value", err)
	}
}

// ActiveSession asks the storage collaborator whether owner still matches the
// verifier recorded for session. Unknown sessions are inactive.
func (t *TokenTables) ActiveSession(ctx context.Context, session domain.SessionToken, owner domain.Ucwid) (bool, error) {
	hash, ok := t.verifiers[session]
	if !ok {
		return false, nil
	}
	active, err := t.db.CheckHash(ctx, hash, owner)
	if err != nil {
		return false, t.storageErr(ctx, "check_hash", err)
	}
	return active, nil
}

// ============================================================================
// Session Destroy Operation
// ============================================================================

// DestroySession ends the session that token is associated with.
// Unknown tokens are ignored.
func (t *TokenTables) DestroySession(ctx context.Context, token domain.TransitionToken) error {
	session, ok := t.tokenToSession[token]
	if !ok {
		return nil
	}
	return t.destroySession(ctx, session, ReasonExplicit)
}

// EndSession ends session directly by its session token.
// Unknown sessions are ignored.
func (t *TokenTables) EndSession(ctx context.Context, session domain.SessionToken) error {
	if !t.knownSession(session) {
		return nil
	}
	return t.destroySession(ctx, session, ReasonExplicit)
}

func (t *TokenTables) knownSession(session domain.SessionToken) bool {
	if _, ok := t.sessionTokens[session]; ok {
		return true
	}
	if _, ok := t.sessionTiming[session]; ok {
		return true
	}
	_, ok := t.verifiers[session]
	return ok
}

// destroySession removes every trace of session. Bounded tokens are
// destroyed, carried tokens become orphans. The in-memory mutation always
// completes; storage failures are joined into the returned error.
func (t *TokenTables) destroySession(ctx context.Context, session domain.SessionToken, reason string) error {
	var errs []error

	delete(t.detached, session)

	if owner, ok := t.sessionToOwner[session]; ok {
		if t.ownerToSession[owner] == session {
			delete(t.ownerToSession, owner)
		}
		delete(t.sessionToOwner, session)
	}
	delete(t.verifiers, session)
	delete(t.tokenToOwner, domain.SessionKey(session))

	if timing, ok := t.sessionTiming[session]; ok {
		delete(t.sessionTiming, session)
		if timing.Shared {
			if err := t.db.DelKeyValue(ctx, string(session)); err != nil {
				errs = append(errs, t.storageErr(ctx, "del_key_value", err))
			}
		}
	}

	if sets, ok := t.sessionTokens[session]; ok {
		for _, tok := range sets.Carried.Items() {
			t.orphan(tok)
		}
		for _, tok := range sets.Bounded.Items() {
			if err := t.destroyToken(ctx, tok, ReasonSession); err != nil {
				errs = append(errs, err)
			}
		}
		delete(t.sessionTokens, session)
	}

	if _, err := t.db.DelSessionKeyValue(ctx, session); err != nil {
		errs = append(errs, t.storageErr(ctx, "del_session_key_value", err))
	}

	t.metrics.SessionDestroyed(reason)
	t.log(ctx).Debug("session destroyed", "session", session, "reason", reason)

	return errors.Join(errs...)
}

// ============================================================================
// Session Detachment
// ============================================================================

// AllowSessionDetach permits the session to be detached later.
func (t *TokenTables) AllowSessionDetach(ctx context.Context, session domain.SessionToken) error {
	timing, ok := t.sessionTiming[session]
	if !ok {
		return nil
	}
	timing.DetachmentAllowed = true
	return t.persistSessionTiming(ctx, session, timing)
}

// DetachSession switches the session to its after-detachment countdown and
// lists it as detached. Sessions not allowed to detach are left unchanged.
func (t *TokenTables) DetachSession(ctx context.Context, session domain.SessionToken) error {
	timing, ok := t.sessionTiming[session]
	if !ok || !timing.DetachmentAllowed {
		return nil
	}
	timing.Detach()
	t.detached[session] = struct{}{}
	t.log(ctx).Debug("session detached", "session", session, "time_left", timing.TimeLeftAfterDetachment)
	return t.persistSessionTiming(ctx, session, timing)
}

// AttachSession switches the session back to its main countdown.
func (t *TokenTables) AttachSession(ctx context.Context, session domain.SessionToken) error {
	timing, ok := t.sessionTiming[session]
	if !ok {
		return nil
	}
	timing.Attach()
	delete(t.detached, session)
	return t.persistSessionTiming(ctx, session, timing)
}

// SetSessionDetachmentTimeout sets the after-detachment countdown of a
// session that is allowed to detach.
func (t *TokenTables) SetSessionDetachmentTimeout(ctx context.Context, session domain.SessionToken, d time.Duration) error {
	timing, ok := t.sessionTiming[session]
	if !ok || !timing.DetachmentAllowed {
		return nil
	}
	timing.TimeLeftAfterDetachment = max(d, 0)
	return t.persistSessionTiming(ctx, session, timing)
}

// persistSessionTiming mirrors a shared timing record to storage.
func (t *TokenTables) persistSessionTiming(ctx context.Context, session domain.SessionToken, timing *domain.SessionTimingInfo) error {
	if !timing.Shared {
		return nil
	}
	data, err := json.Marshal(timing)
	if err != nil {
		return domain.ErrInternal.WithCause(err)
	}
	if err := t.db.SetKeyValue(ctx, string(session), string(data)); err != nil {
		return t.storageErr(ctx, "set_key_value", err)
	}
	return nil
}

// ============================================================================
// Session Reload
// ============================================================================

// ReloadSessionInfo rebuilds a shared session's timing record, verifier and
// owner links from storage, typically in another process or after a restart. hash is
// the verifier returned by AddSession with shared set.
//
// It reports false when storage holds no record, hash is not the verifier
// stored for session, or owner does not match it.
// A malformed record returns ErrMalformedRecord and installs nothing.
func (t *TokenTables) ReloadSessionInfo(ctx context.Context, session domain.SessionToken, owner domain.Ucwid, hash domain.Hash) (bool, error) {
	data, ok, err := t.db.GetKeyValue(ctx, string(session))
	if err != nil {
		return false, t.storageErr(ctx, "get_key_value", err)
	}
	if !ok {
		return false, nil
	}

	stored, ok, err := t.db.SessionVerifier(ctx, session)
	if err != nil {
		return false, t.storageErr(ctx, "session_verifier", err)
	}
	if !ok || stored != hash {
		return false, nil
	}

	valid, err := t.db.CheckHash(ctx, hash, owner)
	if err != nil {
		return false, t.storageErr(ctx, "check_hash", err)
	}
	if !valid {
		return false, nil
	}

	timing, err := domain.ParseSessionTimingInfo(data)
	if err != nil {
		return false, err
	}

	t.sessionTiming[session] = timing
	t.linkOwner(session, owner, hash)
	if timing.IsDetached {
		t.detached[session] = struct{}{}
	} else {
		delete(t.detached, session)
	}

	t.log(ctx).Debug("session reloaded", "session", session)
	return true, nil
}
