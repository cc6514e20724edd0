// Package service provides the token/session table engine.
package service

import (
	"context"

	"github.com/yndnr/tokentables/internal/core/domain"
)

// ============================================================================
// Token Operations
// ============================================================================

// AddToken stores value under token, caches it and installs a fresh timing
// record. Strings are stored verbatim; other values are JSON encoded.
// Ownership and transferability are left to the caller.
func (t *TokenTables) AddToken(ctx context.Context, token domain.TransitionToken, value any) error {
	if token == "" {
		return domain.ErrMissingArgument.WithDetails("token is required")
	}
	encoded, err := domain.EncodeValue(value)
	if err != nil {
		return err
	}
	if err := t.storeToken(ctx, token, encoded); err != nil {
		return err
	}
	t.cacheToken(token, encoded)
	t.metrics.TokenAdded()
	return nil
}

// TransitionTokenIsActive returns the token's stored value, consulting the
// cache first and the storage collaborator on a miss. A storage hit is
// backfilled into the cache. ok is false when neither knows the token.
func (t *TokenTables) TransitionTokenIsActive(ctx context.Context, token domain.TransitionToken) (value string, ok bool, err error) {
	if token == "" {
		return "", false, nil
	}
	if v, ok := t.tokenValues[token]; ok {
		return v, true, nil
	}

	v, ok, err := t.db.GetKeyValue(ctx, string(token))
	if err != nil {
		return "", false, t.storageErr(ctx, "get_key_value", err)
	}
	if !ok {
		return "", false, nil
	}

	t.tokenValues[token] = v
	if _, ok := t.tokenTiming[token]; !ok {
		t.tokenTiming[token] = domain.NewTokenTimingInfo(t.tokenTimeout)
	}
	return v, true, nil
}

// DestroyToken removes the token from its session's sets, leaving the
// session alive, and erases every record of it, including storage.
func (t *TokenTables) DestroyToken(ctx context.Context, token domain.TransitionToken) error {
	return t.destroyToken(ctx, token, ReasonExplicit)
}

func (t *TokenTables) destroyToken(ctx context.Context, token domain.TransitionToken, reason string) error {
	if session, ok := t.tokenToSession[token]; ok {
		if sets, ok := t.sessionTokens[session]; ok {
			sets.Remove(token)
		}
	}

	_, known := t.tokenValues[token]
	delete(t.tokenValues, token)
	delete(t.tokenToOwner, domain.TransitionKey(token))
	t.orphans.Remove(token)
	delete(t.tokenTiming, token)
	delete(t.transferable, token)
	delete(t.tokenToSession, token)

	if known {
		t.metrics.TokenDestroyed(reason)
	}
	t.log(ctx).Debug("token destroyed", "token", token, "reason", reason)

	if err := t.db.DelKeyValue(ctx, string(token)); err != nil {
		return t.storageErr(ctx, "del_key_value", err)
	}
	return nil
}

// FromToken returns the owner of token, or "" when it is unowned.
// Use LookupOwner to tell an unowned token from an empty owner.
func (t *TokenTables) FromToken(token domain.TransitionToken) domain.Ucwid {
	owner, _ := t.LookupOwner(domain.TransitionKey(token))
	return owner
}

// LookupOwner queries the global owner index for either token class.
func (t *TokenTables) LookupOwner(key domain.Token) (domain.Ucwid, bool) {
	owner, ok := t.tokenToOwner[key]
	return owner, ok
}

// ReloadTokenInfo rebuilds a token's cached value and timing record from
// storage. When the value is a transfer object naming an owner, its transfer
// metadata and owner index entry are rebuilt too; the token stays unbound
// until acquired.
//
// It reports false when storage holds no value. A transfer object with
// malformed fields returns ErrMalformedRecord and installs nothing.
func (t *TokenTables) ReloadTokenInfo(ctx context.Context, token domain.TransitionToken) (bool, error) {
	data, ok, err := t.db.GetKeyValue(ctx, string(token))
	if err != nil {
		return false, t.storageErr(ctx, "get_key_value", err)
	}
	if !ok {
		return false, nil
	}

	var info *domain.TransferableTokenInfo
	if tv, err := domain.ParseTransferValue(data); err == nil {
		if owner, ok := tv.Owner(); ok {
			info, err = tv.Info(owner)
			if err != nil {
				return false, err
			}
		}
	}

	t.tokenValues[token] = data
	if _, ok := t.tokenTiming[token]; !ok {
		timing := domain.NewTokenTimingInfo(t.tokenTimeout)
		timing.DetachmentAllowed = info != nil
		t.tokenTiming[token] = timing
	}
	if info != nil {
		t.transferable[token] = info
		t.tokenToOwner[domain.TransitionKey(token)] = info.Owner
	}

	t.log(ctx).Debug("token reloaded", "token", token, "transferable", info != nil)
	return true, nil
}

// storeToken writes a token value to storage.
func (t *TokenTables) storeToken(ctx context.Context, token domain.TransitionToken, value string) error {
	if err := t.db.SetKeyValue(ctx, string(token), value); err != nil {
		return t.storageErr(ctx, "set_key_value", err)
	}
	return nil
}

// cacheToken caches a value and installs a fresh timing record.
func (t *TokenTables) cacheToken(token domain.TransitionToken, value string) {
	t.tokenValues[token] = value
	t.tokenTiming[token] = domain.NewTokenTimingInfo(t.tokenTimeout)
}

// unbind detaches token from any session set and the orphan set without
// touching its value, timing or owner.
func (t *TokenTables) unbind(token domain.TransitionToken) {
	if session, ok := t.tokenToSession[token]; ok {
		if sets, ok := t.sessionTokens[session]; ok {
			sets.Remove(token)
		}
		delete(t.tokenToSession, token)
	}
	t.orphans.Remove(token)
}

// orphan moves a carried token out of its dying session. Its value, timing,
// owner and transfer metadata are kept. A token allowed to detach with an
// after-detachment time starts that countdown.
func (t *TokenTables) orphan(token domain.TransitionToken) {
	delete(t.tokenToSession, token)
	t.orphans.Add(token)
	if timing, ok := t.tokenTiming[token]; ok && timing.DetachmentAllowed && timing.TimeLeftAfterDetachment > 0 {
		timing.Detach()
	}
	t.metrics.TokenOrphaned()
}
