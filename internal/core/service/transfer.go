// Package service provides the token/session table engine.
package service

import (
	"context"

	"github.com/yndnr/tokentables/internal/core/domain"
)

// ============================================================================
// Transfer Protocol
// ============================================================================

// AddTransferableToken adds token to the carried set of owner's session and
// makes it transferable. value must encode a JSON object; its _sellable and
// _price fields seed the transfer metadata and _owner is rewritten to owner
// in the stored value.
//
// Owners without a session are ignored.
func (t *TokenTables) AddTransferableToken(ctx context.Context, token domain.TransitionToken, value any, owner domain.Ucwid) error {
	session, ok := t.ownerToSession[owner]
	if !ok || token == "" {
		return nil
	}
	if _, ok := t.sessionTokens[session]; !ok {
		return nil
	}

	encoded, err := domain.EncodeValue(value)
	if err != nil {
		return err
	}
	tv, err := domain.ParseTransferValue(encoded)
	if err != nil {
		return domain.ErrInvalidArgument.WithDetails("transferable value must be a JSON object").WithCause(err)
	}
	info, err := tv.Info(owner)
	if err != nil {
		return domain.ErrInvalidArgument.WithDetails("transferable value fields").WithCause(err)
	}

	if err := t.registerCarried(ctx, token, session, tv, info); err != nil {
		return err
	}
	t.metrics.TokenAdded()
	t.log(ctx).Debug("transferable token added", "token", token, "owner", owner)
	return nil
}

// AddSessionBoundedToken adds token to the bounded set of owner's session.
// Bounded tokens are destroyed with their session and never transferable.
//
// Owners without a session are ignored.
func (t *TokenTables) AddSessionBoundedToken(ctx context.Context, token domain.TransitionToken, value any, owner domain.Ucwid) error {
	session, ok := t.ownerToSession[owner]
	if !ok || token == "" {
		return nil
	}
	sets, ok := t.sessionTokens[session]
	if !ok {
		return nil
	}

	encoded, err := domain.EncodeValue(value)
	if err != nil {
		return err
	}
	if err := t.storeToken(ctx, token, encoded); err != nil {
		return err
	}

	t.unbind(token)
	delete(t.transferable, token)
	sets.Bounded.Add(token)
	t.tokenToSession[token] = session
	t.tokenToOwner[domain.TransitionKey(token)] = owner
	t.cacheToken(token, encoded)

	t.metrics.TokenAdded()
	t.log(ctx).Debug("bounded token added", "token", token, "owner", owner)
	return nil
}

// TokenIsTransferable reports whether token has transfer metadata.
func (t *TokenTables) TokenIsTransferable(token domain.TransitionToken) bool {
	_, ok := t.transferable[token]
	return ok
}

// AcquireToken binds an active token, possibly known only to storage, to
// session as a carried token owned by owner. It is taken from any previous
// session or the orphan set. It reports whether the token was active.
//
// Unknown sessions are ignored. A stored value that is not a transfer
// object returns ErrMalformedRecord and changes nothing.
func (t *TokenTables) AcquireToken(ctx context.Context, token domain.TransitionToken, session domain.SessionToken, owner domain.Ucwid) (bool, error) {
	if _, ok := t.sessionTokens[session]; !ok {
		return false, nil
	}

	value, ok, err := t.TransitionTokenIsActive(ctx, token)
	if err != nil || !ok {
		return false, err
	}

	tv, err := domain.ParseTransferValue(value)
	if err != nil {
		return false, err
	}
	info, err := tv.Info(owner)
	if err != nil {
		return false, err
	}

	if err := t.registerCarried(ctx, token, session, tv, info); err != nil {
		return false, err
	}
	t.log(ctx).Debug("token acquired", "token", token, "session", session, "owner", owner)
	return true, nil
}

// TransferToken hands a transferable token from yielder to receiver.
//
// The receiver must have a session. Unless the token is orphaned, the
// yielder must have a session carrying it. When either condition fails, or
// the token is not transferable, nothing changes. A transferred token ends
// in the receiver's carried set with a fresh timing record, owned by the
// receiver and no longer listed for sale.
func (t *TokenTables) TransferToken(ctx context.Context, token domain.TransitionToken, yielder, receiver domain.Ucwid) error {
	info, ok := t.transferable[token]
	if !ok {
		return nil
	}
	receiverSession, ok := t.ownerToSession[receiver]
	if !ok {
		return nil
	}
	if _, ok := t.sessionTokens[receiverSession]; !ok {
		return nil
	}

	if !t.orphans.Has(token) {
		yielderSession, ok := t.ownerToSession[yielder]
		if !ok {
			return nil
		}
		sets, ok := t.sessionTokens[yielderSession]
		if !ok || !sets.Carried.Has(token) {
			return nil
		}
	}

	value, ok, err := t.TransitionTokenIsActive(ctx, token)
	if err != nil || !ok {
		return err
	}
	tv, err := domain.ParseTransferValue(value)
	if err != nil {
		return err
	}

	next := &domain.TransferableTokenInfo{
		Sellable: false,
		Price:    info.Price,
		Owner:    receiver,
	}
	if err := t.registerCarried(ctx, token, receiverSession, tv, next); err != nil {
		return err
	}

	t.metrics.TokenTransferred()
	t.log(ctx).Debug("token transferred",
		"token", token,
		"yielder", yielder,
		"receiver", receiver)
	return nil
}

// registerCarried stores the value with info written in, then binds token
// to session's carried set under info.Owner. Storage is written first; on
// failure nothing in memory changes.
func (t *TokenTables) registerCarried(ctx context.Context, token domain.TransitionToken, session domain.SessionToken, tv *domain.TransferValue, info *domain.TransferableTokenInfo) error {
	stored, err := tv.Encode(info)
	if err != nil {
		return domain.ErrInternal.WithCause(err)
	}
	if err := t.storeToken(ctx, token, stored); err != nil {
		return err
	}

	t.unbind(token)
	t.sessionTokens[session].Carried.Add(token)
	t.tokenToSession[token] = session
	t.tokenToOwner[domain.TransitionKey(token)] = info.Owner
	t.transferable[token] = info
	t.cacheToken(token, stored)
	t.tokenTiming[token].DetachmentAllowed = true
	return nil
}
