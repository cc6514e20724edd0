// Package domain defines the core domain models for tokentables.
package domain

import (
	"encoding/json"
)

// Persisted field names of a transferable token value.
const (
	fieldSellable = "_sellable"
	fieldPrice    = "_price"
	fieldOwner    = "_owner"
)

// TransferableTokenInfo describes a carried token that may change hands.
// A token is transferable exactly when it has one of these records.
type TransferableTokenInfo struct {
	Sellable bool    `json:"_sellable"`
	Price    float64 `json:"_price"`
	Owner    Ucwid   `json:"_owner"`
}

// NewTransferableTokenInfo creates a record owned by owner, not for sale.
func NewTransferableTokenInfo(owner Ucwid) *TransferableTokenInfo {
	return &TransferableTokenInfo{Owner: owner}
}

// TransferValue is the decoded value of a transferable token: the caller's
// JSON object, whose transfer fields populate a TransferableTokenInfo.
// Unknown fields are preserved.
type TransferValue struct {
	fields map[string]json.RawMessage
}

// ParseTransferValue decodes a JSON object value.
func ParseTransferValue(value string) (*TransferValue, error) {
	fields := make(map[string]json.RawMessage)
	if err := json.Unmarshal([]byte(value), &fields); err != nil {
		return nil, ErrMalformedRecord.WithDetails("transferable token value").WithCause(err)
	}
	if fields == nil {
		// JSON null
		fields = make(map[string]json.RawMessage)
	}
	return &TransferValue{fields: fields}, nil
}

// Info builds a TransferableTokenInfo for owner, overlaying any transfer
// fields present in the value. The owner argument always wins.
func (v *TransferValue) Info(owner Ucwid) (*TransferableTokenInfo, error) {
	info := NewTransferableTokenInfo(owner)
	if raw, ok := v.fields[fieldSellable]; ok {
		if err := json.Unmarshal(raw, &info.Sellable); err != nil {
			return nil, ErrMalformedRecord.WithDetails("_sellable").WithCause(err)
		}
	}
	if raw, ok := v.fields[fieldPrice]; ok {
		if err := json.Unmarshal(raw, &info.Price); err != nil {
			return nil, ErrMalformedRecord.WithDetails("_price").WithCause(err)
		}
	}
	return info, nil
}

// Owner returns the owner named by the value, if any.
func (v *TransferValue) Owner() (Ucwid, bool) {
	raw, ok := v.fields[fieldOwner]
	if !ok {
		return "", false
	}
	var owner Ucwid
	if err := json.Unmarshal(raw, &owner); err != nil {
		return "", false
	}
	return owner, true
}

// Encode renders the value with the info's fields written in.
func (v *TransferValue) Encode(info *TransferableTokenInfo) (string, error) {
	out := make(map[string]json.RawMessage, len(v.fields)+3)
	for k, raw := range v.fields {
		out[k] = raw
	}
	var err error
	if out[fieldSellable], err = json.Marshal(info.Sellable); err != nil {
		return "", err
	}
	if out[fieldPrice], err = json.Marshal(info.Price); err != nil {
		return "", err
	}
	if out[fieldOwner], err = json.Marshal(info.Owner); err != nil {
		return "", err
	}
	data, err := json.Marshal(out)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

// EncodeValue renders a token value for storage. Strings are kept verbatim;
// anything else is JSON encoded.
func EncodeValue(value any) (string, error) {
	switch v := value.(type) {
	case string:
		return v, nil
	case []byte:
		return string(v), nil
	case json.RawMessage:
		return string(v), nil
	}
	data, err := json.Marshal(value)
	if err != nil {
		return "", ErrInvalidArgument.WithDetails("value is not serializable").WithCause(err)
	}
	return string(data), nil
}
