package models

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// Records written by older versions use numeric millisecond ids, "Buy"/"Sell"
// directions and occasionally string results. The decoders below accept both
// shapes so old stores and backups keep loading.

// flexString decodes a JSON string or number into its string form.
func flexString(raw json.RawMessage) (string, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return "", nil
	}
	if raw[0] == '"' {
		var s string
		err := json.Unmarshal(raw, &s)
		return s, err
	}
	var n json.Number
	if err := json.Unmarshal(raw, &n); err != nil {
		return "", fmt.Errorf("expected string or number, got %s", raw)
	}
	return n.String(), nil
}

// flexFloat decodes a JSON number or numeric string.
func flexFloat(raw json.RawMessage) (float64, error) {
	s, err := flexString(raw)
	if err != nil || s == "" {
		return 0, err
	}
	var f float64
	if _, err := fmt.Sscan(s, &f); err != nil {
		return 0, fmt.Errorf("invalid number %q", s)
	}
	return f, nil
}

// UnmarshalJSON accepts legacy numeric ids, directions and string results.
func (t *Trade) UnmarshalJSON(b []byte) error {
	type plain Trade
	aux := struct {
		*plain
		ID        json.RawMessage `json:"id"`
		AccountID json.RawMessage `json:"account_id"`
		Direction string          `json:"direction"`
		Result    json.RawMessage `json:"result"`
	}{plain: (*plain)(t)}
	if err := json.Unmarshal(b, &aux); err != nil {
		return err
	}
	var err error
	if t.ID, err = flexString(aux.ID); err != nil {
		return fmt.Errorf("trade id: %w", err)
	}
	if t.AccountID, err = flexString(aux.AccountID); err != nil {
		return fmt.Errorf("trade account_id: %w", err)
	}
	if t.Result, err = flexFloat(aux.Result); err != nil {
		return fmt.Errorf("trade result: %w", err)
	}
	if d, ok := ParseDirection(aux.Direction); ok {
		t.Direction = d
	} else {
		t.Direction = Direction(aux.Direction)
	}
	return nil
}

// UnmarshalJSON accepts legacy numeric ids and string amounts.
func (w *Withdrawal) UnmarshalJSON(b []byte) error {
	type plain Withdrawal
	aux := struct {
		*plain
		ID     json.RawMessage `json:"id"`
		Amount json.RawMessage `json:"amount"`
	}{plain: (*plain)(w)}
	if err := json.Unmarshal(b, &aux); err != nil {
		return err
	}
	var err error
	if w.ID, err = flexString(aux.ID); err != nil {
		return fmt.Errorf("withdrawal id: %w", err)
	}
	if w.Amount, err = flexFloat(aux.Amount); err != nil {
		return fmt.Errorf("withdrawal amount: %w", err)
	}
	return nil
}

// UnmarshalJSON accepts legacy numeric ids and string sizes.
func (a *Account) UnmarshalJSON(b []byte) error {
	type plain Account
	aux := struct {
		*plain
		ID           json.RawMessage `json:"id"`
		Size         json.RawMessage `json:"size"`
		StartingSize json.RawMessage `json:"starting_size"`
	}{plain: (*plain)(a)}
	if err := json.Unmarshal(b, &aux); err != nil {
		return err
	}
	var err error
	if a.ID, err = flexString(aux.ID); err != nil {
		return fmt.Errorf("account id: %w", err)
	}
	if a.Size, err = flexFloat(aux.Size); err != nil {
		return fmt.Errorf("account size: %w", err)
	}
	if a.StartingSize, err = flexFloat(aux.StartingSize); err != nil {
		return fmt.Errorf("account starting_size: %w", err)
	}
	return nil
}
