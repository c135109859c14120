package models

// LedgerState is the complete persisted ledger: every account plus the
// display preferences that travel with it.
type LedgerState struct {
	Accounts        []Account                  `json:"accounts" yaml:"accounts"`
	ActiveAccountID string                     `json:"active_account_id" yaml:"active_account_id"`
	Preferences     map[string]OrderPreference `json:"preferences" yaml:"preferences"`
	DisplayMode     DisplayMode                `json:"display_mode" yaml:"display_mode"`
}

// Clone returns a deep copy of the state.
func (s LedgerState) Clone() LedgerState {
	c := LedgerState{
		ActiveAccountID: s.ActiveAccountID,
		DisplayMode:     s.DisplayMode,
		Accounts:        make([]Account, len(s.Accounts)),
		Preferences:     make(map[string]OrderPreference, len(s.Preferences)),
	}
	for i, a := range s.Accounts {
		c.Accounts[i] = a.Clone()
	}
	for k, p := range s.Preferences {
		c.Preferences[k] = OrderPreference{
			SortMode:    p.SortMode,
			ManualOrder: append([]string(nil), p.ManualOrder...),
		}
	}
	return c
}

// Account returns a pointer to the account with id, or nil.
func (s *LedgerState) Account(id string) *Account {
	for i := range s.Accounts {
		if s.Accounts[i].ID == id {
			return &s.Accounts[i]
		}
	}
	return nil
}
