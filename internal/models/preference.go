package models

// OrderPreference is the per-account display ordering choice.
type OrderPreference struct {
	SortMode    string   `json:"sort_mode" yaml:"sort_mode"`
	ManualOrder []string `json:"manual_order,omitempty" yaml:"manual_order,omitempty"`
}
