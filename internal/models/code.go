package models

import "errors"

var (
	// ErrUpstreamUnavailable is returned when the upstream feed cannot be fetched.
	ErrUpstreamUnavailable = errors.New("upstream unavailable")
	// ErrStoreUnavailable is returned when the seen-set store cannot be read or written.
	ErrStoreUnavailable = errors.New("seen store unavailable")
	// ErrNotifyFailed is returned when a notification could not be delivered.
	ErrNotifyFailed = errors.New("notification failed")
	// ErrUnsupportedStore is returned for a store location with an unknown scheme.
	ErrUnsupportedStore = errors.New("unsupported store location")
)

// RawRecord is one upstream entry as decoded from JSON. It has no fixed schema.
type RawRecord map[string]any

// SanitizedCode is the validated, published shape of one SHiFT code.
type SanitizedCode struct {
	Code        string `json:"code" validate:"required,shiftcode"`
	Archived    string `json:"archived,omitempty"`
	ArchivedRaw string `json:"archivedRaw,omitempty"`
	Expires     string `json:"expires,omitempty"`
	ExpiresRaw  string `json:"expiresRaw,omitempty"`
	Expired     *bool  `json:"expired,omitempty"`
	Reward      string `json:"reward,omitempty"`
	Source      string `json:"source,omitempty"`
}

// Dataset is the published list of active codes.
type Dataset struct {
	UpdatedAt   string          `json:"updatedAt"`
	GeneratedAt string          `json:"generatedAt,omitempty"`
	Count       int             `json:"count"`
	Items       []SanitizedCode `json:"items"`
}

// Codes returns the code strings of the dataset in published order.
func (d *Dataset) Codes() []string {
	codes := make([]string, 0, len(d.Items))
	for _, item := range d.Items {
		codes = append(codes, item.Code)
	}
	return codes
}
