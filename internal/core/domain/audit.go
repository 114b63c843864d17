package domain

import "time"

// AuditEntry is one line of the upstream audit log.
type AuditEntry struct {
	ID          int64          `json:"id" validate:"gt=0"`
	Action      string         `json:"action" validate:"required"`
	ObjetType   string         `json:"objet_type"`
	ObjetID     string         `json:"objet_id,omitempty"`
	Utilisateur string         `json:"utilisateur,omitempty"`
	Details     map[string]any `json:"details,omitempty"`
	Date        time.Time      `json:"date"`
}

// AuditFilter narrows the audit log query.
type AuditFilter struct {
	Action    string `json:"action,omitempty"`
	ObjetType string `json:"objet_type,omitempty"`
	Limit     int    `json:"limit"`
	Skip      int    `json:"skip"`
}

const (
	DefaultAuditLimit = 50
	MaxAuditLimit     = 500
)

// Normalize applies the default page size and clamps out-of-range values.
func (f AuditFilter) Normalize() AuditFilter {
	if f.Limit <= 0 {
		f.Limit = DefaultAuditLimit
	}
	if f.Limit > MaxAuditLimit {
		f.Limit = MaxAuditLimit
	}
	if f.Skip < 0 {
		f.Skip = 0
	}
	return f
}

// AuditPage is one page of the audit log.
type AuditPage struct {
	Logs   []AuditEntry `json:"logs" validate:"dive"`
	Total  int64        `json:"total" validate:"gte=0"`
	Filter AuditFilter  `json:"filter"`
}
