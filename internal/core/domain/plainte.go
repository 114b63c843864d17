package domain

import (
	"encoding/json"
	"strings"
	"time"

	apperrors "github.com/lorrc/complaint-desk-bff/internal/core/errors"
)

// Validation constants
const (
	MaxTitreLength   = 255
	MaxContenuLength = 10000
)

// Statut represents the lifecycle state of a complaint.
type Statut string

const (
	StatutRecu    Statut = "RECU"
	StatutEnCours Statut = "EN_COURS"
	StatutTraite  Statut = "TRAITE"
	StatutCloture Statut = "CLOTURE"
)

// statutOrder defines the lifecycle order. A complaint only moves forward.
var statutOrder = map[Statut]int{
	StatutRecu:    0,
	StatutEnCours: 1,
	StatutTraite:  2,
	StatutCloture: 3,
}

// IsValid checks if the statut is a known value
func (s Statut) IsValid() bool {
	_, ok := statutOrder[s]
	return ok
}

// CanTransitionTo reports whether a complaint in s may move to next.
func (s Statut) CanTransitionTo(next Statut) bool {
	from, ok := statutOrder[s]
	if !ok {
		return false
	}
	to, ok := statutOrder[next]
	if !ok {
		return false
	}
	return to > from
}

// Bucket returns the list view a complaint with this statut belongs to.
func (s Statut) Bucket() Bucket {
	switch s {
	case StatutRecu:
		return BucketEnAttente
	case StatutEnCours:
		return BucketEnCours
	default:
		return BucketTraitees
	}
}

// ParseStatut normalises the upstream spelling ("en_cours", "Traité"...).
func ParseStatut(value string) (Statut, error) {
	normalized := strings.ToUpper(strings.TrimSpace(value))
	normalized = strings.ReplaceAll(normalized, " ", "_")
	normalized = strings.NewReplacer("É", "E", "È", "E").Replace(normalized)

	s := Statut(normalized)
	if !s.IsValid() {
		return "", apperrors.ErrInvalidStatut
	}
	return s, nil
}

// Priorite represents the urgency of a complaint.
type Priorite string

const (
	PrioriteBasse    Priorite = "BASSE"
	PrioriteMoyenne  Priorite = "MOYENNE"
	PrioriteHaute    Priorite = "HAUTE"
	PrioriteCritique Priorite = "CRITIQUE"
)

// IsValid checks if the priorite is a known value
func (p Priorite) IsValid() bool {
	switch p {
	case PrioriteBasse, PrioriteMoyenne, PrioriteHaute, PrioriteCritique:
		return true
	default:
		return false
	}
}

// Bucket identifies one of the paginated complaint list views.
type Bucket string

const (
	BucketEnCours   Bucket = "en_cours"
	BucketTraitees  Bucket = "traitees"
	BucketEnAttente Bucket = "en_attente"
)

// Buckets lists every paginated view in display order.
var Buckets = []Bucket{BucketEnCours, BucketTraitees, BucketEnAttente}

// IsValid checks if the bucket is a known view
func (b Bucket) IsValid() bool {
	switch b {
	case BucketEnCours, BucketTraitees, BucketEnAttente:
		return true
	default:
		return false
	}
}

// UpstreamStatus is the path segment the upstream API uses for the bucket.
func (b Bucket) UpstreamStatus() string {
	if b == BucketTraitees {
		return "traite"
	}
	return string(b)
}

// Plainte is a patient complaint as returned by the upstream API.
type Plainte struct {
	ID                int64      `json:"id" validate:"gt=0"`
	PlainteID         string     `json:"plainte_id,omitempty"`
	Titre             string     `json:"titre" validate:"required"`
	Contenu           string     `json:"contenu"`
	Description       string     `json:"description,omitempty"`
	Service           string     `json:"service"`
	Priorite          Priorite   `json:"priorite"`
	Statut            Statut     `json:"statut"`
	DateCreation      time.Time  `json:"date_creation"`
	DateLimiteReponse *time.Time `json:"date_limite_reponse,omitempty"`
	NomPatient        string     `json:"nom_patient,omitempty"`
	EmailPatient      string     `json:"email_patient,omitempty"`
	TelephonePatient  string     `json:"telephone_patient,omitempty"`
}

// UnmarshalJSON accepts both "statut" and "status", and falls back to
// "description" when "contenu" is missing.
func (p *Plainte) UnmarshalJSON(data []byte) error {
	type plainteAlias Plainte
	aux := struct {
		*plainteAlias
		Statut string `json:"statut"`
		Status string `json:"status"`
	}{plainteAlias: (*plainteAlias)(p)}

	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}

	raw := aux.Statut
	if raw == "" {
		raw = aux.Status
	}
	if raw != "" {
		statut, err := ParseStatut(raw)
		if err != nil {
			return err
		}
		p.Statut = statut
	}

	p.Priorite = Priorite(strings.ToUpper(strings.TrimSpace(string(p.Priorite))))

	if p.Contenu == "" {
		p.Contenu = p.Description
	}
	return nil
}

// IsOverdue reports whether the response deadline has passed for an open complaint.
func (p *Plainte) IsOverdue(now time.Time) bool {
	if p.DateLimiteReponse == nil {
		return false
	}
	if p.Statut == StatutTraite || p.Statut == StatutCloture {
		return false
	}
	return now.After(*p.DateLimiteReponse)
}

// PlainteInput carries the fields accepted when creating or updating a complaint.
type PlainteInput struct {
	Titre            string   `json:"titre"`
	Contenu          string   `json:"contenu"`
	Service          string   `json:"service"`
	Priorite         Priorite `json:"priorite"`
	Statut           Statut   `json:"statut,omitempty"`
	NomPatient       string   `json:"nom_patient,omitempty"`
	EmailPatient     string   `json:"email_patient,omitempty"`
	TelephonePatient string   `json:"telephone_patient,omitempty"`
}

// Validate enforces the rules the complaint form applies before submitting.
func (in PlainteInput) Validate() error {
	titre := strings.TrimSpace(in.Titre)
	if titre == "" {
		return apperrors.ErrTitreRequired
	}
	if len(titre) > MaxTitreLength {
		return apperrors.ErrTitreTooLong
	}
	if strings.TrimSpace(in.Contenu) == "" {
		return apperrors.ErrContenuRequired
	}
	if strings.TrimSpace(in.Service) == "" {
		return apperrors.ErrServiceRequired
	}
	if in.Priorite != "" && !in.Priorite.IsValid() {
		return apperrors.ErrInvalidPriorite
	}
	if in.Statut != "" && !in.Statut.IsValid() {
		return apperrors.ErrInvalidStatut
	}
	return nil
}

// PlaintePage is one page of a complaint bucket.
type PlaintePage struct {
	Plaintes []Plainte `json:"plaintes" validate:"dive"`
	Total    int64     `json:"total" validate:"gte=0"`
	Page     int       `json:"page"`
	Limit    int       `json:"limit"`
}
