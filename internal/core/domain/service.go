package domain

import (
	"net/mail"
	"strings"

	apperrors "github.com/lorrc/complaint-desk-bff/internal/core/errors"
)

const (
	MaxNomLength   = 255
	MaxEmailLength = 255
)

// Service is a hospital department complaints are routed to.
type Service struct {
	ID             int64  `json:"id"`
	Nom            string `json:"nom" validate:"required"`
	Description    string `json:"description,omitempty"`
	Responsable    string `json:"responsable,omitempty"`
	Email          string `json:"email,omitempty"`
	Actif          bool   `json:"actif"`
	OrganisationID string `json:"organisation_id,omitempty"`
}

// IsNew reports whether the service has not been created upstream yet.
func (s *Service) IsNew() bool {
	return s.ID == 0
}

// Validate checks the fields the service form requires.
func (s *Service) Validate() error {
	errs := apperrors.NewValidationErrors()

	nom := strings.TrimSpace(s.Nom)
	if nom == "" {
		errs.Add("nom", "Le nom est obligatoire")
	} else if len(nom) > MaxNomLength {
		errs.Add("nom", "Le nom doit contenir 255 caractères au maximum")
	}

	if s.Email != "" && !isValidEmail(s.Email) {
		errs.Add("email", "Format d'email invalide")
	}

	if errs.HasErrors() {
		return errs
	}
	return nil
}

// Role is the access level of a staff user.
type Role string

const (
	RoleAdmin        Role = "admin"
	RoleGestionnaire Role = "gestionnaire"
	RoleAgent        Role = "agent"
)

// IsValid checks if the role is a known value
func (r Role) IsValid() bool {
	switch r {
	case RoleAdmin, RoleGestionnaire, RoleAgent:
		return true
	default:
		return false
	}
}

// Utilisateur is a staff member with access to the complaint desk.
type Utilisateur struct {
	ID             int64  `json:"id"`
	Nom            string `json:"nom" validate:"required"`
	Prenom         string `json:"prenom,omitempty"`
	Email          string `json:"email" validate:"required"`
	Role           Role   `json:"role,omitempty"`
	Service        string `json:"service,omitempty"`
	Actif          bool   `json:"actif"`
	OrganisationID string `json:"organisation_id,omitempty"`
}

// IsNew reports whether the user has not been created upstream yet.
func (u *Utilisateur) IsNew() bool {
	return u.ID == 0
}

// Validate checks the fields the user form requires.
func (u *Utilisateur) Validate() error {
	errs := apperrors.NewValidationErrors()

	nom := strings.TrimSpace(u.Nom)
	if nom == "" {
		errs.Add("nom", "Le nom est obligatoire")
	} else if len(nom) > MaxNomLength {
		errs.Add("nom", "Le nom doit contenir 255 caractères au maximum")
	}

	email := strings.TrimSpace(u.Email)
	if email == "" {
		errs.Add("email", "L'email est obligatoire")
	} else if len(email) > MaxEmailLength {
		errs.Add("email", "L'email doit contenir 255 caractères au maximum")
	} else if !isValidEmail(email) {
		errs.Add("email", "Format d'email invalide")
	}

	if u.Role != "" && !u.Role.IsValid() {
		errs.Add("role", "Rôle inconnu")
	}

	if errs.HasErrors() {
		return errs
	}
	return nil
}

// isValidEmail validates email format
func isValidEmail(email string) bool {
	_, err := mail.ParseAddress(email)
	return err == nil
}
