package domain

import (
	"sort"
	"time"
)

// SuggestionType discriminates what an AI suggestion proposes.
type SuggestionType string

const (
	SuggestionClassification SuggestionType = "classification"
	SuggestionContact        SuggestionType = "contact"
	SuggestionReponse        SuggestionType = "reponse"
	SuggestionAction         SuggestionType = "action"
	SuggestionMotsCles       SuggestionType = "mots_cles"
	SuggestionPriorite       SuggestionType = "priorite"
)

// IsValid checks if the suggestion type is a known value
func (t SuggestionType) IsValid() bool {
	switch t {
	case SuggestionClassification, SuggestionContact, SuggestionReponse,
		SuggestionAction, SuggestionMotsCles, SuggestionPriorite:
		return true
	default:
		return false
	}
}

// SuggestionIA is one AI-generated suggestion attached to a complaint.
type SuggestionIA struct {
	ID           int64          `json:"id" validate:"gt=0"`
	PlainteID    int64          `json:"plainte_id"`
	Service      string         `json:"service"`
	Type         SuggestionType `json:"type" validate:"required"`
	Contenu      string         `json:"contenu"`
	Confiance    float64        `json:"confiance" validate:"gte=0,lte=1"`
	Approuvee    bool           `json:"approuvee"`
	Utilisee     bool           `json:"utilisee"`
	DateCreation time.Time      `json:"date_creation"`
}

// ServiceSuggestion aggregates the suggestions of one hospital service.
type ServiceSuggestion struct {
	Service          string                            `json:"service"`
	Total            int                               `json:"total"`
	Approuvees       int                               `json:"approuvees"`
	Utilisees        int                               `json:"utilisees"`
	ConfianceMoyenne float64                           `json:"confiance_moyenne"`
	ParType          map[SuggestionType][]SuggestionIA `json:"par_type"`
}

// Clone returns a deep copy of the aggregate.
func (s ServiceSuggestion) Clone() ServiceSuggestion {
	out := s
	out.ParType = make(map[SuggestionType][]SuggestionIA, len(s.ParType))
	for t, items := range s.ParType {
		out.ParType[t] = append([]SuggestionIA(nil), items...)
	}
	return out
}

// UnassignedService is the bucket used for suggestions without a service.
const UnassignedService = "Non assigné"

// GroupSuggestionsParService builds the per-service aggregates. Services are
// sorted by name; inside each type bucket the input order is kept.
func GroupSuggestionsParService(suggestions []SuggestionIA) []ServiceSuggestion {
	groups := make(map[string]*ServiceSuggestion)
	confianceSum := make(map[string]float64)

	for _, sug := range suggestions {
		name := sug.Service
		if name == "" {
			name = UnassignedService
		}

		group, ok := groups[name]
		if !ok {
			group = &ServiceSuggestion{
				Service: name,
				ParType: make(map[SuggestionType][]SuggestionIA),
			}
			groups[name] = group
		}

		group.Total++
		if sug.Approuvee {
			group.Approuvees++
		}
		if sug.Utilisee {
			group.Utilisees++
		}
		confianceSum[name] += sug.Confiance
		group.ParType[sug.Type] = append(group.ParType[sug.Type], sug)
	}

	out := make([]ServiceSuggestion, 0, len(groups))
	for name, group := range groups {
		if group.Total > 0 {
			group.ConfianceMoyenne = confianceSum[name] / float64(group.Total)
		}
		out = append(out, *group)
	}

	sort.Slice(out, func(i, j int) bool {
		return out[i].Service < out[j].Service
	})
	return out
}
