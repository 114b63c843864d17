package domain

import "time"

// ServiceCount is the number of complaints attached to one hospital service.
type ServiceCount struct {
	Service string `json:"service" validate:"required"`
	Count   int64  `json:"count" validate:"gte=0"`
}

// Alertes are the dashboard warning flags computed by the upstream.
type Alertes struct {
	PlaintesEnRetard  int64 `json:"plaintes_en_retard"`
	PlaintesCritiques int64 `json:"plaintes_critiques"`
	SeuilDepasse      bool  `json:"seuil_depasse"`
}

// Statistiques is the aggregate dashboard snapshot. It is immutable once
// fetched and replaced wholesale on every refresh.
type Statistiques struct {
	TotalPlaintes     int64              `json:"total_plaintes" validate:"gte=0"`
	PlaintesEnCours   int64              `json:"plaintes_en_cours" validate:"gte=0"`
	PlaintesTraitees  int64              `json:"plaintes_traitees" validate:"gte=0"`
	PlaintesEnAttente int64              `json:"plaintes_en_attente" validate:"gte=0"`
	TauxResolution    float64            `json:"taux_resolution" validate:"gte=0,lte=100"`
	DelaiMoyenHeures  float64            `json:"delai_moyen_heures" validate:"gte=0"`
	ParService        []ServiceCount     `json:"par_service" validate:"dive"`
	ParPriorite       map[Priorite]int64 `json:"par_priorite"`
	Alertes           Alertes            `json:"alertes"`
	DerniereMiseAJour time.Time          `json:"derniere_mise_a_jour"`
}

// Clone returns a deep copy so snapshots never share maps or slices with the store.
func (s *Statistiques) Clone() *Statistiques {
	if s == nil {
		return nil
	}
	out := *s
	if s.ParService != nil {
		out.ParService = append([]ServiceCount(nil), s.ParService...)
	}
	if s.ParPriorite != nil {
		out.ParPriorite = make(map[Priorite]int64, len(s.ParPriorite))
		for k, v := range s.ParPriorite {
			out.ParPriorite[k] = v
		}
	}
	return &out
}
