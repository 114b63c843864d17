package domain

// Periode is the time window of the trends view.
type Periode string

const (
	Periode7j  Periode = "7j"
	Periode30j Periode = "30j"
	Periode90j Periode = "90j"
)

// DefaultPeriode is used when a view does not pick a window.
const DefaultPeriode = Periode30j

// IsValid checks if the periode is one of the supported windows
func (p Periode) IsValid() bool {
	switch p {
	case Periode7j, Periode30j, Periode90j:
		return true
	default:
		return false
	}
}

// Tendances holds the time-bucketed series for one periode.
type Tendances struct {
	Periode      Periode            `json:"periode" validate:"required"`
	Volume       map[string]int64   `json:"volume"`
	Satisfaction map[string]float64 `json:"satisfaction"`
	Priorites    map[Priorite]int64 `json:"priorites"`
}

// Clone returns a deep copy of the series.
func (t *Tendances) Clone() *Tendances {
	if t == nil {
		return nil
	}
	out := &Tendances{Periode: t.Periode}
	if t.Volume != nil {
		out.Volume = make(map[string]int64, len(t.Volume))
		for k, v := range t.Volume {
			out.Volume[k] = v
		}
	}
	if t.Satisfaction != nil {
		out.Satisfaction = make(map[string]float64, len(t.Satisfaction))
		for k, v := range t.Satisfaction {
			out.Satisfaction[k] = v
		}
	}
	if t.Priorites != nil {
		out.Priorites = make(map[Priorite]int64, len(t.Priorites))
		for k, v := range t.Priorites {
			out.Priorites[k] = v
		}
	}
	return out
}
