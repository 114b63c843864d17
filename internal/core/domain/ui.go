package domain

// Panel names one of the editing surfaces of the UI.
type Panel string

const (
	PanelServiceConfig Panel = "serviceConfig"
	PanelUserConfig    Panel = "userConfig"
	PanelExportModal   Panel = "exportModal"
	PanelPlainteModal  Panel = "plainteModal"
)

// IsValid checks if the panel is a known surface
func (p Panel) IsValid() bool {
	switch p {
	case PanelServiceConfig, PanelUserConfig, PanelExportModal, PanelPlainteModal:
		return true
	default:
		return false
	}
}

// ServiceConfigPanel is the service editor. A nil EditingService means create mode.
type ServiceConfigPanel struct {
	IsOpen         bool     `json:"isOpen"`
	EditingService *Service `json:"editingService"`
	OrganisationID *string  `json:"organisationId"`
}

// UserConfigPanel is the user editor. A nil EditingUser means create mode.
type UserConfigPanel struct {
	IsOpen         bool         `json:"isOpen"`
	EditingUser    *Utilisateur `json:"editingUser"`
	OrganisationID *string      `json:"organisationId"`
}

// ExportModal is the export dialog.
type ExportModal struct {
	IsOpen bool   `json:"isOpen"`
	Format string `json:"format"`
}

// PlainteModal is the complaint creation dialog.
type PlainteModal struct {
	IsOpen         bool   `json:"isOpen"`
	DefaultService string `json:"defaultService"`
}

// AllServices is the selectedService marker while every file is processed.
const AllServices = "*"

// DefaultActiveTab is the tab shown to a user without saved preferences.
const DefaultActiveTab = "dashboard"

// UIState is the presentation slice of the store.
type UIState struct {
	ServiceConfig    ServiceConfigPanel `json:"serviceConfig"`
	UserConfig       UserConfigPanel    `json:"userConfig"`
	ExportModal      ExportModal        `json:"exportModal"`
	PlainteModal     PlainteModal       `json:"plainteModal"`
	SelectedService  string             `json:"selectedService"`
	ActiveTab        string             `json:"activeTab"`
	ExpandedSections map[string]bool    `json:"expandedSections"`
}

// NewUIState returns the state of a freshly opened application.
func NewUIState() UIState {
	return UIState{
		ActiveTab:        DefaultActiveTab,
		ExpandedSections: make(map[string]bool),
	}
}

// Clone returns a deep copy of the UI slice.
func (u UIState) Clone() UIState {
	out := u
	if u.ServiceConfig.EditingService != nil {
		svc := *u.ServiceConfig.EditingService
		out.ServiceConfig.EditingService = &svc
	}
	if u.ServiceConfig.OrganisationID != nil {
		org := *u.ServiceConfig.OrganisationID
		out.ServiceConfig.OrganisationID = &org
	}
	if u.UserConfig.EditingUser != nil {
		user := *u.UserConfig.EditingUser
		out.UserConfig.EditingUser = &user
	}
	if u.UserConfig.OrganisationID != nil {
		org := *u.UserConfig.OrganisationID
		out.UserConfig.OrganisationID = &org
	}
	out.ExpandedSections = make(map[string]bool, len(u.ExpandedSections))
	for k, v := range u.ExpandedSections {
		out.ExpandedSections[k] = v
	}
	return out
}

// DefaultPageLimit is the page size used when a caller passes none.
const DefaultPageLimit = 10

// PageState is the pagination of one complaint bucket.
type PageState struct {
	Page  int   `json:"page"`
	Total int64 `json:"total"`
	Limit int   `json:"limit"`
}

// Pagination holds an independent PageState per bucket.
type Pagination map[Bucket]PageState

// NewPagination returns page 1 with the default limit for every bucket.
func NewPagination() Pagination {
	p := make(Pagination, len(Buckets))
	for _, b := range Buckets {
		p[b] = PageState{Page: 1, Limit: DefaultPageLimit}
	}
	return p
}

// Clone returns a copy of the pagination map.
func (p Pagination) Clone() Pagination {
	out := make(Pagination, len(p))
	for k, v := range p {
		out[k] = v
	}
	return out
}

// NormalizePage coerces page and limit to usable values.
func NormalizePage(page, limit int) (int, int) {
	if page < 1 {
		page = 1
	}
	if limit <= 0 {
		limit = DefaultPageLimit
	}
	return page, limit
}

// PreferencesVersion is bumped whenever the persisted shape changes.
// Records carrying another version are discarded.
const PreferencesVersion = 1

// PagePreference is the persisted part of a bucket's pagination.
type PagePreference struct {
	Page  int `json:"page"`
	Limit int `json:"limit"`
}

// UIPreferences is the per-user slice that survives restarts.
type UIPreferences struct {
	Version          int                       `json:"version"`
	ActiveTab        string                    `json:"activeTab"`
	ExpandedSections map[string]bool           `json:"expandedSections"`
	Pagination       map[Bucket]PagePreference `json:"pagination"`
}

// DefaultUIPreferences returns the preferences of a user who never saved any.
func DefaultUIPreferences() UIPreferences {
	prefs := UIPreferences{
		Version:          PreferencesVersion,
		ActiveTab:        DefaultActiveTab,
		ExpandedSections: make(map[string]bool),
		Pagination:       make(map[Bucket]PagePreference, len(Buckets)),
	}
	for _, b := range Buckets {
		prefs.Pagination[b] = PagePreference{Page: 1, Limit: DefaultPageLimit}
	}
	return prefs
}

// IsCurrent reports whether the record was written by this version.
func (p UIPreferences) IsCurrent() bool {
	return p.Version == PreferencesVersion
}
