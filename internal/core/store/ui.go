package store

import (
	"github.com/lorrc/complaint-desk-bff/internal/core/domain"
	apperrors "github.com/lorrc/complaint-desk-bff/internal/core/errors"
)

// OpenServiceConfigPanel opens the service editor. A nil editing value opens
// it in create mode; otherwise a copy of the service is edited.
func (s *Store) OpenServiceConfigPanel(editing *domain.Service, orgID *string) {
	s.updateUI(func(ui *domain.UIState) {
		ui.ServiceConfig = domain.ServiceConfigPanel{
			IsOpen:         true,
			EditingService: copyPtr(editing),
			OrganisationID: copyPtr(orgID),
		}
	})
}

// CloseServiceConfigPanel resets the service editor.
func (s *Store) CloseServiceConfigPanel() {
	s.updateUI(func(ui *domain.UIState) {
		ui.ServiceConfig = domain.ServiceConfigPanel{}
	})
}

// OpenUserConfigPanel opens the user editor. A nil editing value opens it in
// create mode.
func (s *Store) OpenUserConfigPanel(editing *domain.Utilisateur, orgID *string) {
	s.updateUI(func(ui *domain.UIState) {
		ui.UserConfig = domain.UserConfigPanel{
			IsOpen:         true,
			EditingUser:    copyPtr(editing),
			OrganisationID: copyPtr(orgID),
		}
	})
}

// CloseUserConfigPanel resets the user editor.
func (s *Store) CloseUserConfigPanel() {
	s.updateUI(func(ui *domain.UIState) {
		ui.UserConfig = domain.UserConfigPanel{}
	})
}

// OpenExportModal opens the export dialog for format.
func (s *Store) OpenExportModal(format string) {
	s.updateUI(func(ui *domain.UIState) {
		ui.ExportModal = domain.ExportModal{IsOpen: true, Format: format}
	})
}

// CloseExportModal resets the export dialog.
func (s *Store) CloseExportModal() {
	s.updateUI(func(ui *domain.UIState) {
		ui.ExportModal = domain.ExportModal{}
	})
}

// OpenPlainteModal opens the complaint form, preselecting defaultService.
func (s *Store) OpenPlainteModal(defaultService string) {
	s.updateUI(func(ui *domain.UIState) {
		ui.PlainteModal = domain.PlainteModal{IsOpen: true, DefaultService: defaultService}
	})
}

// ClosePlainteModal resets the complaint form.
func (s *Store) ClosePlainteModal() {
	s.updateUI(func(ui *domain.UIState) {
		ui.PlainteModal = domain.PlainteModal{}
	})
}

// ClosePanel closes one panel by name.
func (s *Store) ClosePanel(panel domain.Panel) error {
	switch panel {
	case domain.PanelServiceConfig:
		s.CloseServiceConfigPanel()
	case domain.PanelUserConfig:
		s.CloseUserConfigPanel()
	case domain.PanelExportModal:
		s.CloseExportModal()
	case domain.PanelPlainteModal:
		s.ClosePlainteModal()
	default:
		return apperrors.ErrInvalidPanel
	}
	return nil
}

// CloseAllPanels resets every panel at once.
func (s *Store) CloseAllPanels() {
	s.updateUI(func(ui *domain.UIState) {
		ui.ServiceConfig = domain.ServiceConfigPanel{}
		ui.UserConfig = domain.UserConfigPanel{}
		ui.ExportModal = domain.ExportModal{}
		ui.PlainteModal = domain.PlainteModal{}
	})
}

// SetActiveTab switches the visible tab.
func (s *Store) SetActiveTab(tab string) {
	s.updateUI(func(ui *domain.UIState) {
		ui.ActiveTab = tab
	})
	s.preferencesChanged()
}

// ToggleSection flips the expanded state of a section and returns the new value.
func (s *Store) ToggleSection(name string) bool {
	var expanded bool
	s.updateUI(func(ui *domain.UIState) {
		if ui.ExpandedSections == nil {
			ui.ExpandedSections = make(map[string]bool)
		}
		expanded = !ui.ExpandedSections[name]
		ui.ExpandedSections[name] = expanded
	})
	s.preferencesChanged()
	return expanded
}

// SetSelectedService sets the processing marker.
func (s *Store) SetSelectedService(name string) {
	s.updateUI(func(ui *domain.UIState) {
		ui.SelectedService = name
	})
}

// Preferences returns the persisted part of the UI and pagination state.
func (s *Store) Preferences() domain.UIPreferences {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.preferencesLocked()
}

func (s *Store) preferencesLocked() domain.UIPreferences {
	prefs := domain.UIPreferences{
		Version:          domain.PreferencesVersion,
		ActiveTab:        s.state.UI.ActiveTab,
		ExpandedSections: make(map[string]bool, len(s.state.UI.ExpandedSections)),
		Pagination:       make(map[domain.Bucket]domain.PagePreference, len(s.state.Pagination)),
	}
	for k, v := range s.state.UI.ExpandedSections {
		prefs.ExpandedSections[k] = v
	}
	for b, p := range s.state.Pagination {
		prefs.Pagination[b] = domain.PagePreference{Page: p.Page, Limit: p.Limit}
	}
	return prefs
}

// ApplyPreferences restores saved preferences. Records written by another
// version are ignored and false is returned.
func (s *Store) ApplyPreferences(prefs domain.UIPreferences) bool {
	if !prefs.IsCurrent() {
		s.logger.Info("discarding preferences with unknown version",
			"version", prefs.Version,
			"expected", domain.PreferencesVersion,
		)
		return false
	}

	s.mu.Lock()
	if prefs.ActiveTab != "" {
		s.state.UI.ActiveTab = prefs.ActiveTab
	}
	s.state.UI.ExpandedSections = make(map[string]bool, len(prefs.ExpandedSections))
	for k, v := range prefs.ExpandedSections {
		s.state.UI.ExpandedSections[k] = v
	}
	for b, p := range prefs.Pagination {
		if !b.IsValid() {
			continue
		}
		page, limit := domain.NormalizePage(p.Page, p.Limit)
		current := s.state.Pagination[b]
		current.Page = page
		current.Limit = limit
		s.state.Pagination[b] = current
	}
	s.mu.Unlock()

	s.publishTopic(domain.TopicUI)
	return true
}

func (s *Store) updateUI(fn func(ui *domain.UIState)) {
	s.mu.Lock()
	fn(&s.state.UI)
	s.mu.Unlock()
	s.publishTopic(domain.TopicUI)
}

func (s *Store) preferencesChanged() {
	if s.onPreferences == nil {
		return
	}
	s.onPreferences(s.Preferences())
}

func copyPtr[T any](v *T) *T {
	if v == nil {
		return nil
	}
	out := *v
	return &out
}
