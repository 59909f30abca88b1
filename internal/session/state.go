// Package session owns the per-client dashboard state: navigation, theme,
// the claim form, the selected model and the last prediction outcome.
package session

import (
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/opensource-finance/claimguard/internal/catalog"
	"github.com/opensource-finance/claimguard/internal/domain"
	"github.com/opensource-finance/claimguard/internal/predict"
)

var (
	ErrUnknownPage  = errors.New("unknown page")
	ErrUnknownTheme = errors.New("unknown theme")
	ErrUnknownField = errors.New("unknown form field")
)

// Page is a dashboard view.
type Page string

const (
	PageDashboard   Page = "dashboard"
	PagePerformance Page = "performance"
	PageInsights    Page = "insights"
	PagePrediction  Page = "prediction"
)

// Pages lists the navigable views in sidebar order.
func Pages() []Page {
	return []Page{PageDashboard, PagePerformance, PageInsights, PagePrediction}
}

// Theme is the colour scheme.
type Theme string

const (
	ThemeLight Theme = "light"
	ThemeDark  Theme = "dark"
)

// State is everything the dashboard renders for one client.
type State struct {
	ID               string                   `json:"id"`
	Page             Page                     `json:"page"`
	Theme            Theme                    `json:"theme"`
	SidebarCollapsed bool                     `json:"sidebarCollapsed"`
	SelectedModel    domain.ModelID           `json:"selectedModel"`
	Form             domain.ClaimForm         `json:"form"`
	LastResult       *domain.PredictionResult `json:"lastResult"`
	LastError        string                   `json:"lastError,omitempty"`

	// Busy is refreshed from the latch on every load.
	Busy bool `json:"busy"`

	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// NewState returns a fresh session with every default applied.
func NewState(id string, now time.Time) *State {
	return &State{
		ID:            id,
		Page:          PageDashboard,
		Theme:         ThemeLight,
		SelectedModel: domain.DefaultModel,
		Form:          domain.DefaultClaimForm(),
		CreatedAt:     now,
		UpdatedAt:     now,
	}
}

// Navigate switches the visible page.
func (s *State) Navigate(p Page) error {
	for _, known := range Pages() {
		if p == known {
			s.Page = p
			return nil
		}
	}
	return fmt.Errorf("%w: %q", ErrUnknownPage, p)
}

// SetTheme switches between light and dark.
func (s *State) SetTheme(t Theme) error {
	if t != ThemeLight && t != ThemeDark {
		return fmt.Errorf("%w: %q", ErrUnknownTheme, t)
	}
	s.Theme = t
	return nil
}

// ToggleTheme flips the colour scheme.
func (s *State) ToggleTheme() {
	if s.Theme == ThemeDark {
		s.Theme = ThemeLight
		return
	}
	s.Theme = ThemeDark
}

// ToggleSidebar flips the collapsed flag.
func (s *State) ToggleSidebar() {
	s.SidebarCollapsed = !s.SidebarCollapsed
}

// SelectModel changes the model used for the next submission.
func (s *State) SelectModel(id domain.ModelID) error {
	if _, err := catalog.Lookup(id); err != nil {
		return err
	}
	s.SelectedModel = id
	return nil
}

// UpdateFields writes raw values into the form. Values are not validated,
// but every key must be a known field or nothing is applied.
func (s *State) UpdateFields(values map[string]string) error {
	var unknown []string
	for k := range values {
		if _, ok := domain.LookupField(k); !ok {
			unknown = append(unknown, k)
		}
	}
	if len(unknown) > 0 {
		sort.Strings(unknown)
		return fmt.Errorf("%w: %v", ErrUnknownField, unknown)
	}

	if s.Form == nil {
		s.Form = domain.DefaultClaimForm()
	}
	for k, v := range values {
		s.Form[k] = v
	}
	return nil
}

// ResetForm restores the example claim.
func (s *State) ResetForm() {
	s.Form = domain.DefaultClaimForm()
}

// BeginSubmission clears the previous outcome.
func (s *State) BeginSubmission() {
	s.LastResult = nil
	s.LastError = ""
}

// RecordOutcome replaces the previous outcome with the settled one.
func (s *State) RecordOutcome(result *domain.PredictionResult, err error) {
	s.LastResult = result
	s.LastError = ""
	if err == nil {
		return
	}

	var rejection *predict.RejectionError
	if errors.As(err, &rejection) {
		s.LastError = rejection.Message
		return
	}
	s.LastError = err.Error()
}
