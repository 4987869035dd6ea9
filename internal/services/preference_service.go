package services

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"histreader/internal/models"
	"histreader/internal/store"
)

const (
	PreferenceKeyPrefix = "historyReader_"
	KeyFontSize         = PreferenceKeyPrefix + "fontSize"
	KeyFontFamily       = PreferenceKeyPrefix + "fontFamily"

	MinFontSize       = 8
	MaxFontSize       = 50
	DefaultFontSize   = 14
	DefaultFontFamily = "sans-serif"
)

// DefaultPreferences returns the settings used before anything is saved.
func DefaultPreferences() models.Preferences {
	return models.Preferences{FontSize: DefaultFontSize, FontFamily: DefaultFontFamily}
}

// ValidateFontSize parses raw as an integer size. Values that do not parse or
// fall outside [MinFontSize, MaxFontSize] yield DefaultFontSize.
func ValidateFontSize(raw string) int {
	n, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil || n < MinFontSize || n > MaxFontSize {
		return DefaultFontSize
	}
	return n
}

// ValidateFontFamily trims raw; an empty family yields DefaultFontFamily.
func ValidateFontFamily(raw string) string {
	f := strings.TrimSpace(raw)
	if f == "" {
		return DefaultFontFamily
	}
	return f
}

type PreferenceService struct {
	prefs store.PreferenceStore
}

func NewPreferenceService(prefs store.PreferenceStore) *PreferenceService {
	return &PreferenceService{prefs: prefs}
}

// Get loads the stored preferences, applying defaults and validation to
// missing or invalid values.
func (s *PreferenceService) Get(ctx context.Context) (models.Preferences, error) {
	p := DefaultPreferences()

	size, err := s.lookup(ctx, KeyFontSize)
	if err != nil {
		return p, err
	}
	if size != "" {
		p.FontSize = ValidateFontSize(size)
	}

	family, err := s.lookup(ctx, KeyFontFamily)
	if err != nil {
		return p, err
	}
	p.FontFamily = ValidateFontFamily(family)
	return p, nil
}

// Save validates and persists p and returns what was stored.
func (s *PreferenceService) Save(ctx context.Context, p models.Preferences) (models.Preferences, error) {
	stored := models.Preferences{
		FontSize:   ValidateFontSize(strconv.Itoa(p.FontSize)),
		FontFamily: ValidateFontFamily(p.FontFamily),
	}
	if err := s.prefs.SetPreference(ctx, KeyFontSize, strconv.Itoa(stored.FontSize)); err != nil {
		return stored, fmt.Errorf("save font size: %w", err)
	}
	if err := s.prefs.SetPreference(ctx, KeyFontFamily, stored.FontFamily); err != nil {
		return stored, fmt.Errorf("save font family: %w", err)
	}
	return stored, nil
}

// Set updates a single preference by its short name ("fontSize" or
// "fontFamily") from raw text, as typed on the command line.
func (s *PreferenceService) Set(ctx context.Context, name, raw string) (models.Preferences, error) {
	p, err := s.Get(ctx)
	if err != nil {
		return p, err
	}
	switch name {
	case "fontSize", "font-size", "font_size":
		p.FontSize = ValidateFontSize(raw)
	case "fontFamily", "font-family", "font_family":
		p.FontFamily = ValidateFontFamily(raw)
	default:
		return p, fmt.Errorf("%w: unknown preference %q", models.ErrValidation, name)
	}
	return s.Save(ctx, p)
}

func (s *PreferenceService) lookup(ctx context.Context, key string) (string, error) {
	v, err := s.prefs.GetPreference(ctx, key)
	if errors.Is(err, store.ErrNotFound) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("load preference %s: %w", key, err)
	}
	return v, nil
}
