package config

import (
	"encoding/json"
	"fmt"

	"github.com/veil-labs/veil/internal/entity"
)

// Settings are the per-document detection settings, persisted through
// the storage collaborator under its fixed settings key.
type Settings struct {
	// EnabledCategories lists the regex-detectable category tags to scan.
	EnabledCategories []entity.Type `json:"enabled_categories"`
	// UseExternalSource requests external entities after the regex pass.
	UseExternalSource bool `json:"use_external_source"`
}

// DefaultSettings enables every built-in regex category and leaves the
// external source off.
func DefaultSettings() Settings {
	return Settings{
		EnabledCategories: []entity.Type{
			entity.TypePhoneNumber,
			entity.TypeEmail,
			entity.TypeURL,
			entity.TypeIPAddress,
			entity.TypeCreditCardNumber,
			entity.TypePassportNumber,
			entity.TypeNationalIDNumber,
			entity.TypeInsuranceNumber,
			entity.TypeDate,
		},
		UseExternalSource: false,
	}
}

// ParseSettings shallow-merges a saved settings payload over the
// defaults: keys present in the payload win, keys absent keep their
// default, so an older payload missing newer keys still yields complete
// settings. Malformed JSON is an error and the defaults are returned
// unchanged.
func ParseSettings(data []byte) (Settings, error) {
	defaults := DefaultSettings()

	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return defaults, fmt.Errorf("parsing settings: %w", err)
	}

	if v, ok := raw["enabled_categories"]; ok {
		var cats []entity.Type
		if err := json.Unmarshal(v, &cats); err != nil {
			return defaults, fmt.Errorf("parsing settings: %w", err)
		}
		defaults.EnabledCategories = cats
	}
	if v, ok := raw["use_external_source"]; ok {
		var b bool
		if err := json.Unmarshal(v, &b); err != nil {
			return defaults, fmt.Errorf("parsing settings: %w", err)
		}
		defaults.UseExternalSource = b
	}

	return defaults, nil
}
