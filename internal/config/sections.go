package config

import (
	"fmt"
	"strings"

	"github.com/creasty/defaults"
	"github.com/go-playground/validator/v10"
	"github.com/mitchellh/mapstructure"
)

// Package-level validator instance
var validate = validator.New()

// Main is the typed view of the config's main section. Everything the driver
// itself consumes lives here; step parameters stay dynamic path lookups.
type Main struct {
	ProjectName          string `mapstructure:"project_name" validate:"required"`
	ExperimentName       string `mapstructure:"experiment_name" validate:"required"`
	Steps                string `mapstructure:"steps" default:"all"`
	ComponentsRepository string `mapstructure:"components_repository" validate:"required"`
	ComponentsVersion    string `mapstructure:"components_version" default:"main"`
}

// Main decodes, defaults and validates the main section.
func (c *Config) Main() (*Main, error) {
	section, err := c.Subtree("main")
	if err != nil {
		return nil, err
	}

	var m Main
	if err := defaults.Set(&m); err != nil {
		return nil, fmt.Errorf("failed to apply main section defaults: %w", err)
	}

	if err := decodeSection(section, &m); err != nil {
		return nil, fmt.Errorf("failed to decode main section: %w", err)
	}

	if err := validateSection(&m); err != nil {
		return nil, fmt.Errorf("main section invalid: %w", err)
	}

	return &m, nil
}

// decodeSection converts a config subtree to a typed struct using
// mapstructure tags, coercing scalar types where YAML and Go disagree.
func decodeSection(section map[string]any, target any) error {
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           target,
		TagName:          "mapstructure",
		WeaklyTypedInput: true, // Allow type coercion (e.g., int -> string)
	})
	if err != nil {
		return fmt.Errorf("failed to create decoder: %w", err)
	}

	if err := decoder.Decode(section); err != nil {
		return fmt.Errorf("failed to decode section: %w", err)
	}

	return nil
}

func validateSection(section any) error {
	if err := validate.Struct(section); err != nil {
		if validationErrors, ok := err.(validator.ValidationErrors); ok {
			var messages []string
			for _, fieldErr := range validationErrors {
				messages = append(messages, fmt.Sprintf(
					"field '%s' failed rule '%s'",
					fieldErr.Field(),
					fieldErr.Tag(),
				))
			}
			return fmt.Errorf("validation failed: %s", strings.Join(messages, "; "))
		}
		return fmt.Errorf("validation failed: %w", err)
	}

	return nil
}
