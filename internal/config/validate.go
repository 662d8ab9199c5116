package config

import (
	"errors"
	"fmt"
	"strings"
	"sync"

	app_errors "safehire/backend/internal/errors"

	"github.com/go-playground/validator/v10"
)

// This file validates the loaded configuration eagerly, so misconfiguration
// fails at startup rather than on the first request. The validator instance
// is a singleton: recreating it per call is needlessly expensive.

var (
	validate *validator.Validate
	once     sync.Once
)

func getInstance() *validator.Validate {
	once.Do(func() {
		validate = validator.New()
	})
	return validate
}

// Validate checks the configuration against the rules in its field tags.
// A missing API key is reported as app_errors.ErrNotConfigured so callers
// can distinguish it from other validation failures; everything else is
// wrapped in app_errors.ErrValidation with a readable field list.
func (c *Config) Validate() error {
	v := getInstance()
	err := v.Struct(c)
	if err == nil {
		return nil
	}

	var validationErrors validator.ValidationErrors
	if !errors.As(err, &validationErrors) {
		return fmt.Errorf("%w: unexpected error during config validation: %s", app_errors.ErrValidation, err.Error())
	}

	var errorMessages []string
	for _, fieldErr := range validationErrors {
		if fieldErr.Field() == "APIKey" && fieldErr.Tag() == "required" {
			return fmt.Errorf("%w: AI_API_KEY is not set", app_errors.ErrNotConfigured)
		}
		errorMessages = append(errorMessages, fmt.Sprintf("field '%s' failed on the '%s' tag", fieldErr.Field(), fieldErr.Tag()))
	}

	return fmt.Errorf("%w: %s", app_errors.ErrValidation, strings.Join(errorMessages, "; "))
}
