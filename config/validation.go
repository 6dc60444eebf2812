package config

import (
	"fmt"
	"strings"
)

// ValidationError represents a configuration validation error
type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// Validate checks that the configuration is complete and coherent.
func Validate(cfg *Config) error {
	var errs []string

	if cfg.JWTSecret == "" {
		errs = append(errs, ValidationError{"JWT_SECRET", "must be set"}.Error())
	}
	if cfg.ServerPort == "" {
		errs = append(errs, ValidationError{"SERVER_PORT", "must be set"}.Error())
	}
	if cfg.DBHost == "" || cfg.DBName == "" || cfg.DBUser == "" {
		errs = append(errs, ValidationError{"DB_*", "host, name and user must be set"}.Error())
	}
	if cfg.PageSize <= 0 {
		errs = append(errs, ValidationError{"PAGE_SIZE", "must be positive"}.Error())
	}
	if cfg.MaxCookingTime < 1 {
		errs = append(errs, ValidationError{"MAX_COOKING_TIME", "must be at least 1"}.Error())
	}
	if cfg.MaxIngredientAmnt < 1 {
		errs = append(errs, ValidationError{"MAX_INGREDIENT_AMOUNT", "must be at least 1"}.Error())
	}

	if len(errs) > 0 {
		return fmt.Errorf("invalid configuration: %s", strings.Join(errs, "; "))
	}
	return nil
}
