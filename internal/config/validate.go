package config

import (
	stderrors "errors"
	"reflect"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"

	"github.com/mrz1836/mqomctl/internal/errors"
)

//nolint:gochecknoglobals // validator caches struct metadata, build it once
var (
	validateOnce sync.Once
	validate     *validator.Validate
)

// sectionErrors maps a top-level config key to its sentinel error.
//
//nolint:gochecknoglobals // Read-only lookup table
var sectionErrors = map[string]error{
	"build":    errors.ErrConfigInvalidBuild,
	"run":      errors.ErrConfigInvalidRun,
	"bench":    errors.ErrConfigInvalidBench,
	"test":     errors.ErrConfigInvalidTest,
	"profiler": errors.ErrConfigInvalidProfiler,
}

func structValidator() *validator.Validate {
	validateOnce.Do(func() {
		validate = validator.New(validator.WithRequiredStructEnabled())
		// Report fields by their config key rather than the Go field name.
		validate.RegisterTagNameFunc(func(f reflect.StructField) string {
			name, _, _ := strings.Cut(f.Tag.Get("mapstructure"), ",")
			if name == "-" {
				return ""
			}
			return name
		})
	})
	return validate
}

// Validate checks the configuration for invalid values.
// It returns an error describing the first validation failure found,
// wrapping the sentinel of the section holding the field.
//
// Validation rules:
//   - build command, source and output directories must not be empty
//   - copy extensions must start with a dot
//   - run timeout must not be negative
//   - bench and test repetitions must be positive
//   - the bench stats directory must not be empty
//   - the profiler command must not be empty and its stack frame limit positive
func Validate(cfg *Config) error {
	if cfg == nil {
		return errors.ErrConfigNil
	}

	err := structValidator().Struct(cfg)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !stderrors.As(err, &verrs) || len(verrs) == 0 {
		return errors.Wrap(err, "config validation")
	}

	fe := verrs[0]
	key := strings.TrimPrefix(fe.Namespace(), "Config.")
	section, _, _ := strings.Cut(key, ".")
	sentinel, ok := sectionErrors[section]
	if !ok {
		return errors.Wrapf(err, "%s", key)
	}
	if fe.Param() != "" {
		return errors.Wrapf(sentinel, "%s must satisfy %s=%s, got %v", key, fe.Tag(), fe.Param(), fe.Value())
	}
	return errors.Wrapf(sentinel, "%s is %s", key, fe.Tag())
}
