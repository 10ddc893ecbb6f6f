// Package seed decodes the embedded YAML fixtures each demo service loads
// into its stores at startup.
package seed

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/opsline/opsline-go/internal/platform/env"
	"gopkg.in/yaml.v3"
)

// Decode unmarshals a fixture document strictly: unknown fields are errors,
// so a typo in a fixture fails fast at startup instead of silently seeding
// zero values.
func Decode(raw []byte, dst any) error {
	dec := yaml.NewDecoder(bytes.NewReader(raw))
	dec.KnownFields(true)
	if err := dec.Decode(dst); err != nil {
		return fmt.Errorf("decode seed fixture: %w", err)
	}
	return nil
}

// Enabled reports whether demo seeding is turned on for a service
// (<SERVICE>_SEED, default true).
func Enabled(service string) (bool, error) {
	return env.Bool(strings.ToUpper(service)+"_SEED", true)
}
