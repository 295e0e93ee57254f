package model

import (
	"errors"
	"fmt"
	"strings"
)

// APIVersion is the version tag of the autocomplete endpoint.
// It becomes the first path segment of every request.
type APIVersion int

const (
	// APIVersionV1 selects the /v1/autocomplete endpoint.
	APIVersionV1 APIVersion = iota + 1

	// APIVersionV2 selects the /v2/autocomplete endpoint.
	APIVersionV2

	// APIVersionV3 selects the /v3/autocomplete endpoint.
	APIVersionV3
)

// ErrUnknownAPIVersion is returned when a version tag is not one of v1, v2, v3.
var ErrUnknownAPIVersion = errors.New("unknown API version: must be one of v1, v2, v3")

// String returns the path segment for the version ("v1", "v2", "v3").
func (v APIVersion) String() string {
	switch v {
	case APIVersionV1:
		return "v1"
	case APIVersionV2:
		return "v2"
	case APIVersionV3:
		return "v3"
	default:
		return "unknown"
	}
}

// Valid reports whether v is a known version.
func (v APIVersion) Valid() bool {
	return v >= APIVersionV1 && v <= APIVersionV3
}

// ParseAPIVersion parses a version tag. Matching is case-insensitive and
// surrounding whitespace is ignored.
func ParseAPIVersion(s string) (APIVersion, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "v1":
		return APIVersionV1, nil
	case "v2":
		return APIVersionV2, nil
	case "v3":
		return APIVersionV3, nil
	default:
		return 0, fmt.Errorf("%w: %q", ErrUnknownAPIVersion, s)
	}
}

// AllAPIVersions returns every known version in ascending order.
func AllAPIVersions() []APIVersion {
	return []APIVersion{APIVersionV1, APIVersionV2, APIVersionV3}
}

// MarshalText implements encoding.TextMarshaler so versions serialize as
// their tag in JSON and YAML.
func (v APIVersion) MarshalText() ([]byte, error) {
	return []byte(v.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (v *APIVersion) UnmarshalText(text []byte) error {
	parsed, err := ParseAPIVersion(string(text))
	if err != nil {
		return err
	}
	*v = parsed
	return nil
}
