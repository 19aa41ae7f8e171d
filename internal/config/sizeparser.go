package config

import (
	"fmt"
	"reflect"
	"strconv"
	"strings"

	"github.com/go-viper/mapstructure/v2"
)

// StringToByteSize is a DecodeHookFunc that converts a string to an int64
// byte count, accepting plain integers or IEC/human suffixes (KiB/MiB/GiB,
// K/M/G). It lets SAFESEND_MAX_BYTES be written as "50MiB".
func StringToByteSize() mapstructure.DecodeHookFunc {
	return func(f, t reflect.Type, data interface{}) (interface{}, error) {
		// Plain int64 only; time.Duration has the same kind but its own type
		// and is handled by the duration hook.
		if f.Kind() != reflect.String || t != reflect.TypeOf(int64(0)) {
			return data, nil
		}
		return ParseSize(data.(string))
	}
}

// ParseSize converts a human-friendly size string into a byte count.
// Examples: "131072" => 131072, "128KiB" => 131072, "50MiB" => 52428800.
func ParseSize(s string) (int64, error) {
	orig := s
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, fmt.Errorf("empty size string")
	}
	upper := strings.ToUpper(s)
	if n, ok, err := parseSizeWithSuffix(upper, orig); ok {
		return n, err
	}
	n, err := parsePositiveInt(upper)
	if err != nil {
		return 0, fmt.Errorf("parse size %q: %w", orig, err)
	}
	return n, nil
}

// parsePositiveInt parses a base-10 int64 and rejects negatives.
func parsePositiveInt(raw string) (int64, error) {
	n, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0, err
	}
	if n < 0 {
		return 0, fmt.Errorf("negative not allowed")
	}
	return n, nil
}

// parseSizeWithSuffix attempts the well-known size suffixes. It returns
// (value, true, nil) on success; (0, false, nil) if no suffix matched; or
// (0, true, error) if a suffix matched but the number part failed to parse.
func parseSizeWithSuffix(upper, orig string) (int64, bool, error) {
	type unit struct {
		suffix string
		mult   int64
	}
	units := []unit{
		{"KIB", 1024}, {"MIB", 1024 * 1024}, {"GIB", 1024 * 1024 * 1024},
		{"K", 1024}, {"M", 1024 * 1024}, {"G", 1024 * 1024 * 1024},
	}
	for _, u := range units {
		if strings.HasSuffix(upper, u.suffix) {
			numPart := strings.TrimSpace(upper[:len(upper)-len(u.suffix)])
			if numPart == "" {
				return 0, true, fmt.Errorf("parse size %q: missing number", orig)
			}
			n, err := parsePositiveInt(numPart)
			if err != nil {
				return 0, true, fmt.Errorf("parse size %q: %w", orig, err)
			}
			return n * u.mult, true, nil
		}
	}
	return 0, false, nil
}
