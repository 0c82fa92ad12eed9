package repository

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"regexp"
)

var identRe = regexp.MustCompile(`^[a-z][a-z0-9_]*$`)

// checkIdent guards dynamically assembled column lists. Field names reach the
// repos through the schema filter / field definitions, but SQL identifiers
// cannot be parameterized, so validate before splicing.
func checkIdent(name string) error {
	if !identRe.MatchString(name) {
		return fmt.Errorf("invalid column name: %q", name)
	}
	return nil
}

// toDBValue converts map-shaped values (industries list, custom_fields) to
// JSON for storage; scalars pass through.
func toDBValue(v any) (any, error) {
	switch v.(type) {
	case nil, string, bool, int, int64, float64, []byte:
		return v, nil
	default:
		b, err := json.Marshal(v)
		if err != nil {
			return nil, fmt.Errorf("failed to encode value: %w", err)
		}
		return b, nil
	}
}

// jsonColumns are JSONB in the physical schema; everything else read back as
// []byte is plain text.
var jsonColumns = map[string]bool{
	"industries":    true,
	"custom_fields": true,
}

// fromDBValue decodes JSONB payloads read back as []byte.
func fromDBValue(col string, v any) any {
	b, ok := v.([]byte)
	if !ok {
		return v
	}
	if jsonColumns[col] {
		var decoded any
		if err := json.Unmarshal(b, &decoded); err == nil {
			return decoded
		}
	}
	return string(b)
}

func nullStringToAny(ns sql.NullString) any {
	if ns.Valid {
		return ns.String
	}
	return nil
}
