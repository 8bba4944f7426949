package store

import (
	"fmt"

	"github.com/roach88/mirror/internal/value"
)

// marshalBody converts a record to canonical JSON TEXT and its digest.
// Uses RFC 8785 canonical JSON for deterministic serialization.
func marshalBody(rec value.Object) (body, hash string, err error) {
	data, err := value.MarshalCanonical(rec)
	if err != nil {
		return "", "", fmt.Errorf("marshal body: %w", err)
	}
	hash, err = value.RecordDigest(rec)
	if err != nil {
		return "", "", fmt.Errorf("hash body: %w", err)
	}
	return string(data), hash, nil
}

// unmarshalBody parses canonical JSON TEXT back into a record.
// Large integers survive because value.Unmarshal decodes via json.Number.
func unmarshalBody(data string) (value.Object, error) {
	rec, err := value.UnmarshalObject([]byte(data))
	if err != nil {
		return value.Object{}, fmt.Errorf("unmarshal body: %w", err)
	}
	return rec, nil
}

func project(rec value.Object, fields []string) value.Object {
	if len(fields) == 0 {
		return rec
	}
	return rec.Pick(fields...)
}
