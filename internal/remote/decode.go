package remote

import (
	"encoding/json"
	"fmt"
)

// Decode converts rows into dest, which must be a pointer to a slice of a
// JSON-decodable element type. Column names are matched against json tags.
func Decode(rows []Row, dest any) error {
	b, err := json.Marshal(rows)
	if err != nil {
		return fmt.Errorf("encode rows: %w", err)
	}
	if err := json.Unmarshal(b, dest); err != nil {
		return fmt.Errorf("decode rows: %w", err)
	}
	return nil
}

// DecodeRow converts a single row into dest.
func DecodeRow(row Row, dest any) error {
	b, err := json.Marshal(row)
	if err != nil {
		return fmt.Errorf("encode row: %w", err)
	}
	if err := json.Unmarshal(b, dest); err != nil {
		return fmt.Errorf("decode row: %w", err)
	}
	return nil
}
