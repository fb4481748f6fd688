package model

import (
	"encoding/json"
	"strconv"
)

// Null holds an optional value. Invalid values encode as JSON null and as an
// empty CSV cell.
type Null[T any] struct {
	V     T
	Valid bool
}

// Some wraps v as a valid value.
func Some[T any](v T) Null[T] { return Null[T]{V: v, Valid: true} }

// None returns an invalid value.
func None[T any]() Null[T] { return Null[T]{} }

// MarshalJSON implements json.Marshaler.
func (n Null[T]) MarshalJSON() ([]byte, error) {
	if !n.Valid {
		return []byte("null"), nil
	}
	return json.Marshal(n.V)
}

// UnmarshalJSON implements json.Unmarshaler.
func (n *Null[T]) UnmarshalJSON(b []byte) error {
	if string(b) == "null" {
		*n = Null[T]{}
		return nil
	}
	if err := json.Unmarshal(b, &n.V); err != nil {
		return err
	}
	n.Valid = true
	return nil
}

// FormatFloat renders a nullable float for tabular output.
func FormatFloat(n Null[float64]) string {
	if !n.Valid {
		return ""
	}
	return strconv.FormatFloat(n.V, 'f', -1, 64)
}

// FormatInt renders a nullable int for tabular output.
func FormatInt(n Null[int]) string {
	if !n.Valid {
		return ""
	}
	return strconv.Itoa(n.V)
}

// ParseFloat reads a nullable float from a tabular cell.
func ParseFloat(s string) (Null[float64], error) {
	if s == "" {
		return None[float64](), nil
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return None[float64](), err
	}
	return Some(v), nil
}

// ParseInt reads a nullable int from a tabular cell.
func ParseInt(s string) (Null[int], error) {
	if s == "" {
		return None[int](), nil
	}
	v, err := strconv.Atoi(s)
	if err != nil {
		return None[int](), err
	}
	return Some(v), nil
}
