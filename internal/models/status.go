package models

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// Status tracks moderation progress for a marking work item.
type Status int

const (
	StatusCompleted Status = iota + 1
	StatusInProgress
	StatusLate
	StatusUnconfirmed
)

// ErrUnknownStatus is returned when a value matches neither a status name nor its label.
var ErrUnknownStatus = errors.New("unknown status")

var statusNames = map[Status]string{
	StatusCompleted:   "COMPLETED",
	StatusInProgress:  "IN_PROGRESS",
	StatusLate:        "LATE",
	StatusUnconfirmed: "UNCONFIRMED",
}

var statusLabels = map[Status]string{
	StatusCompleted:   "Completed",
	StatusInProgress:  "In Progress",
	StatusLate:        "Late",
	StatusUnconfirmed: "Unconfirmed",
}

// Statuses returns every status in declaration order.
func Statuses() []Status {
	return []Status{StatusCompleted, StatusInProgress, StatusLate, StatusUnconfirmed}
}

// StatusFromString matches value case-insensitively against the symbolic name
// or the display label.
func StatusFromString(value string) (Status, error) {
	for _, status := range Statuses() {
		if strings.EqualFold(statusLabels[status], value) || strings.EqualFold(statusNames[status], value) {
			return status, nil
		}
	}
	return 0, fmt.Errorf("%w: %q", ErrUnknownStatus, value)
}

// Name returns the symbolic name, e.g. IN_PROGRESS.
func (s Status) Name() string {
	return statusNames[s]
}

// DisplayName returns the canonical label, e.g. "In Progress".
func (s Status) DisplayName() string {
	return statusLabels[s]
}

// Valid reports whether s is one of the declared statuses.
func (s Status) Valid() bool {
	_, ok := statusNames[s]
	return ok
}

func (s Status) String() string {
	if !s.Valid() {
		return fmt.Sprintf("Status(%d)", int(s))
	}
	return s.DisplayName()
}

// MarshalJSON encodes the display label.
func (s Status) MarshalJSON() ([]byte, error) {
	if !s.Valid() {
		return nil, fmt.Errorf("%w: %d", ErrUnknownStatus, int(s))
	}
	return json.Marshal(s.DisplayName())
}

// UnmarshalJSON accepts either the name or the label.
func (s *Status) UnmarshalJSON(data []byte) error {
	var raw string
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	parsed, err := StatusFromString(raw)
	if err != nil {
		return err
	}
	*s = parsed
	return nil
}

// Value stores the symbolic name.
func (s Status) Value() (driver.Value, error) {
	if !s.Valid() {
		return nil, fmt.Errorf("%w: %d", ErrUnknownStatus, int(s))
	}
	return s.Name(), nil
}

// Scan reads a stored name or label.
func (s *Status) Scan(src interface{}) error {
	var raw string
	switch v := src.(type) {
	case string:
		raw = v
	case []byte:
		raw = string(v)
	default:
		return fmt.Errorf("%w: unsupported column type %T", ErrUnknownStatus, src)
	}
	parsed, err := StatusFromString(raw)
	if err != nil {
		return err
	}
	*s = parsed
	return nil
}
