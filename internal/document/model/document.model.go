package model

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"
)

var ErrInvalidStatus = errors.New("invalid status")

// Status is the review state of a document. Only the three declared values
// are accepted, on the wire and in storage.
type Status string

const (
	StatusDraft    Status = "Draft"
	StatusReviewed Status = "Reviewed"
	StatusSigned   Status = "Signed"
)

// ParseStatus returns the Status named by s. Matching is exact.
func ParseStatus(s string) (Status, error) {
	switch Status(s) {
	case StatusDraft, StatusReviewed, StatusSigned:
		return Status(s), nil
	}
	return "", fmt.Errorf("%w: %q (must be Draft, Reviewed or Signed)", ErrInvalidStatus, s)
}

func (s Status) Valid() bool {
	_, err := ParseStatus(string(s))
	return err == nil
}

func (s Status) MarshalJSON() ([]byte, error) {
	if !s.Valid() {
		return nil, fmt.Errorf("%w: %q", ErrInvalidStatus, string(s))
	}
	return json.Marshal(string(s))
}

func (s *Status) UnmarshalJSON(data []byte) error {
	var raw string
	if err := json.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("%w: expected a string", ErrInvalidStatus)
	}
	parsed, err := ParseStatus(raw)
	if err != nil {
		return err
	}
	*s = parsed
	return nil
}

// Value implements driver.Valuer so an unknown status never reaches the table.
func (s Status) Value() (driver.Value, error) {
	if !s.Valid() {
		return nil, fmt.Errorf("%w: %q", ErrInvalidStatus, string(s))
	}
	return string(s), nil
}

// Scan implements sql.Scanner and rejects rows holding an unknown status.
func (s *Status) Scan(src any) error {
	var raw string
	switch v := src.(type) {
	case string:
		raw = v
	case []byte:
		raw = string(v)
	case nil:
		return fmt.Errorf("%w: NULL", ErrInvalidStatus)
	default:
		return fmt.Errorf("%w: unsupported type %T", ErrInvalidStatus, src)
	}
	parsed, err := ParseStatus(raw)
	if err != nil {
		return err
	}
	*s = parsed
	return nil
}

type Document struct {
	ID        int64      `json:"id"`
	Title     string     `json:"title"`
	Status    Status     `json:"status"`
	CreatedAt *time.Time `json:"created_at,omitempty"`
}

func (d Document) String() string {
	return fmt.Sprintf("DOC #%d: [%s] - Status: %s", d.ID, d.Title, d.Status)
}

// CreateDocRequest mirrors Document with pointer fields so a missing id or
// status can be told apart from a zero value.
type CreateDocRequest struct {
	ID     *int64  `json:"id"`
	Title  string  `json:"title"`
	Status *Status `json:"status"`
}

// Document validates the request shape and returns the document to store.
func (r CreateDocRequest) Document() (Document, error) {
	if r.ID == nil {
		return Document{}, errors.New("id is required")
	}
	if *r.ID < 0 {
		return Document{}, errors.New("id must not be negative")
	}
	if r.Status == nil {
		return Document{}, errors.New("status is required")
	}
	if strings.TrimSpace(r.Title) == "" {
		return Document{}, errors.New("title cannot be empty")
	}
	return Document{ID: *r.ID, Title: r.Title, Status: *r.Status}, nil
}
