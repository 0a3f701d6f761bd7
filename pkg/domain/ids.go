// Package domain holds typed identifiers shared across modules.
//
// Each ID is a distinct named uuid.UUID so the compiler rejects passing an
// ApplicationID where a UserID is expected. Parse* functions are the trust
// boundary: they reject empty, malformed and nil UUIDs.
package domain

import (
	"strings"

	"github.com/google/uuid"

	dErrors "govportal/pkg/domain-errors"
)

type (
	UserID        uuid.UUID
	ApplicationID uuid.UUID
	DocumentID    uuid.UUID
)

func NewUserID() UserID               { return UserID(uuid.New()) }
func NewApplicationID() ApplicationID { return ApplicationID(uuid.New()) }
func NewDocumentID() DocumentID       { return DocumentID(uuid.New()) }

func (id UserID) String() string        { return uuid.UUID(id).String() }
func (id ApplicationID) String() string { return uuid.UUID(id).String() }
func (id DocumentID) String() string    { return uuid.UUID(id).String() }

func (id UserID) IsNil() bool        { return uuid.UUID(id) == uuid.Nil }
func (id ApplicationID) IsNil() bool { return uuid.UUID(id) == uuid.Nil }
func (id DocumentID) IsNil() bool    { return uuid.UUID(id) == uuid.Nil }

func (id UserID) MarshalText() ([]byte, error)        { return []byte(id.String()), nil }
func (id ApplicationID) MarshalText() ([]byte, error) { return []byte(id.String()), nil }
func (id DocumentID) MarshalText() ([]byte, error)    { return []byte(id.String()), nil }

func (id *UserID) UnmarshalText(b []byte) error {
	parsed, err := ParseUserID(string(b))
	if err != nil {
		return err
	}
	*id = parsed
	return nil
}

func (id *ApplicationID) UnmarshalText(b []byte) error {
	parsed, err := ParseApplicationID(string(b))
	if err != nil {
		return err
	}
	*id = parsed
	return nil
}

func (id *DocumentID) UnmarshalText(b []byte) error {
	parsed, err := ParseDocumentID(string(b))
	if err != nil {
		return err
	}
	*id = parsed
	return nil
}

// ParseUserID parses a user identifier.
func ParseUserID(s string) (UserID, error) {
	u, err := parseUUID(s, "user_id")
	return UserID(u), err
}

// ParseApplicationID parses an application identifier.
func ParseApplicationID(s string) (ApplicationID, error) {
	u, err := parseUUID(s, "application_id")
	return ApplicationID(u), err
}

// ParseDocumentID parses a document identifier.
func ParseDocumentID(s string) (DocumentID, error) {
	u, err := parseUUID(s, "document_id")
	return DocumentID(u), err
}

func parseUUID(s, field string) (uuid.UUID, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return uuid.Nil, dErrors.Newf(dErrors.CodeInvalidInput, "%s is required", field)
	}
	u, err := uuid.Parse(s)
	if err != nil {
		return uuid.Nil, dErrors.Newf(dErrors.CodeInvalidInput, "%s is not a valid identifier", field)
	}
	if u == uuid.Nil {
		return uuid.Nil, dErrors.Newf(dErrors.CodeInvalidInput, "%s must not be nil", field)
	}
	return u, nil
}
