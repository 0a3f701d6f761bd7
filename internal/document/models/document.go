// Package models holds uploaded supporting documents and the intake rules
// applied before an upload URL is issued.
package models

import (
	"fmt"
	"path"
	"strings"
	"time"

	id "govportal/pkg/domain"
	dErrors "govportal/pkg/domain-errors"
)

type Kind string

const (
	KindLease            Kind = "lease"
	KindProofOfIdentity  Kind = "proof_of_identity"
	KindProofOfResidency Kind = "proof_of_residency"
)

func (k Kind) IsValid() bool {
	switch k {
	case KindLease, KindProofOfIdentity, KindProofOfResidency:
		return true
	}
	return false
}

type Status string

const (
	StatusPendingUpload Status = "PENDING_UPLOAD"
	StatusUploaded      Status = "UPLOADED"
)

// MaxSizeBytes is the largest accepted upload.
const MaxSizeBytes int64 = 10 << 20

var allowedContentTypes = map[string]bool{
	"application/pdf": true,
	"image/png":       true,
	"image/jpeg":      true,
}

// Document is one supporting file attached to a submitted application.
type Document struct {
	ID            id.DocumentID
	ApplicationID id.ApplicationID
	UserID        id.UserID
	Kind          Kind
	FileName      string
	ContentType   string
	SizeBytes     int64
	StorageKey    string
	Status        Status
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// Upload describes a requested upload before it has a document row.
type Upload struct {
	ApplicationID *id.ApplicationID
	Kind          Kind
	FileName      string
	ContentType   string
	SizeBytes     int64
}

// Validate applies the kind, content type and size rules.
func (u Upload) Validate() error {
	if !u.Kind.IsValid() {
		return dErrors.New(dErrors.CodeValidation, "Unknown document kind")
	}
	if strings.TrimSpace(u.FileName) == "" {
		return dErrors.New(dErrors.CodeValidation, "File name is required")
	}
	if !allowedContentTypes[strings.ToLower(u.ContentType)] {
		return dErrors.New(dErrors.CodeValidation, "Only PDF, PNG or JPG files are accepted")
	}
	if u.SizeBytes <= 0 {
		return dErrors.New(dErrors.CodeValidation, "File is empty")
	}
	if u.SizeBytes > MaxSizeBytes {
		return dErrors.New(dErrors.CodeValidation, "File exceeds the 10MB limit")
	}
	return nil
}

// NewDocument builds a pending document for an application.
func NewDocument(userID id.UserID, appID id.ApplicationID, u Upload, now time.Time) *Document {
	docID := id.NewDocumentID()
	return &Document{
		ID:            docID,
		ApplicationID: appID,
		UserID:        userID,
		Kind:          u.Kind,
		FileName:      strings.TrimSpace(u.FileName),
		ContentType:   strings.ToLower(u.ContentType),
		SizeBytes:     u.SizeBytes,
		StorageKey:    StorageKey(userID, docID, u.FileName, now),
		Status:        StatusPendingUpload,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
}

// StorageKey is documents/<user>/<yyyy>/<mm>/<doc>/<base name>.
func StorageKey(userID id.UserID, docID id.DocumentID, fileName string, now time.Time) string {
	name := path.Base(strings.ReplaceAll(strings.TrimSpace(fileName), "\\", "/"))
	if name == "." || name == ".." || name == "/" || name == "" {
		name = "file"
	}
	return fmt.Sprintf("documents/%s/%04d/%02d/%s/%s", userID, now.Year(), int(now.Month()), docID, name)
}
