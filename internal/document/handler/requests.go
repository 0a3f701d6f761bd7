package handler

import (
	"strings"

	"govportal/internal/document/models"
	id "govportal/pkg/domain"
	dErrors "govportal/pkg/domain-errors"
)

// UploadRequest is the body of POST /api/documents.
type UploadRequest struct {
	ApplicationID string `json:"applicationId"`
	Kind          string `json:"kind"`
	FileName      string `json:"fileName"`
	ContentType   string `json:"contentType"`
	SizeBytes     int64  `json:"sizeBytes"`
}

func (r *UploadRequest) Sanitize() {
	r.ApplicationID = strings.TrimSpace(r.ApplicationID)
	r.Kind = strings.ToLower(strings.TrimSpace(r.Kind))
	r.FileName = strings.TrimSpace(r.FileName)
	r.ContentType = strings.ToLower(strings.TrimSpace(r.ContentType))
}

func (r *UploadRequest) Validate() error {
	if r.ApplicationID != "" {
		if _, err := id.ParseApplicationID(r.ApplicationID); err != nil {
			return dErrors.New(dErrors.CodeValidation, "Invalid applicationId")
		}
	}
	return r.upload().Validate()
}

// Upload converts the request. Call after Validate.
func (r *UploadRequest) Upload() models.Upload {
	return r.upload()
}

func (r *UploadRequest) upload() models.Upload {
	u := models.Upload{
		Kind:        models.Kind(r.Kind),
		FileName:    r.FileName,
		ContentType: r.ContentType,
		SizeBytes:   r.SizeBytes,
	}
	if appID, err := id.ParseApplicationID(r.ApplicationID); err == nil {
		u.ApplicationID = &appID
	}
	return u
}
