package handler

import (
	"time"

	"govportal/internal/document/models"
)

type DocumentView struct {
	ID            string        `json:"id"`
	ApplicationID string        `json:"applicationId"`
	Kind          models.Kind   `json:"kind"`
	FileName      string        `json:"fileName"`
	ContentType   string        `json:"contentType"`
	SizeBytes     int64         `json:"sizeBytes"`
	Status        models.Status `json:"status"`
	CreatedAt     time.Time     `json:"createdAt"`
	UpdatedAt     time.Time     `json:"updatedAt"`
}

type UploadResponse struct {
	Document  *DocumentView `json:"document"`
	UploadURL string        `json:"uploadUrl"`
	Method    string        `json:"method"`
	ExpiresAt time.Time     `json:"expiresAt"`
}

type DocumentResponse struct {
	Document *DocumentView `json:"document"`
}

type DocumentsResponse struct {
	Documents []*DocumentView `json:"documents"`
}

func toDocumentView(d *models.Document) *DocumentView {
	if d == nil {
		return nil
	}
	return &DocumentView{
		ID:            d.ID.String(),
		ApplicationID: d.ApplicationID.String(),
		Kind:          d.Kind,
		FileName:      d.FileName,
		ContentType:   d.ContentType,
		SizeBytes:     d.SizeBytes,
		Status:        d.Status,
		CreatedAt:     d.CreatedAt,
		UpdatedAt:     d.UpdatedAt,
	}
}
