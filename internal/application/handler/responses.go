package handler

import (
	"time"

	"govportal/internal/application/models"
)

type DraftView struct {
	ApplicationID string         `json:"applicationId"`
	CurrentStep   int            `json:"currentStep"`
	Data          map[string]any `json:"data"`
}

type DraftResponse struct {
	Draft *DraftView `json:"draft"`
}

type SavedResponse struct {
	OK            bool   `json:"ok"`
	ApplicationID string `json:"applicationId"`
}

type ApplicationView struct {
	ID          string         `json:"id"`
	Status      models.Status  `json:"status"`
	FormData    map[string]any `json:"formData"`
	CreatedAt   time.Time      `json:"createdAt"`
	UpdatedAt   time.Time      `json:"updatedAt"`
	SubmittedAt *time.Time     `json:"submittedAt"`
}

type ApplicationResponse struct {
	Application *ApplicationView `json:"application"`
}

type ApplicationsResponse struct {
	Applications []*ApplicationView `json:"applications"`
}

func toDraftView(d *models.Draft) *DraftView {
	if d == nil {
		return nil
	}
	data := d.Data
	if data == nil {
		data = map[string]any{}
	}
	return &DraftView{ApplicationID: d.ApplicationID.String(), CurrentStep: d.CurrentStep, Data: data}
}

func toApplicationView(a *models.Application) *ApplicationView {
	return &ApplicationView{
		ID:          a.ID.String(),
		Status:      a.Status,
		FormData:    a.FormData,
		CreatedAt:   a.CreatedAt,
		UpdatedAt:   a.UpdatedAt,
		SubmittedAt: a.SubmittedAt,
	}
}
