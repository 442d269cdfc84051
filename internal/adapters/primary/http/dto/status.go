package dto

import (
	"time"

	"status-notification/internal/core/domain"
)

const timeFormat = time.RFC3339Nano

// ============================================================================
// Heartbeat DTOs
// ============================================================================

// UpdateStatusRequest accepts both the object/sub-object form and the older
// program_name/api_key form.
type UpdateStatusRequest struct {
	ObjectName    string `json:"object_name"`
	SubObjectName string `json:"sub_object_name"`
	ProgramName   string `json:"program_name"`
	APIKey        string `json:"api_key"`
}

func (r UpdateStatusRequest) ToHeartbeat() domain.Heartbeat {
	return domain.Heartbeat{
		ObjectName:    r.ObjectName,
		SubObjectName: r.SubObjectName,
		ProgramName:   r.ProgramName,
		APIKey:        r.APIKey,
	}
}

type StatusResponse struct {
	Status string `json:"status"`
}

type ErrorResponse struct {
	Detail string `json:"detail"`
}

// ============================================================================
// Status Tree DTOs
// ============================================================================

type SubObjectStatusResponse struct {
	Name       string  `json:"name"`
	LastUpdate *string `json:"last_update"`
	Status     string  `json:"status"`
	Paused     bool    `json:"paused"`
}

type ObjectStatusResponse struct {
	Name     string                    `json:"name"`
	Paused   bool                      `json:"paused"`
	Children []SubObjectStatusResponse `json:"children"`
}

type CheckStatusResponse struct {
	InactivePrograms []string `json:"inactive_programs"`
	AllPrograms      []string `json:"all_programs"`
}

func ToObjectStatusResponse(o domain.ObjectStatus) ObjectStatusResponse {
	children := make([]SubObjectStatusResponse, 0, len(o.Children))
	for _, sub := range o.Children {
		var lastUpdate *string
		if sub.LastUpdate != nil {
			s := sub.LastUpdate.UTC().Format(timeFormat)
			lastUpdate = &s
		}
		children = append(children, SubObjectStatusResponse{
			Name:       sub.Name,
			LastUpdate: lastUpdate,
			Status:     string(sub.Status),
			Paused:     sub.Paused,
		})
	}
	return ObjectStatusResponse{
		Name:     o.Name,
		Paused:   o.Paused,
		Children: children,
	}
}

func ToCheckStatusResponse(s *domain.LegacyStatus) CheckStatusResponse {
	return CheckStatusResponse{
		InactivePrograms: s.InactivePrograms,
		AllPrograms:      s.AllPrograms,
	}
}
