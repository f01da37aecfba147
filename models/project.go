package models

import (
	"encoding/json"
	"fmt"
	"strings"
)

// JobScope is a project's declared scope labels. The store sends either a
// comma-separated string or an array; both decode to a slice.
type JobScope []string

func (j *JobScope) UnmarshalJSON(data []byte) error {
	trimmed := strings.TrimSpace(string(data))
	if trimmed == "null" || trimmed == "" {
		*j = nil
		return nil
	}
	if strings.HasPrefix(trimmed, "[") {
		var labels []string
		if err := json.Unmarshal(data, &labels); err != nil {
			return fmt.Errorf("invalid job_scope array: %w", err)
		}
		*j = labels
		return nil
	}
	var raw string
	if err := json.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("invalid job_scope: %w", err)
	}
	*j = SplitJobScope(raw)
	return nil
}

// SplitJobScope splits on commas, trims tokens and drops empty ones.
func SplitJobScope(raw string) JobScope {
	var out JobScope
	for _, token := range strings.Split(raw, ",") {
		token = strings.TrimSpace(token)
		if token != "" {
			out = append(out, token)
		}
	}
	return out
}

type Project struct {
	ID           int      `json:"id"`
	Name         string   `json:"name"`
	Description  string   `json:"description,omitempty"`
	JobScope     JobScope `json:"job_scope"`
	AdminID      int      `json:"admin_id,omitempty"`
	TechnicianID int      `json:"technician_id,omitempty"`
	Status       string   `json:"status,omitempty"`
	State        string   `json:"state,omitempty"`
	StartDate    string   `json:"start_date,omitempty"`
	EndDate      string   `json:"end_date,omitempty"`
	Progress     *float64 `json:"progress,omitempty"`
	ContactName  string   `json:"contact_name,omitempty"`
	ContactEmail string   `json:"contact_email,omitempty"`
	ContactPhone string   `json:"contact_phone,omitempty"`
	TechName     string   `json:"tech_name,omitempty"`
	TechEmail    string   `json:"tech_email,omitempty"`
	TechPhone    string   `json:"tech_phone,omitempty"`
	AdminName    string   `json:"admin_name,omitempty"`
	AdminEmail   string   `json:"admin_email,omitempty"`
	AdminPhone   string   `json:"admin_phone,omitempty"`
	CreatedAt    string   `json:"created_at,omitempty"`
	UpdatedAt    string   `json:"updated_at,omitempty"`
}
