package models

import "time"

// Project groups work for a set of members.
type Project struct {
	ID          string     `json:"id"`
	Name        string     `json:"name"`
	Description string     `json:"description"`
	StartDate   *time.Time `json:"startDate,omitempty"`
	EndDate     *time.Time `json:"endDate,omitempty"`
	Members     []string   `json:"members"`
	CreatedBy   string     `json:"createdBy"`
	CreatedAt   time.Time  `json:"createdAt"`
	UpdatedAt   time.Time  `json:"updatedAt"`
}

// HasMember reports whether uid belongs to the project.
func (p Project) HasMember(uid string) bool {
	for _, m := range p.Members {
		if m == uid {
			return true
		}
	}
	return false
}
