package model

import "time"

// CompanyProfile parameterizes relevance ranking. Only the fields used by
// the ranker are modelled here.
type CompanyProfile struct {
	ID                   string    `json:"id" gorm:"primaryKey"`
	Name                 string    `json:"name"`
	Industry             string    `json:"industry"`
	InnovationPriorities []string  `json:"innovationPriorities" gorm:"serializer:json"`
	BusinessChallenges   []string  `json:"businessChallenges" gorm:"serializer:json"`
	TeamExpertise        []string  `json:"teamExpertise" gorm:"serializer:json"`
	Budget               string    `json:"budget"`   // very_low, low, medium, high, very_high
	Timeline             string    `json:"timeline"` // immediate, short_term, medium_term, long_term
	UpdatedAt            time.Time `json:"updatedAt"`
}
