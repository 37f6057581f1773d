// Package types contains common types used across the application
package types

import "time"

// IdentificationRecord represents a resolved identification as exposed
// over the API and kept in the journal.
type IdentificationRecord struct {
	ID               string    `json:"id"`
	SubjectID        string    `json:"subject_id"`
	Name             string    `json:"name,omitempty"`
	Distance         float64   `json:"distance"`
	MatchCount       int       `json:"match_count"`
	TotalDescriptors int       `json:"total_descriptors"`
	At               time.Time `json:"at"`
}
