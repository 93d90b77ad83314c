// Package model defines the data structures used throughout the application.
// Structs here carry no behaviour beyond small helpers; persistence and
// validation live in the repository and service layers.
package model

import "time"

// SharedSnippet is one shared code submission.
//
// A snippet is written once and never mutated. It disappears either when the
// store's TTL fires at ExpiresAt or when it is deleted explicitly.
type SharedSnippet struct {
	ShareID   string    `json:"shareId"`
	Code      string    `json:"code"`
	Language  string    `json:"language"`
	Title     string    `json:"title"`
	CreatedAt time.Time `json:"createdAt"`
	ExpiresAt time.Time `json:"expiresAt"`
}

// ExpiryDisplayLayout renders timestamps as "2025-01-02 15:04:05 UTC".
const ExpiryDisplayLayout = "2006-01-02 15:04:05 UTC"

// ExpiresAtDisplay formats ExpiresAt the way share links present it to users.
func (s *SharedSnippet) ExpiresAtDisplay() string {
	return s.ExpiresAt.UTC().Format(ExpiryDisplayLayout)
}

// ShareRecord is the per-user history entry kept for a share created by an
// authenticated caller, so the caller can list and remove their links later.
type ShareRecord struct {
	ID        string    `json:"id"`
	UserID    string    `json:"-"`
	ShareID   string    `json:"shareId"`
	Title     string    `json:"title"`
	Language  string    `json:"language"`
	ExpiresAt time.Time `json:"expiresAt"`
	CreatedAt time.Time `json:"createdAt"`
}
