package models

import "time"

// PlaceholderTripName is the name of the stand-in trip shown to users without trips
const PlaceholderTripName = "model trip"

// User represents a registered user
type User struct {
	ID           int64     `json:"id"`
	Username     string    `json:"username"`
	PasswordHash string    `json:"-"`
	CreatedAt    time.Time `json:"created_at"`
}

// Trip represents one trip record owned by a user
type Trip struct {
	ID           int64      `json:"id"`
	UserID       int64      `json:"user_id"`
	Tripname     string     `json:"tripname"`
	StartDate    *time.Time `json:"start_date,omitempty"`
	EndDate      *time.Time `json:"end_date,omitempty"`
	Location     string     `json:"location"`
	Impressions  string     `json:"impressions"`
	Description1 string     `json:"description1"`
	Description2 string     `json:"description2"`
	Title1       string     `json:"title1"`
	Title2       string     `json:"title2"`
	Photo1       string     `json:"photo1,omitempty"`
	Photo2       string     `json:"photo2,omitempty"`
	CreatedAt    time.Time  `json:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at"`
}

// NewPlaceholderTrip returns the non-persisted trip rendered when a user owns none
func NewPlaceholderTrip(userID int64) *Trip {
	return &Trip{ID: 0, UserID: userID, Tripname: PlaceholderTripName}
}

// IsPlaceholder reports whether the trip is the non-persisted stand-in
func (t *Trip) IsPlaceholder() bool {
	return t.ID == 0
}

// HasPhoto reports whether the given slot (1 or 2) carries an identifier
func (t *Trip) HasPhoto(slot int) bool {
	switch slot {
	case 1:
		return t.Photo1 != ""
	case 2:
		return t.Photo2 != ""
	}
	return false
}

// ReferencesPhoto reports whether photoID is one of the trip's photo identifiers
func (t *Trip) ReferencesPhoto(photoID string) bool {
	return photoID != "" && (t.Photo1 == photoID || t.Photo2 == photoID)
}
