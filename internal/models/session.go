package models

import "time"

// Session is an academic year. Which session is current lives in the
// configuration record, not on the session itself.
type Session struct {
	ID        string    `json:"id" bson:"_id"`
	Name      string    `json:"name" bson:"name"`
	StartDate string    `json:"startDate" bson:"startDate"`
	EndDate   string    `json:"endDate" bson:"endDate"`
	CreatedAt time.Time `json:"createdAt" bson:"createdAt"`
	Version   int64     `json:"version" bson:"version"`
}

// SessionView decorates a session with its current flag.
type SessionView struct {
	Session
	IsCurrent bool `json:"isCurrent"`
}
