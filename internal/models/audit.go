package models

import "time"

// AuditLog is one mutating request recorded for the finance audit trail.
type AuditLog struct {
	ID         string            `json:"id" bson:"_id"`
	UserID     *string           `json:"userId,omitempty" bson:"userId,omitempty"`
	Role       string            `json:"role,omitempty" bson:"role,omitempty"`
	Action     string            `json:"action" bson:"action"`
	Resource   string            `json:"resource" bson:"resource"`
	ResourceID *string           `json:"resourceId,omitempty" bson:"resourceId,omitempty"`
	StatusCode int               `json:"statusCode" bson:"statusCode"`
	Details    map[string]string `json:"details,omitempty" bson:"details,omitempty"`
	RequestID  string            `json:"requestId,omitempty" bson:"requestId,omitempty"`
	IPAddress  string            `json:"ipAddress" bson:"ipAddress"`
	UserAgent  string            `json:"userAgent" bson:"userAgent"`
	CreatedAt  time.Time         `json:"createdAt" bson:"createdAt"`
}
