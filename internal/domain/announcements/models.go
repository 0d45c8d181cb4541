package announcements

import (
	"errors"
	"time"
)

var (
	ErrNotFound = errors.New("announcement not found")
	ErrInvalid  = errors.New("invalid announcement")
)

type Announcement struct {
	ID                 string     `json:"id"`
	Title              string     `json:"title"`
	Message            string     `json:"message"`
	Type               string     `json:"type"`
	Priority           string     `json:"priority"`
	TargetAudience     string     `json:"targetAudience"`
	TargetDepartmentID string     `json:"targetDepartmentId,omitempty"`
	DeliveryMethod     string     `json:"deliveryMethod"`
	Status             string     `json:"status"`
	ExpiryDate         *time.Time `json:"expiryDate,omitempty"`
	CreatedBy          string     `json:"createdBy"`
	CreatedAt          time.Time  `json:"createdAt"`
	UpdatedAt          time.Time  `json:"updatedAt"`
}

// Delivery summarises what happened when an announcement went out.
type Delivery struct {
	Method     string `json:"method"`
	Recipients int    `json:"recipients"`
	Sent       int    `json:"sent"`
	Failed     int    `json:"failed"`
}
