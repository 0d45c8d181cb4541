package announcements

const (
	TypeGeneral = "general"
	TypePolicy  = "policy"
	TypeEvent   = "event"
	TypeUrgent  = "urgent"
)

const (
	PriorityLow    = "low"
	PriorityNormal = "normal"
	PriorityHigh   = "high"
)

const (
	AudienceAll        = "all"
	AudienceDepartment = "department"
)

const (
	DeliveryInApp = "in_app"
	DeliveryEmail = "email"
	DeliveryPush  = "push"
)

const (
	StatusActive   = "active"
	StatusArchived = "archived"
	StatusExpired  = "expired"
)

var (
	validTypes      = []string{TypeGeneral, TypePolicy, TypeEvent, TypeUrgent}
	validPriorities = []string{PriorityLow, PriorityNormal, PriorityHigh}
	validAudiences  = []string{AudienceAll, AudienceDepartment}
	validDelivery   = []string{DeliveryInApp, DeliveryEmail, DeliveryPush}
	validStatuses   = []string{StatusActive, StatusArchived, StatusExpired}
)

func oneOf(value string, allowed []string) bool {
	for _, a := range allowed {
		if a == value {
			return true
		}
	}
	return false
}
