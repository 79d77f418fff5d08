package api

type ErrorResponse struct {
	Error         string            `json:"error" example:"something went wrong"`
	Kind          string            `json:"kind,omitempty" example:"ResourceConflict"`
	ResourceID    string            `json:"resource_id,omitempty" example:"treadmill-01"`
	ReservationID string            `json:"reservation_id,omitempty"`
	Details       []ValidationError `json:"details,omitempty"`
}

type MessageResponse struct {
	Message string `json:"message" example:"ok"`
}

type HealthResponse struct {
	Status string `json:"status" example:"ok"`
}
