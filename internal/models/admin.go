package models

type RevenueTotal struct {
	Currency string `json:"currency"`
	Amount   int64  `json:"amount"`
	Count    int64  `json:"count"`
}

type AdminStats struct {
	UsersByRole       map[Role]int64          `json:"users_by_role"`
	PendingCoaches    int64                   `json:"pending_coaches"`
	SessionsByStatus  map[SessionStatus]int64 `json:"sessions_by_status"`
	ActiveEnrollments int64                   `json:"active_enrollments"`
	Revenue           []RevenueTotal          `json:"revenue"`
	Credits           *CreditStats            `json:"credits"`
}
