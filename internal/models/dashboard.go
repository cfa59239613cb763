package models

type DashboardStats struct {
	TotalUsers    int64  `json:"total_users"`
	ActiveUsers   int64  `json:"active_users"`
	TotalMessages int64  `json:"total_messages"`
	TopUsers      []User `json:"top_users"`
}
