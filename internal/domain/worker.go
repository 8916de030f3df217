package domain

import "time"

// WorkerInfo is the presence record of a worker connected to a master.
type WorkerInfo struct {
	RunID         string    `json:"run_id"`
	ID            int       `json:"id"`
	IpAddress     string    `json:"ip_address"`
	Hostname      string    `json:"hostname"`
	ConnectedAt   time.Time `json:"connected_at"`
	LastHeartbeat time.Time `json:"last_heartbeat"`
	Stopped       bool      `json:"stopped"`
	IsActive      bool      `json:"is_active"`
}

// SchedulerSnapshot is a point-in-time copy of the master scheduler state.
type SchedulerSnapshot struct {
	RunID        string `json:"run_id"`
	Workers      int    `json:"workers"`
	Slot         int    `json:"slot"`
	Parked       []int  `json:"parked"`
	Shutdowns    int    `json:"shutdowns"`
	Steps        int64  `json:"steps"`
	RealReports  int64  `json:"real_reports"`
	WakeReports  int64  `json:"wake_reports"`
	CommandsSent int64  `json:"commands_sent"`
	Done         bool   `json:"done"`
}
