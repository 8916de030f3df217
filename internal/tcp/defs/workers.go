package defs

// Protocol data structures
type (
	// WorkerRegistrationData represents the data sent during worker registration
	WorkerRegistrationData struct {
		WorkerID int    `json:"worker_id"`
		Token    string `json:"token,omitempty"`
		Hostname string `json:"hostname"`
	}

	// RegisterAckData confirms a registration
	RegisterAckData struct {
		WorkerID int    `json:"worker_id"`
		RunID    string `json:"run_id"`
	}

	// WorkerHeartbeatData represents the data sent during worker heartbeat
	WorkerHeartbeatData struct {
		WorkerID  int   `json:"worker_id"`
		Timestamp int64 `json:"timestamp"`
	}

	// ErrorData represents data sent with error responses
	ErrorData struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
	}
)
