package config

import "time"

type ScheduleSvcCfg struct {
	SnapshotInterval time.Duration
	PresenceInterval time.Duration
	LookupTimeout    time.Duration
	// HeartbeatInterval is how often tcp workers ping the master
	HeartbeatInterval time.Duration
	// JournalTimeout bounds each exchange journal write
	JournalTimeout time.Duration
}

func NewScheduleSvcCfg() *ScheduleSvcCfg {
	return &ScheduleSvcCfg{
		SnapshotInterval:  getSecondsEnv("SCHEDULER_SNAPSHOT_INTERVAL_SEC", 60*time.Second),
		PresenceInterval:  getSecondsEnv("WORKER_PRESENCE_INTERVAL_SEC", 60*time.Second),
		LookupTimeout:     getSecondsEnv("MASTER_LOOKUP_TIMEOUT_SEC", 120*time.Second),
		HeartbeatInterval: getSecondsEnv("WORKER_HEARTBEAT_INTERVAL_SEC", 30*time.Second),
		JournalTimeout:    getSecondsEnv("EXCHANGE_JOURNAL_TIMEOUT_SEC", 5*time.Second),
	}
}
