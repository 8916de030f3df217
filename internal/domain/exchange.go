package domain

import (
	"time"

	"github.com/google/uuid"
)

// Exchange is one steering decision taken by the master: the report that
// was fed to the decision strategy and the command it produced.
type Exchange struct {
	RunID        uuid.UUID `db:"run_id" json:"run_id"`
	// Incarnation identifies the master process that took the decision;
	// a master restarted under the same run id starts a new one.
	Incarnation  uuid.UUID `db:"incarnation" json:"incarnation"`
	Seq          int64     `db:"seq" json:"seq"`
	WorkerID     int       `db:"worker_id" json:"worker_id"`
	ReportStatus string    `db:"report_status" json:"report_status"`
	Command      string    `db:"command" json:"command"`
	Synthetic    bool      `db:"synthetic" json:"synthetic"`
	Report       *Message  `db:"-" json:"report"`
	Reply        *Message  `db:"-" json:"reply"`
	CreatedAt    time.Time `db:"created_at" json:"created_at"`
}
