package domain

// Fields and values interpreted by the coordination core. Every other
// field is opaque payload passed between the two strategies.
const (
	FieldCommand  = "command"
	FieldWorkerID = "worker_id"
	FieldStatus   = "status"

	CommandWait     = "wait"
	CommandShutdown = "shutdown"

	StatusInitialHello = "initial_hello"
	StatusWaitDone     = "wait_done"
)

// NewHello builds the first report a worker sends after it starts.
func NewHello(workerID int) *Message {
	return NewMessage().
		SetInt(FieldWorkerID, int64(workerID)).
		SetString(FieldStatus, StatusInitialHello)
}

// NewWaitDone builds the report the master synthesizes for a parked worker.
func NewWaitDone(workerID int) *Message {
	return NewMessage().
		SetInt(FieldWorkerID, int64(workerID)).
		SetString(FieldStatus, StatusWaitDone)
}

// NewCommand builds a command message carrying only the command name.
func NewCommand(name string) *Message {
	return NewMessage().SetString(FieldCommand, name)
}

// CommandName returns the reserved command field of msg.
func CommandName(msg *Message) (string, error) {
	return msg.GetString(FieldCommand)
}
