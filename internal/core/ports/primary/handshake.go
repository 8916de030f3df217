package primary

// HandshakeService issues and checks the token a worker presents when it
// registers with the master.
type HandshakeService interface {
	IssueWorkerToken(workerID int) (string, error)
	VerifyWorkerToken(token string) (int, error)
	Enabled() bool
}
