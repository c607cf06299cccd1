package audit

// NoOpLogger is a no-op implementation for when auditing is disabled
type NoOpLogger struct{}

func NewNoOpLogger() Logger {
	return new(NoOpLogger)
}

func (n *NoOpLogger) Log(action string, success bool, metadata map[string]interface{}) error {
	return nil
}

func (n *NoOpLogger) Close() error {
	return nil
}
