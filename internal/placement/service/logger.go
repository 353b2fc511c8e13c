package service

import "log"

// Logger provides tagged logging for the placement services.
type Logger struct {
	component string
}

// NewLogger creates a logger for the given component tag.
func NewLogger(component string) *Logger {
	return &Logger{component: component}
}

// LogError logs an error with context.
func (l *Logger) LogError(operation string, err error) {
	log.Printf("[error] component=%s operation=%s error=%v", l.component, operation, err)
}

// LogInfof logs a formatted info message with context.
func (l *Logger) LogInfof(operation string, format string, args ...interface{}) {
	log.Printf("[info] component=%s operation=%s "+format, append([]interface{}{l.component, operation}, args...)...)
}

// LogWarnf logs a formatted warning with context.
func (l *Logger) LogWarnf(operation string, format string, args ...interface{}) {
	log.Printf("[warn] component=%s operation=%s "+format, append([]interface{}{l.component, operation}, args...)...)
}
