package utils

import (
	"io"
	"log"
	"os"
)

// Logger is a simple logger for the application
type Logger struct {
	infoLog  *log.Logger
	errorLog *log.Logger
	file     *os.File
}

// NewLogger creates a new logger
func NewLogger() *Logger {
	return &Logger{
		infoLog:  log.New(os.Stdout, "INFO: ", log.Ldate|log.Ltime|log.Lshortfile),
		errorLog: log.New(os.Stderr, "ERROR: ", log.Ldate|log.Ltime|log.Lshortfile),
	}
}

// NewFileLogger creates a logger that writes to both the console and the
// given file. If the file cannot be opened it falls back to console only.
func NewFileLogger(path string) *Logger {
	l := NewLogger()
	if path == "" {
		return l
	}
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		l.Error("could not open log file %s: %v", path, err)
		return l
	}
	l.file = f
	l.infoLog.SetOutput(io.MultiWriter(os.Stdout, f))
	l.errorLog.SetOutput(io.MultiWriter(os.Stderr, f))
	return l
}

// Info logs an informational message
func (l *Logger) Info(format string, v ...interface{}) {
	l.infoLog.Printf(format, v...)
}

// Error logs an error message
func (l *Logger) Error(format string, v ...interface{}) {
	l.errorLog.Printf(format, v...)
}

// Close releases the log file, if any.
func (l *Logger) Close() error {
	if l.file == nil {
		return nil
	}
	return l.file.Close()
}
