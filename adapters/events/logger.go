package events

import (
	"github.com/ThreeDotsLabs/watermill"
	log "github.com/sirupsen/logrus"
)

// LogrusAdapter routes watermill logs through logrus
type LogrusAdapter struct {
	entry *log.Entry
}

func NewLogrusAdapter(logger *log.Logger) watermill.LoggerAdapter {
	return &LogrusAdapter{entry: log.NewEntry(logger)}
}

func (l *LogrusAdapter) Error(msg string, err error, fields watermill.LogFields) {
	l.entry.WithFields(log.Fields(fields)).WithError(err).Error(msg)
}

func (l *LogrusAdapter) Info(msg string, fields watermill.LogFields) {
	l.entry.WithFields(log.Fields(fields)).Info(msg)
}

func (l *LogrusAdapter) Debug(msg string, fields watermill.LogFields) {
	l.entry.WithFields(log.Fields(fields)).Debug(msg)
}

func (l *LogrusAdapter) Trace(msg string, fields watermill.LogFields) {
	l.entry.WithFields(log.Fields(fields)).Trace(msg)
}

func (l *LogrusAdapter) With(fields watermill.LogFields) watermill.LoggerAdapter {
	return &LogrusAdapter{entry: l.entry.WithFields(log.Fields(fields))}
}
