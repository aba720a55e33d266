package logging

// Entry is a set of structured fields bound to a Sink. Entries are values
// built by copying, so one Entry can be shared by goroutines and extended
// independently.
type Entry struct {
	sink   *Sink
	fields Fields
}

// WithFields returns an Entry carrying a copy of fields.
func (s *Sink) WithFields(fields Fields) *Entry {
	e := &Entry{sink: s, fields: make(Fields, len(fields))}
	for k, v := range fields {
		e.fields[k] = v
	}
	return e
}

// WithField returns an Entry carrying a single field.
func (s *Sink) WithField(key string, value interface{}) *Entry {
	return s.WithFields(Fields{key: value})
}

// WithField returns a copy of the entry with key set to value.
func (e *Entry) WithField(key string, value interface{}) *Entry {
	return e.WithFields(Fields{key: value})
}

// WithFields returns a copy of the entry extended with fields.
func (e *Entry) WithFields(fields Fields) *Entry {
	next := &Entry{sink: e.sink, fields: make(Fields, len(e.fields)+len(fields))}
	for k, v := range e.fields {
		next.fields[k] = v
	}
	for k, v := range fields {
		next.fields[k] = v
	}
	return next
}

// WithError returns a copy of the entry carrying err under the "error" key.
func (e *Entry) WithError(err error) *Entry {
	if err == nil {
		return e
	}
	return e.WithField("error", err.Error())
}

// Fields returns a copy of the entry's fields.
func (e *Entry) Fields() Fields {
	out := make(Fields, len(e.fields))
	for k, v := range e.fields {
		out[k] = v
	}
	return out
}

// Log writes one record with the entry's fields.
func (e *Entry) Log(level Level, format string, args ...interface{}) {
	e.sink.write(level, e.fields, format, args...)
}

// Debugf writes a debug record.
func (e *Entry) Debugf(format string, args ...interface{}) {
	e.Log(LevelDebug, format, args...)
}

// Infof writes an info record.
func (e *Entry) Infof(format string, args ...interface{}) {
	e.Log(LevelInfo, format, args...)
}

// Warnf writes a warning record.
func (e *Entry) Warnf(format string, args ...interface{}) {
	e.Log(LevelWarning, format, args...)
}

// Errorf writes an error record.
func (e *Entry) Errorf(format string, args ...interface{}) {
	e.Log(LevelError, format, args...)
}

// Fatalf writes a fatal record. It does not exit.
func (e *Entry) Fatalf(format string, args ...interface{}) {
	e.Log(LevelFatal, format, args...)
}
