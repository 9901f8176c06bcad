package logging

import "sync"

// RecordedEntry is a log call captured by a Recorder.
type RecordedEntry struct {
	Level   Level
	Message string
	Fields  map[string]any
}

// Recorder keeps log entries in memory. Children created with With share the
// parent's entry list.
type Recorder struct {
	shared *recorderState
	fields []Field
}

type recorderState struct {
	mu      sync.Mutex
	level   Level
	entries []RecordedEntry
}

// NewRecorder returns a recorder capturing every level.
func NewRecorder() *Recorder {
	return &Recorder{shared: &recorderState{level: DebugLevel}}
}

func (r *Recorder) log(level Level, msg string, fields []Field) {
	r.shared.mu.Lock()
	defer r.shared.mu.Unlock()
	if level < r.shared.level {
		return
	}
	r.shared.entries = append(r.shared.entries, RecordedEntry{
		Level:   level,
		Message: msg,
		Fields:  mergeFields(r.fields, fields),
	})
}

func (r *Recorder) Debug(msg string, fields ...Field) { r.log(DebugLevel, msg, fields) }
func (r *Recorder) Info(msg string, fields ...Field)  { r.log(InfoLevel, msg, fields) }
func (r *Recorder) Warn(msg string, fields ...Field)  { r.log(WarnLevel, msg, fields) }
func (r *Recorder) Error(msg string, fields ...Field) { r.log(ErrorLevel, msg, fields) }

func (r *Recorder) With(fields ...Field) Logger {
	return &Recorder{
		shared: r.shared,
		fields: append(append([]Field{}, r.fields...), fields...),
	}
}

func (r *Recorder) SetLevel(level Level) {
	r.shared.mu.Lock()
	r.shared.level = level
	r.shared.mu.Unlock()
}

func (r *Recorder) GetLevel() Level {
	r.shared.mu.Lock()
	defer r.shared.mu.Unlock()
	return r.shared.level
}

// Entries returns a copy of the captured entries.
func (r *Recorder) Entries() []RecordedEntry {
	r.shared.mu.Lock()
	defer r.shared.mu.Unlock()
	return append([]RecordedEntry(nil), r.shared.entries...)
}

// Messages returns the captured messages at or above level.
func (r *Recorder) Messages(level Level) []string {
	var out []string
	for _, e := range r.Entries() {
		if e.Level >= level {
			out = append(out, e.Message)
		}
	}
	return out
}
