package logger

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"runtime/debug"
	"strings"
	"sync"
	"time"
)

// Level — уровень записи: DEBUG, INFO, WARN, ERROR
type Level int

const (
	LevelDebug Level = iota
	LevelInfo
	LevelWarn
	LevelError
)

func ParseLevel(s string) Level {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "DEBUG":
		return LevelDebug
	case "WARN":
		return LevelWarn
	case "ERROR":
		return LevelError
	default:
		return LevelInfo
	}
}

func levelString(l Level) string {
	switch l {
	case LevelDebug:
		return "DEBUG"
	case LevelWarn:
		return "WARN"
	case LevelError:
		return "ERROR"
	default:
		return "INFO"
	}
}

// ErrObj for error logs
type ErrObj struct {
	Msg   string `json:"msg"`
	Stack string `json:"stack,omitempty"`
}

// Entry — структура одной записи лога
type Entry struct {
	Timestamp    string         `json:"timestamp"`               // ISO 8601 (UTC)
	Level        string         `json:"level"`                   // INFO | DEBUG | WARN | ERROR
	Service      string         `json:"service"`                 // e.g., stream-service
	Action       string         `json:"action"`                  // event name, e.g., area_subscribed
	Message      string         `json:"message"`                 // human-readable
	Hostname     string         `json:"hostname"`                // container/host
	RequestID    string         `json:"request_id,omitempty"`    // correlation id
	SubscriberID string         `json:"subscriber_id,omitempty"` // when applicable
	Error        *ErrObj        `json:"error,omitempty"`         // only for ERROR
	Additional   map[string]any `json:"additional,omitempty"`    // optional extras
}

type Logger struct {
	service  string
	minLevel Level
	hostname string
	pretty   bool // если true, используем json.MarshalIndent

	outWriter io.Writer // stdout
	errWriter io.Writer // stderr для ошибок
	mu        sync.Mutex
}

// NewLogger stdout-only (recommended for prod)
func NewLogger(service string) *Logger {
	h, _ := os.Hostname()
	pretty := strings.ToLower(os.Getenv("LOG_PRETTY")) == "true"

	return &Logger{
		service:   service,
		minLevel:  ParseLevel(os.Getenv("LOG_LEVEL")),
		hostname:  h,
		pretty:    pretty,
		outWriter: os.Stdout,
		errWriter: os.Stderr,
	}
}

// NewLoggerWithWriter направляет весь вывод в w (используется в тестах)
func NewLoggerWithWriter(service string, w io.Writer) *Logger {
	h, _ := os.Hostname()
	return &Logger{
		service:   service,
		minLevel:  LevelDebug,
		hostname:  h,
		outWriter: w,
		errWriter: w,
	}
}

func (l *Logger) Debug(e Entry) { l.log(LevelDebug, e, nil) }
func (l *Logger) Info(e Entry)  { l.log(LevelInfo, e, nil) }
func (l *Logger) Warn(e Entry)  { l.log(LevelWarn, e, nil) }
func (l *Logger) Error(e Entry) { l.log(LevelError, e, nil) }
func (l *Logger) Fatal(e Entry) {
	// include stack automatically for fatal
	if e.Error == nil {
		e.Error = &ErrObj{Msg: e.Message, Stack: string(debug.Stack())}
	} else if e.Error.Stack == "" {
		e.Error.Stack = string(debug.Stack())
	}
	l.log(LevelError, e, nil)
	os.Exit(1)
}

// WithFields returns a shallow "context" logger that auto-merges Additional fields.
func (l *Logger) WithFields(base map[string]any) *ContextLogger {
	return &ContextLogger{parent: l, base: base}
}

// WithSubscriber is a helper to attach request_id and subscriber_id.
func (l *Logger) WithSubscriber(requestID, subscriberID string) *ContextLogger {
	base := map[string]any{}
	if requestID != "" {
		base["request_id"] = requestID
	}
	if subscriberID != "" {
		base["subscriber_id"] = subscriberID
	}
	return &ContextLogger{parent: l, base: base}
}

type ContextLogger struct {
	parent *Logger
	base   map[string]any
}

func (c *ContextLogger) Debug(e Entry) { c.parent.log(LevelDebug, e, c.base) }
func (c *ContextLogger) Info(e Entry)  { c.parent.log(LevelInfo, e, c.base) }
func (c *ContextLogger) Warn(e Entry)  { c.parent.log(LevelWarn, e, c.base) }
func (c *ContextLogger) Error(e Entry) { c.parent.log(LevelError, e, c.base) }

func (l *Logger) log(level Level, e Entry, base map[string]any) {
	if level < l.minLevel {
		return
	}

	// fill required fields
	if e.Timestamp == "" {
		e.Timestamp = time.Now().UTC().Format(time.RFC3339Nano)
	}
	if e.Level == "" {
		e.Level = levelString(level)
	}
	if e.Service == "" {
		e.Service = l.service
	}
	if e.Hostname == "" {
		e.Hostname = l.hostname
	}
	if e.RequestID == "" {
		e.RequestID = toString(get(base, "request_id"))
	}
	if e.SubscriberID == "" {
		e.SubscriberID = toString(get(base, "subscriber_id"))
	}

	// merge Additional
	if base != nil {
		if e.Additional == nil {
			e.Additional = map[string]any{}
		}
		for k, v := range base {
			// do not overwrite required fields already set in Entry
			switch k {
			case "timestamp", "level", "service", "action", "message", "hostname", "request_id", "subscriber_id":
				continue
			default:
				e.Additional[k] = v
			}
		}
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	// Выбираем writer в зависимости от уровня
	writer := l.outWriter
	if level == LevelError {
		writer = l.errWriter
	}

	var b []byte
	var err error
	if l.pretty {
		b, err = json.MarshalIndent(e, "", "  ")
	} else {
		b, err = json.Marshal(e)
	}

	if err != nil {
		// fallback: plain text to errWriter
		fmt.Fprintf(l.errWriter, `{"timestamp":"%s","level":"error","service":"%s","message":"failed to marshal log: %v"}`+"\n",
			time.Now().UTC().Format(time.RFC3339Nano), l.service, err)
		return
	}

	_, _ = writer.Write(b)
	_, _ = writer.Write([]byte("\n"))
}

func get(m map[string]any, k string) any {
	if m == nil {
		return ""
	}
	if v, ok := m[k]; ok {
		return v
	}
	return ""
}

func toString(v any) string {
	switch t := v.(type) {
	case string:
		return t
	default:
		return ""
	}
}
