package notify

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"sync"
	"time"
)

// Level is the severity of a user-visible notice.
type Level string

const (
	LevelInfo    Level = "info"
	LevelSuccess Level = "success"
	LevelWarning Level = "warning"
	LevelError   Level = "error"
)

// Notice is a single user-visible message raised by the client.
type Notice struct {
	Timestamp time.Time `json:"timestamp"`
	Level     Level     `json:"level"`
	Message   string    `json:"message"`
	Kind      string    `json:"kind,omitempty"`
	Status    int       `json:"status,omitempty"`
	RequestID string    `json:"request_id,omitempty"`
	Path      string    `json:"path,omitempty"`
}

// Notifier is the notification surface for user-visible errors.
type Notifier interface {
	Notify(ctx context.Context, notice Notice)
}

// Func adapts a plain function to [Notifier].
type Func func(ctx context.Context, notice Notice)

func (f Func) Notify(ctx context.Context, notice Notice) { f(ctx, notice) }

// NoOp drops notices.
type NoOp struct{}

func (NoOp) Notify(context.Context, Notice) {}

// ChannelNotifier writes notices into a buffered channel.
type ChannelNotifier struct {
	notices chan Notice
}

func NewChannelNotifier(buffer int) *ChannelNotifier {
	if buffer <= 0 {
		buffer = 1
	}
	return &ChannelNotifier{
		notices: make(chan Notice, buffer),
	}
}

func (n *ChannelNotifier) Notify(ctx context.Context, notice Notice) {
	select {
	case n.notices <- notice:
	case <-ctx.Done():
	}
}

func (n *ChannelNotifier) Notices() <-chan Notice {
	return n.notices
}

// JSONWriterNotifier writes one JSON object per line.
type JSONWriterNotifier struct {
	writer io.Writer
	mu     sync.Mutex
}

func NewJSONWriterNotifier(w io.Writer) *JSONWriterNotifier {
	return &JSONWriterNotifier{
		writer: w,
	}
}

func (n *JSONWriterNotifier) Notify(ctx context.Context, notice Notice) {
	if n == nil || n.writer == nil {
		return
	}
	data, err := json.Marshal(notice)
	if err != nil {
		return
	}

	n.mu.Lock()
	defer n.mu.Unlock()

	_, _ = n.writer.Write(data)
	_, _ = n.writer.Write([]byte("\n"))
}

// SlogNotifier routes notices to a structured logger, mapping the notice
// level onto the slog level.
type SlogNotifier struct {
	Logger *slog.Logger
}

func (n SlogNotifier) Notify(ctx context.Context, notice Notice) {
	logger := n.Logger
	if logger == nil {
		logger = slog.Default()
	}

	lvl := slog.LevelInfo
	switch notice.Level {
	case LevelWarning:
		lvl = slog.LevelWarn
	case LevelError:
		lvl = slog.LevelError
	}

	logger.Log(ctx, lvl, notice.Message,
		slog.String("kind", notice.Kind),
		slog.Int("status", notice.Status),
		slog.String("request_id", notice.RequestID),
		slog.String("path", notice.Path),
	)
}

// Error builds an error-level notice stamped with the current time.
func Error(message string) Notice {
	return Notice{Timestamp: time.Now(), Level: LevelError, Message: message}
}
