// Package notify holds the Notifier implementations that do not talk to an external service.
package notify

import (
	"context"
	"io"
	"sync"

	"github.com/wonny/tradebot/internal/contracts"
	"github.com/wonny/tradebot/pkg/logger"
)

// LogNotifier writes reports to the log. Used when Telegram is not configured.
type LogNotifier struct {
	logger *logger.Logger
}

var _ contracts.Notifier = (*LogNotifier)(nil)

// NewLogNotifier creates a notifier backed by the logger
func NewLogNotifier(log *logger.Logger) *LogNotifier {
	return &LogNotifier{logger: log.WithComponent("notifier")}
}

// SendMessage logs text
func (n *LogNotifier) SendMessage(_ context.Context, text string, silent bool) error {
	n.logger.WithField("silent", silent).Info(text)
	return nil
}

// SendFile logs the file name and size
func (n *LogNotifier) SendFile(_ context.Context, r io.Reader, name, caption string) error {
	size, err := io.Copy(io.Discard, r)
	if err != nil {
		return err
	}
	n.logger.WithFields(map[string]interface{}{
		"file":    name,
		"bytes":   size,
		"caption": caption,
	}).Info("Report file")
	return nil
}

// Message is a message captured by Recorder
type Message struct {
	Text   string
	Silent bool
}

// File is a file captured by Recorder
type File struct {
	Name    string
	Caption string
	Body    []byte
}

// Recorder keeps every notification in memory
type Recorder struct {
	mu       sync.Mutex
	messages []Message
	files    []File
	err      error
}

var _ contracts.Notifier = (*Recorder)(nil)

// NewRecorder creates an empty recorder
func NewRecorder() *Recorder {
	return &Recorder{}
}

// FailWith makes subsequent sends fail with err
func (r *Recorder) FailWith(err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.err = err
}

// SendMessage records text
func (r *Recorder) SendMessage(_ context.Context, text string, silent bool) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return r.err
	}
	r.messages = append(r.messages, Message{Text: text, Silent: silent})
	return nil
}

// SendFile records the file content
func (r *Recorder) SendFile(_ context.Context, rd io.Reader, name, caption string) error {
	body, err := io.ReadAll(rd)
	if err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return r.err
	}
	r.files = append(r.files, File{Name: name, Caption: caption, Body: body})
	return nil
}

// Messages returns the recorded messages
func (r *Recorder) Messages() []Message {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Message(nil), r.messages...)
}

// Files returns the recorded files
func (r *Recorder) Files() []File {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]File(nil), r.files...)
}
