package notify

import (
	"fmt"
	"io"
	"sync"

	"github.com/rs/zerolog"
)

// Notifier shows the outcome of a user-visible action. Implementations must
// not block.
type Notifier interface {
	Success(message string)
	Error(message string)
}

// LogNotifier writes notifications to the structured log. Used when no
// interactive surface is attached.
type LogNotifier struct {
	log zerolog.Logger
}

func NewLogNotifier(log zerolog.Logger) *LogNotifier {
	return &LogNotifier{log: log.With().Str("component", "notify").Logger()}
}

func (n *LogNotifier) Success(message string) {
	n.log.Info().Str("kind", "success").Msg(message)
}

func (n *LogNotifier) Error(message string) {
	n.log.Info().Str("kind", "error").Msg(message)
}

// WriterNotifier prints notifications to an interactive terminal.
type WriterNotifier struct {
	mu  sync.Mutex
	out io.Writer
}

func NewWriterNotifier(out io.Writer) *WriterNotifier {
	return &WriterNotifier{out: out}
}

func (n *WriterNotifier) Success(message string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	fmt.Fprintf(n.out, "✔ %s\n", message)
}

func (n *WriterNotifier) Error(message string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	fmt.Fprintf(n.out, "✘ %s\n", message)
}

// Recorder captures notifications for assertions.
type Recorder struct {
	mu        sync.Mutex
	Successes []string
	Errors    []string
}

func (r *Recorder) Success(message string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.Successes = append(r.Successes, message)
}

func (r *Recorder) Error(message string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.Errors = append(r.Errors, message)
}
