package sse

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"sync/atomic"
	"time"
)

// heartBeatPing is the keep-alive comment line sent to clients; comments
// in SSE start with ":" and are ignored by EventSource but keep the
// connection from being reclaimed by an idle-timing proxy.
var heartBeatPing = []byte(": ping\n\n")

// WriterConfig configures a Writer. Context and ResponseWriter are
// required; everything else has a default.
type WriterConfig struct {
	Context        context.Context
	ResponseWriter http.ResponseWriter
	QueueSize      int           // default 64
	HeartBeat      time.Duration // default: disabled
}

func (c *WriterConfig) validate() error {
	if c.Context == nil {
		return errors.New("sse: missing context")
	}
	if c.ResponseWriter == nil {
		return errors.New("sse: missing responseWriter")
	}
	if _, ok := c.ResponseWriter.(http.Flusher); !ok {
		return errors.New("sse: responseWriter does not implement http.Flusher")
	}
	if c.QueueSize <= 0 {
		c.QueueSize = 64
	}
	return nil
}

// Writer streams SSE data frames to a single client connection. It owns
// three background goroutines: one watching the request context, one
// draining a queued-message channel to the response, one ticking
// heartbeats, all stopped by Close or by the request context being
// canceled.
type Writer struct {
	config       *WriterConfig
	isClosed     atomic.Bool
	waitGroup    sync.WaitGroup
	httpResponse http.ResponseWriter
	httpFlusher  http.Flusher
	closeSignal  chan struct{}
	messageQueue chan []byte
	errs         []error
}

// NewWriter validates config, sets the SSE response headers, and starts
// the writer's background goroutines.
func NewWriter(config *WriterConfig) (*Writer, error) {
	if err := config.validate(); err != nil {
		return nil, err
	}

	w := &Writer{
		config:       config,
		httpResponse: config.ResponseWriter,
		httpFlusher:  config.ResponseWriter.(http.Flusher),
		closeSignal:  make(chan struct{}),
		messageQueue: make(chan []byte, config.QueueSize),
	}
	w.setHeaders(w.httpResponse.Header())
	w.waitGroup.Add(3)
	go w.listenContext()
	go w.processQueue()
	go w.heartbeatLoop()
	return w, nil
}

func (w *Writer) setHeaders(header http.Header) {
	header.Set("Content-Type", "text/event-stream; charset=utf-8")
	header.Set("Connection", "keep-alive")
	if header.Get("Cache-Control") == "" {
		header.Set("Cache-Control", "no-cache")
	}
}

func (w *Writer) writeToClient(data []byte) error {
	if _, err := w.httpResponse.Write(data); err != nil {
		return err
	}
	w.httpFlusher.Flush()
	return nil
}

func (w *Writer) recordError(err error) {
	if err != nil {
		w.errs = append(w.errs, err)
	}
}

func (w *Writer) heartbeatLoop() {
	defer w.waitGroup.Done()

	if w.config.HeartBeat <= 0 {
		return
	}

	ticker := time.NewTicker(w.config.HeartBeat)
	defer ticker.Stop()

	for {
		select {
		case <-w.closeSignal:
			return
		case <-ticker.C:
			if w.isClosed.Load() {
				return
			}
			select {
			case w.messageQueue <- heartBeatPing:
			default:
			}
		}
	}
}

func (w *Writer) processQueue() {
	defer w.waitGroup.Done()
	defer w.drainQueue()

	for {
		select {
		case <-w.closeSignal:
			return
		case msg := <-w.messageQueue:
			w.recordError(w.writeToClient(msg))
		}
	}
}

func (w *Writer) drainQueue() {
	close(w.messageQueue)
	for msg := range w.messageQueue {
		w.recordError(w.writeToClient(msg))
	}
	w.recordError(w.writeToClient(byteLFLF))
}

func (w *Writer) listenContext() {
	defer w.waitGroup.Done()

	select {
	case <-w.closeSignal:
	case <-w.config.Context.Done():
		w.recordError(w.config.Context.Err())
		if !w.isClosed.Swap(true) {
			close(w.closeSignal)
		}
	}
}

// Close shuts the writer down, blocking until queued frames are flushed
// and the background goroutines exit. Safe to call more than once.
func (w *Writer) Close() error {
	if w.isClosed.Swap(true) {
		return errors.Join(w.errs...)
	}

	close(w.closeSignal)
	w.waitGroup.Wait()
	return errors.Join(w.errs...)
}

// SendData marshals data as JSON and enqueues it as one SSE data frame.
// It is a no-op once the writer is closed.
func (w *Writer) SendData(data interface{}) error {
	if w.isClosed.Load() {
		return nil
	}

	frame, err := encodeDataFrame(data)
	if err != nil {
		return err
	}

	select {
	case w.messageQueue <- frame:
		return nil
	case <-w.closeSignal:
		return nil
	}
}
