// Package messaging provides response handling for inbound chat messages.
package messaging

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/google/uuid"

	"github.com/BTreeMap/YonkeBot/internal/models"
)

// DefaultMaxConcurrent bounds how many inbound messages are handled at once.
const DefaultMaxConcurrent = 32

// MessageHandler turns one inbound message into one reply.
type MessageHandler interface {
	Handle(ctx context.Context, sender, text string) string
}

// MessageHandlerFunc adapts a function to MessageHandler.
type MessageHandlerFunc func(ctx context.Context, sender, text string) string

// Handle calls f.
func (f MessageHandlerFunc) Handle(ctx context.Context, sender, text string) string {
	return f(ctx, sender, text)
}

// ResponseHandler consumes a Service's inbound messages, routes each one
// through a MessageHandler and sends the reply back to the sender.
type ResponseHandler struct {
	msgService Service
	handler    MessageHandler
	sem        chan struct{}
	wg         sync.WaitGroup
}

// ResponseHandlerOption configures a ResponseHandler.
type ResponseHandlerOption func(*ResponseHandler)

// WithMaxConcurrent overrides DefaultMaxConcurrent.
func WithMaxConcurrent(n int) ResponseHandlerOption {
	return func(rh *ResponseHandler) {
		if n > 0 {
			rh.sem = make(chan struct{}, n)
		}
	}
}

// NewResponseHandler creates a new ResponseHandler.
func NewResponseHandler(msgService Service, handler MessageHandler, opts ...ResponseHandlerOption) *ResponseHandler {
	rh := &ResponseHandler{
		msgService: msgService,
		handler:    handler,
		sem:        make(chan struct{}, DefaultMaxConcurrent),
	}
	for _, opt := range opts {
		opt(rh)
	}
	return rh
}

// ProcessResponse handles one inbound message and sends the reply.
func (rh *ResponseHandler) ProcessResponse(ctx context.Context, response models.Response) error {
	msgID := uuid.NewString()
	if _, err := rh.msgService.ValidateAndCanonicalizeRecipient(response.From); err != nil {
		slog.Error("ResponseHandler ProcessResponse validation failed", "error", err, "from", response.From, "msgID", msgID)
		return fmt.Errorf("invalid sender: %w", err)
	}

	slog.Debug("ResponseHandler processing response", "from", response.From, "body_length", len(response.Body), "msgID", msgID)
	reply := rh.handler.Handle(ctx, response.From, response.Body)
	if strings.TrimSpace(reply) == "" {
		slog.Warn("ResponseHandler empty reply, nothing sent", "from", response.From, "msgID", msgID)
		return nil
	}
	if err := rh.msgService.SendMessage(ctx, response.From, reply); err != nil {
		slog.Error("ResponseHandler failed to send reply", "error", err, "from", response.From, "msgID", msgID)
		return fmt.Errorf("failed to send reply: %w", err)
	}
	slog.Info("ResponseHandler sent reply", "from", response.From, "msgID", msgID)
	return nil
}

// Start begins processing responses from the messaging service. Each message
// is handled in its own goroutine, at most DefaultMaxConcurrent at a time.
func (rh *ResponseHandler) Start(ctx context.Context) {
	slog.Info("ResponseHandler starting response processing", "maxConcurrent", cap(rh.sem))

	rh.wg.Add(1)
	go func() {
		defer rh.wg.Done()
		defer slog.Info("ResponseHandler stopped response processing")

		for {
			select {
			case response, ok := <-rh.msgService.Responses():
				if !ok {
					slog.Debug("ResponseHandler responses channel closed")
					return
				}
				select {
				case rh.sem <- struct{}{}:
				case <-ctx.Done():
					return
				}
				rh.wg.Add(1)
				go func(r models.Response) {
					defer rh.wg.Done()
					defer func() { <-rh.sem }()
					if err := rh.ProcessResponse(ctx, r); err != nil {
						slog.Error("ResponseHandler failed to process response", "error", err, "from", r.From)
					}
				}(response)

			case <-ctx.Done():
				slog.Debug("ResponseHandler stopping due to context cancellation")
				return
			}
		}
	}()
}

// Wait blocks until the processing loop and all in-flight messages finish.
func (rh *ResponseHandler) Wait() {
	rh.wg.Wait()
}
