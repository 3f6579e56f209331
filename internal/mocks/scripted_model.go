// Package mocks provides a scripted eino chat model for tests.
package mocks

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"
)

// ErrNoScript is returned when the script queue is empty and no fallback is set.
var ErrNoScript = errors.New("scripted model: no script left")

// ScriptedReply is one scripted model answer.
type ScriptedReply struct {
	// Content is returned by Generate and, split into Chunks, by Stream.
	Content string

	// Chunks overrides how Stream splits the reply. Empty means one chunk.
	Chunks []string

	// Err fails the call before any output.
	Err error

	// StreamErr is delivered after Chunks, failing the stream midway.
	StreamErr error

	// Delay is honoured unless the context ends first.
	Delay time.Duration

	// BeforeReturn runs with the messages the model received.
	BeforeReturn func(input []*schema.Message)
}

// ScriptedModel implements model.BaseChatModel with queued replies.
type ScriptedModel struct {
	mu       sync.Mutex
	scripts  []ScriptedReply
	calls    [][]*schema.Message
	fallback *ScriptedReply
}

var _ model.BaseChatModel = (*ScriptedModel)(nil)

// NewScriptedModel creates a ScriptedModel answering replies in order.
func NewScriptedModel(replies ...ScriptedReply) *ScriptedModel {
	return &ScriptedModel{scripts: append([]ScriptedReply(nil), replies...)}
}

// WithFallback sets the reply used once the queue is drained.
func (s *ScriptedModel) WithFallback(reply ScriptedReply) *ScriptedModel {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.fallback = &reply
	return s
}

// Add queues more replies.
func (s *ScriptedModel) Add(replies ...ScriptedReply) *ScriptedModel {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.scripts = append(s.scripts, replies...)
	return s
}

// Calls returns a copy of every input received so far.
func (s *ScriptedModel) Calls() [][]*schema.Message {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([][]*schema.Message(nil), s.calls...)
}

// CallCount returns how many requests reached the model.
func (s *ScriptedModel) CallCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.calls)
}

// LastCall returns the input of the latest request, or nil.
func (s *ScriptedModel) LastCall() []*schema.Message {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.calls) == 0 {
		return nil
	}
	return s.calls[len(s.calls)-1]
}

func (s *ScriptedModel) next(input []*schema.Message) (ScriptedReply, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.calls = append(s.calls, append([]*schema.Message(nil), input...))
	if len(s.scripts) > 0 {
		reply := s.scripts[0]
		s.scripts = s.scripts[1:]
		return reply, nil
	}
	if s.fallback != nil {
		return *s.fallback, nil
	}
	return ScriptedReply{}, ErrNoScript
}

func (s *ScriptedModel) await(ctx context.Context, reply ScriptedReply, input []*schema.Message) error {
	if reply.Delay > 0 {
		timer := time.NewTimer(reply.Delay)
		defer timer.Stop()
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-timer.C:
		}
	}
	if reply.BeforeReturn != nil {
		reply.BeforeReturn(input)
	}
	return reply.Err
}

// Generate returns the next scripted reply as an assistant message.
func (s *ScriptedModel) Generate(ctx context.Context, input []*schema.Message, _ ...model.Option) (*schema.Message, error) {
	reply, err := s.next(input)
	if err != nil {
		return nil, err
	}
	if err := s.await(ctx, reply, input); err != nil {
		return nil, err
	}
	return schema.AssistantMessage(reply.Content, nil), nil
}

// Stream returns the next scripted reply split into chunks.
func (s *ScriptedModel) Stream(ctx context.Context, input []*schema.Message, _ ...model.Option) (*schema.StreamReader[*schema.Message], error) {
	reply, err := s.next(input)
	if err != nil {
		return nil, err
	}
	if err := s.await(ctx, reply, input); err != nil {
		return nil, err
	}

	chunks := reply.Chunks
	if len(chunks) == 0 {
		chunks = []string{reply.Content}
	}

	reader, writer := schema.Pipe[*schema.Message](len(chunks) + 1)
	go func() {
		defer writer.Close()
		for _, chunk := range chunks {
			if closed := writer.Send(schema.AssistantMessage(chunk, nil), nil); closed {
				return
			}
		}
		if reply.StreamErr != nil {
			writer.Send(nil, reply.StreamErr)
		}
	}()
	return reader, nil
}
