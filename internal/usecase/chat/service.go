// Package chat manages per-trial chat sessions against a generative backend.
package chat

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"go.uber.org/zap"

	"github.com/trialscope/trialscope/internal/domain"
	"github.com/trialscope/trialscope/internal/logger"
)

const systemInstructionPrefix = "You are assisting with a specific clinical trial. " +
	"You will be given some information of the clinical trial and asked several questions. " +
	"Here is the information of the clinical trial:\n\n"

// session is the accumulated state of one (model, trial) conversation.
type session struct {
	system  string
	history []Turn
}

// Service holds chat sessions keyed by (model, trial id). Sessions live for
// the process lifetime; trial metadata itself is never cached beyond the
// session seed.
type Service struct {
	meta MetaReader
	gen  Generator

	mu       sync.Mutex
	sessions map[string]*session
}

// New creates a chat service.
func New(meta MetaReader, gen Generator) *Service {
	return &Service{
		meta:     meta,
		gen:      gen,
		sessions: make(map[string]*session),
	}
}

// Chat sends the user query within the (model, trial) session, creating and
// seeding the session on first use.
func (s *Service) Chat(ctx context.Context, model, trialID, query string) (string, error) {
	if s.gen == nil {
		return "", domain.ErrChatUnavailable
	}

	sess, err := s.getOrCreateSession(ctx, model, trialID)
	if err != nil {
		return "", err
	}

	// The mutex only guards map access; concurrent chats on the same key may
	// interleave history order. Acceptable for a conversational endpoint.
	response, err := s.gen.Generate(ctx, model, sess.system, sess.history, query)
	if err != nil {
		return "", fmt.Errorf("generate response: %w", err)
	}

	s.mu.Lock()
	sess.history = append(sess.history,
		Turn{Role: "user", Text: query},
		Turn{Role: "model", Text: response},
	)
	s.mu.Unlock()

	return response, nil
}

func (s *Service) getOrCreateSession(ctx context.Context, model, trialID string) (*session, error) {
	key := model + "-" + trialID

	s.mu.Lock()
	sess, ok := s.sessions[key]
	s.mu.Unlock()
	if ok {
		return sess, nil
	}

	metadata, err := s.meta.GetTrial(ctx, trialID)
	if err != nil {
		return nil, fmt.Errorf("seed session %s: %w", key, err)
	}

	encoded, err := json.MarshalIndent(metadata, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("encode trial metadata: %w", err)
	}

	sess = &session{system: systemInstructionPrefix + string(encoded)}

	s.mu.Lock()
	// Another request may have seeded the same key meanwhile; keep the first.
	if existing, ok := s.sessions[key]; ok {
		sess = existing
	} else {
		s.sessions[key] = sess
	}
	s.mu.Unlock()

	logger.FromContext(ctx).Info("Created new chat session", zap.String("session_key", key))
	return sess, nil
}
