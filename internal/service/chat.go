package service

import (
	"context"
	"fmt"
	"iter"
	"strings"

	"github.com/Abdulkalam-AIML/titanbot/internal/completion"
	"github.com/Abdulkalam-AIML/titanbot/internal/domain"
	"github.com/Abdulkalam-AIML/titanbot/internal/metrics"
)

// SendMessage runs one conversational exchange. It resolves or creates the
// session, stores the user turn, assembles the bounded history, and returns
// a lazy fragment sequence. Errors before streaming (bad input, unknown
// session) are returned directly; provider failures arrive in-band.
//
// When the sequence finishes, the streamed text (diagnostics excluded) is
// stored as the assistant turn.
func (s *Service) SendMessage(ctx context.Context, user *domain.User, req domain.SendMessageRequest) (*domain.ChatSession, iter.Seq[domain.Fragment], error) {
	if strings.TrimSpace(req.Message) == "" {
		return nil, nil, domain.NewValidationError("message", "message is required")
	}

	state := domain.SendStateResolveSession
	session, err := s.resolveSession(ctx, user, req)
	if err != nil {
		return nil, nil, fmt.Errorf("%s: %w", state, err)
	}

	state = domain.SendStatePersistUserTurn
	userTurn := &domain.Message{SessionID: session.ID, Role: domain.RoleUser, Content: req.Message}
	if err := s.store.AppendMessage(ctx, userTurn); err != nil {
		if req.SessionID == nil {
			s.discardSession(ctx, session)
		}
		return nil, nil, fmt.Errorf("%s: failed to store user turn: %w", state, err)
	}
	metrics.MessagesPersisted.WithLabelValues(string(domain.RoleUser)).Inc()

	state = domain.SendStateBuildContext
	turns, err := s.buildContext(ctx, session.ID)
	if err != nil {
		return nil, nil, fmt.Errorf("%s: %w", state, err)
	}

	s.logger.Debug().
		Int64("session_id", session.ID).
		Int("turns", len(turns)).
		Str("state", string(domain.SendStateStreamCompletion)).
		Msg("streaming completion")

	stream := s.completer.Stream(ctx, turns, completion.Options{PreferredModel: req.Model})
	return session, s.recordReply(ctx, session.ID, stream), nil
}

func (s *Service) resolveSession(ctx context.Context, user *domain.User, req domain.SendMessageRequest) (*domain.ChatSession, error) {
	if req.SessionID != nil {
		return s.GetSession(ctx, user, *req.SessionID)
	}

	session := &domain.ChatSession{
		UserID: user.ID,
		Title:  titleFrom(req.Message, s.opts.TitleMaxChars),
	}
	if err := s.store.CreateSession(ctx, session); err != nil {
		return nil, fmt.Errorf("failed to create session: %w", err)
	}
	return session, nil
}

// discardSession removes a session created for a send whose first turn
// could not be stored.
func (s *Service) discardSession(ctx context.Context, session *domain.ChatSession) {
	cleanupCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.opts.PersistTimeout)
	defer cancel()
	if _, err := s.store.DeleteSession(cleanupCtx, session.ID, session.UserID); err != nil {
		s.logger.Error().Err(err).Int64("session_id", session.ID).Msg("failed to discard empty session")
	}
}

// buildContext reloads the session's turns and prepends the persona.
func (s *Service) buildContext(ctx context.Context, sessionID int64) ([]domain.Turn, error) {
	history, err := s.store.ListMessages(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("failed to load history: %w", err)
	}
	if limit := s.opts.MaxHistoryTurns; limit > 0 && len(history) > limit {
		history = history[len(history)-limit:]
	}

	turns := make([]domain.Turn, 0, len(history)+1)
	turns = append(turns, domain.Turn{Role: domain.RoleSystem, Content: s.opts.Persona})
	for _, m := range history {
		if m.Role == domain.RoleSystem {
			continue
		}
		turns = append(turns, domain.Turn{Role: m.Role, Content: m.Content})
	}
	return turns, nil
}

// recordReply forwards fragments unchanged and stores the aggregated reply
// once the consumer stops ranging, whether the stream ended or the client
// went away.
func (s *Service) recordReply(ctx context.Context, sessionID int64, stream iter.Seq[domain.Fragment]) iter.Seq[domain.Fragment] {
	return func(yield func(domain.Fragment) bool) {
		var reply strings.Builder
		defer func() {
			s.persistReply(ctx, sessionID, reply.String())
		}()

		for f := range stream {
			if !f.Diagnostic {
				reply.WriteString(f.Text)
			}
			if !yield(f) {
				return
			}
		}
	}
}

func (s *Service) persistReply(ctx context.Context, sessionID int64, reply string) {
	if strings.TrimSpace(reply) == "" {
		return
	}

	// The client may already be gone; the write must not inherit that.
	writeCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.opts.PersistTimeout)
	defer cancel()

	msg := &domain.Message{SessionID: sessionID, Role: domain.RoleAssistant, Content: reply}
	if err := s.store.AppendMessage(writeCtx, msg); err != nil {
		s.logger.Error().Err(err).Int64("session_id", sessionID).Msg("failed to store assistant turn")
		return
	}
	metrics.MessagesPersisted.WithLabelValues(string(domain.RoleAssistant)).Inc()
	s.logger.Debug().Int64("session_id", sessionID).Str("state", string(domain.SendStateDone)).Msg("assistant turn stored")
}

// titleFrom returns the first max characters of message.
func titleFrom(message string, max int) string {
	runes := []rune(message)
	if len(runes) <= max {
		return message
	}
	return string(runes[:max])
}
