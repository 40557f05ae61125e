package feedback

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"ai-docchat-be/internal/entity"
	"ai-docchat-be/internal/pkg/logger"
	"ai-docchat-be/internal/repository/contract"
	"ai-docchat-be/pkg/events"

	"github.com/google/uuid"
)

// ErrEmptyComment rejects blank or whitespace-only comment bodies.
var ErrEmptyComment = errors.New("comment text is empty")

type Direction string

const (
	DirectionUp   Direction = "up"
	DirectionDown Direction = "down"
)

// Aggregator attaches reactions and comment threads to messages. All
// mutations go through the store's UpdateMessage so concurrent feedback on
// the same message never loses updates.
//
// Repeated reactions from one caller are not deduplicated here: the engine
// has no caller identity concept, so dedup belongs to the caller's
// identity layer.
type Aggregator struct {
	store contract.ChatStore
	pub   events.Publisher
	log   logger.ILogger
}

func NewAggregator(store contract.ChatStore, pub events.Publisher, log logger.ILogger) *Aggregator {
	return &Aggregator{store: store, pub: pub, log: log}
}

// React increments one of the message's counters by exactly 1 and returns
// the updated pair. Counters only ever grow.
func (a *Aggregator) React(ctx context.Context, chatSessionId, messageId uuid.UUID, direction Direction) (entity.Reactions, error) {
	if direction != DirectionUp && direction != DirectionDown {
		return entity.Reactions{}, fmt.Errorf("unknown reaction direction %q", direction)
	}

	updated, err := a.store.UpdateMessage(ctx, chatSessionId, messageId, func(m *entity.ChatMessage) {
		if direction == DirectionUp {
			m.Reactions.Up++
		} else {
			m.Reactions.Down++
		}
	})
	if err != nil {
		return entity.Reactions{}, err
	}

	if err := a.pub.Publish(ctx, events.NewReactionRecorded(chatSessionId, messageId, string(direction), updated.Reactions.Up, updated.Reactions.Down)); err != nil {
		a.log.Warn("Feedback", "Failed to publish reaction event", map[string]interface{}{"error": err.Error()})
	}
	return updated.Reactions, nil
}

// Comment appends a comment with a fresh id and timestamp and returns the
// updated thread. Comments are append-only.
func (a *Aggregator) Comment(ctx context.Context, chatSessionId, messageId uuid.UUID, text string) ([]entity.Comment, error) {
	if strings.TrimSpace(text) == "" {
		return nil, ErrEmptyComment
	}

	comment := entity.Comment{
		Id:        uuid.New(),
		Body:      text,
		CreatedAt: time.Now(),
	}

	updated, err := a.store.UpdateMessage(ctx, chatSessionId, messageId, func(m *entity.ChatMessage) {
		m.Comments = append(m.Comments, comment)
	})
	if err != nil {
		return nil, err
	}

	if err := a.pub.Publish(ctx, events.NewCommentAdded(chatSessionId, messageId, comment.Id)); err != nil {
		a.log.Warn("Feedback", "Failed to publish comment event", map[string]interface{}{"error": err.Error()})
	}
	return updated.Comments, nil
}
