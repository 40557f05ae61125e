package memory

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"ai-docchat-be/internal/constant"
	"ai-docchat-be/internal/entity"
	"ai-docchat-be/internal/repository/contract"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreateAndGetSession(t *testing.T) {
	store := NewChatStore()
	ctx := context.Background()

	sess, err := store.CreateSession(ctx, "Quarterly report questions")
	require.NoError(t, err)
	require.NotEqual(t, uuid.Nil, sess.Id)

	got, err := store.GetSession(ctx, sess.Id)
	require.NoError(t, err)
	assert.Equal(t, "Quarterly report questions", got.Title)
	assert.Empty(t, got.Messages)
}

func TestGetSessionNotFound(t *testing.T) {
	store := NewChatStore()

	_, err := store.GetSession(context.Background(), uuid.New())
	assert.ErrorIs(t, err, contract.ErrSessionNotFound)
}

func TestListSessionsNewestFirst(t *testing.T) {
	store := NewChatStore()
	ctx := context.Background()

	first, err := store.CreateSession(ctx, "first")
	require.NoError(t, err)
	second, err := store.CreateSession(ctx, "second")
	require.NoError(t, err)

	summaries, err := store.ListSessions(ctx)
	require.NoError(t, err)
	require.Len(t, summaries, 2)
	assert.Equal(t, second.Id, summaries[0].Id)
	assert.Equal(t, first.Id, summaries[1].Id)
	assert.Nil(t, summaries[0].LastMessageAt)
}

func TestListSessionsMessageStats(t *testing.T) {
	store := NewChatStore()
	ctx := context.Background()

	sess, err := store.CreateSession(ctx, "stats")
	require.NoError(t, err)

	for i := 0; i < 3; i++ {
		_, err := store.AppendMessage(ctx, sess.Id, &entity.ChatMessage{
			Role:    constant.ChatMessageRoleUser,
			Content: fmt.Sprintf("message %d", i),
		})
		require.NoError(t, err)
	}

	summaries, err := store.ListSessions(ctx)
	require.NoError(t, err)
	require.Len(t, summaries, 1)
	assert.Equal(t, 3, summaries[0].MessageCount)
	assert.NotNil(t, summaries[0].LastMessageAt)
}

func TestRenameSession(t *testing.T) {
	store := NewChatStore()
	ctx := context.Background()

	sess, err := store.CreateSession(ctx, "before")
	require.NoError(t, err)

	require.NoError(t, store.RenameSession(ctx, sess.Id, "after"))

	got, err := store.GetSession(ctx, sess.Id)
	require.NoError(t, err)
	assert.Equal(t, "after", got.Title)
	assert.NotNil(t, got.UpdatedAt)

	assert.ErrorIs(t, store.RenameSession(ctx, uuid.New(), "x"), contract.ErrSessionNotFound)
}

func TestAppendMessagePreservesOrder(t *testing.T) {
	store := NewChatStore()
	ctx := context.Background()

	sess, err := store.CreateSession(ctx, "ordering")
	require.NoError(t, err)

	for i := 0; i < 5; i++ {
		_, err := store.AppendMessage(ctx, sess.Id, &entity.ChatMessage{
			Role:    constant.ChatMessageRoleUser,
			Content: fmt.Sprintf("msg-%d", i),
		})
		require.NoError(t, err)
	}

	got, err := store.GetSession(ctx, sess.Id)
	require.NoError(t, err)
	require.Len(t, got.Messages, 5)
	for i, m := range got.Messages {
		assert.Equal(t, fmt.Sprintf("msg-%d", i), m.Content)
	}
}

func TestUpdateMessage(t *testing.T) {
	store := NewChatStore()
	ctx := context.Background()

	sess, err := store.CreateSession(ctx, "update")
	require.NoError(t, err)
	msg, err := store.AppendMessage(ctx, sess.Id, &entity.ChatMessage{
		Role: constant.ChatMessageRoleAssistant,
	})
	require.NoError(t, err)

	updated, err := store.UpdateMessage(ctx, sess.Id, msg.Id, func(m *entity.ChatMessage) {
		m.Content = "partial"
	})
	require.NoError(t, err)
	assert.Equal(t, "partial", updated.Content)
	assert.NotNil(t, updated.UpdatedAt)

	_, err = store.UpdateMessage(ctx, sess.Id, uuid.New(), func(m *entity.ChatMessage) {})
	assert.ErrorIs(t, err, contract.ErrMessageNotFound)
}

func TestUpdateMessageReturnsClone(t *testing.T) {
	store := NewChatStore()
	ctx := context.Background()

	sess, err := store.CreateSession(ctx, "clone")
	require.NoError(t, err)
	msg, err := store.AppendMessage(ctx, sess.Id, &entity.ChatMessage{Role: constant.ChatMessageRoleAssistant})
	require.NoError(t, err)

	snapshot, err := store.UpdateMessage(ctx, sess.Id, msg.Id, func(m *entity.ChatMessage) {
		m.Comments = append(m.Comments, entity.Comment{Id: uuid.New(), Body: "first"})
	})
	require.NoError(t, err)

	// Mutating the returned snapshot must not leak into the store.
	snapshot.Comments[0].Body = "tampered"

	got, err := store.GetSession(ctx, sess.Id)
	require.NoError(t, err)
	assert.Equal(t, "first", got.Messages[0].Comments[0].Body)
}

func TestConcurrentUpdatesDoNotLoseIncrements(t *testing.T) {
	store := NewChatStore()
	ctx := context.Background()

	sess, err := store.CreateSession(ctx, "concurrent")
	require.NoError(t, err)
	msg, err := store.AppendMessage(ctx, sess.Id, &entity.ChatMessage{Role: constant.ChatMessageRoleAssistant})
	require.NoError(t, err)

	const workers = 50
	var wg sync.WaitGroup
	wg.Add(workers)
	for i := 0; i < workers; i++ {
		go func() {
			defer wg.Done()
			_, err := store.UpdateMessage(ctx, sess.Id, msg.Id, func(m *entity.ChatMessage) {
				m.Reactions.Up++
			})
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	got, err := store.GetSession(ctx, sess.Id)
	require.NoError(t, err)
	assert.Equal(t, workers, got.Messages[0].Reactions.Up)
}

func TestConcurrentAppendsAllLand(t *testing.T) {
	store := NewChatStore()
	ctx := context.Background()

	sess, err := store.CreateSession(ctx, "appends")
	require.NoError(t, err)

	const workers = 20
	var wg sync.WaitGroup
	wg.Add(workers)
	for i := 0; i < workers; i++ {
		go func(n int) {
			defer wg.Done()
			_, err := store.AppendMessage(ctx, sess.Id, &entity.ChatMessage{
				Role:    constant.ChatMessageRoleUser,
				Content: fmt.Sprintf("c-%d", n),
			})
			assert.NoError(t, err)
		}(i)
	}
	wg.Wait()

	got, err := store.GetSession(ctx, sess.Id)
	require.NoError(t, err)
	assert.Len(t, got.Messages, workers)
}
