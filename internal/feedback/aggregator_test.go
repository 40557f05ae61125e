package feedback

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"ai-docchat-be/internal/constant"
	"ai-docchat-be/internal/entity"
	"ai-docchat-be/internal/pkg/logger"
	"ai-docchat-be/internal/repository/contract"
	"ai-docchat-be/internal/repository/memory"
	"ai-docchat-be/pkg/events"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestAggregator(t *testing.T) (*Aggregator, *memory.ChatStore, uuid.UUID, uuid.UUID) {
	t.Helper()
	store := memory.NewChatStore()
	ctx := context.Background()

	sess, err := store.CreateSession(ctx, "feedback")
	require.NoError(t, err)
	msg, err := store.AppendMessage(ctx, sess.Id, &entity.ChatMessage{
		Role:      constant.ChatMessageRoleAssistant,
		Content:   "an answer",
		Finalized: true,
	})
	require.NoError(t, err)

	return NewAggregator(store, events.NopPublisher{}, logger.Nop{}), store, sess.Id, msg.Id
}

func TestReactIncrements(t *testing.T) {
	a, _, sessId, msgId := newTestAggregator(t)
	ctx := context.Background()

	r, err := a.React(ctx, sessId, msgId, DirectionUp)
	require.NoError(t, err)
	assert.Equal(t, entity.Reactions{Up: 1, Down: 0}, r)

	r, err = a.React(ctx, sessId, msgId, DirectionDown)
	require.NoError(t, err)
	assert.Equal(t, entity.Reactions{Up: 1, Down: 1}, r)

	// No dedup: the same direction keeps counting.
	r, err = a.React(ctx, sessId, msgId, DirectionUp)
	require.NoError(t, err)
	assert.Equal(t, entity.Reactions{Up: 2, Down: 1}, r)
}

func TestReactUnknownDirection(t *testing.T) {
	a, _, sessId, msgId := newTestAggregator(t)

	_, err := a.React(context.Background(), sessId, msgId, Direction("sideways"))
	assert.Error(t, err)
}

func TestReactUnknownMessage(t *testing.T) {
	a, _, sessId, _ := newTestAggregator(t)

	_, err := a.React(context.Background(), sessId, uuid.New(), DirectionUp)
	assert.ErrorIs(t, err, contract.ErrMessageNotFound)
}

func TestConcurrentReactionsAllCounted(t *testing.T) {
	a, store, sessId, msgId := newTestAggregator(t)
	ctx := context.Background()

	const ups, downs = 25, 10
	var wg sync.WaitGroup
	wg.Add(ups + downs)
	for i := 0; i < ups; i++ {
		go func() {
			defer wg.Done()
			_, err := a.React(ctx, sessId, msgId, DirectionUp)
			assert.NoError(t, err)
		}()
	}
	for i := 0; i < downs; i++ {
		go func() {
			defer wg.Done()
			_, err := a.React(ctx, sessId, msgId, DirectionDown)
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	sess, err := store.GetSession(ctx, sessId)
	require.NoError(t, err)
	assert.Equal(t, entity.Reactions{Up: ups, Down: downs}, sess.Messages[0].Reactions)
}

func TestCommentAppends(t *testing.T) {
	a, _, sessId, msgId := newTestAggregator(t)
	ctx := context.Background()

	first, err := a.Comment(ctx, sessId, msgId, "too verbose")
	require.NoError(t, err)
	require.Len(t, first, 1)
	assert.Equal(t, "too verbose", first[0].Body)
	assert.NotEqual(t, uuid.Nil, first[0].Id)

	second, err := a.Comment(ctx, sessId, msgId, "missing source")
	require.NoError(t, err)
	require.Len(t, second, 2)
	assert.Equal(t, "too verbose", second[0].Body)
	assert.Equal(t, "missing source", second[1].Body)
}

func TestCommentRejectsEmpty(t *testing.T) {
	a, _, sessId, msgId := newTestAggregator(t)

	_, err := a.Comment(context.Background(), sessId, msgId, "   ")
	assert.ErrorIs(t, err, ErrEmptyComment)
}

func TestConcurrentCommentsAllLand(t *testing.T) {
	a, store, sessId, msgId := newTestAggregator(t)
	ctx := context.Background()

	const n = 8
	var wg sync.WaitGroup
	wg.Add(n)
	for i := 0; i < n; i++ {
		go func(i int) {
			defer wg.Done()
			_, err := a.Comment(ctx, sessId, msgId, fmt.Sprintf("comment %d", i))
			assert.NoError(t, err)
		}(i)
	}
	wg.Wait()

	sess, err := store.GetSession(ctx, sessId)
	require.NoError(t, err)
	assert.Len(t, sess.Messages[0].Comments, n)
}
