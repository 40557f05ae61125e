package implementation

import (
	"context"
	"errors"
	"time"

	"ai-docchat-be/internal/entity"
	"ai-docchat-be/internal/mapper"
	"ai-docchat-be/internal/model"
	"ai-docchat-be/internal/repository/contract"
	"ai-docchat-be/internal/repository/specification"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type ChatMessageRepositoryImpl struct {
	db     *gorm.DB
	mapper *mapper.ChatMapper
}

func NewChatMessageRepository(db *gorm.DB) contract.ChatMessageRepository {
	return &ChatMessageRepositoryImpl{
		db:     db,
		mapper: mapper.NewChatMapper(),
	}
}

func (r *ChatMessageRepositoryImpl) applySpecifications(db *gorm.DB, specs ...specification.Specification) *gorm.DB {
	for _, spec := range specs {
		db = spec.Apply(db)
	}
	return db
}

func (r *ChatMessageRepositoryImpl) Create(ctx context.Context, message *entity.ChatMessage, position int) error {
	m := r.mapper.ChatMessageToModel(message)
	m.Position = position
	if err := r.db.WithContext(ctx).Create(m).Error; err != nil {
		return err
	}
	*message = *r.mapper.ChatMessageToEntity(m)
	return nil
}

func (r *ChatMessageRepositoryImpl) Save(ctx context.Context, message *entity.ChatMessage) error {
	m := r.mapper.ChatMessageToModel(message)
	return r.db.WithContext(ctx).
		Model(&model.ChatMessage{}).
		Where("id = ?", message.Id).
		Updates(map[string]interface{}{
			"content":    m.Content,
			"finalized":  m.Finalized,
			"up_count":   m.UpCount,
			"down_count": m.DownCount,
			"markers":    m.Markers,
		}).Error
}

func (r *ChatMessageRepositoryImpl) FindOne(ctx context.Context, specs ...specification.Specification) (*entity.ChatMessage, error) {
	var m model.ChatMessage
	query := r.applySpecifications(r.db.WithContext(ctx), specs...)
	if err := query.First(&m).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return r.mapper.ChatMessageToEntity(&m), nil
}

func (r *ChatMessageRepositoryImpl) FindAll(ctx context.Context, specs ...specification.Specification) ([]*entity.ChatMessage, error) {
	var models []*model.ChatMessage
	query := r.applySpecifications(r.db.WithContext(ctx), specs...)
	if err := query.Find(&models).Error; err != nil {
		return nil, err
	}
	entities := make([]*entity.ChatMessage, len(models))
	for i, m := range models {
		entities[i] = r.mapper.ChatMessageToEntity(m)
	}
	return entities, nil
}

func (r *ChatMessageRepositoryImpl) Count(ctx context.Context, specs ...specification.Specification) (int64, error) {
	var count int64
	query := r.applySpecifications(r.db.WithContext(ctx).Model(&model.ChatMessage{}), specs...)
	if err := query.Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

func (r *ChatMessageRepositoryImpl) SessionStats(ctx context.Context) (map[uuid.UUID]contract.SessionMessageStats, error) {
	var rows []struct {
		ChatSessionId uuid.UUID
		Count         int
		LastAt        *time.Time
	}
	err := r.db.WithContext(ctx).
		Model(&model.ChatMessage{}).
		Select("chat_session_id, COUNT(*) AS count, MAX(created_at) AS last_at").
		Group("chat_session_id").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}

	stats := make(map[uuid.UUID]contract.SessionMessageStats, len(rows))
	for _, row := range rows {
		stats[row.ChatSessionId] = contract.SessionMessageStats{
			Count:         row.Count,
			LastMessageAt: row.LastAt,
		}
	}
	return stats, nil
}
