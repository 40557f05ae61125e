package implementation

import (
	"context"

	"ai-docchat-be/internal/entity"
	"ai-docchat-be/internal/mapper"
	"ai-docchat-be/internal/model"
	"ai-docchat-be/internal/repository/contract"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type ChatCitationRepositoryImpl struct {
	db     *gorm.DB
	mapper *mapper.ChatMapper
}

func NewChatCitationRepository(db *gorm.DB) contract.ChatCitationRepository {
	return &ChatCitationRepositoryImpl{
		db:     db,
		mapper: mapper.NewChatMapper(),
	}
}

func (r *ChatCitationRepositoryImpl) ReplaceForMessage(ctx context.Context, messageId uuid.UUID, citations []entity.Citation) error {
	if err := r.db.WithContext(ctx).
		Where("chat_message_id = ?", messageId).
		Delete(&model.ChatCitation{}).Error; err != nil {
		return err
	}

	if len(citations) == 0 {
		return nil
	}

	models := r.mapper.CitationsToModels(messageId, citations)
	return r.db.WithContext(ctx).Create(&models).Error
}
