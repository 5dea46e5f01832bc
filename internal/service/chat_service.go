package service

import (
	"errors"
	"fmt"
	"strings"

	"github.com/maqsadm/internal/db"
	"gorm.io/gorm"
)

var (
	// ErrMessageNotFound 在指定消息不存在时返回
	ErrMessageNotFound = errors.New("message not found")
	// ErrNotMessageAuthor 在删除他人消息且非管理员时返回
	ErrNotMessageAuthor = errors.New("not the message author")
)

const defaultChatPageSize = 50

// ChatService 负责群组聊天消息
// 传输为普通 REST 轮询；消息体为 Markdown，入库时渲染并消毒。
type ChatService struct {
	db     *gorm.DB
	groups *GroupService
}

// ChatMessageView 聊天列表条目
type ChatMessageView struct {
	ID          uint
	GroupID     uint
	UserID      uint
	Username    string
	DisplayName string
	Body        string
	HTML        string
	CreatedAt   string
}

// NewChatService 构造 ChatService
func NewChatService(gdb *gorm.DB, groups *GroupService) *ChatService {
	return &ChatService{db: gdb, groups: groups}
}

// Post 发送一条群组消息，要求发送者是成员。
func (s *ChatService) Post(userID, groupID uint, body string) (*db.ChatMessage, error) {
	if err := s.groups.RequireMember(userID, groupID); err != nil {
		return nil, err
	}

	body = strings.TrimSpace(body)
	if body == "" {
		return nil, fmt.Errorf("message body is required")
	}

	rendered, err := renderMarkdown(body)
	if err != nil {
		return nil, err
	}

	message := db.ChatMessage{
		GroupID: groupID,
		UserID:  userID,
		Body:    body,
		HTML:    rendered,
	}
	if err := s.db.Create(&message).Error; err != nil {
		return nil, fmt.Errorf("create chat message: %w", err)
	}
	return &message, nil
}

// List 返回群组最近的消息，按时间升序。
func (s *ChatService) List(userID, groupID uint, limit int) ([]ChatMessageView, error) {
	if err := s.groups.RequireMember(userID, groupID); err != nil {
		return nil, err
	}
	if limit <= 0 {
		limit = defaultChatPageSize
	}

	var views []ChatMessageView
	if err := s.db.Model(&db.ChatMessage{}).
		Select("chat_messages.id AS id, chat_messages.group_id AS group_id, chat_messages.user_id AS user_id, users.username AS username, users.display_name AS display_name, chat_messages.body AS body, chat_messages.html AS html, chat_messages.created_at AS created_at").
		Joins("JOIN users ON users.id = chat_messages.user_id").
		Where("chat_messages.group_id = ?", groupID).
		Order("chat_messages.created_at DESC").
		Limit(limit).
		Find(&views).Error; err != nil {
		return nil, fmt.Errorf("list chat messages: %w", err)
	}

	// 倒序取最近 N 条后翻回时间升序
	for i, j := 0, len(views)-1; i < j; i, j = i+1, j-1 {
		views[i], views[j] = views[j], views[i]
	}
	return views, nil
}

// Delete 删除消息：作者本人或群组管理员可删。
func (s *ChatService) Delete(actorID, messageID uint) error {
	var message db.ChatMessage
	if err := s.db.First(&message, messageID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrMessageNotFound
		}
		return fmt.Errorf("get chat message: %w", err)
	}

	if message.UserID != actorID {
		if err := s.groups.RequireAdmin(actorID, message.GroupID); err != nil {
			return ErrNotMessageAuthor
		}
	}

	if err := s.db.Delete(&db.ChatMessage{}, messageID).Error; err != nil {
		return fmt.Errorf("delete chat message: %w", err)
	}
	return nil
}
