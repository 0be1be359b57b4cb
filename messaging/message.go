// Package messaging 记录变更通知使用的最小消息抽象与传输接口
package messaging

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// Message 一条消息；Payload 为 JSON
type Message struct {
	ID        string            `json:"id"`
	Type      string            `json:"type"`
	Timestamp time.Time         `json:"timestamp"`
	Payload   json.RawMessage   `json:"payload,omitempty"`
	Metadata  map[string]string `json:"metadata,omitempty"`
}

// NewMessage 以 UUIDv7 为 ID 创建消息，payload 编码为 JSON
func NewMessage(messageType string, payload any) (*Message, error) {
	id, err := uuid.NewV7()
	if err != nil {
		return nil, err
	}
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return &Message{
		ID:        id.String(),
		Type:      messageType,
		Timestamp: time.Now().UTC(),
		Payload:   data,
	}, nil
}

// Decode 把 Payload 解到 dst
func (m *Message) Decode(dst any) error {
	return json.Unmarshal(m.Payload, dst)
}

// SetMetadata 设置元数据
func (m *Message) SetMetadata(key, value string) {
	if m.Metadata == nil {
		m.Metadata = make(map[string]string)
	}
	m.Metadata[key] = value
}

// Marshal 跨进程传输使用的线格式
func (m *Message) Marshal() ([]byte, error) {
	return json.Marshal(m)
}

// Unmarshal 解析 Marshal 的输出
func Unmarshal(data []byte) (*Message, error) {
	var m Message
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, err
	}
	return &m, nil
}
