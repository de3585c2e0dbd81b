package service

import (
	"encoding/json"

	"rewardsystem/internal/model"
)

// newOutboxMessage 构造发件箱消息，与业务数据在同一事务内写入
func newOutboxMessage(topic, eventType, messageKey string, payload map[string]interface{}) *model.OutboxMessage {
	payloadBytes, _ := json.Marshal(payload)
	return &model.OutboxMessage{
		MessageKey: messageKey,
		EventType:  eventType,
		Topic:      topic,
		Payload:    string(payloadBytes),
		Status:     model.OutboxStatusPending,
	}
}
