package service

import (
	"coding_steps_backend/pkg/queue"
	"context"
)

// GradingNotifier 评分事件的下游通知，失败不影响主流程
type GradingNotifier interface {
	Publish(ctx context.Context, ev queue.GradingEvent) error
}

type NopNotifier struct{}

func (NopNotifier) Publish(context.Context, queue.GradingEvent) error { return nil }
