package ports

import "wildtrek/internal/domain/expedition"

type Notifier interface {
	Publish(n expedition.Notification)
}

type NopNotifier struct{}

func (NopNotifier) Publish(expedition.Notification) {}
