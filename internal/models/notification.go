package models

import "time"

type NotificationChannel string

const (
	ChannelEmail    NotificationChannel = "email"
	ChannelTelegram NotificationChannel = "telegram"
	ChannelDiscord  NotificationChannel = "discord"
	ChannelLine     NotificationChannel = "line"
)

// NotificationTemplate is a reusable message body keyed by a unique code.
// Subject and Body are text/template sources rendered against a payload map.
type NotificationTemplate struct {
	ID        string
	Code      string
	Name      string
	Channel   NotificationChannel
	Subject   string
	Body      string
	IsActive  bool
	CreatedAt time.Time
	UpdatedAt time.Time
}
