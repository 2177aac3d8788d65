package domain

// ChannelType represents the type of a paging channel.
type ChannelType string

// Paging channel types.
const (
	ChannelTypeMattermost ChannelType = "mattermost"
	ChannelTypeTelegram   ChannelType = "telegram"
)

// IsValid checks if the channel type is supported.
func (t ChannelType) IsValid() bool {
	return t == ChannelTypeMattermost || t == ChannelTypeTelegram
}

// PagingChannel is a destination where a responder team is paged.
// Target holds the webhook URL for Mattermost or the chat ID for Telegram.
type PagingChannel struct {
	Team   string      `json:"team"`
	Type   ChannelType `json:"type"`
	Target string      `json:"target"`
}
