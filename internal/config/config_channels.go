package config

// ChannelsConfig contains per-channel configuration (§4.H, §4.I). It is
// loaded and env-overridden here, but cmd/gatewayd does not read it:
// adapters are built from the credentials carried on platform_connect
// frames.
type ChannelsConfig struct {
	Telegram TelegramConfig `json:"telegram"`
	Discord  DiscordConfig  `json:"discord"`
	WhatsApp WhatsAppConfig `json:"whatsapp"`
	Push     PushConfig     `json:"push"`
}

// TelegramConfig configures the telego-backed Telegram adapter.
type TelegramConfig struct {
	Enabled     bool                `json:"enabled"`
	Token       string              `json:"-"` // env GOCLAW_TELEGRAM_TOKEN only
	AllowFrom   FlexibleStringSlice `json:"allow_from"`
	DMPolicy    string              `json:"dm_policy,omitempty"`    // "open" (default), "allowlist", "disabled"
	GroupPolicy string              `json:"group_policy,omitempty"` // "open" (default), "allowlist", "disabled"
}

// DiscordConfig configures the discordgo-backed Discord adapter.
type DiscordConfig struct {
	Enabled     bool                `json:"enabled"`
	Token       string              `json:"-"` // env GOCLAW_DISCORD_TOKEN only
	AllowFrom   FlexibleStringSlice `json:"allow_from"`
	DMPolicy    string              `json:"dm_policy,omitempty"`
	GroupPolicy string              `json:"group_policy,omitempty"`
}

// WhatsAppConfig configures the webhook-driven WhatsApp Business Cloud
// adapter (plain HTTP, no vendor SDK).
type WhatsAppConfig struct {
	Enabled       bool                `json:"enabled"`
	PhoneNumberID string              `json:"phone_number_id,omitempty"`
	AccessToken   string              `json:"-"` // env GOCLAW_WHATSAPP_TOKEN only
	WebhookSecret string              `json:"-"` // env GOCLAW_WHATSAPP_WEBHOOK_SECRET only
	AllowFrom     FlexibleStringSlice `json:"allow_from"`
	DMPolicy      string              `json:"dm_policy,omitempty"`
}

// PushConfig configures the Firebase Cloud Messaging push adapter, the
// one-way notification channel (no inbound messages).
type PushConfig struct {
	Enabled         bool   `json:"enabled"`
	ProjectID       string `json:"project_id,omitempty"`
	CredentialsFile string `json:"credentials_file,omitempty"` // service-account JSON, loaded via golang.org/x/oauth2/google
}
