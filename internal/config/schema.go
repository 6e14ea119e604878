package config

// Config is the top-level configuration
type Config struct {
	Platform   string         `json:"platform"`
	Discord    DiscordConfig  `json:"discord"`
	Telegram   TelegramConfig `json:"telegram"`
	ChannelID  string         `json:"channelId"`
	ExportFile string         `json:"exportFile"`
	Transfer   TransferConfig `json:"transfer"`
	Render     RenderConfig   `json:"render"`
}

type DiscordConfig struct {
	Token string `json:"token"`
}

type TelegramConfig struct {
	Token string `json:"token"`
}

// TransferConfig tunes the rate-limited dispatcher.
type TransferConfig struct {
	Rate        float64 `json:"rate"` // ops per second
	MaxAttempts int     `json:"maxAttempts"`
}

// RenderConfig tunes local terminal output.
type RenderConfig struct {
	Width int  `json:"width"`
	Color bool `json:"color"`
}

// DefaultConfig returns the built-in defaults, applied before any file or
// environment values.
func DefaultConfig() *Config {
	return &Config{
		Platform:   "discord",
		ExportFile: "messages.json",
		Transfer: TransferConfig{
			Rate:        4.5,
			MaxAttempts: 3,
		},
		Render: RenderConfig{
			Width: 80,
			Color: true,
		},
	}
}
