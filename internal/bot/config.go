package bot

import "github.com/bwmarrin/discordgo"

// Config contains configuration variables for the Discord layer.
type Config struct {
	// Token is the Discord bot token used for authentication.
	Token string

	// CaptainRole is the name of the guild role allowed to run
	// task-mutating commands.
	CaptainRole string

	// Intents declares the Gateway Intents the bot requires.
	Intents discordgo.Intent
}

// NewConfig creates and returns a new Config instance with default settings.
// Token is empty and must be set before use.
func NewConfig() *Config {
	return &Config{
		Token:       "",
		CaptainRole: "SE",
		Intents:     discordgo.IntentsGuilds | discordgo.IntentsGuildMessages,
	}
}
