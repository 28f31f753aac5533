package bot

import (
	"fmt"
	"strings"

	"github.com/airo-bot/airo/internal/model"
)

// NotifyThread sends a check-in nag to a task thread.
// Satisfies worker.Notifier.
func (b *Bot) NotifyThread(threadID int64, content string) error {
	_, err := b.session.ChannelMessageSend(formatSnowflake(threadID), content)
	return err
}

// NotifyReminder delivers a scheduled one-shot reminder, pinging its
// assignees when any were recorded.
func (b *Bot) NotifyReminder(rem model.Reminder) error {
	var sb strings.Builder
	if len(rem.Assignees) > 0 {
		for idx, id := range rem.Assignees {
			if idx > 0 {
				sb.WriteString(" ")
			}
			sb.WriteString(userMention(id))
		}
		sb.WriteString("\n")
	}
	sb.WriteString(fmt.Sprintf("Reminder from %s: %s", userMention(rem.CaptainID), rem.Content))

	_, err := b.session.ChannelMessageSend(formatSnowflake(rem.ChannelID), sb.String())
	return err
}
