package bot

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/bwmarrin/discordgo"
	"go.uber.org/zap"

	"github.com/airo-bot/airo/internal/model"
	"github.com/airo-bot/airo/internal/service"
)

// Component custom IDs carry the task id, so check-in buttons keep working
// across bot restarts without any in-memory view state.
const (
	checkinButtonPrefix = "task_checkin:"
	checkinSelectPrefix = "checkin_select:"
)

// checkinButtonRow builds the persistent Check-in button attached to the
// pinned task overview message.
func checkinButtonRow(taskID int64) []discordgo.MessageComponent {
	return []discordgo.MessageComponent{
		discordgo.ActionsRow{
			Components: []discordgo.MessageComponent{
				discordgo.Button{
					Label:    "Check-in",
					Style:    discordgo.PrimaryButton,
					CustomID: checkinButtonPrefix + strconv.FormatInt(taskID, 10),
				},
			},
		},
	}
}

func checkinSelectRow(taskID int64) []discordgo.MessageComponent {
	return []discordgo.MessageComponent{
		discordgo.ActionsRow{
			Components: []discordgo.MessageComponent{
				discordgo.SelectMenu{
					MenuType:    discordgo.StringSelectMenu,
					CustomID:    checkinSelectPrefix + strconv.FormatInt(taskID, 10),
					Placeholder: "Choose your check-in status...",
					Options: []discordgo.SelectMenuOption{
						{
							Label:       "Done!",
							Value:       string(model.StatusDone),
							Description: "Everything assigned is finished",
						},
						{
							Label:       "Almost done!",
							Value:       string(model.StatusAlmost),
							Description: "Worked today, and task is almost done.",
						},
						{
							Label:       "Not close to finishing.",
							Value:       string(model.StatusNotClose),
							Description: "Worked today, but not near completing the task.",
						},
						{
							Label:       "Skipped",
							Value:       string(model.StatusSkipped),
							Description: "Didn't do anything today.",
						},
					},
				},
			},
		},
	}
}

func (b *Bot) handleComponent(i *discordgo.InteractionCreate) {
	customID := i.MessageComponentData().CustomID

	switch {
	case strings.HasPrefix(customID, checkinButtonPrefix):
		b.handleCheckinButton(i, strings.TrimPrefix(customID, checkinButtonPrefix))
	case strings.HasPrefix(customID, checkinSelectPrefix):
		b.handleCheckinSelect(i, strings.TrimPrefix(customID, checkinSelectPrefix))
	default:
		b.logger.Warn("unknown component", zap.String("custom_id", customID))
	}
}

func (b *Bot) handleCheckinButton(i *discordgo.InteractionCreate, rawTaskID string) {
	taskID, err := strconv.ParseInt(rawTaskID, 10, 64)
	if err != nil {
		b.logger.Warn("malformed check-in button id", zap.String("custom_id", rawTaskID))
		return
	}

	err = b.session.InteractionRespond(i.Interaction, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseChannelMessageWithSource,
		Data: &discordgo.InteractionResponseData{
			Content:    "What's your progress for today looking like?",
			Flags:      discordgo.MessageFlagsEphemeral,
			Components: checkinSelectRow(taskID),
		},
	})
	if err != nil {
		b.logger.Error("failed to send check-in menu", zap.Int64("task", taskID), zap.Error(err))
	}
}

func (b *Bot) handleCheckinSelect(i *discordgo.InteractionCreate, rawTaskID string) {
	b.deferEphemeral(i)

	// The interaction is already deferred, so every early return must still
	// follow up or the user is left on "thinking..." forever.
	taskID, err := strconv.ParseInt(rawTaskID, 10, 64)
	if err != nil {
		b.logger.Warn("malformed check-in select id", zap.String("custom_id", rawTaskID))
		b.followup(i, "That check-in menu looks broken, please press the Check-in button again.")
		return
	}

	values := i.MessageComponentData().Values
	if len(values) == 0 {
		b.followup(i, "Please pick one of the check-in statuses.")
		return
	}
	status := model.CheckinStatus(values[0])
	user := interactionUser(i)

	receipt, err := b.tasks.RecordCheckin(context.Background(), taskID, parseSnowflake(user.ID), status)
	if err != nil {
		b.logger.Error("failed to record check-in", zap.Int64("task", taskID), zap.Error(err))
		b.followup(i, "I couldn't record that check-in, please try again.")
		return
	}

	if receipt.ForwardChannel != 0 {
		b.forwardCheckin(receipt, user)
	}

	b.followup(i, "Check-in recorded. Thank you!")
}

// forwardCheckin posts the report embed to the guild's check-in channel.
func (b *Bot) forwardCheckin(receipt service.CheckinReceipt, user *discordgo.User) {
	embed := &discordgo.MessageEmbed{
		Title:       fmt.Sprintf("New report on Task: %s!", receipt.Task.Name),
		Description: fmt.Sprintf("Check-in from %s", user.Mention()),
		Color:       embedColor,
		Fields: []*discordgo.MessageEmbedField{
			{Name: "Captain:", Value: userMention(receipt.Task.CaptainID), Inline: false},
			{Name: "Report:", Value: receipt.Checkin.Status.Report(), Inline: false},
			{Name: "Thread:", Value: channelMention(receipt.Task.ThreadID), Inline: false},
		},
		Footer: &discordgo.MessageEmbedFooter{Text: time.Now().Format(time.ANSIC)},
	}

	_, err := b.session.ChannelMessageSendComplex(formatSnowflake(receipt.ForwardChannel), &discordgo.MessageSend{
		Embeds: []*discordgo.MessageEmbed{embed},
	})
	if err != nil {
		b.logger.Error("failed to forward check-in",
			zap.Int64("channel", receipt.ForwardChannel),
			zap.Error(err),
		)
	}
}
