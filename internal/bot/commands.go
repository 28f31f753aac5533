package bot

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/bwmarrin/discordgo"
	"go.uber.org/zap"

	"github.com/airo-bot/airo/internal/model"
	"github.com/airo-bot/airo/internal/repo"
	"github.com/airo-bot/airo/internal/service"
)

const embedColor = 0x5865F2 // Discord blurple

func commandDefinitions() []*discordgo.ApplicationCommand {
	return []*discordgo.ApplicationCommand{
		{
			Name:        "set_checkin_channel",
			Description: "Setup a channel for check-ins to be forwarded to.",
			Options: []*discordgo.ApplicationCommandOption{
				{
					Type:        discordgo.ApplicationCommandOptionString,
					Name:        "channel",
					Description: "Either the numerical value, or #<channel name>",
					Required:    true,
				},
			},
		},
		{
			Name:        "assign_task",
			Description: "Create a task thread under the current channel and assign users to it.",
			Options: []*discordgo.ApplicationCommandOption{
				{
					Type:        discordgo.ApplicationCommandOptionString,
					Name:        "name",
					Description: "Short name of the task",
					Required:    true,
				},
				{
					Type:        discordgo.ApplicationCommandOptionString,
					Name:        "assignees",
					Description: "Users to assign to this task, e.g. @user1 @user2 @user3",
					Required:    true,
				},
				{
					Type:        discordgo.ApplicationCommandOptionInteger,
					Name:        "reminder_duration",
					Description: "Hours between check-in reminders in the thread.",
					Required:    false,
				},
			},
		},
		{
			Name:        "update_assignees",
			Description: "Update the assignees within a given task.",
			Options: []*discordgo.ApplicationCommandOption{
				{
					Type:        discordgo.ApplicationCommandOptionString,
					Name:        "name",
					Description: "Name of the task",
					Required:    true,
				},
				{
					Type:        discordgo.ApplicationCommandOptionString,
					Name:        "assignees",
					Description: "Users to assign to this task",
					Required:    true,
				},
			},
		},
		{
			Name:        "cleanup_tasks",
			Description: "Mark one or more tasks complete and archive their threads.",
			Options: []*discordgo.ApplicationCommandOption{
				{
					Type:        discordgo.ApplicationCommandOptionString,
					Name:        "task_names",
					Description: "Semicolon-separated list of task names, e.g. task1; task2",
					Required:    true,
				},
				{
					Type:        discordgo.ApplicationCommandOptionBoolean,
					Name:        "delete_thread",
					Description: "Whether to delete the task threads. (disabled by default)",
					Required:    false,
				},
			},
		},
		{
			Name:        "list_tasks",
			Description: "List all tasks in this guild.",
			Options: []*discordgo.ApplicationCommandOption{
				{
					Type:        discordgo.ApplicationCommandOptionString,
					Name:        "filter",
					Description: "Only list tasks created by the mentioned captain(s).",
					Required:    false,
				},
				{
					Type:        discordgo.ApplicationCommandOptionBoolean,
					Name:        "archived",
					Description: "Whether to list archived tasks instead of active ones",
					Required:    false,
				},
			},
		},
		{
			Name:        "delete_archived_tasks",
			Description: "Delete specific or all archived tasks.",
			Options: []*discordgo.ApplicationCommandOption{
				{
					Type:        discordgo.ApplicationCommandOptionString,
					Name:        "task_names",
					Description: "Semicolon-separated list of archived task names to delete.",
					Required:    false,
				},
				{
					Type:        discordgo.ApplicationCommandOptionBoolean,
					Name:        "delete_all",
					Description: "Delete all archived tasks.",
					Required:    false,
				},
			},
		},
		{
			Name:        "remind",
			Description: "Schedule a one-shot reminder in this channel.",
			Options: []*discordgo.ApplicationCommandOption{
				{
					Type:        discordgo.ApplicationCommandOptionString,
					Name:        "in",
					Description: "When to send it, e.g. 1w2d3h",
					Required:    true,
				},
				{
					Type:        discordgo.ApplicationCommandOptionString,
					Name:        "content",
					Description: "What to remind about",
					Required:    true,
				},
				{
					Type:        discordgo.ApplicationCommandOptionString,
					Name:        "assignees",
					Description: "Users to ping with the reminder",
					Required:    false,
				},
			},
		},
	}
}

// options flattens the interaction's options into a name-keyed map.
func options(i *discordgo.InteractionCreate) map[string]*discordgo.ApplicationCommandInteractionDataOption {
	opts := i.ApplicationCommandData().Options
	m := make(map[string]*discordgo.ApplicationCommandInteractionDataOption, len(opts))
	for _, opt := range opts {
		m[opt.Name] = opt
	}
	return m
}

func stringOption(opts map[string]*discordgo.ApplicationCommandInteractionDataOption, name string) string {
	if opt, ok := opts[name]; ok {
		return opt.StringValue()
	}
	return ""
}

func boolOption(opts map[string]*discordgo.ApplicationCommandInteractionDataOption, name string) bool {
	if opt, ok := opts[name]; ok {
		return opt.BoolValue()
	}
	return false
}

func (b *Bot) handleSetCheckinChannel(i *discordgo.InteractionCreate) {
	b.deferEphemeral(i)
	if !b.isCaptain(i) {
		b.followup(i, "Only team captains can set a check-in channel, sorry! Bug a captain to do their thing.")
		return
	}

	ctx := context.Background()
	opts := options(i)

	channelID, err := parseChannelRef(stringOption(opts, "channel"))
	if err != nil {
		b.followup(i, "Please use a valid channel id, or reference one using `#channel`.")
		return
	}

	guildID := parseSnowflake(i.GuildID)
	if current, err := b.tasks.CheckinChannel(ctx, guildID); err == nil && current == channelID {
		b.followup(i, "This channel has already been set as the check-in channel!")
		return
	}

	if err := b.tasks.SetCheckinChannel(ctx, guildID, channelID); err != nil {
		b.logger.Error("failed to set check-in channel", zap.Int64("guild", guildID), zap.Error(err))
		b.followup(i, "Error setting channel, please try again.")
		return
	}

	b.followup(i, "Channel set successfully!")
}

func (b *Bot) handleAssignTask(i *discordgo.InteractionCreate) {
	b.deferEphemeral(i)
	if !b.isCaptain(i) {
		b.followup(i, "Only team captains can assign tasks, go and bug someone to do it for you.")
		return
	}

	ctx := context.Background()
	opts := options(i)
	name := strings.TrimSpace(stringOption(opts, "name"))
	assignees := mentionIDs(stringOption(opts, "assignees"))
	guildID := parseSnowflake(i.GuildID)

	dueInterval := 0
	if opt, ok := opts["reminder_duration"]; ok {
		dueInterval = int(opt.IntValue())
	}

	// The check-in channel precondition is validated before creating the
	// thread so a refused task leaves no empty thread behind.
	if _, err := b.tasks.CheckinChannel(ctx, guildID); err != nil {
		b.followup(i, "A check-in channel has not been configured yet. Use `/set_checkin_channel` to set it first.")
		return
	}

	thread, err := b.session.ThreadStart(i.ChannelID, "Task: "+name, discordgo.ChannelTypeGuildPublicThread, 10080)
	if err != nil {
		b.logger.Error("failed to create thread", zap.String("task", name), zap.Error(err))
		b.followup(i, "I couldn't create a thread here. This command must be used in a text channel.")
		return
	}

	task, err := b.tasks.CreateTask(ctx, model.Task{
		GuildID:          guildID,
		ThreadID:         parseSnowflake(thread.ID),
		Name:             name,
		CaptainID:        parseSnowflake(interactionUser(i).ID),
		DueIntervalHours: dueInterval,
		Assignees:        assignees,
	})
	if err != nil {
		// Roll the thread back; the task was never persisted.
		if _, delErr := b.session.ChannelDelete(thread.ID); delErr != nil {
			b.logger.Error("failed to roll back thread", zap.String("thread", thread.ID), zap.Error(delErr))
		}

		switch {
		case errors.Is(err, repo.ErrorConflict):
			b.followup(i, fmt.Sprintf("A task named `%s` already exists. Please choose a unique name so I don't get confused...", name))
		case errors.Is(err, service.ErrValidation):
			b.followup(i, "That task name or reminder duration doesn't look right, please double-check it.")
		default:
			b.logger.Error("failed to create task", zap.String("task", name), zap.Error(err))
			b.followup(i, "Something went wrong creating the task, please try again.")
		}
		return
	}

	embed := &discordgo.MessageEmbed{
		Title:       "Task: " + name,
		Description: "Use the Check-in button to report your progress today!",
		Color:       embedColor,
		Fields: []*discordgo.MessageEmbedField{
			{Name: "Assignees", Value: userMentions(assignees), Inline: false},
		},
		Footer: &discordgo.MessageEmbedFooter{
			Text: fmt.Sprintf("Daily check-ins required within %d hours.", task.DueIntervalHours),
		},
	}

	msg, err := b.session.ChannelMessageSendComplex(thread.ID, &discordgo.MessageSend{
		Embeds:     []*discordgo.MessageEmbed{embed},
		Components: checkinButtonRow(task.ID),
	})
	if err != nil {
		b.logger.Error("failed to send task message", zap.String("task", name), zap.Error(err))
	} else if err := b.session.ChannelMessagePin(thread.ID, msg.ID); err != nil {
		b.logger.Error("failed to pin task message", zap.String("task", name), zap.Error(err))
	}

	b.followup(i, fmt.Sprintf("Task `%s` created and assigned in %s! Woo!", name, channelMention(task.ThreadID)))
}

func (b *Bot) handleUpdateAssignees(i *discordgo.InteractionCreate) {
	b.deferEphemeral(i)
	if !b.isCaptain(i) {
		b.followup(i, "Only team captains can change assignees in tasks, you should totally bug one to do it for you.")
		return
	}

	ctx := context.Background()
	opts := options(i)
	name := strings.TrimSpace(stringOption(opts, "name"))
	assignees := mentionIDs(stringOption(opts, "assignees"))

	task, err := b.tasks.UpdateAssignees(ctx, parseSnowflake(i.GuildID), name, assignees)
	if err != nil {
		if errors.Is(err, repo.ErrorNotFound) {
			b.followup(i, fmt.Sprintf("No task with the name `%s` exists in this server.", name))
			return
		}
		b.logger.Error("failed to update assignees", zap.String("task", name), zap.Error(err))
		b.followup(i, "Failed to update assignees, please try again.")
		return
	}

	// Keep the pinned task overview in sync with the database.
	if err := b.updateTaskEmbed(task, assignees); err != nil {
		b.logger.Warn("failed to update task embed", zap.String("task", name), zap.Error(err))
	}

	b.followup(i, fmt.Sprintf("Task `%s` assignees updated successfully in %s! Now they can work properly :D", name, channelMention(task.ThreadID)))
}

func (b *Bot) updateTaskEmbed(task model.Task, assignees []int64) error {
	threadID := formatSnowflake(task.ThreadID)
	pinned, err := b.session.ChannelMessagesPinned(threadID)
	if err != nil {
		return err
	}

	for _, msg := range pinned {
		if len(msg.Embeds) == 0 {
			continue
		}
		embeds := msg.Embeds
		if len(embeds[0].Fields) > 0 {
			embeds[0].Fields[0].Value = userMentions(assignees)
		}
		_, err := b.session.ChannelMessageEditComplex(&discordgo.MessageEdit{
			Channel: threadID,
			ID:      msg.ID,
			Embeds:  &embeds,
		})
		return err
	}
	return fmt.Errorf("no pinned task message in thread %s", threadID)
}

func (b *Bot) handleCleanupTasks(i *discordgo.InteractionCreate) {
	b.deferEphemeral(i)
	if !b.isCaptain(i) {
		b.followup(i, "Only team captains can cleanup tasks. Go ping the captains!")
		return
	}
	if i.GuildID == "" {
		b.followup(i, "You can only cleanup guild tasks in a guild, silly!")
		return
	}

	ctx := context.Background()
	opts := options(i)
	deleteThread := boolOption(opts, "delete_thread")
	guildID := parseSnowflake(i.GuildID)

	var completed, failed []string
	for _, name := range splitNames(stringOption(opts, "task_names")) {
		task, err := b.tasks.CompleteTask(ctx, guildID, name, deleteThread)
		if err != nil {
			if errors.Is(err, repo.ErrorNotFound) {
				failed = append(failed, fmt.Sprintf("Task \"%s\" doesn't exist, you sure you spelled it right?", name))
			} else {
				b.logger.Error("failed to complete task", zap.String("task", name), zap.Error(err))
				failed = append(failed, fmt.Sprintf("Failed to remove task \"%s\", dw things will still work.", name))
			}
			continue
		}

		threadID := formatSnowflake(task.ThreadID)
		if deleteThread {
			if _, err := b.session.ChannelDelete(threadID); err != nil {
				b.logger.Warn("failed to delete thread", zap.String("thread", threadID), zap.Error(err))
			}
		} else {
			archived, locked := true, true
			if _, err := b.session.ChannelEditComplex(threadID, &discordgo.ChannelEdit{
				Archived: &archived,
				Locked:   &locked,
			}); err != nil {
				b.logger.Warn("failed to archive thread", zap.String("thread", threadID), zap.Error(err))
			}
		}

		completed = append(completed, fmt.Sprintf("Task \"%s\" marked complete! Assignees will no longer be prompted for check-ins. Woot Woot!", name))
	}

	var summary []string
	if len(completed) > 0 {
		summary = append(summary, strings.Join(completed, "\n"))
	}
	if len(failed) > 0 {
		summary = append(summary, strings.Join(failed, "\n"))
	}
	if len(summary) == 0 {
		summary = append(summary, "Please provide a semicolon-separated list of task names to clean up.")
	}

	b.followup(i, strings.Join(summary, "\n\n"))
}

func (b *Bot) handleListTasks(i *discordgo.InteractionCreate) {
	b.deferEphemeral(i)
	if i.GuildID == "" {
		b.followup(i, "This command must be run in a server (guild) channel, not in DMs. I mean, threads don't exist there, do they?")
		return
	}

	ctx := context.Background()
	opts := options(i)
	archived := boolOption(opts, "archived")
	filter := model.TaskFilter{
		CaptainIDs: mentionIDs(stringOption(opts, "filter")),
		Archived:   archived,
	}

	tasks, err := b.tasks.ListTasks(ctx, parseSnowflake(i.GuildID), filter)
	if err != nil {
		b.logger.Error("failed to list tasks", zap.Error(err))
		b.followup(i, "Failed to read tasks from the database, please try again.")
		return
	}

	if len(tasks) == 0 {
		switch {
		case len(filter.CaptainIDs) > 0:
			b.followup(i, "There are no open tasks in this guild created by this user(s). What a shame... they should set some up.")
		case archived:
			b.followup(i, "There are no archived tasks in this guild.")
		default:
			b.followup(i, "There are no open tasks in this guild. Woo!!! No work!!")
		}
		return
	}

	desc := "active"
	if archived {
		desc = "archived"
	}

	embed := &discordgo.MessageEmbed{
		Title:       "Open Tasks",
		Description: fmt.Sprintf("There are currently %d %s task(s) in this server.", len(tasks), desc),
		Color:       embedColor,
	}

	for _, task := range tasks {
		embed.Fields = append(embed.Fields, &discordgo.MessageEmbedField{
			Name: "Name: " + task.Name,
			Value: fmt.Sprintf("Thread: %s\nCaptain: %s\nAssignees: %s\nReminder (hours): %d",
				channelMention(task.ThreadID),
				userMention(task.CaptainID),
				userMentions(task.Assignees),
				task.DueIntervalHours,
			),
			Inline: false,
		})
	}

	b.followupEmbed(i, embed)
}

func (b *Bot) handleDeleteArchived(i *discordgo.InteractionCreate) {
	b.deferEphemeral(i)
	if !b.isCaptain(i) {
		b.followup(i, "Only team captains can delete tasks! Don't go ruining people's productivity now.")
		return
	}

	ctx := context.Background()
	opts := options(i)
	names := splitNames(stringOption(opts, "task_names"))
	deleteAll := boolOption(opts, "delete_all")

	if len(names) == 0 && !deleteAll {
		b.followup(i, "Please provide a semicolon-separated list of task names to delete, or specify delete_all.")
		return
	}
	if deleteAll {
		names = nil
	}

	deleted, err := b.tasks.DeleteArchived(ctx, parseSnowflake(i.GuildID), names)
	if err != nil {
		b.logger.Error("failed to delete archived tasks", zap.Error(err))
		b.followup(i, "Failed to delete archived tasks, please try again.")
		return
	}
	if len(deleted) == 0 {
		b.followup(i, "No matching archived tasks found to delete... so that probably means you spelled it wrong.")
		return
	}

	deletedThreads := 0
	for _, a := range deleted {
		if _, err := b.session.ChannelDelete(formatSnowflake(a.ThreadID)); err != nil {
			b.logger.Warn("failed to delete archived thread", zap.Int64("thread", a.ThreadID), zap.Error(err))
			continue
		}
		deletedThreads++
	}

	b.followup(i, fmt.Sprintf(
		"Deleted %d thread(s) and removed %d task(s) from the archive! This cannot be undone, so I hope you know what you were doing.",
		deletedThreads, len(deleted),
	))
}

func (b *Bot) handleRemind(i *discordgo.InteractionCreate) {
	b.deferEphemeral(i)
	if !b.isCaptain(i) {
		b.followup(i, "Only team captains can schedule reminders, go bug one of them!")
		return
	}
	if i.GuildID == "" {
		b.followup(i, "Reminders can only be scheduled inside a server channel.")
		return
	}

	ctx := context.Background()
	opts := options(i)

	rem, err := b.tasks.ScheduleReminder(ctx, model.Reminder{
		GuildID:   parseSnowflake(i.GuildID),
		ChannelID: parseSnowflake(i.ChannelID),
		CaptainID: parseSnowflake(interactionUser(i).ID),
		Content:   stringOption(opts, "content"),
		Assignees: mentionIDs(stringOption(opts, "assignees")),
	}, stringOption(opts, "in"))
	if err != nil {
		if errors.Is(err, service.ErrValidation) {
			b.followup(i, "I couldn't parse that duration. Use something like `1w2d3h` (weeks, days, hours, minutes, seconds).")
			return
		}
		b.logger.Error("failed to schedule reminder", zap.Error(err))
		b.followup(i, "Failed to schedule the reminder, please try again.")
		return
	}

	b.followup(i, fmt.Sprintf("Reminder scheduled for <t:%d:f>!", rem.SendAt.Unix()))
}
