package bot

import (
	"strings"

	"github.com/bwmarrin/discordgo"
	"go.uber.org/zap"
)

const (
	buttonAuth         = "auth_button"
	buttonCreateTicket = "create_ticket"
	buttonCloseTicket  = "close_ticket"

	ticketCategoryName = "チケット"
)

func (b *Bot) onMessageCreate(session *discordgo.Session, msg *discordgo.MessageCreate) {
	if msg.Author == nil || msg.Author.Bot {
		return
	}

	switch strings.ToLower(msg.Content) {
	case "!auth":
		b.handleAuthCommand(session, msg)
	case "!ticket":
		b.handleTicketCommand(session, msg)
	case "!clearall":
		b.handleClearAllCommand(session, msg)
	}
}

func (b *Bot) onInteractionCreate(session *discordgo.Session, interaction *discordgo.InteractionCreate) {
	if interaction.Type != discordgo.InteractionMessageComponent {
		return
	}

	switch interaction.MessageComponentData().CustomID {
	case buttonAuth:
		b.handleAuthButton(session, interaction)
	case buttonCreateTicket:
		b.handleCreateTicket(session, interaction)
	case buttonCloseTicket:
		b.handleCloseTicket(session, interaction)
	}
}

func (b *Bot) handleAuthCommand(session *discordgo.Session, msg *discordgo.MessageCreate) {
	_, err := session.ChannelMessageSendComplex(msg.ChannelID, &discordgo.MessageSend{
		Content:   "このボタンを押して認証してください：",
		Reference: msg.Reference(),
		Components: []discordgo.MessageComponent{
			discordgo.ActionsRow{Components: []discordgo.MessageComponent{
				discordgo.Button{Label: "認証する", Style: discordgo.PrimaryButton, CustomID: buttonAuth},
			}},
		},
	})
	if err != nil {
		b.logger.Warn("auth prompt failed", zap.String("channel_id", msg.ChannelID), zap.Error(err))
	}
}

func (b *Bot) handleTicketCommand(session *discordgo.Session, msg *discordgo.MessageCreate) {
	if !b.isGuildOwner(msg) {
		return
	}

	_, err := session.ChannelMessageSendComplex(msg.ChannelID, &discordgo.MessageSend{
		Content:   "サポートが必要ですか？以下のボタンをクリックしてチケットを作成してください。",
		Reference: msg.Reference(),
		Components: []discordgo.MessageComponent{
			discordgo.ActionsRow{Components: []discordgo.MessageComponent{
				discordgo.Button{Label: "🎫 チケットを作成", Style: discordgo.PrimaryButton, CustomID: buttonCreateTicket},
			}},
		},
	})
	if err != nil {
		b.logger.Warn("ticket prompt failed", zap.String("channel_id", msg.ChannelID), zap.Error(err))
	}
}

// handleClearAllCommand clones the current channel, moves the clone into the
// original's position, then deletes the original. A failure partway is logged
// and left as-is; there is no rollback.
func (b *Bot) handleClearAllCommand(session *discordgo.Session, msg *discordgo.MessageCreate) {
	if !b.isGuildOwner(msg) {
		return
	}

	channel, err := b.guilds.Channel(msg.ChannelID)
	if err != nil {
		b.logger.Warn("channel fetch failed", zap.String("channel_id", msg.ChannelID), zap.Error(err))
		return
	}

	cloned, err := session.GuildChannelCreateComplex(channel.GuildID, discordgo.GuildChannelCreateData{
		Name:                 channel.Name,
		Type:                 channel.Type,
		Topic:                channel.Topic,
		NSFW:                 channel.NSFW,
		RateLimitPerUser:     channel.RateLimitPerUser,
		PermissionOverwrites: channel.PermissionOverwrites,
		ParentID:             channel.ParentID,
	})
	if err != nil {
		b.logger.Warn("channel clone failed", zap.String("channel_id", channel.ID), zap.Error(err))
		return
	}

	position := channel.Position
	if _, err := session.ChannelEditComplex(cloned.ID, &discordgo.ChannelEdit{Position: &position}); err != nil {
		b.logger.Warn("channel reposition failed", zap.String("channel_id", cloned.ID), zap.Error(err))
		return
	}

	if _, err := session.ChannelDelete(channel.ID); err != nil {
		b.logger.Warn("channel delete failed", zap.String("channel_id", channel.ID), zap.Error(err))
		return
	}

	if _, err := session.ChannelMessageSend(cloned.ID, "✅ チャンネルを初期化しました（すべてのメッセージを削除）"); err != nil {
		b.logger.Warn("reset notice failed", zap.String("channel_id", cloned.ID), zap.Error(err))
	}
}

func (b *Bot) handleAuthButton(session *discordgo.Session, interaction *discordgo.InteractionCreate) {
	err := session.InteractionRespond(interaction.Interaction, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseChannelMessageWithSource,
		Data: &discordgo.InteractionResponseData{
			Content: "🔐 以下のリンクから認証してください：\n" + b.identity.AuthorizeURL(),
			Flags:   discordgo.MessageFlagsEphemeral,
		},
	})
	if err != nil {
		b.logger.Warn("auth button response failed", zap.Error(err))
	}
}

func (b *Bot) handleCreateTicket(session *discordgo.Session, interaction *discordgo.InteractionCreate) {
	if interaction.GuildID == "" || interaction.Member == nil || interaction.Member.User == nil {
		return
	}

	g, err := b.guilds.Guild(interaction.GuildID)
	if err != nil {
		b.logger.Warn("guild fetch failed", zap.String("guild_id", interaction.GuildID), zap.Error(err))
		return
	}
	member := interaction.Member.User

	data := discordgo.GuildChannelCreateData{
		Name: ticketChannelName(member.Username),
		Type: discordgo.ChannelTypeGuildText,
		PermissionOverwrites: []*discordgo.PermissionOverwrite{
			{ID: g.ID, Type: discordgo.PermissionOverwriteTypeRole, Deny: discordgo.PermissionViewChannel},
			{ID: member.ID, Type: discordgo.PermissionOverwriteTypeMember, Allow: discordgo.PermissionViewChannel | discordgo.PermissionSendMessages},
			{ID: g.OwnerID, Type: discordgo.PermissionOverwriteTypeMember, Allow: discordgo.PermissionViewChannel | discordgo.PermissionSendMessages},
		},
	}
	if category, err := b.guilds.FindCategory(g.ID, ticketCategoryName); err == nil && category != nil {
		data.ParentID = category.ID
	}

	channel, err := session.GuildChannelCreateComplex(g.ID, data)
	if err != nil {
		b.logger.Warn("ticket channel create failed", zap.String("guild_id", g.ID), zap.Error(err))
		return
	}

	_, err = session.ChannelMessageSendComplex(channel.ID, &discordgo.MessageSend{
		Content: "<@" + member.ID + "> チケットが作成されました。管理者が対応します。",
		Components: []discordgo.MessageComponent{
			discordgo.ActionsRow{Components: []discordgo.MessageComponent{
				discordgo.Button{Label: "❌ 閉じる", Style: discordgo.DangerButton, CustomID: buttonCloseTicket},
			}},
		},
	})
	if err != nil {
		b.logger.Warn("ticket greeting failed", zap.String("channel_id", channel.ID), zap.Error(err))
	}

	err = session.InteractionRespond(interaction.Interaction, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseChannelMessageWithSource,
		Data: &discordgo.InteractionResponseData{
			Content: "✅ チケットを作成しました: <#" + channel.ID + ">",
			Flags:   discordgo.MessageFlagsEphemeral,
		},
	})
	if err != nil {
		b.logger.Warn("ticket confirmation failed", zap.Error(err))
	}
}

func (b *Bot) handleCloseTicket(session *discordgo.Session, interaction *discordgo.InteractionCreate) {
	err := session.InteractionRespond(interaction.Interaction, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseChannelMessageWithSource,
		Data: &discordgo.InteractionResponseData{
			Content: "❌ チケットを閉じます...",
		},
	})
	if err != nil {
		b.logger.Warn("ticket close response failed", zap.Error(err))
	}

	if b.tickets.Schedule(interaction.ChannelID) {
		b.logger.Info("ticket close scheduled", zap.String("channel_id", interaction.ChannelID))
	}
}

// isGuildOwner reports whether the message author is the guild's recorded
// owner. Messages outside a guild never qualify.
func (b *Bot) isGuildOwner(msg *discordgo.MessageCreate) bool {
	if msg.GuildID == "" || msg.Author == nil {
		return false
	}
	ownerID, err := b.guilds.OwnerID(msg.GuildID)
	if err != nil {
		b.logger.Warn("owner lookup failed", zap.String("guild_id", msg.GuildID), zap.Error(err))
		return false
	}
	return ownerID != "" && ownerID == msg.Author.ID
}

func ticketChannelName(username string) string {
	return "ticket-" + strings.ToLower(username)
}
