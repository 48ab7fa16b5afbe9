// Package guild is a thin facade over the Discord REST API for membership
// queries and channel management. It does not cache beyond the session state:
// owner and category lookups are read through on every call so authorization
// checks stay fresh.
package guild

import (
	"github.com/bwmarrin/discordgo"
)

type Service struct {
	session *discordgo.Session
}

func NewService(session *discordgo.Session) *Service {
	return &Service{session: session}
}

// Guild fetches a guild from the session state, falling back to REST.
func (s *Service) Guild(guildID string) (*discordgo.Guild, error) {
	guild, err := s.session.State.Guild(guildID)
	if err == nil && guild != nil {
		return guild, nil
	}
	return s.session.Guild(guildID)
}

// Member fetches a guild member from the session state, falling back to REST.
func (s *Service) Member(guildID, userID string) (*discordgo.Member, error) {
	member, err := s.session.State.Member(guildID, userID)
	if err == nil && member != nil {
		return member, nil
	}
	return s.session.GuildMember(guildID, userID)
}

func (s *Service) GrantRole(guildID, userID, roleID string) error {
	return s.session.GuildMemberRoleAdd(guildID, userID, roleID)
}

// OwnerID resolves the guild's recorded owner identity.
func (s *Service) OwnerID(guildID string) (string, error) {
	guild, err := s.Guild(guildID)
	if err != nil {
		return "", err
	}
	return guild.OwnerID, nil
}

// FindCategory returns the first category channel with the given name, or nil
// when the guild has none.
func (s *Service) FindCategory(guildID, name string) (*discordgo.Channel, error) {
	channels, err := s.session.GuildChannels(guildID)
	if err != nil {
		return nil, err
	}
	for _, channel := range channels {
		if channel == nil {
			continue
		}
		if channel.Type == discordgo.ChannelTypeGuildCategory && channel.Name == name {
			return channel, nil
		}
	}
	return nil, nil
}

// Channel fetches a channel from the session state, falling back to REST.
func (s *Service) Channel(channelID string) (*discordgo.Channel, error) {
	channel, err := s.session.State.Channel(channelID)
	if err == nil && channel != nil {
		return channel, nil
	}
	return s.session.Channel(channelID)
}
