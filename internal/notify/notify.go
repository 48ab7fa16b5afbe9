// Package notify sends one-way direct messages to a designated administrator.
package notify

import (
	"github.com/bwmarrin/discordgo"
)

type DirectMessenger struct {
	session *discordgo.Session
}

func New(session *discordgo.Session) *DirectMessenger {
	return &DirectMessenger{session: session}
}

// DirectMessage opens (or reuses) a DM channel to the user and sends content.
func (n *DirectMessenger) DirectMessage(userID, content string) error {
	channel, err := n.session.UserChannelCreate(userID)
	if err != nil {
		return err
	}
	_, err = n.session.ChannelMessageSend(channel.ID, content)
	return err
}
