package bot

import (
	"context"
	"fmt"

	"github.com/bwmarrin/discordgo"

	"personabot/pkg/completion"
)

// sentMessage records one outbound message for assertions.
type sentMessage struct {
	ID         string
	ChannelID  string
	Content    string
	HasButtons bool
}

// MockSession implements Session for testing
type MockSession struct {
	Sent            []sentMessage
	Responses       []*discordgo.InteractionResponse
	TypingCalls     int
	ChannelType     discordgo.ChannelType // Configurable channel type for testing
	History         []*discordgo.Message
	FailUserChannel map[string]bool // recipients whose DM channel cannot be opened
	FailChannelSend map[string]bool // channels where sends fail
	msgCounter      int
}

func (m *MockSession) nextID() string {
	m.msgCounter++
	return fmt.Sprintf("mock_msg_%d", m.msgCounter)
}

func (m *MockSession) record(channelID, content string, hasButtons bool) (*discordgo.Message, error) {
	if m.FailChannelSend[channelID] {
		return nil, fmt.Errorf("mock send failure for channel %s", channelID)
	}
	id := m.nextID()
	m.Sent = append(m.Sent, sentMessage{ID: id, ChannelID: channelID, Content: content, HasButtons: hasButtons})
	return &discordgo.Message{
		ID:        id,
		ChannelID: channelID,
		Content:   content,
	}, nil
}

func (m *MockSession) ChannelMessageSend(channelID string, content string, options ...discordgo.RequestOption) (*discordgo.Message, error) {
	return m.record(channelID, content, false)
}

func (m *MockSession) ChannelMessageSendReply(channelID string, content string, reference *discordgo.MessageReference, options ...discordgo.RequestOption) (*discordgo.Message, error) {
	return m.record(channelID, content, false)
}

func (m *MockSession) ChannelMessageSendComplex(channelID string, data *discordgo.MessageSend, options ...discordgo.RequestOption) (*discordgo.Message, error) {
	return m.record(channelID, data.Content, len(data.Components) > 0)
}

func (m *MockSession) ChannelMessages(channelID string, limit int, beforeID, afterID, aroundID string, options ...discordgo.RequestOption) ([]*discordgo.Message, error) {
	return m.History, nil
}

func (m *MockSession) ChannelTyping(channelID string, options ...discordgo.RequestOption) error {
	m.TypingCalls++
	return nil
}

func (m *MockSession) Channel(channelID string, options ...discordgo.RequestOption) (*discordgo.Channel, error) {
	channelType := m.ChannelType
	if channelType == 0 {
		channelType = discordgo.ChannelTypeGuildText // Default to guild text channel
	}
	return &discordgo.Channel{
		ID:   channelID,
		Type: channelType,
	}, nil
}

func (m *MockSession) UserChannelCreate(recipientID string, options ...discordgo.RequestOption) (*discordgo.Channel, error) {
	if m.FailUserChannel[recipientID] {
		return nil, fmt.Errorf("mock: cannot open DM channel to %s", recipientID)
	}
	return &discordgo.Channel{
		ID:   "dm_" + recipientID,
		Type: discordgo.ChannelTypeDM,
	}, nil
}

func (m *MockSession) InteractionRespond(interaction *discordgo.Interaction, resp *discordgo.InteractionResponse, options ...discordgo.RequestOption) error {
	m.Responses = append(m.Responses, resp)
	return nil
}

func (m *MockSession) InteractionResponse(interaction *discordgo.Interaction, options ...discordgo.RequestOption) (*discordgo.Message, error) {
	content := ""
	if len(m.Responses) > 0 && m.Responses[len(m.Responses)-1].Data != nil {
		content = m.Responses[len(m.Responses)-1].Data.Content
	}
	return &discordgo.Message{ID: m.nextID(), Content: content}, nil
}

// lastResponse returns the most recent interaction response.
func (m *MockSession) lastResponse() *discordgo.InteractionResponse {
	if len(m.Responses) == 0 {
		return nil
	}
	return m.Responses[len(m.Responses)-1]
}

// dmsTo returns messages delivered to a user's DM channel.
func (m *MockSession) dmsTo(userID string) []string {
	var out []string
	for _, msg := range m.Sent {
		if msg.ChannelID == "dm_"+userID {
			out = append(out, msg.Content)
		}
	}
	return out
}

// lastSentTo returns the last message sent to a channel.
func (m *MockSession) lastSentTo(channelID string) *sentMessage {
	for i := len(m.Sent) - 1; i >= 0; i-- {
		if m.Sent[i].ChannelID == channelID {
			return &m.Sent[i]
		}
	}
	return nil
}

// MockCompletion implements CompletionClient for testing
type MockCompletion struct {
	Reply        string
	Err          error
	LastMessages []completion.Message
}

func (m *MockCompletion) ChatCompletion(ctx context.Context, messages []completion.Message) (string, error) {
	m.LastMessages = messages
	if m.Err != nil {
		return "", m.Err
	}
	return m.Reply, nil
}

// commandInteraction builds a slash-command interaction from a DM
// context (User set rather than Member).
func commandInteraction(userID, command string, opts map[string]string) *discordgo.InteractionCreate {
	var options []*discordgo.ApplicationCommandInteractionDataOption
	for name, value := range opts {
		options = append(options, &discordgo.ApplicationCommandInteractionDataOption{
			Name:  name,
			Type:  discordgo.ApplicationCommandOptionString,
			Value: value,
		})
	}

	return &discordgo.InteractionCreate{
		Interaction: &discordgo.Interaction{
			Type: discordgo.InteractionApplicationCommand,
			User: &discordgo.User{ID: userID, Username: "user_" + userID},
			Data: discordgo.ApplicationCommandInteractionData{
				Name:    command,
				Options: options,
			},
		},
	}
}

// componentInteraction builds a button click on a given message.
func componentInteraction(userID, messageID, customID string) *discordgo.InteractionCreate {
	return &discordgo.InteractionCreate{
		Interaction: &discordgo.Interaction{
			Type:    discordgo.InteractionMessageComponent,
			User:    &discordgo.User{ID: userID, Username: "user_" + userID},
			Message: &discordgo.Message{ID: messageID},
			Data: discordgo.MessageComponentInteractionData{
				CustomID: customID,
			},
		},
	}
}
