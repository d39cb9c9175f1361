package bot

import (
	"context"
	"errors"
	"fmt"
	"log"
	"regexp"
	"strings"
	"sync"

	"github.com/bwmarrin/discordgo"

	"personabot/pkg/approval"
	"personabot/pkg/completion"
	"personabot/pkg/persona"
)

var (
	mentionRegex  = regexp.MustCompile(`<@!?\d+>`)
	overrideRegex = regexp.MustCompile(`(?i)-type\s+"([^"]+)"`)
)

type Handler struct {
	completionClient CompletionClient
	store            persona.Store
	registry         *approval.Registry
	views            *viewRegistry
	adminID          string
	botID            string
	historyLimit     int
	// Serializes decision capture so two near-simultaneous clicks on
	// the same review message cannot both apply.
	decisionMu sync.Mutex
}

func NewHandler(c CompletionClient, store persona.Store, adminID string, historyLimit int) *Handler {
	h := &Handler{
		completionClient: c,
		store:            store,
		registry:         approval.NewRegistry(),
		views:            newViewRegistry(),
		adminID:          adminID,
		historyLimit:     historyLimit,
	}

	go h.views.expireLoop()

	return h
}

func (h *Handler) SetBotID(id string) {
	h.botID = id
}

func (h *Handler) isAdmin(userID string) bool {
	return userID == h.adminID
}

func (h *Handler) MessageCreate(s *discordgo.Session, m *discordgo.MessageCreate) {
	h.HandleMessage(&DiscordSession{s}, m)
}

func (h *Handler) HandleMessage(s Session, m *discordgo.MessageCreate) {
	// Ignore own messages and other bots
	if m.Author.ID == h.botID || m.Author.Bot {
		return
	}

	// Get channel info to check if it's a DM
	channel, err := s.Channel(m.ChannelID)
	isDM := err == nil && channel.Type == discordgo.ChannelTypeDM

	isMentioned := false
	for _, user := range m.Mentions {
		if user.ID == h.botID {
			isMentioned = true
			break
		}
	}

	if !isMentioned && !isDM {
		return
	}

	s.ChannelTyping(m.ChannelID)

	content := strings.TrimSpace(mentionRegex.ReplaceAllString(m.Content, ""))

	// Resolve the persona steering this reply: the default, unless the
	// message carries a -type "name" override.
	systemInstruction, content, ok := h.resolvePersona(s, m.ChannelID, content)
	if !ok {
		return
	}

	if content == "" {
		s.ChannelMessageSend(m.ChannelID, "Did you mean to ask something?")
		return
	}

	displayName := m.Author.Username
	if m.Author.GlobalName != "" {
		displayName = m.Author.GlobalName
	}

	history := h.renderHistory(s, m)
	currentQuery := fmt.Sprintf("%s: %s", displayName, content)

	userContent := fmt.Sprintf(
		"## Message History:\n%s\n\n## Current Message (Respond to this):\n%s",
		history, currentQuery,
	)

	messages := []completion.Message{
		{Role: "system", Content: systemInstruction},
		{Role: "user", Content: userContent},
	}

	reply, err := h.completionClient.ChatCompletion(context.Background(), messages)
	if err != nil {
		log.Printf("Error getting completion for message %s: %v", m.ID, err)
		s.ChannelMessageSend(m.ChannelID, "Sorry, I encountered an error trying to respond.")
		return
	}

	if reply == "" {
		s.ChannelMessageSend(m.ChannelID, "I received an empty response.")
		return
	}

	h.sendSplitMessage(s, m.ChannelID, reply, m.Reference())
}

// resolvePersona picks the system instruction for a message and strips
// any override argument from the content. ok is false only when even
// the default persona could not be loaded.
func (h *Handler) resolvePersona(s Session, channelID, content string) (instruction, remaining string, ok bool) {
	remaining = content

	if match := overrideRegex.FindStringSubmatch(content); match != nil {
		overrideName := match[1]
		remaining = strings.TrimSpace(overrideRegex.ReplaceAllString(content, ""))

		p, err := h.store.Get(overrideName)
		if err == nil {
			return p.Content, remaining, true
		}
		if errors.Is(err, persona.ErrNotFound) {
			s.ChannelMessageSend(channelID, fmt.Sprintf("(Couldn't find persona '%s', using default.)", overrideName))
		} else {
			log.Printf("Error loading persona override '%s': %v", overrideName, err)
		}
	}

	def, err := h.store.GetDefault()
	if err != nil {
		log.Printf("CRITICAL: could not load default persona: %v", err)
		s.ChannelMessageSend(channelID, "Sorry, I couldn't load my default personality.")
		return "", "", false
	}
	return def.Content, remaining, true
}

// renderHistory fetches messages sent before m and formats them
// oldest-first as "Name: content" lines.
func (h *Handler) renderHistory(s Session, m *discordgo.MessageCreate) string {
	msgs, err := s.ChannelMessages(m.ChannelID, h.historyLimit, m.ID, "", "")
	if err != nil {
		log.Printf("Error fetching history for channel %s: %v", m.ChannelID, err)
		return ""
	}

	// ChannelMessages returns newest first
	var lines []string
	for i := len(msgs) - 1; i >= 0; i-- {
		msg := msgs[i]
		authorName := msg.Author.Username
		if msg.Author.GlobalName != "" {
			authorName = msg.Author.GlobalName
		}
		if msg.Author.ID == h.botID {
			authorName = "You"
		}

		cleaned := mentionRegex.ReplaceAllString(msg.Content, "")
		cleaned = overrideRegex.ReplaceAllString(cleaned, "")
		cleaned = strings.TrimSpace(cleaned)
		if cleaned == "" {
			continue
		}
		lines = append(lines, fmt.Sprintf("%s: %s", authorName, cleaned))
	}

	return strings.Join(lines, "\n")
}

// InteractionCreate dispatches slash commands and button interactions.
func (h *Handler) InteractionCreate(s *discordgo.Session, i *discordgo.InteractionCreate) {
	h.HandleInteraction(&DiscordSession{s}, i)
}

func (h *Handler) HandleInteraction(s Session, i *discordgo.InteractionCreate) {
	switch i.Type {
	case discordgo.InteractionApplicationCommand:
		name := i.ApplicationCommandData().Name
		if handler, ok := SlashCommandHandlers[name]; ok {
			handler(h, s, i)
		} else {
			log.Printf("Unknown slash command: %s", name)
		}
	case discordgo.InteractionMessageComponent:
		switch i.MessageComponentData().CustomID {
		case customIDApprove:
			h.handleDecision(s, i, true)
		case customIDReject:
			h.handleDecision(s, i, false)
		case customIDPrev:
			h.handleListNav(s, i, -1)
		case customIDNext:
			h.handleListNav(s, i, +1)
		}
	}
}
