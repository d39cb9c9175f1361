package bot

import (
	"fmt"
	"log"
	"strings"
	"unicode/utf8"

	"github.com/bwmarrin/discordgo"
)

const (
	// Discord rejects messages over 2000 characters.
	maxMessageLen = 2000
	// When output needs several messages, each part leaves room for
	// its "[Part i/n]" label.
	labeledChunkLen = 1980
)

// splitMessage cuts text into chunks of at most limit bytes,
// preferring the last line break inside the window. A hard cut never
// lands inside a multi-byte rune.
func splitMessage(text string, limit int) []string {
	var chunks []string
	for text != "" {
		if len(text) <= limit {
			chunks = append(chunks, text)
			break
		}

		cut := strings.LastIndex(text[:limit], "\n")
		if cut <= 0 {
			cut = limit
			for cut > 0 && !utf8.RuneStart(text[cut]) {
				cut--
			}
			if cut == 0 {
				cut = limit
			}
		}
		chunks = append(chunks, text[:cut])
		text = strings.TrimLeft(text[cut:], " \n")
	}
	return chunks
}

// chunkReply prepares a completion reply for delivery: single
// messages go out untouched, longer output is split and labeled.
func chunkReply(content string) []string {
	chunks := splitMessage(content, maxMessageLen)
	if len(chunks) <= 1 {
		return chunks
	}

	chunks = splitMessage(content, labeledChunkLen)
	for i, chunk := range chunks {
		chunks[i] = fmt.Sprintf("[Part %d/%d]\n%s", i+1, len(chunks), chunk)
	}
	return chunks
}

func (h *Handler) sendSplitMessage(s Session, channelID, content string, reference *discordgo.MessageReference) {
	isFirstPart := true
	for _, part := range chunkReply(content) {
		var err error
		if reference == nil {
			// If there's no reference, send a normal message
			_, err = s.ChannelMessageSend(channelID, part)
		} else {
			if isFirstPart {
				// The first part of a reply pings the user by default
				_, err = s.ChannelMessageSendReply(channelID, part, reference)
				isFirstPart = false
			} else {
				// Subsequent parts are sent as replies without pinging the user
				_, err = s.ChannelMessageSendComplex(channelID, &discordgo.MessageSend{
					Content:   part,
					Reference: reference,
					AllowedMentions: &discordgo.MessageAllowedMentions{
						RepliedUser: false,
					},
				})
			}
		}

		if err != nil {
			log.Printf("Error sending message part: %v", err)
		}
	}
}
