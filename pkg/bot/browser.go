package bot

import (
	"fmt"
	"log"
	"strings"
	"sync"
	"time"

	"github.com/bwmarrin/discordgo"

	"personabot/pkg/persona"
)

const (
	customIDPrev = "personas_prev"
	customIDNext = "personas_next"

	listPageSize = 20
	listViewTTL  = 3 * time.Minute
)

// listView is the page-scoped state behind one persona list message.
type listView struct {
	entries  []persona.Summary
	page     int
	search   string
	lastUsed time.Time
}

func (v *listView) lastPage() int {
	if len(v.entries) == 0 {
		return 0
	}
	return (len(v.entries) - 1) / listPageSize
}

func (v *listView) totalPages() int {
	return (len(v.entries) + listPageSize - 1) / listPageSize
}

func (v *listView) render() string {
	start := v.page * listPageSize
	end := start + listPageSize
	if end > len(v.entries) {
		end = len(v.entries)
	}

	var lines []string
	for idx, entry := range v.entries[start:end] {
		mark := "  "
		if entry.IsDefault {
			mark = "📌"
		}
		lines = append(lines, fmt.Sprintf("%s %d. %s", mark, start+idx+1, entry.Name))
	}

	header := "🌳 Available Personas"
	if v.search != "" {
		header += fmt.Sprintf(" (Search: '%s')", v.search)
	}
	header += fmt.Sprintf("\nPage %d/%d", v.page+1, v.totalPages())

	return header + "\n```\n" + strings.Join(lines, "\n") + "\n```"
}

// buttons returns the navigation row: previous only past page 0, next
// only while entries remain beyond the current window.
func (v *listView) buttons() []discordgo.MessageComponent {
	var row discordgo.ActionsRow
	if v.page > 0 {
		row.Components = append(row.Components, discordgo.Button{
			Label:    "Previous",
			Style:    discordgo.PrimaryButton,
			CustomID: customIDPrev,
		})
	}
	if (v.page+1)*listPageSize < len(v.entries) {
		row.Components = append(row.Components, discordgo.Button{
			Label:    "Next",
			Style:    discordgo.PrimaryButton,
			CustomID: customIDNext,
		})
	}
	if len(row.Components) == 0 {
		return nil
	}
	return []discordgo.MessageComponent{row}
}

// viewRegistry tracks live list views by message id, expiring them
// after a period of inactivity.
type viewRegistry struct {
	mu    sync.Mutex
	views map[string]*listView
}

func newViewRegistry() *viewRegistry {
	return &viewRegistry{views: make(map[string]*listView)}
}

func (r *viewRegistry) put(messageID string, view *listView) {
	r.mu.Lock()
	defer r.mu.Unlock()
	view.lastUsed = time.Now()
	r.views[messageID] = view
}

func (r *viewRegistry) get(messageID string) (*listView, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	view, ok := r.views[messageID]
	if !ok {
		return nil, false
	}
	if time.Since(view.lastUsed) > listViewTTL {
		delete(r.views, messageID)
		return nil, false
	}
	view.lastUsed = time.Now()
	return view, true
}

func (r *viewRegistry) expireLoop() {
	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()

	for range ticker.C {
		r.mu.Lock()
		for messageID, view := range r.views {
			if time.Since(view.lastUsed) > listViewTTL {
				delete(r.views, messageID)
			}
		}
		r.mu.Unlock()
	}
}

// handleListNav processes a previous/next click, clamping the page to
// the valid range and re-rendering in place.
func (h *Handler) handleListNav(s Session, i *discordgo.InteractionCreate, delta int) {
	view, ok := h.views.get(i.Message.ID)
	if !ok {
		// Expired view: strip the buttons so the message reads as done.
		err := s.InteractionRespond(i.Interaction, &discordgo.InteractionResponse{
			Type: discordgo.InteractionResponseUpdateMessage,
			Data: &discordgo.InteractionResponseData{
				Content:    i.Message.Content,
				Components: []discordgo.MessageComponent{},
			},
		})
		if err != nil {
			log.Printf("Error disabling expired persona list %s: %v", i.Message.ID, err)
		}
		return
	}

	view.page = clampPage(view.page+delta, view.lastPage())

	components := view.buttons()
	if components == nil {
		components = []discordgo.MessageComponent{}
	}
	err := s.InteractionRespond(i.Interaction, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseUpdateMessage,
		Data: &discordgo.InteractionResponseData{
			Content:    view.render(),
			Components: components,
		},
	})
	if err != nil {
		log.Printf("Error updating persona list %s: %v", i.Message.ID, err)
	}
}

func clampPage(page, last int) int {
	if page < 0 {
		return 0
	}
	if page > last {
		return last
	}
	return page
}
