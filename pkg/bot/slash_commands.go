package bot

import (
	"errors"
	"fmt"
	"log"

	"github.com/bwmarrin/discordgo"

	"personabot/pkg/approval"
	"personabot/pkg/persona"
)

// SlashCommands defines all available slash commands
var SlashCommands = []*discordgo.ApplicationCommand{
	{
		Name:        "create-persona",
		Description: "Create a new persona (non-admins need admin approval)",
		Options: []*discordgo.ApplicationCommandOption{
			{
				Type:        discordgo.ApplicationCommandOptionString,
				Name:        "name",
				Description: "The unique name for this persona",
				Required:    true,
			},
			{
				Type:        discordgo.ApplicationCommandOptionString,
				Name:        "content",
				Description: "The system prompt content for the persona",
				Required:    true,
			},
		},
	},
	{
		Name:        "modify-persona",
		Description: "Replace a persona's content (creator or admin; others need approval)",
		Options: []*discordgo.ApplicationCommandOption{
			{
				Type:        discordgo.ApplicationCommandOptionString,
				Name:        "name",
				Description: "The name of the persona to modify",
				Required:    true,
			},
			{
				Type:        discordgo.ApplicationCommandOptionString,
				Name:        "content",
				Description: "The new system prompt content",
				Required:    true,
			},
		},
	},
	{
		Name:        "delete-persona",
		Description: "Delete a persona (creator or admin only)",
		Options: []*discordgo.ApplicationCommandOption{
			{
				Type:        discordgo.ApplicationCommandOptionString,
				Name:        "name",
				Description: "The name of the persona to delete",
				Required:    true,
			},
		},
	},
	{
		Name:        "set-default-persona",
		Description: "Change which persona is used by default",
		Options: []*discordgo.ApplicationCommandOption{
			{
				Type:        discordgo.ApplicationCommandOptionString,
				Name:        "name",
				Description: "The name of the persona to set as default",
				Required:    true,
			},
		},
	},
	{
		Name:        "list-personas",
		Description: "List all available personas",
		Options: []*discordgo.ApplicationCommandOption{
			{
				Type:        discordgo.ApplicationCommandOptionString,
				Name:        "search",
				Description: "Optional search term to filter personas",
				Required:    false,
			},
		},
	},
	{
		Name:        "append-default",
		Description: "Append text to the default persona (non-admins need admin approval)",
		Options: []*discordgo.ApplicationCommandOption{
			{
				Type:        discordgo.ApplicationCommandOptionString,
				Name:        "text",
				Description: "Text to append to the default persona",
				Required:    true,
			},
		},
	},
	{
		Name:        "undo-last-append",
		Description: "Undo the last append to the default persona (admin only)",
	},
}

// SlashCommandHandlers maps command names to their handler functions
var SlashCommandHandlers = map[string]func(h *Handler, s Session, i *discordgo.InteractionCreate){
	"create-persona":      handleCreatePersona,
	"modify-persona":      handleModifyPersona,
	"delete-persona":      handleDeletePersona,
	"set-default-persona": handleSetDefaultPersona,
	"list-personas":       handleListPersonas,
	"append-default":      handleAppendDefault,
	"undo-last-append":    handleUndoLastAppend,
}

func stringOptions(i *discordgo.InteractionCreate) map[string]string {
	opts := make(map[string]string)
	for _, opt := range i.ApplicationCommandData().Options {
		if opt.Type == discordgo.ApplicationCommandOptionString {
			opts[opt.Name] = opt.StringValue()
		}
	}
	return opts
}

func handleCreatePersona(h *Handler, s Session, i *discordgo.InteractionCreate) {
	opts := stringOptions(i)
	name, content := opts["name"], opts["content"]

	userID, _, err := getUserFromInteraction(i)
	if err != nil {
		log.Printf("Error determining user for create-persona: %v", err)
		respondEphemeral(s, i, "Sorry, something went wrong handling the command.")
		return
	}

	if !h.isAdmin(userID) {
		h.propose(s, i, approval.KindCreate, name, content)
		return
	}

	err = h.store.Insert(name, content, userID)
	switch {
	case errors.Is(err, persona.ErrExists):
		respondEphemeral(s, i, fmt.Sprintf("Error: A persona named '%s' already exists.", name))
	case err != nil:
		log.Printf("Error creating persona '%s': %v", name, err)
		respondEphemeral(s, i, "Sorry, something went wrong creating the persona.")
	default:
		respondEphemeral(s, i, fmt.Sprintf("Persona '%s' created successfully.", name))
	}
}

func handleModifyPersona(h *Handler, s Session, i *discordgo.InteractionCreate) {
	opts := stringOptions(i)
	name, content := opts["name"], opts["content"]

	userID, _, err := getUserFromInteraction(i)
	if err != nil {
		log.Printf("Error determining user for modify-persona: %v", err)
		respondEphemeral(s, i, "Sorry, something went wrong handling the command.")
		return
	}

	p, err := h.store.Get(name)
	if errors.Is(err, persona.ErrNotFound) {
		respondEphemeral(s, i, fmt.Sprintf("Error: Persona '%s' not found.", name))
		return
	}
	if err != nil {
		log.Printf("Error loading persona '%s': %v", name, err)
		respondEphemeral(s, i, "Sorry, something went wrong looking up the persona.")
		return
	}

	// Admin and the persona's creator skip the approval hop.
	if !h.isAdmin(userID) && userID != p.CreatorID {
		h.propose(s, i, approval.KindModify, name, content)
		return
	}

	if err := h.store.UpdateContent(name, content); err != nil {
		log.Printf("Error updating persona '%s': %v", name, err)
		respondEphemeral(s, i, "Sorry, something went wrong updating the persona.")
		return
	}
	respondEphemeral(s, i, fmt.Sprintf("Persona '%s' updated successfully.", name))
}

func handleDeletePersona(h *Handler, s Session, i *discordgo.InteractionCreate) {
	name := stringOptions(i)["name"]

	userID, _, err := getUserFromInteraction(i)
	if err != nil {
		log.Printf("Error determining user for delete-persona: %v", err)
		respondEphemeral(s, i, "Sorry, something went wrong handling the command.")
		return
	}

	p, err := h.store.Get(name)
	if errors.Is(err, persona.ErrNotFound) {
		respondEphemeral(s, i, fmt.Sprintf("Error: Persona '%s' not found.", name))
		return
	}
	if err != nil {
		log.Printf("Error loading persona '%s': %v", name, err)
		respondEphemeral(s, i, "Sorry, something went wrong looking up the persona.")
		return
	}

	// No approval path for delete: anyone else is rejected outright.
	if !h.isAdmin(userID) && userID != p.CreatorID {
		respondEphemeral(s, i, "Error: You do not have permission to delete this persona.")
		return
	}

	err = h.store.Delete(name)
	switch {
	case errors.Is(err, persona.ErrIsDefault):
		respondEphemeral(s, i, "Error: Cannot delete the default persona. Change the default first.")
	case err != nil:
		log.Printf("Error deleting persona '%s': %v", name, err)
		respondEphemeral(s, i, "Sorry, something went wrong deleting the persona.")
	default:
		respondEphemeral(s, i, fmt.Sprintf("Persona '%s' deleted successfully.", name))
	}
}

func handleSetDefaultPersona(h *Handler, s Session, i *discordgo.InteractionCreate) {
	name := stringOptions(i)["name"]

	err := h.store.SetDefault(name)
	switch {
	case errors.Is(err, persona.ErrNotFound):
		respondEphemeral(s, i, fmt.Sprintf("Error: Persona '%s' not found.", name))
	case err != nil:
		log.Printf("Error changing default persona to '%s': %v", name, err)
		respondEphemeral(s, i, "Sorry, something went wrong changing the default persona.")
	default:
		log.Printf("Default persona changed to '%s'", name)
		respondPublic(s, i, fmt.Sprintf("Default persona changed to '%s'.", name))
	}
}

func handleListPersonas(h *Handler, s Session, i *discordgo.InteractionCreate) {
	search := stringOptions(i)["search"]

	summaries, err := h.store.List(search)
	if err != nil {
		log.Printf("Error listing personas: %v", err)
		respondEphemeral(s, i, "Sorry, something went wrong fetching the persona list.")
		return
	}

	if len(summaries) == 0 {
		msg := "No personas found."
		if search != "" {
			msg += fmt.Sprintf(" (Search: '%s')", search)
		}
		respondEphemeral(s, i, msg)
		return
	}

	view := &listView{entries: summaries, search: search}
	components := view.buttons()
	if components == nil {
		components = []discordgo.MessageComponent{}
	}
	err = s.InteractionRespond(i.Interaction, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseChannelMessageWithSource,
		Data: &discordgo.InteractionResponseData{
			Content:    view.render(),
			Components: components,
		},
	})
	if err != nil {
		log.Printf("Error responding to list-personas: %v", err)
		return
	}

	// The navigation buttons carry no view identity, so the response
	// message id keys the view state.
	msg, err := s.InteractionResponse(i.Interaction)
	if err != nil {
		log.Printf("Error fetching list-personas response message: %v", err)
		return
	}
	h.views.put(msg.ID, view)
}

func handleAppendDefault(h *Handler, s Session, i *discordgo.InteractionCreate) {
	text := stringOptions(i)["text"]

	userID, _, err := getUserFromInteraction(i)
	if err != nil {
		log.Printf("Error determining user for append-default: %v", err)
		respondEphemeral(s, i, "Sorry, something went wrong handling the command.")
		return
	}

	if !h.isAdmin(userID) {
		h.propose(s, i, approval.KindAppend, "", text)
		return
	}

	if err := h.appendToDefault(text); err != nil {
		log.Printf("Error appending to default persona: %v", err)
		respondEphemeral(s, i, "Sorry, something went wrong appending to the default persona.")
		return
	}
	respondEphemeral(s, i, "Appended to the default persona.")
}

func handleUndoLastAppend(h *Handler, s Session, i *discordgo.InteractionCreate) {
	userID, _, err := getUserFromInteraction(i)
	if err != nil {
		log.Printf("Error determining user for undo-last-append: %v", err)
		respondEphemeral(s, i, "Sorry, something went wrong handling the command.")
		return
	}

	if !h.isAdmin(userID) {
		respondEphemeral(s, i, "Error: Only the admin can perform undo.")
		return
	}

	reverted, err := h.undoLastAppend()
	if err != nil {
		log.Printf("Error undoing last append: %v", err)
		respondEphemeral(s, i, "Sorry, something went wrong undoing the append.")
		return
	}

	if !reverted {
		respondEphemeral(s, i, "There is no append operation to undo.")
		return
	}
	respondPublic(s, i, "Reverted the default persona to its state before the last append.")
}

// RegisterSlashCommands registers all slash commands with Discord
func RegisterSlashCommands(s *discordgo.Session, guildID string) ([]*discordgo.ApplicationCommand, error) {
	log.Println("Registering slash commands...")

	registeredCommands := make([]*discordgo.ApplicationCommand, len(SlashCommands))

	for i, cmd := range SlashCommands {
		// Register globally (guildID = "") or for a specific guild
		registeredCmd, err := s.ApplicationCommandCreate(s.State.User.ID, guildID, cmd)
		if err != nil {
			log.Printf("Cannot create '%s' command: %v", cmd.Name, err)
			return nil, err
		}
		registeredCommands[i] = registeredCmd
		log.Printf("Registered command: %s", cmd.Name)
	}

	return registeredCommands, nil
}

// UnregisterSlashCommands removes all registered slash commands
func UnregisterSlashCommands(s *discordgo.Session, guildID string, commands []*discordgo.ApplicationCommand) error {
	log.Println("Unregistering slash commands...")

	for _, cmd := range commands {
		err := s.ApplicationCommandDelete(s.State.User.ID, guildID, cmd.ID)
		if err != nil {
			log.Printf("Cannot delete '%s' command: %v", cmd.Name, err)
			return err
		}
		log.Printf("Unregistered command: %s", cmd.Name)
	}

	return nil
}
