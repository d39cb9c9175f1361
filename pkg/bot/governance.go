package bot

import (
	"errors"
	"fmt"
	"log"
	"strings"
	"unicode/utf8"

	"github.com/bwmarrin/discordgo"

	"personabot/pkg/approval"
	"personabot/pkg/persona"
)

const (
	// The approve/reject buttons reuse these ids on every review
	// message; the message id itself identifies the request.
	customIDApprove = "approve_request"
	customIDReject  = "reject_request"

	// payloadPreviewLimit caps the content excerpt shown to the admin.
	payloadPreviewLimit = 1500
)

func approvalButtons(disabled bool) []discordgo.MessageComponent {
	return []discordgo.MessageComponent{
		discordgo.ActionsRow{
			Components: []discordgo.MessageComponent{
				discordgo.Button{
					Label:    "Approve",
					Style:    discordgo.SuccessButton,
					CustomID: customIDApprove,
					Disabled: disabled,
				},
				discordgo.Button{
					Label:    "Reject",
					Style:    discordgo.DangerButton,
					CustomID: customIDReject,
					Disabled: disabled,
				},
			},
		},
	}
}

// payloadPreview caps the excerpt at payloadPreviewLimit characters,
// counting runes so a multi-byte rune is never torn at the boundary.
func payloadPreview(payload string) string {
	if utf8.RuneCountInString(payload) <= payloadPreviewLimit {
		return payload
	}
	return string([]rune(payload)[:payloadPreviewLimit]) + "..."
}

func renderRequest(req *approval.Request) string {
	var b strings.Builder
	switch req.Kind {
	case approval.KindCreate:
		b.WriteString("**Persona Creation Request**\n")
	case approval.KindModify:
		b.WriteString("**Persona Modification Request**\n")
	case approval.KindAppend:
		b.WriteString("**Default Persona Append Request**\n")
	}
	fmt.Fprintf(&b, "User: %s (<@%s>)\n", req.RequesterName, req.RequesterID)
	if req.Name != "" {
		fmt.Fprintf(&b, "Persona Name: `%s`\n", req.Name)
	}
	fmt.Fprintf(&b, "Content:\n```\n%s\n```", payloadPreview(req.Payload))
	return b.String()
}

// propose registers a pending request and routes it to the admin for
// review. If the admin cannot be reached the request is purged
// immediately and the requester is told the submission failed.
func (h *Handler) propose(s Session, i *discordgo.InteractionCreate, kind approval.Kind, name, payload string) {
	userID, userName, err := getUserFromInteraction(i)
	if err != nil {
		log.Printf("Error determining user for %s request: %v", kind, err)
		respondEphemeral(s, i, "Sorry, something went wrong handling the command.")
		return
	}

	req := h.registry.Submit(kind, userID, userName, name, payload)

	dm, err := s.UserChannelCreate(h.adminID)
	if err != nil {
		h.registry.Complete(req.ID)
		log.Printf("Error opening DM channel to admin: %v", err)
		respondEphemeral(s, i, "Error: Could not reach the admin for approval. Please contact them directly.")
		return
	}

	msg, err := s.ChannelMessageSendComplex(dm.ID, &discordgo.MessageSend{
		Content:    renderRequest(req),
		Components: approvalButtons(false),
	})
	if err != nil {
		h.registry.Complete(req.ID)
		log.Printf("Error sending approval request to admin: %v", err)
		respondEphemeral(s, i, "Error: Could not DM the admin for approval. Please contact them directly.")
		return
	}

	h.registry.Bind(msg.ID, req.ID)
	log.Printf("Stored approval binding: message %s -> request %s", msg.ID, req.ID)

	switch kind {
	case approval.KindAppend:
		respondEphemeral(s, i, "Your request to append to the default persona has been sent to the admin for approval.")
	default:
		respondEphemeral(s, i, fmt.Sprintf("Your request to %s persona '%s' has been sent to the admin for approval.", kind, name))
	}
}

// handleDecision captures an approve/reject click on a review message.
func (h *Handler) handleDecision(s Session, i *discordgo.InteractionCreate, approve bool) {
	userID, _, err := getUserFromInteraction(i)
	if err != nil || !h.isAdmin(userID) {
		respondEphemeral(s, i, "Only the admin can act on approval requests.")
		return
	}

	h.decisionMu.Lock()
	defer h.decisionMu.Unlock()

	req, ok := h.registry.Resolve(i.Message.ID)
	if !ok {
		// Late duplicate click, or the request was lost to a restart.
		updateReviewMessage(s, i, "This request is no longer valid or has already been processed.", nil)
		return
	}

	var adminSummary, userNotice string
	if approve {
		adminSummary, userNotice = h.applyApproved(req)
	} else {
		adminSummary = fmt.Sprintf("❌ Rejected %s request%s by <@%s>.", req.Kind, requestTarget(req), req.RequesterID)
		userNotice = fmt.Sprintf("Your %s request%s has been rejected by the admin.", req.Kind, requestTarget(req))
	}

	// Rewrite the review message with the outcome and dead buttons,
	// then notify the requester. The decision stands even if that DM
	// cannot be delivered.
	updateReviewMessage(s, i, adminSummary, approvalButtons(true))
	h.notifyRequester(s, req.RequesterID, userNotice)

	h.registry.Complete(req.ID)
}

func requestTarget(req *approval.Request) string {
	if req.Name == "" {
		return " for the default persona"
	}
	return fmt.Sprintf(" for persona '%s'", req.Name)
}

// applyApproved mutates the persona store according to the request
// kind and returns the admin summary and requester notice.
func (h *Handler) applyApproved(req *approval.Request) (adminSummary, userNotice string) {
	switch req.Kind {
	case approval.KindCreate:
		err := h.store.Insert(req.Name, req.Payload, req.RequesterID)
		if errors.Is(err, persona.ErrExists) {
			return fmt.Sprintf("⚠️ Could not approve creation: persona '%s' already exists.", req.Name),
				fmt.Sprintf("Your request to create persona '%s' could not be approved because a persona with that name already exists.", req.Name)
		}
		if err != nil {
			return approvalFailure(req, err)
		}
		return fmt.Sprintf("✅ Approved creation of persona '%s' by <@%s>.", req.Name, req.RequesterID),
			fmt.Sprintf("Your request to create persona '%s' has been approved by the admin.", req.Name)

	case approval.KindModify:
		err := h.store.UpdateContent(req.Name, req.Payload)
		if errors.Is(err, persona.ErrNotFound) {
			return fmt.Sprintf("⚠️ Could not approve modification: persona '%s' no longer exists.", req.Name),
				fmt.Sprintf("Your request to modify persona '%s' could not be applied because it no longer exists.", req.Name)
		}
		if err != nil {
			return approvalFailure(req, err)
		}
		return fmt.Sprintf("✅ Approved modification of persona '%s' by <@%s>.", req.Name, req.RequesterID),
			fmt.Sprintf("Your request to modify persona '%s' has been approved by the admin.", req.Name)

	case approval.KindAppend:
		if err := h.appendToDefault(req.Payload); err != nil {
			return approvalFailure(req, err)
		}
		return fmt.Sprintf("✅ Approved append to the default persona by <@%s>.", req.RequesterID),
			"Your request to append to the default persona has been approved by the admin."
	}

	return approvalFailure(req, fmt.Errorf("unknown request kind %q", req.Kind))
}

func approvalFailure(req *approval.Request, err error) (string, string) {
	log.Printf("Error applying approved %s request %s: %v", req.Kind, req.ID, err)
	return fmt.Sprintf("❌ An error occurred while approving the %s request: %v", req.Kind, err),
		fmt.Sprintf("An error occurred while processing the approval of your %s request.", req.Kind)
}

// appendToDefault snapshots the default persona's current content for
// one-level undo (overwriting any prior snapshot), then writes the
// concatenated content back.
func (h *Handler) appendToDefault(text string) error {
	def, err := h.store.GetDefault()
	if err != nil {
		return fmt.Errorf("failed to load default persona: %w", err)
	}

	if err := h.store.SetSnapshot(def.Content); err != nil {
		return fmt.Errorf("failed to store undo snapshot: %w", err)
	}

	return h.store.UpdateDefaultContent(def.Content + "\n\n" + text)
}

// undoLastAppend restores the default persona's content from the
// pre-append snapshot. One level only: the snapshot is cleared after
// use, so a second consecutive undo reports reverted=false.
func (h *Handler) undoLastAppend() (reverted bool, err error) {
	snap, ok, err := h.store.Snapshot()
	if err != nil {
		return false, err
	}
	if !ok {
		return false, nil
	}

	if err := h.store.UpdateDefaultContent(snap); err != nil {
		return false, err
	}
	if err := h.store.ClearSnapshot(); err != nil {
		log.Printf("Error clearing undo snapshot: %v", err)
	}
	return true, nil
}

func (h *Handler) notifyRequester(s Session, requesterID, notice string) {
	dm, err := s.UserChannelCreate(requesterID)
	if err != nil {
		log.Printf("Could not open DM channel to user %s: %v", requesterID, err)
		return
	}
	if _, err := s.ChannelMessageSend(dm.ID, notice); err != nil {
		// User might have DMs disabled; the decision already stands.
		log.Printf("Could not DM user %s: %v", requesterID, err)
	}
}

func updateReviewMessage(s Session, i *discordgo.InteractionCreate, content string, components []discordgo.MessageComponent) {
	if components == nil {
		components = []discordgo.MessageComponent{}
	}
	err := s.InteractionRespond(i.Interaction, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseUpdateMessage,
		Data: &discordgo.InteractionResponseData{
			Content:    content,
			Components: components,
		},
	})
	if err != nil {
		log.Printf("Error updating review message %s: %v", i.Message.ID, err)
	}
}
