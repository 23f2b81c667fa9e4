// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package editor

import (
	"fmt"
	"strings"

	"github.com/morganforge/tllm/internal/model"
)

// =============================================================================
// COMMAND TOKENS
// =============================================================================

const (
	// CommandNothing is the default listing command token.
	CommandNothing = "nothing"

	// CommandLoad selects a conversation in listing mode.
	CommandLoad = "load"
)

// turnHeaderPrefix marks the start of one turn in conversation mode.
const turnHeaderPrefix = "## "

// =============================================================================
// CONVERSATION MODE
// =============================================================================

const conversationInstructions = `# Write your next message below the last turn, then save and quit.
# Leave the trailing section empty to finish the conversation.`

// FormatConversation renders the conversation as an editable buffer:
// role-tagged turns in chronological order, newest last, followed by an
// empty editable region for the next user turn.
func FormatConversation(conv *model.Conversation) string {
	var sb strings.Builder
	sb.WriteString(conversationInstructions)
	sb.WriteString("\n\n")

	for _, msg := range conv.Messages {
		sb.WriteString(formatTurnHeader(msg))
		sb.WriteString("\n\n")
		sb.WriteString(strings.TrimRight(msg.Content, "\n"))
		sb.WriteString("\n\n")
	}

	// Trailing editable region for the next user turn.
	sb.WriteString(turnHeaderPrefix + model.RoleUser.String())
	sb.WriteString("\n\n")
	return sb.String()
}

// formatTurnHeader renders one turn header, tagging assistant turns with the
// provider that produced them.
func formatTurnHeader(msg *model.Message) string {
	header := turnHeaderPrefix + msg.Role.String()
	if msg.Provider != "" {
		header += " (" + msg.Provider + ")"
	}
	if msg.Truncated {
		header += " [truncated]"
	}
	return header
}

// ParseConversation extracts the new outbound message from an edited
// conversation buffer: only content after the trailing user header counts.
// ok is false when the user appended nothing (NoOp).
func ParseConversation(buffer string) (message string, ok bool) {
	lines := strings.Split(buffer, "\n")

	// Anchor on the exact editable-region header FormatConversation emits,
	// so markdown headings inside the new message survive. Generic header
	// lines are only a fallback for hand-built buffers.
	userHeader := turnHeaderPrefix + model.RoleUser.String()
	lastHeader := -1
	for i, line := range lines {
		if strings.TrimRight(line, " \t") == userHeader {
			lastHeader = i
		}
	}
	if lastHeader == -1 {
		for i, line := range lines {
			if strings.HasPrefix(line, turnHeaderPrefix) {
				lastHeader = i
			}
		}
	}
	if lastHeader == -1 {
		// No recognizable structure; treat the whole buffer as the message.
		message = strings.TrimSpace(buffer)
		return message, message != ""
	}

	message = strings.TrimSpace(strings.Join(lines[lastHeader+1:], "\n"))
	return message, message != ""
}

// =============================================================================
// LISTING MODE
// =============================================================================

const listingInstructions = `# Change 'nothing' to 'load' on exactly one line, then save and quit
# to resume that conversation. Leave every line unchanged to do nothing.`

// FormatListing renders one line per conversation, most recent first,
// prefixed with the default command token.
func FormatListing(entries []model.ConversationMeta) string {
	var sb strings.Builder
	sb.WriteString(listingInstructions)
	sb.WriteString("\n\n")

	for _, e := range entries {
		title := e.Title
		if title == "" {
			title = "untitled"
		}
		sb.WriteString(fmt.Sprintf("%s | %s | %s | %s (%d messages)\n",
			CommandNothing,
			e.ID,
			e.UpdatedAt.Format("2006-01-02 15:04"),
			title,
			e.MessageCount,
		))
	}
	return sb.String()
}

// ParseListing extracts the selected conversation id from an edited listing
// buffer. Zero changed lines is a NoOp (ok false); more than one line
// changed to the load token is ambiguous and rejected for re-edit rather
// than auto-resolved.
func ParseListing(buffer string) (id string, ok bool, err error) {
	var selected []string

	for _, line := range strings.Split(buffer, "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		fields := strings.SplitN(line, "|", 3)
		if len(fields) < 2 {
			continue
		}

		token := strings.ToLower(strings.TrimSpace(fields[0]))
		if token != CommandLoad {
			continue
		}
		selected = append(selected, strings.TrimSpace(fields[1]))
	}

	switch len(selected) {
	case 0:
		return "", false, nil
	case 1:
		return selected[0], true, nil
	default:
		return "", false, &AmbiguousSelectionError{IDs: selected}
	}
}
