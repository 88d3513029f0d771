// Package prompt assembles the system prompt handed to the dialogue backend
// at the start of each session: the device's persona from its profile plus
// the tail of its recent conversation history.
package prompt

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/soundbarrier/auricle/pkg/store"
)

// defaultHistoryLimit caps how many past exchanges are folded into the
// prompt when the caller does not set one.
const defaultHistoryLimit = 20

// Context holds the inputs a session prompt is rendered from.
type Context struct {
	// Profile is the device the session speaks through. May be nil.
	Profile *store.DeviceProfile

	// History is the tail of the device's past exchanges, oldest first.
	History []store.Exchange
}

// Source supplies the profile and history behind a prompt. Implemented by
// [store.Client].
type Source interface {
	DeviceProfile(ctx context.Context, deviceID string) (*store.DeviceProfile, error)
	History(ctx context.Context, sessionID string, limit int) ([]store.Exchange, error)
}

// Assembler fetches prompt inputs from a [Source].
type Assembler struct {
	src          Source
	historyLimit int
}

// NewAssembler creates an Assembler over src. historyLimit bounds how many
// recent exchanges are included; zero or negative selects the default.
func NewAssembler(src Source, historyLimit int) *Assembler {
	if historyLimit <= 0 {
		historyLimit = defaultHistoryLimit
	}
	return &Assembler{src: src, historyLimit: historyLimit}
}

// Assemble gathers the prompt inputs for one session. The device profile is
// required; history is best-effort, and a history fetch failure degrades to
// a context without it rather than failing the session.
func (a *Assembler) Assemble(ctx context.Context, deviceID, sessionID string) (*Context, error) {
	profile, err := a.src.DeviceProfile(ctx, deviceID)
	if err != nil {
		return nil, fmt.Errorf("prompt: fetch device profile: %w", err)
	}

	history, err := a.src.History(ctx, sessionID, a.historyLimit)
	if err != nil {
		slog.Warn("prompt: history fetch failed, continuing without it",
			"session_id", sessionID, "error", err)
		history = nil
	}

	return &Context{Profile: profile, History: history}, nil
}

// Render converts a [Context] into the system prompt string. A nil context
// yields the minimal fallback prompt.
//
// Render is pure: it performs no I/O and is safe for concurrent use. Empty
// sections are omitted entirely rather than rendering as empty headers.
func Render(c *Context) string {
	var sb strings.Builder

	var profile *store.DeviceProfile
	if c != nil {
		profile = c.Profile
	}

	persona := ""
	if profile != nil {
		persona = strings.TrimSpace(profile.Persona)
	}
	if persona != "" {
		sb.WriteString(persona)
	} else {
		sb.WriteString("You are a helpful voice assistant.")
	}

	if profile != nil && profile.Name != "" {
		fmt.Fprintf(&sb, "\n\nYou are speaking through the device %q.", profile.Name)
	}
	if profile != nil && profile.Language != "" {
		fmt.Fprintf(&sb, " Respond in %s.", profile.Language)
	}

	if c != nil {
		if section := renderHistory(c.History); section != "" {
			sb.WriteString("\n\n## Recent Conversation\n")
			sb.WriteString(section)
		}
	}

	return sb.String()
}

// renderHistory renders past exchanges as role-prefixed lines, oldest first.
// Exchanges with empty content are skipped.
func renderHistory(history []store.Exchange) string {
	var lines []string
	for _, ex := range history {
		content := strings.TrimSpace(ex.Content)
		if content == "" {
			continue
		}
		role := ex.Role
		if role == "" {
			role = "user"
		}
		lines = append(lines, fmt.Sprintf("%s: %s", role, content))
	}
	return strings.Join(lines, "\n")
}
