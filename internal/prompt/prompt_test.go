package prompt_test

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/soundbarrier/auricle/internal/prompt"
	"github.com/soundbarrier/auricle/pkg/store"
)

type fakeSource struct {
	profile    *store.DeviceProfile
	profileErr error
	history    []store.Exchange
	historyErr error
	gotLimit   int
}

func (f *fakeSource) DeviceProfile(_ context.Context, _ string) (*store.DeviceProfile, error) {
	return f.profile, f.profileErr
}

func (f *fakeSource) History(_ context.Context, _ string, limit int) ([]store.Exchange, error) {
	f.gotLimit = limit
	return f.history, f.historyErr
}

func TestRender(t *testing.T) {
	tests := []struct {
		name     string
		ctx      *prompt.Context
		contains []string
		excludes []string
	}{
		{
			name:     "nil context falls back to default persona",
			contains: []string{"You are a helpful voice assistant."},
			excludes: []string{"## Recent Conversation"},
		},
		{
			name: "persona and device name",
			ctx: &prompt.Context{Profile: &store.DeviceProfile{
				Name:    "Kitchen Speaker",
				Persona: "You are a cheerful cooking companion.",
			}},
			contains: []string{
				"You are a cheerful cooking companion.",
				`device "Kitchen Speaker"`,
			},
			excludes: []string{"You are a helpful voice assistant."},
		},
		{
			name: "language hint",
			ctx: &prompt.Context{Profile: &store.DeviceProfile{
				Persona:  "Persona.",
				Language: "German",
			}},
			contains: []string{"Respond in German."},
		},
		{
			name: "history section with roles",
			ctx: &prompt.Context{History: []store.Exchange{
				{Role: "user", Content: "what time is it"},
				{Role: "assistant", Content: "It is noon."},
				{Role: "user", Content: "   "},
			}},
			contains: []string{
				"## Recent Conversation",
				"user: what time is it",
				"assistant: It is noon.",
			},
		},
		{
			name:     "missing role defaults to user",
			ctx:      &prompt.Context{History: []store.Exchange{{Content: "hello"}}},
			contains: []string{"user: hello"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := prompt.Render(tt.ctx)
			for _, want := range tt.contains {
				if !strings.Contains(got, want) {
					t.Errorf("prompt missing %q:\n%s", want, got)
				}
			}
			for _, unwanted := range tt.excludes {
				if strings.Contains(got, unwanted) {
					t.Errorf("prompt should not contain %q:\n%s", unwanted, got)
				}
			}
		})
	}
}

func TestAssembler_ProfileErrorFails(t *testing.T) {
	src := &fakeSource{profileErr: errors.New("store down")}
	a := prompt.NewAssembler(src, 0)

	if _, err := a.Assemble(context.Background(), "dev-1", "sess-1"); err == nil {
		t.Fatal("Assemble succeeded despite profile fetch failure")
	}
}

func TestAssembler_HistoryErrorDegrades(t *testing.T) {
	src := &fakeSource{
		profile:    &store.DeviceProfile{Persona: "Persona."},
		historyErr: errors.New("store down"),
	}
	a := prompt.NewAssembler(src, 5)

	pc, err := a.Assemble(context.Background(), "dev-1", "sess-1")
	if err != nil {
		t.Fatalf("Assemble: %v", err)
	}
	if pc.History != nil {
		t.Errorf("History = %v, want nil after fetch failure", pc.History)
	}
	if got := prompt.Render(pc); !strings.Contains(got, "Persona.") {
		t.Errorf("prompt missing persona:\n%s", got)
	}
	if src.gotLimit != 5 {
		t.Errorf("history limit = %d, want 5", src.gotLimit)
	}
}
