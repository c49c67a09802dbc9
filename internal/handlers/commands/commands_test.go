package commands

import (
	"context"
	"io"
	"log/slog"
	"path/filepath"
	"sync"
	"testing"
	"time"

	dg "github.com/bwmarrin/discordgo"
	"github.com/glotchimo/obras/internal/auth"
	"github.com/glotchimo/obras/internal/flow"
	"github.com/glotchimo/obras/internal/handlers"
	"github.com/glotchimo/obras/internal/help"
	md "github.com/glotchimo/obras/internal/models"
	rp "github.com/glotchimo/obras/internal/response"
	"github.com/glotchimo/obras/internal/store"
	"github.com/glotchimo/obras/internal/utils"
	"github.com/stretchr/testify/require"
)

const (
	guildID   = "guild-1"
	channelID = "chan-1"
)

var staff = auth.Actor{ID: "user-1", Username: "staff", Administrator: true}

var sessionKey = flow.Key{GuildID: guildID, ChannelID: channelID, UserID: staff.ID}

func discard() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type sent struct {
	ChannelID string
	Opts      rp.MessageOptions
}

type fakeTransport struct {
	mu       sync.Mutex
	sent     []sent
	channels map[string]*dg.Channel
	roles    map[string]*dg.Role
	out      chan sent
}

func (f *fakeTransport) Send(ctx context.Context, channelID string, opts rp.MessageOptions) error {
	f.mu.Lock()
	f.sent = append(f.sent, sent{channelID, opts})
	f.mu.Unlock()
	f.out <- sent{channelID, opts}
	return nil
}

func (f *fakeTransport) Fail(ctx context.Context, channelID string, failure utils.Failure) error {
	return f.Send(ctx, channelID, rp.MessageOptions{Content: failure.Message})
}

func (f *fakeTransport) Channel(guildID, channelID string) (*dg.Channel, bool) {
	ch, ok := f.channels[channelID]
	return ch, ok
}

func (f *fakeTransport) Role(guildID, roleID string) (*dg.Role, bool) {
	role, ok := f.roles[roleID]
	return role, ok
}

func (f *fakeTransport) RoleNamed(guildID, name string) (*dg.Role, bool) {
	for _, role := range f.roles {
		if role.Name == name {
			return role, true
		}
	}
	return nil, false
}

func (f *fakeTransport) all() []sent {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]sent(nil), f.sent...)
}

func (f *fakeTransport) last() sent {
	all := f.all()
	if len(all) == 0 {
		return sent{}
	}
	return all[len(all)-1]
}

type harness struct {
	t     *testing.T
	store *store.Store
	flows *flow.Engine
	tr    *fakeTransport
	help  *help.Catalog
}

func newHarness(t *testing.T) *harness {
	return newHarnessWithTimeout(t, time.Minute)
}

func newHarnessWithTimeout(t *testing.T, timeout time.Duration) *harness {
	t.Helper()

	fb, err := store.NewFileBackend(discard(), filepath.Join(t.TempDir(), "bot_data.json"))
	require.NoError(t, err)

	catalog, err := help.Load()
	require.NoError(t, err)

	flows := flow.NewEngine(discard(), timeout, "!")
	t.Cleanup(flows.Stop)

	return &harness{
		t:     t,
		store: store.NewStore(discard(), fb),
		flows: flows,
		tr: &fakeTransport{
			channels: map[string]*dg.Channel{channelID: {ID: channelID, GuildID: guildID}},
			roles:    map[string]*dg.Role{},
			out:      make(chan sent, 64),
		},
		help: catalog,
	}
}

func (h *harness) deps(content string) handlers.Dependencies {
	h.t.Helper()

	g, err := h.store.GetOrCreate(context.Background(), guildID)
	require.NoError(h.t, err)

	inv := handlers.NewInvocation(content)
	inv.GuildID = guildID
	inv.ChannelID = channelID
	inv.MessageID = "message-1"
	inv.Actor = staff

	return handlers.Dependencies{
		Store:      h.store,
		Flows:      h.flows,
		Transport:  h.tr,
		Logger:     discard(),
		Help:       h.help,
		Prefix:     "!",
		Guild:      g,
		Invocation: inv,
	}
}

func (h *harness) run(handler handlers.Handler, content string) error {
	return handler.Handle(context.Background(), h.deps(content))
}

// start runs a flow command in the background.
func (h *harness) start(handler handlers.Handler, content string) chan error {
	dep := h.deps(content)
	done := make(chan error, 1)
	go func() { done <- handler.Handle(context.Background(), dep) }()
	return done
}

// next returns the next message the handler sent.
func (h *harness) next() sent {
	h.t.Helper()
	select {
	case s := <-h.tr.out:
		return s
	case <-time.After(2 * time.Second):
		h.t.Fatal("handler sent nothing")
		return sent{}
	}
}

// answer waits for the next prompt and replies to it, returning the prompt.
func (h *harness) answer(content string, attachments ...flow.Attachment) string {
	h.t.Helper()
	prompt := h.next()
	require.True(h.t, h.flows.Deliver(sessionKey, flow.Reply{Content: content, Attachments: attachments}))
	return prompt.Opts.Content
}

func (h *harness) wait(done chan error) error {
	h.t.Helper()
	select {
	case err := <-done:
		return err
	case <-time.After(2 * time.Second):
		h.t.Fatal("handler did not finish")
		return nil
	}
}

func (h *harness) guild() *md.Guild {
	h.t.Helper()
	g, err := h.store.GetOrCreate(context.Background(), guildID)
	require.NoError(h.t, err)
	return g
}

func (h *harness) update(fn func(*md.Guild)) {
	h.t.Helper()
	_, err := h.store.Update(context.Background(), guildID, func(g *md.Guild) error {
		fn(g)
		return nil
	})
	require.NoError(h.t, err)
}

func dragonSaga() md.Work {
	return md.Work{
		Category:         md.CategoryBL,
		Synopsis:         "A hero's journey",
		Link:             "http://example.com/dragon",
		Acknowledgements: DefaultAcknowledgements,
	}
}
