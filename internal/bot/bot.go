package bot

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"runtime"
	"strings"
	"sync"
	"sync/atomic"
	"time"
	"unicode"

	dg "github.com/bwmarrin/discordgo"
	"github.com/glotchimo/obras/internal/auth"
	"github.com/glotchimo/obras/internal/cache"
	"github.com/glotchimo/obras/internal/flow"
	"github.com/glotchimo/obras/internal/handlers"
	"github.com/glotchimo/obras/internal/handlers/commands"
	"github.com/glotchimo/obras/internal/help"
	"github.com/glotchimo/obras/internal/response"
	"github.com/glotchimo/obras/internal/store"
	"github.com/glotchimo/obras/internal/utils"
	"github.com/graxinc/errutil"
)

var lookup map[string]handlers.Handler = map[string]handlers.Handler{
	"addrol":         &commands.AddRole{},
	"delrol":         &commands.DeleteRole{},
	"verroles":       &commands.ListRoles{},
	"setcanal":       &commands.SetChannel{},
	"vercanales":     &commands.ListChannels{},
	"setdonacion":    &commands.SetDonation{},
	"agregarobra":    &commands.AddWork{},
	"verobras":       &commands.ListWorks{},
	"verobra":        &commands.ShowWork{},
	"setalias":       &commands.SetAlias{},
	"editalias":      &commands.EditAlias{},
	"listalias":      &commands.ListAliases{},
	"editarlink":     &commands.EditLink{},
	"actualizacion":  &commands.Announce{},
	"comandos":       &commands.Help{Page: "comandos", Access: handlers.AccessPublic},
	"comandos_staff": &commands.Help{Page: "comandos_staff", Access: handlers.AccessStaff},
}

type EventType int

const (
	EventTypeGuildUpdate EventType = iota
	EventTypeMessage
)

type GuildEvent struct {
	Type EventType

	GuildUpdate *dg.GuildUpdate
	Message     *dg.MessageCreate
}

type GuildContext struct {
	Context context.Context
	Cancel  context.CancelFunc
	Events  chan GuildEvent
}

type Options struct {
	Debug       bool
	Token       string
	Intents     int
	Prefix      string
	DataFile    string
	DatabaseURL string
	CacheURL    string
	FlowTimeout time.Duration
	ShardID     int
	ShardCount  int
}

type Bot struct {
	mu     sync.RWMutex
	ctx    context.Context
	cancel context.CancelFunc

	s *dg.Session
	d *store.Store
	l *slog.Logger
	r *response.Responder
	f *flow.Engine
	h *help.Catalog

	prefix  string
	handled atomic.Int64

	events   chan GuildEvent
	contexts map[string]*GuildContext
}

func NewBot(opts Options) (*Bot, error) {
	b := Bot{
		prefix:   opts.Prefix,
		events:   make(chan GuildEvent),
		contexts: make(map[string]*GuildContext),
	}

	ctx, cancel := context.WithCancel(context.Background())
	b.ctx = ctx
	b.cancel = cancel

	if opts.Debug {
		b.l = slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug}))
	} else {
		b.l = slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{AddSource: true}))
	}

	backend, err := openBackend(b.l, opts)
	if err != nil {
		return nil, errutil.With(err)
	}
	b.d = store.NewStore(b.l, backend)

	catalog, err := help.Load()
	if err != nil {
		return nil, errutil.With(err)
	}
	b.h = catalog

	b.f = flow.NewEngine(b.l, opts.FlowTimeout, opts.Prefix)

	session, err := dg.New("Bot " + opts.Token)
	if err != nil {
		return nil, errutil.With(err)
	}
	b.s = session

	b.s.Identify.Intents = dg.Intent(opts.Intents)

	b.s.ShardID = opts.ShardID
	b.s.ShardCount = opts.ShardCount
	b.l.Info("sharding enabled", "shard_id", opts.ShardID, "shard_count", opts.ShardCount)

	b.r = response.NewSessionResponder(b.s, b.l)

	b.s.AddHandler(func(s *dg.Session, r *dg.Ready) {
		b.l.Info("bot connected to gateway",
			"bot", fmt.Sprintf("%s#%s", r.User.Username, r.User.Discriminator),
			"guilds", len(r.Guilds),
			"version", utils.GetCommit(),
			"prefix", b.prefix,
			"shard_id", opts.ShardID,
			"shard_count", opts.ShardCount,
		)
	})

	b.s.AddHandler(func(s *dg.Session, g *dg.GuildCreate) { b.register(g.Guild) })
	b.s.AddHandler(func(s *dg.Session, g *dg.GuildDelete) { b.remove(g.Guild) })

	b.s.AddHandler(func(s *dg.Session, g *dg.GuildUpdate) {
		select {
		case b.events <- GuildEvent{Type: EventTypeGuildUpdate, GuildUpdate: g}:
		case <-b.ctx.Done():
		}
	})
	b.s.AddHandler(func(s *dg.Session, m *dg.MessageCreate) {
		if m.Author == nil || m.Author.Bot || m.GuildID == "" {
			return
		}
		b.enqueue(m.GuildID, GuildEvent{Type: EventTypeMessage, Message: m})
	})

	if err := b.s.Open(); err != nil {
		b.d.Close()
		b.f.Stop()
		return nil, errutil.With(err)
	}

	go b.route()
	go b.status()

	return &b, nil
}

// openBackend picks the file document unless a database is configured, and
// puts the cache in front when Redis is configured.
func openBackend(l *slog.Logger, opts Options) (store.Backend, error) {
	var backend store.Backend
	var err error

	if opts.DatabaseURL != "" {
		backend, err = store.NewSQLBackend(l, opts.DatabaseURL)
	} else {
		backend, err = store.NewFileBackend(l, opts.DataFile)
	}
	if err != nil {
		return nil, errutil.With(err)
	}

	if opts.CacheURL == "" {
		return backend, nil
	}

	c, err := cache.NewCache(opts.CacheURL, l, backend)
	if err != nil {
		backend.Close()
		return nil, errutil.With(err)
	}

	return c, nil
}

func (b *Bot) Close() {
	defer b.s.Close()
	defer b.d.Close()
	defer b.f.Stop()

	b.cancel()
}

func (b *Bot) route() {
	for {
		select {
		case <-b.ctx.Done():
			return
		case e := <-b.events:
			switch e.Type {
			case EventTypeGuildUpdate:
				b.register(e.GuildUpdate.Guild)
			}
		}
	}
}

func (b *Bot) status() {
	ticker := time.NewTicker(10 * time.Minute)
	defer ticker.Stop()

	s := 0
	for {
		select {
		case <-b.ctx.Done():
			return
		case <-ticker.C:
			var msg string
			switch s {
			case 0:
				count, err := b.d.Count(b.ctx)
				if err != nil {
					b.l.Error("error counting known guilds", "error", err)
					continue
				}
				msg = fmt.Sprintf("Ayudando a %d servidores", count)

			case 1:
				msg = fmt.Sprintf("%d comandos atendidos", b.handled.Load())
			}

			if err := b.s.UpdateStatusComplex(dg.UpdateStatusData{
				Status: string(dg.StatusOnline),
				Activities: []*dg.Activity{
					{
						Name:  b.s.State.User.Username,
						Type:  dg.ActivityTypeCustom,
						State: msg,
					},
				},
			}); err != nil {
				b.l.Error("error setting bot status", "error", err)
			}

			s = (s + 1) % 2
		}
	}
}

// ensure returns the guild's context, creating it when missing. created
// reports whether this call made it.
func (b *Bot) ensure(guildID string) (guildCtx *GuildContext, created bool) {
	b.mu.RLock()
	if guildCtx, exists := b.contexts[guildID]; exists {
		b.mu.RUnlock()
		return guildCtx, false
	}
	b.mu.RUnlock()

	b.mu.Lock()
	defer b.mu.Unlock()

	if guildCtx, exists := b.contexts[guildID]; exists {
		return guildCtx, false
	}

	ctx, cancel := context.WithCancel(b.ctx)
	guildCtx = &GuildContext{
		Context: ctx,
		Cancel:  cancel,
		Events:  make(chan GuildEvent, 1000),
	}

	b.contexts[guildID] = guildCtx
	return guildCtx, true
}

func (b *Bot) dispatch(guildID string, gc *GuildContext) {
	defer func() {
		if r := recover(); r != nil {
			stack := make([]byte, 4096)
			stack = stack[:runtime.Stack(stack, false)]
			b.l.Error("panic recovered", "guild", guildID, "recovered", r, "stack", stack)
			go b.dispatch(guildID, gc)
		}
	}()

	for {
		select {
		case <-gc.Context.Done():
			return
		case e := <-gc.Events:
			if e.Type != EventTypeMessage || e.Message == nil {
				continue
			}
			m := e.Message

			key := flow.Key{GuildID: guildID, ChannelID: m.ChannelID, UserID: m.Author.ID}
			if b.f.Deliver(key, reply(m)) {
				continue
			}

			name, rest, ok := parse(b.prefix, m.Content)
			if !ok {
				continue
			}

			h, ok := lookup[name]
			if !ok {
				b.l.Debug("unknown command", "guild", guildID, "command", name)
				continue
			}

			b.l.Info("command issued", "guild", guildID, "user", m.Author.Username, "called", m.Content)

			go b.handle(gc, h, m, rest)
		}
	}
}

func (b *Bot) handle(gc *GuildContext, h handlers.Handler, m *dg.MessageCreate, rest string) {
	cmd := h.Metadata()

	defer func() {
		if r := recover(); r != nil {
			stack := make([]byte, 4096)
			stack = stack[:runtime.Stack(stack, false)]
			b.l.Error("panic recovered", "command", cmd.Name, "guild", m.GuildID, "recovered", r, "stack", stack)
		}
	}()

	ctx := gc.Context

	g, err := b.d.GetOrCreate(ctx, m.GuildID)
	if err != nil {
		b.l.Error("error getting guild", "guild", m.GuildID, "error", err)
		b.r.Fail(ctx, m.ChannelID, utils.Failure{
			Type:    utils.ErrInternal,
			Message: "No se pudo cargar la configuración del servidor.",
			Data:    map[string]any{"error": err, "guild": m.GuildID},
		})
		return
	}

	actor := b.actor(m)
	if !handlers.Permitted(cmd, g, actor) {
		b.l.Info("command denied", "command", cmd.Name, "guild", m.GuildID, "user", actor.ID)
		b.r.Fail(ctx, m.ChannelID, utils.NotAllowed())
		return
	}

	inv := handlers.NewInvocation(rest)
	inv.GuildID = m.GuildID
	inv.ChannelID = m.ChannelID
	inv.MessageID = m.ID
	inv.Actor = actor
	inv.RoleMentions = m.MentionRoles

	err = h.Handle(ctx, handlers.Dependencies{
		Store:      b.d,
		Flows:      b.f,
		Transport:  b.r,
		Logger:     b.l,
		Help:       b.h,
		Prefix:     b.prefix,
		Guild:      g,
		Invocation: inv,
	})
	b.handled.Add(1)
	if err == nil {
		return
	}

	var f utils.Failure
	if errors.As(err, &f) {
		b.r.Fail(ctx, m.ChannelID, f)
		return
	}

	b.l.Error("error handling command", "error", err, "command", cmd.Name, "guild", m.GuildID)
	b.r.Fail(ctx, m.ChannelID, utils.Failure{
		Type:    utils.ErrInternal,
		Message: "No se pudo ejecutar el comando.",
		Data:    map[string]any{"error": err},
	})
}

func (b *Bot) actor(m *dg.MessageCreate) auth.Actor {
	a := auth.Actor{ID: m.Author.ID, Username: m.Author.Username}
	if m.Member != nil {
		a.RoleIDs = m.Member.Roles
	}

	perms, err := b.s.UserChannelPermissions(m.Author.ID, m.ChannelID)
	if err != nil {
		b.l.Warn("error resolving permissions", "guild", m.GuildID, "user", m.Author.ID, "error", err)
		return a
	}
	a.Administrator = perms&dg.PermissionAdministrator != 0

	return a
}

// parse splits a prefixed message into the command name and the rest of the
// line.
func parse(prefix, content string) (name, rest string, ok bool) {
	if prefix == "" || !strings.HasPrefix(content, prefix) {
		return "", "", false
	}

	content = content[len(prefix):]
	end := strings.IndexFunc(content, unicode.IsSpace)
	if end < 0 {
		return content, "", content != ""
	}

	return content[:end], content[end:], end > 0
}

func reply(m *dg.MessageCreate) flow.Reply {
	r := flow.Reply{Content: m.Content}
	for _, a := range m.Attachments {
		r.Attachments = append(r.Attachments, flow.Attachment{
			URL:         a.URL,
			Filename:    a.Filename,
			ContentType: a.ContentType,
		})
	}
	return r
}

func (b *Bot) enqueue(guildID string, event GuildEvent) {
	b.mu.RLock()
	ctx, ok := b.contexts[guildID]
	b.mu.RUnlock()

	if !ok {
		b.l.Warn("attempted to enqueue event for unknown guild", "guild", guildID)
		return
	}

	select {
	case ctx.Events <- event:
	case <-ctx.Context.Done():
		b.l.Debug("dropped event for cancelled guild context", "guild", guildID)
	default:
		b.l.Warn("event channel full, dropping event", "guild", guildID)
	}
}

// register starts the guild's event loop and materializes its configuration.
// It runs on GuildCreate and GuildUpdate, so a guild whose loop was removed
// while it was unavailable gets one back. A known guild keeps its running
// loop so open flows survive gateway reconnects.
func (b *Bot) register(g *dg.Guild) {
	gc, created := b.ensure(g.ID)

	if _, err := b.d.GetOrCreate(b.ctx, g.ID); err != nil {
		b.l.Error("error storing guild", "guild", g.ID, "error", err)
	}

	if !created {
		b.l.Debug("guild already registered", "id", g.ID, "name", g.Name)
		return
	}

	b.l.Info("registered guild", "id", g.ID, "name", g.Name)

	go b.dispatch(g.ID, gc)
	go b.monitor(g.ID, gc)
}

// remove cancels the guild's context, which aborts its open flows.
func (b *Bot) remove(g *dg.Guild) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if guildCtx, ok := b.contexts[g.ID]; ok {
		guildCtx.Cancel()
		delete(b.contexts, g.ID)
	}

	b.l.Info("removed guild", "id", g.ID, "unavailable", g.Unavailable)
}

func (b *Bot) monitor(guildID string, ctx *GuildContext) {
	ticker := time.NewTicker(30 * time.Second)
	defer ticker.Stop()

	var lastWarningTime time.Time
	var consecutiveWarnings int

	for {
		select {
		case <-ctx.Context.Done():
			return
		case <-ticker.C:
			currentLen := len(ctx.Events)
			capacity := cap(ctx.Events)
			fillPercentage := float64(currentLen) / float64(capacity) * 100

			if fillPercentage > 60 {
				now := time.Now()
				if now.Sub(lastWarningTime) > 5*time.Minute {
					consecutiveWarnings = 0
					lastWarningTime = now
				}

				consecutiveWarnings++

				b.l.Warn("event channel filling up",
					"guild", guildID,
					"size", currentLen,
					"capacity", capacity,
					"percentage", fmt.Sprintf("%.1f%%", fillPercentage),
					"consecutive_warnings", consecutiveWarnings,
					"open_flows", b.f.Len())

				if consecutiveWarnings >= 3 {
					b.l.Error("potential stuck handler detected; event channel consistently full",
						"guild", guildID,
						"size", currentLen,
						"capacity", capacity,
						"warnings", consecutiveWarnings)
				}
			}
		}
	}
}
