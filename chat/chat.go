package chat

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	twitch "github.com/gempir/go-twitch-irc/v4"

	"github.com/onnwee/linkline/engine"
)

// Client wraps the Twitch IRC client as an engine.Transport.
type Client struct {
	irc      *twitch.Client
	botLogin string

	mu          sync.Mutex
	joinWaiters map[string]chan struct{}
	partWaiters map[string]chan struct{}

	connected chan struct{}
	connOnce  sync.Once
}

// New builds a client. With empty credentials the connection is anonymous
// (read-only). Every inbound chat message is translated and passed to
// deliver.
func New(botUsername, oauthToken string, deliver func(engine.Message)) *Client {
	var irc *twitch.Client
	login := strings.ToLower(strings.TrimSpace(botUsername))
	if login == "" || oauthToken == "" {
		irc = twitch.NewAnonymousClient()
		login = ""
	} else {
		irc = twitch.NewClient(login, oauthToken)
	}

	c := &Client{
		irc:         irc,
		botLogin:    login,
		joinWaiters: make(map[string]chan struct{}),
		partWaiters: make(map[string]chan struct{}),
		connected:   make(chan struct{}),
	}

	irc.OnConnect(func() {
		c.connOnce.Do(func() { close(c.connected) })
		slog.Info("twitch chat connected", slog.String("login", login))
	})
	irc.OnSelfJoinMessage(func(m twitch.UserJoinMessage) {
		c.signal(c.joinWaiters, engine.NormalizeChannel(m.Channel))
	})
	irc.OnSelfPartMessage(func(m twitch.UserPartMessage) {
		c.signal(c.partWaiters, engine.NormalizeChannel(m.Channel))
	})
	irc.OnPrivateMessage(func(m twitch.PrivateMessage) {
		deliver(translate(m, login))
	})

	return c
}

// Connect starts the IRC connection and waits for the server greeting. The
// underlying read loop keeps running after Connect returns; cancel via
// Disconnect.
func (c *Client) Connect(ctx context.Context) error {
	go func() {
		if err := c.irc.Connect(); err != nil && !errors.Is(err, twitch.ErrClientDisconnected) {
			slog.Error("twitch chat connection closed", slog.Any("err", err))
		}
	}()
	select {
	case <-c.connected:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("connect: %w", ctx.Err())
	}
}

// Join joins a channel and waits for the server's JOIN echo.
func (c *Client) Join(ctx context.Context, channel string) error {
	channel = engine.NormalizeChannel(channel)
	done := c.waiter(c.joinWaiters, channel)
	c.irc.Join(channel)
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("join %s: %w", channel, ctx.Err())
	}
}

// Part leaves a channel and waits for the server's PART echo.
func (c *Client) Part(ctx context.Context, channel string) error {
	channel = engine.NormalizeChannel(channel)
	done := c.waiter(c.partWaiters, channel)
	c.irc.Depart(channel)
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("part %s: %w", channel, ctx.Err())
	}
}

// Disconnect closes the IRC connection.
func (c *Client) Disconnect() error {
	return c.irc.Disconnect()
}

// waiter returns the confirmation channel for the given channel name,
// creating one if needed. Repeated requests share a single channel.
func (c *Client) waiter(m map[string]chan struct{}, channel string) <-chan struct{} {
	c.mu.Lock()
	defer c.mu.Unlock()
	ch, ok := m[channel]
	if !ok {
		ch = make(chan struct{})
		m[channel] = ch
	}
	return ch
}

func (c *Client) signal(m map[string]chan struct{}, channel string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if ch, ok := m[channel]; ok {
		close(ch)
		delete(m, channel)
	}
}

// translate converts an IRC message into the engine's transport-neutral form.
func translate(m twitch.PrivateMessage, self string) engine.Message {
	return engine.Message{
		Channel: engine.NormalizeChannel(m.Channel),
		User:    m.User.DisplayName,
		Login:   m.User.Name,
		Text:    m.Message,
		IsSelf:  self != "" && strings.EqualFold(m.User.Name, self),
		Badges:  m.User.Badges,
		ModTag:  m.Tags["mod"] == "1",
	}
}
