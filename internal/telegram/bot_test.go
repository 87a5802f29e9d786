package telegram

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hunterwarburton/tokenlens/internal/auth"
	"github.com/hunterwarburton/tokenlens/internal/tools"
)

type fakeSender struct {
	mu       sync.Mutex
	messages []*bot.SendMessageParams
	photos   []*bot.SendPhotoParams
	photoErr error
}

func (f *fakeSender) SendMessage(_ context.Context, p *bot.SendMessageParams) (*models.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.messages = append(f.messages, p)
	return &models.Message{}, nil
}

func (f *fakeSender) SendPhoto(_ context.Context, p *bot.SendPhotoParams) (*models.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.photos = append(f.photos, p)
	return &models.Message{}, f.photoErr
}

func (f *fakeSender) SendChatAction(context.Context, *bot.SendChatActionParams) (bool, error) {
	return true, nil
}

type fakeRouter struct {
	result *tools.Result
	err    error
	got    []tools.Command
}

func (f *fakeRouter) ExecuteCommand(_ context.Context, _ int64, cmd tools.Command) (*tools.Result, error) {
	f.got = append(f.got, cmd)
	return f.result, f.err
}

func newTestBot(router CommandRouter, allowed string) (*Bot, *fakeSender) {
	s := &fakeSender{}
	return &Bot{api: s, router: router, policyService: auth.NewPolicyService("1", allowed)}, s
}

func update(userID int64, text string) *models.Update {
	return &models.Update{Message: &models.Message{
		Text: text,
		Chat: models.Chat{ID: 500},
		From: &models.User{ID: userID},
	}}
}

func TestTokenCommandSendsLogo(t *testing.T) {
	router := &fakeRouter{result: &tools.Result{Text: "BONK (Bonk)", PhotoURL: "https://img/bonk.png"}}
	b, s := newTestBot(router, "")

	b.handleUpdate(context.Background(), nil, update(2, "/token@tokenlens_bot bonk"))

	require.Len(t, router.got, 1)
	assert.Equal(t, tools.Command{Name: "token", Args: []string{"bonk"}}, router.got[0])
	require.Len(t, s.photos, 1)
	assert.Equal(t, "BONK (Bonk)", s.photos[0].Caption)
	photo, ok := s.photos[0].Photo.(*models.InputFileString)
	require.True(t, ok)
	assert.Equal(t, "https://img/bonk.png", photo.Data)
	assert.Empty(t, s.messages)
}

func TestPhotoFailureFallsBackToText(t *testing.T) {
	router := &fakeRouter{result: &tools.Result{Text: "BONK (Bonk)", PhotoURL: "https://img/broken.svg"}}
	b, s := newTestBot(router, "")
	s.photoErr = errors.New("wrong file identifier")

	b.handleUpdate(context.Background(), nil, update(2, "/token bonk"))

	require.Len(t, s.messages, 1)
	assert.Equal(t, "BONK (Bonk)", s.messages[0].Text)
}

func TestHelpAndRejections(t *testing.T) {
	router := &fakeRouter{err: errors.New("unused")}
	b, s := newTestBot(router, "7")

	b.handleUpdate(context.Background(), nil, update(7, "/help"))
	b.handleUpdate(context.Background(), nil, update(99, "/token abc"))
	b.handleUpdate(context.Background(), nil, update(7, "hello there"))

	assert.Empty(t, router.got)
	require.Len(t, s.messages, 2)
	assert.Contains(t, s.messages[0].Text, "/holdings")
	assert.Contains(t, s.messages[1].Text, "not allowed")
}

func TestRouterErrors(t *testing.T) {
	router := &fakeRouter{err: tools.ErrNotAllowed}
	b, s := newTestBot(router, "")

	b.handleUpdate(context.Background(), nil, update(2, "/clearcache"))
	router.err = errors.New("usage: token <address>")
	b.handleUpdate(context.Background(), nil, update(2, "/token"))

	require.Len(t, s.messages, 2)
	assert.Equal(t, "That command is for admins only.", s.messages[0].Text)
	assert.True(t, strings.HasPrefix(s.messages[1].Text, "usage: token <address>"))
}

func TestSplitMessage(t *testing.T) {
	assert.Equal(t, []string{"short"}, splitMessage("short", 10))
	assert.Equal(t, []string{"aaaa\n", "bbbb\n", "cc"}, splitMessage("aaaa\nbbbb\ncc", 6))
	assert.Equal(t, []string{"xxxx", "xx"}, splitMessage("xxxxxx", 4))
}
