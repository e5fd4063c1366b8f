// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package bot

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/olegiv/eventbot/internal/auth"
	"github.com/olegiv/eventbot/internal/catalog"
	"github.com/olegiv/eventbot/internal/delivery"
	"github.com/olegiv/eventbot/internal/directory"
	"github.com/olegiv/eventbot/internal/gateway"
	"github.com/olegiv/eventbot/internal/menu"
	"github.com/olegiv/eventbot/internal/session"
	"github.com/olegiv/eventbot/internal/testutil"
	"github.com/olegiv/eventbot/internal/timegate"
)

const (
	testUser = int64(100)
	testChat = int64(500)
)

var testNow = time.Date(2025, 8, 23, 15, 0, 0, 0, time.UTC)

type harness struct {
	router *Router
	gw     *testutil.FakeGateway
	store  session.Store
}

func newHarness(t *testing.T, gate *timegate.Gate) *harness {
	t.Helper()
	return newHarnessWithStore(t, gate, session.NewMemoryStore())
}

func newHarnessWithStore(t *testing.T, gate *timegate.Gate, store session.Store) *harness {
	t.Helper()
	logger := testutil.TestLoggerSilent()

	dataDir := t.TempDir()
	testutil.WriteFile(t, dataDir, "agenda.pdf", "%PDF")
	testutil.WriteFile(t, dataDir, "docs/contactos_limpios_week.csv", "a,b")

	cat, err := catalog.Load("", dataDir)
	require.NoError(t, err)
	dir, err := directory.Load("")
	require.NoError(t, err)

	gw := &testutil.FakeGateway{}
	r := NewRouter(Deps{
		Gateway:   gw,
		Gate:      gate,
		Auth:      auth.New(dir, store, logger),
		Catalog:   cat,
		Renderer:  menu.NewRenderer(cat, "EventoWiFi", "clave123"),
		Deliverer: delivery.New(gw, logger),
		Logger:    logger,
	})
	r.now = func() time.Time { return testNow }
	return &harness{router: r, gw: gw, store: store}
}

func (h *harness) text(s string) {
	h.router.Handle(context.Background(), TextEvent{UserID: testUser, ChatID: testChat, Text: s})
}

func (h *harness) press(token string, messageID int) {
	h.router.Handle(context.Background(), CallbackEvent{UserID: testUser, ChatID: testChat, Token: token, MessageID: messageID})
}

func (h *harness) command(cmd string) {
	h.router.Handle(context.Background(), CommandEvent{UserID: testUser, ChatID: testChat, Command: cmd})
}

func (h *harness) login(t *testing.T) {
	t.Helper()
	h.text("1234567890")
	_, ok := h.router.Position(testUser)
	require.True(t, ok, "login failed")
	h.gw.Reset()
}

func TestRouter_AuthenticationSuccess(t *testing.T) {
	h := newHarness(t, nil)

	h.text("1234567890")

	calls := h.gw.Calls()
	require.Len(t, calls, 2)
	assert.Contains(t, calls[0].Text, "¡Hola, Alejandro! 😊")
	assert.Contains(t, calls[0].Text, "Bootcamp 2025")
	assert.Equal(t, menu.Shortcuts(), calls[0].Options.Shortcuts)
	assert.Equal(t, menu.MainMenuText, calls[1].Text)
	assert.Len(t, calls[1].Options.Inline, 6)

	pos, ok := h.router.Position(testUser)
	require.True(t, ok)
	assert.Equal(t, menu.Principal, pos)

	sess, err := h.store.Get(context.Background(), testUser)
	require.NoError(t, err)
	assert.Equal(t, "Alejandro Bedoya", sess.DisplayName)
}

func TestRouter_UnknownCredential(t *testing.T) {
	h := newHarness(t, nil)

	h.text("0000000000")

	calls := h.gw.Calls()
	require.Len(t, calls, 1)
	assert.Equal(t, msgNotRegistered, calls[0].Text)

	_, err := h.store.Get(context.Background(), testUser)
	assert.ErrorIs(t, err, session.ErrNotFound)
	_, ok := h.router.Position(testUser)
	assert.False(t, ok)
}

func TestRouter_EmptyCredential(t *testing.T) {
	h := newHarness(t, nil)

	h.text("   ")

	last := h.gw.Last()
	assert.Equal(t, msgEmptyInput, last.Text)
	assert.Equal(t, gateway.FormatMarkdown, last.Options.Format)
}

// No callback token can authenticate or move an unauthenticated user.
func TestRouter_CallbackRejectedWhileUnauthenticated(t *testing.T) {
	h := newHarness(t, nil)
	tokens := []string{
		"menu", "agenda", "material", "mat:jp", "videos:jp", "docs:jp", "links",
		"lnk:jp", "lgen", "conn", "loc", "broker", "video:jp:Video demo",
		"doc:jp:Hoja Excel (CSV)", "agendafile", "garbage",
	}

	for i, tok := range tokens {
		h.gw.Reset()
		h.press(tok, 40+i)

		calls := h.gw.Calls()
		require.Len(t, calls, 1, tok)
		assert.Equal(t, testutil.CallEditText, calls[0].Kind, tok)
		assert.Equal(t, 40+i, calls[0].Ref.MessageID, tok)
		assert.Equal(t, msgMustValidate, calls[0].Text, tok)

		_, ok := h.router.Position(testUser)
		assert.False(t, ok, tok)
		n, _ := h.store.Count(context.Background())
		assert.Zero(t, n, tok)
	}
}

func TestRouter_LockdownSuppressesEverything(t *testing.T) {
	launch := time.Date(2025, 8, 25, 0, 0, 0, 0, time.UTC)
	gate := timegate.New(launch, true, 2, "Te esperamos.")
	h := newHarness(t, gate)
	h.router.now = func() time.Time { return time.Date(2025, 8, 20, 22, 0, 0, 0, time.UTC) }

	events := []Event{
		CommandEvent{UserID: testUser, ChatID: testChat, Command: CommandStart},
		CommandEvent{UserID: testUser, ChatID: testChat, Command: CommandMenu},
		TextEvent{UserID: testUser, ChatID: testChat, Text: "1234567890"},
		CallbackEvent{UserID: testUser, ChatID: testChat, Token: "menu", MessageID: 1},
	}
	for _, ev := range events {
		h.gw.Reset()
		h.router.Handle(context.Background(), ev)

		calls := h.gw.Calls()
		require.Len(t, calls, 1)
		assert.Equal(t, testutil.CallSendText, calls[0].Kind)
		assert.Contains(t, calls[0].Text, "Faltan 3 días")
		assert.Contains(t, calls[0].Text, "Te esperamos.")
	}

	n, _ := h.store.Count(context.Background())
	assert.Zero(t, n, "no session may be created during lockdown")

	h.gw.Reset()
	h.command(CommandHelp)
	assert.Equal(t, msgHelp, h.gw.Last().Text, "help is not gated")
}

func TestRouter_UnlockedAfterWindow(t *testing.T) {
	launch := time.Date(2025, 8, 25, 0, 0, 0, 0, time.UTC)
	h := newHarness(t, timegate.New(launch, true, 2, ""))
	h.router.now = func() time.Time { return time.Date(2025, 8, 23, 0, 0, 0, 0, time.UTC) }

	h.text("1234567890")
	_, ok := h.router.Position(testUser)
	assert.True(t, ok)
}

func TestRouter_NavigationEditsOriginatingMessage(t *testing.T) {
	h := newHarness(t, nil)
	h.login(t)

	h.press("mat:jp", 77)

	calls := h.gw.Calls()
	require.Len(t, calls, 1)
	assert.Equal(t, testutil.CallEditText, calls[0].Kind)
	assert.Equal(t, gateway.MessageRef{ChatID: testChat, MessageID: 77}, calls[0].Ref)
	assert.Contains(t, calls[0].Text, "Juan Pablo")
	assert.Equal(t, gateway.FormatMarkdown, calls[0].Options.Format)

	pos, _ := h.router.Position(testUser)
	assert.Equal(t, menu.Target{Node: menu.NodeMaterialPresenter, PresenterID: "jp"}, pos)
}

// Following the back button from any screen reaches principal after
// exactly Depth presses.
func TestRouter_BackReachesPrincipal(t *testing.T) {
	h := newHarness(t, nil)
	h.login(t)

	starts := []string{"videos:jp", "docs:lizbeth", "lgen", "lnk:jp", "conn", "agenda", "mat:jp"}
	for _, start := range starts {
		h.press(start, 1)
		target, _ := h.router.Position(testUser)
		depth := target.Depth()

		presses := 0
		for {
			pos, _ := h.router.Position(testUser)
			if pos == menu.Principal {
				break
			}
			back := findBack(t, h.gw.CallsOf(testutil.CallEditText))
			h.gw.Reset()
			h.press(back, 1)
			presses++
			require.LessOrEqual(t, presses, depth, start)
		}
		assert.Equal(t, depth, presses, start)
		h.gw.Reset()
	}
}

func findBack(t *testing.T, edits []testutil.Call) string {
	t.Helper()
	require.NotEmpty(t, edits)
	kb := edits[len(edits)-1].Options.Inline
	require.NotEmpty(t, kb)
	last := kb[len(kb)-1]
	require.Len(t, last, 1)
	require.Equal(t, menu.LabelBack, last[0].Label)
	return last[0].Action
}

func TestRouter_UnknownTokenIgnored(t *testing.T) {
	h := newHarness(t, nil)
	h.login(t)
	h.press("material", 3)
	h.gw.Reset()

	for _, tok := range []string{"bogus", "mat:ghost", "videos:", "menu_agenda", ""} {
		h.press(tok, 3)
	}

	assert.Empty(t, h.gw.Calls())
	pos, _ := h.router.Position(testUser)
	assert.Equal(t, menu.Target{Node: menu.NodeMaterial}, pos)
}

func TestRouter_ShortcutLabels(t *testing.T) {
	h := newHarness(t, nil)
	h.login(t)

	h.text(menu.LabelMaterial)
	calls := h.gw.Calls()
	require.Len(t, calls, 1)
	assert.Equal(t, testutil.CallSendText, calls[0].Kind)
	assert.Contains(t, calls[0].Text, "Material de apoyo")
	pos, _ := h.router.Position(testUser)
	assert.Equal(t, menu.Target{Node: menu.NodeMaterial}, pos)

	h.gw.Reset()
	h.text(menu.LabelConnection)
	calls = h.gw.Calls()
	require.Len(t, calls, 2)
	assert.Contains(t, calls[0].Text, "EventoWiFi")
	assert.Equal(t, menu.MainMenuText, calls[1].Text)
	pos, _ = h.router.Position(testUser)
	assert.Equal(t, menu.Target{Node: menu.NodeConnection}, pos)
}

func TestRouter_CloseMenu(t *testing.T) {
	h := newHarness(t, nil)
	h.login(t)
	h.press("loc", 1)
	h.gw.Reset()

	h.text(menu.CloseLabel)

	last := h.gw.Last()
	assert.Equal(t, msgMenuHidden, last.Text)
	assert.True(t, last.Options.RemoveShortcuts)
	pos, _ := h.router.Position(testUser)
	assert.Equal(t, menu.Target{Node: menu.NodeLocation}, pos, "closing the keyboard keeps the position")
}

func TestRouter_FreeTextRedisplaysMenu(t *testing.T) {
	h := newHarness(t, nil)
	h.login(t)
	h.press("links", 1)
	h.gw.Reset()

	h.text("hola, ¿qué tal?")

	calls := h.gw.Calls()
	require.Len(t, calls, 1)
	assert.Equal(t, msgAuthenticated, calls[0].Text)
	assert.Len(t, calls[0].Options.Inline, 6)
	pos, _ := h.router.Position(testUser)
	assert.Equal(t, menu.Target{Node: menu.NodeLinks}, pos)
}

func TestRouter_LinkListFollowedByMainMenu(t *testing.T) {
	h := newHarness(t, nil)
	h.login(t)

	h.press("lgen", 9)

	calls := h.gw.Calls()
	require.Len(t, calls, 2)
	assert.Equal(t, testutil.CallEditText, calls[0].Kind)
	assert.Equal(t, "https://ttrading.co", calls[0].Options.Inline[0][0].URL)
	assert.Equal(t, menu.MainMenuText, calls[1].Text)
	pos, _ := h.router.Position(testUser)
	assert.Equal(t, menu.Target{Node: menu.NodeLinksGeneral}, pos)
}

func TestRouter_DeliverDocument(t *testing.T) {
	h := newHarness(t, nil)
	h.login(t)
	h.press("docs:jp", 5)
	h.gw.Reset()

	h.press("doc:jp:Hoja Excel (CSV)", 5)

	calls := h.gw.Calls()
	require.Len(t, calls, 5)
	assert.Equal(t, testutil.CallProgress, calls[0].Kind)
	assert.Equal(t, testutil.CallSendText, calls[1].Kind)
	assert.Equal(t, testutil.CallSendFile, calls[2].Kind)
	assert.Equal(t, "contactos_limpios_week.csv", calls[2].File.Name)
	assert.Equal(t, "Hoja Excel (CSV)", calls[2].File.Caption)
	assert.Equal(t, "✅ Archivo enviado.", calls[3].Text)
	assert.Equal(t, msgWhatNext, calls[4].Text)
	assert.Len(t, calls[4].Options.Inline, 6)

	pos, _ := h.router.Position(testUser)
	assert.Equal(t, menu.Target{Node: menu.NodeDocuments, PresenterID: "jp"}, pos, "delivery keeps the position")
}

func TestRouter_DeliverAgenda(t *testing.T) {
	h := newHarness(t, nil)
	h.login(t)

	h.press("agendafile", 5)

	files := h.gw.CallsOf(testutil.CallSendFile)
	require.Len(t, files, 1)
	assert.Equal(t, "agenda.pdf", files[0].File.Name)
	assert.Equal(t, msgWhatNext, h.gw.Last().Text)
}

func TestRouter_DeliverMissingFile(t *testing.T) {
	h := newHarness(t, nil)
	h.login(t)

	h.press("doc:jp:Documento Word", 5)

	calls := h.gw.Calls()
	require.Len(t, calls, 2)
	assert.Contains(t, calls[0].Text, "No encuentro el archivo: Documento Word")
	assert.Equal(t, msgWhatNext, calls[1].Text)
	assert.Empty(t, h.gw.CallsOf(testutil.CallProgress))
}

func TestRouter_DeliverUnknownItem(t *testing.T) {
	h := newHarness(t, nil)
	h.login(t)

	h.press("video:jp:No existe", 5)

	calls := h.gw.Calls()
	require.Len(t, calls, 2)
	assert.Equal(t, msgItemNotFound, calls[0].Text)
	assert.Equal(t, msgWhatNext, calls[1].Text)
}

func TestRouter_StartCommand(t *testing.T) {
	h := newHarness(t, nil)

	h.command(CommandStart)
	greeting := h.gw.Last()
	assert.Contains(t, greeting.Text, "Hola, este es el bot del Bootcamp 2025")
	assert.Equal(t, gateway.FormatMarkdown, greeting.Options.Format)
	_, ok := h.router.Position(testUser)
	assert.False(t, ok)

	h.login(t)
	h.press("broker", 1)
	h.gw.Reset()

	h.command(CommandStart)
	calls := h.gw.Calls()
	require.Len(t, calls, 2)
	assert.Contains(t, calls[0].Text, "Hola de nuevo, Alejandro")
	assert.Equal(t, menu.MainMenuText, calls[1].Text)
	pos, _ := h.router.Position(testUser)
	assert.Equal(t, menu.Principal, pos)
}

func TestRouter_GreetingsShareFirstName(t *testing.T) {
	h := newHarness(t, nil)

	h.text("alejandro.bedoya@gmail.com")
	welcome := h.gw.Calls()[0].Text
	h.gw.Reset()
	h.command(CommandStart)
	welcomeBack := h.gw.Calls()[0].Text

	first := session.FirstName("Alejandro Bedoya")
	assert.Contains(t, welcome, "¡Hola, "+first+"!")
	assert.Contains(t, welcomeBack, "Hola de nuevo, "+first+"!")
}

func TestRouter_MenuCommand(t *testing.T) {
	h := newHarness(t, nil)

	h.command(CommandMenu)
	assert.Equal(t, msgMustValidate, h.gw.Last().Text)

	h.login(t)
	h.command(CommandMenu)
	assert.Equal(t, menu.MainMenuText, h.gw.Last().Text)
}

func TestRouter_UnknownCommandIsText(t *testing.T) {
	h := newHarness(t, nil)

	h.command("foo")

	assert.Equal(t, msgNotRegistered, h.gw.Last().Text)
}

type brokenStore struct {
	session.Store
}

func (brokenStore) Get(context.Context, int64) (session.Session, error) {
	return session.Session{}, errors.New("connection refused")
}

func TestRouter_StoreFailureReported(t *testing.T) {
	h := newHarnessWithStore(t, nil, brokenStore{})

	h.text("1234567890")

	calls := h.gw.Calls()
	require.Len(t, calls, 1)
	assert.Equal(t, msgInternalError, calls[0].Text)
	_, ok := h.router.Position(testUser)
	assert.False(t, ok)
}

func TestRouter_EditFallback(t *testing.T) {
	h := newHarness(t, nil)
	h.login(t)

	h.gw.EditTextErr = &gateway.APIError{Code: 400, Message: "Bad Request: message to edit not found"}
	h.press("material", 1)
	calls := h.gw.Calls()
	require.Len(t, calls, 2)
	assert.Equal(t, testutil.CallEditText, calls[0].Kind)
	assert.Equal(t, testutil.CallSendText, calls[1].Kind)
	assert.Equal(t, calls[0].Text, calls[1].Text)

	h.gw.Reset()
	h.gw.EditTextErr = &gateway.APIError{Code: 400, Message: "Bad Request: message is not modified"}
	h.press("material", 1)
	assert.Len(t, h.gw.Calls(), 1)
}
