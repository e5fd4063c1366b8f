// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package bot

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/olegiv/eventbot/internal/auth"
	"github.com/olegiv/eventbot/internal/catalog"
	"github.com/olegiv/eventbot/internal/delivery"
	"github.com/olegiv/eventbot/internal/gateway"
	"github.com/olegiv/eventbot/internal/menu"
	"github.com/olegiv/eventbot/internal/session"
	"github.com/olegiv/eventbot/internal/timegate"
)

// User-facing messages.
const (
	msgGreeting = "👋 Hola, este es el bot del %s.\n\n" +
		"Para continuar, por favor escribe tu *cédula* o *correo registrado*:"

	msgWelcome = "¡Hola, %s! 😊\n" +
		"🎉 ¡Bienvenido/a al %s! 🎉\n\n" +
		"Has sido validado correctamente.\n" +
		"Usa el menú para navegar."

	msgHelp = "/start - Iniciar/validar acceso\n" +
		"/menu - Mostrar menú\n" +
		"/help - Ayuda\n" +
		"\nPrimero valida tu cédula o correo registrado. Luego usa el menú."

	msgWelcomeBack   = "👋 ¡Hola de nuevo, %s! Ya estás validado/a."
	msgMustValidate  = "⚠️ Debes validarte primero. Escribe tu *cédula* o *correo*."
	msgEmptyInput    = "❗ Por favor escribe tu *cédula* o *correo*."
	msgNotRegistered = "🚫 No estás en la lista de registrados.\nIngresa nuevamente tu cédula o correo registrados:"
	msgAuthenticated = "Estás autenticado. Usa el menú:"
	msgMenuHidden    = "Menú ocultado. Usa /menu para mostrarlo de nuevo."
	msgWhatNext      = "¿Qué deseas hacer ahora?"
	msgItemNotFound  = "No se encontró el archivo solicitado."
	msgInternalError = "⚠️ Ocurrió un error inesperado. Intenta de nuevo en unos minutos."
)

var markdown = gateway.Options{Format: gateway.FormatMarkdown}

// Deps are the collaborators of a Router.
type Deps struct {
	Gateway   gateway.Gateway
	Gate      *timegate.Gate
	Auth      *auth.Authenticator
	Catalog   *catalog.Catalog
	Renderer  *menu.Renderer
	Deliverer *delivery.Deliverer
	Logger    *slog.Logger
}

// Router is the access-gated menu state machine. A user is unauthenticated
// until the Authenticator confirms a credential; after that the router
// tracks the screen the user last navigated to.
type Router struct {
	gw        gateway.Gateway
	gate      *timegate.Gate
	auth      *auth.Authenticator
	catalog   *catalog.Catalog
	renderer  *menu.Renderer
	deliverer *delivery.Deliverer
	logger    *slog.Logger
	now       func() time.Time

	positions sync.Map // int64 -> menu.Target
}

// NewRouter creates a Router. A nil Gate never locks.
func NewRouter(deps Deps) *Router {
	if deps.Gate == nil {
		deps.Gate = timegate.Disabled()
	}
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}
	return &Router{
		gw:        deps.Gateway,
		gate:      deps.Gate,
		auth:      deps.Auth,
		catalog:   deps.Catalog,
		renderer:  deps.Renderer,
		deliverer: deps.Deliverer,
		logger:    deps.Logger,
		now:       time.Now,
	}
}

// Position returns the screen the user is on, if authenticated and known.
func (r *Router) Position(userID int64) (menu.Target, bool) {
	v, ok := r.positions.Load(userID)
	if !ok {
		return menu.Target{}, false
	}
	return v.(menu.Target), true
}

// Handle processes one event. Errors are logged and reported to the user;
// they never escape.
func (r *Router) Handle(ctx context.Context, ev Event) {
	logger := r.logger.With(
		"event_id", uuid.NewString(),
		"event", ev.kind(),
		"user_id", ev.User(),
	)

	if !isHelp(ev) {
		if locked, msg := r.gate.IsLocked(r.now()); locked {
			logger.Debug("event suppressed by pre-launch gate")
			r.send(ctx, logger, ev.Chat(), msg, gateway.Options{})
			return
		}
	}

	var err error
	switch e := ev.(type) {
	case CommandEvent:
		err = r.handleCommand(ctx, logger, e)
	case TextEvent:
		err = r.handleText(ctx, logger, e)
	case CallbackEvent:
		err = r.handleCallback(ctx, logger, e)
	default:
		err = fmt.Errorf("unsupported event %T", ev)
	}

	if err != nil {
		logger.Error("failed to handle event", "error", err)
		r.send(ctx, logger, ev.Chat(), msgInternalError, gateway.Options{})
	}
}

func isHelp(ev Event) bool {
	cmd, ok := ev.(CommandEvent)
	return ok && cmd.Command == CommandHelp
}

func (r *Router) handleCommand(ctx context.Context, logger *slog.Logger, e CommandEvent) error {
	switch e.Command {
	case CommandHelp:
		r.send(ctx, logger, e.ChatID, msgHelp, gateway.Options{})
		return nil
	case CommandStart:
		sess, ok, err := r.auth.Session(ctx, e.UserID)
		if err != nil {
			return err
		}
		if !ok {
			r.send(ctx, logger, e.ChatID, fmt.Sprintf(msgGreeting, menu.EscapeMarkdown(r.catalog.EventName)), markdown)
			return nil
		}
		r.send(ctx, logger, e.ChatID, fmt.Sprintf(msgWelcomeBack, sess.FirstName()),
			gateway.Options{Shortcuts: menu.Shortcuts()})
		r.showMain(ctx, logger, e.UserID, e.ChatID)
		return nil
	case CommandMenu:
		_, ok, err := r.auth.Session(ctx, e.UserID)
		if err != nil {
			return err
		}
		if !ok {
			r.send(ctx, logger, e.ChatID, msgMustValidate, markdown)
			return nil
		}
		r.showMain(ctx, logger, e.UserID, e.ChatID)
		return nil
	default:
		return r.handleText(ctx, logger, TextEvent{UserID: e.UserID, ChatID: e.ChatID, Text: "/" + e.Command})
	}
}

func (r *Router) handleText(ctx context.Context, logger *slog.Logger, e TextEvent) error {
	_, ok, err := r.auth.Session(ctx, e.UserID)
	if err != nil {
		return err
	}
	if !ok {
		return r.authenticate(ctx, logger, e)
	}

	text := strings.TrimSpace(e.Text)
	if text == menu.CloseLabel {
		r.send(ctx, logger, e.ChatID, msgMenuHidden, gateway.Options{RemoveShortcuts: true})
		return nil
	}
	if target, ok := menu.ShortcutTarget(text); ok {
		screen, _ := r.renderer.Render(target)
		r.send(ctx, logger, e.ChatID, screen.Text, screen.Options())
		r.positions.Store(e.UserID, target)
		logger.Debug("shortcut navigation", "node", string(target.Node))
		if screen.FollowWithMain {
			r.send(ctx, logger, e.ChatID, menu.MainMenuText, r.mainOptions())
		}
		return nil
	}

	r.send(ctx, logger, e.ChatID, msgAuthenticated, r.mainOptions())
	return nil
}

func (r *Router) authenticate(ctx context.Context, logger *slog.Logger, e TextEvent) error {
	res, err := r.auth.Authenticate(ctx, e.UserID, e.Text)
	if errors.Is(err, auth.ErrEmptyCredential) {
		r.send(ctx, logger, e.ChatID, msgEmptyInput, markdown)
		return nil
	}
	if err != nil {
		return err
	}
	if !res.Success {
		logger.Info("credential not registered")
		r.send(ctx, logger, e.ChatID, msgNotRegistered, gateway.Options{})
		return nil
	}

	logger.Info("user authenticated")
	r.send(ctx, logger, e.ChatID, fmt.Sprintf(msgWelcome, session.FirstName(res.DisplayName), r.catalog.EventName),
		gateway.Options{Shortcuts: menu.Shortcuts()})
	r.showMain(ctx, logger, e.UserID, e.ChatID)
	return nil
}

func (r *Router) handleCallback(ctx context.Context, logger *slog.Logger, e CallbackEvent) error {
	_, ok, err := r.auth.Session(ctx, e.UserID)
	if err != nil {
		return err
	}
	ref := gateway.MessageRef{ChatID: e.ChatID, MessageID: e.MessageID}
	if !ok {
		logger.Info("callback rejected for unauthenticated user")
		r.edit(ctx, logger, ref, msgMustValidate, markdown)
		return nil
	}

	action, err := menu.ParseAction(e.Token)
	if err != nil {
		logger.Debug("ignoring unknown callback token", "token", e.Token)
		return nil
	}

	switch a := action.(type) {
	case menu.Navigate:
		screen, ok := r.renderer.Render(a.To)
		if !ok {
			logger.Debug("ignoring navigation to unknown screen", "token", e.Token)
			return nil
		}
		r.edit(ctx, logger, ref, screen.Text, screen.Options())
		r.positions.Store(e.UserID, a.To)
		if screen.FollowWithMain {
			r.send(ctx, logger, e.ChatID, menu.MainMenuText, r.mainOptions())
		}
	case menu.Deliver:
		r.deliver(ctx, logger, e.ChatID, a)
	}
	return nil
}

func (r *Router) deliver(ctx context.Context, logger *slog.Logger, chatID int64, a menu.Deliver) {
	var (
		file catalog.File
		ok   bool
	)
	if a.Kind == menu.DeliverAgenda {
		file, ok = r.catalog.AgendaFile()
	} else {
		file, ok = r.catalog.Item(a.Category(), a.PresenterID, a.Title)
	}
	if !ok {
		logger.Warn("delivery requested for unknown catalog item", "presenter_id", a.PresenterID, "title", a.Title)
		r.send(ctx, logger, chatID, msgItemNotFound, gateway.Options{})
	} else {
		out := r.deliverer.Deliver(ctx, chatID, delivery.Item{Title: file.Title, Path: r.catalog.ResolvePath(file)})
		logger.Info("file delivery finished",
			"title", file.Title,
			"status", out.Status.String(),
			"attempts", out.Attempts)
	}
	r.send(ctx, logger, chatID, msgWhatNext, r.mainOptions())
}

// showMain sends the principal screen as a new message and moves the user
// there.
func (r *Router) showMain(ctx context.Context, logger *slog.Logger, userID, chatID int64) {
	r.send(ctx, logger, chatID, menu.MainMenuText, r.mainOptions())
	r.positions.Store(userID, menu.Principal)
}

func (r *Router) mainOptions() gateway.Options {
	return gateway.Options{Inline: r.renderer.MainKeyboard()}
}

func (r *Router) send(ctx context.Context, logger *slog.Logger, chatID int64, text string, opts gateway.Options) {
	if _, err := r.gw.SendText(ctx, chatID, text, opts); err != nil {
		logger.Error("failed to send message", "error", err)
	}
}

// edit replaces the text of a message. When the original can no longer be
// edited the screen is sent as a new message.
func (r *Router) edit(ctx context.Context, logger *slog.Logger, ref gateway.MessageRef, text string, opts gateway.Options) {
	err := r.gw.EditText(ctx, ref, text, opts)
	if err == nil {
		return
	}
	var apiErr *gateway.APIError
	if errors.As(err, &apiErr) && strings.Contains(apiErr.Message, "message is not modified") {
		return
	}
	logger.Warn("failed to edit message, sending a new one", "error", err)
	r.send(ctx, logger, ref.ChatID, text, opts)
}
