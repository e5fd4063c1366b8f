// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package menu

import (
	"fmt"
	"strings"

	"github.com/olegiv/eventbot/internal/catalog"
	"github.com/olegiv/eventbot/internal/gateway"
)

// Labels shared between inline buttons and the shortcut keyboard.
const (
	LabelAgenda     = "📅 Agenda"
	LabelMaterial   = "📚 Material de apoyo"
	LabelLinks      = "🔗 Enlaces"
	LabelConnection = "🛜 Conexión y WiFi"
	LabelLocation   = "📍 Ubicación"
	LabelBroker     = "🤝 Broker"
	LabelBack       = "⬅️ Volver"

	// CloseLabel hides the shortcut keyboard.
	CloseLabel = "❌ Cerrar menú"
)

// MainMenuText heads the principal screen.
const MainMenuText = "Menú principal:"

var shortcutTargets = map[string]Target{
	LabelAgenda:     {Node: NodeAgenda},
	LabelMaterial:   {Node: NodeMaterial},
	LabelLinks:      {Node: NodeLinks},
	LabelConnection: {Node: NodeConnection},
	LabelLocation:   {Node: NodeLocation},
	LabelBroker:     {Node: NodeBroker},
}

// Shortcuts returns the persistent reply keyboard layout.
func Shortcuts() gateway.ShortcutKeyboard {
	return gateway.ShortcutKeyboard{
		{LabelAgenda, LabelMaterial},
		{LabelLinks, LabelConnection},
		{LabelLocation, LabelBroker},
		{CloseLabel},
	}
}

// ShortcutTarget maps a shortcut label to its screen.
func ShortcutTarget(text string) (Target, bool) {
	t, ok := shortcutTargets[text]
	return t, ok
}

// Screen is a rendered node.
type Screen struct {
	Text     string
	Markdown bool
	Keyboard gateway.InlineKeyboard
	// FollowWithMain asks the caller to send a fresh main menu after the
	// screen, for link lists that leave the user on URL buttons.
	FollowWithMain bool
}

// Options converts the screen into gateway send options.
func (s Screen) Options() gateway.Options {
	opts := gateway.Options{Inline: s.Keyboard}
	if s.Markdown {
		opts.Format = gateway.FormatMarkdown
	}
	return opts
}

// Renderer builds screens from the catalog. It is safe for concurrent use.
type Renderer struct {
	catalog      *catalog.Catalog
	wifiName     string
	wifiPassword string
}

// NewRenderer creates a renderer over c.
func NewRenderer(c *catalog.Catalog, wifiName, wifiPassword string) *Renderer {
	return &Renderer{catalog: c, wifiName: wifiName, wifiPassword: wifiPassword}
}

// MainKeyboard is the principal screen's keyboard.
func (r *Renderer) MainKeyboard() gateway.InlineKeyboard {
	return gateway.InlineKeyboard{
		{nav(LabelAgenda, NodeAgenda, "")},
		{nav(LabelMaterial, NodeMaterial, "")},
		{nav(LabelLinks, NodeLinks, "")},
		{nav(LabelConnection, NodeConnection, "")},
		{nav(LabelLocation, NodeLocation, "")},
		{nav(LabelBroker, NodeBroker, "")},
	}
}

// Render returns the screen for t. It reports false when t names a
// presenter the catalog does not have.
func (r *Renderer) Render(t Target) (Screen, bool) {
	var s Screen
	switch t.Node {
	case NodePrincipal:
		return Screen{Text: MainMenuText, Keyboard: r.MainKeyboard()}, true
	case NodeAgenda:
		s = r.agenda()
	case NodeMaterial:
		s = r.material()
	case NodeLinks:
		s = r.links()
	case NodeLinksGeneral:
		s = linkList("⭐ *Enlaces de interés*:", "No hay enlaces de interés disponibles por ahora.", r.catalog.GeneralLinks)
		s.FollowWithMain = true
	case NodeConnection:
		s = r.connection()
		s.FollowWithMain = true
	case NodeLocation:
		s = r.location()
	case NodeBroker:
		s = linkList("🤝 *Broker*\nAbre tu cuenta con nuestros enlaces de referido:",
			"No hay enlaces de broker disponibles por ahora.", r.catalog.BrokerLinks)
	case NodeMaterialPresenter, NodeVideos, NodeDocuments, NodeLinksPresenter:
		p, ok := r.catalog.Presenter(t.PresenterID)
		if !ok {
			return Screen{}, false
		}
		s = r.presenterScreen(t.Node, p)
	default:
		return Screen{}, false
	}

	parent, _ := t.Parent()
	s.Keyboard = append(s.Keyboard, []gateway.Button{
		{Label: LabelBack, Action: Navigate{To: parent}.Token()},
	})
	s.Markdown = true
	return s, true
}

func (r *Renderer) agenda() Screen {
	text := r.catalog.Agenda.Text
	if strings.TrimSpace(text) == "" {
		text = "📅 *Agenda del evento*\nLa agenda aún no está publicada."
	}
	var kb gateway.InlineKeyboard
	if _, ok := r.catalog.AgendaFile(); ok {
		kb = append(kb, []gateway.Button{{Label: "📥 Descargar agenda (PDF)", Action: Deliver{Kind: DeliverAgenda}.Token()}})
	}
	return Screen{Text: text, Keyboard: kb}
}

func (r *Renderer) material() Screen {
	if len(r.catalog.Presenters) == 0 {
		return Screen{Text: "📚 *Material de apoyo*\nNo hay material disponible por el momento."}
	}
	kb := make(gateway.InlineKeyboard, 0, len(r.catalog.Presenters))
	for _, p := range r.catalog.Presenters {
		kb = append(kb, []gateway.Button{nav("🎤 "+p.Name, NodeMaterialPresenter, p.ID)})
	}
	return Screen{Text: "📚 *Material de apoyo*\nElige un conferencista:", Keyboard: kb}
}

func (r *Renderer) links() Screen {
	kb := gateway.InlineKeyboard{{nav("⭐ Enlaces de interés", NodeLinksGeneral, "")}}
	for _, p := range r.catalog.Presenters {
		kb = append(kb, []gateway.Button{nav("🔗 "+p.Name, NodeLinksPresenter, p.ID)})
	}
	return Screen{Text: "🔗 *Enlaces*\nElige una categoría:", Keyboard: kb}
}

func (r *Renderer) presenterScreen(n Node, p *catalog.Presenter) Screen {
	name := EscapeMarkdown(p.Name)
	switch n {
	case NodeVideos:
		return fileList(fmt.Sprintf("🎬 *Videos de interés* de %s:", name),
			"No hay videos disponibles por el momento.", DeliverVideo, p.ID, p.Videos)
	case NodeDocuments:
		return fileList(fmt.Sprintf("📄 *Documentos* de %s:", name),
			"No hay documentos disponibles por el momento.", DeliverDocument, p.ID, p.Documents)
	case NodeLinksPresenter:
		s := linkList(fmt.Sprintf("🔗 *Enlaces de %s*:", name),
			"No hay enlaces disponibles para este conferencista.", p.Links)
		s.FollowWithMain = true
		return s
	default:
		return Screen{
			Text: fmt.Sprintf("📚 *%s*\nElige el tipo de material:", name),
			Keyboard: gateway.InlineKeyboard{
				{nav(fmt.Sprintf("🎬 Videos de interés (%d)", len(p.Videos)), NodeVideos, p.ID)},
				{nav(fmt.Sprintf("📄 Documentos (%d)", len(p.Documents)), NodeDocuments, p.ID)},
			},
		}
	}
}

func (r *Renderer) connection() Screen {
	var b strings.Builder
	b.WriteString("🛜 *Conexión y WiFi*\n")
	if r.wifiName != "" || r.wifiPassword != "" {
		fmt.Fprintf(&b, "\n📶 Red: %s\n🔑 Clave: %s\n", EscapeMarkdown(r.wifiName), EscapeMarkdown(r.wifiPassword))
	}
	if alert := r.catalog.Connection.Alert; alert != "" {
		b.WriteString("\n" + alert + "\n")
	}
	if len(r.catalog.Connection.Links) == 0 {
		b.WriteString("\nNo hay enlaces de conexión todavía.")
	}
	return Screen{Text: strings.TrimRight(b.String(), "\n"), Keyboard: urlRows(r.catalog.Connection.Links)}
}

func (r *Renderer) location() Screen {
	if r.catalog.LocationURL == "" {
		return Screen{Text: "📍 *Ubicación del evento*\nLa ubicación aún no está disponible."}
	}
	return Screen{
		Text:     "📍 *Ubicación del evento*\nToca el botón para abrir en Google Maps.",
		Keyboard: gateway.InlineKeyboard{{{Label: "📍 Abrir en Google Maps", URL: r.catalog.LocationURL}}},
	}
}

func fileList(header, empty string, kind DeliveryKind, presenterID string, files []catalog.File) Screen {
	if len(files) == 0 {
		return Screen{Text: header + "\n" + empty}
	}
	kb := make(gateway.InlineKeyboard, 0, len(files))
	for _, f := range files {
		tok := Deliver{Kind: kind, PresenterID: presenterID, Title: f.Title}.Token()
		kb = append(kb, []gateway.Button{{Label: f.Title, Action: tok}})
	}
	return Screen{Text: header, Keyboard: kb}
}

func linkList(header, empty string, links []catalog.Link) Screen {
	if len(links) == 0 {
		return Screen{Text: header + "\n" + empty}
	}
	return Screen{Text: header, Keyboard: urlRows(links)}
}

func urlRows(links []catalog.Link) gateway.InlineKeyboard {
	kb := make(gateway.InlineKeyboard, 0, len(links))
	for _, l := range links {
		kb = append(kb, []gateway.Button{{Label: l.Title, URL: l.URL}})
	}
	return kb
}

func nav(label string, n Node, presenterID string) gateway.Button {
	return gateway.Button{Label: label, Action: NavigateTo(n, presenterID)}
}

var markdownEscaper = strings.NewReplacer("_", `\_`, "*", `\*`, "`", "\\`", "[", `\[`)

// EscapeMarkdown escapes the characters legacy Telegram Markdown treats as
// entity delimiters.
func EscapeMarkdown(s string) string {
	return markdownEscaper.Replace(s)
}
