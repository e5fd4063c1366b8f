// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package menu

import (
	"errors"
	"fmt"
	"strings"

	"github.com/olegiv/eventbot/internal/catalog"
)

// MaxTokenLen is Telegram's limit on callback data, in bytes.
const MaxTokenLen = 64

// ErrUnknownAction is returned for tokens that do not match the grammar.
var ErrUnknownAction = errors.New("menu: unknown action")

// Delivery verbs.
const (
	verbVideo      = "video"
	verbDocument   = "doc"
	verbAgendaFile = "agendafile"
)

// Action is a parsed callback token: either Navigate or Deliver.
type Action interface {
	// Token encodes the action as callback data.
	Token() string
	isAction()
}

// Navigate moves the user to another screen.
type Navigate struct {
	To Target
}

// DeliveryKind selects the file collection of a Deliver action.
type DeliveryKind int

const (
	DeliverVideo DeliveryKind = iota
	DeliverDocument
	DeliverAgenda
)

// Deliver sends a catalog file to the user.
type Deliver struct {
	Kind        DeliveryKind
	PresenterID string
	Title       string
}

func (Navigate) isAction() {}
func (Deliver) isAction()  {}

// Token implements Action.
func (a Navigate) Token() string {
	if a.To.Node.HasPresenter() {
		return string(a.To.Node) + ":" + a.To.PresenterID
	}
	return string(a.To.Node)
}

// Token implements Action.
func (a Deliver) Token() string {
	switch a.Kind {
	case DeliverVideo:
		return verbVideo + ":" + a.PresenterID + ":" + a.Title
	case DeliverDocument:
		return verbDocument + ":" + a.PresenterID + ":" + a.Title
	default:
		return verbAgendaFile
	}
}

// Category maps the delivery kind to its catalog collection.
func (a Deliver) Category() catalog.Category {
	if a.Kind == DeliverVideo {
		return catalog.CategoryVideo
	}
	return catalog.CategoryDocument
}

// NavigateTo is shorthand for a navigation token.
func NavigateTo(n Node, presenterID string) string {
	return Navigate{To: Target{Node: n, PresenterID: presenterID}}.Token()
}

// ParseAction decodes callback data of the form <verb>[:<arg1>[:<arg2>]].
func ParseAction(token string) (Action, error) {
	if token == "" || len(token) > MaxTokenLen {
		return nil, ErrUnknownAction
	}
	parts := strings.SplitN(token, ":", 3)
	verb := parts[0]

	switch verb {
	case verbVideo, verbDocument:
		if len(parts) != 3 || parts[1] == "" || parts[2] == "" {
			return nil, fmt.Errorf("%w: %q", ErrUnknownAction, token)
		}
		kind := DeliverDocument
		if verb == verbVideo {
			kind = DeliverVideo
		}
		return Deliver{Kind: kind, PresenterID: parts[1], Title: parts[2]}, nil
	case verbAgendaFile:
		if len(parts) != 1 {
			return nil, fmt.Errorf("%w: %q", ErrUnknownAction, token)
		}
		return Deliver{Kind: DeliverAgenda}, nil
	}

	node := Node(verb)
	if !node.valid() {
		return nil, fmt.Errorf("%w: %q", ErrUnknownAction, token)
	}
	if node.HasPresenter() {
		if len(parts) != 2 || parts[1] == "" {
			return nil, fmt.Errorf("%w: %q", ErrUnknownAction, token)
		}
		return Navigate{To: Target{Node: node, PresenterID: parts[1]}}, nil
	}
	if len(parts) != 1 {
		return nil, fmt.Errorf("%w: %q", ErrUnknownAction, token)
	}
	return Navigate{To: Target{Node: node}}, nil
}

// ValidateTokens checks that every token the catalog produces fits in
// callback data.
func ValidateTokens(c *catalog.Catalog) error {
	check := func(a Action) error {
		if tok := a.Token(); len(tok) > MaxTokenLen {
			return fmt.Errorf("callback token %q is %d bytes, limit is %d; shorten the presenter id or title",
				tok, len(tok), MaxTokenLen)
		}
		return nil
	}
	for _, p := range c.Presenters {
		for _, n := range []Node{NodeMaterialPresenter, NodeVideos, NodeDocuments, NodeLinksPresenter} {
			if err := check(Navigate{To: Target{Node: n, PresenterID: p.ID}}); err != nil {
				return err
			}
		}
		for _, f := range p.Videos {
			if err := check(Deliver{Kind: DeliverVideo, PresenterID: p.ID, Title: f.Title}); err != nil {
				return err
			}
		}
		for _, f := range p.Documents {
			if err := check(Deliver{Kind: DeliverDocument, PresenterID: p.ID, Title: f.Title}); err != nil {
				return err
			}
		}
	}
	return nil
}
