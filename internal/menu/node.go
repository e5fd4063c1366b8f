// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

// Package menu defines the navigation tree, the typed button actions and
// the screens rendered for each node.
package menu

// Node is a screen family in the navigation tree. Its value doubles as the
// navigation verb in callback tokens.
type Node string

const (
	NodePrincipal         Node = "menu"
	NodeAgenda            Node = "agenda"
	NodeMaterial          Node = "material"
	NodeMaterialPresenter Node = "mat"
	NodeVideos            Node = "videos"
	NodeDocuments         Node = "docs"
	NodeLinks             Node = "links"
	NodeLinksPresenter    Node = "lnk"
	NodeLinksGeneral      Node = "lgen"
	NodeConnection        Node = "conn"
	NodeLocation          Node = "loc"
	NodeBroker            Node = "broker"
)

// Nodes lists every node family.
var Nodes = []Node{
	NodePrincipal, NodeAgenda, NodeMaterial, NodeMaterialPresenter, NodeVideos,
	NodeDocuments, NodeLinks, NodeLinksPresenter, NodeLinksGeneral,
	NodeConnection, NodeLocation, NodeBroker,
}

// HasPresenter reports whether screens of this family are parameterized by
// a presenter id.
func (n Node) HasPresenter() bool {
	switch n {
	case NodeMaterialPresenter, NodeVideos, NodeDocuments, NodeLinksPresenter:
		return true
	}
	return false
}

func (n Node) valid() bool {
	for _, k := range Nodes {
		if k == n {
			return true
		}
	}
	return false
}

// Target is a concrete screen: a node plus its presenter argument, if any.
type Target struct {
	Node        Node
	PresenterID string
}

// Principal is the root screen.
var Principal = Target{Node: NodePrincipal}

// Parent returns the screen the "back" button leads to. The root has none.
func (t Target) Parent() (Target, bool) {
	switch t.Node {
	case NodePrincipal:
		return Target{}, false
	case NodeMaterialPresenter:
		return Target{Node: NodeMaterial}, true
	case NodeVideos, NodeDocuments:
		return Target{Node: NodeMaterialPresenter, PresenterID: t.PresenterID}, true
	case NodeLinksPresenter, NodeLinksGeneral:
		return Target{Node: NodeLinks}, true
	default:
		return Principal, true
	}
}

// Depth is the number of back presses needed to reach the root.
func (t Target) Depth() int {
	depth := 0
	for {
		parent, ok := t.Parent()
		if !ok {
			return depth
		}
		t = parent
		depth++
	}
}
