/*
 * Copyright 2025 tomoncle.
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *     http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

package cms

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/tomoncle/ormcms/types"
	"github.com/uptrace/bun"
)

// Node types.
const (
	NodeTypeSite  = "site"
	NodeTypePage  = "page"
	NodeTypeEntry = "entry"
)

// Node is a site, page or entry of the site tree.
type Node struct {
	bun.BaseModel `bun:"table:cms_nodes,alias:node"`

	ID         string          `bun:"id,pk" json:"id"`
	ParentID   string          `bun:"parent_id,nullzero" json:"parentId,omitempty"`
	RootID     string          `bun:"root_id,nullzero" json:"rootId,omitempty"`
	Type       string          `bun:"type,notnull" json:"type"`
	Names      types.StringMap `bun:"names,type:text" json:"names"`
	Routes     types.StringMap `bun:"routes,type:text" json:"routes"`
	EntryModel string          `bun:"entry_model,nullzero" json:"entryModel,omitempty"`
	EntryID    string          `bun:"entry_id,nullzero" json:"entryId,omitempty"`
	Layout     string          `bun:"layout,nullzero" json:"layout,omitempty"`
	Theme      string          `bun:"theme,nullzero" json:"theme,omitempty"`
	// Locales is the comma separated list of locales the node is shown in,
	// empty for all.
	Locales    string          `bun:"locales,nullzero" json:"locales,omitempty"`
	Weight     int             `bun:"weight" json:"weight"`
	CreatedAt  time.Time       `bun:"created_at,notnull" json:"createdAt"`
	UpdatedAt  time.Time       `bun:"updated_at,notnull" json:"updatedAt"`

	meta map[string]string
}

// NewNode creates a node of nodeType below parent. A nil parent makes the
// node a root.
func NewNode(nodeType string, parent *Node) *Node {
	node := &Node{
		ID:     uuid.NewString(),
		Type:   nodeType,
		Names:  types.StringMap{},
		Routes: types.StringMap{},
	}
	if parent != nil {
		node.ParentID = parent.ID
		node.RootID = parent.RootNodeID()
	}
	return node
}

// RootNodeID returns the id of the site the node belongs to.
func (n *Node) RootNodeID() string {
	if n.RootID != "" {
		return n.RootID
	}
	return n.ID
}

// AvailableLocales returns the locales of the node, nil when it is shown
// in every locale.
func (n *Node) AvailableLocales() []string {
	var locales []string
	for _, locale := range strings.Split(n.Locales, ",") {
		if locale = strings.TrimSpace(locale); locale != "" {
			locales = append(locales, locale)
		}
	}
	return locales
}

func (n *Node) IsAvailableIn(locale string) bool {
	locales := n.AvailableLocales()
	if len(locales) == 0 {
		return true
	}
	for _, l := range locales {
		if l == locale {
			return true
		}
	}
	return false
}

func (n *Node) IsRoot() bool {
	return n.ParentID == ""
}

// Name returns the name for locale, falling back to any name.
func (n *Node) Name(locale string) string {
	return localized(n.Names, locale)
}

func (n *Node) SetName(locale, name string) {
	if n.Names == nil {
		n.Names = types.StringMap{}
	}
	n.Names[locale] = name
}

// Route returns the route for locale, falling back to any route and finally
// to /nodes/<id>.
func (n *Node) Route(locale string) string {
	if route := localized(n.Routes, locale); route != "" {
		return route
	}
	return "/nodes/" + n.ID
}

func (n *Node) SetRoute(locale, route string) {
	if n.Routes == nil {
		n.Routes = types.StringMap{}
	}
	n.Routes[locale] = route
}

// Meta returns page meta such as og:title, collected while rendering.
func (n *Node) Meta() map[string]string {
	return n.meta
}

func (n *Node) SetMeta(key, value string) {
	if n.meta == nil {
		n.meta = make(map[string]string)
	}
	n.meta[key] = value
}

func localized(values types.StringMap, locale string) string {
	if v, ok := values[locale]; ok && v != "" {
		return v
	}
	for _, k := range values.Keys() {
		if values[k] != "" {
			return values[k]
		}
	}
	return ""
}

var _ bun.BeforeAppendModelHook = (*Node)(nil)

func (n *Node) BeforeAppendModel(ctx context.Context, query bun.Query) error {
	now := time.Now()
	switch query.(type) {
	case *bun.InsertQuery:
		if n.CreatedAt.IsZero() {
			n.CreatedAt = now
		}
		n.UpdatedAt = now
	case *bun.UpdateQuery:
		n.UpdatedAt = now
	}
	return nil
}
