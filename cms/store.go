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
	"database/sql"
	"sort"
	"strings"

	"github.com/pkg/errors"
	"github.com/tomoncle/ormcms/database"
	"github.com/tomoncle/ormcms/repository"
	"github.com/tomoncle/ormcms/types"
	"github.com/uptrace/bun"
)

var (
	ErrNodeNotFound   = errors.New("node not found")
	ErrWidgetNotFound = errors.New("widget not found")
)

// Models returns the tables of the node store.
func Models() []database.SQLModel {
	return []database.SQLModel{
		database.NewModelAdapter((*Node)(nil), 0),
		database.NewModelAdapter((*Widget)(nil), 0),
	}
}

// Migrations returns the indexes of the node store.
func Migrations() []database.MigrationItem {
	return []database.MigrationItem{
		{
			Version:     "20250101000100",
			Name:        "cms_nodes_root_index",
			Description: "Index cms_nodes on root_id",
			Up:          database.CreateIndex((*Node)(nil), "cms_nodes_root_idx", false, "root_id"),
		},
		{
			Version:     "20250101000101",
			Name:        "cms_widgets_name_index",
			Description: "Index cms_widgets on name and node_id",
			Up:          database.CreateIndex((*Widget)(nil), "cms_widgets_name_idx", false, "name", "node_id"),
		},
	}
}

// WidgetRef is a widget instance together with the node holding it.
type WidgetRef struct {
	Node   *Node
	Widget *Widget
}

// NodeModel stores the site tree and its widgets.
type NodeModel struct {
	db      *bun.DB
	nodes   repository.Repository[Node]
	widgets repository.Repository[Widget]
}

func NewNodeModel(db *bun.DB) *NodeModel {
	return &NodeModel{
		db:      db,
		nodes:   repository.NewRepository[Node](db),
		widgets: repository.NewRepository[Widget](db),
	}
}

// GetNode returns the node with id or ErrNodeNotFound.
func (m *NodeModel) GetNode(ctx context.Context, id string) (*Node, error) {
	node, err := m.nodes.Get(ctx, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, errors.Wrapf(ErrNodeNotFound, "node %s", id)
	}
	return node, errors.Wrapf(err, "get node %s", id)
}

// GetNodes returns the site node rootID and all nodes of the site, ordered by
// weight.
func (m *NodeModel) GetNodes(ctx context.Context, rootID string) ([]*Node, error) {
	nodes, err := m.nodes.List(ctx, types.NewQueryFilter("id = ? OR root_id = ?", rootID, rootID), "weight ASC", "id ASC")
	return nodes, errors.Wrapf(err, "get nodes of %s", rootID)
}

// SaveNode inserts or updates a node.
func (m *NodeModel) SaveNode(ctx context.Context, node *Node) error {
	return errors.Wrapf(m.nodes.Save(ctx, node), "save node %s", node.ID)
}

// DeleteNode removes a node and its widgets.
func (m *NodeModel) DeleteNode(ctx context.Context, id string) error {
	return m.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		if _, err := m.widgets.WithTx(tx).DeleteWhere(ctx, types.NewQueryFilter("node_id = ?", id)); err != nil {
			return errors.Wrapf(err, "delete widgets of node %s", id)
		}
		return errors.Wrapf(m.nodes.WithTx(tx).Delete(ctx, id), "delete node %s", id)
	})
}

// SaveWidget inserts or updates a widget instance.
func (m *NodeModel) SaveWidget(ctx context.Context, widget *Widget) error {
	return errors.Wrapf(m.widgets.Save(ctx, widget), "save widget %s", widget.ID)
}

// GetWidget returns the widget with id or ErrWidgetNotFound.
func (m *NodeModel) GetWidget(ctx context.Context, id string) (*Widget, error) {
	widget, err := m.widgets.Get(ctx, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, errors.Wrapf(ErrWidgetNotFound, "widget %s", id)
	}
	return widget, errors.Wrapf(err, "get widget %s", id)
}

// GetWidgets returns the widgets of a node ordered by weight.
func (m *NodeModel) GetWidgets(ctx context.Context, nodeID string) ([]*Widget, error) {
	widgets, err := m.widgets.List(ctx, types.NewQueryFilter("node_id = ?", nodeID), "weight ASC", "id ASC")
	return widgets, errors.Wrapf(err, "get widgets of %s", nodeID)
}

// NodesForWidget returns every instance of the named widget with its node.
// Instances on deleted nodes are skipped.
func (m *NodeModel) NodesForWidget(ctx context.Context, widgetName string) ([]WidgetRef, error) {
	widgets, err := m.widgets.List(ctx, types.NewQueryFilter("name = ?", widgetName))
	if err != nil {
		return nil, errors.Wrapf(err, "find widgets %s", widgetName)
	}

	nodes := make(map[string]*Node)
	refs := make([]WidgetRef, 0, len(widgets))
	for _, widget := range widgets {
		node, ok := nodes[widget.NodeID]
		if !ok {
			node, err = m.GetNode(ctx, widget.NodeID)
			if errors.Is(err, ErrNodeNotFound) {
				continue
			} else if err != nil {
				return nil, err
			}
			nodes[widget.NodeID] = node
		}
		refs = append(refs, WidgetRef{Node: node, Widget: widget})
	}
	return refs, nil
}

// ParentNodes returns the ancestors of node, nearest first.
func (m *NodeModel) ParentNodes(ctx context.Context, node *Node) ([]*Node, error) {
	var parents []*Node
	seen := map[string]bool{node.ID: true}
	for parentID := node.ParentID; parentID != "" && !seen[parentID]; {
		parent, err := m.GetNode(ctx, parentID)
		if err != nil {
			return nil, err
		}
		seen[parentID] = true
		parents = append(parents, parent)
		parentID = parent.ParentID
	}
	return parents, nil
}

// NodeOptions lists the nodes of a site as id => path of names, for example
// "/Site/News/Archive", sorted by path.
func (m *NodeModel) NodeOptions(ctx context.Context, rootID, locale string) (types.Options, error) {
	nodes, err := m.GetNodes(ctx, rootID)
	if err != nil {
		return nil, err
	}
	byID := make(map[string]*Node, len(nodes))
	for _, node := range nodes {
		byID[node.ID] = node
	}

	paths := make(map[string]string, len(nodes))
	var path func(node *Node, depth int) string
	path = func(node *Node, depth int) string {
		if p, ok := paths[node.ID]; ok {
			return p
		}
		p := "/" + node.Name(locale)
		if parent, ok := byID[node.ParentID]; ok && depth < len(nodes) {
			p = path(parent, depth+1) + p
		}
		paths[node.ID] = p
		return p
	}

	ids := make([]string, 0, len(nodes))
	for _, node := range nodes {
		path(node, 0)
		ids = append(ids, node.ID)
	}
	sort.SliceStable(ids, func(i, j int) bool {
		return strings.ToLower(paths[ids[i]]) < strings.ToLower(paths[ids[j]])
	})

	var options types.Options
	for _, id := range ids {
		options.Add(id, paths[id])
	}
	return options, nil
}

// EntryNode returns the entry node of a model entry, nil when the entry has
// no node.
func (m *NodeModel) EntryNode(ctx context.Context, model string, entryID string) (*Node, error) {
	node, err := m.nodes.FindOne(ctx, "type = ? AND entry_model = ? AND entry_id = ?", NodeTypeEntry, model, entryID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	return node, errors.Wrapf(err, "find entry node %s %s", model, entryID)
}
