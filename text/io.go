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
package text

import (
	"context"
	"strconv"

	"github.com/tomoncle/ormcms/cms"
)

const (
	// WidgetName is the name of the widget showing texts.
	WidgetName = "text"
	// IOName is the value of PropertyIO for texts kept in the database.
	IOName = "orm"

	PropertyText = "text"
	PropertyIO   = "io"
)

// Submission is what the text form posts besides the text itself.
type Submission struct {
	// Existing points the widget to another stored text.
	Existing int64
	// New detaches the widget from its text and saves a new one.
	New bool
	// Version is the version the text was edited from.
	Version int
}

// IO binds stored texts to text widget instances.
type IO struct {
	store *Store
	nodes *cms.NodeModel
}

func NewIO(store *Store, nodes *cms.NodeModel) *IO {
	return &IO{store: store, nodes: nodes}
}

func (io *IO) Store() *Store {
	return io.store
}

// TextID returns the id of the text shown by a widget, 0 when it has none.
func TextID(props *cms.WidgetProperties) int64 {
	id, _ := strconv.ParseInt(props.Get(PropertyText), 10, 64)
	return id
}

// GetText returns the text of a widget in locale.
func (io *IO) GetText(ctx context.Context, props *cms.WidgetProperties, locale string) (*Text, error) {
	return io.store.Get(ctx, TextID(props), locale)
}

// SetText saves text for a widget in locales and points the widget to it.
// Choosing an existing text only rebinds the widget; its content is kept.
func (io *IO) SetText(ctx context.Context, props *cms.WidgetProperties, locales []string, text *Text, sub Submission) error {
	current := TextID(props)
	switch {
	case sub.New:
		text.ID, text.Version = 0, 0
	case sub.Existing != 0 && sub.Existing != current:
		props.Set(PropertyIO, IOName)
		props.Set(PropertyText, strconv.FormatInt(sub.Existing, 10))
		return nil
	default:
		text.ID, text.Version = current, sub.Version
	}

	if err := io.store.Save(ctx, text, locales...); err != nil {
		return err
	}
	props.Set(PropertyIO, IOName)
	props.Set(PropertyText, strconv.FormatInt(text.ID, 10))
	return nil
}

// InUseElsewhere returns the other text widgets of the site of node which
// show the same text as props.
func (io *IO) InUseElsewhere(ctx context.Context, node *cms.Node, props *cms.WidgetProperties) ([]cms.WidgetRef, error) {
	id := TextID(props)
	if id == 0 {
		return nil, nil
	}
	refs, err := io.nodes.NodesForWidget(ctx, WidgetName)
	if err != nil {
		return nil, err
	}
	var others []cms.WidgetRef
	for _, ref := range refs {
		if ref.Node.RootNodeID() != node.RootNodeID() || ref.Widget.ID == props.WidgetID() {
			continue
		}
		wp := ref.Widget.WidgetProperties()
		if wp.Get(PropertyIO) != IOName || TextID(wp) != id {
			continue
		}
		others = append(others, ref)
	}
	return others, nil
}
