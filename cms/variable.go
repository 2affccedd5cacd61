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
	"fmt"
	"html"
	"regexp"
	"strings"

	"github.com/tomoncle/ormcms/orm"
)

const (
	VariableURL  = "url"
	VariableName = "name"
	VariableLink = "link"
)

var variablePattern = regexp.MustCompile(`\[\[([A-Za-z0-9_.\-]+)\]\]`)

// TextContext is the page a text is parsed for.
type TextContext struct {
	Node    *Node
	Locale  string
	BaseURL string
}

// EntryVariableParser resolves entry variables in texts:
//
//	entry.url, entry.name               the nearest entry node
//	node.var.<path>                     a property of that node's entry
//	entry.<Model>.<id>.<url|name|link>  any entry node, optionally
//	                                    followed by .<locale>
type EntryVariableParser struct {
	nodes      *NodeModel
	manager    *orm.Manager
	reflection *orm.ReflectionHelper
}

func NewEntryVariableParser(nodes *NodeModel, manager *orm.Manager) *EntryVariableParser {
	return &EntryVariableParser{nodes: nodes, manager: manager, reflection: orm.NewReflectionHelper()}
}

// ParseVariable returns the value of variable, ok is false when the variable
// is not an entry variable or could not be resolved.
func (p *EntryVariableParser) ParseVariable(ctx context.Context, tc TextContext, variable string) (interface{}, bool, error) {
	tokens := strings.Split(variable, ".")
	if len(tokens) < 2 {
		return nil, false, nil
	}

	switch {
	case tokens[0] == "entry" && len(tokens) == 2:
		node, err := p.entryNode(ctx, tc.Node)
		if err != nil || node == nil {
			return nil, false, err
		}
		switch tokens[1] {
		case VariableURL:
			return tc.BaseURL + node.Route(tc.Locale), true, nil
		case VariableName:
			return node.Name(tc.Locale), true, nil
		}
	case tokens[0] == "node" && tokens[1] == "var" && len(tokens) > 2:
		node, err := p.entryNode(ctx, tc.Node)
		if err != nil || node == nil {
			return nil, false, err
		}
		entry, err := p.loadEntry(ctx, node, tc.Locale)
		if err != nil || entry == nil {
			return nil, false, err
		}
		value, err := p.reflection.GetPath(entry, strings.Join(tokens[2:], "."))
		if err != nil || value == nil {
			return nil, false, nil
		}
		return value, true, nil
	case tokens[0] == "entry" && len(tokens) >= 4:
		node, err := p.nodes.EntryNode(ctx, p.modelName(tokens[1]), tokens[2])
		if err != nil || node == nil {
			return nil, false, err
		}
		locale := tc.Locale
		if len(tokens) > 4 {
			locale = tokens[4]
		}
		url := tc.BaseURL + node.Route(locale)
		switch tokens[3] {
		case VariableURL:
			return url, true, nil
		case VariableName:
			return node.Name(locale), true, nil
		case VariableLink:
			return fmt.Sprintf(`<a href="%s">%s</a>`, html.EscapeString(url), html.EscapeString(node.Name(locale))), true, nil
		}
	}
	return nil, false, nil
}

// Parse replaces the [[variable]] tokens of text. Unresolved tokens are kept.
func (p *EntryVariableParser) Parse(ctx context.Context, tc TextContext, text string) (string, error) {
	var parseErr error
	out := variablePattern.ReplaceAllStringFunc(text, func(token string) string {
		if parseErr != nil {
			return token
		}
		value, ok, err := p.ParseVariable(ctx, tc, token[2:len(token)-2])
		if err != nil {
			parseErr = err
		}
		if !ok {
			return token
		}
		return fmt.Sprint(value)
	})
	return out, parseErr
}

// entryNode walks up from node to the first entry node.
func (p *EntryVariableParser) entryNode(ctx context.Context, node *Node) (*Node, error) {
	if node == nil {
		return nil, nil
	}
	if node.Type == NodeTypeEntry {
		return node, nil
	}
	parents, err := p.nodes.ParentNodes(ctx, node)
	if err != nil {
		return nil, err
	}
	for _, parent := range parents {
		if parent.Type == NodeTypeEntry {
			return parent, nil
		}
	}
	return nil, nil
}

func (p *EntryVariableParser) loadEntry(ctx context.Context, node *Node, locale string) (interface{}, error) {
	if p.manager == nil || node.EntryModel == "" {
		return nil, nil
	}
	model, err := p.manager.Model(node.EntryModel)
	if err != nil {
		return nil, err
	}
	entry, err := model.FindByID(ctx, node.EntryID, locale, 0, "")
	if orm.IsNotFound(err) {
		return nil, nil
	}
	return entry, err
}

// modelName returns the registered spelling of a model name.
func (p *EntryVariableParser) modelName(name string) string {
	if p.manager != nil {
		if model, err := p.manager.Model(name); err == nil {
			return model.Name()
		}
	}
	if name == "" {
		return name
	}
	return strings.ToUpper(name[:1]) + name[1:]
}
