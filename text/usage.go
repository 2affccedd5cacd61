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
	"html/template"
	"strings"

	"github.com/tomoncle/ormcms/cms"
)

// Usage is a node showing a text.
type Usage struct {
	NodeID  string `json:"nodeId"`
	Name    string `json:"name"`
	URL     string `json:"url,omitempty"`
	Region  string `json:"region"`
	Section string `json:"section,omitempty"`
	Block   string `json:"block,omitempty"`
}

// UsageFinder lists the nodes a text is shown on.
type UsageFinder struct {
	nodes *cms.NodeModel
	// URL links to the widget in the backend. %site%, %node%, %region%,
	// %section% and %block% are replaced, also in their escaped %25 form.
	URL string
}

func NewUsageFinder(nodes *cms.NodeModel, url string) *UsageFinder {
	return &UsageFinder{nodes: nodes, URL: url}
}

// Find returns each node with a placed widget showing text id, once.
func (f *UsageFinder) Find(ctx context.Context, id int64, locale string) ([]Usage, error) {
	refs, err := f.nodes.NodesForWidget(ctx, WidgetName)
	if err != nil {
		return nil, err
	}
	seen := make(map[string]bool)
	var usages []Usage
	for _, ref := range refs {
		if seen[ref.Node.ID] || ref.Widget.Region == "" {
			continue
		}
		props := ref.Widget.WidgetProperties()
		if props.Get(PropertyIO) != IOName || TextID(props) != id {
			continue
		}
		seen[ref.Node.ID] = true
		usages = append(usages, Usage{
			NodeID:  ref.Node.ID,
			Name:    ref.Node.Name(locale),
			URL:     f.url(ref),
			Region:  ref.Widget.Region,
			Section: ref.Widget.Section,
			Block:   ref.Widget.Block,
		})
	}
	return usages, nil
}

func (f *UsageFinder) url(ref cms.WidgetRef) string {
	if f.URL == "" {
		return ""
	}
	var pairs []string
	for key, value := range map[string]string{
		"site":    ref.Node.RootNodeID(),
		"node":    ref.Node.ID,
		"region":  ref.Widget.Region,
		"section": ref.Widget.Section,
		"block":   ref.Widget.Block,
	} {
		pairs = append(pairs, "%"+key+"%", value, "%25"+key+"%25", value)
	}
	return strings.NewReplacer(pairs...).Replace(f.URL)
}

var usageList = template.Must(template.New("usage").Parse(
	`{{if .}}<ul>{{range .}}<li>{{if .URL}}<a href="{{.URL}}">{{.Name}}</a>{{else}}{{.Name}}{{end}}</li>{{end}}</ul>{{end}}`))

// Decorate renders usages as a list of links.
func Decorate(usages []Usage) template.HTML {
	var sb strings.Builder
	if err := usageList.Execute(&sb, usages); err != nil {
		log.WithError(err).Warn("render text usage")
		return ""
	}
	return template.HTML(sb.String())
}
