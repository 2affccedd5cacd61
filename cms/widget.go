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
	"strconv"
	"strings"

	"github.com/google/uuid"
	"github.com/tomoncle/ormcms/types"
	"github.com/uptrace/bun"
)

// Widget is an instance of a widget on a node.
type Widget struct {
	bun.BaseModel `bun:"table:cms_widgets,alias:widget"`

	ID         string          `bun:"id,pk" json:"id"`
	NodeID     string          `bun:"node_id,notnull" json:"nodeId"`
	Name       string          `bun:"name,notnull" json:"name"`
	Region     string          `bun:"region" json:"region"`
	Section    string          `bun:"section" json:"section"`
	Block      string          `bun:"block" json:"block"`
	Weight     int             `bun:"weight" json:"weight"`
	Properties types.StringMap `bun:"properties,type:text" json:"properties"`
}

// NewWidget creates a widget instance of name on node.
func NewWidget(node *Node, name string) *Widget {
	return &Widget{
		ID:         uuid.NewString(),
		NodeID:     node.ID,
		Name:       name,
		Properties: types.StringMap{},
	}
}

// WidgetProperties returns a view on the widget's properties. Changes are
// written to the widget.
func (w *Widget) WidgetProperties() *WidgetProperties {
	if w.Properties == nil {
		w.Properties = types.StringMap{}
	}
	return NewWidgetProperties(w.ID, w.Properties)
}

const (
	localizedPrefix = "l10n."

	PropertyCache     = "cache"
	PropertyCacheAuto = "cache.auto"
	PropertyCacheTTL  = "cache.ttl"
)

// WidgetProperties is the key/value configuration of a widget instance.
// Setting an empty value removes the key.
type WidgetProperties struct {
	widgetID string
	values   types.StringMap
}

func NewWidgetProperties(widgetID string, values types.StringMap) *WidgetProperties {
	if values == nil {
		values = types.StringMap{}
	}
	return &WidgetProperties{widgetID: widgetID, values: values}
}

func (p *WidgetProperties) WidgetID() string {
	return p.widgetID
}

func (p *WidgetProperties) Get(key string) string {
	return p.values[key]
}

func (p *WidgetProperties) GetDefault(key, def string) string {
	if v, ok := p.values[key]; ok && v != "" {
		return v
	}
	return def
}

func (p *WidgetProperties) Has(key string) bool {
	_, ok := p.values[key]
	return ok
}

func (p *WidgetProperties) Set(key, value string) {
	if value == "" {
		delete(p.values, key)
		return
	}
	p.values[key] = value
}

// GetBool interprets 1, true, yes and on as true.
func (p *WidgetProperties) GetBool(key string) bool {
	return parseBool(p.values[key])
}

// SetBool stores true as "1" and removes the key for false.
func (p *WidgetProperties) SetBool(key string, value bool) {
	if value {
		p.Set(key, "1")
		return
	}
	p.Set(key, "")
}

func (p *WidgetProperties) GetInt(key string, def int) int {
	if n, err := strconv.Atoi(strings.TrimSpace(p.values[key])); err == nil {
		return n
	}
	return def
}

func (p *WidgetProperties) SetInt(key string, value int) {
	p.Set(key, strconv.Itoa(value))
}

func localizedKey(locale, key string) string {
	return localizedPrefix + locale + "." + key
}

func (p *WidgetProperties) GetLocalized(locale, key string) string {
	return p.values[localizedKey(locale, key)]
}

func (p *WidgetProperties) SetLocalized(locale, key, value string) {
	p.Set(localizedKey(locale, key), value)
}

func (p *WidgetProperties) IsAutoCache() bool {
	return p.GetBool(PropertyCacheAuto)
}

func (p *WidgetProperties) SetAutoCache(auto bool) {
	p.SetBool(PropertyCacheAuto, auto)
}

func (p *WidgetProperties) IsCacheEnabled() bool {
	return p.GetBool(PropertyCache)
}

func (p *WidgetProperties) SetCache(enabled bool) {
	p.SetBool(PropertyCache, enabled)
}

func (p *WidgetProperties) CacheTTL() int {
	return p.GetInt(PropertyCacheTTL, 0)
}

func (p *WidgetProperties) SetCacheTTL(seconds int) {
	if seconds <= 0 {
		p.Set(PropertyCacheTTL, "")
		return
	}
	p.SetInt(PropertyCacheTTL, seconds)
}

// Values returns a copy of all properties.
func (p *WidgetProperties) Values() types.StringMap {
	return p.values.Clone()
}

func parseBool(s string) bool {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "1", "true", "yes", "on":
		return true
	}
	return false
}
