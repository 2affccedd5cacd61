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

package widget

import (
	"context"
	"math"
	"net/http"
	"net/url"
	"regexp"
	"strconv"
	"strings"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"github.com/tomoncle/ormcms/cms"
	"github.com/tomoncle/ormcms/filter"
	"github.com/tomoncle/ormcms/orm"
	"github.com/tomoncle/ormcms/view"
)

var contextVariable = regexp.MustCompile(`%context[A-Za-z0-9_.]*%`)

// OverviewWidget lists the entries of a model.
type OverviewWidget struct {
	ormWidget
	reflection *orm.ReflectionHelper
}

func NewOverviewWidget(services *Services) *OverviewWidget {
	return &OverviewWidget{ormWidget: ormWidget{services: services}, reflection: orm.NewReflectionHelper()}
}

func (w *OverviewWidget) Name() string { return OverviewName }

// Routes returns a dynamic route when the widget takes parameters.
func (w *OverviewWidget) Routes(wc *Context) []Route {
	if !w.contentProperties(wc).Parameters.IsSet() {
		return nil
	}
	return []Route{{Path: "/", Methods: []string{http.MethodHead, http.MethodGet}, Dynamic: true}}
}

func (w *OverviewWidget) Templates(wc *Context) []string {
	props := w.contentProperties(wc)
	if props.Template == "" {
		return nil
	}
	return []string{w.services.Views.Overview(props.Template).Resource()}
}

func (w *OverviewWidget) Handle(ctx context.Context, wc *Context, args []string) error {
	return w.Index(ctx, wc, args...)
}

// Index renders the overview. Arguments are the URL tokens following the
// node route.
func (w *OverviewWidget) Index(ctx context.Context, wc *Context, args ...string) error {
	props := w.contentProperties(wc)
	if props.ModelName == "" {
		if wc.Properties.IsAutoCache() {
			wc.Properties.SetCache(true)
		}
		return nil
	}

	arguments, values, ok := w.parseArguments(props, args)
	if !ok {
		wc.setNotFound()
		return nil
	}
	if !props.Parameters.IsSet() && len(args) > 0 {
		switch props.NoParametersAction {
		case cms.NoParametersIgnore:
			return nil
		case cms.NoParametersRender:
		default:
			wc.setNotFound()
			return nil
		}
	}

	showPagination := props.PaginationEnabled && props.ShowPagination
	page, pages := 1, 1
	if showPagination {
		if n, err := strconv.Atoi(wc.query().Get(ParamPage)); err == nil && n > 0 {
			page = n
		}
	}

	model, err := w.model(props)
	if err != nil {
		return err
	}
	query, states, err := w.ModelQuery(wc, model, props, page, arguments)
	if err != nil {
		return err
	}

	if showPagination && props.PaginationRows > 0 {
		count, err := query.Count(ctx)
		if err != nil {
			return errors.Wrapf(err, "count %s", model.Name())
		}
		rows := count - props.PaginationOffset
		if rows < 0 {
			rows = 0
		}
		pages = int(math.Ceil(float64(rows) / float64(props.PaginationRows)))
		if pages < 1 {
			pages = 1
		}
		if page > pages {
			page = pages
			query.SetLimit(props.PaginationRows, pageOffset(props, page))
		}
		if props.UseAjaxForPagination && wc.isXHR() {
			wc.Response.ContentOnly = true
		}
	}

	entries, err := query.Find(ctx)
	if err != nil {
		return err
	}
	result, err := w.services.Content.GetContentForEntries(ctx, model, entries, wc.Node.RootNodeID(), wc.Locale, props.ContentMapper, w.formats(model, props))
	if err != nil {
		return err
	}
	log.WithFields(logrus.Fields{"widget": wc.ID, "model": model.Name(), "entries": len(result), "page": page}).Debug("overview queried")

	if len(result) == 0 && !props.EmptyResultView {
		w.autoCache(wc)
		return nil
	}

	data := view.OverviewData{
		Locale:     wc.Locale,
		WidgetID:   wc.ID,
		Result:     result,
		Properties: props,
		Filters:    states,
		Arguments:  values,
	}
	if showPagination {
		data.Pagination = view.NewPagination(pages, page)
		data.Pagination.Href = paginationHref(wc.Request)
	}
	if props.ShowMore && props.MoreNode != "" {
		node, err := w.services.Nodes.GetNode(ctx, props.MoreNode)
		if err != nil {
			log.WithFields(logrus.Fields{"widget": wc.ID, "node": props.MoreNode}).Warn("more node not found")
		} else {
			data.MoreURL = wc.BaseScript + node.Route(wc.Locale)
		}
	}
	if len(states) > 0 {
		if err := w.services.Filters.SetVariables(ctx, model, states, wc.Locale, wc.NodeURL()); err != nil {
			return err
		}
	}

	v := w.services.Views.Overview(props.Template).NewView(data)
	if err := w.processView(props, v); err != nil {
		return err
	}

	w.autoCache(wc)
	wc.Response.View = v
	return nil
}

func (w *ormWidget) autoCache(wc *Context) {
	if wc.Properties.IsAutoCache() {
		wc.Properties.SetCache(true)
		wc.Properties.SetCacheTTL(autoCacheTTL)
	}
}

// pageOffset returns the offset of the first entry of page.
func pageOffset(props *cms.ContentProperties, page int) int {
	if page < 1 {
		page = 1
	}
	return (page-1)*props.PaginationRows + props.PaginationOffset
}

// parseArguments binds the URL arguments to the configured parameters.
// Named parameters come as name/value pairs, numbered parameters are bound
// as 1..n. ok is false when the arguments do not fit the parameters.
func (w *OverviewWidget) parseArguments(props *cms.ContentProperties, args []string) (map[string]interface{}, []string, bool) {
	arguments := make(map[string]interface{})
	parameters := props.Parameters
	if !parameters.IsSet() {
		return arguments, nil, true
	}
	if len(args) != parameters.Expected() {
		return nil, nil, false
	}

	if !parameters.IsNamed() {
		values := make([]string, len(args))
		for i, arg := range args {
			values[i] = unescape(arg)
			arguments[strconv.Itoa(i+1)] = values[i]
		}
		return arguments, values, true
	}

	named := make(map[string]string, len(parameters.Names))
	for i := 0; i+1 < len(args); i += 2 {
		named[args[i]] = unescape(args[i+1])
	}
	values := make([]string, 0, len(parameters.Names))
	for _, name := range parameters.Names {
		value, ok := named[name]
		if !ok {
			return nil, nil, false
		}
		arguments[name] = value
		values = append(values, value)
	}
	return arguments, values, true
}

func unescape(s string) string {
	if v, err := url.QueryUnescape(s); err == nil {
		return v
	}
	return s
}

// ModelQuery builds the query of the overview for page. It returns the
// filter states read from the request.
func (w *OverviewWidget) ModelQuery(wc *Context, model *orm.Model, props *cms.ContentProperties, page int, arguments map[string]interface{}) (*orm.Query, filter.States, error) {
	query := w.createQuery(model, props, wc.Locale, wc.Request)

	if props.Condition != "" {
		vars, err := w.ParseContextVariables(wc, props.Condition, arguments)
		if err != nil {
			return nil, nil, err
		}
		if len(vars) > 0 {
			query.AddConditionWithVariables(props.Condition, vars)
		} else {
			query.AddCondition(props.Condition)
		}
	}

	states := filter.NewStates(props.Filters, wc.query())
	if len(states) > 0 {
		if err := w.services.Filters.Apply(model, query, states); err != nil {
			return nil, nil, err
		}
	}

	if props.Order != "" {
		query.AddOrderBy(props.Order)
	}

	if props.PaginationEnabled && props.PaginationRows > 0 {
		query.SetLimit(props.PaginationRows, pageOffset(props, page))
	}
	return query, states, query.Err()
}

// ParseContextVariables adds the %context.<key>.<property>...% variables of
// condition to arguments. The key is looked up in the page context, the
// properties on the value found.
func (w *OverviewWidget) ParseContextVariables(wc *Context, condition string, arguments map[string]interface{}) (map[string]interface{}, error) {
	if !strings.Contains(condition, "%context") {
		return arguments, nil
	}
	vars := make(map[string]interface{}, len(arguments))
	for k, v := range arguments {
		vars[k] = v
	}

	for _, variable := range contextVariable.FindAllString(condition, -1) {
		name := strings.Trim(variable, "%")
		tokens := strings.Split(name, ".")[1:]
		if len(tokens) == 0 || tokens[0] == "" {
			return nil, errors.Wrap(ErrContextVariable, variable)
		}

		value := wc.Page.Get(tokens[0])
		for _, token := range tokens[1:] {
			if value == nil {
				break
			}
			value, _ = w.reflection.GetProperty(value, token)
		}
		if value == nil {
			return nil, errors.Wrap(ErrContextVariable, variable)
		}
		vars[name] = value
	}
	return vars, nil
}

// paginationHref returns the URL of r with the page parameter replaced by
// the page placeholder.
func paginationHref(r *http.Request) string {
	if r == nil || r.URL == nil {
		return "?" + ParamPage + "=" + view.PagePlaceholder
	}
	var rest []string
	for _, part := range strings.Split(r.URL.RawQuery, "&") {
		if part == "" || part == ParamPage || strings.HasPrefix(part, ParamPage+"=") {
			continue
		}
		rest = append(rest, part)
	}
	href := r.URL.Path + "?" + ParamPage + "=" + view.PagePlaceholder
	if len(rest) > 0 {
		href += "&" + strings.Join(rest, "&")
	}
	return href
}

// PropertiesPreview summarizes the settings for the node editor.
func (w *OverviewWidget) PropertiesPreview(wc *Context) string {
	props := w.contentProperties(wc)
	if props.ModelName == "" {
		return w.translate("label.widget.properties.unset", nil)
	}

	var b strings.Builder
	line := func(label, value string) {
		b.WriteString(w.translate(label, nil) + ": " + value + "<br />")
	}
	line("label.model", props.ModelName)
	if len(props.ModelFields) > 0 {
		line("label.fields", strings.Join(props.ModelFields, ", "))
	}
	line("label.depth.recursive", strconv.Itoa(props.RecursiveDepth))
	line("label.unlocalized", w.yesNo(props.IncludeUnlocalized))
	if props.Condition != "" {
		line("label.condition", props.Condition)
	}
	if len(props.Filters) > 0 {
		filters := make([]string, len(props.Filters))
		for i, f := range props.Filters {
			filters[i] = f.Field + " (" + f.Type + ")"
		}
		line("label.filters", strings.Join(filters, ", "))
	}
	if props.Order != "" {
		line("label.order", props.Order)
	}
	if props.PaginationEnabled {
		b.WriteString(w.translate("label.pagination.description", map[string]string{
			"rows":   strconv.Itoa(props.PaginationRows),
			"offset": strconv.Itoa(props.PaginationOffset),
		}) + "<br />")
	}
	if props.Template != "" {
		line("label.view", props.Template)
	}
	return b.String()
}

func (w *ormWidget) yesNo(v bool) string {
	if v {
		return w.translate("label.yes", nil)
	}
	return w.translate("label.no", nil)
}

// SaveProperties stores props on the widget for the locale of wc. The
// content mappers are rebuilt on next use.
func (w *ormWidget) SaveProperties(wc *Context, props *cms.ContentProperties) {
	props.ToWidgetProperties(wc.Properties, wc.Locale)
	if w.services.Content != nil {
		w.services.Content.Invalidate()
	}
}
