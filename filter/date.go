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

package filter

import (
	"context"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/tomoncle/ormcms/orm"
	"github.com/tomoncle/ormcms/types"
)

// ParsePeriod converts a filter value to a time range. A single value is a
// year (2025), a month (2025-01) or a day (2025-01-31) and covers that whole
// period; two values are the start of the first and the end of the second.
func ParsePeriod(value []string, loc *time.Location) (from, until time.Time, err error) {
	values := nonEmpty(value)
	switch len(values) {
	case 0:
		return from, until, errors.New("empty period")
	case 1:
		if from, until, err = period(values[0], loc); err != nil {
			return
		}
	default:
		if from, _, err = period(values[0], loc); err != nil {
			return
		}
		if _, until, err = period(values[1], loc); err != nil {
			return
		}
	}
	return from, until, nil
}

func period(value string, loc *time.Location) (time.Time, time.Time, error) {
	tokens := strings.Split(strings.TrimSpace(value), "-")
	numbers := make([]int, len(tokens))
	for i, token := range tokens {
		n, err := strconv.Atoi(token)
		if err != nil || len(tokens) > 3 {
			return time.Time{}, time.Time{}, errors.Errorf("invalid period %q", value)
		}
		numbers[i] = n
	}

	var from, until time.Time
	switch len(numbers) {
	case 3:
		from = time.Date(numbers[0], time.Month(numbers[1]), numbers[2], 0, 0, 0, 0, loc)
		until = from.AddDate(0, 0, 1)
	case 2:
		from = time.Date(numbers[0], time.Month(numbers[1]), 1, 0, 0, 0, 0, loc)
		until = from.AddDate(0, 1, 0)
	default:
		from = time.Date(numbers[0], time.January, 1, 0, 0, 0, 0, loc)
		until = from.AddDate(1, 0, 0)
	}
	return from, until.Add(-time.Second), nil
}

// DateFilter filters on a period of a date field.
type DateFilter struct {
	Location *time.Location
}

func NewDateFilter() *DateFilter {
	return &DateFilter{Location: time.UTC}
}

func (f *DateFilter) ApplyQuery(model *orm.Model, query *orm.Query, field string, value []string) (bool, error) {
	if !hasValue(value) {
		return false, nil
	}
	// an unparsable period is no filter
	from, until, err := ParsePeriod(value, f.Location)
	if err != nil {
		return false, nil
	}
	query.AddCondition("{"+field+"} >= %1%", from)
	query.AddCondition("{"+field+"} <= %1%", until)
	return true, query.Err()
}

func (f *DateFilter) SetVariables(ctx context.Context, states States, model *orm.Model, name, locale, baseURL string) error {
	state := states.Get(name)
	if state == nil {
		return nil
	}
	state.reset()
	state.Empty = states.URL(baseURL, name, nil, state.List)
	return nil
}

func hasValue(value []string) bool {
	_, ok := first(value)
	return ok
}

// CalendarFilter filters events whose period overlaps the requested period.
// Events without a stop date happen on their start date.
type CalendarFilter struct {
	DateFilter
	StartField string
	StopField  string
}

func NewCalendarFilter() *CalendarFilter {
	return &CalendarFilter{DateFilter: DateFilter{Location: time.UTC}, StartField: "dateStart", StopField: "dateStop"}
}

func (f *CalendarFilter) ApplyQuery(model *orm.Model, query *orm.Query, field string, value []string) (bool, error) {
	if !hasValue(value) {
		return false, nil
	}
	from, until, err := ParsePeriod(value, f.Location)
	if err != nil {
		return false, nil
	}
	start, stop := "{"+f.StartField+"}", "{"+f.StopField+"}"
	condition := "(" + stop + " IS NULL AND %1% <= " + start + " AND " + start + " <= %2%)" +
		" OR (" + stop + " IS NOT NULL AND ((%1% <= " + start + " AND " + start + " <= %2%)" +
		" OR (%1% <= " + stop + " AND " + stop + " <= %2%)" +
		" OR (" + start + " <= %1% AND %2% <= " + stop + ")))"
	query.AddCondition(condition, from, until)
	return true, query.Err()
}

// SetVariables offers the months with events, newest first.
func (f *CalendarFilter) SetVariables(ctx context.Context, states States, model *orm.Model, name, locale, baseURL string) error {
	state := states.Get(name)
	if state == nil {
		return nil
	}
	state.reset()
	state.Empty = states.URL(baseURL, name, nil, false)

	months, err := f.months(ctx, model, locale)
	if err != nil {
		return err
	}
	for _, month := range months {
		state.Options.Add(month, month)
		state.URLs[month] = states.URL(baseURL, name, []string{month}, false)
		state.Values[month] = month
	}
	return nil
}

func (f *CalendarFilter) months(ctx context.Context, model *orm.Model, locale string) ([]string, error) {
	entries, err := model.CreateQuery(locale).AddFields("{" + f.StartField + "}").Find(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "calendar months")
	}
	reflection := orm.NewReflectionHelper()
	seen := make(map[string]bool)
	var months []string
	for _, entry := range entries {
		value, ok := reflection.GetProperty(entry, f.StartField)
		if !ok {
			continue
		}
		t, ok := value.(time.Time)
		if !ok || t.IsZero() {
			continue
		}
		month := t.In(f.Location).Format("2006-01")
		if !seen[month] {
			seen[month] = true
			months = append(months, month)
		}
	}
	sort.Sort(sort.Reverse(sort.StringSlice(months)))
	return months, nil
}

// BooleanFilter filters on a flag being set.
type BooleanFilter struct{}

func NewBooleanFilter() *BooleanFilter {
	return &BooleanFilter{}
}

func (f *BooleanFilter) ApplyQuery(model *orm.Model, query *orm.Query, field string, value []string) (bool, error) {
	v, ok := first(value)
	if !ok || !truthy(v) {
		return false, nil
	}
	query.AddCondition("{"+field+"} = %1%", true)
	return true, query.Err()
}

// SetVariables offers one option, labelled with the filter name.
func (f *BooleanFilter) SetVariables(ctx context.Context, states States, model *orm.Model, name, locale, baseURL string) error {
	state := states.Get(name)
	if state == nil {
		return nil
	}
	state.reset()
	state.Options = types.Options{{Value: "1", Label: name}}
	state.URLs[name] = states.URL(baseURL, name, []string{"1"}, false)
	state.Values[name] = "1"
	state.Empty = states.URL(baseURL, name, nil, false)
	return nil
}

func truthy(v string) bool {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "", "0", "false", "no", "off":
		return false
	}
	return true
}
