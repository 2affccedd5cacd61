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

package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"sync/atomic"
	"time"

	"github.com/fatih/color"
	"github.com/uptrace/bun"
)

var silentQueries atomic.Bool

// SetQueriesSilent mutes the query hooks, used while migrations run.
func SetQueriesSilent(b bool) {
	silentQueries.Store(b)
}

var operationColors = map[string]color.Attribute{
	"SELECT": color.FgGreen,
	"INSERT": color.FgBlue,
	"UPDATE": color.FgYellow,
	"DELETE": color.FgMagenta,
}

func colorQuery(event *bun.QueryEvent, background bool) string {
	fg, ok := operationColors[event.Operation()]
	if !ok {
		fg = color.FgRed
	}
	c := color.New(fg)
	if background {
		c = c.Add(color.BgBlack)
	}
	return c.Sprint(event.Query)
}

// QueryHook prints every query (verbose) or only failed queries to a writer.
type QueryHook struct {
	verbose bool
	writer  io.Writer
}

var _ bun.QueryHook = (*QueryHook)(nil)

func NewQueryHook(verbose bool, w io.Writer) *QueryHook {
	return &QueryHook{verbose: verbose, writer: w}
}

func (h *QueryHook) BeforeQuery(ctx context.Context, event *bun.QueryEvent) context.Context {
	return ctx
}

func (h *QueryHook) AfterQuery(ctx context.Context, event *bun.QueryEvent) {
	if silentQueries.Load() {
		return
	}
	if !h.verbose {
		switch {
		case event.Err == nil, errors.Is(event.Err, sql.ErrNoRows), errors.Is(event.Err, sql.ErrTxDone):
			return
		}
	}

	dur := time.Since(event.StartTime)
	line := []interface{}{
		time.Now().Format("2006-01-02 15:04:05.000"),
		color.CyanString("%-10s", "[BUN]"),
		fmt.Sprintf("%12s", dur.Round(time.Microsecond)),
		colorQuery(event, false),
	}
	if event.Err != nil {
		line = append(line, color.New(color.BgRed).Sprintf(" %T: %s ", event.Err, event.Err.Error()))
	}
	_, _ = fmt.Fprintln(h.writer, line...)
}

// SlowQueryHook prints successful queries slower than a threshold.
type SlowQueryHook struct {
	threshold time.Duration
	writer    io.Writer
}

var _ bun.QueryHook = (*SlowQueryHook)(nil)

func NewSlowQueryHook(threshold time.Duration, w io.Writer) *SlowQueryHook {
	return &SlowQueryHook{threshold: threshold, writer: w}
}

func (h *SlowQueryHook) BeforeQuery(ctx context.Context, event *bun.QueryEvent) context.Context {
	return ctx
}

func (h *SlowQueryHook) AfterQuery(ctx context.Context, event *bun.QueryEvent) {
	if silentQueries.Load() || event.Err != nil {
		return
	}
	dur := time.Since(event.StartTime)
	if dur <= h.threshold {
		return
	}
	_, _ = fmt.Fprintln(h.writer,
		time.Now().Format("2006-01-02 15:04:05.000"),
		color.YellowString("%-10s", "[BUN_SLOW]"),
		fmt.Sprintf("%12s", dur.Round(time.Microsecond)),
		colorQuery(event, true),
		color.New(color.Faint).Sprint("> "+h.threshold.String()),
	)
}
