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

package utils

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
)

type Logger = logrus.Logger

const timestampFormat = "2006-01-02 15:04:05.000"

// LogOptions configures every logger created by NewLogger.
type LogOptions struct {
	Level         string `yaml:"level" mapstructure:"level"`
	ConsoleFormat string `yaml:"console_format" mapstructure:"console_format"` // text or json
	FileEnabled   bool   `yaml:"file_enabled" mapstructure:"file_enabled"`
	FileFormat    string `yaml:"file_format" mapstructure:"file_format"`
	FileDir       string `yaml:"file_dir" mapstructure:"file_dir"`
	FileMaxAge    int    `yaml:"file_max_age_days" mapstructure:"file_max_age_days"`
}

var (
	optionsMu sync.RWMutex
	options   = LogOptions{
		Level:         EnvDefaultString("LOG_LEVEL", "info"),
		ConsoleFormat: EnvDefaultString("CONSOLE_LOG_FORMAT", "text"),
		FileEnabled:   EnvDefaultBool("FILE_LOG_ENABLED", false),
		FileFormat:    EnvDefaultString("FILE_LOG_FORMAT", "text"),
		FileDir:       "logs",
	}

	registryMu sync.RWMutex
	registry   = map[string]*logrus.Logger{}
	consoleOut io.Writer = os.Stdout
)

// ConfigureLogging replaces the global log options and re-applies the level
// to every registered logger. Loggers created afterwards pick up the formats.
func ConfigureLogging(opts LogOptions) {
	optionsMu.Lock()
	if opts.FileDir == "" {
		opts.FileDir = "logs"
	}
	options = opts
	optionsMu.Unlock()
	ConfigureLogLevel(opts.Level)
}

// ConfigureLogLevel sets the level of every registered logger.
func ConfigureLogLevel(level string) {
	lvl := ParseLogLevel(level)
	optionsMu.Lock()
	options.Level = level
	optionsMu.Unlock()

	registryMu.RLock()
	defer registryMu.RUnlock()
	for _, l := range registry {
		l.SetLevel(lvl)
	}
}

// SetLoggerLevel changes the level of a single named logger.
func SetLoggerLevel(name string, level string) bool {
	registryMu.RLock()
	l, ok := registry[name]
	registryMu.RUnlock()
	if !ok {
		return false
	}
	l.SetLevel(ParseLogLevel(level))
	return true
}

// SetConsoleOutput redirects console output of all loggers. A nil writer
// restores stdout.
func SetConsoleOutput(w io.Writer) {
	registryMu.Lock()
	defer registryMu.Unlock()
	if w == nil {
		w = os.Stdout
	}
	consoleOut = w
}

func ParseLogLevel(s string) logrus.Level {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "trace":
		return logrus.TraceLevel
	case "debug":
		return logrus.DebugLevel
	case "warn", "warning":
		return logrus.WarnLevel
	case "error":
		return logrus.ErrorLevel
	case "fatal":
		return logrus.FatalLevel
	case "panic":
		return logrus.PanicLevel
	default:
		return logrus.InfoLevel
	}
}

// NewLogger returns the named logger, creating and registering it on first use.
func NewLogger(name string) *logrus.Logger {
	registryMu.RLock()
	if l, ok := registry[name]; ok {
		registryMu.RUnlock()
		return l
	}
	registryMu.RUnlock()

	optionsMu.RLock()
	opts := options
	optionsMu.RUnlock()

	l := logrus.New()
	l.SetOutput(io.Discard)
	l.SetLevel(ParseLogLevel(opts.Level))
	l.SetReportCaller(true)
	l.SetFormatter(newFormatter(name, opts.ConsoleFormat, true))
	l.AddHook(&consoleHook{formatter: l.Formatter})
	if opts.FileEnabled {
		l.AddHook(&fileHook{
			formatter: newFormatter(name, opts.FileFormat, false),
			writer:    &dailyFileWriter{dir: opts.FileDir, name: strings.ToLower(name), maxAgeDays: opts.FileMaxAge},
		})
	}

	registryMu.Lock()
	defer registryMu.Unlock()
	if existing, ok := registry[name]; ok {
		return existing
	}
	registry[name] = l
	return l
}

func newFormatter(name, format string, color bool) logrus.Formatter {
	if strings.EqualFold(strings.TrimSpace(format), "json") {
		return &JSONFormatter{LoggerName: name}
	}
	return &TextFormatter{LoggerName: name, Color: color, NameWidth: 8}
}

type consoleHook struct {
	formatter logrus.Formatter
}

func (h *consoleHook) Levels() []logrus.Level { return logrus.AllLevels }

func (h *consoleHook) Fire(e *logrus.Entry) error {
	b, err := h.formatter.Format(e)
	if err != nil {
		return err
	}
	registryMu.RLock()
	w := consoleOut
	registryMu.RUnlock()
	_, err = w.Write(b)
	return err
}

type fileHook struct {
	formatter logrus.Formatter
	writer    io.Writer
}

func (h *fileHook) Levels() []logrus.Level { return logrus.AllLevels }

func (h *fileHook) Fire(e *logrus.Entry) error {
	b, err := h.formatter.Format(e)
	if err != nil {
		return err
	}
	_, err = h.writer.Write(b)
	return err
}

// dailyFileWriter writes to <dir>/<yyyy-mm-dd>/<name>.log and removes day
// directories older than maxAgeDays when the day rolls over.
type dailyFileWriter struct {
	dir        string
	name       string
	maxAgeDays int

	mu   sync.Mutex
	day  string
	file *os.File
}

func (w *dailyFileWriter) Write(p []byte) (int, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	today := time.Now().Format("2006-01-02")
	if w.file == nil || w.day != today {
		if w.file != nil {
			_ = w.file.Close()
		}
		dir := filepath.Join(w.dir, today)
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return 0, err
		}
		f, err := os.OpenFile(filepath.Join(dir, w.name+".log"), os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
		if err != nil {
			return 0, err
		}
		w.file, w.day = f, today
		w.prune()
	}
	return w.file.Write(p)
}

func (w *dailyFileWriter) prune() {
	if w.maxAgeDays <= 0 {
		return
	}
	cutoff := time.Now().AddDate(0, 0, -w.maxAgeDays)
	entries, err := os.ReadDir(w.dir)
	if err != nil {
		return
	}
	for _, e := range entries {
		d, err := time.ParseInLocation("2006-01-02", e.Name(), time.Local)
		if err != nil || !e.IsDir() {
			continue
		}
		if d.Before(cutoff) {
			_ = os.RemoveAll(filepath.Join(w.dir, e.Name()))
		}
	}
}

// TextFormatter renders log4j style lines:
// 2006-01-02 15:04:05.000   INFO 1234 - [ORM     ] file.go:12 : message key=value
type TextFormatter struct {
	LoggerName string
	Color      bool
	NameWidth  int
}

func (f *TextFormatter) Format(e *logrus.Entry) ([]byte, error) {
	var b strings.Builder
	lvl := fmt.Sprintf("%7s", strings.ToUpper(e.Level.String()))
	name := fmt.Sprintf("[%-*s]", f.NameWidth, f.LoggerName)
	caller := ""
	if e.Caller != nil {
		caller = fmt.Sprintf(" %s:%d", filepath.Base(e.Caller.File), e.Caller.Line)
	}
	if f.Color {
		lvl = levelColor(e.Level) + lvl + ansiReset
		name = ansiCyan + name + ansiReset
		caller = ansiFaint + caller + ansiReset
	}
	b.WriteString(e.Time.Format(timestampFormat))
	b.WriteString(" ")
	b.WriteString(lvl)
	b.WriteString(" ")
	b.WriteString(strconv.Itoa(os.Getpid()))
	b.WriteString(" - ")
	b.WriteString(name)
	b.WriteString(caller)
	b.WriteString(" : ")
	b.WriteString(e.Message)
	for _, k := range sortedKeys(e.Data) {
		fmt.Fprintf(&b, " %s=%v", k, e.Data[k])
	}
	b.WriteByte('\n')
	return []byte(b.String()), nil
}

// JSONFormatter renders one JSON object per line.
type JSONFormatter struct {
	LoggerName string
}

func (f *JSONFormatter) Format(e *logrus.Entry) ([]byte, error) {
	rec := struct {
		Time    string                 `json:"time"`
		Level   string                 `json:"level"`
		Logger  string                 `json:"logger"`
		Caller  string                 `json:"caller,omitempty"`
		Message string                 `json:"message"`
		Fields  map[string]interface{} `json:"fields,omitempty"`
	}{
		Time:    e.Time.Format(timestampFormat),
		Level:   e.Level.String(),
		Logger:  f.LoggerName,
		Message: e.Message,
	}
	if e.Caller != nil {
		rec.Caller = fmt.Sprintf("%s:%d", filepath.Base(e.Caller.File), e.Caller.Line)
	}
	if len(e.Data) > 0 {
		rec.Fields = make(map[string]interface{}, len(e.Data))
		for k, v := range e.Data {
			if err, ok := v.(error); ok {
				v = err.Error()
			}
			rec.Fields[k] = v
		}
	}
	b, err := json.Marshal(rec)
	if err != nil {
		return nil, err
	}
	return append(b, '\n'), nil
}

const (
	ansiReset  = "\x1b[0m"
	ansiFaint  = "\x1b[2m"
	ansiRed    = "\x1b[31m"
	ansiGreen  = "\x1b[32m"
	ansiYellow = "\x1b[33m"
	ansiBlue   = "\x1b[34m"
	ansiPurple = "\x1b[35m"
	ansiCyan   = "\x1b[36m"
)

func levelColor(level logrus.Level) string {
	switch level {
	case logrus.ErrorLevel, logrus.FatalLevel, logrus.PanicLevel:
		return ansiRed
	case logrus.WarnLevel:
		return ansiYellow
	case logrus.InfoLevel:
		return ansiGreen
	case logrus.DebugLevel:
		return ansiBlue
	default:
		return ansiPurple
	}
}

func sortedKeys(m logrus.Fields) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func EnvDefaultString(key string, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func EnvDefaultBool(key string, def bool) bool {
	if v := os.Getenv(key); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return def
		}
		return b
	}
	return def
}
