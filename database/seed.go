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
	"bytes"
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"text/template"

	"github.com/uptrace/bun"
)

var seedOrderPattern = regexp.MustCompile(`^(\d+)_`)

// Seeder executes *.sql seed files from <path>/common followed by
// <path>/environments/<environment>.
type Seeder struct {
	db     *bun.DB
	cfg    SeedConfig
	logger Logger
}

// SeedFile is a discovered seed file.
type SeedFile struct {
	Path        string
	Name        string
	Order       int
	Environment string
}

func NewSeeder(db *bun.DB, cfg SeedConfig, logger Logger) *Seeder {
	if cfg.Path == "" {
		cfg.Path = "configs/sql"
	}
	if cfg.Environment == "" {
		cfg.Environment = "prod"
	}
	if logger == nil {
		logger = GetLogger()
	}
	return &Seeder{db: db, cfg: cfg, logger: logger}
}

// Run executes every seed file in its own transaction and stops at the first
// failing file.
func (s *Seeder) Run(ctx context.Context) error {
	files, err := s.Files()
	if err != nil {
		return err
	}
	if len(files) == 0 {
		s.logger.Info("No SQL seed files found", "path", s.cfg.Path)
		return nil
	}

	for _, file := range files {
		rows, err := s.executeFile(ctx, file)
		if err != nil {
			s.logger.Error("SQL seed file failed", "file", file.Path, "error", err)
			return fmt.Errorf("SQL seed file execution failed %s: %w", file.Path, err)
		}
		s.logger.Info("SQL seed file executed", "file", file.Path, "rows_affected", rows)
	}
	return nil
}

// Files lists the seed files, common files first, each group ordered by the
// numeric file name prefix.
func (s *Seeder) Files() ([]SeedFile, error) {
	common, err := s.filesFromDir(filepath.Join(s.cfg.Path, "common"), "common")
	if err != nil {
		return nil, fmt.Errorf("failed to get common SQL files: %w", err)
	}
	env, err := s.filesFromDir(filepath.Join(s.cfg.Path, "environments", s.cfg.Environment), s.cfg.Environment)
	if err != nil {
		return nil, fmt.Errorf("failed to get environment SQL files: %w", err)
	}
	return append(common, env...), nil
}

func (s *Seeder) filesFromDir(dir, environment string) ([]SeedFile, error) {
	if _, err := os.Stat(dir); os.IsNotExist(err) {
		return nil, nil
	}

	var files []SeedFile
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || !strings.HasSuffix(strings.ToLower(d.Name()), ".sql") {
			return nil
		}
		files = append(files, SeedFile{
			Path:        path,
			Name:        d.Name(),
			Order:       seedOrder(d.Name()),
			Environment: environment,
		})
		return nil
	})
	sort.SliceStable(files, func(i, j int) bool {
		if files[i].Order != files[j].Order {
			return files[i].Order < files[j].Order
		}
		return files[i].Name < files[j].Name
	})
	return files, err
}

func seedOrder(name string) int {
	if m := seedOrderPattern.FindStringSubmatch(name); len(m) > 1 {
		if n, err := strconv.Atoi(m[1]); err == nil {
			return n
		}
	}
	return 999
}

func (s *Seeder) executeFile(ctx context.Context, file SeedFile) (int64, error) {
	content, err := os.ReadFile(file.Path)
	if err != nil {
		return 0, fmt.Errorf("failed to read file: %w", err)
	}
	sql, err := s.expand(string(content))
	if err != nil {
		return 0, err
	}

	var total int64
	err = s.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		for _, stmt := range SplitStatements(sql) {
			res, err := tx.ExecContext(ctx, stmt)
			if err != nil {
				return fmt.Errorf("failed to execute SQL statement: %s, error: %w", stmt, err)
			}
			n, _ := res.RowsAffected()
			total += n
		}
		return nil
	})
	return total, err
}

// expand renders {{.ENV_NAME}} references with the process environment.
func (s *Seeder) expand(content string) (string, error) {
	if !strings.Contains(content, "{{") {
		return content, nil
	}
	tmpl, err := template.New("sql").Option("missingkey=zero").Parse(content)
	if err != nil {
		return "", fmt.Errorf("failed to parse SQL template: %w", err)
	}
	vars := map[string]string{}
	for _, kv := range os.Environ() {
		if k, v, ok := strings.Cut(kv, "="); ok {
			vars[k] = v
		}
	}
	vars["ENVIRONMENT"] = s.cfg.Environment
	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, vars); err != nil {
		return "", fmt.Errorf("failed to render SQL template: %w", err)
	}
	return buf.String(), nil
}

// SplitStatements splits a SQL script on statement terminating semicolons,
// skipping comment lines and quoted semicolons.
func SplitStatements(script string) []string {
	var (
		statements []string
		current    strings.Builder
		quote      rune
	)
	flush := func() {
		if stmt := strings.TrimSpace(current.String()); stmt != "" {
			statements = append(statements, stmt)
		}
		current.Reset()
	}

	for _, line := range strings.Split(script, "\n") {
		if quote == 0 && strings.HasPrefix(strings.TrimSpace(line), "--") {
			continue
		}
		for _, r := range line {
			switch {
			case quote != 0:
				if r == quote {
					quote = 0
				}
			case r == '\'' || r == '"':
				quote = r
			case r == ';':
				flush()
				continue
			}
			current.WriteRune(r)
		}
		current.WriteByte('\n')
	}
	flush()
	return statements
}
