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

package main

import (
	"fmt"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"github.com/tomoncle/ormcms/database"
)

func newMigrateCmd(opts *rootOptions) *cobra.Command {
	var seed bool
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Create the tables and apply pending migrations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := opts.loadConfig()
			if err != nil {
				return err
			}
			cfg.Database.MigrateConfig.EnableMigrateOnStartup = true
			if seed {
				cfg.Database.SeedConfig.EnableSeedOnMigrate = true
			}

			ctx := cmd.Context()
			app, err := opts.open(ctx, cfg)
			if err != nil {
				return err
			}
			defer func() { _ = app.Close() }()

			applied, err := database.NewMigrationManager(app.Factory.GetDB(), nil, nil).GetAppliedMigrations(ctx)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			version := color.New(color.FgGreen).SprintFunc()
			for _, m := range applied {
				fmt.Fprintf(out, "%s %s\n", version(m.Version), m.Name)
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&seed, "seed", false, "execute the SQL seed files after migrating")
	return cmd
}
