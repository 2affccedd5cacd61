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
	"encoding/json"
	"fmt"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"github.com/tomoncle/ormcms/types"
)

func newFieldsCmd(opts *rootOptions) *cobra.Command {
	var (
		kind  string
		depth int
	)
	cmd := &cobra.Command{
		Use:   "fields <model>",
		Short: "List the field options of a model",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := opts.loadConfig()
			if err != nil {
				return err
			}
			app, err := opts.open(cmd.Context(), cfg)
			if err != nil {
				return err
			}
			defer func() { _ = app.Close() }()

			var fields types.Options
			switch kind {
			case "select":
				fields, err = app.Fields.GetFields(args[0], false, false, depth)
			case "order":
				fields, err = app.Fields.GetFields(args[0], true, false, depth)
			case "unique":
				fields, err = app.Fields.GetUniqueFields(args[0])
			case "relation":
				fields, err = app.Fields.GetRelationFields(args[0])
			default:
				return errors.Errorf("unknown field kind %q", kind)
			}
			if err != nil {
				return err
			}
			for _, field := range fields {
				fmt.Fprintf(cmd.OutOrStdout(), "%s\t%s\n", field.Value, field.Label)
			}
			return nil
		},
	}
	cmd.Flags().StringVarP(&kind, "kind", "k", "select", "select, order, unique or relation")
	cmd.Flags().IntVar(&depth, "depth", 1, "recursive depth of relation fields")
	return cmd
}

func newContentCmd(opts *rootOptions) *cobra.Command {
	var locale, site string
	cmd := &cobra.Command{
		Use:   "content <model> <id>",
		Short: "Print the generic content of an entry as JSON",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := opts.loadConfig()
			if err != nil {
				return err
			}
			if locale == "" {
				locale = cfg.DefaultLocale
			}
			ctx := cmd.Context()
			app, err := opts.open(ctx, cfg)
			if err != nil {
				return err
			}
			defer func() { _ = app.Close() }()

			model, err := app.Manager.Model(args[0])
			if err != nil {
				return err
			}
			c, err := app.Content.GetContentForID(ctx, model, args[1], site, locale)
			if err != nil {
				return err
			}
			if c == nil {
				return errors.Errorf("%s %s not found", model.Name(), args[1])
			}
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(c)
		},
	}
	cmd.Flags().StringVarP(&locale, "locale", "l", "", "locale of the entry, defaults to default_locale")
	cmd.Flags().StringVar(&site, "site", "", "site node id")
	return cmd
}
