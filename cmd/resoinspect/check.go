// Copyright 2020-2021 Dolthub, Inc.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package main

import (
	"github.com/spf13/cobra"

	"github.com/nburtsev/resoto/report"
)

func checkCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "check",
		Short: "List checks and their failing resources",
	}
	cmd.AddCommand(checkListCmd(), checkFailingCmd())
	return cmd
}

func checkListCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List every known check matching the filter",
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, err := newRuntime()
			if err != nil {
				return err
			}
			defer rt.close()

			filter := report.ChecksFilter{}
			filter.Provider, _ = cmd.Flags().GetString("provider")
			filter.Service, _ = cmd.Flags().GetString("service")
			filter.Category, _ = cmd.Flags().GetString("category")
			filter.Kind, _ = cmd.Flags().GetString("kind")

			checks, err := rt.engine.ListChecks(cmd.Context(), rt.session, filter)
			if err != nil {
				return err
			}

			type row struct {
				ID       string `json:"id"`
				Title    string `json:"title"`
				Severity string `json:"severity"`
				Provider string `json:"provider,omitempty"`
				Service  string `json:"service,omitempty"`
			}
			rows := make([]row, 0, len(checks))
			for _, c := range checks {
				rows = append(rows, row{
					ID: c.Id, Title: c.Title, Severity: c.Severity.String(),
					Provider: c.Provider, Service: c.Service,
				})
			}
			return printJSON(rows)
		},
	}
	cmd.Flags().String("provider", "", "only checks for this cloud provider")
	cmd.Flags().String("service", "", "only checks for this service")
	cmd.Flags().String("category", "", "only checks in this category")
	cmd.Flags().String("kind", "", "only checks detecting on this resource kind")
	return cmd
}

func checkFailingCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "failing <check-id>",
		Short: "List the resources currently failing one check",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, err := newRuntime()
			if err != nil {
				return err
			}
			defer rt.close()

			checkCtx := report.NewCheckContext()
			checkCtx.Accounts, _ = cmd.Flags().GetStringSlice("accounts")

			rows, err := rt.engine.ListFailingResources(cmd.Context(), rt.session, args[0], checkCtx)
			if err != nil {
				return err
			}
			return printJSON(rows)
		},
	}
	cmd.Flags().StringSlice("accounts", nil, "restrict to these account ids")
	return cmd
}

func searchCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "search <query>",
		Short: "Run a raw search against the graph snapshot",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, err := newRuntime()
			if err != nil {
				return err
			}
			defer rt.close()

			cursor, err := rt.engine.Search(cmd.Context(), rt.session, args[0], nil)
			if err != nil {
				return err
			}
			defer cursor.Close()

			var rows []map[string]interface{}
			for {
				row, ok, err := cursor.Next(cmd.Context())
				if err != nil {
					return err
				}
				if !ok {
					break
				}
				rows = append(rows, row)
			}
			return printJSON(rows)
		},
	}
}
