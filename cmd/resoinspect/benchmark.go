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

func benchmarkCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "benchmark",
		Short: "List, run and load benchmarks",
	}
	cmd.AddCommand(benchmarkListCmd(), benchmarkRunCmd(), benchmarkLoadCmd())
	return cmd
}

func benchmarkListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List every known benchmark",
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, err := newRuntime()
			if err != nil {
				return err
			}
			defer rt.close()

			benchmarks, err := rt.engine.ListBenchmarks(cmd.Context(), rt.session)
			if err != nil {
				return err
			}

			type row struct {
				ID        string   `json:"id"`
				Title     string   `json:"title"`
				Framework string   `json:"framework,omitempty"`
				Version   string   `json:"version,omitempty"`
				Clouds    []string `json:"clouds,omitempty"`
			}
			rows := make([]row, 0, len(benchmarks))
			for _, b := range benchmarks {
				rows = append(rows, row{
					ID: b.Id, Title: b.Title,
					Framework: b.Framework, Version: b.Version, Clouds: b.Clouds,
				})
			}
			return printJSON(rows)
		},
	}
}

// checkContextFromFlags builds the CheckContext shared by the run/load
// subcommands.
func checkContextFromFlags(cmd *cobra.Command) report.CheckContext {
	checkCtx := report.NewCheckContext()
	checkCtx.Accounts, _ = cmd.Flags().GetStringSlice("accounts")
	checkCtx.OnlyFailed, _ = cmd.Flags().GetBool("only-failing")
	if n, _ := cmd.Flags().GetInt("parallel"); n > 0 {
		checkCtx.ParallelChecks = n
	}
	if name, _ := cmd.Flags().GetString("severity"); name != "" {
		severity := report.ParseSeverity(name)
		checkCtx.Severity = &severity
	}
	return checkCtx
}

func addRunFlags(cmd *cobra.Command) {
	cmd.Flags().StringSlice("accounts", nil, "restrict the run to these account ids")
	cmd.Flags().String("severity", "", "only evaluate checks at or above this severity")
	cmd.Flags().Bool("only-failing", false, "keep only failing checks in the result tree")
	cmd.Flags().Int("parallel", 0, "how many checks to evaluate concurrently")
}

func benchmarkRunCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run <benchmark>...",
		Short: "Evaluate benchmarks against the graph snapshot",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, err := newRuntime()
			if err != nil {
				return err
			}
			defer rt.close()

			sync, _ := cmd.Flags().GetBool("sync-security-section")
			runID, _ := cmd.Flags().GetString("run-id")

			results, err := rt.engine.PerformBenchmarks(cmd.Context(), rt.session,
				args, checkContextFromFlags(cmd), sync, runID)
			if err != nil {
				return err
			}
			return printJSON(results)
		},
	}
	addRunFlags(cmd)
	cmd.Flags().Bool("sync-security-section", false, "materialize findings back onto the graph nodes")
	cmd.Flags().String("run-id", "", "token tagging this materialization pass, random when unset")
	return cmd
}

func benchmarkLoadCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "load <benchmark>...",
		Short: "Rebuild benchmark results from findings already on the graph",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, err := newRuntime()
			if err != nil {
				return err
			}
			defer rt.close()

			results, err := rt.engine.LoadBenchmarks(cmd.Context(), rt.session,
				args, checkContextFromFlags(cmd))
			if err != nil {
				return err
			}
			return printJSON(results)
		},
	}
	addRunFlags(cmd)
	return cmd
}
