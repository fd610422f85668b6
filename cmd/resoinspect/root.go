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
	"encoding/json"
	"os"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	resoto "github.com/nburtsev/resoto"
	"github.com/nburtsev/resoto/auth"
	"github.com/nburtsev/resoto/graphdb"
	"github.com/nburtsev/resoto/parse"
	"github.com/nburtsev/resoto/report"
	"github.com/nburtsev/resoto/store"
)

func rootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:           "resoinspect",
		Short:         "Evaluate security benchmarks against a resource graph snapshot",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	flags := cmd.PersistentFlags()
	flags.String("config", "", "config file (default resoinspect.yaml in the working directory)")
	flags.String("graph", "", "graph snapshot file (JSON)")
	flags.String("store", "", "config store database file for user-defined benchmarks")
	flags.String("users", "", "user file gating engine operations (JSON)")
	flags.String("user", "", "user to run operations as")
	flags.String("password", "", "password for --user")

	cobra.OnInitialize(func() {
		if cfg, _ := flags.GetString("config"); cfg != "" {
			viper.SetConfigFile(cfg)
		} else {
			viper.SetConfigName("resoinspect")
			viper.SetConfigType("yaml")
			viper.AddConfigPath(".")
		}
		viper.SetEnvPrefix("RESOINSPECT")
		viper.AutomaticEnv()
		_ = viper.ReadInConfig()
	})
	_ = viper.BindPFlag("graph", flags.Lookup("graph"))
	_ = viper.BindPFlag("store", flags.Lookup("store"))
	_ = viper.BindPFlag("users", flags.Lookup("users"))
	_ = viper.BindPFlag("user", flags.Lookup("user"))
	_ = viper.BindPFlag("password", flags.Lookup("password"))

	cmd.AddCommand(benchmarkCmd(), checkCmd(), searchCmd())
	return cmd
}

// runtime bundles everything a subcommand needs for one invocation.
type runtime struct {
	engine  *resoto.Engine
	session auth.Session
	closers []func() error
}

func (r *runtime) close() {
	for _, c := range r.closers {
		_ = c()
	}
}

// newRuntime builds the engine out of the configured graph snapshot,
// config store and user file, and opens the session operations run under.
func newRuntime() (*runtime, error) {
	handle, err := loadGraph(viper.GetString("graph"))
	if err != nil {
		return nil, err
	}

	rt := &runtime{}

	var configStore report.ConfigStore
	if path := viper.GetString("store"); path != "" {
		s, err := store.Open(path)
		if err != nil {
			return nil, err
		}
		rt.closers = append(rt.closers, s.Close)
		configStore = s
	}

	var a auth.Auth = new(auth.None)
	if usersFile := viper.GetString("users"); usersFile != "" {
		native, err := auth.NewNativeFile(usersFile)
		if err != nil {
			rt.close()
			return nil, err
		}
		a = native
	}

	rt.engine = resoto.New(handle, configStore, parse.Expander{}, nil, &resoto.Config{Auth: a})

	user := viper.GetString("user")
	if _, isNone := a.(*auth.None); isNone {
		if user == "" {
			user = "resoinspect"
		}
		rt.session = rt.engine.NewSession(user, "")
		return rt, nil
	}

	rt.session, err = rt.engine.Authenticate(user, viper.GetString("password"), "")
	if err != nil {
		rt.close()
		return nil, err
	}
	return rt, nil
}

// graphDoc is the snapshot file format: a flat node list plus an edge list.
type graphDoc struct {
	Nodes []struct {
		ID   string                 `json:"id"`
		Kind string                 `json:"kind"`
		Data map[string]interface{} `json:"data"`
	} `json:"nodes"`
	Edges []struct {
		From     string `json:"from"`
		To       string `json:"to"`
		EdgeType string `json:"edge_type"`
	} `json:"edges"`
}

func loadGraph(path string) (*graphdb.MemoryHandle, error) {
	if path == "" {
		return nil, errors.New("no graph snapshot given, use --graph")
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(err, "reading graph snapshot")
	}
	var doc graphDoc
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, errors.Wrap(err, "decoding graph snapshot")
	}

	handle := graphdb.NewMemoryHandle()
	for _, n := range doc.Nodes {
		handle.AddNode(n.ID, n.Kind, n.Data)
	}
	for _, e := range doc.Edges {
		edgeType := e.EdgeType
		if edgeType == "" {
			edgeType = "default"
		}
		handle.AddEdge(e.From, e.To, edgeType)
	}
	return handle, nil
}

func printJSON(v interface{}) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
