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

// Package driver exposes the inspector engine as a stdlib database/sql
// driver: a query is search text, a row is one resource projection of a
// matching graph node.
package driver

import (
	"context"
	"database/sql/driver"
	"fmt"
	"net/url"
	"sync"

	resoto "github.com/nburtsev/resoto"
)

// ScanKind indicates how values should be scanned.
type ScanKind int

const (
	// ScanAsString indicates values should be scanned as strings.
	//
	// Applies to the tags column.
	ScanAsString ScanKind = iota

	// ScanAsBytes indicates values should be scanned as byte arrays.
	//
	// Applies to the tags column.
	ScanAsBytes

	// ScanAsObject indicates values should be scanned as objects.
	//
	// Applies to the tags column.
	ScanAsObject

	// ScanAsStored indicates values should not be modified during scanning.
	//
	// Applies to the tags column.
	ScanAsStored
)

// Options for the driver
type Options struct {
	// Tags indicates how the tags column should be scanned
	Tags ScanKind
}

// Provider resolves engines from data source names.
type Provider interface {
	Resolve(name string) (string, *resoto.Engine, error)
}

// Driver exposes an engine as a stdlib SQL driver.
type Driver struct {
	provider Provider
	options  Options

	mu    sync.Mutex
	hosts map[*resoto.Engine]*engineHost
}

// New returns a driver using the specified provider.
func New(provider Provider, options Options) *Driver {
	return &Driver{
		provider: provider,
		options:  options,
	}
}

// Open returns a new connection to the engine.
func (d *Driver) Open(name string) (driver.Conn, error) {
	conn, err := d.OpenConnector(name)
	if err != nil {
		return nil, err
	}
	return conn.Connect(context.Background())
}

// OpenConnector calls the provider and returns a new connector.
func (d *Driver) OpenConnector(dsn string) (driver.Connector, error) {
	options := d.options // copy

	user := ""
	dsnURI, err := url.Parse(dsn)
	if err == nil {
		if dsnURI.User != nil {
			user = dsnURI.User.Username()
		}

		query := dsnURI.Query()
		qTags := query.Get("tagsAs")
		switch qTags {
		case "":
			// default
		case "object":
			options.Tags = ScanAsObject
		case "string":
			options.Tags = ScanAsString
		case "bytes":
			options.Tags = ScanAsBytes
		default:
			return nil, fmt.Errorf("%q is not a valid option for 'tagsAs'", qTags)
		}

		query.Del("tagsAs")
		dsnURI.RawQuery = query.Encode()
		dsn = dsnURI.String()
	}

	server, engine, err := d.provider.Resolve(dsn)
	if err != nil {
		return nil, err
	}

	d.mu.Lock()
	host, ok := d.hosts[engine]
	if !ok {
		host = &engineHost{engine: engine}
		if d.hosts == nil {
			d.hosts = map[*resoto.Engine]*engineHost{}
		}
		d.hosts[engine] = host
	}
	d.mu.Unlock()

	return &Connector{
		driver:  d,
		options: options,
		server:  server,
		user:    user,
		host:    host,
	}, nil
}

// A Connector represents a driver in a fixed configuration
// and can create any number of equivalent Conns for use
// by multiple goroutines.
type Connector struct {
	driver  *Driver
	options Options
	server  string
	user    string
	host    *engineHost
}

// Driver returns the driver.
func (c *Connector) Driver() driver.Driver {
	return c.driver
}

// Connect returns a connection to the engine.
func (c *Connector) Connect(context.Context) (driver.Conn, error) {
	user := c.user
	if user == "" {
		user = fmt.Sprintf("#%d", c.host.nextConnectionID())
	}
	session := c.host.engine.NewSession(user, c.server)

	return &Conn{
		options: c.options,
		host:    c.host,
		session: session,
	}, nil
}
