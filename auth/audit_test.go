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

package auth_test

import (
	"testing"
	"time"

	"github.com/nburtsev/resoto/auth"
	"github.com/stretchr/testify/require"
)

type auditEvent struct {
	action     string
	user       string
	permission auth.Permission
	operation  string
	err        error
}

type auditRecorder struct {
	events []auditEvent
}

func (r *auditRecorder) Authentication(user, address string, err error) {
	r.events = append(r.events, auditEvent{action: "authentication", user: user, err: err})
}

func (r *auditRecorder) Authorization(s auth.Session, p auth.Permission, err error) {
	r.events = append(r.events, auditEvent{action: "authorization", user: s.User, permission: p, err: err})
}

func (r *auditRecorder) Operation(s auth.Session, op string, d time.Duration, err error) {
	r.events = append(r.events, auditEvent{action: "operation", user: s.User, operation: op, err: err})
}

func TestAuditAuthentication(t *testing.T) {
	req := require.New(t)

	rec := new(auditRecorder)
	a := auth.NewAudit(auth.NewNativeSingle("root", "secret", auth.AllPermissions), rec)

	req.NoError(a.Verify("root", "secret"))
	req.Error(a.Verify("root", "wrong"))

	req.Len(rec.events, 2)
	req.Equal("authentication", rec.events[0].action)
	req.Equal("root", rec.events[0].user)
	req.NoError(rec.events[0].err)
	req.Error(rec.events[1].err)
}

func TestAuditAuthorization(t *testing.T) {
	req := require.New(t)

	rec := new(auditRecorder)
	a := auth.NewAudit(auth.NewNativeSingle("viewer", "", auth.ReadPerm), rec)

	s := auth.Session{User: "viewer", ID: 1}
	req.NoError(a.Allowed(s, auth.ReadPerm))
	req.Error(a.Allowed(s, auth.WritePerm))

	req.Len(rec.events, 2)
	req.Equal("authorization", rec.events[0].action)
	req.Equal(auth.ReadPerm, rec.events[0].permission)
	req.NoError(rec.events[0].err)
	req.Equal(auth.WritePerm, rec.events[1].permission)
	req.Error(rec.events[1].err)
}

func TestAuditOperation(t *testing.T) {
	req := require.New(t)

	rec := new(auditRecorder)
	a := auth.NewAudit(new(auth.None), rec).(*auth.Audit)

	a.Operation(auth.Session{User: "root"}, "perform_benchmarks", time.Second, nil)

	req.Len(rec.events, 1)
	req.Equal("operation", rec.events[0].action)
	req.Equal("perform_benchmarks", rec.events[0].operation)
}
