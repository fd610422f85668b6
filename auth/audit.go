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

package auth

import (
	"time"

	"github.com/sirupsen/logrus"
)

// AuditMethod is called to log the audit trail of actions.
type AuditMethod interface {
	// Authentication logs an authentication event.
	Authentication(user, address string, err error)
	// Authorization logs an authorization event.
	Authorization(s Session, p Permission, err error)
	// Operation logs the execution of an engine operation.
	Operation(s Session, op string, d time.Duration, err error)
}

// NewAudit creates a wrapped Auth that sends audit trails to the specified
// method.
func NewAudit(auth Auth, method AuditMethod) Auth {
	return &Audit{
		auth:   auth,
		method: method,
	}
}

// Audit is an Auth method proxy that sends audit trails to the specified
// AuditMethod.
type Audit struct {
	auth   Auth
	method AuditMethod
}

// Verify implements Auth interface.
func (a *Audit) Verify(user, password string) error {
	err := a.auth.Verify(user, password)
	a.method.Authentication(user, "", err)

	return err
}

// Allowed implements Auth interface.
func (a *Audit) Allowed(s Session, permission Permission) error {
	err := a.auth.Allowed(s, permission)
	a.method.Authorization(s, permission, err)

	return err
}

// Operation records an operation, first through the wrapped authorizer when
// that is itself an *Audit, then through the audit method.
func (a *Audit) Operation(s Session, op string, d time.Duration, err error) {
	if q, ok := a.auth.(*Audit); ok {
		q.Operation(s, op, d, err)
	}

	a.method.Operation(s, op, d, err)
}

// NewAuditLog creates a new AuditMethod that logs to a logrus.Logger.
func NewAuditLog(l *logrus.Logger) AuditMethod {
	la := l.WithField("system", "audit")

	return &AuditLog{
		log: la,
	}
}

const auditLogMessage = "audit trail"

// AuditLog logs audit trails to a logrus.Logger.
type AuditLog struct {
	log *logrus.Entry
}

// Authentication implements AuditMethod interface.
func (a *AuditLog) Authentication(user string, address string, err error) {
	fields := logrus.Fields{
		"action":  "authentication",
		"user":    user,
		"address": address,
		"success": true,
	}

	if err != nil {
		fields["success"] = false
		fields["err"] = err
	}

	a.log.WithFields(fields).Info(auditLogMessage)
}

func auditInfo(s Session, err error) logrus.Fields {
	fields := logrus.Fields{
		"user":       s.User,
		"address":    s.Address,
		"session_id": s.ID,
		"success":    true,
	}

	if err != nil {
		fields["success"] = false
		fields["err"] = err
	}

	return fields
}

// Authorization implements AuditMethod interface.
func (a *AuditLog) Authorization(s Session, p Permission, err error) {
	fields := auditInfo(s, err)
	fields["action"] = "authorization"
	fields["permission"] = p.String()

	a.log.WithFields(fields).Info(auditLogMessage)
}

// Operation implements AuditMethod interface.
func (a *AuditLog) Operation(s Session, op string, d time.Duration, err error) {
	fields := auditInfo(s, err)
	fields["action"] = "operation"
	fields["operation"] = op
	fields["duration"] = d

	a.log.WithFields(fields).Info(auditLogMessage)
}
