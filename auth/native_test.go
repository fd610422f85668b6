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
	"io/ioutil"
	"os"
	"path/filepath"
	"testing"

	"github.com/nburtsev/resoto/auth"
	"github.com/stretchr/testify/require"
)

func writeUserFile(t *testing.T, content string) string {
	t.Helper()

	dir, err := ioutil.TempDir("", "native-auth")
	require.NoError(t, err)
	t.Cleanup(func() { os.RemoveAll(dir) })

	path := filepath.Join(dir, "users.json")
	require.NoError(t, ioutil.WriteFile(path, []byte(content), 0644))

	return path
}

func TestNativeSingleVerify(t *testing.T) {
	req := require.New(t)

	a := auth.NewNativeSingle("root", "secret", auth.AllPermissions)

	req.NoError(a.Verify("root", "secret"))
	req.True(auth.ErrNotAuthorized.Is(a.Verify("root", "wrong")))
	req.True(auth.ErrNotAuthorized.Is(a.Verify("nobody", "secret")))
}

func TestNativeSingleEmptyPassword(t *testing.T) {
	req := require.New(t)

	a := auth.NewNativeSingle("root", "", auth.AllPermissions)

	req.NoError(a.Verify("root", ""))
	req.True(auth.ErrNotAuthorized.Is(a.Verify("root", "something")))
}

func TestNativeAllowed(t *testing.T) {
	testCases := []struct {
		name       string
		granted    auth.Permission
		needed     auth.Permission
		authorized bool
	}{
		{"read with read", auth.ReadPerm, auth.ReadPerm, true},
		{"read with write", auth.ReadPerm, auth.WritePerm, false},
		{"write with read", auth.WritePerm, auth.ReadPerm, false},
		{"all with write", auth.AllPermissions, auth.WritePerm, true},
		{"all with read and write", auth.AllPermissions, auth.ReadPerm | auth.WritePerm, true},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			req := require.New(t)

			a := auth.NewNativeSingle("user", "pass", tc.granted)
			err := a.Allowed(auth.Session{User: "user"}, tc.needed)
			if tc.authorized {
				req.NoError(err)
			} else {
				req.Error(err)
				req.True(auth.ErrNotAuthorized.Is(err))
			}
		})
	}
}

func TestNativeAllowedUnknownUser(t *testing.T) {
	req := require.New(t)

	a := auth.NewNativeSingle("root", "", auth.AllPermissions)
	err := a.Allowed(auth.Session{User: "ghost"}, auth.ReadPerm)
	req.True(auth.ErrNotAuthorized.Is(err))
}

func TestNewNativeFile(t *testing.T) {
	req := require.New(t)

	path := writeUserFile(t, `[
		{"name": "root", "password": "secret", "permissions": ["read", "write"]},
		{"name": "viewer", "password": "*2470C0C06DEE42FD1618BB99005ADCA2EC9D1E19"}
	]`)

	a, err := auth.NewNativeFile(path)
	req.NoError(err)

	req.NoError(a.Verify("root", "secret"))
	// the stored hash above is NativePassword("password")
	req.NoError(a.Verify("viewer", "password"))

	req.NoError(a.Allowed(auth.Session{User: "root"}, auth.WritePerm))
	// viewer has no explicit permissions and falls back to the default
	req.NoError(a.Allowed(auth.Session{User: "viewer"}, auth.ReadPerm))
	req.Error(a.Allowed(auth.Session{User: "viewer"}, auth.WritePerm))
}

func TestNewNativeFileErrors(t *testing.T) {
	testCases := []struct {
		name    string
		content string
	}{
		{"malformed json", `{]`},
		{"duplicate user", `[{"name": "x"}, {"name": "x"}]`},
		{"unknown permission", `[{"name": "x", "permissions": ["fly"]}]`},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			req := require.New(t)

			path := writeUserFile(t, tc.content)
			_, err := auth.NewNativeFile(path)
			req.Error(err)
			req.True(auth.ErrParseUserFile.Is(err))
		})
	}
}

func TestNativePassword(t *testing.T) {
	req := require.New(t)

	req.Equal("", auth.NativePassword(""))
	req.Equal("*2470C0C06DEE42FD1618BB99005ADCA2EC9D1E19", auth.NativePassword("password"))
}
