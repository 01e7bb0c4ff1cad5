//go:build tools
// +build tools

// Package tools pins the versions of build-time lint and static
// analysis binaries in go.mod without making them runtime
// dependencies of the module. See
// https://github.com/golang/go/wiki/Modules#how-can-i-track-tool-dependencies-for-a-module.
package tools

import (
	_ "4d63.com/gochecknoinits"
	_ "github.com/gordonklaus/ineffassign"
	_ "github.com/jgautheron/goconst"
	_ "github.com/mibk/dupl"
	_ "github.com/stripe/safesql"
	_ "github.com/tsenart/deadcode"
	_ "golang.org/x/tools/cmd/stringer"
	_ "honnef.co/go/tools/staticcheck"
	_ "mvdan.cc/interfacer"
	_ "mvdan.cc/lint/golint"
)
