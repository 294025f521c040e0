// Package ui embeds the static web frontend served at /.
package ui

import "embed"

//go:embed dist
var DistFS embed.FS
