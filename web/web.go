// Package web embeds the browser dashboard.
package web

import (
	_ "embed"
)

// Index is the single-page dashboard served at "/".
//
//go:embed index.html
var Index []byte
