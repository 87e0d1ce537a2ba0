// Package appfs embeds the files shipped inside the binaries.
package appfs

import "embed"

// all: keeps the _base layouts the email templates extend.
//go:embed migrations all:templates passwords
var FS embed.FS
