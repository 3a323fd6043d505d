// Package assets embeds files shipped inside the binary.
package assets

import (
	"embed"
	"io/fs"
)

//go:embed sql/*.sql
var migrations embed.FS

// Migrations returns the SQL migration files rooted at the sql directory.
func Migrations() fs.FS {
	sub, err := fs.Sub(migrations, "sql")
	if err != nil {
		// sql/ is embedded at build time; a failure here is a build defect.
		panic(err)
	}
	return sub
}
