package migrations

import (
	"io/fs"

	aidimport "github.com/goliatone/go-aidimport"
)

func init() {
	coreFS, err := fs.Sub(aidimport.GetMigrationsFS(), "data/sql/migrations")
	if err != nil {
		return
	}
	Register(coreFS)
}
