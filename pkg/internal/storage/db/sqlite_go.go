//go:build !no_sqlite && !cgo

package db

import (
	"github.com/glebarez/sqlite"
	"gorm.io/gorm"

	"github.com/yeisme/chunkvault/pkg/configs"
)

// 纯 Go 驱动，pragma 语法与 mattn 版本不同.
func init() {
	RegisterDialectorFactory(func(dsn string) gorm.Dialector {
		return sqlite.Open(withQuery(dsn, "_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)"))
	}, configs.SQLite)
}
