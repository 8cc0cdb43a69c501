// Package main 启动应用程序
package main

import (
	"os"

	"github.com/yeisme/chunkvault/pkg/cmd"
)

//	@title			ChunkVault API
//	@version		1.0
//	@description	ChunkVault 分片上传协调服务：签发分片上传地址、记录分片、合并与放弃上传，并通过存储事件异步确认对象.

//	@license.name	MIT
//	@license.url	https://opensource.org/license/mit/

//	@contact.name	yeisme
//	@contact.email	yefun2004@gmail.com.

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
