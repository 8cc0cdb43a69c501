package configs

// AppVersion 应用版本，构建时可通过 -ldflags "-X github.com/yeisme/chunkvault/pkg/configs.AppVersion=..." 覆盖.
var AppVersion = "0.1.0"
