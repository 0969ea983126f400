// internal/config/constants.go
package config

import "time"

// アプリケーション情報
const (
	AppName    = "CodeCohortLMS"
	AppVersion = "0.3.0"
)

// デフォルト設定値
const (
	DefaultServerPort     = ":8080"
	DefaultLogLevel       = "info"
	DefaultAccessTokenTTL = 24 * time.Hour
	DefaultStorageRegion  = "us-east-2"
	DefaultStorageTimeout = 5 * time.Second
)
