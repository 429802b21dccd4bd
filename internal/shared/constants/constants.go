package constants

import (
	"io/fs"
	"time"
)

const (
	// DefaultDirPerm is the default permission used when creating directories.
	DefaultDirPerm fs.FileMode = 0o755
	// DefaultFilePerm is the default permission used when creating files.
	DefaultFilePerm fs.FileMode = 0o644
)

const (
	// DefaultTimeout bounds a single fetch of an audit target.
	DefaultTimeout = 30 * time.Second
	// DefaultUserAgent is the identity used for the primary fetch.
	DefaultUserAgent = "WebQualityAuditor/1.0"
	// BotUserAgent is the identity used for the cloaking comparison fetch.
	BotUserAgent = "Mozilla/5.0 (compatible; Googlebot/2.1; +http://www.google.com/bot.html)"
	// MaxBodyBytes caps how much of a response body is read for analysis.
	MaxBodyBytes = 10 << 20
	// MaxRedirects is the number of hops the fetch adapter follows before giving up.
	MaxRedirects = 20
	// DefaultBatchConcurrency is the number of audits allowed in flight at once.
	DefaultBatchConcurrency = 3
)
