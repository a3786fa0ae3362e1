package cache

import (
	"context"
	"fmt"
	"strings"
)

// Open selects a backend from a cache URL:
//
//	""                     file cache in dir
//	"file:///path"         file cache at /path
//	"redis://…", "rediss://…"
//	"mongodb://…", "mongodb+srv://…"
//	"none"                 NullCache
func Open(ctx context.Context, url, dir string) (Cache, error) {
	switch {
	case url == "":
		return NewFileCache(dir)
	case url == "none":
		return NewNullCache(), nil
	case strings.HasPrefix(url, "file://"):
		return NewFileCache(strings.TrimPrefix(url, "file://"))
	case strings.HasPrefix(url, "redis://"), strings.HasPrefix(url, "rediss://"):
		return NewRedisCache(ctx, url)
	case strings.HasPrefix(url, "mongodb://"), strings.HasPrefix(url, "mongodb+srv://"):
		return NewMongoCache(ctx, url)
	default:
		return nil, fmt.Errorf("unsupported cache url %q", url)
	}
}
