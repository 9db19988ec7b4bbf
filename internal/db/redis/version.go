package redis

import (
	"context"
	"fmt"
	"strings"

	"github.com/kailas-cloud/seekdb/internal/db"
	"github.com/kailas-cloud/seekdb/internal/domain/version"
)

// DetectVersion reads INFO server and reports "valkey" or "redis" with its version.
func (s *Store) DetectVersion(ctx context.Context) (string, version.Version, error) {
	info, err := s.do(ctx, s.b().Info().Section("server").Build()).ToString()
	if err != nil {
		return "", version.Version{}, &db.Error{Op: db.OpInfo, Err: err}
	}
	engine, raw := parseServerInfo(info)
	if raw == "" {
		return "", version.Version{}, fmt.Errorf("server version not reported")
	}
	v, err := version.Parse(raw)
	if err != nil {
		return "", version.Version{}, fmt.Errorf("parse version %q: %w", raw, err)
	}
	return engine, v, nil
}

func parseServerInfo(info string) (engine, raw string) {
	var redisVersion string
	for _, line := range strings.Split(info, "\n") {
		line = strings.TrimSpace(line)
		if v, ok := strings.CutPrefix(line, "valkey_version:"); ok {
			return "valkey", v
		}
		if v, ok := strings.CutPrefix(line, "redis_version:"); ok {
			redisVersion = v
		}
	}
	return "redis", redisVersion
}
