package session

import (
	"errors"
	"fmt"
	"net"
	"net/url"
	"strconv"
	"strings"
)

const defaultValkeyPort = "6379"

type connInfo struct {
	addr     string
	username string
	password string
	selectDB int
	useTLS   bool
}

// parseConnURL 은 redis://, rediss://, valkey://, valkeys:// URL 또는 host[:port] 를 해석한다.
func parseConnURL(raw string) (connInfo, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return connInfo{}, errors.New("session store url is empty")
	}
	if !strings.Contains(raw, "://") {
		raw = "redis://" + raw
	}

	parsed, err := url.Parse(raw)
	if err != nil {
		return connInfo{}, fmt.Errorf("parse url: %w", err)
	}

	var info connInfo
	switch strings.ToLower(parsed.Scheme) {
	case "redis", "valkey":
	case "rediss", "valkeys":
		info.useTLS = true
	default:
		return connInfo{}, fmt.Errorf("unsupported session store scheme: %s", parsed.Scheme)
	}

	host := parsed.Hostname()
	if host == "" {
		return connInfo{}, errors.New("session store host missing")
	}
	port := parsed.Port()
	if port == "" {
		port = defaultValkeyPort
	}
	info.addr = net.JoinHostPort(host, port)

	if dbPath := strings.Trim(parsed.Path, "/"); dbPath != "" {
		db, err := strconv.Atoi(dbPath)
		if err != nil || db < 0 {
			return connInfo{}, fmt.Errorf("invalid session store db: %q", dbPath)
		}
		info.selectDB = db
	}

	if parsed.User != nil {
		info.username = parsed.User.Username()
		info.password, _ = parsed.User.Password()
	}
	return info, nil
}
