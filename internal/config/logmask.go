// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package config

import (
	"net/url"
	"strings"
)

var sensitiveKeywords = []string{"password", "passwd", "secret", "token", "dsn"}

func isSensitiveKey(key string) bool {
	k := strings.ToLower(key)
	for _, kw := range sensitiveKeywords {
		if strings.Contains(k, kw) {
			return true
		}
	}
	return false
}

// maskDSN hides the password of a URL-form DSN. Other forms are fully masked.
func maskDSN(dsn string) string {
	if dsn == "" {
		return ""
	}
	u, err := url.Parse(dsn)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return "***"
	}
	if _, ok := u.User.Password(); ok {
		u.User = url.UserPassword(u.User.Username(), "***")
	}
	return u.Redacted()
}

// Redacted returns a copy safe to log.
func (c AppConfig) Redacted() AppConfig {
	if c.Redis.Password != "" {
		c.Redis.Password = "***"
	}
	c.Store.DSN = maskDSN(c.Store.DSN)
	return c
}
