package database

import (
	"net"
	"net/url"
	"strconv"

	"github.com/rickgao/parkwatch/internal/config"
)

// ApplicationName is reported to the server in pg_stat_activity.
const ApplicationName = "parkwatch"

// BuildConnString builds a PostgreSQL connection URL from config.
// The password is escaped so any character is allowed.
func BuildConnString(cfg config.DBConfig) string {
	sslMode := cfg.SSLMode
	if sslMode == "" {
		sslMode = "prefer"
	}

	q := url.Values{}
	q.Set("sslmode", sslMode)
	q.Set("application_name", ApplicationName)

	u := url.URL{
		Scheme:   "postgres",
		User:     url.UserPassword(cfg.User, cfg.Password),
		Host:     net.JoinHostPort(cfg.Host, strconv.Itoa(cfg.Port)),
		Path:     "/" + cfg.Name,
		RawQuery: q.Encode(),
	}
	return u.String()
}
