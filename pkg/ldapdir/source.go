// Package ldapdir reads users and groups from an LDAP directory (Active
// Directory, OpenLDAP) using the simple paged results control, so the same
// paged walk and store serve LDAP and Graph.
package ldapdir

import (
	"crypto/tls"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-ldap/ldap/v3"

	"github.com/emanuelebuldrini/msgraph-fetcher/pkg/logging"
)

// Defaults for Config.
const (
	DefaultUserFilter  = "(&(objectClass=person)(!(objectClass=computer)))"
	DefaultGroupFilter = "(|(objectClass=group)(objectClass=groupOfNames)(objectClass=groupOfUniqueNames))"
	DefaultPageSize    = 500
	DefaultTimeout     = 30 * time.Second
)

// ErrInvalidConfig is wrapped by every configuration error.
var ErrInvalidConfig = errors.New("invalid ldap configuration")

// Config describes how to reach and search the directory.
type Config struct {
	URL          string
	BindDN       string
	BindPassword string
	BaseDN       string

	UserFilter  string
	GroupFilter string

	// PageSize is the paged results size requested from the server.
	PageSize uint32

	// Timeout bounds the connection and each search.
	Timeout time.Duration

	// InsecureSkipVerify disables TLS certificate checks for ldaps:// URLs.
	InsecureSkipVerify bool
}

// WithDefaults fills unset fields.
func (c Config) WithDefaults() Config {
	if c.UserFilter == "" {
		c.UserFilter = DefaultUserFilter
	}
	if c.GroupFilter == "" {
		c.GroupFilter = DefaultGroupFilter
	}
	if c.PageSize == 0 {
		c.PageSize = DefaultPageSize
	}
	if c.Timeout <= 0 {
		c.Timeout = DefaultTimeout
	}
	return c
}

// Validate checks the fields needed to connect and search.
func (c Config) Validate() error {
	if strings.TrimSpace(c.URL) == "" {
		return fmt.Errorf("%w: url is required", ErrInvalidConfig)
	}
	if strings.TrimSpace(c.BaseDN) == "" {
		return fmt.Errorf("%w: base dn is required", ErrInvalidConfig)
	}
	if _, err := ldap.ParseDN(c.BaseDN); err != nil {
		return fmt.Errorf("%w: base dn: %v", ErrInvalidConfig, err)
	}
	if c.BindDN != "" && c.BindPassword == "" {
		return fmt.Errorf("%w: bind password is required with a bind dn", ErrInvalidConfig)
	}
	return nil
}

// Searcher runs one LDAP search. *ldap.Conn satisfies it.
type Searcher interface {
	Search(req *ldap.SearchRequest) (*ldap.SearchResult, error)
}

// Dial connects to cfg.URL and binds with the configured credentials. An
// empty BindDN keeps the connection anonymous.
func Dial(cfg Config) (*ldap.Conn, error) {
	cfg = cfg.WithDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	logger := logging.NewLogger("ldap-source")

	conn, err := ldap.DialURL(cfg.URL, ldap.DialWithTLSConfig(&tls.Config{
		InsecureSkipVerify: cfg.InsecureSkipVerify,
	}))
	if err != nil {
		return nil, fmt.Errorf("connect to %s: %w", cfg.URL, err)
	}
	conn.SetTimeout(cfg.Timeout)

	if cfg.BindDN != "" {
		if err := conn.Bind(cfg.BindDN, cfg.BindPassword); err != nil {
			conn.Close()
			return nil, fmt.Errorf("bind as %s: %w", cfg.BindDN, err)
		}
	}

	logger.Info().
		Str("url", cfg.URL).
		Str("base_dn", cfg.BaseDN).
		Bool("anonymous", cfg.BindDN == "").
		Msg("Connected to LDAP directory")

	return conn, nil
}
