package easyad

import (
	"crypto/tls"
	"crypto/x509"
	"fmt"
	"net"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/go-ldap/ldap/v3"
	"go.uber.org/zap"
)

// directoryConn is the subset of *ldap.Conn the client uses. Narrowed to
// an interface so tests can substitute a fake connection.
type directoryConn interface {
	Bind(username, password string) error
	GSSAPIBind(client ldap.GSSAPIClient, servicePrincipal, authzID string) error
	Search(req *ldap.SearchRequest) (*ldap.SearchResult, error)
	SetTimeout(timeout time.Duration)
	Unbind() error
}

// connection wraps a bound-or-binding directory connection for a single
// operation.
type connection struct {
	cfg  *Config
	conn directoryConn
	log  *zap.Logger
}

// dialDirectory opens a connection to the configured server. Plain ldap://
// connections are upgraded with StartTLS unless RequireTLS is explicitly
// disabled; ldaps:// URLs negotiate TLS during dial.
func dialDirectory(cfg *Config) (directoryConn, error) {
	serverURL := cfg.Server
	if !strings.Contains(serverURL, "://") {
		serverURL = "ldap://" + serverURL
	}

	tlsConfig, err := newTLSConfig(cfg)
	if err != nil {
		return nil, err
	}

	if strings.HasPrefix(serverURL, "ldaps://") {
		conn, err := ldap.DialURL(serverURL, ldap.DialWithTLSConfig(tlsConfig))
		if err != nil {
			return nil, fmt.Errorf("easyad: dialing %s: %w", serverURL, err)
		}
		conn.SetTimeout(cfg.Timeout)
		return conn, nil
	}

	conn, err := ldap.DialURL(serverURL)
	if err != nil {
		return nil, fmt.Errorf("easyad: dialing %s: %w", serverURL, err)
	}

	if cfg.RequireTLS == nil || *cfg.RequireTLS {
		if err := conn.StartTLS(tlsConfig); err != nil {
			conn.Close()
			return nil, fmt.Errorf("easyad: starting TLS with %s: %w", serverURL, err)
		}
	}

	conn.SetTimeout(cfg.Timeout)
	return conn, nil
}

func newTLSConfig(cfg *Config) (*tls.Config, error) {
	tlsConfig := &tls.Config{
		ServerName: serverHost(cfg.Server),
		MinVersion: tls.VersionTLS12,
	}

	if cfg.CACertFile != "" {
		pem, err := os.ReadFile(cfg.CACertFile)
		if err != nil {
			return nil, fmt.Errorf("easyad: reading CA certificate: %w", err)
		}
		pool, err := x509.SystemCertPool()
		if err != nil {
			pool = x509.NewCertPool()
		}
		if !pool.AppendCertsFromPEM(pem) {
			return nil, fmt.Errorf("easyad: no certificates found in %s", cfg.CACertFile)
		}
		tlsConfig.RootCAs = pool
	}

	return tlsConfig, nil
}

// serverHost extracts the bare hostname from a server setting that may be
// a hostname, host:port, or LDAP URL.
func serverHost(server string) string {
	if strings.Contains(server, "://") {
		if u, err := url.Parse(server); err == nil {
			return u.Hostname()
		}
	}
	if host, _, err := net.SplitHostPort(server); err == nil {
		return host
	}
	return server
}

// bind authenticates the connection. With nil credentials it falls back to
// a Kerberos bind when a realm is configured, then to the configured
// default bind identity, and fails with ErrNoBindCredentials when neither
// is available. Bind failures are returned unchanged so callers can
// classify them with IsAuthenticationError.
func (cn *connection) bind(creds *Credentials) error {
	if creds == nil {
		if cn.cfg.KerberosRealm != "" {
			return cn.gssapiBind()
		}
		if cn.cfg.BindUsername == "" || cn.cfg.BindPassword == "" {
			return ErrNoBindCredentials
		}
		creds = &Credentials{
			Username: cn.cfg.BindUsername,
			Password: cn.cfg.BindPassword,
		}
	}

	identity := bindIdentity(creds.Username, cn.cfg.Domain)
	cn.log.Debug("binding to directory", zap.String("identity", identity))
	return cn.conn.Bind(identity, creds.Password)
}

// unbind closes the connection, logging rather than returning any error.
// Called exactly once per opened connection, whether or not the bind
// succeeded.
func (cn *connection) unbind() {
	if err := cn.conn.Unbind(); err != nil {
		cn.log.Debug("unbind failed", zap.Error(err))
	}
}

// bindIdentity normalizes a username into a bindable identity: a leading
// NetBIOS "DOMAIN\" prefix is stripped, and bare names are qualified as
// UPNs with the configured domain. Names that already look like a UPN or
// a distinguished name pass through unchanged.
func bindIdentity(username, domain string) string {
	if i := strings.LastIndex(username, `\`); i >= 0 {
		username = username[i+1:]
	}
	if strings.Contains(username, "@") {
		return username
	}
	if len(username) >= 3 && strings.EqualFold(username[:3], "cn=") {
		return username
	}
	return username + "@" + domain
}
