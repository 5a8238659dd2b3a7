package easyad

import (
	"fmt"
	"os"
	"strings"

	"github.com/go-ldap/ldap/v3"
	"github.com/go-ldap/ldap/v3/gssapi"
	krb5client "github.com/jcmturner/gokrb5/v8/client"
)

// gssapiBind authenticates the connection via Kerberos. Used when no
// simple credentials are supplied and a realm is configured.
func (cn *connection) gssapiBind() error {
	gssapiClient, err := newGSSAPIClient(cn.cfg)
	if err != nil {
		return fmt.Errorf("easyad: creating GSSAPI client: %w", err)
	}
	defer func() {
		_ = gssapiClient.DeleteSecContext()
	}()

	spn := cn.cfg.KerberosSPN
	if spn == "" {
		spn = "ldap/" + serverHost(cn.cfg.Server)
	}

	return cn.conn.GSSAPIBind(gssapiClient, spn, "")
}

// newGSSAPIClient builds a Kerberos client from the configured credential
// sources. Priority order: explicit credential cache, default credential
// cache, keytab, then password.
func newGSSAPIClient(cfg *Config) (ldap.GSSAPIClient, error) {
	krb5conf := cfg.KerberosConfig
	if krb5conf == "" {
		krb5conf = "/etc/krb5.conf"
	}
	if !fileExists(krb5conf) {
		return nil, fmt.Errorf("kerberos configuration not found at %s", krb5conf)
	}

	principal := cfg.BindUsername
	if i := strings.Index(principal, "@"); i >= 0 {
		principal = principal[:i]
	}

	if cfg.KerberosCCache != "" && fileExists(cfg.KerberosCCache) {
		return gssapi.NewClientFromCCache(cfg.KerberosCCache, krb5conf, krb5client.DisablePAFXFAST(true))
	}
	if ccache := defaultCCachePath(); fileExists(ccache) {
		return gssapi.NewClientFromCCache(ccache, krb5conf, krb5client.DisablePAFXFAST(true))
	}
	if cfg.KerberosKeytab != "" && fileExists(cfg.KerberosKeytab) {
		return gssapi.NewClientWithKeytab(principal, cfg.KerberosRealm, cfg.KerberosKeytab, krb5conf, krb5client.DisablePAFXFAST(true))
	}
	if principal != "" && cfg.BindPassword != "" {
		return gssapi.NewClientWithPassword(principal, cfg.KerberosRealm, cfg.BindPassword, krb5conf, krb5client.DisablePAFXFAST(true))
	}

	return nil, fmt.Errorf("no kerberos credentials available (ccache, keytab, or password)")
}

// defaultCCachePath returns the conventional credential cache location,
// honouring KRB5CCNAME.
func defaultCCachePath() string {
	if ccache := os.Getenv("KRB5CCNAME"); ccache != "" {
		return strings.TrimPrefix(ccache, "FILE:")
	}
	return fmt.Sprintf("/tmp/krb5cc_%d", os.Getuid())
}

func fileExists(path string) bool {
	if path == "" {
		return false
	}
	f, err := os.Open(path)
	if err != nil {
		return false
	}
	f.Close()
	return true
}
