package easyad

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// writeKrb5Conf drops a minimal krb5.conf into a temp dir.
func writeKrb5Conf(t *testing.T) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "krb5.conf")
	content := `[libdefaults]
  default_realm = EXAMPLE.COM

[realms]
  EXAMPLE.COM = {
    kdc = dc1.example.com:88
  }
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

// pointKRB5CCacheNowhere keeps tests hermetic: a credential cache left on
// the host must not be picked up as a default credential source.
func pointKRB5CCacheNowhere(t *testing.T) {
	t.Helper()
	t.Setenv("KRB5CCNAME", filepath.Join(t.TempDir(), "absent-ccache"))
}

func TestKerberosBindDispatch(t *testing.T) {
	pointKRB5CCacheNowhere(t)

	cfg := &Config{
		Server:         "dc1.example.com",
		Domain:         "example.com",
		BindUsername:   "svc",
		BindPassword:   "hunter2",
		KerberosRealm:  "EXAMPLE.COM",
		KerberosConfig: writeKrb5Conf(t),
	}

	t.Run("nil credentials use gssapi", func(t *testing.T) {
		fake := &fakeConn{}
		cn := &connection{cfg: cfg, conn: fake, log: zap.NewNop()}

		require.NoError(t, cn.bind(nil))
		assert.Equal(t, 1, fake.gssapiCalls)
		assert.Equal(t, 0, fake.bindCalls)
		assert.Equal(t, "ldap/dc1.example.com", fake.lastSPN)
	})

	t.Run("spn override", func(t *testing.T) {
		override := *cfg
		override.KerberosSPN = "ldap/alias.example.com"

		fake := &fakeConn{}
		cn := &connection{cfg: &override, conn: fake, log: zap.NewNop()}

		require.NoError(t, cn.bind(nil))
		assert.Equal(t, "ldap/alias.example.com", fake.lastSPN)
	})

	t.Run("explicit credentials bypass gssapi", func(t *testing.T) {
		fake := &fakeConn{}
		cn := &connection{cfg: cfg, conn: fake, log: zap.NewNop()}

		require.NoError(t, cn.bind(&Credentials{Username: "alice", Password: "pw"}))
		assert.Equal(t, 0, fake.gssapiCalls)
		assert.Equal(t, 1, fake.bindCalls)
		assert.Equal(t, "alice@example.com", fake.lastBindUser)
	})
}

func TestKerberosMissingConf(t *testing.T) {
	pointKRB5CCacheNowhere(t)

	cfg := &Config{
		Server:         "dc1.example.com",
		Domain:         "example.com",
		BindUsername:   "svc",
		BindPassword:   "hunter2",
		KerberosRealm:  "EXAMPLE.COM",
		KerberosConfig: "/nonexistent/krb5.conf",
	}

	fake := &fakeConn{}
	cn := &connection{cfg: cfg, conn: fake, log: zap.NewNop()}

	err := cn.bind(nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "kerberos configuration not found")

	// the failure must not fall back to a simple bind
	assert.Equal(t, 0, fake.bindCalls)
	assert.Equal(t, 0, fake.gssapiCalls)
}

func TestKerberosNoCredentials(t *testing.T) {
	pointKRB5CCacheNowhere(t)

	cfg := &Config{
		Server:         "dc1.example.com",
		Domain:         "example.com",
		KerberosRealm:  "EXAMPLE.COM",
		KerberosConfig: writeKrb5Conf(t),
	}

	fake := &fakeConn{}
	cn := &connection{cfg: cfg, conn: fake, log: zap.NewNop()}

	err := cn.bind(nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no kerberos credentials available")
	assert.Equal(t, 0, fake.gssapiCalls)
}

func TestKerberosLookup(t *testing.T) {
	pointKRB5CCacheNowhere(t)

	client, err := New(&Config{
		Server:         "dc1.example.com",
		Domain:         "example.com",
		BindUsername:   "svc",
		BindPassword:   "hunter2",
		KerberosRealm:  "EXAMPLE.COM",
		KerberosConfig: writeKrb5Conf(t),
	})
	require.NoError(t, err)

	fake := &fakeConn{}
	fake.queue(bobEntry())
	client.dial = func(*Config) (directoryConn, error) { return fake, nil }

	user, err := client.GetUser(context.Background(), "bob", nil)
	require.NoError(t, err)
	assert.Equal(t, "CN=Bob Example,OU=Staff,DC=example,DC=com", user.DN)

	assert.Equal(t, 1, fake.gssapiCalls)
	assert.Equal(t, 0, fake.bindCalls)
	assert.Equal(t, 1, fake.unbindCalls)
}
