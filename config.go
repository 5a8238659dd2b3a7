package easyad

import (
	"fmt"
	"strings"
	"time"

	"github.com/creasty/defaults"
	"go.uber.org/zap"
)

// Config holds connection settings for a directory Client.
type Config struct {
	// Server is the domain controller to contact, either a bare hostname
	// (optionally host:port) or a full ldap:// / ldaps:// URL.
	Server string

	// Domain is the Active Directory DNS domain, e.g. "example.com". It is
	// appended to bare usernames at bind time and used to derive BaseDN.
	Domain string

	// BaseDN is the default search base. Derived from Domain when empty
	// ("example.com" becomes "dc=example,dc=com").
	BaseDN string

	// RequireTLS controls whether plain ldap:// connections are upgraded
	// with StartTLS before binding. Defaults to true; set explicitly to
	// false only for test directories.
	RequireTLS *bool `default:"true"`

	// CACertFile is an optional PEM bundle appended to the system roots
	// when verifying the directory's certificate.
	CACertFile string

	// BindUsername and BindPassword are the default bind identity used
	// when an operation is not given explicit credentials.
	BindUsername string
	BindPassword string

	// Kerberos settings enable GSSAPI binds when no simple credentials are
	// available. KerberosRealm turns the feature on; credential sources
	// are tried in order: ccache, keytab, BindUsername/BindPassword.
	KerberosRealm  string
	KerberosConfig string // krb5.conf path, default /etc/krb5.conf
	KerberosKeytab string
	KerberosCCache string
	KerberosSPN    string // default "ldap/<server host>"

	// Timeout bounds each LDAP request on the wire. Default 30s.
	Timeout time.Duration

	// Logger receives debug-level operation logs. Defaults to a no-op
	// logger.
	Logger *zap.Logger

	// UserAttributes and GroupAttributes override the default attribute
	// lists requested by user and group lookups.
	UserAttributes  []string
	GroupAttributes []string
}

// DefaultUserAttributes is the attribute list requested by user lookups
// when the caller does not supply one.
var DefaultUserAttributes = []string{
	"businessCategory",
	"c",
	"cn",
	"co",
	"company",
	"countryCode",
	"department",
	"departmentNumber",
	"displayName",
	"distinguishedName",
	"employeeNumber",
	"employeeType",
	"givenName",
	"homeDirectory",
	"homeDrive",
	"ipPhone",
	"l",
	"lastLogonTimestamp",
	"lockoutTime",
	"mail",
	"mailNickname",
	"manager",
	"memberOf",
	"objectGUID",
	"objectSid",
	"physicalDeliveryOfficeName",
	"postalCode",
	"pwdLastSet",
	"roomNumber",
	"sAMAccountName",
	"scriptPath",
	"showInAddressBook",
	"sn",
	"st",
	"streetAddress",
	"telephoneNumber",
	"thumbnailPhoto",
	"title",
	"uid",
	"userAccountControl",
	"userPrincipalName",
}

// DefaultGroupAttributes is the attribute list requested by group lookups
// when the caller does not supply one.
var DefaultGroupAttributes = []string{
	"cn",
	"distinguishedName",
	"managedBy",
	"member",
	"name",
	"objectGUID",
	"objectSid",
}

// finalize applies defaults and validates required settings.
func (c *Config) finalize() error {
	if err := defaults.Set(c); err != nil {
		return fmt.Errorf("easyad: applying config defaults: %w", err)
	}

	if c.Server == "" {
		return &UsageError{Msg: "config: Server is required"}
	}
	if c.Domain == "" {
		return &UsageError{Msg: "config: Domain is required"}
	}

	if c.BaseDN == "" {
		c.BaseDN = baseDNFromDomain(c.Domain)
	}
	if c.Timeout <= 0 {
		c.Timeout = 30 * time.Second
	}
	if c.Logger == nil {
		c.Logger = zap.NewNop()
	}
	return nil
}

// baseDNFromDomain converts a DNS domain to its default naming context,
// e.g. "ad.example.com" to "dc=ad,dc=example,dc=com".
func baseDNFromDomain(domain string) string {
	labels := strings.Split(domain, ".")
	parts := make([]string, 0, len(labels))
	for _, label := range labels {
		if label == "" {
			continue
		}
		parts = append(parts, "dc="+label)
	}
	return strings.Join(parts, ",")
}
