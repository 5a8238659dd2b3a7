package easyad

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/go-ldap/ldap/v3"
	"go.uber.org/zap"
)

// matchingRuleInChain is the LDAP_MATCHING_RULE_IN_CHAIN OID. Filters using
// it let the server walk nested group membership transitively.
const matchingRuleInChain = "1.2.840.113556.1.4.1941"

// Credentials is a simple bind identity. Username may be a bare name, a
// NetBIOS DOMAIN\name, a UPN, or a distinguished name.
type Credentials struct {
	Username string
	Password string
}

// SearchOptions tunes a single operation. The zero value (or nil) uses the
// client's defaults.
type SearchOptions struct {
	// Base overrides the search base DN.
	Base string

	// Credentials overrides the bind identity for this operation.
	Credentials *Credentials

	// Attributes overrides the requested attribute list. nil requests the
	// default list for the object kind; an empty non-nil slice requests
	// all attributes.
	Attributes []string

	// SerializationSafe makes every attribute value JSON-encodable:
	// binary values are base64-encoded and timestamps are formatted as
	// strings.
	SerializationSafe bool
}

// UserEntry is a user lookup result: the normalized entry plus decoded
// account status.
type UserEntry struct {
	DirectoryEntry
	AccountFlags

	UserAccountControl int64
	LastLogon          LastLogon

	// LockedOut reflects a non-zero lockoutTime attribute. The directory
	// does not reset lockoutTime when the lockout duration lapses, so this
	// can overreport on accounts whose lockout already expired.
	LockedOut   bool
	LockoutTime *time.Time

	PasswordLastSet *time.Time
	ObjectGUID      string
	ObjectSID       string
}

// Ref returns a reference to this user for membership operations.
func (u *UserEntry) Ref() Ref { return Entry(&u.DirectoryEntry) }

// GroupEntry is a group lookup result.
type GroupEntry struct {
	DirectoryEntry

	// Members holds the group's direct member DNs, sorted
	// case-insensitively.
	Members []string

	ObjectGUID string
	ObjectSID  string
}

// Ref returns a reference to this group for membership operations.
func (g *GroupEntry) Ref() Ref { return Entry(&g.DirectoryEntry) }

// Client looks up users and groups in an Active Directory domain. Each
// operation opens, binds, and unbinds its own connection, so a Client is
// safe for concurrent use.
type Client struct {
	cfg             *Config
	log             *zap.Logger
	userAttributes  []string
	groupAttributes []string

	// dial is swappable in tests.
	dial func(*Config) (directoryConn, error)
}

// New builds a Client from cfg. The config is copied; later mutation of
// cfg has no effect.
func New(cfg *Config) (*Client, error) {
	if cfg == nil {
		return nil, &UsageError{Msg: "config is required"}
	}

	conf := *cfg
	if err := conf.finalize(); err != nil {
		return nil, err
	}

	userAttrs := conf.UserAttributes
	if userAttrs == nil {
		userAttrs = DefaultUserAttributes
	}
	groupAttrs := conf.GroupAttributes
	if groupAttrs == nil {
		groupAttrs = DefaultGroupAttributes
	}

	c := &Client{
		cfg:             &conf,
		log:             conf.Logger,
		userAttributes:  append([]string(nil), userAttrs...),
		groupAttributes: append([]string(nil), groupAttrs...),
		dial:            dialDirectory,
	}

	c.log.Debug("directory client configured",
		zap.String("server", conf.Server),
		zap.String("domain", conf.Domain),
		zap.String("baseDN", conf.BaseDN))

	return c, nil
}

// GetUser retrieves exactly one user. The identifier may be a UPN, SAM
// account name, mail address, or distinguished name. Zero matches return a
// NotFoundError, multiple matches an AmbiguousResultError.
func (c *Client) GetUser(ctx context.Context, identifier string, opts *SearchOptions) (*UserEntry, error) {
	if identifier == "" {
		return nil, &UsageError{Msg: "user identifier is required"}
	}

	filter := userFilter(identifier)
	attrs := requestAttributes(opts, c.userAttributes)

	entry, raw, err := c.findOne(ctx, "user", identifier, filter, attrs, opts)
	if err != nil {
		return nil, err
	}
	return newUserEntry(entry, raw, serializationSafe(opts))
}

// AuthenticateUser verifies a username/password pair by binding as the
// user and looking their entry up. ok is false for bad credentials; other
// failures are returned as errors.
func (c *Client) AuthenticateUser(ctx context.Context, username, password string, opts *SearchOptions) (user *UserEntry, ok bool, err error) {
	// An empty password would be an unauthenticated (anonymous) bind,
	// which must never count as a successful authentication.
	if username == "" || password == "" {
		return nil, false, nil
	}

	authOpts := &SearchOptions{
		Credentials: &Credentials{Username: username, Password: password},
	}
	if opts != nil {
		authOpts.Base = opts.Base
		authOpts.Attributes = opts.Attributes
		authOpts.SerializationSafe = opts.SerializationSafe
	}

	user, err = c.GetUser(ctx, username, authOpts)
	if err != nil {
		if IsAuthenticationError(err) {
			c.log.Debug("authentication rejected", zap.String("username", username))
			return nil, false, nil
		}
		return nil, false, err
	}
	return user, true, nil
}

// GetGroup retrieves exactly one group by CN or distinguished name. Zero
// matches return a NotFoundError, multiple matches an
// AmbiguousResultError.
func (c *Client) GetGroup(ctx context.Context, identifier string, opts *SearchOptions) (*GroupEntry, error) {
	if identifier == "" {
		return nil, &UsageError{Msg: "group identifier is required"}
	}

	filter := groupFilter(identifier)
	attrs := requestAttributes(opts, c.groupAttributes)

	entry, raw, err := c.findOne(ctx, "group", identifier, filter, attrs, opts)
	if err != nil {
		return nil, err
	}
	return newGroupEntry(entry, raw), nil
}

// ResolveUserDN resolves a user reference to a distinguished name,
// performing a lookup only when the reference requires one.
func (c *Client) ResolveUserDN(ctx context.Context, user Ref, opts *SearchOptions) (string, error) {
	return c.resolveDN(ctx, user, "user", opts)
}

// ResolveGroupDN resolves a group reference to a distinguished name,
// performing a lookup only when the reference requires one.
func (c *Client) ResolveGroupDN(ctx context.Context, group Ref, opts *SearchOptions) (string, error) {
	return c.resolveDN(ctx, group, "group", opts)
}

func (c *Client) resolveDN(ctx context.Context, ref Ref, kind string, opts *SearchOptions) (string, error) {
	if ref == nil {
		return "", &UsageError{Msg: kind + " reference is required"}
	}

	rv := ref.ref()
	switch {
	case rv.dn != "":
		return rv.dn, nil

	case rv.entry != nil:
		dn := rv.entry.GetString("distinguishedName")
		if dn == "" {
			dn = rv.entry.DN
		}
		if dn == "" {
			return "", &UsageError{Msg: kind + " entry has no distinguished name"}
		}
		return dn, nil

	case rv.id != "":
		if looksLikeDN(rv.id) {
			return rv.id, nil
		}
		ro := resolveOptions(opts)
		if kind == "group" {
			group, err := c.GetGroup(ctx, rv.id, ro)
			if err != nil {
				return "", err
			}
			return group.dn(), nil
		}
		user, err := c.GetUser(ctx, rv.id, ro)
		if err != nil {
			return "", err
		}
		return user.dn(), nil
	}

	return "", &UsageError{Msg: "empty " + kind + " reference"}
}

// GetAllUserGroups returns the distinguished names of every group the user
// belongs to, including nested memberships, sorted case-insensitively.
func (c *Client) GetAllUserGroups(ctx context.Context, user Ref, opts *SearchOptions) ([]string, error) {
	dn, err := c.ResolveUserDN(ctx, user, opts)
	if err != nil {
		return nil, err
	}

	filter := fmt.Sprintf("(member:%s:=%s)", matchingRuleInChain, ldap.EscapeFilter(dn))
	result, err := c.runSearch(ctx, filter, []string{"distinguishedName"}, opts)
	if err != nil {
		return nil, err
	}
	return collectDNs(result), nil
}

// GetAllUsersInGroup returns the distinguished names of every user in the
// group, including members of nested groups, sorted case-insensitively.
func (c *Client) GetAllUsersInGroup(ctx context.Context, group Ref, opts *SearchOptions) ([]string, error) {
	dn, err := c.ResolveGroupDN(ctx, group, opts)
	if err != nil {
		return nil, err
	}

	filter := fmt.Sprintf("(&(objectClass=user)(memberOf:%s:=%s))", matchingRuleInChain, ldap.EscapeFilter(dn))
	result, err := c.runSearch(ctx, filter, []string{"distinguishedName"}, opts)
	if err != nil {
		return nil, err
	}
	return collectDNs(result), nil
}

// UserIsMemberOfGroup reports whether the user belongs to the group,
// directly or through nesting. The check is a single server-side search as
// the user's DN constrained by the chain matching rule.
func (c *Client) UserIsMemberOfGroup(ctx context.Context, user, group Ref, opts *SearchOptions) (bool, error) {
	userDN, err := c.ResolveUserDN(ctx, user, opts)
	if err != nil {
		return false, err
	}
	groupDN, err := c.ResolveGroupDN(ctx, group, opts)
	if err != nil {
		return false, err
	}

	filter := fmt.Sprintf("(&(objectClass=user)(distinguishedName=%s)(memberOf:%s:=%s))",
		ldap.EscapeFilter(userDN), matchingRuleInChain, ldap.EscapeFilter(groupDN))
	result, err := c.runSearch(ctx, filter, []string{"distinguishedName"}, opts)
	if err != nil {
		return false, err
	}
	return len(result.Entries) > 0, nil
}

// runSearch performs one connect/bind/search/unbind cycle.
func (c *Client) runSearch(ctx context.Context, filter string, attrs []string, opts *SearchOptions) (*ldap.SearchResult, error) {
	base := c.cfg.BaseDN
	var creds *Credentials
	if opts != nil {
		if opts.Base != "" {
			base = opts.Base
		}
		creds = opts.Credentials
	}

	conn, err := c.dial(c.cfg)
	if err != nil {
		return nil, err
	}
	cn := &connection{cfg: c.cfg, conn: conn, log: c.log}
	defer cn.unbind()

	if err := cn.bind(creds); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	req := ldap.NewSearchRequest(base, ldap.ScopeWholeSubtree, ldap.NeverDerefAliases,
		0, 0, false, filter, attrs, nil)

	start := time.Now()
	result, err := conn.Search(req)
	if err != nil {
		return nil, fmt.Errorf("easyad: search failed: %w", err)
	}

	c.log.Debug("search completed",
		zap.String("base", base),
		zap.String("filter", filter),
		zap.Int("entries", len(result.Entries)),
		zap.Duration("elapsed", time.Since(start)))

	return result, nil
}

// findOne runs a search that must match exactly one object.
func (c *Client) findOne(ctx context.Context, kind, identifier, filter string, attrs []string, opts *SearchOptions) (*DirectoryEntry, *ldap.Entry, error) {
	result, err := c.runSearch(ctx, filter, attrs, opts)
	if err != nil {
		return nil, nil, err
	}

	decoded := DecodeEntries(result.Entries, DecodeOptions{SerializationSafe: serializationSafe(opts)})
	switch len(decoded) {
	case 0:
		return nil, nil, &NotFoundError{Kind: kind, Identifier: identifier}
	case 1:
		for _, raw := range result.Entries {
			if raw != nil {
				return decoded[0], raw, nil
			}
		}
		return decoded[0], nil, nil
	default:
		return nil, nil, &AmbiguousResultError{Kind: kind, Identifier: identifier, Matches: len(decoded)}
	}
}

func userFilter(identifier string) string {
	id := ldap.EscapeFilter(identifier)
	return fmt.Sprintf("(&(objectClass=user)(|(userPrincipalName=%[1]s)(sAMAccountName=%[1]s)(mail=%[1]s)(distinguishedName=%[1]s)))", id)
}

func groupFilter(identifier string) string {
	id := ldap.EscapeFilter(identifier)
	return fmt.Sprintf("(&(objectClass=Group)(|(cn=%[1]s)(distinguishedName=%[1]s)))", id)
}

// newUserEntry decodes account status out of a normalized user entry.
// Membership lists are sorted, AD timestamps replaced with their decoded
// forms, and objectGUID/objectSid rendered as text.
func newUserEntry(entry *DirectoryEntry, raw *ldap.Entry, serializable bool) (*UserEntry, error) {
	u := &UserEntry{DirectoryEntry: *entry}

	u.sortAttribute("memberOf")
	u.sortAttribute("showInAddressBook")

	if u.Has("userAccountControl") {
		uacRaw := u.GetString("userAccountControl")
		uac, err := strconv.ParseInt(uacRaw, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("easyad: invalid userAccountControl %q: %w", uacRaw, err)
		}
		u.UserAccountControl = uac
		u.AccountFlags = DecodeAccountFlags(uac)
		u.set("userAccountControl", uac)
	}

	logon, err := DecodeLastLogon(u.GetString("lastLogonTimestamp"))
	if err != nil {
		return nil, err
	}
	u.LastLogon = logon
	if u.Has("lastLogonTimestamp") {
		u.set("lastLogonTimestamp", logon.attributeValue(serializable))
	}

	u.LockoutTime, err = decodeTimeAttribute(&u.DirectoryEntry, "lockoutTime", serializable)
	if err != nil {
		return nil, err
	}
	u.LockedOut = u.LockoutTime != nil

	u.PasswordLastSet, err = decodeTimeAttribute(&u.DirectoryEntry, "pwdLastSet", serializable)
	if err != nil {
		return nil, err
	}

	if raw != nil {
		if guid := extractGUID(raw); guid != "" {
			u.ObjectGUID = guid
			u.set("objectGUID", guid)
		}
		if sid := extractSID(raw); sid != "" {
			u.ObjectSID = sid
			u.set("objectSid", sid)
		}
	}

	return u, nil
}

func newGroupEntry(entry *DirectoryEntry, raw *ldap.Entry) *GroupEntry {
	g := &GroupEntry{DirectoryEntry: *entry}

	g.sortAttribute("member")
	g.Members = append([]string(nil), g.GetStrings("member")...)

	if raw != nil {
		if guid := extractGUID(raw); guid != "" {
			g.ObjectGUID = guid
			g.set("objectGUID", guid)
		}
		if sid := extractSID(raw); sid != "" {
			g.ObjectSID = sid
			g.set("objectSid", sid)
		}
	}

	return g
}

// decodeTimeAttribute replaces an interval timestamp attribute with its
// decoded form. Unset (zero) values become nil in the attribute map.
func decodeTimeAttribute(e *DirectoryEntry, name string, serializable bool) (*time.Time, error) {
	if !e.Has(name) {
		return nil, nil
	}

	t, ok, err := DecodeIntervalTimestamp(e.GetString(name))
	if err != nil {
		return nil, err
	}
	if !ok {
		e.set(name, nil)
		return nil, nil
	}

	if serializable {
		e.set(name, t.Format(DefaultTimeLayout))
	} else {
		e.set(name, t)
	}
	return &t, nil
}

func (e *DirectoryEntry) dn() string {
	if dn := e.GetString("distinguishedName"); dn != "" {
		return dn
	}
	return e.DN
}

// requestAttributes picks the attribute list for a lookup. A nil override
// selects the defaults; an empty non-nil slice asks the server for all
// attributes.
func requestAttributes(opts *SearchOptions, defaults []string) []string {
	if opts != nil && opts.Attributes != nil {
		return opts.Attributes
	}
	return defaults
}

func serializationSafe(opts *SearchOptions) bool {
	return opts != nil && opts.SerializationSafe
}

// resolveOptions derives the minimal options for an internal DN-resolving
// lookup, keeping the caller's bind identity and base.
func resolveOptions(opts *SearchOptions) *SearchOptions {
	ro := &SearchOptions{Attributes: []string{"distinguishedName"}}
	if opts != nil {
		ro.Base = opts.Base
		ro.Credentials = opts.Credentials
	}
	return ro
}

func collectDNs(result *ldap.SearchResult) []string {
	dns := make([]string, 0, len(result.Entries))
	for _, entry := range result.Entries {
		if entry == nil {
			continue
		}
		dn := entry.GetAttributeValue("distinguishedName")
		if dn == "" {
			dn = entry.DN
		}
		if dn != "" {
			dns = append(dns, dn)
		}
	}
	sortFold(dns)
	return dns
}
