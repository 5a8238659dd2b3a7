// Package easyad is a convenience layer for Active Directory over the
// go-ldap client. It connects and binds with sensible AD defaults,
// looks up users and groups by whatever identifier the caller has at
// hand, verifies credentials, and walks nested group membership with
// the LDAP_MATCHING_RULE_IN_CHAIN matching rule.
//
// Search results are normalized into plain Go values: attribute bytes
// are decoded as UTF-8 where possible, AD interval timestamps become
// time.Time, userAccountControl is unpacked into boolean flags, and
// objectGUID/objectSid are rendered in their canonical text forms.
// With SerializationSafe enabled, every value in the attribute map is
// JSON-encodable (binary values fall back to base64).
//
// A minimal lookup:
//
//	client, err := easyad.New(&easyad.Config{
//		Server:       "dc1.example.com",
//		Domain:       "example.com",
//		BindUsername: "svc-ldap",
//		BindPassword: "secret",
//	})
//	if err != nil {
//		log.Fatal(err)
//	}
//
//	user, err := client.GetUser(ctx, "bob", nil)
//	if err != nil {
//		log.Fatal(err)
//	}
//	fmt.Println(user.DN, user.Disabled)
//
// Each operation opens a fresh connection, binds, searches, and
// unbinds. Connections are never reused across operations, so a
// *Client is safe for concurrent use.
package easyad
