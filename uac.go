package easyad

// userAccountControl flags (from Microsoft documentation).
const (
	UACAccountDisabled      int64 = 0x00000002 // Account is disabled
	UACHomeDirRequired      int64 = 0x00000008 // Home directory required
	UACLockout              int64 = 0x00000010 // Account is locked out (informational)
	UACPasswordNotRequired  int64 = 0x00000020 // No password required
	UACPasswordCantChange   int64 = 0x00000040 // User cannot change password
	UACNormalAccount        int64 = 0x00000200 // Normal user account
	UACPasswordNeverExpires int64 = 0x00010000 // Password never expires
	UACSmartCardRequired    int64 = 0x00040000 // Smart card required for logon
	UACTrustedForDelegation int64 = 0x00080000 // Account trusted for delegation
	UACNotDelegated         int64 = 0x00100000 // Account not delegated
	UACDontRequirePreauth   int64 = 0x00400000 // Don't require Kerberos preauth
	UACPasswordExpired      int64 = 0x00800000 // Password expired
)

// AccountFlags is the decoded subset of userAccountControl bits that
// describe an account's effective status.
type AccountFlags struct {
	Disabled             bool
	PasswordExpired      bool
	PasswordNeverExpires bool
	SmartcardRequired    bool
}

// DecodeAccountFlags extracts status flags from a raw userAccountControl
// value.
func DecodeAccountFlags(uac int64) AccountFlags {
	return AccountFlags{
		Disabled:             uac&UACAccountDisabled != 0,
		PasswordExpired:      uac&UACPasswordExpired != 0,
		PasswordNeverExpires: uac&UACPasswordNeverExpires != 0,
		SmartcardRequired:    uac&UACSmartCardRequired != 0,
	}
}
