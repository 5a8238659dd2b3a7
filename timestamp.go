package easyad

import (
	"fmt"
	"strconv"
	"time"
)

// Active Directory stores many timestamps as "interval" values: the
// number of 100-nanosecond ticks since January 1, 1601 UTC.
const (
	// intervalEpochOffset is the number of seconds between the AD interval
	// epoch (1601-01-01) and the Unix epoch (1970-01-01).
	intervalEpochOffset int64 = 11644473600

	// ticksPerSecond is the number of 100-nanosecond intervals in a second.
	ticksPerSecond int64 = 10000000
)

// DefaultTimeLayout is the layout used when formatting decoded interval
// timestamps for serialization-safe output.
const DefaultTimeLayout = "01/02/2006 15:04:05"

// RecentLogonMarker is substituted for lastLogonTimestamp values that fall
// within the attribute's replication slack window. lastLogonTimestamp is
// only replicated when it is more than 14 days stale, so any fresher value
// cannot be distinguished beyond "at most 14 days ago".
const RecentLogonMarker = "<= 14 days"

// recentLogonWindow is the replication slack of lastLogonTimestamp.
const recentLogonWindow = 14 * 24 * time.Hour

// DecodeIntervalTimestamp converts an AD interval timestamp (decimal string
// of 100-nanosecond ticks since 1601-01-01 UTC) to a time.Time. A zero or
// empty value means the attribute is unset; ok is false and the zero time
// is returned. Malformed values return an error.
func DecodeIntervalTimestamp(raw string) (t time.Time, ok bool, err error) {
	if raw == "" {
		return time.Time{}, false, nil
	}

	ticks, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return time.Time{}, false, fmt.Errorf("easyad: invalid interval timestamp %q: %w", raw, err)
	}
	if ticks == 0 {
		return time.Time{}, false, nil
	}

	// Split ticks into whole seconds and the sub-second remainder so the
	// conversion cannot overflow int64 nanoseconds.
	secs := ticks/ticksPerSecond - intervalEpochOffset
	nanos := (ticks % ticksPerSecond) * 100

	return time.Unix(secs, nanos).UTC(), true, nil
}

// FormatIntervalTimestamp decodes an interval timestamp and renders it with
// the given layout (DefaultTimeLayout when layout is empty). Unset values
// format as the empty string.
func FormatIntervalTimestamp(raw, layout string) (string, error) {
	t, ok, err := DecodeIntervalTimestamp(raw)
	if err != nil {
		return "", err
	}
	if !ok {
		return "", nil
	}
	if layout == "" {
		layout = DefaultTimeLayout
	}
	return t.Format(layout), nil
}

// LastLogon is the decoded form of a lastLogonTimestamp attribute.
//
// Exactly one of the following holds: Never is true and the user has never
// logged on, Recent is true and the last logon is at most 14 days old (Time
// still carries the replicated value), or neither is set and Time is the
// replicated logon time.
type LastLogon struct {
	Time   time.Time
	Never  bool
	Recent bool
}

// DecodeLastLogon interprets a raw lastLogonTimestamp value. An unset or
// zero value decodes as Never; values within the replication slack window
// decode as Recent.
func DecodeLastLogon(raw string) (LastLogon, error) {
	t, ok, err := DecodeIntervalTimestamp(raw)
	if err != nil {
		return LastLogon{}, err
	}
	if !ok {
		return LastLogon{Never: true}, nil
	}
	if time.Since(t) <= recentLogonWindow {
		return LastLogon{Time: t, Recent: true}, nil
	}
	return LastLogon{Time: t}, nil
}

func (l LastLogon) String() string {
	switch {
	case l.Never:
		return "never"
	case l.Recent:
		return RecentLogonMarker
	default:
		return l.Time.Format(DefaultTimeLayout)
	}
}

// attributeValue renders the logon for an attribute map. Never is the
// sentinel int64(-1), matching the integer type used for decoded
// userAccountControl values; Recent is the marker string, and otherwise
// the value is the time itself or its formatted form when
// serializationSafe is set.
func (l LastLogon) attributeValue(serializationSafe bool) any {
	switch {
	case l.Never:
		return int64(-1)
	case l.Recent:
		return RecentLogonMarker
	case serializationSafe:
		return l.Time.Format(DefaultTimeLayout)
	default:
		return l.Time
	}
}
