// Package update defines the edit record exchanged between peers and
// its fixed-size wire encoding.
package update

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"time"
)

const (
	OpReplace = "replace"

	// Field capacities of the wire record. Text that exceeds a capacity
	// is silently truncated; fields never grow. This is a known
	// limitation of the format, not subject to negotiation.
	MaxOpLen        = 10
	MaxTextLen      = 256
	MaxTimestampLen = 32
	MaxUserIDLen    = 32

	// RecordSize is the exact size of the wire record. There is no
	// length prefix, both ends must agree on this value.
	RecordSize = MaxOpLen + 4 + 4 + 4 + MaxTextLen + MaxTextLen + MaxTimestampLen + 8 + MaxUserIDLen
)

var ErrBadRecordSize = errors.New("update: record size mismatch")

// Update describes a single line-and-column-range replacement.
// An Update is immutable once built: it is produced by the change
// detector or decoded off the wire, and destroyed once folded into a
// merge. The pair (TS, UserID) is its total order key.
type Update struct {
	Op        string // operation tag, currently always OpReplace
	Line      int32  // 0-based line index
	StartCol  int32
	EndCol    int32 // exclusive
	OldText   string
	NewText   string
	Timestamp string // human readable, time.ANSIC
	TS        int64  // epoch seconds, used for conflict comparison
	UserID    string
}

// NewReplace builds a replace Update stamped at now, applying the
// silent truncation policy to every text field.
func NewReplace(line, startCol, endCol int32, oldText, newText, userID string, now time.Time) Update {
	return Update{
		Op:        OpReplace,
		Line:      line,
		StartCol:  startCol,
		EndCol:    endCol,
		OldText:   Truncate(oldText, MaxTextLen),
		NewText:   Truncate(newText, MaxTextLen),
		Timestamp: Truncate(now.Format(time.ANSIC), MaxTimestampLen),
		TS:        now.Unix(),
		UserID:    Truncate(userID, MaxUserIDLen),
	}
}

// Truncate caps s at max bytes.
func Truncate(s string, max int) string {
	if len(s) > max {
		return s[:max]
	}
	return s
}

// ConflictsWith reports whether the two updates target the same line
// with overlapping half-open column ranges.
func (u *Update) ConflictsWith(o *Update) bool {
	return u.Line == o.Line && rangesOverlap(u.StartCol, u.EndCol, o.StartCol, o.EndCol)
}

func rangesOverlap(a1, b1, a2, b2 int32) bool {
	return !(b1 <= a2 || b2 <= a1)
}

// Supersedes reports whether u wins a conflict against o under
// last-writer-wins: the greater epoch timestamp wins, equal timestamps
// fall back to the lexicographically smaller user id. The relation is a
// strict total order over distinct (TS, UserID) keys, so eliminating
// losers pairwise yields the same surviving set in any visitation
// order.
func (u *Update) Supersedes(o *Update) bool {
	if u.TS != o.TS {
		return u.TS > o.TS
	}
	return u.UserID <= o.UserID
}

func (u *Update) String() string {
	return fmt.Sprintf("%s line %d cols %d-%d %q -> %q by %s @ %s",
		u.Op, u.Line, u.StartCol, u.EndCol, u.OldText, u.NewText, u.UserID, u.Timestamp)
}

// MarshalBinary encodes the update into the fixed-size little-endian
// wire record. Text fields are NUL padded to their capacity.
func (u *Update) MarshalBinary() ([]byte, error) {
	rec := make([]byte, RecordSize)
	off := 0

	off += putPadded(rec[off:], u.Op, MaxOpLen)
	binary.LittleEndian.PutUint32(rec[off:], uint32(u.Line))
	off += 4
	binary.LittleEndian.PutUint32(rec[off:], uint32(u.StartCol))
	off += 4
	binary.LittleEndian.PutUint32(rec[off:], uint32(u.EndCol))
	off += 4
	off += putPadded(rec[off:], u.OldText, MaxTextLen)
	off += putPadded(rec[off:], u.NewText, MaxTextLen)
	off += putPadded(rec[off:], u.Timestamp, MaxTimestampLen)
	binary.LittleEndian.PutUint64(rec[off:], uint64(u.TS))
	off += 8
	putPadded(rec[off:], u.UserID, MaxUserIDLen)

	return rec, nil
}

// UnmarshalBinary decodes a record produced by MarshalBinary.
func (u *Update) UnmarshalBinary(data []byte) error {
	if len(data) != RecordSize {
		return fmt.Errorf("%w: got %d bytes, want %d", ErrBadRecordSize, len(data), RecordSize)
	}
	off := 0

	u.Op = unpad(data[off : off+MaxOpLen])
	off += MaxOpLen
	u.Line = int32(binary.LittleEndian.Uint32(data[off:]))
	off += 4
	u.StartCol = int32(binary.LittleEndian.Uint32(data[off:]))
	off += 4
	u.EndCol = int32(binary.LittleEndian.Uint32(data[off:]))
	off += 4
	u.OldText = unpad(data[off : off+MaxTextLen])
	off += MaxTextLen
	u.NewText = unpad(data[off : off+MaxTextLen])
	off += MaxTextLen
	u.Timestamp = unpad(data[off : off+MaxTimestampLen])
	off += MaxTimestampLen
	u.TS = int64(binary.LittleEndian.Uint64(data[off:]))
	off += 8
	u.UserID = unpad(data[off : off+MaxUserIDLen])

	return nil
}

// putPadded copies s into dst truncated to max. dst is assumed zeroed,
// so shorter strings come out NUL padded.
func putPadded(dst []byte, s string, max int) int {
	copy(dst[:max], s)
	return max
}

// unpad returns the bytes up to the first NUL.
func unpad(b []byte) string {
	if i := bytes.IndexByte(b, 0); i >= 0 {
		return string(b[:i])
	}
	return string(b)
}
