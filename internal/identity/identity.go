// Package identity derives the stable identifiers that tie a run to its
// calendar entries across repeated exports.
//
// Both the component order of the logical UID and the encoding of the remote
// identifier must never change: every previously synced entry is matched by
// them, and any drift turns each later sync into a duplicate create.
package identity

import (
	"encoding/base32"
	"strings"
)

const separator = "||"

// remoteEncoding is base32 with the extended hex alphabet (0-9, A-V) and no
// padding. Google Calendar only accepts event ids from [a-v0-9].
var remoteEncoding = base32.HexEncoding.WithPadding(base32.NoPadding)

// LogicalUID returns the iCalendar UID of a run: "{year}||{shortName}||{sourceID}".
func LogicalUID(year, shortName, sourceID string) string {
	return year + separator + shortName + separator + sourceID
}

// RemoteID encodes a logical UID into the remote calendar's id alphabet.
// The mapping is injective: distinct UIDs never share a RemoteID.
func RemoteID(uid string) string {
	return strings.ToLower(remoteEncoding.EncodeToString([]byte(uid)))
}

// DecodeRemoteID reverses RemoteID.
func DecodeRemoteID(id string) (string, error) {
	b, err := remoteEncoding.DecodeString(strings.ToUpper(id))
	if err != nil {
		return "", err
	}
	return string(b), nil
}
