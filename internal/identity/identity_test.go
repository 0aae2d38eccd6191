package identity

import (
	"fmt"
	"regexp"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLogicalUID(t *testing.T) {
	assert.Equal(t, "2024||ABC||r1", LogicalUID("2024", "ABC", "r1"))
	assert.Equal(t, LogicalUID("2024", "ABC", "r1"), LogicalUID("2024", "ABC", "r1"))
	assert.NotEqual(t, LogicalUID("2024", "ABC", "r1"), LogicalUID("ABC", "2024", "r1"))
}

func TestRemoteID_KnownValues(t *testing.T) {
	assert.Equal(t, "68o34d3sfh0k4grsfhp32", RemoteID("2024||ABC||r1"))
	assert.Equal(t, "68o34d3sfh0keh2hfhu38d9i64", RemoteID("2024||AGDQ||4521"))
}

func TestRemoteID_Alphabet(t *testing.T) {
	valid := regexp.MustCompile(`^[0-9a-v]+$`)
	for _, uid := range []string{"2024||ABC||r1", "2025||GDQueer||9", "2024||SGDQ||Pokémon"} {
		id := RemoteID(uid)
		assert.Regexp(t, valid, id, "uid %q", uid)
		assert.NotContains(t, id, "=")
	}
}

func TestRemoteID_Injective(t *testing.T) {
	seen := make(map[string]string)
	for _, year := range []string{"2023", "2024", "2025"} {
		for _, name := range []string{"AGDQ", "SGDQ", "GDQX", "GDQueer", "Frost", "A", "AG"} {
			for i := 0; i < 300; i++ {
				uid := LogicalUID(year, name, fmt.Sprint(i))
				id := RemoteID(uid)
				if prev, ok := seen[id]; ok {
					t.Fatalf("%q and %q both encode to %q", prev, uid, id)
				}
				seen[id] = uid
			}
		}
	}
}

func TestDecodeRemoteID(t *testing.T) {
	uid := LogicalUID("2024", "AGDQ", "4521")
	got, err := DecodeRemoteID(RemoteID(uid))
	require.NoError(t, err)
	assert.Equal(t, uid, got)

	_, err = DecodeRemoteID("not!valid")
	assert.Error(t, err)
}
