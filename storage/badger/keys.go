package badger

import (
	"encoding/binary"

	"github.com/crazybass81/GovChat/core"
)

// Key prefixes for different data types
const (
	programRecordPrefix = "prgrec:"
	profilePrefix       = "sesprof:"
	retryPrefix         = "prgretry:"
	progressPrefix      = "ingprog:"
)

// makeIDKey generates prefix:id with the ID in BigEndian order so
// lexicographic iteration follows ID order.
func makeIDKey(prefix string, id core.ID) []byte {
	buf := make([]byte, len(prefix)+8)
	offset := copy(buf, prefix)
	binary.BigEndian.PutUint64(buf[offset:], uint64(id))
	return buf
}

// makeProgramKey generates a key for a program record by ID.
func makeProgramKey(id core.ID) []byte {
	return makeIDKey(programRecordPrefix, id)
}

// makeRetryKey generates a key for a retry queue entry.
func makeRetryKey(id core.ID) []byte {
	return makeIDKey(retryPrefix, id)
}

// makeProfileKey generates a key for a session profile.
func makeProfileKey(sessionID string) []byte {
	return []byte(profilePrefix + sessionID)
}

// makeProgressKey generates a key for ingestion progress of a source.
func makeProgressKey(source string) []byte {
	return []byte(progressPrefix + source)
}
