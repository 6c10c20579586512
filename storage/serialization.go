package storage

import (
	"encoding/binary"
	"encoding/json"
	"fmt"

	"github.com/crazybass81/GovChat/core"
)

// MarshalID serializes an ID to 8 big-endian bytes.
func MarshalID(id core.ID) []byte {
	buf := make([]byte, 8)
	binary.BigEndian.PutUint64(buf, uint64(id))
	return buf
}

// UnmarshalID deserializes an ID from bytes.
func UnmarshalID(data []byte) (core.ID, error) {
	if len(data) != 8 {
		return 0, fmt.Errorf("%w: id needs 8 bytes, got %d", ErrSerializationFailed, len(data))
	}
	return core.ID(binary.BigEndian.Uint64(data)), nil
}

func marshal(v any) ([]byte, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrSerializationFailed, err)
	}
	return data, nil
}

func unmarshal[T any](data []byte) (*T, error) {
	var v T
	if err := json.Unmarshal(data, &v); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrSerializationFailed, err)
	}
	return &v, nil
}

// MarshalProgram serializes a ProgramRecord to bytes.
func MarshalProgram(record *core.ProgramRecord) ([]byte, error) {
	return marshal(record)
}

// UnmarshalProgram deserializes a ProgramRecord from bytes.
func UnmarshalProgram(data []byte) (*core.ProgramRecord, error) {
	return unmarshal[core.ProgramRecord](data)
}

// MarshalProfile serializes a UserProfile to bytes.
func MarshalProfile(profile *core.UserProfile) ([]byte, error) {
	return marshal(profile)
}

// UnmarshalProfile deserializes a UserProfile from bytes.
func UnmarshalProfile(data []byte) (*core.UserProfile, error) {
	return unmarshal[core.UserProfile](data)
}

// MarshalRetryEntry serializes a RetryEntry to bytes.
func MarshalRetryEntry(entry *core.RetryEntry) ([]byte, error) {
	return marshal(entry)
}

// UnmarshalRetryEntry deserializes a RetryEntry from bytes.
func UnmarshalRetryEntry(data []byte) (*core.RetryEntry, error) {
	return unmarshal[core.RetryEntry](data)
}

// MarshalProgress serializes an IngestionProgress to bytes.
func MarshalProgress(progress *core.IngestionProgress) ([]byte, error) {
	return marshal(progress)
}

// UnmarshalProgress deserializes an IngestionProgress from bytes.
func UnmarshalProgress(data []byte) (*core.IngestionProgress, error) {
	return unmarshal[core.IngestionProgress](data)
}
