// Package persistence defines the versioned wire shape that carries engine
// state across a storage boundary, plus the checksum and version-migration
// machinery around it.
package persistence

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/arborlabs/arbor/pkg/domain"
)

// EngineVersion is embedded in every snapshot and compared on load.
// Snapshots from a newer engine are rejected unless compatibility checking
// is explicitly skipped.
const EngineVersion = "1.0.0"

// SerializedState is the only entity that crosses a storage boundary.
// It never aliases live engine state.
type SerializedState struct {
	State    *domain.State `json:"state"`
	Metadata Metadata      `json:"metadata"`

	// FlowEvents optionally embeds recent narrative telemetry.
	FlowEvents []FlowEvent `json:"flowEvents,omitempty"`

	// Performance optionally embeds a coarse performance snapshot.
	Performance *PerformanceSnapshot `json:"performanceState,omitempty"`
}

// Metadata describes the snapshot's provenance.
type Metadata struct {
	EngineVersion string         `json:"engineVersion"`
	Timestamp     string         `json:"timestamp"` // ISO-8601
	StoryID       string         `json:"storyId,omitempty"`
	Checksum      string         `json:"checksum,omitempty"`
	Custom        map[string]any `json:"customMetadata,omitempty"`
}

// FlowEvent is a single telemetry record (node visits, choices).
type FlowEvent struct {
	Type      string    `json:"type"`
	NodeID    string    `json:"nodeId,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// PerformanceSnapshot is a coarse runtime profile of the engine at save
// time, useful when diagnosing autosave pressure.
type PerformanceSnapshot struct {
	Mutations   int           `json:"mutations"`
	Autosaves   int           `json:"autosaves"`
	Checkpoints int           `json:"checkpoints"`
	LastSave    time.Duration `json:"lastSaveNs,omitempty"`
}

// Migration transforms an incoming snapshot before restoration, typically
// to upgrade flag layouts produced by older engine versions.
type Migration func(*SerializedState) error

// Checksum computes the SHA-256 hex digest of the state payload's
// canonical JSON form. encoding/json sorts map keys, so the digest is
// stable for equal states.
func Checksum(state *domain.State) (string, error) {
	payload, err := marshalState(state)
	if err != nil {
		return "", err
	}
	sum := sha256.Sum256(payload)
	return hex.EncodeToString(sum[:]), nil
}

// Encode renders the snapshot as JSON bytes for a ports.Store.
func Encode(snapshot *SerializedState) ([]byte, error) {
	data, err := json.Marshal(snapshot)
	if err != nil {
		return nil, mapMarshalError(err)
	}
	return data, nil
}

// Decode parses and structurally validates snapshot bytes. A malformed or
// incomplete payload fails fast with domain.ErrInvalidSnapshot.
func Decode(data []byte) (*SerializedState, error) {
	var snapshot SerializedState
	if err := json.Unmarshal(data, &snapshot); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrInvalidSnapshot, err)
	}
	if err := snapshot.Validate(); err != nil {
		return nil, err
	}
	return &snapshot, nil
}

// Validate checks the structural invariants of a snapshot.
func (s *SerializedState) Validate() error {
	if s == nil || s.State == nil {
		return fmt.Errorf("%w: missing state", domain.ErrInvalidSnapshot)
	}
	if s.State.CurrentNodeID == "" {
		return fmt.Errorf("%w: missing current node id", domain.ErrInvalidSnapshot)
	}
	if s.Metadata.EngineVersion == "" {
		return fmt.Errorf("%w: missing engine version", domain.ErrInvalidSnapshot)
	}
	if s.Metadata.Timestamp == "" {
		return fmt.Errorf("%w: missing timestamp", domain.ErrInvalidSnapshot)
	}
	if _, err := time.Parse(time.RFC3339, s.Metadata.Timestamp); err != nil {
		return fmt.Errorf("%w: timestamp is not ISO-8601: %v", domain.ErrInvalidSnapshot, err)
	}
	return nil
}

// VerifyChecksum recomputes the state digest and compares it against the
// embedded one. Snapshots without a checksum pass trivially.
func (s *SerializedState) VerifyChecksum() error {
	if s.Metadata.Checksum == "" {
		return nil
	}
	sum, err := Checksum(s.State)
	if err != nil {
		return err
	}
	if sum != s.Metadata.Checksum {
		return domain.ErrChecksumMismatch
	}
	return nil
}

// CheckCompatibility rejects snapshots produced by a newer engine than the
// running one. Older snapshots are accepted (migrations handle them).
func (s *SerializedState) CheckCompatibility(engineVersion string) error {
	snapVer, err := parseVersion(s.Metadata.EngineVersion)
	if err != nil {
		return fmt.Errorf("%w: bad engine version %q", domain.ErrInvalidSnapshot, s.Metadata.EngineVersion)
	}
	curVer, err := parseVersion(engineVersion)
	if err != nil {
		return fmt.Errorf("invalid running engine version %q: %v", engineVersion, err)
	}

	for i := range snapVer {
		if snapVer[i] > curVer[i] {
			return fmt.Errorf("%w: snapshot %s, engine %s",
				domain.ErrIncompatibleVersion, s.Metadata.EngineVersion, engineVersion)
		}
		if snapVer[i] < curVer[i] {
			return nil
		}
	}
	return nil
}

func marshalState(state *domain.State) ([]byte, error) {
	data, err := json.Marshal(state)
	if err != nil {
		return nil, mapMarshalError(err)
	}
	return data, nil
}

// mapMarshalError turns encoding/json's cycle error into the deterministic
// domain failure instead of letting an opaque marshal error escape.
func mapMarshalError(err error) error {
	var unsupported *json.UnsupportedValueError
	if errors.As(err, &unsupported) && strings.Contains(unsupported.Str, "cycle") {
		return fmt.Errorf("%w: %v", domain.ErrCyclicFlags, err)
	}
	return fmt.Errorf("failed to marshal state: %w", err)
}

func parseVersion(version string) ([3]int, error) {
	var out [3]int
	parts := strings.SplitN(strings.TrimPrefix(version, "v"), ".", 3)
	if len(parts) != 3 {
		return out, fmt.Errorf("expected major.minor.patch, got %q", version)
	}
	for i, part := range parts {
		n, err := strconv.Atoi(part)
		if err != nil {
			return out, fmt.Errorf("non-numeric version segment %q", part)
		}
		out[i] = n
	}
	return out, nil
}
