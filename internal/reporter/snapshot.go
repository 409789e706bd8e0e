package reporter

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/ethanolivertroy/nc-tracker/internal/models"
	"golang.org/x/mod/semver"
)

// SnapshotVersion is the schema version written into snapshots
const SnapshotVersion = "2.1.0"

// SnapshotLicense is the notice carried at the top of every snapshot
const SnapshotLicense = "AMIGOS corrective actions tracker backup"

// ErrIncompatibleSnapshot is returned for snapshots written by a newer major version
var ErrIncompatibleSnapshot = errors.New("incompatible snapshot version")

// Snapshot is a complete, re-importable backup of the tracker
type Snapshot struct {
	License                   string                      `json:"license"`
	Version                   string                      `json:"version,omitempty"`
	ReportName                string                      `json:"reportName"`
	LoadedAt                  *time.Time                  `json:"loadedAt"`
	Source                    *models.Source              `json:"source"`
	RequireEvidenceForClosure bool                        `json:"requireEvidenceForClosure"`
	Items                     []models.Finding            `json:"items"`
	Progress                  map[string]*models.Progress `json:"progress"`
}

// MarshalSnapshot writes s as indented JSON, filling in the license and version
func MarshalSnapshot(s Snapshot) ([]byte, error) {
	if s.License == "" {
		s.License = SnapshotLicense
	}
	s.Version = SnapshotVersion
	if s.Items == nil {
		s.Items = []models.Finding{}
	}
	if s.Progress == nil {
		s.Progress = map[string]*models.Progress{}
	}
	return json.MarshalIndent(s, "", "  ")
}

// ParseSnapshot decodes a snapshot and checks that this build can read it.
// Snapshots without a version predate versioning and are accepted.
func ParseSnapshot(data []byte) (*Snapshot, error) {
	var s Snapshot
	if err := json.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("failed to parse snapshot: %w", err)
	}
	if err := CheckSnapshotVersion(s.Version); err != nil {
		return nil, err
	}
	if s.Progress == nil {
		s.Progress = map[string]*models.Progress{}
	}
	for id, p := range s.Progress {
		if p == nil {
			delete(s.Progress, id)
		}
	}
	return &s, nil
}

// CheckSnapshotVersion rejects versions with a newer major than SnapshotVersion
func CheckSnapshotVersion(version string) error {
	if version == "" {
		return nil
	}
	v := "v" + strings.TrimPrefix(version, "v")
	if !semver.IsValid(v) {
		return fmt.Errorf("%w: %q is not a semantic version", ErrIncompatibleSnapshot, version)
	}
	if semver.Compare(semver.Major(v), semver.Major("v"+SnapshotVersion)) > 0 {
		return fmt.Errorf("%w: %s is newer than supported %s", ErrIncompatibleSnapshot, version, SnapshotVersion)
	}
	return nil
}
