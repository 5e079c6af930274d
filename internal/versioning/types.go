package versioning

// VersionType identifies the type of version (branch or tag).
type VersionType string

const (
	VersionTypeBranch VersionType = "branch"
	VersionTypeTag    VersionType = "tag"
)

// Version represents a single documentation version the multi-version
// builder will render.
type Version struct {
	Name        string      `json:"name"`         // branch or tag name
	Type        VersionType `json:"type"`         // "branch" or "tag"
	DisplayName string      `json:"display_name"` // human-readable version name
	IsDefault   bool        `json:"is_default"`   // whether this is the default branch
	CommitSHA   string      `json:"commit_sha"`   // resolved commit
}
