// Package types defines the data records shared across packforge's
// stages: mod references as declared by the user, mods once fully
// resolved, and the pack definition records produced by the pack
// document loader.
package types

// Side is which game installation a mod belongs on.
type Side string

const (
	SideClient Side = "client"
	SideServer Side = "server"
	SideBoth   Side = "both"
)

// ModSource identifies which catalog (or none) a Mod Definition
// references.
type ModSource string

const (
	ModSourceModrinth ModSource = "modrinth"
	ModSourceCurse    ModSource = "curse"
	ModSourceURL      ModSource = "url"
)

// ModDefinition is a user-declared reference to a mod. Source selects
// which of the variant-specific fields apply; the other variants' fields
// are left at their zero value.
type ModDefinition struct {
	Name string
	Side Side

	// Required and Default are pointers so that "absent" (default true,
	// per spec) is distinguishable from an explicit false.
	Required *bool
	Default  *bool

	Source ModSource

	// Modrinth / Curse
	ProjectID string // Modrinth: slug or id; Curse: numeric id as string, may be empty
	FileID    string

	// Url
	Location string
	Filename string
}

// IsRequired returns the Required flag, defaulting to true when unset.
func (m ModDefinition) IsRequired() bool {
	if m.Required == nil {
		return true
	}
	return *m.Required
}

// IsDefault returns the Default flag, defaulting to true when unset.
func (m ModDefinition) IsDefault() bool {
	if m.Default == nil {
		return true
	}
	return *m.Default
}

// EffectiveSide returns Side, defaulting to SideBoth when unset.
func (m ModDefinition) EffectiveSide() Side {
	if m.Side == "" {
		return SideBoth
	}
	return m.Side
}

// ResolvedMod is a fully populated mod record, ready for output.
// Field order matches the JSON output shape.
type ResolvedMod struct {
	Name     string `json:"name"`
	Title    string `json:"title"`
	Side     Side   `json:"side"`
	Required bool   `json:"required"`
	Default  bool   `json:"default"`
	Filename string `json:"filename"`
	Encoded  string `json:"encoded"`
	Src      string `json:"src"`
	Size     int64  `json:"size"`
	MD5      string `json:"md5"`
	SHA256   string `json:"sha256"`
}
