package types

// PackDefinition is the decoded form of the pack document: a flat config
// map plus an ordered list of nodes (sources, stages, outputs).
type PackDefinition struct {
	Config map[string]string
	Nodes  []Node
}

// NodeKind distinguishes the three entry shapes a pack document node may
// take.
type NodeKind string

const (
	NodeKindSource NodeKind = "source"
	NodeKindStage  NodeKind = "stage"
	NodeKindOutput NodeKind = "output"
)

// StageKind enumerates the closed set of stage implementations the
// catalog knows how to construct.
type StageKind string

const (
	StageArchiveDownloader StageKind = "ArchiveDownloader"
	StageFileFilter        StageKind = "FileFilter"
	StageFilePicker        StageKind = "FilePicker"
	StageDirectoryMerger   StageKind = "DirectoryMerger"
	StageModResolver       StageKind = "ModResolver"
	StageModWriter         StageKind = "ModWriter"
	StageCurseResolver     StageKind = "CurseResolver"
	StageModMerger         StageKind = "ModMerger"
	StageModFilter         StageKind = "ModFilter"
	StageModOverrider      StageKind = "ModOverrider"
)

// SourceValueKind is the payload variant a Source node emits.
type SourceValueKind string

const (
	SourceValueText SourceValueKind = "Text"
	SourceValueList SourceValueKind = "List"
	SourceValueMods SourceValueKind = "Mods"
)

// Node is one entry of the pack document's node list. Kind selects which
// of the group of fields below is populated; the rest are left zero.
type Node struct {
	Kind NodeKind

	ID string // Source, Stage

	// Stage
	StageKind StageKind
	Input     map[string]string // port name -> ChannelId string

	// Source
	ValueKind SourceValueKind
	Text      string
	List      []string
	Mods      []ModDefinition

	// Output
	Filename string
	SourceID string // ChannelId string
}
