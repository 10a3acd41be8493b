package channel

import (
	"github.com/cuemby/packforge/pkg/filetree"
	"github.com/cuemby/packforge/pkg/types"
)

// Variant tags the one payload kind carried by a channel, out of the
// closed set the engine supports. Stage wiring is validated against
// this tag at startup rather than by reflecting on an interface{}.
type Variant int

const (
	VariantText Variant = iota
	VariantFiles
	VariantList
	VariantMods
	VariantResolvedMods
)

func (v Variant) String() string {
	switch v {
	case VariantText:
		return "Text"
	case VariantFiles:
		return "Files"
	case VariantList:
		return "List"
	case VariantMods:
		return "Mods"
	case VariantResolvedMods:
		return "ResolvedMods"
	default:
		return "Unknown"
	}
}

// Sender is a variant-tagged handle to exactly one of the underlying
// Broadcast[T] fabrics. Exactly one field is non-nil, matching Variant.
type Sender struct {
	Variant      Variant
	Text         *Broadcast[string]
	Files        *Broadcast[*filetree.Tree]
	List         *Broadcast[[]string]
	Mods         *Broadcast[[]types.ModDefinition]
	ResolvedMods *Broadcast[[]types.ResolvedMod]
}

// Close closes the underlying broadcast, regardless of variant.
func (s Sender) Close() {
	switch s.Variant {
	case VariantText:
		s.Text.Close()
	case VariantFiles:
		s.Files.Close()
	case VariantList:
		s.List.Close()
	case VariantMods:
		s.Mods.Close()
	case VariantResolvedMods:
		s.ResolvedMods.Close()
	}
}

// NewTextSender wraps a fresh Text broadcast in a Sender.
func NewTextSender() Sender { return Sender{Variant: VariantText, Text: NewBroadcast[string]()} }

// NewFilesSender wraps a fresh Files broadcast in a Sender.
func NewFilesSender() Sender {
	return Sender{Variant: VariantFiles, Files: NewBroadcast[*filetree.Tree]()}
}

// NewListSender wraps a fresh List broadcast in a Sender.
func NewListSender() Sender { return Sender{Variant: VariantList, List: NewBroadcast[[]string]()} }

// NewModsSender wraps a fresh Mods broadcast in a Sender.
func NewModsSender() Sender {
	return Sender{Variant: VariantMods, Mods: NewBroadcast[[]types.ModDefinition]()}
}

// NewResolvedModsSender wraps a fresh ResolvedMods broadcast in a Sender.
func NewResolvedModsSender() Sender {
	return Sender{Variant: VariantResolvedMods, ResolvedMods: NewBroadcast[[]types.ResolvedMod]()}
}

// Receiver is a variant-tagged handle to a single subscription. Exactly
// one field is non-nil, matching Variant.
type Receiver struct {
	Variant      Variant
	Text         <-chan string
	Files        <-chan *filetree.Tree
	List         <-chan []string
	Mods         <-chan []types.ModDefinition
	ResolvedMods <-chan []types.ResolvedMod
}

// Subscribe returns a Receiver of the same variant as s, subscribed to
// its underlying broadcast.
func Subscribe(s Sender) Receiver {
	switch s.Variant {
	case VariantText:
		return Receiver{Variant: VariantText, Text: s.Text.Subscribe()}
	case VariantFiles:
		return Receiver{Variant: VariantFiles, Files: s.Files.Subscribe()}
	case VariantList:
		return Receiver{Variant: VariantList, List: s.List.Subscribe()}
	case VariantMods:
		return Receiver{Variant: VariantMods, Mods: s.Mods.Subscribe()}
	case VariantResolvedMods:
		return Receiver{Variant: VariantResolvedMods, ResolvedMods: s.ResolvedMods.Subscribe()}
	default:
		return Receiver{}
	}
}
