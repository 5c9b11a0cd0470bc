package markdown

// LinkKind distinguishes link-like constructs found in a note body.
type LinkKind string

const (
	LinkKindInline              LinkKind = "inline"
	LinkKindImage               LinkKind = "image"
	LinkKindAuto                LinkKind = "auto"
	LinkKindReferenceDefinition LinkKind = "reference_definition"
)

// Link is a single extracted link destination.
type Link struct {
	Kind        LinkKind
	Destination string
}
