package ir

// Version constants for the journal schema and the tool.
const (
	// JournalVersion is the mutation journal record version.
	JournalVersion = "1"

	// ToolVersion is the nodelink version.
	ToolVersion = "0.1.0"
)
