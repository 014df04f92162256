package scip

// Document is one indexed source file.
type Document struct {
	// RelativePath is the path relative to the project root
	RelativePath string

	// Language is the programming language
	Language string

	// Occurrences are all symbol occurrences in this document
	Occurrences []Occurrence
}

// Occurrence is a single occurrence of a symbol in a document.
type Occurrence struct {
	// Line is the 1-based start line
	Line int

	// Symbol is the SCIP symbol identifier
	Symbol string

	// Roles is the SCIP SymbolRole bitset
	Roles int32
}

// IsDefinition reports whether the occurrence defines its symbol.
func (o Occurrence) IsDefinition() bool {
	return o.Roles&SymbolRoleDefinition != 0
}

// SymbolRole constants (from SCIP protocol)
const (
	SymbolRoleDefinition        int32 = 1
	SymbolRoleImport            int32 = 2
	SymbolRoleWriteAccess       int32 = 4
	SymbolRoleReadAccess        int32 = 8
	SymbolRoleGenerated         int32 = 16
	SymbolRoleTest              int32 = 32
	SymbolRoleForwardDefinition int32 = 64
)
