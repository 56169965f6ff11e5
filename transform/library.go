package transform

// Library builds the standard ordered rewrite pipeline applied to a
// parsed program. Rules run in the order listed, the canonicalizing and
// folding rules first and the inliners and the unused-declaration
// remover last; ApplyAll repeats the whole list until nothing changes. keywords feeds the
// comment marker's markKeywords list (spec.md §6); a nil/empty slice
// still marks debugger statements and setTimeout/setInterval calls.
func Library(keywords []string) []Transform {
	return []Transform{
		StringHexCanonicalizer,
		SequenceSplitter,
		BinaryEvaluator,
		BooleanLiteralFolder,
		TypeofFolder,
		UnreachableBranchCollapser,
		SwitchCollapser,
		ControlFlowFlattener,
		SelfInvokingUnwrapper,
		ConstantInliner,
		ObjectClusterInliner,
		NestedFunctionIndirectionCollapser,
		UnusedDeclarationRemover,
		NewCommentMarker(keywords),
	}
}

// DefaultMaxIterations bounds the fixed-point loop in ApplyAll. Chosen
// generously: each pass is O(program size), and real obfuscated input
// converges in well under this many rounds.
const DefaultMaxIterations = 50
