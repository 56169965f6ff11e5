package decoder

import (
	"github.com/jsdeobf/jsdeobf/astutil"
	"github.com/jsdeobf/jsdeobf/jsast"
)

// RenameDesignated implements spec.md §4.5's "designated decoder
// renaming": when the caller already knows a decoder's real name
// (opts.Decoders), every `let alias = decoder;` declarator in a
// program-level `let` statement is removed and alias's references are
// renamed to decoder across its scope, so the rest of the pipeline only
// ever sees the canonical name. `let` statements nested inside functions
// or blocks, and `var`/`const` aliases, are not examined.
func RenameDesignated(prog *jsast.Program, decoders []string) int {
	canonical := map[string]bool{}
	for _, name := range decoders {
		canonical[name] = true
	}
	if len(canonical) == 0 {
		return 0
	}

	scope := rootScope(prog)
	renamed := 0
	for i := 0; i < len(prog.Body); i++ {
		decl, ok := prog.Body[i].(*jsast.VariableDeclaration)
		if !ok || decl.Kind != "let" {
			continue
		}
		kept := decl.Declarations[:0]
		touched := false
		for _, d := range decl.Declarations {
			id, ok := d.Init.(*jsast.Identifier)
			if !ok || !canonical[id.Name] || d.Id.Name == id.Name {
				kept = append(kept, d)
				continue
			}
			b := scope.GetOwnBinding(d.Id.Name)
			if b == nil {
				kept = append(kept, d)
				continue
			}
			astutil.RenameFast(b, id.Name)
			touched = true
			renamed++
		}
		if !touched {
			continue
		}
		decl.Declarations = kept
		if len(decl.Declarations) == 0 {
			prog.Body = append(prog.Body[:i], prog.Body[i+1:]...)
			i--
		}
	}
	return renamed
}
