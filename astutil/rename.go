package astutil

// RenameFast renames every occurrence of b — its declaration, every read,
// and every write — to newName in place. It mutates Identifier.Name
// directly rather than going through Path.ReplaceWith, since a rename
// never changes a node's kind; this is the common case and avoids the
// bookkeeping a full replace would trigger.
func RenameFast(b *Binding, newName string) {
	if b.Identifier != nil {
		b.Identifier.Name = newName
	}
	for _, ref := range b.ReferencePaths {
		ref.Node.Name = newName
	}
	for _, ref := range b.ConstantViolations {
		ref.Node.Name = newName
	}
}

// RenameParameters renames oldNames[i] to newNames[i], looking up each
// old name's binding in fnScope and renaming every use alongside it.
// It stops when newNames runs out, and skips an old name that is not
// declared in fnScope as a parameter (BindParam).
func RenameParameters(fnScope *Scope, oldNames []string, newNames []string) {
	for i, old := range oldNames {
		if i >= len(newNames) {
			return
		}
		if b := fnScope.GetOwnBinding(old); b != nil && b.Kind == BindParam {
			RenameFast(b, newNames[i])
		}
	}
}
