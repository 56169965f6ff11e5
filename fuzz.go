package deobf

// Fuzz is the go-fuzz entry point: feed data through the full pipeline
// with default options and report whether it was an interesting input.
// Grounded on the teacher's own root-level Fuzz, which ran a template
// string through Bundle.Compile the same way; this is that same
// single-call-into-the-pipeline shape pointed at Deobfuscate instead.
func Fuzz(data []byte) int {
	if _, err := Deobfuscate("fuzz.js", string(data), DefaultOptions()); err != nil {
		return 0
	}
	return 1
}
