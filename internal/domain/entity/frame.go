package entity

// Frame is an in-memory image. Candidate frames are proposed by the
// extraction collaborator; keyframes are the selected final output.
// Ownership transfers to the caller on return, the source chunk keeps no
// reference.
type Frame struct {
	// Data is the encoded image payload.
	Data []byte
	// Format is the encoding, e.g. "jpeg" or "png".
	Format string
	// SourceClip names the clip the frame was extracted from, for
	// provenance only.
	SourceClip string
}
