package masking

// Masker is a code-based masker with structural awareness, applied before
// the regex sweep.
type Masker interface {
	// Name identifies the masker in pattern group configuration.
	Name() string
	// AppliesTo reports whether the content looks like something this
	// masker understands (cheap check before the full Mask pass).
	AppliesTo(content string) bool
	// Mask returns the content with sensitive values replaced.
	Mask(content string) string
}
