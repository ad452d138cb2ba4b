package converter

// Options are the optional conversion parameters. Image conversions
// honor all three fields; document conversions ignore them. Zero values
// mean "use the default".
type Options struct {
	// Quality is the lossy encoding quality, clamped to 1–100.
	// Default 95.
	Quality int
	// MaxWidth / MaxHeight bound the output dimensions while preserving
	// aspect ratio. Unset dimensions are unconstrained.
	MaxWidth  int
	MaxHeight int
}

const defaultQuality = 95

// quality returns the effective, clamped encoding quality.
func (o Options) quality() int {
	switch {
	case o.Quality == 0:
		return defaultQuality
	case o.Quality < 1:
		return 1
	case o.Quality > 100:
		return 100
	}
	return o.Quality
}
