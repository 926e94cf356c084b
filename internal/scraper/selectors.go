package scraper

// Instagram post page selectors.
// These are isolated here because Instagram changes its DOM frequently.
// Update these when extraction breaks.

const (
	// ContentRegion must exist before any field is read
	ContentRegion = `article`

	// Media selectors, tried in this order
	CarouselImage = `article [role="presentation"] [role="button"] img`
	PrimaryImage  = `article img`

	// Caption and timestamp
	CaptionText   = `h1`
	PostTimestamp = `time`
)

// WaitForContent is the readiness marker awaited after navigation
const WaitForContent = ContentRegion
