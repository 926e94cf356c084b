package scraper

import (
	"fmt"

	"github.com/ibeckermayer/ugc2notion/internal/types"
)

// rawPost represents the raw data extracted from the DOM via JavaScript
type rawPost struct {
	Images   []string `json:"images"`
	Content  string   `json:"content"`
	PostedAt string   `json:"postedAt"`
}

func (rp rawPost) toRaw() types.RawExtraction {
	images := make([]string, 0, len(rp.Images))
	for _, u := range rp.Images {
		if u != "" {
			images = append(images, u)
		}
	}
	return types.RawExtraction{
		MediaURLs:   images,
		RawText:     rp.Content,
		PublishedAt: rp.PostedAt,
	}
}

// extractJS reads every field in one evaluation. The carousel selector is
// tried first so that a single matched image is not mistaken for the whole
// post. srcset is read from the DOM, so blocking image downloads does not
// hide it.
const extractJS = `
	(function(useCarousel) {
		// Pick the widest srcset candidate; ties go to the later entry
		const best = (img) => {
			if (!img.srcset) {
				return img.src || '';
			}
			let url = '';
			let width = -1;
			img.srcset.split(',').forEach(part => {
				const fields = part.trim().split(/\s+/);
				if (!fields[0]) return;
				const w = fields[1] ? parseFloat(fields[1]) || 0 : 0;
				if (w >= width) {
					width = w;
					url = fields[0];
				}
			});
			return url || img.src || '';
		};

		const images = [];
		if (useCarousel) {
			document.querySelectorAll(%q).forEach(img => {
				const u = best(img);
				if (u) images.push(u);
			});
		}

		if (images.length === 0) {
			const single = document.querySelector(%q);
			if (single) {
				const u = best(single);
				if (u) images.push(u);
			}
		}

		const article = document.querySelector(%q);
		const heading = article ? article.querySelector(%q) : null;
		const content = heading ? (heading.textContent || '') : '';

		const timeEl = document.querySelector(%q);
		const postedAt = timeEl ? (timeEl.getAttribute('datetime') || '') : '';

		return { images, content, postedAt };
	})(%t)
`

func extractScript(strategy ImageStrategy) string {
	return fmt.Sprintf(extractJS,
		CarouselImage,
		PrimaryImage,
		ContentRegion,
		CaptionText,
		PostTimestamp,
		strategy == StrategyCarousel,
	)
}
