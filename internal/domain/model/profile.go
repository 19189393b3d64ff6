package model

// TagCount pairs a tag with the number of owned assets that carry it.
type TagCount struct {
	Tag   Tag `json:"tag"`
	Count int `json:"count"`
}

// Profile aggregates tag frequencies over a holder's owned assets.
// A Profile is read-only after it is built and may be shared between
// goroutines without synchronization.
type Profile struct {
	HolderID    string      `json:"wallet_address"`
	TotalAssets int         `json:"total_assets"`
	Tags        map[Tag]int `json:"tags"`
	// Order lists every key of Tags in first-seen order.
	Order   []Tag      `json:"-"`
	TopTags []TagCount `json:"top_tags"`
}

// Count returns the occurrence count of tag, zero when absent.
func (p *Profile) Count(tag Tag) int {
	if p == nil {
		return 0
	}
	return p.Tags[tag]
}

// IsTop reports whether tag is in the profile's top-K list.
func (p *Profile) IsTop(tag Tag) bool {
	if p == nil {
		return false
	}
	for _, tc := range p.TopTags {
		if tc.Tag == tag {
			return true
		}
	}
	return false
}

// Empty reports whether the profile was built from zero assets.
func (p *Profile) Empty() bool {
	return p == nil || p.TotalAssets == 0
}
