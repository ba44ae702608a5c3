package rendition

// Profile is a named bounding box and JPEG quality.
type Profile struct {
	Name    string `json:"name"`
	Width   int    `json:"width"`
	Height  int    `json:"height"`
	Quality int    `json:"quality"`
}

// Original names the unprocessed blob when a profile is requested by name.
const Original = "original"

// Profiles is the fixed generation order.
var Profiles = []Profile{
	{Name: "thumbnail", Width: 300, Height: 300, Quality: 80},
	{Name: "medium", Width: 1200, Height: 800, Quality: 85},
	{Name: "large", Width: 1920, Height: 1080, Quality: 90},
}

// ProfileByName looks up one of Profiles.
func ProfileByName(name string) (Profile, bool) {
	for _, p := range Profiles {
		if p.Name == name {
			return p, true
		}
	}
	return Profile{}, false
}
