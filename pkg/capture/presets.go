package capture

// Preset names for capture quality tiers
const (
	PresetHigh   = "high"
	PresetMedium = "medium"
	PresetLow    = "low"
	Preset720p   = "720p"
	Preset1080p  = "1080p"
)

// Resolution is the native (unrotated) sensor mode requested for a preset.
type Resolution struct {
	Width     int `json:"width"`
	Height    int `json:"height"`
	Framerate int `json:"framerate"`
}

// Presets returns all available presets.
func Presets() map[string]Resolution {
	return map[string]Resolution{
		PresetHigh:   {Width: 1920, Height: 1080, Framerate: 30},
		PresetMedium: {Width: 960, Height: 540, Framerate: 30},
		PresetLow:    {Width: 640, Height: 360, Framerate: 30},
		Preset720p:   {Width: 1280, Height: 720, Framerate: 30},
		Preset1080p:  {Width: 1920, Height: 1080, Framerate: 30},
	}
}

// PresetNames returns the list of available preset names.
func PresetNames() []string {
	return []string{
		PresetHigh,
		PresetMedium,
		PresetLow,
		Preset720p,
		Preset1080p,
	}
}

// GetPreset returns a preset by name, or nil if not found.
func GetPreset(name string) *Resolution {
	if r, ok := Presets()[name]; ok {
		return &r
	}
	return nil
}
