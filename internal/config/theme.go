package config

// Theme defines the colours used by board rendering and the watch view.
type Theme struct {
	// Preset name (e.g., "default", "monochrome")
	Preset string `yaml:"preset"`

	// Primary accent color (used for selections, titles, highlights)
	Accent string `yaml:"accent"`

	ColumnBorder string `yaml:"column_border"`
	TaskBorder   string `yaml:"task_border"`

	Title  string `yaml:"title"`
	Subtle string `yaml:"subtle"` // Muted/placeholder text
	Normal string `yaml:"normal"`

	// Notification colors
	Unread  string `yaml:"unread"`
	Success string `yaml:"success"`
	Error   string `yaml:"error"`
}

// DefaultTheme is the purple theme.
func DefaultTheme() Theme {
	return Theme{
		Preset:       "default",
		Accent:       "#874BFD",
		ColumnBorder: "#5F87D7",
		TaskBorder:   "#585858",
		Title:        "#D75FD7",
		Subtle:       "#585858",
		Normal:       "#D0D0D0",
		Unread:       "#00AFFF",
		Success:      "#5FD75F",
		Error:        "#FF0000",
	}
}

// MonochromeTheme is black and white.
func MonochromeTheme() Theme {
	return Theme{
		Preset:       "monochrome",
		Accent:       "#FFFFFF",
		ColumnBorder: "#808080",
		TaskBorder:   "#585858",
		Title:        "#FFFFFF",
		Subtle:       "#808080",
		Normal:       "#D0D0D0",
		Unread:       "#FFFFFF",
		Success:      "#D0D0D0",
		Error:        "#FFFFFF",
	}
}

// Preset returns a preset theme by name
func Preset(name string) Theme {
	switch name {
	case "monochrome":
		return MonochromeTheme()
	default:
		return DefaultTheme()
	}
}

// ApplyDefaults fills in missing color values using the preset as base
func (t *Theme) ApplyDefaults() {
	preset := Preset(t.Preset)

	for _, f := range []struct {
		dst *string
		src string
	}{
		{&t.Preset, preset.Preset},
		{&t.Accent, preset.Accent},
		{&t.ColumnBorder, preset.ColumnBorder},
		{&t.TaskBorder, preset.TaskBorder},
		{&t.Title, preset.Title},
		{&t.Subtle, preset.Subtle},
		{&t.Normal, preset.Normal},
		{&t.Unread, preset.Unread},
		{&t.Success, preset.Success},
		{&t.Error, preset.Error},
	} {
		if *f.dst == "" {
			*f.dst = f.src
		}
	}
}
