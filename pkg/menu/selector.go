package menu

import "github.com/small-frappuccino/guildsettings/pkg/settings"

// SelectorPayload is the family menu listing the kinds that can be configured.
func SelectorPayload(f settings.Family, disabled bool) settings.Payload {
	kinds := f.Kinds()
	opts := make([]settings.Option, 0, len(kinds))
	for _, k := range kinds {
		opts = append(opts, settings.Option{
			Label:       k.Label(),
			Value:       string(k),
			Description: k.Description(),
		})
	}

	p := settings.Payload{
		Title:       f.Label() + " Settings",
		Description: "Select the command you want to configure.",
		Tone:        settings.ToneInfo,
		Rows: [][]settings.Control{
			{{
				Action:      settings.ActionSelectKind,
				Type:        settings.ControlStringSelect,
				Placeholder: "Select a command",
				MinValues:   1,
				MaxValues:   1,
				Options:     opts,
			}},
			{{
				Action: settings.ActionCancel,
				Label:  "Cancel",
				Type:   settings.ControlButton,
				Style:  settings.StyleDanger,
			}},
		},
	}
	if disabled {
		p.Tone = settings.ToneMuted
		p = p.Disable()
	}
	return p
}
