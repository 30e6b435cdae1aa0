package theme

// Seasonal palette. Select it with GUILDSETTINGS_THEME=halloween; roles not
// listed here fall back to the defaults.
func init() {
	MustRegister(&Theme{
		Name:    "halloween",
		Primary: 0xEB6123, // Pumpkin
		Muted:   0x6B4E71, // Dusk
		Error:   0xF28B82, // Pastel red
	})
}
