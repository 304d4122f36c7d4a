package findings

// ShortIDDisplayLen is the number of hex characters shown for finding IDs
// in human output.
const ShortIDDisplayLen = 7

// ShortID abbreviates id for display.
func ShortID(id string) string {
	if len(id) <= ShortIDDisplayLen {
		return id
	}
	return id[:ShortIDDisplayLen]
}
