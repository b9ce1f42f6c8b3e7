package validation

import "strings"

// downloadPrefix is the boilerplate Digital Foundry puts in front of
// page titles on download pages.
const downloadPrefix = "Download "

// blacklist holds characters that are illegal in file names on at
// least one supported filesystem.
const blacklist = "\\/:*?\"<>|\x00"

// SanitizeTitle converts a page title into a name safe to use as a
// file path: the "Download " prefix is stripped and illegal characters
// are removed.
func SanitizeTitle(title string) string {
	title = strings.TrimPrefix(title, downloadPrefix)

	var sb strings.Builder
	sb.Grow(len(title))
	for _, r := range title {
		if !strings.ContainsRune(blacklist, r) {
			sb.WriteRune(r)
		}
	}
	return strings.TrimSpace(sb.String())
}
