package backend

// The backend does not strictly guarantee which field carries the reply text
// of a turn, so every response type exposes ReplyText, taking the first
// non-empty candidate in a fixed priority order. The order lives with each
// response type; changing it changes which value wins when a response carries
// several fields at once.
func firstNonEmpty(candidates ...string) string {
	for _, c := range candidates {
		if c != "" {
			return c
		}
	}
	return ""
}
