package chat

// Option is a quick-reply button attached to a bot response. Options are
// ephemeral: every response that carries options replaces the previous set
// wholesale, and selecting one (or hitting an error) clears them.
type Option struct {
	Value       string `json:"value"`
	Label       string `json:"label"`
	Description string `json:"description,omitempty"`
	Available   *bool  `json:"available,omitempty"`
}

// Selectable reports whether the option may be chosen. Absent means available.
func (o Option) Selectable() bool {
	return o.Available == nil || *o.Available
}
