package domain

// KeyChanged is published after a successful write or delete on a watched
// store. Key is the unscoped key.
type KeyChanged struct {
	Scope string
	Key   string
}

// BagChanged is published after every bag write.
type BagChanged struct {
	VisitorID string
	IDs       []string
}
