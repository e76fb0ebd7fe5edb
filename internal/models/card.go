package models

import "math/rand"

// CardMode is the primary view state of a rendered post card.
type CardMode string

const (
	CardViewing CardMode = "viewing"
	CardEditing CardMode = "editing"
)

// PanelState is the orthogonal image-panel state of a card.
type PanelState string

const (
	PanelClosed     PanelState = "closed"
	PanelOpen       PanelState = "open"
	PanelGenerating PanelState = "generating"
	PanelReady      PanelState = "ready"
)

// Card tracks the interactive state of one rendered post. Interaction
// counters are cosmetic: seeded randomly on first render, toggled as
// booleans with a ±1 count adjustment, and never leave the session.
type Card struct {
	Mode  CardMode   `json:"mode"`
	Panel PanelState `json:"panel"`

	LikeCount    int  `json:"likeCount"`
	RepostCount  int  `json:"repostCount"`
	CommentCount int  `json:"commentCount"`
	Liked        bool `json:"liked"`
	Reposted     bool `json:"reposted"`
	Commented    bool `json:"commented"`

	// Visual holds the result of the last completed image/video generation:
	// a data URI for static styles, a blob path for animated ones.
	Visual      string     `json:"visual,omitempty"`
	VisualStyle ImageStyle `json:"visualStyle,omitempty"`
}

// NewCard returns a fresh card in viewing mode with seeded counters.
func NewCard(rng *rand.Rand) Card {
	return Card{
		Mode:         CardViewing,
		Panel:        PanelClosed,
		LikeCount:    rng.Intn(450) + 12,
		RepostCount:  rng.Intn(80) + 3,
		CommentCount: rng.Intn(60) + 1,
	}
}

// StartEdit moves the card into editing mode and forces the image panel
// closed. Returns false if the card is already being edited.
func (c *Card) StartEdit() bool {
	if c.Mode == CardEditing {
		return false
	}
	if c.Panel == PanelGenerating {
		return false
	}
	c.Mode = CardEditing
	c.Panel = PanelClosed
	return true
}

// FinishEdit returns the card to viewing mode. The caller commits or
// discards the draft; the card itself holds no draft state.
func (c *Card) FinishEdit() {
	c.Mode = CardViewing
}

// TogglePanel opens or closes the image panel. Toggling is rejected while a
// generation is in flight.
func (c *Card) TogglePanel() bool {
	switch c.Panel {
	case PanelGenerating:
		return false
	case PanelClosed:
		c.Panel = PanelOpen
	default:
		c.Panel = PanelClosed
	}
	return true
}

// BeginVisual marks the single outstanding generation for this card.
// A second begin while one is pending is rejected.
func (c *Card) BeginVisual(style ImageStyle) bool {
	if c.Mode == CardEditing || c.Panel == PanelGenerating {
		return false
	}
	// Regenerating clears the previous result first.
	c.Visual = ""
	c.VisualStyle = style
	c.Panel = PanelGenerating
	return true
}

// CompleteVisual records the generation outcome. A failed or empty result
// returns the panel to open so the user can retry.
func (c *Card) CompleteVisual(ref string) {
	if ref == "" {
		c.Panel = PanelOpen
		return
	}
	c.Visual = ref
	c.Panel = PanelReady
}

// ClearVisual drops any result and closes the panel.
func (c *Card) ClearVisual() {
	c.Visual = ""
	c.VisualStyle = ""
	c.Panel = PanelClosed
}

// ToggleLike flips the like state and adjusts the seeded count by one.
func (c *Card) ToggleLike() {
	if c.Liked {
		c.LikeCount--
	} else {
		c.LikeCount++
	}
	c.Liked = !c.Liked
}

// ToggleRepost flips the repost state and adjusts the seeded count by one.
func (c *Card) ToggleRepost() {
	if c.Reposted {
		c.RepostCount--
	} else {
		c.RepostCount++
	}
	c.Reposted = !c.Reposted
}

// ToggleComment flips the comment marker and adjusts the seeded count by one.
func (c *Card) ToggleComment() {
	if c.Commented {
		c.CommentCount--
	} else {
		c.CommentCount++
	}
	c.Commented = !c.Commented
}
