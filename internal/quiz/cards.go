package quiz

// Placement tells the presentation layer where a card sits in the stack
type Placement string

const (
	PlacementCurrent  Placement = "current"
	PlacementAnswered Placement = "answered"
	PlacementSkipped  Placement = "skipped"
	PlacementUpcoming Placement = "upcoming"
	PlacementHidden   Placement = "hidden"
)

// Card is the read-only view of one question for rendering.
// StackPosition orders cards within the answered or skipped pile.
type Card struct {
	Index         int       `json:"index"`
	QuestionID    int64     `json:"question_id"`
	IsAnswered    bool      `json:"is_answered"`
	IsSkipped     bool      `json:"is_skipped"`
	IsCurrent     bool      `json:"is_current"`
	Placement     Placement `json:"placement"`
	StackPosition int       `json:"stack_position"`
}

// Cards derives the per-question flags from s
func Cards(s State) []Card {
	cards := make([]Card, len(s.Questions))
	answeredBefore := 0
	for i, q := range s.Questions {
		c := Card{
			Index:      i,
			QuestionID: q.ID,
			IsAnswered: s.IsAnswered(i),
			IsSkipped:  s.IsSkipped(i),
			IsCurrent:  !s.Completed && i == s.Current,
		}

		switch {
		case c.IsAnswered:
			c.StackPosition = answeredBefore
		case c.IsSkipped:
			c.StackPosition = s.skippedBelow(i)
		}

		switch {
		case s.Completed:
			c.Placement = PlacementHidden
		case c.IsCurrent:
			c.Placement = PlacementCurrent
		case c.IsAnswered:
			c.Placement = PlacementAnswered
		case c.IsSkipped:
			c.Placement = PlacementSkipped
		default:
			c.Placement = PlacementUpcoming
		}

		if c.IsAnswered {
			answeredBefore++
		}
		cards[i] = c
	}
	return cards
}

// skippedBelow counts skipped indices smaller than i
func (s State) skippedBelow(i int) int {
	n := 0
	for _, idx := range s.Skipped {
		if idx < i {
			n++
		}
	}
	return n
}
