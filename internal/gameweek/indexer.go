package gameweek

import (
	"github.com/nickbutler25/FPLOptimizer/internal/fplerr"
	"github.com/nickbutler25/FPLOptimizer/internal/models"
)

// Outlook is the fixture view for one club in one gameweek.
type Outlook struct {
	FixtureID  int
	Difficulty int // 1-5
	IsHome     bool
}

// Indexer answers "what is the next gameweek" and "who does this club play
// in gameweek N". Built once per solve from immutable snapshots.
type Indexer struct {
	next     int
	byClubGW map[clubGW]models.Fixture
}

type clubGW struct {
	club int
	gw   int
}

// New builds an indexer from the gameweek roster and fixture list.
// Returns an error when no upcoming gameweek exists (season over).
func New(events []models.Event, fixtures []models.Fixture) (*Indexer, error) {
	next := 0
	for _, ev := range events {
		if ev.IsNext {
			next = ev.ID
			break
		}
	}
	if next == 0 {
		// Fallback: first gameweek that has not finished
		for _, ev := range events {
			if !ev.Finished {
				next = ev.ID
				break
			}
		}
	}
	if next == 0 {
		return nil, fplerr.NotFound("no upcoming gameweek")
	}

	idx := &Indexer{
		next:     next,
		byClubGW: make(map[clubGW]models.Fixture, 2*len(fixtures)),
	}
	for _, f := range fixtures {
		if f.Event == nil {
			continue
		}
		gw := *f.Event
		// First fixture wins in a double gameweek; additional fixtures for
		// the same club and gameweek are not modeled.
		for _, club := range []int{f.HomeClub, f.AwayClub} {
			key := clubGW{club: club, gw: gw}
			if _, seen := idx.byClubGW[key]; !seen {
				idx.byClubGW[key] = f
			}
		}
	}
	return idx, nil
}

// NextGameweek returns the id of the upcoming gameweek.
func (i *Indexer) NextGameweek() int { return i.next }

// FixtureFor returns the fixture a club plays in a gameweek. ok is false on
// a blank gameweek, which is legal and common.
func (i *Indexer) FixtureFor(clubID, gameweekID int) (models.Fixture, bool) {
	f, ok := i.byClubGW[clubGW{club: clubID, gw: gameweekID}]
	return f, ok
}

// OutlookFor returns the difficulty and venue for a club's fixture in a
// gameweek. ok is false on a blank gameweek.
func (i *Indexer) OutlookFor(clubID, gameweekID int) (Outlook, bool) {
	f, ok := i.byClubGW[clubGW{club: clubID, gw: gameweekID}]
	if !ok {
		return Outlook{}, false
	}
	if f.HomeClub == clubID {
		return Outlook{FixtureID: f.ID, Difficulty: f.HomeDifficulty, IsHome: true}, true
	}
	return Outlook{FixtureID: f.ID, Difficulty: f.AwayDifficulty, IsHome: false}, true
}
