package game

import "time"

// CurrentParticipant returns whoever holds the turn, or false when the
// roster is empty.
func (s *SessionState) CurrentParticipant() (string, bool) {
	if len(s.Participants) == 0 {
		return "", false
	}
	return s.Participants[s.TurnIndex], true
}

// Advance rotates the turn to the next participant. A lone participant
// always holds the turn: with a roster of one (or none) only the turn
// clock is refreshed, and the round never increments. Wrapping from the
// last participant back to the first increments the round.
func (s *SessionState) Advance(now time.Time) {
	if len(s.Participants) <= 1 {
		s.TurnStartedAt = now.UTC()
		return
	}
	s.TurnIndex++
	if s.TurnIndex >= len(s.Participants) {
		s.TurnIndex = 0
		s.Round++
	}
	s.TurnStartedAt = now.UTC()
}

// JumpTo hands the turn to the named participant. Unknown identifiers
// are a silent no-op so a stale or mistyped id cannot wedge the game;
// callers wanting feedback check HasParticipant first.
func (s *SessionState) JumpTo(id string, now time.Time) {
	for i, p := range s.Participants {
		if p == id {
			s.TurnIndex = i
			s.TurnStartedAt = now.UTC()
			return
		}
	}
}

// GrantExtraTurn lets the current participant act again without
// rotating. At most one grant is allowed per round; a second request in
// the same round returns false and the caller falls back to Advance.
func (s *SessionState) GrantExtraTurn(now time.Time) bool {
	if s.ExtraTurnRound == s.Round {
		return false
	}
	s.ExtraTurnRound = s.Round
	s.TurnStartedAt = now.UTC()
	return true
}

// Join appends a first-seen participant to the end of the roster with a
// blank character sheet. Appending at the end never changes whose turn
// the pointer refers to. Reports whether the actor was actually new.
func (s *SessionState) Join(id string) bool {
	if s.HasParticipant(id) {
		return false
	}
	s.Participants = append(s.Participants, id)
	if _, ok := s.Characters[id]; !ok {
		s.Characters[id] = NewCharacterSheet()
	}
	return true
}
