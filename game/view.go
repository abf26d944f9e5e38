package game

// ViewFor returns a copy of g that is safe to send to viewerID. Players other
// than the host never see the correct option of a question that has not
// been played yet. The current question also stays hidden until the game
// moves past it.
func ViewFor(g Game, viewerID string) Game {
	view := g.clone()
	if g.Status == StatusFinished || IsHost(g, viewerID) {
		return view
	}
	for i := range view.Questions {
		if g.Status == StatusPlaying && i < g.CurrentQuestionIndex {
			continue
		}
		view.Questions[i].CorrectOption = HiddenOption
	}
	return view
}
