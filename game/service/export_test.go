package service

// AttachedGames reports how many games svc has wired to its surfaces
func AttachedGames(svc GameService) int {
	s := svc.(*gameServiceImpl)
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.attached)
}
