package state

import "sync"

// UIStore holds the open/closed state of the two dashboard modals.
type UIStore struct {
	mu            sync.RWMutex
	showSettings  bool
	showBasicData bool
}

// NewUIStore returns a store with both modals closed.
func NewUIStore() *UIStore {
	return &UIStore{}
}

func (s *UIStore) ShowSettings() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.showSettings
}

func (s *UIStore) ShowBasicData() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.showBasicData
}

// AnyOpen reports whether either modal is shown.
func (s *UIStore) AnyOpen() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.showSettings || s.showBasicData
}

func (s *UIStore) ToggleSettings() {
	s.mu.Lock()
	s.showSettings = !s.showSettings
	s.mu.Unlock()
}

func (s *UIStore) OpenSettings() {
	s.mu.Lock()
	s.showSettings = true
	s.mu.Unlock()
}

func (s *UIStore) CloseSettings() {
	s.mu.Lock()
	s.showSettings = false
	s.mu.Unlock()
}

func (s *UIStore) ToggleBasicData() {
	s.mu.Lock()
	s.showBasicData = !s.showBasicData
	s.mu.Unlock()
}

func (s *UIStore) OpenBasicData() {
	s.mu.Lock()
	s.showBasicData = true
	s.mu.Unlock()
}

func (s *UIStore) CloseBasicData() {
	s.mu.Lock()
	s.showBasicData = false
	s.mu.Unlock()
}

// CloseAllModals closes both modals.
func (s *UIStore) CloseAllModals() {
	s.mu.Lock()
	s.showSettings = false
	s.showBasicData = false
	s.mu.Unlock()
}
