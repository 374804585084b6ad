package session

import "slices"

// IndexedUsers returns the user ids present in the per-user index.
func (m *Manager) IndexedUsers() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]string, 0, len(m.byUser))
	for id := range m.byUser {
		out = append(out, id)
	}
	slices.Sort(out)
	return out
}

// IndexConsistent reports whether the table and the index describe the
// same set of sessions.
func (m *Manager) IndexConsistent() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()

	indexed := 0
	for userID, ids := range m.byUser {
		if len(ids) == 0 {
			return false
		}
		for id := range ids {
			e, ok := m.sessions[id]
			if !ok || e.rec.UserID != userID {
				return false
			}
			indexed++
		}
	}
	return indexed == len(m.sessions)
}
