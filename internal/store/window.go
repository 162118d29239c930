package store

import (
	"context"
	"sort"
)

// The per-conversation window caches the most recent WindowSize messages in
// ascending insertion order. It is seeded lazily from the database on first
// read and maintained incrementally by the write path; anything it cannot
// answer falls through to the database.

// seedWindow returns a snapshot of the window for dicID, loading the
// recent tail from the database if the window is not resident yet.
func (h *Handle) seedWindow(ctx context.Context, dicID int64) ([]Message, error) {
	h.winMu.Lock()
	defer h.winMu.Unlock()
	win, ok := h.windows[dicID]
	if !ok {
		tail, err := h.dics.Tail(ctx, dicID, h.opts.WindowSize)
		if err != nil {
			return nil, err
		}
		h.windows[dicID] = tail
		win = tail
	}
	snapshot := make([]Message, len(win))
	copy(snapshot, win)
	return snapshot, nil
}

// windowInsert adds a freshly stored message to a resident window. Windows
// not yet resident stay absent and pick the row up when seeded.
func (h *Handle) windowInsert(dicID int64, m Message) {
	h.winMu.Lock()
	defer h.winMu.Unlock()
	win, ok := h.windows[dicID]
	if !ok {
		return
	}
	idx := sort.Search(len(win), func(i int) bool { return win[i].ID >= m.ID })
	win = append(win, Message{})
	copy(win[idx+1:], win[idx:])
	win[idx] = m
	if len(win) > h.opts.WindowSize {
		win = win[len(win)-h.opts.WindowSize:]
	}
	h.windows[dicID] = win
}

// windowReplace overwrites the cached copy of a message if resident.
func (h *Handle) windowReplace(dicID int64, m Message) {
	h.winMu.Lock()
	defer h.winMu.Unlock()
	win, ok := h.windows[dicID]
	if !ok {
		return
	}
	for i := range win {
		if win[i].ID == m.ID {
			win[i] = m
			return
		}
	}
}

// windowDrop evicts a conversation's window after a bulk delete; the next
// read reseeds from the database.
func (h *Handle) windowDrop(dicID int64) {
	h.winMu.Lock()
	defer h.winMu.Unlock()
	delete(h.windows, dicID)
}
