package state

import (
	"strconv"
	"time"

	gocache "github.com/patrickmn/go-cache"
)

const (
	// A binding survives a day of inactivity before the user has to /new.
	bindingTTL      = 24 * time.Hour
	cleanupInterval = time.Hour
)

// Manager binds a Telegram user to their active canvas.
type Manager struct {
	cache *gocache.Cache
}

func NewManager() *Manager {
	return &Manager{
		cache: gocache.New(bindingTTL, cleanupInterval),
	}
}

// ActiveCanvas returns the canvas the user is currently working on.
func (m *Manager) ActiveCanvas(userID int64) (string, bool) {
	v, ok := m.cache.Get(key(userID))
	if !ok {
		return "", false
	}
	canvasID, ok := v.(string)
	return canvasID, ok
}

// SetActiveCanvas records the canvas the user is working on.
func (m *Manager) SetActiveCanvas(userID int64, canvasID string) {
	m.cache.Set(key(userID), canvasID, gocache.DefaultExpiration)
}

// Clear drops the user's active canvas binding.
func (m *Manager) Clear(userID int64) {
	m.cache.Delete(key(userID))
}

func key(userID int64) string {
	return strconv.FormatInt(userID, 10)
}
