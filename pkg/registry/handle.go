package registry

import "github.com/Ramsey-B/trellis/pkg/models"

// Handle is a stable reference to one incarnation of a field mapping. It
// stops resolving once the mapping is removed, merged away or replaced by an
// import, even if a later mapping reuses the same id.
type Handle struct {
	ID         string
	Generation uint64
}

func (h Handle) IsZero() bool {
	return h.ID == "" && h.Generation == 0
}

// Handle returns the current handle of a mapping.
func (r *Registry) Handle(id string) (Handle, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	slot := r.findSlot(id)
	if slot == nil {
		return Handle{}, false
	}
	return Handle{ID: id, Generation: slot.generation}, true
}

// Resolve returns the mapping a handle points at while it is still alive.
func (r *Registry) Resolve(h Handle) (models.FieldMapping, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	slot := r.findSlot(h.ID)
	if slot == nil || slot.generation != h.Generation {
		return models.FieldMapping{}, false
	}
	return cloneMapping(slot.mapping), true
}
