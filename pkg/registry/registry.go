// Package registry owns the set of field mappings, array mappings,
// array-to-object mappings and default values that make up one mapping
// document.
//
// # Invariants
//
//   - A target field id is the target of at most one FieldMapping.
//   - Every FieldMapping has at least one transformation step.
//   - Container item mappings are derived from the live mapping collection
//     by back reference and are never stored twice.
//
// Every mutation is atomic: it fully applies or is a no-op. Invalid
// structural edits (self loops, duplicate sources, unknown ids) are silently
// ignored. Observers are notified after the registry lock is released.
package registry

import (
	"sync"

	"github.com/Gobusters/ectologger"
	"github.com/Ramsey-B/trellis/pkg/models"
)

// Change is a bit set naming the collections touched by a mutation.
type Change uint8

const (
	ChangeMappings Change = 1 << iota
	ChangeArrayMappings
	ChangeArrayToObjectMappings
	ChangeDefaultValues
	ChangeSelection
	ChangeSchemaRefs

	ChangeAll = ChangeMappings | ChangeArrayMappings | ChangeArrayToObjectMappings | ChangeDefaultValues | ChangeSelection | ChangeSchemaRefs
)

func (c Change) Has(other Change) bool {
	return c&other != 0
}

// Observer is called once per applied mutation.
type Observer func(change Change)

type mappingSlot struct {
	mapping    models.FieldMapping
	generation uint64
}

type Registry struct {
	mu     sync.RWMutex
	logger ectologger.Logger
	newID  IDGenerator

	mappings              []*mappingSlot
	arrayMappings         []models.ArrayMapping
	arrayToObjectMappings []models.ArrayToObjectMapping
	defaultValues         []models.DefaultValue
	selectedID            string
	sourceSchemaRef       string
	targetSchemaRef       string
	generation            uint64

	observerMu   sync.RWMutex
	observers    map[int]Observer
	nextObserver int
}

type Option func(*Registry)

// WithIDGenerator replaces the ULID based id generator.
func WithIDGenerator(gen IDGenerator) Option {
	return func(r *Registry) {
		r.newID = gen
	}
}

func New(logger ectologger.Logger, opts ...Option) *Registry {
	r := &Registry{
		logger:    logger,
		newID:     NewULID,
		observers: map[int]Observer{},
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Subscribe registers an observer and returns a function that removes it.
func (r *Registry) Subscribe(observer Observer) func() {
	r.observerMu.Lock()
	defer r.observerMu.Unlock()

	id := r.nextObserver
	r.nextObserver++
	r.observers[id] = observer

	return func() {
		r.observerMu.Lock()
		defer r.observerMu.Unlock()
		delete(r.observers, id)
	}
}

func (r *Registry) notify(change Change) {
	if change == 0 {
		return
	}

	r.observerMu.RLock()
	observers := make([]Observer, 0, len(r.observers))
	for _, o := range r.observers {
		observers = append(observers, o)
	}
	r.observerMu.RUnlock()

	for _, o := range observers {
		o(change)
	}
}

// mutate runs fn under the write lock and notifies observers of the change
// it reports once the lock is released.
func (r *Registry) mutate(fn func() Change) {
	r.mu.Lock()
	change := fn()
	r.mu.Unlock()

	r.notify(change)
}

// AllMappings returns the current field mappings in creation order.
func (r *Registry) AllMappings() []models.FieldMapping {
	r.mu.RLock()
	defer r.mu.RUnlock()

	result := make([]models.FieldMapping, len(r.mappings))
	for i, slot := range r.mappings {
		result[i] = cloneMapping(slot.mapping)
	}
	return result
}

// AllArrayMappings returns the array mappings with their item mappings
// resolved from the live collection.
func (r *Registry) AllArrayMappings() []models.ArrayMapping {
	r.mu.RLock()
	defer r.mu.RUnlock()

	result := make([]models.ArrayMapping, len(r.arrayMappings))
	for i, am := range r.arrayMappings {
		result[i] = r.withArrayItems(am)
	}
	return result
}

func (r *Registry) AllArrayToObjectMappings() []models.ArrayToObjectMapping {
	r.mu.RLock()
	defer r.mu.RUnlock()

	result := make([]models.ArrayToObjectMapping, len(r.arrayToObjectMappings))
	for i, am := range r.arrayToObjectMappings {
		result[i] = r.withObjectItems(am)
	}
	return result
}

func (r *Registry) AllDefaultValues() []models.DefaultValue {
	r.mu.RLock()
	defer r.mu.RUnlock()

	result := make([]models.DefaultValue, len(r.defaultValues))
	copy(result, r.defaultValues)
	return result
}

func (r *Registry) GetMapping(id string) (models.FieldMapping, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	slot := r.findSlot(id)
	if slot == nil {
		return models.FieldMapping{}, false
	}
	return cloneMapping(slot.mapping), true
}

func (r *Registry) GetMappingForTarget(targetFieldID string) (models.FieldMapping, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	slot := r.findSlotForTarget(targetFieldID, "")
	if slot == nil {
		return models.FieldMapping{}, false
	}
	return cloneMapping(slot.mapping), true
}

func (r *Registry) GetMappingsForSource(sourceFieldID string) []models.FieldMapping {
	r.mu.RLock()
	defer r.mu.RUnlock()

	result := []models.FieldMapping{}
	for _, slot := range r.mappings {
		if slot.mapping.HasSource(sourceFieldID) {
			result = append(result, cloneMapping(slot.mapping))
		}
	}
	return result
}

func (r *Registry) GetArrayMapping(id string) (models.ArrayMapping, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	i := r.arrayMappingIndex(id)
	if i < 0 {
		return models.ArrayMapping{}, false
	}
	return r.withArrayItems(r.arrayMappings[i]), true
}

// GetArrayMappingForField returns the array mapping whose source or target
// array encloses field. Fields outside an array have none.
func (r *Registry) GetArrayMappingForField(field models.FieldNode) (models.ArrayMapping, bool) {
	if field.ParentArrayPath == "" {
		return models.ArrayMapping{}, false
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, am := range r.arrayMappings {
		if am.SourceArray.Path == field.ParentArrayPath || am.TargetArray.Path == field.ParentArrayPath {
			return r.withArrayItems(am), true
		}
	}
	return models.ArrayMapping{}, false
}

func (r *Registry) GetArrayToObjectMapping(id string) (models.ArrayToObjectMapping, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	i := r.arrayToObjectMappingIndex(id)
	if i < 0 {
		return models.ArrayToObjectMapping{}, false
	}
	return r.withObjectItems(r.arrayToObjectMappings[i]), true
}

// SelectMapping sets the selected mapping id. An empty id clears it.
func (r *Registry) SelectMapping(id string) {
	r.mutate(func() Change {
		if r.selectedID == id {
			return 0
		}
		r.selectedID = id
		return ChangeSelection
	})
}

// SelectedMapping returns the selected mapping while it still exists.
func (r *Registry) SelectedMapping() (models.FieldMapping, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if r.selectedID == "" {
		return models.FieldMapping{}, false
	}
	slot := r.findSlot(r.selectedID)
	if slot == nil {
		return models.FieldMapping{}, false
	}
	return cloneMapping(slot.mapping), true
}

func (r *Registry) SetSourceSchemaRef(ref string) {
	r.mutate(func() Change {
		r.sourceSchemaRef = ref
		return ChangeSchemaRefs
	})
}

func (r *Registry) SetTargetSchemaRef(ref string) {
	r.mutate(func() Change {
		r.targetSchemaRef = ref
		return ChangeSchemaRefs
	})
}

func (r *Registry) SourceSchemaRef() string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.sourceSchemaRef
}

func (r *Registry) TargetSchemaRef() string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.targetSchemaRef
}

// ClearAllMappings empties every collection and resets the selection and
// both schema references.
func (r *Registry) ClearAllMappings() {
	r.mutate(func() Change {
		r.mappings = nil
		r.arrayMappings = nil
		r.arrayToObjectMappings = nil
		r.defaultValues = nil
		r.selectedID = ""
		r.sourceSchemaRef = ""
		r.targetSchemaRef = ""
		return ChangeAll
	})
}

func (r *Registry) findSlot(id string) *mappingSlot {
	for _, slot := range r.mappings {
		if slot.mapping.ID == id {
			return slot
		}
	}
	return nil
}

// findSlotForTarget finds the mapping targeting a field, skipping exceptID.
func (r *Registry) findSlotForTarget(targetFieldID, exceptID string) *mappingSlot {
	for _, slot := range r.mappings {
		if slot.mapping.TargetField.ID == targetFieldID && slot.mapping.ID != exceptID {
			return slot
		}
	}
	return nil
}

func (r *Registry) arrayMappingIndex(id string) int {
	for i, am := range r.arrayMappings {
		if am.ID == id {
			return i
		}
	}
	return -1
}

func (r *Registry) arrayToObjectMappingIndex(id string) int {
	for i, am := range r.arrayToObjectMappings {
		if am.ID == id {
			return i
		}
	}
	return -1
}

func (r *Registry) newSlot(m models.FieldMapping) *mappingSlot {
	r.generation++
	return &mappingSlot{mapping: m, generation: r.generation}
}

func (r *Registry) removeSlots(keep func(m models.FieldMapping) bool) bool {
	kept := make([]*mappingSlot, 0, len(r.mappings))
	for _, slot := range r.mappings {
		if keep(slot.mapping) {
			kept = append(kept, slot)
		}
	}
	removed := len(kept) != len(r.mappings)
	r.mappings = kept
	return removed
}

// clearDeadSelection drops the selection once its mapping is gone.
func (r *Registry) clearDeadSelection() Change {
	if r.selectedID != "" && r.findSlot(r.selectedID) == nil {
		r.selectedID = ""
		return ChangeSelection
	}
	return 0
}

func (r *Registry) withArrayItems(am models.ArrayMapping) models.ArrayMapping {
	am.ItemMappings = []models.FieldMapping{}
	for _, slot := range r.mappings {
		if slot.mapping.ArrayMappingID == am.ID && slot.mapping.ID != am.ID {
			am.ItemMappings = append(am.ItemMappings, cloneMapping(slot.mapping))
		}
	}
	return am
}

func (r *Registry) withObjectItems(am models.ArrayToObjectMapping) models.ArrayToObjectMapping {
	am.ItemMappings = []models.FieldMapping{}
	for _, slot := range r.mappings {
		if slot.mapping.ArrayToObjectMappingID == am.ID && slot.mapping.ID != am.ID {
			am.ItemMappings = append(am.ItemMappings, cloneMapping(slot.mapping))
		}
	}
	return am
}

func cloneMapping(m models.FieldMapping) models.FieldMapping {
	m.SourceFields = append([]models.FieldNode{}, m.SourceFields...)
	m.Transformations = append([]models.TransformationStep{}, m.Transformations...)
	return m
}
