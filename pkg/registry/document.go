package registry

import (
	"bytes"
	"encoding/json"

	"github.com/Gobusters/ectologger"
	"github.com/Ramsey-B/trellis/pkg/models"
	"github.com/pkg/errors"
)

// legacyMapping accepts the single `transformation` step written by older
// documents.
type legacyMapping struct {
	models.FieldMapping
	Transformation *models.TransformationStep `json:"transformation,omitempty"`
}

type documentWire struct {
	models.Document
	Mappings []legacyMapping `json:"mappings"`
}

type decodedDocument struct {
	document models.Document
	legacy   bool
}

// DecodeDocument parses an exported document or a legacy bare mapping array
// and normalizes it: empty pipelines become direct, missing collections
// become empty and item mappings only listed under their container join the
// mapping list.
func DecodeDocument(data []byte) (models.Document, error) {
	decoded, err := decodeDocument(data)
	if err != nil {
		return models.Document{}, err
	}
	return decoded.document, nil
}

func decodeDocument(data []byte) (decodedDocument, error) {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 {
		return decodedDocument{}, errors.New("mapping document is empty")
	}

	if trimmed[0] == '[' {
		var legacy []legacyMapping
		if err := json.Unmarshal(trimmed, &legacy); err != nil {
			return decodedDocument{}, errors.Wrap(err, "invalid legacy mapping list")
		}
		doc := models.Document{Version: models.DocumentVersion, Mappings: upgradeMappings(legacy)}
		if err := normalize(&doc); err != nil {
			return decodedDocument{}, err
		}
		return decodedDocument{document: doc, legacy: true}, nil
	}

	var probe map[string]json.RawMessage
	if err := json.Unmarshal(trimmed, &probe); err != nil {
		return decodedDocument{}, errors.Wrap(err, "invalid mapping document")
	}
	if raw, ok := probe["mappings"]; !ok || string(raw) == "null" {
		return decodedDocument{}, errors.New("mapping document has no mappings")
	}

	var wire documentWire
	if err := json.Unmarshal(trimmed, &wire); err != nil {
		return decodedDocument{}, errors.Wrap(err, "invalid mapping document")
	}

	doc := wire.Document
	doc.Mappings = upgradeMappings(wire.Mappings)
	if err := normalize(&doc); err != nil {
		return decodedDocument{}, err
	}
	return decodedDocument{document: doc}, nil
}

func upgradeMappings(legacy []legacyMapping) []models.FieldMapping {
	result := make([]models.FieldMapping, len(legacy))
	for i, lm := range legacy {
		m := lm.FieldMapping
		if len(m.Transformations) == 0 && lm.Transformation != nil {
			m.Transformations = []models.TransformationStep{*lm.Transformation}
		}
		result[i] = m
	}
	return result
}

func normalize(doc *models.Document) error {
	if doc.Version == "" {
		doc.Version = models.DocumentVersion
	}
	doc.Mappings = append([]models.FieldMapping{}, doc.Mappings...)
	if doc.ArrayMappings == nil {
		doc.ArrayMappings = []models.ArrayMapping{}
	}
	if doc.ArrayToObjectMappings == nil {
		doc.ArrayToObjectMappings = []models.ArrayToObjectMapping{}
	}
	if doc.DefaultValues == nil {
		doc.DefaultValues = []models.DefaultValue{}
	}

	ids := map[string]bool{}
	for _, m := range doc.Mappings {
		ids[m.ID] = true
	}
	for _, am := range doc.ArrayMappings {
		for _, item := range am.ItemMappings {
			if !ids[item.ID] {
				item.ArrayMappingID = am.ID
				doc.Mappings = append(doc.Mappings, item)
				ids[item.ID] = true
			}
		}
	}
	for _, am := range doc.ArrayToObjectMappings {
		for _, item := range am.ItemMappings {
			if !ids[item.ID] {
				item.ArrayToObjectMappingID = am.ID
				doc.Mappings = append(doc.Mappings, item)
				ids[item.ID] = true
			}
		}
	}

	seen := map[string]bool{}
	targets := map[string]bool{}
	for i := range doc.Mappings {
		m := &doc.Mappings[i]
		if m.ID == "" {
			return errors.Errorf("mappings[%d]: missing id", i)
		}
		if seen[m.ID] {
			return errors.Errorf("mappings[%d]: duplicate id '%s'", i, m.ID)
		}
		seen[m.ID] = true

		if m.TargetField.ID != "" {
			if targets[m.TargetField.ID] {
				return errors.Errorf("mappings[%d]: target field '%s' is already mapped", i, m.TargetField.ID)
			}
			targets[m.TargetField.ID] = true
		}

		if len(m.Transformations) == 0 {
			m.Transformations = []models.TransformationStep{models.DirectStep()}
		}
	}

	return nil
}

// ExportDocument captures the registry as a document. Item mappings are
// filled in from the live mapping list.
func (r *Registry) ExportDocument(name, description string) models.Document {
	if name == "" {
		name = models.DefaultDocumentName
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	doc := models.Document{
		Version:               models.DocumentVersion,
		Name:                  name,
		Description:           description,
		Mappings:              make([]models.FieldMapping, len(r.mappings)),
		ArrayMappings:         make([]models.ArrayMapping, len(r.arrayMappings)),
		ArrayToObjectMappings: make([]models.ArrayToObjectMapping, len(r.arrayToObjectMappings)),
		DefaultValues:         append([]models.DefaultValue{}, r.defaultValues...),
		SourceSchemaRef:       r.sourceSchemaRef,
		TargetSchemaRef:       r.targetSchemaRef,
	}
	for i, slot := range r.mappings {
		doc.Mappings[i] = cloneMapping(slot.mapping)
	}
	for i, am := range r.arrayMappings {
		doc.ArrayMappings[i] = r.withArrayItems(am)
	}
	for i, am := range r.arrayToObjectMappings {
		doc.ArrayToObjectMappings[i] = r.withObjectItems(am)
	}

	return doc
}

// Snapshot is the document the executor runs against.
func (r *Registry) Snapshot() models.Document {
	return r.ExportDocument("", "")
}

// ExportMappings serializes the registry as indented JSON.
func (r *Registry) ExportMappings(name, description string) (string, error) {
	data, err := json.MarshalIndent(r.ExportDocument(name, description), "", "  ")
	if err != nil {
		return "", errors.Wrap(err, "failed to encode mapping document")
	}
	return string(data), nil
}

// ImportMappings replaces the registry contents from JSON. A legacy mapping
// array replaces only the mappings. A document that fails to decode is
// logged and leaves the registry untouched.
func (r *Registry) ImportMappings(data string) bool {
	decoded, err := decodeDocument([]byte(data))
	if err != nil {
		r.logger.WithError(err).Warn("failed to import mapping document")
		return false
	}

	r.mutate(func() Change {
		return r.load(decoded.document, decoded.legacy)
	})
	return true
}

// ImportDocument replaces the registry contents with an already decoded
// document.
func (r *Registry) ImportDocument(doc models.Document) error {
	if err := normalize(&doc); err != nil {
		return err
	}

	r.mutate(func() Change {
		return r.load(doc, false)
	})
	return nil
}

// LoadRegistry builds a registry holding doc.
func LoadRegistry(logger ectologger.Logger, doc models.Document, opts ...Option) (*Registry, error) {
	r := New(logger, opts...)
	if err := r.ImportDocument(doc); err != nil {
		return nil, errors.Wrapf(err, "failed to load mapping document '%s'", doc.Name)
	}
	return r, nil
}

func (r *Registry) load(doc models.Document, mappingsOnly bool) Change {
	slots := make([]*mappingSlot, len(doc.Mappings))
	for i, m := range doc.Mappings {
		slots[i] = r.newSlot(cloneMapping(m))
	}
	r.mappings = slots

	if mappingsOnly {
		return ChangeMappings | r.clearDeadSelection()
	}

	r.arrayMappings = make([]models.ArrayMapping, len(doc.ArrayMappings))
	for i, am := range doc.ArrayMappings {
		am.ItemMappings = nil
		r.arrayMappings[i] = am
	}
	r.arrayToObjectMappings = make([]models.ArrayToObjectMapping, len(doc.ArrayToObjectMappings))
	for i, am := range doc.ArrayToObjectMappings {
		am.ItemMappings = nil
		r.arrayToObjectMappings[i] = am
	}
	r.defaultValues = append([]models.DefaultValue{}, doc.DefaultValues...)
	r.sourceSchemaRef = doc.SourceSchemaRef
	r.targetSchemaRef = doc.TargetSchemaRef
	r.clearDeadSelection()

	return ChangeAll
}
