package document

import (
	"encoding/json"

	"github.com/cockroachdb/errors"
)

const (
	ElementText  = "text"
	ElementImage = "image"
)

// Element поля элемента сцены, которые нужны поиску и очистке файлов
type Element struct {
	ID     string `json:"id"`
	Type   string `json:"type"`
	Text   string `json:"text,omitempty"`
	FileID string `json:"fileId,omitempty"`
}

// Elements разбирает граф элементов из payload
func (p Payload) Elements() ([]Element, error) {
	var elements []Element
	if err := json.Unmarshal([]byte(p.Excalidraw), &elements); err != nil {
		return nil, errors.Wrapf(ErrMalformedPayload, "elements: %v", err)
	}
	return elements, nil
}

// TextFragments возвращает тексты текстовых элементов
func (p Payload) TextFragments() ([]string, error) {
	elements, err := p.Elements()
	if err != nil {
		return nil, err
	}

	var texts []string
	for _, el := range elements {
		if el.Type == ElementText {
			texts = append(texts, el.Text)
		}
	}
	return texts, nil
}

// ImageFileIDs возвращает fileId всех элементов-изображений
func (p Payload) ImageFileIDs() ([]string, error) {
	elements, err := p.Elements()
	if err != nil {
		return nil, err
	}

	var ids []string
	for _, el := range elements {
		if el.Type == ElementImage && el.FileID != "" {
			ids = append(ids, el.FileID)
		}
	}
	return ids, nil
}
