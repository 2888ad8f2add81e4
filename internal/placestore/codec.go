package placestore

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/UkralStul/barfinder-service/internal/storage"

	"github.com/mitchellh/mapstructure"
)

// toDocument переводит структуру в документ через JSON: так значения
// документа совпадают с тем, что вернет любой бэкенд после чтения.
func toDocument(v any) (storage.Document, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("encode %T: %w", v, err)
	}
	var doc storage.Document
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("encode %T: %w", v, err)
	}
	delete(doc, storage.IDField)
	return doc, nil
}

// fromDocument декодирует документ в структуру.
// Слабая типизация нужна для записей, созданных вне сервиса:
// координаты числом вместо текста, рейтинг строкой и т.п.
func fromDocument(doc storage.Document, out any) error {
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		DecodeHook:       mapstructure.StringToTimeHookFunc(time.RFC3339Nano),
		WeaklyTypedInput: true,
		TagName:          "mapstructure",
		Result:           out,
	})
	if err != nil {
		return err
	}
	if err := dec.Decode(map[string]any(doc)); err != nil {
		return fmt.Errorf("decode document %v: %w", doc[storage.IDField], err)
	}
	return nil
}
