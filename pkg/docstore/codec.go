package docstore

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// encodeJSON renders doc as a JSON object with id and version stamped in.
func encodeJSON(doc interface{}, id string, version int64) ([]byte, error) {
	obj, err := toObject(doc)
	if err != nil {
		return nil, err
	}
	obj[FieldID] = id
	obj[FieldVersion] = version
	return json.Marshal(obj)
}

func toObject(doc interface{}) (map[string]interface{}, error) {
	raw, err := json.Marshal(doc)
	if err != nil {
		return nil, fmt.Errorf("docstore: encode document: %w", err)
	}
	obj := map[string]interface{}{}
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	if err := dec.Decode(&obj); err != nil {
		return nil, fmt.Errorf("docstore: document must encode to a JSON object: %w", err)
	}
	return obj, nil
}

// decodeList unmarshals a set of raw JSON documents into dest, a pointer to a slice.
func decodeList(raws [][]byte, dest interface{}) error {
	var buf bytes.Buffer
	buf.WriteByte('[')
	for i, raw := range raws {
		if i > 0 {
			buf.WriteByte(',')
		}
		buf.Write(raw)
	}
	buf.WriteByte(']')
	if err := json.Unmarshal(buf.Bytes(), dest); err != nil {
		return fmt.Errorf("docstore: decode documents: %w", err)
	}
	return nil
}

func decodeOne(raw []byte, dest interface{}) error {
	if err := json.Unmarshal(raw, dest); err != nil {
		return fmt.Errorf("docstore: decode document: %w", err)
	}
	return nil
}

// canonical renders a scalar the way it appears inside a stored document so
// equality can be checked on encoded bytes.
func canonical(v interface{}) ([]byte, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	var generic interface{}
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	if err := dec.Decode(&generic); err != nil {
		return nil, err
	}
	return json.Marshal(generic)
}
