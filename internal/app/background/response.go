package background

import (
	"encoding/json"
)

// Response ответ обработчика. Fields выводятся в JSON рядом с success и error.
type Response struct {
	Success bool
	Error   string
	Fields  map[string]any
}

// OK успешный ответ без дополнительных полей
func OK() Response {
	return Response{Success: true}
}

// Fail неуспешный ответ с сообщением
func Fail(message string) Response {
	return Response{Error: message}
}

// With добавляет поле к ответу
func (r Response) With(key string, value any) Response {
	fields := make(map[string]any, len(r.Fields)+1)
	for k, v := range r.Fields {
		fields[k] = v
	}
	fields[key] = value
	r.Fields = fields
	return r
}

func (r Response) MarshalJSON() ([]byte, error) {
	out := make(map[string]any, len(r.Fields)+2)
	for k, v := range r.Fields {
		out[k] = v
	}
	out["success"] = r.Success
	if r.Error != "" {
		out["error"] = r.Error
	} else {
		delete(out, "error")
	}
	return json.Marshal(out)
}

func (r *Response) UnmarshalJSON(data []byte) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	*r = Response{}
	if v, ok := raw["success"]; ok {
		if err := json.Unmarshal(v, &r.Success); err != nil {
			return err
		}
		delete(raw, "success")
	}
	if v, ok := raw["error"]; ok {
		if err := json.Unmarshal(v, &r.Error); err != nil {
			return err
		}
		delete(raw, "error")
	}

	if len(raw) > 0 {
		r.Fields = make(map[string]any, len(raw))
		for k, v := range raw {
			r.Fields[k] = v
		}
	}
	return nil
}

// Decode декодирует поле ответа в out. Работает как для ответов,
// собранных обработчиками, так и для разобранных из JSON.
func (r Response) Decode(key string, out any) error {
	v, ok := r.Fields[key]
	if !ok {
		return nil
	}

	raw, isRaw := v.(json.RawMessage)
	if !isRaw {
		var err error
		raw, err = json.Marshal(v)
		if err != nil {
			return err
		}
	}
	return json.Unmarshal(raw, out)
}
