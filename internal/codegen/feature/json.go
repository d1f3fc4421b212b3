package feature

import (
	"encoding/json"
	"errors"
	"fmt"
)

type dataTypeJSON struct {
	Basic       BasicKind        `json:"basic,omitempty"`
	Constrained *constrainedJSON `json:"constrained,omitempty"`
	List        *dataTypeJSON    `json:"list,omitempty"`
	Structure   []*Element       `json:"structure,omitempty"`
	Identifier  string           `json:"identifier,omitempty"`
}

type constrainedJSON struct {
	DataType    *dataTypeJSON `json:"dataType"`
	Constraints Constraints   `json:"constraints"`
}

func encodeDataType(dt DataType) *dataTypeJSON {
	switch t := dt.(type) {
	case *Basic:
		return &dataTypeJSON{Basic: t.Kind}
	case *Constrained:
		return &dataTypeJSON{Constrained: &constrainedJSON{DataType: encodeDataType(t.Base), Constraints: t.Constraints}}
	case *List:
		return &dataTypeJSON{List: encodeDataType(t.Elem)}
	case *Structure:
		return &dataTypeJSON{Structure: t.Elements}
	case *Reference:
		return &dataTypeJSON{Identifier: t.Identifier}
	}
	return nil
}

func decodeDataType(j *dataTypeJSON) (DataType, error) {
	if j == nil {
		return nil, errors.New("missing data type")
	}
	var (
		out DataType
		set int
	)
	if j.Basic != "" {
		set++
		if _, ok := ParseBasicKind(string(j.Basic)); !ok {
			return nil, fmt.Errorf("unknown basic type %q", j.Basic)
		}
		out = &Basic{Kind: j.Basic}
	}
	if j.Constrained != nil {
		set++
		base, err := decodeDataType(j.Constrained.DataType)
		if err != nil {
			return nil, fmt.Errorf("constrained: %w", err)
		}
		out = &Constrained{Base: base, Constraints: j.Constrained.Constraints}
	}
	if j.List != nil {
		set++
		elem, err := decodeDataType(j.List)
		if err != nil {
			return nil, fmt.Errorf("list: %w", err)
		}
		out = &List{Elem: elem}
	}
	if j.Structure != nil {
		set++
		out = &Structure{Elements: j.Structure}
	}
	if j.Identifier != "" {
		set++
		out = &Reference{Identifier: j.Identifier}
	}
	if set != 1 {
		return nil, fmt.Errorf("data type must have exactly one variant, found %d", set)
	}
	return out, nil
}

func (e *Element) MarshalJSON() ([]byte, error) {
	type plain Element
	return json.Marshal(struct {
		*plain
		DataType *dataTypeJSON `json:"dataType"`
	}{(*plain)(e), encodeDataType(e.DataType)})
}

func (e *Element) UnmarshalJSON(data []byte) error {
	type plain Element
	aux := struct {
		*plain
		DataType *dataTypeJSON `json:"dataType"`
	}{plain: (*plain)(e)}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	dt, err := decodeDataType(aux.DataType)
	if err != nil {
		return fmt.Errorf("element %s: %w", e.Identifier, err)
	}
	e.DataType = dt
	return nil
}

func (p *Property) MarshalJSON() ([]byte, error) {
	type plain Property
	return json.Marshal(struct {
		*plain
		DataType *dataTypeJSON `json:"dataType"`
	}{(*plain)(p), encodeDataType(p.DataType)})
}

func (p *Property) UnmarshalJSON(data []byte) error {
	type plain Property
	aux := struct {
		*plain
		DataType *dataTypeJSON `json:"dataType"`
	}{plain: (*plain)(p)}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	dt, err := decodeDataType(aux.DataType)
	if err != nil {
		return fmt.Errorf("property %s: %w", p.Identifier, err)
	}
	p.DataType = dt
	return nil
}

func (m *Metadata) MarshalJSON() ([]byte, error) {
	type plain Metadata
	return json.Marshal(struct {
		*plain
		DataType *dataTypeJSON `json:"dataType"`
	}{(*plain)(m), encodeDataType(m.DataType)})
}

func (m *Metadata) UnmarshalJSON(data []byte) error {
	type plain Metadata
	aux := struct {
		*plain
		DataType *dataTypeJSON `json:"dataType"`
	}{plain: (*plain)(m)}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	dt, err := decodeDataType(aux.DataType)
	if err != nil {
		return fmt.Errorf("metadata %s: %w", m.Identifier, err)
	}
	m.DataType = dt
	return nil
}

func (d *DataTypeDefinition) MarshalJSON() ([]byte, error) {
	type plain DataTypeDefinition
	return json.Marshal(struct {
		*plain
		DataType *dataTypeJSON `json:"dataType"`
	}{(*plain)(d), encodeDataType(d.DataType)})
}

func (d *DataTypeDefinition) UnmarshalJSON(data []byte) error {
	type plain DataTypeDefinition
	aux := struct {
		*plain
		DataType *dataTypeJSON `json:"dataType"`
	}{plain: (*plain)(d)}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	dt, err := decodeDataType(aux.DataType)
	if err != nil {
		return fmt.Errorf("data type %s: %w", d.Identifier, err)
	}
	d.DataType = dt
	return nil
}

// itemJSON wraps one item under a key naming its kind.
type itemJSON struct {
	Command               *Command               `json:"command,omitempty"`
	Property              *Property              `json:"property,omitempty"`
	Metadata              *Metadata              `json:"metadata,omitempty"`
	DataType              *DataTypeDefinition    `json:"dataType,omitempty"`
	DefinedExecutionError *DefinedExecutionError `json:"definedExecutionError,omitempty"`
}

func (d *Definition) MarshalJSON() ([]byte, error) {
	type plain Definition
	items := make([]itemJSON, 0, len(d.Items))
	for _, it := range d.Items {
		var j itemJSON
		switch v := it.(type) {
		case *Command:
			j.Command = v
		case *Property:
			j.Property = v
		case *Metadata:
			j.Metadata = v
		case *DataTypeDefinition:
			j.DataType = v
		case *DefinedExecutionError:
			j.DefinedExecutionError = v
		}
		items = append(items, j)
	}
	return json.Marshal(struct {
		*plain
		Items []itemJSON `json:"items"`
	}{(*plain)(d), items})
}

func (d *Definition) UnmarshalJSON(data []byte) error {
	type plain Definition
	aux := struct {
		*plain
		Items []itemJSON `json:"items"`
	}{plain: (*plain)(d)}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	d.Items = nil
	for i, j := range aux.Items {
		var items []Item
		if j.Command != nil {
			items = append(items, j.Command)
		}
		if j.Property != nil {
			items = append(items, j.Property)
		}
		if j.Metadata != nil {
			items = append(items, j.Metadata)
		}
		if j.DataType != nil {
			items = append(items, j.DataType)
		}
		if j.DefinedExecutionError != nil {
			items = append(items, j.DefinedExecutionError)
		}
		if len(items) != 1 {
			return fmt.Errorf("item %d: must have exactly one kind, found %d", i, len(items))
		}
		if err := d.Add(items[0]); err != nil {
			return fmt.Errorf("item %d: %w", i, err)
		}
	}
	return nil
}
