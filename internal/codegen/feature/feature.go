// Package feature holds the interface description model every lowering and
// emission step works on. It is shared between the lowering engine and the
// code-unit emitters.
package feature

import (
	"errors"
	"fmt"
	"strings"
)

// SchemaVersion is the version of the feature description format produced here.
const SchemaVersion = "1.0"

var (
	ErrDuplicateIdentifier = errors.New("duplicate identifier")
	ErrDanglingReference   = errors.New("dangling reference")
	ErrInvalidConstraint   = errors.New("invalid constraint")
)

type Maturity string

const (
	MaturityDraft     Maturity = "Draft"
	MaturityVerified  Maturity = "Verified"
	MaturityNormative Maturity = "Normative"
)

// Definition is one feature: a header plus an ordered list of items.
type Definition struct {
	Identifier     string   `json:"identifier"`
	DisplayName    string   `json:"displayName"`
	Description    string   `json:"description"`
	Category       string   `json:"category"`
	Originator     string   `json:"originator"`
	FeatureVersion string   `json:"featureVersion"`
	MaturityLevel  Maturity `json:"maturityLevel"`
	SchemaVersion  string   `json:"schemaVersion"`
	Locale         string   `json:"locale,omitempty"`
	Items          []Item   `json:"-"`
}

type ItemKind int

const (
	KindCommand ItemKind = iota
	KindProperty
	KindMetadata
	KindDataType
	KindError
)

func (k ItemKind) String() string {
	switch k {
	case KindCommand:
		return "Command"
	case KindProperty:
		return "Property"
	case KindMetadata:
		return "Metadata"
	case KindDataType:
		return "DataType"
	case KindError:
		return "DefinedExecutionError"
	}
	return fmt.Sprintf("ItemKind(%d)", int(k))
}

// Item is implemented by *Command, *Property, *Metadata,
// *DataTypeDefinition and *DefinedExecutionError only.
type Item interface {
	ItemIdentifier() string
	ItemKind() ItemKind
	isItem()
}

// Element is a named, typed slot: a parameter, a response or a structure field.
type Element struct {
	Identifier  string   `json:"identifier"`
	DisplayName string   `json:"displayName"`
	Description string   `json:"description"`
	DataType    DataType `json:"-"`
}

type Command struct {
	Identifier             string     `json:"identifier"`
	DisplayName            string     `json:"displayName"`
	Description            string     `json:"description"`
	Observable             bool       `json:"observable"`
	Parameters             []*Element `json:"parameters,omitempty"`
	Responses              []*Element `json:"responses,omitempty"`
	IntermediateResponses  []*Element `json:"intermediateResponses,omitempty"`
	DefinedExecutionErrors []string   `json:"definedExecutionErrors,omitempty"`
}

type Property struct {
	Identifier             string   `json:"identifier"`
	DisplayName            string   `json:"displayName"`
	Description            string   `json:"description"`
	Observable             bool     `json:"observable"`
	DataType               DataType `json:"-"`
	DefinedExecutionErrors []string `json:"definedExecutionErrors,omitempty"`
}

type Metadata struct {
	Identifier             string   `json:"identifier"`
	DisplayName            string   `json:"displayName"`
	Description            string   `json:"description"`
	DataType               DataType `json:"-"`
	DefinedExecutionErrors []string `json:"definedExecutionErrors,omitempty"`
}

type DataTypeDefinition struct {
	Identifier  string   `json:"identifier"`
	DisplayName string   `json:"displayName"`
	Description string   `json:"description"`
	DataType    DataType `json:"-"`
}

type DefinedExecutionError struct {
	Identifier  string `json:"identifier"`
	DisplayName string `json:"displayName"`
	Description string `json:"description"`
}

func (c *Command) ItemIdentifier() string               { return c.Identifier }
func (p *Property) ItemIdentifier() string              { return p.Identifier }
func (m *Metadata) ItemIdentifier() string              { return m.Identifier }
func (d *DataTypeDefinition) ItemIdentifier() string    { return d.Identifier }
func (e *DefinedExecutionError) ItemIdentifier() string { return e.Identifier }

func (*Command) ItemKind() ItemKind               { return KindCommand }
func (*Property) ItemKind() ItemKind              { return KindProperty }
func (*Metadata) ItemKind() ItemKind              { return KindMetadata }
func (*DataTypeDefinition) ItemKind() ItemKind    { return KindDataType }
func (*DefinedExecutionError) ItemKind() ItemKind { return KindError }

func (*Command) isItem()               {}
func (*Property) isItem()              {}
func (*Metadata) isItem()              {}
func (*DataTypeDefinition) isItem()    {}
func (*DefinedExecutionError) isItem() {}

// Add appends item. Identifiers are unique per item kind.
func (d *Definition) Add(item Item) error {
	if d.Lookup(item.ItemKind(), item.ItemIdentifier()) != nil {
		return fmt.Errorf("%w: %s %s", ErrDuplicateIdentifier, item.ItemKind(), item.ItemIdentifier())
	}
	d.Items = append(d.Items, item)
	return nil
}

// Lookup returns the item of the given kind and identifier, or nil.
func (d *Definition) Lookup(kind ItemKind, identifier string) Item {
	for _, it := range d.Items {
		if it.ItemKind() == kind && it.ItemIdentifier() == identifier {
			return it
		}
	}
	return nil
}

func (d *Definition) Commands() []*Command                 { return itemsOf[*Command](d) }
func (d *Definition) Properties() []*Property              { return itemsOf[*Property](d) }
func (d *Definition) Metadata() []*Metadata                { return itemsOf[*Metadata](d) }
func (d *Definition) DataTypes() []*DataTypeDefinition     { return itemsOf[*DataTypeDefinition](d) }
func (d *Definition) Errors() []*DefinedExecutionError     { return itemsOf[*DefinedExecutionError](d) }

func itemsOf[T Item](d *Definition) []T {
	var out []T
	for _, it := range d.Items {
		if v, ok := it.(T); ok {
			out = append(out, v)
		}
	}
	return out
}

// DataType returns the data type definition named identifier, or nil.
func (d *Definition) DataType(identifier string) *DataTypeDefinition {
	if it, ok := d.Lookup(KindDataType, identifier).(*DataTypeDefinition); ok {
		return it
	}
	return nil
}

// Check verifies that every reference resolves and every constraint is valid.
func (d *Definition) Check() error {
	var errs []error
	checkType := func(where string, dt DataType) {
		if dt == nil {
			errs = append(errs, fmt.Errorf("%s: missing data type", where))
			return
		}
		for _, ref := range References(dt) {
			if d.DataType(ref) == nil {
				errs = append(errs, fmt.Errorf("%w: %s refers to unknown data type %s", ErrDanglingReference, where, ref))
			}
		}
		Walk(dt, func(t DataType) {
			if c, ok := t.(*Constrained); ok {
				if err := c.Constraints.Check(c.Base); err != nil {
					errs = append(errs, fmt.Errorf("%s: %w", where, err))
				}
			}
		})
	}
	checkErrors := func(where string, ids []string) {
		for _, id := range ids {
			if d.Lookup(KindError, id) == nil {
				errs = append(errs, fmt.Errorf("%w: %s declares unknown error %s", ErrDanglingReference, where, id))
			}
		}
	}
	for _, it := range d.Items {
		where := it.ItemKind().String() + " " + it.ItemIdentifier()
		switch v := it.(type) {
		case *Command:
			for _, group := range [][]*Element{v.Parameters, v.Responses, v.IntermediateResponses} {
				for _, el := range group {
					checkType(where+"."+el.Identifier, el.DataType)
				}
			}
			checkErrors(where, v.DefinedExecutionErrors)
		case *Property:
			checkType(where, v.DataType)
			checkErrors(where, v.DefinedExecutionErrors)
		case *Metadata:
			checkType(where, v.DataType)
			checkErrors(where, v.DefinedExecutionErrors)
		case *DataTypeDefinition:
			checkType(where, v.DataType)
		}
	}
	return errors.Join(errs...)
}

// MajorVersion is the major component of FeatureVersion.
func (d *Definition) MajorVersion() string {
	major, _, _ := strings.Cut(d.FeatureVersion, ".")
	if major == "" {
		return "1"
	}
	return major
}
