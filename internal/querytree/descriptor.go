package querytree

// DisplayStyle controls how an attribute appears in a node's tree-view label.
type DisplayStyle int

const (
	DisplayNone DisplayStyle = iota
	DisplayNameOnly
	DisplayNameWithValue
	DisplayValueOnly
	DisplayAlias
)

// DefaultOrder is the order of attributes the factories do not model.
const DefaultOrder = 99

// Descriptor is the static metadata of one attribute within a node kind.
type Descriptor struct {
	EditorName        string // unique within a node
	Order             int    // display and serialization order
	DisplayStyle      DisplayStyle
	IsValidName       bool // false for names outside the node's allowed set
	IgnoreFalseValues bool // hide from the label when "false" or empty
}

func unknownDescriptor(name string) Descriptor {
	return Descriptor{EditorName: name, Order: DefaultOrder}
}

// less orders descriptors for display, serialization and error reporting.
func (d Descriptor) less(o Descriptor) bool {
	if d.Order != o.Order {
		return d.Order < o.Order
	}
	return d.EditorName < o.EditorName
}
