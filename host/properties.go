package host

// PropertyKind is the control type of a property.
type PropertyKind int

const (
	PropBool PropertyKind = iota
	PropFloat
	PropInt
	PropText
	PropPath
	PropList
)

// ModifiedFunc runs when a property's value changes in the UI. It returns
// true when the property list has to be redrawn, for example because
// visibility changed.
type ModifiedFunc func(props *Properties, p *Property, settings *Settings) bool

// ListItem is one entry of a list property.
type ListItem struct {
	Name  string
	Value string
}

// Property describes one user-editable setting.
type Property struct {
	Name        string
	Description string
	Kind        PropertyKind
	Min, Max    float64
	Step        float64
	// Filter is the file dialog filter of a path property.
	Filter   string
	Items    []ListItem
	visible  bool
	modified ModifiedFunc
}

func (p *Property) Visible() bool                      { return p.visible }
func (p *Property) SetVisible(v bool)                  { p.visible = v }
func (p *Property) SetModifiedCallback(f ModifiedFunc) { p.modified = f }

// AddItem appends an entry to a list property.
func (p *Property) AddItem(name, value string) {
	p.Items = append(p.Items, ListItem{Name: name, Value: value})
}

// Properties is an ordered set of properties.
type Properties struct {
	list   []*Property
	byName map[string]*Property
}

func NewProperties() *Properties {
	return &Properties{byName: make(map[string]*Property)}
}

func (ps *Properties) add(p *Property) *Property {
	p.visible = true
	if old, ok := ps.byName[p.Name]; ok {
		*old = *p
		return old
	}
	ps.list = append(ps.list, p)
	ps.byName[p.Name] = p
	return p
}

func (ps *Properties) AddBool(name, desc string) *Property {
	return ps.add(&Property{Name: name, Description: desc, Kind: PropBool})
}

func (ps *Properties) AddFloat(name, desc string, min, max, step float64) *Property {
	return ps.add(&Property{Name: name, Description: desc, Kind: PropFloat, Min: min, Max: max, Step: step})
}

func (ps *Properties) AddInt(name, desc string, min, max, step int64) *Property {
	return ps.add(&Property{Name: name, Description: desc, Kind: PropInt, Min: float64(min), Max: float64(max), Step: float64(step)})
}

func (ps *Properties) AddText(name, desc string) *Property {
	return ps.add(&Property{Name: name, Description: desc, Kind: PropText})
}

func (ps *Properties) AddPath(name, desc, filter string) *Property {
	return ps.add(&Property{Name: name, Description: desc, Kind: PropPath, Filter: filter})
}

func (ps *Properties) AddList(name, desc string) *Property {
	return ps.add(&Property{Name: name, Description: desc, Kind: PropList})
}

// Get returns the property called name, or nil.
func (ps *Properties) Get(name string) *Property { return ps.byName[name] }

// List returns the properties in the order they were added.
func (ps *Properties) List() []*Property { return ps.list }

// Modified runs the modified callback of name, as the UI does after the user
// edits it. It reports whether the list must be refreshed.
func (ps *Properties) Modified(name string, settings *Settings) bool {
	p := ps.byName[name]
	if p == nil || p.modified == nil {
		return false
	}
	return p.modified(ps, p, settings)
}
