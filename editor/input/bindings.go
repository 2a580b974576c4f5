package input

// Action names a navigation intent a feature can bind input to.
type Action string

const (
	ActionOrbit Action = "navigation.orbit"
	ActionPan   Action = "navigation.pan"
	ActionDolly Action = "navigation.dolly"
	ActionFly   Action = "navigation.fly"
	ActionZoom  Action = "navigation.zoom"
	ActionReset Action = "navigation.reset"
)

// Binding is one chord that activates an action: an optional mouse button
// plus an optional key, both of which must be held. Unused slots are -1.
type Binding struct {
	Button int
	Key    int
}

// NoBinding fills the unused slot of a chord.
const NoBinding = -1

// BindingTable maps actions to the chords that activate them. Features
// register their default bindings at construction; hosts may rebind before
// the first frame.
type BindingTable struct {
	bindings map[Action][]Binding
}

// NewBindingTable creates an empty table.
func NewBindingTable() *BindingTable {
	return &BindingTable{bindings: make(map[Action][]Binding)}
}

// Register appends a chord for an action. A chord with neither a button nor
// a key is ignored.
func (t *BindingTable) Register(a Action, b Binding) {
	if b.Button == NoBinding && b.Key == NoBinding {
		return
	}
	t.bindings[a] = append(t.bindings[a], b)
}

// Rebind replaces every chord for an action.
func (t *BindingTable) Rebind(a Action, chords ...Binding) {
	t.bindings[a] = nil
	for _, b := range chords {
		t.Register(a, b)
	}
}

// Bindings returns the chords registered for an action.
func (t *BindingTable) Bindings(a Action) []Binding {
	return t.bindings[a]
}

// Active reports whether any chord for the action is fully held in the
// snapshot.
func (t *BindingTable) Active(a Action, s Snapshot) bool {
	for _, b := range t.bindings[a] {
		if b.Button != NoBinding && !s.ButtonDown(b.Button) {
			continue
		}
		if b.Key != NoBinding && !s.KeyDown(b.Key) {
			continue
		}
		return true
	}
	return false
}
