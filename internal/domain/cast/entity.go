package cast

type Cast struct {
	ID           string `json:"id"`
	StoreID      string `json:"store_id"`
	Name         string `json:"name"`
	IsActive     bool   `json:"is_active"`
	ShowInRoster bool   `json:"show_in_roster"`
}

// Roster indexes casts by exact display name.
type Roster map[string]Cast

func NewRoster(casts []Cast) Roster {
	r := make(Roster, len(casts))
	for _, c := range casts {
		r[c.Name] = c
	}
	return r
}

// Lookup resolves name to a cast id.
func (r Roster) Lookup(name string) (string, bool) {
	c, ok := r[name]
	if !ok {
		return "", false
	}
	return c.ID, true
}
