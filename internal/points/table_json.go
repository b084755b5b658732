package points

import "encoding/json"

// tableJSON is the cache representation of a Table.
type tableJSON struct {
	StartGW int               `json:"start_gw"`
	Horizon int               `json:"horizon"`
	XP      map[int][]float64 `json:"xp"`
}

func (t *Table) MarshalJSON() ([]byte, error) {
	return json.Marshal(tableJSON{StartGW: t.startGW, Horizon: t.horizon, XP: t.xp})
}

func (t *Table) UnmarshalJSON(data []byte) error {
	var dto tableJSON
	if err := json.Unmarshal(data, &dto); err != nil {
		return err
	}
	t.startGW = dto.StartGW
	t.horizon = dto.Horizon
	t.xp = dto.XP
	return nil
}
