package fetcher

import (
	"bytes"
	"encoding/json"

	"github.com/rotisserie/eris"

	"github.com/sells-group/risk-cli/internal/model"
)

// DecodeItems accepts either a bare JSON array of strings/objects or an
// object with an "items" array, the same shape the batch API takes.
func DecodeItems(data []byte) ([]model.RawItem, error) {
	data = bytes.TrimSpace(data)
	if len(data) == 0 {
		return nil, eris.New("json: empty document")
	}

	var items []model.RawItem
	switch data[0] {
	case '[':
		if err := json.Unmarshal(data, &items); err != nil {
			return nil, eris.Wrap(err, "json: decode array")
		}
	case '{':
		var env struct {
			Items []model.RawItem `json:"items"`
		}
		if err := json.Unmarshal(data, &env); err != nil {
			return nil, eris.Wrap(err, "json: decode object")
		}
		if env.Items == nil {
			return nil, eris.New(`json: object has no "items" array`)
		}
		items = env.Items
	default:
		return nil, eris.Errorf("json: expected '[' or '{', got %q", data[0])
	}
	return items, nil
}
