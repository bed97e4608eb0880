package fetcher

import (
	"encoding/json"

	"github.com/rotisserie/eris"

	"github.com/sells-group/fundwatch/internal/model"
)

// DecodeJSON unmarshals a fetched document body into T. Both feeds this
// tool consumes are single JSON objects, so no streaming is needed.
func DecodeJSON[T any](doc *model.RawDocument) (T, error) {
	var out T
	if doc == nil {
		return out, eris.New("fetcher: decode nil document")
	}
	if err := json.Unmarshal([]byte(doc.Body), &out); err != nil {
		return out, eris.Wrapf(err, "fetcher: decode json from %s", doc.URL)
	}
	return out, nil
}
