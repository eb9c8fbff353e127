package lesson

import (
	"encoding/json"

	"github.com/kaptinlin/jsonrepair"
)

// repairUnmarshal unmarshals model output that is supposed to be JSON.
// Models occasionally emit near-JSON (code fences, trailing commas); on a
// syntax error the data is run through jsonrepair and parsed again.
func repairUnmarshal(data []byte, v any) error {
	err := json.Unmarshal(data, v)
	if err == nil {
		return nil
	}
	if _, ok := err.(*json.SyntaxError); ok {
		fixed, rerr := jsonrepair.JSONRepair(string(data))
		if rerr != nil {
			return err
		}
		return json.Unmarshal([]byte(fixed), v)
	}
	return err
}
