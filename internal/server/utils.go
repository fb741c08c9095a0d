package server

import (
	"encoding/json"
	"fmt"
	"math"

	"anchorlink/internal/suggest"
)

// itemData travels in CompletionItem.data and back on resolve.
type itemData struct {
	Token suggest.Token `json:"token"`
	Index int           `json:"index"`
}

// decodeItemData reads data as the client echoed it, which is generic
// JSON by then.
func decodeItemData(data any) (itemData, error) {
	raw, err := json.Marshal(data)
	if err != nil {
		return itemData{}, err
	}
	var d itemData
	if err := json.Unmarshal(raw, &d); err != nil {
		return itemData{}, fmt.Errorf("malformed completion data: %w", err)
	}
	if d.Token == "" {
		return itemData{}, fmt.Errorf("malformed completion data: no token")
	}
	return d, nil
}

// commitArgs parses the arguments of the commit command: the session
// token and the candidate index.
func commitArgs(args []any) (itemData, error) {
	if len(args) != 2 {
		return itemData{}, fmt.Errorf("%s expects 2 arguments, got %d", commitCommand, len(args))
	}
	token, ok := args[0].(string)
	if !ok || token == "" {
		return itemData{}, fmt.Errorf("%s: token must be a string, got %T", commitCommand, args[0])
	}
	var index int
	switch v := args[1].(type) {
	case float64:
		if v != math.Trunc(v) || v < 0 {
			return itemData{}, fmt.Errorf("%s: invalid index %v", commitCommand, v)
		}
		index = int(v)
	case int:
		index = v
	default:
		return itemData{}, fmt.Errorf("%s: index must be a number, got %T", commitCommand, args[1])
	}
	return itemData{Token: suggest.Token(token), Index: index}, nil
}
