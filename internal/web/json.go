package web

import "encoding/json"

// WrittenJSON is the response to a reset request.
type WrittenJSON struct {
	Written int `json:"written"`
}

func formatWritten(n int) []byte {
	data, _ := json.Marshal(WrittenJSON{Written: n})
	return data
}
