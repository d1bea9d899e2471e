package api

import (
	"encoding/json"
	"net/http"
)

// maxBodyBytes bounds every JSON request body this package decodes.
const maxBodyBytes = 64 * 1024

// decodeJSON decodes a bounded JSON request body into dst.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	dec := json.NewDecoder(r.Body)
	return dec.Decode(dst)
}
