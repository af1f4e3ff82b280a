package handlers

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"
)

func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]string{
		"error": message,
	})
}

// queryInt reads a positive integer query parameter
func queryInt(r *http.Request, key string, def int) int {
	v := r.URL.Query().Get(key)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil || n <= 0 {
		return def
	}
	return n
}

// queryDate reads a YYYY-MM-DD query parameter in loc.
// ok is false when the value is present but malformed.
func queryDate(r *http.Request, key string, loc *time.Location, def time.Time) (time.Time, bool) {
	v := r.URL.Query().Get(key)
	if v == "" {
		return def, true
	}
	d, err := time.ParseInLocation("2006-01-02", v, loc)
	if err != nil {
		return time.Time{}, false
	}
	return d, true
}
